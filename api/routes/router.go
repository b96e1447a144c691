package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/api/controllers"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/api/middleware"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/internal/cart"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/internal/designapprovals"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/internal/escrow"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/internal/notifications"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/internal/purchase"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/internal/quotes"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/config"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/db"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/enums"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/logger"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/redis"
)

// RouterParams carries every service the HTTP surface exposes.
type RouterParams struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            db.Pinger
	Redis         *redis.Client
	Quotes        quotes.Service
	Designs       designapprovals.Service
	Cart          cart.Service
	Purchase      purchase.Service
	Escrow        escrow.Service
	Notifications notifications.Service
}

func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.DB, p.Redis))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/v1/quotes", func(r chi.Router) {
			r.Post("/", controllers.QuoteCreate(p.Quotes, logg))
			r.Get("/{quoteId}", controllers.QuoteGet(p.Quotes, logg))
			r.Patch("/{quoteId}", controllers.QuoteUpdate(p.Quotes, logg))
			r.Post("/{quoteId}/accept", controllers.QuoteAccept(p.Quotes, logg))
			r.Post("/{quoteId}/reject", controllers.QuoteReject(p.Quotes, logg))
		})
		r.Get("/v1/conversations/{conversationId}/active-quote", controllers.QuoteActiveForConversation(p.Quotes, logg))

		r.Route("/v1/design-approvals", func(r chi.Router) {
			r.Post("/", controllers.DesignSubmit(p.Designs, logg))
			r.Get("/{approvalId}", controllers.DesignGet(p.Designs, logg))
			r.Post("/{approvalId}/approve", controllers.DesignApprove(p.Designs, logg))
			r.Post("/{approvalId}/reject", controllers.DesignReject(p.Designs, logg))
			r.Post("/{approvalId}/request-changes", controllers.DesignRequestChanges(p.Designs, logg))
			r.Post("/{approvalId}/resubmit", controllers.DesignResubmit(p.Designs, logg))
			r.Post("/{approvalId}/copy", controllers.DesignCopy(p.Designs, logg))
		})

		r.Route("/v1/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(p.Cart, logg))
			r.Delete("/", controllers.CartClear(p.Cart, logg))
			r.Post("/items", controllers.CartAddItem(p.Cart, logg))
			r.Delete("/items/{itemId}", controllers.CartRemoveItem(p.Cart, logg))
		})

		r.Get("/v1/purchase-requirements", controllers.PurchaseRequirements(p.Purchase, logg))

		r.Route("/v1/returns", func(r chi.Router) {
			r.Post("/", controllers.ReturnOpen(p.Escrow, logg))
			r.Get("/{returnId}", controllers.ReturnGet(p.Escrow, logg))
			r.With(middleware.RequireRole(enums.UserRoleSeller.String(), logg)).
				Post("/{returnId}/decision", controllers.ReturnSellerDecision(p.Escrow, logg))
		})

		r.Get("/v1/transactions/{transactionId}", controllers.TransactionGet(p.Escrow, logg))

		r.Route("/v1/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(p.Notifications, logg))
			r.Get("/unread-count", controllers.NotificationUnreadCount(p.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(p.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(p.Notifications, logg))
		})
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(enums.UserRoleAdmin.String(), logg))

		r.Route("/v1/returns/{returnId}", func(r chi.Router) {
			r.Post("/resolve", controllers.ReturnAdminResolve(p.Escrow, logg))
			r.Post("/refund", controllers.ReturnRefund(p.Escrow, logg))
			r.Post("/complete", controllers.ReturnComplete(p.Escrow, logg))
		})

		r.Route("/v1/transactions/{transactionId}", func(r chi.Router) {
			r.Post("/release", controllers.TransactionRelease(p.Escrow, logg))
		})

		r.Route("/v1/orders/{orderId}", func(r chi.Router) {
			r.Post("/escrow", controllers.OrderEscrowCreate(p.Escrow, logg))
			r.Get("/transactions", controllers.OrderTransactions(p.Escrow, logg))
		})
		r.Route("/v1/bookings/{bookingId}", func(r chi.Router) {
			r.Post("/escrow", controllers.BookingEscrowCreate(p.Escrow, logg))
			r.Get("/transactions", controllers.BookingTransactions(p.Escrow, logg))
		})
	})

	return r
}
