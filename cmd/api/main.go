package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/api/routes"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/internal/cart"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/internal/catalog"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/internal/conversations"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/internal/designapprovals"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/internal/escrow"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/internal/notifications"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/internal/purchase"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/internal/quotes"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/config"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/db"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/logger"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/migrate"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/outbox"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	conn := dbClient.DB()
	catalogRepo := catalog.NewRepository(conn)
	convRepo := conversations.NewRepository(conn)
	quoteRepo := quotes.NewRepository(conn)
	designRepo := designapprovals.NewRepository(conn)
	cartRepo := cart.NewRepository(conn)
	escrowRepo := escrow.NewRepository(conn)
	notificationRepo := notifications.NewRepository(conn)
	outboxSvc := outbox.NewService(outbox.NewRepository(conn), logg)

	merger := cart.NewMerger(cartRepo)

	quotesSvc, err := quotes.NewService(
		quoteRepo,
		convRepo,
		designapprovals.NewQuoteScopedReader(designRepo),
		merger,
		dbClient,
		outboxSvc,
		logg,
		cfg.Quotes.DefaultTTL,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create quote service", err)
		os.Exit(1)
	}

	designSvc, err := designapprovals.NewService(
		designRepo,
		convRepo,
		catalogRepo,
		quotes.NewReader(quoteRepo),
		dbClient,
		outboxSvc,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create design approval service", err)
		os.Exit(1)
	}

	purchaseSvc, err := purchase.NewService(catalogRepo, quotesSvc, designSvc)
	if err != nil {
		logg.Error(context.Background(), "failed to create purchase validator", err)
		os.Exit(1)
	}

	cartSvc, err := cart.NewService(
		cartRepo,
		merger,
		catalogRepo,
		purchaseSvc,
		quotes.NewReader(quoteRepo),
		designRepo,
		dbClient,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	escrowSvc, err := escrow.NewService(escrowRepo, dbClient, outboxSvc, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create escrow service", err)
		os.Exit(1)
	}

	notificationSvc, err := notifications.NewService(notificationRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create notification service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:        cfg,
			Logger:        logg,
			DB:            dbClient,
			Redis:         redisClient,
			Quotes:        quotesSvc,
			Designs:       designSvc,
			Cart:          cartSvc,
			Purchase:      purchaseSvc,
			Escrow:        escrowSvc,
			Notifications: notificationSvc,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
