package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/api/middleware"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/api/responses"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/api/validators"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/internal/quotes"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/enums"
	pkgerrors "github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/errors"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/logger"
)

type quoteCreateBody struct {
	ConversationID   string  `json:"conversation_id" validate:"required,uuid"`
	Status           string  `json:"status" validate:"omitempty,oneof=requested sent"`
	ProductID        *string `json:"product_id"`
	ServiceID        *string `json:"service_id"`
	ProductVariantID *string `json:"product_variant_id"`
	ServicePackageID *string `json:"service_package_id"`
	Quantity         int     `json:"quantity" validate:"omitempty,min=1"`
	Specifications   string  `json:"specifications"`
	QuotedPrice      *string `json:"quoted_price"`
	ExpiresAt        *string `json:"expires_at"`
}

// QuoteCreate opens a quote in a conversation. Buyers open requests,
// sellers open priced quotes directly.
func QuoteCreate(svc quotes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body quoteCreateBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		conversationID, err := parseOptionalUUID(&body.ConversationID, "conversation_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status := enums.QuoteStatusRequested
		if raw := strings.TrimSpace(body.Status); raw != "" {
			status, err = enums.ParseQuoteStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
		} else if middleware.RoleFromContext(r.Context()) == enums.UserRoleSeller.String() {
			status = enums.QuoteStatusSent
		}

		input := quotes.CreateInput{
			ConversationID: *conversationID,
			ActorID:        actor,
			Status:         status,
			Quantity:       body.Quantity,
			Specifications: body.Specifications,
		}

		if input.ProductID, err = parseOptionalUUID(body.ProductID, "product_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if input.ServiceID, err = parseOptionalUUID(body.ServiceID, "service_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if input.ProductVariantID, err = parseOptionalUUID(body.ProductVariantID, "product_variant_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if input.ServicePackageID, err = parseOptionalUUID(body.ServicePackageID, "service_package_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if input.QuotedPrice, err = parseOptionalDecimal(body.QuotedPrice, "quoted_price"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if input.ExpiresAt, err = parseOptionalTime(body.ExpiresAt, "expires_at"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		quote, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, quote)
	}
}

type quoteUpdateBody struct {
	QuotedPrice string  `json:"quoted_price" validate:"required"`
	SellerNotes *string `json:"seller_notes"`
	ExpiresAt   *string `json:"expires_at"`
}

// QuoteUpdate lets the seller price or reprice a quote.
func QuoteUpdate(svc quotes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		quoteID, err := uuidParam(r, "quoteId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body quoteUpdateBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		price, err := parseDecimal(body.QuotedPrice, "quoted_price")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := quotes.UpdateInput{
			QuoteID:     quoteID,
			SellerID:    actor,
			QuotedPrice: price,
			SellerNotes: body.SellerNotes,
		}
		if input.ExpiresAt, err = parseOptionalTime(body.ExpiresAt, "expires_at"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		quote, err := svc.Update(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, quote)
	}
}

func QuoteAccept(svc quotes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		quoteID, err := uuidParam(r, "quoteId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		quote, err := svc.Accept(r.Context(), quoteID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, quote)
	}
}

type quoteRejectBody struct {
	Reason string `json:"reason" validate:"required"`
}

func QuoteReject(svc quotes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		quoteID, err := uuidParam(r, "quoteId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body quoteRejectBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		quote, err := svc.Reject(r.Context(), quoteID, actor, body.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, quote)
	}
}

func QuoteGet(svc quotes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		quoteID, err := uuidParam(r, "quoteId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		quote, err := svc.Get(r.Context(), quoteID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, quote)
	}
}

// QuoteActiveForConversation returns the single non-terminal quote in a
// conversation, if any.
func QuoteActiveForConversation(svc quotes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conversationID, err := uuidParam(r, "conversationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		quote, err := svc.ActiveForConversation(r.Context(), conversationID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, quote)
	}
}

func parseOptionalTime(value *string, field string) (*time.Time, error) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(*value))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+field)
	}
	return &t, nil
}
