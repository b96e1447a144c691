package controllers

import (
	"net/http"

	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/api/responses"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/api/validators"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/internal/cart"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/logger"
)

func CartFetch(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.Get(r.Context(), actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, record)
	}
}

type cartAddItemBody struct {
	VariantID        string  `json:"variant_id" validate:"required,uuid"`
	Quantity         int     `json:"quantity" validate:"required,min=1"`
	QuoteID          *string `json:"quote_id"`
	DesignApprovalID *string `json:"design_approval_id"`
}

// CartAddItem runs the purchase gate before the line lands in the cart.
func CartAddItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body cartAddItemBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		variantID, err := parseOptionalUUID(&body.VariantID, "variant_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := cart.AddItemInput{
			BuyerID:   actor,
			VariantID: *variantID,
			Quantity:  body.Quantity,
		}
		if input.QuoteID, err = parseOptionalUUID(body.QuoteID, "quote_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if input.DesignApprovalID, err = parseOptionalUUID(body.DesignApprovalID, "design_approval_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.AddItem(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, item)
	}
}

func CartRemoveItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		itemID, err := uuidParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.RemoveItem(r.Context(), actor, itemID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "removed"})
	}
}

func CartClear(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Clear(r.Context(), actor); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "cleared"})
	}
}
