package controllers

import (
	"net/http"

	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/api/responses"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/api/validators"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/internal/escrow"
	pkgerrors "github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/errors"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/logger"
)

type returnOpenBody struct {
	OrderID         *string `json:"order_id"`
	BookingID       *string `json:"booking_id"`
	Reason          string  `json:"reason" validate:"required"`
	RequestedAmount string  `json:"requested_amount" validate:"required"`
}

// ReturnOpen files a refund claim against an order or a booking.
func ReturnOpen(svc escrow.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body returnOpenBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		amount, err := parseDecimal(body.RequestedAmount, "requested_amount")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := escrow.OpenReturnInput{
			BuyerID:         actor,
			Reason:          body.Reason,
			RequestedAmount: amount,
		}
		if input.OrderID, err = parseOptionalUUID(body.OrderID, "order_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if input.BookingID, err = parseOptionalUUID(body.BookingID, "booking_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		request, err := svc.OpenReturnRequest(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, request)
	}
}

type returnSellerDecisionBody struct {
	Approve        *bool   `json:"approve" validate:"required"`
	ProposedAmount *string `json:"proposed_amount"`
	Notes          string  `json:"notes"`
}

// ReturnSellerDecision records the seller's approve or reject on an open
// return.
func ReturnSellerDecision(svc escrow.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		returnID, err := uuidParam(r, "returnId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body returnSellerDecisionBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if body.Approve == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "approve is required"))
			return
		}

		input := escrow.SellerDecisionInput{
			ReturnRequestID: returnID,
			SellerID:        actor,
			Approve:         *body.Approve,
			Notes:           body.Notes,
		}
		if input.ProposedAmount, err = parseOptionalDecimal(body.ProposedAmount, "proposed_amount"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		request, err := svc.SellerDecision(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, request)
	}
}

type returnAdminResolveBody struct {
	Approve        *bool   `json:"approve" validate:"required"`
	ApprovedAmount *string `json:"approved_amount"`
	Notes          string  `json:"notes"`
}

// ReturnAdminResolve settles a disputed or escalated return.
func ReturnAdminResolve(svc escrow.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		returnID, err := uuidParam(r, "returnId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body returnAdminResolveBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if body.Approve == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "approve is required"))
			return
		}

		input := escrow.AdminResolveInput{
			ReturnRequestID: returnID,
			AdminID:         actor,
			Approve:         *body.Approve,
			Notes:           body.Notes,
		}
		if input.ApprovedAmount, err = parseOptionalDecimal(body.ApprovedAmount, "approved_amount"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		request, err := svc.AdminResolve(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, request)
	}
}

// ReturnRefund executes the approved refund against the escrow ledger.
func ReturnRefund(svc escrow.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		returnID, err := uuidParam(r, "returnId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		request, err := svc.ProcessRefund(r.Context(), returnID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, request)
	}
}

func ReturnComplete(svc escrow.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		returnID, err := uuidParam(r, "returnId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		request, err := svc.Complete(r.Context(), returnID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, request)
	}
}

func ReturnGet(svc escrow.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		returnID, err := uuidParam(r, "returnId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		request, err := svc.GetReturnRequest(r.Context(), returnID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, request)
	}
}
