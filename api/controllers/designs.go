package controllers

import (
	"net/http"

	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/api/responses"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/api/validators"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/internal/designapprovals"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/enums"
	pkgerrors "github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/errors"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/logger"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/types"
)

type designSubmitBody struct {
	ConversationID string            `json:"conversation_id" validate:"required,uuid"`
	Context        string            `json:"context" validate:"required,oneof=product quote"`
	QuoteID        *string           `json:"quote_id"`
	ProductID      *string           `json:"product_id"`
	ServiceID      *string           `json:"service_id"`
	VariantID      *string           `json:"variant_id"`
	PackageID      *string           `json:"package_id"`
	DesignFiles    types.DesignFiles `json:"design_files" validate:"required,min=1"`
}

// DesignSubmit opens a design approval for seller review.
func DesignSubmit(svc designapprovals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body designSubmitBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		conversationID, err := parseOptionalUUID(&body.ConversationID, "conversation_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		designContext, err := enums.ParseDesignContext(body.Context)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid context"))
			return
		}

		input := designapprovals.CreateInput{
			ConversationID: *conversationID,
			BuyerID:        actor,
			Context:        designContext,
			DesignFiles:    body.DesignFiles,
		}

		if input.QuoteID, err = parseOptionalUUID(body.QuoteID, "quote_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if input.ProductID, err = parseOptionalUUID(body.ProductID, "product_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if input.ServiceID, err = parseOptionalUUID(body.ServiceID, "service_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if input.VariantID, err = parseOptionalUUID(body.VariantID, "variant_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if input.PackageID, err = parseOptionalUUID(body.PackageID, "package_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		approval, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, approval)
	}
}

type designDecisionBody struct {
	Notes *string `json:"notes"`
}

type designNotesRequiredBody struct {
	Notes string `json:"notes" validate:"required"`
}

// DesignApprove records the seller's sign-off.
func DesignApprove(svc designapprovals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		approvalID, err := uuidParam(r, "approvalId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body designDecisionBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		approval, err := svc.Approve(r.Context(), approvalID, actor, body.Notes)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, approval)
	}
}

func DesignReject(svc designapprovals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		approvalID, err := uuidParam(r, "approvalId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body designNotesRequiredBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		approval, err := svc.Reject(r.Context(), approvalID, actor, body.Notes)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, approval)
	}
}

func DesignRequestChanges(svc designapprovals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		approvalID, err := uuidParam(r, "approvalId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body designNotesRequiredBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		approval, err := svc.RequestChanges(r.Context(), approvalID, actor, body.Notes)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, approval)
	}
}

type designResubmitBody struct {
	DesignFiles types.DesignFiles `json:"design_files" validate:"required,min=1"`
}

// DesignResubmit uploads revised files after a rejection or change request.
func DesignResubmit(svc designapprovals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		approvalID, err := uuidParam(r, "approvalId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body designResubmitBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		approval, err := svc.Resubmit(r.Context(), approvalID, actor, body.DesignFiles)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, approval)
	}
}

type designCopyBody struct {
	TargetVariantID *string `json:"target_variant_id"`
	TargetPackageID *string `json:"target_package_id"`
}

// DesignCopy reuses an approved design for a sibling variant or package.
func DesignCopy(svc designapprovals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		approvalID, err := uuidParam(r, "approvalId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body designCopyBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := designapprovals.CopyInput{
			SourceID: approvalID,
			BuyerID:  actor,
		}
		if input.TargetVariantID, err = parseOptionalUUID(body.TargetVariantID, "target_variant_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if input.TargetPackageID, err = parseOptionalUUID(body.TargetPackageID, "target_package_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		approval, err := svc.CopyToTarget(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, approval)
	}
}

func DesignGet(svc designapprovals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		approvalID, err := uuidParam(r, "approvalId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		approval, err := svc.Get(r.Context(), approvalID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, approval)
	}
}
