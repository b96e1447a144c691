package controllers

import (
	"net/http"
	"strings"

	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/api/responses"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/internal/catalog"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/internal/purchase"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/enums"
	pkgerrors "github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/errors"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/logger"
)

// PurchaseRequirements reports whether the buyer may add an item to the
// cart right now, and which gate blocks them if not.
func PurchaseRequirements(svc purchase.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		query := r.URL.Query()

		kind, err := enums.ParseItemKind(strings.TrimSpace(query.Get("kind")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid kind"))
			return
		}

		rawItemID := strings.TrimSpace(query.Get("item_id"))
		if rawItemID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "item_id is required"))
			return
		}
		itemID, err := parseOptionalUUID(&rawItemID, "item_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ref := catalog.ItemRef{Kind: kind, ItemID: *itemID}

		if raw := strings.TrimSpace(query.Get("variant_id")); raw != "" {
			if ref.VariantID, err = parseOptionalUUID(&raw, "variant_id"); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}
		if raw := strings.TrimSpace(query.Get("package_id")); raw != "" {
			if ref.PackageID, err = parseOptionalUUID(&raw, "package_id"); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		result, err := svc.Validate(r.Context(), purchase.Query{BuyerID: actor, Ref: ref})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
