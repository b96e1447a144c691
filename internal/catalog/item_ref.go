package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/enums"
	pkgerrors "github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/errors"
)

// ItemRef identifies a purchasable catalog item. Kind is resolved once at
// the API boundary; downstream code switches on it instead of probing
// which optional ID happens to be set.
type ItemRef struct {
	Kind      enums.ItemKind
	ItemID    uuid.UUID
	VariantID *uuid.UUID
	PackageID *uuid.UUID
}

// Validate rejects refs whose scoping does not match their kind.
func (r ItemRef) Validate() error {
	if !r.Kind.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "item kind must be product or service")
	}
	if r.ItemID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
	}
	switch r.Kind {
	case enums.ItemKindProduct:
		if r.PackageID != nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "products cannot be scoped to a service package")
		}
	case enums.ItemKindService:
		if r.VariantID != nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "services cannot be scoped to a product variant")
		}
	}
	return nil
}

// GatedItem is the kind-independent view the purchase validator works on.
type GatedItem struct {
	Kind                   enums.ItemKind
	ItemID                 uuid.UUID
	SellerID               uuid.UUID
	RequiresQuote          bool
	RequiresDesignApproval bool
	IsActive               bool
}

// ResolveGatedItem loads the flags for either kind through one call site.
func ResolveGatedItem(ctx context.Context, repo Repository, ref ItemRef) (*GatedItem, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	switch ref.Kind {
	case enums.ItemKindProduct:
		product, err := repo.FindProduct(ctx, ref.ItemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}
		return &GatedItem{
			Kind:                   enums.ItemKindProduct,
			ItemID:                 product.ID,
			SellerID:               product.SellerID,
			RequiresQuote:          product.RequiresQuote,
			RequiresDesignApproval: product.RequiresDesignApproval,
			IsActive:               product.IsActive,
		}, nil
	case enums.ItemKindService:
		service, err := repo.FindService(ctx, ref.ItemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "service not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load service")
		}
		return &GatedItem{
			Kind:                   enums.ItemKindService,
			ItemID:                 service.ID,
			SellerID:               service.SellerID,
			RequiresQuote:          service.RequiresQuote,
			RequiresDesignApproval: service.RequiresDesignApproval,
			IsActive:               service.IsActive,
		}, nil
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item kind must be product or service")
	}
}
