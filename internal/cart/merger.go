package cart

import (
	"context"
	stdErrors "errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/db/models"
)

// Merger folds a line into the buyer's active cart under the compound
// identity key (variant, quote-or-nil, design-approval-or-nil). An
// identical key increments quantity; any difference keeps a separate line
// so price and approval provenance survive into checkout.
//
// Methods take the transaction explicitly so callers in other packages
// (quote accept) can merge atomically with their own writes.
type Merger struct {
	repo Repository
}

func NewMerger(repo Repository) *Merger {
	return &Merger{repo: repo}
}

func (m *Merger) MergeLine(ctx context.Context, tx *gorm.DB, buyerID uuid.UUID, line models.CartItem) (*models.CartItem, error) {
	repo := m.repo.WithTx(tx)
	record, err := repo.FindOrCreateActiveCart(ctx, buyerID)
	if err != nil {
		return nil, err
	}

	existing, err := repo.FindLineByIdentity(ctx, record.ID, line.ProductVariantID, line.QuoteID, line.DesignApprovalID)
	if err == nil {
		if err := repo.AddLineQuantity(ctx, existing.ID, line.Quantity); err != nil {
			return nil, err
		}
		existing.Quantity += line.Quantity
		return existing, nil
	}
	if !stdErrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	line.CartID = record.ID
	return repo.CreateLine(ctx, &line)
}
