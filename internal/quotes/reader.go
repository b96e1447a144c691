package quotes

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/db/models"
)

// Reader exposes quote lookups to collaborating packages inside their own
// transactions.
type Reader struct {
	repo Repository
}

func NewReader(repo Repository) *Reader {
	return &Reader{repo: repo}
}

func (r *Reader) FindQuote(ctx context.Context, tx *gorm.DB, quoteID uuid.UUID) (*models.Quote, error) {
	return r.repo.WithTx(tx).FindByID(ctx, quoteID)
}
