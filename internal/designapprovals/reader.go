package designapprovals

import (
	"context"
	stdErrors "errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/db/models"
)

// QuoteScopedReader exposes the approval attached to a quote for the quote
// accept path. Absence is reported as nil rather than an error.
type QuoteScopedReader struct {
	repo Repository
}

func NewQuoteScopedReader(repo Repository) *QuoteScopedReader {
	return &QuoteScopedReader{repo: repo}
}

func (r *QuoteScopedReader) LatestForQuote(ctx context.Context, tx *gorm.DB, quoteID uuid.UUID) (*models.DesignApproval, error) {
	approval, err := r.repo.WithTx(tx).FindLatestForQuote(ctx, quoteID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return approval, nil
}
