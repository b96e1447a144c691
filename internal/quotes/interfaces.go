package quotes

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/db/models"
)

// Repository defines the persistence surface required by the quote service.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, quote *models.Quote) (*models.Quote, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Quote, error)
	// FindByIDForUpdate acquires an exclusive row lock on the quote so two
	// concurrent accepts cannot both pass the status check.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Quote, error)
	UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]any) error
	// SupersedeActive marks every active quote in the conversation except
	// the given one as superseded.
	SupersedeActive(ctx context.Context, conversationID uuid.UUID, exceptID uuid.UUID) (int64, error)
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
	// FindDue lists quotes whose deadline passed but whose status has not
	// caught up yet.
	FindDue(ctx context.Context, now time.Time, limit int) ([]models.Quote, error)
	FindActiveForConversation(ctx context.Context, conversationID uuid.UUID, now time.Time) (*models.Quote, error)
	FindActiveForItem(ctx context.Context, buyerID uuid.UUID, query ItemQuery, now time.Time) (*models.Quote, error)
	FindLatestForItem(ctx context.Context, buyerID uuid.UUID, query ItemQuery) (*models.Quote, error)
}

// ItemQuery narrows quote lookups to a catalog item and optional scope.
type ItemQuery struct {
	ProductID *uuid.UUID
	ServiceID *uuid.UUID
	VariantID *uuid.UUID
	PackageID *uuid.UUID
}
