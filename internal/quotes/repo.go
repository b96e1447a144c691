package quotes

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/db/models"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a quote repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, quote *models.Quote) (*models.Quote, error) {
	if quote.ID == uuid.Nil {
		quote.ID = uuid.New()
	}
	if quote.Status == "" {
		quote.Status = enums.QuoteStatusRequested
	}
	if err := r.db.WithContext(ctx).Create(quote).Error; err != nil {
		return nil, err
	}
	return quote, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Quote, error) {
	var quote models.Quote
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&quote).Error; err != nil {
		return nil, err
	}
	return &quote, nil
}

func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Quote, error) {
	query := r.db.WithContext(ctx)
	// sqlite (tests) runs single-writer and rejects FOR UPDATE syntax.
	if query.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var quote models.Quote
	if err := query.Where("id = ?", id).First(&quote).Error; err != nil {
		return nil, err
	}
	return &quote, nil
}

func (r *repository) UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Quote{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) SupersedeActive(ctx context.Context, conversationID uuid.UUID, exceptID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Quote{}).
		Where("conversation_id = ? AND id <> ? AND status IN ?", conversationID, exceptID, enums.ActiveQuoteStatuses).
		Update("status", enums.QuoteStatusSuperseded)
	return result.RowsAffected, result.Error
}

func (r *repository) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Quote{}).
		Where("status IN ? AND expires_at IS NOT NULL AND expires_at < ?",
			[]enums.QuoteStatus{enums.QuoteStatusSent, enums.QuoteStatusPending}, now).
		Update("status", enums.QuoteStatusExpired)
	return result.RowsAffected, result.Error
}

func (r *repository) FindDue(ctx context.Context, now time.Time, limit int) ([]models.Quote, error) {
	var rows []models.Quote
	query := r.db.WithContext(ctx).
		Where("status IN ? AND expires_at IS NOT NULL AND expires_at < ?",
			[]enums.QuoteStatus{enums.QuoteStatusSent, enums.QuoteStatusPending}, now).
		Order("expires_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) FindActiveForConversation(ctx context.Context, conversationID uuid.UUID, now time.Time) (*models.Quote, error) {
	var quote models.Quote
	err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND status IN ?", conversationID, enums.ActiveQuoteStatuses).
		Where("expires_at IS NULL OR expires_at >= ? OR status = ?", now, enums.QuoteStatusAccepted).
		Order("created_at DESC").
		First(&quote).Error
	if err != nil {
		return nil, err
	}
	return &quote, nil
}

func (r *repository) FindActiveForItem(ctx context.Context, buyerID uuid.UUID, query ItemQuery, now time.Time) (*models.Quote, error) {
	var quote models.Quote
	err := applyItemQuery(r.db.WithContext(ctx), buyerID, query).
		Where("status IN ?", enums.ActiveQuoteStatuses).
		Where("expires_at IS NULL OR expires_at >= ? OR status = ?", now, enums.QuoteStatusAccepted).
		Order("created_at DESC").
		First(&quote).Error
	if err != nil {
		return nil, err
	}
	return &quote, nil
}

func (r *repository) FindLatestForItem(ctx context.Context, buyerID uuid.UUID, query ItemQuery) (*models.Quote, error) {
	var quote models.Quote
	err := applyItemQuery(r.db.WithContext(ctx), buyerID, query).
		Where("status <> ?", enums.QuoteStatusSuperseded).
		Order("created_at DESC").
		First(&quote).Error
	if err != nil {
		return nil, err
	}
	return &quote, nil
}

func applyItemQuery(db *gorm.DB, buyerID uuid.UUID, query ItemQuery) *gorm.DB {
	db = db.Model(&models.Quote{}).Where("buyer_id = ?", buyerID)
	if query.ProductID != nil {
		db = db.Where("product_id = ?", *query.ProductID)
	}
	if query.ServiceID != nil {
		db = db.Where("service_id = ?", *query.ServiceID)
	}
	if query.VariantID != nil {
		db = db.Where("product_variant_id = ? OR product_variant_id IS NULL", *query.VariantID)
	}
	if query.PackageID != nil {
		db = db.Where("service_package_id = ? OR service_package_id IS NULL", *query.PackageID)
	}
	return db
}
