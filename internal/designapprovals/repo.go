package designapprovals

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/db/models"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/enums"
)

// TargetQuery narrows approval lookups to a catalog item and optional
// variant/package scope.
type TargetQuery struct {
	ProductID *uuid.UUID
	ServiceID *uuid.UUID
	VariantID *uuid.UUID
	PackageID *uuid.UUID
}

// Repository defines the persistence surface required by the design
// approval service.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, approval *models.DesignApproval) (*models.DesignApproval, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.DesignApproval, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.DesignApproval, error)
	UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]any) error
	// SupersedeChangesRequested retires any changes_requested approval in
	// the conversation before a replacement upload lands.
	SupersedeChangesRequested(ctx context.Context, conversationID uuid.UUID) (int64, error)
	FindLatestForQuote(ctx context.Context, quoteID uuid.UUID) (*models.DesignApproval, error)
	// FindApprovedProductContext finds an approved context=product approval
	// for the exact buyer and variant/package target.
	FindApprovedProductContext(ctx context.Context, buyerID uuid.UUID, query TargetQuery) (*models.DesignApproval, error)
	// FindLatestProductContext returns the newest non-superseded
	// context=product approval regardless of status.
	FindLatestProductContext(ctx context.Context, buyerID uuid.UUID, query TargetQuery) (*models.DesignApproval, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a design approval repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, approval *models.DesignApproval) (*models.DesignApproval, error) {
	if approval.ID == uuid.Nil {
		approval.ID = uuid.New()
	}
	if approval.Status == "" {
		approval.Status = enums.DesignApprovalStatusPending
	}
	if err := r.db.WithContext(ctx).Create(approval).Error; err != nil {
		return nil, err
	}
	return approval, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.DesignApproval, error) {
	var approval models.DesignApproval
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&approval).Error; err != nil {
		return nil, err
	}
	return &approval, nil
}

func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.DesignApproval, error) {
	query := r.db.WithContext(ctx)
	if query.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var approval models.DesignApproval
	if err := query.Where("id = ?", id).First(&approval).Error; err != nil {
		return nil, err
	}
	return &approval, nil
}

func (r *repository) UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.DesignApproval{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) SupersedeChangesRequested(ctx context.Context, conversationID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.DesignApproval{}).
		Where("conversation_id = ? AND status = ?", conversationID, enums.DesignApprovalStatusChangesRequested).
		Update("status", enums.DesignApprovalStatusSuperseded)
	return result.RowsAffected, result.Error
}

func (r *repository) FindLatestForQuote(ctx context.Context, quoteID uuid.UUID) (*models.DesignApproval, error) {
	var approval models.DesignApproval
	err := r.db.WithContext(ctx).
		Where("quote_id = ? AND context = ? AND status <> ?",
			quoteID, enums.DesignContextQuote, enums.DesignApprovalStatusSuperseded).
		Order("created_at DESC").
		First(&approval).Error
	if err != nil {
		return nil, err
	}
	return &approval, nil
}

func (r *repository) FindApprovedProductContext(ctx context.Context, buyerID uuid.UUID, query TargetQuery) (*models.DesignApproval, error) {
	var approval models.DesignApproval
	err := applyTargetQuery(r.db.WithContext(ctx), buyerID, query).
		Where("status = ?", enums.DesignApprovalStatusApproved).
		Order("created_at DESC").
		First(&approval).Error
	if err != nil {
		return nil, err
	}
	return &approval, nil
}

func (r *repository) FindLatestProductContext(ctx context.Context, buyerID uuid.UUID, query TargetQuery) (*models.DesignApproval, error) {
	var approval models.DesignApproval
	err := applyTargetQuery(r.db.WithContext(ctx), buyerID, query).
		Where("status <> ?", enums.DesignApprovalStatusSuperseded).
		Order("created_at DESC").
		First(&approval).Error
	if err != nil {
		return nil, err
	}
	return &approval, nil
}

func applyTargetQuery(db *gorm.DB, buyerID uuid.UUID, query TargetQuery) *gorm.DB {
	db = db.Model(&models.DesignApproval{}).
		Where("buyer_id = ? AND context = ?", buyerID, enums.DesignContextProduct)
	if query.ProductID != nil {
		db = db.Where("product_id = ?", *query.ProductID)
	}
	if query.ServiceID != nil {
		db = db.Where("service_id = ?", *query.ServiceID)
	}
	if query.VariantID != nil {
		db = db.Where("variant_id = ?", *query.VariantID)
	}
	if query.PackageID != nil {
		db = db.Where("package_id = ?", *query.PackageID)
	}
	return db
}
