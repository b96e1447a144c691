package cart

import (
	"context"
	stdErrors "errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/db/models"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/enums"
)

// Repository defines the persistence surface for carts and their lines.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindOrCreateActiveCart(ctx context.Context, buyerID uuid.UUID) (*models.CartRecord, error)
	FindActiveCart(ctx context.Context, buyerID uuid.UUID) (*models.CartRecord, error)
	// FindLineByIdentity looks up the line with the exact compound key.
	FindLineByIdentity(ctx context.Context, cartID, variantID uuid.UUID, quoteID, designApprovalID *uuid.UUID) (*models.CartItem, error)
	FindLine(ctx context.Context, lineID uuid.UUID) (*models.CartItem, error)
	CreateLine(ctx context.Context, line *models.CartItem) (*models.CartItem, error)
	AddLineQuantity(ctx context.Context, lineID uuid.UUID, delta int) error
	DeleteLine(ctx context.Context, lineID uuid.UUID) error
	ClearLines(ctx context.Context, cartID uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindOrCreateActiveCart(ctx context.Context, buyerID uuid.UUID) (*models.CartRecord, error) {
	var record models.CartRecord
	err := r.db.WithContext(ctx).
		Where("buyer_id = ? AND status = ?", buyerID, enums.CartStatusActive).
		First(&record).Error
	if err == nil {
		return &record, nil
	}
	if !stdErrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	record = models.CartRecord{
		ID:      uuid.New(),
		BuyerID: buyerID,
		Status:  enums.CartStatusActive,
	}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repository) FindActiveCart(ctx context.Context, buyerID uuid.UUID) (*models.CartRecord, error) {
	var record models.CartRecord
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("buyer_id = ? AND status = ?", buyerID, enums.CartStatusActive).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repository) FindLineByIdentity(ctx context.Context, cartID, variantID uuid.UUID, quoteID, designApprovalID *uuid.UUID) (*models.CartItem, error) {
	query := r.db.WithContext(ctx).
		Where("cart_id = ? AND product_variant_id = ?", cartID, variantID)
	if quoteID != nil {
		query = query.Where("quote_id = ?", *quoteID)
	} else {
		query = query.Where("quote_id IS NULL")
	}
	if designApprovalID != nil {
		query = query.Where("design_approval_id = ?", *designApprovalID)
	} else {
		query = query.Where("design_approval_id IS NULL")
	}
	var line models.CartItem
	if err := query.First(&line).Error; err != nil {
		return nil, err
	}
	return &line, nil
}

func (r *repository) FindLine(ctx context.Context, lineID uuid.UUID) (*models.CartItem, error) {
	var line models.CartItem
	if err := r.db.WithContext(ctx).Where("id = ?", lineID).First(&line).Error; err != nil {
		return nil, err
	}
	return &line, nil
}

func (r *repository) CreateLine(ctx context.Context, line *models.CartItem) (*models.CartItem, error) {
	if line.ID == uuid.Nil {
		line.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(line).Error; err != nil {
		return nil, err
	}
	return line, nil
}

func (r *repository) AddLineQuantity(ctx context.Context, lineID uuid.UUID, delta int) error {
	return r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("id = ?", lineID).
		Update("quantity", gorm.Expr("quantity + ?", delta)).Error
}

func (r *repository) DeleteLine(ctx context.Context, lineID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", lineID).
		Delete(&models.CartItem{}).Error
}

func (r *repository) ClearLines(ctx context.Context, cartID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Delete(&models.CartItem{}).Error
}
