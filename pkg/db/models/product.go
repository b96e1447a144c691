package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a catalog listing owned by a seller. The two requires-flags
// gate whether a variant may be added to a cart without a quote and/or an
// approved design.
type Product struct {
	ID                     uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SellerID               uuid.UUID        `gorm:"column:seller_id;type:uuid;not null;index"`
	Title                  string           `gorm:"column:title;not null"`
	Description            string           `gorm:"column:description;not null;default:''"`
	RequiresQuote          bool             `gorm:"column:requires_quote;not null;default:false"`
	RequiresDesignApproval bool             `gorm:"column:requires_design_approval;not null;default:false"`
	IsActive               bool             `gorm:"column:is_active;not null;default:true"`
	Variants               []ProductVariant `gorm:"foreignKey:ProductID"`
	CreatedAt              time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt              time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// ProductVariant is a purchasable variation of a product with its own
// catalog price.
type ProductVariant struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID uuid.UUID       `gorm:"column:product_id;type:uuid;not null;index"`
	Name      string          `gorm:"column:name;not null"`
	SKU       string          `gorm:"column:sku;not null"`
	Price     decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	IsActive  bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
