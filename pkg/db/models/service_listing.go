package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ServiceListing is a bookable service offered by a seller, gated the same
// way products are.
type ServiceListing struct {
	ID                     uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SellerID               uuid.UUID        `gorm:"column:seller_id;type:uuid;not null;index"`
	Title                  string           `gorm:"column:title;not null"`
	Description            string           `gorm:"column:description;not null;default:''"`
	RequiresQuote          bool             `gorm:"column:requires_quote;not null;default:false"`
	RequiresDesignApproval bool             `gorm:"column:requires_design_approval;not null;default:false"`
	IsActive               bool             `gorm:"column:is_active;not null;default:true"`
	Packages               []ServicePackage `gorm:"foreignKey:ServiceID"`
	CreatedAt              time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt              time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// ServicePackage is a priced tier of a service listing.
type ServicePackage struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ServiceID uuid.UUID       `gorm:"column:service_id;type:uuid;not null;index"`
	Name      string          `gorm:"column:name;not null"`
	Price     decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	IsActive  bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
