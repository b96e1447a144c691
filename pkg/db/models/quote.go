package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/enums"
)

// Quote is a custom price for a product or service, negotiated inside a
// conversation. QuotedPrice stays nil until the seller responds.
type Quote struct {
	ID               uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ConversationID   uuid.UUID         `gorm:"column:conversation_id;type:uuid;not null;index"`
	BuyerID          uuid.UUID         `gorm:"column:buyer_id;type:uuid;not null;index"`
	SellerID         uuid.UUID         `gorm:"column:seller_id;type:uuid;not null;index"`
	ProductID        *uuid.UUID        `gorm:"column:product_id;type:uuid"`
	ServiceID        *uuid.UUID        `gorm:"column:service_id;type:uuid"`
	ProductVariantID *uuid.UUID        `gorm:"column:product_variant_id;type:uuid"`
	ServicePackageID *uuid.UUID        `gorm:"column:service_package_id;type:uuid"`
	Quantity         int               `gorm:"column:quantity;not null;default:1"`
	QuotedPrice      *decimal.Decimal  `gorm:"column:quoted_price;type:numeric(12,2)"`
	Specifications   string            `gorm:"column:specifications;not null;default:''"`
	SellerNotes      *string           `gorm:"column:seller_notes"`
	Status           enums.QuoteStatus `gorm:"column:status;type:quote_status;not null;default:'requested'"`
	ExpiresAt        *time.Time        `gorm:"column:expires_at"`
	SentAt           *time.Time        `gorm:"column:sent_at"`
	AcceptedAt       *time.Time        `gorm:"column:accepted_at"`
	CreatedAt        time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// IsExpiredAt reports whether the quote's deadline has passed.
func (q Quote) IsExpiredAt(now time.Time) bool {
	return q.ExpiresAt != nil && q.ExpiresAt.Before(now)
}
