package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/enums"
)

// CartRecord is the buyer's open cart.
type CartRecord struct {
	ID        uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID   uuid.UUID        `gorm:"column:buyer_id;type:uuid;not null;index"`
	Status    enums.CartStatus `gorm:"column:status;type:cart_status;not null;default:'active'"`
	Items     []CartItem       `gorm:"foreignKey:CartID"`
	CreatedAt time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// CartItem is one cart line. Identity is compound: the same variant added
// under a different quote or design approval stays a separate line so
// price and approval provenance survive into checkout.
type CartItem struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CartID           uuid.UUID       `gorm:"column:cart_id;type:uuid;not null;index"`
	ProductVariantID uuid.UUID       `gorm:"column:product_variant_id;type:uuid;not null"`
	QuoteID          *uuid.UUID      `gorm:"column:quote_id;type:uuid"`
	DesignApprovalID *uuid.UUID      `gorm:"column:design_approval_id;type:uuid"`
	Quantity         int             `gorm:"column:quantity;not null"`
	UnitPrice        decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// SameIdentity reports whether another line shares this line's compound key.
func (i CartItem) SameIdentity(variantID uuid.UUID, quoteID, designApprovalID *uuid.UUID) bool {
	return i.ProductVariantID == variantID &&
		uuidPtrEqual(i.QuoteID, quoteID) &&
		uuidPtrEqual(i.DesignApprovalID, designApprovalID)
}

func uuidPtrEqual(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
