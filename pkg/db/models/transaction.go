package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/enums"
)

// Transaction is one entry on the append-only money ledger. Refunds and
// commission reversals are recorded as new negative-amount rows, never by
// editing prior entries; only Status moves (escrow -> released|refunded).
type Transaction struct {
	ID               uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Type             enums.TransactionType   `gorm:"column:type;type:transaction_type;not null"`
	Status           enums.TransactionStatus `gorm:"column:status;type:transaction_status;not null;default:'escrow'"`
	OrderID          *uuid.UUID              `gorm:"column:order_id;type:uuid;index"`
	BookingID        *uuid.UUID              `gorm:"column:booking_id;type:uuid;index"`
	BuyerID          uuid.UUID               `gorm:"column:buyer_id;type:uuid;not null"`
	SellerID         uuid.UUID               `gorm:"column:seller_id;type:uuid;not null"`
	Amount           decimal.Decimal         `gorm:"column:amount;type:numeric(12,2);not null"`
	CommissionRate   decimal.Decimal         `gorm:"column:commission_rate;type:numeric(5,2);not null;default:0"`
	CommissionAmount decimal.Decimal         `gorm:"column:commission_amount;type:numeric(12,2);not null;default:0"`
	SellerPayout     decimal.Decimal         `gorm:"column:seller_payout;type:numeric(12,2);not null;default:0"`
	Note             *string                 `gorm:"column:note"`
	CreatedAt        time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
