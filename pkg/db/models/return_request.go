package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/enums"
)

// ReturnRequest tracks a buyer's refund claim against one order or booking.
// AdminOverride stays set for audit when an admin reverses the seller's
// decision.
type ReturnRequest struct {
	ID                         uuid.UUID                 `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID                    *uuid.UUID                `gorm:"column:order_id;type:uuid;index"`
	BookingID                  *uuid.UUID                `gorm:"column:booking_id;type:uuid;index"`
	BuyerID                    uuid.UUID                 `gorm:"column:buyer_id;type:uuid;not null;index"`
	SellerID                   uuid.UUID                 `gorm:"column:seller_id;type:uuid;not null;index"`
	Status                     enums.ReturnRequestStatus `gorm:"column:status;type:return_request_status;not null;default:'under_review'"`
	Reason                     string                    `gorm:"column:reason;not null"`
	RequestedRefundAmount      decimal.Decimal           `gorm:"column:requested_refund_amount;type:numeric(12,2);not null"`
	SellerProposedRefundAmount *decimal.Decimal          `gorm:"column:seller_proposed_refund_amount;type:numeric(12,2)"`
	ApprovedRefundAmount       *decimal.Decimal          `gorm:"column:approved_refund_amount;type:numeric(12,2)"`
	CommissionReversedAmount   *decimal.Decimal          `gorm:"column:commission_reversed_amount;type:numeric(12,2)"`
	AdminOverride              bool                      `gorm:"column:admin_override;not null;default:false"`
	SellerNotes                *string                   `gorm:"column:seller_notes"`
	AdminNotes                 *string                   `gorm:"column:admin_notes"`
	RefundedAt                 *time.Time                `gorm:"column:refunded_at"`
	CreatedAt                  time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt                  time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
}
