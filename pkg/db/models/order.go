package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/enums"
)

// Order is a completed product purchase. TotalAmount is the product amount
// only; shipping is carried separately so refunds can exclude it from
// commission arithmetic.
type Order struct {
	ID           uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID      uuid.UUID         `gorm:"column:buyer_id;type:uuid;not null;index"`
	SellerID     uuid.UUID         `gorm:"column:seller_id;type:uuid;not null;index"`
	Status       enums.OrderStatus `gorm:"column:status;type:order_status;not null;default:'pending'"`
	TotalAmount  decimal.Decimal   `gorm:"column:total_amount;type:numeric(12,2);not null"`
	ShippingCost decimal.Decimal   `gorm:"column:shipping_cost;type:numeric(12,2);not null;default:0"`
	CreatedAt    time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// Booking is a completed service purchase. Bookings carry no shipping line.
type Booking struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID     uuid.UUID           `gorm:"column:buyer_id;type:uuid;not null;index"`
	SellerID    uuid.UUID           `gorm:"column:seller_id;type:uuid;not null;index"`
	ServiceID   uuid.UUID           `gorm:"column:service_id;type:uuid;not null"`
	PackageID   *uuid.UUID          `gorm:"column:package_id;type:uuid"`
	Status      enums.BookingStatus `gorm:"column:status;type:booking_status;not null;default:'pending'"`
	TotalAmount decimal.Decimal     `gorm:"column:total_amount;type:numeric(12,2);not null"`
	ScheduledAt *time.Time          `gorm:"column:scheduled_at"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
