package models

import (
	"time"

	"github.com/google/uuid"
)

// Conversation anchors a buyer-seller thread. Quotes and design approvals
// always attach to one; the core only reads participant identity from it.
type Conversation struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID   uuid.UUID  `gorm:"column:buyer_id;type:uuid;not null;index"`
	SellerID  uuid.UUID  `gorm:"column:seller_id;type:uuid;not null;index"`
	Subject   *string    `gorm:"column:subject"`
	ProductID *uuid.UUID `gorm:"column:product_id;type:uuid"`
	ServiceID *uuid.UUID `gorm:"column:service_id;type:uuid"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// HasParticipant reports whether the given user is one of the two parties.
func (c Conversation) HasParticipant(userID uuid.UUID) bool {
	return c.BuyerID == userID || c.SellerID == userID
}
