package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/enums"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/types"
)

// DesignApproval tracks buyer-submitted artwork awaiting seller sign-off.
// Context decides what an approval unlocks: product-context approvals
// authorize catalog purchases of the exact variant/package, quote-context
// approvals only attach to a custom quote.
type DesignApproval struct {
	ID             uuid.UUID                  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ConversationID uuid.UUID                  `gorm:"column:conversation_id;type:uuid;not null;index"`
	BuyerID        uuid.UUID                  `gorm:"column:buyer_id;type:uuid;not null;index"`
	SellerID       uuid.UUID                  `gorm:"column:seller_id;type:uuid;not null;index"`
	Context        enums.DesignContext        `gorm:"column:context;type:design_context;not null"`
	QuoteID        *uuid.UUID                 `gorm:"column:quote_id;type:uuid"`
	ProductID      *uuid.UUID                 `gorm:"column:product_id;type:uuid"`
	ServiceID      *uuid.UUID                 `gorm:"column:service_id;type:uuid"`
	VariantID      *uuid.UUID                 `gorm:"column:variant_id;type:uuid"`
	PackageID      *uuid.UUID                 `gorm:"column:package_id;type:uuid"`
	DesignFiles    types.DesignFiles          `gorm:"column:design_files;type:jsonb;not null"`
	Status         enums.DesignApprovalStatus `gorm:"column:status;type:design_approval_status;not null;default:'pending'"`
	SellerNotes    *string                    `gorm:"column:seller_notes"`
	ApprovedAt     *time.Time                 `gorm:"column:approved_at"`
	CreatedAt      time.Time                  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time                  `gorm:"column:updated_at;autoUpdateTime"`
}
