package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/enums"
)

// Notification stores in-app notification payloads scoped to users.
type Notification struct {
	ID        uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID             `gorm:"column:user_id;type:uuid;not null;index"`
	EventType enums.OutboxEventType `gorm:"column:event_type;type:event_type_enum;not null"`
	Title     string                `gorm:"column:title;not null"`
	Message   string                `gorm:"column:message;not null"`
	Link      *string               `gorm:"column:link"`
	ReadAt    *time.Time            `gorm:"column:read_at"`
	CreatedAt time.Time             `gorm:"column:created_at;autoCreateTime"`
}
