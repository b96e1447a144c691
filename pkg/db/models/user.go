package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/enums"
)

// User is a marketplace account. Sellers carry the platform commission
// rate applied to their sales; buyers and admins leave it at zero.
type User struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email          string          `gorm:"column:email;not null;uniqueIndex"`
	DisplayName    string          `gorm:"column:display_name;not null"`
	Role           enums.UserRole  `gorm:"column:role;type:user_role;not null"`
	CommissionRate decimal.Decimal `gorm:"column:commission_rate;type:numeric(5,2);not null;default:0"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
