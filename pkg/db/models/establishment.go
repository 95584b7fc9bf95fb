package models

import (
	"time"

	"github.com/google/uuid"
)

// Establishment is a franchised chopp dispensing location billed for royalties.
type Establishment struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name         string    `gorm:"column:name;not null"`
	BillingEmail string    `gorm:"column:billing_email;not null"`
	// RoyaltyPercent overrides the platform default when set.
	RoyaltyPercent *string   `gorm:"column:royalty_percent"`
	Active         bool      `gorm:"column:active;not null;default:true"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Establishment) TableName() string {
	return "establishments"
}
