package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/choppgest/choppgest-backend/pkg/enums"
)

// GatewayConfig holds one establishment's credentials for one gateway. The
// reconciliation path reads it, never mutates it.
type GatewayConfig struct {
	ID              uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EstablishmentID uuid.UUID                `gorm:"column:establishment_id;type:uuid;not null;uniqueIndex:ux_gateway_configs_establishment_gateway"`
	Gateway         enums.Gateway            `gorm:"column:gateway;type:gateway;not null;uniqueIndex:ux_gateway_configs_establishment_gateway"`
	Environment     enums.GatewayEnvironment `gorm:"column:environment;type:gateway_environment;not null;default:'sandbox'"`
	Active          bool                     `gorm:"column:ativo;not null;default:false"`
	APIKey          *string                  `gorm:"column:api_key"`
	APISecret       *string                  `gorm:"column:api_secret"`
	WebhookSecret   *string                  `gorm:"column:webhook_secret"`
	CreatedAt       time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

func (GatewayConfig) TableName() string {
	return "gateway_configs"
}
