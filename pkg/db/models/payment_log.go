package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/choppgest/choppgest-backend/pkg/enums"
)

// PaymentLog is the append-only audit trail of every decision taken against a
// royalty charge. Rows are never updated or deleted.
type PaymentLog struct {
	ID              uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	RoyaltyID       uuid.UUID              `gorm:"column:royalty_id;type:uuid;not null;index"`
	EstablishmentID uuid.UUID              `gorm:"column:establishment_id;type:uuid;not null"`
	Gateway         enums.Gateway          `gorm:"column:gateway;type:gateway;not null"`
	Action          enums.PaymentLogAction `gorm:"column:action;type:payment_log_action;not null"`
	Status          enums.RoyaltyStatus    `gorm:"column:status;type:royalty_status;not null"`
	RequestPayload  json.RawMessage        `gorm:"column:request_payload;type:jsonb"`
	ResponsePayload json.RawMessage        `gorm:"column:response_payload;type:jsonb"`
	SourceIP        *string                `gorm:"column:source_ip"`
	UserAgent       *string                `gorm:"column:user_agent"`
	Note            *string                `gorm:"column:note"`
	CreatedAt       time.Time              `gorm:"column:created_at;autoCreateTime"`
}

func (PaymentLog) TableName() string {
	return "payment_log"
}
