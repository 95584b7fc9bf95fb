package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/choppgest/choppgest-backend/pkg/enums"
)

// WebhookReceipt records one inbound gateway event. The (gateway, event_id)
// pair is unique; replayed deliveries upsert into the same row, which is what
// makes redelivery safe.
type WebhookReceipt struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Gateway     enums.Gateway   `gorm:"column:gateway;type:gateway;not null;uniqueIndex:ux_webhook_receipts_gateway_event"`
	EventID     string          `gorm:"column:event_id;not null;uniqueIndex:ux_webhook_receipts_gateway_event"`
	RawPayload  json.RawMessage `gorm:"column:raw_payload;type:jsonb"`
	Processed   bool            `gorm:"column:processed;not null;default:false"`
	ProcessedAt *time.Time      `gorm:"column:processed_at"`
	ErrorNote   *string         `gorm:"column:error_note"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (WebhookReceipt) TableName() string {
	return "webhook_receipts"
}
