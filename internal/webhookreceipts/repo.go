package webhookreceipts

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/choppgest/choppgest-backend/pkg/db/models"
	"github.com/choppgest/choppgest-backend/pkg/enums"
)

// Repository handles durable webhook receipt persistence. The
// (gateway, event_id) pair is unique; Upsert relies on that constraint
// so replayed deliveries land on the existing row.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Upsert(ctx context.Context, gateway enums.Gateway, eventID string, rawPayload json.RawMessage) (*models.WebhookReceipt, error)
	Find(ctx context.Context, gateway enums.Gateway, eventID string) (*models.WebhookReceipt, error)
	MarkProcessed(ctx context.Context, gateway enums.Gateway, eventID string, note *string) error
	RecordFailure(ctx context.Context, gateway enums.Gateway, eventID string, errorNote string) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a webhook receipt repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Upsert inserts the receipt or, on conflict, refreshes the raw payload
// of the existing row. It returns the stored row so callers can
// short-circuit on processed receipts.
func (r *repository) Upsert(ctx context.Context, gateway enums.Gateway, eventID string, rawPayload json.RawMessage) (*models.WebhookReceipt, error) {
	receipt := models.WebhookReceipt{
		Gateway:    gateway,
		EventID:    eventID,
		RawPayload: rawPayload,
	}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "gateway"}, {Name: "event_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"raw_payload"}),
		}).
		Create(&receipt).Error; err != nil {
		return nil, err
	}
	return r.Find(ctx, gateway, eventID)
}

func (r *repository) Find(ctx context.Context, gateway enums.Gateway, eventID string) (*models.WebhookReceipt, error) {
	var receipt models.WebhookReceipt
	if err := r.db.WithContext(ctx).
		Where("gateway = ? AND event_id = ?", gateway, eventID).
		First(&receipt).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &receipt, nil
}

func (r *repository) MarkProcessed(ctx context.Context, gateway enums.Gateway, eventID string, note *string) error {
	now := time.Now().UTC()
	return r.db.WithContext(ctx).
		Model(&models.WebhookReceipt{}).
		Where("gateway = ? AND event_id = ?", gateway, eventID).
		Updates(map[string]any{
			"processed":    true,
			"processed_at": now,
			"error_note":   note,
		}).Error
}

// RecordFailure stores the failure note but leaves the receipt
// unprocessed so the gateway's retry reprocesses the event.
func (r *repository) RecordFailure(ctx context.Context, gateway enums.Gateway, eventID string, errorNote string) error {
	return r.db.WithContext(ctx).
		Model(&models.WebhookReceipt{}).
		Where("gateway = ? AND event_id = ?", gateway, eventID).
		Update("error_note", errorNote).Error
}
