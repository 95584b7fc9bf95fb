package paymentlog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/choppgest/choppgest-backend/pkg/db/models"
)

// Repository handles the append-only payment audit trail. There is no
// update or delete path on purpose.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Append(ctx context.Context, entry *models.PaymentLog) error
	ListByRoyalty(ctx context.Context, royaltyID uuid.UUID) ([]models.PaymentLog, error)
	CountByRoyalty(ctx context.Context, royaltyID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a payment log repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Append(ctx context.Context, entry *models.PaymentLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListByRoyalty(ctx context.Context, royaltyID uuid.UUID) ([]models.PaymentLog, error) {
	var entries []models.PaymentLog
	if err := r.db.WithContext(ctx).
		Where("royalty_id = ?", royaltyID).
		Order("created_at ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) CountByRoyalty(ctx context.Context, royaltyID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.PaymentLog{}).
		Where("royalty_id = ?", royaltyID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
