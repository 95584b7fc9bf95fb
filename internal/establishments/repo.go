package establishments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/choppgest/choppgest-backend/pkg/db/models"
)

// Repository handles establishment persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, establishment *models.Establishment) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Establishment, error)
	ListActive(ctx context.Context) ([]models.Establishment, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an establishment repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, establishment *models.Establishment) error {
	return r.db.WithContext(ctx).Create(establishment).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Establishment, error) {
	var establishment models.Establishment
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&establishment).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &establishment, nil
}

func (r *repository) ListActive(ctx context.Context) ([]models.Establishment, error) {
	var establishments []models.Establishment
	if err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("name ASC").
		Find(&establishments).Error; err != nil {
		return nil, err
	}
	return establishments, nil
}
