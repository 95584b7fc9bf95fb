package gatewayconfig

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/choppgest/choppgest-backend/pkg/db/models"
	"github.com/choppgest/choppgest-backend/pkg/enums"
)

// Repository handles gateway configuration reads. The reconciliation
// path never mutates configs, so there is no update method here.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Find(ctx context.Context, establishmentID uuid.UUID, gateway enums.Gateway) (*models.GatewayConfig, error)
	FindByGateway(ctx context.Context, gateway enums.Gateway) ([]models.GatewayConfig, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a gateway config repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Find(ctx context.Context, establishmentID uuid.UUID, gateway enums.Gateway) (*models.GatewayConfig, error) {
	var config models.GatewayConfig
	if err := r.db.WithContext(ctx).
		Where("establishment_id = ? AND gateway = ?", establishmentID, gateway).
		First(&config).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &config, nil
}

func (r *repository) FindByGateway(ctx context.Context, gateway enums.Gateway) ([]models.GatewayConfig, error) {
	var configs []models.GatewayConfig
	if err := r.db.WithContext(ctx).
		Where("gateway = ?", gateway).
		Find(&configs).Error; err != nil {
		return nil, err
	}
	return configs, nil
}
