package royalties

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/choppgest/choppgest-backend/pkg/db/models"
	"github.com/choppgest/choppgest-backend/pkg/enums"
)

// reconcileColumns is the explicit set of columns the reconciliation
// path may touch. AmountCents is deliberately absent; a protected
// amount is immutable once the charge exists.
var reconcileColumns = []string{
	"status",
	"payment_status",
	"payment_method",
	"paid_at",
	"payment_date",
	"updated_at",
}

// linkColumns is the explicit set of columns the link-generation path
// may touch.
var linkColumns = []string{
	"status",
	"payment_method",
	"external_payment_id",
	"payment_link_id",
	"price_id",
	"boleto_id",
	"invoice_url",
	"updated_at",
}

// Repository handles royalty charge persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, royalty *models.Royalty) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Royalty, error)
	// FindByIDForUpdate loads the charge under a row lock so concurrent
	// webhook deliveries for the same charge are serialized.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Royalty, error)
	FindByExternalPaymentID(ctx context.Context, gateway enums.Gateway, externalPaymentID string) (*models.Royalty, error)
	List(ctx context.Context, params ListQuery) ([]models.Royalty, error)
	UpdateReconciliation(ctx context.Context, royalty *models.Royalty) error
	UpdateLinkHandles(ctx context.Context, royalty *models.Royalty) error
	ListOverdue(ctx context.Context, asOf time.Time, limit int) ([]models.Royalty, error)
	ListStaleLinks(ctx context.Context, olderThan time.Time, limit int) ([]models.Royalty, error)
}

type repository struct {
	db *gorm.DB
}

// ListQuery configures royalty list queries.
type ListQuery struct {
	EstablishmentID *uuid.UUID
	Status          *enums.RoyaltyStatus
	Limit           int
}

// NewRepository returns a royalty repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, royalty *models.Royalty) error {
	return r.db.WithContext(ctx).Create(royalty).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Royalty, error) {
	var royalty models.Royalty
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&royalty).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &royalty, nil
}

func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Royalty, error) {
	var royalty models.Royalty
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&royalty).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &royalty, nil
}

func (r *repository) FindByExternalPaymentID(ctx context.Context, gateway enums.Gateway, externalPaymentID string) (*models.Royalty, error) {
	if externalPaymentID == "" {
		return nil, nil
	}
	var royalty models.Royalty
	if err := r.db.WithContext(ctx).
		Where("payment_method = ? AND external_payment_id = ?", gateway, externalPaymentID).
		First(&royalty).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &royalty, nil
}

func (r *repository) List(ctx context.Context, params ListQuery) ([]models.Royalty, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = 100
	}
	query := r.db.WithContext(ctx).Model(&models.Royalty{})
	if params.EstablishmentID != nil {
		query = query.Where("establishment_id = ?", *params.EstablishmentID)
	}
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}

	var royalties []models.Royalty
	if err := query.Order("created_at DESC").Limit(limit).Find(&royalties).Error; err != nil {
		return nil, err
	}
	return royalties, nil
}

func (r *repository) UpdateReconciliation(ctx context.Context, royalty *models.Royalty) error {
	return r.db.WithContext(ctx).
		Model(royalty).
		Select(reconcileColumns).
		Updates(royalty).Error
}

func (r *repository) UpdateLinkHandles(ctx context.Context, royalty *models.Royalty) error {
	return r.db.WithContext(ctx).
		Model(royalty).
		Select(linkColumns).
		Updates(royalty).Error
}

func (r *repository) ListOverdue(ctx context.Context, asOf time.Time, limit int) ([]models.Royalty, error) {
	if limit <= 0 {
		limit = 100
	}
	var royalties []models.Royalty
	if err := r.db.WithContext(ctx).
		Where("status IN (?)", []enums.RoyaltyStatus{enums.RoyaltyStatusLinkGerado, enums.RoyaltyStatusEnviado}).
		Where("due_date < ?", asOf).
		Order("due_date ASC").
		Limit(limit).
		Find(&royalties).Error; err != nil {
		return nil, err
	}
	return royalties, nil
}

func (r *repository) ListStaleLinks(ctx context.Context, olderThan time.Time, limit int) ([]models.Royalty, error) {
	if limit <= 0 {
		limit = 100
	}
	var royalties []models.Royalty
	if err := r.db.WithContext(ctx).
		Where("status = ?", enums.RoyaltyStatusLinkGerado).
		Where("updated_at < ?", olderThan).
		Where("external_payment_id IS NOT NULL").
		Order("updated_at ASC").
		Limit(limit).
		Find(&royalties).Error; err != nil {
		return nil, err
	}
	return royalties, nil
}
