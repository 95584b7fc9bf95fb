package royalties

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/choppgest/choppgest-backend/internal/establishments"
	"github.com/choppgest/choppgest-backend/internal/gateways"
	"github.com/choppgest/choppgest-backend/internal/paymentlog"
	"github.com/choppgest/choppgest-backend/pkg/config"
	"github.com/choppgest/choppgest-backend/pkg/db/models"
	"github.com/choppgest/choppgest-backend/pkg/enums"
	pkgerrors "github.com/choppgest/choppgest-backend/pkg/errors"
	"github.com/choppgest/choppgest-backend/pkg/logger"
	"github.com/choppgest/choppgest-backend/pkg/outbox"
)

var oneHundred = decimal.NewFromInt(100)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type capabilityChecker interface {
	IsActive(ctx context.Context, establishmentID uuid.UUID, gateway enums.Gateway) (bool, error)
}

// CreateInput describes one new royalty billing cycle.
type CreateInput struct {
	EstablishmentID   uuid.UUID `json:"establishment_id" validate:"required"`
	PeriodStart       time.Time `json:"period_start" validate:"required"`
	PeriodEnd         time.Time `json:"period_end" validate:"required"`
	GrossRevenueCents int64     `json:"gross_revenue_cents" validate:"required,gt=0"`
	DueDate           time.Time `json:"due_date" validate:"required"`
	PercentOverride   *string   `json:"percent_override,omitempty"`
	BillingEmail      string    `json:"billing_email,omitempty"`
	Description       *string   `json:"description,omitempty"`
}

type ServiceParams struct {
	Config            config.RoyaltyConfig
	RoyaltyRepo       Repository
	PaymentLogRepo    paymentlog.Repository
	EstablishmentRepo establishments.Repository
	GatewayConfigs    capabilityChecker
	Clients           gateways.Clients
	Outbox            *outbox.Service
	TransactionRunner txRunner
	Logger            *logger.Logger
}

// Service owns the charge side of the lifecycle: creation, link
// generation against a provider, and manual cancellation. Webhook-driven
// transitions live in the reconcile engine instead.
type Service struct {
	cfg      config.RoyaltyConfig
	repo     Repository
	logRepo  paymentlog.Repository
	estRepo  establishments.Repository
	configs  capabilityChecker
	clients  gateways.Clients
	outbox   *outbox.Service
	txRunner txRunner
	logg     *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.RoyaltyRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "royalty repo required")
	}
	if params.PaymentLogRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment log repo required")
	}
	if params.EstablishmentRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "establishment repo required")
	}
	if params.GatewayConfigs == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "gateway config service required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	return &Service{
		cfg:      params.Config,
		repo:     params.RoyaltyRepo,
		logRepo:  params.PaymentLogRepo,
		estRepo:  params.EstablishmentRepo,
		configs:  params.GatewayConfigs,
		clients:  params.Clients,
		outbox:   params.Outbox,
		txRunner: params.TransactionRunner,
		logg:     params.Logger,
	}, nil
}

// ComputeAmountCents applies the royalty percentage to the gross revenue
// with half-up rounding at the cent.
func ComputeAmountCents(grossRevenueCents int64, percent decimal.Decimal) int64 {
	gross := decimal.NewFromInt(grossRevenueCents)
	return gross.Mul(percent).Div(oneHundred).Round(0).IntPart()
}

// Create computes the royalty amount and persists a pendente charge with
// a protected amount.
func (s *Service) Create(ctx context.Context, input CreateInput) (*models.Royalty, error) {
	if input.EstablishmentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "establishment id required")
	}
	if input.PeriodEnd.Before(input.PeriodStart) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "period start must not be after period end")
	}
	if input.GrossRevenueCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gross revenue must be positive")
	}
	if input.DueDate.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "due date required")
	}

	establishment, err := s.estRepo.FindByID(ctx, input.EstablishmentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load establishment")
	}
	if establishment == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "establishment not found")
	}

	percent, err := s.resolvePercent(input.PercentOverride, establishment.RoyaltyPercent)
	if err != nil {
		return nil, err
	}

	billingEmail := input.BillingEmail
	if billingEmail == "" {
		billingEmail = establishment.BillingEmail
	}

	royalty := &models.Royalty{
		ID:                uuid.New(),
		EstablishmentID:   input.EstablishmentID,
		PeriodStart:       input.PeriodStart,
		PeriodEnd:         input.PeriodEnd,
		GrossRevenueCents: input.GrossRevenueCents,
		AmountCents:       ComputeAmountCents(input.GrossRevenueCents, percent),
		RoyaltyPercent:    percent.String(),
		Currency:          "brl",
		DueDate:           input.DueDate,
		BillingEmail:      billingEmail,
		Description:       input.Description,
		Status:            enums.RoyaltyStatusPendente,
		PaymentMethod:     enums.GatewayNone,
		AmountProtected:   true,
	}

	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, royalty); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create royalty")
		}
		note := fmt.Sprintf("charge created: gross %d cents at %s%%", input.GrossRevenueCents, percent.String())
		return s.logRepo.WithTx(tx).Append(ctx, &models.PaymentLog{
			RoyaltyID:       royalty.ID,
			EstablishmentID: royalty.EstablishmentID,
			Gateway:         enums.GatewayNone,
			Action:          enums.PaymentLogActionManual,
			Status:          enums.RoyaltyStatusPendente,
			Note:            &note,
		})
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithRoyaltyID(ctx, royalty.ID.String())
		s.logg.Info(logCtx, "royalty charge created")
	}
	return royalty, nil
}

func (s *Service) resolvePercent(override, establishmentPercent *string) (decimal.Decimal, error) {
	raw := s.cfg.DefaultPercent
	if raw == "" {
		raw = "7"
	}
	if establishmentPercent != nil && *establishmentPercent != "" {
		raw = *establishmentPercent
	}
	if override != nil && *override != "" {
		raw = *override
	}
	percent, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid royalty percent %q", raw))
	}
	if percent.LessThanOrEqual(decimal.Zero) || percent.GreaterThan(oneHundred) {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "royalty percent must be in (0, 100]")
	}
	return percent, nil
}

// GenerateLink asks the provider for a payable link/boleto. The outbound
// call is bounded by the configured timeout; nothing is persisted unless
// it succeeds.
func (s *Service) GenerateLink(ctx context.Context, royaltyID uuid.UUID, gateway enums.Gateway) (*models.Royalty, error) {
	if !gateway.IsProvider() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gateway required")
	}

	royalty, err := s.repo.FindByID(ctx, royaltyID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load royalty")
	}
	if royalty == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "royalty not found")
	}
	switch royalty.Status {
	case enums.RoyaltyStatusPendente, enums.RoyaltyStatusLinkGerado:
	default:
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot generate link for a %s charge", royalty.Status))
	}
	if royalty.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "charge amount must be positive")
	}

	active, err := s.configs.IsActive(ctx, royalty.EstablishmentID, gateway)
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("gateway %s is not active for this establishment", gateway))
	}

	client, err := s.clients.For(gateway)
	if err != nil {
		return nil, err
	}

	timeout := s.cfg.LinkTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	handle, err := client.CreateCharge(callCtx, gateways.CreateChargeInput{
		RoyaltyID:         royalty.ID,
		EstablishmentID:   royalty.EstablishmentID,
		AmountCents:       royalty.AmountCents,
		Currency:          royalty.Currency,
		Description:       s.chargeDescription(royalty),
		DueDate:           royalty.DueDate,
		BillingEmail:      royalty.BillingEmail,
		ExternalReference: gateways.FormatReference(gateway, royalty.ID),
	})
	if err != nil {
		if callCtx.Err() == context.DeadlineExceeded {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "gateway call timed out")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "gateway rejected charge")
	}
	if handle == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "gateway returned no charge handle")
	}

	royalty.Status = enums.RoyaltyStatusLinkGerado
	royalty.PaymentMethod = gateway
	royalty.ExternalPaymentID = optional(handle.ExternalPaymentID)
	royalty.PaymentLinkID = optional(handle.PaymentLinkID)
	royalty.PriceID = optional(handle.PriceID)
	royalty.BoletoID = optional(handle.BoletoID)
	royalty.InvoiceURL = optional(handle.InvoiceURL)

	responsePayload, _ := json.Marshal(handle)

	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).UpdateLinkHandles(ctx, royalty); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist link handles")
		}
		if err := s.logRepo.WithTx(tx).Append(ctx, &models.PaymentLog{
			RoyaltyID:       royalty.ID,
			EstablishmentID: royalty.EstablishmentID,
			Gateway:         gateway,
			Action:          enums.PaymentLogActionLinkGerado,
			Status:          enums.RoyaltyStatusLinkGerado,
			ResponsePayload: responsePayload,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append payment log")
		}
		if s.outbox == nil {
			return nil
		}
		invoiceURL := ""
		if royalty.InvoiceURL != nil {
			invoiceURL = *royalty.InvoiceURL
		}
		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventRoyaltyLinkGenerated,
			AggregateType: enums.AggregateRoyalty,
			AggregateID:   royalty.ID,
			Data: outbox.RoyaltyLinkGeneratedEvent{
				RoyaltyID:       royalty.ID,
				EstablishmentID: royalty.EstablishmentID,
				Gateway:         gateway,
				AmountCents:     royalty.AmountCents,
				InvoiceURL:      invoiceURL,
				DueDate:         royalty.DueDate,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"royalty_id": royalty.ID.String(),
			"gateway":    gateway,
		})
		s.logg.Info(logCtx, "payment link generated")
	}
	return royalty, nil
}

func (s *Service) chargeDescription(royalty *models.Royalty) string {
	if royalty.Description != nil && *royalty.Description != "" {
		return *royalty.Description
	}
	return fmt.Sprintf("Royalties %s a %s",
		royalty.PeriodStart.Format("2006-01-02"), royalty.PeriodEnd.Format("2006-01-02"))
}

// Cancel is the manual operator cancellation. Terminal charges are
// rejected; webhook-driven cancellation goes through the engine instead.
func (s *Service) Cancel(ctx context.Context, royaltyID uuid.UUID, reason string) (*models.Royalty, error) {
	var canceled *models.Royalty

	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		royalty, err := repo.FindByIDForUpdate(ctx, royaltyID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load royalty")
		}
		if royalty == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "royalty not found")
		}
		if royalty.Status.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot cancel a %s charge", royalty.Status))
		}

		royalty.Status = enums.RoyaltyStatusCancelado
		if err := repo.UpdateReconciliation(ctx, royalty); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update royalty")
		}

		note := "canceled by operator"
		if reason != "" {
			note = fmt.Sprintf("canceled by operator: %s", reason)
		}
		if err := s.logRepo.WithTx(tx).Append(ctx, &models.PaymentLog{
			RoyaltyID:       royalty.ID,
			EstablishmentID: royalty.EstablishmentID,
			Gateway:         royalty.PaymentMethod,
			Action:          enums.PaymentLogActionManual,
			Status:          enums.RoyaltyStatusCancelado,
			Note:            &note,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append payment log")
		}

		if s.outbox != nil {
			if err := s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventRoyaltyCanceled,
				AggregateType: enums.AggregateRoyalty,
				AggregateID:   royalty.ID,
				Data: outbox.RoyaltyCanceledEvent{
					RoyaltyID:       royalty.ID,
					EstablishmentID: royalty.EstablishmentID,
					Gateway:         royalty.PaymentMethod,
					Reason:          reason,
				},
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue outbox event")
			}
		}

		canceled = royalty
		return nil
	})
	if err != nil {
		return nil, err
	}
	return canceled, nil
}

// Get returns the charge with its full audit trail.
func (s *Service) Get(ctx context.Context, royaltyID uuid.UUID) (*models.Royalty, []models.PaymentLog, error) {
	royalty, err := s.repo.FindByID(ctx, royaltyID)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load royalty")
	}
	if royalty == nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "royalty not found")
	}
	entries, err := s.logRepo.ListByRoyalty(ctx, royaltyID)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment log")
	}
	return royalty, entries, nil
}

// List returns charges filtered by establishment and status.
func (s *Service) List(ctx context.Context, params ListQuery) ([]models.Royalty, error) {
	royalties, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list royalties")
	}
	return royalties, nil
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
