package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/choppgest/choppgest-backend/internal/gateways"
	"github.com/choppgest/choppgest-backend/internal/paymentlog"
	"github.com/choppgest/choppgest-backend/internal/royalties"
	"github.com/choppgest/choppgest-backend/pkg/db/models"
	"github.com/choppgest/choppgest-backend/pkg/enums"
	pkgerrors "github.com/choppgest/choppgest-backend/pkg/errors"
	"github.com/choppgest/choppgest-backend/pkg/logger"
	"github.com/choppgest/choppgest-backend/pkg/outbox"
)

// Clock abstracts time so tests can pin paid_at.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// SystemClock returns the wall clock.
func SystemClock() Clock { return systemClock{} }

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Input is one gateway-sourced fact about a charge, either from a
// webhook delivery or from a cron poll of the provider.
type Input struct {
	RoyaltyID         uuid.UUID
	Gateway           enums.Gateway
	NativeStatus      string
	ExternalPaymentID string
	EventID           string
	PaidAt            *time.Time
	Action            enums.PaymentLogAction
	RawPayload        json.RawMessage
	SourceIP          *string
	UserAgent         *string
}

// Outcome reports what the engine decided.
type Outcome struct {
	Changed  bool
	Ignored  bool
	Previous enums.RoyaltyStatus
	Current  enums.RoyaltyStatus
}

type EngineParams struct {
	RoyaltyRepo       royalties.Repository
	PaymentLogRepo    paymentlog.Repository
	Outbox            *outbox.Service
	TransactionRunner txRunner
	Clock             Clock
	Logger            *logger.Logger
}

// Engine applies gateway facts to the charge lifecycle. All decisions
// happen inside one transaction under a row lock on the charge, so
// near-simultaneous deliveries for the same charge serialize.
type Engine struct {
	royaltyRepo royalties.Repository
	logRepo     paymentlog.Repository
	outboxSvc   *outbox.Service
	txRunner    txRunner
	clock       Clock
	logg        *logger.Logger
}

func NewEngine(params EngineParams) (*Engine, error) {
	if params.RoyaltyRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "royalty repo required")
	}
	if params.PaymentLogRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment log repo required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	clock := params.Clock
	if clock == nil {
		clock = SystemClock()
	}
	return &Engine{
		royaltyRepo: params.RoyaltyRepo,
		logRepo:     params.PaymentLogRepo,
		outboxSvc:   params.Outbox,
		txRunner:    params.TransactionRunner,
		clock:       clock,
		logg:        params.Logger,
	}, nil
}

// Reconcile maps the native status to the canonical lifecycle and
// applies the transition atomically. Terminal charges are sticky: a
// conflicting event is logged and ignored, never an error.
func (e *Engine) Reconcile(ctx context.Context, input Input) (*Outcome, error) {
	if input.RoyaltyID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "royalty id required")
	}
	if !input.Gateway.IsProvider() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gateway required")
	}
	if !input.Action.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment log action required")
	}

	canonical := gateways.MapStatus(input.Gateway, input.NativeStatus)
	outcome := &Outcome{}

	err := e.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := e.royaltyRepo.WithTx(tx)
		logs := e.logRepo.WithTx(tx)

		royalty, err := repo.FindByIDForUpdate(ctx, input.RoyaltyID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load royalty")
		}
		if royalty == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "royalty not found")
		}

		outcome.Previous = royalty.Status
		outcome.Current = royalty.Status

		if royalty.Status.IsTerminal() {
			outcome.Ignored = true
			note := fmt.Sprintf("event %s ignored: charge already %s, native status %q",
				input.EventID, royalty.Status, input.NativeStatus)
			return logs.Append(ctx, e.buildLogEntry(royalty, input, royalty.Status, &note))
		}

		changed := royalty.Status != canonical
		royalty.Status = canonical
		nativeStatus := input.NativeStatus
		royalty.PaymentStatus = &nativeStatus
		royalty.PaymentMethod = input.Gateway

		if canonical == enums.RoyaltyStatusPago && royalty.PaidAt == nil {
			paidAt := e.clock.Now().UTC()
			if input.PaidAt != nil {
				paidAt = input.PaidAt.UTC()
			}
			royalty.PaidAt = &paidAt
			paymentDate := paidAt.Truncate(24 * time.Hour)
			royalty.PaymentDate = &paymentDate
		}

		if err := repo.UpdateReconciliation(ctx, royalty); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update royalty")
		}
		if err := logs.Append(ctx, e.buildLogEntry(royalty, input, canonical, nil)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append payment log")
		}
		if changed {
			if err := e.emitTransitionEvent(ctx, tx, royalty); err != nil {
				return err
			}
		}

		outcome.Changed = changed
		outcome.Current = canonical
		return nil
	})
	if err != nil {
		return nil, err
	}

	if e.logg != nil {
		logCtx := e.logg.WithFields(ctx, map[string]any{
			"gateway":    input.Gateway,
			"royalty_id": input.RoyaltyID.String(),
			"event_id":   input.EventID,
			"previous":   outcome.Previous,
			"current":    outcome.Current,
			"changed":    outcome.Changed,
		})
		e.logg.Info(logCtx, "royalty reconciled")
	}
	return outcome, nil
}

func (e *Engine) buildLogEntry(royalty *models.Royalty, input Input, status enums.RoyaltyStatus, note *string) *models.PaymentLog {
	return &models.PaymentLog{
		RoyaltyID:       royalty.ID,
		EstablishmentID: royalty.EstablishmentID,
		Gateway:         input.Gateway,
		Action:          input.Action,
		Status:          status,
		RequestPayload:  input.RawPayload,
		SourceIP:        input.SourceIP,
		UserAgent:       input.UserAgent,
		Note:            note,
	}
}

func (e *Engine) emitTransitionEvent(ctx context.Context, tx *gorm.DB, royalty *models.Royalty) error {
	if e.outboxSvc == nil {
		return nil
	}

	var event *outbox.DomainEvent
	switch royalty.Status {
	case enums.RoyaltyStatusPago:
		paidAt := e.clock.Now().UTC()
		if royalty.PaidAt != nil {
			paidAt = *royalty.PaidAt
		}
		event = &outbox.DomainEvent{
			EventType:     enums.EventRoyaltyPaid,
			AggregateType: enums.AggregateRoyalty,
			AggregateID:   royalty.ID,
			Data: outbox.RoyaltyPaidEvent{
				RoyaltyID:       royalty.ID,
				EstablishmentID: royalty.EstablishmentID,
				Gateway:         royalty.PaymentMethod,
				AmountCents:     royalty.AmountCents,
				PaidAt:          paidAt,
			},
		}
	case enums.RoyaltyStatusCancelado:
		event = &outbox.DomainEvent{
			EventType:     enums.EventRoyaltyCanceled,
			AggregateType: enums.AggregateRoyalty,
			AggregateID:   royalty.ID,
			Data: outbox.RoyaltyCanceledEvent{
				RoyaltyID:       royalty.ID,
				EstablishmentID: royalty.EstablishmentID,
				Gateway:         royalty.PaymentMethod,
			},
		}
	case enums.RoyaltyStatusEnviado:
		event = &outbox.DomainEvent{
			EventType:     enums.EventRoyaltyOverdue,
			AggregateType: enums.AggregateRoyalty,
			AggregateID:   royalty.ID,
			Data: outbox.RoyaltyOverdueEvent{
				RoyaltyID:       royalty.ID,
				EstablishmentID: royalty.EstablishmentID,
				DueDate:         royalty.DueDate,
				AmountCents:     royalty.AmountCents,
			},
		}
	}
	if event == nil {
		return nil
	}
	if err := e.outboxSvc.EmitIfNotExists(ctx, tx, *event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue outbox event")
	}
	return nil
}
