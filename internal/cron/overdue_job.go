package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/choppgest/choppgest-backend/internal/paymentlog"
	"github.com/choppgest/choppgest-backend/pkg/db/models"
	"github.com/choppgest/choppgest-backend/pkg/enums"
	"github.com/choppgest/choppgest-backend/pkg/logger"
	"github.com/choppgest/choppgest-backend/pkg/outbox"
)

const defaultOverdueBatch = 100

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type overdueReader interface {
	ListOverdue(ctx context.Context, asOf time.Time, limit int) ([]models.Royalty, error)
}

type outboxEmitter interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// OverdueJobParams configure the overdue charge sweep.
type OverdueJobParams struct {
	Logger      *logger.Logger
	DB          txRunner
	RoyaltyRepo overdueReader
	LogRepo     paymentlog.Repository
	Outbox      outboxEmitter
	Batch       int
	Now         func() time.Time
}

// NewOverdueJob builds the job that flags charges still unpaid past
// their due date. It never advances the lifecycle: enviado comes only
// from gateway evidence, so the sweep records the fact in the ledger
// and queues a notification event.
func NewOverdueJob(params OverdueJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.RoyaltyRepo == nil {
		return nil, fmt.Errorf("royalty repository required")
	}
	if params.LogRepo == nil {
		return nil, fmt.Errorf("payment log repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	batch := params.Batch
	if batch <= 0 {
		batch = defaultOverdueBatch
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &overdueJob{
		logg:        params.Logger,
		db:          params.DB,
		royaltyRepo: params.RoyaltyRepo,
		logRepo:     params.LogRepo,
		outbox:      params.Outbox,
		batch:       batch,
		now:         now,
	}, nil
}

type overdueJob struct {
	logg        *logger.Logger
	db          txRunner
	royaltyRepo overdueReader
	logRepo     paymentlog.Repository
	outbox      outboxEmitter
	batch       int
	now         func() time.Time
}

func (j *overdueJob) Name() string { return "royalty-overdue" }

func (j *overdueJob) Run(ctx context.Context) error {
	asOf := j.now().UTC()
	overdue, err := j.royaltyRepo.ListOverdue(ctx, asOf, j.batch)
	if err != nil {
		return fmt.Errorf("list overdue royalties: %w", err)
	}

	var errs error
	flagged := 0
	for i := range overdue {
		if err := j.flagRoyalty(ctx, &overdue[i], asOf); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		flagged++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"candidates": len(overdue),
		"flagged":    flagged,
	})
	j.logg.Info(logCtx, "overdue sweep complete")
	return errs
}

func (j *overdueJob) flagRoyalty(ctx context.Context, royalty *models.Royalty, asOf time.Time) error {
	return j.db.WithTx(ctx, func(tx *gorm.DB) error {
		note := fmt.Sprintf("charge overdue since %s, still %s", royalty.DueDate.Format("2006-01-02"), royalty.Status)
		entry := &models.PaymentLog{
			RoyaltyID:       royalty.ID,
			EstablishmentID: royalty.EstablishmentID,
			Gateway:         royalty.PaymentMethod,
			Action:          enums.PaymentLogActionCron,
			Status:          royalty.Status,
			Note:            &note,
		}
		if err := j.logRepo.WithTx(tx).Append(ctx, entry); err != nil {
			return fmt.Errorf("append overdue log for %s: %w", royalty.ID, err)
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventRoyaltyOverdue,
			AggregateType: enums.AggregateRoyalty,
			AggregateID:   royalty.ID,
			OccurredAt:    asOf,
			Data: outbox.RoyaltyOverdueEvent{
				RoyaltyID:       royalty.ID,
				EstablishmentID: royalty.EstablishmentID,
				DueDate:         royalty.DueDate,
				AmountCents:     royalty.AmountCents,
			},
		}
		if err := j.outbox.EmitIfNotExists(ctx, tx, event); err != nil {
			return fmt.Errorf("queue overdue event for %s: %w", royalty.ID, err)
		}
		return nil
	})
}
