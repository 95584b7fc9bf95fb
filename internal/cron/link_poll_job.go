package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/choppgest/choppgest-backend/internal/gateways"
	"github.com/choppgest/choppgest-backend/internal/reconcile"
	"github.com/choppgest/choppgest-backend/pkg/db/models"
	"github.com/choppgest/choppgest-backend/pkg/enums"
	"github.com/choppgest/choppgest-backend/pkg/logger"
)

const (
	defaultStaleLinkAge   = 6 * time.Hour
	defaultLinkPollBatch  = 100
	defaultFetchTimeout   = 15 * time.Second
	linkPollEventTemplate = "poll:%s:%s"
)

type staleLinkReader interface {
	ListStaleLinks(ctx context.Context, olderThan time.Time, limit int) ([]models.Royalty, error)
}

type reconciler interface {
	Reconcile(ctx context.Context, input reconcile.Input) (*reconcile.Outcome, error)
}

// LinkPollJobParams configure the stale payment link poll.
type LinkPollJobParams struct {
	Logger       *logger.Logger
	RoyaltyRepo  staleLinkReader
	Engine       reconciler
	Clients      gateways.Clients
	StaleAge     time.Duration
	Batch        int
	FetchTimeout time.Duration
	Now          func() time.Time
}

// NewLinkPollJob builds the job that asks each provider for the current
// state of charges whose link went quiet. Whatever the provider reports
// flows through the same reconciliation path webhooks use, so a missed
// delivery heals on the next cycle.
func NewLinkPollJob(params LinkPollJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.RoyaltyRepo == nil {
		return nil, fmt.Errorf("royalty repository required")
	}
	if params.Engine == nil {
		return nil, fmt.Errorf("reconcile engine required")
	}
	if params.Clients == nil {
		return nil, fmt.Errorf("gateway clients required")
	}
	staleAge := params.StaleAge
	if staleAge <= 0 {
		staleAge = defaultStaleLinkAge
	}
	batch := params.Batch
	if batch <= 0 {
		batch = defaultLinkPollBatch
	}
	fetchTimeout := params.FetchTimeout
	if fetchTimeout <= 0 {
		fetchTimeout = defaultFetchTimeout
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &linkPollJob{
		logg:         params.Logger,
		royaltyRepo:  params.RoyaltyRepo,
		engine:       params.Engine,
		clients:      params.Clients,
		staleAge:     staleAge,
		batch:        batch,
		fetchTimeout: fetchTimeout,
		now:          now,
	}, nil
}

type linkPollJob struct {
	logg         *logger.Logger
	royaltyRepo  staleLinkReader
	engine       reconciler
	clients      gateways.Clients
	staleAge     time.Duration
	batch        int
	fetchTimeout time.Duration
	now          func() time.Time
}

func (j *linkPollJob) Name() string { return "royalty-link-poll" }

func (j *linkPollJob) Run(ctx context.Context) error {
	olderThan := j.now().UTC().Add(-j.staleAge)
	stale, err := j.royaltyRepo.ListStaleLinks(ctx, olderThan, j.batch)
	if err != nil {
		return fmt.Errorf("list stale links: %w", err)
	}

	var errs error
	polled := 0
	settled := 0
	for i := range stale {
		changed, err := j.pollRoyalty(ctx, &stale[i])
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		polled++
		if changed {
			settled++
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"candidates": len(stale),
		"polled":     polled,
		"settled":    settled,
	})
	j.logg.Info(logCtx, "stale link poll complete")
	return errs
}

func (j *linkPollJob) pollRoyalty(ctx context.Context, royalty *models.Royalty) (bool, error) {
	if royalty.ExternalPaymentID == nil || *royalty.ExternalPaymentID == "" {
		return false, nil
	}
	client, err := j.clients.For(royalty.PaymentMethod)
	if err != nil {
		return false, fmt.Errorf("resolve client for %s: %w", royalty.ID, err)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, j.fetchTimeout)
	defer cancel()
	details, err := client.FetchPaymentDetails(fetchCtx, *royalty.ExternalPaymentID)
	if err != nil {
		return false, fmt.Errorf("fetch payment details for %s: %w", royalty.ID, err)
	}
	if details == nil || details.NativeStatus == "" {
		return false, nil
	}

	outcome, err := j.engine.Reconcile(ctx, reconcile.Input{
		RoyaltyID:         royalty.ID,
		Gateway:           royalty.PaymentMethod,
		NativeStatus:      details.NativeStatus,
		ExternalPaymentID: details.ExternalPaymentID,
		EventID:           fmt.Sprintf(linkPollEventTemplate, royalty.PaymentMethod, *royalty.ExternalPaymentID),
		PaidAt:            details.PaidAt,
		Action:            enums.PaymentLogActionCron,
	})
	if err != nil {
		return false, fmt.Errorf("reconcile %s: %w", royalty.ID, err)
	}
	return outcome.Changed, nil
}
