package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/choppgest/choppgest-backend/internal/gateways"
	"github.com/choppgest/choppgest-backend/internal/reconcile"
	"github.com/choppgest/choppgest-backend/pkg/db/models"
	"github.com/choppgest/choppgest-backend/pkg/enums"
	"github.com/choppgest/choppgest-backend/pkg/logger"
)

func TestLinkPollJobFeedsProviderStateThroughReconcile(t *testing.T) {
	now := time.Date(2026, 3, 20, 9, 0, 0, 0, time.UTC)
	paidAt := now.Add(-time.Hour)
	externalID := "pay_abc"
	royalty := models.Royalty{
		ID:                uuid.New(),
		EstablishmentID:   uuid.New(),
		Status:            enums.RoyaltyStatusLinkGerado,
		PaymentMethod:     enums.GatewayMercadoPago,
		ExternalPaymentID: &externalID,
	}
	reader := &fakeStaleLinkReader{royalties: []models.Royalty{royalty}}
	client := &fakePollClient{details: &gateways.PaymentDetails{
		ExternalPaymentID: externalID,
		NativeStatus:      "approved",
		PaidAt:            &paidAt,
	}}
	engine := &fakeReconciler{outcome: &reconcile.Outcome{Changed: true, Current: enums.RoyaltyStatusPago}}
	job := newLinkPollJob(t, reader, engine, gateways.Clients{enums.GatewayMercadoPago: client})
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	expectedCutoff := now.Add(-defaultStaleLinkAge)
	if !reader.lastOlderThan.Equal(expectedCutoff) {
		t.Fatalf("expected cutoff %s, got %s", expectedCutoff, reader.lastOlderThan)
	}
	if client.calls != 1 {
		t.Fatalf("expected one provider fetch, got %d", client.calls)
	}
	if len(engine.inputs) != 1 {
		t.Fatalf("expected one reconcile call, got %d", len(engine.inputs))
	}
	input := engine.inputs[0]
	if input.RoyaltyID != royalty.ID {
		t.Fatalf("wrong royalty id")
	}
	if input.NativeStatus != "approved" {
		t.Fatalf("expected native status passthrough, got %q", input.NativeStatus)
	}
	if input.Action != enums.PaymentLogActionCron {
		t.Fatalf("expected cron provenance, got %s", input.Action)
	}
	if input.PaidAt == nil || !input.PaidAt.Equal(paidAt) {
		t.Fatalf("expected provider paid_at to ride along")
	}
	if input.EventID == "" {
		t.Fatal("expected a deterministic event id for dedup")
	}
}

func TestLinkPollJobSkipsChargesWithoutExternalID(t *testing.T) {
	reader := &fakeStaleLinkReader{royalties: []models.Royalty{{
		ID:            uuid.New(),
		Status:        enums.RoyaltyStatusLinkGerado,
		PaymentMethod: enums.GatewayStripe,
	}}}
	engine := &fakeReconciler{}
	job := newLinkPollJob(t, reader, engine, gateways.Clients{})

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(engine.inputs) != 0 {
		t.Fatal("charge without external id should not be polled")
	}
}

func TestLinkPollJobIgnoresEmptyProviderStatus(t *testing.T) {
	externalID := "pay_quiet"
	reader := &fakeStaleLinkReader{royalties: []models.Royalty{{
		ID:                uuid.New(),
		Status:            enums.RoyaltyStatusLinkGerado,
		PaymentMethod:     enums.GatewayCora,
		ExternalPaymentID: &externalID,
	}}}
	client := &fakePollClient{details: &gateways.PaymentDetails{ExternalPaymentID: externalID}}
	engine := &fakeReconciler{}
	job := newLinkPollJob(t, reader, engine, gateways.Clients{enums.GatewayCora: client})

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(engine.inputs) != 0 {
		t.Fatal("empty status must not touch the charge")
	}
}

func TestLinkPollJobAggregatesFetchFailures(t *testing.T) {
	failingID := "pay_fail"
	okID := "pay_ok"
	reader := &fakeStaleLinkReader{royalties: []models.Royalty{
		{ID: uuid.New(), Status: enums.RoyaltyStatusLinkGerado, PaymentMethod: enums.GatewayStripe, ExternalPaymentID: &failingID},
		{ID: uuid.New(), Status: enums.RoyaltyStatusLinkGerado, PaymentMethod: enums.GatewayAsaas, ExternalPaymentID: &okID},
	}}
	engine := &fakeReconciler{outcome: &reconcile.Outcome{}}
	clients := gateways.Clients{
		enums.GatewayStripe: &fakePollClient{err: errors.New("provider 500")},
		enums.GatewayAsaas:  &fakePollClient{details: &gateways.PaymentDetails{ExternalPaymentID: okID, NativeStatus: "PENDING"}},
	}
	job := newLinkPollJob(t, reader, engine, clients)

	err := job.Run(context.Background())
	if err == nil {
		t.Fatal("expected aggregated error")
	}
	if len(engine.inputs) != 1 {
		t.Fatalf("healthy provider should still be polled, got %d reconciles", len(engine.inputs))
	}
}

func newLinkPollJob(t *testing.T, reader *fakeStaleLinkReader, engine *fakeReconciler, clients gateways.Clients) *linkPollJob {
	t.Helper()
	jobIface, err := NewLinkPollJob(LinkPollJobParams{
		Logger:      logger.New(logger.Options{ServiceName: "test"}),
		RoyaltyRepo: reader,
		Engine:      engine,
		Clients:     clients,
	})
	if err != nil {
		t.Fatalf("NewLinkPollJob: %v", err)
	}
	job, ok := jobIface.(*linkPollJob)
	if !ok {
		t.Fatalf("expected linkPollJob, got %T", jobIface)
	}
	return job
}

type fakeStaleLinkReader struct {
	royalties     []models.Royalty
	lastOlderThan time.Time
	err           error
}

func (f *fakeStaleLinkReader) ListStaleLinks(ctx context.Context, olderThan time.Time, limit int) ([]models.Royalty, error) {
	f.lastOlderThan = olderThan
	if f.err != nil {
		return nil, f.err
	}
	return f.royalties, nil
}

type fakePollClient struct {
	details *gateways.PaymentDetails
	err     error
	calls   int
}

func (f *fakePollClient) CreateCharge(ctx context.Context, input gateways.CreateChargeInput) (*gateways.ChargeHandle, error) {
	return nil, errors.New("not implemented")
}

func (f *fakePollClient) FetchPaymentDetails(ctx context.Context, externalPaymentID string) (*gateways.PaymentDetails, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.details, nil
}

type fakeReconciler struct {
	inputs  []reconcile.Input
	outcome *reconcile.Outcome
	err     error
}

func (f *fakeReconciler) Reconcile(ctx context.Context, input reconcile.Input) (*reconcile.Outcome, error) {
	f.inputs = append(f.inputs, input)
	if f.err != nil {
		return nil, f.err
	}
	if f.outcome != nil {
		return f.outcome, nil
	}
	return &reconcile.Outcome{}, nil
}
