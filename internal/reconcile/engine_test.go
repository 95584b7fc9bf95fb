package reconcile

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/choppgest/choppgest-backend/internal/paymentlog"
	"github.com/choppgest/choppgest-backend/internal/royalties"
	"github.com/choppgest/choppgest-backend/pkg/db/models"
	"github.com/choppgest/choppgest-backend/pkg/enums"
	pkgerrors "github.com/choppgest/choppgest-backend/pkg/errors"
)

func newTestEngine(t *testing.T, royalty *models.Royalty, clock Clock) (*Engine, *stubRoyaltyRepo, *stubPaymentLogRepo) {
	t.Helper()

	royaltyRepo := &stubRoyaltyRepo{royalty: royalty}
	logRepo := &stubPaymentLogRepo{}
	engine, err := NewEngine(EngineParams{
		RoyaltyRepo:       royaltyRepo,
		PaymentLogRepo:    logRepo,
		TransactionRunner: &stubTxRunner{},
		Clock:             clock,
	})
	if err != nil {
		t.Fatalf("setup engine: %v", err)
	}
	return engine, royaltyRepo, logRepo
}

func TestEngine_ApprovedWebhookMarksPaid(t *testing.T) {
	now := time.Date(2026, 8, 28, 13, 0, 0, 0, time.UTC)
	royalty := &models.Royalty{
		ID:              uuid.New(),
		EstablishmentID: uuid.New(),
		AmountCents:     49498,
		Status:          enums.RoyaltyStatusLinkGerado,
	}
	engine, royaltyRepo, logRepo := newTestEngine(t, royalty, fixedClock{now})

	outcome, err := engine.Reconcile(context.Background(), Input{
		RoyaltyID:    royalty.ID,
		Gateway:      enums.GatewayMercadoPago,
		NativeStatus: "approved",
		EventID:      "evt_1",
		Action:       enums.PaymentLogActionWebhook,
		RawPayload:   json.RawMessage(`{"status":"approved"}`),
	})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if !outcome.Changed || outcome.Current != enums.RoyaltyStatusPago {
		t.Fatalf("outcome: %+v", outcome)
	}
	if outcome.Previous != enums.RoyaltyStatusLinkGerado {
		t.Fatalf("previous: %s", outcome.Previous)
	}

	updated := royaltyRepo.updated
	if updated == nil || updated.Status != enums.RoyaltyStatusPago {
		t.Fatalf("royalty not updated to pago")
	}
	if updated.PaidAt == nil || !updated.PaidAt.Equal(now) {
		t.Fatalf("paid_at: %v", updated.PaidAt)
	}
	if updated.PaymentDate == nil {
		t.Fatalf("payment_date not set")
	}
	if updated.PaymentStatus == nil || *updated.PaymentStatus != "approved" {
		t.Fatalf("native status not kept verbatim")
	}
	if updated.PaymentMethod != enums.GatewayMercadoPago {
		t.Fatalf("payment method: %s", updated.PaymentMethod)
	}

	if len(logRepo.entries) != 1 {
		t.Fatalf("expected one log entry, got %d", len(logRepo.entries))
	}
	entry := logRepo.entries[0]
	if entry.Action != enums.PaymentLogActionWebhook || entry.Status != enums.RoyaltyStatusPago {
		t.Fatalf("log entry: %+v", entry)
	}
}

func TestEngine_GatewayTimestampWinsOverClock(t *testing.T) {
	gatewayTime := time.Date(2026, 8, 27, 9, 30, 0, 0, time.UTC)
	royalty := &models.Royalty{
		ID:              uuid.New(),
		EstablishmentID: uuid.New(),
		Status:          enums.RoyaltyStatusEnviado,
	}
	engine, royaltyRepo, _ := newTestEngine(t, royalty, fixedClock{time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)})

	if _, err := engine.Reconcile(context.Background(), Input{
		RoyaltyID:    royalty.ID,
		Gateway:      enums.GatewayAsaas,
		NativeStatus: "RECEIVED",
		EventID:      "evt_asaas",
		PaidAt:       &gatewayTime,
		Action:       enums.PaymentLogActionWebhook,
	}); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if royaltyRepo.updated.PaidAt == nil || !royaltyRepo.updated.PaidAt.Equal(gatewayTime) {
		t.Fatalf("paid_at should come from the gateway: %v", royaltyRepo.updated.PaidAt)
	}
}

func TestEngine_TerminalChargeIgnoresConflictingEvent(t *testing.T) {
	royalty := &models.Royalty{
		ID:              uuid.New(),
		EstablishmentID: uuid.New(),
		Status:          enums.RoyaltyStatusPago,
	}
	engine, royaltyRepo, logRepo := newTestEngine(t, royalty, nil)

	outcome, err := engine.Reconcile(context.Background(), Input{
		RoyaltyID:    royalty.ID,
		Gateway:      enums.GatewayAsaas,
		NativeStatus: "OVERDUE",
		EventID:      "evt_conflict",
		Action:       enums.PaymentLogActionWebhook,
	})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if outcome.Changed || !outcome.Ignored {
		t.Fatalf("outcome: %+v", outcome)
	}
	if outcome.Current != enums.RoyaltyStatusPago {
		t.Fatalf("charge left pago: %s", outcome.Current)
	}
	if royaltyRepo.updated != nil {
		t.Fatalf("terminal charge must not be written")
	}
	if len(logRepo.entries) != 1 || logRepo.entries[0].Note == nil {
		t.Fatalf("conflicting event must be logged with a note")
	}
}

func TestEngine_CanceledIsStickyToo(t *testing.T) {
	royalty := &models.Royalty{
		ID:              uuid.New(),
		EstablishmentID: uuid.New(),
		Status:          enums.RoyaltyStatusCancelado,
	}
	engine, royaltyRepo, _ := newTestEngine(t, royalty, nil)

	outcome, err := engine.Reconcile(context.Background(), Input{
		RoyaltyID:    royalty.ID,
		Gateway:      enums.GatewayStripe,
		NativeStatus: "paid",
		EventID:      "evt_late_pay",
		Action:       enums.PaymentLogActionWebhook,
	})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if !outcome.Ignored || royaltyRepo.updated != nil {
		t.Fatalf("cancelado must be sticky")
	}
}

func TestEngine_UnknownStatusStaysConservative(t *testing.T) {
	royalty := &models.Royalty{
		ID:              uuid.New(),
		EstablishmentID: uuid.New(),
		Status:          enums.RoyaltyStatusPendente,
	}
	engine, royaltyRepo, _ := newTestEngine(t, royalty, nil)

	outcome, err := engine.Reconcile(context.Background(), Input{
		RoyaltyID:    royalty.ID,
		Gateway:      enums.GatewayCora,
		NativeStatus: "SOME_NEW_STATE",
		EventID:      "evt_unknown",
		Action:       enums.PaymentLogActionWebhook,
	})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if outcome.Changed {
		t.Fatalf("unknown status must not change the charge")
	}
	if royaltyRepo.updated != nil && royaltyRepo.updated.Status != enums.RoyaltyStatusPendente {
		t.Fatalf("unknown status advanced the charge: %s", royaltyRepo.updated.Status)
	}
}

func TestEngine_UnknownRoyaltyIsNotFound(t *testing.T) {
	engine, _, logRepo := newTestEngine(t, nil, nil)

	_, err := engine.Reconcile(context.Background(), Input{
		RoyaltyID:    uuid.New(),
		Gateway:      enums.GatewayStripe,
		NativeStatus: "paid",
		EventID:      "evt_orphan",
		Action:       enums.PaymentLogActionWebhook,
	})
	coded := pkgerrors.As(err)
	if coded == nil || coded.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	if len(logRepo.entries) != 0 {
		t.Fatalf("no log entry for unknown charge")
	}
}

func TestEngine_RejectsInvalidInput(t *testing.T) {
	engine, _, _ := newTestEngine(t, nil, nil)

	if _, err := engine.Reconcile(context.Background(), Input{
		Gateway:      enums.GatewayStripe,
		NativeStatus: "paid",
		Action:       enums.PaymentLogActionWebhook,
	}); err == nil {
		t.Fatalf("missing royalty id accepted")
	}
	if _, err := engine.Reconcile(context.Background(), Input{
		RoyaltyID:    uuid.New(),
		Gateway:      enums.GatewayNone,
		NativeStatus: "paid",
		Action:       enums.PaymentLogActionWebhook,
	}); err == nil {
		t.Fatalf("gateway none accepted")
	}
}

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

type stubTxRunner struct{}

func (s *stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubRoyaltyRepo struct {
	royalty *models.Royalty
	updated *models.Royalty
}

func (s *stubRoyaltyRepo) WithTx(tx *gorm.DB) royalties.Repository { return s }

func (s *stubRoyaltyRepo) Create(ctx context.Context, royalty *models.Royalty) error { return nil }

func (s *stubRoyaltyRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Royalty, error) {
	return s.royalty, nil
}

func (s *stubRoyaltyRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Royalty, error) {
	return s.royalty, nil
}

func (s *stubRoyaltyRepo) FindByExternalPaymentID(ctx context.Context, gateway enums.Gateway, externalPaymentID string) (*models.Royalty, error) {
	return nil, nil
}

func (s *stubRoyaltyRepo) List(ctx context.Context, params royalties.ListQuery) ([]models.Royalty, error) {
	return nil, nil
}

func (s *stubRoyaltyRepo) UpdateReconciliation(ctx context.Context, royalty *models.Royalty) error {
	copied := *royalty
	s.updated = &copied
	return nil
}

func (s *stubRoyaltyRepo) UpdateLinkHandles(ctx context.Context, royalty *models.Royalty) error {
	return nil
}

func (s *stubRoyaltyRepo) ListOverdue(ctx context.Context, asOf time.Time, limit int) ([]models.Royalty, error) {
	return nil, nil
}

func (s *stubRoyaltyRepo) ListStaleLinks(ctx context.Context, olderThan time.Time, limit int) ([]models.Royalty, error) {
	return nil, nil
}

type stubPaymentLogRepo struct {
	entries []*models.PaymentLog
}

func (s *stubPaymentLogRepo) WithTx(tx *gorm.DB) paymentlog.Repository { return s }

func (s *stubPaymentLogRepo) Append(ctx context.Context, entry *models.PaymentLog) error {
	s.entries = append(s.entries, entry)
	return nil
}

func (s *stubPaymentLogRepo) ListByRoyalty(ctx context.Context, royaltyID uuid.UUID) ([]models.PaymentLog, error) {
	out := make([]models.PaymentLog, 0, len(s.entries))
	for _, entry := range s.entries {
		out = append(out, *entry)
	}
	return out, nil
}

func (s *stubPaymentLogRepo) CountByRoyalty(ctx context.Context, royaltyID uuid.UUID) (int64, error) {
	return int64(len(s.entries)), nil
}
