package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/choppgest/choppgest-backend/internal/royalties"
	"github.com/choppgest/choppgest-backend/pkg/db/models"
	"github.com/choppgest/choppgest-backend/pkg/enums"
	pkgerrors "github.com/choppgest/choppgest-backend/pkg/errors"
	"github.com/choppgest/choppgest-backend/pkg/logger"
	"github.com/choppgest/choppgest-backend/pkg/types"
)

type stubRoyaltyService struct {
	created      *models.Royalty
	createInput  *royalties.CreateInput
	linkGateway  enums.Gateway
	linkErr      error
	cancelReason string
	cancelErr    error
	getRoyalty   *models.Royalty
	getLedger    []models.PaymentLog
	listQuery    *royalties.ListQuery
	listResult   []models.Royalty
}

func (s *stubRoyaltyService) Create(ctx context.Context, input royalties.CreateInput) (*models.Royalty, error) {
	s.createInput = &input
	if s.created != nil {
		return s.created, nil
	}
	return &models.Royalty{ID: uuid.New(), Status: enums.RoyaltyStatusPendente}, nil
}

func (s *stubRoyaltyService) GenerateLink(ctx context.Context, royaltyID uuid.UUID, gateway enums.Gateway) (*models.Royalty, error) {
	s.linkGateway = gateway
	if s.linkErr != nil {
		return nil, s.linkErr
	}
	return &models.Royalty{ID: royaltyID, Status: enums.RoyaltyStatusLinkGerado, PaymentMethod: gateway}, nil
}

func (s *stubRoyaltyService) Cancel(ctx context.Context, royaltyID uuid.UUID, reason string) (*models.Royalty, error) {
	s.cancelReason = reason
	if s.cancelErr != nil {
		return nil, s.cancelErr
	}
	return &models.Royalty{ID: royaltyID, Status: enums.RoyaltyStatusCancelado}, nil
}

func (s *stubRoyaltyService) Get(ctx context.Context, royaltyID uuid.UUID) (*models.Royalty, []models.PaymentLog, error) {
	if s.getRoyalty == nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "royalty not found")
	}
	return s.getRoyalty, s.getLedger, nil
}

func (s *stubRoyaltyService) List(ctx context.Context, query royalties.ListQuery) ([]models.Royalty, error) {
	s.listQuery = &query
	return s.listResult, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test"})
}

func routeWithParam(handler http.HandlerFunc, royaltyID string, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("royaltyId", royaltyID)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
	handler(w, req)
	return w
}

func TestRoyaltyCreateReturns201(t *testing.T) {
	svc := &stubRoyaltyService{}
	body := map[string]any{
		"establishment_id":    uuid.NewString(),
		"period_start":        "2026-02-01T00:00:00Z",
		"period_end":          "2026-02-28T00:00:00Z",
		"gross_revenue_cents": 707120,
		"due_date":            "2026-03-10T00:00:00Z",
	}
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/royalties", strings.NewReader(string(raw)))
	w := httptest.NewRecorder()

	RoyaltyCreate(svc, testLogger())(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if svc.createInput == nil {
		t.Fatal("service not called")
	}
	if svc.createInput.GrossRevenueCents != 707120 {
		t.Fatalf("gross revenue lost in decode: %d", svc.createInput.GrossRevenueCents)
	}
}

func TestRoyaltyCreateRejectsMissingFields(t *testing.T) {
	svc := &stubRoyaltyService{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/royalties", strings.NewReader(`{}`))
	w := httptest.NewRecorder()

	RoyaltyCreate(svc, testLogger())(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if svc.createInput != nil {
		t.Fatal("service must not be called on invalid body")
	}
}

func TestRoyaltyGenerateLinkParsesGateway(t *testing.T) {
	svc := &stubRoyaltyService{}
	royaltyID := uuid.NewString()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/royalties/"+royaltyID+"/link", strings.NewReader(`{"gateway":"mercadopago"}`))

	w := routeWithParam(RoyaltyGenerateLink(svc, testLogger()), royaltyID, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if svc.linkGateway != enums.GatewayMercadoPago {
		t.Fatalf("expected mercadopago, got %s", svc.linkGateway)
	}
}

func TestRoyaltyGenerateLinkRejectsUnknownGateway(t *testing.T) {
	svc := &stubRoyaltyService{}
	royaltyID := uuid.NewString()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/royalties/"+royaltyID+"/link", strings.NewReader(`{"gateway":"paypal"}`))

	w := routeWithParam(RoyaltyGenerateLink(svc, testLogger()), royaltyID, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestRoyaltyCancelMapsStateConflictTo422(t *testing.T) {
	svc := &stubRoyaltyService{cancelErr: pkgerrors.New(pkgerrors.CodeStateConflict, "charge already pago")}
	royaltyID := uuid.NewString()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/royalties/"+royaltyID+"/cancel", strings.NewReader(`{"reason":"duplicated charge"}`))
	req.ContentLength = int64(len(`{"reason":"duplicated charge"}`))

	w := routeWithParam(RoyaltyCancel(svc, testLogger()), royaltyID, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", w.Code)
	}
	if svc.cancelReason != "duplicated charge" {
		t.Fatalf("reason not forwarded: %q", svc.cancelReason)
	}
}

func TestRoyaltyCancelRejectsMalformedID(t *testing.T) {
	svc := &stubRoyaltyService{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/royalties/not-a-uuid/cancel", nil)

	w := routeWithParam(RoyaltyCancel(svc, testLogger()), "not-a-uuid", req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestRoyaltyListParsesFilters(t *testing.T) {
	svc := &stubRoyaltyService{listResult: []models.Royalty{}}
	establishmentID := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/royalties?establishment_id="+establishmentID+"&status=pago&limit=10", nil)
	w := httptest.NewRecorder()

	RoyaltyList(svc, testLogger())(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if svc.listQuery == nil {
		t.Fatal("service not called")
	}
	if svc.listQuery.EstablishmentID == nil || svc.listQuery.EstablishmentID.String() != establishmentID {
		t.Fatal("establishment filter lost")
	}
	if svc.listQuery.Status == nil || *svc.listQuery.Status != enums.RoyaltyStatusPago {
		t.Fatal("status filter lost")
	}
	if svc.listQuery.Limit != 10 {
		t.Fatalf("limit lost: %d", svc.listQuery.Limit)
	}
}

func TestRoyaltyDetailIncludesLedger(t *testing.T) {
	royaltyID := uuid.New()
	paidAt := time.Date(2026, 2, 20, 12, 0, 0, 0, time.UTC)
	svc := &stubRoyaltyService{
		getRoyalty: &models.Royalty{ID: royaltyID, Status: enums.RoyaltyStatusPago, PaidAt: &paidAt},
		getLedger: []models.PaymentLog{
			{RoyaltyID: royaltyID, Action: enums.PaymentLogActionWebhook, Status: enums.RoyaltyStatusPago},
		},
	}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/royalties/"+royaltyID.String(), nil)

	w := routeWithParam(RoyaltyDetail(svc, testLogger()), royaltyID.String(), req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var envelope types.SuccessEnvelope
	if err := json.NewDecoder(w.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	data, ok := envelope.Data.(map[string]any)
	if !ok {
		t.Fatalf("unexpected payload shape %T", envelope.Data)
	}
	if _, ok := data["payment_log"]; !ok {
		t.Fatal("payment log missing from detail response")
	}
}

func TestRoyaltyDetailNotFound(t *testing.T) {
	svc := &stubRoyaltyService{}
	royaltyID := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/royalties/"+royaltyID, nil)

	w := routeWithParam(RoyaltyDetail(svc, testLogger()), royaltyID, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}
