package gateways

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/choppgest/choppgest-backend/pkg/config"
	"github.com/choppgest/choppgest-backend/pkg/enums"
	pkgerrors "github.com/choppgest/choppgest-backend/pkg/errors"
	"github.com/choppgest/choppgest-backend/pkg/logger"
)

func newRESTClientForTest(t *testing.T, gateway enums.Gateway, serverURL string) *RESTClient {
	t.Helper()
	client, err := NewRESTClient(gateway, config.GatewayClientConfig{
		BaseURL: serverURL,
		APIKey:  "test-key",
	}, 5*time.Second, logger.New(logger.Options{ServiceName: "test"}))
	if err != nil {
		t.Fatalf("NewRESTClient: %v", err)
	}
	return client
}

func TestRESTClientCreateChargeAsaas(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/payments" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("access_token")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":          "pay_123",
			"invoiceUrl":  "https://asaas.test/i/pay_123",
			"bankSlipUrl": "https://asaas.test/b/pay_123",
		})
	}))
	defer server.Close()

	client := newRESTClientForTest(t, enums.GatewayAsaas, server.URL)
	reference := FormatReference(enums.GatewayAsaas, uuid.New())
	handle, err := client.CreateCharge(context.Background(), CreateChargeInput{
		AmountCents:       49498,
		Currency:          "brl",
		Description:       "Royalties fevereiro",
		DueDate:           time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		ExternalReference: reference,
	})
	if err != nil {
		t.Fatalf("CreateCharge: %v", err)
	}
	if gotAuth != "test-key" {
		t.Fatalf("expected access_token header, got %q", gotAuth)
	}
	if gotBody["externalReference"] != reference {
		t.Fatalf("external reference not forwarded: %v", gotBody["externalReference"])
	}
	if gotBody["value"] != 494.98 {
		t.Fatalf("expected value 494.98, got %v", gotBody["value"])
	}
	if handle.ExternalPaymentID != "pay_123" {
		t.Fatalf("unexpected handle %+v", handle)
	}
	if handle.InvoiceURL != "https://asaas.test/i/pay_123" {
		t.Fatalf("invoice url missing: %+v", handle)
	}
}

func TestRESTClientFetchPaymentDetailsStripe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/checkout/sessions/cs_test_1" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Fatalf("missing bearer auth")
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":             "cs_test_1",
			"status":         "complete",
			"payment_status": "paid",
		})
	}))
	defer server.Close()

	client := newRESTClientForTest(t, enums.GatewayStripe, server.URL)
	details, err := client.FetchPaymentDetails(context.Background(), "cs_test_1")
	if err != nil {
		t.Fatalf("FetchPaymentDetails: %v", err)
	}
	if details.NativeStatus != "paid" {
		t.Fatalf("expected payment_status to win, got %q", details.NativeStatus)
	}
}

func TestRESTClientMapsProviderErrorToDependency(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_request"}`, http.StatusBadRequest)
	}))
	defer server.Close()

	client := newRESTClientForTest(t, enums.GatewayMercadoPago, server.URL)
	_, err := client.FetchPaymentDetails(context.Background(), "42")
	if err == nil {
		t.Fatal("expected error")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestNewRESTClientRejectsMissingCredentials(t *testing.T) {
	_, err := NewRESTClient(enums.GatewayCora, config.GatewayClientConfig{BaseURL: "https://example.test"}, 0, nil)
	if err == nil {
		t.Fatal("expected error for missing api key")
	}
}

func TestNewClientsFromConfigSkipsUnconfiguredProviders(t *testing.T) {
	cfg := config.GatewaysConfig{
		StripeBaseURL: "https://api.stripe.test",
		StripeAPIKey:  "sk_test",
		AsaasBaseURL:  "https://api.asaas.test",
	}
	clients, err := NewClientsFromConfig(cfg, logger.New(logger.Options{ServiceName: "test"}))
	if err != nil {
		t.Fatalf("NewClientsFromConfig: %v", err)
	}
	if _, ok := clients[enums.GatewayStripe]; !ok {
		t.Fatal("stripe should be wired")
	}
	if _, ok := clients[enums.GatewayAsaas]; ok {
		t.Fatal("asaas has no key and must be skipped")
	}
}
