package gateways

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/choppgest/choppgest-backend/pkg/enums"
)

func TestStripeAdapter_VerifySignature(t *testing.T) {
	adapter := NewStripeAdapter()
	adapter.now = func() time.Time { return time.Unix(1756400060, 0) }
	payload := []byte(`{"id":"evt_1"}`)
	secret := "whsec_test"

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte("1756400000."))
	mac.Write(payload)
	signature := hex.EncodeToString(mac.Sum(nil))

	headers := http.Header{}
	headers.Set("Stripe-Signature", "t=1756400000,v1="+signature)
	if !adapter.VerifySignature(payload, headers, secret) {
		t.Fatalf("valid signature rejected")
	}

	headers.Set("Stripe-Signature", "t=1756400000,v1=deadbeef")
	if adapter.VerifySignature(payload, headers, secret) {
		t.Fatalf("tampered signature accepted")
	}

	if adapter.VerifySignature(payload, http.Header{}, secret) {
		t.Fatalf("missing header accepted")
	}
	if adapter.VerifySignature(payload, headers, "") {
		t.Fatalf("empty secret accepted")
	}
}

func TestStripeAdapter_VerifySignatureRejectsStaleTimestamp(t *testing.T) {
	adapter := NewStripeAdapter()
	payload := []byte(`{"id":"evt_1"}`)
	secret := "whsec_test"

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte("1756400000."))
	mac.Write(payload)
	signature := hex.EncodeToString(mac.Sum(nil))
	headers := http.Header{}
	headers.Set("Stripe-Signature", "t=1756400000,v1="+signature)

	// Captured delivery replayed an hour later: the MAC still checks
	// out but the timestamp is outside the window.
	adapter.now = func() time.Time { return time.Unix(1756400000, 0).Add(time.Hour) }
	if adapter.VerifySignature(payload, headers, secret) {
		t.Fatalf("stale signed payload accepted")
	}

	adapter.now = func() time.Time { return time.Unix(1756400000, 0).Add(-time.Hour) }
	if adapter.VerifySignature(payload, headers, secret) {
		t.Fatalf("future-dated signed payload accepted")
	}

	headers.Set("Stripe-Signature", "t=notanumber,v1="+signature)
	adapter.now = func() time.Time { return time.Unix(1756400000, 0) }
	if adapter.VerifySignature(payload, headers, secret) {
		t.Fatalf("unparseable timestamp accepted")
	}
}

func TestStripeAdapter_ParseEvent(t *testing.T) {
	adapter := NewStripeAdapter()
	royaltyID := uuid.New()
	payload := []byte(`{
		"id": "evt_123",
		"type": "checkout.session.completed",
		"created": 1756400000,
		"data": {"object": {
			"id": "cs_test_1",
			"status": "complete",
			"payment_status": "paid",
			"client_reference_id": "ROYALTY_` + royaltyID.String() + `"
		}}
	}`)

	event, err := adapter.ParseEvent(payload)
	if err != nil {
		t.Fatalf("parse event: %v", err)
	}
	if event.EventID != "evt_123" {
		t.Fatalf("event id: %s", event.EventID)
	}
	if event.ExternalPaymentID != "cs_test_1" {
		t.Fatalf("payment id: %s", event.ExternalPaymentID)
	}
	if event.NativeStatus != "paid" {
		t.Fatalf("native status: %s", event.NativeStatus)
	}
	if id, ok := ParseReference(event.ExternalReference); !ok || id != royaltyID {
		t.Fatalf("reference: %s", event.ExternalReference)
	}
	if event.PaidAt == nil || !event.PaidAt.Equal(time.Unix(1756400000, 0)) {
		t.Fatalf("paid at: %v", event.PaidAt)
	}
}

func TestStripeAdapter_ParseEventRejectsBadJSON(t *testing.T) {
	adapter := NewStripeAdapter()
	if _, err := adapter.ParseEvent([]byte("{not json")); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestMercadoPagoAdapter_VerifySignature(t *testing.T) {
	adapter := NewMercadoPagoAdapter()
	headers := http.Header{}
	headers.Set("X-Signature", "shared-token")

	if !adapter.VerifySignature(nil, headers, "shared-token") {
		t.Fatalf("valid token rejected")
	}
	if adapter.VerifySignature(nil, headers, "other-token") {
		t.Fatalf("wrong token accepted")
	}
	if adapter.VerifySignature(nil, http.Header{}, "shared-token") {
		t.Fatalf("missing header accepted")
	}
}

func TestMercadoPagoAdapter_ParseEvent(t *testing.T) {
	adapter := NewMercadoPagoAdapter()
	royaltyID := uuid.New()
	payload := []byte(`{
		"id": 987654,
		"action": "payment.updated",
		"type": "payment",
		"data": {
			"id": "pay_42",
			"status": "approved",
			"external_reference": "royalty_` + royaltyID.String() + `",
			"date_approved": "2026-08-28T13:05:00-03:00"
		}
	}`)

	event, err := adapter.ParseEvent(payload)
	if err != nil {
		t.Fatalf("parse event: %v", err)
	}
	if event.EventID != "987654" {
		t.Fatalf("event id: %s", event.EventID)
	}
	if event.NativeStatus != "approved" {
		t.Fatalf("native status: %s", event.NativeStatus)
	}
	if id, ok := ParseReference(event.ExternalReference); !ok || id != royaltyID {
		t.Fatalf("reference: %s", event.ExternalReference)
	}
	if event.PaidAt == nil {
		t.Fatalf("paid at missing")
	}
}

func TestMercadoPagoAdapter_ParseEventDerivesFingerprint(t *testing.T) {
	adapter := NewMercadoPagoAdapter()
	payload := []byte(`{"data":{"id":"pay_9","status":"pending"}}`)

	first, err := adapter.ParseEvent(payload)
	if err != nil {
		t.Fatalf("parse event: %v", err)
	}
	if first.EventID == "" {
		t.Fatalf("fingerprint not derived")
	}

	second, err := adapter.ParseEvent(payload)
	if err != nil {
		t.Fatalf("parse event: %v", err)
	}
	if first.EventID != second.EventID {
		t.Fatalf("fingerprint not stable: %s vs %s", first.EventID, second.EventID)
	}

	other, err := adapter.ParseEvent([]byte(`{"data":{"id":"pay_9","status":"approved"}}`))
	if err != nil {
		t.Fatalf("parse event: %v", err)
	}
	if other.EventID == first.EventID {
		t.Fatalf("different status produced the same fingerprint")
	}
}

func TestAsaasAdapter_VerifySignature(t *testing.T) {
	adapter := NewAsaasAdapter()
	headers := http.Header{}
	headers.Set("Asaas-Access-Token", "tok_abc")

	if !adapter.VerifySignature(nil, headers, "tok_abc") {
		t.Fatalf("valid token rejected")
	}
	if adapter.VerifySignature(nil, headers, "tok_xyz") {
		t.Fatalf("wrong token accepted")
	}
}

func TestAsaasAdapter_ParseEvent(t *testing.T) {
	adapter := NewAsaasAdapter()
	royaltyID := uuid.New()
	payload := []byte(`{
		"id": "evt_asaas_1",
		"event": "PAYMENT_RECEIVED",
		"payment": {
			"id": "pay_asaas_1",
			"status": "RECEIVED",
			"externalReference": "royalty_` + royaltyID.String() + `",
			"paymentDate": "2026-08-28"
		}
	}`)

	event, err := adapter.ParseEvent(payload)
	if err != nil {
		t.Fatalf("parse event: %v", err)
	}
	if event.EventID != "evt_asaas_1" {
		t.Fatalf("event id: %s", event.EventID)
	}
	if event.NativeStatus != "RECEIVED" {
		t.Fatalf("native status: %s", event.NativeStatus)
	}
	if id, ok := ParseReference(event.ExternalReference); !ok || id != royaltyID {
		t.Fatalf("reference: %s", event.ExternalReference)
	}
	if event.PaidAt == nil {
		t.Fatalf("payment date not parsed")
	}
}

func TestCoraAdapter_VerifySignature(t *testing.T) {
	adapter := NewCoraAdapter()
	payload := []byte(`{"event":"invoice.paid"}`)
	secret := "cora-secret"

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	signature := hex.EncodeToString(mac.Sum(nil))

	headers := http.Header{}
	headers.Set("X-Cora-Signature", signature)
	if !adapter.VerifySignature(payload, headers, secret) {
		t.Fatalf("valid signature rejected")
	}

	headers.Set("X-Cora-Signature", signature[:10])
	if adapter.VerifySignature(payload, headers, secret) {
		t.Fatalf("truncated signature accepted")
	}
}

func TestCoraAdapter_ParseEvent(t *testing.T) {
	adapter := NewCoraAdapter()
	royaltyID := uuid.New()
	payload := []byte(`{
		"id": "evt_cora_1",
		"event": "invoice.paid",
		"data": {
			"id": "inv_1",
			"status": "PAID",
			"code": "ROYALTY_` + royaltyID.String() + `",
			"paidAt": "2026-08-28T16:00:00Z"
		}
	}`)

	event, err := adapter.ParseEvent(payload)
	if err != nil {
		t.Fatalf("parse event: %v", err)
	}
	if event.NativeStatus != "PAID" {
		t.Fatalf("native status: %s", event.NativeStatus)
	}
	if id, ok := ParseReference(event.ExternalReference); !ok || id != royaltyID {
		t.Fatalf("reference: %s", event.ExternalReference)
	}
	if MapStatus(adapter.Gateway(), event.NativeStatus) != enums.RoyaltyStatusPago {
		t.Fatalf("PAID should map to pago")
	}
}
