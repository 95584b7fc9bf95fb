package gateways

import (
	"testing"

	"github.com/choppgest/choppgest-backend/pkg/enums"
)

func TestMapStatus_MercadoPago(t *testing.T) {
	cases := map[string]enums.RoyaltyStatus{
		"approved":     enums.RoyaltyStatusPago,
		"accredited":   enums.RoyaltyStatusPago,
		"pending":      enums.RoyaltyStatusPendente,
		"in_process":   enums.RoyaltyStatusPendente,
		"in_mediation": enums.RoyaltyStatusPendente,
		"rejected":     enums.RoyaltyStatusCancelado,
		"cancelled":    enums.RoyaltyStatusCancelado,
		"refunded":     enums.RoyaltyStatusCancelado,
		"charged_back": enums.RoyaltyStatusCancelado,
	}
	for native, want := range cases {
		if got := MapStatus(enums.GatewayMercadoPago, native); got != want {
			t.Fatalf("mercadopago %q: got %s want %s", native, got, want)
		}
	}
}

func TestMapStatus_Asaas(t *testing.T) {
	cases := map[string]enums.RoyaltyStatus{
		"RECEIVED":               enums.RoyaltyStatusPago,
		"CONFIRMED":              enums.RoyaltyStatusPago,
		"RECEIVED_IN_CASH":       enums.RoyaltyStatusPago,
		"PENDING":                enums.RoyaltyStatusPendente,
		"AWAITING_RISK_ANALYSIS": enums.RoyaltyStatusPendente,
		"OVERDUE":                enums.RoyaltyStatusEnviado,
		"REFUNDED":               enums.RoyaltyStatusCancelado,
		"REFUND_REQUESTED":       enums.RoyaltyStatusCancelado,
		"DELETED":                enums.RoyaltyStatusCancelado,
	}
	for native, want := range cases {
		if got := MapStatus(enums.GatewayAsaas, native); got != want {
			t.Fatalf("asaas %q: got %s want %s", native, got, want)
		}
	}
}

func TestMapStatus_Stripe(t *testing.T) {
	cases := map[string]enums.RoyaltyStatus{
		"paid":      enums.RoyaltyStatusPago,
		"complete":  enums.RoyaltyStatusPago,
		"succeeded": enums.RoyaltyStatusPago,
		"open":      enums.RoyaltyStatusPendente,
		"unpaid":    enums.RoyaltyStatusPendente,
		"expired":   enums.RoyaltyStatusCancelado,
		"canceled":  enums.RoyaltyStatusCancelado,
		"void":      enums.RoyaltyStatusCancelado,
	}
	for native, want := range cases {
		if got := MapStatus(enums.GatewayStripe, native); got != want {
			t.Fatalf("stripe %q: got %s want %s", native, got, want)
		}
	}
}

func TestMapStatus_Cora(t *testing.T) {
	cases := map[string]enums.RoyaltyStatus{
		"PAID":            enums.RoyaltyStatusPago,
		"LIQUIDATED":      enums.RoyaltyStatusPago,
		"OPEN":            enums.RoyaltyStatusPendente,
		"REGISTERED":      enums.RoyaltyStatusPendente,
		"LATE":            enums.RoyaltyStatusEnviado,
		"IN_PROTEST":      enums.RoyaltyStatusEnviado,
		"CANCELLED":       enums.RoyaltyStatusCancelado,
		"DRAFT_CANCELLED": enums.RoyaltyStatusCancelado,
	}
	for native, want := range cases {
		if got := MapStatus(enums.GatewayCora, native); got != want {
			t.Fatalf("cora %q: got %s want %s", native, got, want)
		}
	}
}

func TestMapStatus_UnknownInputsDefaultToPendente(t *testing.T) {
	if got := MapStatus(enums.GatewayStripe, "some_future_status"); got != enums.RoyaltyStatusPendente {
		t.Fatalf("unknown status: got %s", got)
	}
	if got := MapStatus(enums.GatewayStripe, ""); got != enums.RoyaltyStatusPendente {
		t.Fatalf("empty status: got %s", got)
	}
	// Vocabulary is case sensitive; the wrong case is an unknown code.
	if got := MapStatus(enums.GatewayAsaas, "received"); got != enums.RoyaltyStatusPendente {
		t.Fatalf("case mismatch: got %s", got)
	}
	if got := MapStatus(enums.Gateway("pix"), "PAID"); got != enums.RoyaltyStatusPendente {
		t.Fatalf("unknown gateway: got %s", got)
	}
	if got := MapStatus(enums.GatewayNone, "paid"); got != enums.RoyaltyStatusPendente {
		t.Fatalf("gateway none: got %s", got)
	}
}

func TestMapStatus_NeverReturnsLinkGerado(t *testing.T) {
	for gateway, table := range statusTables {
		for native, mapped := range table {
			if mapped == enums.RoyaltyStatusLinkGerado {
				t.Fatalf("%s %q maps to link_gerado", gateway, native)
			}
		}
	}
}
