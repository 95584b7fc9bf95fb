package gateways

import (
	"testing"

	"github.com/google/uuid"

	"github.com/choppgest/choppgest-backend/pkg/enums"
)

func TestFormatReference_PerGatewayCasing(t *testing.T) {
	id := uuid.MustParse("6a1f9f9e-54d8-4f3a-9f0e-2b8f59f0a11c")

	if got := FormatReference(enums.GatewayStripe, id); got != "ROYALTY_"+id.String() {
		t.Fatalf("stripe reference: %s", got)
	}
	if got := FormatReference(enums.GatewayCora, id); got != "ROYALTY_"+id.String() {
		t.Fatalf("cora reference: %s", got)
	}
	if got := FormatReference(enums.GatewayMercadoPago, id); got != "royalty_"+id.String() {
		t.Fatalf("mercadopago reference: %s", got)
	}
	if got := FormatReference(enums.GatewayAsaas, id); got != "royalty_"+id.String() {
		t.Fatalf("asaas reference: %s", got)
	}
}

func TestParseReference_AcceptsBothCasings(t *testing.T) {
	id := uuid.New()

	for _, reference := range []string{
		"ROYALTY_" + id.String(),
		"royalty_" + id.String(),
		"Royalty_" + id.String(),
		"  royalty_" + id.String() + "  ",
	} {
		parsed, ok := ParseReference(reference)
		if !ok {
			t.Fatalf("reference %q rejected", reference)
		}
		if parsed != id {
			t.Fatalf("reference %q: got %s want %s", reference, parsed, id)
		}
	}
}

func TestParseReference_RejectsMalformed(t *testing.T) {
	for _, reference := range []string{
		"",
		"royalty_",
		"royalty_not-a-uuid",
		"order_" + uuid.NewString(),
		uuid.NewString(),
	} {
		if _, ok := ParseReference(reference); ok {
			t.Fatalf("reference %q accepted", reference)
		}
	}
}

func TestReferenceRoundTrip(t *testing.T) {
	id := uuid.New()
	for _, gateway := range []enums.Gateway{
		enums.GatewayStripe,
		enums.GatewayMercadoPago,
		enums.GatewayAsaas,
		enums.GatewayCora,
	} {
		parsed, ok := ParseReference(FormatReference(gateway, id))
		if !ok || parsed != id {
			t.Fatalf("%s round trip failed", gateway)
		}
	}
}
