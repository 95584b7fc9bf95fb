package gateways

import (
	"strings"

	"github.com/google/uuid"

	"github.com/choppgest/choppgest-backend/pkg/enums"
)

const referencePrefix = "royalty_"

// FormatReference builds the external reference embedded in outbound
// charge requests and echoed back by webhooks. Stripe and Cora carry the
// uppercase form, Mercado Pago and Asaas the lowercase one.
func FormatReference(gateway enums.Gateway, royaltyID uuid.UUID) string {
	switch gateway {
	case enums.GatewayStripe, enums.GatewayCora:
		return "ROYALTY_" + royaltyID.String()
	default:
		return referencePrefix + royaltyID.String()
	}
}

// ParseReference resolves an echoed external reference back to the
// royalty id. Matching is case insensitive regardless of which provider
// produced the reference.
func ParseReference(reference string) (uuid.UUID, bool) {
	trimmed := strings.TrimSpace(reference)
	if len(trimmed) <= len(referencePrefix) {
		return uuid.Nil, false
	}
	if !strings.EqualFold(trimmed[:len(referencePrefix)], referencePrefix) {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(trimmed[len(referencePrefix):])
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
