package gateways

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"github.com/choppgest/choppgest-backend/pkg/enums"
)

// Event is the provider-neutral view of one inbound webhook delivery.
type Event struct {
	EventID           string
	ExternalPaymentID string
	NativeStatus      string
	ExternalReference string
	PaidAt            *time.Time
}

// Adapter is the per-provider seam the webhook receiver is parameterized
// by: signature verification plus payload extraction. Adapters never
// touch storage.
type Adapter interface {
	Gateway() enums.Gateway
	VerifySignature(payload []byte, headers http.Header, secret string) bool
	ParseEvent(payload []byte) (*Event, error)
}

// deriveFingerprint builds a stable event id for providers that omit one,
// from gateway plus payment id plus status plus the raw timestamp field.
func deriveFingerprint(gateway enums.Gateway, paymentID, status, rawTimestamp string) string {
	sum := sha256.Sum256([]byte(string(gateway) + "|" + paymentID + "|" + status + "|" + rawTimestamp))
	return hex.EncodeToString(sum[:])
}

// parseEventTime accepts the timestamp shapes the providers actually
// send: RFC 3339, RFC 3339 without zone, and bare dates.
func parseEventTime(raw string) *time.Time {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if parsed, err := time.Parse(layout, trimmed); err == nil {
			utc := parsed.UTC()
			return &utc
		}
	}
	return nil
}
