package gateways

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/choppgest/choppgest-backend/pkg/enums"
	pkgerrors "github.com/choppgest/choppgest-backend/pkg/errors"
)

// CoraAdapter handles boleto (invoice) state events.
type CoraAdapter struct{}

func NewCoraAdapter() *CoraAdapter { return &CoraAdapter{} }

func (a *CoraAdapter) Gateway() enums.Gateway { return enums.GatewayCora }

type coraEvent struct {
	ID    string `json:"id"`
	Event string `json:"event"`
	Data  struct {
		ID     string `json:"id"`
		Status string `json:"status"`
		Code   string `json:"code"`
		PaidAt string `json:"paidAt"`
	} `json:"data"`
}

// VerifySignature checks the X-Cora-Signature header, a hex HMAC-SHA256
// of the raw payload.
func (a *CoraAdapter) VerifySignature(payload []byte, headers http.Header, secret string) bool {
	provided := strings.TrimSpace(headers.Get("X-Cora-Signature"))
	if provided == "" || secret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(provided)))
}

func (a *CoraAdapter) ParseEvent(payload []byte) (*Event, error) {
	var raw coraEvent
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode cora event")
	}

	eventID := strings.TrimSpace(raw.ID)
	if eventID == "" {
		eventID = deriveFingerprint(a.Gateway(), raw.Data.ID, raw.Data.Status, raw.Data.PaidAt)
	}

	var paidAt *time.Time
	if raw.Data.PaidAt != "" {
		paidAt = parseEventTime(raw.Data.PaidAt)
	}

	return &Event{
		EventID:           eventID,
		ExternalPaymentID: raw.Data.ID,
		NativeStatus:      raw.Data.Status,
		ExternalReference: raw.Data.Code,
		PaidAt:            paidAt,
	}, nil
}
