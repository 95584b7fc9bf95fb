package gateways

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/choppgest/choppgest-backend/pkg/enums"
	pkgerrors "github.com/choppgest/choppgest-backend/pkg/errors"
)

// MercadoPagoAdapter handles payment notification events.
type MercadoPagoAdapter struct{}

func NewMercadoPagoAdapter() *MercadoPagoAdapter { return &MercadoPagoAdapter{} }

func (a *MercadoPagoAdapter) Gateway() enums.Gateway { return enums.GatewayMercadoPago }

type mercadoPagoEvent struct {
	ID     json.Number `json:"id"`
	Action string      `json:"action"`
	Type   string      `json:"type"`
	Data   struct {
		ID                string `json:"id"`
		Status            string `json:"status"`
		ExternalReference string `json:"external_reference"`
		DateApproved      string `json:"date_approved"`
	} `json:"data"`
}

// VerifySignature compares the shared token carried in X-Signature
// against the configured secret.
func (a *MercadoPagoAdapter) VerifySignature(payload []byte, headers http.Header, secret string) bool {
	provided := strings.TrimSpace(headers.Get("X-Signature"))
	if provided == "" || secret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) == 1
}

func (a *MercadoPagoAdapter) ParseEvent(payload []byte) (*Event, error) {
	var raw mercadoPagoEvent
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode mercadopago event")
	}

	eventID := strings.TrimSpace(raw.ID.String())
	if eventID == "" {
		eventID = deriveFingerprint(a.Gateway(), raw.Data.ID, raw.Data.Status, raw.Data.DateApproved)
	}

	var paidAt *time.Time
	if raw.Data.DateApproved != "" {
		paidAt = parseEventTime(raw.Data.DateApproved)
	}

	return &Event{
		EventID:           eventID,
		ExternalPaymentID: raw.Data.ID,
		NativeStatus:      raw.Data.Status,
		ExternalReference: raw.Data.ExternalReference,
		PaidAt:            paidAt,
	}, nil
}
