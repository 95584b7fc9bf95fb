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

// AsaasAdapter handles payment lifecycle events (PAYMENT_RECEIVED,
// PAYMENT_OVERDUE and friends).
type AsaasAdapter struct{}

func NewAsaasAdapter() *AsaasAdapter { return &AsaasAdapter{} }

func (a *AsaasAdapter) Gateway() enums.Gateway { return enums.GatewayAsaas }

type asaasEvent struct {
	ID      string `json:"id"`
	Event   string `json:"event"`
	Payment struct {
		ID                string `json:"id"`
		Status            string `json:"status"`
		ExternalReference string `json:"externalReference"`
		PaymentDate       string `json:"paymentDate"`
	} `json:"payment"`
}

// VerifySignature compares the asaas-access-token header against the
// configured secret.
func (a *AsaasAdapter) VerifySignature(payload []byte, headers http.Header, secret string) bool {
	provided := strings.TrimSpace(headers.Get("Asaas-Access-Token"))
	if provided == "" || secret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) == 1
}

func (a *AsaasAdapter) ParseEvent(payload []byte) (*Event, error) {
	var raw asaasEvent
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode asaas event")
	}

	eventID := strings.TrimSpace(raw.ID)
	if eventID == "" {
		eventID = deriveFingerprint(a.Gateway(), raw.Payment.ID, raw.Payment.Status, raw.Payment.PaymentDate)
	}

	var paidAt *time.Time
	if raw.Payment.PaymentDate != "" {
		paidAt = parseEventTime(raw.Payment.PaymentDate)
	}

	return &Event{
		EventID:           eventID,
		ExternalPaymentID: raw.Payment.ID,
		NativeStatus:      raw.Payment.Status,
		ExternalReference: raw.Payment.ExternalReference,
		PaidAt:            paidAt,
	}, nil
}
