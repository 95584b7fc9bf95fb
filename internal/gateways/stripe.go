package gateways

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/choppgest/choppgest-backend/pkg/enums"
	pkgerrors "github.com/choppgest/choppgest-backend/pkg/errors"
)

// stripeSignatureTolerance bounds the accepted skew between the signed
// timestamp and the wall clock; Stripe documents five minutes.
const stripeSignatureTolerance = 5 * time.Minute

// StripeAdapter handles checkout session and payment link events.
type StripeAdapter struct {
	now func() time.Time
}

func NewStripeAdapter() *StripeAdapter { return &StripeAdapter{now: time.Now} }

func (a *StripeAdapter) Gateway() enums.Gateway { return enums.GatewayStripe }

type stripeEvent struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Object struct {
			ID                string            `json:"id"`
			Status            string            `json:"status"`
			PaymentStatus     string            `json:"payment_status"`
			ClientReferenceID string            `json:"client_reference_id"`
			Metadata          map[string]string `json:"metadata"`
		} `json:"object"`
	} `json:"data"`
}

// VerifySignature checks the Stripe-Signature header: an HMAC-SHA256 of
// "<timestamp>.<payload>" carried in the v1 element.
func (a *StripeAdapter) VerifySignature(payload []byte, headers http.Header, secret string) bool {
	header := headers.Get("Stripe-Signature")
	if header == "" || secret == "" {
		return false
	}

	var timestamp, provided string
	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch key {
		case "t":
			timestamp = value
		case "v1":
			provided = value
		}
	}
	if timestamp == "" || provided == "" {
		return false
	}
	signedAt, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return false
	}
	now := time.Now
	if a.now != nil {
		now = a.now
	}
	// A replayed capture carries a valid MAC; the bounded timestamp is
	// what expires it.
	if skew := now().Sub(time.Unix(signedAt, 0)); skew > stripeSignatureTolerance || skew < -stripeSignatureTolerance {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(provided))
}

func (a *StripeAdapter) ParseEvent(payload []byte) (*Event, error) {
	var raw stripeEvent
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode stripe event")
	}

	object := raw.Data.Object
	nativeStatus := object.PaymentStatus
	if nativeStatus == "" {
		nativeStatus = object.Status
	}

	reference := object.ClientReferenceID
	if reference == "" {
		reference = object.Metadata["external_reference"]
	}

	eventID := strings.TrimSpace(raw.ID)
	if eventID == "" {
		eventID = deriveFingerprint(a.Gateway(), object.ID, nativeStatus, strconv.FormatInt(raw.Created, 10))
	}

	var paidAt *time.Time
	if nativeStatus == "paid" && raw.Created > 0 {
		created := time.Unix(raw.Created, 0).UTC()
		paidAt = &created
	}

	return &Event{
		EventID:           eventID,
		ExternalPaymentID: object.ID,
		NativeStatus:      nativeStatus,
		ExternalReference: reference,
		PaidAt:            paidAt,
	}, nil
}
