package gateways

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/choppgest/choppgest-backend/pkg/enums"
	pkgerrors "github.com/choppgest/choppgest-backend/pkg/errors"
)

// CreateChargeInput carries everything a provider needs to produce a
// payable link or boleto for one royalty cycle.
type CreateChargeInput struct {
	RoyaltyID         uuid.UUID
	EstablishmentID   uuid.UUID
	AmountCents       int64
	Currency          string
	Description       string
	DueDate           time.Time
	BillingEmail      string
	ExternalReference string
	Metadata          map[string]string
}

// ChargeHandle is the provider-specific handle returned by a successful
// charge creation. Fields are filled per provider; unused ones stay empty.
type ChargeHandle struct {
	ExternalPaymentID string
	PaymentLinkID     string
	PriceID           string
	BoletoID          string
	InvoiceURL        string
}

// PaymentDetails is the authoritative payment state fetched from a
// provider when a webhook payload is too sparse to act on.
type PaymentDetails struct {
	ExternalPaymentID string
	NativeStatus      string
	PaidAt            *time.Time
}

// Client is the outbound provider collaborator. Implementations live
// outside this package; callers bound every call with a context timeout.
type Client interface {
	CreateCharge(ctx context.Context, input CreateChargeInput) (*ChargeHandle, error)
	FetchPaymentDetails(ctx context.Context, externalPaymentID string) (*PaymentDetails, error)
}

// Clients resolves the outbound client for a provider.
type Clients map[enums.Gateway]Client

func (c Clients) For(gateway enums.Gateway) (Client, error) {
	client, ok := c[gateway]
	if !ok || client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gateway not supported: "+string(gateway))
	}
	return client, nil
}
