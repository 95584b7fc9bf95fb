package outbox

import (
	"time"

	"github.com/google/uuid"

	"github.com/choppgest/choppgest-backend/pkg/enums"
)

// RoyaltyLinkGeneratedEvent signals a payable link/boleto was created.
type RoyaltyLinkGeneratedEvent struct {
	RoyaltyID       uuid.UUID     `json:"royalty_id"`
	EstablishmentID uuid.UUID     `json:"establishment_id"`
	Gateway         enums.Gateway `json:"gateway"`
	AmountCents     int64         `json:"amount_cents"`
	InvoiceURL      string        `json:"invoice_url,omitempty"`
	DueDate         time.Time     `json:"due_date"`
}

// RoyaltyPaidEvent is emitted when a charge reaches pago.
type RoyaltyPaidEvent struct {
	RoyaltyID       uuid.UUID     `json:"royalty_id"`
	EstablishmentID uuid.UUID     `json:"establishment_id"`
	Gateway         enums.Gateway `json:"gateway"`
	AmountCents     int64         `json:"amount_cents"`
	PaidAt          time.Time     `json:"paid_at"`
}

// RoyaltyCanceledEvent is emitted when a charge reaches cancelado.
type RoyaltyCanceledEvent struct {
	RoyaltyID       uuid.UUID     `json:"royalty_id"`
	EstablishmentID uuid.UUID     `json:"establishment_id"`
	Gateway         enums.Gateway `json:"gateway"`
	Reason          string        `json:"reason,omitempty"`
}

// RoyaltyOverdueEvent flags a charge still unpaid past its due date.
type RoyaltyOverdueEvent struct {
	RoyaltyID       uuid.UUID `json:"royalty_id"`
	EstablishmentID uuid.UUID `json:"establishment_id"`
	DueDate         time.Time `json:"due_date"`
	AmountCents     int64     `json:"amount_cents"`
}
