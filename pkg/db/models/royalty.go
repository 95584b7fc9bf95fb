package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/choppgest/choppgest-backend/pkg/enums"
)

// Royalty is one billing cycle for an establishment: the gross revenue it
// reported, the computed royalty amount, and the payment lifecycle of the
// charge generated for it.
type Royalty struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EstablishmentID uuid.UUID `gorm:"column:establishment_id;type:uuid;not null;index"`

	PeriodStart time.Time `gorm:"column:period_start;not null"`
	PeriodEnd   time.Time `gorm:"column:period_end;not null"`

	GrossRevenueCents int64  `gorm:"column:gross_revenue_cents;not null"`
	AmountCents       int64  `gorm:"column:amount_cents;not null"`
	RoyaltyPercent    string `gorm:"column:royalty_percent;not null;default:'7'"`
	Currency          string `gorm:"column:currency;not null;default:'brl'"`

	DueDate      time.Time `gorm:"column:due_date;not null"`
	BillingEmail string    `gorm:"column:billing_email;not null"`
	Description  *string   `gorm:"column:description"`

	Status        enums.RoyaltyStatus `gorm:"column:status;type:royalty_status;not null;default:'pendente';index"`
	PaymentMethod enums.Gateway       `gorm:"column:payment_method;type:gateway;not null;default:'none'"`
	// PaymentStatus keeps the last gateway-native status verbatim for audit.
	PaymentStatus *string `gorm:"column:payment_status"`

	ExternalPaymentID *string `gorm:"column:external_payment_id;index"`
	PaymentLinkID     *string `gorm:"column:payment_link_id"`
	PriceID           *string `gorm:"column:price_id"`
	BoletoID          *string `gorm:"column:boleto_id"`
	InvoiceURL        *string `gorm:"column:invoice_url"`

	// AmountProtected marks charges originated by the billing flow; their
	// amount is immutable outside this subsystem.
	AmountProtected bool `gorm:"column:amount_protected;not null;default:false"`

	PaidAt      *time.Time `gorm:"column:paid_at"`
	PaymentDate *time.Time `gorm:"column:payment_date"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (Royalty) TableName() string {
	return "royalties"
}
