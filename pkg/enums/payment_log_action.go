package enums

import "fmt"

// PaymentLogAction describes what produced a payment log entry.
type PaymentLogAction string

const (
	PaymentLogActionWebhook    PaymentLogAction = "webhook"
	PaymentLogActionLinkGerado PaymentLogAction = "link_gerado"
	PaymentLogActionManual     PaymentLogAction = "manual"
	PaymentLogActionCron       PaymentLogAction = "cron"
)

var validPaymentLogActions = []PaymentLogAction{
	PaymentLogActionWebhook,
	PaymentLogActionLinkGerado,
	PaymentLogActionManual,
	PaymentLogActionCron,
}

// IsValid reports whether the value matches the canonical payment log action enum.
func (a PaymentLogAction) IsValid() bool {
	for _, candidate := range validPaymentLogActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParsePaymentLogAction converts the raw string to PaymentLogAction.
func ParsePaymentLogAction(value string) (PaymentLogAction, error) {
	for _, candidate := range validPaymentLogActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment log action %q", value)
}
