package enums

import "fmt"

// RoyaltyStatus is the canonical lifecycle for a royalty charge, independent
// of any gateway's native vocabulary.
type RoyaltyStatus string

const (
	RoyaltyStatusPendente   RoyaltyStatus = "pendente"
	RoyaltyStatusLinkGerado RoyaltyStatus = "link_gerado"
	RoyaltyStatusEnviado    RoyaltyStatus = "enviado"
	RoyaltyStatusPago       RoyaltyStatus = "pago"
	RoyaltyStatusCancelado  RoyaltyStatus = "cancelado"
)

var validRoyaltyStatuses = []RoyaltyStatus{
	RoyaltyStatusPendente,
	RoyaltyStatusLinkGerado,
	RoyaltyStatusEnviado,
	RoyaltyStatusPago,
	RoyaltyStatusCancelado,
}

// IsValid reports whether the value matches the canonical royalty status enum.
func (s RoyaltyStatus) IsValid() bool {
	for _, candidate := range validRoyaltyStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status accepts no further transitions.
func (s RoyaltyStatus) IsTerminal() bool {
	return s == RoyaltyStatusPago || s == RoyaltyStatusCancelado
}

// ParseRoyaltyStatus converts the raw string to RoyaltyStatus.
func ParseRoyaltyStatus(value string) (RoyaltyStatus, error) {
	for _, candidate := range validRoyaltyStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid royalty status %q", value)
}
