package gateways

import "github.com/choppgest/choppgest-backend/pkg/enums"

// statusTables holds each provider's native vocabulary keyed exactly as
// the provider emits it. Native statuses are case sensitive.
var statusTables = map[enums.Gateway]map[string]enums.RoyaltyStatus{
	enums.GatewayMercadoPago: {
		"approved":     enums.RoyaltyStatusPago,
		"accredited":   enums.RoyaltyStatusPago,
		"pending":      enums.RoyaltyStatusPendente,
		"in_process":   enums.RoyaltyStatusPendente,
		"in_mediation": enums.RoyaltyStatusPendente,
		"rejected":     enums.RoyaltyStatusCancelado,
		"cancelled":    enums.RoyaltyStatusCancelado,
		"refunded":     enums.RoyaltyStatusCancelado,
		"charged_back": enums.RoyaltyStatusCancelado,
	},
	enums.GatewayAsaas: {
		"RECEIVED":               enums.RoyaltyStatusPago,
		"CONFIRMED":              enums.RoyaltyStatusPago,
		"RECEIVED_IN_CASH":       enums.RoyaltyStatusPago,
		"PENDING":                enums.RoyaltyStatusPendente,
		"AWAITING_RISK_ANALYSIS": enums.RoyaltyStatusPendente,
		"OVERDUE":                enums.RoyaltyStatusEnviado,
		"REFUNDED":               enums.RoyaltyStatusCancelado,
		"REFUND_REQUESTED":       enums.RoyaltyStatusCancelado,
		"DELETED":                enums.RoyaltyStatusCancelado,
	},
	enums.GatewayStripe: {
		"paid":      enums.RoyaltyStatusPago,
		"complete":  enums.RoyaltyStatusPago,
		"succeeded": enums.RoyaltyStatusPago,
		"open":      enums.RoyaltyStatusPendente,
		"unpaid":    enums.RoyaltyStatusPendente,
		"expired":   enums.RoyaltyStatusCancelado,
		"canceled":  enums.RoyaltyStatusCancelado,
		"void":      enums.RoyaltyStatusCancelado,
	},
	enums.GatewayCora: {
		"PAID":            enums.RoyaltyStatusPago,
		"LIQUIDATED":      enums.RoyaltyStatusPago,
		"OPEN":            enums.RoyaltyStatusPendente,
		"REGISTERED":      enums.RoyaltyStatusPendente,
		"LATE":            enums.RoyaltyStatusEnviado,
		"IN_PROTEST":      enums.RoyaltyStatusEnviado,
		"CANCELLED":       enums.RoyaltyStatusCancelado,
		"DRAFT_CANCELLED": enums.RoyaltyStatusCancelado,
	},
}

// MapStatus translates a provider-native status into the canonical
// lifecycle. Unknown providers or statuses map to pendente so an
// unrecognized code never advances a charge. The result is never
// link_gerado; that state is only set by the link-generation path.
func MapStatus(gateway enums.Gateway, nativeStatus string) enums.RoyaltyStatus {
	table, ok := statusTables[gateway]
	if !ok {
		return enums.RoyaltyStatusPendente
	}
	mapped, ok := table[nativeStatus]
	if !ok {
		return enums.RoyaltyStatusPendente
	}
	return mapped
}
