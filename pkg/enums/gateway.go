package enums

import "fmt"

// Gateway identifies a supported payment provider.
type Gateway string

const (
	GatewayStripe      Gateway = "stripe"
	GatewayMercadoPago Gateway = "mercadopago"
	GatewayAsaas       Gateway = "asaas"
	GatewayCora        Gateway = "cora"
	GatewayNone        Gateway = "none"
)

var validGateways = []Gateway{
	GatewayStripe,
	GatewayMercadoPago,
	GatewayAsaas,
	GatewayCora,
	GatewayNone,
}

// IsValid reports whether the value matches the canonical gateway enum.
func (g Gateway) IsValid() bool {
	for _, candidate := range validGateways {
		if candidate == g {
			return true
		}
	}
	return false
}

// IsProvider reports whether the gateway is an actual external provider.
func (g Gateway) IsProvider() bool {
	return g.IsValid() && g != GatewayNone
}

// ParseGateway converts the raw string to Gateway.
func ParseGateway(value string) (Gateway, error) {
	for _, candidate := range validGateways {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid gateway %q", value)
}
