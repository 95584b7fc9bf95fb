package enums

import "fmt"

// GatewayEnvironment selects sandbox or production credentials for a gateway.
type GatewayEnvironment string

const (
	GatewayEnvironmentSandbox    GatewayEnvironment = "sandbox"
	GatewayEnvironmentProduction GatewayEnvironment = "production"
)

var validGatewayEnvironments = []GatewayEnvironment{
	GatewayEnvironmentSandbox,
	GatewayEnvironmentProduction,
}

// IsValid reports whether the value matches the canonical gateway environment enum.
func (e GatewayEnvironment) IsValid() bool {
	for _, candidate := range validGatewayEnvironments {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseGatewayEnvironment converts the raw string to GatewayEnvironment.
func ParseGatewayEnvironment(value string) (GatewayEnvironment, error) {
	for _, candidate := range validGatewayEnvironments {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid gateway environment %q", value)
}
