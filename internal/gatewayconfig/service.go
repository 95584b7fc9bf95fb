package gatewayconfig

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/choppgest/choppgest-backend/pkg/enums"
	pkgerrors "github.com/choppgest/choppgest-backend/pkg/errors"
)

// Service answers capability questions about an establishment's gateway
// setup. IsActive is the single place that decides whether a gateway
// may be used; callers never read the active column directly.
type Service struct {
	repo Repository
}

func NewService(repo Repository) (*Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "gateway config repo required")
	}
	return &Service{repo: repo}, nil
}

// IsActive reports whether the establishment has the gateway configured
// and enabled.
func (s *Service) IsActive(ctx context.Context, establishmentID uuid.UUID, gateway enums.Gateway) (bool, error) {
	if !gateway.IsProvider() {
		return false, nil
	}
	config, err := s.repo.Find(ctx, establishmentID, gateway)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load gateway config")
	}
	if config == nil {
		return false, nil
	}
	return config.Active, nil
}

// WebhookSecret returns the shared secret for inbound signature checks,
// or empty when none is configured (relaxed mode).
func (s *Service) WebhookSecret(ctx context.Context, establishmentID uuid.UUID, gateway enums.Gateway) (string, error) {
	config, err := s.repo.Find(ctx, establishmentID, gateway)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load gateway config")
	}
	if config == nil || config.WebhookSecret == nil {
		return "", nil
	}
	return strings.TrimSpace(*config.WebhookSecret), nil
}

// WebhookSecrets returns every configured webhook secret for the
// gateway across establishments, deduplicated. Webhook endpoints are
// per gateway, not per establishment, so the signature check happens
// before the charge (and with it the establishment) is resolved; a
// delivery is legitimate if it verifies under any establishment's
// secret.
func (s *Service) WebhookSecrets(ctx context.Context, gateway enums.Gateway) ([]string, error) {
	configs, err := s.repo.FindByGateway(ctx, gateway)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load gateway configs")
	}
	var secrets []string
	seen := map[string]bool{}
	for _, config := range configs {
		if config.WebhookSecret == nil {
			continue
		}
		secret := strings.TrimSpace(*config.WebhookSecret)
		if secret == "" || seen[secret] {
			continue
		}
		seen[secret] = true
		secrets = append(secrets, secret)
	}
	return secrets, nil
}
