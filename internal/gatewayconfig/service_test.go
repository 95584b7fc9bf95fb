package gatewayconfig

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/choppgest/choppgest-backend/pkg/db/models"
	"github.com/choppgest/choppgest-backend/pkg/enums"
)

func TestWebhookSecretsReturnsEveryEstablishmentSecret(t *testing.T) {
	first := "whsec_first"
	second := "whsec_second"
	blank := "  "
	repo := &stubConfigRepo{byGateway: []models.GatewayConfig{
		{Gateway: enums.GatewayStripe, WebhookSecret: &first},
		{Gateway: enums.GatewayStripe, WebhookSecret: nil},
		{Gateway: enums.GatewayStripe, WebhookSecret: &blank},
		{Gateway: enums.GatewayStripe, WebhookSecret: &second},
		{Gateway: enums.GatewayStripe, WebhookSecret: &first},
	}}
	service, err := NewService(repo)
	if err != nil {
		t.Fatalf("setup service: %v", err)
	}

	secrets, err := service.WebhookSecrets(context.Background(), enums.GatewayStripe)
	if err != nil {
		t.Fatalf("webhook secrets: %v", err)
	}
	if len(secrets) != 2 {
		t.Fatalf("expected two distinct secrets, got %v", secrets)
	}
	if secrets[0] != "whsec_first" || secrets[1] != "whsec_second" {
		t.Fatalf("unexpected secrets: %v", secrets)
	}
}

func TestWebhookSecretsEmptyWhenNoneConfigured(t *testing.T) {
	service, err := NewService(&stubConfigRepo{})
	if err != nil {
		t.Fatalf("setup service: %v", err)
	}
	secrets, err := service.WebhookSecrets(context.Background(), enums.GatewayAsaas)
	if err != nil {
		t.Fatalf("webhook secrets: %v", err)
	}
	if len(secrets) != 0 {
		t.Fatalf("expected no secrets, got %v", secrets)
	}
}

type stubConfigRepo struct {
	byGateway []models.GatewayConfig
	byKey     map[uuid.UUID]*models.GatewayConfig
}

func (s *stubConfigRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubConfigRepo) Find(ctx context.Context, establishmentID uuid.UUID, gateway enums.Gateway) (*models.GatewayConfig, error) {
	return s.byKey[establishmentID], nil
}

func (s *stubConfigRepo) FindByGateway(ctx context.Context, gateway enums.Gateway) ([]models.GatewayConfig, error) {
	return s.byGateway, nil
}
