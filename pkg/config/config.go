package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "CHOPPGEST"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "CHOPPGEST_DB_DSN"
	EnvDBHost = "CHOPPGEST_DB_HOST"
	EnvDBUser = "CHOPPGEST_DB_USER"
	EnvDBName = "CHOPPGEST_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Royalty      RoyaltyConfig
	Webhook      WebhookConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Gateways     GatewaysConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CHOPPGEST_APP_ENV" required:"true"`
	Port         string `envconfig:"CHOPPGEST_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"CHOPPGEST_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CHOPPGEST_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"CHOPPGEST_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"CHOPPGEST_DB_DSN"`
	Driver string `envconfig:"CHOPPGEST_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"CHOPPGEST_DB_HOST"`
	LegacyPort     int    `envconfig:"CHOPPGEST_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CHOPPGEST_DB_USER"`
	LegacyPassword string `envconfig:"CHOPPGEST_DB_PASSWORD"`
	LegacyName     string `envconfig:"CHOPPGEST_DB_NAME"`
	LegacySSLMode  string `envconfig:"CHOPPGEST_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CHOPPGEST_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CHOPPGEST_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CHOPPGEST_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CHOPPGEST_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CHOPPGEST_REDIS_URL" required:"true"`
	Address      string        `envconfig:"CHOPPGEST_REDIS_ADDR"`
	Password     string        `envconfig:"CHOPPGEST_REDIS_PASSWORD"`
	DB           int           `envconfig:"CHOPPGEST_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CHOPPGEST_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CHOPPGEST_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CHOPPGEST_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CHOPPGEST_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CHOPPGEST_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"CHOPPGEST_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"CHOPPGEST_AUTO_MIGRATE" default:"false"`
}

// RoyaltyConfig carries the billing knobs for royalty charge generation.
type RoyaltyConfig struct {
	DefaultPercent  string        `envconfig:"CHOPPGEST_ROYALTY_DEFAULT_PERCENT" default:"7"`
	LinkTimeout     time.Duration `envconfig:"CHOPPGEST_ROYALTY_LINK_TIMEOUT" default:"15s"`
	StaleLinkAge    time.Duration `envconfig:"CHOPPGEST_ROYALTY_STALE_LINK_AGE" default:"6h"`
	OverdueLogBatch int           `envconfig:"CHOPPGEST_ROYALTY_OVERDUE_BATCH" default:"100"`
}

// WebhookConfig tunes webhook dedup behavior.
type WebhookConfig struct {
	IdempotencyTTL time.Duration `envconfig:"CHOPPGEST_WEBHOOK_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"CHOPPGEST_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"CHOPPGEST_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"CHOPPGEST_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	BillingTopic        string `envconfig:"CHOPPGEST_PUBSUB_BILLING_TOPIC" default:"cg-billing-events"`
	BillingSubscription string `envconfig:"CHOPPGEST_PUBSUB_BILLING_SUBSCRIPTION"`
}

// GatewayClientConfig carries the outbound credentials for one provider.
// Webhook secrets stay per establishment in gateway_configs; these are
// the platform-level API credentials used to create charges.
type GatewayClientConfig struct {
	BaseURL string
	APIKey  string
}

type GatewaysConfig struct {
	StripeBaseURL      string        `envconfig:"CHOPPGEST_STRIPE_BASE_URL" default:"https://api.stripe.com/v1"`
	StripeAPIKey       string        `envconfig:"CHOPPGEST_STRIPE_API_KEY"`
	MercadoPagoBaseURL string        `envconfig:"CHOPPGEST_MERCADOPAGO_BASE_URL" default:"https://api.mercadopago.com"`
	MercadoPagoAPIKey  string        `envconfig:"CHOPPGEST_MERCADOPAGO_API_KEY"`
	AsaasBaseURL       string        `envconfig:"CHOPPGEST_ASAAS_BASE_URL" default:"https://api.asaas.com/v3"`
	AsaasAPIKey        string        `envconfig:"CHOPPGEST_ASAAS_API_KEY"`
	CoraBaseURL        string        `envconfig:"CHOPPGEST_CORA_BASE_URL" default:"https://matls-clients.api.cora.com.br"`
	CoraAPIKey         string        `envconfig:"CHOPPGEST_CORA_API_KEY"`
	HTTPTimeout        time.Duration `envconfig:"CHOPPGEST_GATEWAY_HTTP_TIMEOUT" default:"30s"`
}

// ForGateway returns the credentials for the named provider; unknown or
// unconfigured providers come back with an empty APIKey.
func (g GatewaysConfig) ForGateway(gateway string) GatewayClientConfig {
	switch gateway {
	case "stripe":
		return GatewayClientConfig{BaseURL: g.StripeBaseURL, APIKey: g.StripeAPIKey}
	case "mercadopago":
		return GatewayClientConfig{BaseURL: g.MercadoPagoBaseURL, APIKey: g.MercadoPagoAPIKey}
	case "asaas":
		return GatewayClientConfig{BaseURL: g.AsaasBaseURL, APIKey: g.AsaasAPIKey}
	case "cora":
		return GatewayClientConfig{BaseURL: g.CoraBaseURL, APIKey: g.CoraAPIKey}
	}
	return GatewayClientConfig{}
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"CHOPPGEST_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"CHOPPGEST_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"CHOPPGEST_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
