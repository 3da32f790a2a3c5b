package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvAppEnv = "PERKSTACK_APP_ENV"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Gateway       GatewayConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
	Notifications NotificationsConfig
	FeatureFlags  FeatureFlagsConfig
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
	Env          string `envconfig:"PERKSTACK_APP_ENV" required:"true"`
	Port         string `envconfig:"PERKSTACK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PERKSTACK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PERKSTACK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"PERKSTACK_DB_DSN"`
	Driver string `envconfig:"PERKSTACK_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"PERKSTACK_DB_HOST"`
	Port     int    `envconfig:"PERKSTACK_DB_PORT" default:"5432"`
	User     string `envconfig:"PERKSTACK_DB_USER"`
	Password string `envconfig:"PERKSTACK_DB_PASSWORD"`
	Name     string `envconfig:"PERKSTACK_DB_NAME"`
	SSLMode  string `envconfig:"PERKSTACK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PERKSTACK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PERKSTACK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PERKSTACK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PERKSTACK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (d *DBConfig) ensureDSN() error {
	if d.DSN != "" {
		return nil
	}
	if d.Host == "" || d.User == "" || d.Name == "" {
		return fmt.Errorf("either PERKSTACK_DB_DSN or host/user/name parts are required")
	}
	d.DSN = fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(d.User),
		url.QueryEscape(d.Password),
		d.Host,
		d.Port,
		d.Name,
		d.SSLMode,
	)
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"PERKSTACK_REDIS_URL" required:"true"`
	Password     string        `envconfig:"PERKSTACK_REDIS_PASSWORD"`
	DB           int           `envconfig:"PERKSTACK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PERKSTACK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PERKSTACK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PERKSTACK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PERKSTACK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PERKSTACK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"PERKSTACK_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"PERKSTACK_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"PERKSTACK_JWT_EXPIRATION_MINUTES" default:"60"`
	RefreshTTLHours   int    `envconfig:"PERKSTACK_JWT_REFRESH_TTL_HOURS" default:"720"`
}

// RefreshTokenTTL converts the configured refresh window into a duration.
func (c JWTConfig) RefreshTokenTTL() time.Duration {
	return time.Duration(c.RefreshTTLHours) * time.Hour
}

// GatewayConfig configures the co-pay payment gateway integration.
type GatewayConfig struct {
	BaseURL     string        `envconfig:"PERKSTACK_GATEWAY_BASE_URL" required:"true"`
	MerchantID  string        `envconfig:"PERKSTACK_GATEWAY_MERCHANT_ID" required:"true"`
	SaltKey     string        `envconfig:"PERKSTACK_GATEWAY_SALT_KEY" required:"true"`
	SaltIndex   string        `envconfig:"PERKSTACK_GATEWAY_SALT_INDEX" default:"1"`
	RedirectURL string        `envconfig:"PERKSTACK_GATEWAY_REDIRECT_URL" required:"true"`
	CallbackURL string        `envconfig:"PERKSTACK_GATEWAY_CALLBACK_URL" required:"true"`
	Timeout     time.Duration `envconfig:"PERKSTACK_GATEWAY_TIMEOUT" default:"15s"`
}

type PubSubConfig struct {
	ProjectID                 string `envconfig:"PERKSTACK_PUBSUB_PROJECT_ID"`
	OrdersTopic               string `envconfig:"PERKSTACK_PUBSUB_ORDERS_TOPIC" default:"rewards-orders"`
	NotificationsTopic        string `envconfig:"PERKSTACK_PUBSUB_NOTIFICATIONS_TOPIC" default:"rewards-notifications"`
	OrdersSubscription        string `envconfig:"PERKSTACK_PUBSUB_ORDERS_SUBSCRIPTION" default:"rewards-orders-notifier"`
	NotificationsSubscription string `envconfig:"PERKSTACK_PUBSUB_NOTIFICATIONS_SUBSCRIPTION" default:"rewards-notifications-notifier"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"PERKSTACK_AUTO_MIGRATE" default:"false"`
}

type NotificationsConfig struct {
	ProcurementRecipient string        `envconfig:"PERKSTACK_NOTIFICATIONS_PROCUREMENT_RECIPIENT"`
	DispatchInterval     time.Duration `envconfig:"PERKSTACK_NOTIFICATIONS_DISPATCH_INTERVAL" default:"30s"`
	DispatchBatchSize    int           `envconfig:"PERKSTACK_NOTIFICATIONS_DISPATCH_BATCH_SIZE" default:"100"`
	IdempotencyTTL       time.Duration `envconfig:"PERKSTACK_NOTIFICATIONS_IDEMPOTENCY_TTL" default:"168h"`
}

type OutboxConfig struct {
	PollInterval time.Duration `envconfig:"PERKSTACK_OUTBOX_POLL_INTERVAL" default:"5s"`
	BatchSize    int           `envconfig:"PERKSTACK_OUTBOX_BATCH_SIZE" default:"50"`
	MaxAttempts  int           `envconfig:"PERKSTACK_OUTBOX_MAX_ATTEMPTS" default:"10"`
}
