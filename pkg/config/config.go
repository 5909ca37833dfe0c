package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "development"
	AppEnvProd = "production"
)

// Env variable names referenced from tests and docs.
const (
	EnvAppEnv      = "BLINE_APP_ENV"
	EnvPort        = "BLINE_APP_PORT"
	EnvDBDSN       = "BLINE_DB_DSN"
	EnvRedisURL    = "BLINE_REDIS_URL"
	EnvProviderURL = "BLINE_PROVIDER_URL"
	EnvProviderKey = "BLINE_PROVIDER_KEY"
	EnvOpsToken    = "BLINE_OPS_TOKEN"
)

type Config struct {
	App        AppConfig
	DB         DBConfig
	Redis      RedisConfig
	Provider   ProviderConfig
	Settlement SettlementConfig
	Workers    WorkersConfig
	Notify     NotifyConfig
	Ops        OpsConfig
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
	Env          string `envconfig:"BLINE_APP_ENV" required:"true"`
	Port         string `envconfig:"BLINE_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"BLINE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BLINE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"BLINE_DB_DSN"`
	Driver string `envconfig:"BLINE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"BLINE_DB_HOST"`
	LegacyPort     int    `envconfig:"BLINE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BLINE_DB_USER"`
	LegacyPassword string `envconfig:"BLINE_DB_PASSWORD"`
	LegacyName     string `envconfig:"BLINE_DB_NAME"`
	LegacySSLMode  string `envconfig:"BLINE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BLINE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BLINE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BLINE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BLINE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (d *DBConfig) ensureDSN() error {
	if d.DSN != "" {
		return nil
	}
	if d.LegacyHost == "" || d.LegacyUser == "" || d.LegacyName == "" {
		return fmt.Errorf("database DSN or host/user/name settings are required")
	}
	dsn := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.LegacyUser, d.LegacyPassword),
		Host:   fmt.Sprintf("%s:%d", d.LegacyHost, d.LegacyPort),
		Path:   "/" + d.LegacyName,
	}
	query := dsn.Query()
	query.Set("sslmode", d.LegacySSLMode)
	dsn.RawQuery = query.Encode()
	d.DSN = dsn.String()
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"BLINE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"BLINE_REDIS_ADDR"`
	Password     string        `envconfig:"BLINE_REDIS_PASSWORD"`
	DB           int           `envconfig:"BLINE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BLINE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BLINE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BLINE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BLINE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BLINE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// ProviderConfig points at the upstream fulfillment panel API.
type ProviderConfig struct {
	URL            string        `envconfig:"BLINE_PROVIDER_URL" required:"true"`
	Key            string        `envconfig:"BLINE_PROVIDER_KEY" required:"true"`
	SubmitTimeout  time.Duration `envconfig:"BLINE_PROVIDER_SUBMIT_TIMEOUT" default:"20s"`
	StatusTimeout  time.Duration `envconfig:"BLINE_PROVIDER_STATUS_TIMEOUT" default:"30s"`
	SupportTimeout time.Duration `envconfig:"BLINE_PROVIDER_SUPPORT_TIMEOUT" default:"10s"`
}

// SettlementConfig carries the monetary policy knobs.
type SettlementConfig struct {
	ReferralRate     decimal.Decimal `envconfig:"BLINE_REFERRAL_RATE" default:"0.04"`
	LoyaltyRate      decimal.Decimal `envconfig:"BLINE_LOYALTY_RATE" default:"0.01"`
	LoyaltyThreshold decimal.Decimal `envconfig:"BLINE_LOYALTY_THRESHOLD" default:"10"`
	StatusBatchSize  int             `envconfig:"BLINE_STATUS_BATCH_SIZE" default:"100"`
	DispatchLimit    int             `envconfig:"BLINE_DISPATCH_LIMIT" default:"50"`
}

// WorkersConfig fixes the cadence of each periodic worker.
type WorkersConfig struct {
	DispatchInterval      time.Duration `envconfig:"BLINE_DISPATCH_INTERVAL" default:"5s"`
	ReconcileInterval     time.Duration `envconfig:"BLINE_RECONCILE_INTERVAL" default:"60s"`
	PaymentVerifyInterval time.Duration `envconfig:"BLINE_PAYMENT_VERIFY_INTERVAL" default:"10s"`
	PayoutInterval        time.Duration `envconfig:"BLINE_PAYOUT_INTERVAL" default:"10s"`
	TicketInterval        time.Duration `envconfig:"BLINE_TICKET_INTERVAL" default:"10s"`
	RateSyncInterval      time.Duration `envconfig:"BLINE_RATE_SYNC_INTERVAL" default:"1h"`
	CatalogImportInterval time.Duration `envconfig:"BLINE_CATALOG_IMPORT_INTERVAL" default:"6h"`
}

// NotifyConfig routes logical channels to Telegram chats.
type NotifyConfig struct {
	BotToken        string        `envconfig:"BLINE_NOTIFY_BOT_TOKEN"`
	APIBase         string        `envconfig:"BLINE_NOTIFY_API_BASE" default:"https://api.telegram.org"`
	FulfillmentChat string        `envconfig:"BLINE_NOTIFY_FULFILLMENT_CHAT"`
	FinanceChat     string        `envconfig:"BLINE_NOTIFY_FINANCE_CHAT"`
	SupportChat     string        `envconfig:"BLINE_NOTIFY_SUPPORT_CHAT"`
	CatalogChat     string        `envconfig:"BLINE_NOTIFY_CATALOG_CHAT"`
	MaxAttempts     int           `envconfig:"BLINE_NOTIFY_MAX_ATTEMPTS" default:"3"`
	RetryBackoff    time.Duration `envconfig:"BLINE_NOTIFY_RETRY_BACKOFF" default:"500ms"`
	Timeout         time.Duration `envconfig:"BLINE_NOTIFY_TIMEOUT" default:"10s"`
}

// OpsConfig protects the operator HTTP surface.
type OpsConfig struct {
	Token string `envconfig:"BLINE_OPS_TOKEN"`
}
