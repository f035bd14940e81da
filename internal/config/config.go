// Package config loads service configuration from defaults, YAML files and
// SHOPLEDGER_* environment variables, in that order of precedence.
package config

import (
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// DefaultFiles are tried when no file is given explicitly.
var DefaultFiles = []string{"config.yaml", "/etc/shopledger/config.yaml"}

// Config holds the complete application configuration.
type Config struct {
	Env           string              `env:"ENV" yaml:"env" default:"development" usage:"development or production"`
	HTTP          HTTPConfig          `env:"HTTP" yaml:"http"`
	Database      DatabaseConfig      `env:"DATABASE" yaml:"database"`
	Log           LogConfig           `env:"LOG" yaml:"log"`
	JWT           JWTConfig           `env:"JWT" yaml:"jwt"`
	Idempotency   IdempotencyConfig   `env:"IDEMPOTENCY" yaml:"idempotency"`
	Notifications NotificationsConfig `env:"NOTIFICATIONS" yaml:"notifications"`
	Worker        WorkerConfig        `env:"WORKER" yaml:"worker"`
	Credit        CreditConfig        `env:"CREDIT" yaml:"credit"`
}

// HTTPConfig controls the API server.
type HTTPConfig struct {
	Addr            string        `env:"ADDR" yaml:"addr" default:":8080"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" yaml:"read_timeout" default:"15s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" yaml:"write_timeout" default:"30s"`
	IdleTimeout     time.Duration `env:"IDLE_TIMEOUT" yaml:"idle_timeout" default:"60s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" yaml:"shutdown_timeout" default:"30s"`
}

// DatabaseConfig controls the Postgres pool.
type DatabaseConfig struct {
	DSN             string        `env:"DSN" yaml:"dsn" usage:"PostgreSQL connection URL"`
	MaxConns        int32         `env:"MAX_CONNS" yaml:"max_conns" default:"20"`
	MinConns        int32         `env:"MIN_CONNS" yaml:"min_conns" default:"2"`
	MaxConnLifetime time.Duration `env:"MAX_CONN_LIFETIME" yaml:"max_conn_lifetime" default:"1h"`
	MaxConnIdleTime time.Duration `env:"MAX_CONN_IDLE_TIME" yaml:"max_conn_idle_time" default:"30m"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level string `env:"LEVEL" yaml:"level" default:"info"`
}

// JWTConfig controls access tokens.
type JWTConfig struct {
	Secret string        `env:"SECRET" yaml:"secret"`
	Issuer string        `env:"ISSUER" yaml:"issuer" default:"shopledger"`
	TTL    time.Duration `env:"TTL" yaml:"ttl" default:"12h"`
}

// IdempotencyConfig controls the Idempotency-Key middleware.
type IdempotencyConfig struct {
	Enabled bool          `env:"ENABLED" yaml:"enabled" default:"true"`
	TTL     time.Duration `env:"TTL" yaml:"ttl" default:"24h"`
}

// NotificationsConfig selects the outbox delivery target. An empty URL logs events instead.
type NotificationsConfig struct {
	WebhookURL    string        `env:"WEBHOOK_URL" yaml:"webhook_url"`
	WebhookSecret string        `env:"WEBHOOK_SECRET" yaml:"webhook_secret"`
	Timeout       time.Duration `env:"TIMEOUT" yaml:"timeout" default:"10s"`
	Retries       int           `env:"RETRIES" yaml:"retries" default:"2"`
}

// WorkerConfig controls background jobs.
type WorkerConfig struct {
	OutboxInterval    time.Duration `env:"OUTBOX_INTERVAL" yaml:"outbox_interval" default:"1s"`
	OutboxBatchSize   int           `env:"OUTBOX_BATCH_SIZE" yaml:"outbox_batch_size" default:"100"`
	OutboxMaxRetries  int           `env:"OUTBOX_MAX_RETRIES" yaml:"outbox_max_retries" default:"5"`
	ReminderInterval  time.Duration `env:"REMINDER_INTERVAL" yaml:"reminder_interval" default:"15m"`
	ReminderRepeat    time.Duration `env:"REMINDER_REPEAT" yaml:"reminder_repeat" default:"24h"`
	ReminderBatchSize int           `env:"REMINDER_BATCH_SIZE" yaml:"reminder_batch_size" default:"200"`
	CleanupInterval   time.Duration `env:"CLEANUP_INTERVAL" yaml:"cleanup_interval" default:"1h"`
	ActivityRetention time.Duration `env:"ACTIVITY_RETENTION" yaml:"activity_retention" default:"8760h"`
	OutboxRetention   time.Duration `env:"OUTBOX_RETENTION" yaml:"outbox_retention" default:"168h"`
}

// CreditConfig holds credit sale defaults.
type CreditConfig struct {
	DefaultTermDays int `env:"DEFAULT_TERM_DAYS" yaml:"default_term_days" default:"30"`
}

// IsDevelopment reports whether the service runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Load reads configuration. When files is empty DefaultFiles are tried;
// missing files are skipped.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = DefaultFiles
	}

	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix:          "SHOPLEDGER",
		SkipFlags:          true,
		AllowUnknownEnvs:   true,
		AllowUnknownFields: true,
		Files:              files,
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
			".yml":  aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required settings.
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return errors.New("database DSN is required: set SHOPLEDGER_DATABASE_DSN")
	}
	if c.JWT.Secret == "" {
		if !c.IsDevelopment() {
			return errors.New("jwt secret is required outside development: set SHOPLEDGER_JWT_SECRET")
		}
		c.JWT.Secret = "dev-secret-change-me"
	}
	if c.Credit.DefaultTermDays <= 0 {
		return errors.Errorf("credit default term must be positive, got %d", c.Credit.DefaultTermDays)
	}
	return nil
}
