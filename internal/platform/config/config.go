package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	pkgstrings "claimdesk/pkg/platform/strings"
)

const devSigningKey = "dev-secret-key-change-in-production"

// Config is the full process configuration, read once at startup.
type Config struct {
	Environment string `env:"CLAIMDESK_ENV" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	Server    Server
	Database  DatabaseConfig
	Redis     RedisConfig
	SMTP      SMTPConfig
	Kafka     KafkaConfig
	Claims    ClaimsConfig
	Identity  IdentityConfig
	RateLimit RateLimitConfig

	OTelEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `env:"CLAIMDESK_ADDR" envDefault:":8080"`
	ReadTimeout     time.Duration `env:"CLAIMDESK_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout    time.Duration `env:"CLAIMDESK_WRITE_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"CLAIMDESK_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	JWTSigningKey   string        `env:"JWT_SIGNING_KEY" envDefault:"dev-secret-key-change-in-production"`
	SeedDemoData    bool          `env:"CLAIMDESK_SEED_DEMO" envDefault:"false"`
}

// DatabaseConfig selects PostgreSQL. An empty URL runs on in-memory stores.
type DatabaseConfig struct {
	URL             string        `env:"DATABASE_URL"`
	MaxOpenConns    int           `env:"DATABASE_MAX_OPEN_CONNS" envDefault:"20"`
	MaxIdleConns    int           `env:"DATABASE_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"DATABASE_CONN_MAX_LIFETIME" envDefault:"30m"`
	AutoMigrate     bool          `env:"DATABASE_AUTO_MIGRATE" envDefault:"true"`
}

// RedisConfig selects the Redis submission lock. An empty URL keeps the lock
// in process.
type RedisConfig struct {
	URL          string        `env:"REDIS_URL"`
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

// SMTPConfig selects the SMTP relay. An empty host logs messages instead.
type SMTPConfig struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT" envDefault:"587"`
	Username string `env:"SMTP_USERNAME"`
	Password string `env:"SMTP_PASSWORD"`
	From     string `env:"SMTP_FROM" envDefault:"no-reply@claimdesk.local"`
}

// KafkaConfig enables the audit topic. Empty brokers disable it.
type KafkaConfig struct {
	Brokers    string `env:"KAFKA_BROKERS"`
	AuditTopic string `env:"KAFKA_AUDIT_TOPIC" envDefault:"claimdesk.audit"`
}

// BrokerList splits KAFKA_BROKERS on commas.
func (k KafkaConfig) BrokerList() []string {
	return pkgstrings.SplitList(k.Brokers)
}

// ClaimsConfig tunes the claim workflow.
type ClaimsConfig struct {
	SupervisorTokenTTL   time.Duration `env:"CLAIM_SUPERVISOR_TOKEN_TTL" envDefault:"168h"`
	SupervisorSuccessURL string        `env:"SUPERVISOR_SUCCESS_URL" envDefault:"http://localhost:3000/claims/supervisor-verified"`
	BusinessReturnURL    string        `env:"BUSINESS_RETURN_URL" envDefault:"http://localhost:3000/claims/verified"`
	PublicBaseURL        string        `env:"CLAIMDESK_PUBLIC_URL" envDefault:"http://localhost:8080"`
	LockTTL              time.Duration `env:"CLAIM_LOCK_TTL" envDefault:"30s"`
}

// IdentityConfig tunes the local identity provider.
type IdentityConfig struct {
	BaseURL             string        `env:"IDENTITY_BASE_URL" envDefault:"http://localhost:8080"`
	VerificationLinkTTL time.Duration `env:"IDENTITY_VERIFICATION_TTL" envDefault:"24h"`
	AccessTokenTTL      time.Duration `env:"IDENTITY_ACCESS_TOKEN_TTL" envDefault:"1h"`
	Issuer              string        `env:"IDENTITY_ISSUER" envDefault:"claimdesk"`
}

// RateLimitConfig bounds requests per client IP. Claim routes share one
// window, identity routes another.
type RateLimitConfig struct {
	Disabled         bool          `env:"RATE_LIMIT_DISABLED" envDefault:"false"`
	ClaimsRequests   int           `env:"RATE_LIMIT_CLAIMS_REQUESTS" envDefault:"60"`
	ClaimsWindow     time.Duration `env:"RATE_LIMIT_CLAIMS_WINDOW" envDefault:"1m"`
	IdentityRequests int           `env:"RATE_LIMIT_IDENTITY_REQUESTS" envDefault:"10"`
	IdentityWindow   time.Duration `env:"RATE_LIMIT_IDENTITY_WINDOW" envDefault:"1m"`
}

// IsProduction reports whether the process runs with production defaults.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate collects every configuration problem instead of stopping at the first.
func (c Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("CLAIMDESK_ADDR is required"))
	}
	if c.IsProduction() && c.Server.JWTSigningKey == devSigningKey {
		errs = append(errs, errors.New("JWT_SIGNING_KEY must be set in production"))
	}
	if len(c.Server.JWTSigningKey) < 16 {
		errs = append(errs, errors.New("JWT_SIGNING_KEY must be at least 16 bytes"))
	}
	if c.Claims.SupervisorTokenTTL <= 0 {
		errs = append(errs, errors.New("CLAIM_SUPERVISOR_TOKEN_TTL must be positive"))
	}
	if c.Claims.LockTTL <= 0 {
		errs = append(errs, errors.New("CLAIM_LOCK_TTL must be positive"))
	}
	if c.Identity.VerificationLinkTTL <= 0 || c.Identity.AccessTokenTTL <= 0 {
		errs = append(errs, errors.New("identity token lifetimes must be positive"))
	}
	for name, raw := range map[string]string{
		"SUPERVISOR_SUCCESS_URL": c.Claims.SupervisorSuccessURL,
		"BUSINESS_RETURN_URL":    c.Claims.BusinessReturnURL,
		"CLAIMDESK_PUBLIC_URL":   c.Claims.PublicBaseURL,
		"IDENTITY_BASE_URL":      c.Identity.BaseURL,
	} {
		if u, err := url.Parse(raw); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("%s must be an absolute URL", name))
		}
	}
	if !c.RateLimit.Disabled {
		if c.RateLimit.ClaimsRequests <= 0 || c.RateLimit.ClaimsWindow <= 0 ||
			c.RateLimit.IdentityRequests <= 0 || c.RateLimit.IdentityWindow <= 0 {
			errs = append(errs, errors.New("rate limit requests and windows must be positive"))
		}
	}
	if c.SMTP.Host != "" && (c.SMTP.Port <= 0 || c.SMTP.From == "") {
		errs = append(errs, errors.New("SMTP_PORT and SMTP_FROM are required when SMTP_HOST is set"))
	}
	if c.Kafka.Brokers != "" && c.Kafka.AuditTopic == "" {
		errs = append(errs, errors.New("KAFKA_AUDIT_TOPIC is required when KAFKA_BROKERS is set"))
	}
	return errors.Join(errs...)
}
