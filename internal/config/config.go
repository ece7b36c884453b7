package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/vyomverma2873-dotcom/quicksnack-auth/pkg/config"
	"github.com/vyomverma2873-dotcom/quicksnack-auth/pkg/database"
)

const defaultJWTSecret = "change-this-to-a-secure-secret"

// Config holds all configuration for the auth service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"AUTH_HTTP_PORT" envDefault:"8001"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"quicksnack"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"quicksnack_secret"`
	PostgresDB   string `env:"AUTH_DB_NAME" envDefault:"auth_db"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Redis (issuance rate limiting); optional — empty host disables throttling.
	RedisHost string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPass string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// Delivery channel: "kafka" queues emails on the notification topic,
	// "mock" logs them (local development).
	SenderChannel string `env:"SENDER_CHANNEL" envDefault:"kafka"`

	// JWT session tokens
	JWTSecret        string        `env:"JWT_SECRET" envDefault:"change-this-to-a-secure-secret"`
	JWTSessionExpiry time.Duration `env:"JWT_SESSION_EXPIRY" envDefault:"168h"`

	// One-time passcodes
	OTPTTL           time.Duration `env:"OTP_TTL" envDefault:"10m"`
	OTPMaxAttempts   int           `env:"OTP_MAX_ATTEMPTS" envDefault:"3"`
	OTPBcryptCost    int           `env:"OTP_BCRYPT_COST" envDefault:"10"`
	OTPRateLimit     int           `env:"OTP_RATE_LIMIT" envDefault:"5"`
	OTPRateWindow    time.Duration `env:"OTP_RATE_WINDOW" envDefault:"1h"`
	OTPSweepInterval time.Duration `env:"OTP_SWEEP_INTERVAL" envDefault:"5m"`

	// Password hashing
	PasswordBcryptCost int `env:"PASSWORD_BCRYPT_COST" envDefault:"12"`

	// Tracing
	TracingEnabled  bool    `env:"TRACING_ENABLED" envDefault:"false"`
	OTLPEndpoint    string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	TraceSampleRate float64 `env:"TRACE_SAMPLE_RATE" envDefault:"0.1"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load auth config: %w", err)
	}
	if cfg.HTTPPort < 1 || cfg.HTTPPort > 65535 {
		return nil, fmt.Errorf("invalid HTTP port: %d", cfg.HTTPPort)
	}
	if cfg.OTPMaxAttempts < 1 {
		return nil, fmt.Errorf("OTP_MAX_ATTEMPTS must be at least 1, got %d", cfg.OTPMaxAttempts)
	}
	if cfg.OTPTTL <= 0 {
		return nil, fmt.Errorf("OTP_TTL must be positive, got %s", cfg.OTPTTL)
	}
	if cfg.SenderChannel != "kafka" && cfg.SenderChannel != "mock" {
		return nil, fmt.Errorf("SENDER_CHANNEL must be kafka or mock, got %q", cfg.SenderChannel)
	}

	// In non-development environments, require an explicitly set, strong JWT secret.
	if cfg.Environment != "development" {
		if cfg.JWTSecret == defaultJWTSecret {
			return nil, fmt.Errorf("JWT_SECRET must be explicitly set via environment variable in %q mode", cfg.Environment)
		}
		if len(cfg.JWTSecret) < 32 {
			return nil, fmt.Errorf("JWT_SECRET must be at least 32 characters long, got %d", len(cfg.JWTSecret))
		}
	}

	return cfg, nil
}

// Postgres returns the pool configuration for the auth database.
func (c *Config) Postgres() *database.PostgresConfig {
	return &database.PostgresConfig{
		Host:     c.PostgresHost,
		Port:     c.PostgresPort,
		User:     c.PostgresUser,
		Password: c.PostgresPass,
		DBName:   c.PostgresDB,
		SSLMode:  c.PostgresSSL,
	}
}

// Redis returns the client configuration for the rate-limiter store.
func (c *Config) Redis() database.RedisConfig {
	return database.RedisConfig{
		Host:     c.RedisHost,
		Port:     c.RedisPort,
		Password: c.RedisPass,
		DB:       c.RedisDB,
	}
}
