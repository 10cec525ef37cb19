package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// RefreshNotBefore selects the not-before claim written into refresh tokens.
type RefreshNotBefore string

const (
	// RefreshNotBeforeIssuedAt makes a refresh token usable as soon as it is issued.
	RefreshNotBeforeIssuedAt RefreshNotBefore = "issued_at"
	// RefreshNotBeforeAccessExpiry makes a refresh token usable only once its access token has expired.
	RefreshNotBeforeAccessExpiry RefreshNotBefore = "access_expiry"
)

// MinSigningKeyBytes is the shortest HMAC key accepted after base64 decoding.
const MinSigningKeyBytes = 32

// MaxClockSkew bounds the leeway applied to time-based claims.
const MaxClockSkew = 120 * time.Second

type Config struct {
	AppEnv         string     `env:"APP_ENV" envDefault:"development"`
	LogLevel       slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	ApiServicePort string     `env:"API_SERVICE_PORT" envDefault:"8080"`
	ApiGrpcPort    string     `env:"API_GRPC_PORT" envDefault:"50052"`

	PostgreSQL PostgreSQL `envPrefix:"POSTGRESQL_"`
	Redis      Redis      `envPrefix:"REDIS_"`
	JWT        JWT        `envPrefix:"JWT_"`
	RateLimit  RateLimit  `envPrefix:"RATE_LIMIT_"`
}

// PostgreSQL holds the connection parameters of the token database.
type PostgreSQL struct {
	Host     string `env:"HOST" envDefault:"db"`
	Port     int64  `env:"PORT" envDefault:"5432"`
	User     string `env:"USER" envDefault:"mbs_user"`
	Password string `env:"PASSWORD" envDefault:"mbs_password"`
	Database string `env:"DATABASE" envDefault:"mbs_db"`
	SSLMode  string `env:"SSLMODE" envDefault:"disable"`
}

// Redis holds the connection parameters of the revocation cache and rate limiter.
type Redis struct {
	Host     string `env:"HOST" envDefault:"redis"`
	Port     int64  `env:"PORT" envDefault:"6379"`
	Password string `env:"PASSWORD" envDefault:""`
	Database int64  `env:"DATABASE" envDefault:"0"`
}

// JWT holds token signing and lifetime settings. Durations are in seconds.
type JWT struct {
	Secret                 string           `env:"SECRET,required"`
	AccessTokenExpiration  int64            `env:"ACCESS_TOKEN_EXPIRATION" envDefault:"900"`     // 15 minutes
	RefreshTokenExpiration int64            `env:"REFRESH_TOKEN_EXPIRATION" envDefault:"604800"` // 7 days
	ClockSkew              int64            `env:"CLOCK_SKEW" envDefault:"0"`
	RefreshNotBefore       RefreshNotBefore `env:"REFRESH_NOT_BEFORE" envDefault:"issued_at"`
}

// RateLimit configures the per-client limit on the public auth endpoints.
type RateLimit struct {
	AuthPerMinute int64 `env:"AUTH_PER_MINUTE" envDefault:"20"`
}

// Config errors
var (
	ErrWeakSecret         = errors.New("jwt secret must be base64 and decode to at least 32 bytes")
	ErrInvalidExpiration  = errors.New("token expirations must be positive and refresh must not be shorter than access")
	ErrInvalidClockSkew   = errors.New("clock skew must be between 0 and 120 seconds")
	ErrInvalidNotBefore   = errors.New("unknown refresh not-before policy")
	ErrInvalidRateLimit   = errors.New("rate limit must not be negative")
	ErrInvalidServicePort = errors.New("service ports must not be empty")
)

// LoadConfig parses the environment and validates the result.
func LoadConfig() (*Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the invariants the token services rely on.
func (c *Config) Validate() error {
	if c.ApiServicePort == "" || c.ApiGrpcPort == "" {
		return ErrInvalidServicePort
	}

	if _, err := c.JWT.SigningKey(); err != nil {
		return err
	}

	if c.JWT.AccessTokenExpiration <= 0 || c.JWT.RefreshTokenExpiration <= 0 ||
		c.JWT.RefreshTokenExpiration < c.JWT.AccessTokenExpiration {
		return ErrInvalidExpiration
	}

	if c.JWT.ClockSkew < 0 || c.JWT.Leeway() > MaxClockSkew {
		return ErrInvalidClockSkew
	}

	switch c.JWT.RefreshNotBefore {
	case RefreshNotBeforeIssuedAt, RefreshNotBeforeAccessExpiry:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidNotBefore, c.JWT.RefreshNotBefore)
	}

	if c.RateLimit.AuthPerMinute < 0 {
		return ErrInvalidRateLimit
	}

	return nil
}

// IsProduction reports whether the service runs with production defaults.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// SigningKey decodes the base64 secret into the HMAC key.
func (j JWT) SigningKey() ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(j.Secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWeakSecret, err)
	}
	if len(key) < MinSigningKeyBytes {
		return nil, ErrWeakSecret
	}
	return key, nil
}

func (j JWT) AccessTTL() time.Duration {
	return time.Duration(j.AccessTokenExpiration) * time.Second
}

func (j JWT) RefreshTTL() time.Duration {
	return time.Duration(j.RefreshTokenExpiration) * time.Second
}

// Leeway is the tolerance applied to exp, nbf and iat checks.
func (j JWT) Leeway() time.Duration {
	return time.Duration(j.ClockSkew) * time.Second
}

// DSN builds the key/value connection string understood by pgx and lib/pq.
func (p PostgreSQL) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%d sslmode=%s TimeZone=UTC",
		p.Host,
		p.User,
		p.Password,
		p.Database,
		p.Port,
		p.SSLMode,
	)
}

func (r Redis) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
