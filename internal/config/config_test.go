package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "MDEyMzQ1Njc4OWFiY2RlZjAxMjM0NTY3ODlhYmNkZWY=" // 32 bytes

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ApiServicePort)
	assert.Equal(t, "50052", cfg.ApiGrpcPort)
	assert.Equal(t, int64(900), cfg.JWT.AccessTokenExpiration)
	assert.Equal(t, int64(604800), cfg.JWT.RefreshTokenExpiration)
	assert.Equal(t, int64(0), cfg.JWT.ClockSkew)
	assert.Equal(t, RefreshNotBeforeIssuedAt, cfg.JWT.RefreshNotBefore)
	assert.Equal(t, int64(20), cfg.RateLimit.AuthPerMinute)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr())
	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessTTL())
	assert.Equal(t, 7*24*time.Hour, cfg.JWT.RefreshTTL())
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("API_SERVICE_PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("POSTGRESQL_HOST", "localhost")
	t.Setenv("POSTGRESQL_PORT", "6543")
	t.Setenv("JWT_ACCESS_TOKEN_EXPIRATION", "60")
	t.Setenv("JWT_REFRESH_TOKEN_EXPIRATION", "3600")
	t.Setenv("JWT_CLOCK_SKEW", "30")
	t.Setenv("JWT_REFRESH_NOT_BEFORE", "access_expiry")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.ApiServicePort)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, time.Minute, cfg.JWT.AccessTTL())
	assert.Equal(t, time.Hour, cfg.JWT.RefreshTTL())
	assert.Equal(t, 30*time.Second, cfg.JWT.Leeway())
	assert.Equal(t, RefreshNotBeforeAccessExpiry, cfg.JWT.RefreshNotBefore)
	assert.Contains(t, cfg.PostgreSQL.DSN(), "host=localhost")
	assert.Contains(t, cfg.PostgreSQL.DSN(), "port=6543")
}

func TestLoadConfig_MissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			ApiServicePort: "8080",
			ApiGrpcPort:    "50052",
			JWT: JWT{
				Secret:                 testSecret,
				AccessTokenExpiration:  900,
				RefreshTokenExpiration: 604800,
				RefreshNotBefore:       RefreshNotBeforeIssuedAt,
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "secret not base64", mutate: func(c *Config) { c.JWT.Secret = "not base64!" }, wantErr: ErrWeakSecret},
		{name: "secret too short", mutate: func(c *Config) { c.JWT.Secret = "c2hvcnQtc2VjcmV0" }, wantErr: ErrWeakSecret},
		{name: "zero access ttl", mutate: func(c *Config) { c.JWT.AccessTokenExpiration = 0 }, wantErr: ErrInvalidExpiration},
		{name: "negative refresh ttl", mutate: func(c *Config) { c.JWT.RefreshTokenExpiration = -1 }, wantErr: ErrInvalidExpiration},
		{
			name: "refresh shorter than access",
			mutate: func(c *Config) {
				c.JWT.AccessTokenExpiration = 600
				c.JWT.RefreshTokenExpiration = 300
			},
			wantErr: ErrInvalidExpiration,
		},
		{name: "negative skew", mutate: func(c *Config) { c.JWT.ClockSkew = -1 }, wantErr: ErrInvalidClockSkew},
		{name: "skew too large", mutate: func(c *Config) { c.JWT.ClockSkew = 121 }, wantErr: ErrInvalidClockSkew},
		{name: "max skew", mutate: func(c *Config) { c.JWT.ClockSkew = 120 }},
		{name: "unknown not-before policy", mutate: func(c *Config) { c.JWT.RefreshNotBefore = "later" }, wantErr: ErrInvalidNotBefore},
		{name: "negative rate limit", mutate: func(c *Config) { c.RateLimit.AuthPerMinute = -5 }, wantErr: ErrInvalidRateLimit},
		{name: "empty grpc port", mutate: func(c *Config) { c.ApiGrpcPort = "" }, wantErr: ErrInvalidServicePort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestJWT_SigningKey(t *testing.T) {
	key, err := JWT{Secret: testSecret}.SigningKey()
	require.NoError(t, err)
	assert.Equal(t, []byte("0123456789abcdef0123456789abcdef"), key)
}
