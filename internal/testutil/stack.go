package testutil

import (
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/EgehanKilicarslan/mbs-auth/internal/config"
	"github.com/EgehanKilicarslan/mbs-auth/internal/database"
	"github.com/EgehanKilicarslan/mbs-auth/internal/database/repository"
	"github.com/EgehanKilicarslan/mbs-auth/internal/database/service"
	"github.com/EgehanKilicarslan/mbs-auth/internal/token"
)

// AuthStack is the token subsystem wired over a test database and clock.
type AuthStack struct {
	DB        *gorm.DB
	Clock     *Clock
	Config    *config.Config
	Codec     *token.Codec
	Users     repository.UserRepository
	Store     repository.TokenStore
	Issuer    service.TokenIssuer
	Validator service.TokenValidator
	Refresher service.RefreshCoordinator
	Auth      service.AuthService
	Revoked   database.RevocationCache
}

// StackOption adjusts the config or the denylist of a test stack.
type StackOption func(*stackOptions)

type stackOptions struct {
	cfg   *config.Config
	redis *redis.Client
}

func WithConfig(fn func(*config.Config)) StackOption {
	return func(o *stackOptions) { fn(o.cfg) }
}

// WithRedis backs the revocation denylist with client, driven by the stack clock.
func WithRedis(client *redis.Client) StackOption {
	return func(o *stackOptions) { o.redis = client }
}

// NewAuthStack builds a fresh database and wires every token service over it.
// All components share one clock starting at BaseTime.
func NewAuthStack(t *testing.T, opts ...StackOption) *AuthStack {
	t.Helper()

	o := &stackOptions{cfg: TestConfig()}
	for _, opt := range opts {
		opt(o)
	}
	require.NoError(t, o.cfg.Validate())

	db := NewTestDB(t)
	clock := NewClock(BaseTime)
	logger := TestLogger()

	var revoked database.RevocationCache = database.NoOpRevocationCache{}
	if o.redis != nil {
		revoked = database.NewRedisClientWith(o.redis, logger, clock.Now)
	}

	key, err := o.cfg.JWT.SigningKey()
	require.NoError(t, err)
	codec, err := token.NewCodec(key, o.cfg.JWT.Leeway(), clock.Now)
	require.NoError(t, err)

	users := repository.NewUserRepository(db)
	store := repository.NewTokenStore(db, clock.Now)
	principals := service.NewPrincipalResolver(users)
	issuer := service.NewTokenIssuer(codec, store, o.cfg.JWT, clock.Now, logger)
	validator := service.NewTokenValidator(codec, store, principals, revoked, logger)
	refresher := service.NewRefreshCoordinator(codec, store, issuer, principals, revoked, logger)

	return &AuthStack{
		DB:        db,
		Clock:     clock,
		Config:    o.cfg,
		Codec:     codec,
		Users:     users,
		Store:     store,
		Issuer:    issuer,
		Validator: validator,
		Refresher: refresher,
		Auth:      service.NewAuthService(users, store, issuer, validator, refresher, revoked, logger),
		Revoked:   revoked,
	}
}
