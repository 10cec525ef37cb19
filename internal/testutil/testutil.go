package testutil

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/EgehanKilicarslan/mbs-auth/internal/config"
	"github.com/EgehanKilicarslan/mbs-auth/internal/database/models"
)

// TestSecret is the base64 form of a 32 byte HMAC key.
const TestSecret = "MDEyMzQ1Njc4OWFiY2RlZjAxMjM0NTY3ODlhYmNkZWY="

// BaseTime is a whole-second instant used as the starting point of test clocks.
var BaseTime = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

// TestConfig returns a config suitable for testing
func TestConfig() *config.Config {
	return &config.Config{
		AppEnv:         "test",
		LogLevel:       slog.LevelError,
		ApiServicePort: "8080",
		ApiGrpcPort:    "50052",
		JWT: config.JWT{
			Secret:                 TestSecret,
			AccessTokenExpiration:  900,
			RefreshTokenExpiration: 604800,
			RefreshNotBefore:       config.RefreshNotBeforeIssuedAt,
		},
		RateLimit: config.RateLimit{AuthPerMinute: 20},
	}
}

// TestLogger returns a silent logger for testing
func TestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Clock is a manually driven clock shared by codec, issuer and store in tests.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// NewTestDB creates a fresh in-memory SQLite database with the schema and the
// MEMBER/ADMIN roles. The pool is limited to one connection so the database
// survives for the whole test and transactions serialize.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	err = db.AutoMigrate(
		&models.Authority{},
		&models.Role{},
		&models.User{},
		&models.RefreshToken{},
		&models.AccessToken{},
	)
	require.NoError(t, err)

	seedRoles(t, db)

	return db
}

func seedRoles(t *testing.T, db *gorm.DB) {
	t.Helper()

	names := []string{
		"READ_BASIC", "WRITE_BASIC", "UPDATE_BASIC", "DELETE_BASIC",
		"READ_PRIVILEGE", "WRITE_PRIVILEGE", "UPDATE_PRIVILEGE", "DELETE_PRIVILEGE",
	}
	authorities := make([]models.Authority, 0, len(names))
	for _, name := range names {
		authorities = append(authorities, models.Authority{Name: name})
	}
	require.NoError(t, db.Create(&authorities).Error)

	member := models.Role{Name: "MEMBER", Status: models.StatusActive, Authorities: authorities[:4]}
	admin := models.Role{Name: "ADMIN", Status: models.StatusActive, Authorities: authorities}
	require.NoError(t, db.Create(&member).Error)
	require.NoError(t, db.Create(&admin).Error)
}

// UserOption tweaks a fixture user before it is stored.
type UserOption func(*models.User)

func WithStatus(status models.Status) UserOption {
	return func(u *models.User) { u.Status = status }
}

func Disabled() UserOption {
	return func(u *models.User) { u.Enabled = false }
}

// CreateUser stores an active, enabled user with the given password and roles.
func CreateUser(t *testing.T, db *gorm.DB, username, password string, roles []string, opts ...UserOption) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		FullName: username,
		Password: string(hash),
		Status:   models.StatusActive,
		Enabled:  true,
	}
	for _, opt := range opts {
		opt(user)
	}
	require.NoError(t, db.WithContext(context.Background()).Create(user).Error)

	if len(roles) > 0 {
		var found []models.Role
		require.NoError(t, db.Where("name IN ?", roles).Find(&found).Error)
		require.Len(t, found, len(roles))
		require.NoError(t, db.Model(user).Association("Roles").Append(found))
	}

	return user
}
