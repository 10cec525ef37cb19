//go:build integration

package repository_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/EgehanKilicarslan/mbs-auth/internal/database"
	"github.com/EgehanKilicarslan/mbs-auth/internal/database/models"
	"github.com/EgehanKilicarslan/mbs-auth/internal/database/repository"
)

var dsn string

func TestMain(m *testing.M) {
	ctx := context.Background()
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "postgres:15-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "postgres",
				"POSTGRES_PASSWORD": "password",
				"POSTGRES_DB":       "mbs_test",
			},
			WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		panic(err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		panic(err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		panic(err)
	}
	dsn = fmt.Sprintf("postgres://postgres:password@%s:%s/mbs_test?sslmode=disable", host, port.Port())

	if err := migrate(ctx); err != nil {
		panic(err)
	}

	code := m.Run()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func migrate(ctx context.Context) error {
	var lastErr error
	for i := 0; i < 20; i++ {
		sqlDB, err := sql.Open("postgres", dsn)
		if err == nil {
			if err = sqlDB.PingContext(ctx); err == nil {
				defer sqlDB.Close()
				return database.RunMigrations(ctx, sqlDB, "up")
			}
			_ = sqlDB.Close()
		}
		lastErr = err
		time.Sleep(500 * time.Millisecond)
	}
	return lastErr
}

func openPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func TestPostgres_TokenLifecycle(t *testing.T) {
	ctx := context.Background()
	db := openPostgres(t)
	users := repository.NewUserRepository(db)
	store := repository.NewTokenStore(db, nil)

	user := &models.User{
		Username: "it-" + uuid.NewString()[:8],
		Email:    uuid.NewString() + "@example.com",
		Password: "hash",
		Status:   models.StatusActive,
		Enabled:  true,
	}
	require.NoError(t, users.Create(ctx, user))
	require.NoError(t, users.AssignRoles(ctx, user, "MEMBER"))

	active, err := users.FindActiveUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Contains(t, active.AuthorityNames(), "READ_BASIC")
	assert.NotContains(t, active.AuthorityNames(), "READ_PRIVILEGE")

	now := time.Now().UTC().Truncate(time.Second)
	access := &models.AccessToken{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Token:     "access",
		ExpiredAt: now.Add(15 * time.Minute),
		Status:    models.StatusActive,
		RefreshToken: &models.RefreshToken{
			ID:        uuid.NewString(),
			Token:     "refresh",
			ExpiredAt: now.Add(time.Hour),
			Status:    models.StatusActive,
		},
	}
	require.NoError(t, store.Save(ctx, access))

	found, err := store.FindActiveAccessToken(ctx, access.ID)
	require.NoError(t, err)
	require.NotNil(t, found.RefreshToken)

	// concurrent revocations of the same pair: exactly one wins
	const workers = 8
	var wg sync.WaitGroup
	start := make(chan struct{})
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			token, err := store.FindActiveAccessToken(ctx, access.ID)
			if err != nil {
				results <- err
				return
			}
			results <- store.SetStatus(ctx, token, models.StatusDeleted)
		}()
	}
	close(start)
	wg.Wait()
	close(results)

	wins := 0
	for err := range results {
		if err == nil {
			wins++
			continue
		}
		assert.True(t,
			errors.Is(err, repository.ErrTokenNotActive) || errors.Is(err, repository.ErrTokenNotFound),
			"unexpected error: %v", err)
	}
	assert.Equal(t, 1, wins)

	exists, err := store.ExistsActiveRefreshToken(ctx, access.RefreshToken.ID)
	require.NoError(t, err)
	assert.False(t, exists)
}
