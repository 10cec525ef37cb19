package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/EgehanKilicarslan/mbs-auth/internal/database/models"
	"github.com/EgehanKilicarslan/mbs-auth/internal/database/repository"
	"github.com/EgehanKilicarslan/mbs-auth/internal/testutil"
)

// These tests pin the PostgreSQL statements the store relies on for its
// compare-and-set semantics.

func newMockStore(t *testing.T) (repository.TokenStore, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return repository.NewTokenStore(db, func() time.Time { return testutil.BaseTime }), mock
}

const (
	countActiveRefreshSQL = `SELECT count\(\*\) FROM "refresh_tokens" WHERE id = \$1 AND status = \$2 AND expired_at > \$3`
	casRefreshSQL         = `UPDATE "refresh_tokens" SET "status"=\$1,"updated_at"=\$2 WHERE id = \$3 AND status = \$4`
	casAccessSQL          = `UPDATE "access_tokens" SET "status"=\$1,"updated_at"=\$2 WHERE id = \$3 AND status = \$4`
)

func TestTokenStoreSQL_ExistsActiveRefreshToken(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(countActiveRefreshSQL).
		WithArgs("refresh-1", models.StatusActive, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	exists, err := store.ExistsActiveRefreshToken(context.Background(), "refresh-1")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenStoreSQL_ExistsActiveRefreshTokenError(t *testing.T) {
	store, mock := newMockStore(t)
	dbErr := errors.New("connection reset")

	mock.ExpectQuery(countActiveRefreshSQL).WillReturnError(dbErr)

	_, err := store.ExistsActiveRefreshToken(context.Background(), "refresh-1")
	assert.ErrorIs(t, err, dbErr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenStoreSQL_SetStatusRevokesRefreshFirst(t *testing.T) {
	store, mock := newMockStore(t)
	refreshID := "refresh-1"
	token := &models.AccessToken{ID: "access-1", Status: models.StatusActive, RefreshTokenID: &refreshID}

	mock.ExpectBegin()
	mock.ExpectExec(casRefreshSQL).
		WithArgs(models.StatusDeleted, sqlmock.AnyArg(), refreshID, models.StatusActive).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(casAccessSQL).
		WithArgs(models.StatusDeleted, sqlmock.AnyArg(), "access-1", models.StatusActive).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, store.SetStatus(context.Background(), token, models.StatusDeleted))
	assert.Equal(t, models.StatusDeleted, token.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenStoreSQL_SetStatusLosingWriterRollsBack(t *testing.T) {
	store, mock := newMockStore(t)
	refreshID := "refresh-1"
	token := &models.AccessToken{ID: "access-1", Status: models.StatusActive, RefreshTokenID: &refreshID}

	mock.ExpectBegin()
	mock.ExpectExec(casRefreshSQL).
		WithArgs(models.StatusDeleted, sqlmock.AnyArg(), refreshID, models.StatusActive).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := store.SetStatus(context.Background(), token, models.StatusDeleted)
	assert.ErrorIs(t, err, repository.ErrTokenNotActive)
	assert.Equal(t, models.StatusActive, token.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenStoreSQL_SetStatusWithoutRefresh(t *testing.T) {
	store, mock := newMockStore(t)
	token := &models.AccessToken{ID: "access-1", Status: models.StatusActive}

	mock.ExpectBegin()
	mock.ExpectExec(casAccessSQL).
		WithArgs(models.StatusDeleted, sqlmock.AnyArg(), "access-1", models.StatusActive).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, store.SetStatus(context.Background(), token, models.StatusDeleted))
	assert.NoError(t, mock.ExpectationsWereMet())
}
