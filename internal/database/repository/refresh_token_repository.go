package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/EgehanKilicarslan/mbs-auth/internal/database"
	"github.com/EgehanKilicarslan/mbs-auth/internal/database/models"
)

// RefreshTokenRepository defines the row operations on refresh_tokens
type RefreshTokenRepository interface {
	Upsert(ctx context.Context, token *models.RefreshToken) error
	ExistsActive(ctx context.Context, id string, now time.Time) (bool, error)
	CompareAndSetStatus(ctx context.Context, id string, from, to models.Status, now time.Time) error
	SetStatusIn(ctx context.Context, ids []string, from, to models.Status, now time.Time) (int64, error)
}

type refreshTokenRepository struct {
	db *gorm.DB
}

// NewRefreshTokenRepository creates a new refresh token repository instance
func NewRefreshTokenRepository(db *gorm.DB) RefreshTokenRepository {
	return &refreshTokenRepository{db: db}
}

// Upsert inserts the row; on an id conflict only the status may change.
func (r *refreshTokenRepository) Upsert(ctx context.Context, token *models.RefreshToken) error {
	return database.Conn(ctx, r.db).
		Clauses(statusOnlyUpsert(models.RefreshToken{}.TableName())).
		Create(token).Error
}

func (r *refreshTokenRepository) ExistsActive(ctx context.Context, id string, now time.Time) (bool, error) {
	var count int64
	err := database.Conn(ctx, r.db).
		Model(&models.RefreshToken{}).
		Where("id = ? AND status = ? AND expired_at > ?", id, models.StatusActive, now).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// CompareAndSetStatus moves the row from one status to another. It returns
// ErrTokenNotActive when the row is missing or no longer in the from status,
// which is how a concurrent writer that got there first shows up.
func (r *refreshTokenRepository) CompareAndSetStatus(ctx context.Context, id string, from, to models.Status, now time.Time) error {
	result := database.Conn(ctx, r.db).
		Model(&models.RefreshToken{}).
		Where("id = ?", id).
		Where("status = ?", from).
		Updates(map[string]any{"status": to, "updated_at": now})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTokenNotActive
	}
	return nil
}

func (r *refreshTokenRepository) SetStatusIn(ctx context.Context, ids []string, from, to models.Status, now time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := database.Conn(ctx, r.db).
		Model(&models.RefreshToken{}).
		Where("id IN ?", ids).
		Where("status = ?", from).
		Updates(map[string]any{"status": to, "updated_at": now})
	return result.RowsAffected, result.Error
}

// statusOnlyUpsert keeps token, expiry and links immutable once written, and
// only lets an id conflict touch rows that are still active so a revoked row
// never becomes active again.
func statusOnlyUpsert(table string) clause.OnConflict {
	return clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "updated_at"}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Expr{SQL: table + ".status = ?", Vars: []any{models.StatusActive}},
		}},
	}
}

// Repository errors
var (
	ErrTokenNotFound  = errors.New("token not found")
	ErrTokenNotActive = errors.New("token is no longer active")
)
