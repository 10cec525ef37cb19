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

// AccessTokenRepository defines the row operations on access_tokens
type AccessTokenRepository interface {
	Upsert(ctx context.Context, token *models.AccessToken) error
	FindActive(ctx context.Context, id string, now time.Time) (*models.AccessToken, error)
	FindActiveParent(ctx context.Context, id, refreshID string) (*models.AccessToken, error)
	FindActiveByUser(ctx context.Context, userID uint) ([]models.AccessToken, error)
	CompareAndSetStatus(ctx context.Context, id string, from, to models.Status, now time.Time) error
}

type accessTokenRepository struct {
	db *gorm.DB
}

// NewAccessTokenRepository creates a new access token repository instance
func NewAccessTokenRepository(db *gorm.DB) AccessTokenRepository {
	return &accessTokenRepository{db: db}
}

// Upsert writes the access row only; the bound refresh row is written separately.
func (r *accessTokenRepository) Upsert(ctx context.Context, token *models.AccessToken) error {
	return database.Conn(ctx, r.db).
		Omit(clause.Associations).
		Clauses(statusOnlyUpsert(models.AccessToken{}.TableName())).
		Create(token).Error
}

// FindActive returns the live row with its refresh token preloaded.
func (r *accessTokenRepository) FindActive(ctx context.Context, id string, now time.Time) (*models.AccessToken, error) {
	var token models.AccessToken
	err := database.Conn(ctx, r.db).
		Preload("RefreshToken").
		Where("id = ? AND status = ? AND expired_at > ?", id, models.StatusActive, now).
		First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	return &token, nil
}

// FindActiveParent returns the active row bound to refreshID. The access
// expiry is not checked: a pair is usually refreshed after its access token
// has expired, and the refresh row bounds the lifetime of the pair.
func (r *accessTokenRepository) FindActiveParent(ctx context.Context, id, refreshID string) (*models.AccessToken, error) {
	var token models.AccessToken
	err := database.Conn(ctx, r.db).
		Preload("RefreshToken").
		Where("id = ? AND refresh_token_id = ? AND status = ?", id, refreshID, models.StatusActive).
		First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	return &token, nil
}

// FindActiveByUser returns every row of the user still in the active status,
// expired or not.
func (r *accessTokenRepository) FindActiveByUser(ctx context.Context, userID uint) ([]models.AccessToken, error) {
	var tokens []models.AccessToken
	err := database.Conn(ctx, r.db).
		Where("user_id = ? AND status = ?", userID, models.StatusActive).
		Order("created_at").
		Find(&tokens).Error
	return tokens, err
}

func (r *accessTokenRepository) CompareAndSetStatus(ctx context.Context, id string, from, to models.Status, now time.Time) error {
	result := database.Conn(ctx, r.db).
		Model(&models.AccessToken{}).
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
