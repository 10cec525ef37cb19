package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/EgehanKilicarslan/mbs-auth/internal/database"
	"github.com/EgehanKilicarslan/mbs-auth/internal/database/models"
)

// TokenStore persists access tokens together with their bound refresh tokens.
// A token is live when its status is active and the store clock is before its
// expiry.
type TokenStore interface {
	// Transaction runs fn atomically; store calls made with the ctx passed to
	// fn join the same transaction.
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
	ExistsActiveRefreshToken(ctx context.Context, id string) (bool, error)
	FindActiveAccessToken(ctx context.Context, id string) (*models.AccessToken, error)
	// FindRefreshParent returns the active access row that refreshID is bound
	// to, whether or not the access token itself has expired.
	FindRefreshParent(ctx context.Context, accessID, refreshID string) (*models.AccessToken, error)
	Save(ctx context.Context, token *models.AccessToken) error
	SetStatus(ctx context.Context, token *models.AccessToken, status models.Status) error
	RevokeAllForUser(ctx context.Context, userID uint) ([]models.AccessToken, error)
}

type tokenStore struct {
	db            *gorm.DB
	accessTokens  AccessTokenRepository
	refreshTokens RefreshTokenRepository
	now           func() time.Time
}

// NewTokenStore creates a token store over db. now defaults to time.Now.
func NewTokenStore(db *gorm.DB, now func() time.Time) TokenStore {
	if now == nil {
		now = time.Now
	}
	return &tokenStore{
		db:            db,
		accessTokens:  NewAccessTokenRepository(db),
		refreshTokens: NewRefreshTokenRepository(db),
		now:           now,
	}
}

func (s *tokenStore) clock() time.Time {
	return s.now().UTC()
}

func (s *tokenStore) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return database.WithTransaction(ctx, s.db, fn)
}

func (s *tokenStore) ExistsActiveRefreshToken(ctx context.Context, id string) (bool, error) {
	ok, err := s.refreshTokens.ExistsActive(ctx, id, s.clock())
	if err != nil {
		return false, fmt.Errorf("failed to look up refresh token: %w", err)
	}
	return ok, nil
}

func (s *tokenStore) FindActiveAccessToken(ctx context.Context, id string) (*models.AccessToken, error) {
	token, err := s.accessTokens.FindActive(ctx, id, s.clock())
	if err != nil && !errors.Is(err, ErrTokenNotFound) {
		return nil, fmt.Errorf("failed to look up access token: %w", err)
	}
	return token, err
}

func (s *tokenStore) FindRefreshParent(ctx context.Context, accessID, refreshID string) (*models.AccessToken, error) {
	token, err := s.accessTokens.FindActiveParent(ctx, accessID, refreshID)
	if err != nil && !errors.Is(err, ErrTokenNotFound) {
		return nil, fmt.Errorf("failed to look up access token: %w", err)
	}
	return token, err
}

// Save writes the access row and, when present, its refresh row in one
// transaction. The refresh row goes first so the forward link resolves.
func (s *tokenStore) Save(ctx context.Context, token *models.AccessToken) error {
	return s.Transaction(ctx, func(ctx context.Context) error {
		if token.RefreshToken != nil {
			id := token.RefreshToken.ID
			token.RefreshTokenID = &id
			if err := s.refreshTokens.Upsert(ctx, token.RefreshToken); err != nil {
				return fmt.Errorf("failed to save refresh token: %w", err)
			}
		}
		if err := s.accessTokens.Upsert(ctx, token); err != nil {
			return fmt.Errorf("failed to save access token: %w", err)
		}
		return nil
	})
}

// SetStatus moves token from its loaded status to status. Revocation cascades
// to the bound refresh token, which is updated first: its compare-and-set is
// where concurrent refreshes of the same pair are decided. ErrTokenNotActive
// means another writer changed either row first.
func (s *tokenStore) SetStatus(ctx context.Context, token *models.AccessToken, status models.Status) error {
	now := s.clock()

	err := s.Transaction(ctx, func(ctx context.Context) error {
		if status == models.StatusDeleted && token.RefreshTokenID != nil {
			if err := s.refreshTokens.CompareAndSetStatus(ctx, *token.RefreshTokenID, models.StatusActive, status, now); err != nil {
				return err
			}
		}
		return s.accessTokens.CompareAndSetStatus(ctx, token.ID, token.Status, status, now)
	})
	if err != nil {
		if errors.Is(err, ErrTokenNotActive) {
			return err
		}
		return fmt.Errorf("failed to update token status: %w", err)
	}

	token.Status = status
	if token.RefreshToken != nil && status == models.StatusDeleted {
		token.RefreshToken.Status = status
	}
	return nil
}

// RevokeAllForUser revokes every active pair of the user and returns the
// access rows that were revoked.
func (s *tokenStore) RevokeAllForUser(ctx context.Context, userID uint) ([]models.AccessToken, error) {
	now := s.clock()
	var revoked []models.AccessToken

	err := s.Transaction(ctx, func(ctx context.Context) error {
		tokens, err := s.accessTokens.FindActiveByUser(ctx, userID)
		if err != nil {
			return err
		}

		refreshIDs := make([]string, 0, len(tokens))
		for _, t := range tokens {
			if t.RefreshTokenID != nil {
				refreshIDs = append(refreshIDs, *t.RefreshTokenID)
			}
		}
		if _, err := s.refreshTokens.SetStatusIn(ctx, refreshIDs, models.StatusActive, models.StatusDeleted, now); err != nil {
			return err
		}

		for _, t := range tokens {
			err := s.accessTokens.CompareAndSetStatus(ctx, t.ID, models.StatusActive, models.StatusDeleted, now)
			if errors.Is(err, ErrTokenNotActive) {
				continue
			}
			if err != nil {
				return err
			}
			t.Status = models.StatusDeleted
			revoked = append(revoked, t)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to revoke user tokens: %w", err)
	}

	return revoked, nil
}
