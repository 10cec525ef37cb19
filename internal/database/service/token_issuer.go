package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/EgehanKilicarslan/mbs-auth/internal/config"
	"github.com/EgehanKilicarslan/mbs-auth/internal/database/models"
	"github.com/EgehanKilicarslan/mbs-auth/internal/database/repository"
	"github.com/EgehanKilicarslan/mbs-auth/internal/security"
	"github.com/EgehanKilicarslan/mbs-auth/internal/token"
)

// TokenPair is the result of an issuance. RefreshToken is empty when
// persistent login was not requested.
type TokenPair struct {
	AccessToken   string
	RefreshToken  string
	AccessTokenID string
	ExpiresAt     time.Time
	ExpiresIn     int64
}

// TokenIssuer mints access tokens and their optional refresh tokens and
// records both in the token store.
type TokenIssuer interface {
	Issue(ctx context.Context, principal *security.Principal, rememberMe bool) (*TokenPair, error)
}

type tokenIssuer struct {
	codec      *token.Codec
	store      repository.TokenStore
	accessTTL  time.Duration
	refreshTTL time.Duration
	notBefore  config.RefreshNotBefore
	now        func() time.Time
	logger     *slog.Logger
}

// NewTokenIssuer creates a new token issuer. now must be the clock the codec
// and the store use.
func NewTokenIssuer(
	codec *token.Codec,
	store repository.TokenStore,
	cfg config.JWT,
	now func() time.Time,
	logger *slog.Logger,
) TokenIssuer {
	if now == nil {
		now = time.Now
	}
	return &tokenIssuer{
		codec:      codec,
		store:      store,
		accessTTL:  cfg.AccessTTL(),
		refreshTTL: cfg.RefreshTTL(),
		notBefore:  cfg.RefreshNotBefore,
		now:        now,
		logger:     logger,
	}
}

func (s *tokenIssuer) Issue(ctx context.Context, principal *security.Principal, rememberMe bool) (*TokenPair, error) {
	// NumericDate has second precision; truncating keeps row and claim expiries equal.
	issuedAt := s.now().UTC().Truncate(time.Second)
	accessExpiry := issuedAt.Add(s.accessTTL)

	accessID := uuid.NewString()
	accessString, err := s.codec.Encode(token.Claims{
		ID:        accessID,
		Audience:  token.AudienceAccess,
		Subject:   strconv.FormatUint(uint64(principal.UserID), 10),
		IssuedAt:  issuedAt,
		NotBefore: issuedAt,
		ExpiresAt: accessExpiry,
	})
	if err != nil {
		return nil, err
	}

	row := &models.AccessToken{
		ID:        accessID,
		UserID:    principal.UserID,
		Token:     accessString,
		ExpiredAt: accessExpiry,
		Status:    models.StatusActive,
	}
	pair := &TokenPair{
		AccessToken:   accessString,
		AccessTokenID: accessID,
		ExpiresAt:     accessExpiry,
		ExpiresIn:     int64(s.accessTTL / time.Second),
	}

	if rememberMe {
		notBefore := issuedAt
		if s.notBefore == config.RefreshNotBeforeAccessExpiry {
			notBefore = accessExpiry
		}

		refreshID := uuid.NewString()
		refreshExpiry := issuedAt.Add(s.refreshTTL)
		refreshString, err := s.codec.Encode(token.Claims{
			ID:        refreshID,
			Audience:  token.AudienceRefresh,
			Subject:   accessID,
			IssuedAt:  issuedAt,
			NotBefore: notBefore,
			ExpiresAt: refreshExpiry,
		})
		if err != nil {
			return nil, err
		}

		row.RefreshToken = &models.RefreshToken{
			ID:        refreshID,
			Token:     refreshString,
			ExpiredAt: refreshExpiry,
			Status:    models.StatusActive,
		}
		pair.RefreshToken = refreshString
	}

	if err := s.store.Save(ctx, row); err != nil {
		s.logger.Error("❌ [TokenIssuer] Failed to store tokens", "user_id", principal.UserID, "error", err)
		return nil, fmt.Errorf("failed to issue tokens: %w", err)
	}

	s.logger.Debug("🎟️ [TokenIssuer] Tokens issued",
		"user_id", principal.UserID,
		"access_token_id", accessID,
		"remember_me", rememberMe,
	)
	return pair, nil
}
