package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/EgehanKilicarslan/mbs-auth/internal/database"
	"github.com/EgehanKilicarslan/mbs-auth/internal/database/repository"
	"github.com/EgehanKilicarslan/mbs-auth/internal/security"
	"github.com/EgehanKilicarslan/mbs-auth/internal/token"
)

// TokenValidator authorizes bearer access tokens.
type TokenValidator interface {
	Authorize(ctx context.Context, raw string) (*security.Principal, error)
}

type tokenValidator struct {
	codec      *token.Codec
	store      repository.TokenStore
	principals *PrincipalResolver
	revoked    database.RevocationCache
	logger     *slog.Logger
}

// NewTokenValidator creates a new token validator. revoked may be nil when no
// denylist is available; the store is checked either way.
func NewTokenValidator(
	codec *token.Codec,
	store repository.TokenStore,
	principals *PrincipalResolver,
	revoked database.RevocationCache,
	logger *slog.Logger,
) TokenValidator {
	if revoked == nil {
		revoked = database.NoOpRevocationCache{}
	}
	return &tokenValidator{
		codec:      codec,
		store:      store,
		principals: principals,
		revoked:    revoked,
		logger:     logger,
	}
}

// Authorize returns the principal owning raw. Failures wrap one of the
// security error kinds, except persistence failures which are returned as is.
func (v *tokenValidator) Authorize(ctx context.Context, raw string) (*security.Principal, error) {
	claims, err := v.codec.Decode(raw)
	if err != nil {
		return nil, err
	}
	if claims.Audience != token.AudienceAccess {
		return nil, fmt.Errorf("%w: got %s", security.ErrWrongAudience, claims.Audience)
	}

	revoked, err := v.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		v.logger.Warn("⚠️ [TokenValidator] Denylist unavailable, using store", "error", err)
	} else if revoked {
		return nil, fmt.Errorf("%w: access token %s denylisted", security.ErrRevoked, claims.ID)
	}

	row, err := v.store.FindActiveAccessToken(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return nil, fmt.Errorf("%w: access token %s", security.ErrRevoked, claims.ID)
		}
		return nil, err
	}

	subject, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || uint(subject) != row.UserID {
		return nil, fmt.Errorf("%w: subject does not own access token %s", security.ErrInvalidToken, claims.ID)
	}

	principal, err := v.principals.Resolve(ctx, row.UserID)
	if err != nil {
		return nil, err
	}
	principal.TokenID = claims.ID
	principal.ExpiresAt = claims.ExpiresAt
	return principal, nil
}
