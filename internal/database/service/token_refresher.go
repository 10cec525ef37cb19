package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/EgehanKilicarslan/mbs-auth/internal/database"
	"github.com/EgehanKilicarslan/mbs-auth/internal/database/models"
	"github.com/EgehanKilicarslan/mbs-auth/internal/database/repository"
	"github.com/EgehanKilicarslan/mbs-auth/internal/security"
	"github.com/EgehanKilicarslan/mbs-auth/internal/token"
)

// RefreshCoordinator redeems refresh tokens. Each refresh token can be
// redeemed once: the pair it belongs to is revoked and a new pair is issued.
type RefreshCoordinator interface {
	Refresh(ctx context.Context, raw string) (*security.Principal, *TokenPair, error)
}

type refreshCoordinator struct {
	codec      *token.Codec
	store      repository.TokenStore
	issuer     TokenIssuer
	principals *PrincipalResolver
	revoked    database.RevocationCache
	logger     *slog.Logger
}

// NewRefreshCoordinator creates a new refresh coordinator. The issuer must
// write through the same store so the new pair joins the refresh transaction.
func NewRefreshCoordinator(
	codec *token.Codec,
	store repository.TokenStore,
	issuer TokenIssuer,
	principals *PrincipalResolver,
	revoked database.RevocationCache,
	logger *slog.Logger,
) RefreshCoordinator {
	if revoked == nil {
		revoked = database.NoOpRevocationCache{}
	}
	return &refreshCoordinator{
		codec:      codec,
		store:      store,
		issuer:     issuer,
		principals: principals,
		revoked:    revoked,
		logger:     logger,
	}
}

func (c *refreshCoordinator) Refresh(ctx context.Context, raw string) (*security.Principal, *TokenPair, error) {
	claims, err := c.codec.Decode(raw)
	if err != nil {
		return nil, nil, err
	}
	if claims.Audience != token.AudienceRefresh {
		return nil, nil, fmt.Errorf("%w: got %s", security.ErrWrongAudience, claims.Audience)
	}

	var (
		principal *security.Principal
		pair      *TokenPair
		parent    *models.AccessToken
	)

	err = c.store.Transaction(ctx, func(ctx context.Context) error {
		active, err := c.store.ExistsActiveRefreshToken(ctx, claims.ID)
		if err != nil {
			return err
		}
		if !active {
			return fmt.Errorf("%w: refresh token %s", security.ErrRevoked, claims.ID)
		}

		parent, err = c.store.FindRefreshParent(ctx, claims.Subject, claims.ID)
		if err != nil {
			if errors.Is(err, repository.ErrTokenNotFound) {
				return fmt.Errorf("%w: no active access token %s for refresh token %s", security.ErrRevoked, claims.Subject, claims.ID)
			}
			return err
		}

		if err := c.store.SetStatus(ctx, parent, models.StatusDeleted); err != nil {
			if errors.Is(err, repository.ErrTokenNotActive) {
				return fmt.Errorf("%w: refresh token %s already redeemed", security.ErrRevoked, claims.ID)
			}
			return err
		}

		principal, err = c.principals.Resolve(ctx, parent.UserID)
		if err != nil {
			return err
		}

		pair, err = c.issuer.Issue(ctx, principal, true)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	if err := c.revoked.MarkRevoked(ctx, parent.ID, parent.ExpiredAt); err != nil {
		c.logger.Warn("⚠️ [RefreshCoordinator] Failed to denylist rotated access token",
			"access_token_id", parent.ID,
			"error", err,
		)
	}

	principal.TokenID = pair.AccessTokenID
	principal.ExpiresAt = pair.ExpiresAt

	c.logger.Info("🔄 [RefreshCoordinator] Token pair rotated",
		"user_id", principal.UserID,
		"old_access_token_id", parent.ID,
		"access_token_id", pair.AccessTokenID,
	)
	return principal, pair, nil
}
