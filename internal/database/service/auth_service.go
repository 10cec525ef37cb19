package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/EgehanKilicarslan/mbs-auth/internal/database"
	"github.com/EgehanKilicarslan/mbs-auth/internal/database/models"
	"github.com/EgehanKilicarslan/mbs-auth/internal/database/repository"
	"github.com/EgehanKilicarslan/mbs-auth/internal/security"
)

// AuthService defines the interface for authentication business logic
type AuthService interface {
	Login(ctx context.Context, username, password string, rememberMe bool) (*security.Principal, *TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*security.Principal, *TokenPair, error)
	Authorize(ctx context.Context, accessToken string) (*security.Principal, error)
	Logout(ctx context.Context, principal *security.Principal) error
	RevokeUserTokens(ctx context.Context, userID uint) (int, error)
}

type authService struct {
	userRepo  repository.UserRepository
	store     repository.TokenStore
	issuer    TokenIssuer
	validator TokenValidator
	refresher RefreshCoordinator
	revoked   database.RevocationCache
	logger    *slog.Logger
}

// NewAuthService creates a new authentication service instance
func NewAuthService(
	userRepo repository.UserRepository,
	store repository.TokenStore,
	issuer TokenIssuer,
	validator TokenValidator,
	refresher RefreshCoordinator,
	revoked database.RevocationCache,
	logger *slog.Logger,
) AuthService {
	if revoked == nil {
		revoked = database.NoOpRevocationCache{}
	}
	return &authService{
		userRepo:  userRepo,
		store:     store,
		issuer:    issuer,
		validator: validator,
		refresher: refresher,
		revoked:   revoked,
		logger:    logger,
	}
}

func (s *authService) Login(ctx context.Context, username, password string, rememberMe bool) (*security.Principal, *TokenPair, error) {
	s.logger.Info("🔐 [AuthService] Login attempt", "username", username)

	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.logger.Warn("⚠️ [AuthService] User not found", "username", username)
			return nil, nil, ErrInvalidCredentials
		}
		s.logger.Error("❌ [AuthService] Database error", "error", err)
		return nil, nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		s.logger.Warn("⚠️ [AuthService] Invalid password", "username", username)
		return nil, nil, ErrInvalidCredentials
	}

	if !user.IsActive() {
		s.logger.Warn("⚠️ [AuthService] Account not active",
			"user_id", user.ID,
			"status", user.Status.String(),
			"enabled", user.Enabled,
		)
		return nil, nil, ErrInvalidCredentials
	}

	principal := newPrincipal(user)
	pair, err := s.issuer.Issue(ctx, principal, rememberMe)
	if err != nil {
		s.logger.Error("❌ [AuthService] Failed to generate tokens", "error", err)
		return nil, nil, err
	}
	principal.TokenID = pair.AccessTokenID
	principal.ExpiresAt = pair.ExpiresAt

	s.logger.Info("✅ [AuthService] User logged in successfully", "user_id", user.ID, "remember_me", rememberMe)
	return principal, pair, nil
}

func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (*security.Principal, *TokenPair, error) {
	s.logger.Info("🔄 [AuthService] Token refresh attempt")

	principal, pair, err := s.refresher.Refresh(ctx, refreshToken)
	if err != nil {
		s.logFailure("Token refresh rejected", err)
		return nil, nil, err
	}
	return principal, pair, nil
}

func (s *authService) Authorize(ctx context.Context, accessToken string) (*security.Principal, error) {
	principal, err := s.validator.Authorize(ctx, accessToken)
	if err != nil {
		s.logFailure("Access token rejected", err)
		return nil, err
	}
	return principal, nil
}

// Logout revokes the access token the principal authenticated with, and with
// it the bound refresh token. Logging out twice is not an error.
func (s *authService) Logout(ctx context.Context, principal *security.Principal) error {
	s.logger.Info("👋 [AuthService] Logout attempt", "user_id", principal.UserID)

	token, err := s.store.FindActiveAccessToken(ctx, principal.TokenID)
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			s.logger.Warn("⚠️ [AuthService] Token already inactive", "access_token_id", principal.TokenID)
			return nil
		}
		return err
	}

	if err := s.store.SetStatus(ctx, token, models.StatusDeleted); err != nil {
		if errors.Is(err, repository.ErrTokenNotActive) {
			return nil
		}
		return err
	}
	s.denylist(ctx, *token)

	s.logger.Info("✅ [AuthService] User logged out successfully", "user_id", principal.UserID)
	return nil
}

// RevokeUserTokens revokes every active pair of the user and returns how many
// access tokens were revoked.
func (s *authService) RevokeUserTokens(ctx context.Context, userID uint) (int, error) {
	if _, err := s.userRepo.FindByID(ctx, userID); err != nil {
		return 0, err
	}

	revoked, err := s.store.RevokeAllForUser(ctx, userID)
	if err != nil {
		s.logger.Error("❌ [AuthService] Failed to revoke user tokens", "user_id", userID, "error", err)
		return 0, err
	}
	for _, token := range revoked {
		s.denylist(ctx, token)
	}

	s.logger.Info("🚫 [AuthService] User tokens revoked", "user_id", userID, "count", len(revoked))
	return len(revoked), nil
}

func (s *authService) denylist(ctx context.Context, token models.AccessToken) {
	if err := s.revoked.MarkRevoked(ctx, token.ID, token.ExpiredAt); err != nil {
		s.logger.Warn("⚠️ [AuthService] Failed to denylist access token", "access_token_id", token.ID, "error", err)
	}
}

func (s *authService) logFailure(msg string, err error) {
	if kind := security.Kind(err); kind != "" {
		s.logger.Warn(fmt.Sprintf("⚠️ [AuthService] %s", msg), "kind", kind, "error", err)
		return
	}
	s.logger.Error(fmt.Sprintf("❌ [AuthService] %s", msg), "error", err)
}

// Service errors
var (
	ErrInvalidCredentials = errors.New("invalid username or password")
)
