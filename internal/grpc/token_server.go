package grpc

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/EgehanKilicarslan/mbs-auth/internal/database/service"
	"github.com/EgehanKilicarslan/mbs-auth/internal/security"
)

// TokenServer implements TokenServiceServer on top of the auth service.
type TokenServer struct {
	authService service.AuthService
	logger      *slog.Logger
}

// NewTokenServer creates a new TokenService server instance.
func NewTokenServer(authService service.AuthService, logger *slog.Logger) *TokenServer {
	return &TokenServer{
		authService: authService,
		logger:      logger,
	}
}

// Introspect never fails for a rejected token; it answers active=false instead.
func (s *TokenServer) Introspect(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	principal, err := s.authService.Authorize(ctx, req.GetValue())
	if err != nil {
		if security.IsAuthenticationError(err) {
			s.logger.Debug("🔍 [TokenService] Introspected inactive token", "reason", security.Kind(err))
			return structpb.NewStruct(map[string]any{"active": false})
		}
		return nil, s.toStatus("Introspect", err)
	}

	fields := principalFields(principal)
	fields["active"] = true
	return structpb.NewStruct(fields)
}

func (s *TokenServer) Refresh(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	principal, pair, err := s.authService.RefreshToken(ctx, req.GetValue())
	if err != nil {
		return nil, s.toStatus("Refresh", err)
	}

	s.logger.Info("🔄 [TokenService] Token refreshed", "user_id", principal.UserID)

	fields := map[string]any{
		"token_type":    "Bearer",
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"expires_at":    pair.ExpiresAt.UTC().Format(time.RFC3339),
		"expires_in":    pair.ExpiresIn,
	}
	return structpb.NewStruct(fields)
}

// WhoAmI relies on the auth interceptor having attached the principal.
func (s *TokenServer) WhoAmI(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	principal, ok := security.PrincipalFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthorized")
	}
	return structpb.NewStruct(principalFields(principal))
}

func (s *TokenServer) toStatus(method string, err error) error {
	if security.IsAuthenticationError(err) {
		s.logger.Warn("⚠️ [TokenService] Request rejected", "method", method, "reason", security.Kind(err))
		return status.Error(codes.Unauthenticated, "unauthorized")
	}
	s.logger.Error("❌ [TokenService] Request failed", "method", method, "error", err)
	return status.Error(codes.Internal, "internal server error")
}

func principalFields(p *security.Principal) map[string]any {
	authorities := make([]any, 0, len(p.Authorities))
	for _, a := range p.Authorities {
		authorities = append(authorities, a)
	}

	fields := map[string]any{
		"user_id":     int64(p.UserID),
		"username":    p.Username,
		"email":       p.Email,
		"authorities": authorities,
	}
	if p.TokenID != "" {
		fields["token_id"] = p.TokenID
	}
	if !p.ExpiresAt.IsZero() {
		fields["exp"] = p.ExpiresAt.Unix()
	}
	return fields
}
