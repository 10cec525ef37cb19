package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/EgehanKilicarslan/mbs-auth/internal/database/service"
	"github.com/EgehanKilicarslan/mbs-auth/internal/security"
)

// PrincipalKey is the gin context key holding the authenticated principal.
const PrincipalKey = "principal"

// AuthMiddleware handles JWT validation
type AuthMiddleware struct {
	service service.AuthService
	logger  *slog.Logger
}

// NewAuthMiddleware creates a new auth middleware instance
func NewAuthMiddleware(service service.AuthService, logger *slog.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		service: service,
		logger:  logger,
	}
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" value.
func BearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// RequireAuth authorizes the bearer token and attaches the principal to both
// the gin context and the request context.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			m.logger.Warn("⚠️ [Middleware] Missing Authorization header")
			abortUnauthorized(c)
			return
		}

		tokenString, ok := BearerToken(authHeader)
		if !ok {
			m.logger.Warn("⚠️ [Middleware] Invalid Authorization header format")
			abortUnauthorized(c)
			return
		}

		principal, err := m.service.Authorize(c.Request.Context(), tokenString)
		if err != nil {
			if security.IsAuthenticationError(err) {
				m.logger.Warn("⚠️ [Middleware] Token rejected", "kind", security.Kind(err))
				abortUnauthorized(c)
				return
			}
			m.logger.Error("❌ [Middleware] Token validation failed", "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		c.Set(PrincipalKey, principal)
		c.Request = c.Request.WithContext(security.WithPrincipal(c.Request.Context(), principal))
		m.logger.Debug("✅ [Middleware] Token validated", "user_id", principal.UserID)

		c.Next()
	}
}

// RequireAuthority must run after RequireAuth. It rejects principals holding
// none of names.
func (m *AuthMiddleware) RequireAuthority(names ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := GetPrincipal(c)
		if !ok {
			abortUnauthorized(c)
			return
		}

		if !principal.HasAuthority(names...) {
			m.logger.Warn("⚠️ [Middleware] Missing authority",
				"user_id", principal.UserID,
				"required", names,
			)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
			return
		}

		c.Next()
	}
}

// GetPrincipal returns the principal set by RequireAuth.
func GetPrincipal(c *gin.Context) (*security.Principal, bool) {
	value, ok := c.Get(PrincipalKey)
	if !ok {
		return nil, false
	}
	principal, ok := value.(*security.Principal)
	return principal, ok && principal != nil
}

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
}
