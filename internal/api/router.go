package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/EgehanKilicarslan/mbs-auth/internal/handler"
	"github.com/EgehanKilicarslan/mbs-auth/internal/middleware"
)

func SetupRouter(
	authHandler *handler.AuthHandler,
	adminHandler *handler.AdminHandler,
	authMiddleware *middleware.AuthMiddleware,
	rateLimiter middleware.RateLimiter,
	logger *slog.Logger,
) *gin.Engine {
	r := gin.Default()
	r.SetTrustedProxies(nil)

	// Public routes
	r.GET("/api/v1/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	authGroup := r.Group("/api/v1/auth")
	{
		// Public, rate limited per client
		public := authGroup.Group("", middleware.RateLimit(rateLimiter, logger))
		public.POST("/token", authHandler.Login)
		public.POST("/refresh_token", authHandler.RefreshToken)

		authGroup.POST("/logout", authMiddleware.RequireAuth(), authHandler.Logout)
		authGroup.GET("/me", authMiddleware.RequireAuth(), authHandler.Me)
	}

	// Admin routes
	admin := r.Group("/api/v1/admin")
	admin.Use(authMiddleware.RequireAuth(), authMiddleware.RequireAuthority("ADMIN"))
	{
		admin.POST("/users/:user_id/revoke-tokens", adminHandler.RevokeUserTokens)
	}

	return r
}
