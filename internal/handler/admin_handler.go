package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/EgehanKilicarslan/mbs-auth/internal/database/service"
	"github.com/EgehanKilicarslan/mbs-auth/internal/middleware"
)

// AdminHandler handles admin API requests for token management
type AdminHandler struct {
	authService service.AuthService
	logger      *slog.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(authService service.AuthService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		authService: authService,
		logger:      logger,
	}
}

// RevokeUserTokens handles POST /admin/users/:user_id/revoke-tokens
func (h *AdminHandler) RevokeUserTokens(c *gin.Context) {
	userIDStr := c.Param("user_id")
	userID, err := strconv.ParseUint(userIDStr, 10, 64)
	if err != nil || userID == 0 {
		h.logger.Error("❌ [AdminHandler] Invalid user ID", "user_id", userIDStr, "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	var adminID uint
	if admin, ok := middleware.GetPrincipal(c); ok {
		adminID = admin.UserID
	}
	h.logger.Info("🚫 [AdminHandler] Revoking user tokens",
		"user_id", userID,
		"admin_id", adminID,
	)

	count, err := h.authService.RevokeUserTokens(c.Request.Context(), uint(userID))
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id": userID,
		"revoked": count,
	})
}
