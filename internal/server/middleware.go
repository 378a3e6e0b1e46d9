package server

import (
	model "buyme/internal/models"
	"buyme/services/bidding/helpers"
	"buyme/utils"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// RequestLoggerMiddleware logs incoming requests with timing
func RequestLoggerMiddleware(c *gin.Context) {
	start := time.Now()

	c.Next() // process request

	utils.Info("HTTP Request", map[string]any{
		"method":  c.Request.Method,
		"path":    c.Request.URL.Path,
		"status":  c.Writer.Status(),
		"latency": time.Since(start).String(),
	})
}

// IdentityMiddleware resolves the calling user from the X-User-ID and
// X-User-Role headers into a models.Caller on the context. Authentication
// itself happens upstream; this service only consumes the resolved identity.
// Requests without a user id are rejected before reaching any handler.
func IdentityMiddleware(c *gin.Context) {
	userID := c.GetHeader("X-User-ID")
	if userID == "" {
		utils.JSONError(c, http.StatusUnauthorized, errors.New("missing X-User-ID header"), "authentication required")
		c.Abort()
		return
	}

	role := model.Role(c.GetHeader("X-User-Role"))
	switch role {
	case model.RoleRep, model.RoleAdmin:
		// privileged roles pass through as-is
	default:
		role = model.RoleUser
	}

	helpers.SetCaller(c, model.Caller{UserID: userID, Role: role})
	c.Next()
}
