package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classroom-api/internal/models"
	appErrors "github.com/noah-isme/classroom-api/pkg/errors"
	"github.com/noah-isme/classroom-api/pkg/response"
)

type gateChecker interface {
	GateOpen(ctx context.Context, studentID string) bool
}

// RequireGate lets students through only once every curriculum leaf is complete.
// Teachers are never gated. Must run after JWT.
func RequireGate(gate gateChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := CurrentClaims(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if claims.Role == models.RoleTeacher {
			c.Next()
			return
		}
		if claims.Role != models.RoleStudent || !gate.GateOpen(c.Request.Context(), claims.UserID) {
			response.Error(c, appErrors.ErrGateClosed)
			c.Abort()
			return
		}
		c.Next()
	}
}
