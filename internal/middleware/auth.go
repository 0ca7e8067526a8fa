// internal/middleware/auth.go
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/trackstore-backend/internal/i18n"
	"github.com/javajoker/trackstore-backend/internal/services"
	"github.com/javajoker/trackstore-backend/internal/utils"
)

// SessionValidator confirms on every request that a token's account is
// still active and the token has not been logged out.
type SessionValidator interface {
	ValidateSession(ctx context.Context, userID uuid.UUID, tokenID string) error
}

// AuthRequired authenticates the bearer token. A nil sessions skips the
// account lookup and only checks the signature.
func AuthRequired(sessions SessionValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		lang := utils.GetLangFromContext(c)

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.UnauthorizedResponse(c, "")
			c.Abort()
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			utils.UnauthorizedResponse(c, i18n.T(lang, i18n.KeyAuthInvalidToken))
			c.Abort()
			return
		}

		claims, err := utils.ValidateJWT(strings.TrimSpace(parts[1]))
		if err != nil {
			utils.UnauthorizedResponse(c, i18n.T(lang, i18n.KeyAuthInvalidToken))
			c.Abort()
			return
		}

		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			utils.UnauthorizedResponse(c, i18n.T(lang, i18n.KeyAuthInvalidToken))
			c.Abort()
			return
		}

		if sessions != nil {
			if err := sessions.ValidateSession(c.Request.Context(), userID, claims.ID); err != nil {
				abortSession(c, lang, err)
				return
			}
		}

		// Set user info in context
		c.Set("user_id", userID)
		c.Set("username", claims.Username)
		c.Set("role", claims.Role)
		c.Set("token_id", claims.ID)
		if claims.ExpiresAt != nil {
			c.Set("token_expires_at", claims.ExpiresAt.Time)
		}
		c.Next()
	}
}

func abortSession(c *gin.Context, lang string, err error) {
	switch {
	case errors.Is(err, services.ErrAccountDisabled):
		utils.ErrorResponse(c, http.StatusForbidden, "ACCOUNT_DISABLED", i18n.T(lang, i18n.KeyAuthAccountDisabled), nil)
	case errors.Is(err, services.ErrTokenRevoked), errors.Is(err, services.ErrNotFound):
		utils.UnauthorizedResponse(c, i18n.T(lang, i18n.KeyAuthInvalidToken))
	default:
		logrus.WithError(err).Error("Session validation failed")
		utils.InternalErrorResponse(c, "")
	}
	c.Abort()
}

// Require aborts with 403 unless the authenticated role holds capability.
// It must run after AuthRequired.
func Require(capability Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, _ := utils.GetRoleFromContext(c)
		if !Allowed(role, capability) {
			utils.ForbiddenResponse(c, "")
			c.Abort()
			return
		}
		c.Next()
	}
}
