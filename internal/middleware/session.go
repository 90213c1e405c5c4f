package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/exam-portal/internal/response"
	"github.com/stemsi/exam-portal/internal/service"
)

// SessionChecker confirms a token is still the account's current session.
type SessionChecker interface {
	ValidateSession(ctx context.Context, claims *service.Claims) error
}

// RequireCurrentSession rejects tokens whose JTI no longer matches the one
// stored at login. Signing in elsewhere or logging out ends older sessions.
// Must run after RequireJWT or OptionalWSAuth; guests pass through.
func RequireCurrentSession(sessions SessionChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			c.Next()
			return
		}

		if err := sessions.ValidateSession(c.Request.Context(), claims); err != nil {
			if errors.Is(err, service.ErrSessionInvalidated) {
				response.AbortFail(c, http.StatusUnauthorized, response.ErrSessionInvalidated)
				return
			}
			response.AbortFail(c, http.StatusInternalServerError, response.ErrInternal)
			return
		}

		c.Next()
	}
}
