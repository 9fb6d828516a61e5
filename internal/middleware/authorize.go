package middleware

import (
	"github.com/gin-gonic/gin"

	"timetrack/api/internal/apperr"
	"timetrack/api/internal/models"
	"timetrack/api/internal/policy"
)

// RequireRole admits callers ranking at least min. It must run after Auth.
func RequireRole(min models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := PrincipalFrom(c)
		if !ok {
			Fail(c, apperr.Auth("Access token required"))
			return
		}
		if err := policy.RequireRole(principal.User.Role, min); err != nil {
			Fail(c, err)
			return
		}
		c.Next()
	}
}
