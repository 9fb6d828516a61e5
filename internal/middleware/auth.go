package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"timetrack/api/internal/apperr"
	"timetrack/api/internal/service"
)

const principalKey = "principal"

// Authenticator resolves a bearer token to the calling user.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken, ip, userAgent string) (service.Principal, error)
}

func Auth(authn Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || strings.TrimSpace(token) == "" {
			Fail(c, apperr.Auth("Access token required"))
			return
		}

		principal, err := authn.Authenticate(c.Request.Context(), strings.TrimSpace(token), c.ClientIP(), c.GetHeader("User-Agent"))
		if err != nil {
			Fail(c, err)
			return
		}

		c.Set(principalKey, principal)
		c.Next()
	}
}

// PrincipalFrom returns the caller stored by Auth.
func PrincipalFrom(c *gin.Context) (service.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return service.Principal{}, false
	}
	principal, ok := v.(service.Principal)
	return principal, ok
}
