package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"timetrack/api/internal/apperr"
)

const msgInternal = "Something went wrong"

type errorBody struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Errors  []apperr.FieldError `json:"errors,omitempty"`
	Detail  string              `json:"detail,omitempty"`
}

// Errors renders the last error a handler attached with c.Error. Business
// errors keep their message; anything else is logged and reduced to a
// generic message, with the cause included outside production.
func Errors(log zerolog.Logger, production bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		appErr := apperr.As(err)

		body := errorBody{
			Success: false,
			Message: appErr.Message,
			Errors:  appErr.Fields,
		}
		if appErr.Kind == apperr.KindInternal {
			log.Error().
				Err(err).
				Str("request_id", RequestIDFrom(c)).
				Str("path", c.Request.URL.Path).
				Msg("request failed")
			if !production {
				body.Detail = err.Error()
			}
		}
		c.AbortWithStatusJSON(appErr.Status(), body)
	}
}

// Fail attaches err for Errors to render and stops the chain.
func Fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
