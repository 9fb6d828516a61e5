package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"timetrack/api/internal/apperr"
	"timetrack/api/internal/middleware"
	"timetrack/api/internal/models"
	"timetrack/api/internal/service"
)

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func ok(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, envelope{Success: true, Message: message, Data: data})
}

func created(c *gin.Context, message string, data any) {
	c.JSON(http.StatusCreated, envelope{Success: true, Message: message, Data: data})
}

func fail(c *gin.Context, err error) {
	middleware.Fail(c, err)
}

func principal(c *gin.Context) service.Principal {
	p, _ := middleware.PrincipalFrom(c)
	return p
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		fail(c, bindingError(err))
		return false
	}
	return true
}

func bindQuery(c *gin.Context, dst any) bool {
	if err := c.ShouldBindQuery(dst); err != nil {
		fail(c, bindingError(err))
		return false
	}
	return true
}

func bindingError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]apperr.FieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, apperr.FieldError{Field: fe.Field(), Message: validationMessage(fe)})
		}
		return apperr.Validation("Validation failed", fields...)
	}
	var parseErr *time.ParseError
	if errors.As(err, &parseErr) {
		return apperr.Validation("Validation failed",
			apperr.FieldError{Field: "time", Message: "must be an RFC3339 timestamp"})
	}
	return apperr.Validation("Invalid request body")
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		if fe.Kind().String() == "string" {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return "must be at least " + fe.Param()
	case "max":
		if fe.Kind().String() == "string" {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	}
	return "is invalid"
}

// parseTimeParam accepts an RFC3339 timestamp or a calendar date. A date
// used as an upper bound covers the whole day.
func parseTimeParam(field, value string, upper bool) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t, nil
	}
	day, err := time.Parse(models.DateLayout, value)
	if err != nil {
		return nil, apperr.Validation("Validation failed",
			apperr.FieldError{Field: field, Message: "must be a date (YYYY-MM-DD) or RFC3339 timestamp"})
	}
	if upper {
		day = day.Add(24*time.Hour - time.Nanosecond)
	}
	return &day, nil
}

// parseDayParam reads a calendar date as midnight in loc, or an RFC3339
// instant as given.
func parseDayParam(field, value string, loc *time.Location) (*time.Time, error) {
	t, err := parseTimeParam(field, value, false)
	if err != nil || t == nil {
		return t, err
	}
	if _, err := time.Parse(models.DateLayout, strings.TrimSpace(value)); err == nil {
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
		return &day, nil
	}
	return t, nil
}

func parseRange(start, end string) (*time.Time, *time.Time, error) {
	from, err := parseTimeParam("startDate", start, false)
	if err != nil {
		return nil, nil, err
	}
	to, err := parseTimeParam("endDate", end, true)
	if err != nil {
		return nil, nil, err
	}
	return from, to, nil
}

type pageQuery struct {
	Page  int `form:"page"`
	Limit int `form:"limit"`
}

func (q pageQuery) page() models.Page {
	return models.NewPage(q.Page, q.Limit)
}
