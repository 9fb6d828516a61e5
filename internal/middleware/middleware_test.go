package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timetrack/api/internal/apperr"
	"timetrack/api/internal/models"
	"timetrack/api/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(engine *gin.Engine, req *http.Request) (*httptest.ResponseRecorder, errorBody) {
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	var body errorBody
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &body)
	}
	return rec, body
}

func TestErrorsRendersBusinessErrors(t *testing.T) {
	engine := gin.New()
	engine.Use(Errors(zerolog.Nop(), true))
	engine.GET("/", func(c *gin.Context) {
		Fail(c, apperr.Validation("Validation failed", apperr.FieldError{Field: "email", Message: "is required"}))
	})

	rec, body := serve(engine, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, body.Success)
	assert.Equal(t, "Validation failed", body.Message)
	assert.Equal(t, []apperr.FieldError{{Field: "email", Message: "is required"}}, body.Errors)
	assert.Empty(t, body.Detail)
}

func TestErrorsHidesInternalDetailInProduction(t *testing.T) {
	tests := []struct {
		name       string
		production bool
		detail     string
	}{
		{"development", false, "load entry: connection reset"},
		{"production", true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs bytes.Buffer
			engine := gin.New()
			engine.Use(RequestID(), Errors(zerolog.New(&logs), tt.production))
			engine.GET("/", func(c *gin.Context) {
				Fail(c, errors.New("load entry: connection reset"))
			})

			rec, body := serve(engine, httptest.NewRequest(http.MethodGet, "/", nil))
			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			assert.Equal(t, msgInternal, body.Message)
			assert.Equal(t, tt.detail, body.Detail)
			assert.Contains(t, logs.String(), "request failed")
			assert.Contains(t, logs.String(), rec.Header().Get(requestIDHeader))
		})
	}
}

type stubAuthenticator struct {
	principal service.Principal
	err       error
	gotToken  string
	gotIP     string
	gotAgent  string
}

func (s *stubAuthenticator) Authenticate(_ context.Context, token, ip, userAgent string) (service.Principal, error) {
	s.gotToken = token
	s.gotIP = ip
	s.gotAgent = userAgent
	return s.principal, s.err
}

func TestAuth(t *testing.T) {
	manager := service.Principal{
		User:      models.User{ID: "u1", Role: models.RoleManager},
		SessionID: "s1",
	}

	tests := []struct {
		name    string
		header  string
		authErr error
		path    string
		status  int
		message string
	}{
		{"missing header", "", nil, "/me", http.StatusUnauthorized, "Access token required"},
		{"wrong scheme", "Basic abc", nil, "/me", http.StatusUnauthorized, "Access token required"},
		{"rejected token", "Bearer abc", apperr.Auth("Token expired"), "/me", http.StatusUnauthorized, "Token expired"},
		{"valid token", "Bearer abc", nil, "/me", http.StatusOK, ""},
		{"role too low", "Bearer abc", nil, "/admin", http.StatusForbidden, "Access denied: requires admin role or higher"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			authn := &stubAuthenticator{principal: manager, err: tt.authErr}
			engine := gin.New()
			engine.Use(Errors(zerolog.Nop(), true))
			protected := engine.Group("", Auth(authn))
			protected.GET("/me", func(c *gin.Context) {
				p, ok := PrincipalFrom(c)
				require.True(t, ok)
				c.String(http.StatusOK, p.User.ID)
			})
			protected.GET("/admin", RequireRole(models.RoleAdmin), func(c *gin.Context) {
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			req.Header.Set("User-Agent", "curl/8.4")
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec, body := serve(engine, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.message != "" {
				assert.Equal(t, tt.message, body.Message)
			}
			if tt.status == http.StatusOK {
				assert.Equal(t, "abc", authn.gotToken)
				assert.Equal(t, "192.0.2.1", authn.gotIP)
				assert.Equal(t, "curl/8.4", authn.gotAgent)
				assert.Equal(t, "u1", rec.Body.String())
			}
		})
	}
}

type stubLimiter struct {
	allowed    bool
	retryAfter time.Duration
	err        error
	keys       []string
}

func (s *stubLimiter) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	s.keys = append(s.keys, key)
	return s.allowed, s.retryAfter, s.err
}

func TestThrottle(t *testing.T) {
	tests := []struct {
		name       string
		limiter    *stubLimiter
		status     int
		retryAfter string
	}{
		{"allowed", &stubLimiter{allowed: true}, http.StatusOK, ""},
		{"denied", &stubLimiter{retryAfter: 42 * time.Second}, http.StatusTooManyRequests, "42"},
		{"denied rounds up", &stubLimiter{retryAfter: 100 * time.Millisecond}, http.StatusTooManyRequests, "1"},
		{"limiter down fails open", &stubLimiter{err: errors.New("redis: connection refused")}, http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := gin.New()
			engine.POST("/login", Throttle(tt.limiter, "login", zerolog.Nop()), func(c *gin.Context) {
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodPost, "/login", nil)
			req.RemoteAddr = "203.0.113.7:5555"
			rec, body := serve(engine, req)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.retryAfter, rec.Header().Get("Retry-After"))
			assert.Equal(t, []string{"login:203.0.113.7"}, tt.limiter.keys)
			if tt.status == http.StatusTooManyRequests {
				assert.Equal(t, "Too many attempts, please try again later", body.Message)
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	engine := gin.New()
	engine.Use(RequestID())
	engine.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, RequestIDFrom(c))
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "client-supplied")
	rec, _ := serve(engine, req)
	assert.Equal(t, "client-supplied", rec.Header().Get(requestIDHeader))
	assert.Equal(t, "client-supplied", rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, strings.Repeat("x", 200))
	rec, _ = serve(engine, req)
	assert.Len(t, rec.Header().Get(requestIDHeader), 36)
}

func TestRecovery(t *testing.T) {
	var logs bytes.Buffer
	engine := gin.New()
	engine.Use(Recovery(zerolog.New(&logs)))
	engine.GET("/", func(c *gin.Context) {
		panic("nil map write")
	})

	rec, body := serve(engine, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, msgInternal, body.Message)
	assert.Contains(t, logs.String(), "panic recovered")
}

func TestCORSPreflight(t *testing.T) {
	engine := gin.New()
	engine.Use(CORS([]string{"https://app.example.com"}))
	engine.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec, _ := serve(engine, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Expose-Headers"), "Retry-After")

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec, _ = serve(engine, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
