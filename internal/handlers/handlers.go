package handlers

import (
	"context"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"timetrack/api/internal/config"
	"timetrack/api/internal/middleware"
	"timetrack/api/internal/models"
	"timetrack/api/internal/service"
)

// Services groups the business services the HTTP layer drives.
type Services struct {
	Auth    *service.AuthService
	Timer   *service.TimerService
	Daily   *service.DailyLoginService
	Catalog *service.CatalogService
	Admin   *service.AdminService
	Reports *service.ReportService
}

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

type HandlerSet struct {
	log     zerolog.Logger
	cfg     *config.AppConfig
	svc     Services
	limiter middleware.RateLimiter
	checks  map[string]HealthCheck
}

// NewHandlerSet wires the handlers. limiter may be nil to disable login
// throttling.
func NewHandlerSet(log zerolog.Logger, cfg *config.AppConfig, svc Services, limiter middleware.RateLimiter, checks map[string]HealthCheck) HandlerSet {
	registerJSONFieldNames()
	return HandlerSet{
		log:     log,
		cfg:     cfg,
		svc:     svc,
		limiter: limiter,
		checks:  checks,
	}
}

var fieldNamesOnce sync.Once

// registerJSONFieldNames makes validation errors report the client-facing
// field name instead of the Go one.
func registerJSONFieldNames() {
	fieldNamesOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return f.Name
		})
	})
}

func (h HandlerSet) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	authn := middleware.Auth(h.svc.Auth)
	adminOnly := middleware.RequireRole(models.RoleAdmin)
	managerUp := middleware.RequireRole(models.RoleManager)

	var throttle []gin.HandlerFunc
	if h.limiter != nil {
		throttle = append(throttle, middleware.Throttle(h.limiter, "login", h.log))
	}

	auth := router.Group("/auth")
	{
		auth.POST("/register", append(throttle, h.Register)...)
		auth.POST("/login", append(throttle, h.Login)...)
		auth.POST("/refresh", h.Refresh)

		protected := auth.Group("", authn)
		protected.GET("/me", h.Me)
		protected.POST("/logout", h.Logout)
		protected.PUT("/password", h.ChangePassword)
		protected.GET("/sessions", h.ListSessions)
		protected.DELETE("/sessions/:id", h.RevokeSession)
	}

	timer := router.Group("/timer", authn)
	{
		timer.POST("/start", h.StartTimer)
		timer.PUT("/stop", h.StopTimer)
		timer.GET("/active", h.ActiveTimer)
		timer.POST("/break/start", h.StartBreak)
		timer.PUT("/break/end", h.EndBreak)
		timer.GET("/entries", h.ListEntries)
		timer.POST("/entries", h.CreateManualEntry)
		timer.PUT("/entries/:id", h.UpdateEntry)
		timer.DELETE("/entries/:id", h.DeleteEntry)
		timer.GET("/entries/user/:userId", managerUp, h.ListUserEntries)
	}

	daily := router.Group("/daily-login", authn)
	{
		daily.GET("/today", h.TodayStatus)
		daily.POST("/end-day", h.EndDay)
		daily.GET("/history", h.DayHistory)
		daily.GET("/team-overview", managerUp, h.TeamOverview)
	}

	orgs := router.Group("/organizations", authn)
	{
		orgs.GET("", h.ListOrganizations)
		orgs.GET("/:id", h.GetOrganization)
		orgs.POST("", adminOnly, h.CreateOrganization)
		orgs.PUT("/:id", adminOnly, h.UpdateOrganization)
		orgs.DELETE("/:id", adminOnly, h.DeleteOrganization)
		orgs.POST("/:id/members", adminOnly, h.AddMember)
		orgs.DELETE("/:id/members/:userId", adminOnly, h.RemoveMember)
	}

	customers := router.Group("/customers", authn)
	{
		customers.GET("", h.ListCustomers)
		customers.GET("/:id", h.GetCustomer)
		customers.POST("", adminOnly, h.CreateCustomer)
		customers.PUT("/:id", adminOnly, h.UpdateCustomer)
		customers.DELETE("/:id", adminOnly, h.DeleteCustomer)
	}

	processes := router.Group("/processes", authn)
	{
		processes.GET("", h.ListProcesses)
		processes.GET("/:id", h.GetProcess)
		processes.POST("", adminOnly, h.CreateProcess)
		processes.PUT("/:id", adminOnly, h.UpdateProcess)
		processes.DELETE("/:id", adminOnly, h.DeleteProcess)
	}

	activities := router.Group("/activities", authn)
	{
		activities.GET("", h.ListActivities)
		activities.GET("/:id", h.GetActivity)
		activities.POST("", adminOnly, h.CreateActivity)
		activities.PUT("/:id", adminOnly, h.UpdateActivity)
		activities.DELETE("/:id", adminOnly, h.DeleteActivity)
	}

	users := router.Group("/admin/users", authn, adminOnly)
	{
		users.GET("", h.AdminListUsers)
		users.GET("/:id", h.AdminGetUser)
		users.POST("", h.AdminCreateUser)
		users.PUT("/:id", h.AdminUpdateUser)
		users.DELETE("/:id", h.AdminDeleteUser)
		users.POST("/:id/unlock", h.AdminUnlockUser)
	}

	reports := router.Group("/reports", authn)
	{
		reports.GET("/summary", h.ReportSummary)
		reports.POST("/export", h.ExportReport)
	}
}
