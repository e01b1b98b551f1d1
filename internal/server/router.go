// Package server builds the echo HTTP server: middleware chain, routes and error handler.
package server

import (
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	accountdomain "pds-auth/internal/account/domain"
	healthhandler "pds-auth/internal/health/handler"
	identityhandler "pds-auth/internal/identity/handler"
	"pds-auth/internal/metrics"
	"pds-auth/internal/server/middleware"
)

// Deps holds everything Register needs to mount the routes.
type Deps struct {
	Logger    *slog.Logger
	Auth      *identityhandler.AuthHandler
	Health    *healthhandler.Server
	Resolver  middleware.PrincipalResolver
	Guard     middleware.RoleGuard
	Metrics   *metrics.Metrics
	TraceName string
}

// New returns an echo instance with timeouts, the error handler and routes installed.
func New(d *Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second
	e.HTTPErrorHandler = identityhandler.ErrorHandler
	Register(e, d)
	return e
}

// Register installs the middleware chain and every route on e.
func Register(e *echo.Echo, d *Deps) {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	traceName := d.TraceName
	if traceName == "" {
		traceName = "pds-auth/http"
	}

	e.Use(
		echomw.RequestID(),
		middleware.ClientIPContext(),
		middleware.Metrics(d.Metrics),
		middleware.Tracing(traceName),
		middleware.RequestLogger(logger),
		echomw.Recover(),
	)

	if d.Health != nil {
		e.GET("/health/live", d.Health.Live)
		e.GET("/health/ready", d.Health.Ready)
	}
	if d.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(d.Metrics.Handler()))
	}

	authn := middleware.Authenticate(d.Resolver)

	auth := e.Group("/auth")
	auth.POST("/register", d.Auth.Register)
	auth.POST("/login", d.Auth.Login)
	auth.POST("/refresh", d.Auth.Refresh)
	auth.POST("/logout", d.Auth.Logout, authn)
	auth.POST("/logout-all", d.Auth.LogoutAll, authn)
	auth.GET("/me", d.Auth.Me, authn)
	auth.POST("/change-password", d.Auth.ChangePassword, authn)

	admins := roles(accountdomain.RoleAdministrator)
	staff := roles(accountdomain.RoleAdministrator, accountdomain.RoleHR)

	admin := e.Group("/admin", authn)
	admin.POST("/accounts/:id/activate", d.Auth.Activate, middleware.RequireRole(d.Guard, staff...))
	admin.POST("/accounts/:id/deactivate", d.Auth.Deactivate, middleware.RequireRole(d.Guard, admins...))
	if d.Auth.HasAuditReader() {
		admin.GET("/accounts/:id/audit-logs", d.Auth.ListAuditLogs, middleware.RequireRole(d.Guard, admins...))
	}
}

func roles(rs ...accountdomain.Role) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = string(r)
	}
	return out
}
