// Package handler serves liveness and readiness probes.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"pds-auth/internal/logging"
)

const readinessTimeout = 2 * time.Second

// Pinger checks connectivity to a backing store (e.g. *sql.DB, the Redis session store).
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PolicyChecker checks that the policy engine can evaluate its policy.
type PolicyChecker interface {
	HealthCheck(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

// PingContext calls f.
func (f PingFunc) PingContext(ctx context.Context) error { return f(ctx) }

// Server reports liveness unconditionally and readiness from its pingers and policy checker.
type Server struct {
	pingers       map[string]Pinger
	policyChecker PolicyChecker
}

// NewServer returns a health Server. pingers maps a component name to its check; nil entries
// and a nil policyChecker are skipped.
func NewServer(pingers map[string]Pinger, policyChecker PolicyChecker) *Server {
	return &Server{pingers: pingers, policyChecker: policyChecker}
}

type statusResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Live always returns 200 while the process serves requests.
func (s *Server) Live(c echo.Context) error {
	return c.JSON(http.StatusOK, statusResponse{Status: "ok"})
}

// Ready returns 200 when every dependency check passes and 503 otherwise.
func (s *Server) Ready(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), readinessTimeout)
	defer cancel()

	checks := make(map[string]string, len(s.pingers)+1)
	healthy := true
	for name, p := range s.pingers {
		if p == nil {
			continue
		}
		if err := p.PingContext(ctx); err != nil {
			logging.FromContext(ctx).Warn("health: dependency not ready", "component", name, "error", err)
			checks[name] = "unavailable"
			healthy = false
			continue
		}
		checks[name] = "ok"
	}
	if s.policyChecker != nil {
		if err := s.policyChecker.HealthCheck(ctx); err != nil {
			logging.FromContext(ctx).Warn("health: policy engine not ready", "error", err)
			checks["policy"] = "unavailable"
			healthy = false
		} else {
			checks["policy"] = "ok"
		}
	}
	if !healthy {
		return c.JSON(http.StatusServiceUnavailable, statusResponse{Status: "unavailable", Checks: checks})
	}
	return c.JSON(http.StatusOK, statusResponse{Status: "ok", Checks: checks})
}
