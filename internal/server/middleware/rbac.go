package middleware

import (
	"context"
	"fmt"

	"github.com/labstack/echo/v4"

	identity "pds-auth/internal/identity/service"
	"pds-auth/internal/logging"
)

// RoleGuard decides whether role is in a route's allow-list.
type RoleGuard interface {
	Allowed(ctx context.Context, role string, allowed []string) (bool, error)
}

// RequireRole ensures the caller is authenticated (Authenticate ran first) and holds one of roles.
// Returns identity.ErrUnauthorized without a principal and identity.ErrForbidden for other roles.
func RequireRole(guard RoleGuard, roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			p, ok := GetPrincipal(ctx)
			if !ok {
				return identity.ErrUnauthorized
			}
			allowed, err := guard.Allowed(ctx, string(p.Role), roles)
			if err != nil {
				return fmt.Errorf("role guard: %w", err)
			}
			if !allowed {
				logging.FromContext(ctx).Warn("role denied", "account_id", p.AccountID, "role", p.Role, "allowed", roles)
				return identity.ErrForbidden
			}
			return next(c)
		}
	}
}
