package middleware

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"

	accountdomain "pds-auth/internal/account/domain"
	identity "pds-auth/internal/identity/service"
)

const bearerPrefix = "bearer "

// PrincipalResolver turns an access token into the live principal for its account.
type PrincipalResolver interface {
	ResolvePrincipal(ctx context.Context, accessToken string) (accountdomain.Principal, error)
}

// Authenticate requires a valid Bearer access token and stores the resolved principal in the
// request context. A missing or rejected token fails with identity.ErrUnauthorized; resolver
// infrastructure errors pass through so they surface as 500.
func Authenticate(resolver PrincipalResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := extractBearer(c.Request().Header.Get(echo.HeaderAuthorization))
			if token == "" {
				return identity.ErrUnauthorized
			}
			ctx := c.Request().Context()
			p, err := resolver.ResolvePrincipal(ctx, token)
			if err != nil {
				return err
			}
			if p.AccountID == "" {
				return identity.ErrUnauthorized
			}
			c.SetRequest(c.Request().WithContext(WithPrincipal(ctx, p)))
			return next(c)
		}
	}
}

// extractBearer returns the token from an Authorization header value, or "" if missing or malformed.
func extractBearer(v string) string {
	v = strings.TrimSpace(v)
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}

// ClientIPContext stores echo's RealIP (X-Forwarded-For, X-Real-IP, then the peer) in the request context.
func ClientIPContext() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := WithClientIP(c.Request().Context(), c.RealIP())
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}
