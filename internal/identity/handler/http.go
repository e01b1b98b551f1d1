// Package handler exposes the auth service over HTTP with echo.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	accountdomain "pds-auth/internal/account/domain"
	"pds-auth/internal/audit"
	auditdomain "pds-auth/internal/audit/domain"
	identity "pds-auth/internal/identity/service"
	"pds-auth/internal/logging"
	"pds-auth/internal/metrics"
	"pds-auth/internal/server/middleware"
	"pds-auth/internal/telemetry"
	telemetrydomain "pds-auth/internal/telemetry/domain"
)

const (
	defaultAuditPageSize = 50
	maxAuditPageSize     = 200
)

// Service is the subset of the auth service used by the HTTP handlers.
type Service interface {
	Register(ctx context.Context, in identity.RegisterInput) (*identity.User, error)
	Login(ctx context.Context, email, password string) (*identity.AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*identity.AuthResult, error)
	Logout(ctx context.Context, refreshToken string) error
	LogoutAll(ctx context.Context, accountID string) (int64, error)
	Me(ctx context.Context, p accountdomain.Principal) (*identity.User, error)
	ChangePassword(ctx context.Context, accountID, current, next string) (int64, error)
	SetActive(ctx context.Context, accountID string, active bool) (*identity.User, error)
}

// AuditReader lists audit entries for an account. Optional; the listing route is not mounted without it.
type AuditReader interface {
	ListByAccount(ctx context.Context, accountID string, limit, offset int32) ([]*auditdomain.AuditLog, error)
}

// Deps holds the optional collaborators of AuthHandler. Nil fields are skipped.
type Deps struct {
	Audit   audit.AuditLogger
	Events  telemetry.EventEmitter
	Metrics *metrics.Metrics
	Reader  AuditReader
}

// AuthHandler serves the /auth and /admin routes.
type AuthHandler struct {
	svc     Service
	cookies CookieConfig
	audit   audit.AuditLogger
	events  telemetry.EventEmitter
	metrics *metrics.Metrics
	reader  AuditReader
}

// NewAuthHandler returns an AuthHandler backed by svc.
func NewAuthHandler(svc Service, cookies CookieConfig, deps Deps) *AuthHandler {
	return &AuthHandler{
		svc:     svc,
		cookies: cookies,
		audit:   deps.Audit,
		events:  deps.Events,
		metrics: deps.Metrics,
		reader:  deps.Reader,
	}
}

// HasAuditReader reports whether the audit listing route can be served.
func (h *AuthHandler) HasAuditReader() bool {
	return h.reader != nil
}

// Register creates an account. It does not log the caller in.
func (h *AuthHandler) Register(c echo.Context) error {
	ctx := c.Request().Context()
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return fmt.Errorf("%w: malformed request body", identity.ErrValidation)
	}
	u, err := h.svc.Register(ctx, identity.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	var accountID string
	if u != nil {
		accountID = u.ID
	}
	h.record(ctx, "register", accountID, err, map[string]string{"email": req.Email})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, userEnvelope{User: toUserResponse(*u)})
}

// Login verifies credentials, returns the access token and sets the refresh cookie.
func (h *AuthHandler) Login(c echo.Context) error {
	ctx := c.Request().Context()
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return fmt.Errorf("%w: malformed request body", identity.ErrValidation)
	}
	res, err := h.svc.Login(ctx, req.Email, req.Password)
	if err != nil {
		h.record(ctx, "login", "", err, map[string]string{"email": req.Email})
		return err
	}
	h.record(ctx, "login", res.User.ID, nil, nil)
	h.setRefreshCookie(c, res.RefreshToken)
	return c.JSON(http.StatusOK, toAuthResponse(res))
}

// Refresh rotates the refresh cookie and returns a new access token. Any failure clears the cookie.
func (h *AuthHandler) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	res, err := h.svc.Refresh(ctx, refreshCookieValue(c))
	if err != nil {
		h.clearRefreshCookie(c)
		h.record(ctx, "refresh", "", err, nil)
		return err
	}
	h.record(ctx, "refresh", res.User.ID, nil, nil)
	h.setRefreshCookie(c, res.RefreshToken)
	return c.JSON(http.StatusOK, toAuthResponse(res))
}

// Logout deletes the session of the refresh cookie, if any, and clears the cookie.
func (h *AuthHandler) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	p, ok := middleware.GetPrincipal(ctx)
	if !ok {
		return identity.ErrUnauthorized
	}
	token := refreshCookieValue(c)
	h.clearRefreshCookie(c)
	err := h.svc.Logout(ctx, token)
	h.record(ctx, "logout", p.AccountID, err, nil)
	if err != nil {
		return err
	}
	if token != "" {
		h.metrics.SessionsRevoked("logout", 1)
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "logged out"})
}

// LogoutAll deletes every session of the caller.
func (h *AuthHandler) LogoutAll(c echo.Context) error {
	ctx := c.Request().Context()
	p, ok := middleware.GetPrincipal(ctx)
	if !ok {
		return identity.ErrUnauthorized
	}
	h.clearRefreshCookie(c)
	n, err := h.svc.LogoutAll(ctx, p.AccountID)
	h.record(ctx, "logout_all", p.AccountID, err, map[string]string{"sessions": strconv.FormatInt(n, 10)})
	if err != nil {
		return err
	}
	h.metrics.SessionsRevoked("logout_all", n)
	return c.JSON(http.StatusOK, messageResponse{Message: "logged out of all sessions"})
}

// Me returns the caller's account summary.
func (h *AuthHandler) Me(c echo.Context) error {
	ctx := c.Request().Context()
	p, ok := middleware.GetPrincipal(ctx)
	if !ok {
		return identity.ErrUnauthorized
	}
	u, err := h.svc.Me(ctx, p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, userEnvelope{User: toUserResponse(*u)})
}

// ChangePassword replaces the caller's password and revokes all of their sessions.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	ctx := c.Request().Context()
	p, ok := middleware.GetPrincipal(ctx)
	if !ok {
		return identity.ErrUnauthorized
	}
	var req changePasswordRequest
	if err := c.Bind(&req); err != nil {
		return fmt.Errorf("%w: malformed request body", identity.ErrValidation)
	}
	n, err := h.svc.ChangePassword(ctx, p.AccountID, req.CurrentPassword, req.NewPassword)
	h.record(ctx, "change_password", p.AccountID, err, nil)
	if err != nil {
		return err
	}
	h.metrics.SessionsRevoked("password_change", n)
	h.clearRefreshCookie(c)
	return c.JSON(http.StatusOK, messageResponse{Message: "password changed; all sessions signed out"})
}

// Activate marks the account in the :id path parameter active.
func (h *AuthHandler) Activate(c echo.Context) error {
	return h.setActive(c, true)
}

// Deactivate marks the account in the :id path parameter inactive. Existing tokens stop
// working on their next use.
func (h *AuthHandler) Deactivate(c echo.Context) error {
	return h.setActive(c, false)
}

func (h *AuthHandler) setActive(c echo.Context, active bool) error {
	ctx := c.Request().Context()
	p, ok := middleware.GetPrincipal(ctx)
	if !ok {
		return identity.ErrUnauthorized
	}
	op := "deactivate"
	if active {
		op = "activate"
	}
	id := c.Param("id")
	u, err := h.svc.SetActive(ctx, id, active)
	h.record(ctx, op, id, err, map[string]string{"actor_id": p.AccountID})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, userEnvelope{User: toUserResponse(*u)})
}

// ListAuditLogs returns the newest audit entries for the account in :id. Query: limit, offset.
func (h *AuthHandler) ListAuditLogs(c echo.Context) error {
	if h.reader == nil {
		return echo.ErrNotFound
	}
	ctx := c.Request().Context()
	limit, err := queryInt32(c, "limit", defaultAuditPageSize)
	if err != nil {
		return err
	}
	offset, err := queryInt32(c, "offset", 0)
	if err != nil {
		return err
	}
	if limit <= 0 || limit > maxAuditPageSize {
		limit = defaultAuditPageSize
	}
	if offset < 0 {
		offset = 0
	}
	logs, err := h.reader.ListByAccount(ctx, c.Param("id"), limit, offset)
	if err != nil {
		return fmt.Errorf("list audit logs: %w", err)
	}
	out := auditLogsResponse{Logs: make([]auditLogResponse, 0, len(logs))}
	for _, l := range logs {
		out.Logs = append(out.Logs, toAuditLogResponse(l))
	}
	return c.JSON(http.StatusOK, out)
}

func queryInt32(c echo.Context, name string, def int32) (int32, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", identity.ErrValidation, name)
	}
	return int32(v), nil
}

var eventTypes = map[string]string{
	"register":        telemetrydomain.EventRegister,
	"login":           telemetrydomain.EventLogin,
	"refresh":         telemetrydomain.EventRefresh,
	"logout":          telemetrydomain.EventLogout,
	"logout_all":      telemetrydomain.EventLogoutAll,
	"change_password": telemetrydomain.EventPasswordChange,
	"activate":        telemetrydomain.EventAccountStatus,
	"deactivate":      telemetrydomain.EventAccountStatus,
}

// record writes the audit entry, counter and async event for one operation. Best-effort.
func (h *AuthHandler) record(ctx context.Context, op, accountID string, err error, meta map[string]string) {
	outcome, reason := telemetrydomain.OutcomeSuccess, ""
	if err != nil {
		outcome, reason = telemetrydomain.OutcomeFailure, ErrorCode(err)
	}

	label := outcome
	if reason != "" {
		label = reason
	}
	h.metrics.Operation(op, label)

	if h.audit != nil {
		ar := audit.ForOperation(op, err == nil)
		h.audit.LogEvent(ctx, accountID, ar.Action, ar.Resource, auditMetadata(ctx, reason, meta))
	}

	if h.events != nil {
		telemetry.EmitAsync(h.events, ctx, &telemetrydomain.Event{
			Type:      eventTypes[op],
			AccountID: accountID,
			Outcome:   outcome,
			Reason:    reason,
			Source:    "http",
			Metadata:  meta,
		})
	}
}

func auditMetadata(ctx context.Context, reason string, meta map[string]string) string {
	if reason == "" && len(meta) == 0 {
		return ""
	}
	m := make(map[string]string, len(meta)+1)
	for k, v := range meta {
		m[k] = v
	}
	if reason != "" {
		m["reason"] = reason
	}
	b, err := json.Marshal(m)
	if err != nil {
		logging.FromContext(ctx).Warn("audit: encode metadata", "error", err)
		return ""
	}
	return string(b)
}
