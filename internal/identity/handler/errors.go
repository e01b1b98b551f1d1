package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	identity "pds-auth/internal/identity/service"
	"pds-auth/internal/logging"
)

// Error codes returned in the "error" field of failure bodies.
const (
	CodeInvalidCredentials  = "invalid_credentials"
	CodeInactiveAccount     = "inactive_account"
	CodeMissingRefreshToken = "missing_refresh_token"
	CodeInvalidRefreshToken = "invalid_refresh_token"
	CodeUnauthorized        = "unauthorized"
	CodeForbidden           = "forbidden"
	CodeEmailInUse          = "email_in_use"
	CodeValidationFailed    = "validation_failed"
	CodeNotFound            = "not_found"
	CodeInternal            = "internal"
)

// statusFor maps err to an HTTP status, error code and client-facing message.
// Anything unrecognised is internal and its text is never returned to the client.
func statusFor(err error) (int, string, string) {
	switch {
	case errors.Is(err, identity.ErrInvalidCredentials):
		return http.StatusUnauthorized, CodeInvalidCredentials, "invalid email or password"
	case errors.Is(err, identity.ErrInactiveAccount):
		return http.StatusUnauthorized, CodeInactiveAccount, "account is inactive"
	case errors.Is(err, identity.ErrMissingRefreshToken):
		return http.StatusUnauthorized, CodeMissingRefreshToken, "refresh token is required"
	case errors.Is(err, identity.ErrInvalidRefreshToken):
		return http.StatusUnauthorized, CodeInvalidRefreshToken, "invalid or expired refresh token"
	case errors.Is(err, identity.ErrUnauthorized):
		return http.StatusUnauthorized, CodeUnauthorized, "missing or invalid authorization"
	case errors.Is(err, identity.ErrForbidden):
		return http.StatusForbidden, CodeForbidden, "insufficient role"
	case errors.Is(err, identity.ErrEmailInUse):
		return http.StatusConflict, CodeEmailInUse, "email already registered"
	case errors.Is(err, identity.ErrValidation):
		return http.StatusBadRequest, CodeValidationFailed, err.Error()
	case errors.Is(err, identity.ErrAccountNotFound):
		return http.StatusNotFound, CodeNotFound, "account not found"
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, codeForStatus(he.Code), messageFor(he)
	}
	return http.StatusInternalServerError, CodeInternal, "internal server error"
}

func codeForStatus(status int) string {
	switch {
	case status == http.StatusBadRequest:
		return CodeValidationFailed
	case status == http.StatusUnauthorized:
		return CodeUnauthorized
	case status == http.StatusForbidden:
		return CodeForbidden
	case status == http.StatusNotFound:
		return CodeNotFound
	case status >= 500:
		return CodeInternal
	}
	return strings.ReplaceAll(strings.ToLower(http.StatusText(status)), " ", "_")
}

func messageFor(he *echo.HTTPError) string {
	if he.Code >= 500 {
		return "internal server error"
	}
	if s, ok := he.Message.(string); ok {
		return s
	}
	return strings.ToLower(http.StatusText(he.Code))
}

// ErrorCode returns the error code err maps to. Used for metrics and telemetry outcomes.
func ErrorCode(err error) string {
	_, code, _ := statusFor(err)
	return code
}

// ErrorHandler is the echo HTTPErrorHandler. It renders {"error","message"} bodies and logs
// internal failures with their full text at error level; clients only see the generic code.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status, code, msg := statusFor(err)
	if status >= 500 {
		ctx := c.Request().Context()
		logging.FromContext(ctx).ErrorContext(ctx, "request failed", "error", err)
	}
	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(status)
	} else {
		writeErr = c.JSON(status, errorResponse{Error: code, Message: msg})
	}
	if writeErr != nil {
		logging.FromContext(c.Request().Context()).Warn("write error response", "error", writeErr)
	}
}
