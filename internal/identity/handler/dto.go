package handler

import (
	"time"

	auditdomain "pds-auth/internal/audit/domain"
	identity "pds-auth/internal/identity/service"
)

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// userResponse is the public account summary. Names are null when the profile has none.
type userResponse struct {
	ID        string  `json:"id"`
	Email     string  `json:"email"`
	Role      string  `json:"role"`
	Active    bool    `json:"active"`
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
}

type userEnvelope struct {
	User userResponse `json:"user"`
}

type authResponse struct {
	User        userResponse `json:"user"`
	AccessToken string       `json:"accessToken"`
	ExpiresAt   time.Time    `json:"accessTokenExpiresAt"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type auditLogResponse struct {
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	Resource  string    `json:"resource"`
	IP        string    `json:"ip"`
	Metadata  string    `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type auditLogsResponse struct {
	Logs []auditLogResponse `json:"logs"`
}

func toUserResponse(u identity.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		Role:      string(u.Role),
		Active:    u.Active,
		FirstName: optional(u.FirstName),
		LastName:  optional(u.LastName),
	}
}

func toAuthResponse(r *identity.AuthResult) authResponse {
	return authResponse{
		User:        toUserResponse(r.User),
		AccessToken: r.AccessToken,
		ExpiresAt:   r.AccessExpiresAt,
	}
}

func toAuditLogResponse(a *auditdomain.AuditLog) auditLogResponse {
	return auditLogResponse{
		ID:        a.ID,
		Action:    a.Action,
		Resource:  a.Resource,
		IP:        a.IP,
		Metadata:  a.Metadata,
		CreatedAt: a.CreatedAt,
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
