package domain

import "time"

// Event types emitted by the auth service.
const (
	EventRegister       = "auth.register"
	EventLogin          = "auth.login"
	EventRefresh        = "auth.refresh"
	EventLogout         = "auth.logout"
	EventLogoutAll      = "auth.logout_all"
	EventPasswordChange = "auth.password_change"
	EventAccountStatus  = "auth.account_status"
)

// Outcomes attached to events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Event is one auth lifecycle event. Never carries tokens or passwords.
type Event struct {
	Type      string            `json:"type"`
	AccountID string            `json:"account_id,omitempty"`
	Outcome   string            `json:"outcome"`
	Reason    string            `json:"reason,omitempty"`
	Source    string            `json:"source"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}
