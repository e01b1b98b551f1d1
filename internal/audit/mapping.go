package audit

// Actions recorded by the auth handlers.
const (
	ActionRegister       = "register"
	ActionLoginSuccess   = "login_success"
	ActionLoginFailure   = "login_failure"
	ActionRefresh        = "refresh"
	ActionRefreshFailure = "refresh_failure"
	ActionLogout         = "logout"
	ActionLogoutAll      = "logout_all"
	ActionPasswordChange = "password_change"
	ActionActivate       = "account_activated"
	ActionDeactivate     = "account_deactivated"
)

// Resources recorded by the auth handlers.
const (
	ResourceAccount = "account"
	ResourceSession = "session"
)

// ActionResource holds the action and resource for an auth operation.
type ActionResource struct {
	Action   string
	Resource string
}

// ForOperation returns the audit action and resource for an auth operation and its outcome.
// Unknown operations map to action "unknown" on resource "unknown".
func ForOperation(op string, ok bool) ActionResource {
	switch op {
	case "register":
		return ActionResource{Action: ActionRegister, Resource: ResourceAccount}
	case "login":
		if ok {
			return ActionResource{Action: ActionLoginSuccess, Resource: ResourceSession}
		}
		return ActionResource{Action: ActionLoginFailure, Resource: ResourceSession}
	case "refresh":
		if ok {
			return ActionResource{Action: ActionRefresh, Resource: ResourceSession}
		}
		return ActionResource{Action: ActionRefreshFailure, Resource: ResourceSession}
	case "logout":
		return ActionResource{Action: ActionLogout, Resource: ResourceSession}
	case "logout_all":
		return ActionResource{Action: ActionLogoutAll, Resource: ResourceSession}
	case "change_password":
		return ActionResource{Action: ActionPasswordChange, Resource: ResourceAccount}
	case "activate":
		return ActionResource{Action: ActionActivate, Resource: ResourceAccount}
	case "deactivate":
		return ActionResource{Action: ActionDeactivate, Resource: ResourceAccount}
	}
	return ActionResource{Action: "unknown", Resource: "unknown"}
}
