package audit

import "testing"

func TestForOperation(t *testing.T) {
	tests := []struct {
		op   string
		ok   bool
		want ActionResource
	}{
		{"login", true, ActionResource{ActionLoginSuccess, ResourceSession}},
		{"login", false, ActionResource{ActionLoginFailure, ResourceSession}},
		{"refresh", true, ActionResource{ActionRefresh, ResourceSession}},
		{"refresh", false, ActionResource{ActionRefreshFailure, ResourceSession}},
		{"logout", true, ActionResource{ActionLogout, ResourceSession}},
		{"logout_all", true, ActionResource{ActionLogoutAll, ResourceSession}},
		{"register", true, ActionResource{ActionRegister, ResourceAccount}},
		{"change_password", true, ActionResource{ActionPasswordChange, ResourceAccount}},
		{"activate", true, ActionResource{ActionActivate, ResourceAccount}},
		{"deactivate", true, ActionResource{ActionDeactivate, ResourceAccount}},
		{"something", true, ActionResource{"unknown", "unknown"}},
	}
	for _, tt := range tests {
		if got := ForOperation(tt.op, tt.ok); got != tt.want {
			t.Errorf("ForOperation(%q, %v) = %+v, want %+v", tt.op, tt.ok, got, tt.want)
		}
	}
}
