package engine

import (
	"context"
	"testing"
)

func TestRoleGuard_HealthCheck(t *testing.T) {
	ctx := context.Background()
	g, err := NewRoleGuard(ctx)
	if err != nil {
		t.Fatalf("NewRoleGuard: %v", err)
	}
	if err := g.HealthCheck(ctx); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
}

func TestRoleGuard_Allowed(t *testing.T) {
	ctx := context.Background()
	g, err := NewRoleGuard(ctx)
	if err != nil {
		t.Fatalf("NewRoleGuard: %v", err)
	}
	tests := []struct {
		name    string
		role    string
		allowed []string
		want    bool
	}{
		{"single match", "administrator", []string{"administrator"}, true},
		{"one of many", "hr", []string{"administrator", "hr"}, true},
		{"not listed", "employee", []string{"administrator", "hr"}, false},
		{"case sensitive", "Administrator", []string{"administrator"}, false},
		{"empty role", "", []string{"administrator", ""}, false},
		{"empty list", "administrator", []string{}, false},
		{"nil list", "administrator", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := g.Allowed(ctx, tt.role, tt.allowed)
			if err != nil {
				t.Fatalf("Allowed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Allowed(%q, %v) = %v, want %v", tt.role, tt.allowed, got, tt.want)
			}
		})
	}
}
