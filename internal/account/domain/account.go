package domain

import (
	"errors"
	"strings"
	"time"
)

// Role is the coarse role attached to an account. Authorization beyond a per-route allow-list is
// left to downstream collaborators.
type Role string

const (
	RoleAdministrator Role = "administrator"
	RoleHR            Role = "hr"
	RoleEmployee      Role = "employee"
	RoleTeacher       Role = "teacher"
	RoleUnprivileged  Role = "unprivileged"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdministrator, RoleHR, RoleEmployee, RoleTeacher, RoleUnprivileged:
		return true
	}
	return false
}

// Account is the identity record used for authentication.
type Account struct {
	ID           string
	Email        string // unique, matched exactly (case-sensitive)
	PasswordHash string
	Role         Role
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Validate validates the account for persistence. Returns an error describing the first validation failure.
func (a *Account) Validate() error {
	if a.ID == "" {
		return errors.New("id is required")
	}
	if strings.TrimSpace(a.Email) == "" {
		return errors.New("email is required")
	}
	if a.PasswordHash == "" {
		return errors.New("password hash is required")
	}
	if a.Role == "" {
		a.Role = RoleUnprivileged
	}
	if !a.Role.Valid() {
		return errors.New("unknown role")
	}
	return nil
}

// Principal is the resolved identity attached to an authenticated request. It is a value with no
// lifecycle of its own.
type Principal struct {
	AccountID string
	Email     string
	Role      Role
	Active    bool
}

// Principal returns the live principal for a.
func (a *Account) Principal() Principal {
	return Principal{AccountID: a.ID, Email: a.Email, Role: a.Role, Active: a.Active}
}
