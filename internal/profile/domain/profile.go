package domain

import "time"

// Profile holds the display names attached to an account. Both names are optional.
type Profile struct {
	AccountID string
	FirstName string
	LastName  string
	UpdatedAt time.Time
}
