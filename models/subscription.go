package models

import (
	"strings"
	"time"
)

// SubscriptionRecord stores the newsletter subscription state for a
// single email address. Records are updated in place and never deleted,
// so the subscription history for an address is preserved.
type SubscriptionRecord struct {
	Email          string     `json:"email"`
	SubscribedAt   time.Time  `json:"subscribedAt"`
	Active         bool       `json:"active"`
	UnsubscribedAt *time.Time `json:"unsubscribedAt,omitempty"`
}

// NormalizeEmail lowercases an email address. The normalized form is
// the identity of a subscriber, so two casings of the same address map
// to the same record.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidationError indicates malformed or missing user input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
