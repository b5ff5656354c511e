package models

import "time"

// SessionState is a node of the onboarding / login state machine
type SessionState string

const (
	StateRoleSelection  SessionState = "RoleSelection"
	StateAuthenticating SessionState = "Authenticating"
	StateOtpPending     SessionState = "OtpPending"
	StateProfileSetup   SessionState = "ProfileSetup"
	StateActive         SessionState = "Active"
)

// PendingRegistration is the normalized registration held between sign-up and
// profile completion
type PendingRegistration struct {
	Role           Role   `json:"role"`
	Identifier     string `json:"identifier"`
	PasswordHash   string `json:"passwordHash"`
	PersonalNumber string `json:"personalNumber,omitempty"`
}

// Session tracks one client through the state machine
type Session struct {
	ID           string               `json:"id"`
	State        SessionState         `json:"state"`
	Role         Role                 `json:"role,omitempty"`
	Registration *PendingRegistration `json:"registration,omitempty"`
	UserID       string               `json:"userId,omitempty"`
	CreatedAt    time.Time            `json:"createdAt"`
	UpdatedAt    time.Time            `json:"updatedAt"`
	ExpiresAt    time.Time            `json:"expiresAt"`
}

// ExpiredAt reports whether the session has passed its expiry at now
func (s *Session) ExpiredAt(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}
