package dto

import (
	"time"

	"github.com/yigit/campuskizuna/internal/app/models"
)

// SelectRoleRequest chooses the role the session will authenticate as
type SelectRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=Student Faculty Admin" example:"Student"`
}

// RegisterRequest carries sign-up fields. Which ones are required depends on the
// session role: students register with their UUCMS number and a contact number.
type RegisterRequest struct {
	Identifier     string `json:"identifier" binding:"required" example:"UUCMS004"`
	Password       string `json:"password" binding:"required"`
	PersonalNumber string `json:"personalNumber" example:"+919876543210"`
}

// LoginRequest authenticates an existing user of the session role
type LoginRequest struct {
	Identifier string `json:"identifier" binding:"required" example:"UUCMS001"`
	Password   string `json:"password" binding:"required"`
}

// VerifyOTPRequest submits the one-time code
type VerifyOTPRequest struct {
	Code string `json:"code" binding:"required" example:"123456"`
}

// ProfileSetupRequest completes onboarding
type ProfileSetupRequest struct {
	Name         string   `json:"name" binding:"required,min=2,max=100"`
	Bio          string   `json:"bio" binding:"required"`
	Avatar       string   `json:"avatar" binding:"omitempty,url"`
	Skills       []string `json:"skills"`
	Achievements []string `json:"achievements"`
}

// SessionResponse describes where a client is in the onboarding flow
type SessionResponse struct {
	ID        string              `json:"id"`
	State     models.SessionState `json:"state" example:"RoleSelection"`
	Role      models.Role         `json:"role,omitempty"`
	UserID    string              `json:"userId,omitempty"`
	ExpiresAt time.Time           `json:"expiresAt"`
	Auth      *AuthTokenResponse  `json:"auth,omitempty"`
}

// AuthTokenResponse is issued when a session becomes Active
type AuthTokenResponse struct {
	AccessToken string       `json:"accessToken"`
	TokenType   string       `json:"tokenType" example:"Bearer"`
	ExpiresIn   int          `json:"expiresIn" example:"3600"`
	User        UserResponse `json:"user"`
}

// NewSessionResponse maps a session onto its API view
func NewSessionResponse(s *models.Session) SessionResponse {
	return SessionResponse{
		ID:        s.ID,
		State:     s.State,
		Role:      s.Role,
		UserID:    s.UserID,
		ExpiresAt: s.ExpiresAt,
	}
}
