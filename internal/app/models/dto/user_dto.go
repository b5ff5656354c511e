package dto

import (
	"time"

	"github.com/yigit/campuskizuna/internal/app/models"
)

// UserSummary is the compact author card embedded in posts, comments and stories
type UserSummary struct {
	ID     string      `json:"id" example:"student01"`
	Name   string      `json:"name" example:"Alex Johnson"`
	Avatar string      `json:"avatar" example:"https://picsum.photos/seed/student01/200"`
	Role   models.Role `json:"role" example:"Student"`
}

// UserResponse is the full profile view
type UserResponse struct {
	ID             string           `json:"id" example:"student01"`
	Name           string           `json:"name" example:"Alex Johnson"`
	Role           models.Role      `json:"role" example:"Student"`
	Avatar         string           `json:"avatar"`
	Bio            string           `json:"bio"`
	Skills         []string         `json:"skills"`
	Achievements   []string         `json:"achievements"`
	Stats          models.UserStats `json:"stats"`
	FollowerIDs    []string         `json:"followerIds"`
	FollowingIDs   []string         `json:"followingIds"`
	UUCMS          string           `json:"uucms,omitempty" example:"UUCMS001"`
	PersonalNumber string           `json:"personalNumber,omitempty"`
	ClassroomID    string           `json:"classroomId,omitempty" example:"bca_2a"`
	Coins          int              `json:"coins" example:"150"`
	CreatedAt      time.Time        `json:"createdAt"`
}

// UpdateProfileRequest replaces the editable profile fields
type UpdateProfileRequest struct {
	Name         string   `json:"name" binding:"required,min=2,max=100"`
	Bio          string   `json:"bio" binding:"required"`
	Avatar       string   `json:"avatar" binding:"omitempty,url"`
	Skills       []string `json:"skills"`
	Achievements []string `json:"achievements"`
}

// FollowResponse reports the follow edge after a toggle
type FollowResponse struct {
	Following bool         `json:"following"`
	Actor     UserResponse `json:"actor"`
	Target    UserResponse `json:"target"`
}

// NewUserSummary builds the author card; a missing user renders as a placeholder
func NewUserSummary(u *models.User) UserSummary {
	if u == nil {
		return UserSummary{Name: "Unknown user"}
	}
	return UserSummary{ID: u.ID, Name: u.Name, Avatar: u.Avatar, Role: u.Role}
}

// NewUserResponse maps a user onto its API view
func NewUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:             u.ID,
		Name:           u.Name,
		Role:           u.Role,
		Avatar:         u.Avatar,
		Bio:            u.Bio,
		Skills:         nonNil(u.Skills),
		Achievements:   nonNil(u.Achievements),
		Stats:          u.Stats,
		FollowerIDs:    nonNil(u.FollowerIDs),
		FollowingIDs:   nonNil(u.FollowingIDs),
		UUCMS:          u.UUCMS,
		PersonalNumber: u.PersonalNumber,
		ClassroomID:    u.ClassroomID,
		Coins:          u.Coins,
		CreatedAt:      u.CreatedAt,
	}
}

// NewUserResponses maps a slice of users
func NewUserResponses(users []*models.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, NewUserResponse(u))
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
