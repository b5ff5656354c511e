package models

import "time"

// UserStats holds the derived social counters of a user
type UserStats struct {
	Posts     int `json:"posts"`
	Followers int `json:"followers"`
	Following int `json:"following"`
}

// User is a campus member: identity, social graph and academic profile
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Role         Role      `json:"role"`
	Avatar       string    `json:"avatar"`
	Bio          string    `json:"bio"`
	Skills       []string  `json:"skills"`
	Achievements []string  `json:"achievements"`
	Stats        UserStats `json:"stats"`
	FollowerIDs  []string  `json:"followerIds"`
	FollowingIDs []string  `json:"followingIds"`

	// Student-only fields
	UUCMS          string `json:"uucms,omitempty"`
	PersonalNumber string `json:"personalNumber,omitempty"`
	ClassroomID    string `json:"classroomId,omitempty"`

	Coins     int       `json:"coins"`
	CreatedAt time.Time `json:"createdAt"`
}

// GetID returns the document id
func (u *User) GetID() string { return u.ID }

// DefaultCoins is the balance granted to newly onboarded users
const DefaultCoins = 100

// IsFollowing reports whether u follows targetID
func (u *User) IsFollowing(targetID string) bool {
	return Contains(u.FollowingIDs, targetID)
}

// RecomputeFollowStats refreshes the follower/following counters from the id sets
func (u *User) RecomputeFollowStats() {
	u.Stats.Followers = len(u.FollowerIDs)
	u.Stats.Following = len(u.FollowingIDs)
}

// Credential is the login secret of a user, stored apart from the profile
type Credential struct {
	ID           string    `json:"id"` // same as the user id
	Identifier   string    `json:"identifier"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
}

// GetID returns the document id
func (c *Credential) GetID() string { return c.ID }
