package models

import (
	"strings"

	"github.com/google/uuid"
)

// Role is a user's fixed capability class
type Role string

const (
	RoleStudent Role = "Student"
	RoleFaculty Role = "Faculty"
	RoleAdmin   Role = "Admin"
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleFaculty, RoleAdmin:
		return true
	}
	return false
}

// ParseRole accepts any casing of a role name
func ParseRole(s string) (Role, bool) {
	for _, r := range []Role{RoleStudent, RoleFaculty, RoleAdmin} {
		if strings.EqualFold(string(r), strings.TrimSpace(s)) {
			return r, true
		}
	}
	return "", false
}

// DayOfWeek is a teaching day. Timetables run Monday to Friday.
type DayOfWeek string

const (
	Monday    DayOfWeek = "Monday"
	Tuesday   DayOfWeek = "Tuesday"
	Wednesday DayOfWeek = "Wednesday"
	Thursday  DayOfWeek = "Thursday"
	Friday    DayOfWeek = "Friday"
)

// TeachingDays lists the days in week order
var TeachingDays = []DayOfWeek{Monday, Tuesday, Wednesday, Thursday, Friday}

// ParseDay accepts any casing of a teaching day
func ParseDay(s string) (DayOfWeek, bool) {
	for _, d := range TeachingDays {
		if strings.EqualFold(string(d), strings.TrimSpace(s)) {
			return d, true
		}
	}
	return "", false
}

// Index returns the zero-based position of d in the teaching week, or -1
func (d DayOfWeek) Index() int {
	for i, day := range TeachingDays {
		if day == d {
			return i
		}
	}
	return -1
}

// MediaType distinguishes post and story media
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
)

// Valid reports whether m is a supported media kind
func (m MediaType) Valid() bool {
	return m == MediaImage || m == MediaVideo
}

// Identifier prefixes for application-assigned ids
const (
	PrefixUser       = "user"
	PrefixPost       = "post"
	PrefixStory      = "story"
	PrefixComment    = "cmt"
	PrefixSubject    = "sub"
	PrefixClassroom  = "cls"
	PrefixAssignment = "asg"
)

// NewID allocates an id of the form <prefix>_<uuid>
func NewID(prefix string) string {
	return prefix + "_" + uuid.NewString()
}

// Contains reports whether id is in ids
func Contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// Without returns ids with every occurrence of id removed
func Without(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// WithAdded appends id unless already present
func WithAdded(ids []string, id string) []string {
	if Contains(ids, id) {
		return ids
	}
	return append(ids, id)
}
