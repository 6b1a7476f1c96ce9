package models

import (
	"strings"
	"time"
)

// Visibility controls who can discover a profile.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityCampus  Visibility = "campus"
	VisibilityPrivate Visibility = "private"
)

// Campus roles. The first role is assigned to every new profile.
const (
	RoleStudent     = "student"
	RoleStaff       = "staff"
	RoleAdmin       = "admin"
	RoleProfessor   = "professor"
	RoleTA          = "ta"
	RoleClubOfficer = "club_officer"
)

// Profile is the user document stored at users/{uid}. The uid is the
// subject id issued by the identity provider; the profile is created
// lazily on first authenticated access. FriendsCount and PendingCount
// are maintained exclusively by the friend graph engine.
type Profile struct {
	UID               string          `json:"uid"`
	Email             string          `json:"email"`
	Name              string          `json:"name,omitempty"`
	PhotoURL          string          `json:"photoURL,omitempty"`
	PrimaryRole       string          `json:"primaryRole,omitempty"`
	Roles             []string        `json:"roles"`
	Year              string          `json:"year,omitempty"`
	Major             string          `json:"major,omitempty"`
	Bio               string          `json:"bio,omitempty"`
	Pronouns          string          `json:"pronouns,omitempty"`
	Phone             string          `json:"phone,omitempty"`
	Visibility        Visibility      `json:"visibility"`
	NotificationPrefs map[string]bool `json:"notificationPrefs,omitempty"`
	DomainOK          bool            `json:"domainOk"`
	IsStaffVerified   bool            `json:"isStaffVerified"`
	FriendsCount      int64           `json:"friendsCount"`
	PendingCount      int64           `json:"pendingCount"`
	CreatedAt         time.Time       `json:"createdAt,omitempty"`
	UpdatedAt         time.Time       `json:"updatedAt,omitempty"`
}

// AllowedUserFields is the set of profile fields a user may change
// through the profile PATCH endpoint. Everything else (counters,
// roles, shadow fields, audit timestamps) is server-maintained.
var AllowedUserFields = map[string]bool{
	"name":              true,
	"photoURL":          true,
	"year":              true,
	"major":             true,
	"bio":               true,
	"pronouns":          true,
	"phone":             true,
	"visibility":        true,
	"notificationPrefs": true,
}

// FallbackName returns name, or the local part of email when the
// profile has no display name set.
func FallbackName(name, email string) string {
	if name != "" {
		return name
	}
	if i := strings.IndexByte(email, '@'); i >= 0 {
		return email[:i]
	}
	return email
}
