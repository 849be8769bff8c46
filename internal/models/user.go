package models

import (
	"strings"
	"time"
)

// RoleStudent is the role carried by student accounts.
const RoleStudent = "student"

// User is the profile returned by the backend for the signed-in account
type User struct {
	ID              int64  `json:"id"`
	Email           string `json:"email"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Role            string `json:"role"`
	IndexNumber     string `json:"index_number"`
	ClassName       string `json:"class_name"`
	IsActive        bool   `json:"is_active"`
	IsGoogleAccount bool   `json:"is_google_account"`
}

// FullName joins first and last name, falling back to the email address.
func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}

// IsStudent reports whether the account has the student role.
func (u *User) IsStudent() bool {
	return u != nil && strings.EqualFold(u.Role, RoleStudent)
}

// TokenSession is a stored bearer token keyed by the visitor's session cookie
type TokenSession struct {
	ID          string
	SealedToken string
	ExpiresAt   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsExpired checks if the session has expired
func (s *TokenSession) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}
