package auth

import (
	"strings"

	"studentportal/internal/models"
)

// Policy decides whether a verified user may see a route.
type Policy func(user *models.User) bool

// AnyUser admits every verified user.
func AnyUser(user *models.User) bool {
	return user != nil
}

// RequireRole admits users whose role matches, ignoring case.
func RequireRole(role string) Policy {
	return func(user *models.User) bool {
		return user != nil && strings.EqualFold(user.Role, role)
	}
}
