// Package auth issues and verifies bearer tokens and hashes passwords.
package auth

import (
	"github.com/Aidin1998/taskmanager/pkg/models"
	"github.com/google/uuid"
)

// Caller is the identity decoded from a verified bearer token.
type Caller struct {
	UserID   uuid.UUID   `json:"userId"`
	Email    string      `json:"email"`
	Username string      `json:"username"`
	Role     models.Role `json:"role"`
}

// CallerFor builds the token identity of a stored user.
func CallerFor(u *models.User) Caller {
	return Caller{
		UserID:   u.ID,
		Email:    u.Email,
		Username: u.Username,
		Role:     u.Role,
	}
}

// IsAdmin reports whether the caller may act on any task.
func (c Caller) IsAdmin() bool {
	return c.Role.IsAdmin()
}
