// Package testutil provides fixtures shared by the service and server tests.
package testutil

import (
	"testing"
	"time"

	"github.com/Aidin1998/taskmanager/internal/auth"
	"github.com/Aidin1998/taskmanager/internal/config"
	"github.com/Aidin1998/taskmanager/internal/database"
	"github.com/Aidin1998/taskmanager/pkg/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Password is the plain password of every user made by CreateUser.
const Password = "password123"

// NewDB opens a migrated in-memory SQLite database closed at test end.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{
		Driver:      "sqlite",
		DSN:         "file::memory:",
		AutoMigrate: true,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

// NewJWT returns a token issuer and verifier with a fixed test secret.
func NewJWT(t *testing.T) *auth.JWT {
	t.Helper()
	j, err := auth.NewJWT(auth.JWTConfig{
		Secret:    "test-secret",
		Issuer:    "taskmanager",
		Audience:  "taskmanager-api",
		ExpiresIn: time.Hour,
	})
	require.NoError(t, err)
	return j
}

// Hasher uses the lowest bcrypt cost to keep tests fast.
func Hasher() *auth.BcryptHasher {
	return auth.NewBcryptHasher(4)
}

// CreateUser stores a user with Password as its password.
func CreateUser(t *testing.T, db *gorm.DB, username string, role models.Role) *models.User {
	t.Helper()
	hash, err := Hasher().Hash(Password)
	require.NoError(t, err)

	u := &models.User{
		ID:           uuid.New(),
		FirstName:    "Test",
		LastName:     "User",
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: hash,
		Role:         role,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

// CallerOf returns the token identity of u.
func CallerOf(u *models.User) auth.Caller {
	return auth.CallerFor(u)
}
