package auth

import (
	"context"
	"testing"
	"time"

	"github.com/Aidin1998/taskmanager/pkg/errors"
	"github.com/Aidin1998/taskmanager/pkg/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJWT(t *testing.T) *JWT {
	t.Helper()
	j, err := NewJWT(JWTConfig{
		Secret:    "test-secret",
		Issuer:    "taskmanager",
		Audience:  "taskmanager-api",
		ExpiresIn: time.Hour,
	})
	require.NoError(t, err)
	return j
}

func testCaller() Caller {
	return Caller{
		UserID:   uuid.New(),
		Email:    "alice@example.com",
		Username: "alice",
		Role:     models.RoleAdmin,
	}
}

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(4)

	hash, err := h.Hash("secret1")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", hash)

	assert.NoError(t, h.Compare(hash, "secret1"))
	assert.ErrorIs(t, h.Compare(hash, "wrong"), ErrPasswordMismatch)
}

func TestNewBcryptHasherClampsCost(t *testing.T) {
	assert.Equal(t, 10, NewBcryptHasher(0).cost)
	assert.Equal(t, 10, NewBcryptHasher(100).cost)
	assert.Equal(t, 12, NewBcryptHasher(12).cost)
}

func TestNewJWTRequiresSecretAndExpiry(t *testing.T) {
	_, err := NewJWT(JWTConfig{ExpiresIn: time.Hour})
	assert.Error(t, err)

	_, err = NewJWT(JWTConfig{Secret: "s"})
	assert.Error(t, err)
}

func TestIssueAndVerify(t *testing.T) {
	j := newTestJWT(t)
	caller := testCaller()

	token, err := j.Issue(caller)
	require.NoError(t, err)

	got, err := j.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, caller, *got)
	assert.True(t, got.IsAdmin())
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	j := newTestJWT(t)
	j.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, err := j.Issue(testCaller())
	require.NoError(t, err)

	_, err = j.Verify(context.Background(), token)
	assert.ErrorIs(t, err, errors.Forbidden)
	assert.Equal(t, 403, errors.HTTPStatus(err))
}

func TestVerifyRejectsForeignSecret(t *testing.T) {
	other, err := NewJWT(JWTConfig{
		Secret:    "another-secret",
		Issuer:    "taskmanager",
		Audience:  "taskmanager-api",
		ExpiresIn: time.Hour,
	})
	require.NoError(t, err)

	token, err := other.Issue(testCaller())
	require.NoError(t, err)

	_, err = newTestJWT(t).Verify(context.Background(), token)
	assert.ErrorIs(t, err, errors.Forbidden)
}

func TestVerifyRejectsWrongAudience(t *testing.T) {
	other, err := NewJWT(JWTConfig{
		Secret:    "test-secret",
		Issuer:    "taskmanager",
		Audience:  "someone-else",
		ExpiresIn: time.Hour,
	})
	require.NoError(t, err)

	token, err := other.Issue(testCaller())
	require.NoError(t, err)

	_, err = newTestJWT(t).Verify(context.Background(), token)
	assert.ErrorIs(t, err, errors.Forbidden)
}

func TestVerifyRejectsUnknownRole(t *testing.T) {
	j := newTestJWT(t)
	now := time.Now()
	claims := jwt.MapClaims{
		"iss":      "taskmanager",
		"aud":      []string{"taskmanager-api"},
		"sub":      uuid.NewString(),
		"iat":      now.Unix(),
		"exp":      now.Add(time.Hour).Unix(),
		"userId":   uuid.NewString(),
		"username": "mallory",
		"email":    "mallory@example.com",
		"role":     "root",
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = j.Verify(context.Background(), token)
	assert.ErrorIs(t, err, errors.Forbidden)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	_, err := newTestJWT(t).Verify(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, errors.Forbidden)
}

func TestCallerFor(t *testing.T) {
	u := &models.User{ID: uuid.New(), Username: "bob", Email: "bob@example.com", Role: models.RoleUser}
	c := CallerFor(u)
	assert.Equal(t, u.ID, c.UserID)
	assert.Equal(t, "bob", c.Username)
	assert.False(t, c.IsAdmin())
}
