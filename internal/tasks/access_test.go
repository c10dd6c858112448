package tasks

import (
	"testing"

	"github.com/Aidin1998/taskmanager/internal/auth"
	"github.com/Aidin1998/taskmanager/pkg/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestCanAccess(t *testing.T) {
	owner := uuid.New()
	task := &models.Task{ID: uuid.New(), AssigneeID: owner}

	assert.True(t, CanAccess(task, auth.Caller{UserID: owner, Role: models.RoleUser}))
	assert.False(t, CanAccess(task, auth.Caller{UserID: uuid.New(), Role: models.RoleUser}))
	assert.True(t, CanAccess(task, auth.Caller{UserID: uuid.New(), Role: models.RoleAdmin}))
}
