package tasks

import (
	"github.com/Aidin1998/taskmanager/internal/auth"
	"github.com/Aidin1998/taskmanager/pkg/models"
)

// CanAccess reports whether caller may modify task: admins may modify any
// task, everyone else only the tasks assigned to them.
func CanAccess(task *models.Task, caller auth.Caller) bool {
	return caller.IsAdmin() || task.AssigneeID == caller.UserID
}
