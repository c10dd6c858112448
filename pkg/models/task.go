package models

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus is a free-form progress label; any status may follow any other.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in-progress"
	TaskStatusCompleted  TaskStatus = "completed"
)

// ValidTaskStatuses returns the accepted statuses in display order.
func ValidTaskStatuses() []TaskStatus {
	return []TaskStatus{TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted}
}

// ParseTaskStatus returns the status named by s.
func ParseTaskStatus(s string) (TaskStatus, bool) {
	for _, status := range ValidTaskStatuses() {
		if string(status) == s {
			return status, true
		}
	}
	return "", false
}

// Task represents a unit of work assigned to a user
type Task struct {
	ID          uuid.UUID  `gorm:"primaryKey;type:uuid"`
	Title       string     `gorm:"not null"`
	Description string     `gorm:"type:text"`
	Status      TaskStatus `gorm:"type:varchar(16);not null;default:pending;index"`
	AssigneeID  uuid.UUID  `gorm:"type:uuid;not null;index"`
	Assignee    *User      `gorm:"foreignKey:AssigneeID;constraint:OnDelete:CASCADE"`
	DueDate     *time.Time
	CreatedAt   time.Time `gorm:"index"`
	UpdatedAt   time.Time
}

// TaskResponse is the public projection of a Task.
type TaskResponse struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      TaskStatus `json:"status"`
	DueDate     *time.Time `json:"dueDate"`
	Username    string     `json:"username"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// ToResponse projects the task. Assignee must be loaded for Username to be
// filled.
func (t *Task) ToResponse() *TaskResponse {
	resp := &TaskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		DueDate:     t.DueDate,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	if t.Assignee != nil {
		resp.Username = t.Assignee.Username
	}
	return resp
}

// CreateTaskRequest represents the request body for task creation
type CreateTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Username    string `json:"username"`
	DueDate     string `json:"dueDate"`
}

// UpdateTaskRequest carries a partial update; nil fields are left untouched.
type UpdateTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	Username    *string `json:"username"`
	DueDate     *string `json:"dueDate"`
}

// TaskQuery holds the raw list parameters as received.
type TaskQuery struct {
	Page   string `form:"page"`
	Limit  string `form:"limit"`
	Status string `form:"status"`
}

// Pagination describes where a page sits in the full result set.
type Pagination struct {
	CurrentPage int   `json:"currentPage"`
	TotalPages  int   `json:"totalPages"`
	TotalTasks  int64 `json:"totalTasks"`
	Limit       int   `json:"limit"`
	HasNextPage bool  `json:"hasNextPage"`
	HasPrevPage bool  `json:"hasPrevPage"`
}

// TaskPage is one page of tasks.
type TaskPage struct {
	Tasks      []*TaskResponse `json:"tasks"`
	Pagination Pagination      `json:"pagination"`
}
