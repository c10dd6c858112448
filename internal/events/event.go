// Package events publishes task lifecycle events to external sinks.
package events

import (
	"time"

	"github.com/Aidin1998/taskmanager/pkg/models"
	"github.com/google/uuid"
)

// EventType names a task lifecycle change.
type EventType string

const (
	TaskCreated EventType = "task.created"
	TaskUpdated EventType = "task.updated"
	TaskDeleted EventType = "task.deleted"
)

// TaskEvent is the payload written to every sink.
type TaskEvent struct {
	ID         uuid.UUID         `json:"id"`
	Type       EventType         `json:"type"`
	TaskID     uuid.UUID         `json:"taskId"`
	ActorID    uuid.UUID         `json:"actorId"`
	AssigneeID uuid.UUID         `json:"assigneeId"`
	Status     models.TaskStatus `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
}

// NewTaskEvent describes a change made to task by actor.
func NewTaskEvent(eventType EventType, task *models.Task, actor uuid.UUID) *TaskEvent {
	return &TaskEvent{
		ID:         uuid.New(),
		Type:       eventType,
		TaskID:     task.ID,
		ActorID:    actor,
		AssigneeID: task.AssigneeID,
		Status:     task.Status,
		Timestamp:  time.Now().UTC(),
	}
}
