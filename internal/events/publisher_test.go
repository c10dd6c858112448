package events

import (
	"context"
	"fmt"
	"testing"

	"github.com/Aidin1998/taskmanager/internal/config"
	"github.com/Aidin1998/taskmanager/pkg/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingPublisher struct {
	name   string
	err    error
	events []*TaskEvent
	closed bool
}

func (r *recordingPublisher) Name() string { return r.name }

func (r *recordingPublisher) PublishEvent(ctx context.Context, event *TaskEvent) error {
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, event)
	return nil
}

func (r *recordingPublisher) Close() error {
	r.closed = true
	return nil
}

func testEvent() *TaskEvent {
	task := &models.Task{ID: uuid.New(), AssigneeID: uuid.New(), Status: models.TaskStatusPending}
	return NewTaskEvent(TaskCreated, task, uuid.New())
}

func TestNewTaskEvent(t *testing.T) {
	task := &models.Task{ID: uuid.New(), AssigneeID: uuid.New(), Status: models.TaskStatusCompleted}
	actor := uuid.New()

	event := NewTaskEvent(TaskUpdated, task, actor)
	assert.Equal(t, TaskUpdated, event.Type)
	assert.Equal(t, task.ID, event.TaskID)
	assert.Equal(t, task.AssigneeID, event.AssigneeID)
	assert.Equal(t, actor, event.ActorID)
	assert.Equal(t, models.TaskStatusCompleted, event.Status)
	assert.NotEqual(t, uuid.Nil, event.ID)
}

func TestPublishFansOut(t *testing.T) {
	a := &recordingPublisher{name: "a"}
	b := &recordingPublisher{name: "b"}
	p := NewEventPublisher([]Publisher{a, b}, zap.NewNop())

	event := testEvent()
	require.NoError(t, p.Publish(context.Background(), event))
	assert.Equal(t, []*TaskEvent{event}, a.events)
	assert.Equal(t, []*TaskEvent{event}, b.events)
}

func TestPublishToleratesPartialFailure(t *testing.T) {
	ok := &recordingPublisher{name: "ok"}
	broken := &recordingPublisher{name: "broken", err: fmt.Errorf("down")}
	p := NewEventPublisher([]Publisher{broken, ok}, zap.NewNop())

	assert.NoError(t, p.Publish(context.Background(), testEvent()))
	assert.Len(t, ok.events, 1)
}

func TestPublishFailsWhenEverySinkFails(t *testing.T) {
	broken := &recordingPublisher{name: "broken", err: fmt.Errorf("down")}
	p := NewEventPublisher([]Publisher{broken}, zap.NewNop())

	err := p.Publish(context.Background(), testEvent())
	assert.ErrorContains(t, err, "all publishers failed")
}

func TestPublishWithoutSinks(t *testing.T) {
	p := FromConfig(config.EventsConfig{}, zap.NewNop())
	assert.NoError(t, p.Publish(context.Background(), testEvent()))
	assert.Error(t, p.Publish(context.Background(), nil))
	assert.NoError(t, p.Close())
}

func TestFromConfigBuildsSinks(t *testing.T) {
	p := FromConfig(config.EventsConfig{
		KafkaBrokers: []string{"localhost:9092"},
		KafkaTopic:   "task-events",
		RedisAddr:    "localhost:6379",
		RedisStream:  "task-events",
	}, zap.NewNop())
	defer p.Close()

	require.Len(t, p.publishers, 2)
	assert.Equal(t, "kafka", p.publishers[0].Name())
	assert.Equal(t, "redis", p.publishers[1].Name())
}

func TestClose(t *testing.T) {
	a := &recordingPublisher{name: "a"}
	p := NewEventPublisher([]Publisher{a}, zap.NewNop())
	require.NoError(t, p.Close())
	assert.True(t, a.closed)
}
