package tasks_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Aidin1998/taskmanager/internal/auth"
	"github.com/Aidin1998/taskmanager/internal/events"
	"github.com/Aidin1998/taskmanager/internal/tasks"
	"github.com/Aidin1998/taskmanager/internal/testutil"
	"github.com/Aidin1998/taskmanager/pkg/errors"
	"github.com/Aidin1998/taskmanager/pkg/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type sinkRecorder struct {
	mu     sync.Mutex
	events []*events.TaskEvent
}

func (r *sinkRecorder) Publish(ctx context.Context, event *events.TaskEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *sinkRecorder) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

type fixture struct {
	db    *gorm.DB
	svc   tasks.TaskService
	sink  *sinkRecorder
	alice auth.Caller
	bob   auth.Caller
	admin auth.Caller
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	sink := &sinkRecorder{}
	svc, err := tasks.NewService(zap.NewNop(), db, sink, nil)
	require.NoError(t, err)

	return &fixture{
		db:    db,
		svc:   svc,
		sink:  sink,
		alice: testutil.CallerOf(testutil.CreateUser(t, db, "alice", models.RoleUser)),
		bob:   testutil.CallerOf(testutil.CreateUser(t, db, "bob", models.RoleUser)),
		admin: testutil.CallerOf(testutil.CreateUser(t, db, "root", models.RoleAdmin)),
	}
}

func ptr(s string) *string { return &s }

func message(err error) string {
	var e *errors.Error
	if errors.As(err, &e) {
		return e.Message
	}
	return ""
}

func TestCreateTaskDefaultsToCaller(t *testing.T) {
	f := setup(t)

	task, err := f.svc.CreateTask(context.Background(), f.alice, &models.CreateTaskRequest{Title: "Write report"})
	require.NoError(t, err)

	assert.Equal(t, "Write report", task.Title)
	assert.Equal(t, models.TaskStatusPending, task.Status)
	assert.Equal(t, "alice", task.Username)
	assert.Nil(t, task.DueDate)
	assert.Equal(t, []events.EventType{events.TaskCreated}, f.sink.types())
}

func TestCreateTaskForAnotherUser(t *testing.T) {
	f := setup(t)

	task, err := f.svc.CreateTask(context.Background(), f.alice, &models.CreateTaskRequest{
		Title:       "  Review PR  ",
		Description: "check a < b && c > d",
		Status:      "in-progress",
		Username:    "bob",
		DueDate:     "2026-03-01T12:00:00Z",
	})
	require.NoError(t, err)

	assert.Equal(t, "Review PR", task.Title)
	assert.Equal(t, "check a < b && c > d", task.Description)
	assert.Equal(t, models.TaskStatusInProgress, task.Status)
	assert.Equal(t, "bob", task.Username)
	require.NotNil(t, task.DueDate)
	assert.True(t, task.DueDate.Equal(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)))
}

func TestCreateTaskValidation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  models.CreateTaskRequest
		want string
	}{
		{"missing title", models.CreateTaskRequest{}, "Title is required"},
		{"blank title", models.CreateTaskRequest{Title: "   "}, "Title is required"},
		{"bad status", models.CreateTaskRequest{Title: "x", Status: "done"}, "Invalid status value. Must be one of: pending, in-progress, completed"},
		{"bad due date", models.CreateTaskRequest{Title: "x", DueDate: "next tuesday"}, "Invalid due date format"},
		{"unknown assignee", models.CreateTaskRequest{Title: "x", Username: "ghost"}, "Assigned user does not exist"},
		{"tag in title", models.CreateTaskRequest{Title: "Fix <title> tag rendering"}, "Title and description must be plain text"},
		{"tag-like title", models.CreateTaskRequest{Title: "a<b and c>d"}, "Title and description must be plain text"},
		{"tag-only title", models.CreateTaskRequest{Title: "<todo>"}, "Title and description must be plain text"},
		{"script in description", models.CreateTaskRequest{Title: "x", Description: "<script>alert(1)</script>"}, "Title and description must be plain text"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.CreateTask(ctx, f.alice, &tc.req)
			require.Error(t, err)
			assert.Equal(t, 400, errors.HTTPStatus(err))
			assert.Equal(t, tc.want, message(err))
		})
	}
	assert.Empty(t, f.sink.types())
}

func TestCreateTaskKeepsTextAsTyped(t *testing.T) {
	f := setup(t)

	for _, title := range []string{"R&D report", "x < y", "Ship <3 and cheer", "Use \"quotes\" & 'apostrophes'"} {
		task, err := f.svc.CreateTask(context.Background(), f.alice, &models.CreateTaskRequest{Title: title})
		require.NoError(t, err, title)
		assert.Equal(t, title, task.Title)

		var stored models.Task
		require.NoError(t, f.db.First(&stored, "id = ?", task.ID).Error)
		assert.Equal(t, title, stored.Title)
	}
}

func TestMarkupRejectionNamesField(t *testing.T) {
	f := setup(t)

	_, err := f.svc.CreateTask(context.Background(), f.alice, &models.CreateTaskRequest{Title: "ok", Description: "<i>no</i>"})
	require.Error(t, err)

	var e *errors.Error
	require.True(t, errors.As(err, &e))
	require.Len(t, e.Fields, 1)
	assert.Equal(t, "description", e.Fields[0].Field)
	assert.Equal(t, "plain_text", e.Fields[0].Kind)
}

func TestListTasksScopesByRole(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.svc.CreateTask(ctx, f.alice, &models.CreateTaskRequest{Title: fmt.Sprintf("alice %d", i)})
		require.NoError(t, err)
	}
	_, err := f.svc.CreateTask(ctx, f.bob, &models.CreateTaskRequest{Title: "bob 0", Status: "completed"})
	require.NoError(t, err)

	own, err := f.svc.ListTasks(ctx, f.alice, &models.TaskQuery{})
	require.NoError(t, err)
	assert.Len(t, own.Tasks, 3)
	for _, task := range own.Tasks {
		assert.Equal(t, "alice", task.Username)
	}

	all, err := f.svc.ListTasks(ctx, f.admin, &models.TaskQuery{})
	require.NoError(t, err)
	assert.Len(t, all.Tasks, 4)
	assert.Equal(t, int64(4), all.Pagination.TotalTasks)

	completed, err := f.svc.ListTasks(ctx, f.admin, &models.TaskQuery{Status: "completed"})
	require.NoError(t, err)
	require.Len(t, completed.Tasks, 1)
	assert.Equal(t, "bob 0", completed.Tasks[0].Title)

	_, err = f.svc.ListTasks(ctx, f.admin, &models.TaskQuery{Status: "archived"})
	assert.Equal(t, "Invalid status filter. Must be one of: pending, in-progress, completed", message(err))
}

func TestListTasksPagination(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	rows := make([]*models.Task, 250)
	for i := range rows {
		rows[i] = &models.Task{
			ID:         uuid.New(),
			Title:      fmt.Sprintf("task %03d", i),
			Status:     models.TaskStatusPending,
			AssigneeID: f.alice.UserID,
			CreatedAt:  base.Add(time.Duration(i) * time.Second),
		}
	}
	require.NoError(t, f.db.CreateInBatches(rows, 50).Error)

	first, err := f.svc.ListTasks(ctx, f.alice, &models.TaskQuery{Page: "1", Limit: "100"})
	require.NoError(t, err)
	assert.Len(t, first.Tasks, 100)
	assert.Equal(t, 3, first.Pagination.TotalPages)
	assert.True(t, first.Pagination.HasNextPage)
	assert.False(t, first.Pagination.HasPrevPage)
	assert.Equal(t, "task 000", first.Tasks[0].Title)

	second, err := f.svc.ListTasks(ctx, f.alice, &models.TaskQuery{Page: "2", Limit: "100"})
	require.NoError(t, err)
	assert.True(t, second.Pagination.HasPrevPage)
	assert.Equal(t, "task 100", second.Tasks[0].Title)

	third, err := f.svc.ListTasks(ctx, f.alice, &models.TaskQuery{Page: "3", Limit: "100"})
	require.NoError(t, err)
	assert.Len(t, third.Tasks, 50)
	assert.False(t, third.Pagination.HasNextPage)

	_, err = f.svc.ListTasks(ctx, f.alice, &models.TaskQuery{Limit: "101"})
	assert.Equal(t, 400, errors.HTTPStatus(err))
	assert.Equal(t, "Limit cannot exceed 100", message(err))

	_, err = f.svc.ListTasks(ctx, f.alice, &models.TaskQuery{Page: "0"})
	assert.Equal(t, "Page and limit must be positive numbers", message(err))

	_, err = f.svc.ListTasks(ctx, f.alice, &models.TaskQuery{Page: "100000000000000001", Limit: "100"})
	assert.Equal(t, 400, errors.HTTPStatus(err))
	assert.Equal(t, "Page is out of range", message(err))

	far, err := f.svc.ListTasks(ctx, f.alice, &models.TaskQuery{Page: "4", Limit: "100"})
	require.NoError(t, err)
	assert.Empty(t, far.Tasks)
	assert.False(t, far.Pagination.HasNextPage)
}

func TestUpdateTask(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	created, err := f.svc.CreateTask(ctx, f.alice, &models.CreateTaskRequest{
		Title:       "Draft",
		Description: "first pass",
		DueDate:     "2026-05-01",
	})
	require.NoError(t, err)

	updated, err := f.svc.UpdateTask(ctx, f.alice, created.ID.String(), &models.UpdateTaskRequest{
		Status: ptr("completed"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCompleted, updated.Status)
	assert.Equal(t, "Draft", updated.Title)
	assert.Equal(t, "first pass", updated.Description)
	require.NotNil(t, updated.DueDate)

	cleared, err := f.svc.UpdateTask(ctx, f.alice, created.ID.String(), &models.UpdateTaskRequest{
		DueDate:  ptr(""),
		Username: ptr("bob"),
	})
	require.NoError(t, err)
	assert.Nil(t, cleared.DueDate)
	assert.Equal(t, "bob", cleared.Username)

	assert.Equal(t, []events.EventType{events.TaskCreated, events.TaskUpdated, events.TaskUpdated}, f.sink.types())
}

func TestUpdateTaskRejections(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	created, err := f.svc.CreateTask(ctx, f.alice, &models.CreateTaskRequest{Title: "Mine"})
	require.NoError(t, err)
	id := created.ID.String()

	_, err = f.svc.UpdateTask(ctx, f.alice, "not-a-uuid", &models.UpdateTaskRequest{})
	assert.Equal(t, "Invalid task ID format", message(err))

	_, err = f.svc.UpdateTask(ctx, f.alice, uuid.NewString(), &models.UpdateTaskRequest{})
	assert.Equal(t, 404, errors.HTTPStatus(err))
	assert.Equal(t, "Task not found", message(err))

	_, err = f.svc.UpdateTask(ctx, f.bob, id, &models.UpdateTaskRequest{Title: ptr("Stolen")})
	assert.Equal(t, 403, errors.HTTPStatus(err))
	assert.Equal(t, "Unauthorized to update this task", message(err))

	_, err = f.svc.UpdateTask(ctx, f.alice, id, &models.UpdateTaskRequest{Title: ptr("  ")})
	assert.Equal(t, "Title is required", message(err))

	_, err = f.svc.UpdateTask(ctx, f.alice, id, &models.UpdateTaskRequest{Title: ptr("Fix <title> tag rendering")})
	assert.Equal(t, "Title and description must be plain text", message(err))

	_, err = f.svc.UpdateTask(ctx, f.alice, id, &models.UpdateTaskRequest{Description: ptr("<img src=x>")})
	assert.Equal(t, "Title and description must be plain text", message(err))

	_, err = f.svc.UpdateTask(ctx, f.alice, id, &models.UpdateTaskRequest{Status: ptr("done")})
	assert.Equal(t, 400, errors.HTTPStatus(err))

	_, err = f.svc.UpdateTask(ctx, f.alice, id, &models.UpdateTaskRequest{DueDate: ptr("soon")})
	assert.Equal(t, "Invalid due date format", message(err))

	_, err = f.svc.UpdateTask(ctx, f.alice, id, &models.UpdateTaskRequest{Username: ptr("ghost")})
	assert.Equal(t, "Assigned user does not exist", message(err))

	// the failed reassignment left the task untouched
	page, err := f.svc.ListTasks(ctx, f.alice, &models.TaskQuery{})
	require.NoError(t, err)
	require.Len(t, page.Tasks, 1)
	assert.Equal(t, "Mine", page.Tasks[0].Title)
	assert.Equal(t, "alice", page.Tasks[0].Username)
}

func TestAdminCanUpdateAnyTask(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	created, err := f.svc.CreateTask(ctx, f.bob, &models.CreateTaskRequest{Title: "Bob's"})
	require.NoError(t, err)

	updated, err := f.svc.UpdateTask(ctx, f.admin, created.ID.String(), &models.UpdateTaskRequest{Title: ptr("Reviewed")})
	require.NoError(t, err)
	assert.Equal(t, "Reviewed", updated.Title)
	assert.Equal(t, "bob", updated.Username)
}

func TestDeleteTask(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	created, err := f.svc.CreateTask(ctx, f.alice, &models.CreateTaskRequest{Title: "Temp"})
	require.NoError(t, err)
	id := created.ID.String()

	err = f.svc.DeleteTask(ctx, f.alice, "42")
	assert.Equal(t, "Invalid task ID format", message(err))

	err = f.svc.DeleteTask(ctx, f.bob, id)
	assert.Equal(t, "Unauthorized to delete this task", message(err))

	require.NoError(t, f.svc.DeleteTask(ctx, f.alice, id))

	err = f.svc.DeleteTask(ctx, f.alice, id)
	assert.Equal(t, 404, errors.HTTPStatus(err))

	assert.Equal(t, []events.EventType{events.TaskCreated, events.TaskDeleted}, f.sink.types())
}

func TestAdminCanDeleteAnyTask(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	created, err := f.svc.CreateTask(ctx, f.bob, &models.CreateTaskRequest{Title: "Bob's"})
	require.NoError(t, err)
	require.NoError(t, f.svc.DeleteTask(ctx, f.admin, created.ID.String()))

	var count int64
	require.NoError(t, f.db.Model(&models.Task{}).Count(&count).Error)
	assert.Zero(t, count)
}
