// Package tasks implements task creation, listing, update and deletion with
// per-caller access rules.
package tasks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Aidin1998/taskmanager/internal/auth"
	"github.com/Aidin1998/taskmanager/internal/database"
	"github.com/Aidin1998/taskmanager/internal/events"
	"github.com/Aidin1998/taskmanager/pkg/errors"
	"github.com/Aidin1998/taskmanager/pkg/metrics"
	"github.com/Aidin1998/taskmanager/pkg/models"
	"github.com/Aidin1998/taskmanager/pkg/validation"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TaskService defines task operations performed on behalf of a caller.
type TaskService interface {
	CreateTask(ctx context.Context, caller auth.Caller, req *models.CreateTaskRequest) (*models.TaskResponse, error)
	ListTasks(ctx context.Context, caller auth.Caller, query *models.TaskQuery) (*models.TaskPage, error)
	UpdateTask(ctx context.Context, caller auth.Caller, id string, req *models.UpdateTaskRequest) (*models.TaskResponse, error)
	DeleteTask(ctx context.Context, caller auth.Caller, id string) error
}

// EventSink receives task lifecycle events.
type EventSink interface {
	Publish(ctx context.Context, event *events.TaskEvent) error
}

var (
	ErrTitleRequired   = errors.Invalid.Explain("Title is required").WithField("required", "title", "")
	ErrInvalidStatus   = errors.Invalid.Explain("Invalid status value. Must be one of: %s", joinStatuses()).WithField("oneof", "status", "")
	ErrInvalidFilter   = errors.Invalid.Explain("Invalid status filter. Must be one of: %s", joinStatuses()).WithField("oneof", "status", "")
	ErrInvalidDueDate  = errors.Invalid.Explain("Invalid due date format").WithField("datetime", "dueDate", "")
	ErrUnknownAssignee = errors.Invalid.Explain("Assigned user does not exist").WithField("exists", "assignedTo", "")
	ErrMarkupInText    = errors.Invalid.Explain("Title and description must be plain text")
	ErrInvalidTaskID   = errors.Invalid.Explain("Invalid task ID format")
	ErrTaskNotFound    = errors.NotFound.Explain("Task not found")
	ErrUpdateForbidden = errors.Forbidden.Explain("Unauthorized to update this task")
	ErrDeleteForbidden = errors.Forbidden.Explain("Unauthorized to delete this task")
)

func joinStatuses() string {
	statuses := models.ValidTaskStatuses()
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}

// Service implements TaskService
type Service struct {
	logger    *zap.Logger
	db        *gorm.DB
	events    EventSink
	validator *validation.Validator
}

// NewService creates a new TaskService. A nil sink disables events.
func NewService(logger *zap.Logger, db *gorm.DB, sink EventSink, v *validation.Validator) (TaskService, error) {
	if db == nil {
		return nil, fmt.Errorf("tasks: db is required")
	}
	if v == nil {
		v = validation.New()
	}
	return &Service{
		logger:    logger.Named("tasks"),
		db:        db,
		events:    sink,
		validator: v,
	}, nil
}

// CreateTask stores a task assigned to the named user, or to the caller.
func (s *Service) CreateTask(ctx context.Context, caller auth.Caller, req *models.CreateTaskRequest) (resp *models.TaskResponse, err error) {
	defer observe("create", &err)

	title := strings.TrimSpace(req.Title)
	description := strings.TrimSpace(req.Description)
	username := strings.TrimSpace(req.Username)

	s.logger.Debug("Validating task data",
		zap.String("title", title),
		zap.String("status", req.Status),
		zap.String("username", username),
		zap.String("due_date", req.DueDate))

	if title == "" {
		return nil, ErrTitleRequired
	}
	if err := s.checkPlainText(title, description); err != nil {
		return nil, err
	}
	status := models.TaskStatusPending
	if req.Status != "" {
		parsed, ok := models.ParseTaskStatus(req.Status)
		if !ok {
			return nil, ErrInvalidStatus
		}
		status = parsed
	}
	dueDate, err := parseDueDate(req.DueDate)
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)

	assignee, err := s.resolveAssignee(db, username, caller.UserID)
	if err != nil {
		return nil, err
	}

	task := &models.Task{
		ID:          uuid.New(),
		Title:       title,
		Description: description,
		Status:      status,
		AssigneeID:  assignee.ID,
		DueDate:     dueDate,
	}
	if err := db.Omit("Assignee").Create(task).Error; err != nil {
		return nil, fmt.Errorf("failed to create task: %w", database.WrapError(err))
	}
	task.Assignee = assignee

	s.logger.Info("Task created",
		zap.String("task_id", task.ID.String()),
		zap.String("assignee", assignee.Username),
		zap.String("actor", caller.UserID.String()))
	s.publish(ctx, events.NewTaskEvent(events.TaskCreated, task, caller.UserID))

	return task.ToResponse(), nil
}

// ListTasks returns one page of the tasks visible to caller.
func (s *Service) ListTasks(ctx context.Context, caller auth.Caller, query *models.TaskQuery) (resp *models.TaskPage, err error) {
	defer observe("list", &err)

	s.logger.Debug("Building task query",
		zap.String("role", string(caller.Role)),
		zap.String("status", query.Status))

	var status models.TaskStatus
	if query.Status != "" {
		parsed, ok := models.ParseTaskStatus(query.Status)
		if !ok {
			return nil, ErrInvalidFilter
		}
		status = parsed
	}

	page, err := ParsePage(query.Page, query.Limit)
	if err != nil {
		return nil, err
	}

	visible := func(db *gorm.DB) *gorm.DB {
		if !caller.IsAdmin() {
			db = db.Where("assignee_id = ?", caller.UserID)
		}
		if status != "" {
			db = db.Where("status = ?", status)
		}
		return db
	}

	db := s.db.WithContext(ctx)

	var total int64
	if err := db.Model(&models.Task{}).Scopes(visible).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count tasks: %w", err)
	}

	var rows []*models.Task
	if err := db.Scopes(visible).
		Preload("Assignee").
		Order("created_at ASC").Order("id ASC").
		Offset(page.Offset()).Limit(page.Limit).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch tasks: %w", err)
	}

	pagination := NewPagination(page, total)
	s.logger.Debug("Fetched tasks",
		zap.Int64("total", total),
		zap.Int("pages", pagination.TotalPages),
		zap.Int("page", page.Number))

	out := make([]*models.TaskResponse, len(rows))
	for i, t := range rows {
		out[i] = t.ToResponse()
	}
	return &models.TaskPage{Tasks: out, Pagination: pagination}, nil
}

// UpdateTask applies the supplied fields of req to the task.
func (s *Service) UpdateTask(ctx context.Context, caller auth.Caller, id string, req *models.UpdateTaskRequest) (resp *models.TaskResponse, err error) {
	defer observe("update", &err)

	taskID, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrInvalidTaskID
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, ErrTitleRequired
		}
		if err := s.checkPlainText(title, ""); err != nil {
			return nil, err
		}
		updates["title"] = title
	}
	if req.Description != nil {
		description := strings.TrimSpace(*req.Description)
		if err := s.checkPlainText("", description); err != nil {
			return nil, err
		}
		updates["description"] = description
	}
	if req.Status != nil {
		status, ok := models.ParseTaskStatus(*req.Status)
		if !ok {
			return nil, ErrInvalidStatus
		}
		updates["status"] = status
	}
	if req.DueDate != nil {
		dueDate, err := parseDueDate(*req.DueDate)
		if err != nil {
			return nil, err
		}
		updates["due_date"] = dueDate
	}

	db := s.db.WithContext(ctx)

	task, err := s.findTask(db, taskID)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Checking authorization",
		zap.String("user_id", caller.UserID.String()),
		zap.String("role", string(caller.Role)))
	if !CanAccess(task, caller) {
		return nil, ErrUpdateForbidden
	}

	if req.Username != nil && strings.TrimSpace(*req.Username) != "" {
		assignee, err := s.resolveAssignee(db, strings.TrimSpace(*req.Username), uuid.Nil)
		if err != nil {
			return nil, err
		}
		updates["assignee_id"] = assignee.ID
	}

	if len(updates) > 0 {
		if err := db.Model(&models.Task{ID: taskID}).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update task: %w", database.WrapError(err))
		}
		if task, err = s.findTask(db, taskID); err != nil {
			return nil, err
		}
	}

	s.logger.Info("Task updated",
		zap.String("task_id", task.ID.String()),
		zap.Int("fields", len(updates)),
		zap.String("actor", caller.UserID.String()))
	s.publish(ctx, events.NewTaskEvent(events.TaskUpdated, task, caller.UserID))

	return task.ToResponse(), nil
}

// DeleteTask removes the task.
func (s *Service) DeleteTask(ctx context.Context, caller auth.Caller, id string) (err error) {
	defer observe("delete", &err)

	taskID, err := uuid.Parse(id)
	if err != nil {
		return ErrInvalidTaskID
	}

	db := s.db.WithContext(ctx)

	task, err := s.findTask(db, taskID)
	if err != nil {
		return err
	}
	if !CanAccess(task, caller) {
		return ErrDeleteForbidden
	}

	if err := db.Delete(&models.Task{}, "id = ?", taskID).Error; err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	s.logger.Info("Task deleted",
		zap.String("task_id", task.ID.String()),
		zap.String("actor", caller.UserID.String()))
	s.publish(ctx, events.NewTaskEvent(events.TaskDeleted, task, caller.UserID))

	return nil
}

func (s *Service) findTask(db *gorm.DB, id uuid.UUID) (*models.Task, error) {
	task, err := database.FindOne[models.Task](db.Preload("Assignee").Where("id = ?", id))
	if errors.Is(err, errors.NotFound) {
		return nil, ErrTaskNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return task, nil
}

// resolveAssignee looks up username, or fallback when username is empty.
func (s *Service) resolveAssignee(db *gorm.DB, username string, fallback uuid.UUID) (*models.User, error) {
	query := db.Where("id = ?", fallback)
	if username != "" {
		query = db.Where("username = ?", username)
	}

	user, err := database.FindOne[models.User](query)
	if errors.Is(err, errors.NotFound) {
		s.logger.Debug("Assignee lookup failed", zap.String("username", username))
		return nil, ErrUnknownAssignee
	} else if err != nil {
		return nil, fmt.Errorf("failed to look up assignee: %w", err)
	}
	return user, nil
}

func (s *Service) publish(ctx context.Context, event *events.TaskEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("Task event not delivered",
			zap.String("event_type", string(event.Type)),
			zap.String("task_id", event.TaskID.String()),
			zap.Error(err))
	}
}

// checkPlainText rejects markup in free text. Text is stored as typed, so
// anything a browser would treat as a tag is refused rather than stripped.
func (s *Service) checkPlainText(title, description string) error {
	if !s.validator.IsPlainText(title) {
		return ErrMarkupInText.WithField("plain_text", "title", "")
	}
	if !s.validator.IsPlainText(description) {
		return ErrMarkupInText.WithField("plain_text", "description", "")
	}
	return nil
}

// parseDueDate returns nil for an empty value.
func parseDueDate(raw string) (*time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	t, ok := validation.ParseDate(raw)
	if !ok {
		return nil, ErrInvalidDueDate
	}
	return &t, nil
}

func observe(operation string, err *error) {
	result := metrics.Result(*err)
	if *err != nil && errors.IsDomain(*err) {
		result = "rejected"
	}
	metrics.TaskOperations.WithLabelValues(operation, result).Inc()
}
