package server

import (
	"net/http"

	"github.com/Aidin1998/taskmanager/pkg/models"
	"github.com/gin-gonic/gin"
)

// handleCreateTask godoc
// @Summary      Create a task
// @Tags         tasks
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        body  body      models.CreateTaskRequest  true  "Task"
// @Success      201   {object}  map[string]interface{}
// @Failure      400   {object}  errors.ProblemDetails
// @Failure      401   {object}  errors.ProblemDetails
// @Failure      403   {object}  errors.ProblemDetails
// @Router       /tasks [post]
func (s *Server) handleCreateTask(c *gin.Context) {
	var req models.CreateTaskRequest
	if !bindJSON(c, &req) {
		return
	}

	task, err := s.tasksSvc.CreateTask(c.Request.Context(), callerFrom(c), &req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Task created successfully",
		"task":    task,
	})
}

// handleListTasks godoc
// @Summary      List visible tasks
// @Tags         tasks
// @Security     BearerAuth
// @Produce      json
// @Param        page    query     int     false  "Page number"      default(1)
// @Param        limit   query     int     false  "Page size"        default(10)
// @Param        status  query     string  false  "Status filter"    Enums(pending, in-progress, completed)
// @Success      200     {object}  map[string]interface{}
// @Failure      400     {object}  errors.ProblemDetails
// @Router       /tasks [get]
func (s *Server) handleListTasks(c *gin.Context) {
	var query models.TaskQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		_ = c.Error(errInvalidPayload.Wrap(err))
		return
	}

	page, err := s.tasksSvc.ListTasks(c.Request.Context(), callerFrom(c), &query)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "Tasks retrieved successfully",
		"tasks":      page.Tasks,
		"pagination": page.Pagination,
	})
}

// handleUpdateTask godoc
// @Summary      Update a task
// @Tags         tasks
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id    path      string                    true  "Task ID"
// @Param        body  body      models.UpdateTaskRequest  true  "Fields to change"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  errors.ProblemDetails
// @Failure      403   {object}  errors.ProblemDetails
// @Failure      404   {object}  errors.ProblemDetails
// @Router       /tasks/{id} [patch]
func (s *Server) handleUpdateTask(c *gin.Context) {
	var req models.UpdateTaskRequest
	if !bindJSON(c, &req) {
		return
	}

	task, err := s.tasksSvc.UpdateTask(c.Request.Context(), callerFrom(c), c.Param("id"), &req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Task updated successfully",
		"task":    task,
	})
}

// handleDeleteTask godoc
// @Summary      Delete a task
// @Tags         tasks
// @Security     BearerAuth
// @Param        id   path  string  true  "Task ID"
// @Success      204
// @Failure      400  {object}  errors.ProblemDetails
// @Failure      403  {object}  errors.ProblemDetails
// @Failure      404  {object}  errors.ProblemDetails
// @Router       /tasks/{id} [delete]
func (s *Server) handleDeleteTask(c *gin.Context) {
	if err := s.tasksSvc.DeleteTask(c.Request.Context(), callerFrom(c), c.Param("id")); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}
