package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/Aidin1998/taskmanager/pkg/models"
	"github.com/gin-gonic/gin"
)

// bindJSON decodes the request body into dst. An empty body leaves dst at
// its zero value so the service reports the missing fields.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		_ = c.Error(errInvalidPayload.Wrap(err))
		return false
	}
	return true
}

// handleRegister godoc
// @Summary      Register a user
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        body  body      models.RegisterRequest  true  "New user"
// @Success      201   {object}  map[string]interface{}
// @Failure      400   {object}  errors.ProblemDetails
// @Failure      409   {object}  errors.ProblemDetails
// @Router       /users [post]
func (s *Server) handleRegister(c *gin.Context) {
	var req models.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := s.identitiesSvc.CreateUser(c.Request.Context(), &req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully",
		"user":    user,
	})
}

// handleLogin godoc
// @Summary      Log in and obtain a bearer token
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        body  body      models.LoginRequest  true  "Credentials"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  errors.ProblemDetails
// @Failure      401   {object}  errors.ProblemDetails
// @Router       /users/login [post]
func (s *Server) handleLogin(c *gin.Context) {
	var req models.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := s.identitiesSvc.Login(c.Request.Context(), &req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"token":   resp.Token,
		"user":    resp.User,
	})
}
