package identities

import (
	"context"
	"fmt"
	"strings"

	"github.com/Aidin1998/taskmanager/internal/auth"
	"github.com/Aidin1998/taskmanager/internal/database"
	"github.com/Aidin1998/taskmanager/pkg/errors"
	"github.com/Aidin1998/taskmanager/pkg/metrics"
	"github.com/Aidin1998/taskmanager/pkg/models"
	"github.com/Aidin1998/taskmanager/pkg/validation"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// IdentityService defines user registration and login.
type IdentityService interface {
	CreateUser(ctx context.Context, req *models.RegisterRequest) (*models.UserResponse, error)
	Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error)
}

var (
	ErrFieldsRequired     = errors.Invalid.Explain("All fields are required")
	ErrInvalidEmail       = errors.Invalid.Explain("Invalid email format").WithField("email", "email", "")
	ErrPasswordTooShort   = errors.Invalid.Explain("Password must be at least %d characters long", validation.MinPasswordLength).WithField("min", "password", "")
	ErrInvalidRole        = errors.Invalid.Explain("Invalid role. Must be one of: %s", joinRoles()).WithField("oneof", "role", "")
	ErrMarkupInName       = errors.Invalid.Explain("Names must be plain text")
	ErrUserExists         = errors.Conflict.Explain("User already exists")
	ErrCredentialsMissing = errors.Invalid.Explain("Email and password are required")
	ErrInvalidCredentials = errors.Unauthorized.Explain("Invalid email or password")
)

func joinRoles() string {
	roles := models.ValidRoles()
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return strings.Join(names, ", ")
}

// Service implements IdentityService
type Service struct {
	logger    *zap.Logger
	db        *gorm.DB
	hasher    auth.Hasher
	tokens    auth.TokenIssuer
	validator *validation.Validator
}

// NewService creates a new IdentityService
func NewService(logger *zap.Logger, db *gorm.DB, hasher auth.Hasher, tokens auth.TokenIssuer, v *validation.Validator) (IdentityService, error) {
	if db == nil || hasher == nil || tokens == nil {
		return nil, fmt.Errorf("identities: db, hasher and token issuer are required")
	}
	if v == nil {
		v = validation.New()
	}
	return &Service{
		logger:    logger.Named("identities"),
		db:        db,
		hasher:    hasher,
		tokens:    tokens,
		validator: v,
	}, nil
}

// CreateUser registers a new user
func (s *Service) CreateUser(ctx context.Context, req *models.RegisterRequest) (*models.UserResponse, error) {
	firstName := strings.TrimSpace(req.FirstName)
	lastName := strings.TrimSpace(req.LastName)
	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(req.Email)

	s.logger.Debug("Validating user registration data",
		zap.String("username", username),
		zap.String("email", email),
		zap.String("role", req.Role))

	if !s.validator.Required(firstName, lastName, username, email, req.Password) {
		metrics.Registrations.WithLabelValues("invalid").Inc()
		return nil, ErrFieldsRequired
	}
	for _, name := range []struct{ field, value string }{
		{"firstName", firstName},
		{"lastName", lastName},
		{"username", username},
	} {
		if !s.validator.IsPlainText(name.value) {
			metrics.Registrations.WithLabelValues("invalid").Inc()
			return nil, ErrMarkupInName.WithField("plain_text", name.field, "")
		}
	}
	if !s.validator.IsEmail(email) {
		metrics.Registrations.WithLabelValues("invalid").Inc()
		return nil, ErrInvalidEmail
	}
	if !s.validator.IsPassword(req.Password) {
		metrics.Registrations.WithLabelValues("invalid").Inc()
		return nil, ErrPasswordTooShort
	}
	role := models.RoleUser
	if req.Role != "" {
		parsed, ok := models.ParseRole(req.Role)
		if !ok {
			metrics.Registrations.WithLabelValues("invalid").Inc()
			return nil, ErrInvalidRole
		}
		role = parsed
	}

	db := s.db.WithContext(ctx)

	// Check if email or username already exists
	var count int64
	if err := db.Model(&models.User{}).
		Where("email = ? OR username = ?", email, username).
		Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if count > 0 {
		s.logger.Warn("Registration attempt failed: user already exists", zap.String("username", username))
		metrics.Registrations.WithLabelValues("conflict").Inc()
		return nil, ErrUserExists
	}

	hashedPassword, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:           uuid.New(),
		FirstName:    firstName,
		LastName:     lastName,
		Username:     username,
		Email:        email,
		PasswordHash: hashedPassword,
		Role:         role,
	}

	if err := db.Create(user).Error; err != nil {
		err = database.WrapError(err)
		if errors.Is(err, errors.Conflict) {
			s.logger.Warn("Registration lost a race on a unique key", zap.String("username", username))
			metrics.Registrations.WithLabelValues("conflict").Inc()
			return nil, ErrUserExists.Wrap(err)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("User created",
		zap.String("user_id", user.ID.String()),
		zap.String("username", user.Username),
		zap.String("role", string(user.Role)))
	metrics.Registrations.WithLabelValues("created").Inc()

	return user.ToResponse(), nil
}

// Login checks credentials and issues a signed token
func (s *Service) Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error) {
	email := strings.TrimSpace(req.Email)

	s.logger.Debug("Login attempt", zap.String("email", email))

	if !s.validator.Required(email, req.Password) {
		metrics.Logins.WithLabelValues("invalid").Inc()
		return nil, ErrCredentialsMissing
	}
	if !s.validator.IsEmail(email) {
		metrics.Logins.WithLabelValues("invalid").Inc()
		return nil, ErrInvalidEmail
	}
	if !s.validator.IsPassword(req.Password) {
		metrics.Logins.WithLabelValues("invalid").Inc()
		return nil, ErrPasswordTooShort
	}

	user, err := database.FindOne[models.User](s.db.WithContext(ctx).Where("email = ?", email))
	if errors.Is(err, errors.NotFound) {
		s.logger.Warn("Login failed: user not found", zap.String("email", email))
		metrics.Logins.WithLabelValues("rejected").Inc()
		return nil, ErrInvalidCredentials
	} else if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		s.logger.Warn("Login failed: invalid password", zap.String("username", user.Username))
		metrics.Logins.WithLabelValues("rejected").Inc()
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(auth.CallerFor(user))
	if err != nil {
		return nil, err
	}

	s.logger.Info("User logged in", zap.String("user_id", user.ID.String()), zap.String("username", user.Username))
	metrics.Logins.WithLabelValues("success").Inc()

	return &models.LoginResponse{
		Token: token,
		User:  user.ToResponse(),
	}, nil
}
