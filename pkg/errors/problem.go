package errors

import (
	"net/http"
	"time"
)

// Problem type URIs
const (
	TypeValidationError = "https://api.taskmanager.dev/problems/validation-error"
	TypeUnauthorized    = "https://api.taskmanager.dev/problems/unauthorized"
	TypeForbidden       = "https://api.taskmanager.dev/problems/forbidden"
	TypeNotFound        = "https://api.taskmanager.dev/problems/not-found"
	TypeConflict        = "https://api.taskmanager.dev/problems/conflict"
	TypeUnavailable     = "https://api.taskmanager.dev/problems/service-unavailable"
	TypeInternalError   = "https://api.taskmanager.dev/problems/internal-error"
)

// ValidationError represents a validation error for RFC 7807
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ProblemDetails represents an RFC 7807 Problem Details response
type ProblemDetails struct {
	Type      string            `json:"type"`
	Title     string            `json:"title"`
	Status    int               `json:"status"`
	Detail    string            `json:"detail,omitempty"`
	Instance  string            `json:"instance,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	TraceID   string            `json:"trace_id,omitempty"`
	Errors    []ValidationError `json:"errors,omitempty"`
}

// Error implements the error interface
func (p *ProblemDetails) Error() string {
	return p.Detail
}

// WithTraceID adds a trace ID to the problem details
func (p *ProblemDetails) WithTraceID(traceID string) *ProblemDetails {
	p.TraceID = traceID
	return p
}

// NewProblemDetails creates a generic problem details with all fields
func NewProblemDetails(problemType string, status int, detail, instance string) *ProblemDetails {
	return &ProblemDetails{
		Type:      problemType,
		Title:     http.StatusText(status),
		Status:    status,
		Detail:    detail,
		Instance:  instance,
		Timestamp: time.Now().UTC(),
	}
}

// NewInternalError creates an internal server error problem
func NewInternalError(detail, instance string) *ProblemDetails {
	return NewProblemDetails(TypeInternalError, http.StatusInternalServerError, detail, instance)
}

// ToProblemDetails converts a domain error to RFC 7807 ProblemDetails
func (e *Error) ToProblemDetails(instance string) *ProblemDetails {
	status := HTTPStatus(e)
	detail := e.Message
	if detail == "" {
		detail = http.StatusText(status)
	}

	pd := NewProblemDetails(problemType(status), status, detail, instance)
	for _, field := range e.Fields {
		pd.Errors = append(pd.Errors, ValidationError{
			Field:   field.Field,
			Message: field.Message,
			Code:    field.Kind,
		})
	}
	return pd
}

func problemType(status int) string {
	switch status {
	case http.StatusBadRequest:
		return TypeValidationError
	case http.StatusUnauthorized:
		return TypeUnauthorized
	case http.StatusForbidden:
		return TypeForbidden
	case http.StatusNotFound:
		return TypeNotFound
	case http.StatusConflict:
		return TypeConflict
	case http.StatusServiceUnavailable:
		return TypeUnavailable
	default:
		return TypeInternalError
	}
}
