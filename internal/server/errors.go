package server

import (
	"github.com/Aidin1998/taskmanager/pkg/errors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const problemContentType = "application/problem+json"

var (
	errInvalidPayload = errors.Invalid.Explain("Invalid request payload")
	errNoRoute        = errors.NotFound.Explain("Route not found")
	errDatabaseDown   = errors.Unavailable.Explain("Database unavailable")
)

// ErrorHandler renders the last error recorded on the context as RFC 7807
// problem details. Errors that are not domain errors are logged and hidden
// behind a generic 500.
func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err

		var problem *errors.ProblemDetails
		var domain *errors.Error
		if errors.IsDomain(err) && errors.As(err, &domain) {
			problem = domain.ToProblemDetails(c.Request.URL.Path)
		} else {
			logger.Error("Unhandled error",
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.Error(err))
			problem = errors.NewInternalError("An unexpected error occurred", c.Request.URL.Path)
		}

		if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
			problem.WithTraceID(sc.TraceID().String())
		}

		c.Header("Content-Type", problemContentType)
		c.JSON(problem.Status, problem)
	}
}
