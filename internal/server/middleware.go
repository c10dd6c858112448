package server

import (
	"strings"
	"time"

	"github.com/Aidin1998/taskmanager/internal/auth"
	"github.com/Aidin1998/taskmanager/pkg/errors"
	"github.com/Aidin1998/taskmanager/pkg/metrics"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const callerKey = "caller"

var errTokenRequired = errors.Unauthorized.Explain("Access token required")

// authMiddleware verifies the bearer token and stores the caller on the
// context.
func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			metrics.AuthFailures.WithLabelValues("missing").Inc()
			_ = c.Error(errTokenRequired)
			c.Abort()
			return
		}

		caller, err := s.tokens.Verify(c.Request.Context(), token)
		if err != nil {
			s.logger.Debug("Rejected bearer token", zap.Error(err))
			metrics.AuthFailures.WithLabelValues("invalid").Inc()
			_ = c.Error(auth.ErrInvalidToken.Wrap(err))
			c.Abort()
			return
		}

		c.Set(callerKey, *caller)
		c.Next()
	}
}

// bearerToken returns the credential following the scheme, e.g. the token
// in "Bearer <token>". Any run of whitespace separates the two, so
// "Bearer  <token>" is accepted as well.
func bearerToken(header string) string {
	fields := strings.Fields(header)
	if len(fields) < 2 {
		return ""
	}
	return fields[1]
}

// callerFrom returns the caller stored by authMiddleware.
func callerFrom(c *gin.Context) auth.Caller {
	caller, _ := c.Get(callerKey)
	return caller.(auth.Caller)
}

// metricsMiddleware records each request in Prometheus and through the
// OpenTelemetry meter.
func (s *Server) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		elapsed := time.Since(start)
		metrics.ObserveRequest(c.Request.Method, route, c.Writer.Status(), elapsed)

		attrs := metric.WithAttributes(
			attribute.String("http.request.method", c.Request.Method),
			attribute.String("http.route", route),
			attribute.Int("http.response.status_code", c.Writer.Status()),
		)
		if s.requestCount != nil {
			s.requestCount.Add(c.Request.Context(), 1, attrs)
		}
		if s.requestDuration != nil {
			s.requestDuration.Record(c.Request.Context(), elapsed.Seconds(), attrs)
		}
	}
}
