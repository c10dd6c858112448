package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Aidin1998/taskmanager/internal/auth"
	"github.com/Aidin1998/taskmanager/internal/config"
	"github.com/Aidin1998/taskmanager/internal/database"
	"github.com/Aidin1998/taskmanager/internal/identities"
	"github.com/Aidin1998/taskmanager/internal/tasks"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"gorm.io/gorm"

	_ "github.com/Aidin1998/taskmanager/docs"
)

// Version is reported by the root route.
const Version = "1.0.0"

// Server represents the HTTP server
type Server struct {
	logger        *zap.Logger
	db            *gorm.DB
	tokens        auth.TokenVerifier
	identitiesSvc identities.IdentityService
	tasksSvc      tasks.TaskService
	allowOrigins  []string

	requestCount    metric.Int64Counter
	requestDuration metric.Float64Histogram
}

// NewServer creates a new HTTP server. Request instruments are taken from the
// global meter provider, so telemetry must be set up first.
func NewServer(
	logger *zap.Logger,
	db *gorm.DB,
	tokens auth.TokenVerifier,
	identitiesSvc identities.IdentityService,
	tasksSvc tasks.TaskService,
	allowOrigins []string,
) *Server {
	s := &Server{
		logger:        logger,
		db:            db,
		tokens:        tokens,
		identitiesSvc: identitiesSvc,
		tasksSvc:      tasksSvc,
		allowOrigins:  allowOrigins,
	}

	meter := otel.Meter("github.com/Aidin1998/taskmanager/internal/server")
	var err error
	if s.requestCount, err = meter.Int64Counter("http.server.request.count",
		metric.WithDescription("Number of HTTP requests handled"),
		metric.WithUnit("{request}")); err != nil {
		logger.Warn("Failed to create request counter", zap.Error(err))
	}
	if s.requestDuration, err = meter.Float64Histogram("http.server.request.duration",
		metric.WithDescription("Duration of HTTP requests"),
		metric.WithUnit("s")); err != nil {
		logger.Warn("Failed to create request histogram", zap.Error(err))
	}
	return s
}

// Router creates a new HTTP router
func (s *Server) Router() *gin.Engine {
	router := gin.New()

	router.Use(ginzap.Ginzap(s.logger, time.RFC3339, true))
	router.Use(ginzap.RecoveryWithZap(s.logger, true))
	router.Use(otelgin.Middleware("taskmanager"))
	router.Use(cors.New(s.corsConfig()))
	router.Use(s.metricsMiddleware())
	router.Use(ErrorHandler(s.logger))

	router.GET("/", s.handleRoot)
	router.GET("/health", s.handleHealth)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	users := router.Group("/users")
	{
		users.POST("", s.handleRegister)
		users.POST("/login", s.handleLogin)
	}

	taskRoutes := router.Group("/tasks", s.authMiddleware())
	{
		taskRoutes.POST("", s.handleCreateTask)
		taskRoutes.GET("", s.handleListTasks)
		taskRoutes.PATCH("/:id", s.handleUpdateTask)
		taskRoutes.DELETE("/:id", s.handleDeleteTask)
	}

	router.NoRoute(func(c *gin.Context) {
		_ = c.Error(errNoRoute)
	})

	return router
}

func (s *Server) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	for _, origin := range s.allowOrigins {
		if origin == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	cfg.AllowOrigins = s.allowOrigins
	if len(cfg.AllowOrigins) == 0 {
		cfg.AllowAllOrigins = true
	}
	return cfg
}

// Serve listens on cfg's address until ctx is cancelled, then drains
// in-flight requests for at most cfg.ShutdownTimeout.
func (s *Server) Serve(ctx context.Context, cfg config.ServerConfig) error {
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           s.Router(),
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting API server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server", zap.Duration("timeout", cfg.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// handleRoot godoc
// @Summary      Service banner
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       / [get]
func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Task Management API",
		"version": Version,
	})
}

// handleHealth godoc
// @Summary      Liveness and database check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      503  {object}  errors.ProblemDetails
// @Router       /health [get]
func (s *Server) handleHealth(c *gin.Context) {
	if err := database.Ping(s.db); err != nil {
		_ = c.Error(errDatabaseDown.Wrap(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
