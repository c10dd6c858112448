package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Aidin1998/taskmanager/internal/auth"
	"github.com/Aidin1998/taskmanager/internal/config"
	"github.com/Aidin1998/taskmanager/internal/database"
	"github.com/Aidin1998/taskmanager/internal/events"
	"github.com/Aidin1998/taskmanager/internal/identities"
	"github.com/Aidin1998/taskmanager/internal/server"
	"github.com/Aidin1998/taskmanager/internal/tasks"
	"github.com/Aidin1998/taskmanager/internal/telemetry"
	"github.com/Aidin1998/taskmanager/pkg/logger"
	"github.com/Aidin1998/taskmanager/pkg/metrics"
	"github.com/Aidin1998/taskmanager/pkg/validation"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Create logger
	zapLogger, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zapLogger.Sync()

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Setup(ctx, cfg.Telemetry, nil)
	if err != nil {
		zapLogger.Fatal("Failed to set up telemetry", zap.Error(err))
	}

	db, err := database.Open(cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	if sqlDB, err := db.DB(); err == nil {
		if err := metrics.RegisterDBStats(sqlDB, cfg.Database.Driver); err != nil {
			zapLogger.Warn("Failed to register database metrics", zap.Error(err))
		}
	}

	jwt, err := auth.NewJWT(auth.JWTConfig{
		Secret:    cfg.JWT.Secret,
		Issuer:    cfg.JWT.Issuer,
		Audience:  cfg.JWT.Audience,
		ExpiresIn: cfg.JWT.Expiry,
	})
	if err != nil {
		zapLogger.Fatal("Failed to set up token signing", zap.Error(err))
	}

	validator := validation.New()
	publisher := events.FromConfig(cfg.Events, zapLogger)

	identitiesSvc, err := identities.NewService(zapLogger, db, auth.NewBcryptHasher(cfg.Bcrypt.Cost), jwt, validator)
	if err != nil {
		zapLogger.Fatal("Failed to create identities service", zap.Error(err))
	}
	tasksSvc, err := tasks.NewService(zapLogger, db, publisher, validator)
	if err != nil {
		zapLogger.Fatal("Failed to create tasks service", zap.Error(err))
	}

	apiServer := server.NewServer(zapLogger, db, jwt, identitiesSvc, tasksSvc, cfg.CORS.AllowOrigins)
	if err := apiServer.Serve(ctx, cfg.Server); err != nil {
		zapLogger.Error("API server stopped", zap.Error(err))
	}

	// Release resources in reverse order of acquisition
	if err := publisher.Close(); err != nil {
		zapLogger.Error("Failed to close event publishers", zap.Error(err))
	}
	if err := database.Close(db); err != nil {
		zapLogger.Error("Failed to close database", zap.Error(err))
	}
	if err := shutdownTelemetry(context.Background()); err != nil {
		zapLogger.Error("Failed to flush telemetry", zap.Error(err))
	}

	zapLogger.Info("Server exited properly")
}
