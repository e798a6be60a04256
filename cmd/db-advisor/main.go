package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"db-advisor/internal/api"
	"db-advisor/internal/app"
	"db-advisor/pkg/auth"
	"db-advisor/pkg/config"
	"db-advisor/pkg/logger"

	"go.uber.org/zap"
)

// @title Database Advisor API
// @version 1.0
// @description Recommends database technologies from questionnaire answers using semantic search over a small knowledge base

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8000
// @BasePath /

// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	if err := logger.Init(cfg.Logger.Level); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	appLogger := logger.Get()
	appLogger.Info("Starting database advisor", zap.String("version", app.Version))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	advisor, err := app.New(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize application", zap.Error(err))
	}
	defer advisor.Close()

	var jwtManager *auth.JWTManager
	if cfg.Auth.SecretKey != "" {
		jwtManager = auth.NewJWTManager(cfg.Auth.SecretKey)
	}

	router := api.SetupRouter(advisor.Handler(), jwtManager, cfg.Server, logger.Named("http"))

	// Serve immediately; /recommend answers 503 until indexing completes
	go func() {
		addr := ":" + cfg.Server.Port
		appLogger.Info("Server starting", zap.String("address", addr))
		if err := router.Listen(addr); err != nil {
			appLogger.Fatal("Server failed", zap.Error(err))
		}
	}()

	if err := advisor.Start(ctx); err != nil {
		appLogger.Error("Startup failed", zap.Error(err))
		_ = router.Shutdown()
		logger.Sync()
		os.Exit(1)
	}

	<-ctx.Done()

	appLogger.Info("Shutting down server")
	if err := router.Shutdown(); err != nil {
		appLogger.Error("Server shutdown error", zap.Error(err))
	}
}
