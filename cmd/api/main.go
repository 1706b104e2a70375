package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/Phurinho/outcome-career-align/internal/app"
	"github.com/Phurinho/outcome-career-align/pkg/config"
	"github.com/Phurinho/outcome-career-align/pkg/logger"
)

// @title Outcome Career Align API
// @version 1.0.0
// @description Maps course learning outcomes to TPQI professional-standard units and reports career coverage.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logr)
	if err != nil {
		logr.Fatal("failed to build application", zap.Error(err))
	}
	defer application.Close()

	if err := application.Run(ctx); err != nil {
		logr.Error("server stopped", zap.Error(err))
	}
}
