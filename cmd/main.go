package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/andreasstove999/ecommerce-system/services/basket-service-go/internal/app"
	"github.com/andreasstove999/ecommerce-system/services/basket-service-go/internal/config"
	"github.com/andreasstove999/ecommerce-system/services/basket-service-go/internal/events"
	"github.com/andreasstove999/ecommerce-system/services/basket-service-go/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := logging.New(os.Stderr, "error", events.ServiceName)
		bootLogger.Fatal().Err(err).Msg("load config")
	}
	logger := logging.New(os.Stdout, cfg.LogLevel, events.ServiceName)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("startup")
	}
	defer a.Close()

	if err := a.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("fatal error")
		a.Close()
		os.Exit(1)
	}

	logger.Info().Msg("shutdown complete")
}
