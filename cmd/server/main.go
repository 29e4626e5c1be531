package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sqrrr/gamehub/internal/api"
	"github.com/sqrrr/gamehub/internal/config"
	"github.com/sqrrr/gamehub/internal/factory"
)

func main() {
	// Load configuration from .env and the environment
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Set up logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.Level(),
	}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if cfg.AllowInsecureDefaults && cfg.EconomySeed == "" {
		logger.Warn("using the development economy seed; outcomes are predictable")
	}

	// Handle graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Create application factory
	app, err := factory.New(ctx, factory.FromEnv(cfg, logger))
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	router := api.NewRouter(api.RouterConfig{
		Logger:      logger,
		AuthService: app.Auth,
		Ledger:      app.Ledger,
		Economy:     app.Economy,
		Registry:    app.Registry,
		Rounds:      app.Rounds,
		Gate:        app.Gate,
		Socket:      app.Socket,
		AudioDir:    cfg.AudioDir,
	})

	serverConfig := api.DefaultServerConfig()
	serverConfig.Host = cfg.Host
	serverConfig.Port = cfg.Port
	serverConfig.ShutdownTimeout = cfg.ShutdownTimeout
	server := api.NewServer(router, app, serverConfig, logger)

	if err := server.Listen(); err != nil {
		logger.Error("failed to listen", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("server started",
		slog.String("addr", server.Addr()),
		slog.Int("catalog", app.Catalog.Len()),
	)

	// Force exit if an orderly shutdown hangs past its deadline
	context.AfterFunc(ctx, func() {
		time.AfterFunc(cfg.ShutdownTimeout+5*time.Second, func() {
			logger.Error("shutdown timed out, exiting")
			os.Exit(1)
		})
	})

	exitCode := 0
	if err := server.Run(ctx); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		exitCode = 1
	}

	logger.Info("server stopped")
	os.Exit(exitCode)
}
