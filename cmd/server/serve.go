package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"go-trip-planner/internal/app"
	"go-trip-planner/internal/config"
	"go-trip-planner/internal/logger"
	"go-trip-planner/pkg/errutil"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err, "code", errutil.Code(err))
		return err
	}

	log := logger.New(os.Stdout, cfg.AppEnv, cfg.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, log)
	if err != nil {
		errutil.LogError(log, "failed to initialize application", err)
		return err
	}

	if err := application.Run(ctx); err != nil {
		errutil.LogError(log, "application run failed", err)
		return err
	}
	return nil
}
