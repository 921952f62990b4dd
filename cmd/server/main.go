package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/inferloop/qualitygate/internal/observability/metrics"
	"github.com/inferloop/qualitygate/internal/quality"
	"github.com/inferloop/qualitygate/internal/server"
	"github.com/inferloop/qualitygate/pkg/constants"
)

func main() {
	flags, err := ParseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		os.Exit(2)
	}

	if flags.Version {
		PrintVersion(os.Stdout)
		return
	}

	logger := setupLogger(flags.LogLevel, flags.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, flags, logger); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}
}

func run(ctx context.Context, flags *Flags, logger *logrus.Logger) error {
	cfg, err := LoadFileConfig(flags.ConfigFile)
	if err != nil {
		return err
	}
	cfg.applyFlags(flags)

	logger.WithFields(logrus.Fields{
		"version":   Version,
		"commit":    GitCommit,
		"buildDate": BuildDate,
		"config":    flags.ConfigFile,
	}).Info("Starting quality gate server")

	pm, err := metrics.NewPrometheusMetrics(&cfg.Metrics, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	if err := pm.Start(ctx); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	engine, err := quality.NewEngine(&cfg.Quality, logger, quality.WithRecorder(pm))
	if err != nil {
		return err
	}

	srv, err := server.NewServer(&cfg.Server, engine, pm, logger)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx)
	}()

	select {
	case err := <-errCh:
		_ = pm.Stop(context.Background())
		return err
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	}

	// the parent context is already cancelled
	shutdownCtx := context.Background()
	if err := srv.Stop(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server shutdown failed")
	}
	if err := pm.Stop(shutdownCtx); err != nil {
		logger.WithError(err).Error("Metrics server shutdown failed")
	}

	logger.Info("Server stopped")
	return <-errCh
}

func setupLogger(level, format string) *logrus.Logger {
	logger := logrus.New()

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	if format == constants.FormatJSON {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	return logger
}
