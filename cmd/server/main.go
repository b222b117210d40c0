// Package main runs the tariff service: the HTTP API, the feeder ingest
// endpoint and the scheduled month-end derivation.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"energy-tariffs/internal/app"
	"energy-tariffs/internal/config"
	"energy-tariffs/internal/logging"
)

func main() {
	// Load .env file if exists
	loadEnvFile()

	configPath := flag.String("config", "", "YAML config file (default $TARIFFS_CONFIG)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage regardless of config")
	migrate := flag.Bool("migrate", false, "Apply database migrations at startup")
	deriveInterval := flag.Duration("derive-interval", time.Hour, "Derivation scheduler interval (0 disables)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Fatal("load config", zap.Error(err))
	}
	if *useMemory {
		cfg.Store.Backend = config.BackendMemory
	}
	if *migrate {
		cfg.Store.Migrate = true
	}

	if err := logging.Initialize(cfg.Logging); err != nil {
		logging.Fatal("init logging", zap.Error(err))
	}
	defer logging.Sync()
	logger := logging.Named("server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(ctx, cfg, logging.Logger)
	if err != nil {
		logger.Fatal("wire service", zap.Error(err))
	}
	defer a.Close()

	if err := a.LoadRefData(ctx); err != nil {
		logger.Fatal("load reference data", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to signal completion
	done := make(chan struct{})

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Info("shutting down", zap.String("signal", sig.String()))
		cancel()

		shutdownCtx, stop := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer stop()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http shutdown", zap.Error(err))
		}

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Warn("second signal, forcing exit", zap.String("signal", sig.String()))
			os.Exit(1)
		case <-done:
		}
	}()

	if *deriveInterval > 0 {
		go func() {
			if err := a.RunScheduler(ctx, *deriveInterval); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("derivation scheduler stopped", zap.Error(err))
			}
		}()
	}

	logger.Info("listening",
		zap.String("addr", cfg.HTTP.Addr),
		zap.String("backend", cfg.Store.Backend),
		zap.Bool("auth", cfg.Auth.Enabled()),
	)
	err = srv.ListenAndServe()
	close(done)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("http server", zap.Error(err))
	}

	logger.Info("shutdown complete")
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"`)

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
