// Command api is the Beacon emergency notification server.
//
// Usage:
//
//	beacon-api
//	API_PORT=8080 beacon-api

// @title Beacon Emergency Notification API
// @version 1.0.0
// @description Fans a newly reported emergency out to personal contacts or on-duty responders over email and SMS.
// @host localhost:8000
// @BasePath /
// @schemes http https
// @contact.name Beacon
// @license.name MIT
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/beaconalert/beacon/internal/api"
	"github.com/beaconalert/beacon/internal/api/handler"
	"github.com/beaconalert/beacon/internal/app"
	"github.com/beaconalert/beacon/internal/config"
	"github.com/beaconalert/beacon/internal/listener"
	"github.com/beaconalert/beacon/internal/telemetry"

	_ "github.com/beaconalert/beacon/docs" // swagger docs
)

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// Context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Tracing
	shutdownTelemetry, err := telemetry.Setup(ctx, telemetry.Config{
		Endpoint:    cfg.OTLPEndpoint,
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
	})
	if err != nil {
		logger.Warn("Telemetry disabled", "error", err)
	}

	// Stores, identity provider and channels
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialise notify service", "error", err)
		os.Exit(1)
	}
	defer a.Close()
	logger.Info("Channels configured", "email", cfg.HasEmail(), "sms", cfg.HasSMS())

	// Start LISTEN/NOTIFY consumer for new emergency reports
	if cfg.ListenerEnabled && a.Pool != nil {
		go listener.New(cfg.DatabaseURL, a.Service, a.Store, logger).Start(ctx)
		logger.Info("Emergency listener started")
	} else {
		logger.Info("Emergency listener disabled")
	}

	// Create router
	var pinger handler.Pinger
	if a.Pool != nil {
		pinger = a.Pool
	}
	router := api.NewRouter(a.Service, pinger, cfg)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.SendTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	go func() {
		logger.Info("Starting Beacon API",
			"addr", addr,
			"environment", cfg.Environment,
			"docs", fmt.Sprintf("http://localhost:%d/docs/", cfg.APIPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt
	<-ctx.Done()
	logger.Info("Shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", "error", err)
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		logger.Warn("Telemetry shutdown error", "error", err)
	}
	logger.Info("Server stopped")
}
