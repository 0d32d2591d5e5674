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

	"github.com/nats-io/nats.go"

	"github.com/loyaltyhub/points-ledger/internal/api"
	"github.com/loyaltyhub/points-ledger/internal/config"
	"github.com/loyaltyhub/points-ledger/internal/database"
	"github.com/loyaltyhub/points-ledger/internal/event"
	"github.com/loyaltyhub/points-ledger/internal/ledger"
	"github.com/loyaltyhub/points-ledger/internal/sweeper"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.LogLevel)

	tiers, err := cfg.TierDefinitions()
	if err != nil {
		slog.Error("invalid tier configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		slog.Error("failed to apply schema", "error", err)
		os.Exit(1)
	}

	publisher := initPublisher(cfg.NATSURL)

	repo := ledger.NewPostgresRepository(db.Pool())
	svc := ledger.NewService(repo, publisher, ledger.ServiceConfig{
		Tiers:       tiers,
		EarnTTL:     cfg.EarnTTL(),
		LockTimeout: cfg.LockTimeout(),
	})

	sw := sweeper.New(svc, cfg.SweepEvery())
	go sw.Start(ctx)

	router := api.NewRouter(api.RouterDeps{
		Service:        svc,
		DBPinger:       db,
		Version:        cfg.Version,
		AdminTokenHash: cfg.AdminTokenHash,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting points ledger server", "port", cfg.Port, "version", cfg.Version)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("shutting down server", "signal", sig.String())
	case err := <-serverErr:
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}

func setupLogger(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

// initPublisher connects to NATS when a URL is configured; tier change
// events fall back to the structured log otherwise.
func initPublisher(natsURL string) event.Publisher {
	if natsURL == "" {
		slog.Info("no NATS URL configured; tier change events will be logged only")
		return event.LogPublisher{}
	}

	conn, err := nats.Connect(natsURL)
	if err != nil {
		slog.Warn("nats connection failed; tier change events will be logged only", "error", err)
		return event.LogPublisher{}
	}

	return event.NewNATSPublisher(conn)
}
