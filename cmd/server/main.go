package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/time/rate"

	"github.com/carelink/signal-relay/internal/config"
	"github.com/carelink/signal-relay/internal/logging"
	"github.com/carelink/signal-relay/internal/server"
	"github.com/carelink/signal-relay/internal/signaling"
	"github.com/carelink/signal-relay/internal/version"
)

func main() {
	// .env may set LOG_LEVEL and LOG_FORMAT, and config warnings must go
	// through the configured logger.
	envErr := config.LoadDotEnv()
	logging.Init(slog.LevelInfo)
	if envErr != nil {
		slog.Warn("could not read .env file", "err", envErr)
	}
	cfg := config.LoadServer()

	registry := signaling.NewRegistry(cfg.RoomCapacity)
	router := signaling.NewRouter(registry)
	hub := signaling.NewHub(registry, router, signaling.HubOptions{
		MaxMessageSize: cfg.MaxMessageSize,
		RateLimit:      rate.Limit(cfg.RatePerSecond),
		RateBurst:      cfg.RateBurst,
	})

	srv := server.New(cfg.Addr(), server.NewMux(hub, server.NewOriginPolicy(cfg.AllowedOrigins)))

	go func() {
		slog.Info("signaling server starting",
			"addr", cfg.Addr(),
			"version", version.Version,
			"room_capacity", registry.Capacity(),
			"origins", cfg.AllowedOrigins,
		)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("server shutting down", "timeout", cfg.ShutdownTimeout)
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("http shutdown error", "err", err)
	}
	if err := hub.Shutdown(ctx); err != nil {
		slog.Error("hub shutdown error", "err", err)
	}
	slog.Info("server stopped")
}
