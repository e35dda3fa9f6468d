// Package main implements the node process serving the KV session channel.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.opentelemetry.io/otel"

	apppkg "github.com/i-melnichenko/kvchan/internal/app"
	"github.com/i-melnichenko/kvchan/internal/kv"
	"github.com/i-melnichenko/kvchan/internal/observability/metrics"
	"github.com/i-melnichenko/kvchan/internal/service"
)

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "node: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := apppkg.LoadConfigFromEnv()
	if err != nil {
		return err
	}

	slog.SetDefault(newLogger(cfg.LogLevel))
	logger := slog.Default()

	promMetrics, err := metrics.NewPrometheus(nil)
	if err != nil {
		return err
	}

	store := kv.NewStore(kv.StoreConfig{
		Buckets:     cfg.StoreBuckets,
		MaxValueLen: cfg.MaxValueLen,
	}, otel.Tracer("github.com/i-melnichenko/kvchan/internal/kv"))

	ch := service.NewChannel(
		store,
		logger,
		otel.Tracer("github.com/i-melnichenko/kvchan/internal/service"),
		promMetrics,
		cfg.NodeID,
	)
	ch.IdleTimeout = cfg.SessionIdleTimeout

	app, err := apppkg.New(cfg, logger, ch)
	if err != nil {
		return err
	}
	defer app.Stop()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return app.Run(ctx)
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: l}))
}
