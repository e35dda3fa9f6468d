// Package app wires the session channel, its store, and transports together.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	"github.com/i-melnichenko/kvchan/internal/service"
	kvconnect "github.com/i-melnichenko/kvchan/internal/transport/connect/kv"
	admingrpc "github.com/i-melnichenko/kvchan/internal/transport/grpc/admin"
	kvgrpc "github.com/i-melnichenko/kvchan/internal/transport/grpc/kv"
)

const (
	grpcTracerName    = "github.com/i-melnichenko/kvchan/internal/transport/grpc/kv"
	connectTracerName = "github.com/i-melnichenko/kvchan/internal/transport/connect/kv"
)

// Logger is the logging interface required by App.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// App exposes a session channel over gRPC and, optionally, Connect.
// All dependencies are injected; App only owns listeners and servers.
type App struct {
	config  Config
	logger  Logger
	channel *service.Channel
}

// New validates dependencies and constructs a runnable application.
func New(cfg Config, logger Logger, ch *service.Channel) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		return nil, fmt.Errorf("app: nil logger")
	}
	if ch == nil {
		return nil, fmt.Errorf("app: nil channel")
	}
	return &App{
		config:  cfg,
		logger:  logger,
		channel: ch,
	}, nil
}

// Stop closes every open session.
func (a *App) Stop() {
	a.channel.Shutdown()
}

// Run starts tracing, the channel servers and the optional metrics and pprof
// endpoints, then blocks until ctx is canceled or a fatal error occurs.
func (a *App) Run(ctx context.Context) error {
	shutdownTracing, err := a.initTracing(ctx)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			a.logger.Warn("tracing shutdown failed", "error", err)
		}
	}()

	lis, err := net.Listen("tcp", a.config.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen grpc %s: %w", a.config.GRPCAddr, err)
	}
	defer func() { _ = lis.Close() }()

	endpoints, err := a.httpEndpoints()
	if err != nil {
		return err
	}

	a.logger.Info(
		"node started",
		"node_id", a.config.NodeID,
		"grpc_addr", a.config.GRPCAddr,
		"http_addr", a.config.HTTPAddr,
		"metrics_addr", a.config.MetricsAddr,
		"pprof_addr", a.config.PprofAddr,
		"store_buckets", a.config.StoreBuckets,
		"max_value_len", a.config.MaxValueLen,
		"session_idle_timeout", a.config.SessionIdleTimeout,
	)

	return a.serve(ctx, lis, endpoints)
}

// httpEndpoints binds the Connect, metrics and pprof listeners that are
// configured. On error every listener bound so far is closed.
func (a *App) httpEndpoints() ([]httpEndpoint, error) {
	connectMux := http.NewServeMux()
	connectMux.Handle(kvconnect.NewHandler(a.channel, otel.Tracer(connectTracerName)))

	specs := []struct {
		name    string
		addr    string
		handler func() (http.Handler, error)
	}{
		{"connect", a.config.HTTPAddr, func() (http.Handler, error) { return connectMux, nil }},
		{"metrics", a.config.MetricsAddr, metricsHandler},
		{"pprof", a.config.PprofAddr, func() (http.Handler, error) { return pprofHandler(), nil }},
	}

	var endpoints []httpEndpoint
	fail := func(err error) ([]httpEndpoint, error) {
		errs := []error{err}
		for _, ep := range endpoints {
			errs = append(errs, ep.closeListener())
		}
		return nil, errors.Join(errs...)
	}
	for _, spec := range specs {
		if spec.addr == "" {
			continue
		}
		h, err := spec.handler()
		if err != nil {
			return fail(err)
		}
		ep, err := listenHTTP(spec.name, spec.addr, h)
		if err != nil {
			return fail(err)
		}
		endpoints = append(endpoints, ep)
	}
	return endpoints, nil
}

// serve registers gRPC services, starts goroutines, and blocks until ctx is
// canceled or a fatal error occurs.
func (a *App) serve(ctx context.Context, lis net.Listener, endpoints []httpEndpoint) error {
	server := grpc.NewServer()
	kvgrpc.RegisterChannelServiceServer(server, kvgrpc.NewServer(a.channel, otel.Tracer(grpcTracerName)))
	admingrpc.RegisterAdminServiceServer(server, admingrpc.NewServer(a.channel))
	reflection.Register(server)

	errCh := make(chan error, 2+len(endpoints))

	go func() {
		if err := a.channel.RunReaper(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("session reaper: %w", err)
		}
	}()
	go func() {
		if err := server.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc serve: %w", err)
		}
	}()
	for _, ep := range endpoints {
		go ep.serve(errCh)
	}

	stopHTTP := func() {
		for _, ep := range endpoints {
			ep.shutdown(a.logger)
		}
	}

	select {
	case <-ctx.Done():
		stopHTTP()
		server.GracefulStop()
		return nil
	case err := <-errCh:
		stopHTTP()
		server.Stop()
		return err
	}
}
