package app

import (
	"context"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace/noop"

	"github.com/i-melnichenko/kvchan/internal/kv"
	"github.com/i-melnichenko/kvchan/internal/service"
	kvconnect "github.com/i-melnichenko/kvchan/internal/transport/connect/kv"
)

func newTestApp(t *testing.T, cfg Config) (*App, *service.Channel) {
	t.Helper()
	tracer := noop.NewTracerProvider().Tracer("test/internal/app")
	ch := service.NewChannel(kv.NewStore(kv.StoreConfig{Buckets: 8}, tracer), slog.Default(), tracer, nil, cfg.NodeID)
	a, err := New(cfg, slog.Default(), ch)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a, ch
}

func TestHTTPEndpoints_ServeConnectAndPprof(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HTTPAddr = "127.0.0.1:0"
	cfg.PprofAddr = "127.0.0.1:0"
	a, _ := newTestApp(t, cfg)

	endpoints, err := a.httpEndpoints()
	if err != nil {
		t.Fatalf("httpEndpoints: %v", err)
	}
	if len(endpoints) != 2 {
		t.Fatalf("expected 2 endpoints, got %d", len(endpoints))
	}

	errCh := make(chan error, len(endpoints))
	for _, ep := range endpoints {
		go ep.serve(errCh)
	}
	defer func() {
		for _, ep := range endpoints {
			ep.shutdown(a.logger)
		}
	}()

	byName := make(map[string]httpEndpoint, len(endpoints))
	for _, ep := range endpoints {
		byName[ep.name] = ep
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client := kvconnect.NewClient(http.DefaultClient, "http://"+byName["connect"].lis.Addr().String())
	sess, err := client.Open(ctx)
	if err != nil {
		t.Fatalf("Open over connect: %v", err)
	}
	for _, raw := range []string{"Put 3 three", "Get 3"} {
		if _, err := sess.Write(ctx, []byte(raw)); err != nil {
			t.Fatalf("Write(%q): %v", raw, err)
		}
	}
	got, err := sess.Read(ctx, 0)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "three" {
		t.Fatalf("expected three, got %q", got)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+byName["pprof"].lis.Addr().String()+"/debug/pprof/", nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET pprof: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from pprof, got %d", resp.StatusCode)
	}
}

func TestHTTPEndpoints_DisabledByDefault(t *testing.T) {
	a, _ := newTestApp(t, DefaultConfig())
	endpoints, err := a.httpEndpoints()
	if err != nil {
		t.Fatalf("httpEndpoints: %v", err)
	}
	if len(endpoints) != 0 {
		t.Fatalf("expected no endpoints, got %d", len(endpoints))
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GRPCAddr = "127.0.0.1:0"
	cfg.SessionIdleTimeout = time.Minute
	a, ch := newTestApp(t, cfg)
	ch.Open(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	a.Stop()
	if n := ch.Stats().SessionsOpen; n != 0 {
		t.Fatalf("expected Stop to close sessions, got %d open", n)
	}
}
