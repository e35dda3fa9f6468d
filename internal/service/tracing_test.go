package service

import (
	"context"
	"log/slog"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/i-melnichenko/kvchan/internal/kv"
)

func TestSessionWrite_SpanKeyAttributeKeepsFullRange(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	tracer := tp.Tracer("test/internal/service")

	c := NewChannel(kv.NewStore(kv.StoreConfig{Buckets: 8}, tracer), slog.Default(), tracer, nil, "n1")
	s := c.Open(context.Background())
	mustWrite(t, s, "Get 18446744073709551615")

	for _, span := range rec.Ended() {
		if span.Name() != "kv.service.Write" {
			continue
		}
		for _, attr := range span.Attributes() {
			if attr.Key != "kv.key" {
				continue
			}
			if got := attr.Value.Emit(); got != "18446744073709551615" {
				t.Fatalf("expected kv.key 18446744073709551615, got %q", got)
			}
			return
		}
		t.Fatal("kv.service.Write span has no kv.key attribute")
	}
	t.Fatal("no kv.service.Write span recorded")
}
