package app

import (
	"context"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestTraceResource(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NodeID = "node-3"
	cfg.StoreBuckets = 64

	res, err := traceResource(cfg)
	if err != nil {
		t.Fatalf("traceResource: %v", err)
	}

	want := map[attribute.Key]string{
		"service.name":         "kvchan",
		"service.instance.id":  "node-3",
		"kvchan.store.buckets": "64",
	}
	set := res.Set()
	for key, value := range want {
		got, ok := set.Value(key)
		if !ok {
			t.Fatalf("resource has no %s attribute", key)
		}
		if got.Emit() != value {
			t.Fatalf("%s: expected %q, got %q", key, value, got.Emit())
		}
	}
}

func TestTraceSampler(t *testing.T) {
	tests := []struct {
		ratio float64
		want  string
	}{
		{ratio: 1, want: "AlwaysOnSampler"},
		{ratio: 0.25, want: "TraceIDRatioBased{0.25}"},
		{ratio: 0, want: "TraceIDRatioBased{0}"},
	}
	for _, tt := range tests {
		desc := traceSampler(tt.ratio).Description()
		if !strings.HasPrefix(desc, "ParentBased{") || !strings.Contains(desc, tt.want) {
			t.Fatalf("traceSampler(%v): expected parent based %s, got %q", tt.ratio, tt.want, desc)
		}
	}
}

func TestInitTracing_DisabledIsNoop(t *testing.T) {
	a, _ := newTestApp(t, DefaultConfig())
	shutdown, err := a.initTracing(context.Background())
	if err != nil {
		t.Fatalf("initTracing: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
