package app

import (
	"log/slog"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace/noop"

	"github.com/i-melnichenko/kvchan/internal/kv"
	"github.com/i-melnichenko/kvchan/internal/service"
)

func TestLoadConfigFromEnv_Defaults(t *testing.T) {
	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("LoadConfigFromEnv: %v", err)
	}
	if cfg != DefaultConfig() {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
	if cfg.StoreBuckets != kv.DefaultBuckets || cfg.MaxValueLen != kv.DefaultMaxValueLen {
		t.Fatalf("unexpected store defaults: %+v", cfg)
	}
	if cfg.SessionIdleTimeout != 5*time.Minute {
		t.Fatalf("expected 5m idle timeout, got %s", cfg.SessionIdleTimeout)
	}
}

func TestLoadConfigFromEnv_Overrides(t *testing.T) {
	t.Setenv("APP_NODE_ID", "node-7")
	t.Setenv("APP_LOG_LEVEL", "DEBUG")
	t.Setenv("APP_GRPC_ADDR", ":7000")
	t.Setenv("APP_HTTP_ADDR", ":7001")
	t.Setenv("APP_STORE_BUCKETS", "64")
	t.Setenv("APP_MAX_VALUE_LEN", "1024")
	t.Setenv("APP_SESSION_IDLE_TIMEOUT", "0")
	t.Setenv("APP_METRICS_ADDR", ":7002")
	t.Setenv("APP_PPROF_ADDR", ":7003")
	t.Setenv("APP_TRACING_ENABLED", "true")
	t.Setenv("APP_TRACING_ENDPOINT", "otel:4317")
	t.Setenv("APP_TRACING_SERVICE_NAME", "kvchan-test")
	t.Setenv("APP_TRACING_SAMPLE_RATIO", "0.5")

	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("LoadConfigFromEnv: %v", err)
	}
	want := Config{
		NodeID:             "node-7",
		LogLevel:           "debug",
		GRPCAddr:           ":7000",
		HTTPAddr:           ":7001",
		StoreBuckets:       64,
		MaxValueLen:        1024,
		SessionIdleTimeout: 0,
		MetricsAddr:        ":7002",
		PprofAddr:          ":7003",
		TracingEnabled:     true,
		TracingEndpoint:    "otel:4317",
		TracingServiceName: "kvchan-test",
		TracingSampleRatio: 0.5,
	}
	if cfg != want {
		t.Fatalf("expected %+v, got %+v", want, cfg)
	}
}

func TestLoadConfigFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		key, value, wantErr string
	}{
		{"APP_STORE_BUCKETS", "many", "APP_STORE_BUCKETS"},
		{"APP_STORE_BUCKETS", "0", "store buckets"},
		{"APP_MAX_VALUE_LEN", "-1", "max value length"},
		{"APP_SESSION_IDLE_TIMEOUT", "soon", "APP_SESSION_IDLE_TIMEOUT"},
		{"APP_SESSION_IDLE_TIMEOUT", "-1s", "idle timeout"},
		{"APP_LOG_LEVEL", "loud", "log level"},
		{"APP_TRACING_ENABLED", "maybe", "APP_TRACING_ENABLED"},
		{"APP_TRACING_SAMPLE_RATIO", "half", "APP_TRACING_SAMPLE_RATIO"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := LoadConfigFromEnv()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error mentioning %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidate_TracingSampleRatio(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TracingEnabled = true
	for _, ratio := range []float64{-0.1, 1.5} {
		cfg.TracingSampleRatio = ratio
		if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "sample ratio") {
			t.Fatalf("ratio %v: expected sample ratio error, got %v", ratio, err)
		}
	}
	cfg.TracingSampleRatio = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("ratio 0: %v", err)
	}
}

func TestNew_RejectsMissingDependencies(t *testing.T) {
	cfg := DefaultConfig()
	tracer := noop.NewTracerProvider().Tracer("test/internal/app")
	ch := service.NewChannel(kv.NewStore(kv.StoreConfig{}, tracer), slog.Default(), tracer, nil, cfg.NodeID)

	if _, err := New(cfg, nil, ch); err == nil {
		t.Fatal("expected error for nil logger")
	}
	if _, err := New(cfg, slog.Default(), nil); err == nil {
		t.Fatal("expected error for nil channel")
	}
	bad := cfg
	bad.NodeID = " "
	if _, err := New(bad, slog.Default(), ch); err == nil {
		t.Fatal("expected error for blank node id")
	}
	if _, err := New(cfg, slog.Default(), ch); err != nil {
		t.Fatalf("New: %v", err)
	}
}
