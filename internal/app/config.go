package app

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/i-melnichenko/kvchan/internal/kv"
)

// Config contains runtime settings for a node process.
type Config struct {
	NodeID   string
	LogLevel string

	GRPCAddr string
	// HTTPAddr serves the Connect binding of the channel. Empty disables it.
	HTTPAddr string

	StoreBuckets int
	MaxValueLen  int

	// SessionIdleTimeout closes sessions with no activity for this long.
	// Zero disables the idle reaper.
	SessionIdleTimeout time.Duration

	MetricsAddr string
	PprofAddr   string

	TracingEnabled     bool
	TracingEndpoint    string
	TracingServiceName string
	// TracingSampleRatio is the fraction of root spans kept, in [0, 1].
	TracingSampleRatio float64
}

// DefaultConfig returns a local-development configuration.
func DefaultConfig() Config {
	return Config{
		NodeID:             "node-1",
		LogLevel:           "info",
		GRPCAddr:           ":8080",
		StoreBuckets:       kv.DefaultBuckets,
		MaxValueLen:        kv.DefaultMaxValueLen,
		SessionIdleTimeout: 5 * time.Minute,
		TracingEndpoint:    "localhost:4317",
		TracingServiceName: "kvchan",
		TracingSampleRatio: 1,
	}
}

// LoadConfigFromEnv loads config from environment variables.
//
// Supported vars:
// - APP_NODE_ID
// - APP_LOG_LEVEL (debug|info|warn|error)
// - APP_GRPC_ADDR
// - APP_HTTP_ADDR (Connect over HTTP, empty = disabled)
// - APP_STORE_BUCKETS (int > 0)
// - APP_MAX_VALUE_LEN (int > 0)
// - APP_SESSION_IDLE_TIMEOUT (duration, 0 = disabled)
// - APP_METRICS_ADDR (empty = disabled)
// - APP_PPROF_ADDR (empty = disabled)
// - APP_TRACING_ENABLED (bool)
// - APP_TRACING_ENDPOINT (OTLP gRPC host:port)
// - APP_TRACING_SERVICE_NAME
// - APP_TRACING_SAMPLE_RATIO (float in [0, 1])
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := strings.TrimSpace(os.Getenv("APP_NODE_ID")); v != "" {
		cfg.NodeID = v
	}
	if v := strings.TrimSpace(os.Getenv("APP_LOG_LEVEL")); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv("APP_GRPC_ADDR")); v != "" {
		cfg.GRPCAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("APP_HTTP_ADDR")); v != "" {
		cfg.HTTPAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("APP_STORE_BUCKETS")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("app: invalid APP_STORE_BUCKETS %q: %w", v, err)
		}
		cfg.StoreBuckets = n
	}
	if v := strings.TrimSpace(os.Getenv("APP_MAX_VALUE_LEN")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("app: invalid APP_MAX_VALUE_LEN %q: %w", v, err)
		}
		cfg.MaxValueLen = n
	}
	if v := strings.TrimSpace(os.Getenv("APP_SESSION_IDLE_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("app: invalid APP_SESSION_IDLE_TIMEOUT %q: %w", v, err)
		}
		cfg.SessionIdleTimeout = d
	}
	if v := strings.TrimSpace(os.Getenv("APP_METRICS_ADDR")); v != "" {
		cfg.MetricsAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("APP_PPROF_ADDR")); v != "" {
		cfg.PprofAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("APP_TRACING_ENABLED")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("app: invalid APP_TRACING_ENABLED %q: %w", v, err)
		}
		cfg.TracingEnabled = b
	}
	if v := strings.TrimSpace(os.Getenv("APP_TRACING_ENDPOINT")); v != "" {
		cfg.TracingEndpoint = v
	}
	if v := strings.TrimSpace(os.Getenv("APP_TRACING_SERVICE_NAME")); v != "" {
		cfg.TracingServiceName = v
	}
	if v := strings.TrimSpace(os.Getenv("APP_TRACING_SAMPLE_RATIO")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return Config{}, fmt.Errorf("app: invalid APP_TRACING_SAMPLE_RATIO %q: %w", v, err)
		}
		cfg.TracingSampleRatio = f
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that required settings are present and supported.
func (c Config) Validate() error {
	if strings.TrimSpace(c.NodeID) == "" {
		return fmt.Errorf("app: node id is required")
	}
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("app: unsupported log level %q", c.LogLevel)
	}
	if strings.TrimSpace(c.GRPCAddr) == "" {
		return fmt.Errorf("app: grpc addr is required")
	}
	if c.StoreBuckets <= 0 {
		return fmt.Errorf("app: store buckets must be > 0, got %d", c.StoreBuckets)
	}
	if c.MaxValueLen <= 0 {
		return fmt.Errorf("app: max value length must be > 0, got %d", c.MaxValueLen)
	}
	if c.SessionIdleTimeout < 0 {
		return fmt.Errorf("app: session idle timeout must be >= 0, got %s", c.SessionIdleTimeout)
	}
	if c.TracingEnabled {
		if strings.TrimSpace(c.TracingEndpoint) == "" {
			return fmt.Errorf("app: tracing endpoint is required when tracing is enabled")
		}
		if strings.TrimSpace(c.TracingServiceName) == "" {
			return fmt.Errorf("app: tracing service name is required when tracing is enabled")
		}
		if c.TracingSampleRatio < 0 || c.TracingSampleRatio > 1 {
			return fmt.Errorf("app: tracing sample ratio must be in [0, 1], got %g", c.TracingSampleRatio)
		}
	}
	return nil
}
