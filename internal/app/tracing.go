package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const traceExportTimeout = 5 * time.Second

// initTracing installs a global OTLP tracer provider when tracing is enabled.
// Tracers obtained earlier through otel.Tracer pick it up automatically.
func (a *App) initTracing(ctx context.Context) (func(context.Context) error, error) {
	if !a.config.TracingEnabled {
		return func(context.Context) error { return nil }, nil
	}

	tp, err := newTracerProvider(ctx, a.config)
	if err != nil {
		return nil, err
	}
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	a.logger.Info(
		"tracing enabled",
		"endpoint", a.config.TracingEndpoint,
		"service_name", a.config.TracingServiceName,
		"sample_ratio", a.config.TracingSampleRatio,
	)
	return tp.Shutdown, nil
}

func newTracerProvider(ctx context.Context, cfg Config) (*sdktrace.TracerProvider, error) {
	exporter, err := otlptracegrpc.New(
		ctx,
		otlptracegrpc.WithEndpoint(strings.TrimSpace(cfg.TracingEndpoint)),
		otlptracegrpc.WithInsecure(),
		otlptracegrpc.WithTimeout(traceExportTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("app: tracing exporter: %w", err)
	}

	res, err := traceResource(cfg)
	if err != nil {
		_ = exporter.Shutdown(ctx)
		return nil, fmt.Errorf("app: tracing resource: %w", err)
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(traceSampler(cfg.TracingSampleRatio)),
	), nil
}

// traceResource layers the node identity and store shape over the SDK
// defaults (process, host, telemetry.sdk.*).
func traceResource(cfg Config) (*resource.Resource, error) {
	return resource.Merge(resource.Default(), resource.NewSchemaless(
		attribute.String("service.name", cfg.TracingServiceName),
		attribute.String("service.instance.id", cfg.NodeID),
		attribute.Int("kvchan.store.buckets", cfg.StoreBuckets),
		attribute.Int("kvchan.store.max_value_len", cfg.MaxValueLen),
	))
}

// traceSampler samples root spans by ratio and follows the parent decision
// for spans that arrive with a remote context.
func traceSampler(ratio float64) sdktrace.Sampler {
	if ratio >= 1 {
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
}
