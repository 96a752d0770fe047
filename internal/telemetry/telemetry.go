// Package telemetry configures the global OpenTelemetry tracer provider.
package telemetry

import (
	"context"
	"io"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"

	"github.com/taskhub/taskhub-api/internal/config"
)

// Shutdown flushes pending spans.
type Shutdown func(context.Context) error

func noop(context.Context) error { return nil }

func newResource(serviceName string) *resource.Resource {
	if serviceName == "" {
		serviceName = "taskhub-api"
	}
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
	)
}

func newExporter(ctx context.Context, cfg config.TelemetryConfig, stdout io.Writer) (trace.SpanExporter, error) {
	if cfg.OTLPEndpoint != "" {
		if strings.HasPrefix(cfg.OTLPEndpoint, "http://") || strings.HasPrefix(cfg.OTLPEndpoint, "https://") {
			return otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(cfg.OTLPEndpoint))
		}
		return otlptracehttp.New(ctx, otlptracehttp.WithInsecure(), otlptracehttp.WithEndpoint(cfg.OTLPEndpoint))
	}
	return stdouttrace.New(
		stdouttrace.WithWriter(stdout),
		stdouttrace.WithPrettyPrint(),
		stdouttrace.WithoutTimestamps(),
	)
}

// NewProvider installs a tracer provider as the global default.
// Tracing is off (and a no-op Shutdown returned) unless an OTLP endpoint is
// configured or stdout tracing is requested.
func NewProvider(ctx context.Context, cfg config.TelemetryConfig, stdout io.Writer) (Shutdown, error) {
	if cfg.OTLPEndpoint == "" && !cfg.Stdout {
		return noop, nil
	}
	exp, err := newExporter(ctx, cfg, stdout)
	if err != nil {
		return noop, err
	}
	tp := trace.NewTracerProvider(
		trace.WithBatcher(exp),
		trace.WithResource(newResource(cfg.ServiceName)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	return tp.Shutdown, nil
}
