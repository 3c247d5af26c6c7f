package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope every beamline span is recorded
// under.
const TracerName = "github.com/beamline-run/beamline"

// NewTracerProvider builds an OTLP/HTTP-exporting tracer provider. endpoint
// empty builds a provider with no exporter: spans are still created but
// never leave the process, which keeps tests and sandbox runs offline-safe.
func NewTracerProvider(ctx context.Context, endpoint, serviceName string) (*sdktrace.TracerProvider, error) {
	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(serviceName),
	))
	if err != nil {
		return nil, fmt.Errorf("observability: build resource: %w", err)
	}

	if endpoint == "" {
		return sdktrace.NewTracerProvider(sdktrace.WithResource(res)), nil
	}

	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpoint(endpoint), otlptracehttp.WithInsecure())
	if err != nil {
		return nil, fmt.Errorf("observability: build otlp exporter: %w", err)
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	), nil
}

// Tracer returns the shared beamline tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

// StartStepSpan opens a span for one step attempt, tagging it with the
// identifiers every beamline trace correlates on.
func StartStepSpan(ctx context.Context, blockType, tenantID, runID, stepID string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "beamline.step.execute",
		trace.WithAttributes(
			attribute.String("beamline.block_type", blockType),
			attribute.String("beamline.tenant_id", tenantID),
			attribute.String("beamline.run_id", runID),
			attribute.String("beamline.step_id", stepID),
		),
	)
}
