package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	otelprometheus "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// Config controls how kgraphd's tracer and meter providers are built.
type Config struct {
	ServiceName    string
	ServiceVersion string

	// TraceExporter selects the span exporter: "stdout" or "none".
	TraceExporter string

	// MetricsExporter selects the metric reader: "prometheus", "stdout",
	// or "none". Prometheus metrics are scraped via /metrics rather than
	// pushed, so enabling it does not require a periodic reader.
	MetricsExporter string
}

// DefaultConfig returns a configuration suited to local development: trace
// spans printed to stdout, metrics exposed for Prometheus scraping.
func DefaultConfig() Config {
	return Config{
		ServiceName:     "kgraphd",
		ServiceVersion:  "dev",
		TraceExporter:   "stdout",
		MetricsExporter: "prometheus",
	}
}

// Providers bundles the constructed tracer/meter along with everything a
// caller needs to shut them down cleanly, and the Prometheus registry (when
// MetricsExporter is "prometheus") that an HTTP handler should expose.
type Providers struct {
	Tracer           trace.Tracer
	MeterProvider    *sdkmetric.MeterProvider
	PrometheusReader *otelprometheus.Exporter
	shutdown         func(context.Context) error
}

// Shutdown flushes and releases the underlying providers.
func (p *Providers) Shutdown(ctx context.Context) error {
	if p.shutdown == nil {
		return nil
	}
	return p.shutdown(ctx)
}

// Setup builds the tracer and meter providers described by cfg and installs
// them as the global OpenTelemetry providers.
func Setup(ctx context.Context, cfg Config) (*Providers, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("merging otel resource: %w", err)
	}

	tp, err := buildTracerProvider(ctx, cfg, res)
	if err != nil {
		return nil, fmt.Errorf("building tracer provider: %w", err)
	}
	otel.SetTracerProvider(tp)

	mp, promExporter, err := buildMeterProvider(ctx, cfg, res)
	if err != nil {
		return nil, fmt.Errorf("building meter provider: %w", err)
	}
	otel.SetMeterProvider(mp)

	tracer := tp.Tracer("github.com/kgraph-ai/kgraph")

	return &Providers{
		Tracer:           tracer,
		MeterProvider:    mp,
		PrometheusReader: promExporter,
		shutdown: func(ctx context.Context) error {
			if err := tp.Shutdown(ctx); err != nil {
				return err
			}
			return mp.Shutdown(ctx)
		},
	}, nil
}

func buildTracerProvider(ctx context.Context, cfg Config, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	switch cfg.TraceExporter {
	case "", "none":
		return sdktrace.NewTracerProvider(sdktrace.WithResource(res)), nil
	case "stdout":
		exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, err
		}
		return sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exp),
			sdktrace.WithResource(res),
		), nil
	default:
		return nil, fmt.Errorf("unknown trace exporter %q", cfg.TraceExporter)
	}
}

func buildMeterProvider(ctx context.Context, cfg Config, res *resource.Resource) (*sdkmetric.MeterProvider, *otelprometheus.Exporter, error) {
	switch cfg.MetricsExporter {
	case "", "none":
		return sdkmetric.NewMeterProvider(sdkmetric.WithResource(res)), nil, nil
	case "prometheus":
		exp, err := otelprometheus.New()
		if err != nil {
			return nil, nil, err
		}
		return sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(exp),
			sdkmetric.WithResource(res),
		), exp, nil
	case "stdout":
		exp, err := stdoutmetric.New()
		if err != nil {
			return nil, nil, err
		}
		reader := sdkmetric.NewPeriodicReader(exp)
		return sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(reader),
			sdkmetric.WithResource(res),
		), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown metrics exporter %q", cfg.MetricsExporter)
	}
}
