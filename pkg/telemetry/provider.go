package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Config configures the kernel's OpenTelemetry providers. The zero value
// (Enabled: false) is a safe default for tests and for deployments that
// have no collector — Provider then falls back to the global no-op
// tracer/meter.
type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	OTLPEndpoint   string // e.g. "localhost:4317"
	Insecure       bool
	BatchTimeout   time.Duration
}

// Provider owns the kernel's TracerProvider/MeterProvider and the RED
// (rate/error/duration) instruments that RecordCall updates for one tool
// call. The executor pipeline does not call RecordCall itself.
type Provider struct {
	cfg            Config
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider

	callCounter  metric.Int64Counter
	errorCounter metric.Int64Counter
	durationHist metric.Float64Histogram
}

// NewProvider initializes tracing and metrics export over OTLP/gRPC. If
// cfg.Enabled is false, it returns a Provider whose methods are no-ops.
func NewProvider(ctx context.Context, cfg Config) (*Provider, error) {
	p := &Provider{cfg: cfg}
	if !cfg.Enabled {
		return p, nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: build resource: %w", err)
	}

	if err := p.initTraces(ctx, res); err != nil {
		return nil, err
	}
	if err := p.initMetrics(ctx, res); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Provider) initTraces(ctx context.Context, res *resource.Resource) error {
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(p.cfg.OTLPEndpoint)}
	if p.cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return fmt.Errorf("telemetry: create trace exporter: %w", err)
	}

	batchTimeout := p.cfg.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = 5 * time.Second
	}
	p.tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(batchTimeout)),
	)
	otel.SetTracerProvider(p.tracerProvider)
	return nil
}

func (p *Provider) initMetrics(ctx context.Context, res *resource.Resource) error {
	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(p.cfg.OTLPEndpoint)}
	if p.cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return fmt.Errorf("telemetry: create metric exporter: %w", err)
	}

	p.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(15*time.Second))),
	)
	otel.SetMeterProvider(p.meterProvider)

	meter := p.meterProvider.Meter(tracerName)
	if p.callCounter, err = meter.Int64Counter("govkernel.tool_calls.total",
		metric.WithDescription("Tool calls processed by the executor"),
		metric.WithUnit("{call}"),
	); err != nil {
		return fmt.Errorf("telemetry: create call counter: %w", err)
	}
	if p.errorCounter, err = meter.Int64Counter("govkernel.tool_calls.errors",
		metric.WithDescription("Tool calls that ended in BLOCK or a dispatch error"),
		metric.WithUnit("{call}"),
	); err != nil {
		return fmt.Errorf("telemetry: create error counter: %w", err)
	}
	if p.durationHist, err = meter.Float64Histogram("govkernel.tool_calls.duration",
		metric.WithDescription("Executor pipeline latency per tool call"),
		metric.WithUnit("s"),
	); err != nil {
		return fmt.Errorf("telemetry: create duration histogram: %w", err)
	}
	return nil
}

// RecordCall records one completed Execute call's decision and latency.
func (p *Provider) RecordCall(ctx context.Context, decision string, blocked bool, d time.Duration) {
	if p.callCounter == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("tool.decision", decision))
	p.callCounter.Add(ctx, 1, attrs)
	p.durationHist.Record(ctx, d.Seconds(), attrs)
	if blocked {
		p.errorCounter.Add(ctx, 1, attrs)
	}
}

// Shutdown flushes and closes the trace/metric exporters. Safe to call on
// a disabled Provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	var err error
	if p.tracerProvider != nil {
		if shutErr := p.tracerProvider.Shutdown(ctx); shutErr != nil {
			err = fmt.Errorf("telemetry: shutdown tracer provider: %w", shutErr)
		}
	}
	if p.meterProvider != nil {
		if shutErr := p.meterProvider.Shutdown(ctx); shutErr != nil && err == nil {
			err = fmt.Errorf("telemetry: shutdown meter provider: %w", shutErr)
		}
	}
	return err
}
