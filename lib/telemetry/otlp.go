package telemetry

import (
	"context"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const (
	serviceNamespace = "elecharvest"
	// instanceEnv names the harvester instance, e.g. one per dormitory account.
	instanceEnv = "ELECHARVEST_INSTANCE"

	exportTimeout         = 3 * time.Second
	defaultMetricInterval = 30 * time.Second
)

type transport string

const (
	TRANSPORT_GRPC transport = "grpc"
	TRANSPORT_HTTP transport = "http"
)

// transport prefers grpc when both endpoints are set.
func (c OtlpConnConfig) transport() (transport, string) {
	if c.GrpcEndpoint != "" {
		return TRANSPORT_GRPC, c.GrpcEndpoint
	}
	return TRANSPORT_HTTP, c.HttpEndpoint
}

// instanceId is $ELECHARVEST_INSTANCE, else the hostname.
func instanceId() string {
	if id := os.Getenv(instanceEnv); id != "" {
		return id
	}
	host, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return host
}

func newResource(serviceName string) (*resource.Resource, error) {
	return resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
			semconv.ServiceNamespace(serviceNamespace),
			semconv.ServiceInstanceID(instanceId()),
		),
	)
}

func logExporter(signal string, c OtlpConnConfig) {
	kind, endpoint := c.transport()
	slog.Info(
		"otlp exporter ready",
		"signal", signal,
		"transport", kind,
		"endpoint", endpoint,
		"headers", len(c.Headers) > 0,
	)
}

func newSpanExporter(ctx context.Context, c OtlpConnConfig) (trace.SpanExporter, error) {
	ctx, cancel := context.WithTimeout(ctx, exportTimeout)
	defer cancel()

	logExporter("traces", c)
	kind, endpoint := c.transport()
	if kind == TRANSPORT_GRPC {
		return otlptracegrpc.New(ctx, otlptracegrpc.WithEndpointURL(endpoint), otlptracegrpc.WithHeaders(c.Headers))
	}
	return otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(endpoint), otlptracehttp.WithHeaders(c.Headers))
}

func newMetricExporter(ctx context.Context, c OtlpConnConfig) (metric.Exporter, error) {
	ctx, cancel := context.WithTimeout(ctx, exportTimeout)
	defer cancel()

	logExporter("metrics", c)
	kind, endpoint := c.transport()
	if kind == TRANSPORT_GRPC {
		return otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithEndpointURL(endpoint), otlpmetricgrpc.WithHeaders(c.Headers))
	}
	return otlpmetrichttp.New(ctx, otlpmetrichttp.WithEndpointURL(endpoint), otlpmetrichttp.WithHeaders(c.Headers))
}

func newTraceProvider(ctx context.Context, r *resource.Resource, config OtlpConfig) (*trace.TracerProvider, error) {
	exporter, err := newSpanExporter(ctx, config.Traces)
	if err != nil {
		return nil, err
	}
	return trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(r),
	), nil
}

// metricInterval spaces out exports, harvests are rare so the default is generous.
func (c OtlpConfig) metricInterval() time.Duration {
	if c.MetricIntervalSeconds <= 0 {
		return defaultMetricInterval
	}
	return time.Duration(c.MetricIntervalSeconds) * time.Second
}

func newMetricProvider(ctx context.Context, r *resource.Resource, config OtlpConfig) (*metric.MeterProvider, error) {
	exporter, err := newMetricExporter(ctx, config.Metrics)
	if err != nil {
		return nil, err
	}
	return metric.NewMeterProvider(
		metric.WithReader(metric.NewPeriodicReader(exporter, metric.WithInterval(config.metricInterval()))),
		metric.WithResource(r),
	), nil
}
