package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

func TestSetupWithoutEndpoints(t *testing.T) {
	tel, err := Setup(context.Background(), "test:telemetry", Config{})
	require.NoError(t, err)
	require.Nil(t, tel.TracerProvider)
	require.Nil(t, tel.MeterProvider)
	require.NoError(t, tel.Shutdown(context.Background()))
}

func TestReadPerfStats(t *testing.T) {
	stats := ReadPerfStats(0)
	require.Greater(t, stats.Goroutines, int64(0))
	require.GreaterOrEqual(t, stats.CpuPercent, 0.0)
}

func TestResourceNaming(t *testing.T) {
	t.Setenv(instanceEnv, "dorm-d1-101")
	r, err := newResource("elecd")
	require.NoError(t, err)

	attrs := map[string]string{}
	for _, kv := range r.Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	require.Equal(t, "elecd", attrs[string(semconv.ServiceNameKey)])
	require.Equal(t, "elecharvest", attrs[string(semconv.ServiceNamespaceKey)])
	require.Equal(t, "dorm-d1-101", attrs[string(semconv.ServiceInstanceIDKey)])
}

func TestExporterTransport(t *testing.T) {
	kind, endpoint := OtlpConnConfig{GrpcEndpoint: "http://collector:4317", HttpEndpoint: "http://collector:4318"}.transport()
	require.Equal(t, TRANSPORT_GRPC, kind)
	require.Equal(t, "http://collector:4317", endpoint)

	kind, endpoint = OtlpConnConfig{HttpEndpoint: "http://collector:4318"}.transport()
	require.Equal(t, TRANSPORT_HTTP, kind)
	require.Equal(t, "http://collector:4318", endpoint)
}

func TestMetricInterval(t *testing.T) {
	require.Equal(t, defaultMetricInterval, OtlpConfig{}.metricInterval())
	require.Equal(t, 5*time.Second, OtlpConfig{MetricIntervalSeconds: 5}.metricInterval())
}
