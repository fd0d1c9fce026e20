package tracer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"sentinel-be/internal/config"
)

func TestInitTracerDisabled(t *testing.T) {
	shutdown := InitTracer(config.AppConfig{}, config.TracingConfig{Enabled: false})
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestNewResource(t *testing.T) {
	tests := []struct {
		name        string
		serviceName string
		want        string
	}{
		{name: "configured", serviceName: "sentinel-worker", want: "sentinel-worker"},
		{name: "default", serviceName: "", want: "sentinel-backend"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := newResource(
				config.AppConfig{Version: "1.2.0", Environment: "staging"},
				config.TracingConfig{ServiceName: tt.serviceName},
			)
			attrs := map[string]string{}
			for _, kv := range res.Attributes() {
				attrs[string(kv.Key)] = kv.Value.AsString()
			}
			assert.Equal(t, tt.want, attrs[string(semconv.ServiceNameKey)])
			assert.Equal(t, "1.2.0", attrs[string(semconv.ServiceVersionKey)])
			assert.Equal(t, "staging", attrs[string(semconv.DeploymentEnvironmentKey)])
		})
	}
}

func TestNewSampler(t *testing.T) {
	tests := []struct {
		ratio float64
		want  string
	}{
		{ratio: 1, want: "AlwaysOnSampler"},
		{ratio: 0, want: "AlwaysOffSampler"},
		{ratio: -1, want: "AlwaysOffSampler"},
		{ratio: 0.25, want: "TraceIDRatioBased{0.25}"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Contains(t, newSampler(tt.ratio).Description(), tt.want)
		})
	}
}
