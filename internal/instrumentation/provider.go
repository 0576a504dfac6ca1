package instrumentation

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Provider owns the meter provider and the Prometheus registry it exports to.
type Provider struct {
	meterProvider *sdkmetric.MeterProvider
	registry      *prometheus.Registry
	metrics       *Metrics
	enabled       bool
}

// NewProvider creates a Provider. When enabled is false the provider hands out
// a no-op Metrics and serves 404 on the metrics handler.
func NewProvider(serviceName string, enabled bool) (*Provider, error) {
	if !enabled {
		return &Provider{metrics: &Metrics{}}, nil
	}

	// A private registry keeps repeated providers (tests, CLI) from colliding
	// on the global default registerer.
	registry := prometheus.NewRegistry()

	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	meterProvider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))

	metrics, err := NewMetrics(meterProvider.Meter(serviceName))
	if err != nil {
		_ = meterProvider.Shutdown(context.Background())
		return nil, fmt.Errorf("failed to create metrics recorder: %w", err)
	}

	return &Provider{
		meterProvider: meterProvider,
		registry:      registry,
		metrics:       metrics,
		enabled:       true,
	}, nil
}

// Enabled reports whether metrics are collected.
func (p *Provider) Enabled() bool {
	return p.enabled
}

// Metrics returns the recorder.
func (p *Provider) Metrics() *Metrics {
	return p.metrics
}

// Handler serves the Prometheus exposition format.
func (p *Provider) Handler() http.Handler {
	if !p.enabled {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Shutdown flushes and stops the meter provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.meterProvider == nil {
		return nil
	}
	return p.meterProvider.Shutdown(ctx)
}
