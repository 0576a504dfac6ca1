// Package instrumentation records bot metrics with OpenTelemetry and exposes
// them in Prometheus format.
package instrumentation

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys.
const (
	attrEvent     = "event"
	attrResult    = "result"
	attrOperation = "operation"
	attrOutcome   = "outcome"
	attrTier      = "tier"
)

// Result values shared by every counter.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultIgnored = "ignored"
)

// Metrics records webhook, label and sweep metrics. A nil *Metrics or a zero
// value is a valid no-op recorder.
type Metrics struct {
	webhookEventsTotal   metric.Int64Counter
	labelOperationsTotal metric.Int64Counter
	sweepIssuesTotal     metric.Int64Counter
	sweepDuration        metric.Float64Histogram
}

// NewMetrics creates a Metrics instance with all instruments registered on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.webhookEventsTotal, err = meter.Int64Counter(
		"stalebot_webhook_events_total",
		metric.WithDescription("Total number of webhook deliveries by event and result"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create stalebot_webhook_events_total counter: %w", err)
	}

	m.labelOperationsTotal, err = meter.Int64Counter(
		"stalebot_label_operations_total",
		metric.WithDescription("Total number of label writes by operation and result"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create stalebot_label_operations_total counter: %w", err)
	}

	m.sweepIssuesTotal, err = meter.Int64Counter(
		"stalebot_sweep_issues_total",
		metric.WithDescription("Total number of issues examined by the escalation sweep"),
		metric.WithUnit("{issue}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create stalebot_sweep_issues_total counter: %w", err)
	}

	m.sweepDuration, err = meter.Float64Histogram(
		"stalebot_sweep_duration_seconds",
		metric.WithDescription("Duration of a single repository sweep in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create stalebot_sweep_duration_seconds histogram: %w", err)
	}

	return m, nil
}

// RecordWebhook counts one webhook delivery.
func (m *Metrics) RecordWebhook(ctx context.Context, event, result string) {
	if m == nil || m.webhookEventsTotal == nil {
		return
	}
	m.webhookEventsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrEvent, event),
		attribute.String(attrResult, result),
	))
}

// RecordLabelOperation counts one label write ("add", "remove", "create").
func (m *Metrics) RecordLabelOperation(ctx context.Context, operation, result string) {
	if m == nil || m.labelOperationsTotal == nil {
		return
	}
	m.labelOperationsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrOperation, operation),
		attribute.String(attrResult, result),
	))
}

// RecordSweepIssue counts one issue examined by the sweep. tier may be empty.
func (m *Metrics) RecordSweepIssue(ctx context.Context, outcome, tier string) {
	if m == nil || m.sweepIssuesTotal == nil {
		return
	}
	if tier == "" {
		tier = "none"
	}
	m.sweepIssuesTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrOutcome, outcome),
		attribute.String(attrTier, tier),
	))
}

// RecordSweepDuration records how long one repository sweep took.
func (m *Metrics) RecordSweepDuration(ctx context.Context, result string, d time.Duration) {
	if m == nil || m.sweepDuration == nil {
		return
	}
	m.sweepDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String(attrResult, result),
	))
}
