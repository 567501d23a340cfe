// Package observe provides application-wide observability primitives for
// scribeline: OpenTelemetry metrics and the Prometheus exporter bridge behind
// the /metrics endpoint.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A package-level
// default [Metrics] instance ([DefaultMetrics]) is provided for convenience;
// tests should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all scribeline metrics.
const meterName = "github.com/marchewka/scribeline"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// ClassificationDuration tracks capture classification latency. Use with
	// attribute: attribute.String("producer", "remote"|"local"|"fallback").
	ClassificationDuration metric.Float64Histogram

	// Classifications counts classified captures by producer.
	Classifications metric.Int64Counter

	// ItemsProduced counts canonical items emitted across all captures.
	ItemsProduced metric.Int64Counter

	// RescoreDuration tracks transcript rescoring latency.
	RescoreDuration metric.Float64Histogram

	// Rescores counts rescoring requests. Use with attribute:
	//   attribute.Bool("changed", ...) — whether an alternative beat the primary.
	Rescores metric.Int64Counter

	// QueueEnqueued counts jobs added to the save queue.
	QueueEnqueued metric.Int64Counter

	// QueueFlushed counts flushed jobs by outcome. Use with attribute:
	//   attribute.String("outcome", "success"|"failed").
	QueueFlushed metric.Int64Counter

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...),
	//   attribute.String("status", ...)
	HTTPRequestDuration metric.Float64Histogram

	// BreakerTransitions counts circuit breaker state transitions. Use with
	// attributes: attribute.String("from", ...), attribute.String("to", ...).
	BreakerTransitions metric.Int64Counter
}

// latencyBuckets defines histogram bucket boundaries (in seconds). The
// pipeline is pure CPU work so the low end is fine-grained; the high end
// covers remote classifier round trips.
var latencyBuckets = []float64{
	0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.ClassificationDuration, err = m.Float64Histogram("scribeline.classification.duration",
		metric.WithDescription("Latency of capture classification by producer."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Classifications, err = m.Int64Counter("scribeline.classifications",
		metric.WithDescription("Total classified captures by producer."),
	); err != nil {
		return nil, err
	}
	if met.ItemsProduced, err = m.Int64Counter("scribeline.items.produced",
		metric.WithDescription("Total canonical items emitted."),
	); err != nil {
		return nil, err
	}
	if met.RescoreDuration, err = m.Float64Histogram("scribeline.rescore.duration",
		metric.WithDescription("Latency of transcript rescoring."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Rescores, err = m.Int64Counter("scribeline.rescores",
		metric.WithDescription("Total rescoring requests by whether an alternative won."),
	); err != nil {
		return nil, err
	}
	if met.QueueEnqueued, err = m.Int64Counter("scribeline.queue.enqueued",
		metric.WithDescription("Total jobs added to the save queue."),
	); err != nil {
		return nil, err
	}
	if met.QueueFlushed, err = m.Int64Counter("scribeline.queue.flushed",
		metric.WithDescription("Total flushed jobs by outcome."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("scribeline.http.request.duration",
		metric.WithDescription("HTTP request latency by method, path, and status."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if met.BreakerTransitions, err = m.Int64Counter("scribeline.breaker.transitions",
		metric.WithDescription("Total circuit breaker state transitions by from/to state."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordClassification records one classified capture: duration histogram,
// producer counter, and item count.
func (m *Metrics) RecordClassification(ctx context.Context, producer string, d time.Duration, items int) {
	attrs := metric.WithAttributes(attribute.String("producer", producer))
	m.ClassificationDuration.Record(ctx, d.Seconds(), attrs)
	m.Classifications.Add(ctx, 1, attrs)
	m.ItemsProduced.Add(ctx, int64(items))
}

// RecordRescore records one rescoring request. changed reports whether a
// non-primary alternative won.
func (m *Metrics) RecordRescore(ctx context.Context, d time.Duration, changed bool) {
	m.RescoreDuration.Record(ctx, d.Seconds())
	m.Rescores.Add(ctx, 1,
		metric.WithAttributes(attribute.Bool("changed", changed)),
	)
}

// RecordEnqueue records one job added to the save queue.
func (m *Metrics) RecordEnqueue(ctx context.Context) {
	m.QueueEnqueued.Add(ctx, 1)
}

// RecordFlush records the outcome counts of one flush pass.
func (m *Metrics) RecordFlush(ctx context.Context, success, failed int) {
	if success > 0 {
		m.QueueFlushed.Add(ctx, int64(success),
			metric.WithAttributes(attribute.String("outcome", "success")),
		)
	}
	if failed > 0 {
		m.QueueFlushed.Add(ctx, int64(failed),
			metric.WithAttributes(attribute.String("outcome", "failed")),
		)
	}
}

// RecordBreakerTransition records one circuit breaker state transition.
func (m *Metrics) RecordBreakerTransition(ctx context.Context, from, to string) {
	m.BreakerTransitions.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("from", from),
			attribute.String("to", to),
		),
	)
}

// RecordHTTPRequest records one handled HTTP request.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, status int, d time.Duration) {
	m.HTTPRequestDuration.Record(ctx, d.Seconds(),
		metric.WithAttributes(
			attribute.String("method", method),
			attribute.String("path", path),
			attribute.String("status", strconv.Itoa(status)),
		),
	)
}
