package observe

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader for
// programmatic metric inspection.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

// collect gathers all metric data from the reader.
func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

// findMetric searches for a metric by name across all scope metrics.
func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

// sumByAttr returns the value of the data point carrying key=value, and
// whether one was found.
func sumByAttr(sum metricdata.Sum[int64], key, value string) (int64, bool) {
	for _, dp := range sum.DataPoints {
		for _, kv := range dp.Attributes.ToSlice() {
			if string(kv.Key) == key && kv.Value.Emit() == value {
				return dp.Value, true
			}
		}
	}
	return 0, false
}

func TestNewMetrics_CreatesWithoutError(t *testing.T) {
	m, _ := newTestMetrics(t)
	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}
}

func TestRecordClassification(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordClassification(ctx, "remote", 120*time.Millisecond, 3)
	m.RecordClassification(ctx, "remote", 80*time.Millisecond, 1)
	m.RecordClassification(ctx, "fallback", 5*time.Millisecond, 2)

	rm := collect(t, reader)

	met := findMetric(rm, "scribeline.classification.duration")
	if met == nil {
		t.Fatal("duration metric not found")
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatal("duration metric is not a histogram")
	}
	var samples uint64
	for _, dp := range hist.DataPoints {
		samples += dp.Count
	}
	if samples != 3 {
		t.Errorf("duration sample count = %d, want 3", samples)
	}

	met = findMetric(rm, "scribeline.classifications")
	if met == nil {
		t.Fatal("classifications metric not found")
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatal("classifications metric is not a sum")
	}
	if got, found := sumByAttr(sum, "producer", "remote"); !found || got != 2 {
		t.Errorf("remote classifications = %d (found=%v), want 2", got, found)
	}
	if got, found := sumByAttr(sum, "producer", "fallback"); !found || got != 1 {
		t.Errorf("fallback classifications = %d (found=%v), want 1", got, found)
	}

	met = findMetric(rm, "scribeline.items.produced")
	if met == nil {
		t.Fatal("items metric not found")
	}
	sum, ok = met.Data.(metricdata.Sum[int64])
	if !ok || len(sum.DataPoints) == 0 {
		t.Fatal("items metric has no data points")
	}
	if sum.DataPoints[0].Value != 6 {
		t.Errorf("items produced = %d, want 6", sum.DataPoints[0].Value)
	}
}

func TestRecordRescore(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordRescore(ctx, 2*time.Millisecond, true)
	m.RecordRescore(ctx, time.Millisecond, false)
	m.RecordRescore(ctx, time.Millisecond, false)

	rm := collect(t, reader)
	met := findMetric(rm, "scribeline.rescores")
	if met == nil {
		t.Fatal("metric not found")
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatal("metric is not a sum")
	}
	if got, found := sumByAttr(sum, "changed", "true"); !found || got != 1 {
		t.Errorf("changed rescores = %d (found=%v), want 1", got, found)
	}
	if got, found := sumByAttr(sum, "changed", "false"); !found || got != 2 {
		t.Errorf("unchanged rescores = %d (found=%v), want 2", got, found)
	}
}

func TestRecordQueueActivity(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordEnqueue(ctx)
	m.RecordEnqueue(ctx)
	m.RecordFlush(ctx, 3, 1)
	m.RecordFlush(ctx, 0, 0) // no-op flushes record nothing

	rm := collect(t, reader)

	met := findMetric(rm, "scribeline.queue.enqueued")
	if met == nil {
		t.Fatal("enqueued metric not found")
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok || len(sum.DataPoints) == 0 {
		t.Fatal("enqueued metric has no data points")
	}
	if sum.DataPoints[0].Value != 2 {
		t.Errorf("enqueued = %d, want 2", sum.DataPoints[0].Value)
	}

	met = findMetric(rm, "scribeline.queue.flushed")
	if met == nil {
		t.Fatal("flushed metric not found")
	}
	sum, ok = met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatal("flushed metric is not a sum")
	}
	if got, found := sumByAttr(sum, "outcome", "success"); !found || got != 3 {
		t.Errorf("flushed success = %d (found=%v), want 3", got, found)
	}
	if got, found := sumByAttr(sum, "outcome", "failed"); !found || got != 1 {
		t.Errorf("flushed failed = %d (found=%v), want 1", got, found)
	}
}

func TestRecordBreakerTransition(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordBreakerTransition(ctx, "closed", "open")
	m.RecordBreakerTransition(ctx, "closed", "open")
	m.RecordBreakerTransition(ctx, "open", "half-open")

	rm := collect(t, reader)
	met := findMetric(rm, "scribeline.breaker.transitions")
	if met == nil {
		t.Fatal("metric not found")
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatal("metric is not a sum")
	}
	if got, found := sumByAttr(sum, "to", "open"); !found || got != 2 {
		t.Errorf("closed->open transitions = %d (found=%v), want 2", got, found)
	}
	if got, found := sumByAttr(sum, "from", "open"); !found || got != 1 {
		t.Errorf("open->half-open transitions = %d (found=%v), want 1", got, found)
	}
}

func TestHTTPRequestDuration(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordHTTPRequest(ctx, "POST", "/v1/capture", 200, 50*time.Millisecond)

	rm := collect(t, reader)
	met := findMetric(rm, "scribeline.http.request.duration")
	if met == nil {
		t.Fatal("metric not found")
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatal("metric is not a histogram")
	}
	if len(hist.DataPoints) == 0 {
		t.Fatal("no data points")
	}
	if got := hist.DataPoints[0].Count; got != 1 {
		t.Errorf("sample count = %d, want 1", got)
	}
	wantAttrs := map[string]string{"method": "POST", "path": "/v1/capture", "status": "200"}
	for _, kv := range hist.DataPoints[0].Attributes.ToSlice() {
		if want, ok := wantAttrs[string(kv.Key)]; ok && kv.Value.AsString() != want {
			t.Errorf("attribute %s = %q, want %q", kv.Key, kv.Value.AsString(), want)
		}
	}
}

func TestHistogramRecordsDirectly(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RescoreDuration.Record(ctx, 0.002, metric.WithAttributes(attribute.String("source", "test")))
	m.RescoreDuration.Record(ctx, 0.004, metric.WithAttributes(attribute.String("source", "test")))

	rm := collect(t, reader)
	met := findMetric(rm, "scribeline.rescore.duration")
	if met == nil {
		t.Fatal("metric not found")
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatal("metric is not a histogram")
	}
	if len(hist.DataPoints) == 0 || hist.DataPoints[0].Count != 2 {
		t.Errorf("data points = %+v, want count 2", hist.DataPoints)
	}
}

func TestDefaultMetrics_ReturnsSameInstance(t *testing.T) {
	// DefaultMetrics uses the global OTel provider so we just check
	// that repeated calls return the same pointer.
	a := DefaultMetrics()
	b := DefaultMetrics()
	if a != b {
		t.Error("DefaultMetrics returned different pointers")
	}
}
