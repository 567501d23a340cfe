package orchestrate_test

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/marchewka/scribeline/internal/observe"
	"github.com/marchewka/scribeline/internal/orchestrate"
	"github.com/marchewka/scribeline/internal/pipeline"
	"github.com/marchewka/scribeline/pkg/provider/classifier"
	"github.com/marchewka/scribeline/pkg/provider/classifier/mock"
	"github.com/marchewka/scribeline/pkg/types"
)

func newProcessor() *pipeline.Processor {
	return pipeline.NewProcessor(pipeline.Config{
		Now: func() time.Time {
			return time.Date(2026, time.March, 10, 8, 0, 0, 0, time.UTC)
		},
	})
}

func TestClassify_LocalOnly(t *testing.T) {
	t.Parallel()

	orch := orchestrate.New(newProcessor(), 15)

	res := orch.Classify(context.Background(), "buy milk", classifier.Options{})
	if len(res.Items) != 1 || res.Items[0].Type != types.Todo {
		t.Fatalf("items = %+v", res.Items)
	}
	// Local-only operation is not a fallback and carries no marker.
	if slices.Contains(res.ForcedRules, orchestrate.RuleLocalFallback) {
		t.Errorf("forced rules %v should not contain %q", res.ForcedRules, orchestrate.RuleLocalFallback)
	}
}

func TestClassify_RemoteValid(t *testing.T) {
	t.Parallel()

	remote := &mock.Provider{Response: json.RawMessage(`{
		"items": [{"type": "Event", "title": "meet alex at the office"}],
		"suggested_overall_category": "Event",
		"forced_rules_applied": ["event_meeting"],
		"warnings": [],
		"confidence": 0.93
	}`)}
	orch := orchestrate.New(newProcessor(), 15, orchestrate.WithProvider(remote))

	res := orch.Classify(context.Background(), "meet alex at the office", classifier.Options{
		Timezone: "UTC",
		MaxItems: 15,
	})

	if len(res.Items) != 1 || res.Items[0].Type != types.Event {
		t.Fatalf("items = %+v", res.Items)
	}
	if res.Confidence != 0.93 {
		t.Errorf("confidence = %v, want 0.93", res.Confidence)
	}
	if slices.Contains(res.ForcedRules, orchestrate.RuleLocalFallback) {
		t.Errorf("valid remote result must not be marked as fallback: %v", res.ForcedRules)
	}
	if calls := remote.Calls(); len(calls) != 1 || calls[0].Input != "meet alex at the office" {
		t.Errorf("calls = %+v", calls)
	}
}

func TestClassify_RemoteError_FallsBack(t *testing.T) {
	t.Parallel()

	remote := &mock.Provider{Err: errors.New("connection refused")}
	orch := orchestrate.New(newProcessor(), 15, orchestrate.WithProvider(remote))

	res := orch.Classify(context.Background(), "buy milk", classifier.Options{})

	if len(res.Items) != 1 || res.Items[0].Title != "buy milk" {
		t.Fatalf("items = %+v, want local pipeline output", res.Items)
	}
	if !slices.Contains(res.ForcedRules, orchestrate.RuleLocalFallback) {
		t.Errorf("forced rules %v missing %q", res.ForcedRules, orchestrate.RuleLocalFallback)
	}
	if len(res.Warnings) == 0 {
		t.Error("fallback result should carry an explanatory warning")
	}
}

func TestClassify_RemoteInvalidPayload_FallsBack(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload string
	}{
		{"unknown fields", `{"invalid": "data"}`},
		{"not json", `<html>502 Bad Gateway</html>`},
		{"empty body", ``},
		{"schema violation", `{"items": null, "suggested_overall_category": "Note", "forced_rules_applied": [], "warnings": [], "confidence": 0.5}`},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			remote := &mock.Provider{Response: json.RawMessage(tt.payload)}
			orch := orchestrate.New(newProcessor(), 15, orchestrate.WithProvider(remote))

			res := orch.Classify(context.Background(), "call mom", classifier.Options{})

			if len(res.Items) != 1 || res.Items[0].Title != "call mom" {
				t.Fatalf("items = %+v, want local pipeline output", res.Items)
			}
			if !slices.Contains(res.ForcedRules, orchestrate.RuleLocalFallback) {
				t.Errorf("forced rules %v missing %q", res.ForcedRules, orchestrate.RuleLocalFallback)
			}
		})
	}
}

func TestClassify_RemoteOverCap_FallsBack(t *testing.T) {
	t.Parallel()

	remote := &mock.Provider{Response: json.RawMessage(`{
		"items": [
			{"type": "To-do", "title": "buy milk"},
			{"type": "To-do", "title": "call dad"}
		],
		"suggested_overall_category": "To-do",
		"forced_rules_applied": [],
		"warnings": [],
		"confidence": 0.8
	}`)}
	orch := orchestrate.New(newProcessor(), 1, orchestrate.WithProvider(remote))

	res := orch.Classify(context.Background(), "buy milk", classifier.Options{MaxItems: 1})

	if !slices.Contains(res.ForcedRules, orchestrate.RuleLocalFallback) {
		t.Errorf("over-cap remote payload should fall back, rules = %v", res.ForcedRules)
	}
	if len(res.Items) > 1 {
		t.Errorf("items = %+v, cap of 1 not enforced", res.Items)
	}
}

func TestClassify_FallbackHonorsRequestTimezone(t *testing.T) {
	t.Parallel()

	// The pinned clock is 08:00 UTC, which is already 17:00 in Tokyo; the
	// fallback must resolve "tomorrow" in the caller's zone, not the server's.
	remote := &mock.Provider{Err: errors.New("connection refused")}
	orch := orchestrate.New(newProcessor(), 15, orchestrate.WithProvider(remote))

	res := orch.Classify(context.Background(), "call mom tomorrow at 2pm", classifier.Options{
		Timezone: "Asia/Tokyo",
	})

	if !slices.Contains(res.ForcedRules, orchestrate.RuleLocalFallback) {
		t.Fatalf("forced rules %v missing %q", res.ForcedRules, orchestrate.RuleLocalFallback)
	}
	if len(res.Items) != 1 {
		t.Fatalf("items = %+v, want 1", res.Items)
	}
	if want := "2026-03-11T14:00:00+09:00"; res.Items[0].DueISO != want {
		t.Errorf("due = %q, want %q", res.Items[0].DueISO, want)
	}
}

func TestClassify_InvalidTimezoneUsesServerDefault(t *testing.T) {
	t.Parallel()

	orch := orchestrate.New(newProcessor(), 15)

	res := orch.Classify(context.Background(), "call mom tomorrow at 2pm", classifier.Options{
		Timezone: "Not/AZone",
	})

	if len(res.Items) != 1 {
		t.Fatalf("items = %+v, want 1", res.Items)
	}
	if want := "2026-03-11T14:00:00Z"; res.Items[0].DueISO != want {
		t.Errorf("due = %q, want %q", res.Items[0].DueISO, want)
	}
}

func TestClassify_LocalHonorsRequestMaxItems(t *testing.T) {
	t.Parallel()

	orch := orchestrate.New(newProcessor(), 15)

	res := orch.Classify(context.Background(), "buy milk; call mom; walk the dog", classifier.Options{
		MaxItems: 2,
	})

	if len(res.Items) != 2 {
		t.Errorf("items = %+v, want per-request cap of 2", res.Items)
	}
}

func TestClassify_RemoteResultsPostFiltered(t *testing.T) {
	t.Parallel()

	// The second item restates the first with one extra token; the same
	// near-duplicate law that governs local results applies to remote ones.
	remote := &mock.Provider{Response: json.RawMessage(`{
		"items": [
			{"type": "To-do", "title": "call mom"},
			{"type": "To-do", "title": "call mom tonight"}
		],
		"suggested_overall_category": "To-do",
		"forced_rules_applied": [],
		"warnings": [],
		"confidence": 0.9
	}`)}
	orch := orchestrate.New(newProcessor(), 15, orchestrate.WithProvider(remote))

	res := orch.Classify(context.Background(), "call mom", classifier.Options{})

	if slices.Contains(res.ForcedRules, orchestrate.RuleLocalFallback) {
		t.Fatalf("valid remote result must not fall back: %v", res.ForcedRules)
	}
	if len(res.Items) != 1 || res.Items[0].Title != "call mom" {
		t.Errorf("items = %+v, want the near-duplicate collapsed", res.Items)
	}
}

func TestClassify_RemotePostFilterUsesConfiguredThresholds(t *testing.T) {
	t.Parallel()

	// Five surplus tokens exceed the default slack, so only a widened
	// MaxExtraTokens setting can collapse this pair. If the configured
	// thresholds were not reaching the remote path, both items would survive.
	payload := json.RawMessage(`{
		"items": [
			{"type": "To-do", "title": "call mom"},
			{"type": "To-do", "title": "call mom about the weekend plans tonight"}
		],
		"suggested_overall_category": "To-do",
		"forced_rules_applied": [],
		"warnings": [],
		"confidence": 0.9
	}`)

	defaults := orchestrate.New(newProcessor(), 15,
		orchestrate.WithProvider(&mock.Provider{Response: payload}))
	res := defaults.Classify(context.Background(), "call mom", classifier.Options{})
	if len(res.Items) != 2 {
		t.Fatalf("default thresholds kept %d items, want 2: %+v", len(res.Items), res.Items)
	}

	widened := orchestrate.New(newProcessor(), 15,
		orchestrate.WithProvider(&mock.Provider{Response: payload}),
		orchestrate.WithPostFilter(pipeline.PostFilterConfig{MaxExtraTokens: 5}))
	res = widened.Classify(context.Background(), "call mom", classifier.Options{})
	if len(res.Items) != 1 || res.Items[0].Title != "call mom" {
		t.Errorf("widened thresholds kept %+v, want the pair collapsed", res.Items)
	}
}

func TestClassify_NeverPanicsOnGarbage(t *testing.T) {
	t.Parallel()

	remote := &mock.Provider{Response: json.RawMessage("\x00\x01\x02")}
	orch := orchestrate.New(newProcessor(), 15, orchestrate.WithProvider(remote))

	res := orch.Classify(context.Background(), "", classifier.Options{})
	if res.Items == nil || res.ForcedRules == nil || res.Warnings == nil {
		t.Errorf("result not normalized: %+v", res)
	}
}

func TestBreakerState_OpensAfterConsecutiveFailures(t *testing.T) {
	t.Parallel()

	remote := &mock.Provider{Err: errors.New("connection refused")}
	orch := orchestrate.New(newProcessor(), 15, orchestrate.WithProvider(remote))

	if got := orch.BreakerState(); got != "closed" {
		t.Fatalf("initial breaker state = %q, want closed", got)
	}

	for i := 0; i < 5; i++ {
		orch.Classify(context.Background(), "buy milk", classifier.Options{})
	}
	if got := orch.BreakerState(); got != "open" {
		t.Errorf("breaker state after failures = %q, want open", got)
	}

	// With the breaker open the provider is no longer called, but the caller
	// still gets a valid fallback result.
	before := len(remote.Calls())
	res := orch.Classify(context.Background(), "buy milk", classifier.Options{})
	if got := len(remote.Calls()); got != before {
		t.Errorf("provider called %d times while open, want %d", got, before)
	}
	if !slices.Contains(res.ForcedRules, orchestrate.RuleLocalFallback) {
		t.Errorf("open-breaker result missing fallback marker: %v", res.ForcedRules)
	}
}

func TestBreakerTransition_RecordedInMetrics(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	metrics, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	remote := &mock.Provider{Err: errors.New("connection refused")}
	orch := orchestrate.New(newProcessor(), 15,
		orchestrate.WithProvider(remote),
		orchestrate.WithMetrics(metrics))

	for i := 0; i < 5; i++ {
		orch.Classify(context.Background(), "buy milk", classifier.Options{})
	}
	if got := orch.BreakerState(); got != "open" {
		t.Fatalf("breaker state = %q, want open", got)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	var transitions int64
	for _, sm := range rm.ScopeMetrics {
		for _, met := range sm.Metrics {
			if met.Name != "scribeline.breaker.transitions" {
				continue
			}
			sum, ok := met.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatal("breaker transitions metric is not a sum")
			}
			for _, dp := range sum.DataPoints {
				transitions += dp.Value
			}
		}
	}
	if transitions != 1 {
		t.Errorf("breaker transitions recorded = %d, want 1 (closed to open)", transitions)
	}
}
