package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/marchewka/scribeline/internal/api"
	"github.com/marchewka/scribeline/internal/health"
	"github.com/marchewka/scribeline/internal/orchestrate"
	"github.com/marchewka/scribeline/internal/pipeline"
	"github.com/marchewka/scribeline/internal/queue"
	"github.com/marchewka/scribeline/internal/queue/blobstore"
	"github.com/marchewka/scribeline/internal/rescore"
	"github.com/marchewka/scribeline/pkg/types"
)

// testServer wires a local-only server around a temp-dir queue. saveErr, when
// non-nil, makes every flush attempt fail.
func testServer(t *testing.T, saveErr error, opts ...api.Option) (http.Handler, *queue.Queue) {
	t.Helper()

	proc := pipeline.NewProcessor(pipeline.Config{
		Now: func() time.Time {
			return time.Date(2026, time.March, 10, 8, 0, 0, 0, time.UTC)
		},
	})
	orch := orchestrate.New(proc, 15)
	q := queue.New(blobstore.NewFileStore(filepath.Join(t.TempDir(), "queue.json")))
	save := func(context.Context, queue.SaveJob) error { return saveErr }

	srv := api.New(orch, rescore.New(), q, save, opts...)
	return srv.Handler(), q
}

func postJSON(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCapture(t *testing.T) {
	t.Parallel()

	h, _ := testServer(t, nil)
	rec := postJSON(t, h, "/v1/capture", `{"text": "buy milk; call mom"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	var resp struct {
		types.CanonicalResult
		JobID string `json:"jobId"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Items) != 2 {
		t.Errorf("items = %+v, want 2", resp.Items)
	}
	if resp.JobID != "" {
		t.Errorf("jobId = %q, want empty without save", resp.JobID)
	}
}

func TestCapture_RequestTimezoneResolvesDates(t *testing.T) {
	t.Parallel()

	h, _ := testServer(t, nil)
	rec := postJSON(t, h, "/v1/capture",
		`{"text": "call mom tomorrow at 2pm", "timezone": "Asia/Tokyo"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	var resp types.CanonicalResult
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Items) != 1 {
		t.Fatalf("items = %+v, want 1", resp.Items)
	}
	if want := "2026-03-11T14:00:00+09:00"; resp.Items[0].DueISO != want {
		t.Errorf("due = %q, want %q", resp.Items[0].DueISO, want)
	}
}

func TestCapture_SaveEnqueues(t *testing.T) {
	t.Parallel()

	h, q := testServer(t, nil)
	rec := postJSON(t, h, "/v1/capture", `{"text": "buy milk", "save": true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	var resp struct {
		JobID string `json:"jobId"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.JobID == "" {
		t.Error("jobId missing on save request")
	}
	if depth, _ := q.Depth(context.Background()); depth != 1 {
		t.Errorf("queue depth = %d, want 1", depth)
	}
}

func TestCapture_EmptyTextStillSucceeds(t *testing.T) {
	t.Parallel()

	h, q := testServer(t, nil)
	rec := postJSON(t, h, "/v1/capture", `{"text": "", "save": true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	var resp types.CanonicalResult
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Items) != 0 || len(resp.Warnings) == 0 {
		t.Errorf("resp = %+v", resp)
	}
	// No items means nothing worth saving.
	if depth, _ := q.Depth(context.Background()); depth != 0 {
		t.Errorf("queue depth = %d, want 0", depth)
	}
}

func TestCapture_BadRequests(t *testing.T) {
	t.Parallel()

	h, _ := testServer(t, nil)
	for name, body := range map[string]string{
		"not json":      `capture this`,
		"unknown field": `{"text": "x", "mode": "fast"}`,
	} {
		body := body
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if rec := postJSON(t, h, "/v1/capture", body); rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestCapture_MethodNotAllowed(t *testing.T) {
	t.Parallel()

	h, _ := testServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/v1/capture", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestRefine(t *testing.T) {
	t.Parallel()

	h, _ := testServer(t, nil)
	rec := postJSON(t, h, "/v1/speech/refine", `{
		"alternatives": [
			{"transcript": "by milk", "confidence": 0.8},
			{"transcript": "buy milk", "confidence": 0.7}
		]
	}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	var resp struct {
		Transcript string  `json:"transcript"`
		Index      int     `json:"index"`
		Score      float64 `json:"score"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Transcript != "buy milk" {
		t.Errorf("transcript = %q, want %q", resp.Transcript, "buy milk")
	}
	if resp.Score <= 0 {
		t.Errorf("score = %v, want positive", resp.Score)
	}
}

func TestRefine_EmptyAlternatives(t *testing.T) {
	t.Parallel()

	h, _ := testServer(t, nil)
	if rec := postJSON(t, h, "/v1/speech/refine", `{"alternatives": []}`); rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestFlushAndQueueDepth(t *testing.T) {
	t.Parallel()

	h, _ := testServer(t, nil)
	if rec := postJSON(t, h, "/v1/capture", `{"text": "buy milk", "save": true}`); rec.Code != http.StatusOK {
		t.Fatalf("capture status = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/queue", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("queue status = %d", rec.Code)
	}
	var depth struct {
		Depth int `json:"depth"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &depth); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if depth.Depth != 1 {
		t.Errorf("depth = %d, want 1", depth.Depth)
	}

	rec = postJSON(t, h, "/v1/queue/flush", "{}")
	if rec.Code != http.StatusOK {
		t.Fatalf("flush status = %d, body = %s", rec.Code, rec.Body)
	}
	var stats queue.FlushStats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.Success != 1 || stats.Total != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestHealthRoutes(t *testing.T) {
	t.Parallel()

	h, _ := testServer(t, nil, api.WithHealth(health.New()))

	for _, path := range []string{"/healthz", "/readyz"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, rec.Code)
		}
	}
}
