// Package api exposes the capture, rescoring, and queue operations over HTTP.
//
// Routes:
//
//   - POST /v1/capture       — classify free-form text into canonical items,
//     optionally enqueueing them for durable saving.
//   - POST /v1/speech/refine — pick the most plausible transcript from a set
//     of recogniser alternatives.
//   - POST /v1/queue/flush   — flush the save queue now.
//   - GET  /v1/queue         — report the current queue depth.
//   - GET  /healthz, /readyz — liveness and readiness probes.
//   - GET  /metrics          — Prometheus scrape endpoint.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/marchewka/scribeline/internal/health"
	"github.com/marchewka/scribeline/internal/observe"
	"github.com/marchewka/scribeline/internal/orchestrate"
	"github.com/marchewka/scribeline/internal/queue"
	"github.com/marchewka/scribeline/internal/rescore"
	"github.com/marchewka/scribeline/pkg/provider/classifier"
	"github.com/marchewka/scribeline/pkg/types"
)

// maxRequestBytes bounds request bodies. Captures are short by nature; a
// megabyte is already far beyond any realistic dictation.
const maxRequestBytes = 1 << 20

// Option is a functional option for configuring a [Server].
type Option func(*Server)

// WithMetrics attaches a metrics instance. When nil, requests are served
// without instrumentation.
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithHealth attaches a health handler serving /healthz and /readyz.
func WithHealth(h *health.Handler) Option {
	return func(s *Server) { s.health = h }
}

// WithTimezone sets the default zone for resolving relative dates when a
// request does not carry its own. Default: UTC.
func WithTimezone(tz string) Option {
	return func(s *Server) { s.timezone = tz }
}

// Server holds the HTTP handlers for the scribeline API.
type Server struct {
	orch     *orchestrate.Orchestrator
	rescorer *rescore.Rescorer
	queue    *queue.Queue
	save     queue.SaveFunc
	metrics  *observe.Metrics
	health   *health.Handler
	timezone string
}

// New creates a Server. save is invoked per job during queue flushes.
func New(orch *orchestrate.Orchestrator, rescorer *rescore.Rescorer, q *queue.Queue, save queue.SaveFunc, opts ...Option) *Server {
	s := &Server{
		orch:     orch,
		rescorer: rescorer,
		queue:    q,
		save:     save,
		timezone: "UTC",
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Handler builds the full route table, wrapped in the metrics middleware when
// metrics are configured.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/capture", s.handleCapture)
	mux.HandleFunc("POST /v1/speech/refine", s.handleRefine)
	mux.HandleFunc("POST /v1/queue/flush", s.handleFlush)
	mux.HandleFunc("GET /v1/queue", s.handleQueueDepth)
	mux.Handle("GET /metrics", promhttp.Handler())
	if s.health != nil {
		s.health.Register(mux)
	}

	if s.metrics != nil {
		return observe.Middleware(s.metrics)(mux)
	}
	return mux
}

// captureRequest is the POST /v1/capture body.
type captureRequest struct {
	// Text is the raw captured text or transcript.
	Text string `json:"text"`

	// Timezone overrides the server default for relative-date resolution.
	Timezone string `json:"timezone,omitempty"`

	// UserID attributes the capture to a user on the remote classifier.
	UserID string `json:"userId,omitempty"`

	// MaxItems caps the number of items this capture may produce.
	MaxItems int `json:"maxItems,omitempty"`

	// Save enqueues the produced items for durable persistence.
	Save bool `json:"save,omitempty"`
}

// captureResponse is the POST /v1/capture response.
type captureResponse struct {
	types.CanonicalResult

	// JobID identifies the enqueued save job when Save was requested.
	JobID string `json:"jobId,omitempty"`
}

func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request) {
	var req captureRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	tz := req.Timezone
	if tz == "" {
		tz = s.timezone
	}

	result := s.orch.Classify(r.Context(), req.Text, classifier.Options{
		Timezone: tz,
		UserID:   req.UserID,
		MaxItems: req.MaxItems,
	})

	resp := captureResponse{CanonicalResult: result}
	if req.Save && len(result.Items) > 0 {
		jobID, err := s.queue.Enqueue(r.Context(), result.Items)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		resp.JobID = jobID
		if s.metrics != nil {
			s.metrics.RecordEnqueue(r.Context())
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// refineRequest is the POST /v1/speech/refine body.
type refineRequest struct {
	// Alternatives are the recogniser's candidate transcripts, primary first.
	Alternatives []types.Alternative `json:"alternatives"`

	// PreviousText is recently captured text used as collocation context.
	PreviousText string `json:"previousText,omitempty"`
}

// refineResponse is the POST /v1/speech/refine response.
type refineResponse struct {
	Transcript string  `json:"transcript"`
	Index      int     `json:"index"`
	Score      float64 `json:"score"`
}

func (s *Server) handleRefine(w http.ResponseWriter, r *http.Request) {
	var req refineRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Alternatives) == 0 {
		writeError(w, http.StatusBadRequest, errors.New("alternatives must not be empty"))
		return
	}

	start := time.Now()
	result := s.rescorer.Refine(req.Alternatives, req.PreviousText)
	if s.metrics != nil {
		s.metrics.RecordRescore(r.Context(), time.Since(start), result.Index != 0)
	}

	writeJSON(w, http.StatusOK, refineResponse{
		Transcript: result.Transcript,
		Index:      result.Index,
		Score:      result.Score,
	})
}

func (s *Server) handleFlush(w http.ResponseWriter, r *http.Request) {
	stats, err := s.queue.Flush(r.Context(), s.save)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if s.metrics != nil {
		s.metrics.RecordFlush(r.Context(), stats.Success, stats.Failed)
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleQueueDepth(w http.ResponseWriter, r *http.Request) {
	depth, err := s.queue.Depth(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"depth": depth})
}

// decodeJSON reads a size-limited JSON body into v, writing a 400 response
// and returning false on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return false
	}
	return true
}

// writeJSON encodes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error":"encoding failure"}`, http.StatusInternalServerError)
	}
}

// writeError writes a JSON error envelope.
func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
