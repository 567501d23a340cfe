// Package queue implements the durable, retrying save pipeline.
//
// Produced items are enqueued as [SaveJob] values in a single durable blob
// (see [blobstore.Store]) and flushed to the external save backend when
// connectivity allows. Delivery is at-least-once: a job is only removed after
// a successful save, failures are retried up to the per-job retry cap, and
// jobs that exhaust the cap are recorded in a dead-letter log before being
// dropped, so a permanent failure is never silent data loss.
//
// The queue serialises every read-modify-write cycle behind a single mutex —
// at most one flush runs at a time per process, and an enqueue during a flush
// waits rather than clobbering the job list.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"sync"

	"github.com/google/uuid"

	"github.com/marchewka/scribeline/internal/queue/blobstore"
	"github.com/marchewka/scribeline/pkg/types"
)

// DefaultMaxRetries is the retry cap applied to new jobs unless configured
// otherwise.
const DefaultMaxRetries = 3

// SaveJob is one pending persistence attempt.
type SaveJob struct {
	// ID uniquely identifies the job across restarts.
	ID string `json:"id"`

	// CreatedAt is when the job was first enqueued (UTC).
	CreatedAt time.Time `json:"createdAt"`

	// Payload is the item batch to persist.
	Payload []types.Item `json:"payload"`

	// RetryCount is how many failed save attempts this job has accumulated.
	RetryCount int `json:"retryCount"`

	// MaxRetries is this job's retry cap.
	MaxRetries int `json:"maxRetries"`
}

// FlushStats summarises one flush pass. Failed counts only permanent
// failures — jobs that stay pending for the next flush appear in Total but in
// neither Success nor Failed.
type FlushStats struct {
	Success int `json:"success"`
	Failed  int `json:"failed"`
	Total   int `json:"total"`
}

// SaveFunc attempts to persist one job's payload against the external
// backend. A nil return removes the job from the queue.
type SaveFunc func(ctx context.Context, job SaveJob) error

// Option is a functional option for configuring a [Queue].
type Option func(*Queue)

// WithMaxRetries sets the retry cap stamped onto newly enqueued jobs.
// Default: 3.
func WithMaxRetries(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.maxRetries = n
		}
	}
}

// WithDeadLetter attaches a dead-letter log for permanently failed jobs.
// When nil (the default), exhausted jobs are dropped with only a log line.
func WithDeadLetter(dl *DeadLetter) Option {
	return func(q *Queue) {
		q.deadLetter = dl
	}
}

// Queue is the durable save queue. Safe for concurrent use; flushes are
// serialised.
type Queue struct {
	mu         sync.Mutex
	store      blobstore.Store
	maxRetries int
	deadLetter *DeadLetter
}

// New creates a Queue backed by store.
func New(store blobstore.Store, opts ...Option) *Queue {
	q := &Queue{
		store:      store,
		maxRetries: DefaultMaxRetries,
	}
	for _, o := range opts {
		o(q)
	}
	return q
}

// Enqueue durably appends a new job for payload and returns its ID. The
// write completes before Enqueue returns — a crash immediately afterwards
// loses nothing.
func (q *Queue) Enqueue(ctx context.Context, payload []types.Item) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	jobs, err := q.load(ctx)
	if err != nil {
		return "", err
	}

	job := SaveJob{
		ID:         uuid.NewString(),
		CreatedAt:  time.Now().UTC(),
		Payload:    payload,
		MaxRetries: q.maxRetries,
	}
	jobs = append(jobs, job)

	if err := q.save(ctx, jobs); err != nil {
		return "", err
	}

	slog.Debug("job enqueued", "job_id", job.ID, "items", len(payload), "queue_depth", len(jobs))
	return job.ID, nil
}

// Flush processes all pending jobs sequentially, invoking trySave once per
// job. Jobs that succeed are removed; fresh failures stay pending with an
// incremented retry count; jobs at or over their retry cap are recorded in
// the dead-letter log (when configured) and dropped, counted once in Failed.
//
// Only one Flush runs at a time; save attempts are strictly sequential to
// preserve enqueue order and bound backend load. Context cancellation stops
// the pass between jobs — unattempted jobs simply stay pending.
func (q *Queue) Flush(ctx context.Context, trySave SaveFunc) (FlushStats, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	jobs, err := q.load(ctx)
	if err != nil {
		return FlushStats{}, err
	}

	stats := FlushStats{Total: len(jobs)}
	remaining := make([]SaveJob, 0, len(jobs))

	for i, job := range jobs {
		if ctx.Err() != nil {
			// Interrupted flush: everything unattempted stays pending.
			remaining = append(remaining, jobs[i:]...)
			break
		}

		// Jobs that already exhausted their retries are failed without
		// another save attempt.
		if job.RetryCount >= job.MaxRetries {
			q.reject(job, "retries exhausted before attempt")
			stats.Failed++
			continue
		}

		if saveErr := trySave(ctx, job); saveErr != nil {
			job.RetryCount++
			if job.RetryCount >= job.MaxRetries {
				q.reject(job, saveErr.Error())
				stats.Failed++
				continue
			}
			slog.Debug("save failed, job retained for retry",
				"job_id", job.ID,
				"retry_count", job.RetryCount,
				"error", saveErr,
			)
			remaining = append(remaining, job)
			continue
		}

		stats.Success++
	}

	if err := q.save(ctx, remaining); err != nil {
		return stats, err
	}

	slog.Info("queue flushed",
		"success", stats.Success,
		"failed", stats.Failed,
		"total", stats.Total,
		"remaining", len(remaining),
	)
	return stats, nil
}

// Pending returns a copy of the current job list.
func (q *Queue) Pending(ctx context.Context) ([]SaveJob, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.load(ctx)
}

// Depth returns the number of pending jobs.
func (q *Queue) Depth(ctx context.Context) (int, error) {
	jobs, err := q.Pending(ctx)
	return len(jobs), err
}

// reject handles a permanently failed job: dead-letter when configured,
// otherwise just a warning. The job is not retained either way.
func (q *Queue) reject(job SaveJob, reason string) {
	if q.deadLetter != nil {
		if err := q.deadLetter.Record(job, reason); err != nil {
			slog.Error("dead-letter write failed, job lost",
				"job_id", job.ID, "error", err)
			return
		}
		slog.Warn("job moved to dead-letter log", "job_id", job.ID, "reason", reason)
		return
	}
	slog.Warn("job dropped after exhausting retries", "job_id", job.ID, "reason", reason)
}

// load decodes the job list from the blob store. Must be called with q.mu
// held.
func (q *Queue) load(ctx context.Context) ([]SaveJob, error) {
	data, err := q.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("queue: load: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var jobs []SaveJob
	if err := json.Unmarshal(data, &jobs); err != nil {
		return nil, fmt.Errorf("queue: decode jobs: %w", err)
	}
	return jobs, nil
}

// save encodes and persists the job list. Must be called with q.mu held.
func (q *Queue) save(ctx context.Context, jobs []SaveJob) error {
	if jobs == nil {
		jobs = []SaveJob{}
	}
	data, err := json.Marshal(jobs)
	if err != nil {
		return fmt.Errorf("queue: encode jobs: %w", err)
	}
	if err := q.store.Save(ctx, data); err != nil {
		return fmt.Errorf("queue: save: %w", err)
	}
	return nil
}
