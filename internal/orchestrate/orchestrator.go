// Package orchestrate arbitrates between the remote classifier and the local
// pipeline.
//
// The defining property of this package is that [Orchestrator.Classify]
// cannot fail: whatever the remote service does — time out, error, return
// garbage — the caller receives a schema-valid canonical result. Remote
// failures are downgraded to log lines and a traceable "local_fallback"
// marker in the result itself.
//
// A circuit breaker wraps the remote call so that a flapping or dead service
// is bypassed immediately instead of burning the request timeout on every
// capture.
package orchestrate

import (
	"context"
	"log/slog"
	"time"

	"github.com/marchewka/scribeline/internal/observe"
	"github.com/marchewka/scribeline/internal/pipeline"
	"github.com/marchewka/scribeline/internal/resilience"
	"github.com/marchewka/scribeline/pkg/provider/classifier"
	"github.com/marchewka/scribeline/pkg/types"
)

// RuleLocalFallback is appended to ForcedRules whenever the local pipeline
// produced the result after a remote failure.
const RuleLocalFallback = "local_fallback"

// warnLocalFallback explains the fallback in the result's warnings.
const warnLocalFallback = "Remote classifier unavailable or returned an invalid payload; result produced by the local pipeline"

// defaultRemoteTimeout bounds a single remote classification call when the
// incoming context carries no tighter deadline.
const defaultRemoteTimeout = 8 * time.Second

// Option is a functional option for configuring an [Orchestrator].
type Option func(*Orchestrator)

// WithProvider attaches a remote classifier provider. When nil (the default)
// every request is served by the local pipeline directly, without a fallback
// marker — local-only operation is a supported mode, not a failure.
func WithProvider(p classifier.Provider) Option {
	return func(o *Orchestrator) {
		o.provider = p
	}
}

// WithRemoteTimeout overrides the default per-call remote timeout.
func WithRemoteTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.remoteTimeout = d
	}
}

// WithMetrics attaches a metrics instance. When nil, no metrics are recorded.
func WithMetrics(m *observe.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithPostFilter sets the thresholds applied to remote-produced item lists,
// so remote and local results are filtered by the same near-duplicate policy.
func WithPostFilter(cfg pipeline.PostFilterConfig) Option {
	return func(o *Orchestrator) {
		o.postFilter = cfg
	}
}

// Orchestrator validates remote classification results and falls back to the
// local pipeline. Safe for concurrent use.
type Orchestrator struct {
	provider      classifier.Provider
	local         *pipeline.Processor
	breaker       *resilience.CircuitBreaker
	remoteTimeout time.Duration
	metrics       *observe.Metrics
	maxItems      int
	postFilter    pipeline.PostFilterConfig
}

// New creates an [Orchestrator] around the given local processor. maxItems is
// the item cap enforced on both producers.
func New(local *pipeline.Processor, maxItems int, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		local:         local,
		remoteTimeout: defaultRemoteTimeout,
		maxItems:      maxItems,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.postFilter.MaxItems <= 0 {
		o.postFilter.MaxItems = maxItems
	}
	o.breaker = resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name: "remote-classifier",
		OnStateChange: func(from, to resilience.State) {
			if o.metrics != nil {
				o.metrics.RecordBreakerTransition(context.Background(), from.String(), to.String())
			}
		},
	})
	return o
}

// Classify converts text into a canonical result, preferring the remote
// classifier and falling back to the local pipeline on any failure. It never
// returns an error — the result is always schema-valid, possibly empty or
// low-confidence.
func (o *Orchestrator) Classify(ctx context.Context, text string, opts classifier.Options) types.CanonicalResult {
	start := time.Now()
	res, producer := o.classify(ctx, text, opts)
	if o.metrics != nil {
		o.metrics.RecordClassification(ctx, producer, time.Since(start), len(res.Items))
	}
	return res
}

// BreakerState reports the remote-classifier circuit breaker's current state
// name. Used by the readiness probe.
func (o *Orchestrator) BreakerState() string {
	return o.breaker.State().String()
}

// classify runs the remote-then-fallback flow and reports which producer won
// ("remote", "local", or "fallback").
func (o *Orchestrator) classify(ctx context.Context, text string, opts classifier.Options) (types.CanonicalResult, string) {
	procOpts := o.processOptions(opts)

	if o.provider == nil {
		return o.local.ProcessWith(text, procOpts), "local"
	}

	limit := o.maxItems
	if opts.MaxItems > 0 && opts.MaxItems < limit {
		limit = opts.MaxItems
	}

	var raw []byte
	err := o.breaker.Execute(func() error {
		callCtx, cancel := context.WithTimeout(ctx, o.remoteTimeout)
		defer cancel()

		payload, callErr := o.provider.Classify(callCtx, classifier.Request{
			Input:   text,
			Options: opts,
		})
		raw = payload
		return callErr
	})

	if err == nil {
		validated, vErr := ValidateResult(raw, limit)
		if vErr == nil {
			pf := o.postFilter
			if limit < pf.MaxItems {
				pf.MaxItems = limit
			}
			validated.Items = pipeline.PostFilter(validated.Items, pf)
			validated.Normalize()
			return *validated, "remote"
		}
		err = vErr
	}

	slog.Warn("remote classification failed, using local pipeline",
		"error", err,
		"breaker_state", o.breaker.State().String(),
	)

	res := o.local.ProcessWith(text, procOpts)
	res.AddRule(RuleLocalFallback)
	res.AddWarning(warnLocalFallback)
	res.Normalize()
	return res, "fallback"
}

// processOptions translates request-level options into local pipeline
// overrides. An unknown timezone keeps the server default rather than failing
// the capture.
func (o *Orchestrator) processOptions(opts classifier.Options) pipeline.ProcessOptions {
	po := pipeline.ProcessOptions{MaxItems: opts.MaxItems}
	if opts.Timezone != "" {
		loc, err := time.LoadLocation(opts.Timezone)
		if err != nil {
			slog.Warn("invalid request timezone, using server default",
				"timezone", opts.Timezone,
				"error", err,
			)
		} else {
			po.Location = loc
		}
	}
	return po
}
