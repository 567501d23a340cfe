// Package app wires all scribeline subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run serves HTTP and background workers until the context is
// cancelled, and Shutdown tears everything down in order.
//
// For testing, inject test doubles via functional options (WithClassifier,
// WithBlobStore, etc.). When an option is not provided, New creates real
// implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/marchewka/scribeline/internal/api"
	"github.com/marchewka/scribeline/internal/config"
	"github.com/marchewka/scribeline/internal/health"
	"github.com/marchewka/scribeline/internal/observe"
	"github.com/marchewka/scribeline/internal/orchestrate"
	"github.com/marchewka/scribeline/internal/pipeline"
	"github.com/marchewka/scribeline/internal/queue"
	"github.com/marchewka/scribeline/internal/queue/blobstore"
	"github.com/marchewka/scribeline/internal/rescore"
	"github.com/marchewka/scribeline/pkg/provider/classifier"
	"github.com/marchewka/scribeline/pkg/provider/classifier/remote"
)

// App owns all subsystem lifetimes and serves the scribeline API.
type App struct {
	cfg *config.Config

	// Subsystems — initialised in New, torn down in Shutdown.
	metrics      *observe.Metrics
	processor    *pipeline.Processor
	rescorer     *rescore.Rescorer
	orch         *orchestrate.Orchestrator
	queue        *queue.Queue
	provider     classifier.Provider
	saver        classifier.Saver
	store        blobstore.Store
	server       *http.Server
	connectivity <-chan bool

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithClassifier injects a remote classifier provider instead of creating one
// from config.
func WithClassifier(p classifier.Provider) Option {
	return func(a *App) { a.provider = p }
}

// WithSaver injects a save backend instead of using the remote provider.
func WithSaver(s classifier.Saver) Option {
	return func(a *App) { a.saver = s }
}

// WithBlobStore injects a queue blob store instead of creating one from config.
func WithBlobStore(s blobstore.Store) Option {
	return func(a *App) { a.store = s }
}

// WithConnectivitySignal attaches a channel of online/offline transitions.
// The queue flushes on every offline→online edge.
func WithConnectivitySignal(ch <-chan bool) Option {
	return func(a *App) { a.connectivity = ch }
}

// WithMetrics injects a metrics instance instead of using the package default.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// New creates an App by wiring all subsystems together: the local pipeline,
// the rescorer, the remote classifier (when configured), the durable save
// queue, and the HTTP server.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{cfg: cfg}
	for _, o := range opts {
		o(a)
	}

	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	loc, err := time.LoadLocation(cfg.Classifier.Timezone)
	if err != nil {
		return nil, fmt.Errorf("app: load timezone %q: %w", cfg.Classifier.Timezone, err)
	}

	a.processor = pipeline.NewProcessor(pipeline.Config{
		MaxItems: cfg.Classifier.MaxItems,
		PostFilter: pipeline.PostFilterConfig{
			MaxItems:         cfg.Classifier.MaxItems,
			ContainmentRatio: cfg.Pipeline.ContainmentRatio,
			MaxExtraTokens:   cfg.Pipeline.MaxExtraTokens,
		},
		Location: loc,
	})
	a.rescorer = rescore.New()

	if err := a.initClassifier(); err != nil {
		return nil, err
	}
	if err := a.initQueue(ctx); err != nil {
		return nil, err
	}

	a.initServer()
	return a, nil
}

// initClassifier creates the remote provider from config unless one was
// injected. An empty base URL means local-only operation.
func (a *App) initClassifier() error {
	if a.provider == nil && a.cfg.Classifier.BaseURL != "" {
		p := remote.New(a.cfg.Classifier.BaseURL,
			remote.WithAPIKey(a.cfg.Classifier.APIKey),
			remote.WithTimeout(a.cfg.Classifier.Timeout),
		)
		a.provider = p
		if a.saver == nil {
			a.saver = p
		}
	}

	orchOpts := []orchestrate.Option{
		orchestrate.WithMetrics(a.metrics),
		orchestrate.WithRemoteTimeout(a.cfg.Classifier.Timeout),
		orchestrate.WithPostFilter(pipeline.PostFilterConfig{
			MaxItems:         a.cfg.Classifier.MaxItems,
			ContainmentRatio: a.cfg.Pipeline.ContainmentRatio,
			MaxExtraTokens:   a.cfg.Pipeline.MaxExtraTokens,
		}),
	}
	if a.provider != nil {
		orchOpts = append(orchOpts, orchestrate.WithProvider(a.provider))
	}
	a.orch = orchestrate.New(a.processor, a.cfg.Classifier.MaxItems, orchOpts...)
	return nil
}

// initQueue creates the durable save queue from config unless a store was
// injected.
func (a *App) initQueue(ctx context.Context) error {
	if a.store == nil {
		switch a.cfg.Queue.Backend {
		case config.BackendPostgres:
			store, err := blobstore.NewPostgresStore(ctx, a.cfg.Queue.PostgresDSN, "save-queue")
			if err != nil {
				return fmt.Errorf("app: init queue store: %w", err)
			}
			a.store = store
			a.closers = append(a.closers, func() error {
				store.Close()
				return nil
			})
		default:
			a.store = blobstore.NewFileStore(a.cfg.Queue.StorePath)
		}
	}

	queueOpts := []queue.Option{queue.WithMaxRetries(a.cfg.Queue.MaxRetries)}
	if a.cfg.Queue.DeadLetterPath != "" {
		queueOpts = append(queueOpts, queue.WithDeadLetter(queue.NewDeadLetter(a.cfg.Queue.DeadLetterPath)))
	}
	a.queue = queue.New(a.store, queueOpts...)
	return nil
}

// initServer assembles the HTTP route table and server.
func (a *App) initServer() {
	checkers := []health.Checker{}
	if p, ok := a.store.(health.Pinger); ok {
		checkers = append(checkers, health.QueueStoreChecker(p))
	}
	if a.provider != nil {
		checkers = append(checkers, health.ClassifierChecker(a.orch.BreakerState))
	}

	srv := api.New(a.orch, a.rescorer, a.queue, a.trySave,
		api.WithMetrics(a.metrics),
		api.WithHealth(health.New(checkers...)),
		api.WithTimezone(a.cfg.Classifier.Timezone),
	)

	a.server = &http.Server{
		Addr:              a.cfg.Server.ListenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// trySave is the queue's save function: it drains job payloads into the
// remote save backend.
func (a *App) trySave(ctx context.Context, job queue.SaveJob) error {
	if a.saver == nil {
		return errors.New("app: no save backend configured")
	}
	return a.saver.Save(ctx, job.Payload)
}

// Run serves HTTP and the background connectivity watcher until ctx is
// cancelled, then drains both.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("http server listening", "addr", a.server.Addr)
		var err error
		if tls := a.cfg.Server.TLS; tls != nil {
			err = a.server.ListenAndServeTLS(tls.CertFile, tls.KeyFile)
		} else {
			err = a.server.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})

	if a.connectivity != nil {
		g.Go(func() error {
			a.queue.Watch(ctx, a.connectivity, a.trySave)
			return nil
		})
	}

	return g.Wait()
}

// Shutdown tears down all subsystems in reverse-init order. It respects the
// context deadline: if ctx expires before all closers finish, remaining
// closers are skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}
