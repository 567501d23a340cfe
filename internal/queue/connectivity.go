package queue

import (
	"context"
	"log/slog"
)

// Watch flushes the queue whenever connectivity is regained. It consumes
// boolean online/offline transitions from signal and triggers a flush on each
// offline→online edge, plus one initial flush if the very first signal is
// online. It returns when ctx is cancelled or signal is closed.
//
// Flush errors are logged and do not stop the watcher — a failed flush will
// be retried on the next connectivity edge.
func (q *Queue) Watch(ctx context.Context, signal <-chan bool, trySave SaveFunc) {
	online := false
	for {
		select {
		case <-ctx.Done():
			return
		case state, ok := <-signal:
			if !ok {
				return
			}
			regained := state && !online
			online = state
			if !regained {
				continue
			}

			slog.Info("connectivity regained, flushing queue")
			if _, err := q.Flush(ctx, trySave); err != nil {
				slog.Error("connectivity-triggered flush failed", "error", err)
			}
		}
	}
}
