// Package classifier defines the remote classifier provider contract.
//
// The remote classifier is an external collaborator: scribeline sends it the
// captured text and receives a JSON payload that is supposed to match the
// canonical result schema. The payload is returned raw — schema validation is
// the orchestrator's job, because a syntactically valid response can still be
// semantically invalid and must then be treated exactly like a transport
// failure.
//
// Implementations must be safe for concurrent use.
package classifier

import (
	"context"
	"encoding/json"

	"github.com/marchewka/scribeline/pkg/types"
)

// Options carries the per-request parameters forwarded to the remote service.
type Options struct {
	// Timezone is the caller's IANA time zone name (e.g., "Europe/Berlin").
	Timezone string `json:"timezone"`

	// UserID identifies the capturing user to the remote service.
	UserID string `json:"userId"`

	// MaxItems is the item cap the remote service should honour.
	MaxItems int `json:"maxItems"`
}

// Request is the remote classification request body.
type Request struct {
	// Input is the raw captured text.
	Input string `json:"input"`

	// Options holds the per-request parameters.
	Options Options `json:"options"`
}

// Provider invokes the remote classifier.
type Provider interface {
	// Classify submits req and returns the raw response payload. Any
	// transport error, non-2xx status, or unparseable body is returned as an
	// error; the payload is otherwise passed through unvalidated.
	//
	// Implementations must respect ctx cancellation and deadlines — the
	// caller bounds every invocation with a timeout.
	Classify(ctx context.Context, req Request) (json.RawMessage, error)
}

// Saver persists item batches on the remote service. The durable save queue
// drains into it during flushes.
type Saver interface {
	// Save persists items. A nil return means the batch is durably stored
	// remotely; any error leaves the batch queued for retry.
	Save(ctx context.Context, items []types.Item) error
}
