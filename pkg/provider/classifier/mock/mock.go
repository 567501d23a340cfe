// Package mock provides a test double for the classifier provider.
package mock

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/marchewka/scribeline/pkg/provider/classifier"
	"github.com/marchewka/scribeline/pkg/types"
)

// Compile-time interface assertions.
var (
	_ classifier.Provider = (*Provider)(nil)
	_ classifier.Saver    = (*Provider)(nil)
)

// Provider is a configurable classifier.Provider stub. Set Response and Err
// before use; every call is recorded in Calls. Safe for concurrent use.
type Provider struct {
	// Response is returned from Classify when Err is nil.
	Response json.RawMessage

	// Err, when non-nil, is returned from every Classify call.
	Err error

	// SaveErr, when non-nil, is returned from every Save call.
	SaveErr error

	mu    sync.Mutex
	calls []classifier.Request
	saved [][]types.Item
}

// Classify records the request and returns the configured response or error.
func (p *Provider) Classify(_ context.Context, req classifier.Request) (json.RawMessage, error) {
	p.mu.Lock()
	p.calls = append(p.calls, req)
	p.mu.Unlock()

	if p.Err != nil {
		return nil, p.Err
	}
	return p.Response, nil
}

// Save records the batch and returns the configured save error.
func (p *Provider) Save(_ context.Context, items []types.Item) error {
	p.mu.Lock()
	p.saved = append(p.saved, items)
	p.mu.Unlock()
	return p.SaveErr
}

// Calls returns a copy of all recorded requests.
func (p *Provider) Calls() []classifier.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]classifier.Request, len(p.calls))
	copy(out, p.calls)
	return out
}

// Saved returns a copy of all recorded save batches.
func (p *Provider) Saved() [][]types.Item {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([][]types.Item, len(p.saved))
	copy(out, p.saved)
	return out
}
