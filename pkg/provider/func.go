// Package provider holds bridge.Provider implementations: one wrapping plain
// blocking functions, one forwarding requests to an external COMMS service.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/morezero/lvc-bridge/pkg/bridge"
)

const funcLogPrefix = "provider:func"

// Timeouts the engine itself waits for a local search response.
const (
	DefaultSearchTimeout = 4 * time.Second
	DefaultLookupTimeout = 10 * time.Second
)

// ErrUnsupported is returned when no function is wired for a request kind.
var ErrUnsupported = errors.New("provider does not implement this request kind")

// HandlerFunc answers one request with the data block of a SUCCESS response.
// It may block; ctx is cancelled when the timeout passes.
type HandlerFunc func(ctx context.Context, req *bridge.Request) (json.RawMessage, error)

// FuncParams configures a Func provider.
type FuncParams struct {
	Search        HandlerFunc
	Lookup        HandlerFunc
	SearchTimeout time.Duration
	LookupTimeout time.Duration
}

// Func adapts blocking functions to the bridge's asynchronous Provider
// contract. Each request runs on its own goroutine.
type Func struct {
	search        HandlerFunc
	lookup        HandlerFunc
	searchTimeout time.Duration
	lookupTimeout time.Duration
}

// NewFunc creates a Func provider. Zero timeouts use the defaults.
func NewFunc(params FuncParams) *Func {
	f := &Func{
		search:        params.Search,
		lookup:        params.Lookup,
		searchTimeout: params.SearchTimeout,
		lookupTimeout: params.LookupTimeout,
	}
	if f.searchTimeout <= 0 {
		f.searchTimeout = DefaultSearchTimeout
	}
	if f.lookupTimeout <= 0 {
		f.lookupTimeout = DefaultLookupTimeout
	}
	return f
}

// Search starts fn for a search request and returns immediately.
func (f *Func) Search(req *bridge.Request, r *bridge.Responder) error {
	return f.start(req, r, f.search, f.searchTimeout)
}

// Lookup starts fn for a lookup request and returns immediately.
func (f *Func) Lookup(req *bridge.Request, r *bridge.Responder) error {
	return f.start(req, r, f.lookup, f.lookupTimeout)
}

func (f *Func) start(req *bridge.Request, r *bridge.Responder, fn HandlerFunc, timeout time.Duration) error {
	if fn == nil {
		return fmt.Errorf("%s: %w", req.Kind, ErrUnsupported)
	}
	go f.run(req, r, fn, timeout)
	return nil
}

type outcome struct {
	data json.RawMessage
	err  error
}

func (f *Func) run(req *bridge.Request, r *bridge.Responder, fn HandlerFunc, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- outcome{err: fmt.Errorf("panic: %v", p)}
			}
		}()
		data, err := fn(ctx, req)
		done <- outcome{data: data, err: err}
	}()

	var err error
	select {
	case out := <-done:
		if out.err == nil {
			data := out.data
			if len(data) == 0 {
				data = json.RawMessage("{}")
			}
			err = r.Success(context.Background(), data)
			break
		}
		slog.Warn(fmt.Sprintf("%s - %s request %s failed: %v", funcLogPrefix, req.Kind, req.ID, out.err))
		err = r.Fail(context.Background(), bridge.ErrorCodeInternal, out.err.Error())
	case <-ctx.Done():
		slog.Warn(fmt.Sprintf("%s - %s request %s timed out after %s", funcLogPrefix, req.Kind, req.ID, timeout))
		err = r.Fail(context.Background(), bridge.ErrorCodeInternal, fmt.Sprintf("Provider timed out after %s", timeout))
	}
	if err != nil && !errors.Is(err, bridge.ErrAlreadyResponded) {
		slog.Error(fmt.Sprintf("%s - Response for %s was not delivered: %v", funcLogPrefix, req.ID, err))
	}
}
