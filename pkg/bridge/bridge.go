package bridge

import (
	"context"
	"fmt"
	"log/slog"
)

const logPrefix = "bridge:bridge"

// Emitter carries responses back to the engine. Search responses go only to
// EmitSearchResponse and lookup responses only to EmitLookupResponse.
type Emitter interface {
	EmitSearchResponse(ctx context.Context, response []byte) error
	EmitLookupResponse(ctx context.Context, response []byte) error
}

// Provider performs searches and lookups. Both calls must return quickly and
// answer later, exactly once, through the Responder. Returning an error means
// the provider will not answer; the bridge then answers with a failure.
type Provider interface {
	Search(req *Request, r *Responder) error
	Lookup(req *Request, r *Responder) error
}

// Params holds the dependencies of a Bridge.
type Params struct {
	Emitter Emitter
	// Provider is optional; without one every request gets a synthesized failure.
	Provider Provider
	// FailureMessage overrides DefaultFailureMessage.
	FailureMessage string
}

// Bridge correlates inbound requests with their responses. It keeps no state
// between requests.
type Bridge struct {
	emitter        Emitter
	provider       Provider
	failureMessage string
}

// New creates a Bridge.
func New(params Params) *Bridge {
	msg := params.FailureMessage
	if msg == "" {
		msg = DefaultFailureMessage
	}
	return &Bridge{emitter: params.Emitter, provider: params.Provider, failureMessage: msg}
}

// HandleSearch accepts a POI search request. It returns false, and emits
// nothing, when the request has no usable requestId.
func (b *Bridge) HandleSearch(ctx context.Context, request []byte) bool {
	return b.handle(ctx, KindSearch, request)
}

// HandleLookup accepts a POI lookup request. It returns false, and emits
// nothing, when the request has no usable requestId.
func (b *Bridge) HandleLookup(ctx context.Context, request []byte) bool {
	return b.handle(ctx, KindLookup, request)
}

func (b *Bridge) handle(ctx context.Context, kind Kind, payload []byte) bool {
	req, err := ParseRequest(kind, payload)
	if err != nil {
		slog.Error(fmt.Sprintf("%s - Rejected %s request: %v", logPrefix, kind, err))
		return false
	}
	slog.Debug(fmt.Sprintf("%s - Handling %s request %s", logPrefix, kind, req.ID))

	r := newResponder(req, b.channel(kind))

	if b.provider == nil {
		b.fail(ctx, r, b.failureMessage)
		return true
	}

	if err := b.delegate(req, r); err != nil {
		slog.Warn(fmt.Sprintf("%s - Provider did not take %s request %s: %v", logPrefix, kind, req.ID, err))
		b.fail(ctx, r, fmt.Sprintf("Provider won't handle request: %v", err))
	}
	return true
}

func (b *Bridge) delegate(req *Request, r *Responder) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("provider panicked: %v", p)
		}
	}()
	if req.Kind == KindLookup {
		return b.provider.Lookup(req, r)
	}
	return b.provider.Search(req, r)
}

func (b *Bridge) fail(ctx context.Context, r *Responder, message string) {
	err := r.Fail(ctx, ErrorCodeInternal, message)
	if err != nil && !isAlreadyResponded(err) {
		slog.Error(fmt.Sprintf("%s - Failure response for %s was not delivered: %v", logPrefix, r.RequestID(), err))
	}
}

func (b *Bridge) channel(kind Kind) func(ctx context.Context, response []byte) error {
	if kind == KindLookup {
		return b.emitter.EmitLookupResponse
	}
	return b.emitter.EmitSearchResponse
}
