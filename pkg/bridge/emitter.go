package bridge

import "context"

// CallbackEmitter hands every response to a function, tagged with its kind.
// It suits in-process hosts and tests.
type CallbackEmitter struct {
	callback func(ctx context.Context, kind Kind, response []byte) error
}

// NewCallbackEmitter creates a CallbackEmitter.
func NewCallbackEmitter(cb func(ctx context.Context, kind Kind, response []byte) error) *CallbackEmitter {
	return &CallbackEmitter{callback: cb}
}

// EmitSearchResponse calls the callback with KindSearch.
func (e *CallbackEmitter) EmitSearchResponse(ctx context.Context, response []byte) error {
	return e.callback(ctx, KindSearch, response)
}

// EmitLookupResponse calls the callback with KindLookup.
func (e *CallbackEmitter) EmitLookupResponse(ctx context.Context, response []byte) error {
	return e.callback(ctx, KindLookup, response)
}
