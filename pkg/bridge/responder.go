package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
)

const responderLogPrefix = "bridge:responder"

// Responder delivers the single response of one request on the channel of
// its kind. It is safe to call from any goroutine; only the first call
// emits anything.
type Responder struct {
	req       *Request
	emit      func(ctx context.Context, response []byte) error
	responded atomic.Bool
}

func newResponder(req *Request, emit func(ctx context.Context, response []byte) error) *Responder {
	return &Responder{req: req, emit: emit}
}

// RequestID is the correlation id every response of this request must carry.
func (r *Responder) RequestID() string {
	return r.req.ID
}

// Responded reports whether the response has been claimed.
func (r *Responder) Responded() bool {
	return r.responded.Load()
}

// Respond emits an encoded response. A response whose requestId differs from
// the request's is replaced by a synthesized failure carrying the right id,
// and ErrRequestIDMismatch is returned.
func (r *Responder) Respond(ctx context.Context, response []byte) error {
	if !r.responded.CompareAndSwap(false, true) {
		return ErrAlreadyResponded
	}

	id, err := responseID(response)
	if err != nil || id != r.req.ID {
		slog.Error(fmt.Sprintf("%s - %s response for %s carries requestId %q, replacing with failure", responderLogPrefix, r.req.Kind, r.req.ID, id))
		failure := FailureResponse(r.req.ID, ErrorCodeInternal, "Provider returned a response for a different request")
		if emitErr := r.send(ctx, failure); emitErr != nil {
			return emitErr
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrRequestIDMismatch, err)
		}
		return ErrRequestIDMismatch
	}

	return r.deliver(ctx, response)
}

// Success emits a SUCCESS response with data as its data block.
func (r *Responder) Success(ctx context.Context, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return r.Fail(ctx, ErrorCodeInternal, fmt.Sprintf("Provider result could not be encoded: %v", err))
	}
	if !r.responded.CompareAndSwap(false, true) {
		return ErrAlreadyResponded
	}
	return r.send(ctx, &Response{RequestID: r.req.ID, Status: StatusSuccess, Data: raw})
}

// Fail emits a FAIL response.
func (r *Responder) Fail(ctx context.Context, code, message string) error {
	if !r.responded.CompareAndSwap(false, true) {
		return ErrAlreadyResponded
	}
	return r.send(ctx, FailureResponse(r.req.ID, code, message))
}

func (r *Responder) send(ctx context.Context, resp *Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("%s - failed to encode response for %s: %w", responderLogPrefix, r.req.ID, err)
	}
	return r.deliver(ctx, data)
}

func (r *Responder) deliver(ctx context.Context, data []byte) error {
	if err := r.emit(ctx, data); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to emit %s response for %s: %v", responderLogPrefix, r.req.Kind, r.req.ID, err))
		return err
	}
	slog.Debug(fmt.Sprintf("%s - Emitted %s response for %s", responderLogPrefix, r.req.Kind, r.req.ID))
	return nil
}

// isAlreadyResponded is used by the bridge to ignore a late second answer.
func isAlreadyResponded(err error) bool {
	return errors.Is(err, ErrAlreadyResponded)
}
