package bridge

import (
	"context"
	"fmt"
	"log/slog"

	comms "github.com/nats-io/nats.go"

	"github.com/morezero/lvc-bridge/pkg/commsutil"
)

const commsEmitterLogPrefix = "bridge:comms_emitter"

// CommsEmitterOpts configures CommsEmitter. Empty fields use the default subjects.
type CommsEmitterOpts struct {
	SearchSubject string
	LookupSubject string
}

// CommsEmitter publishes responses to the engine's COMMS response subjects.
type CommsEmitter struct {
	nc            *comms.Conn
	searchSubject string
	lookupSubject string
}

// NewCommsEmitter creates a CommsEmitter. Pass nil for opts to use defaults.
func NewCommsEmitter(nc *comms.Conn, opts *CommsEmitterOpts) *CommsEmitter {
	e := &CommsEmitter{
		nc:            nc,
		searchSubject: commsutil.SubjectSearchResponse,
		lookupSubject: commsutil.SubjectLookupResponse,
	}
	if opts != nil && opts.SearchSubject != "" {
		e.searchSubject = opts.SearchSubject
	}
	if opts != nil && opts.LookupSubject != "" {
		e.lookupSubject = opts.LookupSubject
	}
	return e
}

// EmitSearchResponse publishes to the search response subject.
func (e *CommsEmitter) EmitSearchResponse(_ context.Context, response []byte) error {
	return e.publish(e.searchSubject, response)
}

// EmitLookupResponse publishes to the lookup response subject.
func (e *CommsEmitter) EmitLookupResponse(_ context.Context, response []byte) error {
	return e.publish(e.lookupSubject, response)
}

func (e *CommsEmitter) publish(subject string, data []byte) error {
	if err := e.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("%s - failed to publish to %s: %w", commsEmitterLogPrefix, subject, err)
	}
	slog.Debug(fmt.Sprintf("%s - Published response to %s", commsEmitterLogPrefix, subject))
	return nil
}
