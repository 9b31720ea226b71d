package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	comms "github.com/nats-io/nats.go"

	"github.com/morezero/lvc-bridge/pkg/commsutil"
)

const commsPublisherLogPrefix = "events:comms_publisher"

// CommsPublisherOpts configures CommsPublisher. Nil or zero values use defaults.
type CommsPublisherOpts struct {
	// SuppressionSubject overrides the global handler suppression subject.
	SuppressionSubject string
	// TopologySubject overrides the topology resolved subject.
	TopologySubject string
	// FlushTimeout bounds the wait for the server to acknowledge a
	// suppression event.
	FlushTimeout time.Duration
}

// CommsPublisher publishes bridge events to COMMS subjects.
type CommsPublisher struct {
	nc                 *comms.Conn
	suppressionSubject string
	topologySubject    string
	flushTimeout       time.Duration
}

// NewCommsPublisher creates a new CommsPublisher. Pass nil for opts to use defaults.
func NewCommsPublisher(nc *comms.Conn, opts *CommsPublisherOpts) *CommsPublisher {
	p := &CommsPublisher{
		nc:                 nc,
		suppressionSubject: commsutil.SubjectHandlerSuppressed,
		topologySubject:    commsutil.SubjectTopologyResolved,
		flushTimeout:       2 * time.Second,
	}
	if opts != nil {
		if opts.SuppressionSubject != "" {
			p.suppressionSubject = opts.SuppressionSubject
		}
		if opts.TopologySubject != "" {
			p.topologySubject = opts.TopologySubject
		}
		if opts.FlushTimeout > 0 {
			p.flushTimeout = opts.FlushTimeout
		}
	}
	return p
}

// PublishHandlerSuppressed publishes the event to both the granular and the
// global suppression subjects and waits for the server to take it, so the
// host sees the signal before the bridge starts answering.
func (p *CommsPublisher) PublishHandlerSuppressed(_ context.Context, event *HandlerSuppressedEvent) error {
	data, err := commsutil.EncodePayload(event)
	if err != nil {
		return fmt.Errorf("%s - failed to encode event: %w", commsPublisherLogPrefix, err)
	}

	granularSubject := commsutil.BuildSuppressionSubject(event.Module, event.Interface)
	if err := p.nc.Publish(granularSubject, data); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to publish to %s: %v", commsPublisherLogPrefix, granularSubject, err))
		return err
	}
	if err := p.nc.Publish(p.suppressionSubject, data); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to publish to %s: %v", commsPublisherLogPrefix, p.suppressionSubject, err))
		return err
	}
	if err := p.nc.FlushTimeout(p.flushTimeout); err != nil {
		return fmt.Errorf("%s - suppression of %s.%s not acknowledged: %w", commsPublisherLogPrefix, event.Module, event.Interface, err)
	}

	slog.Debug(fmt.Sprintf("%s - Published handler suppression for %s.%s", commsPublisherLogPrefix, event.Module, event.Interface))
	return nil
}

// PublishTopologyResolved publishes the event to the topology subject.
func (p *CommsPublisher) PublishTopologyResolved(_ context.Context, event *TopologyResolvedEvent) error {
	data, err := commsutil.EncodePayload(event)
	if err != nil {
		return fmt.Errorf("%s - failed to encode event: %w", commsPublisherLogPrefix, err)
	}
	if err := p.nc.Publish(p.topologySubject, data); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to publish to %s: %v", commsPublisherLogPrefix, p.topologySubject, err))
		return err
	}
	slog.Debug(fmt.Sprintf("%s - Published topology from %s", commsPublisherLogPrefix, event.Source))
	return nil
}
