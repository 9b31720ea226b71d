package events

import (
	"context"
	"sync"
	"time"
)

// EventPublisher is the interface for publishing bridge events.
type EventPublisher interface {
	PublishHandlerSuppressed(ctx context.Context, event *HandlerSuppressedEvent) error
	PublishTopologyResolved(ctx context.Context, event *TopologyResolvedEvent) error
}

// NoOpPublisher is an EventPublisher that does nothing (for in-process usage without events).
type NoOpPublisher struct{}

// PublishHandlerSuppressed is a no-op.
func (p *NoOpPublisher) PublishHandlerSuppressed(_ context.Context, _ *HandlerSuppressedEvent) error {
	return nil
}

// PublishTopologyResolved is a no-op.
func (p *NoOpPublisher) PublishTopologyResolved(_ context.Context, _ *TopologyResolvedEvent) error {
	return nil
}

// CallbackPublisher is an EventPublisher that calls a callback function (for testing).
// The callback receives either a *HandlerSuppressedEvent or a *TopologyResolvedEvent.
type CallbackPublisher struct {
	callback func(ctx context.Context, event any) error
}

// NewCallbackPublisher creates a new CallbackPublisher.
func NewCallbackPublisher(cb func(ctx context.Context, event any) error) *CallbackPublisher {
	return &CallbackPublisher{callback: cb}
}

// PublishHandlerSuppressed calls the callback.
func (p *CallbackPublisher) PublishHandlerSuppressed(ctx context.Context, event *HandlerSuppressedEvent) error {
	return p.callback(ctx, event)
}

// PublishTopologyResolved calls the callback.
func (p *CallbackPublisher) PublishTopologyResolved(ctx context.Context, event *TopologyResolvedEvent) error {
	return p.callback(ctx, event)
}

// Suppressor adapts an EventPublisher to the resolver's handler suppression
// signal. Each module/interface pair is published once; later calls for a
// delivered pair are no-ops. A failed publish is retried on the next call.
type Suppressor struct {
	pub EventPublisher
	now func() time.Time

	mu        sync.Mutex
	delivered map[string]bool
}

// NewSuppressor creates a Suppressor publishing through pub.
func NewSuppressor(pub EventPublisher) *Suppressor {
	return &Suppressor{pub: pub, now: time.Now, delivered: make(map[string]bool)}
}

// SuppressDefaultHandler publishes a HandlerSuppressedEvent unless one was
// already delivered for module and iface.
func (s *Suppressor) SuppressDefaultHandler(ctx context.Context, module, iface string) error {
	key := module + "." + iface
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.delivered[key] {
		return nil
	}
	err := s.pub.PublishHandlerSuppressed(ctx, &HandlerSuppressedEvent{
		Module:    module,
		Interface: iface,
		Timestamp: s.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	s.delivered[key] = true
	return nil
}
