package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	comms "github.com/nats-io/nats.go"

	"github.com/morezero/lvc-bridge/pkg/bridge"
	"github.com/morezero/lvc-bridge/pkg/commsutil"
)

const commsLogPrefix = "provider:comms"

// CommsParams configures a Comms provider.
type CommsParams struct {
	Conn *comms.Conn
	// Subject is the base subject; requests go to "<Subject>.search" and
	// "<Subject>.lookup".
	Subject string
	// Timeout bounds each request/reply. Zero uses the per-kind defaults.
	Timeout time.Duration
}

// Comms forwards each request payload verbatim to an external provider over
// COMMS request/reply and relays the reply as the response.
type Comms struct {
	nc      *comms.Conn
	subject string
	timeout time.Duration
}

// NewComms creates a Comms provider.
func NewComms(params CommsParams) *Comms {
	return &Comms{nc: params.Conn, subject: params.Subject, timeout: params.Timeout}
}

// Search forwards a search request.
func (c *Comms) Search(req *bridge.Request, r *bridge.Responder) error {
	return c.start(req, r)
}

// Lookup forwards a lookup request.
func (c *Comms) Lookup(req *bridge.Request, r *bridge.Responder) error {
	return c.start(req, r)
}

func (c *Comms) start(req *bridge.Request, r *bridge.Responder) error {
	if c.nc == nil || c.nc.IsClosed() {
		return fmt.Errorf("%s - COMMS connection is not available", commsLogPrefix)
	}
	go c.forward(req, r)
	return nil
}

func (c *Comms) timeoutFor(kind bridge.Kind) time.Duration {
	if c.timeout > 0 {
		return c.timeout
	}
	if kind == bridge.KindLookup {
		return DefaultLookupTimeout
	}
	return DefaultSearchTimeout
}

func (c *Comms) forward(req *bridge.Request, r *bridge.Responder) {
	subject := commsutil.BuildProviderSubject(c.subject, string(req.Kind))
	timeout := c.timeoutFor(req.Kind)
	ctx := context.Background()

	msg, err := c.nc.Request(subject, req.Payload, timeout)
	if err != nil {
		slog.Warn(fmt.Sprintf("%s - %s request %s to %s failed: %v", commsLogPrefix, req.Kind, req.ID, subject, err))
		message := fmt.Sprintf("Provider request failed: %v", err)
		if errors.Is(err, comms.ErrTimeout) {
			message = fmt.Sprintf("Provider timed out after %s", timeout)
		} else if errors.Is(err, comms.ErrNoResponders) {
			message = "No provider is listening on " + subject
		}
		c.finish(req, r.Fail(ctx, bridge.ErrorCodeInternal, message))
		return
	}

	c.finish(req, r.Respond(ctx, msg.Data))
}

func (c *Comms) finish(req *bridge.Request, err error) {
	if err != nil && !errors.Is(err, bridge.ErrAlreadyResponded) {
		slog.Error(fmt.Sprintf("%s - Response for %s: %v", commsLogPrefix, req.ID, err))
	}
}
