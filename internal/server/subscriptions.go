package server

import (
	"context"
	"fmt"
	"log/slog"

	comms "github.com/nats-io/nats.go"

	"github.com/morezero/lvc-bridge/pkg/commsutil"
)

const subscriptionsLogPrefix = "server:subscriptions"

func subjectOr(override, fallback string) string {
	if override != "" {
		return override
	}
	return fallback
}

func (s *Server) subscribe(ctx context.Context) error {
	handlers := []struct {
		subject string
		handler comms.MsgHandler
	}{
		{
			subject: subjectOr(s.cfg.SearchRequestSubject, commsutil.SubjectSearchRequest),
			handler: s.requestHandler(ctx, s.bridge.HandleSearch),
		},
		{
			subject: subjectOr(s.cfg.LookupRequestSubject, commsutil.SubjectLookupRequest),
			handler: s.requestHandler(ctx, s.bridge.HandleLookup),
		},
		{
			subject: subjectOr(s.cfg.TopologySubject, commsutil.SubjectTopology),
			handler: s.topologyHandler,
		},
	}

	for _, h := range handlers {
		sub, err := s.nc.Subscribe(h.subject, h.handler)
		if err != nil {
			return fmt.Errorf("%s - failed to subscribe to %s: %w", subscriptionsLogPrefix, h.subject, err)
		}
		s.subs = append(s.subs, sub)
		slog.Info(fmt.Sprintf("%s - Subscribed to %s", subscriptionsLogPrefix, h.subject))
	}
	return s.nc.Flush()
}

func (s *Server) unsubscribe() {
	for _, sub := range s.subs {
		if err := sub.Unsubscribe(); err != nil {
			slog.Warn(fmt.Sprintf("%s - failed to unsubscribe from %s: %v", subscriptionsLogPrefix, sub.Subject, err))
		}
	}
	s.subs = nil
}

// requestHandler feeds a request into the bridge. When the publisher asked
// for a reply, it gets an Ack carrying the bridge's handled result; the
// correlated response itself goes to the response subject.
func (s *Server) requestHandler(ctx context.Context, handle func(context.Context, []byte) bool) comms.MsgHandler {
	return func(msg *comms.Msg) {
		handled := handle(ctx, msg.Data)
		if msg.Reply == "" {
			return
		}
		ack := commsutil.Ack{Handled: handled}
		if !handled {
			ack.Error = "request has no usable requestId"
		}
		s.respond(msg, ack)
	}
}

func (s *Server) topologyHandler(msg *comms.Msg) {
	t := s.current()
	if t == nil {
		s.respond(msg, map[string]string{"error": "topology not resolved"})
		return
	}
	s.respond(msg, t)
}

func (s *Server) respond(msg *comms.Msg, v any) {
	data, err := commsutil.EncodePayload(v)
	if err != nil {
		slog.Error(fmt.Sprintf("%s - failed to encode reply: %v", subscriptionsLogPrefix, err))
		return
	}
	if err := msg.Respond(data); err != nil {
		slog.Warn(fmt.Sprintf("%s - failed to reply on %s: %v", subscriptionsLogPrefix, msg.Subject, err))
	}
}
