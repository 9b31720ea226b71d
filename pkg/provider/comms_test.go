package provider

import (
	"context"
	"testing"
	"time"

	commsserver "github.com/nats-io/nats-server/v2/server"
	comms "github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/morezero/lvc-bridge/pkg/bridge"
)

// startTestServer starts an in-process COMMS server for testing.
func startTestServer(t *testing.T, port int) *comms.Conn {
	t.Helper()

	ns, err := commsserver.NewServer(&commsserver.Options{
		Host:   "127.0.0.1",
		Port:   port,
		NoLog:  true,
		NoSigs: true,
	})
	require.NoError(t, err)

	go ns.Start()
	require.True(t, ns.ReadyForConnections(10*time.Second), "provider:comms_test - server failed to start")

	nc, err := comms.Connect(ns.ClientURL(), comms.Timeout(5*time.Second))
	require.NoError(t, err)

	t.Cleanup(func() {
		nc.Close()
		ns.Shutdown()
		ns.WaitForShutdown()
	})
	return nc
}

func TestComms_RelaysReply(t *testing.T) {
	nc := startTestServer(t, 14250)

	forwarded := make(chan []byte, 1)
	sub, err := nc.Subscribe("nav.provider.search", func(msg *comms.Msg) {
		forwarded <- msg.Data
		_ = msg.Respond([]byte(`{"requestId":"c1","status":"SUCCESS","data":{"count":1}}`))
	})
	require.NoError(t, err)
	defer sub.Unsubscribe()

	b, out := newTestBridge(t, NewComms(CommsParams{Conn: nc, Subject: "nav.provider"}))
	require.True(t, b.HandleSearch(context.Background(), []byte(`{"requestId":"c1","query":"fuel"}`)))

	e := waitResponse(t, out)
	assert.Equal(t, bridge.KindSearch, e.kind)
	assert.Equal(t, "c1", e.response.RequestID)
	assert.Equal(t, bridge.StatusSuccess, e.response.Status)
	assert.JSONEq(t, `{"count":1}`, string(e.response.Data))
	assert.JSONEq(t, `{"requestId":"c1","query":"fuel"}`, string(<-forwarded))
}

func TestComms_MismatchedReplyIsReplaced(t *testing.T) {
	nc := startTestServer(t, 14251)

	sub, err := nc.Subscribe("nav.provider.lookup", func(msg *comms.Msg) {
		_ = msg.Respond([]byte(`{"requestId":"other","status":"SUCCESS","data":{}}`))
	})
	require.NoError(t, err)
	defer sub.Unsubscribe()

	b, out := newTestBridge(t, NewComms(CommsParams{Conn: nc, Subject: "nav.provider"}))
	require.True(t, b.HandleLookup(context.Background(), []byte(`{"requestId":"c2"}`)))

	e := waitResponse(t, out)
	assert.Equal(t, bridge.KindLookup, e.kind)
	assert.Equal(t, "c2", e.response.RequestID)
	assert.Equal(t, bridge.StatusFail, e.response.Status)
}

func TestComms_NoRespondersFails(t *testing.T) {
	nc := startTestServer(t, 14252)

	b, out := newTestBridge(t, NewComms(CommsParams{Conn: nc, Subject: "nav.nobody", Timeout: time.Second}))
	require.True(t, b.HandleSearch(context.Background(), []byte(`{"requestId":"c3"}`)))

	e := waitResponse(t, out)
	assert.Equal(t, "c3", e.response.RequestID)
	assert.Equal(t, bridge.StatusFail, e.response.Status)
	assert.Equal(t, bridge.ErrorCodeInternal, e.response.Error.ErrorCode)
}

func TestComms_ClosedConnectionRefused(t *testing.T) {
	nc := startTestServer(t, 14253)
	nc.Close()

	b, out := newTestBridge(t, NewComms(CommsParams{Conn: nc, Subject: "nav.provider"}))
	require.True(t, b.HandleSearch(context.Background(), []byte(`{"requestId":"c4"}`)))

	e := waitResponse(t, out)
	assert.Equal(t, bridge.StatusFail, e.response.Status)
	assert.Contains(t, e.response.Error.ErrorMessage, "Provider won't handle request")
}

func TestComms_TimeoutFor(t *testing.T) {
	c := NewComms(CommsParams{})
	assert.Equal(t, DefaultSearchTimeout, c.timeoutFor(bridge.KindSearch))
	assert.Equal(t, DefaultLookupTimeout, c.timeoutFor(bridge.KindLookup))

	c = NewComms(CommsParams{Timeout: time.Second})
	assert.Equal(t, time.Second, c.timeoutFor(bridge.KindLookup))
}
