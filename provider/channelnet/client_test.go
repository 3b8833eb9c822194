package channelnet_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statewire/walletcore/pkg/sign"
	"github.com/statewire/walletcore/pkg/transport"
	"github.com/statewire/walletcore/pkg/wire"
	"github.com/statewire/walletcore/provider/channelnet"
)

// mockCallHandler handles a request in the mock dialer and returns
// the response the node would send.
type mockCallHandler func(req *wire.Request) (*wire.Response, error)

var _ transport.Dialer = (*mockDialer)(nil)

// mockDialer simulates a connected channel node without a network.
type mockDialer struct {
	handlers map[string]mockCallHandler
	eventCh  chan *wire.Response
}

func newMockDialer() *mockDialer {
	return &mockDialer{
		handlers: make(map[string]mockCallHandler),
		eventCh:  make(chan *wire.Response, 10),
	}
}

func (d *mockDialer) registerHandler(method string, handler mockCallHandler) {
	d.handlers[method] = handler
}

// push simulates an unsolicited message from the node.
func (d *mockDialer) push(method string, params wire.Params) {
	res := wire.NewResponse(wire.NewPayload(0, method, params))
	d.eventCh <- &res
}

func (d *mockDialer) Dial(ctx context.Context, url string, handleClosure func(err error)) error {
	return nil
}

func (d *mockDialer) IsConnected() bool {
	return true
}

func (d *mockDialer) Call(ctx context.Context, req *wire.Request) (*wire.Response, error) {
	if req == nil {
		return nil, transport.ErrNilRequest
	}

	handler, exists := d.handlers[req.Req.Method]
	if !exists {
		res := wire.NewErrorResponse(req.Req.RequestID, "method not found")
		return &res, nil
	}

	return handler(req)
}

func (d *mockDialer) EventCh() <-chan *wire.Response {
	return d.eventCh
}

func newTestClient(t *testing.T) (*channelnet.Client, *mockDialer) {
	t.Helper()

	dialer := newMockDialer()
	client := channelnet.NewClient(dialer, sign.NewMockSigner("0xAlice"))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, client.Start(ctx, "wss://node.example.com/ws", func(err error) {
		assert.NoError(t, err)
	}))

	return client, dialer
}

func TestClient_SendPayment(t *testing.T) {
	client, dialer := newTestClient(t)

	dialer.registerHandler(channelnet.SendPaymentMethod, func(req *wire.Request) (*wire.Response, error) {
		// Requests must arrive signed.
		require.Len(t, req.Sig, 1)
		assert.Equal(t, "100", req.Req.Params.StringOr("amount", ""))
		assert.Equal(t, "0xBob", req.Req.Params.StringOr("recipient", ""))

		resParams, err := wire.NewParams(map[string]any{"paymentId": "pay-1"})
		require.NoError(t, err)
		res := wire.NewResponse(wire.NewPayload(req.Req.RequestID, req.Req.Method, resParams))
		return &res, nil
	})

	reqParams, err := wire.NewParams(map[string]any{
		"recipient": "0xBob",
		"amount":    "100",
	})
	require.NoError(t, err)

	res, err := client.SendPayment(context.Background(), reqParams)
	require.NoError(t, err)
	assert.Equal(t, "pay-1", res.StringOr("paymentId", ""))
}

func TestClient_CreateSession(t *testing.T) {
	client, dialer := newTestClient(t)

	dialer.registerHandler(channelnet.CreateSessionMethod, func(req *wire.Request) (*wire.Response, error) {
		resParams, err := wire.NewParams(map[string]any{"sessionId": "sess-42"})
		require.NoError(t, err)
		res := wire.NewResponse(wire.NewPayload(req.Req.RequestID, req.Req.Method, resParams))
		return &res, nil
	})

	res, err := client.CreateSession(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "sess-42", res.StringOr("sessionId", ""))
}

func TestClient_NodeError(t *testing.T) {
	client, dialer := newTestClient(t)

	dialer.registerHandler(channelnet.CloseSessionMethod, func(req *wire.Request) (*wire.Response, error) {
		res := wire.NewErrorResponse(req.Req.RequestID, "session not found")
		return &res, nil
	})

	res, err := client.CloseSession(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session not found")
	// The raw params still come back so callers can read error details.
	assert.NotNil(t, res)
}

func TestClient_ForwardsPushedMessages(t *testing.T) {
	client, dialer := newTestClient(t)

	params, err := wire.NewParams(map[string]any{
		"amount": "50",
		"sender": "0xBob",
	})
	require.NoError(t, err)
	dialer.push(channelnet.PaymentReceivedMessage, params)

	select {
	case msg := <-client.Messages():
		assert.Equal(t, channelnet.PaymentReceivedMessage, msg.StringOr(channelnet.MessageTypeKey, ""))
		assert.Equal(t, "50", msg.StringOr("amount", ""))
		assert.Equal(t, "0xBob", msg.StringOr("sender", ""))
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for pushed message")
	}
}
