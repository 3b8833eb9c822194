// Package channelnet implements provider.ChannelProvider over a
// websocket connection to a payment-channel network node.
//
// Every request is wrapped in a signed wire payload; the node settles it
// with a correlated response. Messages the node pushes on its own
// (incoming payments, session teardown) surface through Messages().
package channelnet

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/statewire/walletcore/pkg/log"
	"github.com/statewire/walletcore/pkg/sign"
	"github.com/statewire/walletcore/pkg/transport"
	"github.com/statewire/walletcore/pkg/wire"
)

// Wire methods understood by the channel node.
const (
	OpenSessionMethod   = "session_open"
	CreateSessionMethod = "session_create"
	CloseSessionMethod  = "session_close"
	SendPaymentMethod   = "payment_send"
)

// Push-message types the node originates. Each message delivered through
// Messages() carries its wire method under the "type" key.
const (
	MessageTypeKey = "type"

	PaymentReceivedMessage = "payment"
	SessionClosedMessage   = "session_closed"
	ConnectionLostMessage  = "connection_closed"
)

// Client talks to a channel network node. It is safe for concurrent use;
// in-flight requests are correlated by the underlying dialer.
type Client struct {
	dialer transport.Dialer
	signer sign.Signer

	messages chan wire.Params
}

// NewClient builds a client over the given dialer. Requests are signed
// with signer before they leave the process.
func NewClient(dialer transport.Dialer, signer sign.Signer) *Client {
	return &Client{
		dialer:   dialer,
		signer:   signer,
		messages: make(chan wire.Params, 16),
	}
}

// Start connects to the node at url and begins forwarding pushed
// messages. It returns once the connection is established; the
// connection then lives until ctx is canceled or the node hangs up,
// at which point handleClosure runs and Messages() is closed.
func (c *Client) Start(ctx context.Context, url string, handleClosure func(err error)) error {
	parentCtx, cancel := context.WithCancel(ctx)
	childHandleClosure := func(err error) {
		cancel()
		handleClosure(err)
	}

	if err := c.dialer.Dial(parentCtx, url, childHandleClosure); err != nil {
		cancel()
		return err
	}

	go c.forwardMessages(parentCtx)

	return nil
}

// Messages delivers node-pushed messages. Closed when the connection
// goes away.
func (c *Client) Messages() <-chan wire.Params {
	return c.messages
}

// OpenSession joins an existing payment session.
func (c *Client) OpenSession(ctx context.Context, req wire.Params) (wire.Params, error) {
	return c.call(ctx, OpenSessionMethod, req)
}

// CreateSession establishes a new payment session with the given
// counterparties and deposit.
func (c *Client) CreateSession(ctx context.Context, req wire.Params) (wire.Params, error) {
	return c.call(ctx, CreateSessionMethod, req)
}

// CloseSession tears a session down; the node settles final balances.
func (c *Client) CloseSession(ctx context.Context, req wire.Params) (wire.Params, error) {
	return c.call(ctx, CloseSessionMethod, req)
}

// SendPayment performs an instant off-chain transfer inside a session.
func (c *Client) SendPayment(ctx context.Context, req wire.Params) (wire.Params, error) {
	return c.call(ctx, SendPaymentMethod, req)
}

func (c *Client) call(ctx context.Context, method string, reqParams wire.Params) (wire.Params, error) {
	payload := wire.NewPayload(uint64(uuid.New().ID()), method, reqParams)

	hash, err := payload.Hash()
	if err != nil {
		return nil, fmt.Errorf("failed to hash payload: %w", err)
	}
	sig, err := c.signer.Sign(hash)
	if err != nil {
		return nil, fmt.Errorf("failed to sign payload: %w", err)
	}

	req := wire.NewRequest(payload, sig)
	res, err := c.dialer.Call(ctx, &req)
	if err != nil {
		return nil, err
	}

	return res.Res.Params, res.Res.Params.Err()
}

// forwardMessages re-shapes dialer events into tagged Params messages.
// Events carrying no recognizable method are forwarded verbatim so the
// router can decide what to do with them.
func (c *Client) forwardMessages(ctx context.Context) {
	logger := log.FromContext(ctx)
	eventCh := c.dialer.EventCh()

	defer close(c.messages)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-eventCh:
			if !ok {
				return
			}
			if event == nil {
				continue
			}

			msg := make(wire.Params, len(event.Res.Params)+1)
			for k, v := range event.Res.Params {
				msg[k] = v
			}
			if !msg.Has(MessageTypeKey) {
				tagged, err := wire.NewParams(map[string]any{MessageTypeKey: event.Res.Method})
				if err != nil {
					logger.Error("failed to tag pushed message", "error", err, "method", event.Res.Method)
					continue
				}
				msg[MessageTypeKey] = tagged[MessageTypeKey]
			}

			select {
			case c.messages <- msg:
			case <-ctx.Done():
				return
			}
		}
	}
}
