package wallet

import (
	"context"

	"github.com/statewire/walletcore/pkg/wire"
	"github.com/statewire/walletcore/provider"
)

// Message-type tags carried by off-chain pushed messages.
const (
	offchainTypeKey = "type"

	offchainPaymentMessage          = "payment"
	offchainSessionClosedMessage    = "session_closed"
	offchainConnectionClosedMessage = "connection_closed"
)

// routeChainNotifications consumes provider-pushed events and
// reconciles them against the connection state. Runs until ctx is
// canceled or the provider closes its channel.
func (c *Client) routeChainNotifications(ctx context.Context) {
	notifications := c.chain.Notifications()

	for {
		select {
		case <-ctx.Done():
			return
		case notif, ok := <-notifications:
			if !ok {
				return
			}

			switch notif.Kind {
			case provider.KindAccountsChanged:
				c.routeAccountsChanged(ctx, notif.Payload)
			case provider.KindChainChanged:
				c.routeChainChanged(ctx, notif.Payload)
			case provider.KindTransactionUpdate:
				c.routeTransactionUpdate(ctx, notif.Payload)
			default:
				c.lg.Warn("unknown provider notification", "kind", string(notif.Kind))
			}
		}
	}
}

// routeAccountsChanged disconnects on an empty account (the wallet
// revoked access) and swaps the address otherwise.
func (c *Client) routeAccountsChanged(ctx context.Context, payload wire.Params) {
	address := payload.StringOr("address", "")
	if address == "" {
		if !c.state.IsConnected() {
			return
		}
		c.state.SetDisconnected()
		c.emitWalletDisconnected(ctx)
		return
	}

	if !c.state.IsConnected() {
		c.lg.Warn("account change while disconnected, ignoring", "address", address)
		return
	}
	c.state.SetAddress(address)
	c.emitAccountChanged(ctx, address)
}

// routeChainChanged updates the chain in place. The session stays
// connected; downstream chain context is stale until the caller invokes
// ReconnectToChain, which republishes WalletConnected.
func (c *Client) routeChainChanged(ctx context.Context, payload wire.Params) {
	chainID := payload.Uint64Or("chainId", 0)
	if chainID == 0 {
		c.lg.Warn("chain change notification without a chain id")
		return
	}

	c.state.SetChainID(chainID)
	c.emitChainChanged(ctx, chainID)
}

// routeTransactionUpdate runs the payload through the error-shape check
// first: a failure becomes TransactionFailed, anything else a full
// TransactionReceipt.
func (c *Client) routeTransactionUpdate(ctx context.Context, payload wire.Params) {
	hash := payload.StringOr("hash", "")

	if err := payload.Err(); err != nil {
		message := err.Error()
		if message == "" {
			message = defaultMessage
		}
		c.emitTransactionFailed(ctx, hash, message)
		return
	}
	if payload.Has("status") && payload.Uint64Or("status", 1) == 0 {
		c.emitTransactionFailed(ctx, hash, "transaction reverted on-chain")
		return
	}

	c.emitTransactionReceipt(ctx, payload)
}

// routeChannelMessages consumes off-chain pushed messages, dispatching
// on the message-type tag. Unrecognized types are logged and dropped so
// newer network messages never break older clients.
func (c *Client) routeChannelMessages(ctx context.Context) {
	messages := c.channels.Messages()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}

			switch msgType := msg.StringOr(offchainTypeKey, ""); msgType {
			case offchainPaymentMessage:
				c.emitPaymentReceived(ctx, PaymentInfo{
					Payer:     msg.StringOr("payer", ""),
					Payee:     msg.StringOr("payee", ""),
					Amount:    msg.StringOr("amount", "0"),
					Token:     msg.StringOr("token", ""),
					Timestamp: msg.IntOr("timestamp", 0),
					Signature: msg.StringOr("signature", ""),
				})
			case offchainSessionClosedMessage:
				c.emitSessionClosed(ctx, msg.StringOr("sessionId", ""), msg)
			case offchainConnectionClosedMessage:
				c.emitOffchainError(ctx, &OpError{
					Code:      CodeNotConnected,
					Message:   "off-chain network connection closed",
					Operation: "channel_connection",
				})
			default:
				c.lg.Warn("unrecognized off-chain message", "type", msgType)
			}
		}
	}
}
