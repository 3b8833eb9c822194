package wallet

import (
	"context"
	"fmt"

	"github.com/statewire/walletcore/pkg/wire"
)

// Off-chain operation tags.
const (
	opOpenSession   = "open_session"
	opCreateSession = "create_session"
	opCloseSession  = "close_session"
	opSendPayment   = "send_payment"
)

// OpenSession joins an existing payment session by its identifier.
// Success fires SessionCreated; failures go to the off-chain error
// channel.
func (c *Client) OpenSession(ctx context.Context, sessionID string) *OpError {
	if opErr := c.requireChannels(ctx, opOpenSession); opErr != nil {
		return opErr
	}
	if sessionID == "" {
		return c.failOffchainLocal(ctx, CodeInvalidParams, "missing session id", opOpenSession)
	}

	params, err := wire.NewParams(map[string]any{"sessionId": sessionID})
	if err != nil {
		return c.failOffchainLocal(ctx, CodeInvalidParams, err.Error(), opOpenSession)
	}
	c.metrics.OperationsTotal.WithLabelValues(opOpenSession).Inc()

	go func() {
		res, err := c.channels.OpenSession(ctx, params)
		res, ok := c.settleOffchain(ctx, opOpenSession, res, err)
		if !ok {
			return
		}
		c.emitSessionCreated(ctx, res.StringOr("sessionId", sessionID), res)
	}()

	return nil
}

// CreateSession establishes a new payment session with a counterparty,
// funding it with a smallest-unit deposit.
func (c *Client) CreateSession(ctx context.Context, counterparty, depositWei string) *OpError {
	if opErr := c.requireChannels(ctx, opCreateSession); opErr != nil {
		return opErr
	}
	if !IsValidAddress(counterparty) {
		return c.failOffchainLocal(ctx, CodeInvalidAddress,
			fmt.Sprintf("invalid counterparty address %q", counterparty), opCreateSession)
	}
	if !IsValidAmount(depositWei) {
		return c.failOffchainLocal(ctx, CodeInvalidParams,
			fmt.Sprintf("invalid deposit %q", depositWei), opCreateSession)
	}

	params, err := wire.NewParams(map[string]any{
		"counterparty": counterparty,
		"deposit":      depositWei,
	})
	if err != nil {
		return c.failOffchainLocal(ctx, CodeInvalidParams, err.Error(), opCreateSession)
	}
	c.metrics.OperationsTotal.WithLabelValues(opCreateSession).Inc()

	go func() {
		res, err := c.channels.CreateSession(ctx, params)
		res, ok := c.settleOffchain(ctx, opCreateSession, res, err)
		if !ok {
			return
		}

		sessionID := res.StringOr("sessionId", "")
		if sessionID == "" {
			c.emitOffchainError(ctx, &OpError{
				Code:      CodeUnknown,
				Message:   "network response is missing the session id",
				Operation: opCreateSession,
			})
			return
		}
		c.emitSessionCreated(ctx, sessionID, res)
	}()

	return nil
}

// CloseSession tears a session down; the network settles final
// balances. Success fires SessionClosed.
func (c *Client) CloseSession(ctx context.Context, sessionID string) *OpError {
	if opErr := c.requireChannels(ctx, opCloseSession); opErr != nil {
		return opErr
	}
	if sessionID == "" {
		return c.failOffchainLocal(ctx, CodeInvalidParams, "missing session id", opCloseSession)
	}

	params, err := wire.NewParams(map[string]any{"sessionId": sessionID})
	if err != nil {
		return c.failOffchainLocal(ctx, CodeInvalidParams, err.Error(), opCloseSession)
	}
	c.metrics.OperationsTotal.WithLabelValues(opCloseSession).Inc()

	go func() {
		res, err := c.channels.CloseSession(ctx, params)
		res, ok := c.settleOffchain(ctx, opCloseSession, res, err)
		if !ok {
			return
		}
		c.emitSessionClosed(ctx, res.StringOr("sessionId", sessionID), res)
	}()

	return nil
}

// SendPayment performs an instant off-chain transfer. Token may be
// empty for the native currency, otherwise it must be a token address.
func (c *Client) SendPayment(ctx context.Context, recipient, amountWei, token string) *OpError {
	if opErr := c.requireChannels(ctx, opSendPayment); opErr != nil {
		return opErr
	}
	if !IsValidAddress(recipient) {
		return c.failOffchainLocal(ctx, CodeInvalidAddress,
			fmt.Sprintf("invalid recipient address %q", recipient), opSendPayment)
	}
	if !IsValidAmount(amountWei) {
		return c.failOffchainLocal(ctx, CodeInvalidParams,
			fmt.Sprintf("invalid amount %q", amountWei), opSendPayment)
	}
	if token != "" && !IsValidAddress(token) {
		return c.failOffchainLocal(ctx, CodeInvalidAddress,
			fmt.Sprintf("invalid token address %q", token), opSendPayment)
	}

	fields := map[string]any{"recipient": recipient, "amount": amountWei}
	if token != "" {
		fields["token"] = token
	}
	params, err := wire.NewParams(fields)
	if err != nil {
		return c.failOffchainLocal(ctx, CodeInvalidParams, err.Error(), opSendPayment)
	}
	c.metrics.OperationsTotal.WithLabelValues(opSendPayment).Inc()

	go func() {
		res, err := c.channels.SendPayment(ctx, params)
		res, ok := c.settleOffchain(ctx, opSendPayment, res, err)
		if !ok {
			return
		}
		c.emitPaymentSent(ctx, res.StringOr("paymentId", ""), res)
	}()

	return nil
}

// requireChannels gates off-chain operations: the wallet must be
// connected and a channel provider must be wired in.
func (c *Client) requireChannels(ctx context.Context, op string) *OpError {
	if c.channels == nil {
		return c.failOffchainLocal(ctx, CodeMethodNotFound,
			"no off-chain channel provider configured", op)
	}
	if !c.state.IsConnected() {
		return c.failOffchainLocal(ctx, CodeNotConnected, canonicalMessages[CodeNotConnected], op)
	}
	return nil
}

// settleOffchain mirrors settle but reports on the off-chain error
// channel.
func (c *Client) settleOffchain(ctx context.Context, op string, res wire.Params, err error) (wire.Params, bool) {
	if opErr := normalizeOutcome(res, err, op); opErr != nil {
		c.emitOffchainError(ctx, opErr)
		return nil, false
	}
	if res == nil {
		c.lg.Warn("channel network settled without a payload", "operation", op)
		return nil, false
	}
	return res, true
}

func (c *Client) failOffchainLocal(ctx context.Context, code int64, message, op string) *OpError {
	opErr := &OpError{Code: code, Message: message, Operation: op}
	c.emitOffchainError(ctx, opErr)
	return opErr
}

func (c *Client) emitSessionCreated(ctx context.Context, sessionID string, info wire.Params) {
	c.published(SessionCreatedEvent)
	if h, ok := c.getEventHandler(SessionCreatedEvent).(SessionCreatedHandler); ok {
		h(ctx, sessionID, info)
	}
}

func (c *Client) emitSessionClosed(ctx context.Context, sessionID string, info wire.Params) {
	c.published(SessionClosedEvent)
	if h, ok := c.getEventHandler(SessionClosedEvent).(SessionClosedHandler); ok {
		h(ctx, sessionID, info)
	}
}

func (c *Client) emitPaymentSent(ctx context.Context, paymentID string, info wire.Params) {
	c.published(PaymentSentEvent)
	if h, ok := c.getEventHandler(PaymentSentEvent).(PaymentSentHandler); ok {
		h(ctx, paymentID, info)
	}
}

func (c *Client) emitPaymentReceived(ctx context.Context, payment PaymentInfo) {
	c.published(PaymentReceivedEvent)
	if h, ok := c.getEventHandler(PaymentReceivedEvent).(PaymentReceivedHandler); ok {
		h(ctx, payment)
	}
}

func (c *Client) emitOffchainError(ctx context.Context, opErr *OpError) {
	if opErr.Cancelled {
		c.lg.Info("off-chain operation cancelled by user", "operation", opErr.Operation)
		c.metrics.UserCancellations.Inc()
	} else {
		c.lg.Error("off-chain operation failed",
			"operation", opErr.Operation, "code", opErr.Code, "message", opErr.Message)
	}
	c.metrics.OperationsFailed.WithLabelValues(opErr.Operation).Inc()

	c.published(OffchainErrorEvent)
	if h, ok := c.getEventHandler(OffchainErrorEvent).(OffchainErrorHandler); ok {
		h(ctx, opErr)
	}
}
