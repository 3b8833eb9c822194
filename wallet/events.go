package wallet

import (
	"context"

	"github.com/statewire/walletcore/pkg/wire"
)

// Event names a published notification category.
type Event string

func (e Event) String() string { return string(e) }

const (
	WalletConnectedEvent         Event = "wallet_connected"
	WalletDisconnectedEvent      Event = "wallet_disconnected"
	AccountChangedEvent          Event = "account_changed"
	ChainChangedEvent            Event = "chain_changed"
	TransactionSubmittedEvent    Event = "transaction_submitted"
	TransactionReceiptEvent      Event = "transaction_receipt"
	TransactionFailedEvent       Event = "transaction_failed"
	SignatureResultEvent         Event = "signature_result"
	ContractReadResultEvent      Event = "contract_read_result"
	ContractReadBatchResultEvent Event = "contract_read_batch_result"
	HistoryReceivedEvent         Event = "history_received"
	OperationFailedEvent         Event = "operation_failed"
	SessionCreatedEvent          Event = "session_created"
	SessionClosedEvent           Event = "session_closed"
	PaymentSentEvent             Event = "payment_sent"
	PaymentReceivedEvent         Event = "payment_received"
	OffchainErrorEvent           Event = "offchain_error"
)

// PaymentInfo describes an incoming off-chain payment. Every field is
// optional on the wire; absent fields keep their zero values.
type PaymentInfo struct {
	Payer     string
	Payee     string
	Amount    string
	Token     string
	Timestamp int64
	Signature string
}

// Handler signatures, one per event. Handlers may be invoked from
// multiple goroutines and must be safe for concurrent use.
type (
	WalletConnectedHandler         func(ctx context.Context, address string, chainID uint64)
	WalletDisconnectedHandler      func(ctx context.Context)
	AccountChangedHandler          func(ctx context.Context, address string)
	ChainChangedHandler            func(ctx context.Context, chainID uint64)
	TransactionSubmittedHandler    func(ctx context.Context, hash string)
	TransactionReceiptHandler      func(ctx context.Context, receipt wire.Params)
	TransactionFailedHandler       func(ctx context.Context, hash, message string)
	SignatureResultHandler         func(ctx context.Context, signature, originalData string)
	ContractReadResultHandler      func(ctx context.Context, result wire.Params, callID string)
	ContractReadBatchResultHandler func(ctx context.Context, results []wire.Params, batchID string)
	HistoryReceivedHandler         func(ctx context.Context, transactions []TransactionRecord)
	OperationFailedHandler         func(ctx context.Context, opErr *OpError)
	SessionCreatedHandler          func(ctx context.Context, sessionID string, info wire.Params)
	SessionClosedHandler           func(ctx context.Context, sessionID string, info wire.Params)
	PaymentSentHandler             func(ctx context.Context, paymentID string, info wire.Params)
	PaymentReceivedHandler         func(ctx context.Context, payment PaymentInfo)
	OffchainErrorHandler           func(ctx context.Context, opErr *OpError)
)

// HandleWalletConnected registers a handler for successful connections.
// One handler per event; registering again replaces the previous one.
func (c *Client) HandleWalletConnected(h WalletConnectedHandler) {
	c.setEventHandler(WalletConnectedEvent, h)
}

// HandleWalletDisconnected registers a handler for session teardown,
// local or wallet-initiated.
func (c *Client) HandleWalletDisconnected(h WalletDisconnectedHandler) {
	c.setEventHandler(WalletDisconnectedEvent, h)
}

// HandleAccountChanged registers a handler for account switches.
func (c *Client) HandleAccountChanged(h AccountChangedHandler) {
	c.setEventHandler(AccountChangedEvent, h)
}

// HandleChainChanged registers a handler for chain switches.
func (c *Client) HandleChainChanged(h ChainChangedHandler) {
	c.setEventHandler(ChainChangedEvent, h)
}

// HandleTransactionSubmitted registers a handler for accepted
// submissions. Mining lands later as a receipt or failure event.
func (c *Client) HandleTransactionSubmitted(h TransactionSubmittedHandler) {
	c.setEventHandler(TransactionSubmittedEvent, h)
}

// HandleTransactionReceipt registers a handler for mined transactions.
func (c *Client) HandleTransactionReceipt(h TransactionReceiptHandler) {
	c.setEventHandler(TransactionReceiptEvent, h)
}

// HandleTransactionFailed registers a handler for on-chain failures.
func (c *Client) HandleTransactionFailed(h TransactionFailedHandler) {
	c.setEventHandler(TransactionFailedEvent, h)
}

// HandleSignatureResult registers a handler for completed signing
// operations, personal-message and typed-data alike.
func (c *Client) HandleSignatureResult(h SignatureResultHandler) {
	c.setEventHandler(SignatureResultEvent, h)
}

// HandleContractReadResult registers a handler for single reads. The
// echoed callID attributes each result to its request; completion order
// carries no meaning.
func (c *Client) HandleContractReadResult(h ContractReadResultHandler) {
	c.setEventHandler(ContractReadResultEvent, h)
}

// HandleContractReadBatchResult registers a handler for batched reads.
// Results are ordered like the requests.
func (c *Client) HandleContractReadBatchResult(h ContractReadBatchResultHandler) {
	c.setEventHandler(ContractReadBatchResultEvent, h)
}

// HandleHistoryReceived registers a handler for transaction history.
func (c *Client) HandleHistoryReceived(h HistoryReceivedHandler) {
	c.setEventHandler(HistoryReceivedEvent, h)
}

// HandleOperationFailed registers a handler for the unified failure
// channel every on-chain operation reports through.
func (c *Client) HandleOperationFailed(h OperationFailedHandler) {
	c.setEventHandler(OperationFailedEvent, h)
}

// HandleSessionCreated registers a handler for opened or created
// off-chain sessions.
func (c *Client) HandleSessionCreated(h SessionCreatedHandler) {
	c.setEventHandler(SessionCreatedEvent, h)
}

// HandleSessionClosed registers a handler for settled session teardown.
func (c *Client) HandleSessionClosed(h SessionClosedHandler) {
	c.setEventHandler(SessionClosedEvent, h)
}

// HandlePaymentSent registers a handler for completed outgoing
// off-chain payments.
func (c *Client) HandlePaymentSent(h PaymentSentHandler) {
	c.setEventHandler(PaymentSentEvent, h)
}

// HandlePaymentReceived registers a handler for incoming off-chain
// payments.
func (c *Client) HandlePaymentReceived(h PaymentReceivedHandler) {
	c.setEventHandler(PaymentReceivedEvent, h)
}

// HandleOffchainError registers a handler for the off-chain subsystem's
// failure channel, separate from the on-chain one.
func (c *Client) HandleOffchainError(h OffchainErrorHandler) {
	c.setEventHandler(OffchainErrorEvent, h)
}

func (c *Client) setEventHandler(event Event, handler any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.eventHandlers[event] = handler
}

func (c *Client) getEventHandler(event Event) any {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.eventHandlers[event]
}
