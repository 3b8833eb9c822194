// Package wallet is the request/response correlation and
// state-reconciliation engine between an application and an injected
// wallet/blockchain provider, plus an off-chain payment-channel
// provider.
//
// The Client owns the connection state machine, dispatches asynchronous
// operations against the providers, normalizes their heterogeneous
// failure shapes into one taxonomy, and republishes every outcome as a
// typed event. Unsolicited provider pushes (account switch, chain
// switch, mined receipts, off-chain messages) are reconciled against
// current state by the same client.
//
// Operations validate their inputs synchronously and return an *OpError
// before any provider round-trip when validation fails; the same
// failure is also published on the unified failure channel, so event
// listeners see every failure regardless of origin. Settlement outcomes
// arrive exclusively through registered handlers. Completion order
// carries no meaning — concurrent operations are attributed by the
// correlation identifiers echoed in their events.
package wallet

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/statewire/walletcore/pkg/log"
	"github.com/statewire/walletcore/pkg/wire"
	"github.com/statewire/walletcore/provider"
)

// Operation tags carried by failures and metrics.
const (
	opConnect     = "connect"
	opDisconnect  = "disconnect"
	opReconnect   = "reconnect_to_chain"
	opRead        = "read_contract"
	opReadBatch   = "read_contract_batch"
	opWrite       = "write_contract"
	opSendNative  = "send_native_token"
	opSignMessage = "sign_personal_message"
	opSignTyped   = "sign_typed_data"
	opHistory     = "get_transaction_history"
)

// ContractRequest describes one contract call. Write marks a
// state-changing call; Value is an optional native amount in wei that
// only applies to writes.
type ContractRequest struct {
	Address string
	ABI     string
	Method  string
	Args    []any
	CallID  string
	Write   bool
	Value   string
}

// ClientConfig wires a Client together.
type ClientConfig struct {
	Chain    provider.ChainProvider
	Channels provider.ChannelProvider
	Logger   log.Logger

	// Metrics is optional; when nil a private registry is used so
	// multiple clients never collide on registration.
	Metrics *Metrics
}

// Client is the orchestration core. It is safe for concurrent use.
// Event handlers run on the goroutine that settled the operation.
type Client struct {
	chain    provider.ChainProvider
	channels provider.ChannelProvider
	lg       log.Logger
	metrics  *Metrics
	state    *connState

	eventHandlers map[Event]any
	mu            sync.RWMutex // protects eventHandlers
}

// NewClient builds a client. cfg.Chain is required; cfg.Channels may be
// nil when the off-chain subsystem is unused.
func NewClient(cfg ClientConfig) *Client {
	lg := cfg.Logger
	if lg == nil {
		lg = log.NewNoopLogger()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = NewMetricsWithRegistry(prometheus.NewRegistry())
	}

	return &Client{
		chain:         cfg.Chain,
		channels:      cfg.Channels,
		lg:            lg.Named("wallet"),
		metrics:       metrics,
		state:         newConnState(),
		eventHandlers: make(map[Event]any),
	}
}

// Start begins routing unsolicited provider notifications. It returns
// immediately; routing stops when ctx is canceled.
func (c *Client) Start(ctx context.Context) {
	go c.routeChainNotifications(ctx)
	if c.channels != nil {
		go c.routeChannelMessages(ctx)
	}
}

// State returns a consistent snapshot of the connection state.
func (c *Client) State() ConnectionState {
	return c.state.Snapshot()
}

// ConnectWallet requests wallet access. On success the state machine
// transitions to connected and exactly one WalletConnected event fires.
func (c *Client) ConnectWallet(ctx context.Context) {
	c.metrics.OperationsTotal.WithLabelValues(opConnect).Inc()

	go func() {
		res, err := c.chain.Connect(ctx)
		c.settleConnect(ctx, opConnect, res, err)
	}()
}

// ReconnectToChain re-reads the live chain context after a chain
// switch and republishes WalletConnected with the refreshed fields.
func (c *Client) ReconnectToChain(ctx context.Context) *OpError {
	if opErr := c.requireConnected(ctx, opReconnect); opErr != nil {
		return opErr
	}
	c.metrics.OperationsTotal.WithLabelValues(opReconnect).Inc()

	go func() {
		res, err := c.chain.ReconnectToChain(ctx)
		c.settleConnect(ctx, opReconnect, res, err)
	}()

	return nil
}

func (c *Client) settleConnect(ctx context.Context, op string, res wire.Params, err error) {
	res, ok := c.settle(ctx, op, res, err)
	if !ok {
		return
	}

	address := res.StringOr("address", "")
	chainID := res.Uint64Or("chainId", 0)
	if !IsValidAddress(address) || chainID == 0 {
		// Settled, but unusable for the connected transition.
		c.emitOperationFailed(ctx, &OpError{
			Code:      CodeUnknown,
			Message:   "provider response is missing address or chain id",
			Operation: op,
		})
		return
	}

	c.state.SetConnected(address, chainID)
	c.emitWalletConnected(ctx, address, chainID)
}

// DisconnectWallet tears the local session down. It does not command
// the external wallet; the provider session is simply forgotten.
func (c *Client) DisconnectWallet(ctx context.Context) {
	c.metrics.OperationsTotal.WithLabelValues(opDisconnect).Inc()

	if !c.state.IsConnected() {
		return
	}

	c.state.SetDisconnected()
	c.emitWalletDisconnected(ctx)
}

// CallContract dispatches a single contract call. Reads settle into a
// ContractReadResult event echoing the request's CallID; writes settle
// into TransactionSubmitted, with mining reported later through the
// receipt events.
func (c *Client) CallContract(ctx context.Context, req ContractRequest) *OpError {
	op := opRead
	if req.Write {
		op = opWrite
	}

	if opErr := c.requireConnected(ctx, op); opErr != nil {
		return opErr
	}
	if opErr := c.validateContractRequest(ctx, req, op); opErr != nil {
		return opErr
	}

	params, err := contractRequestParams(req)
	if err != nil {
		return c.failLocal(ctx, CodeInvalidParams, err.Error(), op)
	}
	c.metrics.OperationsTotal.WithLabelValues(op).Inc()

	go func() {
		if req.Write {
			res, err := c.chain.WriteContract(ctx, params)
			c.settleSubmission(ctx, op, res, err)
			return
		}

		res, err := c.chain.ReadContract(ctx, params)
		res, ok := c.settle(ctx, op, res, err)
		if !ok {
			return
		}
		c.emitContractReadResult(ctx, res, req.CallID)
	}()

	return nil
}

// CallContractBatch dispatches an ordered batch of reads in one
// provider call. An empty batch or any invalid element fails the whole
// batch locally; no provider call is issued. Results arrive in request
// order alongside batchID.
func (c *Client) CallContractBatch(ctx context.Context, reqs []ContractRequest, batchID string) *OpError {
	if len(reqs) == 0 {
		return c.failLocal(ctx, CodeInvalidParams, "empty batch", opReadBatch)
	}

	if opErr := c.requireConnected(ctx, opReadBatch); opErr != nil {
		return opErr
	}

	batch := make([]wire.Params, len(reqs))
	for i, req := range reqs {
		if req.Write {
			return c.failLocal(ctx, CodeInvalidParams,
				fmt.Sprintf("batch element %d is a write", i), opReadBatch)
		}
		if opErr := c.validateContractRequest(ctx, req, opReadBatch); opErr != nil {
			return opErr
		}
		params, err := contractRequestParams(req)
		if err != nil {
			return c.failLocal(ctx, CodeInvalidParams, err.Error(), opReadBatch)
		}
		batch[i] = params
	}
	c.metrics.OperationsTotal.WithLabelValues(opReadBatch).Inc()

	go func() {
		res, err := c.chain.ReadContractBatch(ctx, batch)
		res, ok := c.settle(ctx, opReadBatch, res, err)
		if !ok {
			return
		}
		c.emitContractReadBatchResult(ctx, res.SliceOr("results"), batchID)
	}()

	return nil
}

// SendNativeToken transfers native currency. The amount is a wei
// string; both inputs are validated before any provider round-trip.
func (c *Client) SendNativeToken(ctx context.Context, to, amountWei string) *OpError {
	if opErr := c.requireConnected(ctx, opSendNative); opErr != nil {
		return opErr
	}
	if !IsValidAddress(to) {
		return c.failLocal(ctx, CodeInvalidAddress,
			fmt.Sprintf("invalid recipient address %q", to), opSendNative)
	}
	if !IsValidAmount(amountWei) {
		return c.failLocal(ctx, CodeInvalidParams,
			fmt.Sprintf("invalid amount %q", amountWei), opSendNative)
	}

	params, err := wire.NewParams(map[string]any{"recipient": to, "amount": amountWei})
	if err != nil {
		return c.failLocal(ctx, CodeInvalidParams, err.Error(), opSendNative)
	}
	c.metrics.OperationsTotal.WithLabelValues(opSendNative).Inc()

	go func() {
		res, err := c.chain.SendNativeToken(ctx, params)
		c.settleSubmission(ctx, opSendNative, res, err)
	}()

	return nil
}

// SignPersonalMessage signs an arbitrary message. The settle event
// carries both the signature and the original message.
func (c *Client) SignPersonalMessage(ctx context.Context, message string) *OpError {
	if opErr := c.requireConnected(ctx, opSignMessage); opErr != nil {
		return opErr
	}

	params, err := wire.NewParams(map[string]any{"message": message})
	if err != nil {
		return c.failLocal(ctx, CodeInvalidParams, err.Error(), opSignMessage)
	}
	c.metrics.OperationsTotal.WithLabelValues(opSignMessage).Inc()

	go func() {
		res, err := c.chain.SignPersonalMessage(ctx, params)
		c.settleSignature(ctx, opSignMessage, message, res, err)
	}()

	return nil
}

// SignTypedData signs a typed structure. The structured inputs are
// serialized to one canonical JSON encoding before transmission, and
// that encoding is echoed as the event's original data.
func (c *Client) SignTypedData(ctx context.Context, domain, types, value map[string]any, primaryType string) *OpError {
	if opErr := c.requireConnected(ctx, opSignTyped); opErr != nil {
		return opErr
	}
	if primaryType == "" {
		return c.failLocal(ctx, CodeInvalidParams, "missing primary type", opSignTyped)
	}

	typedData := map[string]any{
		"types":       types,
		"primaryType": primaryType,
		"domain":      domain,
		"message":     value,
	}
	canonical, err := json.Marshal(typedData)
	if err != nil {
		return c.failLocal(ctx, CodeInvalidParams,
			fmt.Sprintf("typed data is not serializable: %v", err), opSignTyped)
	}

	params, err := wire.NewParams(map[string]any{"typedData": json.RawMessage(canonical)})
	if err != nil {
		return c.failLocal(ctx, CodeInvalidParams, err.Error(), opSignTyped)
	}
	c.metrics.OperationsTotal.WithLabelValues(opSignTyped).Inc()

	go func() {
		res, err := c.chain.SignTypedData(ctx, params)
		c.settleSignature(ctx, opSignTyped, string(canonical), res, err)
	}()

	return nil
}

// GetTransactionHistory fetches past transactions for an address. The
// settle event carries a normalized record sequence; individually
// missing record fields become zero values, never a batch failure.
func (c *Client) GetTransactionHistory(ctx context.Context, address string) *OpError {
	if opErr := c.requireConnected(ctx, opHistory); opErr != nil {
		return opErr
	}
	if !IsValidAddress(address) {
		return c.failLocal(ctx, CodeInvalidAddress,
			fmt.Sprintf("invalid address %q", address), opHistory)
	}

	params, err := wire.NewParams(map[string]any{"address": address})
	if err != nil {
		return c.failLocal(ctx, CodeInvalidParams, err.Error(), opHistory)
	}
	c.metrics.OperationsTotal.WithLabelValues(opHistory).Inc()

	go func() {
		res, err := c.chain.GetTransactionHistory(ctx, params)
		res, ok := c.settle(ctx, opHistory, res, err)
		if !ok {
			return
		}
		c.emitHistoryReceived(ctx, normalizeHistory(res))
	}()

	return nil
}

// settle classifies a settled provider call. False means nothing
// further should happen: either a failure was published, or the
// provider produced no payload (a logged anomaly, not an error).
func (c *Client) settle(ctx context.Context, op string, res wire.Params, err error) (wire.Params, bool) {
	if opErr := normalizeOutcome(res, err, op); opErr != nil {
		c.emitOperationFailed(ctx, opErr)
		return nil, false
	}
	if res == nil {
		c.lg.Warn("provider settled without a payload", "operation", op)
		return nil, false
	}
	return res, true
}

func (c *Client) settleSubmission(ctx context.Context, op string, res wire.Params, err error) {
	res, ok := c.settle(ctx, op, res, err)
	if !ok {
		return
	}

	hash := res.StringOr("hash", "")
	if hash == "" {
		c.emitOperationFailed(ctx, &OpError{
			Code:      CodeUnknown,
			Message:   "provider response is missing the transaction hash",
			Operation: op,
		})
		return
	}
	c.emitTransactionSubmitted(ctx, hash)
}

func (c *Client) settleSignature(ctx context.Context, op, originalData string, res wire.Params, err error) {
	res, ok := c.settle(ctx, op, res, err)
	if !ok {
		return
	}

	signature := res.StringOr("signature", "")
	if signature == "" {
		c.emitOperationFailed(ctx, &OpError{
			Code:      CodeUnknown,
			Message:   "provider response is missing the signature",
			Operation: op,
		})
		return
	}
	c.emitSignatureResult(ctx, signature, originalData)
}

func (c *Client) validateContractRequest(ctx context.Context, req ContractRequest, op string) *OpError {
	if !IsValidAddress(req.Address) {
		return c.failLocal(ctx, CodeInvalidAddress,
			fmt.Sprintf("invalid contract address %q", req.Address), op)
	}
	if req.ABI == "" {
		return c.failLocal(ctx, CodeInvalidParams, "missing contract abi", op)
	}
	if req.Method == "" {
		return c.failLocal(ctx, CodeInvalidParams, "missing method name", op)
	}
	if req.Value != "" {
		if !req.Write {
			return c.failLocal(ctx, CodeInvalidParams, "value is only valid on writes", op)
		}
		if !IsValidAmount(req.Value) {
			return c.failLocal(ctx, CodeInvalidParams,
				fmt.Sprintf("invalid value amount %q", req.Value), op)
		}
	}
	return nil
}

func contractRequestParams(req ContractRequest) (wire.Params, error) {
	args := req.Args
	if args == nil {
		args = []any{}
	}

	fields := map[string]any{
		"address": req.Address,
		"abi":     req.ABI,
		"method":  req.Method,
		"args":    args,
		"callId":  req.CallID,
	}
	if req.Write && req.Value != "" {
		fields["value"] = req.Value
	}
	return wire.NewParams(fields)
}

// requireConnected gates every provider-bound operation; the violation
// is reported synchronously without a provider round-trip.
func (c *Client) requireConnected(ctx context.Context, op string) *OpError {
	if c.state.IsConnected() {
		return nil
	}
	return c.failLocal(ctx, CodeNotConnected, canonicalMessages[CodeNotConnected], op)
}

// failLocal publishes a locally-detected failure on the unified failure
// channel and returns it to the caller.
func (c *Client) failLocal(ctx context.Context, code int64, message, op string) *OpError {
	opErr := &OpError{Code: code, Message: message, Operation: op}
	c.emitOperationFailed(ctx, opErr)
	return opErr
}

func (c *Client) emitWalletConnected(ctx context.Context, address string, chainID uint64) {
	c.published(WalletConnectedEvent)
	if h, ok := c.getEventHandler(WalletConnectedEvent).(WalletConnectedHandler); ok {
		h(ctx, address, chainID)
	}
}

func (c *Client) emitWalletDisconnected(ctx context.Context) {
	c.published(WalletDisconnectedEvent)
	if h, ok := c.getEventHandler(WalletDisconnectedEvent).(WalletDisconnectedHandler); ok {
		h(ctx)
	}
}

func (c *Client) emitAccountChanged(ctx context.Context, address string) {
	c.published(AccountChangedEvent)
	if h, ok := c.getEventHandler(AccountChangedEvent).(AccountChangedHandler); ok {
		h(ctx, address)
	}
}

func (c *Client) emitChainChanged(ctx context.Context, chainID uint64) {
	c.published(ChainChangedEvent)
	if h, ok := c.getEventHandler(ChainChangedEvent).(ChainChangedHandler); ok {
		h(ctx, chainID)
	}
}

func (c *Client) emitTransactionSubmitted(ctx context.Context, hash string) {
	c.published(TransactionSubmittedEvent)
	if h, ok := c.getEventHandler(TransactionSubmittedEvent).(TransactionSubmittedHandler); ok {
		h(ctx, hash)
	}
}

func (c *Client) emitTransactionReceipt(ctx context.Context, receipt wire.Params) {
	c.published(TransactionReceiptEvent)
	if h, ok := c.getEventHandler(TransactionReceiptEvent).(TransactionReceiptHandler); ok {
		h(ctx, receipt)
	}
}

func (c *Client) emitTransactionFailed(ctx context.Context, hash, message string) {
	c.published(TransactionFailedEvent)
	if h, ok := c.getEventHandler(TransactionFailedEvent).(TransactionFailedHandler); ok {
		h(ctx, hash, message)
	}
}

func (c *Client) emitSignatureResult(ctx context.Context, signature, originalData string) {
	c.published(SignatureResultEvent)
	if h, ok := c.getEventHandler(SignatureResultEvent).(SignatureResultHandler); ok {
		h(ctx, signature, originalData)
	}
}

func (c *Client) emitContractReadResult(ctx context.Context, result wire.Params, callID string) {
	c.published(ContractReadResultEvent)
	if h, ok := c.getEventHandler(ContractReadResultEvent).(ContractReadResultHandler); ok {
		h(ctx, result, callID)
	}
}

func (c *Client) emitContractReadBatchResult(ctx context.Context, results []wire.Params, batchID string) {
	c.published(ContractReadBatchResultEvent)
	if h, ok := c.getEventHandler(ContractReadBatchResultEvent).(ContractReadBatchResultHandler); ok {
		h(ctx, results, batchID)
	}
}

func (c *Client) emitHistoryReceived(ctx context.Context, transactions []TransactionRecord) {
	c.published(HistoryReceivedEvent)
	if h, ok := c.getEventHandler(HistoryReceivedEvent).(HistoryReceivedHandler); ok {
		h(ctx, transactions)
	}
}

func (c *Client) emitOperationFailed(ctx context.Context, opErr *OpError) {
	if opErr.Cancelled {
		c.lg.Info("operation cancelled by user", "operation", opErr.Operation)
		c.metrics.UserCancellations.Inc()
	} else {
		c.lg.Error("operation failed",
			"operation", opErr.Operation, "code", opErr.Code, "message", opErr.Message)
	}
	c.metrics.OperationsFailed.WithLabelValues(opErr.Operation).Inc()

	c.published(OperationFailedEvent)
	if h, ok := c.getEventHandler(OperationFailedEvent).(OperationFailedHandler); ok {
		h(ctx, opErr)
	}
}

func (c *Client) published(event Event) {
	c.metrics.EventsPublished.WithLabelValues(string(event)).Inc()
}
