package wallet_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statewire/walletcore/pkg/wire"
	"github.com/statewire/walletcore/provider"
	"github.com/statewire/walletcore/wallet"
)

func TestRouter_ErrorShapedReceiptBecomesTransactionFailed(t *testing.T) {
	client, chain, _ := newTestClient(t)
	connect(t, client)

	type failed struct {
		hash    string
		message string
	}
	failures := make(chan failed, 1)
	client.HandleTransactionFailed(func(ctx context.Context, hash, message string) {
		failures <- failed{hash, message}
	})
	receipts := make(chan wire.Params, 1)
	client.HandleTransactionReceipt(func(ctx context.Context, receipt wire.Params) {
		receipts <- receipt
	})

	chain.push(provider.KindTransactionUpdate, map[string]any{
		"error": true, "hash": "0x1", "message": "reverted",
	})

	select {
	case ev := <-failures:
		assert.Equal(t, "0x1", ev.hash)
		assert.Equal(t, "reverted", ev.message)
	case <-time.After(eventWait):
		t.Fatal("timed out waiting for transaction_failed")
	}

	select {
	case <-receipts:
		t.Fatal("error-shaped payload must not become a receipt")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRouter_ObjectErrorReceiptBecomesTransactionFailed(t *testing.T) {
	client, chain, _ := newTestClient(t)
	connect(t, client)

	type failed struct {
		hash    string
		message string
	}
	failures := make(chan failed, 1)
	client.HandleTransactionFailed(func(ctx context.Context, hash, message string) {
		failures <- failed{hash, message}
	})
	receipts := make(chan wire.Params, 1)
	client.HandleTransactionReceipt(func(ctx context.Context, receipt wire.Params) {
		receipts <- receipt
	})

	chain.push(provider.KindTransactionUpdate, map[string]any{
		"error": map[string]any{"code": 3, "message": "reverted"}, "hash": "0x7",
	})

	select {
	case ev := <-failures:
		assert.Equal(t, "0x7", ev.hash)
		assert.Equal(t, "reverted", ev.message)
	case <-time.After(eventWait):
		t.Fatal("timed out waiting for transaction_failed")
	}

	select {
	case <-receipts:
		t.Fatal("object-valued error must not become a receipt")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRouter_MessagelessFailureReceiptGetsDefaultMessage(t *testing.T) {
	client, chain, _ := newTestClient(t)
	connect(t, client)

	messages := make(chan string, 1)
	client.HandleTransactionFailed(func(ctx context.Context, hash, message string) {
		messages <- message
	})

	chain.push(provider.KindTransactionUpdate, map[string]any{"error": true, "hash": "0x8"})

	select {
	case message := <-messages:
		assert.Equal(t, "Unknown error", message)
	case <-time.After(eventWait):
		t.Fatal("timed out waiting for transaction_failed")
	}
}

func TestRouter_MinedReceiptPassesThroughIntact(t *testing.T) {
	client, chain, _ := newTestClient(t)
	connect(t, client)

	receipts := make(chan wire.Params, 1)
	client.HandleTransactionReceipt(func(ctx context.Context, receipt wire.Params) {
		receipts <- receipt
	})

	chain.push(provider.KindTransactionUpdate, map[string]any{
		"hash": "0x2", "status": 1, "blockNumber": 99,
	})

	select {
	case receipt := <-receipts:
		assert.Equal(t, "0x2", receipt.StringOr("hash", ""))
		assert.Equal(t, uint64(99), receipt.Uint64Or("blockNumber", 0))
	case <-time.After(eventWait):
		t.Fatal("timed out waiting for transaction_receipt")
	}
}

func TestRouter_RevertedStatusBecomesTransactionFailed(t *testing.T) {
	client, chain, _ := newTestClient(t)
	connect(t, client)

	failures := make(chan string, 1)
	client.HandleTransactionFailed(func(ctx context.Context, hash, message string) {
		failures <- hash
	})

	chain.push(provider.KindTransactionUpdate, map[string]any{"hash": "0x3", "status": 0})

	select {
	case hash := <-failures:
		assert.Equal(t, "0x3", hash)
	case <-time.After(eventWait):
		t.Fatal("timed out waiting for transaction_failed")
	}
}

func TestRouter_AccountsChanged(t *testing.T) {
	client, chain, _ := newTestClient(t)
	connect(t, client)

	accounts := make(chan string, 1)
	client.HandleAccountChanged(func(ctx context.Context, address string) {
		accounts <- address
	})

	chain.push(provider.KindAccountsChanged, map[string]any{"address": otherAddr})

	select {
	case address := <-accounts:
		assert.Equal(t, otherAddr, address)
	case <-time.After(eventWait):
		t.Fatal("timed out waiting for account_changed")
	}

	state := client.State()
	assert.True(t, state.Connected)
	assert.Equal(t, otherAddr, state.Address)
}

func TestRouter_AccountsChangedToEmptyDisconnects(t *testing.T) {
	client, chain, _ := newTestClient(t)
	connect(t, client)

	disconnected := make(chan struct{}, 1)
	client.HandleWalletDisconnected(func(ctx context.Context) {
		disconnected <- struct{}{}
	})

	chain.push(provider.KindAccountsChanged, map[string]any{"address": ""})

	select {
	case <-disconnected:
	case <-time.After(eventWait):
		t.Fatal("timed out waiting for wallet_disconnected")
	}
	assert.Equal(t, wallet.ConnectionState{}, client.State())
}

func TestRouter_ChainChangedKeepsSessionUntilReconnect(t *testing.T) {
	client, chain, _ := newTestClient(t)
	connect(t, client)

	chains := make(chan uint64, 1)
	client.HandleChainChanged(func(ctx context.Context, chainID uint64) {
		chains <- chainID
	})

	chain.push(provider.KindChainChanged, map[string]any{"chainId": 137})

	select {
	case chainID := <-chains:
		assert.Equal(t, uint64(137), chainID)
	case <-time.After(eventWait):
		t.Fatal("timed out waiting for chain_changed")
	}

	// The session survives the switch with the updated chain id.
	state := client.State()
	assert.True(t, state.Connected)
	assert.Equal(t, uint64(137), state.ChainID)

	// An explicit reconnect refreshes the full chain context and
	// republishes wallet_connected.
	reconnected := make(chan uint64, 1)
	client.HandleWalletConnected(func(ctx context.Context, address string, chainID uint64) {
		reconnected <- chainID
	})
	require.Nil(t, client.ReconnectToChain(context.Background()))

	select {
	case chainID := <-reconnected:
		assert.Equal(t, uint64(1), chainID)
	case <-time.After(eventWait):
		t.Fatal("timed out waiting for reconnect")
	}
	assert.Equal(t, 1, chain.callCount("reconnect"))
}

func TestRouter_PaymentReceivedMessage(t *testing.T) {
	client, _, channels := newTestClient(t)
	connect(t, client)

	payments := make(chan wallet.PaymentInfo, 1)
	client.HandlePaymentReceived(func(ctx context.Context, payment wallet.PaymentInfo) {
		payments <- payment
	})

	channels.push(map[string]any{
		"type":      "payment",
		"payer":     otherAddr,
		"payee":     walletAddr,
		"amount":    "500",
		"timestamp": 1700000000,
	})

	select {
	case payment := <-payments:
		assert.Equal(t, otherAddr, payment.Payer)
		assert.Equal(t, walletAddr, payment.Payee)
		assert.Equal(t, "500", payment.Amount)
		assert.Equal(t, int64(1700000000), payment.Timestamp)
		// Absent fields keep their defaults.
		assert.Empty(t, payment.Token)
		assert.Empty(t, payment.Signature)
	case <-time.After(eventWait):
		t.Fatal("timed out waiting for payment_received")
	}
}

func TestRouter_ConnectionClosedMessage(t *testing.T) {
	client, _, channels := newTestClient(t)
	connect(t, client)

	errors := make(chan *wallet.OpError, 1)
	client.HandleOffchainError(func(ctx context.Context, opErr *wallet.OpError) {
		errors <- opErr
	})

	channels.push(map[string]any{"type": "connection_closed"})

	select {
	case opErr := <-errors:
		assert.Equal(t, wallet.CodeNotConnected, opErr.Code)
	case <-time.After(eventWait):
		t.Fatal("timed out waiting for offchain_error")
	}
}

func TestRouter_UnrecognizedMessageIsDropped(t *testing.T) {
	client, _, channels := newTestClient(t)
	connect(t, client)

	payments := make(chan wallet.PaymentInfo, 1)
	client.HandlePaymentReceived(func(ctx context.Context, payment wallet.PaymentInfo) {
		payments <- payment
	})
	errors := make(chan *wallet.OpError, 1)
	client.HandleOffchainError(func(ctx context.Context, opErr *wallet.OpError) {
		errors <- opErr
	})

	channels.push(map[string]any{"type": "future_thing", "data": "x"})

	select {
	case <-payments:
		t.Fatal("unrecognized message produced a payment event")
	case <-errors:
		t.Fatal("unrecognized message produced an error event")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRouter_SessionClosedMessage(t *testing.T) {
	client, _, channels := newTestClient(t)
	connect(t, client)

	sessions := make(chan string, 1)
	client.HandleSessionClosed(func(ctx context.Context, sessionID string, info wire.Params) {
		sessions <- sessionID
	})

	channels.push(map[string]any{"type": "session_closed", "sessionId": "sess-9"})

	select {
	case sessionID := <-sessions:
		assert.Equal(t, "sess-9", sessionID)
	case <-time.After(eventWait):
		t.Fatal("timed out waiting for session_closed")
	}
}
