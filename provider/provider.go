// Package provider declares the external capabilities walletcore
// orchestrates: a chain provider performing wallet and contract
// operations, and a channel provider speaking to the off-chain payment
// network. Both are opaque to the core beyond these contracts.
//
// Every request and result crosses the boundary as wire.Params — plain
// string-keyed data. A provider may report failure two ways: a Go error
// (the call never produced a result) or a result carrying a truthy
// "error" field, possibly with "code", "message" and "operationId".
// The core's normalizer accepts both shapes; implementations should not
// try to be cleverer than that.
package provider

import (
	"context"

	"github.com/statewire/walletcore/pkg/wire"
)

// NotificationKind tags a provider-pushed notification that no local call
// triggered.
type NotificationKind string

const (
	// KindAccountsChanged fires when the active account switches or the
	// wallet revokes access (empty address payload).
	KindAccountsChanged NotificationKind = "accounts_changed"
	// KindChainChanged fires when the wallet switches chains.
	KindChainChanged NotificationKind = "chain_changed"
	// KindTransactionUpdate delivers a mined receipt or an on-chain
	// failure for a previously submitted transaction.
	KindTransactionUpdate NotificationKind = "transaction_update"
)

// Notification is a provider-pushed event, delivered at arbitrary times
// relative to in-flight calls.
type Notification struct {
	Kind    NotificationKind
	Payload wire.Params
}

// ChainProvider is the injected wallet/blockchain capability.
// Calls block until the provider settles; the context bounds the wait.
// Results are loosely typed and must be read defensively.
type ChainProvider interface {
	// Connect requests wallet access. A successful result carries
	// "address" and "chainId".
	Connect(ctx context.Context) (wire.Params, error)

	// ReconnectToChain re-reads the live chain context after a chain
	// switch. Result shape matches Connect.
	ReconnectToChain(ctx context.Context) (wire.Params, error)

	// ReadContract performs a read-only contract call.
	ReadContract(ctx context.Context, req wire.Params) (wire.Params, error)

	// ReadContractBatch performs several read-only calls; the result's
	// "results" sequence is ordered like the request sequence.
	ReadContractBatch(ctx context.Context, reqs []wire.Params) (wire.Params, error)

	// WriteContract submits a state-changing contract call. The result
	// carries the submission "hash"; mining lands later as a
	// KindTransactionUpdate notification.
	WriteContract(ctx context.Context, req wire.Params) (wire.Params, error)

	// SendNativeToken transfers native currency. Result shape matches
	// WriteContract.
	SendNativeToken(ctx context.Context, req wire.Params) (wire.Params, error)

	// SignPersonalMessage signs an arbitrary message; the result carries
	// "signature".
	SignPersonalMessage(ctx context.Context, req wire.Params) (wire.Params, error)

	// SignTypedData signs canonically-serialized typed data; the result
	// carries "signature".
	SignTypedData(ctx context.Context, req wire.Params) (wire.Params, error)

	// GetTransactionHistory lists past transactions for an address under
	// a "transactions" sequence whose record fields are all optional.
	GetTransactionHistory(ctx context.Context, req wire.Params) (wire.Params, error)

	// Notifications delivers provider-pushed events. The channel is
	// owned by the provider and closed when the provider shuts down.
	Notifications() <-chan Notification
}

// ChannelProvider is the injected off-chain payment-network capability.
type ChannelProvider interface {
	// OpenSession joins an existing payment session.
	OpenSession(ctx context.Context, req wire.Params) (wire.Params, error)

	// CreateSession establishes a new payment session; the result
	// carries "sessionId".
	CreateSession(ctx context.Context, req wire.Params) (wire.Params, error)

	// CloseSession tears a session down and settles final balances.
	CloseSession(ctx context.Context, req wire.Params) (wire.Params, error)

	// SendPayment performs an instant off-chain transfer; the result
	// carries "paymentId".
	SendPayment(ctx context.Context, req wire.Params) (wire.Params, error)

	// Messages delivers network-pushed messages (incoming payments,
	// connection teardown). Each payload carries a "type" tag.
	Messages() <-chan wire.Params
}
