// Package geth implements provider.ChainProvider against an Ethereum
// JSON-RPC node, signing locally with an in-process key.
//
// It covers the capabilities walletcore orchestrates: contract reads and
// writes, native transfers, message and typed-data signing. Transaction
// mining is reported asynchronously through Notifications once the node
// produces a receipt. Transaction history is not served — a bare
// JSON-RPC node keeps no per-address index — so GetTransactionHistory
// reports method-not-supported.
package geth

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/statewire/walletcore/pkg/log"
	"github.com/statewire/walletcore/pkg/sign"
	"github.com/statewire/walletcore/pkg/wire"
	"github.com/statewire/walletcore/provider"
)

// Backend is the slice of the Ethereum client this provider uses.
// *ethclient.Client satisfies it.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Config configures the provider.
type Config struct {
	// ReceiptPollInterval is how often a submitted transaction is polled
	// for its receipt.
	ReceiptPollInterval time.Duration

	// ReceiptTimeout bounds how long a transaction is watched before the
	// watcher gives up.
	ReceiptTimeout time.Duration

	// NotificationChanSize buffers pushed notifications.
	NotificationChanSize int
}

// DefaultConfig provides sensible defaults.
var DefaultConfig = Config{
	ReceiptPollInterval:  2 * time.Second,
	ReceiptTimeout:       5 * time.Minute,
	NotificationChanSize: 32,
}

var _ provider.ChainProvider = (*Provider)(nil)

// Provider implements provider.ChainProvider over an Ethereum node.
// It is safe for concurrent use.
type Provider struct {
	cfg     Config
	backend Backend
	signer  *sign.EthereumSigner
	lg      log.Logger

	notifications chan provider.Notification

	mu      sync.RWMutex // protects chainID
	chainID *big.Int
}

// NewProvider builds a provider over an already-constructed backend.
func NewProvider(cfg Config, backend Backend, signer *sign.EthereumSigner, lg log.Logger) *Provider {
	return &Provider{
		cfg:           cfg,
		backend:       backend,
		signer:        signer,
		lg:            lg.Named("geth-provider"),
		notifications: make(chan provider.Notification, cfg.NotificationChanSize),
	}
}

// DialProvider connects to the node at rawurl and builds a provider on it.
func DialProvider(ctx context.Context, cfg Config, rawurl string, signer *sign.EthereumSigner, lg log.Logger) (*Provider, error) {
	client, err := ethclient.DialContext(ctx, rawurl)
	if err != nil {
		return nil, fmt.Errorf("failed to dial ethereum node: %w", err)
	}

	return NewProvider(cfg, client, signer, lg), nil
}

// Connect reads the chain context and reports the signing address.
func (p *Provider) Connect(ctx context.Context) (wire.Params, error) {
	chainID, err := p.backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read chain id: %w", err)
	}

	p.mu.Lock()
	p.chainID = chainID
	p.mu.Unlock()

	return wire.NewParams(map[string]any{
		"address": p.signer.Address(),
		"chainId": chainID.Uint64(),
	})
}

// ReconnectToChain re-reads the chain context. With a single-node
// backend the chain never changes underneath us, but callers refresh
// after a reported chain switch regardless.
func (p *Provider) ReconnectToChain(ctx context.Context) (wire.Params, error) {
	return p.Connect(ctx)
}

// Notifications delivers receipt updates for submitted transactions.
func (p *Provider) Notifications() <-chan provider.Notification {
	return p.notifications
}

func (p *Provider) currentChainID(ctx context.Context) (*big.Int, error) {
	p.mu.RLock()
	chainID := p.chainID
	p.mu.RUnlock()
	if chainID != nil {
		return chainID, nil
	}

	chainID, err := p.backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read chain id: %w", err)
	}

	p.mu.Lock()
	p.chainID = chainID
	p.mu.Unlock()

	return chainID, nil
}

// watchReceipt polls for the transaction receipt and pushes a
// transaction_update notification once it lands. Run in a goroutine per
// submitted transaction.
func (p *Provider) watchReceipt(txHash common.Hash) {
	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.ReceiptTimeout)
	defer cancel()

	ticker := time.NewTicker(p.cfg.ReceiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := p.backend.TransactionReceipt(ctx, txHash)
		if err == nil && receipt != nil {
			p.pushReceipt(txHash, receipt)
			return
		}

		select {
		case <-ctx.Done():
			p.lg.Warn("gave up waiting for receipt", "hash", txHash.Hex())
			return
		case <-ticker.C:
		}
	}
}

func (p *Provider) pushReceipt(txHash common.Hash, receipt *types.Receipt) {
	payload, err := wire.NewParams(map[string]any{
		"hash":        txHash.Hex(),
		"status":      receipt.Status,
		"blockNumber": receipt.BlockNumber.Uint64(),
	})
	if err != nil {
		p.lg.Error("failed to encode receipt notification", "error", err, "hash", txHash.Hex())
		return
	}

	select {
	case p.notifications <- provider.Notification{Kind: provider.KindTransactionUpdate, Payload: payload}:
	default:
		p.lg.Warn("notification channel full, dropping receipt update", "hash", txHash.Hex())
	}
}
