package geth_test

import (
	"context"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statewire/walletcore/pkg/log"
	"github.com/statewire/walletcore/pkg/sign"
	"github.com/statewire/walletcore/pkg/wire"
	"github.com/statewire/walletcore/provider"
	"github.com/statewire/walletcore/provider/geth"
)

const (
	testPrivateKey = "fad9c8855b740a0b7ed4c221dbad0f33a83a49cad6b3fe8d5817ac83d38b6a19"

	erc20ABI = `[
		{"name":"balanceOf","type":"function","stateMutability":"view",
		 "inputs":[{"name":"owner","type":"address"}],
		 "outputs":[{"name":"","type":"uint256"}]},
		{"name":"transfer","type":"function","stateMutability":"nonpayable",
		 "inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],
		 "outputs":[{"name":"","type":"bool"}]}
	]`

	tokenAddress = "0x6B175474E89094C44Da98b954EedeAC495271d0F"
	ownerAddress = "0x96216849c49358B10257cb55b28eA603c874b05E"
)

// fakeBackend is an in-memory stand-in for an Ethereum node.
type fakeBackend struct {
	chainID    *big.Int
	callOutput []byte
	callErr    error

	sentTx  *types.Transaction
	receipt *types.Receipt
}

func (b *fakeBackend) ChainID(ctx context.Context) (*big.Int, error) {
	return b.chainID, nil
}

func (b *fakeBackend) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return b.callOutput, b.callErr
}

func (b *fakeBackend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return 7, nil
}

func (b *fakeBackend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (b *fakeBackend) EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error) {
	return 21_000, nil
}

func (b *fakeBackend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	b.sentTx = tx
	return nil
}

func (b *fakeBackend) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	if b.receipt == nil {
		return nil, ethereum.NotFound
	}
	return b.receipt, nil
}

func newTestProvider(t *testing.T, backend *fakeBackend) *geth.Provider {
	t.Helper()

	signer, err := sign.NewEthereumSigner(testPrivateKey)
	require.NoError(t, err)

	cfg := geth.DefaultConfig
	cfg.ReceiptPollInterval = 10 * time.Millisecond
	cfg.ReceiptTimeout = time.Second

	return geth.NewProvider(cfg, backend, signer, log.NewNoopLogger())
}

func TestProvider_Connect(t *testing.T) {
	p := newTestProvider(t, &fakeBackend{chainID: big.NewInt(137)})

	res, err := p.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(137), res.Uint64Or("chainId", 0))
	assert.True(t, common.IsHexAddress(res.StringOr("address", "")))
}

func TestProvider_ReadContract(t *testing.T) {
	parsed, err := abi.JSON(strings.NewReader(erc20ABI))
	require.NoError(t, err)

	balance := big.NewInt(1_500_000)
	output, err := parsed.Methods["balanceOf"].Outputs.Pack(balance)
	require.NoError(t, err)

	p := newTestProvider(t, &fakeBackend{chainID: big.NewInt(1), callOutput: output})

	req, err := wire.NewParams(map[string]any{
		"address": tokenAddress,
		"abi":     erc20ABI,
		"method":  "balanceOf",
		"args":    []any{ownerAddress},
	})
	require.NoError(t, err)

	res, err := p.ReadContract(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "1500000", res.StringOr("result", ""))
}

func TestProvider_ReadContract_InvalidArgs(t *testing.T) {
	p := newTestProvider(t, &fakeBackend{chainID: big.NewInt(1)})

	for name, req := range map[string]map[string]any{
		"bad address": {
			"address": "not-an-address",
			"abi":     erc20ABI,
			"method":  "balanceOf",
			"args":    []any{ownerAddress},
		},
		"unknown method": {
			"address": tokenAddress,
			"abi":     erc20ABI,
			"method":  "mint",
			"args":    []any{},
		},
		"arity mismatch": {
			"address": tokenAddress,
			"abi":     erc20ABI,
			"method":  "balanceOf",
			"args":    []any{},
		},
		"bad arg": {
			"address": tokenAddress,
			"abi":     erc20ABI,
			"method":  "balanceOf",
			"args":    []any{"nope"},
		},
	} {
		t.Run(name, func(t *testing.T) {
			params, err := wire.NewParams(req)
			require.NoError(t, err)

			_, err = p.ReadContract(context.Background(), params)
			assert.Error(t, err)
		})
	}
}

func TestProvider_ReadContractBatch_PartialFailure(t *testing.T) {
	parsed, err := abi.JSON(strings.NewReader(erc20ABI))
	require.NoError(t, err)
	output, err := parsed.Methods["balanceOf"].Outputs.Pack(big.NewInt(42))
	require.NoError(t, err)

	p := newTestProvider(t, &fakeBackend{chainID: big.NewInt(1), callOutput: output})

	good, err := wire.NewParams(map[string]any{
		"address": tokenAddress,
		"abi":     erc20ABI,
		"method":  "balanceOf",
		"args":    []any{ownerAddress},
	})
	require.NoError(t, err)
	bad, err := wire.NewParams(map[string]any{
		"address": "broken",
		"abi":     erc20ABI,
		"method":  "balanceOf",
		"args":    []any{ownerAddress},
	})
	require.NoError(t, err)

	res, err := p.ReadContractBatch(context.Background(), []wire.Params{good, bad})
	require.NoError(t, err)

	results := res.SliceOr("results")
	require.Len(t, results, 2)
	assert.Equal(t, "42", results[0].StringOr("result", ""))
	assert.Error(t, results[1].Err())
}

func TestProvider_WriteContract(t *testing.T) {
	backend := &fakeBackend{chainID: big.NewInt(1)}
	p := newTestProvider(t, backend)

	req, err := wire.NewParams(map[string]any{
		"address": tokenAddress,
		"abi":     erc20ABI,
		"method":  "transfer",
		"args":    []any{ownerAddress, "250"},
	})
	require.NoError(t, err)

	res, err := p.WriteContract(context.Background(), req)
	require.NoError(t, err)

	require.NotNil(t, backend.sentTx)
	assert.Equal(t, backend.sentTx.Hash().Hex(), res.StringOr("hash", ""))
	assert.Equal(t, uint64(7), backend.sentTx.Nonce())

	// The submitted transaction must recover to the signing address.
	txSigner := types.LatestSignerForChainID(big.NewInt(1))
	from, err := types.Sender(txSigner, backend.sentTx)
	require.NoError(t, err)

	signer, err := sign.NewEthereumSigner(testPrivateKey)
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), from.Hex())
}

func TestProvider_SendNativeToken_PushesReceipt(t *testing.T) {
	backend := &fakeBackend{
		chainID: big.NewInt(1),
		receipt: &types.Receipt{Status: types.ReceiptStatusSuccessful, BlockNumber: big.NewInt(1234)},
	}
	p := newTestProvider(t, backend)

	req, err := wire.NewParams(map[string]any{
		"recipient": ownerAddress,
		"amount":    "1000000000000000000",
	})
	require.NoError(t, err)

	res, err := p.SendNativeToken(context.Background(), req)
	require.NoError(t, err)
	hash := res.StringOr("hash", "")
	require.NotEmpty(t, hash)

	select {
	case notif := <-p.Notifications():
		assert.Equal(t, provider.KindTransactionUpdate, notif.Kind)
		assert.Equal(t, hash, notif.Payload.StringOr("hash", ""))
		assert.Equal(t, uint64(1), notif.Payload.Uint64Or("status", 0))
		assert.Equal(t, uint64(1234), notif.Payload.Uint64Or("blockNumber", 0))
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for receipt notification")
	}
}

func TestProvider_SendNativeToken_InvalidRequest(t *testing.T) {
	p := newTestProvider(t, &fakeBackend{chainID: big.NewInt(1)})

	req, err := wire.NewParams(map[string]any{"recipient": "bogus", "amount": "10"})
	require.NoError(t, err)
	_, err = p.SendNativeToken(context.Background(), req)
	assert.Error(t, err)

	req, err = wire.NewParams(map[string]any{"recipient": ownerAddress, "amount": "ten"})
	require.NoError(t, err)
	_, err = p.SendNativeToken(context.Background(), req)
	assert.Error(t, err)
}

func TestProvider_SignPersonalMessage(t *testing.T) {
	p := newTestProvider(t, &fakeBackend{chainID: big.NewInt(1)})

	req, err := wire.NewParams(map[string]any{"message": "hello walletcore"})
	require.NoError(t, err)

	res, err := p.SignPersonalMessage(context.Background(), req)
	require.NoError(t, err)

	sigBytes, err := hexutil.Decode(res.StringOr("signature", ""))
	require.NoError(t, err)

	recovered, err := sign.RecoverAddress(accounts.TextHash([]byte("hello walletcore")), sigBytes)
	require.NoError(t, err)

	signer, err := sign.NewEthereumSigner(testPrivateKey)
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), recovered)
}

func TestProvider_SignTypedData(t *testing.T) {
	p := newTestProvider(t, &fakeBackend{chainID: big.NewInt(1)})

	typedData := map[string]any{
		"types": map[string]any{
			"EIP712Domain": []map[string]string{
				{"name": "name", "type": "string"},
			},
			"Greeting": []map[string]string{
				{"name": "text", "type": "string"},
			},
		},
		"primaryType": "Greeting",
		"domain":      map[string]any{"name": "walletcore"},
		"message":     map[string]any{"text": "hi"},
	}

	req, err := wire.NewParams(map[string]any{"typedData": typedData})
	require.NoError(t, err)

	res, err := p.SignTypedData(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.StringOr("signature", ""), "0x"))

	_, err = p.SignTypedData(context.Background(), wire.Params{})
	assert.Error(t, err)
}

func TestProvider_GetTransactionHistory_Unsupported(t *testing.T) {
	p := newTestProvider(t, &fakeBackend{chainID: big.NewInt(1)})

	res, err := p.GetTransactionHistory(context.Background(), wire.Params{})
	require.NoError(t, err)
	require.Error(t, res.Err())
	assert.Equal(t, int64(-32601), res.IntOr("code", 0))
}
