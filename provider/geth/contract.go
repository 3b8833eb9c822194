package geth

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/statewire/walletcore/pkg/wire"
)

// ReadContract performs an eth_call. The request carries "address", the
// contract "abi" (JSON fragment), the "method" name and its "args".
func (p *Provider) ReadContract(ctx context.Context, req wire.Params) (wire.Params, error) {
	parsed, callMsg, err := p.buildCall(req)
	if err != nil {
		return nil, err
	}

	output, err := p.backend.CallContract(ctx, callMsg, nil)
	if err != nil {
		return nil, fmt.Errorf("contract call failed: %w", err)
	}

	method := req.StringOr("method", "")
	values, err := parsed.Unpack(method, output)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s output: %w", method, err)
	}

	results := make([]any, len(values))
	for i, v := range values {
		results[i] = formatValue(v)
	}

	fields := map[string]any{"results": results}
	if len(results) > 0 {
		fields["result"] = results[0]
	}

	return wire.NewParams(fields)
}

// ReadContractBatch performs several eth_calls. Per-call failures land
// inside the corresponding result entry instead of failing the batch.
func (p *Provider) ReadContractBatch(ctx context.Context, reqs []wire.Params) (wire.Params, error) {
	results := make([]wire.Params, len(reqs))
	for i, req := range reqs {
		res, err := p.ReadContract(ctx, req)
		if err != nil {
			res = wire.NewErrorParams(err.Error())
		}
		results[i] = res
	}

	return wire.NewParams(map[string]any{"results": results})
}

// WriteContract submits a state-changing call. The result carries the
// submission "hash"; the receipt lands later as a notification.
func (p *Provider) WriteContract(ctx context.Context, req wire.Params) (wire.Params, error) {
	_, callMsg, err := p.buildCall(req)
	if err != nil {
		return nil, err
	}

	value := new(big.Int)
	if raw := req.StringOr("value", ""); raw != "" {
		if _, ok := value.SetString(raw, 10); !ok {
			return nil, fmt.Errorf("invalid value amount %q", raw)
		}
	}
	callMsg.Value = value

	txHash, err := p.signAndSend(ctx, callMsg.To, value, callMsg.Data)
	if err != nil {
		return nil, err
	}

	return wire.NewParams(map[string]any{"hash": txHash.Hex()})
}

// SendNativeToken transfers native currency. The request carries
// "recipient" and the "amount" in wei.
func (p *Provider) SendNativeToken(ctx context.Context, req wire.Params) (wire.Params, error) {
	recipient := req.StringOr("recipient", "")
	if !common.IsHexAddress(recipient) {
		return nil, fmt.Errorf("invalid recipient address %q", recipient)
	}
	to := common.HexToAddress(recipient)

	amount, ok := new(big.Int).SetString(req.StringOr("amount", ""), 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", req.StringOr("amount", ""))
	}

	txHash, err := p.signAndSend(ctx, &to, amount, nil)
	if err != nil {
		return nil, err
	}

	return wire.NewParams(map[string]any{"hash": txHash.Hex()})
}

// GetTransactionHistory is not served by a bare JSON-RPC node: there is
// no per-address transaction index to query. The failure comes back
// error-shaped so callers normalize it like any other provider failure.
func (p *Provider) GetTransactionHistory(ctx context.Context, req wire.Params) (wire.Params, error) {
	return wire.NewParams(map[string]any{
		"error":   true,
		"code":    -32601,
		"message": "transaction history is not supported by this provider",
	})
}

// buildCall parses the request's ABI and packs the call data.
func (p *Provider) buildCall(req wire.Params) (abi.ABI, ethereum.CallMsg, error) {
	address := req.StringOr("address", "")
	if !common.IsHexAddress(address) {
		return abi.ABI{}, ethereum.CallMsg{}, fmt.Errorf("invalid contract address %q", address)
	}
	to := common.HexToAddress(address)

	parsed, err := abi.JSON(strings.NewReader(req.StringOr("abi", "")))
	if err != nil {
		return abi.ABI{}, ethereum.CallMsg{}, fmt.Errorf("failed to parse contract abi: %w", err)
	}

	methodName := req.StringOr("method", "")
	method, exists := parsed.Methods[methodName]
	if !exists {
		return abi.ABI{}, ethereum.CallMsg{}, fmt.Errorf("method %q not present in abi", methodName)
	}

	rawArgs := req.RawSliceOr("args")
	if len(rawArgs) != len(method.Inputs) {
		return abi.ABI{}, ethereum.CallMsg{}, fmt.Errorf("method %q wants %d args, got %d",
			methodName, len(method.Inputs), len(rawArgs))
	}

	args := make([]any, len(rawArgs))
	for i, raw := range rawArgs {
		arg, err := convertArg(method.Inputs[i].Type, raw)
		if err != nil {
			return abi.ABI{}, ethereum.CallMsg{}, fmt.Errorf("arg %d of %s: %w", i, methodName, err)
		}
		args[i] = arg
	}

	data, err := parsed.Pack(methodName, args...)
	if err != nil {
		return abi.ABI{}, ethereum.CallMsg{}, fmt.Errorf("failed to pack %s call: %w", methodName, err)
	}

	from := common.HexToAddress(p.signer.Address())
	return parsed, ethereum.CallMsg{From: from, To: &to, Data: data}, nil
}

// signAndSend builds, signs and submits a transaction, then starts a
// receipt watcher for it.
func (p *Provider) signAndSend(ctx context.Context, to *common.Address, value *big.Int, data []byte) (common.Hash, error) {
	from := common.HexToAddress(p.signer.Address())

	nonce, err := p.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to read nonce: %w", err)
	}

	gasPrice, err := p.backend.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to suggest gas price: %w", err)
	}

	gas, err := p.backend.EstimateGas(ctx, ethereum.CallMsg{From: from, To: to, Value: value, Data: data})
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to estimate gas: %w", err)
	}

	chainID, err := p.currentChainID(ctx)
	if err != nil {
		return common.Hash{}, err
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       to,
		Value:    value,
		Gas:      gas,
		GasPrice: gasPrice,
		Data:     data,
	})

	txSigner := types.LatestSignerForChainID(chainID)
	sig, err := p.signer.Sign(txSigner.Hash(tx).Bytes())
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to sign transaction: %w", err)
	}
	// WithSignature wants the raw 0/1 recovery id.
	rawSig := make([]byte, len(sig))
	copy(rawSig, sig)
	if rawSig[64] >= 27 {
		rawSig[64] -= 27
	}

	signedTx, err := tx.WithSignature(txSigner, rawSig)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to attach signature: %w", err)
	}

	if err := p.backend.SendTransaction(ctx, signedTx); err != nil {
		return common.Hash{}, fmt.Errorf("failed to send transaction: %w", err)
	}

	go p.watchReceipt(signedTx.Hash())

	return signedTx.Hash(), nil
}

// convertArg turns a JSON-encoded argument into the Go value abi.Pack
// expects for the given ABI type. Numbers may arrive as JSON numbers or
// decimal strings.
func convertArg(t abi.Type, raw json.RawMessage) (any, error) {
	switch t.T {
	case abi.AddressTy:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("address argument must be a string: %w", err)
		}
		if !common.IsHexAddress(s) {
			return nil, fmt.Errorf("invalid address %q", s)
		}
		return common.HexToAddress(s), nil

	case abi.UintTy, abi.IntTy:
		n, err := decodeBigInt(raw)
		if err != nil {
			return nil, err
		}
		switch t.Size {
		case 8:
			if t.T == abi.IntTy {
				return int8(n.Int64()), nil
			}
			return uint8(n.Uint64()), nil
		case 16:
			if t.T == abi.IntTy {
				return int16(n.Int64()), nil
			}
			return uint16(n.Uint64()), nil
		case 32:
			if t.T == abi.IntTy {
				return int32(n.Int64()), nil
			}
			return uint32(n.Uint64()), nil
		case 64:
			if t.T == abi.IntTy {
				return n.Int64(), nil
			}
			return n.Uint64(), nil
		default:
			return n, nil
		}

	case abi.BoolTy:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, fmt.Errorf("bool argument must be a boolean: %w", err)
		}
		return b, nil

	case abi.StringTy:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("string argument must be a string: %w", err)
		}
		return s, nil

	case abi.BytesTy:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("bytes argument must be a hex string: %w", err)
		}
		return hexutil.Decode(s)

	case abi.FixedBytesTy:
		if t.Size != 32 {
			return nil, fmt.Errorf("unsupported fixed bytes size %d", t.Size)
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("bytes32 argument must be a hex string: %w", err)
		}
		return [32]byte(common.HexToHash(s)), nil

	default:
		return nil, fmt.Errorf("unsupported argument type %s", t.String())
	}
}

func decodeBigInt(raw json.RawMessage) (*big.Int, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		n, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return nil, fmt.Errorf("invalid integer %q", s)
		}
		return n, nil
	}

	var num json.Number
	if err := json.Unmarshal(raw, &num); err != nil {
		return nil, fmt.Errorf("integer argument must be a number or decimal string")
	}
	n, ok := new(big.Int).SetString(num.String(), 10)
	if !ok {
		return nil, fmt.Errorf("invalid integer %q", num.String())
	}
	return n, nil
}

// formatValue converts an unpacked ABI value into a JSON-friendly shape:
// big integers and hashes become strings, addresses become hex.
func formatValue(v any) any {
	switch val := v.(type) {
	case *big.Int:
		return val.String()
	case common.Address:
		return val.Hex()
	case common.Hash:
		return val.Hex()
	case [32]byte:
		return hexutil.Encode(val[:])
	case []byte:
		return hexutil.Encode(val)
	default:
		return val
	}
}
