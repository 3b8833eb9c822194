package geth

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/statewire/walletcore/pkg/wire"
)

// SignPersonalMessage signs the request's "message" with the EIP-191
// personal-message prefix.
func (p *Provider) SignPersonalMessage(ctx context.Context, req wire.Params) (wire.Params, error) {
	message := req.StringOr("message", "")
	if message == "" {
		return nil, fmt.Errorf("empty message")
	}

	sig, err := p.signer.Sign(accounts.TextHash([]byte(message)))
	if err != nil {
		return nil, fmt.Errorf("failed to sign message: %w", err)
	}

	return wire.NewParams(map[string]any{"signature": hexutil.Encode(sig)})
}

// SignTypedData signs the request's "typedData", an EIP-712 structure
// in its canonical JSON form.
func (p *Provider) SignTypedData(ctx context.Context, req wire.Params) (wire.Params, error) {
	raw := req.RawOr("typedData")
	if raw == nil {
		return nil, fmt.Errorf("missing typed data")
	}

	var typedData apitypes.TypedData
	if err := json.Unmarshal(raw, &typedData); err != nil {
		return nil, fmt.Errorf("failed to parse typed data: %w", err)
	}

	hash, _, err := apitypes.TypedDataAndHash(typedData)
	if err != nil {
		return nil, fmt.Errorf("failed to hash typed data: %w", err)
	}

	sig, err := p.signer.Sign(hash)
	if err != nil {
		return nil, fmt.Errorf("failed to sign typed data: %w", err)
	}

	return wire.NewParams(map[string]any{"signature": hexutil.Encode(sig)})
}
