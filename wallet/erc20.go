package wallet

// Token-standard convenience builders. Each returns a ContractRequest
// ready for CallContract; none of them touches a provider.

const (
	balanceOfABI = `[{"name":"balanceOf","type":"function","stateMutability":"view",
		"inputs":[{"name":"owner","type":"address"}],
		"outputs":[{"name":"","type":"uint256"}]}]`

	allowanceABI = `[{"name":"allowance","type":"function","stateMutability":"view",
		"inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],
		"outputs":[{"name":"","type":"uint256"}]}]`

	approveABI = `[{"name":"approve","type":"function","stateMutability":"nonpayable",
		"inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],
		"outputs":[{"name":"","type":"bool"}]}]`

	transferABI = `[{"name":"transfer","type":"function","stateMutability":"nonpayable",
		"inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],
		"outputs":[{"name":"","type":"bool"}]}]`

	ownerOfABI = `[{"name":"ownerOf","type":"function","stateMutability":"view",
		"inputs":[{"name":"tokenId","type":"uint256"}],
		"outputs":[{"name":"","type":"address"}]}]`
)

// BalanceOfRequest reads a token balance.
func BalanceOfRequest(token, owner, callID string) ContractRequest {
	return ContractRequest{
		Address: token,
		ABI:     balanceOfABI,
		Method:  "balanceOf",
		Args:    []any{owner},
		CallID:  callID,
	}
}

// AllowanceRequest reads a spender's remaining allowance.
func AllowanceRequest(token, owner, spender, callID string) ContractRequest {
	return ContractRequest{
		Address: token,
		ABI:     allowanceABI,
		Method:  "allowance",
		Args:    []any{owner, spender},
		CallID:  callID,
	}
}

// ApproveRequest grants a spender an allowance. Amount is a
// smallest-unit string.
func ApproveRequest(token, spender, amount, callID string) ContractRequest {
	return ContractRequest{
		Address: token,
		ABI:     approveABI,
		Method:  "approve",
		Args:    []any{spender, amount},
		CallID:  callID,
		Write:   true,
	}
}

// TransferRequest moves tokens. Amount is a smallest-unit string.
func TransferRequest(token, to, amount, callID string) ContractRequest {
	return ContractRequest{
		Address: token,
		ABI:     transferABI,
		Method:  "transfer",
		Args:    []any{to, amount},
		CallID:  callID,
		Write:   true,
	}
}

// OwnerOfRequest reads an NFT's owner. TokenID is a base-10 string.
func OwnerOfRequest(token, tokenID, callID string) ContractRequest {
	return ContractRequest{
		Address: token,
		ABI:     ownerOfABI,
		Method:  "ownerOf",
		Args:    []any{tokenID},
		CallID:  callID,
	}
}
