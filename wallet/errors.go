package wallet

import (
	"errors"
	"fmt"

	ethrpc "github.com/ethereum/go-ethereum/rpc"

	"github.com/statewire/walletcore/pkg/wire"
)

// Well-known failure codes. Positive codes follow the wallet-provider
// convention, negative ones the JSON-RPC convention.
const (
	CodeUserRejected       int64 = 4001
	CodeNotConnected       int64 = 4900
	CodeUnsupportedNetwork int64 = 4902
	CodeExecutionReverted  int64 = 3
	CodeInsufficientFunds  int64 = -32003
	CodeMalformedRequest   int64 = -32600
	CodeMethodNotFound     int64 = -32601
	CodeInvalidParams      int64 = -32602
	CodeInvalidAddress     int64 = -32097

	// CodeUnknown is the sentinel for failures that carry no code.
	CodeUnknown int64 = -999
)

// defaultMessage is used when a failure carries no message at all.
const defaultMessage = "Unknown error"

// canonicalMessages replaces provider phrasing for well-known codes.
// Unmapped codes keep the provider's original message.
var canonicalMessages = map[int64]string{
	CodeUserRejected:       "Request rejected by user",
	CodeNotConnected:       "Wallet is not connected",
	CodeUnsupportedNetwork: "Network is not supported by the wallet",
	CodeExecutionReverted:  "Contract execution reverted",
	CodeInsufficientFunds:  "Insufficient funds for this operation",
	CodeMalformedRequest:   "Malformed request",
	CodeMethodNotFound:     "Method is not supported",
	CodeInvalidParams:      "Invalid operation parameters",
	CodeInvalidAddress:     "Invalid address",
}

// OpError is the single failure shape every operation reports, local
// or provider-originated.
type OpError struct {
	Code      int64
	Message   string
	Operation string

	// Cancelled marks a deliberate user rejection, which callers should
	// present as information rather than as a fault.
	Cancelled bool
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s failed (code %d): %s", e.Operation, e.Code, e.Message)
}

// newOpError builds a failure with the canonical message for its code.
// An explicit message wins only when the code has no canonical phrasing.
func newOpError(code int64, message, operation string) *OpError {
	if canonical, ok := canonicalMessages[code]; ok {
		message = canonical
	}
	if message == "" {
		message = defaultMessage
	}

	return &OpError{
		Code:      code,
		Message:   message,
		Operation: operation,
		Cancelled: code == CodeUserRejected,
	}
}

// normalizeOutcome classifies a settled provider call.
//
// A nil result with a nil error is the fail-silent case: not an error,
// but no payload either — the caller logs it and publishes nothing.
// A result carrying a truthy "error" field is a failure regardless of
// err; its "code", "message" and "operationId" fields are read
// defensively with documented defaults, from inside the error value when
// it is an object. A bare Go error becomes a
// failure with the sentinel code, unless it exposes a JSON-RPC error
// code the taxonomy recognizes.
func normalizeOutcome(result wire.Params, err error, operation string) *OpError {
	if result != nil {
		if flagged := result.Err(); flagged != nil {
			// An object-valued error carries its own fields; siblings of
			// the flag are the fallback.
			fields := result
			if nested := result.ObjectOr("error"); nested != nil {
				fields = nested
			}
			op := fields.StringOr("operationId", result.StringOr("operationId", operation))
			code := fields.IntOr("code", result.IntOr("code", CodeUnknown))
			return newOpError(code, flagged.Error(), op)
		}
	}

	if err == nil {
		return nil
	}

	code := CodeUnknown
	var rpcErr ethrpc.Error
	if errors.As(err, &rpcErr) {
		code = int64(rpcErr.ErrorCode())
	}

	var opErr *OpError
	if errors.As(err, &opErr) {
		return opErr
	}

	return newOpError(code, err.Error(), operation)
}
