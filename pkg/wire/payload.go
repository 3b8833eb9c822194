package wire

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/statewire/walletcore/pkg/sign"
)

// Payload is the unit of RPC communication with the off-chain network.
// On the wire it is the compact array [RequestID, Method, Params, Timestamp].
type Payload struct {
	// RequestID correlates a request with its eventual response. Clients
	// must generate unique IDs; responses echo the ID of their request.
	RequestID uint64 `json:"request_id"`

	// Method names the operation, e.g. "session_create".
	Method string `json:"method"`

	// Params carries the method-specific fields.
	Params Params `json:"params"`

	// Timestamp is Unix milliseconds at payload creation, used by the
	// network for replay protection.
	Timestamp uint64 `json:"ts"`
}

// NewPayload builds a Payload stamped with the current time.
func NewPayload(id uint64, method string, params Params) Payload {
	if params == nil {
		params = Params{}
	}

	return Payload{
		RequestID: id,
		Method:    method,
		Params:    params,
		Timestamp: uint64(time.Now().UnixMilli()),
	}
}

// Hash returns the Keccak256 digest of the payload's wire encoding.
// The digest is what request signatures are computed over.
func (p Payload) Hash() ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return sign.Keccak256(data), nil
}

// MarshalJSON emits the compact array form.
func (p Payload) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{
		p.RequestID,
		p.Method,
		p.Params,
		p.Timestamp,
	})
}

// UnmarshalJSON parses the compact array form, validating element count
// and per-element types.
func (p *Payload) UnmarshalJSON(data []byte) error {
	var rawArr []json.RawMessage
	if err := json.Unmarshal(data, &rawArr); err != nil {
		return fmt.Errorf("error reading payload as array: %w", err)
	}
	if len(rawArr) != 4 {
		return errors.New("invalid payload: expected 4 elements in array")
	}

	if err := json.Unmarshal(rawArr[0], &p.RequestID); err != nil {
		return fmt.Errorf("invalid request_id: %w", err)
	}
	if err := json.Unmarshal(rawArr[1], &p.Method); err != nil {
		return fmt.Errorf("invalid method: %w", err)
	}
	if err := json.Unmarshal(rawArr[2], &p.Params); err != nil {
		return fmt.Errorf("invalid params: %w", err)
	}
	if err := json.Unmarshal(rawArr[3], &p.Timestamp); err != nil {
		return fmt.Errorf("invalid timestamp: %w", err)
	}

	return nil
}
