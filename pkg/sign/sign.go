// Package sign provides the signing primitives used by the off-chain
// payment subsystem: a Signer abstraction, a hex-encoded Signature type
// and signer-address recovery.
//
// Addresses are carried as opaque 0x-prefixed hex strings throughout
// walletcore; this package never hands out decoded address structures.
package sign

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Signer produces signatures over 32-byte digests.
type Signer interface {
	// Address returns the 0x-prefixed hex address derived from the
	// signer's public key.
	Address() string
	// Sign signs a digest (typically a Keccak256 hash).
	Sign(digest []byte) (Signature, error)
}

// Signature is a raw signature encoded as a 0x-prefixed hex string in JSON.
type Signature []byte

// String implements fmt.Stringer.
func (s Signature) String() string {
	return hexutil.Encode(s)
}

// MarshalJSON encodes the signature as a hex string.
func (s Signature) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a hex string into the signature.
func (s *Signature) UnmarshalJSON(data []byte) error {
	var hexStr string
	if err := json.Unmarshal(data, &hexStr); err != nil {
		return err
	}
	decoded, err := hexutil.Decode(hexStr)
	if err != nil {
		return err
	}
	*s = decoded
	return nil
}
