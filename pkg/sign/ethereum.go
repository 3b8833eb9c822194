package sign

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

var _ Signer = (*EthereumSigner)(nil)

// EthereumSigner signs digests with a secp256k1 private key and yields
// 65-byte [R || S || V] signatures with V in {27, 28}.
type EthereumSigner struct {
	privateKey *ecdsa.PrivateKey
	address    string
}

// NewEthereumSigner creates a signer from a hex-encoded private key.
// A 0x prefix is accepted and ignored.
func NewEthereumSigner(privateKeyHex string) (*EthereumSigner, error) {
	privateKeyHex = strings.TrimPrefix(privateKeyHex, "0x")
	key, err := ethcrypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("could not parse private key: %w", err)
	}

	pub := key.Public().(*ecdsa.PublicKey)
	return &EthereumSigner{
		privateKey: key,
		address:    ethcrypto.PubkeyToAddress(*pub).Hex(),
	}, nil
}

// Address returns the 0x-prefixed hex address of the signing key.
func (s *EthereumSigner) Address() string { return s.address }

// Sign expects a 32-byte digest.
func (s *EthereumSigner) Sign(digest []byte) (Signature, error) {
	sig, err := ethcrypto.Sign(digest, s.privateKey)
	if err != nil {
		return nil, err
	}
	// Adjust V from 0/1 to 27/28 for Ethereum compatibility.
	if sig[64] < 27 {
		sig[64] += 27
	}
	return Signature(sig), nil
}

// RecoverAddress recovers the 0x-prefixed hex address that produced sig
// over the given digest. Both V conventions (0/1 and 27/28) are accepted.
func RecoverAddress(digest []byte, sig Signature) (string, error) {
	if len(sig) != 65 {
		return "", fmt.Errorf("invalid signature length %d", len(sig))
	}

	localSig := make([]byte, 65)
	copy(localSig, sig)
	if localSig[64] >= 27 {
		localSig[64] -= 27
	}

	pubKey, err := ethcrypto.SigToPub(digest, localSig)
	if err != nil {
		return "", fmt.Errorf("signature recovery failed: %w", err)
	}
	return ethcrypto.PubkeyToAddress(*pubKey).Hex(), nil
}

// Keccak256 hashes data with the Keccak256 function used for all payload
// digests in the off-chain protocol.
func Keccak256(data []byte) []byte {
	return ethcrypto.Keccak256(data)
}
