package sign_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statewire/walletcore/pkg/sign"
)

// Well-known test vector key; never used outside tests.
const testPrivateKeyHex = "fad9c8855b740a0b7ed4c221dbad0f33a83a49cad6b3fe8d5817ac83d38b6a19"

func TestNewEthereumSigner(t *testing.T) {
	t.Parallel()

	signer, err := sign.NewEthereumSigner(testPrivateKeyHex)
	require.NoError(t, err)
	assert.Regexp(t, `^0x[0-9a-fA-F]{40}$`, signer.Address())

	// 0x prefix is accepted.
	prefixed, err := sign.NewEthereumSigner("0x" + testPrivateKeyHex)
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), prefixed.Address())

	_, err = sign.NewEthereumSigner("not-a-key")
	assert.Error(t, err)
}

func TestSignAndRecover(t *testing.T) {
	t.Parallel()

	signer, err := sign.NewEthereumSigner(testPrivateKeyHex)
	require.NoError(t, err)

	digest := sign.Keccak256([]byte("payment payload"))
	sig, err := signer.Sign(digest)
	require.NoError(t, err)
	require.Len(t, []byte(sig), 65)
	assert.GreaterOrEqual(t, sig[64], byte(27))

	recovered, err := sign.RecoverAddress(digest, sig)
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), recovered)
}

func TestRecoverAddressRejectsBadLength(t *testing.T) {
	t.Parallel()

	_, err := sign.RecoverAddress(sign.Keccak256([]byte("x")), sign.Signature{0x01})
	assert.Error(t, err)
}

func TestSignatureJSONRoundTrip(t *testing.T) {
	t.Parallel()

	signer, err := sign.NewEthereumSigner(testPrivateKeyHex)
	require.NoError(t, err)

	digest := sign.Keccak256([]byte("round trip"))
	sig, err := signer.Sign(digest)
	require.NoError(t, err)

	data, err := json.Marshal(sig)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"0x`)

	var decoded sign.Signature
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, sig, decoded)
}

func TestMockSigner(t *testing.T) {
	t.Parallel()

	m := sign.NewMockSigner("0xAAA")
	sig, err := m.Sign([]byte("digest"))
	require.NoError(t, err)
	assert.Equal(t, "digest-signed-by-0xAAA", string(sig))
	assert.Equal(t, "0xAAA", m.Address())
}
