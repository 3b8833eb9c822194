package sign

import "fmt"

var _ Signer = (*MockSigner)(nil)

// MockSigner produces predictable signatures for tests: the digest with a
// "-signed-by-<address>" suffix appended.
type MockSigner struct {
	address string
}

// NewMockSigner creates a mock signer that reports the given address.
func NewMockSigner(address string) *MockSigner {
	return &MockSigner{address: address}
}

// Address returns the address the mock was created with.
func (m *MockSigner) Address() string { return m.address }

// Sign appends a deterministic suffix to the digest.
func (m *MockSigner) Sign(digest []byte) (Signature, error) {
	sigBytes := append(digest, []byte(fmt.Sprintf("-signed-by-%s", m.address))...)
	return Signature(sigBytes), nil
}
