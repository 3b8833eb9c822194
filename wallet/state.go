package wallet

import "sync"

// ConnectionState is a snapshot of the wallet session.
// Invariant: when Connected is false, Address is empty and ChainID is 0.
type ConnectionState struct {
	Connected bool
	Address   string
	ChainID   uint64
}

// connState is the single source of truth for the wallet session.
// Mutations happen only through its methods so the invariant holds at
// every observable point.
type connState struct {
	mu    sync.RWMutex
	state ConnectionState
}

func newConnState() *connState {
	return &connState{}
}

// Snapshot returns a consistent copy of the current state.
func (s *connState) Snapshot() ConnectionState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state
}

// IsConnected reports whether a wallet session is active.
func (s *connState) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state.Connected
}

// SetConnected records a successful connection.
func (s *connState) SetConnected(address string, chainID uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = ConnectionState{Connected: true, Address: address, ChainID: chainID}
}

// SetDisconnected clears the session entirely.
func (s *connState) SetDisconnected() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = ConnectionState{}
}

// SetAddress swaps the active account, keeping the session connected.
// No-op when disconnected, preserving the invariant.
func (s *connState) SetAddress(address string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.Connected {
		return
	}
	s.state.Address = address
}

// SetChainID updates the chain in place. The session stays connected;
// callers refresh the full chain context with an explicit reconnect.
func (s *connState) SetChainID(chainID uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.Connected {
		return
	}
	s.state.ChainID = chainID
}
