package core

// Frame is a raw wire payload delivered to a client verbatim.
type Frame []byte

// ConnID identifies one live connection. IDs are never reused; a client
// that reconnects gets a fresh one and must log in again.
type ConnID string

// SignalConnection abstracts a system messaging transport.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}
