package core

// Frame is a raw signaling payload (JSON text on the wire).
type Frame []byte

// SignalConn abstracts a system messaging transport.
// Owned by the adapter; the adapter must Close() it.
// TrySend never blocks: a full buffer or a closed connection is an error
// the caller is free to drop.
type SignalConn interface {
	TrySend(Frame) error
	Close()
}
