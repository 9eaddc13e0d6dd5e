package core

// Frame is a raw encoded signaling message.
type Frame []byte

// SignalConnection abstracts the full-duplex signaling transport of one
// client. Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}
