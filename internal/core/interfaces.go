package core

import "github.com/oakstream/signaling/internal/domain"

// Frame is one raw outbound message payload.
type Frame []byte

// SignalConnection abstracts the messaging transport of one client.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	// TrySend queues a frame without blocking. An error means the peer is
	// gone or too slow and should be treated as disconnected.
	TrySend(Frame) error
	Close()
}

// Session is the server-side record of one live connection. The current room
// association is tracked by the Directory, not here, so that membership and
// association always mutate under one lock.
type Session struct {
	ID   domain.PeerID
	Conn SignalConnection
}
