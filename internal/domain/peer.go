// Package domain contains entity types without logic, just meta-data.
package domain

import "github.com/google/uuid"

// PeerIDLen is the length of a generated peer identity. A truncated UUID is
// unique enough among concurrently connected peers; no global coordination.
const PeerIDLen = 8

type PeerID string

// NewPeerID generates a short opaque identity for one connection.
func NewPeerID() PeerID {
	return PeerID(uuid.NewString()[:PeerIDLen])
}
