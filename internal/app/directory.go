package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/oakstream/signaling/internal/core"
	"github.com/oakstream/signaling/internal/domain"
)

// Directory owns the room-name to member-set mapping and the session to room
// association. One mutex guards both, so a member count returned by Join or
// Leave always comes from the same critical section as the mutation, and a
// session can never appear in two rooms.
//
// Invariant: a room exists in the directory iff it has at least one member.
type Directory struct {
	mu     sync.RWMutex
	rooms  map[domain.RoomName]map[domain.PeerID]*core.Session
	roomOf map[domain.PeerID]domain.RoomName
}

func NewDirectory() *Directory {
	return &Directory{
		rooms:  make(map[domain.RoomName]map[domain.PeerID]*core.Session),
		roomOf: make(map[domain.PeerID]domain.RoomName),
	}
}

// Join adds the session to the named room, creating it if absent, and removes
// the session from any prior room first (the prior room is deleted if it
// empties). It returns the new member count together with a snapshot of the
// other members taken in the same critical section, for broadcast use.
// Re-joining the current room is a no-op that returns the current count with
// a nil peer snapshot, so callers know not to broadcast again.
func (d *Directory) Join(name domain.RoomName, sess *core.Session) (int, []*core.Session) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if prior, ok := d.roomOf[sess.ID]; ok {
		if prior == name {
			return len(d.rooms[name]), nil
		}
		d.removeLocked(prior, sess)
	}

	members, ok := d.rooms[name]
	if !ok {
		members = make(map[domain.PeerID]*core.Session)
		d.rooms[name] = members
	}
	members[sess.ID] = sess
	d.roomOf[sess.ID] = name

	peers := make([]*core.Session, 0, len(members)-1)
	for id, m := range members {
		if id != sess.ID {
			peers = append(peers, m)
		}
	}
	log.Info().Str("module", "app.directory").Str("user", string(sess.ID)).
		Str("room", string(name)).Int("users", len(members)).Msg("joined room")
	return len(members), peers
}

// Leave removes the session from its current room, whatever the client named.
// It reports the room left, the remaining member count, a snapshot of the
// remaining members, and whether the session was a member at all. Leaving
// twice is a normal outcome, signalled by ok=false.
func (d *Directory) Leave(sess *core.Session) (domain.RoomName, int, []*core.Session, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	name, ok := d.roomOf[sess.ID]
	if !ok {
		return "", 0, nil, false
	}
	d.removeLocked(name, sess)

	remaining := d.rooms[name]
	peers := make([]*core.Session, 0, len(remaining))
	for _, m := range remaining {
		peers = append(peers, m)
	}
	log.Info().Str("module", "app.directory").Str("user", string(sess.ID)).
		Str("room", string(name)).Int("users", len(remaining)).Msg("left room")
	return name, len(remaining), peers, true
}

// RoomOf reports the session's current room.
func (d *Directory) RoomOf(sess *core.Session) (domain.RoomName, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	name, ok := d.roomOf[sess.ID]
	return name, ok
}

// MembersOf returns the members of a room, excluding one session.
func (d *Directory) MembersOf(name domain.RoomName, exclude domain.PeerID) []*core.Session {
	d.mu.RLock()
	defer d.mu.RUnlock()
	members := d.rooms[name]
	out := make([]*core.Session, 0, len(members))
	for id, m := range members {
		if id != exclude {
			out = append(out, m)
		}
	}
	return out
}

// Snapshot returns member counts per room for the diagnostic surface. The
// snapshot is read-only and never used for mutation decisions.
func (d *Directory) Snapshot() map[domain.RoomName]int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[domain.RoomName]int, len(d.rooms))
	for name, members := range d.rooms {
		out[name] = len(members)
	}
	return out
}

// removeLocked drops the membership and deletes the room the instant it
// becomes empty. Caller holds d.mu.
func (d *Directory) removeLocked(name domain.RoomName, sess *core.Session) {
	if members, ok := d.rooms[name]; ok {
		delete(members, sess.ID)
		if len(members) == 0 {
			delete(d.rooms, name)
			log.Info().Str("module", "app.directory").Str("room", string(name)).Msg("room cleaned up (empty)")
		}
	}
	delete(d.roomOf, sess.ID)
}
