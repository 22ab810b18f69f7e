package app

import (
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/oakstream/signaling/internal/core"
	"github.com/oakstream/signaling/internal/domain"
)

// ErrUnknownConnection is returned by Lookup for a handle that was never
// registered or was already unregistered. Callers treat it as
// already-cleaned-up, not as a failure.
var ErrUnknownConnection = errors.New("unknown connection")

// Registry owns the set of live sessions, keyed by transport handle. It is
// the only place sessions are created and destroyed.
type Registry struct {
	mu     sync.RWMutex
	byConn map[core.SignalConnection]*core.Session
}

func NewRegistry() *Registry {
	return &Registry{byConn: make(map[core.SignalConnection]*core.Session)}
}

// Register allocates a session with a fresh identity and records it as live.
func (r *Registry) Register(conn core.SignalConnection) *core.Session {
	sess := &core.Session{ID: domain.NewPeerID(), Conn: conn}
	r.mu.Lock()
	r.byConn[conn] = sess
	r.mu.Unlock()
	log.Info().Str("module", "app.registry").Str("user", string(sess.ID)).Msg("session registered")
	return sess
}

// Unregister removes the session from the live set. Calling it for an
// already-removed session is a no-op.
func (r *Registry) Unregister(sess *core.Session) {
	r.mu.Lock()
	_, ok := r.byConn[sess.Conn]
	delete(r.byConn, sess.Conn)
	r.mu.Unlock()
	if ok {
		log.Info().Str("module", "app.registry").Str("user", string(sess.ID)).Msg("session unregistered")
	}
}

// Lookup resolves the session bound to a transport handle.
func (r *Registry) Lookup(conn core.SignalConnection) (*core.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.byConn[conn]
	if !ok {
		return nil, ErrUnknownConnection
	}
	return sess, nil
}

// Count reports the number of live sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byConn)
}
