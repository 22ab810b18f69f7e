package app

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/oakstream/signaling/internal/core"
	"github.com/oakstream/signaling/internal/protocol"
)

// handleSignal forwards an offer, answer or ICE candidate verbatim to every
// other member of the sender's room, stamped with the sender identity. A
// sender without a room has nothing to relay through; the message is dropped.
func (r *Router) handleSignal(sess *core.Session, msgType string, raw core.Frame) {
	var p protocol.Signal
	if err := json.Unmarshal(raw, &p); err != nil || p.Payload() == nil {
		log.Error().Str("module", "app.router").Str("user", string(sess.ID)).
			Str("type", msgType).Msg("bad signal payload")
		return
	}

	room, ok := r.Directory.RoomOf(sess)
	if !ok {
		log.Debug().Str("module", "app.router").Str("user", string(sess.ID)).
			Str("type", msgType).Msg("signal without room dropped")
		return
	}

	p.FromUser = string(sess.ID)
	peers := r.Directory.MembersOf(room, sess.ID)
	r.broadcast(peers, p)
	log.Debug().Str("module", "app.router").Str("user", string(sess.ID)).
		Str("room", string(room)).Str("type", msgType).Int("peers", len(peers)).Msg("signal forwarded")
}

// send marshals and queues one message for one session. A failed send marks
// the session as disconnected and cleans it up.
func (r *Router) send(sess *core.Session, v any) {
	if failed := deliver(sess, v); failed != nil {
		r.cleanupFailed([]*core.Session{failed})
	}
}

// broadcast fans a message out to a member snapshot. A failure on one
// recipient never aborts delivery to the rest; failed recipients are cleaned
// up after the fan-out completes.
func (r *Router) broadcast(peers []*core.Session, v any) {
	var failed []*core.Session
	for _, peer := range peers {
		if f := deliver(peer, v); f != nil {
			failed = append(failed, f)
		}
	}
	r.cleanupFailed(failed)
}

// deliver queues one message on one session's transport, returning the
// session on failure.
func deliver(sess *core.Session, v any) *core.Session {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.router").Msg("marshal outbound message")
		return nil
	}
	if err := sess.Conn.TrySend(b); err != nil {
		log.Warn().Err(err).Str("module", "app.router").Str("user", string(sess.ID)).Msg("send failed")
		return sess
	}
	return nil
}

// cleanupFailed treats each failed recipient as disconnected: close the
// transport and run the implicit leave. Recursion through HandleDisconnect
// is bounded because Leave and Unregister are idempotent.
func (r *Router) cleanupFailed(failed []*core.Session) {
	for _, sess := range failed {
		sess.Conn.Close()
		r.HandleDisconnect(sess.Conn)
	}
}
