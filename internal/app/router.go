package app

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/oakstream/signaling/internal/core"
	"github.com/oakstream/signaling/internal/domain"
	"github.com/oakstream/signaling/internal/protocol"
)

// Router applies the signaling state machine. It is the only component that
// mutates Registry and Directory state; transport adapters just hand it raw
// frames and lifecycle events.
//
// Policy note: leave_room ignores the room field and always leaves the
// session's current room.
type Router struct {
	Registry  *Registry
	Directory *Directory
}

func NewRouter() *Router {
	return &Router{
		Registry:  NewRegistry(),
		Directory: NewDirectory(),
	}
}

// HandleConnect registers the connection and greets the client with its
// assigned identity.
func (r *Router) HandleConnect(conn core.SignalConnection) *core.Session {
	sess := r.Registry.Register(conn)
	r.send(sess, protocol.Connected{Type: protocol.TypeConnected, UserID: string(sess.ID)})
	return sess
}

// HandleDisconnect runs the implicit leave and unregisters the session. It is
// idempotent: a handle that was already cleaned up is a no-op.
func (r *Router) HandleDisconnect(conn core.SignalConnection) {
	sess, err := r.Registry.Lookup(conn)
	if err != nil {
		return
	}
	if _, count, peers, ok := r.Directory.Leave(sess); ok {
		r.broadcast(peers, protocol.UserLeft{
			Type:   protocol.TypeUserLeft,
			UserID: string(sess.ID),
			Users:  count,
		})
	}
	r.Registry.Unregister(sess)
	log.Info().Str("module", "app.router").Str("user", string(sess.ID)).Msg("user disconnected")
}

// HandleMessage validates one inbound frame and applies it to the current
// session and room state. Malformed or unknown messages are dropped; the
// connection stays open.
func (r *Router) HandleMessage(conn core.SignalConnection, raw core.Frame) {
	sess, err := r.Registry.Lookup(conn)
	if err != nil {
		log.Debug().Str("module", "app.router").Msg("message from unregistered connection dropped")
		return
	}

	msgType, err := protocol.MessageType(raw)
	if err != nil {
		log.Error().Err(err).Str("module", "app.router").Str("user", string(sess.ID)).Msg("bad message")
		return
	}

	switch msgType {
	case protocol.TypeJoinRoom:
		r.handleJoin(sess, raw)
	case protocol.TypeLeaveRoom:
		r.handleLeave(sess)
	case protocol.TypeOffer, protocol.TypeAnswer, protocol.TypeICECandidate:
		r.handleSignal(sess, msgType, raw)
	case protocol.TypePing:
		r.send(sess, protocol.Pong{Type: protocol.TypePong})
	default:
		log.Warn().Str("module", "app.router").Str("type", msgType).Msg("unknown message type")
	}
}

func (r *Router) handleJoin(sess *core.Session, raw core.Frame) {
	var p protocol.JoinRoom
	if err := json.Unmarshal(raw, &p); err != nil || p.Room == "" {
		log.Error().Str("module", "app.router").Str("user", string(sess.ID)).Msg("bad join payload")
		r.send(sess, protocol.Error{Type: protocol.TypeError, Message: "bad_payload"})
		return
	}

	room := domain.RoomName(p.Room)
	count, peers := r.Directory.Join(room, sess)

	r.send(sess, protocol.RoomJoined{
		Type:  protocol.TypeRoomJoined,
		Room:  p.Room,
		Users: count,
	})
	// peers is nil on an idempotent re-join; no duplicate user_joined then.
	r.broadcast(peers, protocol.UserJoined{
		Type:   protocol.TypeUserJoined,
		UserID: string(sess.ID),
		Users:  count,
	})
}

func (r *Router) handleLeave(sess *core.Session) {
	_, count, peers, ok := r.Directory.Leave(sess)
	if !ok {
		log.Debug().Str("module", "app.router").Str("user", string(sess.ID)).Msg("leave without room")
		return
	}
	r.send(sess, protocol.RoomLeft{Type: protocol.TypeRoomLeft})
	r.broadcast(peers, protocol.UserLeft{
		Type:   protocol.TypeUserLeft,
		UserID: string(sess.ID),
		Users:  count,
	})
}
