// Package protocol defines the JSON wire schema shared by every transport
// variant. The field "type" discriminates messages; offer/answer/candidate
// payloads are opaque to the relay and kept as raw JSON.
package protocol

import (
	"encoding/json"
	"errors"
)

// Client -> server message types.
const (
	TypeJoinRoom     = "join_room"
	TypeLeaveRoom    = "leave_room"
	TypeOffer        = "offer"
	TypeAnswer       = "answer"
	TypeICECandidate = "ice_candidate"
	TypePing         = "ping"
)

// Server -> client message types.
const (
	TypeConnected  = "connected"
	TypeRoomJoined = "room_joined"
	TypeRoomLeft   = "room_left"
	TypeUserJoined = "user_joined"
	TypeUserLeft   = "user_left"
	TypePong       = "pong"
	TypeError      = "error"
)

var (
	ErrMalformed   = errors.New("malformed message")
	ErrMissingType = errors.New("missing message type")
)

// MessageType decodes just the discriminator of an inbound frame.
func MessageType(raw []byte) (string, error) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", ErrMalformed
	}
	if env.Type == "" {
		return "", ErrMissingType
	}
	return env.Type, nil
}

type JoinRoom struct {
	Type string `json:"type"`
	Room string `json:"room"`
}

type LeaveRoom struct {
	Type string `json:"type"`
	Room string `json:"room"`
}

// Signal carries an offer, answer or ICE candidate. Exactly one payload field
// is set, matching Type. The relay forwards the payload verbatim and stamps
// FromUser on the way out.
type Signal struct {
	Type      string          `json:"type"`
	Offer     json.RawMessage `json:"offer,omitempty"`
	Answer    json.RawMessage `json:"answer,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
	FromUser  string          `json:"from_user,omitempty"`
}

// Payload returns the raw payload matching the message type, or nil when the
// required field is absent.
func (s *Signal) Payload() json.RawMessage {
	switch s.Type {
	case TypeOffer:
		return s.Offer
	case TypeAnswer:
		return s.Answer
	case TypeICECandidate:
		return s.Candidate
	}
	return nil
}

type Connected struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
}

type RoomJoined struct {
	Type  string `json:"type"`
	Room  string `json:"room"`
	Users int    `json:"users"`
}

type RoomLeft struct {
	Type string `json:"type"`
}

type UserJoined struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
	Users  int    `json:"users"`
}

type UserLeft struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
	Users  int    `json:"users"`
}

type Pong struct {
	Type string `json:"type"`
}

type Error struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// RoomsStatus is the diagnostic view: member count per room plus the number
// of live connections.
type RoomsStatus struct {
	Rooms      map[string]int `json:"rooms"`
	TotalUsers int            `json:"total_users"`
}
