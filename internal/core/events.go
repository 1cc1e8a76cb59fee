package core

import (
	"time"

	"github.com/dkurin/huddle/internal/domain"
)

// EventKind enumerates every signal event the server understands.
// The set is fixed at compile time; the signal adapter switches over it
// exhaustively instead of wiring handlers from a runtime table.
type EventKind string

const (
	// Inbound.
	EventAuthenticate EventKind = "authenticate"
	EventJoin         EventKind = "join"
	EventLeave        EventKind = "leave"
	EventPing         EventKind = "ping"

	// Outbound.
	EventAuthenticated EventKind = "authenticated"
	EventOnlineUsers   EventKind = "onlineUsers"
	EventConsumers     EventKind = "consumers"
	EventJoined        EventKind = "joined"
	EventLeft          EventKind = "left"
	EventPong          EventKind = "pong"
	EventError         EventKind = "error"
)

// Envelope is the shared prefix of every frame: {"type": "..."}.
type Envelope struct {
	Type EventKind `json:"type"`
}

type OnlineUsersEvent struct {
	Type  EventKind              `json:"type"`
	Users []domain.PresenceEntry `json:"users"`
}

func NewOnlineUsers(users []domain.PresenceEntry) OnlineUsersEvent {
	return OnlineUsersEvent{Type: EventOnlineUsers, Users: users}
}

// ConsumersEvent carries the full ordered member list of a room.
type ConsumersEvent struct {
	Type      EventKind       `json:"type"`
	Content   []domain.ConnID `json:"content"`
	Timestamp int64           `json:"timestamp"`
}

func NewConsumers(members []domain.ConnID) ConsumersEvent {
	return ConsumersEvent{
		Type:      EventConsumers,
		Content:   members,
		Timestamp: time.Now().UnixMilli(),
	}
}

// PeerLeftEvent notifies remaining room members of a departure.
type PeerLeftEvent struct {
	Type     EventKind     `json:"type"`
	SocketID domain.ConnID `json:"socketID"`
}

func NewPeerLeft(connID domain.ConnID) PeerLeftEvent {
	return PeerLeftEvent{Type: EventLeave, SocketID: connID}
}

type JoinedEvent struct {
	Type    EventKind       `json:"type"`
	Room    domain.RoomID   `json:"room"`
	Members []domain.ConnID `json:"members"`
}

type ErrorEvent struct {
	Type  EventKind `json:"type"`
	Error string    `json:"error"`
}

func NewError(msg string) ErrorEvent {
	return ErrorEvent{Type: EventError, Error: msg}
}
