package app

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/dkurin/huddle/internal/core"
	"github.com/dkurin/huddle/internal/domain"
)

// UserDirectory is the external user store the coordinator reports
// last-seen timestamps to.
type UserDirectory interface {
	TouchLastOnline(ctx context.Context, userID domain.UserID, at time.Time) error
}

// MeetingPeers is the persistence collaborator that keeps meeting peer
// lists consistent with live connections.
type MeetingPeers interface {
	RemovePeerEverywhere(ctx context.Context, connID domain.ConnID) error
}

// MediaRouter is the media engine boundary. The coordinator only tells it
// when a connection becomes eligible to join room media; everything after
// that is the engine's business.
type MediaRouter interface {
	ConnectionReady(connID domain.ConnID, userID domain.UserID)
}

// Coordinator drives the handshake → register → active → deregister state
// machine of every connection. It owns all in-memory indexes explicitly;
// nothing in the process reaches them except through it.
type Coordinator struct {
	Registry *Registry
	Presence *Presence
	Rooms    *Rooms
	Dispatch *Dispatcher

	Users    UserDirectory
	Meetings MeetingPeers
	Media    MediaRouter

	mu      sync.Mutex
	roomOf  map[domain.ConnID]domain.RoomID
	pending map[domain.ConnID][]domain.MeetingID
}

func NewCoordinator(users UserDirectory, meetings MeetingPeers, media MediaRouter) *Coordinator {
	registry := NewRegistry()
	rooms := NewRooms()
	return &Coordinator{
		Registry: registry,
		Presence: NewPresence(),
		Rooms:    rooms,
		Dispatch: NewDispatcher(registry, rooms),
		Users:    users,
		Meetings: meetings,
		Media:    media,
		roomOf:   make(map[domain.ConnID]domain.RoomID),
		pending:  make(map[domain.ConnID][]domain.MeetingID),
	}
}

// OnAuthenticated admits a verified connection: registers it under both
// indexes, marks presence, broadcasts the fresh snapshot to everyone and
// hands the connection to the media engine.
func (c *Coordinator) OnAuthenticated(userID domain.UserID, connID domain.ConnID, conn core.SignalConn) {
	c.Registry.Register(connID, userID, conn)
	c.Presence.MarkOnline(connID, userID)
	c.Dispatch.ToAll(core.NewOnlineUsers(c.Presence.Snapshot()))
	if c.Media != nil {
		c.Media.ConnectionReady(connID, userID)
	}
}

// JoinRoom enforces the single-active-room rule: joining while in another
// room leaves that room first, with the usual departure broadcasts.
func (c *Coordinator) JoinRoom(connID domain.ConnID, roomID domain.RoomID) []domain.ConnID {
	c.mu.Lock()
	prev, inRoom := c.roomOf[connID]
	c.mu.Unlock()
	if inRoom && prev != roomID {
		c.LeaveRoom(connID)
	}

	c.Rooms.Join(roomID, connID)
	c.mu.Lock()
	c.roomOf[connID] = roomID
	c.mu.Unlock()

	members := c.Rooms.MembersOf(roomID)
	c.Dispatch.ToRoom(roomID, core.NewConsumers(members))
	return members
}

// LeaveRoom pulls the connection out of its current room, if any, and
// tells the remaining members. Safe to call when not in a room.
func (c *Coordinator) LeaveRoom(connID domain.ConnID) {
	c.mu.Lock()
	roomID, ok := c.roomOf[connID]
	if ok {
		delete(c.roomOf, connID)
	}
	c.mu.Unlock()
	if !ok {
		return
	}

	remaining := c.Rooms.Leave(roomID, connID)
	c.Dispatch.ToRoom(roomID, core.NewConsumers(remaining))
	c.Dispatch.ToRoom(roomID, core.NewPeerLeft(connID))
}

// RoomOf reports the connection's current room, if any.
func (c *Coordinator) RoomOf(connID domain.ConnID) (domain.RoomID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	roomID, ok := c.roomOf[connID]
	return roomID, ok
}

// AddPendingPeer records a not-yet-admitted peer keyed by its connection,
// created by the media engine while a meeting admission is in flight.
func (c *Coordinator) AddPendingPeer(connID domain.ConnID, meetingID domain.MeetingID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if lo.Contains(c.pending[connID], meetingID) {
		return
	}
	c.pending[connID] = append(c.pending[connID], meetingID)
}

func (c *Coordinator) PendingPeers(connID domain.ConnID) []domain.MeetingID {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.MeetingID, len(c.pending[connID]))
	copy(out, c.pending[connID])
	return out
}

// OnDisconnect reverses every registration the connection collected. The
// transport delivers exactly one disconnect signal per connection, but
// every step below is a safe no-op when run again. Collaborator failures
// are logged and never block the remaining steps.
func (c *Coordinator) OnDisconnect(ctx context.Context, connID domain.ConnID) {
	// (a) Room membership, with departure broadcasts to whoever is left.
	c.LeaveRoom(connID)

	// (b) Meeting peer lists in persistence.
	if c.Meetings != nil {
		if err := c.Meetings.RemovePeerEverywhere(ctx, connID); err != nil {
			log.Error().Err(err).Str("module", "app.coordinator").Str("conn", string(connID)).Msg("meeting peer removal")
		}
	}

	// (c) Pending-peer records keyed by this connection.
	c.mu.Lock()
	delete(c.pending, connID)
	c.mu.Unlock()

	// (d) Both registry indexes. Capture the user first: the entry is gone
	// after Unregister.
	userID, known := c.Registry.UserOf(connID)
	c.Registry.Unregister(connID)

	// (e) Last seen. Persistence may suspend; registry state is re-read
	// after this point, never assumed.
	if known && c.Users != nil {
		if err := c.Users.TouchLastOnline(ctx, userID, time.Now()); err != nil {
			log.Error().Err(err).Str("module", "app.coordinator").Str("user", string(userID)).Msg("last online update")
		}
	}

	// (f) Presence entry and snapshot rebroadcast.
	c.Presence.MarkOffline(connID)
	c.Dispatch.ToAll(core.NewOnlineUsers(c.Presence.Snapshot()))
	log.Info().Str("module", "app.coordinator").Str("conn", string(connID)).Msg("disconnect teardown complete")
}
