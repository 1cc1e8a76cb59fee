package app

import (
	"encoding/json"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/dkurin/huddle/internal/core"
	"github.com/dkurin/huddle/internal/domain"
)

// Dispatcher fans events out to subsets of connections. Delivery is
// fire-and-forget: a send to a closed or saturated connection is dropped
// without surfacing an error to the caller. Ordering per connection comes
// from the connection's own write pump; no cross-connection ordering is
// promised.
type Dispatcher struct {
	registry *Registry
	rooms    *Rooms
}

func NewDispatcher(registry *Registry, rooms *Rooms) *Dispatcher {
	return &Dispatcher{registry: registry, rooms: rooms}
}

func (d *Dispatcher) ToAll(v any) {
	frame, ok := d.marshal(v)
	if !ok {
		return
	}
	for _, snap := range d.registry.Snapshot() {
		d.send(snap.ID, snap.Conn, frame)
	}
}

// ToUser targets every live connection of one user.
func (d *Dispatcher) ToUser(userID domain.UserID, v any) {
	frame, ok := d.marshal(v)
	if !ok {
		return
	}
	for _, connID := range d.registry.ConnectionsOf(userID) {
		if conn, ok := d.registry.Conn(connID); ok {
			d.send(connID, conn, frame)
		}
	}
}

func (d *Dispatcher) ToRoom(roomID domain.RoomID, v any, excluding ...domain.ConnID) {
	frame, ok := d.marshal(v)
	if !ok {
		return
	}
	for _, connID := range d.rooms.MembersOf(roomID) {
		if lo.Contains(excluding, connID) {
			continue
		}
		if conn, ok := d.registry.Conn(connID); ok {
			d.send(connID, conn, frame)
		}
	}
}

func (d *Dispatcher) marshal(v any) (core.Frame, bool) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.dispatch").Msg("event marshal")
		return nil, false
	}
	return core.Frame(b), true
}

func (d *Dispatcher) send(connID domain.ConnID, conn core.SignalConn, frame core.Frame) {
	if err := conn.TrySend(frame); err != nil {
		log.Debug().Err(err).Str("module", "app.dispatch").Str("conn", string(connID)).Msg("dropped event")
	}
}
