package app

import (
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/dkurin/huddle/internal/domain"
)

// Rooms tracks the ordered consumer set of each room. It does not enforce
// the single-active-room rule (the coordinator does) and it never
// garbage-collects empty rooms: meeting metadata owns room lifetime.
type Rooms struct {
	mu      sync.RWMutex
	members map[domain.RoomID][]domain.ConnID
}

func NewRooms() *Rooms {
	return &Rooms{members: make(map[domain.RoomID][]domain.ConnID)}
}

func (r *Rooms) Join(roomID domain.RoomID, connID domain.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if lo.Contains(r.members[roomID], connID) {
		return
	}
	r.members[roomID] = append(r.members[roomID], connID)
	log.Info().Str("module", "app.rooms").Str("room", string(roomID)).Str("conn", string(connID)).Msg("joined room")
}

// Leave removes the connection and returns the remaining member list.
// Leaving a room the connection is not in is a no-op returning the list
// unchanged, which keeps redundant disconnect handling harmless.
func (r *Rooms) Leave(roomID domain.RoomID, connID domain.ConnID) []domain.ConnID {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.members[roomID]
	if !ok {
		log.Debug().Str("module", "app.rooms").Str("room", string(roomID)).Msg("leave on unknown room")
		return nil
	}
	if lo.Contains(current, connID) {
		r.members[roomID] = lo.Filter(current, func(id domain.ConnID, _ int) bool {
			return id != connID
		})
		log.Info().Str("module", "app.rooms").Str("room", string(roomID)).Str("conn", string(connID)).Msg("left room")
	}
	out := make([]domain.ConnID, len(r.members[roomID]))
	copy(out, r.members[roomID])
	return out
}

// MembersOf returns a copy of the room's member list in join order.
func (r *Rooms) MembersOf(roomID domain.RoomID) []domain.ConnID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.ConnID, len(r.members[roomID]))
	copy(out, r.members[roomID])
	return out
}
