package app

import (
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/dkurin/huddle/internal/domain"
)

// Presence tracks which users are currently online, one entry per
// connection, in insertion order. It never pushes network events itself;
// the coordinator broadcasts after every mutation.
type Presence struct {
	mu      sync.RWMutex
	order   []domain.ConnID
	entries map[domain.ConnID]domain.PresenceEntry
}

func NewPresence() *Presence {
	return &Presence{entries: make(map[domain.ConnID]domain.PresenceEntry)}
}

func (p *Presence) MarkOnline(connID domain.ConnID, userID domain.UserID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.entries[connID]; ok {
		return
	}
	p.entries[connID] = domain.PresenceEntry{UserID: userID, Status: domain.StatusOnline}
	p.order = append(p.order, connID)
	log.Info().Str("module", "app.presence").Str("conn", string(connID)).Str("user", string(userID)).Msg("marked online")
}

// MarkOffline removes this connection's entry only. Other connections of
// the same user keep the user visible in the snapshot.
func (p *Presence) MarkOffline(connID domain.ConnID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.entries[connID]; !ok {
		return
	}
	delete(p.entries, connID)
	p.order = lo.Filter(p.order, func(id domain.ConnID, _ int) bool {
		return id != connID
	})
	log.Info().Str("module", "app.presence").Str("conn", string(connID)).Msg("marked offline")
}

// Snapshot returns the entries in insertion order, not deduplicated by user.
func (p *Presence) Snapshot() []domain.PresenceEntry {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]domain.PresenceEntry, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, p.entries[id])
	}
	return out
}
