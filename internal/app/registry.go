package app

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/dkurin/huddle/internal/core"
	"github.com/dkurin/huddle/internal/domain"
)

type connEntry struct {
	UserID    domain.UserID
	Conn      core.SignalConn
	CreatedAt time.Time
}

// Registry maps live connections to user identities and back. Pure
// bookkeeping: it never broadcasts and never touches collaborators.
type Registry struct {
	mu     sync.RWMutex
	byConn map[domain.ConnID]*connEntry
	byUser map[domain.UserID][]domain.ConnID
}

func NewRegistry() *Registry {
	return &Registry{
		byConn: make(map[domain.ConnID]*connEntry),
		byUser: make(map[domain.UserID][]domain.ConnID),
	}
}

func (r *Registry) Register(connID domain.ConnID, userID domain.UserID, conn core.SignalConn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byConn[connID]; ok {
		return
	}
	r.byConn[connID] = &connEntry{UserID: userID, Conn: conn, CreatedAt: time.Now()}
	r.byUser[userID] = append(r.byUser[userID], connID)
	log.Info().Str("module", "app.registry").Str("conn", string(connID)).Str("user", string(userID)).Msg("connection registered")
}

// Unregister is a silent no-op for unknown ids, so the disconnect path is
// safe to run redundantly. The user entry goes away with its last connection.
func (r *Registry) Unregister(connID domain.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.byConn[connID]
	if !ok {
		log.Debug().Str("module", "app.registry").Str("conn", string(connID)).Msg("unregister of unknown connection")
		return
	}
	delete(r.byConn, connID)

	remaining := lo.Filter(r.byUser[entry.UserID], func(id domain.ConnID, _ int) bool {
		return id != connID
	})
	if len(remaining) == 0 {
		delete(r.byUser, entry.UserID)
	} else {
		r.byUser[entry.UserID] = remaining
	}
	log.Info().Str("module", "app.registry").Str("conn", string(connID)).Str("user", string(entry.UserID)).Msg("connection unregistered")
}

func (r *Registry) UserOf(connID domain.ConnID) (domain.UserID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.byConn[connID]
	if !ok {
		return "", false
	}
	return entry.UserID, true
}

// ConnectionsOf returns a copy of the user's connection ids in registration order.
func (r *Registry) ConnectionsOf(userID domain.UserID) []domain.ConnID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.ConnID, len(r.byUser[userID]))
	copy(out, r.byUser[userID])
	return out
}

func (r *Registry) Conn(connID domain.ConnID) (core.SignalConn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.byConn[connID]
	if !ok {
		return nil, false
	}
	return entry.Conn, true
}

type ConnSnap struct {
	ID     domain.ConnID
	UserID domain.UserID
	Conn   core.SignalConn
}

// Snapshot returns all registered connections. Fan-out iterates the copy,
// never the live map.
func (r *Registry) Snapshot() []ConnSnap {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ConnSnap, 0, len(r.byConn))
	for id, e := range r.byConn {
		out = append(out, ConnSnap{ID: id, UserID: e.UserID, Conn: e.Conn})
	}
	return out
}

func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byConn)
}
