package app

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/dkurin/huddle/internal/core"
	"github.com/dkurin/huddle/internal/domain"
)

// fakeConn records every frame it accepts, like a drained write pump would.
type fakeConn struct {
	mu     sync.Mutex
	frames []core.Frame
	closed bool
}

func (f *fakeConn) TrySend(fr core.Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errors.New("connection closed")
	}
	f.frames = append(f.frames, fr)
	return nil
}

func (f *fakeConn) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

// kinds returns the event types received, in delivery order.
func (f *fakeConn) kinds() []core.EventKind {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]core.EventKind, 0, len(f.frames))
	for _, fr := range f.frames {
		var env core.Envelope
		if err := json.Unmarshal(fr, &env); err == nil {
			out = append(out, env.Type)
		}
	}
	return out
}

// lastOnlineUsers decodes the most recent onlineUsers frame, if any.
func (f *fakeConn) lastOnlineUsers() ([]domain.PresenceEntry, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.frames) - 1; i >= 0; i-- {
		var ev core.OnlineUsersEvent
		if err := json.Unmarshal(f.frames[i], &ev); err == nil && ev.Type == core.EventOnlineUsers {
			return ev.Users, true
		}
	}
	return nil, false
}

// lastConsumers decodes the most recent consumers frame, if any.
func (f *fakeConn) lastConsumers() ([]domain.ConnID, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.frames) - 1; i >= 0; i-- {
		var ev core.ConsumersEvent
		if err := json.Unmarshal(f.frames[i], &ev); err == nil && ev.Type == core.EventConsumers {
			return ev.Content, true
		}
	}
	return nil, false
}

type fakeDirectory struct {
	mu      sync.Mutex
	touched []domain.UserID
	err     error
}

func (f *fakeDirectory) TouchLastOnline(_ context.Context, userID domain.UserID, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.touched = append(f.touched, userID)
	return nil
}

type fakeMeetings struct {
	mu      sync.Mutex
	removed []domain.ConnID
	err     error
}

func (f *fakeMeetings) RemovePeerEverywhere(_ context.Context, connID domain.ConnID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.removed = append(f.removed, connID)
	return nil
}

type fakeMedia struct {
	mu    sync.Mutex
	ready []domain.ConnID
}

func (f *fakeMedia) ConnectionReady(connID domain.ConnID, _ domain.UserID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ready = append(f.ready, connID)
}
