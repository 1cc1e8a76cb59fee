package app

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dkurin/huddle/internal/domain"
)

func TestPresence_SnapshotKeepsInsertionOrder(t *testing.T) {
	req := require.New(t)
	p := NewPresence()
	p.MarkOnline("c1", "alice")
	p.MarkOnline("c2", "bob")
	p.MarkOnline("c3", "carol")

	snap := p.Snapshot()
	req.Equal([]domain.PresenceEntry{
		{UserID: "alice", Status: domain.StatusOnline},
		{UserID: "bob", Status: domain.StatusOnline},
		{UserID: "carol", Status: domain.StatusOnline},
	}, snap)
}

func TestPresence_TwoConnectionsOneUser(t *testing.T) {
	req := require.New(t)
	p := NewPresence()
	p.MarkOnline("c1", "alice")
	p.MarkOnline("c2", "alice")

	// Two devices, two entries. No dedup by user.
	req.Len(p.Snapshot(), 2)

	// Dropping the first connection keeps the user online via the second.
	p.MarkOffline("c1")
	snap := p.Snapshot()
	req.Len(snap, 1)
	req.Equal(domain.UserID("alice"), snap[0].UserID)

	// Dropping the last removes the user entirely.
	p.MarkOffline("c2")
	req.Empty(p.Snapshot())
}

func TestPresence_MarkOfflineUnknownIsNoOp(t *testing.T) {
	req := require.New(t)
	p := NewPresence()
	p.MarkOnline("c1", "alice")

	p.MarkOffline("ghost")
	p.MarkOffline("c1")
	p.MarkOffline("c1")
	req.Empty(p.Snapshot())
}

func TestPresence_MarkOnlineIsIdempotentPerConnection(t *testing.T) {
	req := require.New(t)
	p := NewPresence()
	p.MarkOnline("c1", "alice")
	p.MarkOnline("c1", "alice")
	req.Len(p.Snapshot(), 1)
}
