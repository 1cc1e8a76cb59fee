package app

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dkurin/huddle/internal/domain"
)

func TestRegistry_RegisterAndLookup(t *testing.T) {
	req := require.New(t)
	r := NewRegistry()
	conn := &fakeConn{}

	r.Register("c1", "u1", conn)

	userID, ok := r.UserOf("c1")
	req.True(ok)
	req.Equal(domain.UserID("u1"), userID)

	got, ok := r.Conn("c1")
	req.True(ok)
	req.Same(conn, got.(*fakeConn))

	req.Equal([]domain.ConnID{"c1"}, r.ConnectionsOf("u1"))
	req.Equal(1, r.Size())
}

func TestRegistry_MultipleConnectionsPerUser(t *testing.T) {
	req := require.New(t)
	r := NewRegistry()
	r.Register("c1", "u1", &fakeConn{})
	r.Register("c2", "u1", &fakeConn{})
	r.Register("c3", "u2", &fakeConn{})

	req.Equal([]domain.ConnID{"c1", "c2"}, r.ConnectionsOf("u1"))

	// Removing one connection keeps the user's other connection indexed.
	r.Unregister("c1")
	req.Equal([]domain.ConnID{"c2"}, r.ConnectionsOf("u1"))

	// Removing the last one removes the user entry itself.
	r.Unregister("c2")
	req.Empty(r.ConnectionsOf("u1"))
	req.Equal(1, r.Size())
}

func TestRegistry_UnregisterUnknownIsNoOp(t *testing.T) {
	req := require.New(t)
	r := NewRegistry()
	r.Register("c1", "u1", &fakeConn{})

	r.Unregister("ghost")
	req.Equal(1, r.Size())

	// Double unregister of the same id.
	r.Unregister("c1")
	r.Unregister("c1")
	req.Equal(0, r.Size())
	_, ok := r.UserOf("c1")
	req.False(ok)
}

func TestRegistry_DuplicateRegisterKeepsFirst(t *testing.T) {
	req := require.New(t)
	r := NewRegistry()
	first := &fakeConn{}
	r.Register("c1", "u1", first)
	r.Register("c1", "u2", &fakeConn{})

	userID, ok := r.UserOf("c1")
	req.True(ok)
	req.Equal(domain.UserID("u1"), userID)
	req.Equal([]domain.ConnID{"c1"}, r.ConnectionsOf("u1"))
	req.Empty(r.ConnectionsOf("u2"))
}
