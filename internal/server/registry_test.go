package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistryBind(t *testing.T) {
	r := NewRegistry()
	c := &Client{}

	r.Bind(c, "ABC123", "alice")

	roomId, username, ok := r.Binding(c)
	assert.True(t, ok, "expected binding to exist")
	assert.Equal(t, "ABC123", roomId)
	assert.Equal(t, "alice", username)

	got, ok := r.ClientForUsername("alice")
	assert.True(t, ok, "expected username mapping")
	assert.Same(t, c, got)
}

func TestRegistryLastBindWins(t *testing.T) {
	r := NewRegistry()
	old := &Client{}
	newer := &Client{}

	r.Bind(old, "ABC123", "alice")
	r.Bind(newer, "ABC123", "alice")

	got, ok := r.ClientForUsername("alice")
	assert.True(t, ok)
	assert.Same(t, newer, got, "expected the later bind to own the username")
}

func TestRegistryUnbind(t *testing.T) {
	t.Run("clears binding and username", func(t *testing.T) {
		r := NewRegistry()
		c := &Client{}

		r.Bind(c, "ABC123", "alice")
		r.Unbind(c)

		_, _, ok := r.Binding(c)
		assert.False(t, ok, "expected binding to be cleared")
		_, ok = r.ClientForUsername("alice")
		assert.False(t, ok, "expected username mapping to be cleared")
	})

	t.Run("stale unbind does not clobber a newer bind", func(t *testing.T) {
		r := NewRegistry()
		old := &Client{}
		newer := &Client{}

		r.Bind(old, "ABC123", "alice")
		r.Bind(newer, "ABC123", "alice")
		r.Unbind(old)

		got, ok := r.ClientForUsername("alice")
		assert.True(t, ok, "expected username mapping to survive a stale unbind")
		assert.Same(t, newer, got)
	})

	t.Run("unbinding an unknown client is a no-op", func(t *testing.T) {
		r := NewRegistry()
		r.Unbind(&Client{})
	})
}

func TestRegistryRoomClients(t *testing.T) {
	r := NewRegistry()
	a := &Client{}
	b := &Client{}
	other := &Client{}

	r.Bind(a, "ABC123", "alice")
	r.Bind(b, "ABC123", "bob")
	r.Bind(other, "XYZ789", "carol")

	clients := r.RoomClients("ABC123", nil)
	assert.Len(t, clients, 2, "expected both clients in the room")

	clients = r.RoomClients("ABC123", a)
	assert.Len(t, clients, 1, "expected the skipped client to be excluded")
	assert.Same(t, b, clients[0])

	assert.Empty(t, r.RoomClients("EMPTY", nil), "expected no clients for an unknown room")
}
