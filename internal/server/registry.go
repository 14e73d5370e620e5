package server

import "sync"

type binding struct {
	roomId   string
	username string
}

// Registry owns the ephemeral connection bindings: which room and
// username each live client belongs to, and which client currently
// answers for a username. It never touches the entity store.
type Registry struct {
	mu         sync.RWMutex
	bindings   map[*Client]binding
	byUsername map[string]*Client
}

func NewRegistry() *Registry {
	return &Registry{
		bindings:   make(map[*Client]binding),
		byUsername: make(map[string]*Client),
	}
}

// Bind records the client's room/username binding. A later bind for the
// same username supersedes any earlier client's claim to it.
func (r *Registry) Bind(c *Client, roomId, username string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.bindings[c] = binding{roomId: roomId, username: username}
	r.byUsername[username] = c
}

// Unbind clears the client's binding. The username mapping is removed
// only if it still points at this client, so a stale unbind cannot
// clobber a newer bind for the same username.
func (r *Registry) Unbind(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bindings[c]
	if !ok {
		return
	}

	delete(r.bindings, c)
	if r.byUsername[b.username] == c {
		delete(r.byUsername, b.username)
	}
}

// Binding returns the client's current room and username.
func (r *Registry) Binding(c *Client) (roomId, username string, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.bindings[c]
	return b.roomId, b.username, ok
}

// RoomClients returns a snapshot of the clients bound to a room,
// optionally excluding one.
func (r *Registry) RoomClients(roomId string, skip *Client) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var clients []*Client
	for c, b := range r.bindings {
		if b.roomId != roomId || c == skip {
			continue
		}
		clients = append(clients, c)
	}
	return clients
}

// ClientForUsername returns the client currently bound to a username.
func (r *Registry) ClientForUsername(username string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.byUsername[username]
	return c, ok
}
