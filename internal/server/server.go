package server

import (
	"context"
	"log"

	"github.com/go-playground/validator/v10"

	"github.com/huddlechat/huddle/internal/stats"
	"github.com/huddlechat/huddle/internal/store"
)

const eventQueueSize = 1024

type clientEvent struct {
	client *Client
	env    *Envelope
}

type stopReq struct {
	done chan struct{}
}

// ChatServer is the room relay. A single run loop consumes connection
// events and inbound envelopes, so every envelope is handled to
// completion, including its fan-out, before the next one starts.
type ChatServer struct {
	log      *log.Logger
	store    store.RoomStore
	stats    stats.StatsProvider
	registry *Registry
	validate *validator.Validate

	clients        map[*Client]struct{}
	registerChan   chan *Client
	deRegisterChan chan *Client
	eventChan      chan clientEvent
	stop           chan stopReq
}

func NewChatServer(logger *log.Logger, st store.RoomStore, su stats.StatsProvider) (*ChatServer, error) {
	cs := &ChatServer{
		log:            logger,
		store:          st,
		stats:          su,
		registry:       NewRegistry(),
		validate:       validator.New(),
		clients:        make(map[*Client]struct{}),
		registerChan:   make(chan *Client),
		deRegisterChan: make(chan *Client),
		eventChan:      make(chan clientEvent, eventQueueSize),
		stop:           make(chan stopReq),
	}

	cs.stats.RegisterMetric(stats.ActiveConnections)
	cs.stats.RegisterMetric(stats.RoomsCreated)
	cs.stats.RegisterMetric(stats.MessagesRelayed)
	cs.stats.RegisterMetric(stats.SignalsForwarded)

	return cs, nil
}

func (cs *ChatServer) Run() {
	for {
		select {
		case c := <-cs.registerChan:
			cs.clients[c] = struct{}{}
			cs.stats.Incr(stats.ActiveConnections)
		case c := <-cs.deRegisterChan:
			if _, ok := cs.clients[c]; !ok {
				continue
			}
			// An abrupt close is a leave_room in all but name.
			cs.handleDisconnect(c)
			delete(cs.clients, c)
			cs.stats.Decr(stats.ActiveConnections)
		case ev := <-cs.eventChan:
			cs.handleEnvelope(ev.client, ev.env)
		case req := <-cs.stop:
			for c := range cs.clients {
				c.stopClient()
			}
			close(req.done)
			return
		}
	}
}

// RegisterClient hands a freshly upgraded connection to the run loop.
func (cs *ChatServer) RegisterClient(c *Client) {
	cs.registerChan <- c
}

// dispatch queues an inbound envelope for the run loop. A full queue
// drops the envelope, the protocol surfaces no errors to the sender.
func (cs *ChatServer) dispatch(c *Client, env *Envelope) {
	select {
	case cs.eventChan <- clientEvent{client: c, env: env}:
	default:
		cs.log.Printf("event queue full, dropping %q envelope", env.Type)
	}
}

func (cs *ChatServer) Shutdown(ctx context.Context) error {
	req := stopReq{done: make(chan struct{})}

	select {
	case cs.stop <- req:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-req.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// broadcastToRoom fans an envelope out to the room's current clients.
// The recipient set is a snapshot taken at send time.
func (cs *ChatServer) broadcastToRoom(roomId, typ string, payload any, skip *Client) {
	env, err := newEnvelope(typ, payload)
	if err != nil {
		cs.log.Printf("failed to build %s envelope: %v", typ, err)
		return
	}

	for _, c := range cs.registry.RoomClients(roomId, skip) {
		c.queueMessage(env)
	}
}

// relayToUser forwards an envelope to the one client bound to the
// username. No target means no delivery and no error.
func (cs *ChatServer) relayToUser(username string, env *Envelope) {
	target, ok := cs.registry.ClientForUsername(username)
	if !ok {
		cs.log.Printf("no connection for %q, dropping %q envelope", username, env.Type)
		return
	}

	target.queueMessage(env)
	cs.stats.Incr(stats.SignalsForwarded)
}
