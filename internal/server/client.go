package server

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 1 << 20 // inline attachments ride the envelope
)

// Client owns one websocket connection. It has no identity of its own
// until a join_room binds it in the relay's registry.
type Client struct {
	conn  *websocket.Conn
	relay *ChatServer
	log   *log.Logger
	send  chan *Envelope
	stop  chan struct{}
}

func NewClient(conn *websocket.Conn, relay *ChatServer, l *log.Logger) *Client {
	return &Client{
		conn:  conn,
		relay: relay,
		log:   l,
		send:  make(chan *Envelope, 256),
		stop:  make(chan struct{}),
	}
}

func (c *Client) Write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case env, ok := <-c.send:
			if !ok {
				return
			}

			bytes, err := json.Marshal(env)
			if err != nil {
				c.log.Println("failed to serialize envelope:", err)
				continue
			}

			if !c.sendMessage(websocket.TextMessage, bytes) {
				return
			}
		case <-c.stop:
			return
		case <-ticker.C:
			if !c.sendMessage(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

func (c *Client) Read() {
	defer func() {
		c.conn.Close()
		c.cleanup()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(appData string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.log.Printf("ws: read: %v", err)
			}
			break
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			// Malformed envelopes are dropped, the protocol has no error
			// reply.
			c.log.Println("error parsing envelope:", err)
			continue
		}

		c.relay.dispatch(c, &env)
	}
}

// queueMessage hands an envelope to the write pump without blocking. A
// full send buffer drops the envelope, matching the protocol's
// fire-and-forget delivery.
func (c *Client) queueMessage(env *Envelope) bool {
	select {
	case c.send <- env:
	default:
		c.log.Println("send buffer full, dropping envelope")
		return false
	}

	return true
}

func (c *Client) queueEnvelope(typ string, payload any) bool {
	env, err := newEnvelope(typ, payload)
	if err != nil {
		c.log.Printf("failed to build %s envelope: %v", typ, err)
		return false
	}
	return c.queueMessage(env)
}

func (c *Client) sendMessage(msgType int, msg []byte) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := c.conn.WriteMessage(msgType, msg); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			c.log.Printf("write message: %s", err)
		}
		return false
	}

	return true
}

func (c *Client) stopClient() {
	select {
	case <-c.stop:
	default:
		close(c.stop)
	}
}

func (c *Client) cleanup() {
	c.relay.deRegisterChan <- c
	c.stopClient()
}
