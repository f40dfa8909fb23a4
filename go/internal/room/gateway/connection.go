package gateway

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/bingohall/go/internal/room/engine"
	"github.com/mcdev12/bingohall/go/internal/room/events"
)

// Connection is a single WebSocket subscriber. Outbound envelopes flow
// through a buffered send channel drained by a dedicated write pump, so
// the room worker never blocks on a slow socket.
type Connection struct {
	ID       uuid.UUID
	RoomID   uuid.UUID
	PlayerID *uuid.UUID // nil for admin connections
	Admin    bool

	ws      *websocket.Conn
	send    chan events.Envelope
	done    chan struct{}
	once    sync.Once
	compact bool
	config  ConnectionConfig
}

var _ engine.Subscriber = (*Connection)(nil)

func newConnection(ws *websocket.Conn, roomID uuid.UUID, playerID *uuid.UUID, admin, compact bool, config ConnectionConfig) *Connection {
	return &Connection{
		ID:       uuid.New(),
		RoomID:   roomID,
		PlayerID: playerID,
		Admin:    admin,
		ws:       ws,
		send:     make(chan events.Envelope, config.SendBuffer),
		done:     make(chan struct{}),
		compact:  compact,
		config:   config,
	}
}

// SubscriberID implements engine.Subscriber.
func (c *Connection) SubscriberID() uuid.UUID { return c.ID }

// Enqueue implements engine.Subscriber. It never blocks: a full buffer
// means the client is too slow and the manager will evict it.
func (c *Connection) Enqueue(env events.Envelope) bool {
	select {
	case <-c.done:
		return true // already closing, drop silently
	default:
	}
	select {
	case c.send <- env:
		return true
	default:
		return false
	}
}

// Close tears the connection down exactly once. Safe to call from any
// goroutine.
func (c *Connection) Close() {
	c.once.Do(func() {
		close(c.done)
		c.ws.Close()
	})
}

// writePump serializes envelopes onto the socket and keeps the connection
// alive with pings. One per connection; exits when the connection closes.
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case env := <-c.send:
			raw, err := c.encode(env)
			if err != nil {
				log.Error().Err(err).
					Str("connection_id", c.ID.String()).
					Str("type", string(env.Type)).
					Msg("failed to encode envelope")
				continue
			}
			c.ws.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, raw); err != nil {
				log.Debug().Err(err).
					Str("connection_id", c.ID.String()).
					Msg("write failed, closing connection")
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump reads inbound messages and hands them to the dispatcher. It
// owns the socket's read side; when it returns the connection is done.
func (c *Connection) readPump(dispatch func(*Connection, []byte)) {
	defer c.Close()

	c.ws.SetReadLimit(c.config.MaxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
		return nil
	})

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).
					Str("connection_id", c.ID.String()).
					Msg("unexpected websocket close")
			}
			return
		}
		dispatch(c, raw)
	}
}

// encode marshals the envelope, applying key compaction when the client
// asked for it at upgrade time.
func (c *Connection) encode(env events.Envelope) ([]byte, error) {
	raw, err := json.Marshal(env)
	if err != nil {
		return nil, err
	}
	if !c.compact {
		return raw, nil
	}
	return events.Compact(raw)
}

// decode parses an inbound envelope, expanding compacted keys when the
// connection negotiated compaction.
func (c *Connection) decode(raw []byte) (events.Envelope, error) {
	if c.compact {
		expanded, err := events.Expand(raw)
		if err != nil {
			return events.Envelope{}, err
		}
		raw = expanded
	}
	var env events.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return events.Envelope{}, err
	}
	return env, nil
}
