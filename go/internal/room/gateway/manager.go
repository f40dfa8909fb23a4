// Package gateway is the realtime edge of the room server: it upgrades
// WebSocket connections, keeps per-room connection pools, fans committed
// envelopes out in commit order, and translates inbound client messages
// into engine requests.
package gateway

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/bingohall/go/internal/room/engine"
	"github.com/mcdev12/bingohall/go/internal/room/events"
)

// ConnectionConfig holds the WebSocket tunables.
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBuffer      int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultConnectionConfig returns production defaults. The read timeout is
// generous because mobile clients background and miss pings.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  4096,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendBuffer:      256,
		CheckOrigin: func(r *http.Request) bool {
			// Mobile clients connect from app webviews; origin checks are
			// enforced at the edge proxy.
			return true
		},
	}
}

// ConnectionManager keeps the per-room connection pools and implements
// engine.Broadcaster. Subscribe/Broadcast for one room are only ever
// called from that room's worker goroutine, which is what preserves
// commit order across the fan-out.
type ConnectionManager struct {
	mu    sync.RWMutex
	rooms map[uuid.UUID]map[uuid.UUID]engine.Subscriber

	upgrader websocket.Upgrader
	config   ConnectionConfig
}

var _ engine.Broadcaster = (*ConnectionManager)(nil)

// NewConnectionManager creates an empty manager.
func NewConnectionManager(config ConnectionConfig) *ConnectionManager {
	return &ConnectionManager{
		rooms: make(map[uuid.UUID]map[uuid.UUID]engine.Subscriber),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config: config,
	}
}

// Subscribe attaches a subscriber to a room's fan-out.
func (cm *ConnectionManager) Subscribe(roomID uuid.UUID, sub engine.Subscriber) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.rooms[roomID] == nil {
		cm.rooms[roomID] = make(map[uuid.UUID]engine.Subscriber)
	}
	cm.rooms[roomID][sub.SubscriberID()] = sub
	log.Debug().
		Str("room_id", roomID.String()).
		Str("subscriber_id", sub.SubscriberID().String()).
		Int("room_subscribers", len(cm.rooms[roomID])).
		Msg("subscriber attached")
}

// Unsubscribe detaches a subscriber; it stops receiving envelopes
// immediately.
func (cm *ConnectionManager) Unsubscribe(roomID uuid.UUID, subID uuid.UUID) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	subs, ok := cm.rooms[roomID]
	if !ok {
		return
	}
	if _, ok := subs[subID]; !ok {
		return
	}
	delete(subs, subID)
	if len(subs) == 0 {
		delete(cm.rooms, roomID)
	}
	log.Debug().
		Str("room_id", roomID.String()).
		Str("subscriber_id", subID.String()).
		Msg("subscriber detached")
}

// Broadcast enqueues the envelope to every subscriber of the room. A
// subscriber that cannot keep up is evicted and closed rather than allowed
// to stall the room worker.
func (cm *ConnectionManager) Broadcast(roomID uuid.UUID, env events.Envelope) {
	cm.mu.RLock()
	subs := cm.rooms[roomID]
	targets := make([]engine.Subscriber, 0, len(subs))
	for _, sub := range subs {
		targets = append(targets, sub)
	}
	cm.mu.RUnlock()

	for _, sub := range targets {
		if sub.Enqueue(env) {
			continue
		}
		log.Warn().
			Str("room_id", roomID.String()).
			Str("subscriber_id", sub.SubscriberID().String()).
			Str("type", string(env.Type)).
			Msg("subscriber send buffer full, evicting")
		cm.Unsubscribe(roomID, sub.SubscriberID())
		if closer, ok := sub.(interface{ Close() }); ok {
			closer.Close()
		}
	}
}

// Stats returns connection counters for the info endpoint.
func (cm *ConnectionManager) Stats() (totalConnections, activeRooms int) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	for _, subs := range cm.rooms {
		totalConnections += len(subs)
	}
	return totalConnections, len(cm.rooms)
}
