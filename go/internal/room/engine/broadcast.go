package engine

import (
	"github.com/google/uuid"

	"github.com/mcdev12/bingohall/go/internal/room/events"
)

// Subscriber is one connection's inbox. Enqueue must never block; it
// returns false when the subscriber cannot keep up, in which case the
// broadcaster is expected to evict it.
type Subscriber interface {
	SubscriberID() uuid.UUID
	Enqueue(env events.Envelope) bool
}

// Broadcaster fans committed envelopes out to a room's subscribers. All
// calls for one room are made from that room's worker goroutine, in commit
// order; implementations must preserve that order per subscriber.
type Broadcaster interface {
	Subscribe(roomID uuid.UUID, sub Subscriber)
	Unsubscribe(roomID uuid.UUID, subID uuid.UUID)
	Broadcast(roomID uuid.UUID, env events.Envelope)
}

// Publisher mirrors committed envelopes to an external bus (see the relay
// package). Optional; in-process broadcast never depends on it.
type Publisher interface {
	Publish(roomID uuid.UUID, env events.Envelope)
}
