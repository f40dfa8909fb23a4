// Package store persists room and player records so operators can inspect
// game history and expired rooms can be swept. The engine never reads from
// the store on the hot path; writes are write-through from the gateway.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/mcdev12/bingohall/go/internal/models"
)

// ErrNotFound is returned by lookups that match no record.
var ErrNotFound = errors.New("store: not found")

// Store is the persistence boundary for rooms and players.
type Store interface {
	// SaveRoom inserts or replaces a room record.
	SaveRoom(ctx context.Context, room models.Room) error
	// SavePlayer inserts or replaces a player record.
	SavePlayer(ctx context.Context, player models.Player) error

	// Room fetches a room by id.
	Room(ctx context.Context, id uuid.UUID) (models.Room, error)
	// RoomByJoinCode fetches a room by its join code.
	RoomByJoinCode(ctx context.Context, code string) (models.Room, error)
	// Player fetches a player by id.
	Player(ctx context.Context, id uuid.UUID) (models.Player, error)
	// PlayerByConnectionID fetches the player currently bound to the
	// given live connection.
	PlayerByConnectionID(ctx context.Context, connID uuid.UUID) (models.Player, error)
	// PlayersByRoom lists a room's roster in join order.
	PlayersByRoom(ctx context.Context, roomID uuid.UUID) ([]models.Player, error)

	// DeleteExpiredRooms removes rooms whose expiry stamp is before the
	// cutoff, along with their players. Returns the number of rooms
	// removed.
	DeleteExpiredRooms(ctx context.Context, cutoff time.Time) (int, error)

	// Close releases the store's resources.
	Close()
}
