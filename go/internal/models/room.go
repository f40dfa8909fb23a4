package models

import (
	"time"

	"github.com/google/uuid"
)

// RoomLifetime is the hard cap on how long a room may exist. The expiry
// timestamp is stamped at creation; sweeping expired records is the job of
// the storage layer's owner, not this module.
const RoomLifetime = 12 * time.Hour

// MaxBallValue is the highest number that can be drawn in an American game
// of bingo.
const MaxBallValue = 75

// DrawMode defines how a room's numbers get called.
type DrawMode string

const (
	DrawModeManual DrawMode = "MANUAL"
	DrawModeTimed  DrawMode = "TIMED"
)

// RoomStatus defines the lifecycle status of a room.
type RoomStatus string

const (
	RoomStatusCreated RoomStatus = "CREATED"
	RoomStatusActive  RoomStatus = "ACTIVE"
	RoomStatusPaused  RoomStatus = "PAUSED"
	RoomStatusEnded   RoomStatus = "ENDED"
)

// RoomSettings holds the draw configuration for a room.
type RoomSettings struct {
	DrawMode        DrawMode `json:"draw_mode"`
	DrawIntervalSec int      `json:"draw_interval_sec,omitempty"` // TIMED only
}

// Room represents one bingo game session. It is the unit of isolation and
// lifecycle: a room exclusively owns its players and its drawn-number
// sequence, and nothing in it outlives the room.
type Room struct {
	ID       uuid.UUID    `json:"id"`
	JoinCode string       `json:"join_code"`
	Status   RoomStatus   `json:"status"`
	Settings RoomSettings `json:"settings"`

	// DrawnNumbers is append-only, holds values 1..75 with no repeats, and
	// is a prefix of the permutation fixed at room creation.
	DrawnNumbers []int `json:"drawn_numbers"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
	LastDrawnAt *time.Time `json:"last_drawn_at,omitempty"`
	ExpiresAt   time.Time  `json:"expires_at"`
}

// DrawnSet returns the drawn numbers as a membership set.
func (r *Room) DrawnSet() map[int]bool {
	set := make(map[int]bool, len(r.DrawnNumbers))
	for _, n := range r.DrawnNumbers {
		set[n] = true
	}
	return set
}

// Remaining reports how many numbers are still undrawn.
func (r *Room) Remaining() int {
	return MaxBallValue - len(r.DrawnNumbers)
}

// RoomStats is the aggregate view exposed to admins.
type RoomStats struct {
	RoomID           uuid.UUID `json:"room_id"`
	TotalPlayers     int       `json:"total_players"`
	ActivePlayers    int       `json:"active_players"`
	PlayersWithBingo int       `json:"players_with_bingo"`
	DrawnCount       int       `json:"drawn_count"`
	Remaining        int       `json:"remaining"`
}
