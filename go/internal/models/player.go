package models

import (
	"time"

	"github.com/google/uuid"
)

// Player represents a participant in exactly one room. The server is the
// sole authority over PunchedNumbers: every member must be on the player's
// card and in the room's drawn sequence. Client state is advisory only.
type Player struct {
	ID     uuid.UUID `json:"id"`
	RoomID uuid.UUID `json:"room_id"`
	Name   string    `json:"name"`
	Card   Card      `json:"card"`

	// PunchedNumbers excludes the free cell, which is implicitly punched.
	PunchedNumbers []int `json:"punched_numbers"`

	// HasBingo is set exactly once and never cleared; WonAt records the
	// first moment a completed line was detected.
	HasBingo bool       `json:"has_bingo"`
	WonAt    *time.Time `json:"won_at,omitempty"`

	ConnectionID *uuid.UUID `json:"connection_id,omitempty"`
	Online       bool       `json:"online"`
	LastSeenAt   time.Time  `json:"last_seen_at"`

	JoinedAt time.Time `json:"joined_at"`
}

// PunchedSet returns the punched numbers as a membership set.
func (p *Player) PunchedSet() map[int]bool {
	set := make(map[int]bool, len(p.PunchedNumbers))
	for _, n := range p.PunchedNumbers {
		set[n] = true
	}
	return set
}

// Punched reports whether n is in the player's punched set.
func (p *Player) Punched(n int) bool {
	for _, v := range p.PunchedNumbers {
		if v == n {
			return true
		}
	}
	return false
}
