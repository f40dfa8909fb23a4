package engine

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/bingohall/go/internal/models"
)

// Join codes avoid ambiguous glyphs (0/O, 1/I/L) since they get typed from
// a phone screen.
const joinCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const joinCodeLength = 6

// Registry owns every live room worker in the process. It is an explicit
// object handed to the gateway — never ambient package state — and its
// lifetime is tied to process start/stop.
type Registry struct {
	clock       clockwork.Clock
	broadcaster Broadcaster
	publisher   Publisher
	seed        func() int64

	mu     sync.RWMutex
	rooms  map[uuid.UUID]*Room
	byCode map[string]*Room
	closed bool
}

// RegistryConfig configures a Registry. Broadcaster is required. Seed may
// be nil; tests inject a deterministic one.
type RegistryConfig struct {
	Clock       clockwork.Clock
	Broadcaster Broadcaster
	Publisher   Publisher
	Seed        func() int64
}

// NewRegistry creates an empty registry.
func NewRegistry(cfg RegistryConfig) *Registry {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Seed == nil {
		clock := cfg.Clock
		cfg.Seed = func() int64 { return clock.Now().UnixNano() }
	}
	return &Registry{
		clock:       cfg.Clock,
		broadcaster: cfg.Broadcaster,
		publisher:   cfg.Publisher,
		seed:        cfg.Seed,
		rooms:       make(map[uuid.UUID]*Room),
		byCode:      make(map[string]*Room),
	}
}

// CreatedRoom is the caller-facing result of CreateRoom. AdminToken is
// returned exactly once, here; the registry only compares it afterwards.
type CreatedRoom struct {
	Room       models.Room
	AdminToken string
}

// CreateRoom spins up a new room worker in the CREATED state.
func (reg *Registry) CreateRoom(ctx context.Context, settings models.RoomSettings) (CreatedRoom, error) {
	if err := validateSettings(settings); err != nil {
		return CreatedRoom{}, err
	}

	reg.mu.Lock()
	if reg.closed {
		reg.mu.Unlock()
		return CreatedRoom{}, ErrRoomClosed
	}
	code, err := reg.newJoinCodeLocked()
	if err != nil {
		reg.mu.Unlock()
		return CreatedRoom{}, err
	}
	room := newRoom(RoomConfig{
		Settings:    settings,
		JoinCode:    code,
		AdminToken:  uuid.NewString(),
		Seed:        reg.seed(),
		Clock:       reg.clock,
		Broadcaster: reg.broadcaster,
		Publisher:   reg.publisher,
	})
	reg.rooms[room.ID()] = room
	reg.byCode[code] = room
	reg.mu.Unlock()

	snap, _, err := room.Snapshot(ctx)
	if err != nil {
		return CreatedRoom{}, fmt.Errorf("snapshot new room: %w", err)
	}
	log.Info().
		Str("room_id", room.ID().String()).
		Str("join_code", code).
		Str("draw_mode", string(settings.DrawMode)).
		Msg("room created")
	return CreatedRoom{Room: snap, AdminToken: room.adminToken}, nil
}

// Room looks a room up by id.
func (reg *Registry) Room(id uuid.UUID) (*Room, error) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	room, ok := reg.rooms[id]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

// RoomByCode looks a room up by its join code (case-insensitive on the
// alphabet above; codes are stored upper-case).
func (reg *Registry) RoomByCode(code string) (*Room, error) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	room, ok := reg.byCode[strings.ToUpper(code)]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

// RegisterPlayer joins a player to the room matching the code.
func (reg *Registry) RegisterPlayer(ctx context.Context, code, name string) (models.Player, error) {
	room, err := reg.RoomByCode(code)
	if err != nil {
		return models.Player{}, err
	}
	return room.RegisterPlayer(ctx, name)
}

// CloseRoom shuts down one room worker and forgets it. Used by the expiry
// sweep owner once a room passes its hard 12h cap.
func (reg *Registry) CloseRoom(id uuid.UUID) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	room, ok := reg.rooms[id]
	if !ok {
		return
	}
	delete(reg.rooms, id)
	delete(reg.byCode, room.JoinCode())
	room.Close()
	log.Info().Str("room_id", id.String()).Msg("room closed and removed from registry")
}

// Close shuts every room worker down. The registry accepts no further
// CreateRoom calls.
func (reg *Registry) Close() {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.closed = true
	for id, room := range reg.rooms {
		room.Close()
		delete(reg.rooms, id)
		delete(reg.byCode, room.JoinCode())
	}
}

// SweepExpired closes every room that has passed its hard lifetime cap.
// Meant to run on a janitor ticker; returns the number of rooms removed.
func (reg *Registry) SweepExpired(ctx context.Context) int {
	reg.mu.RLock()
	candidates := make([]*Room, 0, len(reg.rooms))
	for _, room := range reg.rooms {
		candidates = append(candidates, room)
	}
	reg.mu.RUnlock()

	now := reg.clock.Now()
	removed := 0
	for _, room := range candidates {
		snap, _, err := room.Snapshot(ctx)
		if err != nil {
			continue
		}
		if snap.ExpiresAt.After(now) {
			continue
		}
		reg.CloseRoom(room.ID())
		removed++
	}
	if removed > 0 {
		log.Info().Int("rooms", removed).Msg("swept expired rooms")
	}
	return removed
}

// RoomCount reports how many rooms are live.
func (reg *Registry) RoomCount() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.rooms)
}

func (reg *Registry) newJoinCodeLocked() (string, error) {
	for attempt := 0; attempt < 32; attempt++ {
		code, err := randomJoinCode(joinCodeLength)
		if err != nil {
			return "", err
		}
		if _, taken := reg.byCode[code]; !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("could not allocate a unique join code")
}

func randomJoinCode(n int) (string, error) {
	buf := make([]byte, n)
	max := big.NewInt(int64(len(joinCodeAlphabet)))
	for i := range buf {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate join code: %w", err)
		}
		buf[i] = joinCodeAlphabet[idx.Int64()]
	}
	return string(buf), nil
}
