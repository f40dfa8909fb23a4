package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mcdev12/bingohall/go/internal/models"
)

// MemoryStore is the default Store when no database is configured. It
// keeps everything in process memory and is safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	rooms   map[uuid.UUID]models.Room
	byCode  map[string]uuid.UUID
	players map[uuid.UUID]models.Player
	byConn  map[uuid.UUID]uuid.UUID // connection id -> player id
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rooms:   make(map[uuid.UUID]models.Room),
		byCode:  make(map[string]uuid.UUID),
		players: make(map[uuid.UUID]models.Player),
		byConn:  make(map[uuid.UUID]uuid.UUID),
	}
}

func (s *MemoryStore) SaveRoom(ctx context.Context, room models.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[room.ID] = room
	s.byCode[room.JoinCode] = room.ID
	return nil
}

func (s *MemoryStore) SavePlayer(ctx context.Context, player models.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.players[player.ID]; ok && old.ConnectionID != nil {
		delete(s.byConn, *old.ConnectionID)
	}
	s.players[player.ID] = player
	if player.ConnectionID != nil {
		s.byConn[*player.ConnectionID] = player.ID
	}
	return nil
}

func (s *MemoryStore) Room(ctx context.Context, id uuid.UUID) (models.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[id]
	if !ok {
		return models.Room{}, ErrNotFound
	}
	return room, nil
}

func (s *MemoryStore) RoomByJoinCode(ctx context.Context, code string) (models.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byCode[code]
	if !ok {
		return models.Room{}, ErrNotFound
	}
	return s.rooms[id], nil
}

func (s *MemoryStore) Player(ctx context.Context, id uuid.UUID) (models.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	player, ok := s.players[id]
	if !ok {
		return models.Player{}, ErrNotFound
	}
	return player, nil
}

func (s *MemoryStore) PlayerByConnectionID(ctx context.Context, connID uuid.UUID) (models.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byConn[connID]
	if !ok {
		return models.Player{}, ErrNotFound
	}
	return s.players[id], nil
}

func (s *MemoryStore) PlayersByRoom(ctx context.Context, roomID uuid.UUID) ([]models.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Player
	for _, p := range s.players {
		if p.RoomID == roomID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinedAt.Before(out[j].JoinedAt) })
	return out, nil
}

func (s *MemoryStore) DeleteExpiredRooms(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, room := range s.rooms {
		if !room.ExpiresAt.Before(cutoff) {
			continue
		}
		delete(s.rooms, id)
		delete(s.byCode, room.JoinCode)
		for pid, p := range s.players {
			if p.RoomID == id {
				if p.ConnectionID != nil {
					delete(s.byConn, *p.ConnectionID)
				}
				delete(s.players, pid)
			}
		}
		removed++
	}
	return removed, nil
}

func (s *MemoryStore) Close() {}
