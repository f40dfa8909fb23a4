package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mcdev12/bingohall/go/internal/models"
)

// PostgresStore persists rooms and players in Postgres. Cards, punched
// sets and drawn sequences are stored as jsonb; the relational columns
// cover only what lookups and the expiry sweep need.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore connects a pool and verifies it with a ping.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) SaveRoom(ctx context.Context, room models.Room) error {
	drawn, err := json.Marshal(room.DrawnNumbers)
	if err != nil {
		return fmt.Errorf("marshal drawn numbers: %w", err)
	}
	settings, err := json.Marshal(room.Settings)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
        INSERT INTO rooms (
          id, join_code, status, settings, drawn_numbers,
          created_at, started_at, ended_at, last_drawn_at, expires_at
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        ON CONFLICT (id) DO UPDATE SET
          status        = EXCLUDED.status,
          settings      = EXCLUDED.settings,
          drawn_numbers = EXCLUDED.drawn_numbers,
          started_at    = EXCLUDED.started_at,
          ended_at      = EXCLUDED.ended_at,
          last_drawn_at = EXCLUDED.last_drawn_at
    `,
		room.ID, room.JoinCode, room.Status, settings, drawn,
		room.CreatedAt, room.StartedAt, room.EndedAt, room.LastDrawnAt, room.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("save room: %w", err)
	}
	return nil
}

func (s *PostgresStore) SavePlayer(ctx context.Context, player models.Player) error {
	card, err := json.Marshal(player.Card)
	if err != nil {
		return fmt.Errorf("marshal card: %w", err)
	}
	punched, err := json.Marshal(player.PunchedNumbers)
	if err != nil {
		return fmt.Errorf("marshal punched numbers: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
        INSERT INTO players (
          id, room_id, name, card, punched_numbers,
          has_bingo, won_at, connection_id, online, last_seen_at, joined_at
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        ON CONFLICT (id) DO UPDATE SET
          punched_numbers = EXCLUDED.punched_numbers,
          has_bingo       = EXCLUDED.has_bingo,
          won_at          = EXCLUDED.won_at,
          connection_id   = EXCLUDED.connection_id,
          online          = EXCLUDED.online,
          last_seen_at    = EXCLUDED.last_seen_at
    `,
		player.ID, player.RoomID, player.Name, card, punched,
		player.HasBingo, player.WonAt, player.ConnectionID, player.Online, player.LastSeenAt, player.JoinedAt,
	)
	if err != nil {
		return fmt.Errorf("save player: %w", err)
	}
	return nil
}

func (s *PostgresStore) Room(ctx context.Context, id uuid.UUID) (models.Room, error) {
	row := s.pool.QueryRow(ctx, `
        SELECT id, join_code, status, settings, drawn_numbers,
               created_at, started_at, ended_at, last_drawn_at, expires_at
        FROM rooms WHERE id = $1
    `, id)
	return scanRoom(row)
}

func (s *PostgresStore) RoomByJoinCode(ctx context.Context, code string) (models.Room, error) {
	row := s.pool.QueryRow(ctx, `
        SELECT id, join_code, status, settings, drawn_numbers,
               created_at, started_at, ended_at, last_drawn_at, expires_at
        FROM rooms WHERE join_code = $1
    `, code)
	return scanRoom(row)
}

func (s *PostgresStore) Player(ctx context.Context, id uuid.UUID) (models.Player, error) {
	row := s.pool.QueryRow(ctx, `
        SELECT id, room_id, name, card, punched_numbers,
               has_bingo, won_at, connection_id, online, last_seen_at, joined_at
        FROM players WHERE id = $1
    `, id)
	return scanPlayer(row)
}

func (s *PostgresStore) PlayerByConnectionID(ctx context.Context, connID uuid.UUID) (models.Player, error) {
	row := s.pool.QueryRow(ctx, `
        SELECT id, room_id, name, card, punched_numbers,
               has_bingo, won_at, connection_id, online, last_seen_at, joined_at
        FROM players WHERE connection_id = $1
    `, connID)
	return scanPlayer(row)
}

func (s *PostgresStore) PlayersByRoom(ctx context.Context, roomID uuid.UUID) ([]models.Player, error) {
	rows, err := s.pool.Query(ctx, `
        SELECT id, room_id, name, card, punched_numbers,
               has_bingo, won_at, connection_id, online, last_seen_at, joined_at
        FROM players WHERE room_id = $1
        ORDER BY joined_at
    `, roomID)
	if err != nil {
		return nil, fmt.Errorf("query players: %w", err)
	}
	defer rows.Close()

	var players []models.Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

func (s *PostgresStore) DeleteExpiredRooms(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM rooms WHERE expires_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete expired rooms: %w", err)
	}
	// players row cleanup rides on ON DELETE CASCADE
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoom(row rowScanner) (models.Room, error) {
	var (
		room     models.Room
		settings []byte
		drawn    []byte
	)
	err := row.Scan(
		&room.ID, &room.JoinCode, &room.Status, &settings, &drawn,
		&room.CreatedAt, &room.StartedAt, &room.EndedAt, &room.LastDrawnAt, &room.ExpiresAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Room{}, ErrNotFound
	}
	if err != nil {
		return models.Room{}, fmt.Errorf("scan room: %w", err)
	}
	if err := json.Unmarshal(settings, &room.Settings); err != nil {
		return models.Room{}, fmt.Errorf("unmarshal settings: %w", err)
	}
	if err := json.Unmarshal(drawn, &room.DrawnNumbers); err != nil {
		return models.Room{}, fmt.Errorf("unmarshal drawn numbers: %w", err)
	}
	return room, nil
}

func scanPlayer(row rowScanner) (models.Player, error) {
	var (
		player  models.Player
		card    []byte
		punched []byte
	)
	err := row.Scan(
		&player.ID, &player.RoomID, &player.Name, &card, &punched,
		&player.HasBingo, &player.WonAt, &player.ConnectionID, &player.Online, &player.LastSeenAt, &player.JoinedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Player{}, ErrNotFound
	}
	if err != nil {
		return models.Player{}, fmt.Errorf("scan player: %w", err)
	}
	if err := json.Unmarshal(card, &player.Card); err != nil {
		return models.Player{}, fmt.Errorf("unmarshal card: %w", err)
	}
	if err := json.Unmarshal(punched, &player.PunchedNumbers); err != nil {
		return models.Player{}, fmt.Errorf("unmarshal punched numbers: %w", err)
	}
	return player, nil
}
