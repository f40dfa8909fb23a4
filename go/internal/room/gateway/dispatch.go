package gateway

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/bingohall/go/internal/models"
	"github.com/mcdev12/bingohall/go/internal/room/engine"
	"github.com/mcdev12/bingohall/go/internal/room/events"
)

// dispatch routes one inbound message to the engine. Accepted mutations
// come back to the sender through the room broadcast; only rejections,
// sync responses and stats are unicast.
func (s *Service) dispatch(conn *Connection, raw []byte) {
	env, err := conn.decode(raw)
	if err != nil {
		s.unicastError(conn, "", engine.CodeBadRequest, "malformed message")
		return
	}
	payload, err := events.ParsePayload(env)
	if err != nil {
		s.unicastError(conn, env.Type, engine.CodeBadRequest, err.Error())
		return
	}
	room, err := s.registry.Room(conn.RoomID)
	if err != nil {
		s.unicastError(conn, env.Type, engine.CodeRoomNotFound, "room not found")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	switch env.Type {
	case events.TypePunch, events.TypeUnpunch:
		s.handlePunch(ctx, room, conn, env.Type, payload.(*events.PunchPayload))

	case events.TypeDrawNumber:
		if !s.requireAdmin(conn, env.Type) {
			return
		}
		if _, err := room.Draw(ctx); err != nil {
			s.unicastError(conn, env.Type, engine.ErrorCode(err), err.Error())
		}

	case events.TypeStartRoom:
		s.handleLifecycle(ctx, room, conn, env.Type, room.Start)
	case events.TypePauseRoom:
		s.handleLifecycle(ctx, room, conn, env.Type, room.Pause)
	case events.TypeResumeRoom:
		s.handleLifecycle(ctx, room, conn, env.Type, room.Resume)
	case events.TypeEndRoom:
		s.handleLifecycle(ctx, room, conn, env.Type, room.End)

	case events.TypeUpdateSettings:
		if !s.requireAdmin(conn, env.Type) {
			return
		}
		p := payload.(*events.UpdateSettingsPayload)
		updated, err := room.UpdateSettings(ctx, models.RoomSettings{
			DrawMode:        p.DrawMode,
			DrawIntervalSec: p.DrawIntervalSec,
		})
		if err != nil {
			s.unicastError(conn, env.Type, engine.ErrorCode(err), err.Error())
			return
		}
		s.persistRoom(updated)

	case events.TypeSyncRequest:
		s.handleSync(ctx, room, conn, payload.(*events.SyncRequestPayload))

	case events.TypeGetStats:
		if !s.requireAdmin(conn, env.Type) {
			return
		}
		stats, err := room.Stats(ctx)
		if err != nil {
			s.unicastError(conn, env.Type, engine.ErrorCode(err), err.Error())
			return
		}
		s.unicast(conn, events.TypeRoomStats, events.StatsPayload{Stats: stats})

	case events.TypeJoin:
		// joining happens over REST before the socket is opened
		s.unicastError(conn, env.Type, engine.CodeBadRequest, "connection is already bound to a player")

	default:
		s.unicastError(conn, env.Type, engine.CodeBadRequest, "unsupported message type")
	}
}

// handlePunch applies a punch or unpunch. A player connection may only
// mutate its own card; admins may not punch at all.
func (s *Service) handlePunch(ctx context.Context, room *engine.Room, conn *Connection, t events.MessageType, p *events.PunchPayload) {
	// the rejected number rides along so the client rolls back the
	// matching optimistic mark
	fail := func(code, message string) {
		log.Debug().
			Str("connection_id", conn.ID.String()).
			Str("request_type", string(t)).
			Str("code", code).
			Int("number", p.Number).
			Msg("rejecting client request")
		s.unicast(conn, events.TypeError, events.ErrorPayload{
			Code:        code,
			Message:     message,
			RequestType: t,
			Number:      p.Number,
		})
	}

	if conn.PlayerID == nil {
		fail(engine.CodeForbidden, "admin connections cannot punch")
		return
	}
	if p.PlayerID != "" && p.PlayerID != conn.PlayerID.String() {
		fail(engine.CodeForbidden, "cannot punch another player's card")
		return
	}

	op := room.Punch
	if t == events.TypeUnpunch {
		op = room.Unpunch
	}
	player, err := op(ctx, *conn.PlayerID, p.Number)
	if err != nil {
		fail(engine.ErrorCode(err), err.Error())
		return
	}
	s.persistPlayer(player)
}

// handleLifecycle runs a privileged status transition.
func (s *Service) handleLifecycle(ctx context.Context, room *engine.Room, conn *Connection, t events.MessageType, op func(context.Context) (models.Room, error)) {
	if !s.requireAdmin(conn, t) {
		return
	}
	updated, err := op(ctx)
	if err != nil {
		s.unicastError(conn, t, engine.ErrorCode(err), err.Error())
		return
	}
	s.persistRoom(updated)
}

// handleSync answers a reconnect reconciliation request with authoritative
// room and player snapshots.
func (s *Service) handleSync(ctx context.Context, room *engine.Room, conn *Connection, p *events.SyncRequestPayload) {
	var target uuid.UUID
	switch {
	case conn.PlayerID != nil:
		target = *conn.PlayerID
	case p.PlayerID != "":
		parsed, err := uuid.Parse(p.PlayerID)
		if err != nil {
			s.unicastError(conn, events.TypeSyncRequest, engine.CodeBadRequest, "invalid player_id")
			return
		}
		target = parsed
	default:
		s.unicastError(conn, events.TypeSyncRequest, engine.CodeBadRequest, "player_id is required")
		return
	}

	resp, err := room.Sync(ctx, target)
	if err != nil {
		s.unicastError(conn, events.TypeSyncRequest, engine.ErrorCode(err), err.Error())
		return
	}
	s.unicast(conn, events.TypeSyncResponse, resp)
}

func (s *Service) requireAdmin(conn *Connection, t events.MessageType) bool {
	if conn.Admin {
		return true
	}
	s.unicastError(conn, t, engine.CodeForbidden, "admin connection required")
	return false
}

// unicast sends a reply to a single connection outside the room's commit
// sequence; Seq stays zero so clients never confuse it with a delta.
func (s *Service) unicast(conn *Connection, t events.MessageType, payload any) {
	env := events.New(t, conn.RoomID.String(), 0, time.Now(), payload)
	if !conn.Enqueue(env) {
		log.Warn().
			Str("connection_id", conn.ID.String()).
			Str("type", string(t)).
			Msg("dropping unicast reply, send buffer full")
	}
}

func (s *Service) unicastError(conn *Connection, requestType events.MessageType, code, message string) {
	log.Debug().
		Str("connection_id", conn.ID.String()).
		Str("request_type", string(requestType)).
		Str("code", code).
		Msg("rejecting client request")
	s.unicast(conn, events.TypeError, events.ErrorPayload{
		Code:        code,
		Message:     message,
		RequestType: requestType,
	})
}
