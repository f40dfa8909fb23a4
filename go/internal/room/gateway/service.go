package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/bingohall/go/internal/models"
	"github.com/mcdev12/bingohall/go/internal/room/engine"
	"github.com/mcdev12/bingohall/go/internal/room/events"
	"github.com/mcdev12/bingohall/go/internal/room/store"
)

// requestTimeout bounds every engine call made on behalf of a client
// message.
const requestTimeout = 5 * time.Second

// Service owns the HTTP and WebSocket surface of the room server.
type Service struct {
	registry *engine.Registry
	manager  *ConnectionManager
	store    store.Store
}

// NewService wires the gateway. The store receives write-through copies of
// room and player records; failures there are logged, never surfaced to
// clients.
func NewService(registry *engine.Registry, manager *ConnectionManager, st store.Store) *Service {
	return &Service{registry: registry, manager: manager, store: st}
}

// RegisterRoutes mounts the gateway's endpoints on the mux.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/rooms", s.handleCreateRoom)
	mux.HandleFunc("POST /api/rooms/join", s.handleJoin)
	mux.HandleFunc("GET /api/rooms/{id}/stats", s.handleStats)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/info", s.handleInfo)
	mux.HandleFunc("GET /ws/room", s.handlePlayerSocket)
	mux.HandleFunc("GET /ws/admin", s.handleAdminSocket)
}

// --- REST handlers ---

type createRoomRequest struct {
	DrawMode        models.DrawMode `json:"draw_mode"`
	DrawIntervalSec int             `json:"draw_interval_sec,omitempty"`
}

type createRoomResponse struct {
	Room       models.Room `json:"room"`
	AdminToken string      `json:"admin_token"`
}

func (s *Service) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, engine.CodeBadRequest, "invalid request body")
		return
	}
	if req.DrawMode == "" {
		req.DrawMode = models.DrawModeManual
	}

	created, err := s.registry.CreateRoom(r.Context(), models.RoomSettings{
		DrawMode:        req.DrawMode,
		DrawIntervalSec: req.DrawIntervalSec,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, engine.ErrorCode(err), err.Error())
		return
	}
	s.persistRoom(created.Room)

	log.Info().
		Str("room_id", created.Room.ID.String()).
		Str("join_code", created.Room.JoinCode).
		Str("draw_mode", string(created.Room.Settings.DrawMode)).
		Msg("room created")
	writeJSON(w, http.StatusCreated, createRoomResponse{Room: created.Room, AdminToken: created.AdminToken})
}

type joinRequest struct {
	JoinCode string `json:"join_code"`
	Name     string `json:"name"`
}

type joinResponse struct {
	Player models.Player `json:"player"`
	RoomID uuid.UUID     `json:"room_id"`
}

func (s *Service) handleJoin(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, engine.CodeBadRequest, "invalid request body")
		return
	}
	if req.JoinCode == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, engine.CodeBadRequest, "join_code and name are required")
		return
	}

	player, err := s.registry.RegisterPlayer(r.Context(), req.JoinCode, req.Name)
	if err != nil {
		writeError(w, statusForCode(engine.ErrorCode(err)), engine.ErrorCode(err), err.Error())
		return
	}
	s.persistPlayer(player)

	log.Info().
		Str("room_id", player.RoomID.String()).
		Str("player_id", player.ID.String()).
		Str("name", player.Name).
		Msg("player joined")
	writeJSON(w, http.StatusOK, joinResponse{Player: player, RoomID: player.RoomID})
}

func (s *Service) handleStats(w http.ResponseWriter, r *http.Request) {
	roomID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, engine.CodeBadRequest, "invalid room id")
		return
	}
	room, err := s.registry.Room(roomID)
	if err != nil {
		writeError(w, http.StatusNotFound, engine.CodeRoomNotFound, "room not found")
		return
	}
	if !room.AdminTokenMatches(r.Header.Get("X-Admin-Token")) {
		writeError(w, http.StatusForbidden, engine.CodeForbidden, "admin token required")
		return
	}

	stats, err := room.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, engine.ErrorCode(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, events.StatsPayload{Stats: stats})
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Service) handleInfo(w http.ResponseWriter, r *http.Request) {
	conns, rooms := s.manager.Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"rooms":             s.registry.RoomCount(),
		"rooms_with_conns":  rooms,
		"total_connections": conns,
	})
}

// --- WebSocket handlers ---

// handlePlayerSocket upgrades a player connection. The player must have
// joined first; room_id and player_id identify the session, compact=1
// turns on key compaction for both directions.
func (s *Service) handlePlayerSocket(w http.ResponseWriter, r *http.Request) {
	roomID, err := uuid.Parse(r.URL.Query().Get("room_id"))
	if err != nil {
		http.Error(w, "invalid room_id", http.StatusBadRequest)
		return
	}
	playerID, err := uuid.Parse(r.URL.Query().Get("player_id"))
	if err != nil {
		http.Error(w, "invalid player_id", http.StatusBadRequest)
		return
	}
	room, err := s.registry.Room(roomID)
	if err != nil {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}

	ws, err := s.manager.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	compact := r.URL.Query().Get("compact") == "1"
	conn := newConnection(ws, roomID, &playerID, false, compact, s.manager.config)
	s.runSocket(room, conn)
}

// handleAdminSocket upgrades an admin connection, authenticated by the
// room's admin token.
func (s *Service) handleAdminSocket(w http.ResponseWriter, r *http.Request) {
	roomID, err := uuid.Parse(r.URL.Query().Get("room_id"))
	if err != nil {
		http.Error(w, "invalid room_id", http.StatusBadRequest)
		return
	}
	room, err := s.registry.Room(roomID)
	if err != nil {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}
	if !room.AdminTokenMatches(r.URL.Query().Get("token")) {
		http.Error(w, "admin token required", http.StatusForbidden)
		return
	}

	ws, err := s.manager.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	compact := r.URL.Query().Get("compact") == "1"
	conn := newConnection(ws, roomID, nil, true, compact, s.manager.config)
	s.runSocket(room, conn)
}

// runSocket registers the connection with the engine (which enqueues the
// snapshot before attaching it to the fan-out), starts the pumps, and
// blocks on the read pump until the connection dies.
func (s *Service) runSocket(room *engine.Room, conn *Connection) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	if conn.PlayerID != nil {
		player, err := room.Connect(ctx, *conn.PlayerID, conn.ID)
		if err != nil {
			log.Warn().Err(err).
				Str("room_id", conn.RoomID.String()).
				Str("player_id", conn.PlayerID.String()).
				Msg("player connect rejected")
			conn.Close()
			return
		}
		s.persistPlayer(player)
	}
	if err := room.Subscribe(ctx, conn, conn.PlayerID); err != nil {
		log.Warn().Err(err).
			Str("room_id", conn.RoomID.String()).
			Msg("subscribe rejected")
		conn.Close()
		return
	}

	log.Info().
		Str("room_id", conn.RoomID.String()).
		Str("connection_id", conn.ID.String()).
		Bool("admin", conn.Admin).
		Msg("websocket connected")

	go conn.writePump()
	conn.readPump(s.dispatch)

	// read pump returned; tear down
	s.manager.Unsubscribe(conn.RoomID, conn.ID)
	if conn.PlayerID != nil {
		dctx, dcancel := context.WithTimeout(context.Background(), requestTimeout)
		player, err := room.Disconnect(dctx, *conn.PlayerID, conn.ID)
		if err != nil {
			log.Debug().Err(err).
				Str("player_id", conn.PlayerID.String()).
				Msg("disconnect bookkeeping failed")
		} else {
			s.persistPlayer(player)
		}
		dcancel()
	}
	log.Info().
		Str("room_id", conn.RoomID.String()).
		Str("connection_id", conn.ID.String()).
		Msg("websocket disconnected")
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, events.ErrorPayload{Code: code, Message: message})
}

func statusForCode(code string) int {
	switch code {
	case engine.CodeRoomNotFound, engine.CodePlayerNotFound:
		return http.StatusNotFound
	case engine.CodeForbidden:
		return http.StatusForbidden
	case engine.CodeRoomEnded, engine.CodeRoomNotActive, engine.CodeInvalidStateTransition:
		return http.StatusConflict
	case engine.CodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

func (s *Service) persistRoom(room models.Room) {
	if s.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	if err := s.store.SaveRoom(ctx, room); err != nil {
		log.Error().Err(err).Str("room_id", room.ID.String()).Msg("failed to persist room")
	}
}

func (s *Service) persistPlayer(player models.Player) {
	if s.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	if err := s.store.SavePlayer(ctx, player); err != nil {
		log.Error().Err(err).Str("player_id", player.ID.String()).Msg("failed to persist player")
	}
}
