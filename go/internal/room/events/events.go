// Package events defines the wire protocol between the room server and its
// clients: the message envelope, the catalogue of inbound and outbound
// message types, and one concrete payload struct per type. Envelopes are
// the only cross-boundary representation of state changes.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mcdev12/bingohall/go/internal/models"
)

// MessageType discriminates the envelope's tagged payload union.
type MessageType string

// Outbound message types. Every accepted mutation produces exactly one
// broadcast envelope; error and sync_response are unicast to the requester.
const (
	TypeRoomSnapshot        MessageType = "room_snapshot"
	TypeNumberDrawn         MessageType = "number_drawn"
	TypeRoomStatusChanged   MessageType = "room_status_changed"
	TypePlayerJoined        MessageType = "player_joined"
	TypePlayerPunched       MessageType = "player_punched"
	TypePlayerBingo         MessageType = "player_bingo"
	TypeRoomSettingsChanged MessageType = "room_settings_changed"
	TypeSyncResponse        MessageType = "sync_response"
	TypeRoomStats           MessageType = "room_stats"
	TypeError               MessageType = "error"
)

// Inbound message types.
const (
	TypeJoin           MessageType = "join"
	TypePunch          MessageType = "punch"
	TypeUnpunch        MessageType = "unpunch"
	TypeDrawNumber     MessageType = "draw_number"
	TypeStartRoom      MessageType = "start_room"
	TypePauseRoom      MessageType = "pause_room"
	TypeResumeRoom     MessageType = "resume_room"
	TypeEndRoom        MessageType = "end_room"
	TypeUpdateSettings MessageType = "update_settings"
	TypeSyncRequest    MessageType = "sync_request"
	TypeGetStats       MessageType = "get_stats"
)

// Envelope wraps every message crossing the server boundary. Seq is the
// per-room commit sequence for broadcast envelopes: subscribers of one room
// observe strictly increasing Seq values in commit order. Unicast replies
// carry Seq 0.
type Envelope struct {
	Type      MessageType     `json:"type"`
	RoomID    string          `json:"room_id,omitempty"`
	Seq       uint64          `json:"seq,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// New builds an envelope, marshaling the payload. It panics only on
// unmarshalable payloads, which would be a programming error.
func New(t MessageType, roomID string, seq uint64, ts time.Time, payload any) Envelope {
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			panic(fmt.Sprintf("events: marshal %s payload: %v", t, err))
		}
		raw = data
	}
	return Envelope{Type: t, RoomID: roomID, Seq: seq, Timestamp: ts, Payload: raw}
}

// --- Outbound payloads ---

// SnapshotPayload is the full authoritative baseline a connection receives
// before any incremental delta. Player is set for player connections and
// reflects their own card and punched set; Players lists the roster for
// admin views.
type SnapshotPayload struct {
	Room    models.Room     `json:"room"`
	Players []models.Player `json:"players,omitempty"`
	Player  *models.Player  `json:"player,omitempty"`
}

// NumberDrawnPayload carries the new call plus the full drawn list so a
// client that missed earlier deltas still converges.
type NumberDrawnPayload struct {
	Number       int       `json:"number"`
	DrawnNumbers []int     `json:"drawn_numbers"`
	Remaining    int       `json:"remaining"`
	DrawnAt      time.Time `json:"drawn_at"`
}

// RoomStatusChangedPayload announces a lifecycle transition.
type RoomStatusChangedPayload struct {
	Status     models.RoomStatus `json:"status"`
	PrevStatus models.RoomStatus `json:"prev_status"`
	ChangedAt  time.Time         `json:"changed_at"`
}

// PlayerJoinedPayload announces a new roster member.
type PlayerJoinedPayload struct {
	PlayerID     string `json:"player_id"`
	Name         string `json:"name"`
	TotalPlayers int    `json:"total_players"`
}

// PunchKind distinguishes the two idempotent punched-set operations.
type PunchKind string

const (
	PunchKindPunch   PunchKind = "PUNCH"
	PunchKindUnpunch PunchKind = "UNPUNCH"
)

// PlayerPunchedPayload reflects the authoritative punched set after an
// accepted punch or unpunch. Clients reconcile their pending queues against
// PunchedNumbers, never against their own optimistic state.
type PlayerPunchedPayload struct {
	PlayerID       string    `json:"player_id"`
	Kind           PunchKind `json:"kind"`
	Number         int       `json:"number"`
	PunchedNumbers []int     `json:"punched_numbers"`
}

// RoomSettingsChangedPayload announces a draw-configuration change.
type RoomSettingsChangedPayload struct {
	Settings  models.RoomSettings `json:"settings"`
	ChangedAt time.Time           `json:"changed_at"`
}

// PlayerBingoPayload announces a first-time win.
type PlayerBingoPayload struct {
	PlayerID string    `json:"player_id"`
	Name     string    `json:"name"`
	Lines    []string  `json:"lines"`
	WonAt    time.Time `json:"won_at"`
}

// SyncResponsePayload answers a sync_request with authoritative snapshots.
type SyncResponsePayload struct {
	Room   models.Room   `json:"room"`
	Player models.Player `json:"player"`
}

// StatsPayload answers get_stats.
type StatsPayload struct {
	Stats models.RoomStats `json:"stats"`
}

// ErrorPayload is unicast to the requester of a rejected mutation. Code is
// stable and lets the client decide whether to retry or give up. Number
// carries the rejected punch target so the client rolls back the right
// pending action.
type ErrorPayload struct {
	Code        string      `json:"code"`
	Message     string      `json:"message"`
	RequestType MessageType `json:"request_type,omitempty"`
	Number      int         `json:"number,omitempty"`
}

// --- Inbound payloads ---

// JoinPayload registers a new player by join code.
type JoinPayload struct {
	JoinCode string `json:"join_code"`
	Name     string `json:"name"`
}

// PunchPayload marks or unmarks a number on the sender's card; the type tag
// (punch vs unpunch) selects the operation.
type PunchPayload struct {
	PlayerID string `json:"player_id"`
	Number   int    `json:"number"`
}

// UpdateSettingsPayload changes the room's draw configuration. Re-arms the
// timed scheduler without double-scheduling when the room is ACTIVE.
type UpdateSettingsPayload struct {
	DrawMode        models.DrawMode `json:"draw_mode"`
	DrawIntervalSec int             `json:"draw_interval_sec,omitempty"`
}

// SyncRequestPayload asks for the authoritative room+player snapshots after
// a connectivity gap.
type SyncRequestPayload struct {
	PlayerID string `json:"player_id"`
}

// ParsePayload decodes the envelope's payload into the concrete struct for
// its type tag, so payload shape is checked per tag rather than handled as
// an untyped bag.
func ParsePayload(env Envelope) (any, error) {
	decode := func(v any) (any, error) {
		if len(env.Payload) == 0 {
			return v, nil
		}
		if err := json.Unmarshal(env.Payload, v); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", env.Type, err)
		}
		return v, nil
	}

	switch env.Type {
	case TypeRoomSnapshot:
		return decode(&SnapshotPayload{})
	case TypeNumberDrawn:
		return decode(&NumberDrawnPayload{})
	case TypeRoomStatusChanged:
		return decode(&RoomStatusChangedPayload{})
	case TypePlayerJoined:
		return decode(&PlayerJoinedPayload{})
	case TypePlayerPunched:
		return decode(&PlayerPunchedPayload{})
	case TypePlayerBingo:
		return decode(&PlayerBingoPayload{})
	case TypeRoomSettingsChanged:
		return decode(&RoomSettingsChangedPayload{})
	case TypeSyncResponse:
		return decode(&SyncResponsePayload{})
	case TypeRoomStats:
		return decode(&StatsPayload{})
	case TypeError:
		return decode(&ErrorPayload{})
	case TypeJoin:
		return decode(&JoinPayload{})
	case TypePunch, TypeUnpunch:
		return decode(&PunchPayload{})
	case TypeUpdateSettings:
		return decode(&UpdateSettingsPayload{})
	case TypeSyncRequest:
		return decode(&SyncRequestPayload{})
	case TypeDrawNumber, TypeStartRoom, TypePauseRoom, TypeResumeRoom, TypeEndRoom, TypeGetStats:
		return nil, nil // no payload
	default:
		return nil, fmt.Errorf("unknown message type %q", env.Type)
	}
}
