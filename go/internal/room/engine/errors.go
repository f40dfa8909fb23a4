package engine

import "errors"

// Every rejected mutation surfaces one of these sentinels. They are
// expected, recoverable outcomes — a failed mutation leaves the room
// exactly as it was — and each maps to a stable wire code so clients can
// decide between retrying and giving up.
var (
	ErrInvalidStateTransition = errors.New("invalid room state transition")
	ErrRoomNotFound           = errors.New("room not found")
	ErrRoomEnded              = errors.New("room has ended")
	ErrRoomNotActive          = errors.New("room is not active")
	ErrNoNumbersRemaining     = errors.New("no numbers remaining to draw")
	ErrPlayerNotFound         = errors.New("player not found")
	ErrInvalidPunch           = errors.New("number not on card or not yet drawn")
	ErrSyncTargetInvalid      = errors.New("sync target unknown or ended")
	ErrRoomClosed             = errors.New("room worker is shut down")
)

// Stable error codes carried in unicast error envelopes.
const (
	CodeInvalidStateTransition = "INVALID_STATE_TRANSITION"
	CodeRoomNotFound           = "ROOM_NOT_FOUND"
	CodeRoomEnded              = "ROOM_ENDED"
	CodeRoomNotActive          = "ROOM_NOT_ACTIVE"
	CodeNoNumbersRemaining     = "NO_NUMBERS_REMAINING"
	CodePlayerNotFound         = "PLAYER_NOT_FOUND"
	CodeInvalidPunch           = "INVALID_PUNCH"
	CodeSyncTargetInvalid      = "SYNC_TARGET_INVALID"
	CodeBadRequest             = "BAD_REQUEST"
	CodeForbidden              = "FORBIDDEN"
	CodeInternal               = "INTERNAL"
)

// ErrorCode maps an engine error to its wire code.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidStateTransition):
		return CodeInvalidStateTransition
	case errors.Is(err, ErrRoomNotFound):
		return CodeRoomNotFound
	case errors.Is(err, ErrRoomEnded), errors.Is(err, ErrRoomClosed):
		return CodeRoomEnded
	case errors.Is(err, ErrRoomNotActive):
		return CodeRoomNotActive
	case errors.Is(err, ErrNoNumbersRemaining):
		return CodeNoNumbersRemaining
	case errors.Is(err, ErrPlayerNotFound):
		return CodePlayerNotFound
	case errors.Is(err, ErrInvalidPunch):
		return CodeInvalidPunch
	case errors.Is(err, ErrSyncTargetInvalid):
		return CodeSyncTargetInvalid
	case errors.Is(err, ErrRoomFull):
		return CodeBadRequest
	default:
		return CodeInternal
	}
}
