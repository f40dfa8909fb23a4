// Package client implements the client-side reconciliation protocol:
// optimistic punches ride in a pending queue until the server's
// authoritative punched set confirms them, and connectivity gaps are
// repaired with a sync request followed by an idempotent replay.
package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/bingohall/go/internal/models"
	"github.com/mcdev12/bingohall/go/internal/room/events"
)

// Sender delivers an envelope to the server. Implementations wrap a
// WebSocket, a test harness, or an in-process gateway.
type Sender interface {
	Send(env events.Envelope) error
}

// PendingAction is an optimistic punch or unpunch that the server has not
// confirmed yet. Actions survive send failures and reconnects; only an
// authoritative punched set or a terminal rejection removes them.
type PendingAction struct {
	Kind       events.PunchKind
	Number     int
	EnqueuedAt time.Time
	LastSentAt time.Time
	Attempts   int
}

// retryInterval is how long an action may sit unconfirmed before it is
// re-sent with a bumped attempt counter.
const retryInterval = 5 * time.Second

// Reconciler tracks one player's authoritative state and pending queue.
// Safe for concurrent use: UI goroutines punch while the read loop feeds
// envelopes in.
type Reconciler struct {
	roomID   uuid.UUID
	playerID uuid.UUID
	sender   Sender
	clock    clockwork.Clock

	mu      sync.Mutex
	player  models.Player
	room    models.Room
	pending []PendingAction
	lastSeq uint64
	synced  bool
}

// New creates a reconciler for one player in one room.
func New(roomID, playerID uuid.UUID, sender Sender, clock clockwork.Clock) *Reconciler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Reconciler{
		roomID:   roomID,
		playerID: playerID,
		sender:   sender,
		clock:    clock,
	}
}

// Punch optimistically marks a number and queues it for the server.
func (r *Reconciler) Punch(number int) {
	r.enqueue(events.PunchKindPunch, number)
}

// Unpunch optimistically unmarks a number and queues it for the server.
func (r *Reconciler) Unpunch(number int) {
	r.enqueue(events.PunchKindUnpunch, number)
}

func (r *Reconciler) enqueue(kind events.PunchKind, number int) {
	r.mu.Lock()
	// a later action on the same number supersedes the earlier one
	kept := r.pending[:0]
	for _, a := range r.pending {
		if a.Number != number {
			kept = append(kept, a)
		}
	}
	now := r.clock.Now()
	r.pending = append(kept, PendingAction{
		Kind:       kind,
		Number:     number,
		EnqueuedAt: now,
		LastSentAt: now,
		Attempts:   1,
	})
	action := r.pending[len(r.pending)-1]
	r.mu.Unlock()

	if err := r.send(action); err != nil {
		// stays pending; replayed after the next sync
		log.Debug().Err(err).Int("number", number).Msg("punch send failed, kept pending")
	}
}

func (r *Reconciler) send(a PendingAction) error {
	t := events.TypePunch
	if a.Kind == events.PunchKindUnpunch {
		t = events.TypeUnpunch
	}
	env := events.New(t, r.roomID.String(), 0, r.clock.Now(), events.PunchPayload{
		PlayerID: r.playerID.String(),
		Number:   a.Number,
	})
	return r.sender.Send(env)
}

// RequestSync asks the server for the authoritative baseline. Called on
// reconnect and whenever a sequence gap is detected.
func (r *Reconciler) RequestSync() error {
	env := events.New(events.TypeSyncRequest, r.roomID.String(), 0, r.clock.Now(), events.SyncRequestPayload{
		PlayerID: r.playerID.String(),
	})
	if err := r.sender.Send(env); err != nil {
		return fmt.Errorf("send sync request: %w", err)
	}
	return nil
}

// HandleEnvelope feeds one server envelope into the reconciler. It returns
// true when the envelope triggered a sync request (sequence gap detected).
func (r *Reconciler) HandleEnvelope(env events.Envelope) bool {
	payload, err := events.ParsePayload(env)
	if err != nil {
		log.Warn().Err(err).Str("type", string(env.Type)).Msg("discarding undecodable envelope")
		return false
	}

	r.mu.Lock()
	gap := false
	if env.Seq > 0 {
		if r.synced && env.Seq > r.lastSeq+1 {
			gap = true
		}
		if env.Seq > r.lastSeq {
			r.lastSeq = env.Seq
		}
	}

	switch p := payload.(type) {
	case *events.SnapshotPayload:
		r.room = p.Room
		if p.Player != nil {
			r.adoptPlayerLocked(*p.Player)
		}
		r.synced = true
		gap = false
	case *events.SyncResponsePayload:
		r.room = p.Room
		r.adoptPlayerLocked(p.Player)
		r.synced = true
		gap = false
	case *events.NumberDrawnPayload:
		r.room.DrawnNumbers = p.DrawnNumbers
		if p.DrawnAt != (time.Time{}) {
			drawnAt := p.DrawnAt
			r.room.LastDrawnAt = &drawnAt
		}
	case *events.RoomStatusChangedPayload:
		r.room.Status = p.Status
	case *events.RoomSettingsChangedPayload:
		r.room.Settings = p.Settings
	case *events.PlayerPunchedPayload:
		if p.PlayerID == r.playerID.String() {
			r.player.PunchedNumbers = p.PunchedNumbers
			r.confirmPendingLocked(p.PunchedNumbers)
		}
	case *events.PlayerBingoPayload:
		if p.PlayerID == r.playerID.String() {
			r.player.HasBingo = true
			wonAt := p.WonAt
			r.player.WonAt = &wonAt
		}
	case *events.ErrorPayload:
		r.handleRejectionLocked(p)
	}

	var replay []PendingAction
	if _, ok := payload.(*events.SnapshotPayload); ok {
		replay = r.replayableLocked()
	}
	if _, ok := payload.(*events.SyncResponsePayload); ok {
		replay = r.replayableLocked()
	}
	r.mu.Unlock()

	for _, a := range replay {
		if err := r.send(a); err != nil {
			log.Debug().Err(err).Int("number", a.Number).Msg("replay send failed, kept pending")
			break
		}
	}
	if gap {
		log.Info().Uint64("seq", env.Seq).Msg("sequence gap detected, requesting sync")
		if err := r.RequestSync(); err != nil {
			log.Warn().Err(err).Msg("sync request failed")
		}
	}
	return gap
}

// adoptPlayerLocked replaces the local player baseline and drops every
// pending action the authoritative punched set already reflects.
func (r *Reconciler) adoptPlayerLocked(p models.Player) {
	r.player = p
	r.confirmPendingLocked(p.PunchedNumbers)
}

// confirmPendingLocked removes pending actions the authoritative set has
// absorbed: a pending PUNCH whose number is present, or a pending UNPUNCH
// whose number is absent.
func (r *Reconciler) confirmPendingLocked(punched []int) {
	set := make(map[int]bool, len(punched))
	for _, n := range punched {
		set[n] = true
	}
	kept := r.pending[:0]
	for _, a := range r.pending {
		confirmed := (a.Kind == events.PunchKindPunch && set[a.Number]) ||
			(a.Kind == events.PunchKindUnpunch && !set[a.Number])
		if !confirmed {
			kept = append(kept, a)
		}
	}
	r.pending = kept
}

// handleRejectionLocked drops a pending punch the server refused outright.
// INVALID_PUNCH means the number is not on the card or not drawn; retrying
// it verbatim can never succeed, so the optimistic mark is rolled back.
func (r *Reconciler) handleRejectionLocked(p *events.ErrorPayload) {
	if p.RequestType != events.TypePunch && p.RequestType != events.TypeUnpunch {
		return
	}
	if p.Code != "INVALID_PUNCH" && p.Code != "FORBIDDEN" {
		return
	}
	kind := events.PunchKindPunch
	if p.RequestType == events.TypeUnpunch {
		kind = events.PunchKindUnpunch
	}
	if p.Number != 0 {
		for i, a := range r.pending {
			if a.Kind == kind && a.Number == p.Number {
				r.pending = append(r.pending[:i], r.pending[i+1:]...)
				return
			}
		}
		return
	}
	// servers that omit the number leave only the oldest of that kind
	// as a candidate
	for i, a := range r.pending {
		if a.Kind == kind {
			r.pending = append(r.pending[:i], r.pending[i+1:]...)
			return
		}
	}
}

// replayableLocked bumps attempt counters and returns a copy of the queue
// in enqueue order for idempotent resending.
func (r *Reconciler) replayableLocked() []PendingAction {
	now := r.clock.Now()
	out := make([]PendingAction, len(r.pending))
	for i := range r.pending {
		r.pending[i].Attempts++
		r.pending[i].LastSentAt = now
		out[i] = r.pending[i]
	}
	return out
}

// Run drives the retry loop: every tick, any action that has gone
// unconfirmed for retryInterval is re-sent with a bumped attempt counter.
// Blocks until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := r.clock.NewTicker(retryInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			r.resendStale()
		}
	}
}

// resendStale re-sends every pending action whose last send is older than
// retryInterval. Actions are never dropped here; confirmation or a
// terminal rejection is the only way out of the queue.
func (r *Reconciler) resendStale() {
	now := r.clock.Now()

	r.mu.Lock()
	var stale []PendingAction
	for i := range r.pending {
		if now.Sub(r.pending[i].LastSentAt) < retryInterval {
			continue
		}
		r.pending[i].Attempts++
		r.pending[i].LastSentAt = now
		stale = append(stale, r.pending[i])
	}
	r.mu.Unlock()

	for _, a := range stale {
		if err := r.send(a); err != nil {
			log.Debug().Err(err).Int("number", a.Number).Msg("retry send failed, kept pending")
		}
	}
}

// Pending returns a copy of the unconfirmed action queue.
func (r *Reconciler) Pending() []PendingAction {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]PendingAction, len(r.pending))
	copy(out, r.pending)
	return out
}

// Player returns the last authoritative player state merged with nothing:
// optimistic marks live in the pending queue, not here.
func (r *Reconciler) Player() models.Player {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.player
}

// Room returns the last known room state.
func (r *Reconciler) Room() models.Room {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.room
}

// EffectivePunched is what the UI renders: the authoritative punched set
// with pending actions applied on top.
func (r *Reconciler) EffectivePunched() map[int]bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	set := make(map[int]bool, len(r.player.PunchedNumbers))
	for _, n := range r.player.PunchedNumbers {
		set[n] = true
	}
	for _, a := range r.pending {
		if a.Kind == events.PunchKindPunch {
			set[a.Number] = true
		} else {
			delete(set, a.Number)
		}
	}
	return set
}

// LastSeq reports the highest broadcast sequence observed.
func (r *Reconciler) LastSeq() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastSeq
}
