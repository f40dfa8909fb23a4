// Package engine owns the authoritative per-room game state. Every room is
// served by exactly one worker goroutine; all mutating operations — draws,
// lifecycle changes, joins, punches, win recomputation — are sent to that
// worker as requests and processed strictly in arrival order, so races like
// a double draw or a lost punch are structurally impossible. Different
// rooms are fully independent.
package engine

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/bingohall/go/internal/models"
	"github.com/mcdev12/bingohall/go/internal/room/card"
	"github.com/mcdev12/bingohall/go/internal/room/events"
)

// MaxPlayers caps the roster of a single room.
const MaxPlayers = 100

// ErrRoomFull is returned by RegisterPlayer once the roster is at capacity.
var ErrRoomFull = fmt.Errorf("room is at capacity (%d players)", MaxPlayers)

const requestBuffer = 128

// Room is the handle to one room's worker. It is safe for concurrent use;
// every method forwards a request to the worker goroutine and awaits the
// reply.
type Room struct {
	id         uuid.UUID
	joinCode   string
	adminToken string

	requests chan roomOp
	stop     chan struct{}
	stopOnce sync.Once
}

type roomOp struct {
	name  string
	apply func(w *roomWorker) (any, error)
	reply chan opResult
}

type opResult struct {
	val any
	err error
}

// roomWorker is the state owned exclusively by the worker goroutine.
// Nothing here is touched from any other goroutine.
type roomWorker struct {
	room    models.Room
	players map[uuid.UUID]*models.Player
	roster  []uuid.UUID // join order, for stable snapshots

	// pool is the fixed permutation of 1..75 shuffled at creation; draws
	// pop from the front, so the drawn sequence is a prefix of it.
	pool []int

	gen *card.Generator
	seq uint64

	clock       clockwork.Clock
	broadcaster Broadcaster
	publisher   Publisher

	timer   clockwork.Timer
	timerCh <-chan time.Time
}

// RoomConfig carries everything a new room worker needs. Broadcaster is
// required; Publisher and Clock may be nil (nil Clock means real time).
type RoomConfig struct {
	Settings    models.RoomSettings
	JoinCode    string
	AdminToken  string
	Seed        int64
	Clock       clockwork.Clock
	Broadcaster Broadcaster
	Publisher   Publisher
}

func newRoom(cfg RoomConfig) *Room {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	now := cfg.Clock.Now()

	rng := rand.New(rand.NewSource(cfg.Seed))
	pool := make([]int, models.MaxBallValue)
	for i := range pool {
		pool[i] = i + 1
	}
	rng.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})

	r := &Room{
		id:         uuid.New(),
		joinCode:   cfg.JoinCode,
		adminToken: cfg.AdminToken,
		requests:   make(chan roomOp, requestBuffer),
		stop:       make(chan struct{}),
	}
	w := &roomWorker{
		room: models.Room{
			ID:        r.id,
			JoinCode:  cfg.JoinCode,
			Status:    models.RoomStatusCreated,
			Settings:  cfg.Settings,
			CreatedAt: now,
			ExpiresAt: now.Add(models.RoomLifetime),
		},
		players:     make(map[uuid.UUID]*models.Player),
		pool:        pool,
		gen:         card.NewGenerator(rng.Int63()),
		clock:       cfg.Clock,
		broadcaster: cfg.Broadcaster,
		publisher:   cfg.Publisher,
	}

	go r.run(w)
	return r
}

// ID returns the room's identifier.
func (r *Room) ID() uuid.UUID { return r.id }

// JoinCode returns the room's human-entered join code.
func (r *Room) JoinCode() string { return r.joinCode }

// AdminTokenMatches is the boolean admin precondition for privileged
// operations. Token issuance and validation live outside this module.
func (r *Room) AdminTokenMatches(token string) bool {
	return token != "" && token == r.adminToken
}

// Close shuts the worker down. Queued and future requests fail with
// ErrRoomClosed. Idempotent.
func (r *Room) Close() {
	r.stopOnce.Do(func() { close(r.stop) })
}

func (r *Room) run(w *roomWorker) {
	log.Debug().Str("room_id", r.id.String()).Str("join_code", r.joinCode).Msg("room worker started")
	for {
		select {
		case op := <-r.requests:
			val, err := op.apply(w)
			op.reply <- opResult{val: val, err: err}
		case <-w.timerCh:
			w.handleTimedDraw()
		case <-r.stop:
			w.disarmTimer()
			r.drainRequests()
			log.Debug().Str("room_id", r.id.String()).Msg("room worker stopped")
			return
		}
	}
}

func (r *Room) drainRequests() {
	for {
		select {
		case op := <-r.requests:
			op.reply <- opResult{err: ErrRoomClosed}
		default:
			return
		}
	}
}

// do serializes one operation through the worker. The reply channel is
// buffered so an abandoned caller never blocks the worker.
func (r *Room) do(ctx context.Context, name string, apply func(w *roomWorker) (any, error)) (any, error) {
	op := roomOp{name: name, apply: apply, reply: make(chan opResult, 1)}

	select {
	case r.requests <- op:
	case <-r.stop:
		return nil, ErrRoomClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case res := <-op.reply:
		return res.val, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-r.stop:
		// The worker may have answered just before shutting down.
		select {
		case res := <-op.reply:
			return res.val, res.err
		default:
			return nil, ErrRoomClosed
		}
	}
}

// --- Lifecycle ---

// Start moves CREATED → ACTIVE and arms the timed-draw scheduler when the
// room's draw mode is TIMED.
func (r *Room) Start(ctx context.Context) (models.Room, error) {
	return r.lifecycle(ctx, "start", func(w *roomWorker) error {
		if w.room.Status != models.RoomStatusCreated {
			return fmt.Errorf("start from %s: %w", w.room.Status, ErrInvalidStateTransition)
		}
		now := w.clock.Now()
		w.room.Status = models.RoomStatusActive
		w.room.StartedAt = &now
		w.armTimerIfTimed()
		return nil
	})
}

// Pause moves ACTIVE → PAUSED and disarms the scheduler; no draw can fire
// after the pause has been accepted.
func (r *Room) Pause(ctx context.Context) (models.Room, error) {
	return r.lifecycle(ctx, "pause", func(w *roomWorker) error {
		if w.room.Status != models.RoomStatusActive {
			return fmt.Errorf("pause from %s: %w", w.room.Status, ErrInvalidStateTransition)
		}
		w.room.Status = models.RoomStatusPaused
		w.disarmTimer()
		return nil
	})
}

// Resume moves PAUSED → ACTIVE and re-arms the scheduler.
func (r *Room) Resume(ctx context.Context) (models.Room, error) {
	return r.lifecycle(ctx, "resume", func(w *roomWorker) error {
		if w.room.Status != models.RoomStatusPaused {
			return fmt.Errorf("resume from %s: %w", w.room.Status, ErrInvalidStateTransition)
		}
		w.room.Status = models.RoomStatusActive
		w.armTimerIfTimed()
		return nil
	})
}

// End moves ACTIVE or PAUSED → ENDED. ENDED is terminal: the scheduler is
// disarmed and every later mutation is rejected with ErrRoomEnded.
func (r *Room) End(ctx context.Context) (models.Room, error) {
	return r.lifecycle(ctx, "end", func(w *roomWorker) error {
		if w.room.Status != models.RoomStatusActive && w.room.Status != models.RoomStatusPaused {
			return fmt.Errorf("end from %s: %w", w.room.Status, ErrInvalidStateTransition)
		}
		now := w.clock.Now()
		w.room.Status = models.RoomStatusEnded
		w.room.EndedAt = &now
		w.disarmTimer()
		return nil
	})
}

func (r *Room) lifecycle(ctx context.Context, name string, mutate func(w *roomWorker) error) (models.Room, error) {
	val, err := r.do(ctx, name, func(w *roomWorker) (any, error) {
		prev := w.room.Status
		if prev == models.RoomStatusEnded {
			return nil, ErrRoomEnded
		}
		if err := mutate(w); err != nil {
			return nil, err
		}
		log.Info().
			Str("room_id", w.room.ID.String()).
			Str("from", string(prev)).
			Str("to", string(w.room.Status)).
			Msg("room status changed")
		w.broadcast(events.TypeRoomStatusChanged, events.RoomStatusChangedPayload{
			Status:     w.room.Status,
			PrevStatus: prev,
			ChangedAt:  w.clock.Now(),
		})
		return w.roomCopy(), nil
	})
	if err != nil {
		return models.Room{}, err
	}
	return val.(models.Room), nil
}

// UpdateSettings changes the draw configuration. When the room is ACTIVE
// and the mode is TIMED the scheduler is re-armed with the new interval;
// a single timer per room makes double-scheduling impossible.
func (r *Room) UpdateSettings(ctx context.Context, settings models.RoomSettings) (models.Room, error) {
	if err := validateSettings(settings); err != nil {
		return models.Room{}, err
	}
	val, err := r.do(ctx, "update_settings", func(w *roomWorker) (any, error) {
		if w.room.Status == models.RoomStatusEnded {
			return nil, ErrRoomEnded
		}
		w.room.Settings = settings
		w.disarmTimer()
		if w.room.Status == models.RoomStatusActive {
			w.armTimerIfTimed()
		}
		w.broadcast(events.TypeRoomSettingsChanged, events.RoomSettingsChangedPayload{
			Settings:  settings,
			ChangedAt: w.clock.Now(),
		})
		return w.roomCopy(), nil
	})
	if err != nil {
		return models.Room{}, err
	}
	return val.(models.Room), nil
}

// --- Draws ---

// DrawResult is the outcome of one successful draw.
type DrawResult struct {
	Number       int
	DrawnNumbers []int
	Remaining    int
}

// Draw selects the next number from the room's undrawn pool. Legal only in
// ACTIVE; atomic with respect to concurrent draw requests because it runs
// on the room worker.
func (r *Room) Draw(ctx context.Context) (DrawResult, error) {
	val, err := r.do(ctx, "draw", func(w *roomWorker) (any, error) {
		return w.draw()
	})
	if err != nil {
		return DrawResult{}, err
	}
	return val.(DrawResult), nil
}

func (w *roomWorker) draw() (DrawResult, error) {
	switch w.room.Status {
	case models.RoomStatusActive:
	case models.RoomStatusEnded:
		return DrawResult{}, ErrRoomEnded
	default:
		return DrawResult{}, fmt.Errorf("draw while %s: %w", w.room.Status, ErrRoomNotActive)
	}
	if len(w.pool) == 0 {
		return DrawResult{}, ErrNoNumbersRemaining
	}

	n := w.pool[0]
	w.pool = w.pool[1:]
	now := w.clock.Now()
	w.room.DrawnNumbers = append(w.room.DrawnNumbers, n)
	w.room.LastDrawnAt = &now

	// Defensive pass per draw: clamping is a no-op while the invariant
	// holds, and a win can only appear through a punch, but recomputing
	// here keeps every player's state re-derivable after any mutation.
	drawn := w.room.DrawnSet()
	for _, id := range w.roster {
		w.recomputeWin(w.players[id], drawn, now)
	}

	res := DrawResult{
		Number:       n,
		DrawnNumbers: append([]int(nil), w.room.DrawnNumbers...),
		Remaining:    w.room.Remaining(),
	}
	log.Info().
		Str("room_id", w.room.ID.String()).
		Int("number", n).
		Int("drawn_count", len(w.room.DrawnNumbers)).
		Msg("number drawn")
	w.broadcast(events.TypeNumberDrawn, events.NumberDrawnPayload{
		Number:       n,
		DrawnNumbers: res.DrawnNumbers,
		Remaining:    res.Remaining,
		DrawnAt:      now,
	})
	return res, nil
}

// handleTimedDraw is the scheduler's producer path. It runs on the worker
// goroutine like any other mutation, so it cannot bypass serialization.
func (w *roomWorker) handleTimedDraw() {
	if w.room.Status != models.RoomStatusActive || w.room.Settings.DrawMode != models.DrawModeTimed {
		// A pause or settings change raced the tick; the timer is already
		// disarmed, drop it.
		return
	}
	if _, err := w.draw(); err != nil {
		log.Warn().
			Err(err).
			Str("room_id", w.room.ID.String()).
			Msg("timed draw stopped")
		w.disarmTimer()
		return
	}
	w.armTimerIfTimed()
}

func (w *roomWorker) armTimerIfTimed() {
	if w.room.Settings.DrawMode != models.DrawModeTimed {
		return
	}
	interval := time.Duration(w.room.Settings.DrawIntervalSec) * time.Second
	if w.timer == nil {
		w.timer = w.clock.NewTimer(interval)
	} else {
		w.timer.Reset(interval)
	}
	w.timerCh = w.timer.Chan()
}

func (w *roomWorker) disarmTimer() {
	if w.timer != nil && !w.timer.Stop() {
		// Flush a tick that fired before Stop so a later re-arm cannot
		// observe it.
		select {
		case <-w.timer.Chan():
		default:
		}
	}
	w.timerCh = nil
}

// --- Players ---

// RegisterPlayer allocates a player with a freshly generated card and an
// empty punched set.
func (r *Room) RegisterPlayer(ctx context.Context, name string) (models.Player, error) {
	val, err := r.do(ctx, "register_player", func(w *roomWorker) (any, error) {
		if w.room.Status == models.RoomStatusEnded {
			return nil, ErrRoomEnded
		}
		if len(w.players) >= MaxPlayers {
			return nil, ErrRoomFull
		}
		now := w.clock.Now()
		p := &models.Player{
			ID:         uuid.New(),
			RoomID:     w.room.ID,
			Name:       name,
			Card:       w.gen.Generate(),
			LastSeenAt: now,
			JoinedAt:   now,
		}
		w.players[p.ID] = p
		w.roster = append(w.roster, p.ID)
		log.Info().
			Str("room_id", w.room.ID.String()).
			Str("player_id", p.ID.String()).
			Str("name", name).
			Int("total_players", len(w.players)).
			Msg("player joined")
		w.broadcast(events.TypePlayerJoined, events.PlayerJoinedPayload{
			PlayerID:     p.ID.String(),
			Name:         p.Name,
			TotalPlayers: len(w.players),
		})
		return clonePlayer(p), nil
	})
	if err != nil {
		return models.Player{}, err
	}
	return val.(models.Player), nil
}

// Punch adds a drawn, on-card number to the player's punched set. The
// operation is an idempotent set-add: replaying it is a no-op.
func (r *Room) Punch(ctx context.Context, playerID uuid.UUID, number int) (models.Player, error) {
	return r.punch(ctx, playerID, number, events.PunchKindPunch)
}

// Unpunch removes a number from the punched set; idempotent set-remove.
func (r *Room) Unpunch(ctx context.Context, playerID uuid.UUID, number int) (models.Player, error) {
	return r.punch(ctx, playerID, number, events.PunchKindUnpunch)
}

func (r *Room) punch(ctx context.Context, playerID uuid.UUID, number int, kind events.PunchKind) (models.Player, error) {
	val, err := r.do(ctx, string(kind), func(w *roomWorker) (any, error) {
		if w.room.Status == models.RoomStatusEnded {
			return nil, ErrRoomEnded
		}
		p, ok := w.players[playerID]
		if !ok {
			return nil, ErrPlayerNotFound
		}
		now := w.clock.Now()
		p.LastSeenAt = now

		drawn := w.room.DrawnSet()
		if kind == events.PunchKindPunch {
			if !p.Card.Contains(number) || !drawn[number] {
				return nil, fmt.Errorf("punch %d: %w", number, ErrInvalidPunch)
			}
			if !p.Punched(number) {
				p.PunchedNumbers = append(p.PunchedNumbers, number)
			}
		} else {
			for i, v := range p.PunchedNumbers {
				if v == number {
					p.PunchedNumbers = append(p.PunchedNumbers[:i], p.PunchedNumbers[i+1:]...)
					break
				}
			}
		}

		w.broadcast(events.TypePlayerPunched, events.PlayerPunchedPayload{
			PlayerID:       p.ID.String(),
			Kind:           kind,
			Number:         number,
			PunchedNumbers: append([]int(nil), p.PunchedNumbers...),
		})
		w.recomputeWin(p, drawn, now)
		return clonePlayer(p), nil
	})
	if err != nil {
		return models.Player{}, err
	}
	return val.(models.Player), nil
}

// recomputeWin runs the validator and, on a first-time win, broadcasts
// player_bingo. Only this worker ever sets a player's win flag.
func (w *roomWorker) recomputeWin(p *models.Player, drawn map[int]bool, now time.Time) {
	lines, newlyWon := card.RecomputeWin(p, drawn, now)
	if !newlyWon {
		return
	}
	lineIDs := make([]string, len(lines))
	for i, l := range lines {
		lineIDs[i] = string(l)
	}
	log.Info().
		Str("room_id", w.room.ID.String()).
		Str("player_id", p.ID.String()).
		Strs("lines", lineIDs).
		Msg("player has bingo")
	w.broadcast(events.TypePlayerBingo, events.PlayerBingoPayload{
		PlayerID: p.ID.String(),
		Name:     p.Name,
		Lines:    lineIDs,
		WonAt:    *p.WonAt,
	})
}

// Connect binds a player to a live connection and flips the online flag.
// The updated player is returned so callers can persist the binding.
func (r *Room) Connect(ctx context.Context, playerID, connID uuid.UUID) (models.Player, error) {
	val, err := r.do(ctx, "connect", func(w *roomWorker) (any, error) {
		p, ok := w.players[playerID]
		if !ok {
			return nil, ErrPlayerNotFound
		}
		id := connID
		p.ConnectionID = &id
		p.Online = true
		p.LastSeenAt = w.clock.Now()
		return clonePlayer(p), nil
	})
	if err != nil {
		return models.Player{}, err
	}
	return val.(models.Player), nil
}

// Disconnect flips the online flag and stamps last-seen. It never mutates
// game state; whether the player is later considered gone is an
// admin-facing presentation concern.
func (r *Room) Disconnect(ctx context.Context, playerID, connID uuid.UUID) (models.Player, error) {
	val, err := r.do(ctx, "disconnect", func(w *roomWorker) (any, error) {
		p, ok := w.players[playerID]
		if !ok {
			return nil, ErrPlayerNotFound
		}
		if p.ConnectionID != nil && *p.ConnectionID == connID {
			p.ConnectionID = nil
			p.Online = false
			p.LastSeenAt = w.clock.Now()
		}
		// otherwise a newer connection already took over; return the
		// current state untouched
		return clonePlayer(p), nil
	})
	if err != nil {
		return models.Player{}, err
	}
	return val.(models.Player), nil
}

// --- Reads and subscription ---

// Subscribe enqueues a full snapshot envelope to the subscriber and then
// attaches it to the broadcast fan-out, all inside the worker, so the
// subscriber holds a baseline before it can observe any delta and the
// snapshot is never taken from a partially-applied state.
//
// playerID selects the player view; nil yields the admin view with the
// full roster.
func (r *Room) Subscribe(ctx context.Context, sub Subscriber, playerID *uuid.UUID) error {
	_, err := r.do(ctx, "subscribe", func(w *roomWorker) (any, error) {
		payload := events.SnapshotPayload{Room: w.roomCopy()}
		if playerID != nil {
			p, ok := w.players[*playerID]
			if !ok {
				return nil, ErrPlayerNotFound
			}
			cp := clonePlayer(p)
			payload.Player = &cp
		} else {
			payload.Players = w.playersCopy()
		}
		env := events.New(events.TypeRoomSnapshot, w.room.ID.String(), w.seq, w.clock.Now(), payload)
		sub.Enqueue(env)
		w.broadcaster.Subscribe(w.room.ID, sub)
		return nil, nil
	})
	return err
}

// Sync answers a reconnecting client with the authoritative room and
// player snapshots. Unknown players and ended rooms fail with
// ErrSyncTargetInvalid so the client can tell "stale" from "gone".
func (r *Room) Sync(ctx context.Context, playerID uuid.UUID) (events.SyncResponsePayload, error) {
	val, err := r.do(ctx, "sync", func(w *roomWorker) (any, error) {
		if w.room.Status == models.RoomStatusEnded {
			return nil, fmt.Errorf("room ended: %w", ErrSyncTargetInvalid)
		}
		p, ok := w.players[playerID]
		if !ok {
			return nil, fmt.Errorf("player %s: %w", playerID, ErrSyncTargetInvalid)
		}
		return events.SyncResponsePayload{Room: w.roomCopy(), Player: clonePlayer(p)}, nil
	})
	if err != nil {
		return events.SyncResponsePayload{}, err
	}
	return val.(events.SyncResponsePayload), nil
}

// Snapshot returns copies of the room and roster as of the latest commit.
func (r *Room) Snapshot(ctx context.Context) (models.Room, []models.Player, error) {
	val, err := r.do(ctx, "snapshot", func(w *roomWorker) (any, error) {
		return events.SnapshotPayload{Room: w.roomCopy(), Players: w.playersCopy()}, nil
	})
	if err != nil {
		return models.Room{}, nil, err
	}
	snap := val.(events.SnapshotPayload)
	return snap.Room, snap.Players, nil
}

// Stats aggregates the admin-facing counters.
func (r *Room) Stats(ctx context.Context) (models.RoomStats, error) {
	val, err := r.do(ctx, "stats", func(w *roomWorker) (any, error) {
		stats := models.RoomStats{
			RoomID:       w.room.ID,
			TotalPlayers: len(w.players),
			DrawnCount:   len(w.room.DrawnNumbers),
			Remaining:    w.room.Remaining(),
		}
		for _, p := range w.players {
			if p.Online {
				stats.ActivePlayers++
			}
			if p.HasBingo {
				stats.PlayersWithBingo++
			}
		}
		return stats, nil
	})
	if err != nil {
		return models.RoomStats{}, err
	}
	return val.(models.RoomStats), nil
}

// --- Broadcast plumbing ---

// broadcast commits one envelope: it bumps the room sequence, hands the
// envelope to the fan-out and mirrors it to the external publisher. Called
// only from the worker, so subscribers observe envelopes in commit order.
func (w *roomWorker) broadcast(t events.MessageType, payload any) {
	w.seq++
	env := events.New(t, w.room.ID.String(), w.seq, w.clock.Now(), payload)
	w.broadcaster.Broadcast(w.room.ID, env)
	if w.publisher != nil {
		w.publisher.Publish(w.room.ID, env)
	}
}

func (w *roomWorker) roomCopy() models.Room {
	cp := w.room
	cp.DrawnNumbers = append([]int(nil), w.room.DrawnNumbers...)
	return cp
}

func (w *roomWorker) playersCopy() []models.Player {
	out := make([]models.Player, 0, len(w.roster))
	for _, id := range w.roster {
		out = append(out, clonePlayer(w.players[id]))
	}
	return out
}

func clonePlayer(p *models.Player) models.Player {
	cp := *p
	cp.PunchedNumbers = append([]int(nil), p.PunchedNumbers...)
	if p.ConnectionID != nil {
		id := *p.ConnectionID
		cp.ConnectionID = &id
	}
	if p.WonAt != nil {
		t := *p.WonAt
		cp.WonAt = &t
	}
	return cp
}

func validateSettings(s models.RoomSettings) error {
	switch s.DrawMode {
	case models.DrawModeManual:
		return nil
	case models.DrawModeTimed:
		if s.DrawIntervalSec < 1 {
			return fmt.Errorf("timed draw interval must be at least 1s, got %ds", s.DrawIntervalSec)
		}
		return nil
	default:
		return fmt.Errorf("unknown draw mode %q", s.DrawMode)
	}
}
