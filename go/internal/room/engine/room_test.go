package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/bingohall/go/internal/models"
	"github.com/mcdev12/bingohall/go/internal/room/events"
)

// recorderBroadcaster captures every committed envelope and forwards to
// attached subscribers, standing in for the gateway's connection manager.
type recorderBroadcaster struct {
	mu   sync.Mutex
	envs []events.Envelope
	subs map[uuid.UUID]Subscriber
}

func newRecorderBroadcaster() *recorderBroadcaster {
	return &recorderBroadcaster{subs: make(map[uuid.UUID]Subscriber)}
}

func (b *recorderBroadcaster) Subscribe(roomID uuid.UUID, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[sub.SubscriberID()] = sub
}

func (b *recorderBroadcaster) Unsubscribe(roomID uuid.UUID, subID uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, subID)
}

func (b *recorderBroadcaster) Broadcast(roomID uuid.UUID, env events.Envelope) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.envs = append(b.envs, env)
	for _, sub := range b.subs {
		sub.Enqueue(env)
	}
}

func (b *recorderBroadcaster) all() []events.Envelope {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]events.Envelope(nil), b.envs...)
}

func (b *recorderBroadcaster) typed(t events.MessageType) []events.Envelope {
	var out []events.Envelope
	for _, env := range b.all() {
		if env.Type == t {
			out = append(out, env)
		}
	}
	return out
}

// recorderSub is a subscriber backed by a plain slice.
type recorderSub struct {
	id   uuid.UUID
	mu   sync.Mutex
	envs []events.Envelope
}

func newRecorderSub() *recorderSub { return &recorderSub{id: uuid.New()} }

func (s *recorderSub) SubscriberID() uuid.UUID { return s.id }

func (s *recorderSub) Enqueue(env events.Envelope) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.envs = append(s.envs, env)
	return true
}

func (s *recorderSub) all() []events.Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]events.Envelope(nil), s.envs...)
}

func newTestRoom(t *testing.T, settings models.RoomSettings, clock clockwork.Clock) (*Room, *recorderBroadcaster) {
	t.Helper()
	b := newRecorderBroadcaster()
	r := newRoom(RoomConfig{
		Settings:    settings,
		JoinCode:    "TEST42",
		AdminToken:  "secret",
		Seed:        1,
		Clock:       clock,
		Broadcaster: b,
	})
	t.Cleanup(r.Close)
	return r, b
}

func manualRoom(t *testing.T) (*Room, *recorderBroadcaster) {
	return newTestRoom(t, models.RoomSettings{DrawMode: models.DrawModeManual}, nil)
}

func drainPool(t *testing.T, r *Room) []int {
	t.Helper()
	ctx := context.Background()
	var drawn []int
	for {
		res, err := r.Draw(ctx)
		if err != nil {
			require.ErrorIs(t, err, ErrNoNumbersRemaining)
			return drawn
		}
		drawn = append(drawn, res.Number)
	}
}

// --- Lifecycle ---

func TestLifecycleHappyPath(t *testing.T) {
	r, _ := manualRoom(t)
	ctx := context.Background()

	room, err := r.Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.RoomStatusActive, room.Status)
	require.NotNil(t, room.StartedAt)

	room, err = r.Pause(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.RoomStatusPaused, room.Status)

	room, err = r.Resume(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.RoomStatusActive, room.Status)

	room, err = r.End(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.RoomStatusEnded, room.Status)
	require.NotNil(t, room.EndedAt)
}

func TestLifecycleIllegalTransitions(t *testing.T) {
	r, _ := manualRoom(t)
	ctx := context.Background()

	_, err := r.Pause(ctx)
	assert.ErrorIs(t, err, ErrInvalidStateTransition, "pause from CREATED")
	_, err = r.Resume(ctx)
	assert.ErrorIs(t, err, ErrInvalidStateTransition, "resume from CREATED")
	_, err = r.End(ctx)
	assert.ErrorIs(t, err, ErrInvalidStateTransition, "end from CREATED")

	_, err = r.Start(ctx)
	require.NoError(t, err)
	_, err = r.Start(ctx)
	assert.ErrorIs(t, err, ErrInvalidStateTransition, "start from ACTIVE")
	_, err = r.Resume(ctx)
	assert.ErrorIs(t, err, ErrInvalidStateTransition, "resume from ACTIVE")
}

func TestEndedRejectsEverything(t *testing.T) {
	r, _ := manualRoom(t)
	ctx := context.Background()

	_, err := r.Start(ctx)
	require.NoError(t, err)
	_, err = r.End(ctx)
	require.NoError(t, err)

	// every mutation now fails with ErrRoomEnded, even normally-illegal
	// transitions: the terminal state takes precedence
	_, err = r.Start(ctx)
	assert.ErrorIs(t, err, ErrRoomEnded)
	_, err = r.Pause(ctx)
	assert.ErrorIs(t, err, ErrRoomEnded)
	_, err = r.End(ctx)
	assert.ErrorIs(t, err, ErrRoomEnded)
	_, err = r.Draw(ctx)
	assert.ErrorIs(t, err, ErrRoomEnded)
	_, err = r.RegisterPlayer(ctx, "late")
	assert.ErrorIs(t, err, ErrRoomEnded)
	_, err = r.Punch(ctx, uuid.New(), 1)
	assert.ErrorIs(t, err, ErrRoomEnded)
	_, err = r.UpdateSettings(ctx, models.RoomSettings{DrawMode: models.DrawModeManual})
	assert.ErrorIs(t, err, ErrRoomEnded)
}

func TestLifecycleBroadcasts(t *testing.T) {
	r, b := manualRoom(t)
	ctx := context.Background()

	_, err := r.Start(ctx)
	require.NoError(t, err)
	_, err = r.Pause(ctx)
	require.NoError(t, err)

	changes := b.typed(events.TypeRoomStatusChanged)
	require.Len(t, changes, 2)

	p1, err := events.ParsePayload(changes[0])
	require.NoError(t, err)
	assert.Equal(t, models.RoomStatusActive, p1.(*events.RoomStatusChangedPayload).Status)
	assert.Equal(t, models.RoomStatusCreated, p1.(*events.RoomStatusChangedPayload).PrevStatus)

	p2, err := events.ParsePayload(changes[1])
	require.NoError(t, err)
	assert.Equal(t, models.RoomStatusPaused, p2.(*events.RoomStatusChangedPayload).Status)
}

// --- Draws ---

func TestDrawRequiresActive(t *testing.T) {
	r, _ := manualRoom(t)
	ctx := context.Background()

	_, err := r.Draw(ctx)
	assert.ErrorIs(t, err, ErrRoomNotActive, "draw in CREATED")

	_, err = r.Start(ctx)
	require.NoError(t, err)
	_, err = r.Pause(ctx)
	require.NoError(t, err)
	_, err = r.Draw(ctx)
	assert.ErrorIs(t, err, ErrRoomNotActive, "draw in PAUSED")
}

func TestDrawExhaustsPoolWithoutRepeats(t *testing.T) {
	r, b := manualRoom(t)
	ctx := context.Background()

	_, err := r.Start(ctx)
	require.NoError(t, err)

	drawn := drainPool(t, r)
	require.Len(t, drawn, models.MaxBallValue)

	seen := make(map[int]bool)
	for _, n := range drawn {
		assert.GreaterOrEqual(t, n, 1)
		assert.LessOrEqual(t, n, models.MaxBallValue)
		require.False(t, seen[n], "number %d drawn twice", n)
		seen[n] = true
	}

	// drained pool keeps failing, room stays ACTIVE
	_, err = r.Draw(ctx)
	assert.ErrorIs(t, err, ErrNoNumbersRemaining)
	room, _, err := r.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.RoomStatusActive, room.Status)
	assert.Equal(t, 0, room.Remaining())

	assert.Len(t, b.typed(events.TypeNumberDrawn), models.MaxBallValue)
}

func TestDrawDeterministicPerSeed(t *testing.T) {
	ctx := context.Background()

	seq := func() []int {
		r, _ := manualRoom(t)
		_, err := r.Start(ctx)
		require.NoError(t, err)
		return drainPool(t, r)
	}
	assert.Equal(t, seq(), seq(), "same seed yields the same draw order")
}

// --- Players and punches ---

func TestRegisterPlayerIssuesCard(t *testing.T) {
	r, b := manualRoom(t)
	ctx := context.Background()

	p, err := r.RegisterPlayer(ctx, "ada")
	require.NoError(t, err)
	assert.Equal(t, "ada", p.Name)
	assert.Len(t, p.Card.Numbers(), 24)
	assert.Empty(t, p.PunchedNumbers)
	assert.False(t, p.HasBingo)

	joins := b.typed(events.TypePlayerJoined)
	require.Len(t, joins, 1)
}

func TestRoomCapacity(t *testing.T) {
	r, _ := manualRoom(t)
	ctx := context.Background()

	for i := 0; i < MaxPlayers; i++ {
		_, err := r.RegisterPlayer(ctx, "p")
		require.NoError(t, err)
	}
	_, err := r.RegisterPlayer(ctx, "overflow")
	assert.ErrorIs(t, err, ErrRoomFull)
}

func TestPunchValidation(t *testing.T) {
	r, _ := manualRoom(t)
	ctx := context.Background()

	p, err := r.RegisterPlayer(ctx, "ada")
	require.NoError(t, err)
	_, err = r.Start(ctx)
	require.NoError(t, err)

	// nothing drawn yet: every punch is invalid
	onCard := p.Card.Numbers()[0]
	_, err = r.Punch(ctx, p.ID, onCard)
	assert.ErrorIs(t, err, ErrInvalidPunch, "punching an undrawn number")

	drawn := drainPool(t, r) // now everything is drawn
	require.Len(t, drawn, models.MaxBallValue)

	// drawn but not on the card
	var offCard int
	for n := 1; n <= models.MaxBallValue; n++ {
		if !p.Card.Contains(n) {
			offCard = n
			break
		}
	}
	_, err = r.Punch(ctx, p.ID, offCard)
	assert.ErrorIs(t, err, ErrInvalidPunch, "punching a number not on the card")

	_, err = r.Punch(ctx, uuid.New(), onCard)
	assert.ErrorIs(t, err, ErrPlayerNotFound)

	updated, err := r.Punch(ctx, p.ID, onCard)
	require.NoError(t, err)
	assert.Equal(t, []int{onCard}, updated.PunchedNumbers)
}

func TestPunchIdempotent(t *testing.T) {
	r, _ := manualRoom(t)
	ctx := context.Background()

	p, err := r.RegisterPlayer(ctx, "ada")
	require.NoError(t, err)
	_, err = r.Start(ctx)
	require.NoError(t, err)
	drainPool(t, r)

	n := p.Card.Numbers()[0]
	first, err := r.Punch(ctx, p.ID, n)
	require.NoError(t, err)
	replayed, err := r.Punch(ctx, p.ID, n)
	require.NoError(t, err)
	assert.Equal(t, first.PunchedNumbers, replayed.PunchedNumbers, "replaying a punch is a no-op")

	removed, err := r.Unpunch(ctx, p.ID, n)
	require.NoError(t, err)
	assert.Empty(t, removed.PunchedNumbers)
	removedAgain, err := r.Unpunch(ctx, p.ID, n)
	require.NoError(t, err)
	assert.Empty(t, removedAgain.PunchedNumbers, "replaying an unpunch is a no-op")
}

func TestWinDetectedExactlyOnce(t *testing.T) {
	r, b := manualRoom(t)
	ctx := context.Background()

	p, err := r.RegisterPlayer(ctx, "ada")
	require.NoError(t, err)
	_, err = r.Start(ctx)
	require.NoError(t, err)
	drainPool(t, r)

	// complete row 0: five punches, the fifth wins
	for col := 0; col < models.CardSize; col++ {
		_, err := r.Punch(ctx, p.ID, p.Card.Cells[0][col])
		require.NoError(t, err)
	}

	bingos := b.typed(events.TypePlayerBingo)
	require.Len(t, bingos, 1)
	payload, err := events.ParsePayload(bingos[0])
	require.NoError(t, err)
	assert.Equal(t, p.ID.String(), payload.(*events.PlayerBingoPayload).PlayerID)
	assert.Contains(t, payload.(*events.PlayerBingoPayload).Lines, "row-0")

	won, err := r.Sync(ctx, p.ID)
	require.NoError(t, err)
	require.True(t, won.Player.HasBingo)
	wonAt := *won.Player.WonAt

	// completing a second line must not re-announce or move the timestamp
	for row := 1; row < models.CardSize; row++ {
		if p.Card.Cells[row][0] == models.FreeCell {
			continue
		}
		_, err := r.Punch(ctx, p.ID, p.Card.Cells[row][0])
		require.NoError(t, err)
	}
	assert.Len(t, b.typed(events.TypePlayerBingo), 1, "bingo is announced exactly once")

	after, err := r.Sync(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, wonAt, *after.Player.WonAt)
}

func TestUnpunchNeverClearsWin(t *testing.T) {
	r, _ := manualRoom(t)
	ctx := context.Background()

	p, err := r.RegisterPlayer(ctx, "ada")
	require.NoError(t, err)
	_, err = r.Start(ctx)
	require.NoError(t, err)
	drainPool(t, r)

	for col := 0; col < models.CardSize; col++ {
		_, err := r.Punch(ctx, p.ID, p.Card.Cells[0][col])
		require.NoError(t, err)
	}

	broken, err := r.Unpunch(ctx, p.ID, p.Card.Cells[0][0])
	require.NoError(t, err)
	assert.True(t, broken.HasBingo, "win flag survives breaking the line")
	require.NotNil(t, broken.WonAt)
}

// --- Ordering and subscription ---

func TestBroadcastSeqStrictlyIncreasing(t *testing.T) {
	r, b := manualRoom(t)
	ctx := context.Background()

	_, err := r.RegisterPlayer(ctx, "ada")
	require.NoError(t, err)
	_, err = r.Start(ctx)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		_, err := r.Draw(ctx)
		require.NoError(t, err)
	}

	envs := b.all()
	require.NotEmpty(t, envs)
	for i, env := range envs {
		assert.Equal(t, uint64(i+1), env.Seq, "commit sequence has no gaps")
	}
}

func TestSubscribeSnapshotBeforeDeltas(t *testing.T) {
	r, _ := manualRoom(t)
	ctx := context.Background()

	p, err := r.RegisterPlayer(ctx, "ada")
	require.NoError(t, err)
	_, err = r.Start(ctx)
	require.NoError(t, err)
	_, err = r.Draw(ctx)
	require.NoError(t, err)

	sub := newRecorderSub()
	require.NoError(t, r.Subscribe(ctx, sub, &p.ID))

	_, err = r.Draw(ctx)
	require.NoError(t, err)
	_, err = r.Pause(ctx)
	require.NoError(t, err)

	envs := sub.all()
	require.GreaterOrEqual(t, len(envs), 3)
	require.Equal(t, events.TypeRoomSnapshot, envs[0].Type, "baseline precedes any delta")

	snap, err := events.ParsePayload(envs[0])
	require.NoError(t, err)
	payload := snap.(*events.SnapshotPayload)
	require.NotNil(t, payload.Player)
	assert.Equal(t, p.ID, payload.Player.ID)
	assert.Len(t, payload.Room.DrawnNumbers, 1, "snapshot reflects state at subscription")

	// every delta after the snapshot continues the sequence with no gap
	prev := envs[0].Seq
	for _, env := range envs[1:] {
		assert.Equal(t, prev+1, env.Seq)
		prev = env.Seq
	}
}

func TestSubscribeUnknownPlayer(t *testing.T) {
	r, _ := manualRoom(t)
	id := uuid.New()
	err := r.Subscribe(context.Background(), newRecorderSub(), &id)
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

func TestSubscribeAdminView(t *testing.T) {
	r, _ := manualRoom(t)
	ctx := context.Background()

	_, err := r.RegisterPlayer(ctx, "ada")
	require.NoError(t, err)
	_, err = r.RegisterPlayer(ctx, "grace")
	require.NoError(t, err)

	sub := newRecorderSub()
	require.NoError(t, r.Subscribe(ctx, sub, nil))

	envs := sub.all()
	require.NotEmpty(t, envs)
	snap, err := events.ParsePayload(envs[0])
	require.NoError(t, err)
	assert.Len(t, snap.(*events.SnapshotPayload).Players, 2, "admin snapshot carries the roster")
}

// --- Sync ---

func TestSyncReturnsAuthoritativeState(t *testing.T) {
	r, _ := manualRoom(t)
	ctx := context.Background()

	p, err := r.RegisterPlayer(ctx, "ada")
	require.NoError(t, err)
	_, err = r.Start(ctx)
	require.NoError(t, err)
	_, err = r.Draw(ctx)
	require.NoError(t, err)

	resp, err := r.Sync(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, resp.Player.ID)
	assert.Len(t, resp.Room.DrawnNumbers, 1)
}

func TestSyncTargetInvalid(t *testing.T) {
	r, _ := manualRoom(t)
	ctx := context.Background()

	p, err := r.RegisterPlayer(ctx, "ada")
	require.NoError(t, err)

	_, err = r.Sync(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrSyncTargetInvalid, "unknown player")

	_, err = r.Start(ctx)
	require.NoError(t, err)
	_, err = r.End(ctx)
	require.NoError(t, err)
	_, err = r.Sync(ctx, p.ID)
	assert.ErrorIs(t, err, ErrSyncTargetInvalid, "ended room")
}

// --- Presence ---

func TestConnectDisconnect(t *testing.T) {
	r, _ := manualRoom(t)
	ctx := context.Background()

	p, err := r.RegisterPlayer(ctx, "ada")
	require.NoError(t, err)

	connID := uuid.New()
	connected, err := r.Connect(ctx, p.ID, connID)
	require.NoError(t, err)
	require.NotNil(t, connected.ConnectionID)
	assert.Equal(t, connID, *connected.ConnectionID)

	_, players, err := r.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, players, 1)
	assert.True(t, players[0].Online)

	// a stale connection id must not knock the newer connection offline
	stale, err := r.Disconnect(ctx, p.ID, uuid.New())
	require.NoError(t, err)
	assert.True(t, stale.Online)
	require.NotNil(t, stale.ConnectionID)
	_, players, err = r.Snapshot(ctx)
	require.NoError(t, err)
	assert.True(t, players[0].Online)

	gone, err := r.Disconnect(ctx, p.ID, connID)
	require.NoError(t, err)
	assert.False(t, gone.Online)
	assert.Nil(t, gone.ConnectionID)
	_, players, err = r.Snapshot(ctx)
	require.NoError(t, err)
	assert.False(t, players[0].Online)
}

// --- Settings ---

func TestUpdateSettingsValidation(t *testing.T) {
	r, _ := manualRoom(t)
	ctx := context.Background()

	_, err := r.UpdateSettings(ctx, models.RoomSettings{DrawMode: models.DrawModeTimed})
	assert.Error(t, err, "timed mode needs an interval")
	_, err = r.UpdateSettings(ctx, models.RoomSettings{DrawMode: "WEEKLY"})
	assert.Error(t, err)

	updated, err := r.UpdateSettings(ctx, models.RoomSettings{DrawMode: models.DrawModeTimed, DrawIntervalSec: 30})
	require.NoError(t, err)
	assert.Equal(t, 30, updated.Settings.DrawIntervalSec)
}

// --- Timed draws ---

func TestTimedDrawsFollowTheClock(t *testing.T) {
	fc := clockwork.NewFakeClock()
	r, _ := newTestRoom(t, models.RoomSettings{DrawMode: models.DrawModeTimed, DrawIntervalSec: 5}, fc)
	ctx := context.Background()

	_, err := r.Start(ctx)
	require.NoError(t, err)

	drawnCount := func() int {
		room, _, err := r.Snapshot(ctx)
		require.NoError(t, err)
		return len(room.DrawnNumbers)
	}

	assert.Equal(t, 0, drawnCount(), "no draw before the interval elapses")

	fc.BlockUntil(1)
	fc.Advance(5 * time.Second)
	require.Eventually(t, func() bool { return drawnCount() == 1 }, time.Second, time.Millisecond)

	fc.BlockUntil(1)
	fc.Advance(5 * time.Second)
	require.Eventually(t, func() bool { return drawnCount() == 2 }, time.Second, time.Millisecond)
}

func TestPauseStopsTimedDraws(t *testing.T) {
	fc := clockwork.NewFakeClock()
	r, _ := newTestRoom(t, models.RoomSettings{DrawMode: models.DrawModeTimed, DrawIntervalSec: 5}, fc)
	ctx := context.Background()

	_, err := r.Start(ctx)
	require.NoError(t, err)
	fc.BlockUntil(1)
	fc.Advance(5 * time.Second)

	drawnCount := func() int {
		room, _, err := r.Snapshot(ctx)
		require.NoError(t, err)
		return len(room.DrawnNumbers)
	}
	require.Eventually(t, func() bool { return drawnCount() == 1 }, time.Second, time.Millisecond)

	_, err = r.Pause(ctx)
	require.NoError(t, err)

	// time marches on; no draw may land after the pause was accepted
	fc.Advance(time.Minute)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, drawnCount())

	_, err = r.Resume(ctx)
	require.NoError(t, err)
	fc.BlockUntil(1)
	fc.Advance(5 * time.Second)
	require.Eventually(t, func() bool { return drawnCount() == 2 }, time.Second, time.Millisecond)
}

func TestEndStopsTimedDraws(t *testing.T) {
	fc := clockwork.NewFakeClock()
	r, _ := newTestRoom(t, models.RoomSettings{DrawMode: models.DrawModeTimed, DrawIntervalSec: 5}, fc)
	ctx := context.Background()

	_, err := r.Start(ctx)
	require.NoError(t, err)
	_, err = r.End(ctx)
	require.NoError(t, err)

	fc.Advance(time.Minute)
	time.Sleep(20 * time.Millisecond)

	room, _, err := r.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, room.DrawnNumbers)
}

func TestManualModeNeverSchedules(t *testing.T) {
	fc := clockwork.NewFakeClock()
	r, _ := newTestRoom(t, models.RoomSettings{DrawMode: models.DrawModeManual}, fc)
	ctx := context.Background()

	_, err := r.Start(ctx)
	require.NoError(t, err)
	fc.Advance(time.Hour)
	time.Sleep(20 * time.Millisecond)

	room, _, err := r.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, room.DrawnNumbers)
}

// --- Shutdown ---

func TestClosedRoomRejectsRequests(t *testing.T) {
	r, _ := manualRoom(t)
	r.Close()

	_, err := r.Draw(context.Background())
	assert.ErrorIs(t, err, ErrRoomClosed)
}

// --- Stats ---

func TestStats(t *testing.T) {
	r, _ := manualRoom(t)
	ctx := context.Background()

	a, err := r.RegisterPlayer(ctx, "ada")
	require.NoError(t, err)
	_, err = r.RegisterPlayer(ctx, "grace")
	require.NoError(t, err)
	_, err = r.Connect(ctx, a.ID, uuid.New())
	require.NoError(t, err)

	_, err = r.Start(ctx)
	require.NoError(t, err)
	_, err = r.Draw(ctx)
	require.NoError(t, err)

	stats, err := r.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalPlayers)
	assert.Equal(t, 1, stats.ActivePlayers)
	assert.Equal(t, 0, stats.PlayersWithBingo)
	assert.Equal(t, 1, stats.DrawnCount)
	assert.Equal(t, models.MaxBallValue-1, stats.Remaining)
}
