// Package relay mirrors committed room envelopes onto NATS JetStream so
// out-of-process consumers (analytics, moderation, replay tooling) can
// follow games without touching the WebSocket fan-out.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/bingohall/go/internal/room/engine"
	"github.com/mcdev12/bingohall/go/internal/room/events"
)

// JetStreamConfig holds the relay connection and stream settings.
type JetStreamConfig struct {
	URL           string
	StreamName    string
	SubjectPrefix string
	MaxReconnects int
	ReconnectWait time.Duration
	MaxAge        time.Duration
	Buffer        int
}

// DefaultJetStreamConfig returns the production defaults. Room events are
// only useful for a bounded window after the game, hence the short MaxAge.
func DefaultJetStreamConfig() JetStreamConfig {
	return JetStreamConfig{
		URL:           nats.DefaultURL,
		StreamName:    "ROOM_EVENTS",
		SubjectPrefix: "bingo.rooms",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
		MaxAge:        24 * time.Hour,
		Buffer:        1024,
	}
}

// JetStreamRelay implements engine.Publisher. Publish never blocks the
// room worker: envelopes land in a buffered channel drained by a single
// background goroutine, and the relay sheds load when the bus is behind.
type JetStreamRelay struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	config JetStreamConfig

	queue chan queuedEnvelope
	done  chan struct{}
}

type queuedEnvelope struct {
	roomID uuid.UUID
	env    events.Envelope
}

var _ engine.Publisher = (*JetStreamRelay)(nil)

// NewJetStreamRelay connects to NATS, ensures the stream exists, and
// starts the drain goroutine.
func NewJetStreamRelay(cfg JetStreamConfig) (*JetStreamRelay, error) {
	opts := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	r := &JetStreamRelay{
		nc:     nc,
		js:     js,
		config: cfg,
		queue:  make(chan queuedEnvelope, cfg.Buffer),
		done:   make(chan struct{}),
	}
	if err := r.ensureStream(context.Background()); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure stream: %w", err)
	}

	go r.drain()
	return r, nil
}

func (r *JetStreamRelay) ensureStream(ctx context.Context) error {
	sc := jetstream.StreamConfig{
		Name:        r.config.StreamName,
		Description: "Committed room event mirror",
		Subjects:    []string{fmt.Sprintf("%s.>", r.config.SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      r.config.MaxAge,
		Storage:     jetstream.FileStorage,
	}

	if _, err := r.js.Stream(ctx, r.config.StreamName); err != nil {
		if _, err = r.js.CreateStream(ctx, sc); err != nil {
			return fmt.Errorf("create stream: %w", err)
		}
		log.Info().Str("stream", r.config.StreamName).Msg("created JetStream stream")
	}
	return nil
}

// Publish implements engine.Publisher. Called from room workers; must not
// block.
func (r *JetStreamRelay) Publish(roomID uuid.UUID, env events.Envelope) {
	select {
	case r.queue <- queuedEnvelope{roomID: roomID, env: env}:
	default:
		log.Warn().
			Str("room_id", roomID.String()).
			Str("type", string(env.Type)).
			Msg("relay queue full, dropping envelope")
	}
}

func (r *JetStreamRelay) drain() {
	for {
		select {
		case <-r.done:
			return
		case q := <-r.queue:
			r.publish(q)
		}
	}
}

func (r *JetStreamRelay) publish(q queuedEnvelope) {
	subject := fmt.Sprintf("%s.%s.events", r.config.SubjectPrefix, q.roomID)
	data, err := json.Marshal(q.env)
	if err != nil {
		log.Error().Err(err).Str("type", string(q.env.Type)).Msg("marshal relay envelope")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// room id + seq is unique per committed envelope, which gives the bus
	// dedup across reconnect replays
	msgID := fmt.Sprintf("%s-%d", q.roomID, q.env.Seq)
	_, err = r.js.PublishMsg(ctx, &nats.Msg{
		Subject: subject,
		Data:    data,
		Header: nats.Header{
			"Event-Type": []string{string(q.env.Type)},
			"Room-ID":    []string{q.roomID.String()},
		},
	},
		jetstream.WithMsgID(msgID),
		jetstream.WithExpectStream(r.config.StreamName),
	)
	if err != nil {
		log.Error().Err(err).
			Str("subject", subject).
			Str("type", string(q.env.Type)).
			Msg("relay publish failed")
		return
	}
	log.Debug().
		Str("subject", subject).
		Str("type", string(q.env.Type)).
		Uint64("seq", q.env.Seq).
		Msg("relayed envelope")
}

// Close stops the drain goroutine and closes the connection. Queued but
// unpublished envelopes are dropped.
func (r *JetStreamRelay) Close() {
	close(r.done)
	r.nc.Close()
}
