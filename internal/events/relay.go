package events

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"strings"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/race-to-moscow/internal/service"
)

// RelayConfig sizes the relay's worker pool.
type RelayConfig struct {
	Workers    int // events of one session always go to the same worker
	BufferSize int // per worker
}

// Relay subscribes to session events from every node and hands the ones
// published elsewhere to a local broadcaster, normally the websocket hub.
type Relay struct {
	nc   *nats.Conn
	node string
	sink service.Broadcaster
	cfg  RelayConfig

	sub    *nats.Subscription
	queues []chan *nats.Msg
	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewRelay creates a Relay.
func NewRelay(nc *nats.Conn, node string, sink service.Broadcaster, cfg RelayConfig) *Relay {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1024
	}
	return &Relay{nc: nc, node: node, sink: sink, cfg: cfg}
}

// Start subscribes and launches the workers.
func (r *Relay) Start(ctx context.Context) error {
	workerCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	r.queues = make([]chan *nats.Msg, r.cfg.Workers)
	for i := range r.queues {
		r.queues[i] = make(chan *nats.Msg, r.cfg.BufferSize)
		r.wg.Add(1)
		go r.worker(workerCtx, r.queues[i])
	}

	sub, err := r.nc.Subscribe(SubjectAll, func(msg *nats.Msg) {
		q := r.queues[shard(msg.Subject, len(r.queues))]
		select {
		case q <- msg:
		default:
			log.Warn().Str("subject", msg.Subject).Int("bufferSize", r.cfg.BufferSize).Msg("Relay buffer full, dropping event")
		}
	})
	if err != nil {
		cancel()
		r.wg.Wait()
		return err
	}
	r.sub = sub

	log.Info().Str("subject", SubjectAll).Int("workers", r.cfg.Workers).Msg("NATS relay started")
	return nil
}

// Stop unsubscribes and waits for the workers to exit.
func (r *Relay) Stop() {
	if r.sub != nil {
		if err := r.sub.Unsubscribe(); err != nil {
			log.Warn().Err(err).Msg("Relay unsubscribe failed")
		}
	}
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
	log.Info().Msg("NATS relay stopped")
}

func (r *Relay) worker(ctx context.Context, q <-chan *nats.Msg) {
	defer r.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-q:
			r.handle(msg.Data)
		}
	}
}

func (r *Relay) handle(data []byte) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Msg("Dropping malformed session event")
		return
	}
	if env.Node == r.node || env.SessionID == "" {
		return
	}
	r.sink.BroadcastSessionEvent(env.SessionID, env.Type, env.Data)
}

// shard keys on the session segment of the subject so one session's events
// stay ordered.
func shard(subject string, n int) int {
	key := subject
	if rest, ok := strings.CutPrefix(subject, subjectPrefix+"."); ok {
		key, _, _ = strings.Cut(rest, ".")
	}
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % uint32(n))
}
