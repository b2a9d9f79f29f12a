package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/StormyOasis/linsta-sub001/internal/config"
	"github.com/StormyOasis/linsta-sub001/internal/metrics"
	pkglog "github.com/StormyOasis/linsta-sub001/pkg/log"
	"github.com/StormyOasis/linsta-sub001/pkg/pubsub"
)

// RepairHandler performs one repair. It must be idempotent.
type RepairHandler func(ctx context.Context, target string, payload []byte) error

const (
	maxBackoff      = 10 * time.Minute
	publishedMaxAge = 7 * 24 * time.Hour
)

// Relay periodically publishes pending outbox events and retries repair
// tasks.
type Relay struct {
	store    *Store
	pub      pubsub.Publisher
	handlers map[string]RepairHandler
	metrics  *metrics.Metrics
	cfg      config.OutboxConfig
	quit     chan struct{}
	doneCh   chan struct{}
}

// NewRelay creates a new Relay. pub may be nil, in which case events stay
// in the table and only repairs are processed.
func NewRelay(store *Store, pub pubsub.Publisher, m *metrics.Metrics, cfg config.OutboxConfig) *Relay {
	return &Relay{
		store:    store,
		pub:      pub,
		handlers: make(map[string]RepairHandler),
		metrics:  m,
		cfg:      cfg,
		quit:     make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Handle registers the handler for a repair kind. Call before Start.
func (r *Relay) Handle(kind string, h RepairHandler) {
	r.handlers[kind] = h
}

// Start launches the relay in a background goroutine.
func (r *Relay) Start(ctx context.Context) {
	go r.run(ctx)
}

// Stop signals the relay to stop and returns immediately.
// Call Done() to wait for it to exit.
func (r *Relay) Stop() {
	close(r.quit)
}

// Done returns a channel that is closed when the relay has fully stopped.
func (r *Relay) Done() <-chan struct{} {
	return r.doneCh
}

func (r *Relay) run(ctx context.Context) {
	defer close(r.doneCh)

	interval := r.cfg.Interval
	if interval <= 0 {
		interval = 2 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.quit:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Tick(ctx)
		}
	}
}

// Tick runs one relay pass.
func (r *Relay) Tick(ctx context.Context) {
	if r.pub != nil {
		r.publishEvents(ctx)
	}
	r.runRepairs(ctx)
}

func (r *Relay) batchSize() int {
	if r.cfg.BatchSize <= 0 {
		return 100
	}
	return r.cfg.BatchSize
}

func (r *Relay) publishEvents(ctx context.Context) {
	l := pkglog.L()

	events, err := r.store.PendingEvents(ctx, r.batchSize())
	if err != nil {
		l.Error().Err(err).Msg("outbox: failed to load pending events")
		return
	}

	for i := range events {
		ev := &events[i]
		if err := r.pub.Publish(ctx, ev.Topic, ev.ToEvent()); err != nil {
			r.metrics.EventRelayed(ev.Topic, false)
			l.Warn().Err(err).Str(pkglog.FieldTopic, ev.Topic).Str("event_id", ev.EventID).Msg("outbox: publish failed")
			if err := r.store.MarkEventFailed(ctx, ev.ID, err); err != nil {
				l.Error().Err(err).Msg("outbox: failed to record publish failure")
			}
			// Keep per-key ordering: stop at the first failure.
			return
		}
		r.metrics.EventRelayed(ev.Topic, true)
		if err := r.store.MarkPublished(ctx, ev.ID); err != nil {
			l.Error().Err(err).Str("event_id", ev.EventID).Msg("outbox: failed to mark event published")
			return
		}
	}

	if len(events) > 0 {
		if n, err := r.store.PurgePublished(ctx, time.Now().Add(-publishedMaxAge)); err != nil {
			l.Warn().Err(err).Msg("outbox: failed to purge published events")
		} else if n > 0 {
			l.Debug().Int64("count", n).Msg("outbox: purged published events")
		}
	}
}

func (r *Relay) runRepairs(ctx context.Context) {
	l := pkglog.L()

	tasks, err := r.store.DueRepairs(ctx, r.batchSize())
	if err != nil {
		l.Error().Err(err).Msg("outbox: failed to load repair tasks")
		return
	}

	for i := range tasks {
		task := &tasks[i]
		tl := l.With().
			Str(pkglog.FieldTaskKind, task.Kind).
			Str(pkglog.FieldTargetID, task.Target).
			Int("attempts", task.Attempts).
			Logger()

		err := r.repair(ctx, task)
		r.metrics.RepairAttempted(task.Kind, err == nil)
		if err == nil {
			if err := r.store.MarkRepairDone(ctx, task.ID); err != nil {
				tl.Error().Err(err).Msg("outbox: failed to mark repair done")
				continue
			}
			tl.Info().Msg("outbox: repair succeeded")
			continue
		}

		next := time.Now().Add(Backoff(task.Attempts+1, r.cfg.Interval))
		if err := r.store.MarkRepairFailed(ctx, task.ID, err, next); err != nil {
			tl.Error().Err(err).Msg("outbox: failed to record repair failure")
		}
		if r.cfg.MaxAttempts > 0 && task.Attempts+1 >= r.cfg.MaxAttempts {
			tl.Error().Err(err).Msg("outbox: repair keeps failing")
		} else {
			tl.Warn().Err(err).Time("next_attempt", next).Msg("outbox: repair failed")
		}
	}
}

func (r *Relay) repair(ctx context.Context, task *RepairModel) error {
	h, ok := r.handlers[task.Kind]
	if !ok {
		return fmt.Errorf("no handler for repair kind %q", task.Kind)
	}
	return h(ctx, task.Target, []byte(task.Payload))
}

// Backoff doubles base for every attempt and caps the delay at 10 minutes.
func Backoff(attempt int, base time.Duration) time.Duration {
	if base <= 0 {
		base = 2 * time.Second
	}
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}
