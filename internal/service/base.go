package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/StormyOasis/linsta-sub001/internal/cache"
	"github.com/StormyOasis/linsta-sub001/internal/config"
	"github.com/StormyOasis/linsta-sub001/internal/domain"
	"github.com/StormyOasis/linsta-sub001/internal/idgen"
	"github.com/StormyOasis/linsta-sub001/internal/metrics"
	"github.com/StormyOasis/linsta-sub001/internal/outbox"
	"github.com/StormyOasis/linsta-sub001/internal/repository"
	"github.com/StormyOasis/linsta-sub001/internal/saga"
	"github.com/StormyOasis/linsta-sub001/pkg/log"
)

// Deps are the collaborators shared by all services.
type Deps struct {
	Graph    repository.GraphRepository
	Posts    repository.PostIndex
	Profiles repository.ProfileIndex
	Cache    cache.EntityCache
	Media    MediaStore
	Events   EventQueue
	Repairs  saga.RepairRecorder
	Sagas    *saga.Coordinator
	IDs      idgen.Generator
	Metrics  *metrics.Metrics
	Now      func() time.Time
}

// Options are the tunables of the services.
type Options struct {
	PageSize       int
	MaxPageSize    int
	MaxPostImages  int
	CodeTTL        time.Duration
	ResetTokenTTL  time.Duration
	BcryptCost     int
	RequireConfirm bool
}

// OptionsFromConfig picks the service options out of the application config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		PageSize:       cfg.Elasticsearch.PageSize,
		MaxPageSize:    50,
		MaxPostImages:  cfg.Media.MaxPostImages,
		CodeTTL:        cfg.Account.CodeTTL,
		ResetTokenTTL:  cfg.Account.ResetTokenTTL,
		BcryptCost:     cfg.Account.BcryptCost,
		RequireConfirm: cfg.Account.RequireConfirm,
	}
}

func (o Options) withDefaults() Options {
	if o.PageSize <= 0 {
		o.PageSize = 12
	}
	if o.MaxPageSize < o.PageSize {
		o.MaxPageSize = 50
	}
	if o.MaxPostImages <= 0 {
		o.MaxPostImages = 10
	}
	if o.CodeTTL <= 0 {
		o.CodeTTL = 24 * time.Hour
	}
	if o.ResetTokenTTL <= 0 {
		o.ResetTokenTTL = time.Hour
	}
	return o
}

// base holds the helpers every service uses.
type base struct {
	Deps
	opts  Options
	group singleflight.Group
}

func newBase(deps Deps, opts Options) *base {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.IDs == nil {
		deps.IDs = idgen.New()
	}
	if deps.Sagas == nil {
		deps.Sagas = saga.NewCoordinator(deps.Repairs, deps.Metrics)
	}
	return &base{Deps: deps, opts: opts.withDefaults()}
}

func (b *base) now() time.Time {
	return b.Now().UTC()
}

func (b *base) pageSize(size int) int {
	if size <= 0 {
		return b.opts.PageSize
	}
	if size > b.opts.MaxPageSize {
		return b.opts.MaxPageSize
	}
	return size
}

func (b *base) page(p domain.Page) domain.Page {
	return p.Normalize(b.opts.PageSize, b.opts.MaxPageSize)
}

// begin opens a graph transaction. The returned func rolls it back unless
// it was committed and is meant to be deferred.
func (b *base) begin(ctx context.Context) (repository.GraphTx, func(), error) {
	tx, err := b.Graph.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("begin graph tx: %w", err)
	}
	return tx, func() {
		if err := tx.Rollback(context.WithoutCancel(ctx)); err != nil {
			l := log.Ctx(ctx)
			l.Warn().Err(err).Msg("graph rollback failed")
		}
	}, nil
}

// commitStep commits tx as a saga step so a failed commit compensates the
// steps before it.
func commitStep(tx repository.GraphTx) saga.Step {
	return saga.Step{Name: "graph.commit", Do: tx.Commit}
}

// repairLater queues a repair for a write that failed after the graph
// committed.
func (b *base) repairLater(ctx context.Context, r saga.Repair, cause error) {
	l := log.Ctx(ctx).With().Str(log.FieldTaskKind, r.Kind).Str(log.FieldTargetID, r.Target).Logger()
	l.Error().Err(cause).Msg("store write failed after commit, queueing repair")
	if b.Repairs == nil {
		return
	}
	if err := b.Repairs.AddRepair(context.WithoutCancel(ctx), r); err != nil {
		l.Error().Err(err).Msg("failed to queue repair")
	}
}

// invalidate drops cache keys, queueing a repair when Redis is unavailable
// so a stale entry cannot outlive its TTL unnoticed.
func (b *base) invalidate(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := b.Cache.Delete(ctx, keys...); err != nil {
		b.repairLater(ctx, saga.Repair{Kind: outbox.KindCacheDelete, Target: keys[0], Payload: keys}, err)
	}
}

// publish records a domain event. The write it describes has already
// committed, so a failure is logged rather than returned.
func (b *base) publish(ctx context.Context, topic, eventType, key string, payload interface{}) {
	if b.Events == nil {
		return
	}
	if err := b.Events.Enqueue(context.WithoutCancel(ctx), topic, eventType, key, payload); err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Str(log.FieldTopic, topic).Str("event_type", eventType).Msg("failed to enqueue event")
	}
}

// loadPost reads a post document cache-aside.
func (b *base) loadPost(ctx context.Context, esID string) (*domain.Post, error) {
	if p, err := b.Cache.GetPost(ctx, esID); err == nil {
		b.Metrics.CacheLookup("post", true)
		return p, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldESID, esID).Msg("post cache read failed")
	}
	b.Metrics.CacheLookup("post", false)

	// The flight is shared, so one caller's cancellation must not fail the rest.
	v, err, _ := b.group.Do("post:"+esID, func() (interface{}, error) {
		ctx := context.WithoutCancel(ctx)
		p, err := b.Posts.Get(ctx, esID)
		if err != nil {
			return nil, err
		}
		if err := b.Cache.SetPost(ctx, p); err != nil {
			l := log.Ctx(ctx)
			l.Warn().Err(err).Str(log.FieldESID, esID).Msg("post cache write failed")
		}
		return p, nil
	})
	if err != nil {
		return nil, repoErr(err, "post")
	}
	// Callers may modify the document; hand each one its own copy.
	p := *v.(*domain.Post)
	p.Media = append([]domain.MediaItem(nil), p.Media...)
	return &p, nil
}

// repoErr maps repository errors onto service errors.
func repoErr(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return notFound(what + " not found")
	case errors.Is(err, repository.ErrUserNameExists):
		return conflict("user name is taken")
	case errors.Is(err, repository.ErrContactExists):
		return conflict("email or phone is already registered")
	case errors.Is(err, repository.ErrParentNotOnPost):
		return invalidf("parent comment belongs to another post")
	default:
		var se *Error
		if errors.As(err, &se) {
			return err
		}
		return fmt.Errorf("%s: %w", what, err)
	}
}
