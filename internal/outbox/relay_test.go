package outbox

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StormyOasis/linsta-sub001/internal/config"
	"github.com/StormyOasis/linsta-sub001/internal/domain"
	"github.com/StormyOasis/linsta-sub001/internal/saga"
	"github.com/StormyOasis/linsta-sub001/pkg/database"
	"github.com/StormyOasis/linsta-sub001/pkg/pubsub"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	db, err := database.New(&database.Config{
		Driver:       "sqlite",
		FilePath:     fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
		MaxOpenConns: 1,
		LogLevel:     "silent",
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db, Models...))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return NewStore(db)
}

type fakePublisher struct {
	mu        sync.Mutex
	failFirst int
	published []*pubsub.Event
	topics    []string
}

func (p *fakePublisher) Publish(_ context.Context, topic string, ev *pubsub.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failFirst > 0 {
		p.failFirst--
		return errors.New("broker unavailable")
	}
	p.published = append(p.published, ev)
	p.topics = append(p.topics, topic)
	return nil
}

func TestRelay_PublishesPendingEventsInOrder(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	pub := &fakePublisher{failFirst: 1}
	relay := NewRelay(store, pub, nil, config.OutboxConfig{BatchSize: 10})

	require.NoError(t, store.Enqueue(ctx, pubsub.TopicPost, domain.EventPostCreated, "p1", domain.PostEventPayload{PostID: "p1"}))
	require.NoError(t, store.Enqueue(ctx, pubsub.TopicProfile, domain.EventProfileUpdated, "u1", domain.ProfileUpdatedPayload{UserID: "u1"}))

	relay.Tick(ctx)
	assert.Empty(t, pub.published)

	pending, err := store.PendingEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, 1, pending[0].Attempts)

	relay.Tick(ctx)
	require.Len(t, pub.published, 2)
	assert.Equal(t, []string{pubsub.TopicPost, pubsub.TopicProfile}, pub.topics)
	assert.Equal(t, domain.EventPostCreated, pub.published[0].Type)
	assert.Equal(t, "p1", pub.published[0].Key)

	var payload domain.PostEventPayload
	require.NoError(t, pub.published[0].UnmarshalPayload(&payload))
	assert.Equal(t, "p1", payload.PostID)

	pending, err = store.PendingEvents(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRelay_RetriesRepairUntilSuccess(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	relay := NewRelay(store, nil, nil, config.OutboxConfig{Interval: time.Millisecond})

	calls := 0
	var gotTarget, gotPayload string
	relay.Handle(KindStorageDelete, func(_ context.Context, target string, payload []byte) error {
		calls++
		gotTarget, gotPayload = target, string(payload)
		if calls == 1 {
			return errors.New("s3 down")
		}
		return nil
	})

	require.NoError(t, store.AddRepair(ctx, saga.Repair{Kind: KindStorageDelete, Target: "posts/a.jpg", Payload: []string{"posts/b.jpg"}}))

	relay.Tick(ctx)
	open, err := store.OpenRepairs(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), open)

	// Make the backed-off task due again.
	store.now = func() time.Time { return time.Now().Add(time.Hour) }
	relay.Tick(ctx)

	assert.Equal(t, 2, calls)
	assert.Equal(t, "posts/a.jpg", gotTarget)
	assert.JSONEq(t, `["posts/b.jpg"]`, gotPayload)
	open, err = store.OpenRepairs(ctx)
	require.NoError(t, err)
	assert.Zero(t, open)
}

func TestRelay_UnknownKindStaysOpen(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	relay := NewRelay(store, nil, nil, config.OutboxConfig{})

	require.NoError(t, store.AddRepair(ctx, saga.Repair{Kind: "nope", Target: "x"}))
	relay.Tick(ctx)

	open, err := store.OpenRepairs(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), open)
}

func TestRelay_StartStop(t *testing.T) {
	store := newTestStore(t)
	relay := NewRelay(store, &fakePublisher{}, nil, config.OutboxConfig{Interval: 5 * time.Millisecond})
	relay.Start(context.Background())
	relay.Stop()

	select {
	case <-relay.Done():
	case <-time.After(time.Second):
		t.Fatal("relay did not stop")
	}
}

func TestBackoff(t *testing.T) {
	assert.Equal(t, 2*time.Second, Backoff(1, 2*time.Second))
	assert.Equal(t, 8*time.Second, Backoff(3, 2*time.Second))
	assert.Equal(t, maxBackoff, Backoff(30, 2*time.Second))
}
