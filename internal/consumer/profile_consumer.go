package consumer

import (
	"context"
	"fmt"
	"sync"

	"github.com/StormyOasis/linsta-sub001/internal/domain"
	"github.com/StormyOasis/linsta-sub001/pkg/log"
	"github.com/StormyOasis/linsta-sub001/pkg/pubsub"
)

// ProfileConsumer reads the profile topic and hands profile.updated events
// to the handler. Other event types on the topic are skipped.
type ProfileConsumer struct {
	sub     pubsub.Subscriber
	handler ProfileUpdatedHandler
	cancel  context.CancelFunc
	once    sync.Once
	doneCh  chan struct{}
}

func NewProfileConsumer(sub pubsub.Subscriber, handler ProfileUpdatedHandler) *ProfileConsumer {
	return &ProfileConsumer{
		sub:     sub,
		handler: handler,
		doneCh:  make(chan struct{}),
	}
}

// Start subscribes and begins consuming in the background.
func (pc *ProfileConsumer) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	events, err := pc.sub.Subscribe(ctx, pubsub.TopicProfile)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to subscribe to %s: %w", pubsub.TopicProfile, err)
	}
	pc.cancel = cancel

	l := log.L()
	l.Info().Str(log.FieldTopic, pubsub.TopicProfile).Msg("profile consumer started")
	go pc.consumeLoop(ctx, events)
	return nil
}

func (pc *ProfileConsumer) consumeLoop(ctx context.Context, events <-chan *pubsub.Event) {
	defer close(pc.doneCh)
	for {
		select {
		case <-ctx.Done():
			l := log.L()
			l.Info().Msg("profile consumer shutting down")
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			pc.process(ctx, ev)
		}
	}
}

func (pc *ProfileConsumer) process(ctx context.Context, ev *pubsub.Event) {
	if ev.Type != domain.EventProfileUpdated {
		return
	}
	l := log.L().With().Str("event_id", ev.ID).Logger()

	var payload domain.ProfileUpdatedPayload
	if err := ev.UnmarshalPayload(&payload); err != nil {
		l.Error().Err(err).Msg("failed to unmarshal profile.updated event")
		return
	}
	if err := pc.handler.HandleProfileUpdated(log.WithLogger(ctx, l), &payload); err != nil {
		l.Error().Err(err).Str(log.FieldUserID, payload.UserID).Msg("failed to handle profile.updated event")
	}
}

// Stop cancels the subscription and waits for the loop to exit.
func (pc *ProfileConsumer) Stop() {
	if pc.cancel == nil {
		return
	}
	pc.once.Do(pc.cancel)
	<-pc.Done()
}

func (pc *ProfileConsumer) Done() <-chan struct{} {
	return pc.doneCh
}
