package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/StormyOasis/linsta-sub001/internal/saga"
	"github.com/StormyOasis/linsta-sub001/pkg/pubsub"
)

// Repair task kinds.
const (
	KindIndexDeletePost    = "index.delete_post"
	KindIndexPutPost       = "index.put_post"
	KindIndexDeleteProfile = "index.delete_profile"
	KindIndexPutProfile    = "index.put_profile"
	KindIndexSyncAuthor    = "index.sync_author"
	KindCacheDelete        = "cache.delete"
	KindStorageDelete      = "storage.delete"
)

// Store persists outbox events and repair tasks with GORM.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Enqueue records a domain event for the relay.
func (s *Store) Enqueue(ctx context.Context, topic, eventType, key string, payload interface{}) error {
	ev, err := pubsub.NewEvent(eventType, key, payload)
	if err != nil {
		return fmt.Errorf("failed to build event: %w", err)
	}
	model := &EventModel{
		EventID: ev.ID,
		Topic:   topic,
		Type:    ev.Type,
		Key:     ev.Key,
		Payload: string(ev.Payload),
	}
	if err := s.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to enqueue event: %w", err)
	}
	return nil
}

// AddRepair records a failed compensation. It is due immediately.
func (s *Store) AddRepair(ctx context.Context, r saga.Repair) error {
	var payload []byte
	if r.Payload != nil {
		var err error
		if payload, err = json.Marshal(r.Payload); err != nil {
			return fmt.Errorf("failed to marshal repair payload: %w", err)
		}
	}
	model := &RepairModel{
		Kind:          r.Kind,
		Target:        r.Target,
		Payload:       string(payload),
		NextAttemptAt: s.now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to add repair task: %w", err)
	}
	return nil
}

// PendingEvents returns unpublished events in insertion order.
func (s *Store) PendingEvents(ctx context.Context, limit int) ([]EventModel, error) {
	var events []EventModel
	err := s.db.WithContext(ctx).
		Where("published_at IS NULL").
		Order("id").
		Limit(limit).
		Find(&events).Error
	return events, err
}

func (s *Store) MarkPublished(ctx context.Context, id uint) error {
	now := s.now().UTC()
	return s.db.WithContext(ctx).Model(&EventModel{}).
		Where("id = ?", id).
		Update("published_at", &now).Error
}

func (s *Store) MarkEventFailed(ctx context.Context, id uint, cause error) error {
	return s.db.WithContext(ctx).Model(&EventModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": cause.Error(),
		}).Error
}

// PurgePublished deletes events published before the cutoff.
func (s *Store) PurgePublished(ctx context.Context, before time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("published_at IS NOT NULL AND published_at < ?", before.UTC()).
		Delete(&EventModel{})
	return res.RowsAffected, res.Error
}

// DueRepairs returns open repair tasks whose next attempt is due.
func (s *Store) DueRepairs(ctx context.Context, limit int) ([]RepairModel, error) {
	var tasks []RepairModel
	err := s.db.WithContext(ctx).
		Where("done_at IS NULL AND next_attempt_at <= ?", s.now().UTC()).
		Order("next_attempt_at").
		Limit(limit).
		Find(&tasks).Error
	return tasks, err
}

func (s *Store) MarkRepairDone(ctx context.Context, id uint) error {
	now := s.now().UTC()
	return s.db.WithContext(ctx).Model(&RepairModel{}).
		Where("id = ?", id).
		Update("done_at", &now).Error
}

func (s *Store) MarkRepairFailed(ctx context.Context, id uint, cause error, next time.Time) error {
	return s.db.WithContext(ctx).Model(&RepairModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"attempts":        gorm.Expr("attempts + 1"),
			"last_error":      cause.Error(),
			"next_attempt_at": next.UTC(),
		}).Error
}

// OpenRepairs counts repair tasks not yet done.
func (s *Store) OpenRepairs(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&RepairModel{}).Where("done_at IS NULL").Count(&n).Error
	return n, err
}
