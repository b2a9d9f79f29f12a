package outbox

import (
	"encoding/json"
	"time"

	"github.com/StormyOasis/linsta-sub001/pkg/pubsub"
)

// EventModel is a domain event waiting to be relayed to the event bus.
type EventModel struct {
	ID          uint       `gorm:"primaryKey"`
	EventID     string     `gorm:"type:varchar(36);uniqueIndex;not null"`
	Topic       string     `gorm:"type:varchar(64);not null"`
	Type        string     `gorm:"type:varchar(64);not null"`
	Key         string     `gorm:"type:varchar(64)"`
	Payload     string     `gorm:"type:text"`
	Attempts    int        `gorm:"not null;default:0"`
	LastError   string     `gorm:"type:text"`
	PublishedAt *time.Time `gorm:"index"`
	CreatedAt   time.Time  `gorm:"autoCreateTime"`
}

func (EventModel) TableName() string {
	return "outbox_events"
}

// ToEvent converts the row back into the bus event it was created from.
func (m *EventModel) ToEvent() *pubsub.Event {
	return &pubsub.Event{
		ID:        m.EventID,
		Type:      m.Type,
		Key:       m.Key,
		Payload:   json.RawMessage(m.Payload),
		Timestamp: m.CreatedAt.UTC(),
	}
}

// RepairModel is a compensation that failed inline and is retried by the
// relay until its handler succeeds.
type RepairModel struct {
	ID            uint       `gorm:"primaryKey"`
	Kind          string     `gorm:"type:varchar(64);index;not null"`
	Target        string     `gorm:"type:varchar(255);not null"`
	Payload       string     `gorm:"type:text"`
	Attempts      int        `gorm:"not null;default:0"`
	LastError     string     `gorm:"type:text"`
	NextAttemptAt time.Time  `gorm:"index"`
	DoneAt        *time.Time `gorm:"index"`
	CreatedAt     time.Time  `gorm:"autoCreateTime"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime"`
}

func (RepairModel) TableName() string {
	return "repair_tasks"
}

// Models lists the tables owned by the outbox, for AutoMigrate.
var Models = []interface{}{&EventModel{}, &RepairModel{}}
