// Package notify carries booking state transitions out of the coordinator.
// Emit is fire-and-forget: a dispatcher may drop an event on the floor but
// must never block or fail the operation that produced it.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventJoinRequested      EventType = "join_requested"
	EventRequestAccepted    EventType = "request_accepted"
	EventRequestRejected    EventType = "request_rejected"
	EventRideCancelled      EventType = "ride_cancelled"
	EventParticipantRemoved EventType = "participant_removed"
	EventRideCompleted      EventType = "ride_completed"
)

// Event describes one transition. UserID is the recipient; ActorName and
// the ride fields exist so the consumer can render a message without a
// lookup against rows that may already be gone.
type Event struct {
	ID          string    `json:"id"`
	Type        EventType `json:"type"`
	RideID      int64     `json:"ride_id"`
	UserID      string    `json:"user_id"`
	ActorID     string    `json:"actor_id,omitempty"`
	Origin      string    `json:"origin"`
	Destination string    `json:"destination"`
	Date        string    `json:"date"`
	Departure   string    `json:"departure"`
	OccurredAt  time.Time `json:"occurred_at"`
}

type Dispatcher interface {
	Emit(ctx context.Context, event Event)
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, payload interface{}) error
}

// KafkaDispatcher publishes events to the notifications topic. Publish
// errors are logged and swallowed; the booking operation already
// committed and must not be failed retroactively.
type KafkaDispatcher struct {
	producer Producer
	topic    string
	timeout  time.Duration
	log      *slog.Logger
}

func NewKafkaDispatcher(producer Producer, topic string, log *slog.Logger) *KafkaDispatcher {
	return &KafkaDispatcher{producer: producer, topic: topic, timeout: 2 * time.Second, log: log}
}

func (d *KafkaDispatcher) Emit(ctx context.Context, event Event) {
	if d.producer == nil || d.topic == "" {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	// Detach from the caller's context so a finished request doesn't
	// cancel the publish mid-flight.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()
	if err := d.producer.Publish(ctx, d.topic, event.ID, event); err != nil {
		d.log.Warn("dropping notification event", "type", event.Type, "ride_id", event.RideID, "err", err)
	}
}

// NopDispatcher is used when no broker is configured and in tests that
// don't care about notifications.
type NopDispatcher struct{}

func (NopDispatcher) Emit(context.Context, Event) {}

var (
	_ Dispatcher = (*KafkaDispatcher)(nil)
	_ Dispatcher = NopDispatcher{}
)
