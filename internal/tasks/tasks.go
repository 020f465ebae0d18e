package tasks

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/feedspring/backend-store/internal/store"
)

// TypeDomainEvent dispatches a persisted domain event to the worker.
const TypeDomainEvent = "event:dispatch"

// QueueEvents is the asynq queue carrying domain event tasks.
const QueueEvents = "events"

// EventPayload is the wire form of a dispatched domain event.
type EventPayload struct {
	EventID     string          `json:"event_id"`
	Topic       string          `json:"topic"`
	AggregateID string          `json:"aggregate_id"`
	Payload     json.RawMessage `json:"payload"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

// NewDomainEventTask wraps a stored domain event into an asynq task.
func NewDomainEventTask(ev store.DomainEvent) (*asynq.Task, error) {
	body, err := json.Marshal(EventPayload{
		EventID:     store.UUIDString(ev.ID),
		Topic:       ev.Topic,
		AggregateID: store.UUIDString(ev.AggregateID),
		Payload:     ev.Payload,
		OccurredAt:  ev.OccurredAt.Time,
	})
	if err != nil {
		return nil, fmt.Errorf("tasks: marshal event payload: %w", err)
	}
	return asynq.NewTask(TypeDomainEvent, body, asynq.Queue(QueueEvents), asynq.MaxRetry(5)), nil
}
