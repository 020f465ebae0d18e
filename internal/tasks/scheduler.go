package tasks

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/feedspring/backend-store/internal/store"
)

// Enqueuer is the slice of *asynq.Client the scheduler needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Scheduler enqueues persisted domain events for background processing.
// It satisfies the event bus scheduler hook.
type Scheduler struct {
	Client Enqueuer
}

// Schedule enqueues the event as an asynq task.
func (s *Scheduler) Schedule(ctx context.Context, ev store.DomainEvent) error {
	if s == nil || s.Client == nil {
		return nil
	}
	task, err := NewDomainEventTask(ev)
	if err != nil {
		return err
	}
	if _, err := s.Client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("tasks: enqueue %s: %w", ev.Topic, err)
	}
	return nil
}
