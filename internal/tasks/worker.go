package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/feedspring/backend-store/internal/catalog"
	"github.com/feedspring/backend-store/internal/events"
)

// LowStockThreshold marks adjusted products that need restocking attention.
const LowStockThreshold = 5

// Worker processes queued domain event tasks.
type Worker struct {
	Log   zerolog.Logger
	Cache *catalog.Cache
}

// Register attaches the worker's handlers to the asynq mux.
func (w *Worker) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeDomainEvent, w.HandleDomainEvent)
}

// HandleDomainEvent routes one dispatched domain event by topic.
func (w *Worker) HandleDomainEvent(ctx context.Context, task *asynq.Task) error {
	var ev EventPayload
	if err := json.Unmarshal(task.Payload(), &ev); err != nil {
		return fmt.Errorf("tasks: decode event payload: %v: %w", err, asynq.SkipRetry)
	}

	log := w.Log.With().
		Str("event_id", ev.EventID).
		Str("topic", ev.Topic).
		Str("aggregate_id", ev.AggregateID).
		Logger()

	switch ev.Topic {
	case events.TopicOrderPlaced:
		log.Info().RawJSON("payload", rawOrEmpty(ev.Payload)).Msg("order placed")
	case events.TopicInventoryAdjusted:
		w.handleInventoryAdjusted(log, ev)
	case events.TopicDiscountCreated, events.TopicDiscountUpdated:
		w.invalidateCatalog(ctx, log, "")
	case events.TopicProductCreated:
		var payload struct {
			Slug string `json:"slug"`
		}
		_ = json.Unmarshal(ev.Payload, &payload)
		w.invalidateCatalog(ctx, log, payload.Slug)
	default:
		log.Warn().Msg("unhandled event topic")
	}
	return nil
}

func (w *Worker) handleInventoryAdjusted(log zerolog.Logger, ev EventPayload) {
	var payload struct {
		ProductID string `json:"product_id"`
		NewStock  int64  `json:"new_stock"`
		Reason    string `json:"reason"`
	}
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		log.Warn().Err(err).Msg("malformed inventory payload")
		return
	}
	if payload.NewStock < LowStockThreshold {
		log.Warn().
			Str("product_id", payload.ProductID).
			Int64("new_stock", payload.NewStock).
			Msg("stock below threshold")
		return
	}
	log.Info().
		Str("product_id", payload.ProductID).
		Int64("new_stock", payload.NewStock).
		Str("reason", payload.Reason).
		Msg("inventory adjusted")
}

// invalidateCatalog drops cached listings so price changes show up promptly.
func (w *Worker) invalidateCatalog(ctx context.Context, log zerolog.Logger, slug string) {
	if w.Cache == nil {
		return
	}
	keys := []string{catalog.ListCacheKey}
	if slug != "" {
		keys = append(keys, catalog.DetailCacheKey(slug))
	}
	w.Cache.Invalidate(ctx, keys...)
	log.Info().Strs("keys", keys).Msg("catalog cache invalidated")
}

func rawOrEmpty(raw json.RawMessage) []byte {
	if len(raw) == 0 {
		return []byte("{}")
	}
	return raw
}
