package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feedspring/backend-store/internal/catalog"
	"github.com/feedspring/backend-store/internal/events"
	"github.com/feedspring/backend-store/internal/store"
)

func testEvent(t *testing.T, topic string, payload string) store.DomainEvent {
	t.Helper()
	id, err := store.ToUUID(uuid.NewString())
	require.NoError(t, err)
	agg, err := store.ToUUID(uuid.NewString())
	require.NoError(t, err)
	return store.DomainEvent{
		ID:          id,
		Topic:       topic,
		AggregateID: agg,
		Payload:     []byte(payload),
		OccurredAt:  pgtype.Timestamptz{Time: time.Now(), Valid: true},
	}
}

func TestNewDomainEventTaskCarriesEvent(t *testing.T) {
	ev := testEvent(t, events.TopicOrderPlaced, `{"total":180000}`)

	task, err := NewDomainEventTask(ev)
	require.NoError(t, err)
	assert.Equal(t, TypeDomainEvent, task.Type())

	var decoded EventPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &decoded))
	assert.Equal(t, store.UUIDString(ev.ID), decoded.EventID)
	assert.Equal(t, events.TopicOrderPlaced, decoded.Topic)
	assert.JSONEq(t, `{"total":180000}`, string(decoded.Payload))
}

func TestHandleDomainEventRejectsMalformedPayload(t *testing.T) {
	w := &Worker{Log: zerolog.Nop()}
	err := w.HandleDomainEvent(context.Background(), asynq.NewTask(TypeDomainEvent, []byte("not json")))
	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry), "malformed payloads must not be retried")
}

func TestHandleDomainEventInvalidatesCatalogCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := catalog.NewCache(client, time.Minute)
	require.NoError(t, mr.Set(catalog.ListCacheKey, `{"items":[]}`))
	require.NoError(t, mr.Set(catalog.DetailCacheKey("dog-food"), `{}`))

	w := &Worker{Log: zerolog.Nop(), Cache: cache}

	task, err := NewDomainEventTask(testEvent(t, events.TopicProductCreated, `{"slug":"dog-food"}`))
	require.NoError(t, err)
	require.NoError(t, w.HandleDomainEvent(context.Background(), task))

	assert.False(t, mr.Exists(catalog.ListCacheKey))
	assert.False(t, mr.Exists(catalog.DetailCacheKey("dog-food")))
}

func TestHandleDomainEventDiscountChangeDropsListing(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := catalog.NewCache(client, time.Minute)
	require.NoError(t, mr.Set(catalog.ListCacheKey, `{"items":[]}`))

	w := &Worker{Log: zerolog.Nop(), Cache: cache}

	task, err := NewDomainEventTask(testEvent(t, events.TopicDiscountUpdated, `{}`))
	require.NoError(t, err)
	require.NoError(t, w.HandleDomainEvent(context.Background(), task))

	assert.False(t, mr.Exists(catalog.ListCacheKey))
}

func TestHandleDomainEventToleratesUnknownTopic(t *testing.T) {
	w := &Worker{Log: zerolog.Nop()}
	task, err := NewDomainEventTask(testEvent(t, "something.else", `{}`))
	require.NoError(t, err)
	assert.NoError(t, w.HandleDomainEvent(context.Background(), task))
}
