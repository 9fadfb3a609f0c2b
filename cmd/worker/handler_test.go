package main

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/alchemist/internal/application/transmuter"
	"github.com/turtacn/alchemist/internal/domain/prediction"
	"github.com/turtacn/alchemist/internal/infrastructure/database/redis"
	"github.com/turtacn/alchemist/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/alchemist/internal/testutil"
)

type stubService struct {
	transmuter.Service

	mu       sync.Mutex
	calls    []*prediction.RequestedEvent
	deadline bool
	err      error
}

func (s *stubService) Process(ctx context.Context, ev *prediction.RequestedEvent) (*prediction.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, ev)
	_, s.deadline = ctx.Deadline()
	if s.err != nil {
		return nil, s.err
	}
	rec := prediction.NewRecord("Al + O2", ev.Reactants)
	rec.ID = ev.PredictionID
	rec.Status = prediction.StatusCompleted
	return rec, nil
}

func requestMessage(t *testing.T, eventType string) (*kafka.Message, *prediction.RequestedEvent) {
	t.Helper()
	rec := prediction.NewRecord("Al + O2", []string{"Al", "O2"})
	ev := prediction.NewRequestedEvent(rec, 3, "")
	env, err := kafka.NewEventEnvelope(eventType, "test", ev)
	require.NoError(t, err)
	value, err := json.Marshal(env)
	require.NoError(t, err)
	return &kafka.Message{
		Topic: "alchemist.prediction.requested",
		Key:   []byte(rec.ID.String()),
		Value: value,
	}, ev
}

func newLocks(t *testing.T) (redis.LockFactory, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	client := redis.NewClientFromUniversal(rdb, nil, nil)
	t.Cleanup(func() { _ = client.Close() })
	return redis.NewLockFactory(client, "test:", nil), mr
}

func TestHandle_ProcessesRequest(t *testing.T) {
	svc := &stubService{}
	locks, mr := newLocks(t)
	log := testutil.NewMockLogger()
	h := newRequestHandler(svc, locks, time.Minute, nil, log)

	msg, ev := requestMessage(t, prediction.EventRequested)
	require.NoError(t, h.Handle(context.Background(), msg))

	require.Len(t, svc.calls, 1)
	assert.Equal(t, ev.PredictionID, svc.calls[0].PredictionID)
	assert.Equal(t, []string{"Al", "O2"}, svc.calls[0].Reactants)
	assert.Equal(t, 3, svc.calls[0].MaxCandidates)
	assert.True(t, svc.deadline)
	assert.True(t, log.HasMessage("info", "Prediction processed"))
	assert.False(t, mr.Exists("test:lock:prediction:"+ev.PredictionID.String()), "lock released")
}

func TestHandle_SkipsWhenLocked(t *testing.T) {
	svc := &stubService{}
	locks, mr := newLocks(t)
	log := testutil.NewMockLogger()
	h := newRequestHandler(svc, locks, time.Minute, nil, log)

	msg, ev := requestMessage(t, prediction.EventRequested)
	key := "test:lock:prediction:" + ev.PredictionID.String()
	require.NoError(t, mr.Set(key, "other-worker"))

	require.NoError(t, h.Handle(context.Background(), msg))
	assert.Empty(t, svc.calls)
	assert.True(t, log.HasMessage("info", "Prediction already in progress elsewhere"))
	got, err := mr.Get(key)
	require.NoError(t, err)
	assert.Equal(t, "other-worker", got)
}

func TestHandle_WithoutLocks(t *testing.T) {
	svc := &stubService{}
	h := newRequestHandler(svc, nil, 0, nil, nil)

	msg, _ := requestMessage(t, prediction.EventRequested)
	require.NoError(t, h.Handle(context.Background(), msg))
	require.Len(t, svc.calls, 1)
	assert.False(t, svc.deadline)
}

func TestHandle_IgnoresOtherEvents(t *testing.T) {
	svc := &stubService{}
	h := newRequestHandler(svc, nil, time.Minute, nil, nil)

	msg, _ := requestMessage(t, prediction.EventCompleted)
	require.NoError(t, h.Handle(context.Background(), msg))
	assert.Empty(t, svc.calls)
}

func TestHandle_Errors(t *testing.T) {
	t.Run("malformed envelope", func(t *testing.T) {
		h := newRequestHandler(&stubService{}, nil, time.Minute, nil, nil)
		err := h.Handle(context.Background(), &kafka.Message{Value: []byte("{not json")})
		assert.Error(t, err)
	})

	t.Run("process failure is returned for retry", func(t *testing.T) {
		boom := errors.New("database down")
		svc := &stubService{err: boom}
		locks, mr := newLocks(t)
		h := newRequestHandler(svc, locks, time.Minute, nil, nil)

		msg, ev := requestMessage(t, prediction.EventRequested)
		err := h.Handle(context.Background(), msg)
		assert.ErrorIs(t, err, boom)
		assert.False(t, mr.Exists("test:lock:prediction:"+ev.PredictionID.String()))
	})
}
