package main

import (
	"context"
	"time"

	"github.com/turtacn/alchemist/internal/application/transmuter"
	"github.com/turtacn/alchemist/internal/domain/prediction"
	"github.com/turtacn/alchemist/internal/infrastructure/database/redis"
	"github.com/turtacn/alchemist/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/alchemist/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/alchemist/internal/infrastructure/monitoring/prometheus"
)

// requestHandler runs queued predictions. A Redis lease per prediction keeps
// two workers from running the same record after a rebalance.
type requestHandler struct {
	svc     transmuter.Service
	locks   redis.LockFactory
	timeout time.Duration
	metrics *prometheus.AppMetrics
	logger  logging.Logger
}

func newRequestHandler(svc transmuter.Service, locks redis.LockFactory, timeout time.Duration, metrics *prometheus.AppMetrics, logger logging.Logger) *requestHandler {
	if metrics == nil {
		metrics = prometheus.NewNoopAppMetrics()
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &requestHandler{svc: svc, locks: locks, timeout: timeout, metrics: metrics, logger: logger}
}

// Handle implements kafka.MessageHandler. Returned errors are retried by the
// consumer and end on the dead letter topic.
func (h *requestHandler) Handle(ctx context.Context, msg *kafka.Message) error {
	env, err := kafka.MessageToEventEnvelope(msg)
	if err != nil {
		return err
	}
	if env.EventType != prediction.EventRequested {
		h.logger.Debug("Ignoring event", logging.String("event_type", env.EventType))
		return nil
	}
	var ev prediction.RequestedEvent
	if err := env.DecodePayload(&ev); err != nil {
		return err
	}
	id := ev.PredictionID.String()

	if h.locks != nil {
		lock := h.locks.NewMutex("prediction:"+id,
			redis.WithLockTTL(h.timeout+30*time.Second),
			redis.WithWatchdog(true))
		ok, err := lock.TryLock(ctx)
		if err != nil {
			return err
		}
		if !ok {
			h.logger.Info("Prediction already in progress elsewhere", logging.String("prediction_id", id))
			return nil
		}
		defer func() {
			if err := lock.Unlock(context.Background()); err != nil {
				h.logger.Warn("Failed to release prediction lock", logging.String("prediction_id", id), logging.Err(err))
			}
		}()
	}

	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	start := time.Now()
	rec, err := h.svc.Process(ctx, &ev)
	h.metrics.MessageProcessDuration.WithLabelValues(msg.Topic).Observe(time.Since(start).Seconds())
	if err != nil {
		h.logger.Warn("Prediction processing failed",
			logging.String("prediction_id", id),
			logging.Int64("offset", msg.Offset),
			logging.Err(err))
		return err
	}
	h.logger.Info("Prediction processed",
		logging.String("prediction_id", id),
		logging.String("status", string(rec.Status)),
		logging.Duration("elapsed", time.Since(start)))
	return nil
}
