package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"notification-workers/internal/common/config"
	apperrors "notification-workers/internal/common/errors"
	"notification-workers/internal/common/logger"
	"notification-workers/internal/common/metrics"
)

// Publisher writes events to a Redis stream behind a circuit breaker. Each
// publish retries transient failures with exponential backoff; an exhausted
// publish counts as one breaker failure, so a dead broker trips the circuit
// after FailMax consecutive losses and later publishes fail fast instead of
// blocking their callers.
type Publisher struct {
	client      *redis.Client
	stream      string
	breaker     *CircuitBreaker
	maxAttempts int
	baseBackoff time.Duration
	maxBackoff  time.Duration
	logger      logger.Logger
	sleep       func(ctx context.Context, d time.Duration) error
}

func NewPublisher(client *redis.Client, cfg config.PublisherConfig, log logger.Logger) *Publisher {
	breaker := NewCircuitBreaker("event-publisher", cfg.FailMax,
		time.Duration(cfg.ResetTimeout)*time.Millisecond, log)

	return &Publisher{
		client:      client,
		stream:      cfg.Stream,
		breaker:     breaker,
		maxAttempts: cfg.MaxAttempts,
		baseBackoff: time.Duration(cfg.BaseBackoff) * time.Millisecond,
		maxBackoff:  time.Duration(cfg.MaxBackoff) * time.Millisecond,
		logger:      log,
		sleep:       sleepCtx,
	}
}

// Breaker exposes the breaker for health reporting.
func (p *Publisher) Breaker() *CircuitBreaker {
	return p.breaker
}

// Publish appends one event to the stream, stamped with the caller's
// correlation id so a delivery event can be traced back to the request that
// triggered it. A CIRCUIT_OPEN error returns immediately without touching
// the broker.
func (p *Publisher) Publish(ctx context.Context, routingKey string, payload interface{}, correlationID string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return apperrors.NewPublishFailedError(routingKey, err)
	}

	if err := p.breaker.Allow(); err != nil {
		metrics.EventsPublished.With(prometheus.Labels{"routing_key": routingKey, "status": "circuit_open"}).Inc()
		return err
	}

	values := map[string]interface{}{
		"event_id":       uuid.NewString(),
		"routing_key":    routingKey,
		"payload":        string(body),
		"correlation_id": correlationID,
		"published_at":   time.Now().UTC().Format(time.RFC3339Nano),
	}

	var lastErr error
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		_, lastErr = p.client.XAdd(ctx, &redis.XAddArgs{
			Stream: p.stream,
			Values: values,
		}).Result()
		if lastErr == nil {
			p.breaker.RecordSuccess()
			metrics.EventsPublished.With(prometheus.Labels{"routing_key": routingKey, "status": "success"}).Inc()
			return nil
		}

		p.logger.Warn("Event publish attempt failed", map[string]interface{}{
			"routing_key": routingKey,
			"attempt":     attempt,
			"error":       lastErr.Error(),
		})

		if attempt < p.maxAttempts {
			if err := p.sleep(ctx, p.backoffFor(attempt)); err != nil {
				lastErr = err
				break
			}
		}
	}

	p.breaker.RecordFailure()
	metrics.EventsPublished.With(prometheus.Labels{"routing_key": routingKey, "status": "error"}).Inc()
	return apperrors.NewPublishFailedError(routingKey, lastErr)
}

// backoffFor doubles the delay per attempt, capped at maxBackoff.
func (p *Publisher) backoffFor(attempt int) time.Duration {
	backoff := p.baseBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
		if backoff >= p.maxBackoff {
			return p.maxBackoff
		}
	}
	if backoff > p.maxBackoff {
		return p.maxBackoff
	}
	return backoff
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
