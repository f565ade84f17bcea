package queue

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"notification-workers/internal/common/config"
	apperrors "notification-workers/internal/common/errors"
	"notification-workers/internal/common/logger"
	"notification-workers/internal/common/metrics"
	"notification-workers/internal/common/observability"
)

// payloadField is the stream entry field carrying the JSON message body.
const payloadField = "payload"

// Handler processes one validated notification request. A nil return acks
// the message. A non-retryable error dead-letters it. A retryable error
// leaves it pending so the reclaim loop redelivers it after the backoff.
type Handler interface {
	Handle(ctx context.Context, req *NotificationRequest) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, req *NotificationRequest) error

func (f HandlerFunc) Handle(ctx context.Context, req *NotificationRequest) error {
	return f(ctx, req)
}

// Consumer reads notification requests from a Redis stream consumer group
// and dispatches them to a worker pool. One reader goroutine fetches new
// entries, one reclaim goroutine picks up entries whose earlier delivery
// failed or whose consumer died, and PrefetchCount workers drain the shared
// buffer. Retry counting rides on the group's per-entry delivery counter,
// so requeued messages keep their history across consumer restarts.
type Consumer struct {
	name     string
	client   *redis.Client
	cfg      config.QueueConfig
	handler  Handler
	logger   logger.Logger
	obs      *observability.Observability
	consumer string

	buffer   chan redis.XMessage
	intakeWg sync.WaitGroup
	workerWg sync.WaitGroup
	cancel   context.CancelFunc

	startOnce sync.Once
	stopOnce  sync.Once
}

func NewConsumer(name string, client *redis.Client, cfg config.QueueConfig, handler Handler, log logger.Logger, obs *observability.Observability) *Consumer {
	return &Consumer{
		name:     name,
		client:   client,
		cfg:      cfg,
		handler:  handler,
		logger:   log.With(map[string]interface{}{"queue": name, "stream": cfg.Stream}),
		obs:      obs,
		consumer: name + "-" + uuid.NewString()[:8],
		buffer:   make(chan redis.XMessage, cfg.PrefetchCount),
	}
}

// Start launches the reader, reclaimer and worker goroutines and returns
// immediately. Group declaration and broker connectivity are handled inside
// the read loop, which keeps retrying on a fixed backoff until Stop, so a
// broker that is down at boot never kills the consumer.
func (c *Consumer) Start() {
	c.startOnce.Do(func() {
		// Intake loops stop on Stop; workers keep a live context so
		// in-flight messages can still ack or dead-letter during shutdown.
		intakeCtx, cancel := context.WithCancel(context.Background())
		c.cancel = cancel
		resolveCtx := context.Background()

		for i := 0; i < c.cfg.PrefetchCount; i++ {
			c.workerWg.Add(1)
			go c.worker(resolveCtx)
		}

		c.intakeWg.Add(1)
		go c.readLoop(intakeCtx)

		c.intakeWg.Add(1)
		go c.reclaimLoop(intakeCtx)

		// The buffer closes only after both intake loops have stopped
		// writing to it; the workers then drain what is left and exit.
		go func() {
			c.intakeWg.Wait()
			close(c.buffer)
		}()

		c.logger.Info("Consumer started", map[string]interface{}{
			"consumer": c.consumer,
			"group":    c.cfg.Group,
			"workers":  c.cfg.PrefetchCount,
		})
	})
}

// Stop shuts the consumer down gracefully: the reader stops fetching, the
// buffer drains, and in-flight handlers run to completion including their
// ack or dead-letter write.
func (c *Consumer) Stop() {
	c.stopOnce.Do(func() {
		if c.cancel != nil {
			c.cancel()
		}
		c.intakeWg.Wait()
		c.workerWg.Wait()
		c.logger.Info("Consumer stopped", map[string]interface{}{"consumer": c.consumer})
	})
}

// ensureGroup creates the consumer group and its stream when missing. An
// already existing group is fine.
func (c *Consumer) ensureGroup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.cfg.Stream, c.cfg.Group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return apperrors.NewBrokerUnavailableError(err)
	}
	return nil
}

// readLoop declares the consumer group and fetches fresh entries into the
// worker buffer. Broker failures, including a failed declare at boot, back
// off for ConnectBackoff and retry until the consumer stops.
func (c *Consumer) readLoop(ctx context.Context) {
	defer c.intakeWg.Done()

	blockTimeout := time.Duration(c.cfg.BlockTimeout) * time.Millisecond
	connectBackoff := time.Duration(c.cfg.ConnectBackoff) * time.Millisecond

	declared := false
	for {
		if ctx.Err() != nil {
			return
		}

		if !declared {
			if err := c.ensureGroup(ctx); err != nil {
				c.logger.Warn("Group declare failed, backing off", map[string]interface{}{
					"error":   err.Error(),
					"backoff": connectBackoff.String(),
				})
				if sleepCtx(ctx, connectBackoff) != nil {
					return
				}
				continue
			}
			declared = true
		}

		streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.cfg.Group,
			Consumer: c.consumer,
			Streams:  []string{c.cfg.Stream, ">"},
			Count:    int64(c.cfg.PrefetchCount),
			Block:    blockTimeout,
		}).Result()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if err == redis.Nil {
				continue
			}
			// Re-declare after a broker failure in case the stream or
			// group was lost with the connection.
			declared = false
			c.logger.Warn("Stream read failed, backing off", map[string]interface{}{
				"error":   err.Error(),
				"backoff": connectBackoff.String(),
			})
			if sleepCtx(ctx, connectBackoff) != nil {
				return
			}
			continue
		}

		for _, stream := range streams {
			for _, msg := range stream.Messages {
				select {
				case c.buffer <- msg:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

// reclaimLoop redelivers pending entries. An entry sits pending when its
// handler returned a retryable error or its consumer died mid-flight. Once
// the entry has been idle for RetryBackoff it is either claimed for another
// attempt or, when its delivery count is exhausted, dead-lettered.
func (c *Consumer) reclaimLoop(ctx context.Context) {
	defer c.intakeWg.Done()

	interval := time.Duration(c.cfg.RetryBackoff) * time.Millisecond
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.reclaimPending(ctx, interval)
		}
	}
}

func (c *Consumer) reclaimPending(ctx context.Context, minIdle time.Duration) {
	pending, err := c.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: c.cfg.Stream,
		Group:  c.cfg.Group,
		Idle:   minIdle,
		Start:  "-",
		End:    "+",
		Count:  int64(c.cfg.PrefetchCount),
	}).Result()
	if err != nil {
		if ctx.Err() == nil && err != redis.Nil {
			c.logger.Warn("Pending scan failed", map[string]interface{}{"error": err.Error()})
		}
		return
	}

	for _, entry := range pending {
		// RetryCount is the total delivery count; the first delivery is
		// not a retry.
		retries := int(entry.RetryCount) - 1
		if retries >= c.cfg.MaxRetries {
			c.deadLetterPendingEntry(ctx, entry.ID, retries)
			continue
		}

		claimed, err := c.client.XClaim(ctx, &redis.XClaimArgs{
			Stream:   c.cfg.Stream,
			Group:    c.cfg.Group,
			Consumer: c.consumer,
			MinIdle:  minIdle,
			Messages: []string{entry.ID},
		}).Result()
		if err != nil {
			if ctx.Err() == nil {
				c.logger.Warn("Claim failed", map[string]interface{}{
					"message_id": entry.ID,
					"error":      err.Error(),
				})
			}
			continue
		}

		for _, msg := range claimed {
			metrics.NotificationsRequeued.With(prometheus.Labels{"channel": c.name}).Inc()
			select {
			case c.buffer <- msg:
			case <-ctx.Done():
				return
			}
		}
	}
}

// worker drains the buffer until it closes on shutdown. Its context is never
// cancelled, so a message picked up before Stop still resolves fully.
func (c *Consumer) worker(ctx context.Context) {
	defer c.workerWg.Done()

	for msg := range c.buffer {
		c.process(ctx, msg)
	}
}

func (c *Consumer) process(ctx context.Context, msg redis.XMessage) {
	start := time.Now()

	body, ok := msg.Values[payloadField].(string)
	if !ok {
		c.deadLetter(ctx, msg, "missing payload field", 0, "schema_invalid")
		return
	}

	req, err := ParseNotificationRequest([]byte(body))
	if err != nil {
		c.logger.Warn("Malformed message dead-lettered", map[string]interface{}{
			"message_id": msg.ID,
			"error":      err.Error(),
		})
		c.deadLetter(ctx, msg, err.Error(), 0, "schema_invalid")
		return
	}

	log := c.logger.With(map[string]interface{}{
		"message_id":     req.MessageID,
		"template_id":    req.TemplateID,
		"correlation_id": req.CorrelationID,
	})

	err = c.handler.Handle(ctx, req)
	duration := time.Since(start)
	if c.obs != nil {
		c.obs.RecordMessageDuration(ctx, duration, c.name)
	}

	switch {
	case err == nil:
		c.ack(ctx, msg.ID)
		metrics.NotificationsProcessed.With(prometheus.Labels{"channel": c.name, "status": "success"}).Inc()
		if c.obs != nil {
			c.obs.RecordMessageProcessed(ctx, c.name, "success")
		}
		log.Info("Notification processed", map[string]interface{}{
			"duration_ms": duration.Milliseconds(),
		})

	case !apperrors.IsRetryable(err):
		code := apperrors.CodeOf(err)
		c.deadLetter(ctx, msg, err.Error(), c.retriesOf(ctx, msg.ID), string(code))
		log.Warn("Notification dead-lettered", map[string]interface{}{
			"error":    err.Error(),
			"category": apperrors.GetErrorCategory(code),
		})

	default:
		// Leave the entry pending; the reclaim loop redelivers it after
		// the backoff, or dead-letters it once retries are exhausted.
		metrics.NotificationsProcessed.With(prometheus.Labels{"channel": c.name, "status": "error"}).Inc()
		if c.obs != nil {
			c.obs.RecordMessageProcessed(ctx, c.name, "error")
		}
		log.Warn("Notification failed, will retry", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (c *Consumer) ack(ctx context.Context, id string) {
	if err := c.client.XAck(ctx, c.cfg.Stream, c.cfg.Group, id).Err(); err != nil && ctx.Err() == nil {
		c.logger.Error("Ack failed", map[string]interface{}{
			"message_id": id,
			"error":      err.Error(),
		})
	}
}

// retriesOf looks up the delivery count for a single pending entry.
func (c *Consumer) retriesOf(ctx context.Context, id string) int {
	pending, err := c.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: c.cfg.Stream,
		Group:  c.cfg.Group,
		Start:  id,
		End:    id,
		Count:  1,
	}).Result()
	if err != nil || len(pending) == 0 {
		return 0
	}
	return int(pending[0].RetryCount) - 1
}

// deadLetterPendingEntry loads the original body of an exhausted pending
// entry and routes it to the dead-letter stream.
func (c *Consumer) deadLetterPendingEntry(ctx context.Context, id string, retries int) {
	entries, err := c.client.XRangeN(ctx, c.cfg.Stream, id, id, 1).Result()
	if err != nil || len(entries) == 0 {
		// The entry was trimmed from the stream; all we can do is ack the
		// pending reference.
		c.ack(ctx, id)
		return
	}
	cause := apperrors.NewRetryExhaustedError(id, retries)
	c.deadLetter(ctx, entries[0], cause.Error(), retries, "retry_exhausted")
}

// deadLetter copies the message to the dead-letter stream with failure
// context, then acks the original so it never redelivers.
func (c *Consumer) deadLetter(ctx context.Context, msg redis.XMessage, reason string, retries int, reasonLabel string) {
	body, _ := msg.Values[payloadField].(string)

	err := c.client.XAdd(ctx, &redis.XAddArgs{
		Stream: c.cfg.DeadLetterStream,
		Values: map[string]interface{}{
			payloadField:    body,
			"source_stream": c.cfg.Stream,
			"message_id":    msg.ID,
			"error":         reason,
			"retry_count":   retries,
			"failed_at":     time.Now().UTC().Format(time.RFC3339Nano),
		},
	}).Err()
	if err != nil {
		c.logger.Error("Dead-letter write failed, message stays pending", map[string]interface{}{
			"message_id": msg.ID,
			"error":      err.Error(),
		})
		return
	}

	c.ack(ctx, msg.ID)
	metrics.NotificationsDeadLettered.With(prometheus.Labels{"channel": c.name, "reason": reasonLabel}).Inc()
}
