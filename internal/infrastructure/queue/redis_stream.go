// Package queue implements the ingestion task queue on Redis Streams with a
// consumer group. Delivery is at-least-once: messages are acked only after
// the worker finishes, and entries idle past the visibility timeout are
// reclaimed by any live consumer.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"traceroot/internal/config"
	"traceroot/internal/core/domain/observability"
)

const taskField = "task"

// Delivery is one received queue message. Raw keeps the original payload so
// undecodable messages can still be forwarded to the dead letter stream.
type Delivery struct {
	ID            string
	Task          observability.IngestTask
	Raw           string
	DeliveryCount int64
}

// RedisStreamQueue is both the producer (observability.TaskQueue) and the
// consumer side of the ingestion stream.
type RedisStreamQueue struct {
	client *redis.Client
	cfg    config.QueueConfig
	logger *logrus.Logger
}

func NewRedisStreamQueue(client *redis.Client, cfg config.QueueConfig, logger *logrus.Logger) *RedisStreamQueue {
	return &RedisStreamQueue{client: client, cfg: cfg, logger: logger}
}

// EnsureGroup creates the stream and consumer group if absent. Starting at 0
// means messages enqueued before the first worker came up are still seen.
func (q *RedisStreamQueue) EnsureGroup(ctx context.Context) error {
	err := q.client.XGroupCreateMkStream(ctx, q.cfg.Stream, q.cfg.Group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create consumer group %s: %w", q.cfg.Group, err)
	}
	return nil
}

func (q *RedisStreamQueue) Enqueue(ctx context.Context, task observability.IngestTask) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal ingest task: %w", err)
	}
	err = q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: q.cfg.Stream,
		Values: map[string]any{taskField: string(payload)},
	}).Err()
	if err != nil {
		return fmt.Errorf("enqueue ingest task: %w", err)
	}
	return nil
}

// Receive blocks up to the given duration for new messages. A nil slice with
// no error means the block timed out.
func (q *RedisStreamQueue) Receive(ctx context.Context, consumer string, count int64, block time.Duration) ([]Delivery, error) {
	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    q.cfg.Group,
		Consumer: consumer,
		Streams:  []string{q.cfg.Stream, ">"},
		Count:    count,
		Block:    block,
	}).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("read stream %s: %w", q.cfg.Stream, err)
	}

	var deliveries []Delivery
	for _, stream := range streams {
		for _, msg := range stream.Messages {
			d, err := q.parseMessage(msg)
			if err != nil {
				// Undecodable messages can never succeed; dead letter
				// immediately instead of redelivering them forever.
				q.logger.WithFields(logrus.Fields{
					"message_id": msg.ID,
					"error":      err.Error(),
				}).Warn("Dead lettering undecodable queue message")
				if dlqErr := q.DeadLetter(ctx, d, err); dlqErr != nil {
					return deliveries, dlqErr
				}
				continue
			}
			d.DeliveryCount = 1
			deliveries = append(deliveries, d)
		}
	}
	return deliveries, nil
}

// Claim transfers messages pending longer than the visibility timeout to
// this consumer, e.g. after another worker crashed mid-task. Delivery counts
// come from the pending entries list so callers can spot poison pills.
func (q *RedisStreamQueue) Claim(ctx context.Context, consumer string, count int64) ([]Delivery, error) {
	msgs, _, err := q.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   q.cfg.Stream,
		Group:    q.cfg.Group,
		Consumer: consumer,
		MinIdle:  q.cfg.VisibilityTimeout,
		Start:    "0-0",
		Count:    count,
	}).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("claim pending messages: %w", err)
	}
	if len(msgs) == 0 {
		return nil, nil
	}

	counts, err := q.pendingCounts(ctx, consumer, int64(len(msgs)))
	if err != nil {
		return nil, err
	}

	var deliveries []Delivery
	for _, msg := range msgs {
		d, parseErr := q.parseMessage(msg)
		d.DeliveryCount = counts[msg.ID]
		if parseErr != nil {
			q.logger.WithFields(logrus.Fields{
				"message_id": msg.ID,
				"error":      parseErr.Error(),
			}).Warn("Dead lettering undecodable claimed message")
			if dlqErr := q.DeadLetter(ctx, d, parseErr); dlqErr != nil {
				return deliveries, dlqErr
			}
			continue
		}
		deliveries = append(deliveries, d)
	}
	return deliveries, nil
}

func (q *RedisStreamQueue) pendingCounts(ctx context.Context, consumer string, count int64) (map[string]int64, error) {
	pending, err := q.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream:   q.cfg.Stream,
		Group:    q.cfg.Group,
		Start:    "-",
		End:      "+",
		Count:    count,
		Consumer: consumer,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("read pending entries: %w", err)
	}
	counts := make(map[string]int64, len(pending))
	for _, p := range pending {
		counts[p.ID] = p.RetryCount
	}
	return counts, nil
}

func (q *RedisStreamQueue) Ack(ctx context.Context, id string) error {
	if err := q.client.XAck(ctx, q.cfg.Stream, q.cfg.Group, id).Err(); err != nil {
		return fmt.Errorf("ack message %s: %w", id, err)
	}
	return nil
}

// DeadLetter copies the message to the DLQ stream with failure metadata and
// acks the original so it stops being redelivered.
func (q *RedisStreamQueue) DeadLetter(ctx context.Context, d Delivery, cause error) error {
	reason := "unknown"
	if cause != nil {
		reason = cause.Error()
	}
	err := q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: q.cfg.DLQStream,
		Values: map[string]any{
			taskField:   d.Raw,
			"error":     reason,
			"source_id": d.ID,
			"failed_at": time.Now().UTC().Format(time.RFC3339Nano),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("dead letter message %s: %w", d.ID, err)
	}
	return q.Ack(ctx, d.ID)
}

func (q *RedisStreamQueue) parseMessage(msg redis.XMessage) (Delivery, error) {
	d := Delivery{ID: msg.ID}
	raw, ok := msg.Values[taskField].(string)
	if !ok {
		return d, fmt.Errorf("message %s missing %q field", msg.ID, taskField)
	}
	d.Raw = raw
	if err := json.Unmarshal([]byte(raw), &d.Task); err != nil {
		return d, fmt.Errorf("decode ingest task %s: %w", msg.ID, err)
	}
	if d.Task.S3Key == "" || d.Task.ProjectID == "" {
		return d, fmt.Errorf("ingest task %s missing s3_key or project_id", msg.ID)
	}
	return d, nil
}
