package worker

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"traceroot/internal/config"
	"traceroot/internal/infrastructure/queue"
	"traceroot/internal/metrics"
)

const receiveBlock = 5 * time.Second

// claimInterval bounds how often each consumer sweeps the pending entries
// list for messages lost by crashed workers.
const claimInterval = time.Minute

// Worker runs a pool of queue consumers over one Processor.
type Worker struct {
	queue     *queue.RedisStreamQueue
	processor *Processor
	cfg       config.QueueConfig
	pool      int
	logger    *logrus.Logger
}

// New creates a worker pool with the configured concurrency.
func New(q *queue.RedisStreamQueue, processor *Processor, cfg config.QueueConfig, concurrency int, logger *logrus.Logger) *Worker {
	return &Worker{queue: q, processor: processor, cfg: cfg, pool: concurrency, logger: logger}
}

// Run consumes until ctx is cancelled. Each consumer has its own name so the
// broker tracks per-consumer pending entries.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.queue.EnsureGroup(ctx); err != nil {
		return err
	}

	host, _ := os.Hostname()
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < w.pool; i++ {
		consumer := fmt.Sprintf("%s-%d-%d", host, os.Getpid(), i)
		g.Go(func() error {
			return w.consume(ctx, consumer)
		})
	}
	return g.Wait()
}

func (w *Worker) consume(ctx context.Context, consumer string) error {
	w.logger.WithField("consumer", consumer).Info("Worker consumer started")
	lastClaim := time.Time{}

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if time.Since(lastClaim) > claimInterval {
			lastClaim = time.Now()
			claimed, err := w.queue.Claim(ctx, consumer, int64(w.cfg.Prefetch))
			if err != nil {
				w.logger.WithError(err).Warn("Failed to claim stale messages")
			}
			for _, d := range claimed {
				w.handle(ctx, d)
			}
		}

		deliveries, err := w.queue.Receive(ctx, consumer, int64(w.cfg.Prefetch), receiveBlock)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.logger.WithError(err).Error("Failed to receive from queue")
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return nil
			}
			continue
		}
		for _, d := range deliveries {
			w.handle(ctx, d)
		}
	}
}

// handle runs one delivery to a terminal state: acked, dead-lettered, or
// left pending for the broker to redeliver after the visibility timeout.
func (w *Worker) handle(ctx context.Context, d queue.Delivery) {
	entry := w.logger.WithFields(logrus.Fields{
		"message_id": d.ID,
		"s3_key":     d.Task.S3Key,
		"project_id": d.Task.ProjectID,
	})

	// A previously finished blob redelivered after a lost ack: done already.
	if w.processor.AlreadyProcessed(d.Task.S3Key) {
		if err := w.queue.Ack(ctx, d.ID); err != nil {
			entry.WithError(err).Warn("Failed to ack already-processed task")
			return
		}
		metrics.WorkerTasks.WithLabelValues("skipped").Inc()
		entry.Debug("Acked already-processed task")
		return
	}

	if int(d.DeliveryCount) > w.cfg.MaxDeliveries {
		entry.WithField("deliveries", d.DeliveryCount).Warn("Delivery budget exhausted, dead lettering")
		w.deadLetter(ctx, d, fmt.Errorf("exhausted %d deliveries", d.DeliveryCount), entry)
		return
	}

	start := time.Now()
	err := w.processWithRetry(ctx, d)
	metrics.WorkerTaskDuration.Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		if ackErr := w.queue.Ack(ctx, d.ID); ackErr != nil {
			// The pending entry will be redelivered; inserts are idempotent.
			entry.WithError(ackErr).Warn("Failed to ack completed task")
			return
		}
		metrics.WorkerTasks.WithLabelValues("acked").Inc()
	case IsFatal(err):
		entry.WithError(err).Warn("Fatal task failure, dead lettering")
		w.deadLetter(ctx, d, err, entry)
	default:
		// Leave the message pending; the broker redelivers it after the
		// visibility timeout, to this consumer or another.
		metrics.WorkerTasks.WithLabelValues("requeued").Inc()
		entry.WithError(err).Warn("Task failed after retries, leaving pending for redelivery")
	}
}

// processWithRetry retries transient failures in-process with exponential
// backoff before giving the message back to the broker.
func (w *Worker) processWithRetry(ctx context.Context, d queue.Delivery) error {
	var lastErr error
	for attempt := 1; attempt <= w.cfg.MaxAttempts; attempt++ {
		lastErr = w.processor.Process(ctx, d.Task)
		if lastErr == nil || IsFatal(lastErr) || ctx.Err() != nil {
			return lastErr
		}

		if attempt < w.cfg.MaxAttempts {
			delay := backoffDelay(attempt, w.cfg.BackoffBase, w.cfg.BackoffCap)
			w.logger.WithFields(logrus.Fields{
				"message_id": d.ID,
				"attempt":    attempt,
				"delay":      delay.String(),
			}).WithError(lastErr).Info("Retrying task after transient failure")
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return lastErr
			}
		}
	}
	return lastErr
}

func (w *Worker) deadLetter(ctx context.Context, d queue.Delivery, cause error, entry *logrus.Entry) {
	if err := w.queue.DeadLetter(ctx, d, cause); err != nil {
		entry.WithError(err).Error("Failed to dead letter task")
		return
	}
	metrics.WorkerTasks.WithLabelValues("dead_letter").Inc()
}
