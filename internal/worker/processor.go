// Package worker implements the asynchronous transform pipeline: receive a
// blob reference from the queue, download, transform, batch-insert, ack.
package worker

import (
	"context"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"traceroot/internal/core/domain/observability"
	obsServices "traceroot/internal/core/services/observability"
	"traceroot/internal/metrics"
)

const completedCacheSize = 4096

// FatalError marks a task failure that redelivery cannot fix: a missing
// blob or a malformed payload. The worker dead-letters instead of retrying.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string { return "fatal: " + e.Err.Error() }
func (e *FatalError) Unwrap() error { return e.Err }

// IsFatal reports whether err carries a FatalError.
func IsFatal(err error) bool {
	var fatal *FatalError
	return errors.As(err, &fatal)
}

// Processor executes one ingest task end to end. It is safe for concurrent
// use.
type Processor struct {
	store       observability.BlobStore
	transformer *obsServices.Transformer
	traceRepo   observability.TraceRepository
	spanRepo    observability.SpanRepository

	// completed remembers recently finished blob keys. Redelivery of a
	// finished task is acked without re-downloading; correctness does not
	// depend on the cache since inserts are idempotent.
	completed *lru.Cache[string, struct{}]

	logger *logrus.Logger
}

// NewProcessor creates a task processor.
func NewProcessor(
	store observability.BlobStore,
	transformer *obsServices.Transformer,
	traceRepo observability.TraceRepository,
	spanRepo observability.SpanRepository,
	logger *logrus.Logger,
) (*Processor, error) {
	completed, err := lru.New[string, struct{}](completedCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create completed cache: %w", err)
	}
	return &Processor{
		store:       store,
		transformer: transformer,
		traceRepo:   traceRepo,
		spanRepo:    spanRepo,
		completed:   completed,
		logger:      logger,
	}, nil
}

// AlreadyProcessed reports whether this process already completed the key.
func (p *Processor) AlreadyProcessed(key string) bool {
	return p.completed.Contains(key)
}

// Process downloads, transforms and inserts one blob. Errors are either
// *FatalError or transient; the caller's retry policy applies to the latter.
// Traces are inserted before spans so a span row never exists without at
// least a provisional rollup.
func (p *Processor) Process(ctx context.Context, task observability.IngestTask) error {
	blob, err := p.store.Get(ctx, task.S3Key)
	if err != nil {
		if errors.Is(err, observability.ErrBlobNotFound) {
			return &FatalError{Err: fmt.Errorf("blob %s: %w", task.S3Key, err)}
		}
		return fmt.Errorf("download blob %s: %w", task.S3Key, err)
	}

	result, err := p.transformer.TransformJSON(task.ProjectID, blob)
	if err != nil {
		// The blob stays in the object store for operator inspection.
		return &FatalError{Err: fmt.Errorf("transform blob %s: %w", task.S3Key, err)}
	}

	if err := p.traceRepo.InsertBatch(ctx, result.Traces); err != nil {
		return fmt.Errorf("insert trace batch for %s: %w", task.S3Key, err)
	}
	if err := p.spanRepo.InsertBatch(ctx, result.Spans); err != nil {
		return fmt.Errorf("insert span batch for %s: %w", task.S3Key, err)
	}

	metrics.RowsInserted.WithLabelValues("traces").Add(float64(len(result.Traces)))
	metrics.RowsInserted.WithLabelValues("spans").Add(float64(len(result.Spans)))
	p.completed.Add(task.S3Key, struct{}{})

	p.logger.WithFields(logrus.Fields{
		"project_id": task.ProjectID,
		"s3_key":     task.S3Key,
		"traces":     len(result.Traces),
		"spans":      len(result.Spans),
	}).Info("Processed ingest task")
	return nil
}
