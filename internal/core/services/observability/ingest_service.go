package observability

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"traceroot/internal/core/domain/observability"
	appErrors "traceroot/pkg/errors"
)

type ingestService struct {
	store  observability.BlobStore
	queue  observability.TaskQueue
	logger *logrus.Logger
}

// NewIngestService creates the blob-then-enqueue write path behind the SDK
// ingestion endpoint.
func NewIngestService(store observability.BlobStore, queue observability.TaskQueue, logger *logrus.Logger) observability.IngestService {
	return &ingestService{store: store, queue: queue, logger: logger}
}

// StoreAndEnqueue persists the canonical OTLP-JSON payload and enqueues a
// processing reference. The put is the durability boundary: once the blob is
// written the caller is told success, even if the enqueue fails — a sweeper
// can re-enqueue from the object-store prefix.
func (s *ingestService) StoreAndEnqueue(ctx context.Context, projectID string, payload []byte) (string, error) {
	if err := s.store.EnsureBucket(ctx); err != nil {
		s.logger.WithError(err).Error("Failed to ensure event bucket")
		return "", appErrors.NewInternalError("failed to persist trace data", err)
	}

	key := observability.NewEventKey(projectID, time.Now())
	if err := s.store.Put(ctx, key, payload, "application/json"); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"project_id": projectID,
			"s3_key":     key,
		}).Error("Failed to store trace payload")
		return "", appErrors.NewInternalError("failed to persist trace data", err)
	}

	task := observability.IngestTask{S3Key: key, ProjectID: projectID}
	if err := s.queue.Enqueue(ctx, task); err != nil {
		// The blob is durable; the task can be recovered from the prefix.
		s.logger.WithError(err).WithFields(logrus.Fields{
			"project_id": projectID,
			"s3_key":     key,
		}).Error("Failed to enqueue ingest task, blob retained for recovery")
	}

	return key, nil
}
