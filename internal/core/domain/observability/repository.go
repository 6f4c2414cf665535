package observability

import (
	"context"
	"errors"
)

var (
	// ErrTraceNotFound is returned when no rollup row matches.
	ErrTraceNotFound = errors.New("trace not found")

	// ErrBlobNotFound is returned by blob stores for missing keys. The worker
	// treats it as fatal for the task.
	ErrBlobNotFound = errors.New("blob not found")
)

// TraceRepository is the columnar persistence port for trace rollups.
// InsertBatch has replace-on-key semantics: a later row for the same
// (projectId, traceId) supersedes earlier ones at read time.
type TraceRepository interface {
	InsertBatch(ctx context.Context, traces []*Trace) error
	List(ctx context.Context, filter TraceFilter) ([]*TraceListItem, error)
	Count(ctx context.Context, filter TraceFilter) (int64, error)
	Get(ctx context.Context, projectID, traceID string) (*Trace, error)
}

// SpanRepository is the columnar persistence port for spans, keyed by
// (projectId, traceId, spanId) with replace-on-key semantics.
type SpanRepository interface {
	InsertBatch(ctx context.Context, spans []*Span) error
	ListByTrace(ctx context.Context, projectID, traceID string) ([]*Span, error)
}

// IngestTask references one stored blob awaiting transformation. The queue
// carries references only, never payload bytes.
type IngestTask struct {
	S3Key     string `json:"s3_key"`
	ProjectID string `json:"project_id"`
}

// BlobStore is the object-store port. Put is idempotent by key; Get returns
// ErrBlobNotFound for missing keys.
type BlobStore interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, body []byte, contentType string) error
	PutJSON(ctx context.Context, key string, value any) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// TaskQueue is the producer side of the ingestion queue.
type TaskQueue interface {
	Enqueue(ctx context.Context, task IngestTask) error
}
