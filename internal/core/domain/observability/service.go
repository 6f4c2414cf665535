package observability

import (
	"context"

	"traceroot/pkg/pagination"
)

// IngestService owns the write path behind the SDK endpoint: persist the
// canonical OTLP-JSON blob, then enqueue a processing reference.
type IngestService interface {
	// StoreAndEnqueue writes payload under a fresh time-partitioned key and
	// enqueues {s3Key, projectId}. The blob put is the durability boundary:
	// an enqueue failure after a successful put is logged and swallowed, and
	// the file key is still returned.
	StoreAndEnqueue(ctx context.Context, projectID string, payload []byte) (string, error)
}

// TraceService is the read API over the columnar store.
type TraceService interface {
	ListTraces(ctx context.Context, filter TraceFilter) ([]*TraceListItem, pagination.Meta, error)
	GetTrace(ctx context.Context, projectID, traceID string) (*TraceWithSpans, error)
}
