package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	"traceroot/internal/core/domain/observability"
)

const spanInsertColumns = `project_id, trace_id, span_id, parent_span_id, span_start_time, span_end_time, name, span_kind, status, status_message, model_name, cost, input, output, environment, ch_create_time, ch_update_time`

const spanSelectFields = `project_id, trace_id, span_id, parent_span_id, span_start_time, span_end_time, name, span_kind, status, status_message, model_name, cost, input, output, environment`

type spanRepository struct {
	db clickhouse.Conn
}

// NewSpanRepository creates the ClickHouse span repository.
func NewSpanRepository(db clickhouse.Conn) observability.SpanRepository {
	return &spanRepository{db: db}
}

func (r *spanRepository) InsertBatch(ctx context.Context, spans []*observability.Span) error {
	if len(spans) == 0 {
		return nil
	}

	batch, err := r.db.PrepareBatch(ctx, "INSERT INTO spans ("+spanInsertColumns+")")
	if err != nil {
		return fmt.Errorf("prepare span batch: %w", err)
	}

	now := time.Now().UTC()
	for _, s := range spans {
		s.CHCreateTime = now
		s.CHUpdateTime = now
		if err := batch.Append(
			s.ProjectID,
			s.TraceID,
			s.SpanID,
			s.ParentSpanID,
			s.SpanStartTime,
			s.SpanEndTime,
			s.Name,
			string(s.SpanKind),
			string(s.Status),
			s.StatusMessage,
			s.ModelName,
			s.Cost,
			s.Input,
			s.Output,
			s.Environment,
			s.CHCreateTime,
			s.CHUpdateTime,
		); err != nil {
			return fmt.Errorf("append span row: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send span batch: %w", err)
	}
	return nil
}

func (r *spanRepository) ListByTrace(ctx context.Context, projectID, traceID string) ([]*observability.Span, error) {
	query := "SELECT " + spanSelectFields + " FROM spans FINAL WHERE project_id = ? AND trace_id = ? ORDER BY span_start_time ASC, span_id ASC"

	rows, err := r.db.Query(ctx, query, projectID, traceID)
	if err != nil {
		return nil, fmt.Errorf("list spans: %w", err)
	}
	defer rows.Close()

	var spans []*observability.Span
	for rows.Next() {
		var (
			s      observability.Span
			kind   string
			status string
		)
		if err := rows.Scan(
			&s.ProjectID,
			&s.TraceID,
			&s.SpanID,
			&s.ParentSpanID,
			&s.SpanStartTime,
			&s.SpanEndTime,
			&s.Name,
			&kind,
			&status,
			&s.StatusMessage,
			&s.ModelName,
			&s.Cost,
			&s.Input,
			&s.Output,
			&s.Environment,
		); err != nil {
			return nil, fmt.Errorf("scan span: %w", err)
		}
		s.SpanKind = observability.SpanKind(kind)
		s.Status = observability.SpanStatus(status)
		spans = append(spans, &s)
	}
	return spans, rows.Err()
}
