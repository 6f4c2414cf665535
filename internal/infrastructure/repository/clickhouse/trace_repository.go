// Package clickhouse implements the columnar repository ports. Both tables
// are ReplacingMergeTree: inserts never update in place, and reads go
// through FINAL so redelivered blobs collapse to one logical row.
package clickhouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	"traceroot/internal/core/domain/observability"
)

// rootedVersionBit orders rooted rollups above unrooted ones inside the
// replacing merge tree, whatever their wall-clock write order. A blob of
// late-arriving child spans therefore never regresses a converged rollup.
const rootedVersionBit = uint64(1) << 62

const traceInsertColumns = `project_id, trace_id, trace_start_time, name, user_id, session_id, environment, release, input, output, rooted, ver, ch_create_time, ch_update_time`

const traceSelectFields = `project_id, trace_id, trace_start_time, name, user_id, session_id, environment, release, input, output`

type traceRepository struct {
	db clickhouse.Conn
}

// NewTraceRepository creates the ClickHouse trace rollup repository.
func NewTraceRepository(db clickhouse.Conn) observability.TraceRepository {
	return &traceRepository{db: db}
}

func (r *traceRepository) InsertBatch(ctx context.Context, traces []*observability.Trace) error {
	if len(traces) == 0 {
		return nil
	}

	batch, err := r.db.PrepareBatch(ctx, "INSERT INTO traces ("+traceInsertColumns+")")
	if err != nil {
		return fmt.Errorf("prepare trace batch: %w", err)
	}

	now := time.Now().UTC()
	for _, t := range traces {
		t.CHCreateTime = now
		t.CHUpdateTime = now
		if err := batch.Append(
			t.ProjectID,
			t.TraceID,
			t.TraceStartTime,
			t.Name,
			t.UserID,
			t.SessionID,
			t.Environment,
			t.Release,
			t.Input,
			t.Output,
			t.Rooted,
			rollupVersion(t.Rooted, now),
			t.CHCreateTime,
			t.CHUpdateTime,
		); err != nil {
			return fmt.Errorf("append trace row: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send trace batch: %w", err)
	}
	return nil
}

func (r *traceRepository) List(ctx context.Context, filter observability.TraceFilter) ([]*observability.TraceListItem, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT
			t.trace_id,
			t.project_id,
			t.name,
			t.trace_start_time,
			t.user_id,
			t.session_id,
			coalesce(s.span_count, 0) AS span_count,
			s.duration_ms,
			if(coalesce(s.error_count, 0) > 0, 'error', 'ok') AS status
		FROM traces AS t FINAL
		LEFT JOIN (
			SELECT
				trace_id,
				count() AS span_count,
				countIf(status = 'ERROR') AS error_count,
				dateDiff('millisecond', min(span_start_time), max(span_end_time)) AS duration_ms
			FROM spans FINAL
			WHERE project_id = ?
			GROUP BY trace_id
		) AS s ON s.trace_id = t.trace_id
		WHERE t.project_id = ?`)
	args := []any{filter.ProjectID, filter.ProjectID}

	if filter.Name != "" {
		sb.WriteString(" AND positionCaseInsensitive(t.name, ?) > 0")
		args = append(args, filter.Name)
	}
	sb.WriteString(" ORDER BY t.trace_start_time DESC, t.trace_id LIMIT ? OFFSET ?")
	args = append(args, filter.Limit, filter.Offset())

	rows, err := r.db.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list traces: %w", err)
	}
	defer rows.Close()

	items := make([]*observability.TraceListItem, 0, filter.Limit)
	for rows.Next() {
		var item observability.TraceListItem
		if err := rows.Scan(
			&item.TraceID,
			&item.ProjectID,
			&item.Name,
			&item.TraceStartTime,
			&item.UserID,
			&item.SessionID,
			&item.SpanCount,
			&item.DurationMs,
			&item.Status,
		); err != nil {
			return nil, fmt.Errorf("scan trace list item: %w", err)
		}
		items = append(items, &item)
	}
	return items, rows.Err()
}

func (r *traceRepository) Count(ctx context.Context, filter observability.TraceFilter) (int64, error) {
	var sb strings.Builder
	sb.WriteString("SELECT count() FROM traces FINAL WHERE project_id = ?")
	args := []any{filter.ProjectID}
	if filter.Name != "" {
		sb.WriteString(" AND positionCaseInsensitive(name, ?) > 0")
		args = append(args, filter.Name)
	}

	var total uint64
	if err := r.db.QueryRow(ctx, sb.String(), args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count traces: %w", err)
	}
	return int64(total), nil
}

func (r *traceRepository) Get(ctx context.Context, projectID, traceID string) (*observability.Trace, error) {
	query := "SELECT " + traceSelectFields + " FROM traces FINAL WHERE project_id = ? AND trace_id = ? LIMIT 1"

	var t observability.Trace
	err := r.db.QueryRow(ctx, query, projectID, traceID).Scan(
		&t.ProjectID,
		&t.TraceID,
		&t.TraceStartTime,
		&t.Name,
		&t.UserID,
		&t.SessionID,
		&t.Environment,
		&t.Release,
		&t.Input,
		&t.Output,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, observability.ErrTraceNotFound
		}
		return nil, fmt.Errorf("get trace: %w", err)
	}
	return &t, nil
}

func rollupVersion(rooted bool, at time.Time) uint64 {
	v := uint64(at.UnixMilli())
	if rooted {
		v |= rootedVersionBit
	}
	return v
}
