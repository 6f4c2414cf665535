// Package observability holds the telemetry read/write model: trace rollups
// and spans as stored in the columnar store, plus the OTLP payload shape the
// transformer consumes.
package observability

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"traceroot/pkg/pagination"
)

// SpanKind classifies a span by workload.
type SpanKind string

const (
	SpanKindSpan  SpanKind = "SPAN"
	SpanKindLLM   SpanKind = "LLM"
	SpanKindAgent SpanKind = "AGENT"
	SpanKindTool  SpanKind = "TOOL"
)

// ParseSpanKind matches a kind string case-insensitively, returning false for
// anything outside the four defined kinds.
func ParseSpanKind(s string) (SpanKind, bool) {
	switch SpanKind(strings.ToUpper(s)) {
	case SpanKindSpan:
		return SpanKindSpan, true
	case SpanKindLLM:
		return SpanKindLLM, true
	case SpanKindAgent:
		return SpanKindAgent, true
	case SpanKindTool:
		return SpanKindTool, true
	default:
		return "", false
	}
}

// SpanStatus is the stored span outcome.
type SpanStatus string

const (
	SpanStatusOK    SpanStatus = "OK"
	SpanStatusError SpanStatus = "ERROR"
)

// Trace is the per-trace rollup row. Rows for the same (projectId, traceId)
// replace each other at read time. Rooted marks a rollup derived from the
// trace's root span; rooted rows version above unrooted ones so a blob of
// late-arriving child spans never regresses a converged rollup.
type Trace struct {
	TraceID        string    `json:"traceId"`
	ProjectID      string    `json:"projectId"`
	TraceStartTime time.Time `json:"traceStartTime"`
	Name           string    `json:"name"`
	UserID         *string   `json:"userId,omitempty"`
	SessionID      *string   `json:"sessionId,omitempty"`
	Environment    string    `json:"environment"`
	Release        *string   `json:"release,omitempty"`
	Input          *string   `json:"input,omitempty"`
	Output         *string   `json:"output,omitempty"`
	Rooted         bool      `json:"-"`
	CHCreateTime   time.Time `json:"-"`
	CHUpdateTime   time.Time `json:"-"`
}

// Span is a stored span row, keyed by (projectId, traceId, spanId) with
// replace-on-key semantics.
type Span struct {
	SpanID        string           `json:"spanId"`
	TraceID       string           `json:"traceId"`
	ParentSpanID  *string          `json:"parentSpanId,omitempty"`
	ProjectID     string           `json:"projectId"`
	SpanStartTime time.Time        `json:"spanStartTime"`
	SpanEndTime   *time.Time       `json:"spanEndTime,omitempty"`
	Name          string           `json:"name"`
	SpanKind      SpanKind         `json:"spanKind"`
	Status        SpanStatus       `json:"status"`
	StatusMessage *string          `json:"statusMessage,omitempty"`
	ModelName     *string          `json:"modelName,omitempty"`
	Cost          *decimal.Decimal `json:"cost,omitempty"`
	Input         *string          `json:"input,omitempty"`
	Output        *string          `json:"output,omitempty"`
	Environment   string           `json:"environment"`
	CHCreateTime  time.Time        `json:"-"`
	CHUpdateTime  time.Time        `json:"-"`
}

// TraceListItem is a rollup row with query-time aggregation over its spans.
// Status is "error" when any span errored, else "ok". DurationMs is null when
// no span of the trace has an end time.
type TraceListItem struct {
	TraceID        string    `json:"traceId"`
	ProjectID      string    `json:"projectId"`
	Name           string    `json:"name"`
	TraceStartTime time.Time `json:"traceStartTime"`
	UserID         *string   `json:"userId,omitempty"`
	SessionID      *string   `json:"sessionId,omitempty"`
	SpanCount      uint64    `json:"spanCount"`
	DurationMs     *int64    `json:"durationMs"`
	Status         string    `json:"status"`
}

// TraceWithSpans is the single-trace response: the rollup plus its spans
// ordered by start time.
type TraceWithSpans struct {
	Trace
	Spans []*Span `json:"spans"`
}

// TraceFilter scopes and paginates a trace listing. Name, when set, matches
// the rollup name as a case-insensitive substring.
type TraceFilter struct {
	ProjectID string
	Name      string
	pagination.Params
}
