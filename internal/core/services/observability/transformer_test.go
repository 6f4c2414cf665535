package observability

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"traceroot/internal/core/domain/observability"
)

const (
	testTraceID = "0123456789abcdef0123456789abcdef"
	rootSpanID  = "aaaaaaaaaaaaaaaa"
	childSpanID = "fedcba9876543210"

	startNanos = observability.OTLPNanos(1_700_000_000_000_000_000)
	endNanos   = observability.OTLPNanos(1_700_000_001_000_000_000)
)

func newTestTransformer() *Transformer {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewTransformer(logger)
}

func strAttr(key, value string) observability.OTLPKeyValue {
	return observability.OTLPKeyValue{
		Key:   key,
		Value: observability.OTLPAnyValue{StringValue: &value},
	}
}

func span(id, parent, name string, attrs ...observability.OTLPKeyValue) observability.OTLPSpan {
	return observability.OTLPSpan{
		TraceID:           observability.OTLPTraceID(testTraceID),
		SpanID:            observability.OTLPSpanID(id),
		ParentSpanID:      observability.OTLPSpanID(parent),
		Name:              name,
		StartTimeUnixNano: startNanos,
		EndTimeUnixNano:   endNanos,
		Attributes:        attrs,
	}
}

func payload(resourceAttrs []observability.OTLPKeyValue, spans ...observability.OTLPSpan) *observability.OTLPPayload {
	return &observability.OTLPPayload{
		ResourceSpans: []observability.OTLPResourceSpans{{
			Resource:   observability.OTLPResource{Attributes: resourceAttrs},
			ScopeSpans: []observability.OTLPScopeSpans{{Spans: spans}},
		}},
	}
}

func TestTransformSingleRootSpan(t *testing.T) {
	result, err := newTestTransformer().Transform("proj-1", payload(nil, span(rootSpanID, "", "root")))
	require.NoError(t, err)

	require.Len(t, result.Spans, 1)
	s := result.Spans[0]
	assert.Equal(t, rootSpanID, s.SpanID)
	assert.Equal(t, testTraceID, s.TraceID)
	assert.Nil(t, s.ParentSpanID)
	assert.Equal(t, "proj-1", s.ProjectID)
	assert.Equal(t, startNanos.Time(), s.SpanStartTime)
	require.NotNil(t, s.SpanEndTime)
	assert.Equal(t, endNanos.Time(), *s.SpanEndTime)
	assert.Equal(t, observability.SpanKindSpan, s.SpanKind)
	assert.Equal(t, observability.SpanStatusOK, s.Status)
	assert.Equal(t, "default", s.Environment)

	require.Len(t, result.Traces, 1)
	rollup := result.Traces[0]
	assert.Equal(t, testTraceID, rollup.TraceID)
	assert.Equal(t, "root", rollup.Name)
	assert.Equal(t, startNanos.Time(), rollup.TraceStartTime)
	assert.True(t, rollup.Rooted)
}

func TestTransformIsPure(t *testing.T) {
	tr := newTestTransformer()
	blob, err := json.Marshal(payload(
		[]observability.OTLPKeyValue{strAttr("deployment.environment", "prod")},
		span(rootSpanID, "", "root"),
		span(childSpanID, rootSpanID, "child"),
	))
	require.NoError(t, err)

	first, err := tr.TransformJSON("p", blob)
	require.NoError(t, err)
	second, err := tr.TransformJSON("p", blob)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestTransformEnvironmentPrecedence(t *testing.T) {
	tests := []struct {
		name  string
		attrs []observability.OTLPKeyValue
		want  string
	}{
		{
			name: "deployment.environment wins",
			attrs: []observability.OTLPKeyValue{
				strAttr("deployment.environment", "prod"),
				strAttr("traceroot.environment", "staging"),
				strAttr("service.environment", "dev"),
			},
			want: "prod",
		},
		{
			name: "traceroot.environment second",
			attrs: []observability.OTLPKeyValue{
				strAttr("traceroot.environment", "staging"),
				strAttr("service.environment", "dev"),
			},
			want: "staging",
		},
		{
			name:  "service.environment third",
			attrs: []observability.OTLPKeyValue{strAttr("service.environment", "dev")},
			want:  "dev",
		},
		{name: "default fallback", attrs: nil, want: "default"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := newTestTransformer().Transform("p", payload(tt.attrs, span(rootSpanID, "", "root")))
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.Spans[0].Environment)
			assert.Equal(t, tt.want, result.Traces[0].Environment)
		})
	}
}

func TestTransformSpanKindClassification(t *testing.T) {
	tests := []struct {
		name  string
		attrs []observability.OTLPKeyValue
		want  observability.SpanKind
	}{
		{"traceroot type llm", []observability.OTLPKeyValue{strAttr("traceroot.span.type", "llm")}, observability.SpanKindLLM},
		{"traceroot type agent", []observability.OTLPKeyValue{strAttr("traceroot.span.type", "AGENT")}, observability.SpanKindAgent},
		{"traceroot type tool", []observability.OTLPKeyValue{strAttr("traceroot.span.type", "Tool")}, observability.SpanKindTool},
		{"traceroot type invalid falls through", []observability.OTLPKeyValue{strAttr("traceroot.span.type", "WIDGET")}, observability.SpanKindSpan},
		{"openinference llm", []observability.OTLPKeyValue{strAttr("openinference.span.kind", "LLM")}, observability.SpanKindLLM},
		{"openinference agent", []observability.OTLPKeyValue{strAttr("openinference.span.kind", "AGENT")}, observability.SpanKindAgent},
		{"openinference tool", []observability.OTLPKeyValue{strAttr("openinference.span.kind", "TOOL")}, observability.SpanKindTool},
		{"openinference chain maps to span", []observability.OTLPKeyValue{strAttr("openinference.span.kind", "CHAIN")}, observability.SpanKindSpan},
		{"gen_ai.system implies llm", []observability.OTLPKeyValue{strAttr("gen_ai.system", "openai")}, observability.SpanKindLLM},
		{"llm.model_name implies llm", []observability.OTLPKeyValue{strAttr("llm.model_name", "gpt-4o")}, observability.SpanKindLLM},
		{"traceroot.llm.model implies llm", []observability.OTLPKeyValue{strAttr("traceroot.llm.model", "claude")}, observability.SpanKindLLM},
		{"traceroot type beats openinference", []observability.OTLPKeyValue{
			strAttr("traceroot.span.type", "TOOL"),
			strAttr("openinference.span.kind", "LLM"),
		}, observability.SpanKindTool},
		{"no hints", nil, observability.SpanKindSpan},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := newTestTransformer().Transform("p", payload(nil, span(rootSpanID, "", "x", tt.attrs...)))
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.Spans[0].SpanKind)
		})
	}
}

func TestTransformStatusMapping(t *testing.T) {
	errored := span(rootSpanID, "", "boom-span")
	errored.Status = observability.OTLPStatus{Code: observability.OTLPStatusCodeError, Message: "boom"}

	result, err := newTestTransformer().Transform("p", payload(nil, errored))
	require.NoError(t, err)

	s := result.Spans[0]
	assert.Equal(t, observability.SpanStatusError, s.Status)
	require.NotNil(t, s.StatusMessage)
	assert.Equal(t, "boom", *s.StatusMessage)
}

func TestTransformModelNamePrecedence(t *testing.T) {
	result, err := newTestTransformer().Transform("p", payload(nil, span(rootSpanID, "", "x",
		strAttr("traceroot.llm.model", "claude-sonnet"),
		strAttr("gen_ai.request.model", "gpt-4o"),
		strAttr("llm.model_name", "llama"),
	)))
	require.NoError(t, err)

	s := result.Spans[0]
	assert.Equal(t, observability.SpanKindLLM, s.SpanKind)
	require.NotNil(t, s.ModelName)
	assert.Equal(t, "claude-sonnet", *s.ModelName)
}

func TestTransformInputOutputEncoding(t *testing.T) {
	// Strings pass through; structured values are JSON-encoded.
	structured := observability.OTLPKeyValue{
		Key: "traceroot.span.output",
		Value: observability.OTLPAnyValue{KvlistValue: &observability.OTLPKvlist{
			Values: []observability.OTLPKeyValue{strAttr("answer", "42")},
		}},
	}
	result, err := newTestTransformer().Transform("p", payload(nil, span(rootSpanID, "", "x",
		strAttr("traceroot.span.input", "plain text"),
		structured,
	)))
	require.NoError(t, err)

	s := result.Spans[0]
	require.NotNil(t, s.Input)
	assert.Equal(t, "plain text", *s.Input)
	require.NotNil(t, s.Output)
	assert.JSONEq(t, `{"answer":"42"}`, *s.Output)
}

func TestTransformCostAttribute(t *testing.T) {
	cost := 0.0031
	result, err := newTestTransformer().Transform("p", payload(nil, span(rootSpanID, "", "x",
		observability.OTLPKeyValue{Key: "traceroot.cost", Value: observability.OTLPAnyValue{DoubleValue: &cost}},
	)))
	require.NoError(t, err)

	s := result.Spans[0]
	require.NotNil(t, s.Cost)
	assert.Equal(t, "0.0031", s.Cost.String())
}

func TestTransformUserAndSessionExtraction(t *testing.T) {
	result, err := newTestTransformer().Transform("p", payload(nil, span(rootSpanID, "", "x",
		strAttr("traceroot.trace.user_id", "user-42"),
		strAttr("user.id", "ignored"),
		strAttr("session.id", "session-7"),
	)))
	require.NoError(t, err)

	rollup := result.Traces[0]
	require.NotNil(t, rollup.UserID)
	assert.Equal(t, "user-42", *rollup.UserID)
	require.NotNil(t, rollup.SessionID)
	assert.Equal(t, "session-7", *rollup.SessionID)
}

func TestTransformSkipsSpanWithoutStartTime(t *testing.T) {
	broken := span(childSpanID, "", "broken")
	broken.StartTimeUnixNano = 0

	result, err := newTestTransformer().Transform("p", payload(nil, broken, span(rootSpanID, "", "ok")))
	require.NoError(t, err)
	require.Len(t, result.Spans, 1)
	assert.Equal(t, rootSpanID, result.Spans[0].SpanID)
}

func TestTransformStartOnlySpan(t *testing.T) {
	open := span(rootSpanID, "", "in-flight")
	open.EndTimeUnixNano = 0

	result, err := newTestTransformer().Transform("p", payload(nil, open))
	require.NoError(t, err)
	assert.Nil(t, result.Spans[0].SpanEndTime)
}

func TestTransformStartEqualsEnd(t *testing.T) {
	instant := span(rootSpanID, "", "instant")
	instant.EndTimeUnixNano = startNanos

	result, err := newTestTransformer().Transform("p", payload(nil, instant))
	require.NoError(t, err)
	require.NotNil(t, result.Spans[0].SpanEndTime)
	assert.Equal(t, result.Spans[0].SpanStartTime, *result.Spans[0].SpanEndTime)
}

func TestTransformEndBeforeStartDropsEnd(t *testing.T) {
	warped := span(rootSpanID, "", "warped")
	warped.StartTimeUnixNano = endNanos
	warped.EndTimeUnixNano = startNanos

	result, err := newTestTransformer().Transform("p", payload(nil, warped))
	require.NoError(t, err)
	assert.Nil(t, result.Spans[0].SpanEndTime)
}

func TestTransformUnknownParentStillValid(t *testing.T) {
	orphan := span(childSpanID, "bbbbbbbbbbbbbbbb", "orphan")

	result, err := newTestTransformer().Transform("p", payload(nil, orphan))
	require.NoError(t, err)
	require.Len(t, result.Spans, 1)
	require.NotNil(t, result.Spans[0].ParentSpanID)
	assert.Equal(t, "bbbbbbbbbbbbbbbb", *result.Spans[0].ParentSpanID)
	assert.False(t, result.Traces[0].Rooted)
}

// Within one batch the root span overwrites the provisional rollup whatever
// its position; across batches the rooted flag versions the rollup above
// unrooted ones in the store.
func TestTransformRootOverwriteAnyOrder(t *testing.T) {
	root := span(rootSpanID, "", "parent")
	child := span(childSpanID, rootSpanID, "child")
	child.StartTimeUnixNano = observability.OTLPNanos(uint64(startNanos) + 500_000_000)

	for name, spans := range map[string][]observability.OTLPSpan{
		"root first": {root, child},
		"root last":  {child, root},
	} {
		t.Run(name, func(t *testing.T) {
			result, err := newTestTransformer().Transform("p", payload(nil, spans...))
			require.NoError(t, err)

			require.Len(t, result.Traces, 1)
			rollup := result.Traces[0]
			assert.Equal(t, "parent", rollup.Name)
			assert.Equal(t, startNanos.Time(), rollup.TraceStartTime)
			assert.True(t, rollup.Rooted)
			assert.Len(t, result.Spans, 2)
		})
	}
}

func TestTransformSplitBlobsMarkRooting(t *testing.T) {
	tr := newTestTransformer()

	childOnly, err := tr.Transform("p", payload(nil, span(childSpanID, rootSpanID, "child")))
	require.NoError(t, err)
	assert.False(t, childOnly.Traces[0].Rooted)
	assert.Equal(t, "child", childOnly.Traces[0].Name)

	rootOnly, err := tr.Transform("p", payload(nil, span(rootSpanID, "", "parent")))
	require.NoError(t, err)
	assert.True(t, rootOnly.Traces[0].Rooted)
	assert.Equal(t, "parent", rootOnly.Traces[0].Name)
}

func TestTransformMultipleTraces(t *testing.T) {
	other := span(childSpanID, "", "other-root")
	other.TraceID = "ffffffffffffffffffffffffffffffff"

	result, err := newTestTransformer().Transform("p", payload(nil, span(rootSpanID, "", "root"), other))
	require.NoError(t, err)
	assert.Len(t, result.Traces, 2)
	assert.Len(t, result.Spans, 2)
}

func TestTransformJSONRejectsGarbage(t *testing.T) {
	_, err := newTestTransformer().TransformJSON("p", []byte(`{"resourceSpans": "nope"}`))
	assert.Error(t, err)
}

func TestTransformReleaseFromResource(t *testing.T) {
	result, err := newTestTransformer().Transform("p", payload(
		[]observability.OTLPKeyValue{strAttr("service.version", "1.4.2")},
		span(rootSpanID, "", "root"),
	))
	require.NoError(t, err)
	require.NotNil(t, result.Traces[0].Release)
	assert.Equal(t, "1.4.2", *result.Traces[0].Release)
}

func TestTransformTimesAreUTC(t *testing.T) {
	result, err := newTestTransformer().Transform("p", payload(nil, span(rootSpanID, "", "root")))
	require.NoError(t, err)
	assert.Equal(t, time.UTC, result.Spans[0].SpanStartTime.Location())
}
