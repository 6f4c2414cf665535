package observability

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"traceroot/internal/core/domain/observability"
)

// Attribute keys consumed by the transform. SDK-native keys win over the
// OpenTelemetry GenAI and OpenInference conventions.
const (
	attrDeploymentEnv  = "deployment.environment"
	attrServiceEnv     = "service.environment"
	attrServiceVersion = "service.version"

	attrSpanType    = "traceroot.span.type"
	attrEnvironment = "traceroot.environment"
	attrRelease     = "traceroot.release"
	attrSpanInput   = "traceroot.span.input"
	attrSpanOutput  = "traceroot.span.output"
	attrLLMModel    = "traceroot.llm.model"
	attrCost        = "traceroot.cost"
	attrUserID      = "traceroot.trace.user_id"
	attrSessionID   = "traceroot.trace.session_id"

	attrOpenInferenceKind = "openinference.span.kind"
	attrGenAISystem       = "gen_ai.system"
	attrGenAIRequestModel = "gen_ai.request.model"
	attrGenAIUsageCost    = "gen_ai.usage.cost"
	attrLLMModelName      = "llm.model_name"
	attrGenericUserID     = "user.id"
	attrSessionUserID     = "session.user_id"
	attrGenericSessionID  = "session.id"
)

const defaultEnvironment = "default"

// TransformResult is the output of one blob transformation: at most one
// rollup per distinct trace id, plus every usable span.
type TransformResult struct {
	Traces []*observability.Trace
	Spans  []*observability.Span
}

// Transformer converts decoded OTLP payloads into storable rows. It is pure:
// identical input yields identical rows, so redelivered blobs are safe to
// re-transform.
type Transformer struct {
	logger *logrus.Logger
}

// NewTransformer creates a Transformer. The logger is used only for
// skipped-span warnings.
func NewTransformer(logger *logrus.Logger) *Transformer {
	return &Transformer{logger: logger}
}

// TransformJSON decodes a stored OTLP-JSON blob and transforms it. A blob
// that does not decode is malformed beyond retry; callers treat the error as
// fatal for the task.
func (t *Transformer) TransformJSON(projectID string, blob []byte) (*TransformResult, error) {
	var payload observability.OTLPPayload
	if err := json.Unmarshal(blob, &payload); err != nil {
		return nil, fmt.Errorf("decode otlp payload: %w", err)
	}
	return t.Transform(projectID, &payload)
}

// Transform applies the attribute classification rules to every span in the
// payload and emits trace rollups alongside the span rows.
func (t *Transformer) Transform(projectID string, payload *observability.OTLPPayload) (*TransformResult, error) {
	result := &TransformResult{}
	rollups := make(map[string]*observability.Trace)
	rollupOrder := make([]string, 0, 4)

	for _, rs := range payload.ResourceSpans {
		resourceAttrs := observability.FlattenAttributes(rs.Resource.Attributes)
		environment := resolveEnvironment(resourceAttrs)
		release := optionalString(firstStringAttr(resourceAttrs, attrRelease, attrServiceVersion))

		for _, ss := range rs.ScopeSpans {
			for i := range ss.Spans {
				span := &ss.Spans[i]
				row, ok := t.buildSpan(projectID, span, environment)
				if !ok {
					continue
				}
				result.Spans = append(result.Spans, row)

				rollup, seen := rollups[row.TraceID]
				if !seen {
					rollup = &observability.Trace{
						TraceID:        row.TraceID,
						ProjectID:      projectID,
						TraceStartTime: row.SpanStartTime,
						Name:           row.Name,
						Environment:    environment,
						Release:        release,
						Input:          row.Input,
						Output:         row.Output,
					}
					rollups[row.TraceID] = rollup
					rollupOrder = append(rollupOrder, row.TraceID)
				}

				spanAttrs := observability.FlattenAttributes(span.Attributes)
				fillIdentity(rollup, spanAttrs, resourceAttrs)

				if row.ParentSpanID == nil {
					rollup.Rooted = true
					rollup.Name = row.Name
					rollup.TraceStartTime = row.SpanStartTime
					if row.Input != nil {
						rollup.Input = row.Input
					}
					if row.Output != nil {
						rollup.Output = row.Output
					}
				}
			}
		}
	}

	for _, traceID := range rollupOrder {
		result.Traces = append(result.Traces, rollups[traceID])
	}
	return result, nil
}

// buildSpan converts one OTLP span. Spans without ids or a start time cannot
// be stored and are skipped with a warning.
func (t *Transformer) buildSpan(projectID string, span *observability.OTLPSpan, environment string) (*observability.Span, bool) {
	if span.TraceID == "" || span.SpanID == "" {
		t.warnSkip(projectID, string(span.TraceID), string(span.SpanID), "missing trace or span id")
		return nil, false
	}
	if span.StartTimeUnixNano.IsZero() {
		t.warnSkip(projectID, string(span.TraceID), string(span.SpanID), "missing start time")
		return nil, false
	}

	attrs := observability.FlattenAttributes(span.Attributes)

	row := &observability.Span{
		SpanID:        string(span.SpanID),
		TraceID:       string(span.TraceID),
		ProjectID:     projectID,
		SpanStartTime: span.StartTimeUnixNano.Time(),
		Name:          span.Name,
		SpanKind:      resolveSpanKind(attrs),
		Status:        observability.SpanStatusOK,
		Environment:   environment,
		Input:         encodeValueAttr(attrs[attrSpanInput]),
		Output:        encodeValueAttr(attrs[attrSpanOutput]),
		Cost:          decimalAttr(attrs, attrCost, attrGenAIUsageCost),
	}

	if span.ParentSpanID != "" {
		parent := string(span.ParentSpanID)
		row.ParentSpanID = &parent
	}

	if !span.EndTimeUnixNano.IsZero() {
		end := span.EndTimeUnixNano.Time()
		if end.Before(row.SpanStartTime) {
			t.warnSkip(projectID, row.TraceID, row.SpanID, "end time precedes start time, dropping end")
		} else {
			row.SpanEndTime = &end
		}
	}

	if envOverride, ok := firstStringAttr(attrs, attrEnvironment); ok {
		row.Environment = envOverride
	}

	if span.Status.Code == observability.OTLPStatusCodeError {
		row.Status = observability.SpanStatusError
		row.StatusMessage = optionalString(span.Status.Message, span.Status.Message != "")
	}

	if row.SpanKind == observability.SpanKindLLM {
		row.ModelName = optionalString(firstStringAttr(attrs, attrLLMModel, attrGenAIRequestModel, attrLLMModelName))
	}

	return row, true
}

func (t *Transformer) warnSkip(projectID, traceID, spanID, reason string) {
	if t.logger == nil {
		return
	}
	t.logger.WithFields(logrus.Fields{
		"project_id": projectID,
		"trace_id":   traceID,
		"span_id":    spanID,
		"reason":     reason,
	}).Warn("Skipping unusable span")
}

// resolveEnvironment applies the resource-level environment precedence.
func resolveEnvironment(resourceAttrs map[string]any) string {
	if env, ok := firstStringAttr(resourceAttrs, attrDeploymentEnv, attrEnvironment, attrServiceEnv); ok {
		return env
	}
	return defaultEnvironment
}

// resolveSpanKind classifies a span from its attributes. The OTel span kind
// field carries transport semantics, not workload semantics, and is ignored.
func resolveSpanKind(attrs map[string]any) observability.SpanKind {
	if raw, ok := firstStringAttr(attrs, attrSpanType); ok {
		if kind, valid := observability.ParseSpanKind(raw); valid {
			return kind
		}
	}
	if raw, ok := firstStringAttr(attrs, attrOpenInferenceKind); ok {
		switch raw {
		case "LLM":
			return observability.SpanKindLLM
		case "AGENT":
			return observability.SpanKindAgent
		case "TOOL":
			return observability.SpanKindTool
		case "CHAIN":
			return observability.SpanKindSpan
		}
	}
	for _, key := range []string{attrGenAISystem, attrLLMModelName, attrLLMModel} {
		if _, present := attrs[key]; present {
			return observability.SpanKindLLM
		}
	}
	return observability.SpanKindSpan
}

// fillIdentity populates rollup user/session ids from span then resource
// attributes. First non-empty value wins; later spans only fill gaps.
func fillIdentity(rollup *observability.Trace, spanAttrs, resourceAttrs map[string]any) {
	if rollup.UserID == nil {
		if v, ok := firstScalarAttr(spanAttrs, attrUserID, attrGenericUserID, attrSessionUserID); ok {
			rollup.UserID = &v
		} else if v, ok := firstScalarAttr(resourceAttrs, attrUserID, attrGenericUserID, attrSessionUserID); ok {
			rollup.UserID = &v
		}
	}
	if rollup.SessionID == nil {
		if v, ok := firstScalarAttr(spanAttrs, attrSessionID, attrGenericSessionID); ok {
			rollup.SessionID = &v
		} else if v, ok := firstScalarAttr(resourceAttrs, attrSessionID, attrGenericSessionID); ok {
			rollup.SessionID = &v
		}
	}
}

// firstStringAttr returns the first attribute among keys whose value is a
// non-empty string.
func firstStringAttr(attrs map[string]any, keys ...string) (string, bool) {
	for _, key := range keys {
		if s, ok := attrs[key].(string); ok && s != "" {
			return s, true
		}
	}
	return "", false
}

// firstScalarAttr is firstStringAttr extended to numeric scalars, which some
// SDKs emit for identifiers.
func firstScalarAttr(attrs map[string]any, keys ...string) (string, bool) {
	for _, key := range keys {
		switch v := attrs[key].(type) {
		case string:
			if v != "" {
				return v, true
			}
		case int64:
			return strconv.FormatInt(v, 10), true
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64), true
		}
	}
	return "", false
}

// encodeValueAttr renders an input/output attribute: strings pass through,
// anything else is JSON-encoded.
func encodeValueAttr(v any) *string {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		if val == "" {
			return nil
		}
		return &val
	default:
		encoded, err := json.Marshal(val)
		if err != nil {
			return nil
		}
		s := string(encoded)
		return &s
	}
}

// decimalAttr parses the first present cost attribute into a decimal.
func decimalAttr(attrs map[string]any, keys ...string) *decimal.Decimal {
	for _, key := range keys {
		switch v := attrs[key].(type) {
		case float64:
			d := decimal.NewFromFloat(v)
			return &d
		case int64:
			d := decimal.NewFromInt(v)
			return &d
		case string:
			if d, err := decimal.NewFromString(v); err == nil {
				return &d
			}
		}
	}
	return nil
}

func optionalString(s string, ok bool) *string {
	if !ok || s == "" {
		return nil
	}
	return &s
}
