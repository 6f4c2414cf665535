package observability

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// OTLP JSON shapes as stored by the ingestion endpoint: protojson output of
// an ExportTraceServiceRequest. Decoding is deliberately lenient about the
// two representations seen in the wild — protojson base64 IDs with string
// int64s, and pre-rendered hex IDs with numeric fields — and normalizes both
// to one canonical form (lowercase hex IDs, uint64 nanos).

// OTLPPayload is the root of a stored trace blob.
type OTLPPayload struct {
	ResourceSpans []OTLPResourceSpans `json:"resourceSpans"`
}

// OTLPResourceSpans groups spans sharing one resource.
type OTLPResourceSpans struct {
	Resource   OTLPResource     `json:"resource"`
	ScopeSpans []OTLPScopeSpans `json:"scopeSpans"`
}

// OTLPResource carries resource-level attributes such as the deployment
// environment and service version.
type OTLPResource struct {
	Attributes []OTLPKeyValue `json:"attributes"`
}

// OTLPScopeSpans groups spans emitted by one instrumentation scope.
type OTLPScopeSpans struct {
	Scope OTLPScope  `json:"scope"`
	Spans []OTLPSpan `json:"spans"`
}

// OTLPScope identifies the emitting instrumentation library.
type OTLPScope struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// OTLPSpan is a single span record. The OTel kind field is not consumed;
// span classification derives from attributes.
type OTLPSpan struct {
	TraceID           OTLPTraceID    `json:"traceId"`
	SpanID            OTLPSpanID     `json:"spanId"`
	ParentSpanID      OTLPSpanID     `json:"parentSpanId"`
	Name              string         `json:"name"`
	StartTimeUnixNano OTLPNanos      `json:"startTimeUnixNano"`
	EndTimeUnixNano   OTLPNanos      `json:"endTimeUnixNano"`
	Attributes        []OTLPKeyValue `json:"attributes"`
	Status            OTLPStatus     `json:"status"`
}

// OTLPTraceID is a 16-byte trace id normalized to 32 lowercase hex chars.
// Absent and all-zero ids decode to the empty string.
type OTLPTraceID string

func (id *OTLPTraceID) UnmarshalJSON(data []byte) error {
	s, err := decodeOTLPID(data, 16)
	if err != nil {
		return fmt.Errorf("trace id: %w", err)
	}
	*id = OTLPTraceID(s)
	return nil
}

// OTLPSpanID is an 8-byte span id normalized to 16 lowercase hex chars.
// Absent and all-zero ids decode to the empty string.
type OTLPSpanID string

func (id *OTLPSpanID) UnmarshalJSON(data []byte) error {
	s, err := decodeOTLPID(data, 8)
	if err != nil {
		return fmt.Errorf("span id: %w", err)
	}
	*id = OTLPSpanID(s)
	return nil
}

// decodeOTLPID accepts hex or base64 (standard and URL alphabets, padded or
// raw) of exactly byteLen bytes and returns lowercase hex. All-zero bytes
// normalize to "".
func decodeOTLPID(data []byte, byteLen int) (string, error) {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return "", fmt.Errorf("not a JSON string: %w", err)
	}
	if s == "" {
		return "", nil
	}

	if len(s) == byteLen*2 {
		if raw, err := hex.DecodeString(s); err == nil {
			return zeroToEmpty(raw), nil
		}
	}
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding, base64.RawStdEncoding,
		base64.URLEncoding, base64.RawURLEncoding,
	} {
		raw, err := enc.DecodeString(s)
		if err == nil && len(raw) == byteLen {
			return zeroToEmpty(raw), nil
		}
	}
	return "", fmt.Errorf("value %q is neither %d-byte hex nor base64", s, byteLen)
}

func zeroToEmpty(raw []byte) string {
	for _, b := range raw {
		if b != 0 {
			return hex.EncodeToString(raw)
		}
	}
	return ""
}

// OTLPNanos is a nanosecond unix timestamp. protojson renders uint64 as a
// JSON string; plain numbers are accepted too. Zero means absent.
type OTLPNanos uint64

func (n *OTLPNanos) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	u, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("timestamp %q: %w", s, err)
	}
	*n = OTLPNanos(u)
	return nil
}

// IsZero reports whether the timestamp is absent.
func (n OTLPNanos) IsZero() bool { return n == 0 }

// Time converts the nanosecond count to a UTC time.
func (n OTLPNanos) Time() time.Time { return time.Unix(0, int64(n)).UTC() }

// OTLPStatus is the span outcome as reported by the SDK.
type OTLPStatus struct {
	Code    OTLPStatusCode `json:"code"`
	Message string         `json:"message"`
}

// OTLPStatusCode accepts the protojson enum name or the numeric code.
type OTLPStatusCode int32

const (
	OTLPStatusCodeUnset OTLPStatusCode = 0
	OTLPStatusCodeOK    OTLPStatusCode = 1
	OTLPStatusCodeError OTLPStatusCode = 2
)

func (c *OTLPStatusCode) UnmarshalJSON(data []byte) error {
	var n int32
	if err := json.Unmarshal(data, &n); err == nil {
		*c = OTLPStatusCode(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("status code: %s", data)
	}
	switch strings.ToUpper(s) {
	case "STATUS_CODE_ERROR", "ERROR":
		*c = OTLPStatusCodeError
	case "STATUS_CODE_OK", "OK":
		*c = OTLPStatusCodeOK
	default:
		*c = OTLPStatusCodeUnset
	}
	return nil
}

// OTLPKeyValue is one attribute entry.
type OTLPKeyValue struct {
	Key   string       `json:"key"`
	Value OTLPAnyValue `json:"value"`
}

// OTLPAnyValue is the OTLP tagged value union.
type OTLPAnyValue struct {
	StringValue *string         `json:"stringValue,omitempty"`
	BoolValue   *bool           `json:"boolValue,omitempty"`
	IntValue    *OTLPInt64      `json:"intValue,omitempty"`
	DoubleValue *float64        `json:"doubleValue,omitempty"`
	ArrayValue  *OTLPArrayValue `json:"arrayValue,omitempty"`
	KvlistValue *OTLPKvlist     `json:"kvlistValue,omitempty"`
	BytesValue  *string         `json:"bytesValue,omitempty"`
}

// OTLPArrayValue is a homogeneous or mixed list of values.
type OTLPArrayValue struct {
	Values []OTLPAnyValue `json:"values"`
}

// OTLPKvlist is a nested attribute map.
type OTLPKvlist struct {
	Values []OTLPKeyValue `json:"values"`
}

// OTLPInt64 accepts protojson's string-encoded int64 as well as plain
// numbers.
type OTLPInt64 int64

func (i *OTLPInt64) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("int value %q: %w", s, err)
	}
	*i = OTLPInt64(n)
	return nil
}

// Flatten unwraps the union into a native Go value: string, bool, int64,
// float64, []any or map[string]any. Bytes stay base64 strings. An empty
// union flattens to nil.
func (v OTLPAnyValue) Flatten() any {
	switch {
	case v.StringValue != nil:
		return *v.StringValue
	case v.BoolValue != nil:
		return *v.BoolValue
	case v.IntValue != nil:
		return int64(*v.IntValue)
	case v.DoubleValue != nil:
		return *v.DoubleValue
	case v.ArrayValue != nil:
		out := make([]any, 0, len(v.ArrayValue.Values))
		for _, elem := range v.ArrayValue.Values {
			out = append(out, elem.Flatten())
		}
		return out
	case v.KvlistValue != nil:
		out := make(map[string]any, len(v.KvlistValue.Values))
		for _, kv := range v.KvlistValue.Values {
			out[kv.Key] = kv.Value.Flatten()
		}
		return out
	case v.BytesValue != nil:
		return *v.BytesValue
	default:
		return nil
	}
}

// FlattenAttributes converts an OTLP attribute list into a flat map.
func FlattenAttributes(kvs []OTLPKeyValue) map[string]any {
	if len(kvs) == 0 {
		return nil
	}
	out := make(map[string]any, len(kvs))
	for _, kv := range kvs {
		if kv.Key == "" {
			continue
		}
		out[kv.Key] = kv.Value.Flatten()
	}
	return out
}
