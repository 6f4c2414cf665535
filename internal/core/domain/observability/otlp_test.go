package observability

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOTLPTraceIDDecode(t *testing.T) {
	raw, err := hex.DecodeString("0123456789abcdef0123456789abcdef")
	require.NoError(t, err)

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "hex passthrough", input: "0123456789abcdef0123456789abcdef", want: "0123456789abcdef0123456789abcdef"},
		{name: "hex uppercased", input: "0123456789ABCDEF0123456789ABCDEF", want: "0123456789abcdef0123456789abcdef"},
		{name: "base64 std", input: base64.StdEncoding.EncodeToString(raw), want: "0123456789abcdef0123456789abcdef"},
		{name: "base64 raw url", input: base64.RawURLEncoding.EncodeToString(raw), want: "0123456789abcdef0123456789abcdef"},
		{name: "empty is absent", input: "", want: ""},
		{name: "all zero is absent", input: "00000000000000000000000000000000", want: ""},
		{name: "wrong length", input: "abcd", wantErr: true},
		{name: "garbage", input: "zz!!not-an-id-at-all-whatsoever!", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.input)
			require.NoError(t, err)

			var id OTLPTraceID
			err = id.UnmarshalJSON(data)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(id))
		})
	}
}

// Round-trip property: for any byte value, base64 and hex renderings decode
// to the same canonical hex.
func TestOTLPSpanIDRoundTrip(t *testing.T) {
	for _, seed := range []string{"fedcba9876543210", "aaaaaaaaaaaaaaaa", "0000000000000001"} {
		raw, err := hex.DecodeString(seed)
		require.NoError(t, err)

		var fromHex, fromB64 OTLPSpanID
		require.NoError(t, fromHex.UnmarshalJSON([]byte(`"`+seed+`"`)))
		require.NoError(t, fromB64.UnmarshalJSON([]byte(`"`+base64.StdEncoding.EncodeToString(raw)+`"`)))
		assert.Equal(t, fromHex, fromB64, "seed %s", seed)
		assert.Equal(t, seed, string(fromHex))
	}
}

func TestOTLPSpanIDZeroParentIsAbsent(t *testing.T) {
	var id OTLPSpanID
	zero := base64.StdEncoding.EncodeToString(make([]byte, 8))
	require.NoError(t, id.UnmarshalJSON([]byte(`"`+zero+`"`)))
	assert.Empty(t, string(id))
}

func TestOTLPNanos(t *testing.T) {
	var n OTLPNanos
	require.NoError(t, n.UnmarshalJSON([]byte(`"1700000000000000000"`)))
	assert.Equal(t, time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC), n.Time())
	assert.False(t, n.IsZero())

	require.NoError(t, n.UnmarshalJSON([]byte(`1700000000000000000`)))
	assert.Equal(t, OTLPNanos(1700000000000000000), n)

	require.NoError(t, n.UnmarshalJSON([]byte(`null`)))
	assert.True(t, n.IsZero())

	assert.Error(t, n.UnmarshalJSON([]byte(`"not-a-number"`)))
}

func TestOTLPStatusCode(t *testing.T) {
	tests := []struct {
		input string
		want  OTLPStatusCode
	}{
		{`2`, OTLPStatusCodeError},
		{`"STATUS_CODE_ERROR"`, OTLPStatusCodeError},
		{`"ERROR"`, OTLPStatusCodeError},
		{`1`, OTLPStatusCodeOK},
		{`"STATUS_CODE_OK"`, OTLPStatusCodeOK},
		{`0`, OTLPStatusCodeUnset},
		{`"STATUS_CODE_UNSET"`, OTLPStatusCodeUnset},
		{`"anything-else"`, OTLPStatusCodeUnset},
	}
	for _, tt := range tests {
		var c OTLPStatusCode
		require.NoError(t, c.UnmarshalJSON([]byte(tt.input)), tt.input)
		assert.Equal(t, tt.want, c, tt.input)
	}
}

func TestFlattenAttributes(t *testing.T) {
	blob := `[
		{"key": "str", "value": {"stringValue": "hello"}},
		{"key": "int", "value": {"intValue": "42"}},
		{"key": "bool", "value": {"boolValue": true}},
		{"key": "dbl", "value": {"doubleValue": 1.5}},
		{"key": "arr", "value": {"arrayValue": {"values": [{"stringValue": "a"}, {"intValue": "2"}]}}},
		{"key": "kv", "value": {"kvlistValue": {"values": [{"key": "nested", "value": {"stringValue": "x"}}]}}}
	]`
	var kvs []OTLPKeyValue
	require.NoError(t, json.Unmarshal([]byte(blob), &kvs))

	flat := FlattenAttributes(kvs)
	assert.Equal(t, "hello", flat["str"])
	assert.Equal(t, int64(42), flat["int"])
	assert.Equal(t, true, flat["bool"])
	assert.Equal(t, 1.5, flat["dbl"])
	assert.Equal(t, []any{"a", int64(2)}, flat["arr"])
	assert.Equal(t, map[string]any{"nested": "x"}, flat["kv"])
}

func TestFlattenAttributesEmpty(t *testing.T) {
	assert.Nil(t, FlattenAttributes(nil))

	var empty OTLPAnyValue
	assert.Nil(t, empty.Flatten())
}
