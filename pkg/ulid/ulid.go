// Package ulid wraps oklog/ulid with the helpers the rest of the codebase
// needs: monotonic generation, parsing, and SQL/JSON round-tripping for
// char(26) identifier columns.
package ulid

import (
	"crypto/rand"
	"database/sql/driver"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ULID is a 26-character Crockford base32 identifier, lexicographically
// sortable by creation time.
type ULID struct {
	ulid.ULID
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// New generates a new ULID. Generation is monotonic within this process so
// IDs created in the same millisecond still sort in creation order.
func New() ULID {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ULID{ulid.MustNew(ulid.Timestamp(time.Now().UTC()), entropy)}
}

// NewString generates a new ULID and returns its string form.
func NewString() string {
	return New().String()
}

// Parse parses a 26-character ULID string.
func Parse(s string) (ULID, error) {
	id, err := ulid.ParseStrict(s)
	if err != nil {
		return ULID{}, fmt.Errorf("parse ulid %q: %w", s, err)
	}
	return ULID{id}, nil
}

// MustParse parses a ULID string and panics on failure. For tests and
// compile-time constants only.
func MustParse(s string) ULID {
	id, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return id
}

// IsZero reports whether the ULID is the zero value.
func (u ULID) IsZero() bool {
	return u.ULID == (ulid.ULID{})
}

// Value implements driver.Valuer, storing the ULID as its string form.
func (u ULID) Value() (driver.Value, error) {
	return u.String(), nil
}

// Scan implements sql.Scanner, accepting string and []byte columns.
func (u *ULID) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*u = ULID{}
		return nil
	case string:
		parsed, err := Parse(v)
		if err != nil {
			return err
		}
		*u = parsed
		return nil
	case []byte:
		parsed, err := Parse(string(v))
		if err != nil {
			return err
		}
		*u = parsed
		return nil
	default:
		return fmt.Errorf("scan ulid: unsupported source type %T", src)
	}
}

// MarshalJSON encodes the ULID as a JSON string.
func (u ULID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + u.String() + `"`), nil
}

// UnmarshalJSON decodes a ULID from a JSON string.
func (u *ULID) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("unmarshal ulid: not a JSON string: %s", data)
	}
	parsed, err := Parse(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

// GormDataType tells gorm how to map the column when auto-migrating in tests.
func (ULID) GormDataType() string {
	return "char(26)"
}
