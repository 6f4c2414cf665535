// Package pagination holds the page/limit request parameters and the meta
// block echoed back on list responses. Pages are zero-based.
package pagination

const (
	DefaultLimit = 50
	MaxLimit     = 100
)

// Params are the query parameters accepted by list endpoints.
type Params struct {
	Page  int `form:"page" json:"page"`
	Limit int `form:"limit" json:"limit"`
}

// Normalize clamps the parameters into their valid ranges: page >= 0,
// 1 <= limit <= MaxLimit, with DefaultLimit when limit is unset.
func (p Params) Normalize() Params {
	if p.Page < 0 {
		p.Page = 0
	}
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

// Offset returns the row offset for the page.
func (p Params) Offset() int {
	return p.Page * p.Limit
}

// Meta is the pagination block of a list response.
type Meta struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}

// NewMeta builds the meta block for normalized params and a total row count.
func NewMeta(p Params, total int64) Meta {
	return Meta{Page: p.Page, Limit: p.Limit, Total: total}
}
