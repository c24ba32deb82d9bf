package pagination

import (
	"net/http"
	"strconv"
)

const (
	// DefaultLimit is the page size applied when none is requested.
	DefaultLimit = 20
	// MaxLimit bounds the page size a client may request.
	MaxLimit = 200
)

// Params holds pagination parameters extracted from query strings.
type Params struct {
	Page   int `json:"page"`
	Limit  int `json:"limit"`
	Offset int `json:"-"`
}

// DefaultParams returns sensible pagination defaults.
func DefaultParams() Params {
	return Params{
		Page:   1,
		Limit:  DefaultLimit,
		Offset: 0,
	}
}

// FromRequest extracts page and limit from an HTTP request, clamping to
// page ≥ 1 and 1 ≤ limit ≤ MaxLimit. Out-of-range values fall back to the
// defaults rather than erroring.
func FromRequest(r *http.Request) Params {
	p := DefaultParams()

	if page := r.URL.Query().Get("page"); page != "" {
		if v, err := strconv.Atoi(page); err == nil && v > 0 {
			p.Page = v
		}
	}

	if limit := r.URL.Query().Get("limit"); limit != "" {
		if v, err := strconv.Atoi(limit); err == nil && v > 0 && v <= MaxLimit {
			p.Limit = v
		}
	}

	p.Offset = (p.Page - 1) * p.Limit
	return p
}
