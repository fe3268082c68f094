package shared

import (
	"net/url"
	"strconv"
)

const (
	// DefaultLimit applies when a list request omits limit.
	DefaultLimit = 50
	// MaxLimit caps a single page.
	MaxLimit = 500
)

// ListFilters carries paging for list endpoints.
type ListFilters struct {
	Limit  int
	Offset int
	Search string
}

// ParseListFilters reads limit, offset and search from a query string, clamping
// out-of-range values instead of rejecting them.
func ParseListFilters(q url.Values) ListFilters {
	f := ListFilters{Limit: DefaultLimit, Search: q.Get("search")}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 {
		f.Limit = v
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	if v, err := strconv.Atoi(q.Get("offset")); err == nil && v > 0 {
		f.Offset = v
	}
	return f
}
