package common

import (
	"net/http"
	"strconv"
)

const (
	// DefaultPageLimit is used when no limit query parameter is given
	DefaultPageLimit = 50
	// MaxPageLimit caps the limit query parameter
	MaxPageLimit = 200
)

// PageRequest carries pagination parameters parsed from the query string
type PageRequest struct {
	Limit  int
	Offset int
}

// ParsePageRequest reads limit and offset from the request query string,
// clamping them to sane bounds
func ParsePageRequest(r *http.Request) PageRequest {
	page := PageRequest{Limit: DefaultPageLimit}

	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			page.Limit = v
		}
	}
	if page.Limit > MaxPageLimit {
		page.Limit = MaxPageLimit
	}

	if raw := r.URL.Query().Get("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			page.Offset = v
		}
	}

	return page
}

// Slice applies the page window to a total count, returning start and end
// indexes suitable for slicing
func (p PageRequest) Slice(total int) (int, int) {
	start := p.Offset
	if start > total {
		start = total
	}
	end := start + p.Limit
	if end > total {
		end = total
	}
	return start, end
}

// Info builds the pagination metadata for a response
func (p PageRequest) Info(total int) *PaginationInfo {
	return &PaginationInfo{
		Limit:   p.Limit,
		Offset:  p.Offset,
		Total:   total,
		HasNext: p.Offset+p.Limit < total,
	}
}
