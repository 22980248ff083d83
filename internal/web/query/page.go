package query

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
)

// Pagination parameters
const (
	PageParam  = "page"
	LimitParam = "limit"
)

// Page is a 1-based page request
type Page struct {
	Number int
	Limit  int
}

// Offset returns the number of rows to skip
func (p Page) Offset() int {
	return (p.Number - 1) * p.Limit
}

// TotalPages returns ceil(total/limit)
func (p Page) TotalPages(total int64) int64 {
	if p.Limit <= 0 {
		return 0
	}
	limit := int64(p.Limit)
	return (total + limit - 1) / limit
}

// ParsePage reads page and limit. Limits above maxLimit are clamped.
func ParsePage(values url.Values, defaultLimit, maxLimit int) (Page, error) {
	page := Page{Number: 1, Limit: defaultLimit}

	if raw := values.Get(PageParam); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return Page{}, fmt.Errorf("%w: page must be a positive integer", ErrInvalidFilter)
		}
		page.Number = n
	}

	if raw := values.Get(LimitParam); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return Page{}, fmt.Errorf("%w: limit must be a positive integer", ErrInvalidFilter)
		}
		page.Limit = n
	}

	if maxLimit > 0 && page.Limit > maxLimit {
		page.Limit = maxLimit
	}

	// the offset must fit in an int
	if page.Number-1 > math.MaxInt/page.Limit {
		return Page{}, fmt.Errorf("%w: page is out of range", ErrInvalidFilter)
	}

	return page, nil
}
