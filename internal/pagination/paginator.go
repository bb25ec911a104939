// Package pagination splits ordered listings into numbered pages.
//
// Page numbers come from an untrusted query parameter, so nothing here fails:
// absent or malformed numbers select the first page, numbers below one select
// the first page and numbers past the end select the last page.
package pagination

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// DefaultPageSize is used when a Paginator is built with a non-positive size.
const DefaultPageSize = 10

// Paginator carries the configured page size.
type Paginator struct {
	pageSize int
}

// New returns a Paginator producing pages of pageSize items.
func New(pageSize int) Paginator {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	return Paginator{pageSize: pageSize}
}

// PageSize returns the number of items per page.
func (p Paginator) PageSize() int {
	return p.pageSize
}

// Window is the resolved position of one page inside a listing of Total items.
type Window struct {
	Number   int `json:"number"`
	PageSize int `json:"page_size"`
	Total    int `json:"total"`
	NumPages int `json:"num_pages"`
	Offset   int `json:"-"`
	Limit    int `json:"-"`
}

// ParsePage converts the raw page parameter into a 1-based page number.
// Absent or non-numeric input yields 1. Integers too large for int saturate
// at math.MaxInt or math.MinInt. The result is not clamped.
func ParsePage(raw string) int {
	raw = strings.TrimSpace(raw)
	n, err := strconv.Atoi(raw)
	if errors.Is(err, strconv.ErrRange) {
		if strings.HasPrefix(raw, "-") {
			return math.MinInt
		}
		return math.MaxInt
	}
	if err != nil {
		return 1
	}
	return n
}

// Resolve computes the window for the requested raw page over total items.
func (p Paginator) Resolve(total int, raw string) Window {
	if total < 0 {
		total = 0
	}
	numPages := 1
	if total > 0 {
		numPages = (total + p.pageSize - 1) / p.pageSize
	}

	number := ParsePage(raw)
	if number < 1 {
		number = 1
	}
	if number > numPages {
		number = numPages
	}

	offset := (number - 1) * p.pageSize
	limit := p.pageSize
	if offset+limit > total {
		limit = total - offset
	}

	return Window{
		Number:   number,
		PageSize: p.pageSize,
		Total:    total,
		NumPages: numPages,
		Offset:   offset,
		Limit:    limit,
	}
}

// HasNext reports whether a page follows this one.
func (w Window) HasNext() bool {
	return w.Number < w.NumPages
}

// HasPrevious reports whether a page precedes this one.
func (w Window) HasPrevious() bool {
	return w.Number > 1
}

// Page is a slice of items plus its navigation metadata.
type Page[T any] struct {
	Items []T  `json:"items"`
	Meta  Meta `json:"page"`
}

// Meta is the navigation block rendered next to a page of items.
type Meta struct {
	Number      int  `json:"number"`
	PageSize    int  `json:"page_size"`
	TotalItems  int  `json:"total_items"`
	NumPages    int  `json:"num_pages"`
	HasNext     bool `json:"has_next"`
	HasPrevious bool `json:"has_previous"`
	Next        *int `json:"next,omitempty"`
	Previous    *int `json:"previous,omitempty"`
}

// NewPage wraps items already fetched for window w.
func NewPage[T any](items []T, w Window) Page[T] {
	if items == nil {
		items = []T{}
	}
	meta := Meta{
		Number:      w.Number,
		PageSize:    w.PageSize,
		TotalItems:  w.Total,
		NumPages:    w.NumPages,
		HasNext:     w.HasNext(),
		HasPrevious: w.HasPrevious(),
	}
	if meta.HasNext {
		next := w.Number + 1
		meta.Next = &next
	}
	if meta.HasPrevious {
		prev := w.Number - 1
		meta.Previous = &prev
	}
	return Page[T]{Items: items, Meta: meta}
}

// Paginate returns the requested page of an in-memory ordered sequence.
// The returned Items share the backing array of items.
func Paginate[T any](p Paginator, items []T, raw string) Page[T] {
	w := p.Resolve(len(items), raw)
	return NewPage(items[w.Offset:w.Offset+w.Limit], w)
}
