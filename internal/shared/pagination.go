package shared

import "math"

// DefaultPageSize is used when a listing does not ask for a limit.
const DefaultPageSize = 20

// Pagination contains metadata for paginated listings. It mirrors the
// backend's {page, limit, total, pages} block.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// NewPagination computes pagination metadata.
func NewPagination(page, limit, total int) Pagination {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if page <= 0 {
		page = 1
	}
	if total < 0 {
		total = 0
	}
	pages := int(math.Ceil(float64(total) / float64(limit)))
	return Pagination{Page: page, Limit: limit, Total: total, Pages: pages}
}

// Normalize fills a backend block that omitted pages or limit.
func (p Pagination) Normalize() Pagination {
	if p.Pages > 0 && p.Limit > 0 && p.Page > 0 {
		return p
	}
	return NewPagination(p.Page, p.Limit, p.Total)
}

// HasPrev reports whether a previous page exists.
func (p Pagination) HasPrev() bool {
	return p.Page > 1
}

// HasNext reports whether the Next control is enabled.
func (p Pagination) HasNext() bool {
	return p.Page < p.Pages
}

// Prev returns the previous page number, clamped to 1.
func (p Pagination) Prev() int {
	if p.Page <= 1 {
		return 1
	}
	return p.Page - 1
}

// Next returns the next page number, clamped to the last page.
func (p Pagination) Next() int {
	if !p.HasNext() {
		return p.Page
	}
	return p.Page + 1
}

// Clamp returns the page limited to the known page range.
func (p Pagination) Clamp(page int) int {
	if page < 1 {
		return 1
	}
	if p.Pages > 0 && page > p.Pages {
		return p.Pages
	}
	return page
}

// From is the 1-based index of the first row on the page.
func (p Pagination) From() int {
	if p.Total == 0 {
		return 0
	}
	return (p.Page-1)*p.Limit + 1
}

// To is the 1-based index of the last row on the page.
func (p Pagination) To() int {
	to := p.Page * p.Limit
	if to > p.Total {
		return p.Total
	}
	return to
}
