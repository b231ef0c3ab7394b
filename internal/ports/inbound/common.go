// Package inbound defines the interfaces for inbound ports (primary/driving adapters)
// These are the interfaces that the application exposes to the outside world
package inbound

// PaginationParams for paginated queries. Page is 1-based.
type PaginationParams struct {
	Page     int
	PageSize int
}

// Normalize clamps the page to 1 and the size to [1, maxSize].
func (p PaginationParams) Normalize(defaultSize, maxSize int) PaginationParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = defaultSize
	}
	if maxSize > 0 && p.PageSize > maxSize {
		p.PageSize = maxSize
	}
	return p
}

func (p PaginationParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// Pagination describes the page a list response holds.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// NewPagination computes the page count for total items.
func NewPagination(params PaginationParams, total int64) Pagination {
	pages := 0
	if params.PageSize > 0 {
		pages = int((total + int64(params.PageSize) - 1) / int64(params.PageSize))
	}
	return Pagination{
		Page:       params.Page,
		PageSize:   params.PageSize,
		Total:      total,
		TotalPages: pages,
	}
}

func (p Pagination) HasPrev() bool { return p.Page > 1 }
func (p Pagination) HasNext() bool { return p.Page < p.TotalPages }
func (p Pagination) PrevNum() int  { return p.Page - 1 }
func (p Pagination) NextNum() int  { return p.Page + 1 }

// Pages lists page numbers for a pager, with 0 marking a gap.
func (p Pagination) Pages() []int {
	var pages []int
	last := 0
	for n := 1; n <= p.TotalPages; n++ {
		if n <= 2 || n > p.TotalPages-2 || (n >= p.Page-2 && n <= p.Page+4) {
			if last+1 != n {
				pages = append(pages, 0)
			}
			pages = append(pages, n)
			last = n
		}
	}
	return pages
}
