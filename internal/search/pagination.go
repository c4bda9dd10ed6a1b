package search

// DefaultPageSize matches the number of results OMDb returns per page.
const DefaultPageSize = 10

// TotalPages returns ceil(total/size). A non-positive size selects
// DefaultPageSize.
func TotalPages(total, size int) int {
	if size <= 0 {
		size = DefaultPageSize
	}
	if total <= 0 {
		return 0
	}
	return (total + size - 1) / size
}

// ClampPage pulls requested into [1, max(1, totalPages)]. Out of range
// navigation is never an error.
func ClampPage(requested, totalPages int) int {
	upper := max(1, totalPages)
	return max(1, min(requested, upper))
}

// Pagination describes where the user is in a result set.
type Pagination struct {
	Current      int `json:"current"`
	TotalResults int `json:"totalResults"`
	PageSize     int `json:"pageSize"`
}

func NewPagination(current, totalResults, pageSize int) Pagination {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	p := Pagination{TotalResults: max(0, totalResults), PageSize: pageSize}
	p.Current = ClampPage(current, p.TotalPages())
	return p
}

func (p Pagination) TotalPages() int { return TotalPages(p.TotalResults, p.PageSize) }

func (p Pagination) HasPrev() bool { return p.Current > 1 }

func (p Pagination) HasNext() bool { return p.Current < p.TotalPages() }

// Clamp bounds a navigation request against this result set.
func (p Pagination) Clamp(requested int) int { return ClampPage(requested, p.TotalPages()) }

// Window returns up to maxVisible consecutive page numbers, starting half a
// window before the current page and clipped to the last page. It is empty
// when there is at most one page.
func (p Pagination) Window(maxVisible int) []int {
	total := p.TotalPages()
	if total <= 1 || maxVisible <= 0 {
		return nil
	}
	start := max(1, p.Current-maxVisible/2)
	end := min(total, start+maxVisible-1)

	pages := make([]int, 0, end-start+1)
	for n := start; n <= end; n++ {
		pages = append(pages, n)
	}
	return pages
}
