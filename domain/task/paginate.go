package task

// Page is one slice of an ordered result plus the metadata needed to render
// pagination controls.
type Page[T any] struct {
	Items       []T  `json:"items"`
	PageNumber  int  `json:"page_number"`
	PageSize    int  `json:"page_size"`
	TotalCount  int  `json:"total_count"`
	TotalPages  int  `json:"total_pages"`
	HasPrevious bool `json:"has_previous"`
	HasNext     bool `json:"has_next"`
}

// Paginate slices items into the requested page.
//
// pageNumber below 1 is treated as 1. A pageSize of 0 (or less) returns every
// item on a single page. A page past the end is empty, not an error.
func Paginate[T any](items []T, pageNumber, pageSize int) Page[T] {
	if pageNumber < 1 {
		pageNumber = 1
	}
	total := len(items)
	if pageSize <= 0 {
		pageSize = total
	}

	page := Page[T]{
		Items:      []T{},
		PageNumber: pageNumber,
		PageSize:   pageSize,
		TotalCount: total,
	}
	if pageSize > 0 {
		page.TotalPages = total / pageSize
		if total%pageSize != 0 {
			page.TotalPages++
		}
	}

	// start < total here, so huge page sizes cannot overflow.
	if pageNumber <= page.TotalPages {
		start := (pageNumber - 1) * pageSize
		end := total
		if total-start > pageSize {
			end = start + pageSize
		}
		page.Items = append(page.Items, items[start:end]...)
	}

	page.HasPrevious = pageNumber > 1
	page.HasNext = pageNumber < page.TotalPages
	return page
}

// MapPage converts the items of p while keeping its metadata.
func MapPage[T, U any](p Page[T], f func(T) U) Page[U] {
	out := Page[U]{
		Items:       make([]U, 0, len(p.Items)),
		PageNumber:  p.PageNumber,
		PageSize:    p.PageSize,
		TotalCount:  p.TotalCount,
		TotalPages:  p.TotalPages,
		HasPrevious: p.HasPrevious,
		HasNext:     p.HasNext,
	}
	for _, item := range p.Items {
		out.Items = append(out.Items, f(item))
	}
	return out
}
