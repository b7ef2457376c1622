package storex

// Page represents pagination metadata
type Page struct {
	Number int `json:"page"`
	Size   int `json:"page_size"`
	Total  int `json:"total"`
	Pages  int `json:"pages"`
}

// Paginated is a generic container for paginated data with metadata
type Paginated[T any] struct {
	Data  []T  `json:"data"`
	Page  Page `json:"pagination"`
	Empty bool `json:"empty"`
}

// NewPaginated creates a new paginated result with calculated fields
func NewPaginated[T any](data []T, page, size, total int) Paginated[T] {
	pages := 0
	if size > 0 {
		pages = (total + size - 1) / size
	}
	if data == nil {
		data = []T{}
	}
	return Paginated[T]{
		Data:  data,
		Page:  Page{Number: page, Size: size, Total: total, Pages: pages},
		Empty: len(data) == 0,
	}
}

// HasNext returns whether there are more pages after the current one
func (p Paginated[T]) HasNext() bool {
	return p.Page.Number < p.Page.Pages
}

const (
	DefaultPageSize = 25
	MaxPageSize     = 100
)

// PageRequest is a 1-based page selection
type PageRequest struct {
	Page     int
	PageSize int
}

// Normalize clamps the request into valid bounds
func (r PageRequest) Normalize() PageRequest {
	if r.Page < 1 {
		r.Page = 1
	}
	if r.PageSize < 1 {
		r.PageSize = DefaultPageSize
	}
	if r.PageSize > MaxPageSize {
		r.PageSize = MaxPageSize
	}
	return r
}

// Offset is the number of rows to skip
func (r PageRequest) Offset() int {
	n := r.Normalize()
	return (n.Page - 1) * n.PageSize
}
