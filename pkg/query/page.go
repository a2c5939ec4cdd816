package query

// PageMeta describes the position of one page inside a full result set.
type PageMeta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
	HasNext    bool  `json:"hasNext"`
	HasPrev    bool  `json:"hasPrev"`
}

// Page bundles one page of rows with its pagination metadata.
type Page[T any] struct {
	Data       []T      `json:"data"`
	Pagination PageMeta `json:"pagination"`
}

// NewPage assembles a page envelope from fetched rows, the unfiltered total
// and the pagination that produced them. An empty result set reports zero
// total pages rather than one.
func NewPage[T any](rows []T, total int64, p Pagination) Page[T] {
	if rows == nil {
		rows = []T{}
	}

	totalPages := 0
	if total > 0 {
		totalPages = int((total + int64(p.Limit) - 1) / int64(p.Limit))
	}

	return Page[T]{
		Data: rows,
		Pagination: PageMeta{
			Page:       p.Page,
			Limit:      p.Limit,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    p.Page < totalPages,
			HasPrev:    p.Page > 1 && total > 0,
		},
	}
}
