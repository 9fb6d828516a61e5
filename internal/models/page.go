package models

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// Page is a normalised page request.
type Page struct {
	Number int
	Limit  int
}

// NewPage clamps number and limit into their valid ranges.
func NewPage(number, limit int) Page {
	if number < 1 {
		number = 1
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return Page{Number: number, Limit: limit}
}

func (p Page) Offset() int {
	p = NewPage(p.Number, p.Limit)
	return (p.Number - 1) * p.Limit
}

type Pagination struct {
	CurrentPage int `json:"currentPage"`
	TotalPages  int `json:"totalPages"`
	TotalItems  int `json:"totalItems"`
	Limit       int `json:"limit"`
}

func NewPagination(p Page, total int) Pagination {
	p = NewPage(p.Number, p.Limit)
	pages := 0
	if total > 0 {
		pages = (total + p.Limit - 1) / p.Limit
	}
	return Pagination{
		CurrentPage: p.Number,
		TotalPages:  pages,
		TotalItems:  total,
		Limit:       p.Limit,
	}
}
