package listing

import (
	"math"
	"time"

	"github.com/CyrilCartoux/watch-pros-sub002/internal/model"
)

// CursorLayout formats nextCursor and parses after
const CursorLayout = time.RFC3339Nano

// Page is the search response envelope. Page and TotalPages are only set
// in offset mode.
type Page struct {
	Listings   []Listing `json:"listings"`
	Total      int64     `json:"total"`
	Page       *int      `json:"page,omitempty"`
	Limit      int       `json:"limit"`
	TotalPages *int      `json:"totalPages,omitempty"`
	NextCursor *string   `json:"nextCursor"`
}

// Offset returns the index of the first row of the requested page
func (p SearchParams) Offset() int {
	if p.Cursor() || p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// TotalPages returns ceil(total/limit)
func TotalPages(total int64, limit int) int {
	if limit <= 0 {
		return 0
	}
	return int(math.Ceil(float64(total) / float64(limit)))
}

// NextCursor returns the created_at of the last row when the page is full
// and rows are on the newest-first timeline; nil means end of stream
func NextCursor(rows []model.Listing, limit int, order Order) *string {
	if len(rows) == 0 || len(rows) < limit {
		return nil
	}
	if order.Column != SortCreatedAt || !order.Desc {
		return nil
	}
	c := rows[len(rows)-1].CreatedAt.UTC().Format(CursorLayout)
	return &c
}

// NewPage shapes rows and fills in the paging fields for p
func NewPage(rows []model.Listing, total int64, p SearchParams) Page {
	page := Page{
		Listings:   ShapeAll(rows),
		Total:      total,
		Limit:      p.Limit,
		NextCursor: NextCursor(rows, p.Limit, p.Order),
	}
	if !p.Cursor() {
		n, pages := p.Page, TotalPages(total, p.Limit)
		page.Page = &n
		page.TotalPages = &pages
	}
	return page
}

// EmptyPage is returned when a filter cannot match anything
func EmptyPage(p SearchParams) Page {
	return NewPage(nil, 0, p)
}
