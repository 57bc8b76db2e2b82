package listing

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/CyrilCartoux/watch-pros-sub002/internal/apperr"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SearchParams are the parsed query string of a listing search
type SearchParams struct {
	Brand         Ref
	Model         Ref
	Reference     string
	SellerID      *uuid.UUID
	Status        string
	Year          string
	DialColor     string
	Condition     string
	Included      string
	ListingType   string
	ShippingDelay string
	MinPrice      *decimal.Decimal
	MaxPrice      *decimal.Decimal
	Search        string
	Order         Order
	Page          int
	Limit         int
	After         *time.Time
}

// Cursor reports whether the request pages by cursor rather than offset
func (p SearchParams) Cursor() bool {
	return p.After != nil
}

var sortAliases = map[string]string{
	"created_at": SortCreatedAt,
	"createdAt":  SortCreatedAt,
	"date":       SortCreatedAt,
	"price":      SortPrice,
	"year":       SortYear,
	"title":      SortTitle,
}

// ParseSearchParams reads filters, sort and paging from a query string.
// Malformed prices, seller ids and cursors are validation errors; bad
// paging values fall back to defaults.
func ParseSearchParams(q url.Values, limits Limits) (SearchParams, error) {
	p := SearchParams{
		Brand:         ParseRef(q.Get("brand")),
		Model:         ParseRef(q.Get("model")),
		Reference:     strings.TrimSpace(q.Get("reference")),
		Status:        strings.TrimSpace(q.Get("status")),
		Year:          strings.TrimSpace(q.Get("year")),
		DialColor:     strings.TrimSpace(q.Get("dialColor")),
		Condition:     strings.TrimSpace(q.Get("condition")),
		Included:      strings.TrimSpace(q.Get("included")),
		ListingType:   strings.TrimSpace(q.Get("listingType")),
		ShippingDelay: strings.TrimSpace(q.Get("shippingDelay")),
		Search:        strings.TrimSpace(firstOf(q, "search", "query")),
	}

	if raw := strings.TrimSpace(q.Get("seller")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return p, apperr.Validation("seller", "invalid seller id")
		}
		p.SellerID = &id
	}

	var err error
	if p.MinPrice, err = parsePrice(q.Get("minPrice"), "minPrice"); err != nil {
		return p, err
	}
	if p.MaxPrice, err = parsePrice(q.Get("maxPrice"), "maxPrice"); err != nil {
		return p, err
	}

	// key and direction default independently
	p.Order = Order{Column: SortCreatedAt, Desc: true}
	if col, ok := sortAliases[strings.TrimSpace(q.Get("sort"))]; ok {
		p.Order.Column = col
	}
	p.Order.Desc = !strings.EqualFold(strings.TrimSpace(q.Get("order")), "asc")

	p.Limit = limits.clamp(atoiOr(q.Get("limit"), 0))
	p.Page = atoiOr(q.Get("page"), 1)
	if p.Page < 1 {
		p.Page = 1
	}

	if raw := strings.TrimSpace(q.Get("after")); raw != "" {
		after, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return p, apperr.Validation("after", "invalid cursor")
		}
		p.After = &after
		// cursors only make sense on the creation timeline
		p.Order = Order{Column: SortCreatedAt, Desc: true}
		p.Page = 0
	}

	return p, nil
}

// Limits bounds the page size
type Limits struct {
	Default int
	Max     int
}

func (l Limits) clamp(n int) int {
	def, hi := l.Default, l.Max
	if def <= 0 {
		def = 20
	}
	if hi <= 0 {
		hi = 100
	}
	switch {
	case n <= 0:
		return def
	case n > hi:
		return hi
	}
	return n
}

func parsePrice(raw, field string) (*decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, apperr.Validation(field, "invalid price")
	}
	return &d, nil
}

func atoiOr(raw string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return def
	}
	return n
}

func firstOf(q url.Values, keys ...string) string {
	for _, k := range keys {
		if v := q.Get(k); v != "" {
			return v
		}
	}
	return ""
}
