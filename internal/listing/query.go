package listing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Sortable columns
const (
	SortCreatedAt = "created_at"
	SortPrice     = "price"
	SortYear      = "year"
	SortTitle     = "title"
)

// Filter is the resolved set of predicates applied to listings. Every
// non-empty field is ANDed.
type Filter struct {
	Statuses      []string
	SellerID      *uuid.UUID
	BrandID       *uuid.UUID
	ModelIDs      []uuid.UUID
	Reference     string
	Year          string
	DialColor     string
	Condition     string
	Included      string
	ListingType   string
	ShippingDelay string
	MinPrice      *decimal.Decimal
	MaxPrice      *decimal.Decimal
	Search        string
	Before        *time.Time
}

// Order is a sort column and direction. Rows are always tie-broken by id
// in the same direction.
type Order struct {
	Column string
	Desc   bool
}

// Query is what a Store executes: the filter, ordering and row window.
// Total counts rows matching Filter with Before ignored.
type Query struct {
	Filter Filter
	Order  Order
	Offset int
	Limit  int
}
