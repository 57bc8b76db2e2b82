package repository

import (
	"strings"

	"github.com/CyrilCartoux/watch-pros-sub002/internal/listing"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

var sortColumns = map[string]string{
	listing.SortCreatedAt: "created_at",
	listing.SortPrice:     "price",
	listing.SortYear:      "year",
	listing.SortTitle:     "title",
}

// FilterScope applies every predicate of f except the cursor bound
func FilterScope(f listing.Filter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if len(f.Statuses) == 1 {
			db = db.Where("listings.status = ?", f.Statuses[0])
		} else if len(f.Statuses) > 1 {
			db = db.Where("listings.status IN ?", f.Statuses)
		}
		if f.SellerID != nil {
			db = db.Where("listings.seller_id = ?", *f.SellerID)
		}
		if f.BrandID != nil {
			db = db.Where("listings.brand_id = ?", *f.BrandID)
		}
		if len(f.ModelIDs) == 1 {
			db = db.Where("listings.model_id = ?", f.ModelIDs[0])
		} else if len(f.ModelIDs) > 1 {
			db = db.Where("listings.model_id IN ?", f.ModelIDs)
		}
		if f.Reference != "" {
			db = db.Where("listings.reference ILIKE ?", likeEscaper.Replace(f.Reference)+"%")
		}
		for _, eq := range []struct{ column, value string }{
			{"year", f.Year},
			{"dial_color", f.DialColor},
			{"condition", f.Condition},
			{"included", f.Included},
			{"listing_type", f.ListingType},
			{"shipping_delay", f.ShippingDelay},
		} {
			if eq.value != "" {
				db = db.Where(clause.Eq{Column: clause.Column{Table: "listings", Name: eq.column}, Value: eq.value})
			}
		}
		if f.MinPrice != nil {
			db = db.Where("listings.price >= ?", *f.MinPrice)
		}
		if f.MaxPrice != nil {
			db = db.Where("listings.price <= ?", *f.MaxPrice)
		}
		if f.Search != "" {
			db = db.Where("to_tsvector('simple', listings.title) @@ plainto_tsquery('simple', ?)", f.Search)
		}
		return db
	}
}

// CursorScope keeps rows created strictly before the cursor
func CursorScope(f listing.Filter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if f.Before == nil {
			return db
		}
		return db.Where("listings.created_at < ?", *f.Before)
	}
}

// OrderScope sorts by a whitelisted column with id as tie-breaker
func OrderScope(o listing.Order) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		column, ok := sortColumns[o.Column]
		if !ok {
			column, o.Desc = "created_at", true
		}
		return db.Order(clause.OrderBy{Columns: []clause.OrderByColumn{
			{Column: clause.Column{Table: "listings", Name: column}, Desc: o.Desc},
			{Column: clause.Column{Table: "listings", Name: "id"}, Desc: o.Desc},
		}})
	}
}

// PageScope applies the row window
func PageScope(offset, limit int) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if offset > 0 {
			db = db.Offset(offset)
		}
		return db.Limit(limit)
	}
}
