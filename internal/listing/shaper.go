package listing

import (
	"sort"
	"strconv"
	"time"

	"github.com/CyrilCartoux/watch-pros-sub002/internal/model"
	"github.com/google/uuid"
)

// Listing is the client representation of a listing
type Listing struct {
	ID            uuid.UUID      `json:"id"`
	SellerID      uuid.UUID      `json:"seller_id"`
	Brand         string         `json:"brand"`
	Model         string         `json:"model"`
	Reference     string         `json:"reference"`
	ReferenceID   string         `json:"reference_id"`
	Title         string         `json:"title"`
	Description   *string        `json:"description"`
	Year          *string        `json:"year"`
	Condition     string         `json:"condition"`
	Price         float64        `json:"price"`
	Currency      string         `json:"currency"`
	ShippingDelay string         `json:"shipping_delay"`
	ListingType   string         `json:"listing_type"`
	Status        string         `json:"status"`
	FinalPrice    *float64       `json:"final_price"`
	DialColor     *string        `json:"dial_color"`
	Included      *string        `json:"included"`
	DiameterMin   *string        `json:"diameter_min"`
	DiameterMax   *string        `json:"diameter_max"`
	Images        []string       `json:"images"`
	Documents     []Document     `json:"documents"`
	Seller        *SellerSummary `json:"seller"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// Document is an attached file
type Document struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// SellerSummary is the public part of a seller shown with a listing
type SellerSummary struct {
	ID             uuid.UUID `json:"id"`
	WatchProsName  string    `json:"watch_pros_name"`
	CompanyLogoURL *string   `json:"company_logo_url"`
	Country        string    `json:"country"`
	CryptoFriendly bool      `json:"crypto_friendly"`
}

// Shape flattens a stored listing with its associations
func Shape(l *model.Listing) Listing {
	out := Listing{
		ID:            l.ID,
		SellerID:      l.SellerID,
		Reference:     l.Reference,
		ReferenceID:   l.ReferenceID,
		Title:         l.Title,
		Description:   l.Description,
		Year:          l.Year,
		Condition:     l.Condition,
		Price:         l.Price.InexactFloat64(),
		Currency:      l.Currency,
		ShippingDelay: l.ShippingDelay,
		ListingType:   l.ListingType,
		Status:        l.Status,
		DialColor:     l.DialColor,
		Included:      l.Included,
		DiameterMin:   formatDiameter(l.DiameterMin),
		DiameterMax:   formatDiameter(l.DiameterMax),
		Images:        OrderedImageURLs(l.Images),
		Documents:     make([]Document, 0, len(l.Documents)),
		CreatedAt:     l.CreatedAt,
		UpdatedAt:     l.UpdatedAt,
	}
	if l.Brand != nil {
		out.Brand = l.Brand.Slug
	}
	if l.Model != nil {
		out.Model = l.Model.Slug
	}
	if l.FinalPrice.Valid {
		fp := l.FinalPrice.Decimal.InexactFloat64()
		out.FinalPrice = &fp
	}
	for _, d := range l.Documents {
		out.Documents = append(out.Documents, Document{Type: d.DocumentType, URL: d.URL})
	}
	if s := l.Seller; s != nil {
		out.Seller = &SellerSummary{
			ID:             s.ID,
			WatchProsName:  s.WatchProsName,
			CompanyLogoURL: s.CompanyLogoURL,
			Country:        s.DisplayCountry(),
			CryptoFriendly: s.CryptoFriendly,
		}
	}
	return out
}

// ShapeAll shapes every row, never returning nil
func ShapeAll(rows []model.Listing) []Listing {
	out := make([]Listing, 0, len(rows))
	for i := range rows {
		out = append(out, Shape(&rows[i]))
	}
	return out
}

// OrderedImageURLs returns image URLs ascending by order_index. Equal
// indexes keep their stored order.
func OrderedImageURLs(images []model.ListingImage) []string {
	sorted := make([]model.ListingImage, len(images))
	copy(sorted, images)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].OrderIndex < sorted[j].OrderIndex
	})

	urls := make([]string, 0, len(sorted))
	for _, img := range sorted {
		urls = append(urls, img.URL)
	}
	return urls
}

func formatDiameter(v *float64) *string {
	if v == nil {
		return nil
	}
	s := strconv.FormatFloat(*v, 'f', -1, 64)
	return &s
}
