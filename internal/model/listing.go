package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Listing statuses
const (
	StatusDraft  = "draft"
	StatusActive = "active"
	StatusSold   = "sold"
)

// Listing types
const (
	TypeWatch     = "watch"
	TypeAccessory = "accessory"
)

// Conditions accepted for a listing
var Conditions = []string{"new", "like-new", "excellent", "very-good", "good", "fair"}

// ShippingDelays accepted for a listing
var ShippingDelays = []string{"24h", "2-3d", "3-5d", "1-2w"}

// Listing is a watch or accessory offered for sale by a seller
type Listing struct {
	ID            uuid.UUID           `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SellerID      uuid.UUID           `json:"seller_id" gorm:"type:uuid;not null;index"`
	Seller        *Seller             `json:"-" gorm:"foreignKey:SellerID"`
	BrandID       uuid.UUID           `json:"brand_id" gorm:"type:uuid;not null;index"`
	Brand         *Brand              `json:"-"`
	ModelID       uuid.UUID           `json:"model_id" gorm:"type:uuid;not null;index"`
	Model         *WatchModel         `json:"-" gorm:"foreignKey:ModelID"`
	Reference     string              `json:"reference" gorm:"type:varchar(100);not null;index"`
	ReferenceID   string              `json:"reference_id" gorm:"type:varchar(255);uniqueIndex;not null"`
	Title         string              `json:"title" gorm:"type:varchar(255);not null"`
	Description   *string             `json:"description" gorm:"type:text"`
	Year          *string             `json:"year" gorm:"type:varchar(10);index"`
	Condition     string              `json:"condition" gorm:"type:varchar(20);not null;index"`
	Price         decimal.Decimal     `json:"price" gorm:"type:decimal(16,2);not null;index"`
	Currency      string              `json:"currency" gorm:"type:char(3);not null"`
	ShippingDelay string              `json:"shipping_delay" gorm:"type:varchar(10);not null"`
	ListingType   string              `json:"listing_type" gorm:"type:varchar(20);not null;default:watch;index"`
	Status        string              `json:"status" gorm:"type:varchar(20);not null;default:active;index"`
	FinalPrice    decimal.NullDecimal `json:"final_price" gorm:"type:decimal(16,2)"`
	DialColor     *string             `json:"dial_color" gorm:"type:varchar(50)"`
	Included      *string             `json:"included" gorm:"type:varchar(50)"`
	DiameterMin   *float64            `json:"diameter_min" gorm:"type:numeric(5,1)"`
	DiameterMax   *float64            `json:"diameter_max" gorm:"type:numeric(5,1)"`
	Images        []ListingImage      `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	Documents     []ListingDocument   `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time           `json:"created_at" gorm:"index"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// ListingImage is one ordered photo of a listing
type ListingImage struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ListingID  uuid.UUID `json:"listing_id" gorm:"type:uuid;not null;index"`
	URL        string    `json:"url" gorm:"type:text;not null"`
	OrderIndex int       `json:"order_index" gorm:"not null;default:0"`
	CreatedAt  time.Time `json:"created_at"`
}

// ListingDocument is a certificate, invoice or other paper attached to a listing
type ListingDocument struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ListingID    uuid.UUID `json:"listing_id" gorm:"type:uuid;not null;index"`
	DocumentType string    `json:"document_type" gorm:"type:varchar(10);not null"`
	URL          string    `json:"url" gorm:"type:text;not null"`
	CreatedAt    time.Time `json:"created_at"`
}

// CanTransition reports whether status may move from one value to another.
// Statuses only move forward: draft, active, sold.
func CanTransition(from, to string) bool {
	return statusRank(to) >= statusRank(from) && statusRank(to) > 0
}

func statusRank(s string) int {
	switch s {
	case StatusDraft:
		return 1
	case StatusActive:
		return 2
	case StatusSold:
		return 3
	}
	return 0
}

// Contains reports whether v is one of the allowed values
func Contains(allowed []string, v string) bool {
	for _, a := range allowed {
		if a == v {
			return true
		}
	}
	return false
}
