package listing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/CyrilCartoux/watch-pros-sub002/internal/apperr"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Upload is a file received with a form
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ImageEntry is one position of a submitted image list: either an already
// stored image URL or a new file
type ImageEntry struct {
	URL  string
	File *Upload
}

// Fields are the editable scalar fields of a listing
type Fields struct {
	Brand         string          `validate:"required"`
	Model         string          `validate:"required"`
	Reference     string          `validate:"required,max=100"`
	Title         string          `validate:"max=255"`
	Description   *string         `validate:"omitempty"`
	Year          *string         `validate:"omitempty,max=10"`
	Condition     string          `validate:"required,oneof=new like-new excellent very-good good fair"`
	Price         decimal.Decimal `validate:"-"`
	Currency      string          `validate:"required,len=3,uppercase"`
	ShippingDelay string          `validate:"required,oneof=24h 2-3d 3-5d 1-2w"`
	ListingType   string          `validate:"omitempty,oneof=watch accessory"`
	Status        string          `validate:"omitempty,oneof=draft active"`
	DialColor     *string         `validate:"omitempty,max=50"`
	Included      *string         `validate:"omitempty,max=50"`
	DiameterMin   *float64        `validate:"omitempty,gt=0"`
	DiameterMax   *float64        `validate:"omitempty,gt=0"`
}

// CreateRequest carries a new listing
type CreateRequest struct {
	UserID    uuid.UUID
	Fields    Fields
	Images    []Upload
	Documents []Upload
}

// UpdateRequest replaces a listing's fields and image list and appends documents.
// A nil Images leaves the current images untouched.
type UpdateRequest struct {
	UserID    uuid.UUID
	ListingID uuid.UUID
	Fields    Fields
	Images    []ImageEntry
	Documents []Upload
}

// SellRequest marks a listing sold
type SellRequest struct {
	UserID     uuid.UUID
	ListingID  uuid.UUID
	FinalPrice *decimal.Decimal
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field formats and enumerations
func (f *Fields) Validate() error {
	f.Currency = strings.ToUpper(strings.TrimSpace(f.Currency))
	if err := validate.Struct(f); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return apperr.Validation(fieldName(fe.Field()), fmt.Sprintf("invalid %s", fieldName(fe.Field())))
		}
		return apperr.Validation("", err.Error())
	}
	if !f.Price.IsPositive() {
		return apperr.Validation("price", "price must be greater than zero")
	}
	if f.DiameterMin != nil && f.DiameterMax != nil && *f.DiameterMax < *f.DiameterMin {
		return apperr.Validation("diameterMax", "diameterMax must not be below diameterMin")
	}
	return nil
}

// fieldName converts a struct field to its form name
func fieldName(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
