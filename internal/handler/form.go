package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/CyrilCartoux/watch-pros-sub002/internal/apperr"
	"github.com/CyrilCartoux/watch-pros-sub002/internal/listing"
	"github.com/CyrilCartoux/watch-pros-sub002/internal/seller"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// formPart is one field or file of a multipart body, in submission order
type formPart struct {
	Name        string
	Filename    string
	ContentType string
	Data        []byte
}

func (p formPart) isFile() bool {
	return p.Filename != ""
}

func (p formPart) value() string {
	return strings.TrimSpace(string(p.Data))
}

// readMultipart streams the body part by part so repeated fields keep their order
func readMultipart(c echo.Context, maxBytes int64) ([]formPart, error) {
	req := c.Request()
	if maxBytes > 0 {
		req.Body = http.MaxBytesReader(c.Response(), req.Body, maxBytes)
	}

	mr, err := req.MultipartReader()
	if err != nil {
		return nil, apperr.Validation("", "expected a multipart/form-data body")
	}

	var parts []formPart
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return parts, nil
		}
		if err != nil {
			return nil, bodyError(err)
		}

		data, err := io.ReadAll(part)
		part.Close()
		if err != nil {
			return nil, bodyError(err)
		}
		parts = append(parts, formPart{
			Name:        strings.TrimSuffix(part.FormName(), "[]"),
			Filename:    part.FileName(),
			ContentType: part.Header.Get(echo.HeaderContentType),
			Data:        data,
		})
	}
}

func bodyError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apperr.Validation("", "request body too large")
	}
	return apperr.Validation("", "malformed multipart body")
}

// listingForm is a parsed create or update submission
type listingForm struct {
	Fields    listing.Fields
	Images    []listing.ImageEntry
	Documents []listing.Upload
}

func parseListingForm(parts []formPart) (*listingForm, error) {
	form := &listingForm{}
	values := map[string]string{}

	for _, p := range parts {
		switch p.Name {
		case "images":
			// a submitted but empty list still clears the images
			if form.Images == nil {
				form.Images = []listing.ImageEntry{}
			}
			if p.isFile() {
				form.Images = append(form.Images, listing.ImageEntry{File: upload(p)})
			} else if url := p.value(); url != "" {
				form.Images = append(form.Images, listing.ImageEntry{URL: url})
			}
		case "documents":
			if p.isFile() {
				form.Documents = append(form.Documents, *upload(p))
			}
		default:
			if !p.isFile() {
				values[p.Name] = p.value()
			}
		}
	}

	f := listing.Fields{
		Brand:         values["brand"],
		Model:         values["model"],
		Reference:     values["reference"],
		Title:         values["title"],
		Description:   optional(values["description"]),
		Year:          optional(values["year"]),
		Condition:     values["condition"],
		Currency:      values["currency"],
		ShippingDelay: values["shippingDelay"],
		ListingType:   values["listingType"],
		Status:        values["status"],
		DialColor:     optional(values["dialColor"]),
		Included:      optional(values["included"]),
	}
	if f.Currency == "" {
		f.Currency = "EUR"
	}

	price, err := decimal.NewFromString(values["price"])
	if err != nil {
		return nil, apperr.Validation("price", "price must be a number")
	}
	f.Price = price

	if f.DiameterMin, err = optionalFloat(values["diameterMin"], "diameterMin"); err != nil {
		return nil, err
	}
	if f.DiameterMax, err = optionalFloat(values["diameterMax"], "diameterMax"); err != nil {
		return nil, err
	}

	form.Fields = f
	return form, nil
}

// newImages returns the image files of a create submission
func (f *listingForm) newImages() ([]listing.Upload, error) {
	files := make([]listing.Upload, 0, len(f.Images))
	for _, img := range f.Images {
		if img.File == nil {
			return nil, apperr.Validation("images", "a new listing only accepts image files")
		}
		files = append(files, *img.File)
	}
	return files, nil
}

// registrationForm decodes the JSON account and address fields and the document files
func registrationForm(parts []formPart) (seller.Account, seller.Address, map[string]*seller.File, error) {
	var (
		account seller.Account
		address seller.Address
	)
	docs := make(map[string]*seller.File, len(seller.DocumentKinds))

	for _, p := range parts {
		switch {
		case p.isFile():
			docs[p.Name] = &seller.File{Filename: p.Filename, ContentType: p.ContentType, Data: p.Data}
		case p.Name == "account":
			if err := json.Unmarshal(p.Data, &account); err != nil {
				return account, address, nil, apperr.Validation("account", "account must be a JSON object")
			}
		case p.Name == "address":
			if err := json.Unmarshal(p.Data, &address); err != nil {
				return account, address, nil, apperr.Validation("address", "address must be a JSON object")
			}
		}
	}
	return account, address, docs, nil
}

func upload(p formPart) *listing.Upload {
	return &listing.Upload{Filename: p.Filename, ContentType: p.ContentType, Data: p.Data}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func optionalFloat(raw, field string) (*float64, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
	if err != nil {
		return nil, apperr.Validation(field, field+" must be a number")
	}
	return &v, nil
}
