package listing

import (
	"encoding/json"
	"testing"

	"github.com/CyrilCartoux/watch-pros-sub002/internal/model"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderedImageURLs(t *testing.T) {
	images := []model.ListingImage{
		{URL: "a", OrderIndex: 2},
		{URL: "b", OrderIndex: 0},
		{URL: "c", OrderIndex: 1},
	}
	assert.Equal(t, []string{"b", "c", "a"}, OrderedImageURLs(images))
	assert.Equal(t, "a", images[0].URL, "input is not reordered")

	ties := []model.ListingImage{{URL: "x", OrderIndex: 1}, {URL: "y", OrderIndex: 0}, {URL: "z", OrderIndex: 1}}
	assert.Equal(t, []string{"y", "x", "z"}, OrderedImageURLs(ties))

	assert.Equal(t, []string{}, OrderedImageURLs(nil))
}

func TestShape(t *testing.T) {
	logo := "https://cdn.test/sellerdocuments/s/companyLogo.jpg"
	dmin, dmax := 39.5, 42.0
	l := &model.Listing{
		ID:          uuid.New(),
		Brand:       &model.Brand{Slug: "omega"},
		Model:       &model.WatchModel{Slug: "seamaster"},
		Reference:   "210.30.42.20.01.001",
		Price:       decimal.RequireFromString("4200.50"),
		FinalPrice:  decimal.NewNullDecimal(decimal.NewFromInt(4000)),
		DiameterMin: &dmin,
		DiameterMax: &dmax,
		Images:      []model.ListingImage{{URL: "2", OrderIndex: 1}, {URL: "1", OrderIndex: 0}},
		Documents:   []model.ListingDocument{{DocumentType: "PDF", URL: "cert"}},
		Seller: &model.Seller{
			ID:             uuid.New(),
			WatchProsName:  "maisonh",
			CompanyLogoURL: &logo,
			CryptoFriendly: true,
			Addresses:      []model.SellerAddress{{Country: "Belgium"}},
		},
	}

	out := Shape(l)

	assert.Equal(t, "omega", out.Brand)
	assert.Equal(t, "seamaster", out.Model)
	assert.Equal(t, 4200.5, out.Price)
	require.NotNil(t, out.FinalPrice)
	assert.Equal(t, 4000.0, *out.FinalPrice)
	assert.Equal(t, "39.5", *out.DiameterMin)
	assert.Equal(t, "42", *out.DiameterMax)
	assert.Equal(t, []string{"1", "2"}, out.Images)
	assert.Equal(t, []Document{{Type: "PDF", URL: "cert"}}, out.Documents)
	require.NotNil(t, out.Seller)
	assert.Equal(t, "Belgium", out.Seller.Country)
	assert.True(t, out.Seller.CryptoFriendly)
	assert.Equal(t, &logo, out.Seller.CompanyLogoURL)
}

func TestShapeDanglingReferences(t *testing.T) {
	out := Shape(&model.Listing{ID: uuid.New(), Price: decimal.NewFromInt(10)})

	assert.Nil(t, out.Seller)
	assert.Nil(t, out.DiameterMin)
	assert.Nil(t, out.FinalPrice)
	assert.Equal(t, "", out.Brand)

	raw, err := json.Marshal(out)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Nil(t, decoded["seller"])
	assert.Nil(t, decoded["diameter_min"])
	assert.Equal(t, []any{}, decoded["images"])
}
