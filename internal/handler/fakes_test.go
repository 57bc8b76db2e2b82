package handler

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/CyrilCartoux/watch-pros-sub002/internal/apperr"
	"github.com/CyrilCartoux/watch-pros-sub002/internal/listing"
	"github.com/CyrilCartoux/watch-pros-sub002/internal/middleware"
	"github.com/CyrilCartoux/watch-pros-sub002/internal/model"
	"github.com/CyrilCartoux/watch-pros-sub002/internal/seller"
	"github.com/CyrilCartoux/watch-pros-sub002/pkg/jwtutil"
	"github.com/CyrilCartoux/watch-pros-sub002/pkg/logger"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var secret = []byte("test-secret")

type fakeListings struct {
	search    listing.SearchParams
	sellerFor uuid.UUID
	created   listing.CreateRequest
	updated   listing.UpdateRequest
	sold      listing.SellRequest
	deleted   uuid.UUID
	err       error
}

func (f *fakeListings) Limits() listing.Limits {
	return listing.Limits{Default: 20, Max: 100}
}

func (f *fakeListings) Search(_ context.Context, p listing.SearchParams) (listing.Page, error) {
	f.search = p
	return listing.NewPage(nil, 0, p), f.err
}

func (f *fakeListings) SearchForSeller(_ context.Context, userID uuid.UUID, p listing.SearchParams) (listing.Page, error) {
	f.sellerFor, f.search = userID, p
	return listing.NewPage(nil, 0, p), f.err
}

func (f *fakeListings) Get(_ context.Context, id uuid.UUID) (listing.Listing, error) {
	if f.err != nil {
		return listing.Listing{}, f.err
	}
	return listing.Listing{ID: id, Brand: "omega", Status: model.StatusActive, Images: []string{}}, nil
}

func (f *fakeListings) Create(_ context.Context, req listing.CreateRequest) (listing.Listing, error) {
	f.created = req
	return listing.Listing{ID: uuid.New(), Brand: req.Fields.Brand, Status: model.StatusActive}, f.err
}

func (f *fakeListings) Update(_ context.Context, req listing.UpdateRequest) (listing.Listing, error) {
	f.updated = req
	return listing.Listing{ID: req.ListingID, Status: model.StatusActive}, f.err
}

func (f *fakeListings) MarkSold(_ context.Context, req listing.SellRequest) (listing.Listing, error) {
	f.sold = req
	return listing.Listing{ID: req.ListingID, Status: model.StatusSold}, f.err
}

func (f *fakeListings) Delete(_ context.Context, _ uuid.UUID, listingID uuid.UUID) error {
	f.deleted = listingID
	return f.err
}

type fakeSellers struct {
	registered seller.RegisterRequest
	reviewed   uuid.UUID
	reason     string
	err        error
}

func (f *fakeSellers) Register(_ context.Context, req seller.RegisterRequest) (*seller.Registered, error) {
	f.registered = req
	if f.err != nil {
		return nil, f.err
	}
	return &seller.Registered{ID: uuid.New(), Username: req.Account.WatchProsName}, nil
}

func (f *fakeSellers) Approve(_ context.Context, id uuid.UUID) (*model.Seller, error) {
	f.reviewed = id
	return &model.Seller{ID: id, IdentityVerified: model.VerificationVerified}, f.err
}

func (f *fakeSellers) Decline(_ context.Context, id uuid.UUID, reason string) (*model.Seller, error) {
	f.reviewed, f.reason = id, reason
	return &model.Seller{ID: id, IdentityVerified: model.VerificationRejected}, f.err
}

type fakeCatalog struct {
	brands []model.Brand
	models map[uuid.UUID][]model.WatchModel
}

func (f *fakeCatalog) FindBrand(_ context.Context, ref listing.Ref) (*model.Brand, error) {
	for i := range f.brands {
		if f.brands[i].ID == ref.ID || f.brands[i].Slug == ref.Slug {
			return &f.brands[i], nil
		}
	}
	return nil, apperr.NotFound("brand not found")
}

func (f *fakeCatalog) ListBrands(_ context.Context, popularOnly bool) ([]model.Brand, error) {
	var out []model.Brand
	for _, b := range f.brands {
		if !popularOnly || b.Popular {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeCatalog) ListModels(_ context.Context, brandID uuid.UUID) ([]model.WatchModel, error) {
	return f.models[brandID], nil
}

type server struct {
	e        *echo.Echo
	listings *fakeListings
	sellers  *fakeSellers
	catalog  *fakeCatalog
	pingErr  error
}

func newServer(t *testing.T) *server {
	logger.SetLogger(zaptest.NewLogger(t))

	omega := model.Brand{ID: uuid.New(), Slug: "omega", Label: "Omega", Popular: true}
	tudor := model.Brand{ID: uuid.New(), Slug: "tudor", Label: "Tudor"}
	s := &server{
		e:        echo.New(),
		listings: &fakeListings{},
		sellers:  &fakeSellers{},
		catalog: &fakeCatalog{
			brands: []model.Brand{omega, tudor},
			models: map[uuid.UUID][]model.WatchModel{
				omega.ID: {{ID: uuid.New(), BrandID: omega.ID, Slug: "seamaster", Label: "Seamaster"}},
			},
		},
	}

	h := Handlers{
		Health:   NewHealthHandler("watch-pros", func(context.Context) error { return s.pingErr }),
		Listings: NewListingHandler(s.listings, 1<<20),
		Sellers:  NewSellerHandler(s.sellers, 1<<20),
		Catalog:  NewCatalogHandler(s.catalog),
	}
	s.e.Use(middleware.RequestID())
	RegisterRoutes(s.e, h, middleware.Auth(jwtutil.NewHMACVerifier(secret, "", "")), middleware.RequireRole("admin"))
	return s
}

func (s *server) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func bearer(t *testing.T, userID uuid.UUID, role string) string {
	raw, err := jwtutil.GenerateToken(secret, userID, "dealer@example.com", role, time.Hour)
	require.NoError(t, err)
	return "Bearer " + raw
}

type part struct {
	name        string
	filename    string
	contentType string
	value       string
}

func field(name, value string) part {
	return part{name: name, value: value}
}

func file(name, filename, contentType, data string) part {
	return part{name: name, filename: filename, contentType: contentType, value: data}
}

func multipartRequest(t *testing.T, method, target string, parts ...part) *http.Request {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, p := range parts {
		if p.filename == "" {
			require.NoError(t, w.WriteField(p.name, p.value))
			continue
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+p.name+`"; filename="`+p.filename+`"`)
		h.Set("Content-Type", p.contentType)
		pw, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = pw.Write([]byte(p.value))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}

var errStorage = errors.New("storage unavailable")
