package listing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/CyrilCartoux/watch-pros-sub002/internal/apperr"
	"github.com/CyrilCartoux/watch-pros-sub002/internal/imaging"
	"github.com/CyrilCartoux/watch-pros-sub002/internal/model"
	"github.com/CyrilCartoux/watch-pros-sub002/pkg/logger"
	"github.com/CyrilCartoux/watch-pros-sub002/pkg/storage"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type memStore struct {
	mu        sync.Mutex
	listings  map[uuid.UUID]*model.Listing
	images    map[uuid.UUID]model.ListingImage
	documents map[uuid.UUID]model.ListingDocument
	catalog   *fakeCatalog
	sellers   *fakeSellers

	failAddImage    bool
	failAddDocument bool
	failSave        bool
	lastQuery       Query
}

func newMemStore(c *fakeCatalog, s *fakeSellers) *memStore {
	return &memStore{
		listings:  map[uuid.UUID]*model.Listing{},
		images:    map[uuid.UUID]model.ListingImage{},
		documents: map[uuid.UUID]model.ListingDocument{},
		catalog:   c,
		sellers:   s,
	}
}

func (m *memStore) hydrate(l model.Listing) model.Listing {
	l.Images = nil
	l.Documents = nil
	for _, img := range m.images {
		if img.ListingID == l.ID {
			l.Images = append(l.Images, img)
		}
	}
	sort.Slice(l.Images, func(i, j int) bool { return l.Images[i].URL < l.Images[j].URL })
	for _, d := range m.documents {
		if d.ListingID == l.ID {
			l.Documents = append(l.Documents, d)
		}
	}
	sort.Slice(l.Documents, func(i, j int) bool { return l.Documents[i].URL < l.Documents[j].URL })
	l.Brand = m.catalog.brands[l.BrandID]
	l.Model = m.catalog.models[l.ModelID]
	l.Seller = m.sellers.byID[l.SellerID]
	return l
}

func matches(l *model.Listing, f Filter, withCursor bool) bool {
	if len(f.Statuses) > 0 && !model.Contains(f.Statuses, l.Status) {
		return false
	}
	if f.SellerID != nil && l.SellerID != *f.SellerID {
		return false
	}
	if f.BrandID != nil && l.BrandID != *f.BrandID {
		return false
	}
	if len(f.ModelIDs) > 0 {
		found := false
		for _, id := range f.ModelIDs {
			found = found || id == l.ModelID
		}
		if !found {
			return false
		}
	}
	if f.Reference != "" && !strings.HasPrefix(strings.ToLower(l.Reference), strings.ToLower(f.Reference)) {
		return false
	}
	if f.Year != "" && (l.Year == nil || *l.Year != f.Year) {
		return false
	}
	if f.DialColor != "" && (l.DialColor == nil || *l.DialColor != f.DialColor) {
		return false
	}
	if f.Condition != "" && l.Condition != f.Condition {
		return false
	}
	if f.ListingType != "" && l.ListingType != f.ListingType {
		return false
	}
	if f.ShippingDelay != "" && l.ShippingDelay != f.ShippingDelay {
		return false
	}
	if f.MinPrice != nil && l.Price.LessThan(*f.MinPrice) {
		return false
	}
	if f.MaxPrice != nil && l.Price.GreaterThan(*f.MaxPrice) {
		return false
	}
	if f.Search != "" {
		for _, word := range strings.Fields(strings.ToLower(f.Search)) {
			if !strings.Contains(strings.ToLower(l.Title), word) {
				return false
			}
		}
	}
	if withCursor && f.Before != nil && !l.CreatedAt.Before(*f.Before) {
		return false
	}
	return true
}

func less(a, b *model.Listing, o Order) bool {
	var c int
	switch o.Column {
	case SortPrice:
		c = a.Price.Cmp(b.Price)
	case SortTitle:
		c = strings.Compare(a.Title, b.Title)
	case SortYear:
		c = strings.Compare(deref(a.Year), deref(b.Year))
	default:
		c = a.CreatedAt.Compare(b.CreatedAt)
	}
	if c == 0 {
		c = strings.Compare(a.ID.String(), b.ID.String())
	}
	if o.Desc {
		return c > 0
	}
	return c < 0
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (m *memStore) Search(_ context.Context, q Query) ([]model.Listing, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastQuery = q

	var total int64
	var rows []*model.Listing
	for _, l := range m.listings {
		if matches(l, q.Filter, false) {
			total++
		}
		if matches(l, q.Filter, true) {
			rows = append(rows, l)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return less(rows[i], rows[j], q.Order) })

	var out []model.Listing
	for i := q.Offset; i < len(rows) && len(out) < q.Limit; i++ {
		out = append(out, m.hydrate(*rows[i]))
	}
	return out, total, nil
}

func (m *memStore) Get(_ context.Context, id uuid.UUID) (*model.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.listings[id]
	if !ok {
		return nil, apperr.NotFound("listing not found")
	}
	out := m.hydrate(*l)
	return &out, nil
}

func (m *memStore) Create(_ context.Context, l *model.Listing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now()
	}
	cp := *l
	m.listings[l.ID] = &cp
	return nil
}

func (m *memStore) Save(_ context.Context, l *model.Listing, images []model.ListingImage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave {
		return errors.New("save failed")
	}
	cp := *l
	cp.Images, cp.Documents = nil, nil
	m.listings[l.ID] = &cp
	if images != nil {
		for id, img := range m.images {
			if img.ListingID == l.ID {
				delete(m.images, id)
			}
		}
		for _, img := range images {
			img.ID = uuid.New()
			m.images[img.ID] = img
		}
	}
	return nil
}

func (m *memStore) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.listings, id)
	for k, img := range m.images {
		if img.ListingID == id {
			delete(m.images, k)
		}
	}
	for k, d := range m.documents {
		if d.ListingID == id {
			delete(m.documents, k)
		}
	}
	return nil
}

func (m *memStore) AddImage(_ context.Context, img *model.ListingImage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAddImage {
		return errors.New("insert image failed")
	}
	m.images[img.ID] = *img
	return nil
}

func (m *memStore) DeleteImage(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.images, id)
	return nil
}

func (m *memStore) AddDocument(_ context.Context, doc *model.ListingDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAddDocument {
		return errors.New("insert document failed")
	}
	m.documents[doc.ID] = *doc
	return nil
}

func (m *memStore) DeleteDocument(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.documents, id)
	return nil
}

func (m *memStore) imageCount(listingID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, img := range m.images {
		if img.ListingID == listingID {
			n++
		}
	}
	return n
}

type fakeCatalog struct {
	brands map[uuid.UUID]*model.Brand
	models map[uuid.UUID]*model.WatchModel
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{brands: map[uuid.UUID]*model.Brand{}, models: map[uuid.UUID]*model.WatchModel{}}
}

func (c *fakeCatalog) addBrand(slug, label string) *model.Brand {
	b := &model.Brand{ID: uuid.New(), Slug: slug, Label: label}
	c.brands[b.ID] = b
	return b
}

func (c *fakeCatalog) addModel(b *model.Brand, slug, label string) *model.WatchModel {
	m := &model.WatchModel{ID: uuid.New(), BrandID: b.ID, Slug: slug, Label: label}
	c.models[m.ID] = m
	return m
}

func (c *fakeCatalog) FindBrand(_ context.Context, ref Ref) (*model.Brand, error) {
	for _, b := range c.brands {
		if (ref.Kind == RefByID && b.ID == ref.ID) || (ref.Kind == RefBySlug && b.Slug == ref.Slug) {
			return b, nil
		}
	}
	return nil, apperr.NotFound("brand not found")
}

func (c *fakeCatalog) FindModel(_ context.Context, brandID uuid.UUID, ref Ref) (*model.WatchModel, error) {
	for _, m := range c.models {
		if m.BrandID != brandID {
			continue
		}
		if (ref.Kind == RefByID && m.ID == ref.ID) || (ref.Kind == RefBySlug && m.Slug == ref.Slug) {
			return m, nil
		}
	}
	return nil, apperr.NotFound("model not found")
}

func (c *fakeCatalog) FindModels(_ context.Context, ref Ref) ([]model.WatchModel, error) {
	var out []model.WatchModel
	for _, m := range c.models {
		if (ref.Kind == RefByID && m.ID == ref.ID) || (ref.Kind == RefBySlug && m.Slug == ref.Slug) {
			out = append(out, *m)
		}
	}
	return out, nil
}

type fakeSellers struct {
	byUser map[uuid.UUID]*model.Seller
	byID   map[uuid.UUID]*model.Seller
}

func newFakeSellers() *fakeSellers {
	return &fakeSellers{byUser: map[uuid.UUID]*model.Seller{}, byID: map[uuid.UUID]*model.Seller{}}
}

func (f *fakeSellers) add(name string) *model.Seller {
	s := &model.Seller{ID: uuid.New(), UserID: uuid.New(), WatchProsName: name, Country: "France"}
	f.byUser[s.UserID] = s
	f.byID[s.ID] = s
	return s
}

func (f *fakeSellers) FindByUserID(_ context.Context, userID uuid.UUID) (*model.Seller, error) {
	if s, ok := f.byUser[userID]; ok {
		return s, nil
	}
	return nil, apperr.NotFound("seller not found")
}

type fakeBlobs struct {
	mu        sync.Mutex
	objects   map[string][]byte
	failPaths map[string]bool
	deletes   int
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{objects: map[string][]byte{}, failPaths: map[string]bool{}}
}

func (f *fakeBlobs) Upload(_ context.Context, bucket, path, _ string, data []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPaths[path] {
		return "", fmt.Errorf("upload %s refused", path)
	}
	f.objects[bucket+"/"+path] = data
	return "https://cdn.test/" + bucket + "/" + path, nil
}

func (f *fakeBlobs) Delete(_ context.Context, bucket string, paths ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range paths {
		f.deletes++
		delete(f.objects, bucket+"/"+p)
	}
	return nil
}

func (f *fakeBlobs) PathFromURL(bucket, url string) (string, bool) {
	return storage.PathFromURL(bucket, url)
}

func (f *fakeBlobs) count(bucket string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for k := range f.objects {
		if strings.HasPrefix(k, bucket+"/") {
			n++
		}
	}
	return n
}

type fixture struct {
	svc     *Service
	store   *memStore
	catalog *fakeCatalog
	sellers *fakeSellers
	blobs   *fakeBlobs
	omega   *model.Brand
	seamstr *model.WatchModel
	rolex   *model.Brand
	sub     *model.WatchModel
	seller  *model.Seller
	ctx     context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		catalog: newFakeCatalog(),
		sellers: newFakeSellers(),
		blobs:   newFakeBlobs(),
		ctx:     logger.WithContext(context.Background(), zaptest.NewLogger(t)),
	}
	f.store = newMemStore(f.catalog, f.sellers)
	f.omega = f.catalog.addBrand("omega", "Omega")
	f.seamstr = f.catalog.addModel(f.omega, "seamaster", "Seamaster")
	f.rolex = f.catalog.addBrand("rolex", "Rolex")
	f.sub = f.catalog.addModel(f.rolex, "submariner", "Submariner")
	f.seller = f.sellers.add("maisonh")

	f.svc = NewService(f.store, f.catalog, f.sellers, f.blobs, imaging.New(200, 80), Config{
		ImagesBucket:    "listingimages",
		DocumentsBucket: "listingdocuments",
		Limits:          Limits{Default: 20, Max: 100},
	})
	return f
}

// seed inserts n active listings created one minute apart, oldest first
func (f *fixture) seed(n int, mutate func(i int, l *model.Listing)) []*model.Listing {
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	out := make([]*model.Listing, 0, n)
	for i := 0; i < n; i++ {
		l := &model.Listing{
			ID:            uuid.New(),
			SellerID:      f.seller.ID,
			BrandID:       f.omega.ID,
			ModelID:       f.seamstr.ID,
			Reference:     fmt.Sprintf("210.30.%02d", i),
			Title:         fmt.Sprintf("Omega Seamaster %d", i),
			Condition:     "excellent",
			Price:         decimal.NewFromInt(int64(1000 + i*100)),
			Currency:      "EUR",
			ShippingDelay: "24h",
			ListingType:   model.TypeWatch,
			Status:        model.StatusActive,
			CreatedAt:     base.Add(time.Duration(i) * time.Minute),
		}
		if mutate != nil {
			mutate(i, l)
		}
		f.store.listings[l.ID] = l
		out = append(out, l)
	}
	return out
}

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 10, G: 80, B: 160, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func validFields() Fields {
	return Fields{
		Brand:         "omega",
		Model:         "seamaster",
		Reference:     "210.30.42.20.01.001",
		Condition:     "excellent",
		Price:         decimal.NewFromInt(4200),
		Currency:      "EUR",
		ShippingDelay: "24h",
	}
}
