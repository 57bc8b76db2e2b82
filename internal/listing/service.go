// Package listing implements listing search, shaping and the create,
// update, sell and delete workflows.
package listing

import (
	"context"
	"time"

	"github.com/CyrilCartoux/watch-pros-sub002/internal/apperr"
	"github.com/CyrilCartoux/watch-pros-sub002/internal/imaging"
	"github.com/CyrilCartoux/watch-pros-sub002/internal/model"
	"github.com/CyrilCartoux/watch-pros-sub002/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store persists listings and their images and documents
type Store interface {
	Search(ctx context.Context, q Query) ([]model.Listing, int64, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Listing, error)
	Create(ctx context.Context, l *model.Listing) error
	// Save updates scalar fields and, when images is non-nil, replaces the
	// image rows, all in one transaction
	Save(ctx context.Context, l *model.Listing, images []model.ListingImage) error
	Delete(ctx context.Context, id uuid.UUID) error
	AddImage(ctx context.Context, img *model.ListingImage) error
	DeleteImage(ctx context.Context, id uuid.UUID) error
	AddDocument(ctx context.Context, doc *model.ListingDocument) error
	DeleteDocument(ctx context.Context, id uuid.UUID) error
}

// Catalog resolves brand and model references
type Catalog interface {
	FindBrand(ctx context.Context, ref Ref) (*model.Brand, error)
	FindModel(ctx context.Context, brandID uuid.UUID, ref Ref) (*model.WatchModel, error)
	FindModels(ctx context.Context, ref Ref) ([]model.WatchModel, error)
}

// Sellers looks up the seller account of an authenticated user
type Sellers interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (*model.Seller, error)
}

// BlobStore uploads and deletes public objects
type BlobStore interface {
	Upload(ctx context.Context, bucket, path, contentType string, data []byte) (string, error)
	Delete(ctx context.Context, bucket string, paths ...string) error
	PathFromURL(bucket, url string) (string, bool)
}

// Config holds buckets and limits used by the service
type Config struct {
	ImagesBucket     string
	DocumentsBucket  string
	Limits           Limits
	MaxDocumentBytes int64
}

// Service runs listing queries and mutations
type Service struct {
	store     Store
	catalog   Catalog
	sellers   Sellers
	blobs     BlobStore
	optimizer *imaging.Optimizer
	cfg       Config
	now       func() time.Time
}

// NewService wires a listing service
func NewService(store Store, catalog Catalog, sellers Sellers, blobs BlobStore, optimizer *imaging.Optimizer, cfg Config) *Service {
	if cfg.MaxDocumentBytes <= 0 {
		cfg.MaxDocumentBytes = 10 << 20
	}
	return &Service{
		store:     store,
		catalog:   catalog,
		sellers:   sellers,
		blobs:     blobs,
		optimizer: optimizer,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Limits returns the configured page size bounds
func (s *Service) Limits() Limits {
	return s.cfg.Limits
}

// Search returns active listings matching p
func (s *Service) Search(ctx context.Context, p SearchParams) (Page, error) {
	f := Filter{Statuses: []string{model.StatusActive}}
	return s.search(ctx, f, p)
}

// SearchForSeller returns the caller's own listings in any status
func (s *Service) SearchForSeller(ctx context.Context, userID uuid.UUID, p SearchParams) (Page, error) {
	seller, err := s.sellers.FindByUserID(ctx, userID)
	if err != nil {
		return Page{}, err
	}

	f := Filter{SellerID: &seller.ID}
	if p.Status != "" {
		f.Statuses = []string{p.Status}
	}
	// the seller scope wins over a seller filter in the query string
	p.SellerID = nil
	return s.search(ctx, f, p)
}

func (s *Service) search(ctx context.Context, f Filter, p SearchParams) (Page, error) {
	log := logger.FromCtx(ctx)

	ok, err := s.resolveCatalog(ctx, &f, p)
	if err != nil {
		return Page{}, err
	}
	if !ok {
		log.Debug("Catalog reference did not resolve, returning empty page",
			zap.String("brand", p.Brand.String()),
			zap.String("model", p.Model.String()),
		)
		return EmptyPage(p), nil
	}

	if p.SellerID != nil {
		f.SellerID = p.SellerID
	}
	f.Reference = p.Reference
	f.Year = p.Year
	f.DialColor = p.DialColor
	f.Condition = p.Condition
	f.Included = p.Included
	f.ListingType = p.ListingType
	f.ShippingDelay = p.ShippingDelay
	f.MinPrice = p.MinPrice
	f.MaxPrice = p.MaxPrice
	f.Search = p.Search
	f.Before = p.After

	rows, total, err := s.store.Search(ctx, Query{
		Filter: f,
		Order:  p.Order,
		Offset: p.Offset(),
		Limit:  p.Limit,
	})
	if err != nil {
		return Page{}, apperr.Upstream("failed to search listings", err)
	}

	return NewPage(rows, total, p), nil
}

// resolveCatalog turns brand and model references into ids. It reports
// false when a given reference matches nothing, so the search is empty.
func (s *Service) resolveCatalog(ctx context.Context, f *Filter, p SearchParams) (bool, error) {
	if !p.Brand.IsZero() {
		brand, err := s.catalog.FindBrand(ctx, p.Brand)
		if apperr.Is(err, apperr.KindNotFound) {
			return false, nil
		}
		if err != nil {
			return false, apperr.Upstream("failed to resolve brand", err)
		}
		f.BrandID = &brand.ID
	}

	if p.Model.IsZero() {
		return true, nil
	}

	if f.BrandID != nil {
		m, err := s.catalog.FindModel(ctx, *f.BrandID, p.Model)
		if apperr.Is(err, apperr.KindNotFound) {
			return false, nil
		}
		if err != nil {
			return false, apperr.Upstream("failed to resolve model", err)
		}
		f.ModelIDs = []uuid.UUID{m.ID}
		return true, nil
	}

	models, err := s.catalog.FindModels(ctx, p.Model)
	if err != nil {
		return false, apperr.Upstream("failed to resolve model", err)
	}
	if len(models) == 0 {
		return false, nil
	}
	for _, m := range models {
		f.ModelIDs = append(f.ModelIDs, m.ID)
	}
	return true, nil
}

// Get returns one active listing
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Listing, error) {
	l, err := s.store.Get(ctx, id)
	if err != nil {
		return Listing{}, err
	}
	if l.Status != model.StatusActive {
		return Listing{}, apperr.NotFound("listing not found")
	}
	return Shape(l), nil
}
