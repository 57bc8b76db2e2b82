package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/CyrilCartoux/watch-pros-sub002/internal/listing"
	"github.com/CyrilCartoux/watch-pros-sub002/internal/model"
	"github.com/CyrilCartoux/watch-pros-sub002/prometheus"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ListingRepository stores listings in PostgreSQL
type ListingRepository struct {
	db *gorm.DB
}

// NewListingRepository creates a listing repository
func NewListingRepository(db *gorm.DB) *ListingRepository {
	return &ListingRepository{db: db}
}

func withAssociations(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Brand").
		Preload("Model").
		Preload("Images").
		Preload("Documents").
		Preload("Seller").
		Preload("Seller.Addresses", func(db *gorm.DB) *gorm.DB {
			return db.Order("seller_addresses.created_at ASC")
		})
}

// Search returns one window of listings and the number of rows matching
// the filter without the cursor bound
func (r *ListingRepository) Search(ctx context.Context, q listing.Query) ([]model.Listing, int64, error) {
	defer prometheus.TrackDBOperation("listing_search")(time.Now())

	var total int64
	if err := r.db.WithContext(ctx).
		Model(&model.Listing{}).
		Scopes(FilterScope(q.Filter)).
		Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count listings: %w", err)
	}

	var rows []model.Listing
	if err := r.db.WithContext(ctx).
		Scopes(
			FilterScope(q.Filter),
			CursorScope(q.Filter),
			OrderScope(q.Order),
			PageScope(q.Offset, q.Limit),
			withAssociations,
		).
		Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("search listings: %w", err)
	}

	return rows, total, nil
}

// Get loads a listing with brand, model, images, documents and seller
func (r *ListingRepository) Get(ctx context.Context, id uuid.UUID) (*model.Listing, error) {
	defer prometheus.TrackDBOperation("listing_get")(time.Now())

	var l model.Listing
	if err := r.db.WithContext(ctx).Scopes(withAssociations).First(&l, "listings.id = ?", id).Error; err != nil {
		return nil, notFound(err, "listing")
	}
	return &l, nil
}

// Create inserts the listing row only
func (r *ListingRepository) Create(ctx context.Context, l *model.Listing) error {
	defer prometheus.TrackDBOperation("listing_create")(time.Now())

	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(l).Error
}

// Save updates the listing row and, when images is non-nil, replaces its
// image rows in the same transaction
func (r *ListingRepository) Save(ctx context.Context, l *model.Listing, images []model.ListingImage) error {
	defer prometheus.TrackDBOperation("listing_save")(time.Now())

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(l).Error; err != nil {
			return fmt.Errorf("update listing: %w", err)
		}
		if images == nil {
			return nil
		}

		if err := tx.Where("listing_id = ?", l.ID).Delete(&model.ListingImage{}).Error; err != nil {
			return fmt.Errorf("delete listing images: %w", err)
		}
		if len(images) == 0 {
			return nil
		}

		rows := make([]model.ListingImage, len(images))
		for i, img := range images {
			rows[i] = model.ListingImage{ID: uuid.New(), ListingID: l.ID, URL: img.URL, OrderIndex: img.OrderIndex}
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("insert listing images: %w", err)
		}
		return nil
	})
}

// Delete removes a listing; images and documents cascade
func (r *ListingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	defer prometheus.TrackDBOperation("listing_delete")(time.Now())

	return r.db.WithContext(ctx).Delete(&model.Listing{}, "id = ?", id).Error
}

// AddImage inserts one image row
func (r *ListingRepository) AddImage(ctx context.Context, img *model.ListingImage) error {
	defer prometheus.TrackDBOperation("listing_image_create")(time.Now())

	if img.ID == uuid.Nil {
		img.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(img).Error
}

// DeleteImage removes one image row
func (r *ListingRepository) DeleteImage(ctx context.Context, id uuid.UUID) error {
	defer prometheus.TrackDBOperation("listing_image_delete")(time.Now())

	return r.db.WithContext(ctx).Delete(&model.ListingImage{}, "id = ?", id).Error
}

// AddDocument inserts one document row
func (r *ListingRepository) AddDocument(ctx context.Context, doc *model.ListingDocument) error {
	defer prometheus.TrackDBOperation("listing_document_create")(time.Now())

	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(doc).Error
}

// DeleteDocument removes one document row
func (r *ListingRepository) DeleteDocument(ctx context.Context, id uuid.UUID) error {
	defer prometheus.TrackDBOperation("listing_document_delete")(time.Now())

	return r.db.WithContext(ctx).Delete(&model.ListingDocument{}, "id = ?", id).Error
}
