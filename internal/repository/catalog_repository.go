package repository

import (
	"context"
	"time"

	"github.com/CyrilCartoux/watch-pros-sub002/internal/listing"
	"github.com/CyrilCartoux/watch-pros-sub002/internal/model"
	"github.com/CyrilCartoux/watch-pros-sub002/prometheus"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CatalogRepository reads and seeds brands and models
type CatalogRepository struct {
	db *gorm.DB
}

// NewCatalogRepository creates a catalog repository
func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

func refScope(column string, ref listing.Ref) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if ref.Kind == listing.RefByID {
			return db.Where(column+".id = ?", ref.ID)
		}
		return db.Where(column+".slug = ?", ref.Slug)
	}
}

// FindBrand resolves a brand by id or slug
func (r *CatalogRepository) FindBrand(ctx context.Context, ref listing.Ref) (*model.Brand, error) {
	defer prometheus.TrackDBOperation("brand_find")(time.Now())

	var b model.Brand
	if err := r.db.WithContext(ctx).Scopes(refScope("brands", ref)).First(&b).Error; err != nil {
		return nil, notFound(err, "brand")
	}
	return &b, nil
}

// FindModel resolves a model by id or slug within one brand
func (r *CatalogRepository) FindModel(ctx context.Context, brandID uuid.UUID, ref listing.Ref) (*model.WatchModel, error) {
	defer prometheus.TrackDBOperation("model_find")(time.Now())

	var m model.WatchModel
	if err := r.db.WithContext(ctx).
		Scopes(refScope("models", ref)).
		Where("models.brand_id = ?", brandID).
		First(&m).Error; err != nil {
		return nil, notFound(err, "model")
	}
	return &m, nil
}

// FindModels returns every model matching ref across brands
func (r *CatalogRepository) FindModels(ctx context.Context, ref listing.Ref) ([]model.WatchModel, error) {
	defer prometheus.TrackDBOperation("model_find_all")(time.Now())

	var models []model.WatchModel
	err := r.db.WithContext(ctx).Scopes(refScope("models", ref)).Find(&models).Error
	return models, err
}

// ListBrands returns brands by label, optionally only popular ones
func (r *CatalogRepository) ListBrands(ctx context.Context, popularOnly bool) ([]model.Brand, error) {
	defer prometheus.TrackDBOperation("brand_list")(time.Now())

	db := r.db.WithContext(ctx).Order("label ASC")
	if popularOnly {
		db = db.Where("popular = ?", true)
	}
	var brands []model.Brand
	err := db.Find(&brands).Error
	return brands, err
}

// ListModels returns the models of a brand by label
func (r *CatalogRepository) ListModels(ctx context.Context, brandID uuid.UUID) ([]model.WatchModel, error) {
	defer prometheus.TrackDBOperation("model_list")(time.Now())

	var models []model.WatchModel
	err := r.db.WithContext(ctx).Where("brand_id = ?", brandID).Order("popular DESC, label ASC").Find(&models).Error
	return models, err
}

// UpsertBrand inserts a brand or refreshes its label and popularity by slug
func (r *CatalogRepository) UpsertBrand(ctx context.Context, b *model.Brand) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slug"}},
		DoUpdates: clause.AssignmentColumns([]string{"label", "popular", "updated_at"}),
	}).Create(b).Error
}

// UpsertModel inserts a model or refreshes it by brand and slug
func (r *CatalogRepository) UpsertModel(ctx context.Context, m *model.WatchModel) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "brand_id"}, {Name: "slug"}},
		DoUpdates: clause.AssignmentColumns([]string{"label", "popular", "updated_at"}),
	}).Create(m).Error
}
