package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/CyrilCartoux/watch-pros-sub002/internal/model"
	"github.com/CyrilCartoux/watch-pros-sub002/prometheus"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SellerRepository stores sellers, their addresses and profile links
type SellerRepository struct {
	db *gorm.DB
}

// NewSellerRepository creates a seller repository
func NewSellerRepository(db *gorm.DB) *SellerRepository {
	return &SellerRepository{db: db}
}

func withAddresses(db *gorm.DB) *gorm.DB {
	return db.Preload("Addresses", func(db *gorm.DB) *gorm.DB {
		return db.Order("seller_addresses.created_at ASC")
	})
}

// FindByUserID returns the seller owned by an auth user
func (r *SellerRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*model.Seller, error) {
	defer prometheus.TrackDBOperation("seller_find_by_user")(time.Now())

	var s model.Seller
	if err := r.db.WithContext(ctx).Scopes(withAddresses).First(&s, "user_id = ?", userID).Error; err != nil {
		return nil, notFound(err, "seller")
	}
	return &s, nil
}

// FindByID returns a seller with addresses
func (r *SellerRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Seller, error) {
	defer prometheus.TrackDBOperation("seller_find")(time.Now())

	var s model.Seller
	if err := r.db.WithContext(ctx).Scopes(withAddresses).First(&s, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "seller")
	}
	return &s, nil
}

// EmailTaken reports whether a seller already uses email
func (r *SellerRepository) EmailTaken(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, "LOWER(email) = LOWER(?)", email)
}

// NameTaken reports whether a seller already uses the display name
func (r *SellerRepository) NameTaken(ctx context.Context, watchProsName string) (bool, error) {
	return r.exists(ctx, "LOWER(watch_pros_name) = LOWER(?)", watchProsName)
}

func (r *SellerRepository) exists(ctx context.Context, query string, arg string) (bool, error) {
	defer prometheus.TrackDBOperation("seller_exists")(time.Now())

	var n int64
	if err := r.db.WithContext(ctx).Model(&model.Seller{}).Where(query, arg).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// CreateWithAddress inserts the seller and its first address atomically
func (r *SellerRepository) CreateWithAddress(ctx context.Context, s *model.Seller, addr *model.SellerAddress) error {
	defer prometheus.TrackDBOperation("seller_create")(time.Now())

	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(s).Error; err != nil {
			return fmt.Errorf("insert seller: %w", err)
		}
		if addr.ID == uuid.Nil {
			addr.ID = uuid.New()
		}
		addr.SellerID = s.ID
		if err := tx.Create(addr).Error; err != nil {
			return fmt.Errorf("insert seller address: %w", err)
		}
		return nil
	})
}

// UpdateDocuments stores the uploaded document URLs
func (r *SellerRepository) UpdateDocuments(ctx context.Context, id uuid.UUID, docs model.SellerDocuments) error {
	defer prometheus.TrackDBOperation("seller_update_documents")(time.Now())

	return r.db.WithContext(ctx).Model(&model.Seller{}).Where("id = ?", id).Updates(map[string]interface{}{
		"id_card_front_url":    docs.IDCardFront,
		"id_card_back_url":     docs.IDCardBack,
		"proof_of_address_url": docs.ProofOfAddress,
		"company_logo_url":     docs.CompanyLogo,
	}).Error
}

// SetVerification updates the identity verification state
func (r *SellerRepository) SetVerification(ctx context.Context, id uuid.UUID, state string) error {
	defer prometheus.TrackDBOperation("seller_set_verification")(time.Now())

	res := r.db.WithContext(ctx).Model(&model.Seller{}).Where("id = ?", id).Update("identity_verified", state)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound(gorm.ErrRecordNotFound, "seller")
	}
	return nil
}

// LinkProfile creates or updates the caller's profile with the seller id
func (r *SellerRepository) LinkProfile(ctx context.Context, userID uuid.UUID, email string, sellerID uuid.UUID) error {
	defer prometheus.TrackDBOperation("profile_link")(time.Now())

	p := model.Profile{ID: userID, Email: email, SellerID: &sellerID}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"seller_id", "updated_at"}),
	}).Create(&p).Error
}
