package model

import (
	"time"

	"github.com/google/uuid"
)

// Brand is a watch manufacturer addressable by id or slug
type Brand struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Slug      string    `json:"slug" gorm:"type:varchar(100);uniqueIndex;not null"`
	Label     string    `json:"label" gorm:"type:varchar(100);not null"`
	Popular   bool      `json:"popular" gorm:"default:false;index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WatchModel is a product line belonging to exactly one brand
type WatchModel struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	BrandID   uuid.UUID `json:"brand_id" gorm:"type:uuid;not null;uniqueIndex:idx_models_brand_slug"`
	Brand     *Brand    `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	Slug      string    `json:"slug" gorm:"type:varchar(100);not null;uniqueIndex:idx_models_brand_slug"`
	Label     string    `json:"label" gorm:"type:varchar(150);not null"`
	Popular   bool      `json:"popular" gorm:"default:false"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (WatchModel) TableName() string {
	return "models"
}
