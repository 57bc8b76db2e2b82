package model

import (
	"time"

	"github.com/google/uuid"
)

// Identity verification states
const (
	VerificationPending  = "pending"
	VerificationVerified = "verified"
	VerificationRejected = "rejected"
)

// Seller is a professional dealer account
type Seller struct {
	ID                uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID            uuid.UUID       `json:"user_id" gorm:"type:uuid;uniqueIndex;not null"`
	CompanyName       string          `json:"company_name" gorm:"type:varchar(255);not null"`
	WatchProsName     string          `json:"watch_pros_name" gorm:"type:varchar(100);uniqueIndex;not null"`
	CompanyStatus     string          `json:"company_status" gorm:"type:varchar(100)"`
	FirstName         string          `json:"first_name" gorm:"type:varchar(100)"`
	LastName          string          `json:"last_name" gorm:"type:varchar(100)"`
	Title             string          `json:"title" gorm:"type:varchar(20)"`
	Email             string          `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	Phone             string          `json:"phone" gorm:"type:varchar(50)"`
	Country           string          `json:"country" gorm:"type:varchar(100)"`
	BankName          *string         `json:"bank_name" gorm:"type:varchar(255)"`
	IBAN              *string         `json:"iban" gorm:"column:iban;type:varchar(50)"`
	Swift             *string         `json:"swift" gorm:"type:varchar(20)"`
	IdentityVerified  string          `json:"identity_verified" gorm:"type:varchar(20);not null;default:pending;index"`
	CryptoFriendly    bool            `json:"crypto_friendly" gorm:"default:false"`
	IDCardFrontURL    *string         `json:"id_card_front_url" gorm:"type:text"`
	IDCardBackURL     *string         `json:"id_card_back_url" gorm:"type:text"`
	ProofOfAddressURL *string         `json:"proof_of_address_url" gorm:"type:text"`
	CompanyLogoURL    *string         `json:"company_logo_url" gorm:"type:text"`
	Addresses         []SellerAddress `json:"addresses,omitempty" gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// SellerAddress is a registered business address; the first one is canonical
type SellerAddress struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SellerID   uuid.UUID `json:"seller_id" gorm:"type:uuid;not null;index"`
	Siren      string    `json:"siren" gorm:"type:varchar(20)"`
	VATNumber  string    `json:"vat_number" gorm:"column:vat_number;type:varchar(50)"`
	TaxID      string    `json:"tax_id" gorm:"type:varchar(50)"`
	Address    string    `json:"address" gorm:"type:text"`
	City       string    `json:"city" gorm:"type:varchar(100)"`
	PostalCode string    `json:"postal_code" gorm:"type:varchar(20)"`
	Country    string    `json:"country" gorm:"type:varchar(100)"`
	CreatedAt  time.Time `json:"created_at"`
}

// Profile mirrors an auth-provider account and links it to a seller
type Profile struct {
	ID        uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	Email     string     `json:"email" gorm:"type:varchar(255)"`
	SellerID  *uuid.UUID `json:"seller_id" gorm:"type:uuid;index"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// DisplayCountry returns the seller's country, falling back to the canonical address
func (s *Seller) DisplayCountry() string {
	if s.Country != "" {
		return s.Country
	}
	if len(s.Addresses) > 0 {
		return s.Addresses[0].Country
	}
	return ""
}

// SellerDocuments are the public URLs of the registration documents
type SellerDocuments struct {
	IDCardFront    *string
	IDCardBack     *string
	ProofOfAddress *string
	CompanyLogo    *string
}
