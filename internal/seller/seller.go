// Package seller registers dealer accounts and handles their admin review.
package seller

import (
	"context"
	"strings"
	"sync"

	"github.com/CyrilCartoux/watch-pros-sub002/internal/imaging"
	"github.com/CyrilCartoux/watch-pros-sub002/internal/model"
	"github.com/CyrilCartoux/watch-pros-sub002/pkg/mailer"
	"github.com/google/uuid"
)

// Store persists sellers and profile links
type Store interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Seller, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) (*model.Seller, error)
	EmailTaken(ctx context.Context, email string) (bool, error)
	NameTaken(ctx context.Context, watchProsName string) (bool, error)
	CreateWithAddress(ctx context.Context, s *model.Seller, addr *model.SellerAddress) error
	UpdateDocuments(ctx context.Context, id uuid.UUID, docs model.SellerDocuments) error
	SetVerification(ctx context.Context, id uuid.UUID, state string) error
	LinkProfile(ctx context.Context, userID uuid.UUID, email string, sellerID uuid.UUID) error
}

// BlobStore uploads and deletes public objects
type BlobStore interface {
	Upload(ctx context.Context, bucket, path, contentType string, data []byte) (string, error)
	Delete(ctx context.Context, bucket string, paths ...string) error
}

// Notifier sends seller related emails
type Notifier interface {
	NotifyAdminNewSeller(ctx context.Context, info mailer.SellerInfo) error
	NotifySellerApproved(ctx context.Context, info mailer.SellerInfo) error
	NotifySellerDeclined(ctx context.Context, info mailer.SellerInfo) error
}

// Config holds the documents bucket and size limit
type Config struct {
	DocumentsBucket  string
	MaxDocumentBytes int64
}

// Service registers and reviews sellers
type Service struct {
	store     Store
	blobs     BlobStore
	notifier  Notifier
	optimizer *imaging.Optimizer
	cfg       Config

	// tracks fire-and-forget notifications
	pending sync.WaitGroup
}

// NewService wires a seller service
func NewService(store Store, blobs BlobStore, notifier Notifier, optimizer *imaging.Optimizer, cfg Config) *Service {
	if cfg.MaxDocumentBytes <= 0 {
		cfg.MaxDocumentBytes = 10 << 20
	}
	return &Service{store: store, blobs: blobs, notifier: notifier, optimizer: optimizer, cfg: cfg}
}

// Wait blocks until background notifications have finished
func (s *Service) Wait() {
	s.pending.Wait()
}

func sellerInfo(s *model.Seller) mailer.SellerInfo {
	return mailer.SellerInfo{
		ID:            s.ID.String(),
		CompanyName:   s.CompanyName,
		WatchProsName: s.WatchProsName,
		FirstName:     s.FirstName,
		LastName:      s.LastName,
		Email:         s.Email,
		Country:       s.DisplayCountry(),
	}
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
