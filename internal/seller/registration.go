package seller

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/CyrilCartoux/watch-pros-sub002/internal/apperr"
	"github.com/CyrilCartoux/watch-pros-sub002/internal/imaging"
	"github.com/CyrilCartoux/watch-pros-sub002/internal/model"
	"github.com/CyrilCartoux/watch-pros-sub002/pkg/logger"
	"github.com/CyrilCartoux/watch-pros-sub002/prometheus"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Document kinds in upload order
const (
	DocIDCardFront    = "idCardFront"
	DocIDCardBack     = "idCardBack"
	DocProofOfAddress = "proofOfAddress"
	DocCompanyLogo    = "companyLogo"
)

// DocumentKinds lists every required registration document
var DocumentKinds = []string{DocIDCardFront, DocIDCardBack, DocProofOfAddress, DocCompanyLogo}

// Account is the company and contact part of a registration
type Account struct {
	CompanyName    string `json:"companyName" validate:"required,max=255"`
	WatchProsName  string `json:"watchProsName" validate:"required,min=3,max=100"`
	CompanyStatus  string `json:"companyStatus" validate:"max=100"`
	FirstName      string `json:"firstName" validate:"required,max=100"`
	LastName       string `json:"lastName" validate:"required,max=100"`
	Title          string `json:"title" validate:"max=20"`
	Email          string `json:"email" validate:"required,email"`
	Phone          string `json:"phone" validate:"required,max=50"`
	Country        string `json:"country" validate:"required,max=100"`
	BankName       string `json:"bankName" validate:"max=255"`
	IBAN           string `json:"iban" validate:"max=50"`
	Swift          string `json:"swift" validate:"max=20"`
	CryptoFriendly bool   `json:"cryptoFriendly"`
}

// Address is the business address part of a registration
type Address struct {
	Siren      string `json:"siren" validate:"max=20"`
	VATNumber  string `json:"vatNumber" validate:"max=50"`
	TaxID      string `json:"taxId" validate:"max=50"`
	Address    string `json:"address" validate:"required"`
	City       string `json:"city" validate:"required,max=100"`
	PostalCode string `json:"postalCode" validate:"required,max=20"`
	Country    string `json:"country" validate:"required,max=100"`
}

// File is an uploaded registration document
type File struct {
	Filename    string
	ContentType string
	Data        []byte
}

// RegisterRequest is a complete registration submission
type RegisterRequest struct {
	UserID    uuid.UUID
	UserEmail string
	Account   Account
	Address   Address
	Documents map[string]*File
}

// Registered identifies the new seller
type Registered struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
}

var validate = validator.New()

// Register creates a seller account for the caller. Documents are uploaded
// one by one after the seller row exists; a failing upload removes only its
// own object and aborts, leaving earlier documents and the row in place.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (_ *Registered, err error) {
	defer func() { prometheus.RecordRegistration(err) }()

	log := logger.FromCtx(ctx).With(zap.String("user_id", req.UserID.String()))

	if err := validateRequest(&req); err != nil {
		return nil, err
	}

	switch existing, err := s.store.FindByUserID(ctx, req.UserID); {
	case err == nil:
		log.Warn("Seller already registered", zap.String("seller_id", existing.ID.String()))
		return nil, apperr.Conflict("user", "this account already has a seller profile")
	case !apperr.Is(err, apperr.KindNotFound):
		return nil, apperr.Upstream("failed to check existing seller", err)
	}

	if taken, err := s.store.EmailTaken(ctx, req.Account.Email); err != nil {
		return nil, apperr.Upstream("failed to check email", err)
	} else if taken {
		return nil, apperr.Conflict("email", "a seller with this email already exists")
	}
	if taken, err := s.store.NameTaken(ctx, req.Account.WatchProsName); err != nil {
		return nil, apperr.Upstream("failed to check display name", err)
	} else if taken {
		return nil, apperr.Conflict("watchProsName", "this display name is already taken")
	}

	contentTypes := make(map[string]string, len(DocumentKinds))
	for _, kind := range DocumentKinds {
		ct, err := s.checkDocument(kind, req.Documents[kind])
		if err != nil {
			return nil, err
		}
		contentTypes[kind] = ct
	}

	seller := newSeller(req)
	addr := &model.SellerAddress{
		Siren:      req.Address.Siren,
		VATNumber:  req.Address.VATNumber,
		TaxID:      req.Address.TaxID,
		Address:    req.Address.Address,
		City:       req.Address.City,
		PostalCode: req.Address.PostalCode,
		Country:    req.Address.Country,
	}
	if err := s.store.CreateWithAddress(ctx, seller, addr); err != nil {
		return nil, apperr.Upstream("failed to create seller", err)
	}
	seller.Addresses = []model.SellerAddress{*addr}
	log = log.With(zap.String("seller_id", seller.ID.String()))

	urls := make(map[string]*string, len(DocumentKinds))
	for _, kind := range DocumentKinds {
		url, err := s.uploadDocument(ctx, seller.ID, kind, req.Documents[kind], contentTypes[kind])
		if err != nil {
			log.Error("Seller document upload failed", zap.String("document", kind), zap.Error(err))
			return nil, err
		}
		urls[kind] = &url
	}

	docs := model.SellerDocuments{
		IDCardFront:    urls[DocIDCardFront],
		IDCardBack:     urls[DocIDCardBack],
		ProofOfAddress: urls[DocProofOfAddress],
		CompanyLogo:    urls[DocCompanyLogo],
	}
	if err := s.store.UpdateDocuments(ctx, seller.ID, docs); err != nil {
		return nil, apperr.Upstream("failed to save seller documents", err)
	}

	email := req.UserEmail
	if email == "" {
		email = req.Account.Email
	}
	if err := s.store.LinkProfile(ctx, req.UserID, email, seller.ID); err != nil {
		return nil, apperr.Upstream("failed to link profile", err)
	}

	s.notifyAdmin(ctx, seller)

	log.Info("Seller registered", zap.String("watch_pros_name", seller.WatchProsName))
	return &Registered{ID: seller.ID, Username: seller.WatchProsName}, nil
}

func validateRequest(req *RegisterRequest) error {
	req.Account.Email = strings.TrimSpace(req.Account.Email)
	req.Account.WatchProsName = strings.TrimSpace(req.Account.WatchProsName)

	for _, v := range []interface{}{&req.Account, &req.Address} {
		if err := validate.Struct(v); err != nil {
			var verrs validator.ValidationErrors
			if errors.As(err, &verrs) && len(verrs) > 0 {
				field := verrs[0].Field()
				field = strings.ToLower(field[:1]) + field[1:]
				return apperr.Validation(field, fmt.Sprintf("invalid %s", field))
			}
			return apperr.Validation("", err.Error())
		}
	}
	return nil
}

func newSeller(req RegisterRequest) *model.Seller {
	a := req.Account
	return &model.Seller{
		ID:               uuid.New(),
		UserID:           req.UserID,
		CompanyName:      a.CompanyName,
		WatchProsName:    a.WatchProsName,
		CompanyStatus:    a.CompanyStatus,
		FirstName:        a.FirstName,
		LastName:         a.LastName,
		Title:            a.Title,
		Email:            a.Email,
		Phone:            a.Phone,
		Country:          a.Country,
		BankName:         optional(a.BankName),
		IBAN:             optional(a.IBAN),
		Swift:            optional(a.Swift),
		IdentityVerified: model.VerificationPending,
		CryptoFriendly:   a.CryptoFriendly,
	}
}

// checkDocument returns the detected content type of a required document
func (s *Service) checkDocument(kind string, f *File) (string, error) {
	if f == nil || len(f.Data) == 0 {
		return "", apperr.Validation(kind, fmt.Sprintf("%s is required", kind))
	}
	if int64(len(f.Data)) > s.cfg.MaxDocumentBytes {
		return "", apperr.Validation(kind, fmt.Sprintf("%s exceeds %d bytes", kind, s.cfg.MaxDocumentBytes))
	}
	ct := imaging.DetectType(f.Data, f.ContentType)
	if !strings.HasPrefix(ct, "image/") && ct != "application/pdf" {
		return "", apperr.Validation(kind, fmt.Sprintf("%s must be an image or a PDF", kind))
	}
	return ct, nil
}

func (s *Service) uploadDocument(ctx context.Context, sellerID uuid.UUID, kind string, f *File, contentType string) (string, error) {
	data, ext := f.Data, extension(f.Filename, contentType)
	if imaging.Allowed(contentType) {
		optimized, err := s.optimizer.Optimize(f.Data, contentType)
		if err != nil {
			return "", apperr.Validation(kind, fmt.Sprintf("%s: %v", kind, err))
		}
		data, ext, contentType = optimized, imaging.Extension, imaging.ContentType
	}

	path := fmt.Sprintf("%s/%s.%s", sellerID, kind, ext)
	url, err := s.blobs.Upload(ctx, s.cfg.DocumentsBucket, path, contentType, data)
	if err != nil {
		// the object may exist if the failure came after the write
		if derr := s.blobs.Delete(context.WithoutCancel(ctx), s.cfg.DocumentsBucket, path); derr != nil {
			prometheus.RecordCompensation("seller_document", derr)
			logger.FromCtx(ctx).Warn("Failed to remove partial seller document", zap.String("path", path), zap.Error(derr))
		}
		return "", apperr.Upstream(fmt.Sprintf("failed to upload %s", kind), err)
	}
	return url, nil
}

func extension(filename, contentType string) string {
	if contentType == "application/pdf" {
		return "pdf"
	}
	if ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), ".")); ext != "" {
		return ext
	}
	return strings.TrimPrefix(contentType, "image/")
}

// notifyAdmin emails the admin inbox without blocking the response
func (s *Service) notifyAdmin(ctx context.Context, seller *model.Seller) {
	info := sellerInfo(seller)
	ctx = context.WithoutCancel(ctx)

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if err := s.notifier.NotifyAdminNewSeller(ctx, info); err != nil {
			logger.FromCtx(ctx).Error("Failed to notify admin of new seller",
				zap.String("seller_id", info.ID),
				zap.Error(err),
			)
		}
	}()
}
