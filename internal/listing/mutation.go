package listing

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/CyrilCartoux/watch-pros-sub002/internal/apperr"
	"github.com/CyrilCartoux/watch-pros-sub002/internal/imaging"
	"github.com/CyrilCartoux/watch-pros-sub002/internal/model"
	"github.com/CyrilCartoux/watch-pros-sub002/internal/saga"
	"github.com/CyrilCartoux/watch-pros-sub002/pkg/logger"
	"github.com/CyrilCartoux/watch-pros-sub002/prometheus"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Create inserts a listing and its images and documents. Any failure
// removes everything this request stored.
func (s *Service) Create(ctx context.Context, req CreateRequest) (_ Listing, err error) {
	defer func() { prometheus.RecordListingOperation("create", err) }()

	if err := req.Fields.Validate(); err != nil {
		return Listing{}, err
	}

	seller, err := s.sellers.FindByUserID(ctx, req.UserID)
	if err != nil {
		return Listing{}, err
	}
	brand, wm, err := s.resolveForWrite(ctx, req.Fields.Brand, req.Fields.Model)
	if err != nil {
		return Listing{}, err
	}

	l := &model.Listing{
		ID:          uuid.New(),
		SellerID:    seller.ID,
		BrandID:     brand.ID,
		ModelID:     wm.ID,
		ReferenceID: ReferenceID(brand.Slug, wm.Slug, req.Fields.Reference, s.now()),
		Status:      model.StatusActive,
		ListingType: model.TypeWatch,
	}
	applyFields(l, req.Fields, brand, wm)

	log := logger.FromCtx(ctx).With(zap.String("listing_id", l.ID.String()))

	sg := saga.New()
	err = sg.Run(ctx,
		saga.Step{
			Name: "insert_listing",
			Do: func(ctx context.Context) error {
				if err := s.store.Create(ctx, l); err != nil {
					return apperr.Upstream("failed to create listing", err)
				}
				return nil
			},
			Undo: func(ctx context.Context) error {
				return s.store.Delete(ctx, l.ID)
			},
		},
		sg.Parallel("images", s.imageItems(l, wm.Slug, req.Images)),
		sg.Parallel("documents", s.documentItems(l.ID, req.Documents, 0)),
	)
	if err != nil {
		log.Warn("Listing creation rolled back", zap.Error(err))
		return Listing{}, err
	}

	log.Info("Listing created",
		zap.String("reference_id", l.ReferenceID),
		zap.Int("images", len(req.Images)),
		zap.Int("documents", len(req.Documents)),
	)
	return s.reload(ctx, l.ID)
}

// Update replaces fields and the ordered image list of an owned listing
// and appends new documents
func (s *Service) Update(ctx context.Context, req UpdateRequest) (_ Listing, err error) {
	defer func() { prometheus.RecordListingOperation("update", err) }()

	if err := req.Fields.Validate(); err != nil {
		return Listing{}, err
	}

	l, err := s.owned(ctx, req.UserID, req.ListingID)
	if err != nil {
		return Listing{}, err
	}
	if l.Status == model.StatusSold {
		return Listing{}, apperr.Conflict("status", "sold listings cannot be modified")
	}
	if req.Fields.Status != "" && !model.CanTransition(l.Status, req.Fields.Status) {
		return Listing{}, apperr.Conflict("status", fmt.Sprintf("cannot move listing from %s to %s", l.Status, req.Fields.Status))
	}

	brand, wm, err := s.resolveForWrite(ctx, req.Fields.Brand, req.Fields.Model)
	if err != nil {
		return Listing{}, err
	}

	previous := make(map[string]bool, len(l.Images))
	for _, img := range l.Images {
		previous[img.URL] = true
	}

	l.BrandID = brand.ID
	l.ModelID = wm.ID
	applyFields(l, req.Fields, brand, wm)

	log := logger.FromCtx(ctx).With(zap.String("listing_id", l.ID.String()))

	var images []model.ListingImage
	if req.Images != nil {
		images = make([]model.ListingImage, len(req.Images))
	}
	kept := make(map[string]bool, len(req.Images))
	var uploads []saga.Item
	version := s.now().UnixNano()

	for i, entry := range req.Images {
		images[i] = model.ListingImage{ListingID: l.ID, OrderIndex: i}
		if entry.File == nil {
			if !strings.HasPrefix(entry.URL, "http") {
				return Listing{}, apperr.Validation("images", fmt.Sprintf("image %d is neither a file nor a URL", i))
			}
			images[i].URL = entry.URL
			kept[entry.URL] = true
			continue
		}

		file := entry.File
		// versioned name so a re-ordered list never overwrites a blob still in use
		path := fmt.Sprintf("%s/%s-%s-%d-%d.%s", l.ID, wm.Slug, slugify(l.Reference), i, version, imaging.Extension)
		uploads = append(uploads, func(ctx context.Context) (saga.Action, error) {
			url, err := s.putImage(ctx, file, path)
			if err != nil {
				return nil, err
			}
			images[i].URL = url
			return s.deleteBlob(s.cfg.ImagesBucket, path), nil
		})
	}

	sg := saga.New()
	err = sg.Run(ctx,
		sg.Parallel("images", uploads),
		sg.Parallel("documents", s.documentItems(l.ID, req.Documents, len(l.Documents))),
		saga.Step{
			Name: "save_listing",
			Do: func(ctx context.Context) error {
				if err := s.store.Save(ctx, l, images); err != nil {
					return apperr.Upstream("failed to update listing", err)
				}
				return nil
			},
		},
	)
	if err != nil {
		log.Warn("Listing update rolled back", zap.Error(err))
		return Listing{}, err
	}

	var dropped []string
	for url := range previous {
		if images == nil || kept[url] {
			continue
		}
		if path, ok := s.blobs.PathFromURL(s.cfg.ImagesBucket, url); ok {
			dropped = append(dropped, path)
		}
	}
	if len(dropped) > 0 {
		if err := s.blobs.Delete(context.WithoutCancel(ctx), s.cfg.ImagesBucket, dropped...); err != nil {
			log.Error("Failed to delete replaced images", zap.Strings("paths", dropped), zap.Error(err))
		}
	}

	log.Info("Listing updated",
		zap.Bool("images_replaced", images != nil),
		zap.Int("images", len(images)),
		zap.Int("dropped_images", len(dropped)),
	)
	return s.reload(ctx, l.ID)
}

// MarkSold closes an owned listing, optionally recording the final price
func (s *Service) MarkSold(ctx context.Context, req SellRequest) (_ Listing, err error) {
	defer func() { prometheus.RecordListingOperation("mark_sold", err) }()

	if req.FinalPrice != nil && req.FinalPrice.IsNegative() {
		return Listing{}, apperr.Validation("finalPrice", "final price must not be negative")
	}

	l, err := s.owned(ctx, req.UserID, req.ListingID)
	if err != nil {
		return Listing{}, err
	}
	if l.Status == model.StatusSold {
		return Listing{}, apperr.Conflict("status", "listing is already sold")
	}

	l.Status = model.StatusSold
	if req.FinalPrice != nil {
		l.FinalPrice = decimal.NewNullDecimal(*req.FinalPrice)
	}
	if err := s.store.Save(ctx, l, nil); err != nil {
		return Listing{}, apperr.Upstream("failed to update listing", err)
	}

	logger.FromCtx(ctx).Info("Listing sold", zap.String("listing_id", l.ID.String()))
	return s.reload(ctx, l.ID)
}

// Delete removes an owned listing and its stored files. Storage cleanup
// failures are logged, not returned.
func (s *Service) Delete(ctx context.Context, userID, listingID uuid.UUID) (err error) {
	defer func() { prometheus.RecordListingOperation("delete", err) }()

	l, err := s.owned(ctx, userID, listingID)
	if err != nil {
		return err
	}

	log := logger.FromCtx(ctx).With(zap.String("listing_id", l.ID.String()))

	var imagePaths, docPaths []string
	for _, img := range l.Images {
		if p, ok := s.blobs.PathFromURL(s.cfg.ImagesBucket, img.URL); ok {
			imagePaths = append(imagePaths, p)
		}
	}
	for _, doc := range l.Documents {
		if p, ok := s.blobs.PathFromURL(s.cfg.DocumentsBucket, doc.URL); ok {
			docPaths = append(docPaths, p)
		}
	}

	cleanup := context.WithoutCancel(ctx)
	if err := s.blobs.Delete(cleanup, s.cfg.ImagesBucket, imagePaths...); err != nil {
		log.Error("Failed to delete listing images", zap.Error(err))
	}
	if err := s.blobs.Delete(cleanup, s.cfg.DocumentsBucket, docPaths...); err != nil {
		log.Error("Failed to delete listing documents", zap.Error(err))
	}

	if err := s.store.Delete(ctx, l.ID); err != nil {
		return apperr.Upstream("failed to delete listing", err)
	}

	log.Info("Listing deleted", zap.Int("images", len(imagePaths)), zap.Int("documents", len(docPaths)))
	return nil
}

// owned loads a listing and checks that the caller's seller owns it
func (s *Service) owned(ctx context.Context, userID, listingID uuid.UUID) (*model.Listing, error) {
	seller, err := s.sellers.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	l, err := s.store.Get(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if l.SellerID != seller.ID {
		return nil, apperr.NotFound("listing not found")
	}
	return l, nil
}

func (s *Service) reload(ctx context.Context, id uuid.UUID) (Listing, error) {
	l, err := s.store.Get(ctx, id)
	if err != nil {
		return Listing{}, err
	}
	return Shape(l), nil
}

func (s *Service) resolveForWrite(ctx context.Context, brandRaw, modelRaw string) (*model.Brand, *model.WatchModel, error) {
	brandRef, modelRef := ParseRef(brandRaw), ParseRef(modelRaw)
	if brandRef.IsZero() {
		return nil, nil, apperr.Validation("brand", "brand is required")
	}
	if modelRef.IsZero() {
		return nil, nil, apperr.Validation("model", "model is required")
	}

	brand, err := s.catalog.FindBrand(ctx, brandRef)
	if err != nil {
		return nil, nil, err
	}
	// FindModel is scoped to the brand so a model of another brand is not found
	wm, err := s.catalog.FindModel(ctx, brand.ID, modelRef)
	if err != nil {
		return nil, nil, err
	}
	return brand, wm, nil
}

func applyFields(l *model.Listing, f Fields, brand *model.Brand, wm *model.WatchModel) {
	l.Reference = strings.TrimSpace(f.Reference)
	l.Title = strings.TrimSpace(f.Title)
	if l.Title == "" {
		l.Title = strings.TrimSpace(fmt.Sprintf("%s %s %s", brand.Label, wm.Label, l.Reference))
	}
	l.Description = f.Description
	l.Year = f.Year
	l.Condition = f.Condition
	l.Price = f.Price
	l.Currency = f.Currency
	l.ShippingDelay = f.ShippingDelay
	if f.ListingType != "" {
		l.ListingType = f.ListingType
	}
	if f.Status != "" {
		l.Status = f.Status
	}
	l.DialColor = f.DialColor
	l.Included = f.Included
	l.DiameterMin = f.DiameterMin
	l.DiameterMax = f.DiameterMax
}

// imageItems builds one batch item per image: validate, optimize, upload
// and insert the row. A row insert failure deletes the uploaded blob.
func (s *Service) imageItems(l *model.Listing, modelSlug string, files []Upload) []saga.Item {
	items := make([]saga.Item, len(files))
	for i := range files {
		file := &files[i]
		path := ImagePath(l.ID, modelSlug, l.Reference, i)
		items[i] = func(ctx context.Context) (saga.Action, error) {
			url, err := s.putImage(ctx, file, path)
			if err != nil {
				return nil, err
			}

			row := &model.ListingImage{ID: uuid.New(), ListingID: l.ID, URL: url, OrderIndex: i}
			if err := s.store.AddImage(ctx, row); err != nil {
				s.discard(ctx, s.cfg.ImagesBucket, path)
				return nil, apperr.Upstream("failed to save image", err)
			}

			return func(ctx context.Context) error {
				if err := s.store.DeleteImage(ctx, row.ID); err != nil {
					return err
				}
				return s.blobs.Delete(ctx, s.cfg.ImagesBucket, path)
			}, nil
		}
	}
	return items
}

// documentItems builds one batch item per document, numbering from offset
func (s *Service) documentItems(listingID uuid.UUID, files []Upload, offset int) []saga.Item {
	items := make([]saga.Item, len(files))
	for i := range files {
		file := &files[i]
		index := offset + i
		items[i] = func(ctx context.Context) (saga.Action, error) {
			contentType, err := s.checkDocument(file)
			if err != nil {
				return nil, err
			}

			path, ext := DocumentPath(listingID, file.Filename, index)
			url, err := s.blobs.Upload(ctx, s.cfg.DocumentsBucket, path, contentType, file.Data)
			if err != nil {
				return nil, apperr.Upstream("failed to upload document", err)
			}

			row := &model.ListingDocument{ID: uuid.New(), ListingID: listingID, URL: url, DocumentType: strings.ToUpper(ext)}
			if err := s.store.AddDocument(ctx, row); err != nil {
				s.discard(ctx, s.cfg.DocumentsBucket, path)
				return nil, apperr.Upstream("failed to save document", err)
			}

			return func(ctx context.Context) error {
				if err := s.store.DeleteDocument(ctx, row.ID); err != nil {
					return err
				}
				return s.blobs.Delete(ctx, s.cfg.DocumentsBucket, path)
			}, nil
		}
	}
	return items
}

func (s *Service) putImage(ctx context.Context, file *Upload, path string) (string, error) {
	contentType := imaging.DetectType(file.Data, file.ContentType)
	if !imaging.Allowed(contentType) {
		return "", apperr.Validation("images", fmt.Sprintf("%s: unsupported image type %s", file.Filename, contentType))
	}

	data, err := s.optimizer.Optimize(file.Data, contentType)
	if err != nil {
		return "", apperr.Validation("images", fmt.Sprintf("%s: %v", file.Filename, err))
	}

	url, err := s.blobs.Upload(ctx, s.cfg.ImagesBucket, path, imaging.ContentType, data)
	if err != nil {
		return "", apperr.Upstream("failed to upload image", err)
	}
	return url, nil
}

func (s *Service) checkDocument(file *Upload) (string, error) {
	if int64(len(file.Data)) > s.cfg.MaxDocumentBytes {
		return "", apperr.Validation("documents", fmt.Sprintf("%s exceeds %d bytes", file.Filename, s.cfg.MaxDocumentBytes))
	}
	contentType := http.DetectContentType(file.Data)
	if contentType == "application/octet-stream" && file.ContentType != "" {
		contentType = file.ContentType
	}
	if contentType != "application/pdf" && !imaging.Allowed(contentType) {
		return "", apperr.Validation("documents", fmt.Sprintf("%s: unsupported document type %s", file.Filename, contentType))
	}
	if DocumentExt(file.Filename) == "" {
		return "", apperr.Validation("documents", fmt.Sprintf("%s: missing file extension", file.Filename))
	}
	return contentType, nil
}

func (s *Service) deleteBlob(bucket, path string) saga.Action {
	return func(ctx context.Context) error {
		return s.blobs.Delete(ctx, bucket, path)
	}
}

// discard deletes a blob whose row could not be written; failures are logged
func (s *Service) discard(ctx context.Context, bucket, path string) {
	err := s.blobs.Delete(context.WithoutCancel(ctx), bucket, path)
	prometheus.RecordCompensation("discard_blob", err)
	if err != nil {
		logger.FromCtx(ctx).Error("Failed to delete orphaned blob",
			zap.String("bucket", bucket),
			zap.String("path", path),
			zap.Error(err),
		)
	}
}
