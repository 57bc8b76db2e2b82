package handler

import (
	"context"
	"net/http"

	"github.com/CyrilCartoux/watch-pros-sub002/internal/apperr"
	"github.com/CyrilCartoux/watch-pros-sub002/internal/listing"
	"github.com/CyrilCartoux/watch-pros-sub002/internal/middleware"
	"github.com/CyrilCartoux/watch-pros-sub002/pkg/logger"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ListingService searches and mutates listings
type ListingService interface {
	Limits() listing.Limits
	Search(ctx context.Context, p listing.SearchParams) (listing.Page, error)
	SearchForSeller(ctx context.Context, userID uuid.UUID, p listing.SearchParams) (listing.Page, error)
	Get(ctx context.Context, id uuid.UUID) (listing.Listing, error)
	Create(ctx context.Context, req listing.CreateRequest) (listing.Listing, error)
	Update(ctx context.Context, req listing.UpdateRequest) (listing.Listing, error)
	MarkSold(ctx context.Context, req listing.SellRequest) (listing.Listing, error)
	Delete(ctx context.Context, userID, listingID uuid.UUID) error
}

// ListingHandler serves /api/listings
type ListingHandler struct {
	listings        ListingService
	maxRequestBytes int64
}

// NewListingHandler creates a listing handler
func NewListingHandler(listings ListingService, maxRequestBytes int64) *ListingHandler {
	return &ListingHandler{listings: listings, maxRequestBytes: maxRequestBytes}
}

// SellRequest is the body of PATCH /api/listings/:id
type SellRequest struct {
	Status     string           `json:"status" validate:"omitempty,eq=sold"`
	FinalPrice *decimal.Decimal `json:"finalPrice"`
}

// List handles searching active listings
func (h *ListingHandler) List(c echo.Context) error {
	p, err := listing.ParseSearchParams(c.QueryParams(), h.listings.Limits())
	if err != nil {
		return respondError(c, err)
	}

	page, err := h.listings.Search(c.Request().Context(), p)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, page)
}

// MyListings handles listing the caller's own listings in every status
func (h *ListingHandler) MyListings(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return respondError(c, apperr.Unauthorized("authentication required"))
	}

	p, err := listing.ParseSearchParams(c.QueryParams(), h.listings.Limits())
	if err != nil {
		return respondError(c, err)
	}

	page, err := h.listings.SearchForSeller(c.Request().Context(), userID, p)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, page)
}

// Get handles retrieving one active listing
func (h *ListingHandler) Get(c echo.Context) error {
	id, err := listingID(c)
	if err != nil {
		return respondError(c, err)
	}

	l, err := h.listings.Get(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, l)
}

// Create handles a multipart listing submission
func (h *ListingHandler) Create(c echo.Context) error {
	log := logger.FromContext(c)
	userID, ok := middleware.UserID(c)
	if !ok {
		return respondError(c, apperr.Unauthorized("authentication required"))
	}

	parts, err := readMultipart(c, h.maxRequestBytes)
	if err != nil {
		return respondError(c, err)
	}
	form, err := parseListingForm(parts)
	if err != nil {
		return respondError(c, err)
	}
	images, err := form.newImages()
	if err != nil {
		return respondError(c, err)
	}

	log.Info("Creating listing",
		zap.String("brand", form.Fields.Brand),
		zap.String("model", form.Fields.Model),
		zap.Int("images", len(images)),
		zap.Int("documents", len(form.Documents)))

	l, err := h.listings.Create(c.Request().Context(), listing.CreateRequest{
		UserID:    userID,
		Fields:    form.Fields,
		Images:    images,
		Documents: form.Documents,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "listing": l})
}

// Update handles a multipart replacement of the caller's listing
func (h *ListingHandler) Update(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return respondError(c, apperr.Unauthorized("authentication required"))
	}
	id, err := listingID(c)
	if err != nil {
		return respondError(c, err)
	}

	parts, err := readMultipart(c, h.maxRequestBytes)
	if err != nil {
		return respondError(c, err)
	}
	form, err := parseListingForm(parts)
	if err != nil {
		return respondError(c, err)
	}

	l, err := h.listings.Update(c.Request().Context(), listing.UpdateRequest{
		UserID:    userID,
		ListingID: id,
		Fields:    form.Fields,
		Images:    form.Images,
		Documents: form.Documents,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "listing": l})
}

// MarkSold handles the status-only transition to sold
func (h *ListingHandler) MarkSold(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return respondError(c, apperr.Unauthorized("authentication required"))
	}
	id, err := listingID(c)
	if err != nil {
		return respondError(c, err)
	}

	var req SellRequest
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, err)
	}

	l, err := h.listings.MarkSold(c.Request().Context(), listing.SellRequest{
		UserID:     userID,
		ListingID:  id,
		FinalPrice: req.FinalPrice,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "listing": l})
}

// Delete handles removing the caller's listing and its files
func (h *ListingHandler) Delete(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return respondError(c, apperr.Unauthorized("authentication required"))
	}
	id, err := listingID(c)
	if err != nil {
		return respondError(c, err)
	}

	if err := h.listings.Delete(c.Request().Context(), userID, id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// listingID parses the :id path parameter; malformed ids cannot exist
func listingID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apperr.NotFound("listing not found")
	}
	return id, nil
}
