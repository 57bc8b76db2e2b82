package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/CyrilCartoux/watch-pros-sub002/internal/listing"
	"github.com/CyrilCartoux/watch-pros-sub002/internal/model"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// CatalogReader lists brands and models
type CatalogReader interface {
	FindBrand(ctx context.Context, ref listing.Ref) (*model.Brand, error)
	ListBrands(ctx context.Context, popularOnly bool) ([]model.Brand, error)
	ListModels(ctx context.Context, brandID uuid.UUID) ([]model.WatchModel, error)
}

// CatalogHandler serves /api/brands
type CatalogHandler struct {
	catalog CatalogReader
}

// NewCatalogHandler creates a catalog handler
func NewCatalogHandler(catalog CatalogReader) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// Brands handles listing brands, optionally only popular ones
func (h *CatalogHandler) Brands(c echo.Context) error {
	popular, _ := strconv.ParseBool(c.QueryParam("popular"))

	brands, err := h.catalog.ListBrands(c.Request().Context(), popular)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"brands": brands})
}

// Models handles listing the models of a brand given by id or slug
func (h *CatalogHandler) Models(c echo.Context) error {
	ctx := c.Request().Context()

	brand, err := h.catalog.FindBrand(ctx, listing.ParseRef(c.Param("brand")))
	if err != nil {
		return respondError(c, err)
	}

	models, err := h.catalog.ListModels(ctx, brand.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"brand": brand, "models": models})
}
