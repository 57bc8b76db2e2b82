package handler

import (
	"github.com/labstack/echo/v4"
)

// Handlers groups every HTTP handler of the API
type Handlers struct {
	Health   *HealthHandler
	Listings *ListingHandler
	Sellers  *SellerHandler
	Catalog  *CatalogHandler
}

// RegisterRoutes installs the validator, the error renderer and every route.
// auth authenticates the caller; admin must run after it.
func RegisterRoutes(e *echo.Echo, h Handlers, auth, admin echo.MiddlewareFunc) {
	e.Validator = NewValidator()
	e.HTTPErrorHandler = ErrorHandler

	e.GET("/health", h.Health.HealthCheck)

	api := e.Group("/api")

	api.GET("/listings", h.Listings.List)
	api.GET("/listings/:id", h.Listings.Get)
	api.POST("/listings", h.Listings.Create, auth)
	api.PUT("/listings/:id", h.Listings.Update, auth)
	api.PATCH("/listings/:id", h.Listings.MarkSold, auth)
	api.DELETE("/listings/:id", h.Listings.Delete, auth)

	api.GET("/brands", h.Catalog.Brands)
	api.GET("/brands/:brand/models", h.Catalog.Models)

	api.POST("/sellers/register", h.Sellers.Register, auth)
	api.GET("/sellers/me/listings", h.Listings.MyListings, auth)

	adminAPI := api.Group("/admin", auth, admin)
	adminAPI.POST("/sellers/:id/approve", h.Sellers.Approve)
	adminAPI.POST("/sellers/:id/decline", h.Sellers.Decline)
}
