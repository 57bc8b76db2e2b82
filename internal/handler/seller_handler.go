package handler

import (
	"context"
	"net/http"

	"github.com/CyrilCartoux/watch-pros-sub002/internal/apperr"
	"github.com/CyrilCartoux/watch-pros-sub002/internal/middleware"
	"github.com/CyrilCartoux/watch-pros-sub002/internal/model"
	"github.com/CyrilCartoux/watch-pros-sub002/internal/seller"
	"github.com/CyrilCartoux/watch-pros-sub002/pkg/logger"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// SellerService registers and reviews sellers
type SellerService interface {
	Register(ctx context.Context, req seller.RegisterRequest) (*seller.Registered, error)
	Approve(ctx context.Context, sellerID uuid.UUID) (*model.Seller, error)
	Decline(ctx context.Context, sellerID uuid.UUID, reason string) (*model.Seller, error)
}

// SellerHandler serves seller registration and admin review
type SellerHandler struct {
	sellers         SellerService
	maxRequestBytes int64
}

// NewSellerHandler creates a seller handler
func NewSellerHandler(sellers SellerService, maxRequestBytes int64) *SellerHandler {
	return &SellerHandler{sellers: sellers, maxRequestBytes: maxRequestBytes}
}

// DeclineRequest is the body of POST /api/admin/sellers/:id/decline
type DeclineRequest struct {
	Reason string `json:"reason" validate:"required,max=1000"`
}

// Register handles a multipart seller registration
func (h *SellerHandler) Register(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return respondError(c, apperr.Unauthorized("authentication required"))
	}

	parts, err := readMultipart(c, h.maxRequestBytes)
	if err != nil {
		return respondError(c, err)
	}
	account, address, docs, err := registrationForm(parts)
	if err != nil {
		return respondError(c, err)
	}

	registered, err := h.sellers.Register(c.Request().Context(), seller.RegisterRequest{
		UserID:    userID,
		UserEmail: middleware.UserEmail(c),
		Account:   account,
		Address:   address,
		Documents: docs,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"message": "Seller registered successfully",
		"seller":  registered,
	})
}

// Approve handles marking a seller verified
func (h *SellerHandler) Approve(c echo.Context) error {
	id, err := sellerID(c)
	if err != nil {
		return respondError(c, err)
	}

	s, err := h.sellers.Approve(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	logger.FromContext(c).Info("Seller approved", zap.String("seller_id", id.String()))
	return c.JSON(http.StatusOK, echo.Map{"success": true, "seller": s})
}

// Decline handles rejecting a seller with a reason
func (h *SellerHandler) Decline(c echo.Context) error {
	id, err := sellerID(c)
	if err != nil {
		return respondError(c, err)
	}

	var req DeclineRequest
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, err)
	}

	s, err := h.sellers.Decline(c.Request().Context(), id, req.Reason)
	if err != nil {
		return respondError(c, err)
	}
	logger.FromContext(c).Info("Seller declined", zap.String("seller_id", id.String()))
	return c.JSON(http.StatusOK, echo.Map{"success": true, "seller": s})
}

func sellerID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apperr.NotFound("seller not found")
	}
	return id, nil
}
