package seller

import (
	"context"

	"github.com/CyrilCartoux/watch-pros-sub002/internal/apperr"
	"github.com/CyrilCartoux/watch-pros-sub002/internal/model"
	"github.com/CyrilCartoux/watch-pros-sub002/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Approve marks a seller verified and tells them by email
func (s *Service) Approve(ctx context.Context, sellerID uuid.UUID) (*model.Seller, error) {
	return s.review(ctx, sellerID, model.VerificationVerified, "")
}

// Decline marks a seller rejected and tells them why by email
func (s *Service) Decline(ctx context.Context, sellerID uuid.UUID, reason string) (*model.Seller, error) {
	return s.review(ctx, sellerID, model.VerificationRejected, reason)
}

func (s *Service) review(ctx context.Context, sellerID uuid.UUID, state, reason string) (*model.Seller, error) {
	seller, err := s.store.FindByID(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	if seller.IdentityVerified == state {
		return nil, apperr.Conflict("identity_verified", "seller is already "+state)
	}

	if err := s.store.SetVerification(ctx, seller.ID, state); err != nil {
		return nil, apperr.Upstream("failed to update seller", err)
	}
	seller.IdentityVerified = state

	log := logger.FromCtx(ctx).With(zap.String("seller_id", seller.ID.String()), zap.String("state", state))

	info := sellerInfo(seller)
	info.Reason = reason
	if state == model.VerificationVerified {
		err = s.notifier.NotifySellerApproved(ctx, info)
	} else {
		err = s.notifier.NotifySellerDeclined(ctx, info)
	}
	if err != nil {
		log.Error("Failed to notify seller of review", zap.Error(err))
	}

	log.Info("Seller reviewed")
	return seller, nil
}
