package service

import (
	"context"
	"strings"

	"github.com/Dan9191/recipe-service/internal/apperr"
	"github.com/Dan9191/recipe-service/internal/models"
)

// CreateCheckoutSession opens a hosted payment session for priceID
func (s *Service) CreateCheckoutSession(ctx context.Context, priceID string) (*models.CheckoutSession, error) {
	priceID = strings.TrimSpace(priceID)
	if priceID == "" {
		return nil, apperr.ErrPriceIDRequired
	}
	if s.checkout == nil {
		return nil, apperr.ErrCheckoutFailed
	}

	session, err := s.checkout.CreateSession(ctx, priceID)
	if err != nil {
		s.log.WithError(err).WithField("price_id", priceID).Error("Failed to create checkout session")
		return nil, apperr.ErrCheckoutFailed.Wrap(err)
	}

	s.log.Infof("Checkout session created: %s", session.ID)
	return session, nil
}
