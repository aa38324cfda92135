// Package account manages a customer's saved payment methods and shipping addresses.
package account

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/malcomtyk21/IS2108-Project-Auroramart/internal/domain"
	"github.com/malcomtyk21/IS2108-Project-Auroramart/internal/store"
)

type Service struct {
	store  store.AccountStore
	logger *zap.Logger
	now    func() time.Time
}

func NewService(s store.AccountStore, logger *zap.Logger) *Service {
	return &Service{store: s, logger: logger, now: time.Now}
}

func (s *Service) AddPayment(ctx context.Context, userID int64, in PaymentInput) (*domain.PaymentInformation, error) {
	card, err := validatePayment(in, s.now())
	if err != nil {
		return nil, err
	}
	p := paymentFromInput(userID, card, in)
	if err := s.store.CreatePayment(ctx, p); err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}
	s.logger.Info("payment method added",
		zap.Int64("user_id", userID),
		zap.Int64("payment_id", p.ID),
		zap.String("card_brand", p.CardBrand))
	return p, nil
}

func (s *Service) UpdatePayment(ctx context.Context, userID, id int64, in PaymentInput) (*domain.PaymentInformation, error) {
	card, err := validatePayment(in, s.now())
	if err != nil {
		return nil, err
	}
	p := paymentFromInput(userID, card, in)
	p.ID = id
	if err := s.store.UpdatePayment(ctx, p); err != nil {
		return nil, fmt.Errorf("update payment %d: %w", id, err)
	}
	return s.store.GetPayment(ctx, userID, id)
}

func (s *Service) DeletePayment(ctx context.Context, userID, id int64) error {
	if err := s.store.DeletePayment(ctx, userID, id); err != nil {
		return fmt.Errorf("delete payment %d: %w", id, err)
	}
	return nil
}

func (s *Service) ListPayments(ctx context.Context, userID int64) ([]*domain.PaymentInformation, error) {
	return s.store.ListPayments(ctx, userID)
}

func (s *Service) AddShipping(ctx context.Context, userID int64, in ShippingInput) (*domain.ShippingInformation, error) {
	if err := validateShipping(in); err != nil {
		return nil, err
	}
	sh := shippingFromInput(userID, in)
	if err := s.store.CreateShipping(ctx, sh); err != nil {
		return nil, fmt.Errorf("create shipping: %w", err)
	}
	s.logger.Info("shipping address added",
		zap.Int64("user_id", userID),
		zap.Int64("shipping_id", sh.ID))
	return sh, nil
}

func (s *Service) UpdateShipping(ctx context.Context, userID, id int64, in ShippingInput) (*domain.ShippingInformation, error) {
	if err := validateShipping(in); err != nil {
		return nil, err
	}
	sh := shippingFromInput(userID, in)
	sh.ID = id
	if err := s.store.UpdateShipping(ctx, sh); err != nil {
		return nil, fmt.Errorf("update shipping %d: %w", id, err)
	}
	return s.store.GetShipping(ctx, userID, id)
}

func (s *Service) DeleteShipping(ctx context.Context, userID, id int64) error {
	if err := s.store.DeleteShipping(ctx, userID, id); err != nil {
		return fmt.Errorf("delete shipping %d: %w", id, err)
	}
	return nil
}

func (s *Service) ListShippings(ctx context.Context, userID int64) ([]*domain.ShippingInformation, error) {
	return s.store.ListShippings(ctx, userID)
}

func paymentFromInput(userID int64, card string, in PaymentInput) *domain.PaymentInformation {
	return &domain.PaymentInformation{
		CustomerID:     userID,
		CardLast4:      card[len(card)-4:],
		CardBrand:      in.CardBrand,
		ExpiryMonth:    strings.TrimSpace(in.ExpiryMonth),
		ExpiryYear:     strings.TrimSpace(in.ExpiryYear),
		CardholderName: strings.TrimSpace(in.CardholderName),
		BillingAddress: strings.TrimSpace(in.BillingAddress),
	}
}

func shippingFromInput(userID int64, in ShippingInput) *domain.ShippingInformation {
	return &domain.ShippingInformation{
		CustomerID:    userID,
		AddressLine1:  strings.TrimSpace(in.AddressLine1),
		AddressLine2:  strings.TrimSpace(in.AddressLine2),
		City:          strings.TrimSpace(in.City),
		State:         strings.TrimSpace(in.State),
		PostalCode:    strings.TrimSpace(in.PostalCode),
		Country:       strings.TrimSpace(in.Country),
		ContactNumber: strings.TrimSpace(in.ContactNumber),
	}
}
