// Package payment bridges the opaque payment gateway and the ledger: a
// top-up is only deposited once the gateway verifies the payment, and
// confirmation is idempotent on the gateway reference.
package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	errs "vaultpay/internal/errors"
	"vaultpay/internal/models"
	"vaultpay/internal/repositories"
	"vaultpay/internal/services/wallet"
)

// Service is the gateway-facing top-up flow.
type Service interface {
	InitiateTopUp(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, currency models.CurrencyCode) (*PaymentRequest, error)
	// ConfirmTopUp verifies the gateway payment and deposits the verified
	// amount. Re-confirming a reference returns the existing deposit.
	ConfirmTopUp(ctx context.Context, userID uuid.UUID, referenceID string) (*models.Transaction, error)
}

type service struct {
	gateway Gateway
	wallets wallet.Service
	uow     repositories.UnitOfWork
}

// NewService creates a new payment service.
func NewService(gateway Gateway, wallets wallet.Service, uow repositories.UnitOfWork) Service {
	if gateway == nil {
		panic("gateway is required")
	}
	if wallets == nil {
		panic("wallet service is required")
	}
	return &service{gateway: gateway, wallets: wallets, uow: uow}
}

func (s *service) InitiateTopUp(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, currency models.CurrencyCode) (*PaymentRequest, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, errs.ErrInvalidAmount
	}
	if !currency.Valid() {
		return nil, errs.ErrNotFound.WithMessage("unknown currency %q", currency)
	}

	req, err := s.gateway.CreatePaymentRequest(ctx, amount, currency,
		fmt.Sprintf("Wallet top-up for user %s", userID))
	if err != nil {
		return nil, fmt.Errorf("gateway payment request failed: %w", err)
	}
	return req, nil
}

func (s *service) ConfirmTopUp(ctx context.Context, userID uuid.UUID, referenceID string) (*models.Transaction, error) {
	// Fast path only. The unique index on payment_reference_id is what
	// actually guarantees a single deposit per reference.
	existing, err := s.findByReference(ctx, referenceID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	verification, err := s.gateway.VerifyPayment(ctx, referenceID)
	if err != nil {
		return nil, fmt.Errorf("gateway verification failed: %w", err)
	}
	if !verification.Paid {
		return nil, errs.ErrForbidden.WithMessage("payment %s is not settled", referenceID)
	}

	ref := verification.ReferenceID
	tx, err := s.wallets.Deposit(ctx, wallet.DepositRequest{
		UserID:      userID,
		Currency:    verification.Currency,
		Amount:      verification.Amount,
		Description: "Gateway top-up",
		ReferenceID: &ref,
	})
	if err != nil {
		// A concurrent confirmation of the same reference committed its
		// deposit first; return that one.
		if errors.Is(err, repositories.ErrDuplicateReference) {
			if winner, ferr := s.findByReference(ctx, referenceID); ferr == nil && winner != nil {
				return winner, nil
			}
		}
		return nil, err
	}
	return tx, nil
}

func (s *service) findByReference(ctx context.Context, referenceID string) (*models.Transaction, error) {
	var existing *models.Transaction
	err := s.uow.Do(ctx, func(st repositories.Store) error {
		tx, err := st.Transactions().GetByPaymentReference(ctx, referenceID)
		if err != nil {
			if errors.Is(err, repositories.ErrTransactionNotFound) {
				return nil
			}
			return err
		}
		existing = tx
		return nil
	})
	if err != nil {
		return nil, err
	}
	return existing, nil
}
