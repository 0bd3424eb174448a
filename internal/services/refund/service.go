// Package refund computes refundability and applies full or partial
// refunds. The already-refunded total is always derived by summing ledger
// rows, never from a stored counter, so replays agree with the ledger.
package refund

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	errs "vaultpay/internal/errors"
	"vaultpay/internal/events"
	"vaultpay/internal/models"
	"vaultpay/internal/repositories"
)

// Refundability reports how much of a transaction can still be refunded.
type Refundability struct {
	TransactionID    uuid.UUID
	Refundable       bool
	OriginalAmount   decimal.Decimal
	AlreadyRefunded  decimal.Decimal
	RefundableAmount decimal.Decimal
}

// Request applies a refund. A nil Amount refunds the full remainder.
type Request struct {
	TransactionID uuid.UUID
	Amount        *decimal.Decimal
	Reason        string
}

// Service is the refund engine.
type Service interface {
	CheckRefundability(ctx context.Context, transactionID uuid.UUID) (*Refundability, error)
	ProcessRefund(ctx context.Context, req Request) (*models.Transaction, error)
}

type service struct {
	uow repositories.UnitOfWork
}

// NewService creates a new refund service.
func NewService(uow repositories.UnitOfWork) Service {
	if uow == nil {
		panic("unit of work is required")
	}
	return &service{uow: uow}
}

func (s *service) CheckRefundability(ctx context.Context, transactionID uuid.UUID) (*Refundability, error) {
	var out *Refundability
	err := s.uow.Do(ctx, func(st repositories.Store) error {
		r, err := s.check(ctx, st, transactionID)
		if err != nil {
			return err
		}
		out = r
		return nil
	})
	if err != nil {
		return nil, mapErr(err)
	}
	return out, nil
}

func (s *service) check(ctx context.Context, st repositories.Store, transactionID uuid.UUID) (*Refundability, error) {
	original, err := st.Transactions().GetByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	refunded, err := st.Transactions().SumRefunded(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	remainder := original.Amount.Sub(refunded)
	return &Refundability{
		TransactionID:    transactionID,
		Refundable:       original.Refundable() && remainder.GreaterThan(decimal.Zero),
		OriginalAmount:   original.Amount,
		AlreadyRefunded:  refunded,
		RefundableAmount: remainder,
	}, nil
}

func (s *service) ProcessRefund(ctx context.Context, req Request) (*models.Transaction, error) {
	if req.Amount != nil && req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, errs.ErrInvalidAmount
	}

	var refundTx *models.Transaction
	err := s.uow.DoRetry(ctx, func(st repositories.Store) error {
		original, err := st.Transactions().GetByID(ctx, req.TransactionID)
		if err != nil {
			return err
		}
		state, err := s.check(ctx, st, req.TransactionID)
		if err != nil {
			return err
		}
		if !state.Refundable {
			return errs.ErrNotRefundable
		}

		amount := state.RefundableAmount
		if req.Amount != nil {
			amount = *req.Amount
		}
		if amount.GreaterThan(state.RefundableAmount) {
			return errs.ErrOverRefund
		}

		wallet, err := st.Wallets().GetByID(ctx, original.WalletID)
		if err != nil {
			return err
		}
		account := accountByID(wallet, original.AccountID)
		if account == nil {
			return errs.ErrAccountNotFound
		}

		wallet.Record(events.RefundInitiated{
			Base:                  events.NewBase(),
			OriginalTransactionID: original.ID,
			Amount:                amount,
			Reason:                req.Reason,
		})

		refundTx, err = account.DepositAs(models.TypeRefund, amount, refundDescription(req.Reason))
		if err != nil {
			return err
		}
		refundTx.LinkRelated(original.ID)

		fullyRefunded := state.AlreadyRefunded.Add(amount).Equal(original.Amount)
		if fullyRefunded {
			if err := original.MarkRefunded(); err != nil {
				return err
			}
			if err := st.Transactions().SaveStatus(ctx, original); err != nil {
				return err
			}
		}

		if err := st.Wallets().Save(ctx, wallet); err != nil {
			return err
		}

		wallet.Record(events.RefundCompleted{
			Base:                  events.NewBase(),
			OriginalTransactionID: original.ID,
			RefundTransactionID:   refundTx.ID,
			Amount:                amount,
			FullyRefunded:         fullyRefunded,
		})
		return nil
	})
	if err != nil {
		return nil, mapErr(err)
	}
	return refundTx, nil
}

func accountByID(w *models.Wallet, id uuid.UUID) *models.CurrencyAccount {
	for _, a := range w.Accounts {
		if a.ID == id {
			return a
		}
	}
	return nil
}

func refundDescription(reason string) string {
	if reason == "" {
		return "Refund"
	}
	return fmt.Sprintf("Refund: %s", reason)
}

func mapErr(err error) error {
	switch {
	case errors.Is(err, repositories.ErrTransactionNotFound):
		return errs.ErrTransactionNotFound
	case errors.Is(err, repositories.ErrWalletNotFound):
		return errs.ErrWalletNotFound
	}
	return err
}
