// Package credit manages the wallet credit line: assignment, spending,
// settlement and the time-triggered overdue sweep.
package credit

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	errs "vaultpay/internal/errors"
	"vaultpay/internal/models"
	"vaultpay/internal/repositories"
)

// Service is the credit use-case surface.
type Service interface {
	AssignCredit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, dueDate time.Time, description string) error
	// UseCredit is a non-throwing try: it reports false, without mutation,
	// when the credit line cannot cover the amount or has expired.
	UseCredit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (bool, error)
	// SettleCredit repays the used portion of the open line from the given
	// currency account and closes the line.
	SettleCredit(ctx context.Context, userID uuid.UUID, currency models.CurrencyCode) error
	// RunOverdueCheck flips expired active credit lines to Overdue. Failures
	// on single wallets are logged and the sweep continues.
	RunOverdueCheck(ctx context.Context) (int, error)
}

type service struct {
	uow repositories.UnitOfWork
}

const overdueBatchSize = 100

// NewService creates a new credit service.
func NewService(uow repositories.UnitOfWork) Service {
	if uow == nil {
		panic("unit of work is required")
	}
	return &service{uow: uow}
}

func (s *service) AssignCredit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, dueDate time.Time, description string) error {
	err := s.uow.DoRetry(ctx, func(st repositories.Store) error {
		w, err := st.Wallets().GetByUserID(ctx, userID)
		if err != nil {
			return err
		}
		if !w.IsActive {
			return errs.ErrWalletInactive
		}
		if err := w.AssignCredit(amount, dueDate, description); err != nil {
			return err
		}
		return st.Wallets().Save(ctx, w)
	})
	return mapErr(err)
}

func (s *service) UseCredit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (bool, error) {
	var used bool
	err := s.uow.DoRetry(ctx, func(st repositories.Store) error {
		w, err := st.Wallets().GetByUserID(ctx, userID)
		if err != nil {
			return err
		}
		if !w.IsActive {
			return errs.ErrWalletInactive
		}
		used = w.UseCredit(amount)
		if !used {
			return nil
		}
		return st.Wallets().Save(ctx, w)
	})
	if err != nil {
		return false, mapErr(err)
	}
	return used, nil
}

func (s *service) SettleCredit(ctx context.Context, userID uuid.UUID, currency models.CurrencyCode) error {
	err := s.uow.DoRetry(ctx, func(st repositories.Store) error {
		w, err := st.Wallets().GetByUserID(ctx, userID)
		if err != nil {
			return err
		}
		if !w.IsActive {
			return errs.ErrWalletInactive
		}

		used := w.CreditLimit.Sub(w.CreditBalance)
		var settlementID uuid.UUID
		if used.GreaterThan(decimal.Zero) {
			account, ok := w.Account(currency)
			if !ok {
				return errs.ErrAccountNotFound
			}
			tx, err := account.Withdraw(used, models.TypeCreditSettlement, "Credit settlement", nil)
			if err != nil {
				return err
			}
			settlementID = tx.ID
		}

		if err := w.SettleCredit(settlementID); err != nil {
			return err
		}
		return st.Wallets().Save(ctx, w)
	})
	return mapErr(err)
}

func (s *service) RunOverdueCheck(ctx context.Context) (int, error) {
	var due []*models.Wallet
	err := s.uow.Do(ctx, func(st repositories.Store) error {
		wallets, err := st.Wallets().ListWithDueCredit(ctx, time.Now(), overdueBatchSize)
		if err != nil {
			return err
		}
		due = wallets
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("overdue sweep failed: %w", err)
	}

	// One unit of work per wallet: a failed save must not abort the
	// enclosing transaction and roll back the wallets already flipped.
	flipped := 0
	for _, w := range due {
		var changed bool
		err := s.uow.DoRetry(ctx, func(st repositories.Store) error {
			fresh, err := st.Wallets().GetByID(ctx, w.ID)
			if err != nil {
				return err
			}
			changed = fresh.CheckCreditDueDate()
			if !changed {
				return nil
			}
			return st.Wallets().Save(ctx, fresh)
		})
		if err != nil {
			log.Printf("overdue check: failed to flip wallet %s: %v", w.ID, err)
			continue
		}
		if changed {
			flipped++
		}
	}
	return flipped, nil
}

func mapErr(err error) error {
	if errors.Is(err, repositories.ErrWalletNotFound) {
		return errs.ErrWalletNotFound
	}
	return err
}
