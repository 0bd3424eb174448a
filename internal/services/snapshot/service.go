// Package snapshot takes periodic balance snapshots and reconciles account
// balances against the transaction ledger.
package snapshot

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"vaultpay/internal/models"
	"vaultpay/internal/repositories"
)

// Report compares an account's materialized balance with the sum of its
// ledger entries. Consistent accounts have a zero Drift.
type Report struct {
	AccountID uuid.UUID
	Balance   decimal.Decimal
	TotalIn   decimal.Decimal
	TotalOut  decimal.Decimal
	Drift     decimal.Decimal
}

// Consistent reports whether the balance matches the ledger.
func (r *Report) Consistent() bool {
	return r.Drift.IsZero()
}

// Service runs snapshotting and reconciliation.
type Service interface {
	// TakeSnapshots snapshots every active account; a failing account is
	// logged and skipped, never aborting the batch.
	TakeSnapshots(ctx context.Context, kind models.SnapshotType) (int, error)
	Reconcile(ctx context.Context, accountID uuid.UUID) (*Report, error)
	History(ctx context.Context, accountID uuid.UUID, limit int) ([]models.AccountBalanceSnapshot, error)
}

type service struct {
	uow repositories.UnitOfWork
}

// NewService creates a new snapshot service.
func NewService(uow repositories.UnitOfWork) Service {
	if uow == nil {
		panic("unit of work is required")
	}
	return &service{uow: uow}
}

func (s *service) TakeSnapshots(ctx context.Context, kind models.SnapshotType) (int, error) {
	var accounts []*models.CurrencyAccount
	err := s.uow.Do(ctx, func(st repositories.Store) error {
		list, err := st.Wallets().ListActiveAccounts(ctx)
		if err != nil {
			return err
		}
		accounts = list
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("snapshot batch failed: %w", err)
	}

	// Each snapshot commits in its own transaction; a failed insert would
	// otherwise abort the enclosing transaction and take the whole batch
	// down with it.
	taken := 0
	for _, account := range accounts {
		snap := models.NewSnapshot(account, kind)
		err := s.uow.Do(ctx, func(st repositories.Store) error {
			return st.Snapshots().Create(ctx, snap)
		})
		if err != nil {
			log.Printf("snapshot failed for account %s: %v", account.ID, err)
			continue
		}
		taken++
	}
	return taken, nil
}

func (s *service) Reconcile(ctx context.Context, accountID uuid.UUID) (*Report, error) {
	var report *Report
	err := s.uow.Do(ctx, func(st repositories.Store) error {
		in, err := st.Transactions().SumByDirection(ctx, accountID, models.DirectionIn)
		if err != nil {
			return err
		}
		out, err := st.Transactions().SumByDirection(ctx, accountID, models.DirectionOut)
		if err != nil {
			return err
		}

		account, err := st.Wallets().GetAccountByID(ctx, accountID)
		if err != nil {
			return err
		}
		report = &Report{
			AccountID: accountID,
			Balance:   account.Balance,
			TotalIn:   in,
			TotalOut:  out,
			Drift:     account.Balance.Sub(in.Sub(out)),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

func (s *service) History(ctx context.Context, accountID uuid.UUID, limit int) ([]models.AccountBalanceSnapshot, error) {
	var out []models.AccountBalanceSnapshot
	err := s.uow.Do(ctx, func(st repositories.Store) error {
		snaps, err := st.Snapshots().ListForAccount(ctx, accountID, limit)
		if err != nil {
			return err
		}
		out = snaps
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
