// Package transfer orchestrates the two-leg movement of funds between
// wallets. Both legs commit inside one unit of work or not at all.
package transfer

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

// Request describes a transfer between two users' wallets.
type Request struct {
	FromUserID  uuid.UUID
	ToUserID    uuid.UUID
	Amount      decimal.Decimal
	Currency    models.CurrencyCode
	Description string
}

// Result reports the committed transfer.
type Result struct {
	TransferID uuid.UUID
	Fee        decimal.Decimal
	SourceTx   *models.Transaction
	TargetTx   *models.Transaction
}

// Service moves funds between wallets, net of a fee.
type Service interface {
	Transfer(ctx context.Context, req Request) (*Result, error)
}

type service struct {
	uow  repositories.UnitOfWork
	fees *FeeCalculator
}

// NewService creates a new transfer service.
func NewService(uow repositories.UnitOfWork, fees *FeeCalculator) Service {
	if uow == nil {
		panic("unit of work is required")
	}
	if fees == nil {
		panic("fee calculator is required")
	}
	return &service{uow: uow, fees: fees}
}

func (s *service) Transfer(ctx context.Context, req Request) (*Result, error) {
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, errs.ErrInvalidAmount
	}
	if !req.Currency.Valid() {
		return nil, errs.ErrNotFound.WithMessage("unknown currency %q", req.Currency)
	}
	if req.FromUserID == req.ToUserID {
		return nil, errs.ErrForbidden.WithMessage("cannot transfer to self")
	}

	var result *Result
	err := s.uow.DoRetry(ctx, func(st repositories.Store) error {
		source, err := st.Wallets().GetByUserID(ctx, req.FromUserID)
		if err != nil {
			return fmt.Errorf("source wallet: %w", err)
		}
		target, err := st.Wallets().GetByUserID(ctx, req.ToUserID)
		if err != nil {
			return fmt.Errorf("target wallet: %w", err)
		}
		if !source.IsActive || !target.IsActive {
			return errs.ErrWalletInactive
		}

		sourceAccount, ok := source.Account(req.Currency)
		if !ok {
			return errs.ErrAccountNotFound
		}
		targetAccount, err := target.AccountOrCreate(req.Currency)
		if err != nil {
			return err
		}

		fee, err := s.fees.Fee(ctx, req.Amount, req.Currency)
		if err != nil {
			return err
		}
		total := req.Amount.Add(fee)
		if sourceAccount.Balance.LessThan(total) {
			return &errs.InsufficientBalanceError{
				WalletID:  source.ID.String(),
				Currency:  string(req.Currency),
				Requested: total.String(),
				Available: sourceAccount.Balance.String(),
			}
		}

		transferID := uuid.New()
		source.Record(events.TransferInitiated{
			Base:         events.NewBase(),
			TransferID:   transferID,
			FromWalletID: source.ID,
			ToWalletID:   target.ID,
			Amount:       req.Amount,
			Fee:          fee,
			Currency:     string(req.Currency),
		})

		sourceTx, err := sourceAccount.Withdraw(total, models.TypeTransfer, req.Description, nil)
		if err != nil {
			return err
		}
		sourceTx.LinkRelated(transferID)

		targetTx, err := targetAccount.DepositAs(models.TypeTransfer, req.Amount, req.Description)
		if err != nil {
			return err
		}
		targetTx.LinkRelated(transferID)

		if err := st.Wallets().Save(ctx, source); err != nil {
			return err
		}
		if err := st.Wallets().Save(ctx, target); err != nil {
			return err
		}

		source.Record(events.TransferCompleted{
			Base:         events.NewBase(),
			TransferID:   transferID,
			FromWalletID: source.ID,
			ToWalletID:   target.ID,
			Amount:       req.Amount,
			Fee:          fee,
			Currency:     string(req.Currency),
		})

		result = &Result{
			TransferID: transferID,
			Fee:        fee,
			SourceTx:   sourceTx,
			TargetTx:   targetTx,
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, repositories.ErrWalletNotFound) {
			return nil, errs.ErrWalletNotFound
		}
		return nil, err
	}
	return result, nil
}
