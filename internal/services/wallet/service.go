// Package wallet implements the wallet use cases on top of the aggregate:
// lazy creation, account opening, deposits and withdrawals. Every mutation
// runs inside a unit of work and retries once the optimistic version check
// fails.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	errs "vaultpay/internal/errors"
	"vaultpay/internal/events"
	"vaultpay/internal/models"
	"vaultpay/internal/repositories"
	"vaultpay/internal/repositories/cache"
)

type service struct {
	uow   repositories.UnitOfWork
	cache SummaryCache
	rates RateSource
}

// NewService creates a new wallet service. rates may be nil when currency
// conversion is not offered.
func NewService(uow repositories.UnitOfWork, summaryCache SummaryCache, rates RateSource) Service {
	if uow == nil {
		panic("unit of work is required")
	}
	return &service{uow: uow, cache: summaryCache, rates: rates}
}

func (s *service) GetWallet(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	var wallet *models.Wallet
	err := s.uow.Do(ctx, func(st repositories.Store) error {
		w, err := st.Wallets().GetByUserID(ctx, userID)
		if err != nil {
			return err
		}
		wallet = w
		return nil
	})
	if err != nil {
		if errors.Is(err, repositories.ErrWalletNotFound) {
			return nil, errs.ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return wallet, nil
}

func (s *service) GetSummary(ctx context.Context, userID uuid.UUID) (*cache.WalletSummary, error) {
	if s.cache != nil {
		if summary, ok, err := s.cache.Get(ctx, userID); err == nil && ok {
			return summary, nil
		}
	}

	wallet, err := s.GetWallet(ctx, userID)
	if err != nil {
		return nil, err
	}

	summary := summarize(wallet)
	if s.cache != nil {
		if err := s.cache.Set(ctx, summary); err != nil {
			log.Printf("failed to cache wallet summary: %v", err)
		}
	}
	return summary, nil
}

func (s *service) EnsureWallet(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	var wallet *models.Wallet
	err := s.uow.Do(ctx, func(st repositories.Store) error {
		w, err := st.Wallets().GetByUserID(ctx, userID)
		if err == nil {
			wallet = w
			return nil
		}
		if !errors.Is(err, repositories.ErrWalletNotFound) {
			return err
		}
		wallet = models.NewWallet(userID)
		return st.Wallets().Create(ctx, wallet)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to ensure wallet: %w", err)
	}
	return wallet, nil
}

func (s *service) CreateAccount(ctx context.Context, userID uuid.UUID, currency models.CurrencyCode) (*models.CurrencyAccount, error) {
	if !currency.Valid() {
		return nil, errs.ErrNotFound.WithMessage("unknown currency %q", currency)
	}

	var account *models.CurrencyAccount
	err := s.uow.DoRetry(ctx, func(st repositories.Store) error {
		w, err := st.Wallets().GetByUserID(ctx, userID)
		if err != nil {
			return err
		}
		if !w.IsActive {
			return errs.ErrWalletInactive
		}
		account, err = w.CreateAccount(currency)
		if err != nil {
			return err
		}
		return st.Wallets().Save(ctx, w)
	})
	if err != nil {
		return nil, mapWalletErr(err)
	}
	s.invalidate(ctx, userID)
	return account, nil
}

func (s *service) Deposit(ctx context.Context, req DepositRequest) (*models.Transaction, error) {
	if !req.Currency.Valid() {
		return nil, errs.ErrNotFound.WithMessage("unknown currency %q", req.Currency)
	}

	var out *models.Transaction
	err := s.uow.DoRetry(ctx, func(st repositories.Store) error {
		w, err := st.Wallets().GetByUserID(ctx, req.UserID)
		if err != nil {
			return err
		}
		if !w.IsActive {
			return errs.ErrWalletInactive
		}
		account, err := w.AccountOrCreate(req.Currency)
		if err != nil {
			return err
		}
		out, err = account.Deposit(req.Amount, req.Description, req.ReferenceID)
		if err != nil {
			return err
		}
		return st.Wallets().Save(ctx, w)
	})
	if err != nil {
		return nil, mapWalletErr(err)
	}
	s.invalidate(ctx, req.UserID)
	return out, nil
}

func (s *service) Withdraw(ctx context.Context, req WithdrawRequest) (*models.Transaction, error) {
	switch req.Type {
	case models.TypeWithdrawal, models.TypePurchase, models.TypeFee, models.TypeCreditSettlement:
	default:
		return nil, errs.ErrForbidden.WithMessage("type %q cannot be withdrawn", req.Type)
	}

	var out *models.Transaction
	err := s.uow.DoRetry(ctx, func(st repositories.Store) error {
		w, err := st.Wallets().GetByUserID(ctx, req.UserID)
		if err != nil {
			return err
		}
		if !w.IsActive {
			return errs.ErrWalletInactive
		}
		account, ok := w.Account(req.Currency)
		if !ok {
			return errs.ErrAccountNotFound
		}
		out, err = account.Withdraw(req.Amount, req.Type, req.Description, req.OrderID)
		if err != nil {
			return err
		}
		return st.Wallets().Save(ctx, w)
	})
	if err != nil {
		return nil, mapWalletErr(err)
	}
	s.invalidate(ctx, req.UserID)
	return out, nil
}

func (s *service) Convert(ctx context.Context, req ConvertRequest) (*ConversionResult, error) {
	if s.rates == nil {
		return nil, errs.ErrForbidden.WithMessage("currency conversion is not offered")
	}
	if !req.From.Valid() {
		return nil, errs.ErrNotFound.WithMessage("unknown currency %q", req.From)
	}
	if !req.To.Valid() {
		return nil, errs.ErrNotFound.WithMessage("unknown currency %q", req.To)
	}
	if req.From == req.To {
		return nil, errs.ErrInvalidAmount.WithMessage("conversion needs two distinct currencies")
	}
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, errs.ErrInvalidAmount
	}

	rate, err := s.rates.Rate(ctx, req.From, req.To)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s/%s rate: %w", req.From, req.To, err)
	}
	converted := req.Amount.Mul(rate).Round(4)
	if converted.LessThanOrEqual(decimal.Zero) {
		return nil, errs.ErrInvalidAmount.WithMessage("amount too small to convert")
	}

	var result *ConversionResult
	err = s.uow.DoRetry(ctx, func(st repositories.Store) error {
		w, err := st.Wallets().GetByUserID(ctx, req.UserID)
		if err != nil {
			return err
		}
		if !w.IsActive {
			return errs.ErrWalletInactive
		}
		source, ok := w.Account(req.From)
		if !ok {
			return errs.ErrAccountNotFound
		}
		w.Record(events.CurrencyConversionRequested{
			Base:         events.NewBase(),
			WalletID:     w.ID,
			FromCurrency: string(req.From),
			ToCurrency:   string(req.To),
			Amount:       req.Amount,
		})

		desc := fmt.Sprintf("Conversion %s -> %s", req.From, req.To)
		sourceTx, err := source.Withdraw(req.Amount, models.TypeConversion, desc, nil)
		if err != nil {
			return err
		}
		target, err := w.AccountOrCreate(req.To)
		if err != nil {
			return err
		}
		targetTx, err := target.DepositAs(models.TypeConversion, converted, desc)
		if err != nil {
			return err
		}
		conversionID := uuid.New()
		sourceTx.LinkRelated(conversionID)
		targetTx.LinkRelated(conversionID)

		if err := st.Wallets().Save(ctx, w); err != nil {
			return err
		}
		w.Record(events.CurrencyConversionCompleted{
			Base:         events.NewBase(),
			WalletID:     w.ID,
			FromCurrency: string(req.From),
			ToCurrency:   string(req.To),
			Amount:       req.Amount,
			Converted:    converted,
			Rate:         rate,
		})
		result = &ConversionResult{
			Rate:      rate,
			Converted: converted,
			SourceTx:  sourceTx,
			TargetTx:  targetTx,
		}
		return nil
	})
	if err != nil {
		return nil, mapWalletErr(err)
	}
	s.invalidate(ctx, req.UserID)
	return result, nil
}

func (s *service) GetTransactions(ctx context.Context, userID uuid.UUID, filter repositories.TransactionFilter) ([]models.Transaction, error) {
	var out []models.Transaction
	err := s.uow.Do(ctx, func(st repositories.Store) error {
		w, err := st.Wallets().GetByUserID(ctx, userID)
		if err != nil {
			return err
		}
		filter.WalletID = &w.ID
		out, err = st.Transactions().List(ctx, filter)
		return err
	})
	if err != nil {
		return nil, mapWalletErr(err)
	}
	return out, nil
}

func (s *service) invalidate(ctx context.Context, userID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		log.Printf("failed to invalidate wallet cache for %s: %v", userID, err)
	}
}

func summarize(w *models.Wallet) *cache.WalletSummary {
	balances := make(map[string]decimal.Decimal, len(w.Accounts))
	for _, a := range w.Accounts {
		balances[string(a.Currency)] = a.Balance
	}
	return &cache.WalletSummary{
		WalletID:      w.ID,
		UserID:        w.UserID,
		IsActive:      w.IsActive,
		Balances:      balances,
		CreditLimit:   w.CreditLimit,
		CreditBalance: w.CreditBalance,
	}
}

func mapWalletErr(err error) error {
	if errors.Is(err, repositories.ErrWalletNotFound) {
		return errs.ErrWalletNotFound
	}
	return err
}
