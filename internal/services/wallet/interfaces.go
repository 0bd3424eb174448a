package wallet

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"vaultpay/internal/models"
	"vaultpay/internal/repositories"
	"vaultpay/internal/repositories/cache"
)

// Service is the wallet use-case surface: aggregate lookup plus the
// deposit/withdraw ledger operations.
type Service interface {
	GetWallet(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)
	GetSummary(ctx context.Context, userID uuid.UUID) (*cache.WalletSummary, error)
	// EnsureWallet creates the user's wallet on first use and is a no-op
	// when it already exists.
	EnsureWallet(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)
	CreateAccount(ctx context.Context, userID uuid.UUID, currency models.CurrencyCode) (*models.CurrencyAccount, error)
	Deposit(ctx context.Context, req DepositRequest) (*models.Transaction, error)
	Withdraw(ctx context.Context, req WithdrawRequest) (*models.Transaction, error)
	// Convert moves funds between two of the wallet's own currency accounts
	// at the current exchange rate.
	Convert(ctx context.Context, req ConvertRequest) (*ConversionResult, error)
	GetTransactions(ctx context.Context, userID uuid.UUID, filter repositories.TransactionFilter) ([]models.Transaction, error)
}

// RateSource resolves the exchange rate for a currency pair. Rate sourcing
// itself is injected; the ledger only applies the number it is given.
type RateSource interface {
	Rate(ctx context.Context, from, to models.CurrencyCode) (decimal.Decimal, error)
}

// SummaryCache is the read-cache capability the service consumes; the Redis
// implementation lives in repositories/cache.
type SummaryCache interface {
	Get(ctx context.Context, userID uuid.UUID) (*cache.WalletSummary, bool, error)
	Set(ctx context.Context, summary *cache.WalletSummary) error
	Invalidate(ctx context.Context, userID uuid.UUID) error
}
