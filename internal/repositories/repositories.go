// Package repositories provides the data access layer: GORM-backed
// repositories, the unit of work that scopes multi-aggregate mutations to
// one database transaction, and the post-commit event drain.
package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"vaultpay/internal/events"
	"vaultpay/internal/models"
)

var (
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrAccountNotFound     = errors.New("account not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrUserNotFound        = errors.New("user not found")
	// ErrConcurrentUpdate means the optimistic version check failed; the
	// caller should reload the aggregate and retry.
	ErrConcurrentUpdate = errors.New("aggregate was modified concurrently")
	// ErrDuplicateReference means a ledger entry for the gateway payment
	// reference already exists; a concurrent confirmation recorded the
	// deposit first.
	ErrDuplicateReference = errors.New("payment reference already recorded")
)

// WalletRepository loads and saves the Wallet aggregate with its accounts
// and credit history.
type WalletRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Wallet, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)
	Create(ctx context.Context, w *models.Wallet) error
	Save(ctx context.Context, w *models.Wallet) error
	// ListWithDueCredit returns wallets whose credit due date has passed and
	// whose credit balance is still outstanding.
	ListWithDueCredit(ctx context.Context, before time.Time, limit int) ([]*models.Wallet, error)
	ListActiveAccounts(ctx context.Context) ([]*models.CurrencyAccount, error)
	GetAccountByID(ctx context.Context, id uuid.UUID) (*models.CurrencyAccount, error)
}

// TransactionFilter narrows ledger queries.
type TransactionFilter struct {
	WalletID  *uuid.UUID
	AccountID *uuid.UUID
	Type      *models.TransactionType
	Limit     int
	Offset    int
}

// TransactionRepository queries the immutable ledger.
type TransactionRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	// GetByPaymentReference finds the deposit already recorded for a gateway
	// reference, making top-up confirmation idempotent.
	GetByPaymentReference(ctx context.Context, referenceID string) (*models.Transaction, error)
	List(ctx context.Context, filter TransactionFilter) ([]models.Transaction, error)
	// SumRefunded totals completed Refund entries linked to the original
	// transaction. Refund accounting is always derived from ledger rows.
	SumRefunded(ctx context.Context, originalID uuid.UUID) (decimal.Decimal, error)
	// SumByDirection totals an account's entries in one direction, for
	// snapshot reconciliation.
	SumByDirection(ctx context.Context, accountID uuid.UUID, direction models.TransactionDirection) (decimal.Decimal, error)
	SaveStatus(ctx context.Context, tx *models.Transaction) error
}

// SnapshotRepository stores write-once balance snapshots.
type SnapshotRepository interface {
	Create(ctx context.Context, snap *models.AccountBalanceSnapshot) error
	ListForAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]models.AccountBalanceSnapshot, error)
}

// UserRepository covers the identity edge.
type UserRepository interface {
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Save(ctx context.Context, u *models.User) error
}

// Store groups the repositories bound to one transaction scope.
type Store interface {
	Wallets() WalletRepository
	Transactions() TransactionRepository
	Snapshots() SnapshotRepository
	Users() UserRepository
	// Track registers an aggregate whose buffered events should be drained
	// after commit. Save and Create track automatically.
	Track(src events.Source)
}

// UnitOfWork runs a use case against a transactional Store. Events buffered
// on tracked aggregates are published only after the commit succeeds; a
// rolled-back unit of work publishes nothing.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(s Store) error) error
	// DoRetry is Do plus reload-and-retry on optimistic lock conflicts.
	DoRetry(ctx context.Context, fn func(s Store) error) error
}
