package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"vaultpay/internal/models"
)

type walletRepository struct {
	db    *gorm.DB
	store *gormStore
}

func newWalletRepository(db *gorm.DB, store *gormStore) *walletRepository {
	return &walletRepository{db: db, store: store}
}

func (r *walletRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Wallet, error) {
	return r.getOne(ctx, "id = ?", id)
}

func (r *walletRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	return r.getOne(ctx, "user_id = ?", userID)
}

func (r *walletRepository) getOne(ctx context.Context, query string, arg interface{}) (*models.Wallet, error) {
	var wallet models.Wallet
	err := r.db.WithContext(ctx).
		Where(query, arg).
		Where("lifecycle <> ?", models.LifecycleDeleted).
		Preload("Accounts", "lifecycle <> ?", models.LifecycleDeleted).
		Preload("CreditHistory").
		First(&wallet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to load wallet: %w", err)
	}
	return &wallet, nil
}

func (r *walletRepository) Create(ctx context.Context, w *models.Wallet) error {
	tx := r.db.WithContext(ctx)
	w.Version = 1
	for _, a := range w.Accounts {
		a.Version = 1
	}
	if err := tx.Omit("Accounts", "CreditHistory").Create(w).Error; err != nil {
		return fmt.Errorf("failed to create wallet: %w", err)
	}
	for _, a := range w.Accounts {
		if err := r.insertAccount(tx, a); err != nil {
			return err
		}
	}
	for _, line := range w.CreditHistory {
		if err := tx.Create(line).Error; err != nil {
			return fmt.Errorf("failed to create credit history: %w", err)
		}
	}
	r.store.Track(w)
	return nil
}

// Save persists the aggregate with an optimistic version check on the
// wallet row and every dirty account row. A failed check returns
// ErrConcurrentUpdate without touching anything else; the surrounding
// transaction rolls the rest back.
func (r *walletRepository) Save(ctx context.Context, w *models.Wallet) error {
	tx := r.db.WithContext(ctx)

	res := tx.Model(&models.Wallet{}).
		Where("id = ? AND version = ?", w.ID, w.Version).
		Updates(map[string]interface{}{
			"is_active":       w.IsActive,
			"credit_limit":    w.CreditLimit,
			"credit_balance":  w.CreditBalance,
			"credit_due_date": w.CreditDueDate,
			"lifecycle":       w.Lifecycle,
			"version":         w.Version + 1,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to save wallet: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrConcurrentUpdate
	}
	w.Version++

	for _, a := range w.Accounts {
		if a.Version == 0 {
			a.Version = 1
			if err := r.insertAccount(tx, a); err != nil {
				return err
			}
			continue
		}
		if err := r.updateAccount(tx, a); err != nil {
			return err
		}
	}

	for _, line := range w.CreditHistory {
		if err := tx.Save(line).Error; err != nil {
			return fmt.Errorf("failed to save credit history: %w", err)
		}
	}

	r.store.Track(w)
	return nil
}

func (r *walletRepository) insertAccount(tx *gorm.DB, a *models.CurrencyAccount) error {
	if err := tx.Omit("Transactions").Create(a).Error; err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return r.insertPending(tx, a)
}

func (r *walletRepository) updateAccount(tx *gorm.DB, a *models.CurrencyAccount) error {
	res := tx.Model(&models.CurrencyAccount{}).
		Where("id = ? AND version = ?", a.ID, a.Version).
		Updates(map[string]interface{}{
			"balance":   a.Balance,
			"is_active": a.IsActive,
			"lifecycle": a.Lifecycle,
			"version":   a.Version + 1,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to save account: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrConcurrentUpdate
	}
	a.Version++
	return r.insertPending(tx, a)
}

func (r *walletRepository) insertPending(tx *gorm.DB, a *models.CurrencyAccount) error {
	for _, entry := range a.PendingTransactions() {
		if err := tx.Create(entry).Error; err != nil {
			// The unique index on payment_reference_id rejects a second
			// deposit for the same gateway reference.
			if entry.PaymentReferenceID != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateReference
			}
			return fmt.Errorf("failed to append transaction: %w", err)
		}
	}
	a.ClearPending()
	return nil
}

func (r *walletRepository) ListWithDueCredit(ctx context.Context, before time.Time, limit int) ([]*models.Wallet, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.Wallet{}).
		Where("credit_due_date IS NOT NULL AND credit_due_date < ?", before).
		Where("credit_balance > ?", decimal.Zero).
		Where("lifecycle <> ?", models.LifecycleDeleted).
		Limit(limit).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list due wallets: %w", err)
	}

	wallets := make([]*models.Wallet, 0, len(ids))
	for _, id := range ids {
		w, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		wallets = append(wallets, w)
	}
	return wallets, nil
}

func (r *walletRepository) GetAccountByID(ctx context.Context, id uuid.UUID) (*models.CurrencyAccount, error) {
	var account models.CurrencyAccount
	err := r.db.WithContext(ctx).
		Where("lifecycle <> ?", models.LifecycleDeleted).
		First(&account, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	return &account, nil
}

func (r *walletRepository) ListActiveAccounts(ctx context.Context) ([]*models.CurrencyAccount, error) {
	var accounts []*models.CurrencyAccount
	err := r.db.WithContext(ctx).
		Where("is_active = ? AND lifecycle <> ?", true, models.LifecycleDeleted).
		Find(&accounts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return accounts, nil
}
