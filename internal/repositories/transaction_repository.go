package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"vaultpay/internal/models"
)

type transactionRepository struct {
	db *gorm.DB
}

func newTransactionRepository(db *gorm.DB) *transactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	var tx models.Transaction
	if err := r.db.WithContext(ctx).First(&tx, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to load transaction: %w", err)
	}
	return &tx, nil
}

func (r *transactionRepository) GetByPaymentReference(ctx context.Context, referenceID string) (*models.Transaction, error) {
	var tx models.Transaction
	if err := r.db.WithContext(ctx).First(&tx, "payment_reference_id = ?", referenceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to load transaction: %w", err)
	}
	return &tx, nil
}

func (r *transactionRepository) List(ctx context.Context, filter TransactionFilter) ([]models.Transaction, error) {
	q := r.db.WithContext(ctx).Model(&models.Transaction{})
	if filter.WalletID != nil {
		q = q.Where("wallet_id = ?", *filter.WalletID)
	}
	if filter.AccountID != nil {
		q = q.Where("account_id = ?", *filter.AccountID)
	}
	if filter.Type != nil {
		q = q.Where("type = ?", *filter.Type)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	var out []models.Transaction
	err := q.Order("transaction_date DESC").Offset(filter.Offset).Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return out, nil
}

func (r *transactionRepository) SumRefunded(ctx context.Context, originalID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("related_transaction_id = ? AND type = ?", originalID, models.TypeRefund).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum refunds: %w", err)
	}
	return total, nil
}

func (r *transactionRepository) SumByDirection(ctx context.Context, accountID uuid.UUID, direction models.TransactionDirection) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("account_id = ? AND direction = ?", accountID, direction).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum transactions: %w", err)
	}
	return total, nil
}

// SaveStatus persists only the status column; every other transaction field
// is immutable once written.
func (r *transactionRepository) SaveStatus(ctx context.Context, tx *models.Transaction) error {
	err := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ?", tx.ID).
		Update("status", tx.Status).Error
	if err != nil {
		return fmt.Errorf("failed to update transaction status: %w", err)
	}
	return nil
}
