package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"vaultpay/internal/models"
)

type snapshotRepository struct {
	db *gorm.DB
}

func newSnapshotRepository(db *gorm.DB) *snapshotRepository {
	return &snapshotRepository{db: db}
}

func (r *snapshotRepository) Create(ctx context.Context, snap *models.AccountBalanceSnapshot) error {
	if err := r.db.WithContext(ctx).Create(snap).Error; err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}
	return nil
}

func (r *snapshotRepository) ListForAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]models.AccountBalanceSnapshot, error) {
	var out []models.AccountBalanceSnapshot
	q := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("snapshot_date DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	return out, nil
}
