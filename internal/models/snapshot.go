package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountBalanceSnapshot is a write-once record of an account balance at a
// point in time, used for historical reporting and reconciliation. Rows are
// never updated or deleted.
type AccountBalanceSnapshot struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey"`
	AccountID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	Balance      decimal.Decimal `gorm:"type:numeric(20,4);not null"`
	SnapshotDate time.Time       `gorm:"not null"`
	Type         SnapshotType    `gorm:"type:varchar(12);not null"`
	CreatedAt    time.Time
}

// NewSnapshot captures the account's balance now.
func NewSnapshot(account *CurrencyAccount, kind SnapshotType) *AccountBalanceSnapshot {
	return &AccountBalanceSnapshot{
		ID:           uuid.New(),
		AccountID:    account.ID,
		Balance:      account.Balance,
		SnapshotDate: time.Now().UTC(),
		Type:         kind,
	}
}
