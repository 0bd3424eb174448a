package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	errs "vaultpay/internal/errors"
)

// Transaction is an immutable ledger entry, the system's source of truth for
// balances. Amount, direction, type and currency never change after
// creation; only Status may move, and only Completed -> Refunded.
type Transaction struct {
	ID                   uuid.UUID            `gorm:"type:uuid;primaryKey"`
	WalletID             uuid.UUID            `gorm:"type:uuid;not null;index"`
	AccountID            uuid.UUID            `gorm:"type:uuid;not null;index"`
	Amount               decimal.Decimal      `gorm:"type:numeric(20,4);not null"`
	Direction            TransactionDirection `gorm:"type:varchar(8);not null"`
	Type                 TransactionType      `gorm:"type:varchar(24);not null"`
	Status               TransactionStatus    `gorm:"type:varchar(16);not null"`
	Currency             CurrencyCode         `gorm:"type:varchar(8);not null"`
	TransactionDate      time.Time            `gorm:"not null"`
	Description          string
	RelatedTransactionID *uuid.UUID `gorm:"type:uuid;index"`
	OrderID              *string
	PaymentReferenceID   *string `gorm:"uniqueIndex"`
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// MarkRefunded flips a completed transaction to Refunded. Any other
// transition is rejected; a refunded transaction is terminal.
func (t *Transaction) MarkRefunded() error {
	if t.Status != StatusCompleted {
		return errs.ErrTransactionImmutable
	}
	t.Status = StatusRefunded
	return nil
}

// Refundable reports whether this entry can still take refunds: only
// completed outgoing transactions qualify.
func (t *Transaction) Refundable() bool {
	return t.Direction == DirectionOut && t.Status == StatusCompleted
}

// LinkRelated records the counterpart transaction (transfer pair or refund
// original).
func (t *Transaction) LinkRelated(id uuid.UUID) {
	t.RelatedTransactionID = &id
}
