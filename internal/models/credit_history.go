package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreditHistory records one credit line granted to a wallet. A line moves
// Active -> Overdue (time triggered) -> Settled; Settled is terminal.
type CreditHistory struct {
	ID                      uuid.UUID       `gorm:"type:uuid;primaryKey"`
	WalletID                uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount                  decimal.Decimal `gorm:"type:numeric(20,4);not null"`
	GrantDate               time.Time       `gorm:"not null"`
	DueDate                 time.Time       `gorm:"not null"`
	SettlementDate          *time.Time
	SettlementTransactionID *uuid.UUID   `gorm:"type:uuid"`
	Status                  CreditStatus `gorm:"type:varchar(12);not null"`
	Description             string
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// Open reports whether the line still awaits settlement.
func (c *CreditHistory) Open() bool {
	return c.Status == CreditActive || c.Status == CreditOverdue
}

// settle closes the line. A nil transaction id means nothing was drawn, so
// no settlement ledger entry exists to link.
func (c *CreditHistory) settle(transactionID uuid.UUID, at time.Time) {
	c.Status = CreditSettled
	c.SettlementDate = &at
	if transactionID != uuid.Nil {
		c.SettlementTransactionID = &transactionID
	}
}
