package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	errs "vaultpay/internal/errors"
	"vaultpay/internal/events"
)

// CurrencyAccount holds one currency's balance for a wallet. The balance is
// never negative and every change to it appends exactly one Transaction.
type CurrencyAccount struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	WalletID  uuid.UUID       `gorm:"type:uuid;not null;index:idx_wallet_currency"`
	Currency  CurrencyCode    `gorm:"type:varchar(8);not null;index:idx_wallet_currency"`
	Balance   decimal.Decimal `gorm:"type:numeric(20,4);not null"`
	IsActive  bool            `gorm:"not null;default:true"`
	Lifecycle Lifecycle       `gorm:"type:varchar(8);not null;default:'ACTIVE'"`
	Version   int             `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Transactions []Transaction `gorm:"foreignKey:AccountID"`

	events.Recorder `gorm:"-"`
	pending         []*Transaction `gorm:"-"`
}

// NewCurrencyAccount creates an empty active account for the wallet.
func NewCurrencyAccount(walletID uuid.UUID, currency CurrencyCode) *CurrencyAccount {
	return &CurrencyAccount{
		ID:        uuid.New(),
		WalletID:  walletID,
		Currency:  currency,
		Balance:   decimal.Zero,
		IsActive:  true,
		Lifecycle: LifecycleActive,
	}
}

// Deposit increases the balance and appends a completed incoming Deposit
// transaction. referenceID links the entry to a verified gateway payment.
func (a *CurrencyAccount) Deposit(amount decimal.Decimal, description string, referenceID *string) (*Transaction, error) {
	tx, err := a.DepositAs(TypeDeposit, amount, description)
	if err != nil {
		return nil, err
	}
	tx.PaymentReferenceID = referenceID
	return tx, nil
}

// DepositAs increases the balance with an incoming transaction of the given
// type. Transfer target legs and refunds use this to keep their own type.
func (a *CurrencyAccount) DepositAs(txType TransactionType, amount decimal.Decimal, description string) (*Transaction, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, errs.ErrInvalidAmount
	}

	a.Balance = a.Balance.Add(amount)
	tx := a.appendTransaction(amount, DirectionIn, txType, description)

	a.Record(events.WalletDeposited{
		Base:          events.NewBase(),
		WalletID:      a.WalletID,
		AccountID:     a.ID,
		TransactionID: tx.ID,
		Amount:        amount,
		Currency:      string(a.Currency),
	})
	return tx, nil
}

// Withdraw decreases the balance and appends a completed outgoing
// transaction of the given type. Fails when the balance cannot cover the
// amount; the balance never goes negative.
func (a *CurrencyAccount) Withdraw(amount decimal.Decimal, txType TransactionType, description string, orderID *string) (*Transaction, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, errs.ErrInvalidAmount
	}
	if a.Balance.LessThan(amount) {
		return nil, &errs.InsufficientBalanceError{
			WalletID:  a.WalletID.String(),
			Currency:  string(a.Currency),
			Requested: amount.String(),
			Available: a.Balance.String(),
		}
	}

	a.Balance = a.Balance.Sub(amount)
	tx := a.appendTransaction(amount, DirectionOut, txType, description)
	tx.OrderID = orderID

	a.Record(events.WalletWithdrawn{
		Base:          events.NewBase(),
		WalletID:      a.WalletID,
		AccountID:     a.ID,
		TransactionID: tx.ID,
		Amount:        amount,
		Currency:      string(a.Currency),
	})
	return tx, nil
}

func (a *CurrencyAccount) appendTransaction(amount decimal.Decimal, direction TransactionDirection, txType TransactionType, description string) *Transaction {
	tx := &Transaction{
		ID:              uuid.New(),
		WalletID:        a.WalletID,
		AccountID:       a.ID,
		Amount:          amount,
		Direction:       direction,
		Type:            txType,
		Status:          StatusCompleted,
		Currency:        a.Currency,
		TransactionDate: time.Now().UTC(),
		Description:     description,
	}
	a.pending = append(a.pending, tx)
	return tx
}

// Ledger returns the persisted history plus entries not yet saved.
func (a *CurrencyAccount) Ledger() []Transaction {
	out := make([]Transaction, 0, len(a.Transactions)+len(a.pending))
	out = append(out, a.Transactions...)
	for _, tx := range a.pending {
		out = append(out, *tx)
	}
	return out
}

// PendingTransactions returns the ledger entries appended since the last
// save. The repository persists and clears them inside the unit of work.
func (a *CurrencyAccount) PendingTransactions() []*Transaction {
	return a.pending
}

// ClearPending is called by the repository once pending entries are
// persisted.
func (a *CurrencyAccount) ClearPending() {
	a.pending = nil
}
