package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	errs "vaultpay/internal/errors"
	"vaultpay/internal/events"
)

// Wallet is the aggregate root: one per user, owning at most one non-deleted
// account per currency plus the credit line. All mutation goes through its
// methods; CreditBalance always stays within [0, CreditLimit] and at most
// one credit history row is open at a time.
type Wallet struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	UserID        uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex"`
	IsActive      bool            `gorm:"not null;default:true"`
	CreditLimit   decimal.Decimal `gorm:"type:numeric(20,4);not null"`
	CreditBalance decimal.Decimal `gorm:"type:numeric(20,4);not null"`
	CreditDueDate *time.Time
	Lifecycle     Lifecycle `gorm:"type:varchar(8);not null;default:'ACTIVE'"`
	Version       int       `gorm:"not null;default:0"`
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Accounts      []*CurrencyAccount `gorm:"foreignKey:WalletID"`
	CreditHistory []*CreditHistory   `gorm:"foreignKey:WalletID"`

	events.Recorder `gorm:"-"`
}

// NewWallet creates an active wallet for the user.
func NewWallet(userID uuid.UUID) *Wallet {
	w := &Wallet{
		ID:            uuid.New(),
		UserID:        userID,
		IsActive:      true,
		CreditLimit:   decimal.Zero,
		CreditBalance: decimal.Zero,
		Lifecycle:     LifecycleActive,
	}
	w.Record(events.WalletCreated{
		Base:     events.NewBase(),
		WalletID: w.ID,
		UserID:   userID,
	})
	return w
}

// Account returns the non-deleted account for the currency, if any.
func (w *Wallet) Account(currency CurrencyCode) (*CurrencyAccount, bool) {
	for _, a := range w.Accounts {
		if a.Currency == currency && a.Lifecycle != LifecycleDeleted {
			return a, true
		}
	}
	return nil, false
}

// CreateAccount opens a new account for the currency. At most one
// non-deleted account per currency may exist.
func (w *Wallet) CreateAccount(currency CurrencyCode) (*CurrencyAccount, error) {
	if _, ok := w.Account(currency); ok {
		return nil, errs.ErrDuplicateAccount
	}
	account := NewCurrencyAccount(w.ID, currency)
	w.Accounts = append(w.Accounts, account)
	w.Record(events.AccountCreated{
		Base:      events.NewBase(),
		WalletID:  w.ID,
		AccountID: account.ID,
		Currency:  string(currency),
	})
	return account, nil
}

// AccountOrCreate resolves the account for the currency, opening it lazily
// on first use.
func (w *Wallet) AccountOrCreate(currency CurrencyCode) (*CurrencyAccount, error) {
	if account, ok := w.Account(currency); ok {
		return account, nil
	}
	return w.CreateAccount(currency)
}

// AssignCredit grants a fresh credit line. A wallet may hold only one open
// line; settle the previous one before assigning again.
func (w *Wallet) AssignCredit(amount decimal.Decimal, dueDate time.Time, description string) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return errs.ErrInvalidAmount
	}
	if !dueDate.After(time.Now()) {
		return errs.ErrInvalidDueDate
	}
	if w.openCreditLine() != nil {
		return errs.ErrCreditAlreadyAssigned
	}

	now := time.Now().UTC()
	w.CreditLimit = amount
	w.CreditBalance = amount
	w.CreditDueDate = &dueDate
	w.CreditHistory = append(w.CreditHistory, &CreditHistory{
		ID:          uuid.New(),
		WalletID:    w.ID,
		Amount:      amount,
		GrantDate:   now,
		DueDate:     dueDate,
		Status:      CreditActive,
		Description: description,
	})
	w.Record(events.CreditAssigned{
		Base:     events.NewBase(),
		WalletID: w.ID,
		Amount:   amount,
		DueDate:  dueDate,
	})
	return nil
}

// UseCredit spends from the credit line. It is a non-throwing try: callers
// must check the result. Returns false without mutation when the balance
// cannot cover the amount or the due date has passed.
func (w *Wallet) UseCredit(amount decimal.Decimal) bool {
	if amount.LessThanOrEqual(decimal.Zero) {
		return false
	}
	if w.CreditDueDate == nil || !w.CreditDueDate.After(time.Now()) {
		return false
	}
	if w.CreditBalance.LessThan(amount) {
		return false
	}
	w.CreditBalance = w.CreditBalance.Sub(amount)
	return true
}

// SettleCredit closes the open credit line, linking it to the settlement
// transaction and resetting the wallet's credit state.
func (w *Wallet) SettleCredit(transactionID uuid.UUID) error {
	line := w.openCreditLine()
	if line == nil {
		return errs.ErrNoActiveCredit
	}
	line.settle(transactionID, time.Now().UTC())
	w.CreditLimit = decimal.Zero
	w.CreditBalance = decimal.Zero
	w.CreditDueDate = nil
	w.Record(events.CreditSettled{
		Base:          events.NewBase(),
		WalletID:      w.ID,
		TransactionID: transactionID,
	})
	return nil
}

// CheckCreditDueDate flips the open line to Overdue once the due date has
// passed with credit still outstanding. Idempotent: repeated calls after the
// transition change nothing.
func (w *Wallet) CheckCreditDueDate() bool {
	if w.CreditDueDate == nil || w.CreditDueDate.After(time.Now()) {
		return false
	}
	if !w.CreditBalance.GreaterThan(decimal.Zero) {
		return false
	}
	line := w.openCreditLine()
	if line == nil || line.Status != CreditActive {
		return false
	}
	line.Status = CreditOverdue
	w.Record(events.CreditOverdue{
		Base:     events.NewBase(),
		WalletID: w.ID,
		Amount:   w.CreditBalance,
		DueDate:  *w.CreditDueDate,
	})
	return true
}

func (w *Wallet) openCreditLine() *CreditHistory {
	for _, line := range w.CreditHistory {
		if line.Open() {
			return line
		}
	}
	return nil
}

// PullEvents drains the wallet's buffer together with its accounts'.
func (w *Wallet) PullEvents() []events.Event {
	out := w.Recorder.PullEvents()
	for _, a := range w.Accounts {
		out = append(out, a.PullEvents()...)
	}
	return out
}
