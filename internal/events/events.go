// Package events defines the domain and integration events emitted by the
// ledger, a static handler registry, and the message-bus publisher. Events
// are buffered on aggregates and drained by the unit of work only after a
// successful commit.
package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event is implemented by every domain event.
type Event interface {
	EventName() string
	EventID() uuid.UUID
	OccurredAt() time.Time
}

// Base carries the identity shared by all events.
type Base struct {
	ID uuid.UUID `json:"id"`
	At time.Time `json:"occurred_at"`
}

// NewBase stamps a fresh event identity.
func NewBase() Base {
	return Base{ID: uuid.New(), At: time.Now().UTC()}
}

func (b Base) EventID() uuid.UUID    { return b.ID }
func (b Base) OccurredAt() time.Time { return b.At }

// Event names double as bus routing keys.
const (
	NameWalletCreated       = "wallet.created"
	NameAccountCreated      = "wallet.account_created"
	NameWalletDeposited     = "wallet.deposited"
	NameWalletWithdrawn     = "wallet.withdrawn"
	NameCreditAssigned      = "credit.assigned"
	NameCreditSettled       = "credit.settled"
	NameCreditOverdue       = "credit.overdue"
	NameTransferInitiated   = "transfer.initiated"
	NameTransferCompleted   = "transfer.completed"
	NameRefundInitiated     = "refund.initiated"
	NameRefundCompleted     = "refund.completed"
	NameConversionRequested = "currency.conversion_requested"
	NameConversionCompleted = "currency.conversion_completed"
	NameUserActivated       = "user.activated"
)

type WalletCreated struct {
	Base
	WalletID uuid.UUID `json:"wallet_id"`
	UserID   uuid.UUID `json:"user_id"`
}

func (WalletCreated) EventName() string { return NameWalletCreated }

type AccountCreated struct {
	Base
	WalletID  uuid.UUID `json:"wallet_id"`
	AccountID uuid.UUID `json:"account_id"`
	Currency  string    `json:"currency"`
}

func (AccountCreated) EventName() string { return NameAccountCreated }

type WalletDeposited struct {
	Base
	WalletID      uuid.UUID       `json:"wallet_id"`
	AccountID     uuid.UUID       `json:"account_id"`
	TransactionID uuid.UUID       `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
}

func (WalletDeposited) EventName() string { return NameWalletDeposited }

type WalletWithdrawn struct {
	Base
	WalletID      uuid.UUID       `json:"wallet_id"`
	AccountID     uuid.UUID       `json:"account_id"`
	TransactionID uuid.UUID       `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
}

func (WalletWithdrawn) EventName() string { return NameWalletWithdrawn }

type CreditAssigned struct {
	Base
	WalletID uuid.UUID       `json:"wallet_id"`
	Amount   decimal.Decimal `json:"amount"`
	DueDate  time.Time       `json:"due_date"`
}

func (CreditAssigned) EventName() string { return NameCreditAssigned }

type CreditSettled struct {
	Base
	WalletID      uuid.UUID `json:"wallet_id"`
	TransactionID uuid.UUID `json:"transaction_id"`
}

func (CreditSettled) EventName() string { return NameCreditSettled }

type CreditOverdue struct {
	Base
	WalletID uuid.UUID       `json:"wallet_id"`
	Amount   decimal.Decimal `json:"amount"`
	DueDate  time.Time       `json:"due_date"`
}

func (CreditOverdue) EventName() string { return NameCreditOverdue }

type TransferInitiated struct {
	Base
	TransferID   uuid.UUID       `json:"transfer_id"`
	FromWalletID uuid.UUID       `json:"from_wallet_id"`
	ToWalletID   uuid.UUID       `json:"to_wallet_id"`
	Amount       decimal.Decimal `json:"amount"`
	Fee          decimal.Decimal `json:"fee"`
	Currency     string          `json:"currency"`
}

func (TransferInitiated) EventName() string { return NameTransferInitiated }

type TransferCompleted struct {
	Base
	TransferID   uuid.UUID       `json:"transfer_id"`
	FromWalletID uuid.UUID       `json:"from_wallet_id"`
	ToWalletID   uuid.UUID       `json:"to_wallet_id"`
	Amount       decimal.Decimal `json:"amount"`
	Fee          decimal.Decimal `json:"fee"`
	Currency     string          `json:"currency"`
}

func (TransferCompleted) EventName() string { return NameTransferCompleted }

type RefundInitiated struct {
	Base
	OriginalTransactionID uuid.UUID       `json:"original_transaction_id"`
	Amount                decimal.Decimal `json:"amount"`
	Reason                string          `json:"reason"`
}

func (RefundInitiated) EventName() string { return NameRefundInitiated }

type RefundCompleted struct {
	Base
	OriginalTransactionID uuid.UUID       `json:"original_transaction_id"`
	RefundTransactionID   uuid.UUID       `json:"refund_transaction_id"`
	Amount                decimal.Decimal `json:"amount"`
	FullyRefunded         bool            `json:"fully_refunded"`
}

func (RefundCompleted) EventName() string { return NameRefundCompleted }

type CurrencyConversionRequested struct {
	Base
	WalletID     uuid.UUID       `json:"wallet_id"`
	FromCurrency string          `json:"from_currency"`
	ToCurrency   string          `json:"to_currency"`
	Amount       decimal.Decimal `json:"amount"`
}

func (CurrencyConversionRequested) EventName() string { return NameConversionRequested }

type CurrencyConversionCompleted struct {
	Base
	WalletID     uuid.UUID       `json:"wallet_id"`
	FromCurrency string          `json:"from_currency"`
	ToCurrency   string          `json:"to_currency"`
	Amount       decimal.Decimal `json:"amount"`
	Converted    decimal.Decimal `json:"converted"`
	Rate         decimal.Decimal `json:"rate"`
}

func (CurrencyConversionCompleted) EventName() string { return NameConversionCompleted }

// UserActivated is consumed from the identity service; it triggers lazy
// wallet creation.
type UserActivated struct {
	Base
	UserID uuid.UUID `json:"user_id"`
}

func (UserActivated) EventName() string { return NameUserActivated }

// Recorder is the per-aggregate event buffer. Aggregates embed it; the unit
// of work drains it after commit. Not safe for concurrent use, matching the
// single-writer-per-aggregate model.
type Recorder struct {
	pending []Event
}

// Record buffers an event until the owning unit of work commits.
func (r *Recorder) Record(e Event) {
	r.pending = append(r.pending, e)
}

// PullEvents returns and clears the buffered events.
func (r *Recorder) PullEvents() []Event {
	out := r.pending
	r.pending = nil
	return out
}

// Source is anything holding buffered domain events.
type Source interface {
	PullEvents() []Event
}
