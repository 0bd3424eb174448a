// Package models contains the ledger's persistent entities. Aggregates are
// mutated only through their own methods; every balance delta is paired with
// exactly one Transaction row, and balances are a projection of the
// transaction history.
package models

// CurrencyCode is an ISO 4217 style currency identifier.
type CurrencyCode string

const (
	CurrencyUSD CurrencyCode = "USD"
	CurrencyEUR CurrencyCode = "EUR"
	CurrencyIRR CurrencyCode = "IRR"
)

// Valid reports whether the code is a known currency.
func (c CurrencyCode) Valid() bool {
	switch c {
	case CurrencyUSD, CurrencyEUR, CurrencyIRR:
		return true
	}
	return false
}

// TransactionDirection tells whether money entered or left an account.
type TransactionDirection string

const (
	DirectionIn  TransactionDirection = "IN"
	DirectionOut TransactionDirection = "OUT"
)

// TransactionType classifies the business reason for a ledger entry.
type TransactionType string

const (
	TypeDeposit          TransactionType = "DEPOSIT"
	TypeWithdrawal       TransactionType = "WITHDRAWAL"
	TypePurchase         TransactionType = "PURCHASE"
	TypeRefund           TransactionType = "REFUND"
	TypeTransfer         TransactionType = "TRANSFER"
	TypeConversion       TransactionType = "CONVERSION"
	TypeFee              TransactionType = "FEE"
	TypeCreditSettlement TransactionType = "CREDIT_SETTLEMENT"
)

// TransactionStatus is the transaction state machine. The only legal
// transition after completion is Completed -> Refunded, one way.
type TransactionStatus string

const (
	StatusCompleted TransactionStatus = "COMPLETED"
	StatusRefunded  TransactionStatus = "REFUNDED"
)

// CreditStatus tracks a credit line's lifecycle.
type CreditStatus string

const (
	CreditActive  CreditStatus = "ACTIVE"
	CreditOverdue CreditStatus = "OVERDUE"
	CreditSettled CreditStatus = "SETTLED"
)

// SnapshotType is the cadence a balance snapshot was taken on.
type SnapshotType string

const (
	SnapshotDaily   SnapshotType = "DAILY"
	SnapshotWeekly  SnapshotType = "WEEKLY"
	SnapshotMonthly SnapshotType = "MONTHLY"
)

// Lifecycle replaces per-entity soft-delete booleans with a single state
// field; repositories filter Deleted rows out of every query.
type Lifecycle string

const (
	LifecycleActive  Lifecycle = "ACTIVE"
	LifecycleDeleted Lifecycle = "DELETED"
)
