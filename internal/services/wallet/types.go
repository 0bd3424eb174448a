package wallet

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"vaultpay/internal/models"
)

// DepositRequest credits a wallet account. ReferenceID links the entry to a
// verified gateway payment.
type DepositRequest struct {
	UserID      uuid.UUID
	Currency    models.CurrencyCode
	Amount      decimal.Decimal
	Description string
	ReferenceID *string
}

// WithdrawRequest debits a wallet account. Type distinguishes plain
// withdrawals from purchases; OrderID ties purchases to an order.
type WithdrawRequest struct {
	UserID      uuid.UUID
	Currency    models.CurrencyCode
	Amount      decimal.Decimal
	Type        models.TransactionType
	Description string
	OrderID     *string
}

// ConvertRequest exchanges Amount of the From currency into the To currency
// inside the same wallet.
type ConvertRequest struct {
	UserID uuid.UUID
	From   models.CurrencyCode
	To     models.CurrencyCode
	Amount decimal.Decimal
}

// ConversionResult reports the applied rate and the two linked ledger
// entries.
type ConversionResult struct {
	Rate      decimal.Decimal
	Converted decimal.Decimal
	SourceTx  *models.Transaction
	TargetTx  *models.Transaction
}
