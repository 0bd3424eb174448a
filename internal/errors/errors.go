// Package errors defines the stable, user-visible error taxonomy of the
// ledger. Every domain failure maps to a DomainError with a stable code;
// handlers translate codes to HTTP statuses.
package errors

import "fmt"

// DomainError is a caller-recoverable failure with a stable code.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// Is matches any DomainError carrying the same code, so copies produced by
// WithMessage still compare equal to their sentinel under errors.Is.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && t.Code == e.Code
}

// WithMessage returns a copy of the error with a more specific message,
// keeping the stable code.
func (e *DomainError) WithMessage(format string, args ...interface{}) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: fmt.Sprintf(format, args...),
	}
}

var (
	ErrNotFound = &DomainError{
		Code:    "NOT_FOUND",
		Message: "resource not found",
	}
	ErrWalletNotFound = &DomainError{
		Code:    "WALLET_NOT_FOUND",
		Message: "wallet not found",
	}
	ErrAccountNotFound = &DomainError{
		Code:    "ACCOUNT_NOT_FOUND",
		Message: "currency account not found",
	}
	ErrTransactionNotFound = &DomainError{
		Code:    "TRANSACTION_NOT_FOUND",
		Message: "transaction not found",
	}
	ErrInvalidAmount = &DomainError{
		Code:    "INVALID_AMOUNT",
		Message: "amount must be greater than zero",
	}
	ErrDuplicateAccount = &DomainError{
		Code:    "DUPLICATE_ACCOUNT",
		Message: "an account for this currency already exists",
	}
	ErrWalletInactive = &DomainError{
		Code:    "WALLET_INACTIVE",
		Message: "wallet is not active",
	}
	ErrForbidden = &DomainError{
		Code:    "FORBIDDEN",
		Message: "operation not permitted",
	}
	ErrUnauthorized = &DomainError{
		Code:    "UNAUTHORIZED",
		Message: "authentication required",
	}
	ErrNoActiveCredit = &DomainError{
		Code:    "NO_ACTIVE_CREDIT",
		Message: "wallet has no active credit line",
	}
	ErrCreditAlreadyAssigned = &DomainError{
		Code:    "CREDIT_ALREADY_ASSIGNED",
		Message: "wallet already has an active credit line",
	}
	ErrInvalidDueDate = &DomainError{
		Code:    "INVALID_DUE_DATE",
		Message: "due date must be in the future",
	}
	ErrNotRefundable = &DomainError{
		Code:    "NOT_REFUNDABLE",
		Message: "transaction is not refundable",
	}
	ErrOverRefund = &DomainError{
		Code:    "OVER_REFUND",
		Message: "requested amount exceeds the refundable remainder",
	}
	ErrTransactionImmutable = &DomainError{
		Code:    "TRANSACTION_IMMUTABLE",
		Message: "transaction status can no longer change",
	}
	ErrInternal = &DomainError{
		Code:    "INTERNAL_ERROR",
		Message: "internal error",
	}
)

// InsufficientBalanceError carries enough context for the caller to act on
// the shortfall. Amounts are decimal strings so the error stays free of
// domain imports.
type InsufficientBalanceError struct {
	WalletID  string
	Currency  string
	Requested string
	Available string
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: wallet %s requested %s %s, available %s",
		e.WalletID, e.Requested, e.Currency, e.Available)
}

// Code implements the stable-code contract shared with DomainError.
func (e *InsufficientBalanceError) Code() string { return "INSUFFICIENT_BALANCE" }
