package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Is(t *testing.T) {
	t.Run("sentinel matches itself", func(t *testing.T) {
		assert.ErrorIs(t, ErrWalletNotFound, ErrWalletNotFound)
	})

	t.Run("specialized message keeps the code", func(t *testing.T) {
		err := ErrForbidden.WithMessage("cannot transfer to self")
		assert.ErrorIs(t, err, ErrForbidden)
		assert.Equal(t, "cannot transfer to self", err.Error())
		assert.Equal(t, "FORBIDDEN", err.Code)
	})

	t.Run("wrapped errors still match", func(t *testing.T) {
		err := fmt.Errorf("loading wallet: %w", ErrWalletNotFound)
		assert.ErrorIs(t, err, ErrWalletNotFound)
	})

	t.Run("different codes do not match", func(t *testing.T) {
		assert.False(t, errors.Is(ErrWalletNotFound, ErrAccountNotFound))
	})
}

func TestInsufficientBalanceError(t *testing.T) {
	err := &InsufficientBalanceError{
		WalletID:  "w1",
		Currency:  "IRR",
		Requested: "10500",
		Available: "10000",
	}
	assert.Equal(t, "INSUFFICIENT_BALANCE", err.Code())
	assert.Contains(t, err.Error(), "10500")
	assert.Contains(t, err.Error(), "IRR")
}
