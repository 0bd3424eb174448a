package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "vaultpay/internal/errors"
)

func TestTransaction_MarkRefunded(t *testing.T) {
	tx := &Transaction{Status: StatusCompleted}

	require.NoError(t, tx.MarkRefunded())
	assert.Equal(t, StatusRefunded, tx.Status)

	assert.ErrorIs(t, tx.MarkRefunded(), errs.ErrTransactionImmutable, "refunded is terminal")
}

func TestTransaction_Refundable(t *testing.T) {
	tests := []struct {
		name      string
		direction TransactionDirection
		status    TransactionStatus
		want      bool
	}{
		{"completed outgoing", DirectionOut, StatusCompleted, true},
		{"completed incoming", DirectionIn, StatusCompleted, false},
		{"refunded outgoing", DirectionOut, StatusRefunded, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := &Transaction{Direction: tt.direction, Status: tt.status}
			assert.Equal(t, tt.want, tx.Refundable())
		})
	}
}

func TestTransaction_LinkRelated(t *testing.T) {
	tx := &Transaction{Amount: decimal.NewFromInt(10)}
	id := uuid.New()

	tx.LinkRelated(id)
	require.NotNil(t, tx.RelatedTransactionID)
	assert.Equal(t, id, *tx.RelatedTransactionID)
}
