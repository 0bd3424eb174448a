package credit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "vaultpay/internal/errors"
	"vaultpay/internal/events"
	"vaultpay/internal/models"
	"vaultpay/internal/testutil"
)

func seedWallet(t *testing.T, uow *testutil.MemUoW, balance int64) *models.Wallet {
	t.Helper()
	w := models.NewWallet(uuid.New())
	if balance > 0 {
		account, err := w.CreateAccount(models.CurrencyIRR)
		require.NoError(t, err)
		account.Balance = decimal.NewFromInt(balance)
	}
	w.PullEvents()
	uow.StoreImpl.WalletRows[w.ID] = w
	return w
}

func TestService_AssignCredit(t *testing.T) {
	ctx := context.Background()
	due := time.Now().Add(30 * 24 * time.Hour)

	t.Run("grants the line and publishes the event", func(t *testing.T) {
		uow := testutil.NewMemUoW()
		w := seedWallet(t, uow, 0)
		svc := NewService(uow)

		err := svc.AssignCredit(ctx, w.UserID, decimal.NewFromInt(100000), due, "monthly")
		require.NoError(t, err)

		assert.True(t, w.CreditLimit.Equal(decimal.NewFromInt(100000)))
		assert.True(t, w.CreditBalance.Equal(decimal.NewFromInt(100000)))
		assert.Contains(t, uow.PublishedNames(), events.NameCreditAssigned)
	})

	t.Run("inactive wallet", func(t *testing.T) {
		uow := testutil.NewMemUoW()
		w := seedWallet(t, uow, 0)
		w.IsActive = false
		svc := NewService(uow)

		err := svc.AssignCredit(ctx, w.UserID, decimal.NewFromInt(100), due, "")
		assert.ErrorIs(t, err, errs.ErrWalletInactive)
	})

	t.Run("unknown user", func(t *testing.T) {
		svc := NewService(testutil.NewMemUoW())
		err := svc.AssignCredit(ctx, uuid.New(), decimal.NewFromInt(100), due, "")
		assert.ErrorIs(t, err, errs.ErrWalletNotFound)
	})
}

func TestService_UseCredit(t *testing.T) {
	ctx := context.Background()
	due := time.Now().Add(24 * time.Hour)

	t.Run("spends within the line", func(t *testing.T) {
		uow := testutil.NewMemUoW()
		w := seedWallet(t, uow, 0)
		svc := NewService(uow)
		require.NoError(t, svc.AssignCredit(ctx, w.UserID, decimal.NewFromInt(100000), due, ""))

		used, err := svc.UseCredit(ctx, w.UserID, decimal.NewFromInt(60000))
		require.NoError(t, err)
		assert.True(t, used)
		assert.True(t, w.CreditBalance.Equal(decimal.NewFromInt(40000)))

		used, err = svc.UseCredit(ctx, w.UserID, decimal.NewFromInt(50000))
		require.NoError(t, err)
		assert.False(t, used, "exceeds the remaining balance")
		assert.True(t, w.CreditBalance.Equal(decimal.NewFromInt(40000)))
	})

	t.Run("no line means false, not an error", func(t *testing.T) {
		uow := testutil.NewMemUoW()
		w := seedWallet(t, uow, 0)
		svc := NewService(uow)

		used, err := svc.UseCredit(ctx, w.UserID, decimal.NewFromInt(10))
		require.NoError(t, err)
		assert.False(t, used)
	})
}

func TestService_SettleCredit(t *testing.T) {
	ctx := context.Background()
	due := time.Now().Add(24 * time.Hour)

	t.Run("withdraws the used portion and closes the line", func(t *testing.T) {
		uow := testutil.NewMemUoW()
		w := seedWallet(t, uow, 80000)
		svc := NewService(uow)
		require.NoError(t, svc.AssignCredit(ctx, w.UserID, decimal.NewFromInt(100000), due, ""))
		used, err := svc.UseCredit(ctx, w.UserID, decimal.NewFromInt(60000))
		require.NoError(t, err)
		require.True(t, used)

		require.NoError(t, svc.SettleCredit(ctx, w.UserID, models.CurrencyIRR))

		account, ok := w.Account(models.CurrencyIRR)
		require.True(t, ok)
		assert.True(t, account.Balance.Equal(decimal.NewFromInt(20000)))

		var settlement *models.Transaction
		for _, tx := range uow.StoreImpl.TransactionRows {
			if tx.Type == models.TypeCreditSettlement {
				settlement = tx
			}
		}
		require.NotNil(t, settlement)
		assert.True(t, settlement.Amount.Equal(decimal.NewFromInt(60000)))

		line := w.CreditHistory[0]
		assert.Equal(t, models.CreditSettled, line.Status)
		require.NotNil(t, line.SettlementTransactionID)
		assert.Equal(t, settlement.ID, *line.SettlementTransactionID)
		assert.True(t, w.CreditLimit.IsZero())
		assert.True(t, w.CreditBalance.IsZero())
		assert.Contains(t, uow.PublishedNames(), events.NameCreditSettled)
	})

	t.Run("nothing drawn settles without a ledger entry", func(t *testing.T) {
		uow := testutil.NewMemUoW()
		w := seedWallet(t, uow, 1000)
		svc := NewService(uow)
		require.NoError(t, svc.AssignCredit(ctx, w.UserID, decimal.NewFromInt(5000), due, ""))

		require.NoError(t, svc.SettleCredit(ctx, w.UserID, models.CurrencyIRR))

		assert.Empty(t, uow.StoreImpl.TransactionRows)
		assert.Nil(t, w.CreditHistory[0].SettlementTransactionID)
		assert.Equal(t, models.CreditSettled, w.CreditHistory[0].Status)
	})

	t.Run("settlement needs a funded account", func(t *testing.T) {
		uow := testutil.NewMemUoW()
		w := seedWallet(t, uow, 1000)
		svc := NewService(uow)
		require.NoError(t, svc.AssignCredit(ctx, w.UserID, decimal.NewFromInt(5000), due, ""))
		used, err := svc.UseCredit(ctx, w.UserID, decimal.NewFromInt(5000))
		require.NoError(t, err)
		require.True(t, used)

		err = svc.SettleCredit(ctx, w.UserID, models.CurrencyIRR)
		var insufficient *errs.InsufficientBalanceError
		assert.ErrorAs(t, err, &insufficient)
	})

	t.Run("inactive wallet cannot settle", func(t *testing.T) {
		uow := testutil.NewMemUoW()
		w := seedWallet(t, uow, 1000)
		svc := NewService(uow)
		require.NoError(t, svc.AssignCredit(ctx, w.UserID, decimal.NewFromInt(5000), due, ""))
		w.IsActive = false

		err := svc.SettleCredit(ctx, w.UserID, models.CurrencyIRR)
		assert.ErrorIs(t, err, errs.ErrWalletInactive)
		assert.Equal(t, models.CreditActive, w.CreditHistory[0].Status)
	})

	t.Run("no open line", func(t *testing.T) {
		uow := testutil.NewMemUoW()
		w := seedWallet(t, uow, 1000)
		svc := NewService(uow)

		err := svc.SettleCredit(ctx, w.UserID, models.CurrencyIRR)
		assert.ErrorIs(t, err, errs.ErrNoActiveCredit)
	})
}

func TestService_RunOverdueCheck(t *testing.T) {
	ctx := context.Background()

	t.Run("flips expired lines exactly once", func(t *testing.T) {
		uow := testutil.NewMemUoW()
		w := seedWallet(t, uow, 0)
		svc := NewService(uow)
		require.NoError(t, svc.AssignCredit(ctx, w.UserID, decimal.NewFromInt(1000), time.Now().Add(time.Hour), ""))

		past := time.Now().Add(-time.Hour)
		w.CreditDueDate = &past

		flipped, err := svc.RunOverdueCheck(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, flipped)
		assert.Equal(t, models.CreditOverdue, w.CreditHistory[0].Status)
		assert.Contains(t, uow.PublishedNames(), events.NameCreditOverdue)

		flipped, err = svc.RunOverdueCheck(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, flipped, "second sweep is a no-op")
	})

	t.Run("a failing wallet does not abort the sweep", func(t *testing.T) {
		uow := testutil.NewMemUoW()
		bad := seedWallet(t, uow, 0)
		good := seedWallet(t, uow, 0)
		svc := NewService(uow)
		require.NoError(t, svc.AssignCredit(ctx, bad.UserID, decimal.NewFromInt(1000), time.Now().Add(time.Hour), ""))
		require.NoError(t, svc.AssignCredit(ctx, good.UserID, decimal.NewFromInt(1000), time.Now().Add(time.Hour), ""))
		past := time.Now().Add(-time.Hour)
		bad.CreditDueDate = &past
		good.CreditDueDate = &past

		uow.StoreImpl.SaveHook = func(w *models.Wallet) error {
			if w.ID == bad.ID {
				return errors.New("save failed")
			}
			return nil
		}

		flipped, err := svc.RunOverdueCheck(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, flipped)
		assert.Equal(t, models.CreditOverdue, good.CreditHistory[0].Status)
	})

	t.Run("current lines are untouched", func(t *testing.T) {
		uow := testutil.NewMemUoW()
		w := seedWallet(t, uow, 0)
		svc := NewService(uow)
		require.NoError(t, svc.AssignCredit(ctx, w.UserID, decimal.NewFromInt(1000), time.Now().Add(time.Hour), ""))

		flipped, err := svc.RunOverdueCheck(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, flipped)
		assert.Equal(t, models.CreditActive, w.CreditHistory[0].Status)
	})
}
