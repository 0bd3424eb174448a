package wallet

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "vaultpay/internal/errors"
	"vaultpay/internal/events"
	"vaultpay/internal/models"
	"vaultpay/internal/repositories"
	"vaultpay/internal/repositories/cache"
	"vaultpay/internal/testutil"
)

type fakeCache struct {
	entries     map[uuid.UUID]*cache.WalletSummary
	sets        int
	invalidates int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[uuid.UUID]*cache.WalletSummary)}
}

func (c *fakeCache) Get(_ context.Context, userID uuid.UUID) (*cache.WalletSummary, bool, error) {
	s, ok := c.entries[userID]
	return s, ok, nil
}

func (c *fakeCache) Set(_ context.Context, summary *cache.WalletSummary) error {
	c.entries[summary.UserID] = summary
	c.sets++
	return nil
}

func (c *fakeCache) Invalidate(_ context.Context, userID uuid.UUID) error {
	delete(c.entries, userID)
	c.invalidates++
	return nil
}

func TestService_EnsureWallet(t *testing.T) {
	ctx := context.Background()
	uow := testutil.NewMemUoW()
	svc := NewService(uow, nil, nil)
	userID := uuid.New()

	first, err := svc.EnsureWallet(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, userID, first.UserID)
	assert.Contains(t, uow.PublishedNames(), events.NameWalletCreated)

	second, err := svc.EnsureWallet(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "second call returns the existing wallet")
	assert.Len(t, uow.StoreImpl.WalletRows, 1)
}

func TestService_Deposit(t *testing.T) {
	ctx := context.Background()

	t.Run("opens the account on first deposit", func(t *testing.T) {
		uow := testutil.NewMemUoW()
		svc := NewService(uow, nil, nil)
		w, err := svc.EnsureWallet(ctx, uuid.New())
		require.NoError(t, err)

		tx, err := svc.Deposit(ctx, DepositRequest{
			UserID:      w.UserID,
			Currency:    models.CurrencyIRR,
			Amount:      decimal.NewFromInt(1000),
			Description: "top-up",
		})
		require.NoError(t, err)

		account, ok := w.Account(models.CurrencyIRR)
		require.True(t, ok)
		assert.True(t, account.Balance.Equal(decimal.NewFromInt(1000)))
		assert.Equal(t, models.TypeDeposit, tx.Type)
		assert.Contains(t, uow.StoreImpl.TransactionRows, tx.ID)
	})

	t.Run("unknown currency", func(t *testing.T) {
		svc := NewService(testutil.NewMemUoW(), nil, nil)
		_, err := svc.Deposit(ctx, DepositRequest{
			UserID:   uuid.New(),
			Currency: "XYZ",
			Amount:   decimal.NewFromInt(1),
		})
		assert.ErrorIs(t, err, errs.ErrNotFound)
	})

	t.Run("missing wallet", func(t *testing.T) {
		svc := NewService(testutil.NewMemUoW(), nil, nil)
		_, err := svc.Deposit(ctx, DepositRequest{
			UserID:   uuid.New(),
			Currency: models.CurrencyIRR,
			Amount:   decimal.NewFromInt(1),
		})
		assert.ErrorIs(t, err, errs.ErrWalletNotFound)
	})

	t.Run("inactive wallet", func(t *testing.T) {
		uow := testutil.NewMemUoW()
		svc := NewService(uow, nil, nil)
		w, err := svc.EnsureWallet(ctx, uuid.New())
		require.NoError(t, err)
		w.IsActive = false

		_, err = svc.Deposit(ctx, DepositRequest{
			UserID:   w.UserID,
			Currency: models.CurrencyIRR,
			Amount:   decimal.NewFromInt(1),
		})
		assert.ErrorIs(t, err, errs.ErrWalletInactive)
	})
}

func TestService_Withdraw(t *testing.T) {
	ctx := context.Background()

	seed := func(t *testing.T, svc Service, balance int64) *models.Wallet {
		t.Helper()
		w, err := svc.EnsureWallet(ctx, uuid.New())
		require.NoError(t, err)
		_, err = svc.Deposit(ctx, DepositRequest{
			UserID:   w.UserID,
			Currency: models.CurrencyIRR,
			Amount:   decimal.NewFromInt(balance),
		})
		require.NoError(t, err)
		return w
	}

	t.Run("purchase with an order id", func(t *testing.T) {
		uow := testutil.NewMemUoW()
		svc := NewService(uow, nil, nil)
		w := seed(t, svc, 5000)
		orderID := "order-7"

		tx, err := svc.Withdraw(ctx, WithdrawRequest{
			UserID:   w.UserID,
			Currency: models.CurrencyIRR,
			Amount:   decimal.NewFromInt(1200),
			Type:     models.TypePurchase,
			OrderID:  &orderID,
		})
		require.NoError(t, err)

		account, _ := w.Account(models.CurrencyIRR)
		assert.True(t, account.Balance.Equal(decimal.NewFromInt(3800)))
		require.NotNil(t, tx.OrderID)
		assert.Equal(t, "order-7", *tx.OrderID)
	})

	t.Run("only debit types are accepted", func(t *testing.T) {
		uow := testutil.NewMemUoW()
		svc := NewService(uow, nil, nil)
		w := seed(t, svc, 5000)

		_, err := svc.Withdraw(ctx, WithdrawRequest{
			UserID:   w.UserID,
			Currency: models.CurrencyIRR,
			Amount:   decimal.NewFromInt(1),
			Type:     models.TypeDeposit,
		})
		assert.ErrorIs(t, err, errs.ErrForbidden)
	})

	t.Run("no account in the currency", func(t *testing.T) {
		uow := testutil.NewMemUoW()
		svc := NewService(uow, nil, nil)
		w := seed(t, svc, 5000)

		_, err := svc.Withdraw(ctx, WithdrawRequest{
			UserID:   w.UserID,
			Currency: models.CurrencyUSD,
			Amount:   decimal.NewFromInt(1),
			Type:     models.TypeWithdrawal,
		})
		assert.ErrorIs(t, err, errs.ErrAccountNotFound)
	})

	t.Run("insufficient balance", func(t *testing.T) {
		uow := testutil.NewMemUoW()
		svc := NewService(uow, nil, nil)
		w := seed(t, svc, 100)

		_, err := svc.Withdraw(ctx, WithdrawRequest{
			UserID:   w.UserID,
			Currency: models.CurrencyIRR,
			Amount:   decimal.NewFromInt(200),
			Type:     models.TypeWithdrawal,
		})
		var insufficient *errs.InsufficientBalanceError
		assert.ErrorAs(t, err, &insufficient)
	})

	t.Run("concurrent withdrawals cannot jointly overdraw", func(t *testing.T) {
		uow := testutil.NewMemUoW()
		svc := NewService(uow, nil, nil)
		w := seed(t, svc, 100)

		// A competing withdrawal of 70 commits between this call's load and
		// its save: the version check rejects the stale save, and the retry
		// runs against the committed balance of 30.
		stale := true
		uow.StoreImpl.SaveHook = func(saved *models.Wallet) error {
			if !stale {
				return nil
			}
			stale = false
			account, ok := saved.Account(models.CurrencyIRR)
			require.True(t, ok)
			account.Balance = decimal.NewFromInt(30)
			account.ClearPending()
			return repositories.ErrConcurrentUpdate
		}

		_, err := svc.Withdraw(ctx, WithdrawRequest{
			UserID:   w.UserID,
			Currency: models.CurrencyIRR,
			Amount:   decimal.NewFromInt(80),
			Type:     models.TypeWithdrawal,
		})
		var insufficient *errs.InsufficientBalanceError
		require.ErrorAs(t, err, &insufficient)
		assert.Equal(t, "80", insufficient.Requested)
		assert.Equal(t, "30", insufficient.Available)

		account, _ := w.Account(models.CurrencyIRR)
		assert.True(t, account.Balance.Equal(decimal.NewFromInt(30)),
			"only the competing withdrawal succeeded")
	})
}

type fakeRates struct {
	rate decimal.Decimal
	err  error
}

func (f fakeRates) Rate(context.Context, models.CurrencyCode, models.CurrencyCode) (decimal.Decimal, error) {
	return f.rate, f.err
}

func TestService_Convert(t *testing.T) {
	ctx := context.Background()

	seed := func(t *testing.T, svc Service, currency models.CurrencyCode, balance int64) *models.Wallet {
		t.Helper()
		w, err := svc.EnsureWallet(ctx, uuid.New())
		require.NoError(t, err)
		_, err = svc.Deposit(ctx, DepositRequest{
			UserID:   w.UserID,
			Currency: currency,
			Amount:   decimal.NewFromInt(balance),
		})
		require.NoError(t, err)
		return w
	}

	t.Run("moves funds between accounts at the quoted rate", func(t *testing.T) {
		uow := testutil.NewMemUoW()
		svc := NewService(uow, nil, fakeRates{rate: decimal.NewFromInt(50000)})
		w := seed(t, svc, models.CurrencyUSD, 100)

		result, err := svc.Convert(ctx, ConvertRequest{
			UserID: w.UserID,
			From:   models.CurrencyUSD,
			To:     models.CurrencyIRR,
			Amount: decimal.NewFromInt(10),
		})
		require.NoError(t, err)

		assert.True(t, result.Converted.Equal(decimal.NewFromInt(500000)))
		source, _ := w.Account(models.CurrencyUSD)
		assert.True(t, source.Balance.Equal(decimal.NewFromInt(90)))
		target, ok := w.Account(models.CurrencyIRR)
		require.True(t, ok, "target account is opened lazily")
		assert.True(t, target.Balance.Equal(decimal.NewFromInt(500000)))

		assert.Equal(t, models.TypeConversion, result.SourceTx.Type)
		assert.Equal(t, models.TypeConversion, result.TargetTx.Type)
		require.NotNil(t, result.SourceTx.RelatedTransactionID)
		require.NotNil(t, result.TargetTx.RelatedTransactionID)
		assert.Equal(t, *result.SourceTx.RelatedTransactionID, *result.TargetTx.RelatedTransactionID,
			"both legs share the conversion id")

		names := uow.PublishedNames()
		assert.Contains(t, names, events.NameConversionRequested)
		assert.Contains(t, names, events.NameConversionCompleted)
	})

	t.Run("same currency on both sides", func(t *testing.T) {
		svc := NewService(testutil.NewMemUoW(), nil, fakeRates{rate: decimal.NewFromInt(1)})
		_, err := svc.Convert(ctx, ConvertRequest{
			UserID: uuid.New(),
			From:   models.CurrencyUSD,
			To:     models.CurrencyUSD,
			Amount: decimal.NewFromInt(10),
		})
		assert.ErrorIs(t, err, errs.ErrInvalidAmount)
	})

	t.Run("no account in the source currency", func(t *testing.T) {
		uow := testutil.NewMemUoW()
		svc := NewService(uow, nil, fakeRates{rate: decimal.NewFromInt(2)})
		w := seed(t, svc, models.CurrencyIRR, 1000)

		_, err := svc.Convert(ctx, ConvertRequest{
			UserID: w.UserID,
			From:   models.CurrencyUSD,
			To:     models.CurrencyIRR,
			Amount: decimal.NewFromInt(10),
		})
		assert.ErrorIs(t, err, errs.ErrAccountNotFound)
	})

	t.Run("insufficient balance publishes nothing", func(t *testing.T) {
		uow := testutil.NewMemUoW()
		svc := NewService(uow, nil, fakeRates{rate: decimal.NewFromInt(2)})
		w := seed(t, svc, models.CurrencyUSD, 5)

		_, err := svc.Convert(ctx, ConvertRequest{
			UserID: w.UserID,
			From:   models.CurrencyUSD,
			To:     models.CurrencyIRR,
			Amount: decimal.NewFromInt(10),
		})
		var insufficient *errs.InsufficientBalanceError
		require.ErrorAs(t, err, &insufficient)
		assert.NotContains(t, uow.PublishedNames(), events.NameConversionRequested)
		assert.NotContains(t, uow.PublishedNames(), events.NameConversionCompleted)
	})

	t.Run("rate source failure surfaces before any mutation", func(t *testing.T) {
		uow := testutil.NewMemUoW()
		svc := NewService(uow, nil, fakeRates{err: errs.ErrNotFound.WithMessage("no quote")})
		w := seed(t, svc, models.CurrencyUSD, 100)

		_, err := svc.Convert(ctx, ConvertRequest{
			UserID: w.UserID,
			From:   models.CurrencyUSD,
			To:     models.CurrencyIRR,
			Amount: decimal.NewFromInt(10),
		})
		require.Error(t, err)
		source, _ := w.Account(models.CurrencyUSD)
		assert.True(t, source.Balance.Equal(decimal.NewFromInt(100)))
	})

	t.Run("not offered without a rate source", func(t *testing.T) {
		svc := NewService(testutil.NewMemUoW(), nil, nil)
		_, err := svc.Convert(ctx, ConvertRequest{
			UserID: uuid.New(),
			From:   models.CurrencyUSD,
			To:     models.CurrencyIRR,
			Amount: decimal.NewFromInt(10),
		})
		assert.ErrorIs(t, err, errs.ErrForbidden)
	})
}

func TestService_GetSummary(t *testing.T) {
	ctx := context.Background()

	t.Run("computes, caches, then serves from cache", func(t *testing.T) {
		uow := testutil.NewMemUoW()
		summaries := newFakeCache()
		svc := NewService(uow, summaries, nil)
		w, err := svc.EnsureWallet(ctx, uuid.New())
		require.NoError(t, err)
		_, err = svc.Deposit(ctx, DepositRequest{
			UserID:   w.UserID,
			Currency: models.CurrencyIRR,
			Amount:   decimal.NewFromInt(700),
		})
		require.NoError(t, err)

		summary, err := svc.GetSummary(ctx, w.UserID)
		require.NoError(t, err)
		assert.Equal(t, w.ID, summary.WalletID)
		assert.True(t, summary.Balances["IRR"].Equal(decimal.NewFromInt(700)))
		assert.Equal(t, 1, summaries.sets)

		_, err = svc.GetSummary(ctx, w.UserID)
		require.NoError(t, err)
		assert.Equal(t, 1, summaries.sets, "second read hits the cache")
	})

	t.Run("mutations invalidate the cached summary", func(t *testing.T) {
		uow := testutil.NewMemUoW()
		summaries := newFakeCache()
		svc := NewService(uow, summaries, nil)
		w, err := svc.EnsureWallet(ctx, uuid.New())
		require.NoError(t, err)
		_, err = svc.Deposit(ctx, DepositRequest{
			UserID:   w.UserID,
			Currency: models.CurrencyIRR,
			Amount:   decimal.NewFromInt(100),
		})
		require.NoError(t, err)
		_, err = svc.GetSummary(ctx, w.UserID)
		require.NoError(t, err)

		_, err = svc.Deposit(ctx, DepositRequest{
			UserID:   w.UserID,
			Currency: models.CurrencyIRR,
			Amount:   decimal.NewFromInt(50),
		})
		require.NoError(t, err)

		summary, err := svc.GetSummary(ctx, w.UserID)
		require.NoError(t, err)
		assert.True(t, summary.Balances["IRR"].Equal(decimal.NewFromInt(150)))
	})
}

func TestService_GetTransactions(t *testing.T) {
	ctx := context.Background()
	uow := testutil.NewMemUoW()
	svc := NewService(uow, nil, nil)

	w, err := svc.EnsureWallet(ctx, uuid.New())
	require.NoError(t, err)
	_, err = svc.Deposit(ctx, DepositRequest{
		UserID:   w.UserID,
		Currency: models.CurrencyIRR,
		Amount:   decimal.NewFromInt(1000),
	})
	require.NoError(t, err)
	_, err = svc.Withdraw(ctx, WithdrawRequest{
		UserID:   w.UserID,
		Currency: models.CurrencyIRR,
		Amount:   decimal.NewFromInt(300),
		Type:     models.TypeWithdrawal,
	})
	require.NoError(t, err)

	other, err := svc.EnsureWallet(ctx, uuid.New())
	require.NoError(t, err)
	_, err = svc.Deposit(ctx, DepositRequest{
		UserID:   other.UserID,
		Currency: models.CurrencyIRR,
		Amount:   decimal.NewFromInt(999),
	})
	require.NoError(t, err)

	txs, err := svc.GetTransactions(ctx, w.UserID, repositories.TransactionFilter{})
	require.NoError(t, err)
	assert.Len(t, txs, 2, "only the caller's ledger")

	withdrawals := models.TypeWithdrawal
	txs, err = svc.GetTransactions(ctx, w.UserID, repositories.TransactionFilter{Type: &withdrawals})
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.True(t, txs[0].Amount.Equal(decimal.NewFromInt(300)))
}
