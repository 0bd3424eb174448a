package transfer

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultpay/internal/models"
)

func TestFeeCalculator_Fee(t *testing.T) {
	ctx := context.Background()
	policy := DefaultFeePolicy()

	t.Run("base currency", func(t *testing.T) {
		calc := NewFeeCalculator(policy, nil)

		tests := []struct {
			name   string
			amount int64
			want   string
		}{
			{"percentage inside the band", 1000, "10"},
			{"clamped to the floor", 10, "0.5"},
			{"clamped to the ceiling", 10000, "25"},
			{"exactly the floor", 50, "0.5"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				fee, err := calc.Fee(ctx, decimal.NewFromInt(tt.amount), models.CurrencyUSD)
				require.NoError(t, err)
				assert.True(t, fee.Equal(decimal.RequireFromString(tt.want)),
					"got %s, want %s", fee, tt.want)
			})
		}
	})

	t.Run("band converts for non-base currency", func(t *testing.T) {
		rates := NewStaticRateProvider()
		rates.SetRate(models.CurrencyUSD, models.CurrencyIRR, decimal.NewFromInt(50000))
		calc := NewFeeCalculator(policy, rates)

		// floor becomes 0.50 * 50000 = 25000 IRR, so a 1% fee of 100000
		// IRR (1000) is lifted to the floor
		fee, err := calc.Fee(ctx, decimal.NewFromInt(100000), models.CurrencyIRR)
		require.NoError(t, err)
		assert.True(t, fee.Equal(decimal.NewFromInt(25000)), "got %s", fee)
	})

	t.Run("non-base currency without a rate provider", func(t *testing.T) {
		calc := NewFeeCalculator(policy, nil)
		_, err := calc.Fee(ctx, decimal.NewFromInt(100), models.CurrencyEUR)
		assert.Error(t, err)
	})

	t.Run("missing rate", func(t *testing.T) {
		calc := NewFeeCalculator(policy, NewStaticRateProvider())
		_, err := calc.Fee(ctx, decimal.NewFromInt(100), models.CurrencyEUR)
		assert.Error(t, err)
	})
}

func TestStaticRateProvider(t *testing.T) {
	rates := NewStaticRateProvider()
	rates.SetRate(models.CurrencyUSD, models.CurrencyEUR, decimal.RequireFromString("0.9"))

	t.Run("same currency is identity", func(t *testing.T) {
		rate, err := rates.Rate(context.Background(), models.CurrencyUSD, models.CurrencyUSD)
		require.NoError(t, err)
		assert.True(t, rate.Equal(decimal.NewFromInt(1)))
	})

	t.Run("configured pair", func(t *testing.T) {
		rate, err := rates.Rate(context.Background(), models.CurrencyUSD, models.CurrencyEUR)
		require.NoError(t, err)
		assert.True(t, rate.Equal(decimal.RequireFromString("0.9")))
	})

	t.Run("unknown pair", func(t *testing.T) {
		_, err := rates.Rate(context.Background(), models.CurrencyEUR, models.CurrencyIRR)
		assert.Error(t, err)
	})
}
