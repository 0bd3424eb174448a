package transfer

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"vaultpay/internal/models"
)

// RateProvider is the injected exchange-rate capability. Rate sourcing is
// outside this service's scope.
type RateProvider interface {
	Rate(ctx context.Context, from, to models.CurrencyCode) (decimal.Decimal, error)
}

// FeePolicy is a percentage fee with a floor and a ceiling, both expressed
// in the base currency and converted for other currencies.
type FeePolicy struct {
	Percent      decimal.Decimal
	Floor        decimal.Decimal
	Ceiling      decimal.Decimal
	BaseCurrency models.CurrencyCode
}

// DefaultFeePolicy is 1% with a 0.50–25.00 USD band.
func DefaultFeePolicy() FeePolicy {
	return FeePolicy{
		Percent:      decimal.NewFromFloat(0.01),
		Floor:        decimal.NewFromFloat(0.50),
		Ceiling:      decimal.NewFromInt(25),
		BaseCurrency: models.CurrencyUSD,
	}
}

// FeeCalculator computes the transfer fee for an amount in a currency.
type FeeCalculator struct {
	policy FeePolicy
	rates  RateProvider
}

func NewFeeCalculator(policy FeePolicy, rates RateProvider) *FeeCalculator {
	return &FeeCalculator{policy: policy, rates: rates}
}

// Fee applies the percentage and clamps it to the floor/ceiling band. For
// non-base currencies the band is converted at the current rate.
func (c *FeeCalculator) Fee(ctx context.Context, amount decimal.Decimal, currency models.CurrencyCode) (decimal.Decimal, error) {
	fee := amount.Mul(c.policy.Percent)

	floor, ceiling := c.policy.Floor, c.policy.Ceiling
	if currency != c.policy.BaseCurrency {
		if c.rates == nil {
			return decimal.Zero, fmt.Errorf("no rate provider configured for currency %s", currency)
		}
		rate, err := c.rates.Rate(ctx, c.policy.BaseCurrency, currency)
		if err != nil {
			return decimal.Zero, fmt.Errorf("failed to resolve %s rate: %w", currency, err)
		}
		floor = floor.Mul(rate)
		ceiling = ceiling.Mul(rate)
	}

	if fee.LessThan(floor) {
		fee = floor
	}
	if fee.GreaterThan(ceiling) {
		fee = ceiling
	}
	return fee.Round(4), nil
}
