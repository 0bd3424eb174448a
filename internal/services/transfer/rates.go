package transfer

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"vaultpay/internal/models"
)

// StaticRateProvider serves exchange rates from a fixed table. Rate sourcing
// is injected; this implementation covers wiring and tests.
type StaticRateProvider struct {
	rates map[string]decimal.Decimal
}

func NewStaticRateProvider() *StaticRateProvider {
	return &StaticRateProvider{rates: make(map[string]decimal.Decimal)}
}

// SetRate fixes the rate for one currency pair.
func (p *StaticRateProvider) SetRate(from, to models.CurrencyCode, rate decimal.Decimal) {
	p.rates[rateKey(from, to)] = rate
}

func (p *StaticRateProvider) Rate(ctx context.Context, from, to models.CurrencyCode) (decimal.Decimal, error) {
	if from == to {
		return decimal.NewFromInt(1), nil
	}
	if rate, ok := p.rates[rateKey(from, to)]; ok {
		return rate, nil
	}
	return decimal.Zero, fmt.Errorf("no rate configured for %s/%s", from, to)
}

func rateKey(from, to models.CurrencyCode) string {
	return string(from) + "/" + string(to)
}
