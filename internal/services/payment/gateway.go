package payment

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/paymentintent"
	"github.com/stripe/stripe-go/v72/refund"

	"vaultpay/internal/models"
)

// PaymentRequest is a pending gateway payment awaiting confirmation.
type PaymentRequest struct {
	ReferenceID  string
	ClientSecret string
	Amount       decimal.Decimal
	Currency     models.CurrencyCode
}

// Verification is the gateway's answer for a reference id. The ledger only
// trusts Paid verifications.
type Verification struct {
	ReferenceID string
	Paid        bool
	Amount      decimal.Decimal
	Currency    models.CurrencyCode
}

// Gateway is the opaque payment-provider capability. The ledger never talks
// to the provider's API beyond this surface.
type Gateway interface {
	CreatePaymentRequest(ctx context.Context, amount decimal.Decimal, currency models.CurrencyCode, description string) (*PaymentRequest, error)
	VerifyPayment(ctx context.Context, referenceID string) (*Verification, error)
	RefundPayment(ctx context.Context, referenceID string, amount decimal.Decimal) error
}

// StripeGateway implements Gateway on Stripe payment intents. Amounts cross
// the wire in the currency's minor unit.
type StripeGateway struct{}

func NewStripeGateway(apiKey string) *StripeGateway {
	stripe.Key = apiKey
	return &StripeGateway{}
}

func (g *StripeGateway) CreatePaymentRequest(ctx context.Context, amount decimal.Decimal, currency models.CurrencyCode, description string) (*PaymentRequest, error) {
	params := &stripe.PaymentIntentParams{
		Amount:      stripe.Int64(toMinorUnit(amount, currency)),
		Currency:    stripe.String(strings.ToLower(string(currency))),
		Description: stripe.String(description),
	}
	params.Context = ctx

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, err
	}
	return &PaymentRequest{
		ReferenceID:  pi.ID,
		ClientSecret: pi.ClientSecret,
		Amount:       amount,
		Currency:     currency,
	}, nil
}

func (g *StripeGateway) VerifyPayment(ctx context.Context, referenceID string) (*Verification, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := paymentintent.Get(referenceID, params)
	if err != nil {
		return nil, err
	}
	currency := models.CurrencyCode(strings.ToUpper(string(pi.Currency)))
	return &Verification{
		ReferenceID: pi.ID,
		Paid:        pi.Status == stripe.PaymentIntentStatusSucceeded,
		Amount:      fromMinorUnit(pi.Amount, currency),
		Currency:    currency,
	}, nil
}

func (g *StripeGateway) RefundPayment(ctx context.Context, referenceID string, amount decimal.Decimal) error {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(referenceID),
		Amount:        stripe.Int64(toMinorUnit(amount, models.CurrencyUSD)),
	}
	params.Context = ctx

	_, err := refund.New(params)
	return err
}

// minorUnitExponent is 2 for most currencies; IRR has no minor unit.
func minorUnitExponent(currency models.CurrencyCode) int32 {
	if currency == models.CurrencyIRR {
		return 0
	}
	return 2
}

func toMinorUnit(amount decimal.Decimal, currency models.CurrencyCode) int64 {
	return amount.Shift(minorUnitExponent(currency)).IntPart()
}

func fromMinorUnit(amount int64, currency models.CurrencyCode) decimal.Decimal {
	return decimal.NewFromInt(amount).Shift(-minorUnitExponent(currency))
}
