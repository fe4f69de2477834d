package payments

import (
	"context"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
)

// productName is the line item label shown on the Stripe checkout page.
const productName = "ChatGPT Booking"

// CheckoutSession describes one Stripe Checkout session to create.
type CheckoutSession struct {
	Currency   string
	UnitAmount int64 // smallest currency unit
	Quantity   int64
	SuccessURL string
	CancelURL  string
}

// SessionCreator creates hosted checkout sessions and returns their URL.
type SessionCreator interface {
	CreateCheckoutSession(ctx context.Context, s CheckoutSession) (string, error)
}

// StripeSessions creates sessions with the Stripe API.
type StripeSessions struct {
	client *session.Client
}

// NewStripeSessions returns a SessionCreator authenticated with secretKey.
func NewStripeSessions(secretKey string) *StripeSessions {
	return &StripeSessions{
		client: &session.Client{B: stripe.GetBackend(stripe.APIBackend), Key: secretKey},
	}
}

func (s *StripeSessions) CreateCheckoutSession(ctx context.Context, cs CheckoutSession) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(cs.Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(productName),
					},
					UnitAmount: stripe.Int64(cs.UnitAmount),
				},
				Quantity: stripe.Int64(cs.Quantity),
			},
		},
		SuccessURL: stripe.String(cs.SuccessURL),
		CancelURL:  stripe.String(cs.CancelURL),
	}
	params.Context = ctx

	sess, err := s.client.New(params)
	if err != nil {
		return "", err
	}
	return sess.URL, nil
}
