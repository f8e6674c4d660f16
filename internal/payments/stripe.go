// Package payments wraps the Stripe SDK: hosted Checkout session creation for
// one exact amount, and webhook signature verification over the raw payload.
package payments

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/webhook"
)

type Client struct {
	webhookSecret string
	baseURL       string
}

func New(secretKey, webhookSecret, baseURL string) *Client {
	stripe.Key = secretKey
	return &Client{
		webhookSecret: webhookSecret,
		baseURL:       baseURL,
	}
}

// CreateCheckoutSession creates a single-use hosted payment page for the exact
// amount in pence, tagged with the booking ref so the webhook can correlate
// the completed payment later. Returns the hosted checkout URL.
func (c *Client) CreateCheckoutSession(ctx context.Context, bookingRef string, amountPence int64) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(string(stripe.CurrencyGBP)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String("Collect My Item - " + bookingRef),
					},
					UnitAmount: stripe.Int64(amountPence),
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(c.baseURL + "/success.html"),
		CancelURL:  stripe.String(c.baseURL + "/cancel.html"),
	}
	params.Context = ctx
	params.AddMetadata("bookingRef", bookingRef)

	s, err := session.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create checkout session: %w", err)
	}
	return s.URL, nil
}

// VerifyEvent checks the signature header against the shared signing secret.
// payload must be the exact transmitted body bytes; any re-serialisation
// breaks the signature. API version mismatches are not treated as failures.
func (c *Client) VerifyEvent(payload []byte, sigHeader string) (stripe.Event, error) {
	return webhook.ConstructEventWithOptions(payload, sigHeader, c.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
}
