package payment

import (
	"context"

	stripe "github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
)

// Stripe implements Provider on Stripe hosted checkout sessions.
type Stripe struct {
	api *client.API
}

// NewStripe constructs a provider with the given secret key.
func NewStripe(secretKey string) *Stripe {
	return &Stripe{api: client.New(secretKey, nil)}
}

// CreateCheckout starts a subscription-mode checkout session.
func (s *Stripe) CreateCheckout(ctx context.Context, p CheckoutParams) (*Checkout, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String("usd"),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name:        stripe.String(p.PlanName),
					Description: stripe.String(p.Description),
				},
				UnitAmount: stripe.Int64(p.AmountCents),
				Recurring: &stripe.CheckoutSessionLineItemPriceDataRecurringParams{
					Interval: stripe.String("month"),
				},
			},
			Quantity: stripe.Int64(1),
		}},
		SuccessURL:    stripe.String(p.SuccessURL),
		CancelURL:     stripe.String(p.CancelURL),
		CustomerEmail: stripe.String(p.CustomerEmail),
	}
	params.Context = ctx
	params.AddMetadata("userId", p.UserID)

	sess, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, err
	}
	return &Checkout{ID: sess.ID, URL: sess.URL}, nil
}

// ConfirmCheckout retrieves the session and reports payment state.
func (s *Stripe) ConfirmCheckout(ctx context.Context, checkoutID string) (*Confirmation, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	sess, err := s.api.CheckoutSessions.Get(checkoutID, params)
	if err != nil {
		return nil, err
	}
	conf := &Confirmation{
		Paid: sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid && sess.Subscription != nil,
	}
	if sess.Customer != nil {
		conf.CustomerID = sess.Customer.ID
	}
	if sess.Subscription != nil {
		conf.SubscriptionID = sess.Subscription.ID
	}
	return conf, nil
}

// CancelSubscription cancels the subscription immediately.
func (s *Stripe) CancelSubscription(ctx context.Context, subscriptionID string) error {
	params := &stripe.SubscriptionCancelParams{}
	params.Context = ctx
	_, err := s.api.Subscriptions.Cancel(subscriptionID, params)
	return err
}
