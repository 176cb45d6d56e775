// Package payment abstracts the hosted-checkout payment provider used for
// pro-plan upgrades.
package payment

import "context"

// CheckoutParams describes a hosted checkout for a recurring plan.
type CheckoutParams struct {
	UserID        string
	CustomerEmail string
	PlanName      string
	Description   string
	AmountCents   int64
	SuccessURL    string
	CancelURL     string
}

// Checkout points the client at the provider's hosted payment page.
type Checkout struct {
	ID  string
	URL string
}

// Confirmation reports a checkout's final state.
type Confirmation struct {
	Paid           bool
	CustomerID     string
	SubscriptionID string
}

// Provider is the narrow surface the subscription service needs. All calls
// go over the network and inherit the caller's context.
type Provider interface {
	// CreateCheckout starts a hosted checkout and returns its id and URL.
	CreateCheckout(ctx context.Context, p CheckoutParams) (*Checkout, error)
	// ConfirmCheckout retrieves a checkout and reports whether it was paid.
	ConfirmCheckout(ctx context.Context, checkoutID string) (*Confirmation, error)
	// CancelSubscription cancels a recurring subscription immediately.
	CancelSubscription(ctx context.Context, subscriptionID string) error
}
