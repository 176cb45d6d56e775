package payment

import (
	"context"
	"fmt"
	"sync"

	"github.com/JesseOrSomething/ZenCode/internal/errs"
)

// Mock is an in-memory Provider for development and tests: every checkout is
// immediately payable and confirmation always succeeds. The original service
// shipped with mocked checkout handlers; this preserves that mode behind the
// same interface.
type Mock struct {
	mu        sync.Mutex
	nextID    int
	checkouts map[string]CheckoutParams
	cancelled []string
}

// NewMock constructs an empty mock provider.
func NewMock() *Mock {
	return &Mock{checkouts: make(map[string]CheckoutParams)}
}

// CreateCheckout records the checkout and returns a fake hosted URL.
func (m *Mock) CreateCheckout(_ context.Context, p CheckoutParams) (*Checkout, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := fmt.Sprintf("mock_cs_%d", m.nextID)
	m.checkouts[id] = p
	return &Checkout{ID: id, URL: "https://checkout.example.test/" + id}, nil
}

// ConfirmCheckout reports any recorded checkout as paid.
func (m *Mock) ConfirmCheckout(_ context.Context, checkoutID string) (*Confirmation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.checkouts[checkoutID]; !ok {
		return nil, errs.ErrNotFound
	}
	return &Confirmation{
		Paid:           true,
		CustomerID:     "mock_cus_" + checkoutID,
		SubscriptionID: "mock_sub_" + checkoutID,
	}, nil
}

// CancelSubscription records the cancellation.
func (m *Mock) CancelSubscription(_ context.Context, subscriptionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelled = append(m.cancelled, subscriptionID)
	return nil
}

// Cancelled returns subscription ids cancelled so far (test helper).
func (m *Mock) Cancelled() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.cancelled...)
}
