package service

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/JesseOrSomething/ZenCode/internal/errs"
	"github.com/JesseOrSomething/ZenCode/internal/model"
	"github.com/JesseOrSomething/ZenCode/internal/payment"
	"github.com/JesseOrSomething/ZenCode/internal/repository"
	"github.com/JesseOrSomething/ZenCode/internal/session"
)

// SubscriptionInfo is the plan + usage summary shown to a signed-in user.
type SubscriptionInfo struct {
	Plan        model.PlanID
	PlanDetails model.Plan
	Today       int
	Limit       int
	Unlimited   bool
}

// SubscriptionService manages plan state and the checkout flow.
type SubscriptionService interface {
	// Info returns the user's plan and today's usage.
	Info(ctx context.Context, userID uuid.UUID) (*SubscriptionInfo, error)
	// ChooseFree switches directly to the free plan; paid plans require
	// checkout and answer ErrPaymentRequired.
	ChooseFree(ctx context.Context, userID uuid.UUID, plan model.PlanID) (*model.Plan, error)
	// StartCheckout opens a hosted checkout for the pro plan.
	StartCheckout(ctx context.Context, userID uuid.UUID, plan model.PlanID) (*payment.Checkout, error)
	// ConfirmCheckout verifies payment and activates the pro plan.
	ConfirmCheckout(ctx context.Context, userID uuid.UUID, checkoutID string) (*model.Plan, error)
	// Cancel cancels the provider subscription and downgrades to free.
	Cancel(ctx context.Context, userID uuid.UUID) (*model.Plan, error)
}

type SubscriptionServiceImpl struct {
	users    repository.UserRepository
	provider payment.Provider
	ledger   *session.Ledger
	plans    map[model.PlanID]model.Plan

	successURL string
	cancelURL  string
}

// NewSubscriptionService constructs SubscriptionService. successURL and
// cancelURL are where the hosted checkout returns the browser.
func NewSubscriptionService(users repository.UserRepository, provider payment.Provider, ledger *session.Ledger, plans map[model.PlanID]model.Plan, successURL, cancelURL string) *SubscriptionServiceImpl {
	return &SubscriptionServiceImpl{
		users:      users,
		provider:   provider,
		ledger:     ledger,
		plans:      plans,
		successURL: successURL,
		cancelURL:  cancelURL,
	}
}

// Info returns plan details plus today's usage count.
func (s *SubscriptionServiceImpl) Info(ctx context.Context, userID uuid.UUID) (*SubscriptionInfo, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	plan := s.planFor(u)
	rec, err := s.ledger.Peek(u.ID.String())
	if err != nil {
		return nil, err
	}
	return &SubscriptionInfo{
		Plan:        plan.ID,
		PlanDetails: plan,
		Today:       rec.Count,
		Limit:       plan.DailyLimit,
		Unlimited:   plan.DailyLimit == model.UnlimitedDaily,
	}, nil
}

// ChooseFree applies a direct plan switch, which only the free plan allows.
func (s *SubscriptionServiceImpl) ChooseFree(ctx context.Context, userID uuid.UUID, plan model.PlanID) (*model.Plan, error) {
	if !plan.Valid() {
		return nil, fmt.Errorf("%w: invalid plan", errs.ErrValidation)
	}
	if plan != model.PlanFree {
		return nil, errs.ErrPaymentRequired
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	u.Plan = model.PlanFree
	u.SubscribedAt = &now
	if err := s.users.UpdatePlan(ctx, u); err != nil {
		return nil, err
	}
	p := s.plans[model.PlanFree]
	return &p, nil
}

// StartCheckout opens a subscription-mode hosted checkout for the pro plan.
func (s *SubscriptionServiceImpl) StartCheckout(ctx context.Context, userID uuid.UUID, plan model.PlanID) (*payment.Checkout, error) {
	if plan != model.PlanPro {
		return nil, fmt.Errorf("%w: invalid plan for payment", errs.ErrValidation)
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.provider.CreateCheckout(ctx, payment.CheckoutParams{
		UserID:        u.ID.String(),
		CustomerEmail: u.Email,
		PlanName:      "Pro Plan - Monthly",
		Description:   "Unlimited AI questions and features",
		AmountCents:   ProPriceCents,
		SuccessURL:    s.successURL,
		CancelURL:     s.cancelURL,
	})
}

// ConfirmCheckout verifies the checkout at the provider and activates pro.
func (s *SubscriptionServiceImpl) ConfirmCheckout(ctx context.Context, userID uuid.UUID, checkoutID string) (*model.Plan, error) {
	if checkoutID == "" {
		return nil, fmt.Errorf("%w: checkout id is required", errs.ErrValidation)
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	conf, err := s.provider.ConfirmCheckout(ctx, checkoutID)
	if err != nil {
		return nil, err
	}
	if !conf.Paid {
		return nil, errs.ErrPaymentRequired
	}
	now := time.Now().UTC()
	u.Plan = model.PlanPro
	u.SubscribedAt = &now
	u.BillingCustomerID = conf.CustomerID
	u.BillingSubscriptionID = conf.SubscriptionID
	if err := s.users.UpdatePlan(ctx, u); err != nil {
		return nil, err
	}
	p := s.plans[model.PlanPro]
	return &p, nil
}

// Cancel cancels at the provider first, then downgrades to free.
func (s *SubscriptionServiceImpl) Cancel(ctx context.Context, userID uuid.UUID) (*model.Plan, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.Plan != model.PlanPro || u.BillingSubscriptionID == "" {
		return nil, fmt.Errorf("%w: no active subscription to cancel", errs.ErrValidation)
	}
	if err := s.provider.CancelSubscription(ctx, u.BillingSubscriptionID); err != nil {
		return nil, err
	}
	u.Plan = model.PlanFree
	u.SubscribedAt = nil
	u.BillingSubscriptionID = ""
	if err := s.users.UpdatePlan(ctx, u); err != nil {
		return nil, err
	}
	p := s.plans[model.PlanFree]
	return &p, nil
}

func (s *SubscriptionServiceImpl) planFor(u *model.User) model.Plan {
	if p, ok := s.plans[u.Plan]; ok {
		return p
	}
	return s.plans[model.PlanFree]
}
