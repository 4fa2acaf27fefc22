package stripe

import (
	"context"
	"errors"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/checkout/session"
)

var errClientRequired = errors.New("stripe client not initialized")

// CheckoutSessions creates and fetches hosted Checkout Sessions.
type CheckoutSessions struct {
	client *Client
}

// NewCheckoutSessions binds the session helpers to an initialized client.
func NewCheckoutSessions(client *Client) *CheckoutSessions {
	return &CheckoutSessions{client: client}
}

// Create opens a new hosted checkout session.
func (s *CheckoutSessions) Create(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	if s == nil || s.client == nil {
		return nil, errClientRequired
	}
	if params == nil {
		return nil, errors.New("checkout session params required")
	}
	params.Context = ctx
	return session.New(params)
}

// Get retrieves a checkout session with its customer details.
func (s *CheckoutSessions) Get(ctx context.Context, id string) (*stripe.CheckoutSession, error) {
	if s == nil || s.client == nil {
		return nil, errClientRequired
	}
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	return session.Get(id, params)
}
