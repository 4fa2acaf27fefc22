package stripewebhook

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/angelmondragon/loupes-storefront/internal/cart"
	"github.com/angelmondragon/loupes-storefront/internal/checkout"
	"github.com/angelmondragon/loupes-storefront/pkg/db/models"
	pkgerrors "github.com/angelmondragon/loupes-storefront/pkg/errors"
	"github.com/angelmondragon/loupes-storefront/pkg/logger"
	"github.com/angelmondragon/loupes-storefront/pkg/metrics"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"
)

// CartSessionMetadataKey is the checkout session metadata entry naming the cart session.
const CartSessionMetadataKey = "cart_session"

// TxRunner runs fn in a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ServiceParams struct {
	Repo  checkout.Repository
	Carts cart.Service
	// Tx makes the update-or-create of a session record atomic. Optional.
	Tx      TxRunner
	Logger  *logger.Logger
	Metrics *metrics.CheckoutMetrics
	Now     func() time.Time
}

// Service applies checkout session lifecycle events to the local records and carts.
type Service struct {
	repo    checkout.Repository
	tx      TxRunner
	carts   cart.Service
	logg    *logger.Logger
	metrics *metrics.CheckoutMetrics
	now     func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "checkout repo required")
	}
	if params.Carts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart service required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{
		repo:    params.Repo,
		tx:      params.Tx,
		carts:   params.Carts,
		logg:    logg,
		metrics: params.Metrics,
		now:     now,
	}, nil
}

// HandleEvent ignores event types it does not act on.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted,
		stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded,
		stripe.EventTypeCheckoutSessionAsyncPaymentFailed,
		stripe.EventTypeCheckoutSessionExpired:
	default:
		return nil
	}

	var cs stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode checkout session event")
	}
	if cs.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "checkout session id missing")
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"stripe_event_id":   event.ID,
		"stripe_event_type": string(event.Type),
		"stripe_session_id": cs.ID,
	})

	outcome := s.outcomeFor(event.Type, &cs)
	if err := s.record(ctx, &cs, outcome); err != nil {
		return err
	}

	switch outcome.Status {
	case models.CheckoutStatusExpired:
		s.metrics.IncSession(metrics.CheckoutExpired)
	case models.CheckoutStatusComplete:
		if isPaid(outcome.PaymentStatus) {
			s.metrics.IncSession(metrics.CheckoutCompleted)
			s.clearCart(ctx, &cs)
		}
	}
	return nil
}

func (s *Service) outcomeFor(eventType stripe.EventType, cs *stripe.CheckoutSession) checkout.Outcome {
	status := checkout.StatusFromSession(cs)
	outcome := checkout.Outcome{
		Status:           models.CheckoutStatusComplete,
		PaymentStatus:    status.PaymentStatus,
		CustomerEmail:    status.CustomerEmail,
		AmountTotalCents: status.AmountTotal,
	}
	switch eventType {
	case stripe.EventTypeCheckoutSessionExpired:
		outcome.Status = models.CheckoutStatusExpired
	case stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
		outcome.PaymentStatus = string(stripe.CheckoutSessionPaymentStatusPaid)
	case stripe.EventTypeCheckoutSessionAsyncPaymentFailed:
		outcome.PaymentStatus = string(stripe.CheckoutSessionPaymentStatusUnpaid)
	}
	if outcome.Status == models.CheckoutStatusComplete && isPaid(outcome.PaymentStatus) {
		done := s.now().UTC()
		outcome.CompletedAt = &done
	}
	return outcome
}

// record updates the stored session, creating it when the handoff was never recorded.
func (s *Service) record(ctx context.Context, cs *stripe.CheckoutSession, outcome checkout.Outcome) error {
	if s.tx == nil {
		return s.upsert(ctx, s.repo, cs, outcome)
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.upsert(ctx, s.repo.WithTx(tx), cs, outcome)
	})
}

func (s *Service) upsert(ctx context.Context, repo checkout.Repository, cs *stripe.CheckoutSession, outcome checkout.Outcome) error {
	err := repo.UpdateOutcome(ctx, cs.ID, outcome)
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update checkout session")
	}

	rec := &models.CheckoutSession{
		StripeSessionID:  cs.ID,
		CartSession:      cartSessionOf(cs),
		Status:           outcome.Status,
		PaymentStatus:    outcome.PaymentStatus,
		CustomerEmail:    outcome.CustomerEmail,
		AmountTotalCents: outcome.AmountTotalCents,
		Currency:         string(cs.Currency),
		CompletedAt:      outcome.CompletedAt,
	}
	if rec.Currency == "" {
		rec.Currency = string(stripe.CurrencyUSD)
	}
	if err := repo.Create(ctx, rec); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create checkout session")
	}
	s.logg.Warn(ctx, "stripe_webhook.session_recorded_late")
	return nil
}

func (s *Service) clearCart(ctx context.Context, cs *stripe.CheckoutSession) {
	sessionID := cartSessionOf(cs)
	if sessionID == "" {
		s.logg.Warn(ctx, "stripe_webhook.cart_session_missing")
		return
	}
	if err := cart.ClearSession(ctx, s.carts, sessionID); err != nil {
		s.logg.Error(s.logg.WithCartSession(ctx, sessionID), "stripe_webhook.clear_cart_failed", err)
		return
	}
	s.logg.Info(s.logg.WithCartSession(ctx, sessionID), "stripe_webhook.cart_cleared")
}

func cartSessionOf(cs *stripe.CheckoutSession) string {
	if cs.ClientReferenceID != "" {
		return cs.ClientReferenceID
	}
	return cs.Metadata[CartSessionMetadataKey]
}

func isPaid(paymentStatus string) bool {
	switch stripe.CheckoutSessionPaymentStatus(paymentStatus) {
	case stripe.CheckoutSessionPaymentStatusPaid, stripe.CheckoutSessionPaymentStatusNoPaymentRequired:
		return true
	}
	return false
}
