package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/loupes-storefront/internal/cart"
	"github.com/angelmondragon/loupes-storefront/internal/catalog"
	"github.com/angelmondragon/loupes-storefront/pkg/db/models"
	pkgerrors "github.com/angelmondragon/loupes-storefront/pkg/errors"
	"github.com/angelmondragon/loupes-storefront/pkg/logger"
	"github.com/angelmondragon/loupes-storefront/pkg/metrics"
	"github.com/stripe/stripe-go/v84"
)

// ProductsPath is where an empty-cart checkout sends the shopper.
const ProductsPath = "/products"

// SessionGateway creates and reads hosted checkout sessions.
type SessionGateway interface {
	Create(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	Get(ctx context.Context, id string) (*stripe.CheckoutSession, error)
}

type flagStore interface {
	Get(ctx context.Context, sessionID string) (AddonFlags, error)
	Save(ctx context.Context, sessionID string, flags AddonFlags) error
	Delete(ctx context.Context, sessionID string) error
}

// Session is a created hosted checkout session.
type Session struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// SessionStatus is what the confirmation view shows after payment.
type SessionStatus struct {
	ID            string  `json:"id"`
	Status        string  `json:"status"`
	PaymentStatus string  `json:"paymentStatus"`
	CustomerEmail *string `json:"customerEmail"`
	AmountTotal   int64   `json:"amountTotal"`
	Currency      string  `json:"currency"`
}

// CreateSessionInput is the payment-session API request.
type CreateSessionInput struct {
	Items       []cart.LineItem
	CartSession string
}

// ServiceParams wires the checkout service.
type ServiceParams struct {
	Carts   cart.Service
	Catalog *catalog.Catalog
	Flags   flagStore
	// Gateway may be nil when payment credentials are not configured; session
	// calls then fail with a dependency error.
	Gateway SessionGateway
	Repo    Repository
	URLs    SessionURLs
	Logger  *logger.Logger
	Metrics *metrics.CheckoutMetrics
}

// Service hands carts off to hosted checkout.
type Service struct {
	carts   cart.Service
	catalog *catalog.Catalog
	flags   flagStore
	gateway SessionGateway
	repo    Repository
	urls    SessionURLs
	logger  *logger.Logger
	metrics *metrics.CheckoutMetrics
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Carts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart service required")
	}
	if params.Catalog == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "catalog required")
	}
	if params.Flags == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "addon flag store required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{
		carts:   params.Carts,
		catalog: params.Catalog,
		flags:   params.Flags,
		gateway: params.Gateway,
		repo:    params.Repo,
		urls:    params.URLs,
		logger:  logg,
		metrics: params.Metrics,
	}, nil
}

// SaveFlags records the add-ons chosen for the session's next checkout.
func (s *Service) SaveFlags(ctx context.Context, sessionID string, flags AddonFlags) error {
	if strings.TrimSpace(sessionID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart session is required")
	}
	if err := s.flags.Save(ctx, sessionID, flags); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to save addon selection")
	}
	return nil
}

// CheckoutCart creates a hosted session from the session's cart plus its
// flagged add-ons. The cart is never modified; the flags are dropped once the
// session exists.
func (s *Service) CheckoutCart(ctx context.Context, sessionID string) (*Session, error) {
	store, err := s.carts.ForSession(sessionID)
	if err != nil {
		return nil, err
	}
	items := store.Items(ctx)
	if !hasProduct(items) {
		return nil, s.emptyCart()
	}

	flags, err := s.flags.Get(ctx, sessionID)
	if err != nil {
		s.logger.Error(ctx, "checkout.flags_unavailable", err)
		flags = AddonFlags{}
	}

	payload, skipped := BuildPayload(items, flags, s.catalog)
	for _, sk := range skipped {
		s.warnSkipped(ctx, sk.Slug, sk.Flag)
	}

	session, err := s.create(ctx, payload, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.flags.Delete(ctx, sessionID); err != nil {
		s.logger.Error(ctx, "checkout.flags_delete_failed", err)
	}
	return session, nil
}

// CreateSession creates a hosted session for the given line items. Add-ons
// are never sold on their own.
func (s *Service) CreateSession(ctx context.Context, input CreateSessionInput) (*Session, error) {
	if !hasProduct(input.Items) {
		return nil, s.emptyCart()
	}
	return s.create(ctx, TranslateAll(input.Items, s.catalog), input.CartSession)
}

func (s *Service) create(ctx context.Context, payload []WireItem, cartSession string) (*Session, error) {
	lines, dropped := lineParams(payload, s.urls, s.catalog.IsPlaceholder)
	for _, d := range dropped {
		s.warnSkipped(ctx, d.ProductSlug, "")
	}
	if !hasProductLine(lines) {
		return nil, s.emptyCart()
	}
	if s.gateway == nil {
		s.metrics.IncSession(metrics.CheckoutFailed)
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment provider is not configured")
	}

	params := sessionParams(lines, s.urls, cartSession)
	created, err := s.gateway.Create(ctx, params)
	if err != nil {
		s.metrics.IncSession(metrics.CheckoutFailed)
		s.logger.Error(ctx, "checkout.session_create_failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, providerMessage(err, "failed to create checkout session"))
	}
	s.metrics.IncSession(metrics.CheckoutCreated)

	s.record(ctx, created, cartSession, len(lines))
	ctx = s.logger.WithFields(ctx, map[string]any{"stripe_session_id": created.ID, "line_items": len(lines)})
	s.logger.Info(ctx, "checkout.session_created")
	return &Session{ID: created.ID, URL: created.URL}, nil
}

// SessionStatus reads a hosted session for the post-payment view.
func (s *Service) SessionStatus(ctx context.Context, id string) (*SessionStatus, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	if s.gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment provider is not configured")
	}
	cs, err := s.gateway.Get(ctx, id)
	if err != nil {
		var se *stripe.Error
		if errors.As(err, &se) && se.HTTPStatusCode == 404 {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, fmt.Sprintf("checkout session %q not found", id))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, providerMessage(err, "failed to load checkout session"))
	}
	return StatusFromSession(cs), nil
}

// StatusFromSession flattens a provider session.
func StatusFromSession(cs *stripe.CheckoutSession) *SessionStatus {
	out := &SessionStatus{
		ID:            cs.ID,
		Status:        string(cs.Status),
		PaymentStatus: string(cs.PaymentStatus),
		AmountTotal:   cs.AmountTotal,
		Currency:      string(cs.Currency),
	}
	if cs.CustomerDetails != nil && cs.CustomerDetails.Email != "" {
		email := cs.CustomerDetails.Email
		out.CustomerEmail = &email
	} else if cs.CustomerEmail != "" {
		email := cs.CustomerEmail
		out.CustomerEmail = &email
	}
	return out
}

func (s *Service) record(ctx context.Context, cs *stripe.CheckoutSession, cartSession string, lines int) {
	if s.repo == nil {
		return
	}
	currency := string(cs.Currency)
	if currency == "" {
		currency = s.urls.Currency
	}
	record := &models.CheckoutSession{
		StripeSessionID:  cs.ID,
		CartSession:      cartSession,
		Status:           models.CheckoutStatusOpen,
		PaymentStatus:    string(cs.PaymentStatus),
		AmountTotalCents: cs.AmountTotal,
		Currency:         currency,
		LineItemCount:    lines,
	}
	if err := s.repo.Create(ctx, record); err != nil {
		s.logger.Error(s.logger.WithField(ctx, "stripe_session_id", cs.ID), "checkout.session_record_failed", err)
	}
}

func (s *Service) emptyCart() error {
	s.metrics.IncSession(metrics.CheckoutEmpty)
	return pkgerrors.New(pkgerrors.CodeEmptyCart, "your cart is empty").
		WithDetails(map[string]string{"redirect": ProductsPath})
}

func hasProduct(items []cart.LineItem) bool {
	for _, it := range items {
		if !it.IsAddon {
			return true
		}
	}
	return false
}

// hasProductLine reports whether any line is priced inline, which only
// physical products are.
func hasProductLine(lines []*stripe.CheckoutSessionLineItemParams) bool {
	for _, l := range lines {
		if l.PriceData != nil {
			return true
		}
	}
	return false
}

func (s *Service) warnSkipped(ctx context.Context, slug, flag string) {
	s.metrics.IncSkippedAddon(slug)
	ctx = s.logger.WithFields(ctx, map[string]any{"addon": slug, "flag": flag})
	s.logger.Warn(ctx, "checkout.addon_price_unconfigured")
}

func providerMessage(err error, fallback string) string {
	var se *stripe.Error
	if errors.As(err, &se) && se.Msg != "" {
		return se.Msg
	}
	return fallback
}
