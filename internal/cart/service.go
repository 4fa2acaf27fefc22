package cart

import (
	"context"
	"fmt"
	"strings"

	pkgerrors "github.com/angelmondragon/loupes-storefront/pkg/errors"
	"github.com/angelmondragon/loupes-storefront/pkg/logger"
	"github.com/angelmondragon/loupes-storefront/pkg/metrics"
	"github.com/shopspring/decimal"
)

// Snapshot is a consistent view of a cart and its derived totals.
type Snapshot struct {
	Items    []LineItem      `json:"items"`
	Count    int             `json:"count"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// NewSnapshot derives count and subtotal from items.
func NewSnapshot(items []LineItem) Snapshot {
	if items == nil {
		items = []LineItem{}
	}
	return Snapshot{Items: items, Count: Count(items), Subtotal: Subtotal(items)}
}

// KeyFunc maps a cart session id to its storage key.
type KeyFunc func(sessionID string) string

// DefaultKey is the storage key layout used when no KeyFunc is configured.
func DefaultKey(sessionID string) string {
	return "ls:cart:" + sessionID
}

// Service hands out the cart store of each cart session and its change feed.
type Service interface {
	ForSession(sessionID string) (*Store, error)
	Subscribe(sessionID string) (<-chan struct{}, func(), error)
}

type service struct {
	storage  Storage
	keys     KeyFunc
	notifier *Notifier
	opts     StoreOptions
	state    *state
}

// ServiceConfig wires the shared collaborators of every session store.
type ServiceConfig struct {
	Storage  Storage
	Keys     KeyFunc
	Notifier *Notifier
	// Broadcaster defaults to Notifier; set it to a RedisRelay to fan out across instances.
	Broadcaster Broadcaster
	Stripe      StripeLookup
	Pricing     Pricing
	Logger      *logger.Logger
	Metrics     *metrics.CartMetrics
}

// NewService builds a cart service backed by the provided stack.
func NewService(cfg ServiceConfig) (Service, error) {
	if cfg.Storage == nil {
		return nil, fmt.Errorf("cart storage required")
	}
	if cfg.Notifier == nil {
		return nil, fmt.Errorf("cart notifier required")
	}
	keys := cfg.Keys
	if keys == nil {
		keys = DefaultKey
	}
	broadcaster := cfg.Broadcaster
	if broadcaster == nil {
		broadcaster = cfg.Notifier
	}
	return &service{
		storage:  cfg.Storage,
		keys:     keys,
		notifier: cfg.Notifier,
		opts: StoreOptions{
			Broadcaster: broadcaster,
			Stripe:      cfg.Stripe,
			Pricing:     cfg.Pricing,
			Logger:      cfg.Logger,
			Metrics:     cfg.Metrics,
		},
		state: newState(),
	}, nil
}

func (s *service) ForSession(sessionID string) (*Store, error) {
	key, err := s.key(sessionID)
	if err != nil {
		return nil, err
	}
	return newStore(s.storage, key, s.opts, s.state)
}

func (s *service) Subscribe(sessionID string) (<-chan struct{}, func(), error) {
	key, err := s.key(sessionID)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := s.notifier.Subscribe(key)
	return ch, cancel, nil
}

func (s *service) key(sessionID string) (string, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "cart session is required")
	}
	return s.keys(sessionID), nil
}

// ClearSession empties the cart of a session. Used once a payment completes.
func ClearSession(ctx context.Context, svc Service, sessionID string) error {
	store, err := svc.ForSession(sessionID)
	if err != nil {
		return err
	}
	store.Clear(ctx)
	return nil
}
