package cart

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"

	"github.com/angelmondragon/loupes-storefront/pkg/logger"
	"github.com/angelmondragon/loupes-storefront/pkg/metrics"
	"github.com/shopspring/decimal"
)

// Cart operation names used for metrics and logs.
const (
	OpAdd    = "add"
	OpUpdate = "update_quantity"
	OpRemove = "remove"
	OpClear  = "clear"
)

// StripeLookup resolves remote product ids from (slug, magnification).
type StripeLookup interface {
	StripeProductID(slug string, magnification *string) *string
}

// Pricing resolves the listed name and price of a product. Products it knows
// are always stored at their listed price, whatever the caller sent.
type Pricing interface {
	Listing(slug string) (name, shortName string, price float64, ok bool)
}

const lockShards = 64

// state is shared by every Store handed out for the same storage and holds
// the per-key write locks.
type state struct {
	locks [lockShards]sync.Mutex
}

func newState() *state {
	return &state{}
}

func (s *state) lock(key string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &s.locks[h.Sum32()%lockShards]
}

// Store is the cart for one storage key, handed out per request. Reads never
// fail: unreadable storage is an empty cart. Writes are best effort: a failed
// write is logged and counted, and its result stays authoritative for this
// Store only, until one of its later writes succeeds. Other Stores for the same
// key keep reading storage.
type Store struct {
	storage Storage
	key     string
	notify  Broadcaster
	stripe  StripeLookup
	pricing Pricing
	logger  *logger.Logger
	metrics *metrics.CartMetrics
	state   *state

	// unsaved holds the result of a failed write; guarded by the key lock.
	unsaved    []LineItem
	hasUnsaved bool
}

// StoreOptions carries the collaborators of a Store.
type StoreOptions struct {
	Broadcaster Broadcaster
	Stripe      StripeLookup
	Pricing     Pricing
	Logger      *logger.Logger
	Metrics     *metrics.CartMetrics
}

// NewStore binds a standalone store to storage and key.
func NewStore(storage Storage, key string, opts StoreOptions) (*Store, error) {
	return newStore(storage, key, opts, newState())
}

func newStore(storage Storage, key string, opts StoreOptions, st *state) (*Store, error) {
	if storage == nil {
		return nil, errors.New("cart storage required")
	}
	if key == "" {
		return nil, errors.New("cart key required")
	}
	logg := opts.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Store{
		storage: storage,
		key:     key,
		notify:  opts.Broadcaster,
		stripe:  opts.Stripe,
		pricing: opts.Pricing,
		logger:  logg,
		metrics: opts.Metrics,
		state:   st,
	}, nil
}

// Key returns the storage key the store is bound to.
func (s *Store) Key() string { return s.key }

// Items returns the cart in insertion order.
func (s *Store) Items(ctx context.Context) []LineItem {
	mu := s.state.lock(s.key)
	mu.Lock()
	defer mu.Unlock()
	return cloneItems(s.load(ctx))
}

// Count is the sum of quantities.
func (s *Store) Count(ctx context.Context) int {
	return Count(s.Items(ctx))
}

// Subtotal is the sum of price x quantity.
func (s *Store) Subtotal(ctx context.Context) decimal.Decimal {
	return Subtotal(s.Items(ctx))
}

// Add upserts item. A physical item replaces the mutable fields of the entry
// with the same slug, or is appended when none exists. Add-ons always append
// with quantity 1.
func (s *Store) Add(ctx context.Context, item LineItem) {
	item = item.Clone()
	if item.IsAddon {
		item.Quantity = 1
	} else {
		item.Quantity = ClampQuantity(item.Quantity)
		s.applyListing(&item)
	}
	s.mutate(ctx, OpAdd, func(items []LineItem) ([]LineItem, bool) {
		if !item.IsAddon {
			if i := indexOf(items, item.ProductSlug); i >= 0 {
				items[i] = merge(items[i], item)
				return items, true
			}
		}
		return append(items, item), true
	})
}

// UpdateQuantity sets the quantity of the physical entry for slug, clamped to
// at least 1. It does nothing when no such entry exists.
func (s *Store) UpdateQuantity(ctx context.Context, slug string, quantity int) {
	quantity = ClampQuantity(quantity)
	s.mutate(ctx, OpUpdate, func(items []LineItem) ([]LineItem, bool) {
		i := indexOf(items, slug)
		if i < 0 {
			return items, false
		}
		items[i].Quantity = quantity
		return items, true
	})
}

// Remove deletes the entry at index. Out of range indexes are ignored.
func (s *Store) Remove(ctx context.Context, index int) {
	s.mutate(ctx, OpRemove, func(items []LineItem) ([]LineItem, bool) {
		if index < 0 || index >= len(items) {
			return items, false
		}
		return append(items[:index], items[index+1:]...), true
	})
}

// Clear empties the cart and persists the empty state.
func (s *Store) Clear(ctx context.Context) {
	s.mutate(ctx, OpClear, func([]LineItem) ([]LineItem, bool) {
		return []LineItem{}, true
	})
}

// StripeProductID resolves the remote product id for (slug, magnification).
func (s *Store) StripeProductID(slug string, magnification *string) *string {
	if s.stripe == nil {
		return nil
	}
	return s.stripe.StripeProductID(slug, magnification)
}

func (s *Store) applyListing(item *LineItem) {
	if s.pricing == nil {
		return
	}
	name, short, price, ok := s.pricing.Listing(item.ProductSlug)
	if !ok {
		return
	}
	item.Name, item.Price = name, price
	if short != "" {
		item.ShortName = &short
	}
}

func (s *Store) mutate(ctx context.Context, op string, fn func([]LineItem) ([]LineItem, bool)) {
	mu := s.state.lock(s.key)
	mu.Lock()
	items, changed := fn(s.load(ctx))
	if changed {
		s.persist(ctx, items)
	}
	mu.Unlock()

	if !changed {
		return
	}
	s.metrics.IncOp(op)
	if s.notify != nil {
		s.notify.Broadcast(ctx, s.key)
	}
}

func (s *Store) load(ctx context.Context) []LineItem {
	if s.hasUnsaved {
		return cloneItems(s.unsaved)
	}
	data, err := s.storage.Load(ctx, s.key)
	if err != nil {
		s.logger.Error(s.logCtx(ctx), "cart.load_failed", err)
		return []LineItem{}
	}
	res, err := Decode(data)
	if err != nil {
		s.logger.Warn(s.logger.WithField(s.logCtx(ctx), "error", err.Error()), "cart.blob_discarded")
		return []LineItem{}
	}
	if res.Dropped > 0 {
		s.logger.Warn(s.logger.WithField(s.logCtx(ctx), "dropped", res.Dropped), "cart.malformed_entries_dropped")
	}
	return res.Items
}

func (s *Store) persist(ctx context.Context, items []LineItem) {
	blob, err := Encode(items)
	if err == nil {
		err = s.storage.Save(ctx, s.key, blob)
	}
	if err != nil {
		s.metrics.IncPersistFailure(s.storage.Name())
		s.logger.Error(s.logCtx(ctx), "cart.persist_failed", err)
		s.unsaved, s.hasUnsaved = cloneItems(items), true
		return
	}
	s.unsaved, s.hasUnsaved = nil, false
}

func (s *Store) logCtx(ctx context.Context) context.Context {
	return s.logger.WithFields(ctx, map[string]any{
		"cart_key": s.key,
		"storage":  s.storage.Name(),
	})
}

func indexOf(items []LineItem, slug string) int {
	for i, it := range items {
		if !it.IsAddon && it.ProductSlug == slug {
			return i
		}
	}
	return -1
}

func merge(existing, next LineItem) LineItem {
	existing.Name = next.Name
	existing.ShortName = next.ShortName
	existing.Price = next.Price
	existing.Quantity = next.Quantity
	existing.Image = next.Image
	existing.SelectedMagnification = next.SelectedMagnification
	existing.SelectedFrameID = next.SelectedFrameID
	existing.SelectedFrameName = next.SelectedFrameName
	existing.SelectedFrameImage = next.SelectedFrameImage
	existing.StripePriceID = next.StripePriceID
	existing.StripeProductID = next.StripeProductID
	return existing
}
