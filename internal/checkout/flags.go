package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/loupes-storefront/internal/catalog"
	pkgredis "github.com/angelmondragon/loupes-storefront/pkg/redis"
)

// AddonFlags are the add-ons a shopper opted into when leaving the cart.
type AddonFlags struct {
	Prescription bool `json:"prescription"`
	Warranty     bool `json:"warranty"`
}

// Enabled lists the catalog flag names that are set, in a stable order.
func (f AddonFlags) Enabled() []string {
	var out []string
	if f.Prescription {
		out = append(out, catalog.FlagPrescription)
	}
	if f.Warranty {
		out = append(out, catalog.FlagWarranty)
	}
	return out
}

type flagCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CheckoutFlagsKey(sessionID string) string
}

// FlagStore keeps add-on flags per cart session for one checkout attempt.
type FlagStore struct {
	cache flagCache
	ttl   time.Duration
}

func NewFlagStore(cache flagCache, ttl time.Duration) (*FlagStore, error) {
	if cache == nil {
		return nil, errors.New("flag cache required")
	}
	if ttl <= 0 {
		return nil, errors.New("flag ttl must be positive")
	}
	return &FlagStore{cache: cache, ttl: ttl}, nil
}

// Get returns the stored flags, or zero flags when none were saved.
func (s *FlagStore) Get(ctx context.Context, sessionID string) (AddonFlags, error) {
	raw, err := s.cache.Get(ctx, s.cache.CheckoutFlagsKey(sessionID))
	if err != nil {
		if pkgredis.IsNil(err) {
			return AddonFlags{}, nil
		}
		return AddonFlags{}, fmt.Errorf("load addon flags: %w", err)
	}
	var flags AddonFlags
	if err := json.Unmarshal([]byte(raw), &flags); err != nil {
		return AddonFlags{}, fmt.Errorf("decode addon flags: %w", err)
	}
	return flags, nil
}

// Save replaces the flags for a session.
func (s *FlagStore) Save(ctx context.Context, sessionID string, flags AddonFlags) error {
	data, err := json.Marshal(flags)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, s.cache.CheckoutFlagsKey(sessionID), data, s.ttl)
}

// Delete drops the flags once a checkout attempt has been handed off.
func (s *FlagStore) Delete(ctx context.Context, sessionID string) error {
	return s.cache.Del(ctx, s.cache.CheckoutFlagsKey(sessionID))
}
