package cart

import (
	"context"
	"errors"
	"sync"
)

func strPtr(s string) *string { return &s }

func physical(slug string, price float64, qty int, mag string) LineItem {
	return LineItem{
		ProductSlug:           slug,
		Name:                  slug + " loupes",
		ShortName:             strPtr(slug),
		Price:                 price,
		Quantity:              qty,
		Image:                 strPtr("/images/products/" + slug + ".png"),
		SelectedMagnification: strPtr(mag),
		SelectedFrameID:       strPtr("jj23-black"),
		SelectedFrameName:     strPtr("JJ23 Black"),
		SelectedFrameImage:    strPtr("/images/frames/jj23-black.png"),
	}
}

func addon(slug, priceID string) LineItem {
	return LineItem{
		ProductSlug:   slug,
		Name:          slug,
		Quantity:      1,
		IsAddon:       true,
		StripePriceID: strPtr(priceID),
	}
}

type listing struct {
	name, short string
	price       float64
}

// stubPricing lists products by slug.
type stubPricing map[string]listing

func (p stubPricing) Listing(slug string) (string, string, float64, bool) {
	l, ok := p[slug]
	return l.name, l.short, l.price, ok
}

// flakyStorage wraps MemoryStorage and fails writes while failSave is set.
type flakyStorage struct {
	*MemoryStorage
	mu       sync.Mutex
	failSave bool
	failLoad bool
	saves    int
}

func newFlakyStorage() *flakyStorage {
	return &flakyStorage{MemoryStorage: NewMemoryStorage()}
}

func (f *flakyStorage) setFailSave(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failSave = v
}

func (f *flakyStorage) Load(ctx context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	fail := f.failLoad
	f.mu.Unlock()
	if fail {
		return nil, errors.New("storage disabled")
	}
	return f.MemoryStorage.Load(ctx, key)
}

func (f *flakyStorage) Save(ctx context.Context, key string, blob []byte) error {
	f.mu.Lock()
	f.saves++
	fail := f.failSave
	f.mu.Unlock()
	if fail {
		return errors.New("quota exceeded")
	}
	return f.MemoryStorage.Save(ctx, key, blob)
}

func (f *flakyStorage) saveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saves
}

// countingBroadcaster records every signal.
type countingBroadcaster struct {
	mu   sync.Mutex
	keys []string
}

func (c *countingBroadcaster) Broadcast(_ context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys = append(c.keys, key)
}

func (c *countingBroadcaster) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.keys)
}

type stubStripe map[string]string

func (s stubStripe) StripeProductID(slug string, mag *string) *string {
	m := ""
	if mag != nil {
		m = *mag
	}
	if v, ok := s[slug+"|"+m]; ok {
		return &v
	}
	return nil
}
