package configurator

import (
	"context"
	"testing"

	"github.com/angelmondragon/loupes-storefront/internal/cart"
	"github.com/angelmondragon/loupes-storefront/internal/catalog"
	pkgerrors "github.com/angelmondragon/loupes-storefront/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*catalog.Catalog, *cart.Store) {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)
	store, err := cart.NewStore(cart.NewMemoryStorage(), cart.DefaultKey("sess"), cart.StoreOptions{Stripe: cat})
	require.NoError(t, err)
	return cat, store
}

func mount(t *testing.T, cat *catalog.Catalog, store *cart.Store, slug string) *Configurator {
	t.Helper()
	c, err := New(cat, slug, store)
	require.NoError(t, err)
	c.Mount(context.Background())
	return c
}

func TestNewUnknownProduct(t *testing.T) {
	cat, store := setup(t)
	_, err := New(cat, "monocle", store)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestDefaultsUsePerProductMagnification(t *testing.T) {
	cat, store := setup(t)
	cases := map[string]string{"galileo": "3.0x", "kepler": "5.0x", "galileo-flip": "2.5x"}
	for slug, want := range cases {
		c := mount(t, cat, store, slug)
		require.NotNil(t, c.Selection().Magnification, slug)
		assert.Equal(t, want, *c.Selection().Magnification, slug)
		assert.Equal(t, StateUnconfigured, c.State())
		assert.Equal(t, 1, c.Selection().Quantity)
	}

	headlight := mount(t, cat, store, "headlight")
	assert.Nil(t, headlight.Selection().Magnification)
	item := headlight.LineItem()
	assert.Nil(t, item.SelectedFrameID)
	require.NotNil(t, item.StripeProductID)
	assert.Equal(t, "prod_QLedHeadlight", *item.StripeProductID)
}

func TestChangesBeforeAddAreHeldLocally(t *testing.T) {
	ctx := context.Background()
	cat, store := setup(t)
	c := mount(t, cat, store, "galileo")

	require.NoError(t, c.SelectMagnification(ctx, "3.5x"))
	require.NoError(t, c.SetQuantity(ctx, 2))

	assert.Equal(t, StateConfigured, c.State())
	assert.Empty(t, store.Items(ctx))
}

func TestAddToCartUpsertsAndRedirects(t *testing.T) {
	ctx := context.Background()
	cat, store := setup(t)
	c := mount(t, cat, store, "galileo")
	require.NoError(t, c.SelectFrame(ctx, "jj45"))
	require.NoError(t, c.SelectColor(ctx, "jj45-crimson"))

	item, redirect := c.AddToCart(ctx)

	assert.Equal(t, CartPath, redirect)
	assert.Equal(t, StateAdded, c.State())
	require.Len(t, store.Items(ctx), 1)
	assert.Equal(t, item, store.Items(ctx)[0])
	assert.Equal(t, "JJ45 Crimson", *item.SelectedFrameName)
	assert.Equal(t, "jj45-crimson", *item.SelectedFrameID)
	assert.Equal(t, 499.0, item.Price)
}

func TestFramePreviewMatchesEverySelectablePair(t *testing.T) {
	ctx := context.Background()
	cat, _ := setup(t)
	for _, p := range cat.Products() {
		for _, frame := range cat.Frames(p) {
			for _, color := range frame.Colors {
				_, store := setup(t)
				c := mount(t, cat, store, p.Slug)
				// Start from a different selection so a stale image would show.
				require.NoError(t, c.SelectFrame(ctx, p.Frames[len(p.Frames)-1]))
				require.NoError(t, c.SelectFrame(ctx, frame.ID))
				require.NoError(t, c.SelectColor(ctx, color.ID))

				item, _ := c.AddToCart(ctx)
				require.NotNil(t, item.SelectedFrameImage)
				assert.Equal(t, color.Image, *item.SelectedFrameImage, "%s %s", p.Slug, color.ID)
				assert.Equal(t, frame.Label+" "+color.Name, *item.SelectedFrameName)
			}
		}
	}
}

func TestSelectFrameResetsColor(t *testing.T) {
	ctx := context.Background()
	cat, store := setup(t)
	c := mount(t, cat, store, "galileo")
	require.NoError(t, c.SelectColor(ctx, "jj23-navy"))
	require.NoError(t, c.SelectFrame(ctx, "kd10"))

	assert.Equal(t, "kd10-graphite", c.Selection().ColorID)
	assert.Equal(t, "/images/frames/kd10-graphite.png", *c.LineItem().SelectedFrameImage)
}

func TestInvalidSelectionsAreRejected(t *testing.T) {
	ctx := context.Background()
	cat, store := setup(t)
	c := mount(t, cat, store, "galileo-flip")
	before := c.Selection()

	for name, err := range map[string]error{
		"unsupported mag":      c.SelectMagnification(ctx, "6.0x"),
		"frame not offered":    c.SelectFrame(ctx, "jj45"),
		"unknown frame":        c.SelectFrame(ctx, "zz99"),
		"color of other frame": c.SelectColor(ctx, "kd10-graphite"),
	} {
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), name)
	}
	assert.Equal(t, before, c.Selection())
	assert.Equal(t, StateUnconfigured, c.State())
}

func TestApplyIsAtomicOnError(t *testing.T) {
	ctx := context.Background()
	cat, store := setup(t)
	c := mount(t, cat, store, "galileo")
	mag := "3.5x"
	bad := "nope"
	err := c.Apply(ctx, Changes{Magnification: &mag, ColorID: &bad})
	require.Error(t, err)
	assert.Equal(t, "3.0x", *c.Selection().Magnification)
}

func TestMountRestoresFromCart(t *testing.T) {
	ctx := context.Background()
	cat, store := setup(t)
	first := mount(t, cat, store, "kepler")
	require.NoError(t, first.Apply(ctx, Changes{
		Magnification: strPtr("6.0x"),
		FrameID:       strPtr("kd10"),
		ColorID:       strPtr("kd10-rose-gold"),
		Quantity:      intPtr(3),
	}))
	first.AddToCart(ctx)

	again := mount(t, cat, store, "kepler")
	sel := again.Selection()
	assert.True(t, again.View().InCart)
	assert.Equal(t, "6.0x", *sel.Magnification)
	assert.Equal(t, "kd10", sel.FrameID)
	assert.Equal(t, "kd10-rose-gold", sel.ColorID)
	assert.Equal(t, 3, sel.Quantity)
	assert.Equal(t, StateConfigured, again.State())
}

func TestMountFillsMissingMagnificationIntoCart(t *testing.T) {
	ctx := context.Background()
	cat, store := setup(t)
	store.Add(ctx, cart.LineItem{ProductSlug: "kepler", Name: "Kepler", Price: 899, Quantity: 2})

	c := mount(t, cat, store, "kepler")

	assert.Equal(t, "5.0x", *c.Selection().Magnification)
	items := store.Items(ctx)
	require.Len(t, items, 1)
	assert.Equal(t, "5.0x", *items[0].SelectedMagnification)
	assert.Equal(t, 2, items[0].Quantity)
	require.NotNil(t, items[0].StripeProductID)
	assert.Equal(t, "prod_QKep50xLoupes", *items[0].StripeProductID)
}

func TestReconfigureInCartScenario(t *testing.T) {
	ctx := context.Background()
	cat, store := setup(t)
	c := mount(t, cat, store, "galileo")
	require.NoError(t, c.SelectMagnification(ctx, "2.5x"))
	c.AddToCart(ctx)

	page := mount(t, cat, store, "galileo")
	require.NoError(t, page.SelectMagnification(ctx, "3.5x"))

	items := store.Items(ctx)
	require.Len(t, items, 1)
	assert.Equal(t, 499.0, items[0].Price)
	assert.Equal(t, "3.5x", *items[0].SelectedMagnification)
	require.NotNil(t, items[0].StripeProductID)
	assert.Equal(t, "prod_QGal35xLoupes", *items[0].StripeProductID)

	require.NoError(t, page.SetQuantity(ctx, 2))
	assert.True(t, decimal.NewFromInt(998).Equal(store.Subtotal(ctx)))
	assert.Len(t, store.Items(ctx), 1)
}

func TestStripeIDIsNilForPlaceholderMagnification(t *testing.T) {
	ctx := context.Background()
	cat, store := setup(t)
	c := mount(t, cat, store, "kepler")
	require.NoError(t, c.SelectMagnification(ctx, "6.0x"))
	assert.Nil(t, c.View().StripeProductID)
}

func intPtr(v int) *int { return &v }
