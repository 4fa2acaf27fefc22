package configurator

import (
	"context"
	"fmt"

	"github.com/angelmondragon/loupes-storefront/internal/cart"
	"github.com/angelmondragon/loupes-storefront/internal/catalog"
	pkgerrors "github.com/angelmondragon/loupes-storefront/pkg/errors"
)

// CartPath is where the shopper lands after adding to cart.
const CartPath = "/cart"

// State of a product configurator.
type State string

const (
	StateUnconfigured State = "unconfigured"
	StateConfigured   State = "configured"
	StateAdded        State = "added"
)

// Selection is the in-page configuration of one product.
type Selection struct {
	Magnification *string `json:"magnification"`
	FrameID       string  `json:"frameId"`
	ColorID       string  `json:"colorId"`
	Quantity      int     `json:"quantity"`
}

// Changes is a partial update to a Selection. Nil fields are left alone.
type Changes struct {
	Magnification *string `json:"magnification"`
	FrameID       *string `json:"frameId"`
	ColorID       *string `json:"colorId"`
	Quantity      *int    `json:"quantity"`
}

func (c Changes) empty() bool {
	return c.Magnification == nil && c.FrameID == nil && c.ColorID == nil && c.Quantity == nil
}

// View is what the product page renders.
type View struct {
	ProductSlug     string        `json:"productSlug"`
	State           State         `json:"state"`
	InCart          bool          `json:"inCart"`
	Selection       Selection     `json:"selection"`
	LineItem        cart.LineItem `json:"lineItem"`
	StripeProductID *string       `json:"stripeProductId"`
}

// Configurator maps the selection on one product page to a cart line item and
// keeps the cart entry for that product in sync once it exists.
type Configurator struct {
	catalog *catalog.Catalog
	product catalog.Product
	store   *cart.Store
	sel     Selection
	state   State
	inCart  bool
}

// New builds the configurator for slug. It starts from product defaults; call
// Mount to restore the selection from the cart.
func New(cat *catalog.Catalog, slug string, store *cart.Store) (*Configurator, error) {
	if cat == nil || store == nil {
		return nil, fmt.Errorf("catalog and cart store required")
	}
	product, ok := cat.Product(slug)
	if !ok {
		return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "product %q not found", slug)
	}
	c := &Configurator{catalog: cat, product: product, store: store, state: StateUnconfigured}
	c.sel = c.defaults()
	return c, nil
}

func (c *Configurator) defaults() Selection {
	sel := Selection{Quantity: 1}
	if c.product.HasMagnification() {
		mag := c.product.DefaultMagnification
		sel.Magnification = &mag
	}
	if frames := c.catalog.Frames(c.product); len(frames) > 0 {
		sel.FrameID = frames[0].ID
		sel.ColorID = frames[0].Colors[0].ID
	}
	return sel
}

// Mount restores the selection from the product's cart entry when there is
// one. A restored entry without a valid magnification gets the product default,
// written back to the cart at once.
func (c *Configurator) Mount(ctx context.Context) View {
	existing, ok := c.cartEntry(ctx)
	if !ok {
		return c.View()
	}
	c.inCart = true
	c.state = StateConfigured
	c.sel.Quantity = cart.ClampQuantity(existing.Quantity)

	if existing.SelectedFrameID != nil {
		if frame, color, ok := c.catalog.Variant(*existing.SelectedFrameID); ok && c.product.SupportsFrame(frame.ID) {
			c.sel.FrameID = frame.ID
			c.sel.ColorID = color.ID
		}
	}

	if c.product.HasMagnification() {
		if existing.SelectedMagnification != nil && c.product.SupportsMagnification(*existing.SelectedMagnification) {
			mag := *existing.SelectedMagnification
			c.sel.Magnification = &mag
		} else {
			c.sync(ctx)
		}
	}
	return c.View()
}

// SelectMagnification picks an optical power.
func (c *Configurator) SelectMagnification(ctx context.Context, mag string) error {
	return c.Apply(ctx, Changes{Magnification: &mag})
}

// SelectFrame picks a base frame and resets the color to its first variant.
func (c *Configurator) SelectFrame(ctx context.Context, frameID string) error {
	return c.Apply(ctx, Changes{FrameID: &frameID})
}

// SelectColor picks a color variant of the selected frame.
func (c *Configurator) SelectColor(ctx context.Context, colorID string) error {
	return c.Apply(ctx, Changes{ColorID: &colorID})
}

// SetQuantity sets the quantity, clamped to at least 1.
func (c *Configurator) SetQuantity(ctx context.Context, q int) error {
	return c.Apply(ctx, Changes{Quantity: &q})
}

// Apply validates and applies changes in frame, color, magnification, quantity
// order. When the product is already in the cart the entry is upserted once.
func (c *Configurator) Apply(ctx context.Context, ch Changes) error {
	if ch.empty() {
		return nil
	}
	next := c.sel
	if ch.FrameID != nil {
		frame, ok := c.catalog.Frame(*ch.FrameID)
		if !ok || !c.product.SupportsFrame(frame.ID) {
			return invalid("frame %q is not offered for %s", *ch.FrameID, c.product.Slug)
		}
		next.FrameID = frame.ID
		next.ColorID = frame.Colors[0].ID
	}
	if ch.ColorID != nil {
		frame, color, ok := c.catalog.Variant(*ch.ColorID)
		if !ok || frame.ID != next.FrameID {
			return invalid("color %q does not belong to frame %q", *ch.ColorID, next.FrameID)
		}
		next.ColorID = color.ID
	}
	if ch.Magnification != nil {
		if !c.product.SupportsMagnification(*ch.Magnification) {
			return invalid("magnification %q is not offered for %s", *ch.Magnification, c.product.Slug)
		}
		mag := *ch.Magnification
		next.Magnification = &mag
	}
	if ch.Quantity != nil {
		next.Quantity = cart.ClampQuantity(*ch.Quantity)
	}

	c.sel = next
	if c.state == StateUnconfigured {
		c.state = StateConfigured
	}
	if c.inCart {
		c.sync(ctx)
	}
	return nil
}

// AddToCart upserts the full selection and returns the derived item plus the
// path to navigate to.
func (c *Configurator) AddToCart(ctx context.Context) (cart.LineItem, string) {
	item := c.LineItem()
	c.store.Add(ctx, item)
	c.inCart = true
	c.state = StateAdded
	return item, CartPath
}

// LineItem derives the candidate cart entry from the current selection.
func (c *Configurator) LineItem() cart.LineItem {
	p := c.product
	item := cart.LineItem{
		ProductSlug: p.Slug,
		Name:        p.Name,
		Price:       p.BasePrice,
		Quantity:    cart.ClampQuantity(c.sel.Quantity),
	}
	if p.ShortName != "" {
		item.ShortName = strPtr(p.ShortName)
	}
	if p.Image != "" {
		item.Image = strPtr(p.Image)
	}
	if c.sel.Magnification != nil {
		item.SelectedMagnification = strPtr(*c.sel.Magnification)
	}
	if frame, ok := c.catalog.Frame(c.sel.FrameID); ok {
		if color, ok := frame.Color(c.sel.ColorID); ok {
			item.SelectedFrameID = strPtr(color.ID)
			item.SelectedFrameName = strPtr(frame.DisplayName(color))
			item.SelectedFrameImage = strPtr(color.Image)
			item.Image = strPtr(color.Image)
		}
	}
	item.StripeProductID = c.store.StripeProductID(p.Slug, item.SelectedMagnification)
	return item
}

// View reports the current configurator state.
func (c *Configurator) View() View {
	item := c.LineItem()
	return View{
		ProductSlug:     c.product.Slug,
		State:           c.state,
		InCart:          c.inCart,
		Selection:       c.Selection(),
		LineItem:        item,
		StripeProductID: item.StripeProductID,
	}
}

// Selection returns a copy of the current selection.
func (c *Configurator) Selection() Selection {
	sel := c.sel
	if sel.Magnification != nil {
		sel.Magnification = strPtr(*sel.Magnification)
	}
	return sel
}

// State returns the configurator state.
func (c *Configurator) State() State { return c.state }

func (c *Configurator) sync(ctx context.Context) {
	c.store.Add(ctx, c.LineItem())
}

func (c *Configurator) cartEntry(ctx context.Context) (cart.LineItem, bool) {
	for _, it := range c.store.Items(ctx) {
		if !it.IsAddon && it.ProductSlug == c.product.Slug {
			return it, true
		}
	}
	return cart.LineItem{}, false
}

func invalid(format string, args ...any) error {
	return pkgerrors.Newf(pkgerrors.CodeValidation, format, args...)
}

func strPtr(s string) *string { return &s }
