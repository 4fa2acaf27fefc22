package checkout

import (
	"strings"

	"github.com/angelmondragon/loupes-storefront/internal/cart"
	"github.com/angelmondragon/loupes-storefront/internal/catalog"
	"github.com/shopspring/decimal"
)

// WireItem is the shape a cart entry takes on its way to the payment provider.
type WireItem struct {
	ProductSlug     string  `json:"productSlug"`
	Name            string  `json:"name"`
	Price           float64 `json:"price"`
	Quantity        int     `json:"quantity"`
	Image           *string `json:"image"`
	Magnification   *string `json:"magnification"`
	FrameID         *string `json:"frameId"`
	FrameName       *string `json:"frameName"`
	FrameStyle      string  `json:"frameStyle"`
	FrameColor      string  `json:"frameColor"`
	IsAddon         bool    `json:"isAddon"`
	StripePriceID   *string `json:"stripePriceId"`
	StripeProductID *string `json:"stripeProductId"`
}

// UnitAmount is the price in minor currency units, round(price * 100).
func (w WireItem) UnitAmount() int64 {
	return decimal.NewFromFloat(w.Price).Shift(2).Round(0).IntPart()
}

type catalogLookup interface {
	Variant(colorID string) (catalog.Frame, catalog.Color, bool)
	Listing(slug string) (name, shortName string, price float64, ok bool)
}

// Translate converts a cart entry to its wire shape. Products listed in the
// catalog are charged at their base price under their catalog name. Frame
// style and color come from the catalog when the selected variant is known,
// otherwise from splitting the combined frame name.
func Translate(item cart.LineItem, lookup catalogLookup) WireItem {
	w := WireItem{
		ProductSlug:     item.ProductSlug,
		Name:            item.Name,
		Price:           item.Price,
		Quantity:        cart.ClampQuantity(item.Quantity),
		Image:           item.Image,
		Magnification:   item.SelectedMagnification,
		FrameID:         item.SelectedFrameID,
		FrameName:       item.SelectedFrameName,
		IsAddon:         item.IsAddon,
		StripePriceID:   item.StripePriceID,
		StripeProductID: item.StripeProductID,
	}
	if item.IsAddon {
		w.Quantity = 1
	}
	if lookup != nil && !item.IsAddon {
		if name, _, price, ok := lookup.Listing(item.ProductSlug); ok {
			w.Name, w.Price = name, price
		}
	}
	if lookup != nil && item.SelectedFrameID != nil {
		if frame, color, ok := lookup.Variant(*item.SelectedFrameID); ok {
			w.FrameStyle, w.FrameColor = frame.Label, color.Name
			return w
		}
	}
	if item.SelectedFrameName != nil {
		w.FrameStyle, w.FrameColor = SplitFrameName(*item.SelectedFrameName)
	}
	return w
}

// TranslateAll converts every entry in order.
func TranslateAll(items []cart.LineItem, lookup catalogLookup) []WireItem {
	out := make([]WireItem, 0, len(items))
	for _, it := range items {
		out = append(out, Translate(it, lookup))
	}
	return out
}

// SplitFrameName splits "<Style> <Color>" on the first space. Without a space
// the whole name is the style and the color is empty.
func SplitFrameName(name string) (style, color string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ""
	}
	i := strings.IndexByte(name, ' ')
	if i < 0 {
		return name, ""
	}
	return name[:i], strings.TrimSpace(name[i+1:])
}
