package cart

import (
	"github.com/shopspring/decimal"
)

// LineItem is one configured product or add-on in the cart. Optional fields
// are pointers and always serialize, as null when unset.
type LineItem struct {
	ProductSlug           string  `json:"productSlug" validate:"required"`
	Name                  string  `json:"name"`
	ShortName             *string `json:"shortName"`
	Price                 float64 `json:"price" validate:"gte=0"`
	Quantity              int     `json:"quantity" validate:"min=1"`
	Image                 *string `json:"image"`
	SelectedMagnification *string `json:"selectedMagnification"`
	SelectedFrameID       *string `json:"selectedFrameId"`
	SelectedFrameName     *string `json:"selectedFrameName"`
	SelectedFrameImage    *string `json:"selectedFrameImage"`
	IsAddon               bool    `json:"isAddon"`
	StripePriceID         *string `json:"stripePriceId"`
	StripeProductID       *string `json:"stripeProductId"`
}

// LineTotal is price multiplied by quantity.
func (li LineItem) LineTotal() decimal.Decimal {
	return decimal.NewFromFloat(li.Price).Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Clone returns a deep copy so callers never share pointer fields with the store.
func (li LineItem) Clone() LineItem {
	out := li
	out.ShortName = cloneStr(li.ShortName)
	out.Image = cloneStr(li.Image)
	out.SelectedMagnification = cloneStr(li.SelectedMagnification)
	out.SelectedFrameID = cloneStr(li.SelectedFrameID)
	out.SelectedFrameName = cloneStr(li.SelectedFrameName)
	out.SelectedFrameImage = cloneStr(li.SelectedFrameImage)
	out.StripePriceID = cloneStr(li.StripePriceID)
	out.StripeProductID = cloneStr(li.StripeProductID)
	return out
}

// ClampQuantity floors q at 1.
func ClampQuantity(q int) int {
	if q < 1 {
		return 1
	}
	return q
}

// Count sums quantities across items.
func Count(items []LineItem) int {
	total := 0
	for _, it := range items {
		total += it.Quantity
	}
	return total
}

// Subtotal sums price x quantity across every entry, add-ons included.
func Subtotal(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.LineTotal())
	}
	return total
}

func cloneStr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneItems(items []LineItem) []LineItem {
	out := make([]LineItem, len(items))
	for i, it := range items {
		out[i] = it.Clone()
	}
	return out
}
