package checkout

import (
	"github.com/angelmondragon/loupes-storefront/internal/cart"
	"github.com/angelmondragon/loupes-storefront/internal/catalog"
)

// SkippedAddon is a flagged add-on left out because its price id is unconfigured.
type SkippedAddon struct {
	Slug string
	Flag string
}

// BuildPayload translates the cart and appends the add-ons enabled by flags.
// Add-ons already present in the cart are not duplicated. Add-ons without a
// configured price id are returned as skipped instead of being sent.
func BuildPayload(items []cart.LineItem, flags AddonFlags, cat *catalog.Catalog) ([]WireItem, []SkippedAddon) {
	payload := TranslateAll(items, cat)

	present := make(map[string]bool, len(items))
	for _, it := range items {
		if it.IsAddon {
			present[it.ProductSlug] = true
		}
	}

	var skipped []SkippedAddon
	for _, flag := range flags.Enabled() {
		addon, ok := cat.AddonByFlag(flag)
		if !ok {
			skipped = append(skipped, SkippedAddon{Flag: flag})
			continue
		}
		if present[addon.Slug] {
			continue
		}
		priceID := cat.AddonPriceID(addon)
		if priceID == nil {
			skipped = append(skipped, SkippedAddon{Slug: addon.Slug, Flag: flag})
			continue
		}
		payload = append(payload, WireItem{
			ProductSlug:     addon.Slug,
			Name:            addon.Name,
			Quantity:        1,
			IsAddon:         true,
			StripePriceID:   priceID,
			StripeProductID: cat.AddonProductID(addon),
		})
	}
	return payload, skipped
}
