package checkout

import (
	"strings"

	"github.com/stripe/stripe-go/v84"
)

// SessionURLs are the redirect targets of a hosted checkout session.
type SessionURLs struct {
	PublicURL  string
	SuccessURL string
	CancelURL  string
	Currency   string
}

// lineParams maps wire items to hosted-checkout line items. Physical items
// carry inline price data; add-ons reference their pre-existing price. Add-ons
// without a usable price id are returned separately.
func lineParams(items []WireItem, urls SessionURLs, isPlaceholder func(string) bool) ([]*stripe.CheckoutSessionLineItemParams, []WireItem) {
	currency := strings.ToLower(strings.TrimSpace(urls.Currency))
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}

	var (
		lines   []*stripe.CheckoutSessionLineItemParams
		dropped []WireItem
	)
	for _, it := range items {
		if it.IsAddon {
			if it.StripePriceID == nil || isPlaceholder(*it.StripePriceID) {
				dropped = append(dropped, it)
				continue
			}
			lines = append(lines, &stripe.CheckoutSessionLineItemParams{
				Price:    stripe.String(*it.StripePriceID),
				Quantity: stripe.Int64(1),
			})
			continue
		}

		product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name:     stripe.String(it.Name),
			Metadata: productMetadata(it),
		}
		if desc := description(it); desc != "" {
			product.Description = stripe.String(desc)
		}
		if it.Image != nil && urls.PublicURL != "" && strings.HasPrefix(*it.Image, "/") {
			product.Images = stripe.StringSlice([]string{strings.TrimRight(urls.PublicURL, "/") + *it.Image})
		}
		lines = append(lines, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(currency),
				UnitAmount:  stripe.Int64(it.UnitAmount()),
				ProductData: product,
			},
			Quantity: stripe.Int64(int64(it.Quantity)),
		})
	}
	return lines, dropped
}

func productMetadata(it WireItem) map[string]string {
	meta := map[string]string{"slug": it.ProductSlug}
	if it.FrameName != nil && *it.FrameName != "" {
		meta["frame"] = *it.FrameName
	}
	if it.FrameStyle != "" {
		meta["frameStyle"] = it.FrameStyle
	}
	if it.FrameColor != "" {
		meta["frameColor"] = it.FrameColor
	}
	if it.Magnification != nil && *it.Magnification != "" {
		meta["magnification"] = *it.Magnification
	}
	if it.StripeProductID != nil {
		meta["stripeProductId"] = *it.StripeProductID
	}
	return meta
}

func description(it WireItem) string {
	var parts []string
	if it.Magnification != nil && *it.Magnification != "" {
		parts = append(parts, *it.Magnification)
	}
	if it.FrameName != nil && *it.FrameName != "" {
		parts = append(parts, *it.FrameName)
	}
	return strings.Join(parts, " / ")
}

func sessionParams(lines []*stripe.CheckoutSessionLineItemParams, urls SessionURLs, cartSession string) *stripe.CheckoutSessionParams {
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:  lines,
		SuccessURL: stripe.String(urls.SuccessURL),
		CancelURL:  stripe.String(urls.CancelURL),
	}
	if cartSession != "" {
		params.ClientReferenceID = stripe.String(cartSession)
		params.AddMetadata("cart_session", cartSession)
	}
	return params
}
