package cart

import cartsvc "github.com/angelmondragon/loupes-storefront/internal/cart"

type cartResponse struct {
	Items    []cartsvc.LineItem `json:"items"`
	Count    int                `json:"count"`
	Subtotal string             `json:"subtotal"`
}

func newCartResponse(items []cartsvc.LineItem) cartResponse {
	snap := cartsvc.NewSnapshot(items)
	return cartResponse{
		Items:    snap.Items,
		Count:    snap.Count,
		Subtotal: snap.Subtotal.StringFixed(2),
	}
}

type countResponse struct {
	Count int `json:"count"`
}
