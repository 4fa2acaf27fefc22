package cart

type updateQuantityRequest struct {
	Quantity int `json:"quantity"`
}
