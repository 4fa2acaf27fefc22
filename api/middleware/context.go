package middleware

import "context"

type cartSessionKey struct{}

// WithCartSession binds the anonymous cart id to ctx.
func WithCartSession(ctx context.Context, sessionID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, cartSessionKey{}, sessionID)
}

// CartSessionFromContext returns the cart id bound by CartSession, or "" outside a session route.
func CartSessionFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(cartSessionKey{}).(string)
	return id
}
