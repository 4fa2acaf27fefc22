package cart

import (
	"fmt"
	"net/http"
	"time"

	"github.com/angelmondragon/loupes-storefront/api/middleware"
	"github.com/angelmondragon/loupes-storefront/api/responses"
	cartsvc "github.com/angelmondragon/loupes-storefront/internal/cart"
	pkgerrors "github.com/angelmondragon/loupes-storefront/pkg/errors"
	"github.com/angelmondragon/loupes-storefront/pkg/logger"
)

const (
	CartUpdatedEvent  = "cart-updated"
	heartbeatInterval = 25 * time.Second
)

// CartEvents streams a payload-less cart-updated event whenever the session's cart changes.
// Clients re-read GET /api/v1/cart on each event.
func CartEvents(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return cartEvents(svc, logg, heartbeatInterval)
}

func cartEvents(svc cartsvc.Service, logg *logger.Logger, heartbeat time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "streaming unsupported"))
			return
		}
		signals, cancel, err := svc.Subscribe(middleware.CartSessionFromContext(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		defer cancel()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "retry: 3000\n\n")
		flusher.Flush()

		ticker := time.NewTicker(heartbeat)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case _, open := <-signals:
				if !open {
					return
				}
				if _, err := fmt.Fprintf(w, "event: %s\ndata: {}\n\n", CartUpdatedEvent); err != nil {
					return
				}
				flusher.Flush()
			case <-ticker.C:
				if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	}
}
