package cart

import (
	"net/http"

	"github.com/angelmondragon/loupes-storefront/api/middleware"
	"github.com/angelmondragon/loupes-storefront/api/responses"
	"github.com/angelmondragon/loupes-storefront/api/validators"
	cartsvc "github.com/angelmondragon/loupes-storefront/internal/cart"
	pkgerrors "github.com/angelmondragon/loupes-storefront/pkg/errors"
	"github.com/angelmondragon/loupes-storefront/pkg/logger"
)

func storeFor(r *http.Request, svc cartsvc.Service) (*cartsvc.Store, error) {
	if svc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable")
	}
	sessionID := middleware.CartSessionFromContext(r.Context())
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart session missing")
	}
	return svc.ForSession(sessionID)
}

// CartFetch returns the cart with its count and subtotal.
func CartFetch(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := storeFor(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(store.Items(r.Context())))
	}
}

func CartCount(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := storeFor(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, countResponse{Count: store.Count(r.Context())})
	}
}

// CartAddItem merges a physical item into its product's entry or appends an add-on.
func CartAddItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := storeFor(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var item cartsvc.LineItem
		if err := validators.DecodeJSONBody(r, &item); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		store.Add(r.Context(), item)
		responses.WriteSuccessStatus(w, http.StatusCreated, newCartResponse(store.Items(r.Context())))
	}
}

// CartUpdateQuantity sets the quantity of a product's entry; values below one become one.
func CartUpdateQuantity(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := storeFor(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		slug, err := validators.PathParam(r, "slug", 64)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload updateQuantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		store.UpdateQuantity(r.Context(), slug, payload.Quantity)
		responses.WriteSuccess(w, newCartResponse(store.Items(r.Context())))
	}
}

// CartRemoveItem removes the entry at a position. Out-of-range positions leave the cart as is.
func CartRemoveItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := storeFor(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		index, err := validators.PathInt(r, "index")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		store.Remove(r.Context(), index)
		responses.WriteSuccess(w, newCartResponse(store.Items(r.Context())))
	}
}

func CartClear(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := storeFor(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		store.Clear(r.Context())
		responses.WriteSuccess(w, newCartResponse(store.Items(r.Context())))
	}
}
