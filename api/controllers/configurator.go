package controllers

import (
	"net/http"

	"github.com/angelmondragon/loupes-storefront/api/responses"
	"github.com/angelmondragon/loupes-storefront/api/validators"
	"github.com/angelmondragon/loupes-storefront/internal/cart"
	"github.com/angelmondragon/loupes-storefront/internal/catalog"
	"github.com/angelmondragon/loupes-storefront/internal/configurator"
	pkgerrors "github.com/angelmondragon/loupes-storefront/pkg/errors"
	"github.com/angelmondragon/loupes-storefront/pkg/logger"
)

type addToCartResponse struct {
	Item     cart.LineItem     `json:"item"`
	Redirect string            `json:"redirect"`
	View     configurator.View `json:"view"`
}

// mountConfigurator builds the product page configurator for the request's cart session and
// restores its selection from the cart.
func mountConfigurator(r *http.Request, cat *catalog.Catalog, carts cart.Service) (*configurator.Configurator, error) {
	if cat == nil || carts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "configurator unavailable")
	}
	slug, err := validators.PathParam(r, "slug", 64)
	if err != nil {
		return nil, err
	}
	sessionID, err := cartSession(r)
	if err != nil {
		return nil, err
	}
	store, err := carts.ForSession(sessionID)
	if err != nil {
		return nil, err
	}
	cfg, err := configurator.New(cat, slug, store)
	if err != nil {
		return nil, err
	}
	cfg.Mount(r.Context())
	return cfg, nil
}

func ConfigurationFetch(cat *catalog.Catalog, carts cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg, err := mountConfigurator(r, cat, carts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cfg.View())
	}
}

// ConfigurationUpdate applies selection changes. Products already in the cart are updated in
// place and the cart entry is the starting point. Otherwise the server keeps nothing between
// requests: changes start from the product defaults and the resulting selection is only echoed
// back, so the page must send its full held selection (frameId with colorId, magnification,
// quantity) on every PATCH.
func ConfigurationUpdate(cat *catalog.Catalog, carts cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg, err := mountConfigurator(r, cat, carts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var changes configurator.Changes
		if err := validators.DecodeJSONBody(r, &changes); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := cfg.Apply(r.Context(), changes); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cfg.View())
	}
}

// ConfigurationAddToCart upserts the selection, optionally adjusted by the request body.
func ConfigurationAddToCart(cat *catalog.Catalog, carts cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg, err := mountConfigurator(r, cat, carts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if r.ContentLength != 0 {
			var changes configurator.Changes
			if err := validators.DecodeJSONBody(r, &changes); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			if err := cfg.Apply(r.Context(), changes); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}
		item, redirect := cfg.AddToCart(r.Context())
		responses.WriteSuccessStatus(w, http.StatusCreated, addToCartResponse{
			Item:     item,
			Redirect: redirect,
			View:     cfg.View(),
		})
	}
}
