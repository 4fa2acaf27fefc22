package controllers

import (
	"net/http"

	"github.com/angelmondragon/loupes-storefront/api/responses"
	"github.com/angelmondragon/loupes-storefront/api/validators"
	"github.com/angelmondragon/loupes-storefront/internal/catalog"
	pkgerrors "github.com/angelmondragon/loupes-storefront/pkg/errors"
	"github.com/angelmondragon/loupes-storefront/pkg/logger"
)

type productSummary struct {
	catalog.Product
	StripeProductID *string `json:"stripeProductId"`
}

type productDetail struct {
	catalog.Product
	FrameOptions    []catalog.Frame `json:"frameOptions"`
	StripeProductID *string         `json:"stripeProductId"`
}

func defaultMagnification(p catalog.Product) *string {
	if p.DefaultMagnification == "" {
		return nil
	}
	m := p.DefaultMagnification
	return &m
}

// ProductsList returns every product line with the Stripe id of its default configuration.
func ProductsList(cat *catalog.Catalog, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cat == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog unavailable"))
			return
		}
		products := cat.Products()
		out := make([]productSummary, 0, len(products))
		for _, p := range products {
			out = append(out, productSummary{
				Product:         p,
				StripeProductID: cat.StripeProductID(p.Slug, defaultMagnification(p)),
			})
		}
		responses.WriteSuccess(w, out)
	}
}

func ProductDetail(cat *catalog.Catalog, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cat == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog unavailable"))
			return
		}
		slug, err := validators.PathParam(r, "slug", 64)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		p, ok := cat.Product(slug)
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "product not found"))
			return
		}
		responses.WriteSuccess(w, productDetail{
			Product:         p,
			FrameOptions:    cat.Frames(p),
			StripeProductID: cat.StripeProductID(p.Slug, defaultMagnification(p)),
		})
	}
}

// StripeProductID resolves the remote product id of a configuration; the id is null when
// the pair is unmapped or still a placeholder.
func StripeProductID(cat *catalog.Catalog, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cat == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog unavailable"))
			return
		}
		slug, err := validators.RequiredQuery(r, "slug", 64)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		mag := validators.OptionalQuery(r, "magnification", 16)
		responses.WriteSuccess(w, map[string]any{
			"slug":            slug,
			"magnification":   mag,
			"stripeProductId": cat.StripeProductID(slug, mag),
		})
	}
}
