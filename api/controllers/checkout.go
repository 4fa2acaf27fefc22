package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/loupes-storefront/api/responses"
	"github.com/angelmondragon/loupes-storefront/api/validators"
	"github.com/angelmondragon/loupes-storefront/internal/cart"
	"github.com/angelmondragon/loupes-storefront/internal/checkout"
	pkgerrors "github.com/angelmondragon/loupes-storefront/pkg/errors"
	"github.com/angelmondragon/loupes-storefront/pkg/logger"
)

// CheckoutService is the checkout surface used by the HTTP layer.
type CheckoutService interface {
	SaveFlags(ctx context.Context, sessionID string, flags checkout.AddonFlags) error
	CheckoutCart(ctx context.Context, sessionID string) (*checkout.Session, error)
	CreateSession(ctx context.Context, input checkout.CreateSessionInput) (*checkout.Session, error)
	SessionStatus(ctx context.Context, id string) (*checkout.SessionStatus, error)
}

type addonFlagsRequest struct {
	Prescription bool `json:"prescription"`
	Warranty     bool `json:"warranty"`
}

type createSessionRequest struct {
	Items []cart.LineItem `json:"items" validate:"dive"`
}

// CheckoutAddons stores the add-on choices made on the cart page for the next checkout.
func CheckoutAddons(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		sessionID, err := cartSession(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload addonFlagsRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		flags := checkout.AddonFlags{Prescription: payload.Prescription, Warranty: payload.Warranty}
		if err := svc.SaveFlags(r.Context(), sessionID, flags); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, flags)
	}
}

// CheckoutCart starts payment for the session's cart and returns where to redirect.
func CheckoutCart(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		sessionID, err := cartSession(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		session, err := svc.CheckoutCart(r.Context(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, session)
	}
}

// CheckoutCreateSession is the payment-session API: the caller posts the line items itself.
func CheckoutCreateSession(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		var payload createSessionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sessionID, _ := cartSession(r)
		session, err := svc.CreateSession(r.Context(), checkout.CreateSessionInput{
			Items:       payload.Items,
			CartSession: sessionID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, session)
	}
}

func CheckoutSessionStatus(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		id, err := validators.PathParam(r, "id", 255)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := svc.SessionStatus(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, status)
	}
}
