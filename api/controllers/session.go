package controllers

import (
	"net/http"

	"github.com/angelmondragon/loupes-storefront/api/middleware"
	pkgerrors "github.com/angelmondragon/loupes-storefront/pkg/errors"
)

func cartSession(r *http.Request) (string, error) {
	id := middleware.CartSessionFromContext(r.Context())
	if id == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "cart session missing")
	}
	return id, nil
}
