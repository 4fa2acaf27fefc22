package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/loupes-storefront/api/middleware"
	"github.com/angelmondragon/loupes-storefront/internal/cart"
	"github.com/angelmondragon/loupes-storefront/internal/catalog"
)

const testSession = "6b1f4e0c-2f43-4a7e-9d2a-8c0b5f6e7d11"

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	return cat
}

func testCarts(t *testing.T, cat *catalog.Catalog) cart.Service {
	t.Helper()
	svc, err := cart.NewService(cart.ServiceConfig{
		Storage:  cart.NewMemoryStorage(),
		Notifier: cart.NewNotifier(nil),
		Stripe:   cat,
		Pricing:  cat,
	})
	if err != nil {
		t.Fatalf("cart service: %v", err)
	}
	return svc
}

func withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(middleware.WithCartSession(r.Context(), testSession)))
	})
}

func serve(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body == "" {
		req.ContentLength = 0
	}
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	return resp
}

func decodeData(t *testing.T, resp *httptest.ResponseRecorder, dest any) {
	t.Helper()
	envelope := struct {
		Data any `json:"data"`
	}{Data: dest}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v (%s)", err, resp.Body.String())
	}
}

type errorBody struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	return body
}

func newRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(withSession)
	return r
}
