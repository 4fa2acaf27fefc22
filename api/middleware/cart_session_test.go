package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

func serveWithSession(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, string) {
	t.Helper()
	var seen string
	handler := CartSession(CartSessionOptions{CookieName: "ls_cart", Secure: true}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = CartSessionFromContext(r.Context())
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, seen
}

func TestCartSessionIssuesCookie(t *testing.T) {
	rec, seen := serveWithSession(t, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))

	if _, err := uuid.Parse(seen); err != nil {
		t.Fatalf("expected generated uuid, got %q", seen)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected one cookie, got %d", len(cookies))
	}
	c := cookies[0]
	if c.Name != "ls_cart" || c.Value != seen || !c.HttpOnly || !c.Secure {
		t.Fatalf("unexpected cookie %+v", c)
	}
	if rec.Header().Get(CartSessionHeader) != seen {
		t.Fatalf("expected session echoed in header")
	}
}

func TestCartSessionReusesCookie(t *testing.T) {
	id := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.AddCookie(&http.Cookie{Name: "ls_cart", Value: id})

	rec, seen := serveWithSession(t, req)
	if seen != id {
		t.Fatalf("expected %s, got %s", id, seen)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Fatalf("existing session must not be reissued")
	}
}

func TestCartSessionHeaderWins(t *testing.T) {
	headerID := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.AddCookie(&http.Cookie{Name: "ls_cart", Value: uuid.NewString()})
	req.Header.Set(CartSessionHeader, headerID)

	_, seen := serveWithSession(t, req)
	if seen != headerID {
		t.Fatalf("expected header session, got %s", seen)
	}
}

func TestCartSessionRejectsMalformedID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.AddCookie(&http.Cookie{Name: "ls_cart", Value: "../../etc"})

	rec, seen := serveWithSession(t, req)
	if seen == "../../etc" {
		t.Fatal("malformed session id must be replaced")
	}
	if len(rec.Result().Cookies()) != 1 {
		t.Fatal("expected a replacement cookie")
	}
}
