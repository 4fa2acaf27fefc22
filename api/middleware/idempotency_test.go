package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	pkgerrors "github.com/angelmondragon/loupes-storefront/pkg/errors"
)

type fakeStore struct {
	data map[string]string
	ttls map[string]time.Duration
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	f.data[key], _ = value.(string)
	f.ttls[key] = ttl
	return nil
}

func (f *fakeStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	return true, f.Set(ctx, key, value, ttl)
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("fake:%s:%s", scope, id)
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

func checkoutPost(key, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/sessions", strings.NewReader(body))
	req = req.WithContext(WithCartSession(req.Context(), "cart-1"))
	if key != "" {
		req.Header.Set(IdempotencyKeyHeader, key)
	}
	return req
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse error response: %v", err)
	}
	return payload.Error.Code
}

func TestIdempotencyPassesThroughWithoutKey(t *testing.T) {
	store := newFakeStore()
	calls := 0
	h := Idempotency(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, checkoutPost("", `{}`))
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201 got %d", rec.Code)
		}
	}
	if calls != 2 || len(store.data) != 0 {
		t.Fatalf("keyless requests must reach the handler every time, calls=%d stored=%d", calls, len(store.data))
	}
}

func TestIdempotencyReplaysFinishedResponse(t *testing.T) {
	store := newFakeStore()
	calls := 0
	h := Idempotency(store, 2*time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sessionId":"cs_1"}`))
	}))

	first := httptest.NewRecorder()
	h.ServeHTTP(first, checkoutPost("abc", `{"items":[]}`))
	if first.Header().Get(IdempotencyReplayedHeader) != "" {
		t.Fatalf("first response must not be flagged as replayed")
	}

	again := httptest.NewRecorder()
	h.ServeHTTP(again, checkoutPost("abc", `{"items":[]}`))
	if again.Code != http.StatusCreated {
		t.Fatalf("expected replayed 201 got %d", again.Code)
	}
	if again.Header().Get(IdempotencyReplayedHeader) != "true" {
		t.Fatalf("expected replay header")
	}
	if again.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("content type lost on replay")
	}
	if again.Body.String() != `{"sessionId":"cs_1"}` {
		t.Fatalf("unexpected replay body %q", again.Body.String())
	}
	if calls != 1 {
		t.Fatalf("handler ran %d times", calls)
	}
	if ttl := store.ttls["fake:cart-1:abc"]; ttl != 2*time.Hour {
		t.Fatalf("expected route ttl, got %v", ttl)
	}
}

func TestIdempotencyRejectsDifferentBody(t *testing.T) {
	store := newFakeStore()
	h := Idempotency(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	h.ServeHTTP(httptest.NewRecorder(), checkoutPost("xyz", `{"a":1}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, checkoutPost("xyz", `{"a":2}`))

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != string(pkgerrors.CodeIdempotency) {
		t.Fatalf("expected %s got %s", pkgerrors.CodeIdempotency, code)
	}
}

func TestIdempotencyConflictsWhileInFlight(t *testing.T) {
	store := newFakeStore()
	var inner *httptest.ResponseRecorder
	var h http.Handler
	h = Idempotency(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if inner == nil {
			inner = httptest.NewRecorder()
			h.ServeHTTP(inner, checkoutPost("dup", `{}`))
		}
		w.WriteHeader(http.StatusCreated)
	}))

	h.ServeHTTP(httptest.NewRecorder(), checkoutPost("dup", `{}`))
	if inner == nil || inner.Code != http.StatusConflict {
		t.Fatalf("expected nested retry to get 409, got %+v", inner)
	}
}

func TestIdempotencyReleasesKeyOnServerError(t *testing.T) {
	store := newFakeStore()
	status := http.StatusServiceUnavailable
	calls := 0
	h := Idempotency(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(status)
	}))

	h.ServeHTTP(httptest.NewRecorder(), checkoutPost("retry-me", `{}`))
	if len(store.data) != 0 {
		t.Fatalf("5xx must release the key, have %v", store.data)
	}

	status = http.StatusCreated
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, checkoutPost("retry-me", `{}`))
	if rec.Code != http.StatusCreated || calls != 2 {
		t.Fatalf("expected retry to reach handler, code=%d calls=%d", rec.Code, calls)
	}
}

func TestIdempotencyKeysAreScopedPerCart(t *testing.T) {
	store := newFakeStore()
	calls := 0
	h := Idempotency(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))

	for _, session := range []string{"cart-a", "cart-b"} {
		req := checkoutPost("same", `{}`)
		req = req.WithContext(WithCartSession(req.Context(), session))
		h.ServeHTTP(httptest.NewRecorder(), req)
	}
	if calls != 2 {
		t.Fatalf("carts must not share keys, handler ran %d times", calls)
	}
}

func TestIdempotencyRejectsOversizedKey(t *testing.T) {
	h := Idempotency(newFakeStore(), time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler must not run")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, checkoutPost(strings.Repeat("k", maxIdempotencyKeyLen+1), `{}`))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}
