package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/loupes-storefront/pkg/logger"
)

const (
	CartSessionHeader = "X-Cart-Session"
	cartCookieMaxAge  = 30 * 24 * time.Hour
)

type CartSessionOptions struct {
	CookieName string
	Secure     bool
	MaxAge     time.Duration
}

// CartSession binds every request to an anonymous cart session. The header wins over the cookie;
// requests carrying neither (or a malformed id) get a fresh id and a cookie.
func CartSession(opts CartSessionOptions, logg *logger.Logger) func(http.Handler) http.Handler {
	name := opts.CookieName
	if name == "" {
		name = "ls_cart"
	}
	maxAge := opts.MaxAge
	if maxAge <= 0 {
		maxAge = cartCookieMaxAge
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID, ok := sessionFromRequest(r, name)
			if !ok {
				sessionID = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     name,
					Value:    sessionID,
					Path:     "/",
					MaxAge:   int(maxAge.Seconds()),
					HttpOnly: true,
					Secure:   opts.Secure,
					SameSite: http.SameSiteLaxMode,
				})
			}
			w.Header().Set(CartSessionHeader, sessionID)

			ctx := WithCartSession(r.Context(), sessionID)
			if logg != nil {
				ctx = logg.WithCartSession(ctx, sessionID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func sessionFromRequest(r *http.Request, cookieName string) (string, bool) {
	if v := strings.TrimSpace(r.Header.Get(CartSessionHeader)); v != "" {
		if id, err := uuid.Parse(v); err == nil {
			return id.String(), true
		}
	}
	if c, err := r.Cookie(cookieName); err == nil {
		if id, err := uuid.Parse(strings.TrimSpace(c.Value)); err == nil {
			return id.String(), true
		}
	}
	return "", false
}
