package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/loupes-storefront/pkg/config"
	"github.com/angelmondragon/loupes-storefront/pkg/logger"
)

// Mode is the Stripe account mode a secret key belongs to.
type Mode string

const (
	ModeTest Mode = "test"
	ModeLive Mode = "live"
)

// ErrAPIKeyRequired is returned when no secret key is configured.
var ErrAPIKeyRequired = errors.New("stripe api key is required")

// Client holds the Stripe API client and the webhook signing secret for one account mode.
type Client struct {
	api           *stripe.Client
	mode          Mode
	signingSecret string
}

// NewClient builds the Stripe client. The key's mode must match LOUPES_STRIPE_ENV so a live key
// never ends up behind a test storefront and vice versa. The signing secret is optional.
func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	want, err := parseMode(cfg.Environment())
	if err != nil {
		return nil, err
	}
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, ErrAPIKeyRequired
	}
	got, ok := keyMode(key)
	if !ok {
		return nil, fmt.Errorf("stripe api key must be a secret (sk_) or restricted (rk_) key")
	}
	if got != want {
		return nil, fmt.Errorf("stripe environment %q was given a %s-mode key", want, got)
	}

	stripe.SetAppInfo(&stripe.AppInfo{Name: "loupes-storefront"})
	// checkout/session helpers read the package-level key.
	stripe.Key = key
	c := &Client{
		api:           stripe.NewClient(key),
		mode:          want,
		signingSecret: strings.TrimSpace(cfg.Secret),
	}

	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"stripe_mode":    string(c.mode),
			"webhook_secret": c.signingSecret != "",
		}), "stripe client initialized")
	}
	return c, nil
}

// API returns the underlying Stripe API client.
func (c *Client) API() *stripe.Client {
	if c == nil {
		return nil
	}
	return c.api
}

func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return string(c.mode)
}

// SigningSecret returns the webhook signing secret, empty when webhooks are not configured.
func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.signingSecret
}

func parseMode(env string) (Mode, error) {
	switch m := Mode(env); m {
	case ModeTest, ModeLive:
		return m, nil
	}
	return "", fmt.Errorf("stripe environment must be %q or %q, got %q", ModeTest, ModeLive, env)
}

// keyMode reads the mode from keys shaped sk_test_..., rk_live_... and so on.
func keyMode(key string) (Mode, bool) {
	parts := strings.SplitN(key, "_", 3)
	if len(parts) < 3 || (parts[0] != "sk" && parts[0] != "rk") {
		return "", false
	}
	switch m := Mode(parts[1]); m {
	case ModeTest, ModeLive:
		return m, true
	}
	return "", false
}
