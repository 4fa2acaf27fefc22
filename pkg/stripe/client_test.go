package stripe

import (
	"context"
	"errors"
	"testing"

	"github.com/angelmondragon/loupes-storefront/pkg/config"
)

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(context.Background(), config.StripeConfig{Env: "test"}, nil)
	if !errors.Is(err, ErrAPIKeyRequired) {
		t.Fatalf("expected ErrAPIKeyRequired, got %v", err)
	}
}

func TestNewClientValidatesEnvKeyPairing(t *testing.T) {
	cases := []struct {
		name    string
		cfg     config.StripeConfig
		wantErr bool
	}{
		{name: "test key", cfg: config.StripeConfig{APIKey: "sk_test_123", Env: "test"}},
		{name: "restricted live key", cfg: config.StripeConfig{APIKey: "rk_live_123", Env: "LIVE"}},
		{name: "live key in test", cfg: config.StripeConfig{APIKey: "sk_live_123", Env: "test"}, wantErr: true},
		{name: "unknown env", cfg: config.StripeConfig{APIKey: "sk_test_123", Env: "staging"}, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client, err := NewClient(context.Background(), tc.cfg, nil)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if client.API() == nil {
				t.Fatal("expected api client")
			}
		})
	}
}

func TestSigningSecretOptional(t *testing.T) {
	client, err := NewClient(context.Background(), config.StripeConfig{APIKey: "sk_test_abc"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.SigningSecret() != "" || client.Environment() != "test" {
		t.Fatalf("unexpected client state %q %q", client.SigningSecret(), client.Environment())
	}
}

func TestCheckoutSessionsRequireClient(t *testing.T) {
	var sessions *CheckoutSessions
	if _, err := sessions.Get(context.Background(), "cs_test"); err == nil {
		t.Fatal("expected error without client")
	}
	if _, err := NewCheckoutSessions(nil).Create(context.Background(), nil); err == nil {
		t.Fatal("expected error without client")
	}
}

func TestKeyMode(t *testing.T) {
	cases := map[string]Mode{
		"sk_test_abc": ModeTest,
		"rk_live_abc": ModeLive,
		"pk_test_abc": "",
		"sk_test":     "",
		"sk_prod_abc": "",
	}
	for key, want := range cases {
		got, ok := keyMode(key)
		if got != want || ok != (want != "") {
			t.Errorf("keyMode(%q) = %q, %v", key, got, ok)
		}
	}
}
