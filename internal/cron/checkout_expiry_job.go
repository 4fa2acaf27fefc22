package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/loupes-storefront/pkg/logger"
)

// Hosted checkout sessions expire after 24h unless told otherwise.
const defaultCheckoutExpiry = 24 * time.Hour

type checkoutExpirer interface {
	ExpireOpenBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type CheckoutExpiryJobParams struct {
	Logger *logger.Logger
	Repo   checkoutExpirer
	After  time.Duration
}

// NewCheckoutExpiryJob closes out session records whose expiry webhook never arrived.
func NewCheckoutExpiryJob(params CheckoutExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("checkout repository required")
	}
	after := params.After
	if after <= 0 {
		after = defaultCheckoutExpiry
	}
	return &checkoutExpiryJob{
		logg:  params.Logger,
		repo:  params.Repo,
		after: after,
		now:   time.Now,
	}, nil
}

type checkoutExpiryJob struct {
	logg  *logger.Logger
	repo  checkoutExpirer
	after time.Duration
	now   func() time.Time
}

func (j *checkoutExpiryJob) Name() string { return "checkout-session-expiry" }

func (j *checkoutExpiryJob) Run(ctx context.Context) (int64, error) {
	cutoff := j.now().UTC().Add(-j.after)
	expired, err := j.repo.ExpireOpenBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("checkout session expiry: %w", err)
	}
	if expired > 0 {
		j.logg.Info(j.logg.WithFields(ctx, map[string]any{
			"cutoff":       cutoff,
			"rows_expired": expired,
		}), "cron.checkout_sessions_expired")
	}
	return expired, nil
}
