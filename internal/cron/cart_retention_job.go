package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/loupes-storefront/pkg/logger"
)

const defaultCartRetentionDays = 30

type cartBlobPruner interface {
	DeleteIdleBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type CartRetentionJobParams struct {
	Logger    *logger.Logger
	Storage   cartBlobPruner
	Retention int
}

// NewCartRetentionJob removes durable cart blobs nobody has written to within the retention window.
func NewCartRetentionJob(params CartRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Storage == nil {
		return nil, fmt.Errorf("cart storage required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = defaultCartRetentionDays
	}
	return &cartRetentionJob{
		logg:      params.Logger,
		storage:   params.Storage,
		retention: retention,
		now:       time.Now,
	}, nil
}

type cartRetentionJob struct {
	logg      *logger.Logger
	storage   cartBlobPruner
	retention int
	now       func() time.Time
}

func (j *cartRetentionJob) Name() string { return "cart-retention" }

func (j *cartRetentionJob) Run(ctx context.Context) (int64, error) {
	cutoff := j.now().UTC().Add(-time.Duration(j.retention) * 24 * time.Hour)
	deleted, err := j.storage.DeleteIdleBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cart retention: %w", err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"retention_days": j.retention,
		"rows_deleted":   deleted,
	}), "cron.cart_retention_complete")
	return deleted, nil
}
