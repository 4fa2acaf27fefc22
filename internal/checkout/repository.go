package checkout

import (
	"context"
	"time"

	"github.com/angelmondragon/loupes-storefront/internal/repo"
	"github.com/angelmondragon/loupes-storefront/pkg/db/models"
	"gorm.io/gorm"
)

// Repository persists the audit trail of checkout sessions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, record *models.CheckoutSession) error
	FindByStripeID(ctx context.Context, stripeSessionID string) (*models.CheckoutSession, error)
	UpdateOutcome(ctx context.Context, stripeSessionID string, outcome Outcome) error
	ExpireOpenBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Outcome is what the payment provider reported for a session.
type Outcome struct {
	Status           string
	PaymentStatus    string
	CustomerEmail    *string
	AmountTotalCents int64
	CompletedAt      *time.Time
}

type repository struct {
	repo.Base
}

// NewRepository builds a checkout repository backed by the provided DB.
func NewRepository(db *gorm.DB) Repository {
	if db == nil {
		return nil
	}
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: r.Base.WithTx(tx)}
}

func (r *repository) Create(ctx context.Context, record *models.CheckoutSession) error {
	return r.DB(ctx).Create(record).Error
}

// FindByStripeID returns nil without error when no record exists.
func (r *repository) FindByStripeID(ctx context.Context, stripeSessionID string) (*models.CheckoutSession, error) {
	var record models.CheckoutSession
	err := r.DB(ctx).
		Where("stripe_session_id = ?", stripeSessionID).
		Limit(1).
		Find(&record).Error
	if err != nil {
		return nil, err
	}
	if record.StripeSessionID == "" {
		return nil, nil
	}
	return &record, nil
}

func (r *repository) UpdateOutcome(ctx context.Context, stripeSessionID string, outcome Outcome) error {
	updates := map[string]any{
		"status":     outcome.Status,
		"updated_at": time.Now().UTC(),
	}
	if outcome.PaymentStatus != "" {
		updates["payment_status"] = outcome.PaymentStatus
	}
	if outcome.CustomerEmail != nil {
		updates["customer_email"] = *outcome.CustomerEmail
	}
	if outcome.AmountTotalCents > 0 {
		updates["amount_total_cents"] = outcome.AmountTotalCents
	}
	if outcome.CompletedAt != nil {
		updates["completed_at"] = outcome.CompletedAt.UTC()
	}
	res := r.DB(ctx).
		Model(&models.CheckoutSession{}).
		Where("stripe_session_id = ?", stripeSessionID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ExpireOpenBefore marks sessions still open since before cutoff as expired.
func (r *repository) ExpireOpenBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.DB(ctx).
		Model(&models.CheckoutSession{}).
		Where("status = ? AND created_at < ?", models.CheckoutStatusOpen, cutoff.UTC()).
		Updates(map[string]any{
			"status":     models.CheckoutStatusExpired,
			"updated_at": time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}
