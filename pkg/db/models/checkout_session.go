package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Checkout session statuses mirrored from Stripe.
const (
	CheckoutStatusOpen     = "open"
	CheckoutStatusComplete = "complete"
	CheckoutStatusExpired  = "expired"
)

// CheckoutSession records each payment handoff to Stripe and its outcome.
type CheckoutSession struct {
	ID               uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	StripeSessionID  string     `gorm:"column:stripe_session_id;not null;uniqueIndex"`
	CartSession      string     `gorm:"column:cart_session;index"`
	Status           string     `gorm:"column:status;not null;default:'open'"`
	PaymentStatus    string     `gorm:"column:payment_status"`
	CustomerEmail    *string    `gorm:"column:customer_email"`
	AmountTotalCents int64      `gorm:"column:amount_total_cents;not null;default:0"`
	Currency         string     `gorm:"column:currency;not null;default:'usd'"`
	LineItemCount    int        `gorm:"column:line_item_count;not null;default:0"`
	CompletedAt      *time.Time `gorm:"column:completed_at"`
	CreatedAt        time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (CheckoutSession) TableName() string { return "checkout_sessions" }

// BeforeCreate assigns the primary key so the model works on sqlite as well as postgres.
func (s *CheckoutSession) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
