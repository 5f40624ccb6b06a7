package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// SubscriptionHistory is one period during which a user held a plan.
// At most one row per user carries IsActive=true.
type SubscriptionHistory struct {
	ID             uint64
	UserID         string
	SubscriptionID uint64
	SubscribedAt   time.Time
	ValidFrom      time.Time
	ValidUntil     time.Time
	IsActive       bool
	PaymentAmount  decimal.Decimal
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsCurrent reports whether the row grants entitlement at the given instant.
func (h *SubscriptionHistory) IsCurrent(at time.Time) bool {
	if h == nil || !h.IsActive {
		return false
	}
	return !at.Before(h.ValidFrom) && !at.After(h.ValidUntil)
}

type ActiveSubscription struct {
	History *SubscriptionHistory
	Plan    *SubscriptionPlan
}
