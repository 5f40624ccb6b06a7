package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	PlanTypeBasic  = "basic"
	PlanTypeMedium = "medium"
	PlanTypeVIP    = "vip"
)

type SubscriptionPlan struct {
	ID          uint64
	Name        string
	Description string
	Type        string
	Price       decimal.Decimal
	Duration    int32
	Features    []string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func IsValidPlanType(planType string) bool {
	switch planType {
	case PlanTypeBasic, PlanTypeMedium, PlanTypeVIP:
		return true
	default:
		return false
	}
}
