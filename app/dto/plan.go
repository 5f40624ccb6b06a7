package dto

import "github.com/shopspring/decimal"

type PlanResponse struct {
	ID          uint64          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Type        string          `json:"type"`
	Price       decimal.Decimal `json:"price"`
	Duration    int32           `json:"duration"`
	Features    []string        `json:"features"`
	IsActive    bool            `json:"is_active"`
	CreatedAt   string          `json:"created_at"`
	UpdatedAt   string          `json:"updated_at"`
}

type PlanEnvelopeResponse struct {
	Plan PlanResponse `json:"plan"`
}

type ListPlansResponse struct {
	Plans []PlanResponse `json:"plans"`
}

type MessageWithPlanResponse struct {
	Message string       `json:"message"`
	Plan    PlanResponse `json:"plan"`
}
