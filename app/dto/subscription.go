package dto

import "github.com/shopspring/decimal"

type HistoryResponse struct {
	ID             uint64          `json:"id"`
	UserID         string          `json:"user_id"`
	SubscriptionID uint64          `json:"subscription_id"`
	SubscribedAt   string          `json:"subscribed_at"`
	ValidFrom      string          `json:"valid_from"`
	ValidUntil     string          `json:"valid_until"`
	IsActive       bool            `json:"is_active"`
	PaymentAmount  decimal.Decimal `json:"payment_amount"`
}

type SubscriptionPointerResponse struct {
	SubscriptionID *uint64 `json:"subscription_id"`
	ValidFrom      *string `json:"valid_from"`
	ValidUntil     *string `json:"valid_until"`
}

type SubscribeResponse struct {
	Message      string                      `json:"message"`
	Subscription SubscriptionPointerResponse `json:"subscription"`
	Plan         PlanResponse                `json:"plan"`
	History      HistoryResponse             `json:"history"`
}

type CancelResponse struct {
	Message      string          `json:"message"`
	RefundAmount decimal.Decimal `json:"refund_amount"`
}

type ActivePlanResponse struct {
	Message string           `json:"message"`
	Plan    *PlanResponse    `json:"plan"`
	History *HistoryResponse `json:"history,omitempty"`
}

type ListHistoryResponse struct {
	History []HistoryResponse `json:"history"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
