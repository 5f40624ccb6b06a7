package mapper

import (
	"time"

	"github.com/vibast-solutions/ms-go-hotel-billing/app/dto"
	"github.com/vibast-solutions/ms-go-hotel-billing/app/entity"
	"github.com/vibast-solutions/ms-go-hotel-billing/app/service"
)

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatOptionalTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	value := formatTime(*t)
	return &value
}

func PlanToDTO(item *entity.SubscriptionPlan) dto.PlanResponse {
	if item == nil {
		return dto.PlanResponse{}
	}

	features := item.Features
	if features == nil {
		features = []string{}
	}

	return dto.PlanResponse{
		ID:          item.ID,
		Name:        item.Name,
		Description: item.Description,
		Type:        item.Type,
		Price:       item.Price,
		Duration:    item.Duration,
		Features:    features,
		IsActive:    item.IsActive,
		CreatedAt:   formatTime(item.CreatedAt),
		UpdatedAt:   formatTime(item.UpdatedAt),
	}
}

func PlansToDTO(items []*entity.SubscriptionPlan) []dto.PlanResponse {
	result := make([]dto.PlanResponse, 0, len(items))
	for _, item := range items {
		result = append(result, PlanToDTO(item))
	}
	return result
}

func HistoryToDTO(item *entity.SubscriptionHistory) dto.HistoryResponse {
	if item == nil {
		return dto.HistoryResponse{}
	}

	return dto.HistoryResponse{
		ID:             item.ID,
		UserID:         item.UserID,
		SubscriptionID: item.SubscriptionID,
		SubscribedAt:   formatTime(item.SubscribedAt),
		ValidFrom:      formatTime(item.ValidFrom),
		ValidUntil:     formatTime(item.ValidUntil),
		IsActive:       item.IsActive,
		PaymentAmount:  item.PaymentAmount,
	}
}

func HistoriesToDTO(items []*entity.SubscriptionHistory) []dto.HistoryResponse {
	result := make([]dto.HistoryResponse, 0, len(items))
	for _, item := range items {
		result = append(result, HistoryToDTO(item))
	}
	return result
}

func PointerToDTO(p entity.SubscriptionPointer) dto.SubscriptionPointerResponse {
	return dto.SubscriptionPointerResponse{
		SubscriptionID: p.SubscriptionID,
		ValidFrom:      formatOptionalTime(p.ValidFrom),
		ValidUntil:     formatOptionalTime(p.ValidUntil),
	}
}

func SubscribeResultToDTO(result *service.SubscribeResult) dto.SubscribeResponse {
	return dto.SubscribeResponse{
		Message:      result.Message,
		Subscription: PointerToDTO(result.Pointer),
		Plan:         PlanToDTO(result.Plan),
		History:      HistoryToDTO(result.History),
	}
}

func CancelResultToDTO(result *service.CancelResult) dto.CancelResponse {
	return dto.CancelResponse{
		Message:      result.Message,
		RefundAmount: result.RefundAmount,
	}
}

func ActivePlanResultToDTO(result *service.ActivePlanResult) dto.ActivePlanResponse {
	response := dto.ActivePlanResponse{Message: result.Message}
	if result.Plan != nil {
		plan := PlanToDTO(result.Plan)
		response.Plan = &plan
	}
	if result.History != nil {
		history := HistoryToDTO(result.History)
		response.History = &history
	}
	return response
}
