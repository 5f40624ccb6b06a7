package controller

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-hotel-billing/app/dto"
	"github.com/vibast-solutions/ms-go-hotel-billing/app/entity"
	"github.com/vibast-solutions/ms-go-hotel-billing/app/factory"
	"github.com/vibast-solutions/ms-go-hotel-billing/app/mapper"
	"github.com/vibast-solutions/ms-go-hotel-billing/app/payment"
	"github.com/vibast-solutions/ms-go-hotel-billing/app/service"
	"github.com/vibast-solutions/ms-go-hotel-billing/app/types"
)

type subscriptionService interface {
	Subscribe(ctx context.Context, in service.SubscribeInput) (*service.SubscribeResult, error)
	CancelSubscription(ctx context.Context, userID string) (*service.CancelResult, error)
	GetUserActivePlan(ctx context.Context, userID string) (*service.ActivePlanResult, error)
	ListHistory(ctx context.Context, userID string) ([]*entity.SubscriptionHistory, error)
}

type SubscriptionController struct {
	subscriptionService subscriptionService
	logger              logrus.FieldLogger
}

func NewSubscriptionController(subscriptionService subscriptionService) *SubscriptionController {
	return &SubscriptionController{
		subscriptionService: subscriptionService,
		logger:              factory.NewModuleLogger("subscriptions-controller"),
	}
}

func (c *SubscriptionController) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, &dto.HealthResponse{Status: "ok"})
}

func (c *SubscriptionController) Subscribe(ctx echo.Context) error {
	req, err := types.NewSubscribeRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	method, err := payment.ParseMethod(req.PaymentMethod)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	result, err := c.subscriptionService.Subscribe(ctx.Request().Context(), service.SubscribeInput{
		UserID:        req.UserID,
		PlanID:        req.PlanID,
		PaymentAmount: req.PaymentAmount,
		PaymentMethod: method,
	})
	if err != nil {
		return writeServiceError(ctx, c.logger, err, "Subscribe")
	}

	return ctx.JSON(http.StatusCreated, mapper.SubscribeResultToDTO(result))
}

func (c *SubscriptionController) CancelSubscription(ctx echo.Context) error {
	req, err := types.NewUserRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	result, err := c.subscriptionService.CancelSubscription(ctx.Request().Context(), req.UserID)
	if err != nil {
		return writeServiceError(ctx, c.logger, err, "Cancel subscription")
	}

	return ctx.JSON(http.StatusOK, mapper.CancelResultToDTO(result))
}

func (c *SubscriptionController) GetUserActivePlan(ctx echo.Context) error {
	req, err := types.NewUserRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	result, err := c.subscriptionService.GetUserActivePlan(ctx.Request().Context(), req.UserID)
	if err != nil {
		return writeServiceError(ctx, c.logger, err, "Get active plan")
	}

	return ctx.JSON(http.StatusOK, mapper.ActivePlanResultToDTO(result))
}

func (c *SubscriptionController) ListHistory(ctx echo.Context) error {
	req, err := types.NewUserRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	items, err := c.subscriptionService.ListHistory(ctx.Request().Context(), req.UserID)
	if err != nil {
		return writeServiceError(ctx, c.logger, err, "List history")
	}

	return ctx.JSON(http.StatusOK, &dto.ListHistoryResponse{History: mapper.HistoriesToDTO(items)})
}
