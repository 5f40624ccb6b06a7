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
	"github.com/vibast-solutions/ms-go-hotel-billing/app/service"
	"github.com/vibast-solutions/ms-go-hotel-billing/app/types"
)

type planService interface {
	CreatePlan(ctx context.Context, in service.CreatePlanInput) (*entity.SubscriptionPlan, error)
	UpdatePlan(ctx context.Context, id uint64, in service.UpdatePlanInput) (*entity.SubscriptionPlan, error)
	BlockPlan(ctx context.Context, id uint64) (*entity.SubscriptionPlan, error)
	UnblockPlan(ctx context.Context, id uint64) (*entity.SubscriptionPlan, error)
	GetPlan(ctx context.Context, id uint64) (*entity.SubscriptionPlan, error)
	ListActivePlans(ctx context.Context) ([]*entity.SubscriptionPlan, error)
	ListPlans(ctx context.Context) ([]*entity.SubscriptionPlan, error)
}

type PlanController struct {
	planService planService
	logger      logrus.FieldLogger
}

func NewPlanController(planService planService) *PlanController {
	return &PlanController{
		planService: planService,
		logger:      factory.NewModuleLogger("plans-controller"),
	}
}

func (c *PlanController) ListPlans(ctx echo.Context) error {
	items, err := c.planService.ListPlans(ctx.Request().Context())
	if err != nil {
		return writeServiceError(ctx, c.logger, err, "List plans")
	}

	return ctx.JSON(http.StatusOK, &dto.ListPlansResponse{Plans: mapper.PlansToDTO(items)})
}

func (c *PlanController) ListActivePlans(ctx echo.Context) error {
	items, err := c.planService.ListActivePlans(ctx.Request().Context())
	if err != nil {
		return writeServiceError(ctx, c.logger, err, "List active plans")
	}

	return ctx.JSON(http.StatusOK, &dto.ListPlansResponse{Plans: mapper.PlansToDTO(items)})
}

func (c *PlanController) GetPlan(ctx echo.Context) error {
	req, err := types.NewPlanIDRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	plan, err := c.planService.GetPlan(ctx.Request().Context(), req.ID)
	if err != nil {
		return writeServiceError(ctx, c.logger, err, "Get plan")
	}

	return ctx.JSON(http.StatusOK, &dto.PlanEnvelopeResponse{Plan: mapper.PlanToDTO(plan)})
}

func (c *PlanController) CreatePlan(ctx echo.Context) error {
	req, err := types.NewCreatePlanRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	plan, err := c.planService.CreatePlan(ctx.Request().Context(), service.CreatePlanInput{
		Name:        req.Name,
		Description: req.Description,
		Type:        req.Type,
		Price:       req.Price,
		Duration:    req.Duration,
		Features:    req.Features,
	})
	if err != nil {
		return writeServiceError(ctx, c.logger, err, "Create plan")
	}

	return ctx.JSON(http.StatusCreated, &dto.PlanEnvelopeResponse{Plan: mapper.PlanToDTO(plan)})
}

func (c *PlanController) UpdatePlan(ctx echo.Context) error {
	req, err := types.NewUpdatePlanRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	plan, err := c.planService.UpdatePlan(ctx.Request().Context(), req.ID, service.UpdatePlanInput{
		Name:        req.Name,
		Description: req.Description,
		Type:        req.Type,
		Price:       req.Price,
		Duration:    req.Duration,
		Features:    req.Features,
	})
	if err != nil {
		return writeServiceError(ctx, c.logger, err, "Update plan")
	}

	return ctx.JSON(http.StatusOK, &dto.PlanEnvelopeResponse{Plan: mapper.PlanToDTO(plan)})
}

func (c *PlanController) BlockPlan(ctx echo.Context) error {
	req, err := types.NewPlanIDRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	plan, err := c.planService.BlockPlan(ctx.Request().Context(), req.ID)
	if err != nil {
		return writeServiceError(ctx, c.logger, err, "Block plan")
	}

	return ctx.JSON(http.StatusOK, &dto.MessageWithPlanResponse{
		Message: "Plan blocked successfully",
		Plan:    mapper.PlanToDTO(plan),
	})
}

func (c *PlanController) UnblockPlan(ctx echo.Context) error {
	req, err := types.NewPlanIDRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	plan, err := c.planService.UnblockPlan(ctx.Request().Context(), req.ID)
	if err != nil {
		return writeServiceError(ctx, c.logger, err, "Unblock plan")
	}

	return ctx.JSON(http.StatusOK, &dto.MessageWithPlanResponse{
		Message: "Plan unblocked successfully",
		Plan:    mapper.PlanToDTO(plan),
	})
}
