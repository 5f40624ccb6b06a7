package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-hotel-billing/app/entity"
	"github.com/vibast-solutions/ms-go-hotel-billing/app/repository"
)

type planRepository interface {
	Create(ctx context.Context, plan *entity.SubscriptionPlan) error
	Update(ctx context.Context, plan *entity.SubscriptionPlan) error
	SetActive(ctx context.Context, id uint64, active bool, updatedAt time.Time) (bool, error)
	FindByID(ctx context.Context, tx repository.DBTX, id uint64) (*entity.SubscriptionPlan, error)
	FindByType(ctx context.Context, planType string) (*entity.SubscriptionPlan, error)
	ListActive(ctx context.Context) ([]*entity.SubscriptionPlan, error)
	List(ctx context.Context) ([]*entity.SubscriptionPlan, error)
}

type CreatePlanInput struct {
	Name        string
	Description string
	Type        string
	Price       decimal.Decimal
	Duration    int32
	Features    []string
}

// UpdatePlanInput carries optional fields. Nil means "not provided".
type UpdatePlanInput struct {
	Name        *string
	Description *string
	Type        *string
	Price       *decimal.Decimal
	Duration    *int32
	Features    []string
}

type PlanService struct {
	planRepo planRepository
	now      func() time.Time
}

func NewPlanService(planRepo planRepository) *PlanService {
	return &PlanService{
		planRepo: planRepo,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *PlanService) CreatePlan(ctx context.Context, in CreatePlanInput) (*entity.SubscriptionPlan, error) {
	name := strings.TrimSpace(in.Name)
	planType := strings.ToLower(strings.TrimSpace(in.Type))
	switch {
	case name == "":
		return nil, fmt.Errorf("%w: name is required", ErrInvalidRequest)
	case !entity.IsValidPlanType(planType):
		return nil, fmt.Errorf("%w: type must be one of basic, medium, vip", ErrInvalidRequest)
	case in.Price.IsNegative():
		return nil, fmt.Errorf("%w: price must not be negative", ErrInvalidRequest)
	case in.Duration < 1:
		return nil, fmt.Errorf("%w: duration must be at least one day", ErrInvalidRequest)
	}

	existing, err := s.planRepo.FindByType(ctx, planType)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrPlanTypeExists
	}

	now := s.now()
	plan := &entity.SubscriptionPlan{
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		Type:        planType,
		Price:       in.Price,
		Duration:    in.Duration,
		Features:    in.Features,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if plan.Features == nil {
		plan.Features = []string{}
	}

	if err := s.planRepo.Create(ctx, plan); err != nil {
		if errors.Is(err, repository.ErrPlanAlreadyExists) {
			return nil, ErrPlanTypeExists
		}
		return nil, err
	}

	return plan, nil
}

func (s *PlanService) BlockPlan(ctx context.Context, id uint64) (*entity.SubscriptionPlan, error) {
	return s.setActive(ctx, id, false)
}

func (s *PlanService) UnblockPlan(ctx context.Context, id uint64) (*entity.SubscriptionPlan, error) {
	return s.setActive(ctx, id, true)
}

func (s *PlanService) setActive(ctx context.Context, id uint64, active bool) (*entity.SubscriptionPlan, error) {
	alreadyInState := ErrPlanAlreadyBlocked
	if active {
		alreadyInState = ErrPlanAlreadyUnblocked
	}

	plan, err := s.GetPlan(ctx, id)
	if err != nil {
		return nil, err
	}
	if plan.IsActive == active {
		return nil, alreadyInState
	}

	now := s.now()
	changed, err := s.planRepo.SetActive(ctx, id, active, now)
	if err != nil {
		return nil, err
	}
	if !changed {
		// Lost a race with a concurrent toggle.
		return nil, alreadyInState
	}

	plan.IsActive = active
	plan.UpdatedAt = now
	return plan, nil
}

// UpdatePlan applies the provided fields that pass validation. Malformed
// fields are skipped without error; updated_at is always refreshed.
func (s *PlanService) UpdatePlan(ctx context.Context, id uint64, in UpdatePlanInput) (*entity.SubscriptionPlan, error) {
	plan, err := s.GetPlan(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		if v := strings.TrimSpace(*in.Name); v != "" {
			plan.Name = v
		}
	}
	if in.Description != nil {
		if v := strings.TrimSpace(*in.Description); v != "" {
			plan.Description = v
		}
	}
	if in.Type != nil {
		if v := strings.ToLower(strings.TrimSpace(*in.Type)); entity.IsValidPlanType(v) {
			plan.Type = v
		}
	}
	if in.Price != nil && in.Price.IsPositive() {
		plan.Price = *in.Price
	}
	if in.Duration != nil && *in.Duration >= 1 {
		plan.Duration = *in.Duration
	}
	if in.Features != nil {
		plan.Features = in.Features
	}
	plan.UpdatedAt = s.now()

	if err := s.planRepo.Update(ctx, plan); err != nil {
		switch {
		case errors.Is(err, repository.ErrPlanAlreadyExists):
			return nil, ErrPlanTypeExists
		case errors.Is(err, repository.ErrPlanNotFound):
			return nil, ErrPlanNotFound
		}
		return nil, err
	}

	return plan, nil
}

func (s *PlanService) GetPlan(ctx context.Context, id uint64) (*entity.SubscriptionPlan, error) {
	plan, err := s.planRepo.FindByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, ErrPlanNotFound
	}
	return plan, nil
}

// ListActivePlans is the storefront listing; an empty result is an error.
func (s *PlanService) ListActivePlans(ctx context.Context) ([]*entity.SubscriptionPlan, error) {
	items, err := s.planRepo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrNoActivePlans
	}
	return items, nil
}

// ListPlans is the admin catalog; it may be empty.
func (s *PlanService) ListPlans(ctx context.Context) ([]*entity.SubscriptionPlan, error) {
	return s.planRepo.List(ctx)
}
