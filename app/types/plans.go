package types

import (
	"errors"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type CreatePlanRequest struct {
	Name        string          `json:"name" validate:"required,max=100"`
	Description string          `json:"description" validate:"max=1000"`
	Type        string          `json:"type" validate:"required,oneof=basic medium vip"`
	Price       decimal.Decimal `json:"price"`
	Duration    int32           `json:"duration" validate:"min=1"`
	Features    []string        `json:"features" validate:"omitempty,dive,required"`
}

func NewCreatePlanRequestFromContext(ctx echo.Context) (*CreatePlanRequest, error) {
	var body CreatePlanRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.Name = strings.TrimSpace(body.Name)
	body.Description = strings.TrimSpace(body.Description)
	body.Type = strings.ToLower(strings.TrimSpace(body.Type))
	return &body, nil
}

func (r *CreatePlanRequest) Validate() error {
	if err := validateStruct(r); err != nil {
		return err
	}
	if r.Price.IsNegative() {
		return errors.New("price must not be negative")
	}
	return nil
}

// UpdatePlanRequest is deliberately loose: field-level problems are left to
// the service, which drops malformed values instead of rejecting them.
type UpdatePlanRequest struct {
	ID          uint64           `json:"-" validate:"required"`
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Type        *string          `json:"type"`
	Price       *decimal.Decimal `json:"price"`
	Duration    *int32           `json:"duration"`
	Features    []string         `json:"features"`
}

func NewUpdatePlanRequestFromContext(ctx echo.Context) (*UpdatePlanRequest, error) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		return nil, err
	}

	var body UpdatePlanRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.ID = id
	return &body, nil
}

func (r *UpdatePlanRequest) Validate() error {
	if r.ID == 0 {
		return errors.New("invalid plan id")
	}
	return nil
}

type PlanIDRequest struct {
	ID uint64 `json:"id" validate:"required"`
}

func NewPlanIDRequestFromContext(ctx echo.Context) (*PlanIDRequest, error) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		return nil, err
	}
	return &PlanIDRequest{ID: id}, nil
}

func (r *PlanIDRequest) Validate() error {
	if r.ID == 0 {
		return errors.New("invalid plan id")
	}
	return nil
}
