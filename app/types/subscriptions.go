package types

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

var errNegativeAmount = errors.New("payment_amount must not be negative")

type SubscribeRequest struct {
	UserID        string          `json:"user_id" validate:"required,max=64"`
	PlanID        uint64          `json:"plan_id" validate:"required"`
	PaymentAmount decimal.Decimal `json:"payment_amount"`
	PaymentMethod string          `json:"payment_method" validate:"omitempty,oneof=online wallet"`
}

func NewSubscribeRequestFromContext(ctx echo.Context) (*SubscribeRequest, error) {
	var body SubscribeRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.UserID = strings.TrimSpace(ctx.Param("user_id"))
	body.PaymentMethod = strings.ToLower(strings.TrimSpace(body.PaymentMethod))
	return &body, nil
}

func (r *SubscribeRequest) Normalize() {
	r.UserID = strings.TrimSpace(r.UserID)
	r.PaymentMethod = strings.ToLower(strings.TrimSpace(r.PaymentMethod))
}

func (r *SubscribeRequest) Validate() error {
	if err := validateStruct(r); err != nil {
		return err
	}
	if r.PaymentAmount.IsNegative() {
		return errNegativeAmount
	}
	return nil
}

// UserRequest addresses a single user's subscription.
type UserRequest struct {
	UserID string `json:"user_id" validate:"required,max=64"`
}

func NewUserRequestFromContext(ctx echo.Context) (*UserRequest, error) {
	return &UserRequest{UserID: strings.TrimSpace(ctx.Param("user_id"))}, nil
}

func (r *UserRequest) Normalize() {
	r.UserID = strings.TrimSpace(r.UserID)
}

func (r *UserRequest) Validate() error {
	return validateStruct(r)
}
