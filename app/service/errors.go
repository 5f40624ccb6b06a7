package service

import (
	"errors"
	"fmt"
	"strings"
)

// Categories. Every error returned by this package wraps exactly one of them
// so transports can map it to a status code with errors.Is.
var (
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrInvalidRequest = errors.New("invalid request")
	ErrInternal       = errors.New("internal failure")
	ErrFatal          = errors.New("fatal")
)

var (
	ErrUserNotFound   = fmt.Errorf("%w: user not found", ErrNotFound)
	ErrPlanNotFound   = fmt.Errorf("%w: subscription plan not found", ErrNotFound)
	ErrNoActivePlans  = fmt.Errorf("%w: no active subscription plans", ErrNotFound)
	ErrWalletNotFound = fmt.Errorf("%w: wallet not found", ErrNotFound)
	ErrAdminNotFound  = fmt.Errorf("%w: platform admin not found", ErrNotFound)

	ErrPlanInactive         = fmt.Errorf("%w: subscription plan is not active", ErrConflict)
	ErrPlanTypeExists       = fmt.Errorf("%w: a plan with this type or name already exists", ErrConflict)
	ErrPlanAlreadyBlocked   = fmt.Errorf("%w: subscription plan is already blocked", ErrConflict)
	ErrPlanAlreadyUnblocked = fmt.Errorf("%w: subscription plan is already active", ErrConflict)
	ErrNoActiveSubscription = fmt.Errorf("%w: no active plan", ErrConflict)
	ErrInsufficientBalance  = fmt.Errorf("%w: insufficient wallet balance", ErrConflict)

	ErrInvalidAmount        = fmt.Errorf("%w: amount must be positive", ErrInvalidRequest)
	ErrInvalidPaymentMethod = fmt.Errorf("%w: unsupported payment method", ErrInvalidRequest)
	ErrPaymentExceedsPrice  = fmt.Errorf("%w: payment_amount must not exceed the plan price", ErrInvalidRequest)

	ErrNoRowsWritten = fmt.Errorf("%w: persistence write returned no result", ErrInternal)

	ErrAdminWalletMissing = fmt.Errorf("%w: admin wallet not found", ErrFatal)
)

// PublicMessage strips the category prefix so the detail can be shown to a
// client.
func PublicMessage(err error) string {
	msg := err.Error()
	for _, category := range []error{ErrNotFound, ErrConflict, ErrInvalidRequest} {
		if errors.Is(err, category) {
			return strings.TrimPrefix(msg, category.Error()+": ")
		}
	}
	return msg
}
