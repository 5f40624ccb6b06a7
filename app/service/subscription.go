package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-hotel-billing/app/entity"
	"github.com/vibast-solutions/ms-go-hotel-billing/app/payment"
	"github.com/vibast-solutions/ms-go-hotel-billing/app/repository"
)

type historyRepository interface {
	Create(ctx context.Context, tx repository.DBTX, history *entity.SubscriptionHistory) error
	FindActiveByUserForUpdate(ctx context.Context, tx repository.DBTX, userID string) (*entity.SubscriptionHistory, error)
	DeactivateAllActiveForUser(ctx context.Context, tx repository.DBTX, userID string, now time.Time) (int64, error)
	FindCurrentWithPlan(ctx context.Context, userID string, now time.Time) (*entity.ActiveSubscription, error)
	ListByUser(ctx context.Context, userID string) ([]*entity.SubscriptionHistory, error)
	ListExpiredActive(ctx context.Context, now time.Time) ([]*entity.SubscriptionHistory, error)
}

type userRepository interface {
	FindByIDForUpdate(ctx context.Context, tx repository.DBTX, id string) (*entity.User, error)
	FindAdmin(ctx context.Context, tx repository.DBTX) (*entity.User, error)
	UpdateSubscriptionPointer(ctx context.Context, tx repository.DBTX, userID string, pointer entity.SubscriptionPointer, now time.Time) error
}

type transferer interface {
	Transfer(ctx context.Context, tx repository.DBTX, in TransferInput) (*TransferResult, error)
}

type SubscribeInput struct {
	UserID        string
	PlanID        uint64
	PaymentAmount decimal.Decimal
	PaymentMethod payment.Method
}

type SubscribeResult struct {
	Pointer entity.SubscriptionPointer
	History *entity.SubscriptionHistory
	Plan    *entity.SubscriptionPlan
	Message string
}

type CancelResult struct {
	RefundAmount decimal.Decimal
	Message      string
}

// ActivePlanResult has a nil Plan when the user holds no current entitlement.
type ActivePlanResult struct {
	Plan    *entity.SubscriptionPlan
	History *entity.SubscriptionHistory
	Message string
}

type SubscriptionService struct {
	tx          transactor
	planRepo    planRepository
	historyRepo historyRepository
	userRepo    userRepository
	walletRepo  walletRepository
	ledger      transferer
	outbox      outbox
	loc         *time.Location
	now         func() time.Time
}

func NewSubscriptionService(
	tx transactor,
	planRepo planRepository,
	historyRepo historyRepository,
	userRepo userRepository,
	walletRepo walletRepository,
	ledger transferer,
	n notifier,
	loc *time.Location,
) *SubscriptionService {
	if loc == nil {
		loc = time.UTC
	}
	return &SubscriptionService{
		tx:          tx,
		planRepo:    planRepo,
		historyRepo: historyRepo,
		userRepo:    userRepo,
		walletRepo:  walletRepo,
		ledger:      ledger,
		outbox:      newOutbox(n, "subscriptions"),
		loc:         loc,
		now:         time.Now,
	}
}

// Subscribe is the paid purchase: any prior active period is closed and a
// new one opened, in one transaction.
func (s *SubscriptionService) Subscribe(ctx context.Context, in SubscribeInput) (*SubscribeResult, error) {
	if in.PaymentAmount.IsNegative() {
		return nil, fmt.Errorf("%w: payment_amount must not be negative", ErrInvalidRequest)
	}
	method, err := payment.ParseMethod(string(in.PaymentMethod))
	if err != nil {
		return nil, ErrInvalidPaymentMethod
	}
	in.PaymentMethod = method
	return s.subscribe(ctx, in)
}

// AssignPlan is the complimentary variant used at registration: no payment
// and no wallet movement, same atomic bookkeeping.
func (s *SubscriptionService) AssignPlan(ctx context.Context, userID string, planID uint64) (*SubscribeResult, error) {
	return s.subscribe(ctx, SubscribeInput{
		UserID:        userID,
		PlanID:        planID,
		PaymentAmount: decimal.Zero,
		PaymentMethod: payment.MethodOnline,
	})
}

func (s *SubscriptionService) subscribe(ctx context.Context, in SubscribeInput) (*SubscribeResult, error) {
	userID := strings.TrimSpace(in.UserID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrInvalidRequest)
	}
	if in.PlanID == 0 {
		return nil, fmt.Errorf("%w: plan_id is required", ErrInvalidRequest)
	}

	var result *SubscribeResult
	err := s.tx.WithinTransaction(ctx, func(tx repository.DBTX) error {
		user, err := s.userRepo.FindByIDForUpdate(ctx, tx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrUserNotFound
		}

		plan, err := s.planRepo.FindByID(ctx, tx, in.PlanID)
		if err != nil {
			return err
		}
		if plan == nil {
			return ErrPlanNotFound
		}
		if !plan.IsActive {
			return ErrPlanInactive
		}

		amount := in.PaymentAmount
		if amount.GreaterThan(plan.Price) {
			return ErrPaymentExceedsPrice
		}
		if in.PaymentMethod.MovesFunds() {
			if amount.IsZero() {
				amount = plan.Price
			}
			if err := s.chargeWallet(ctx, tx, userID, plan, amount); err != nil {
				return err
			}
		}

		now := s.now().In(s.loc)
		validFrom := now
		validUntil := validFrom.AddDate(0, 0, int(plan.Duration))

		if _, err := s.historyRepo.DeactivateAllActiveForUser(ctx, tx, userID, now.UTC()); err != nil {
			return err
		}

		history := &entity.SubscriptionHistory{
			UserID:         userID,
			SubscriptionID: plan.ID,
			SubscribedAt:   now,
			ValidFrom:      validFrom,
			ValidUntil:     validUntil,
			IsActive:       true,
			PaymentAmount:  amount,
			CreatedAt:      now.UTC(),
			UpdatedAt:      now.UTC(),
		}
		if err := s.historyRepo.Create(ctx, tx, history); err != nil {
			return err
		}

		planID := plan.ID
		pointer := entity.SubscriptionPointer{
			SubscriptionID: &planID,
			ValidFrom:      &validFrom,
			ValidUntil:     &validUntil,
		}
		if err := s.updatePointer(ctx, tx, userID, pointer, now.UTC()); err != nil {
			return err
		}

		result = &SubscribeResult{
			Pointer: pointer,
			History: history,
			Plan:    plan,
			Message: fmt.Sprintf("Subscribed to %s plan until %s", plan.Name, validUntil.Format("2006-01-02")),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.outbox.flush(ctx, []pendingNotification{{
		userID:  userID,
		title:   "Subscription activated",
		message: result.Message,
	}})
	return result, nil
}

func (s *SubscriptionService) chargeWallet(ctx context.Context, tx repository.DBTX, userID string, plan *entity.SubscriptionPlan, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return nil
	}
	admin, err := s.userRepo.FindAdmin(ctx, tx)
	if err != nil {
		return err
	}
	if admin == nil {
		return ErrAdminNotFound
	}
	_, err = s.ledger.Transfer(ctx, tx, TransferInput{
		FromOwnerID:       userID,
		ToOwnerID:         admin.ID,
		Amount:            amount,
		Description:       fmt.Sprintf("Payment for %s subscription", plan.Name),
		RelatedEntityID:   strconv.FormatUint(plan.ID, 10),
		RelatedEntityType: entity.RelatedEntitySubscription,
		RequireFunds:      true,
	})
	return err
}

// CancelSubscription refunds the active period's payment from the platform
// wallet, closes the period and clears the user's pointer atomically.
// Notifications go out only after commit.
func (s *SubscriptionService) CancelSubscription(ctx context.Context, userID string) (*CancelResult, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrInvalidRequest)
	}

	var (
		result  *CancelResult
		pending []pendingNotification
	)
	err := s.tx.WithinTransaction(ctx, func(tx repository.DBTX) error {
		user, err := s.userRepo.FindByIDForUpdate(ctx, tx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrUserNotFound
		}

		active, err := s.historyRepo.FindActiveByUserForUpdate(ctx, tx, userID)
		if err != nil {
			return err
		}
		if active == nil {
			return ErrNoActiveSubscription
		}
		refund := active.PaymentAmount

		admin, err := s.userRepo.FindAdmin(ctx, tx)
		if err != nil {
			return err
		}
		if admin == nil {
			return ErrAdminNotFound
		}
		if err := s.requireWallet(ctx, tx, userID); err != nil {
			return err
		}
		if err := s.requireWallet(ctx, tx, admin.ID); err != nil {
			return err
		}

		if refund.IsPositive() {
			_, err := s.ledger.Transfer(ctx, tx, TransferInput{
				FromOwnerID:       admin.ID,
				ToOwnerID:         userID,
				Amount:            refund,
				Description:       "Refund for subscription cancellation",
				RelatedEntityID:   strconv.FormatUint(active.SubscriptionID, 10),
				RelatedEntityType: entity.RelatedEntitySubscription,
			})
			if err != nil {
				return err
			}
		}

		now := s.now().UTC()
		if _, err := s.historyRepo.DeactivateAllActiveForUser(ctx, tx, userID, now); err != nil {
			return err
		}
		if err := s.updatePointer(ctx, tx, userID, entity.SubscriptionPointer{}, now); err != nil {
			return err
		}

		result = &CancelResult{RefundAmount: refund}
		userMessage := "Your subscription has been cancelled."
		if refund.IsPositive() {
			userMessage = fmt.Sprintf("Your subscription has been cancelled and %s has been refunded to your wallet.", refund.StringFixed(2))
			result.Message = fmt.Sprintf("Subscription cancelled and %s refunded", refund.StringFixed(2))
		} else {
			result.Message = "Subscription cancelled"
		}

		pending = []pendingNotification{
			{userID: userID, title: "Subscription cancelled", message: userMessage},
			{
				userID:  admin.ID,
				title:   "Subscription cancelled",
				message: fmt.Sprintf("User %s (%s) cancelled their subscription. Refunded amount: %s.", user.Name, user.ID, refund.StringFixed(2)),
			},
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.outbox.flush(ctx, pending)
	return result, nil
}

// GetUserActivePlan never fails for a missing entitlement; it returns a nil
// plan instead.
func (s *SubscriptionService) GetUserActivePlan(ctx context.Context, userID string) (*ActivePlanResult, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrInvalidRequest)
	}

	current, err := s.historyRepo.FindCurrentWithPlan(ctx, userID, s.now().UTC())
	if err != nil {
		return nil, err
	}
	if current == nil {
		return &ActivePlanResult{Message: "No active plan"}, nil
	}

	return &ActivePlanResult{
		Plan:    current.Plan,
		History: current.History,
		Message: "Active plan found",
	}, nil
}

func (s *SubscriptionService) ListHistory(ctx context.Context, userID string) ([]*entity.SubscriptionHistory, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrInvalidRequest)
	}
	return s.historyRepo.ListByUser(ctx, userID)
}

// RunExpirationBatch closes active periods whose validity window has ended.
// Each user is handled in its own transaction; failures are collected and
// do not stop the sweep.
func (s *SubscriptionService) RunExpirationBatch(ctx context.Context) (int, error) {
	now := s.now().UTC()
	items, err := s.historyRepo.ListExpiredActive(ctx, now)
	if err != nil {
		return 0, err
	}

	seen := make(map[string]struct{}, len(items))
	expired := 0
	var errs []error
	for _, item := range items {
		if _, ok := seen[item.UserID]; ok {
			continue
		}
		seen[item.UserID] = struct{}{}

		closed := false
		err := s.tx.WithinTransaction(ctx, func(tx repository.DBTX) error {
			if _, err := s.userRepo.FindByIDForUpdate(ctx, tx, item.UserID); err != nil {
				return err
			}
			active, err := s.historyRepo.FindActiveByUserForUpdate(ctx, tx, item.UserID)
			if err != nil {
				return err
			}
			// Renewed since the listing.
			if active == nil || !active.ValidUntil.Before(now) {
				return nil
			}
			if _, err := s.historyRepo.DeactivateAllActiveForUser(ctx, tx, item.UserID, now); err != nil {
				return err
			}
			if err := s.userRepo.UpdateSubscriptionPointer(ctx, tx, item.UserID, entity.SubscriptionPointer{}, now); err != nil &&
				!errors.Is(err, repository.ErrUserNotFound) {
				return err
			}
			closed = true
			return nil
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("expire subscription for user %s: %w", item.UserID, err))
			continue
		}
		if closed {
			expired++
		}
	}

	return expired, errors.Join(errs...)
}

func (s *SubscriptionService) requireWallet(ctx context.Context, tx repository.DBTX, ownerID string) error {
	wallet, err := s.walletRepo.FindByOwner(ctx, tx, ownerID)
	if err != nil {
		return err
	}
	if wallet == nil {
		return fmt.Errorf("%w: owner %s", ErrWalletNotFound, ownerID)
	}
	return nil
}

func (s *SubscriptionService) updatePointer(ctx context.Context, tx repository.DBTX, userID string, pointer entity.SubscriptionPointer, now time.Time) error {
	if err := s.userRepo.UpdateSubscriptionPointer(ctx, tx, userID, pointer, now); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return fmt.Errorf("%w: subscription pointer for user %s", ErrNoRowsWritten, userID)
		}
		return err
	}
	return nil
}
