package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-hotel-billing/app/entity"
	"github.com/vibast-solutions/ms-go-hotel-billing/app/payment"
)

func seedMarketplace(f *fixture) {
	f.store.addUser("admin", entity.UserRoleAdmin)
	f.store.addWallet("admin", 5000)
	f.store.addUser("u1", entity.UserRoleUser)
	f.store.addWallet("u1", 0)
}

func TestSubscribeComputesCalendarWindow(t *testing.T) {
	f := newFixture()
	seedMarketplace(f)
	plan := f.store.addPlan(entity.PlanTypeMedium, 499, 30, true)

	result, err := f.subs.Subscribe(context.Background(), SubscribeInput{UserID: "u1", PlanID: plan.ID, PaymentAmount: decimal.NewFromInt(499)})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if got := result.History.ValidUntil.Format("2006-01-02"); got != "2024-02-19" {
		t.Fatalf("expected valid_until 2024-02-19, got %s", got)
	}
	if !result.History.ValidFrom.Equal(f.clock) {
		t.Fatalf("expected valid_from now, got %v", result.History.ValidFrom)
	}

	user := f.store.committed.users["u1"]
	if user.SubscriptionID == nil || *user.SubscriptionID != plan.ID {
		t.Fatalf("expected pointer to plan %d, got %v", plan.ID, user.SubscriptionID)
	}
	if !user.SubscriptionValidTo.Equal(result.History.ValidUntil) {
		t.Fatal("expected pointer window to match history row")
	}
	if !result.History.PaymentAmount.Equal(decimal.NewFromInt(499)) {
		t.Fatalf("expected payment recorded, got %s", result.History.PaymentAmount)
	}
	if len(f.store.committed.transactions) != 0 {
		t.Fatal("online payment must not touch the ledger")
	}
}

func TestSubscribeUsesCalendarDaysAcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	f := newFixture()
	seedMarketplace(f)
	f.subs.loc = loc
	f.clock = time.Date(2024, 3, 1, 10, 0, 0, 0, loc)
	plan := f.store.addPlan(entity.PlanTypeBasic, 0, 30, true)

	result, err := f.subs.AssignPlan(context.Background(), "u1", plan.ID)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	until := result.History.ValidUntil.In(loc)
	if until.Year() != 2024 || until.Month() != time.March || until.Day() != 31 || until.Hour() != 10 {
		t.Fatalf("expected 2024-03-31 10:00 local, got %v", until)
	}
}

func TestSubscribeReplacesActivePeriod(t *testing.T) {
	f := newFixture()
	seedMarketplace(f)
	basic := f.store.addPlan(entity.PlanTypeBasic, 0, 30, true)
	vip := f.store.addPlan(entity.PlanTypeVIP, 999, 30, true)

	if _, err := f.subs.AssignPlan(context.Background(), "u1", basic.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := f.subs.Subscribe(context.Background(), SubscribeInput{UserID: "u1", PlanID: vip.ID, PaymentAmount: decimal.NewFromInt(999)}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if n := f.store.activeRows("u1"); n != 1 {
		t.Fatalf("expected exactly one active row, got %d", n)
	}
	if len(f.store.committed.history) != 2 {
		t.Fatalf("expected two history rows, got %d", len(f.store.committed.history))
	}
}

func TestSubscribeRejectsInactivePlan(t *testing.T) {
	f := newFixture()
	seedMarketplace(f)
	plan := f.store.addPlan(entity.PlanTypeVIP, 999, 30, false)

	_, err := f.subs.Subscribe(context.Background(), SubscribeInput{UserID: "u1", PlanID: plan.ID})
	if !errors.Is(err, ErrPlanInactive) || !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrPlanInactive, got %v", err)
	}
	if len(f.store.committed.history) != 0 || f.store.committed.users["u1"].SubscriptionID != nil {
		t.Fatal("expected no writes")
	}
}

func TestSubscribeNotFound(t *testing.T) {
	f := newFixture()
	seedMarketplace(f)
	plan := f.store.addPlan(entity.PlanTypeVIP, 999, 30, true)

	if _, err := f.subs.Subscribe(context.Background(), SubscribeInput{UserID: "ghost", PlanID: plan.ID}); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if _, err := f.subs.Subscribe(context.Background(), SubscribeInput{UserID: "u1", PlanID: 999}); !errors.Is(err, ErrPlanNotFound) {
		t.Fatalf("expected ErrPlanNotFound, got %v", err)
	}
}

func TestSubscribeRejectsBadInput(t *testing.T) {
	f := newFixture()
	cases := []SubscribeInput{
		{UserID: "", PlanID: 1},
		{UserID: "u1", PlanID: 0},
		{UserID: "u1", PlanID: 1, PaymentAmount: decimal.NewFromInt(-1)},
		{UserID: "u1", PlanID: 1, PaymentMethod: payment.Method("cash")},
	}
	for _, in := range cases {
		if _, err := f.subs.Subscribe(context.Background(), in); !errors.Is(err, ErrInvalidRequest) {
			t.Fatalf("expected ErrInvalidRequest for %+v, got %v", in, err)
		}
	}
}

func TestSubscribeWithWalletIsZeroSum(t *testing.T) {
	f := newFixture()
	seedMarketplace(f)
	f.store.committed.wallets["u1"].Balance = decimal.NewFromInt(1000)
	plan := f.store.addPlan(entity.PlanTypeVIP, 999, 30, true)

	result, err := f.subs.Subscribe(context.Background(), SubscribeInput{UserID: "u1", PlanID: plan.ID, PaymentMethod: payment.MethodWallet})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !result.History.PaymentAmount.Equal(decimal.NewFromInt(999)) {
		t.Fatalf("expected plan price charged, got %s", result.History.PaymentAmount)
	}
	if !f.store.balance("u1").Equal(decimal.NewFromInt(1)) || !f.store.balance("admin").Equal(decimal.NewFromInt(5999)) {
		t.Fatalf("unexpected balances u1=%s admin=%s", f.store.balance("u1"), f.store.balance("admin"))
	}
	credits, debits, rows := f.ledgerSums(entity.RelatedEntitySubscription)
	if rows != 2 || !credits.Equal(debits) {
		t.Fatalf("expected paired ledger rows, got rows=%d credits=%s debits=%s", rows, credits, debits)
	}
}

func TestSubscribeWithWalletInsufficientBalance(t *testing.T) {
	f := newFixture()
	seedMarketplace(f)
	plan := f.store.addPlan(entity.PlanTypeVIP, 999, 30, true)

	_, err := f.subs.Subscribe(context.Background(), SubscribeInput{UserID: "u1", PlanID: plan.ID, PaymentMethod: payment.MethodWallet})
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if len(f.store.committed.history) != 0 || len(f.store.committed.transactions) != 0 {
		t.Fatal("expected rollback of every write")
	}
	if f.store.rollbacks != 1 {
		t.Fatalf("expected one rollback, got %d", f.store.rollbacks)
	}
}

func TestSubscribeNormalizesPaymentMethod(t *testing.T) {
	f := newFixture()
	seedMarketplace(f)
	f.store.committed.wallets["u1"].Balance = decimal.NewFromInt(1000)
	plan := f.store.addPlan(entity.PlanTypeVIP, 999, 30, true)

	_, err := f.subs.Subscribe(context.Background(), SubscribeInput{
		UserID:        "u1",
		PlanID:        plan.ID,
		PaymentAmount: decimal.NewFromInt(999),
		PaymentMethod: payment.Method(" Wallet"),
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !f.store.balance("u1").Equal(decimal.NewFromInt(1)) {
		t.Fatalf("expected user wallet debited, got %s", f.store.balance("u1"))
	}

	if _, err := f.subs.CancelSubscription(context.Background(), "u1"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if !f.store.balance("u1").Equal(decimal.NewFromInt(1000)) || !f.store.balance("admin").Equal(decimal.NewFromInt(5000)) {
		t.Fatalf("expected balances restored, got u1=%s admin=%s", f.store.balance("u1"), f.store.balance("admin"))
	}
	credits, debits, _ := f.ledgerSums(entity.RelatedEntitySubscription)
	if !credits.Equal(debits) {
		t.Fatalf("expected balanced ledger, got credits=%s debits=%s", credits, debits)
	}
}

func TestSubscribeRejectsAmountAbovePrice(t *testing.T) {
	f := newFixture()
	seedMarketplace(f)
	plan := f.store.addPlan(entity.PlanTypeMedium, 499, 30, true)

	_, err := f.subs.Subscribe(context.Background(), SubscribeInput{UserID: "u1", PlanID: plan.ID, PaymentAmount: decimal.NewFromInt(500)})
	if !errors.Is(err, ErrPaymentExceedsPrice) || !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrPaymentExceedsPrice, got %v", err)
	}
	if len(f.store.committed.history) != 0 {
		t.Fatal("expected no history row")
	}

	if _, err := f.subs.Subscribe(context.Background(), SubscribeInput{UserID: "u1", PlanID: plan.ID, PaymentAmount: decimal.NewFromInt(499)}); err != nil {
		t.Fatalf("expected full price to be accepted, got %v", err)
	}
}

func TestWorkflowsLockUserRow(t *testing.T) {
	f := newFixture()
	seedMarketplace(f)
	plan := f.store.addPlan(entity.PlanTypeBasic, 0, 1, true)

	if _, err := f.subs.AssignPlan(context.Background(), "u1", plan.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if len(f.store.locked) != 1 || f.store.locked[0] != "u1" {
		t.Fatalf("expected subscribe to lock u1, got %v", f.store.locked)
	}

	f.clock = f.clock.AddDate(0, 0, 2)
	if _, err := f.subs.RunExpirationBatch(context.Background()); err != nil {
		t.Fatalf("expire: %v", err)
	}
	if len(f.store.locked) != 2 || f.store.locked[1] != "u1" {
		t.Fatalf("expected expiry to lock u1, got %v", f.store.locked)
	}

	_, _ = f.subs.CancelSubscription(context.Background(), "u1")
	if len(f.store.locked) != 3 || f.store.locked[2] != "u1" {
		t.Fatalf("expected cancel to lock u1, got %v", f.store.locked)
	}
}

func TestCancelWithoutActivePlanIsConflict(t *testing.T) {
	f := newFixture()
	seedMarketplace(f)

	_, err := f.subs.CancelSubscription(context.Background(), "u1")
	if !errors.Is(err, ErrNoActiveSubscription) || !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrNoActiveSubscription, got %v", err)
	}
	if !strings.Contains(err.Error(), "no active plan") {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if len(f.store.committed.transactions) != 0 {
		t.Fatal("expected no ledger writes")
	}
	if !f.store.balance("u1").IsZero() || !f.store.balance("admin").Equal(decimal.NewFromInt(5000)) {
		t.Fatal("expected balances untouched")
	}
	if len(f.store.sent) != 0 {
		t.Fatal("expected no notifications")
	}
}

func TestCancelUnknownUser(t *testing.T) {
	f := newFixture()
	seedMarketplace(f)

	if _, err := f.subs.CancelSubscription(context.Background(), "ghost"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestCancelRefundsVIPSubscription(t *testing.T) {
	f := newFixture()
	seedMarketplace(f)
	plan := f.store.addPlan(entity.PlanTypeVIP, 999, 30, true)

	if _, err := f.subs.Subscribe(context.Background(), SubscribeInput{UserID: "u1", PlanID: plan.ID, PaymentAmount: decimal.NewFromInt(999)}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	f.store.sent = nil

	result, err := f.subs.CancelSubscription(context.Background(), "u1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !result.RefundAmount.Equal(decimal.NewFromInt(999)) {
		t.Fatalf("expected refund 999, got %s", result.RefundAmount)
	}

	if !f.store.balance("u1").Equal(decimal.NewFromInt(999)) {
		t.Fatalf("expected user credited 999, got %s", f.store.balance("u1"))
	}
	if !f.store.balance("admin").Equal(decimal.NewFromInt(4001)) {
		t.Fatalf("expected admin debited 999, got %s", f.store.balance("admin"))
	}

	credits, debits, rows := f.ledgerSums(entity.RelatedEntitySubscription)
	if rows != 2 || !credits.Equal(debits) {
		t.Fatalf("expected two paired rows, got rows=%d credits=%s debits=%s", rows, credits, debits)
	}
	for _, row := range f.store.committed.transactions {
		if row.RelatedEntityID != "3" {
			t.Fatalf("expected related entity to be the plan id, got %q", row.RelatedEntityID)
		}
	}

	if f.store.activeRows("u1") != 0 {
		t.Fatal("expected history row deactivated")
	}
	if f.store.committed.users["u1"].SubscriptionID != nil {
		t.Fatal("expected subscription pointer cleared")
	}

	if len(f.store.sent) != 2 {
		t.Fatalf("expected user and admin notifications, got %d", len(f.store.sent))
	}
	if f.store.sent[0].userID != "u1" || !strings.Contains(f.store.sent[0].message, "999.00") {
		t.Fatalf("unexpected user notification: %+v", f.store.sent[0])
	}
	if f.store.sent[1].userID != "admin" || !strings.Contains(f.store.sent[1].message, "u1") {
		t.Fatalf("unexpected admin notification: %+v", f.store.sent[1])
	}
}

func TestCancelComplimentaryPlanSkipsLedger(t *testing.T) {
	f := newFixture()
	seedMarketplace(f)
	plan := f.store.addPlan(entity.PlanTypeBasic, 0, 30, true)

	if _, err := f.subs.AssignPlan(context.Background(), "u1", plan.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}
	result, err := f.subs.CancelSubscription(context.Background(), "u1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !result.RefundAmount.IsZero() || result.Message != "Subscription cancelled" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(f.store.committed.transactions) != 0 {
		t.Fatal("expected no ledger rows for a zero refund")
	}
}

func TestCancelIsAtomicWhenWalletUpdateFails(t *testing.T) {
	f := newFixture()
	seedMarketplace(f)
	plan := f.store.addPlan(entity.PlanTypeVIP, 999, 30, true)
	if _, err := f.subs.Subscribe(context.Background(), SubscribeInput{UserID: "u1", PlanID: plan.ID, PaymentAmount: decimal.NewFromInt(999)}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	boom := errors.New("wallet storage unavailable")
	f.store.adjustErr = func(ownerID string) error {
		if ownerID == "u1" {
			return boom
		}
		return nil
	}

	_, err := f.subs.CancelSubscription(context.Background(), "u1")
	if !errors.Is(err, boom) {
		t.Fatalf("expected original error, got %v", err)
	}
	if f.store.activeRows("u1") != 1 {
		t.Fatal("expected history row to stay active")
	}
	if len(f.store.committed.transactions) != 0 {
		t.Fatal("expected no ledger rows")
	}
	if !f.store.balance("admin").Equal(decimal.NewFromInt(5000)) {
		t.Fatalf("expected admin debit rolled back, got %s", f.store.balance("admin"))
	}
	if f.store.committed.users["u1"].SubscriptionID == nil {
		t.Fatal("expected pointer untouched")
	}
}

func TestCancelMissingWallet(t *testing.T) {
	f := newFixture()
	seedMarketplace(f)
	delete(f.store.committed.wallets, "admin")
	plan := f.store.addPlan(entity.PlanTypeBasic, 0, 30, true)
	if _, err := f.subs.AssignPlan(context.Background(), "u1", plan.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}

	_, err := f.subs.CancelSubscription(context.Background(), "u1")
	if !errors.Is(err, ErrWalletNotFound) {
		t.Fatalf("expected ErrWalletNotFound, got %v", err)
	}
	if f.store.activeRows("u1") != 1 {
		t.Fatal("expected history untouched")
	}
}

func TestCancelNotificationFailureKeepsRefund(t *testing.T) {
	f := newFixture()
	seedMarketplace(f)
	plan := f.store.addPlan(entity.PlanTypeVIP, 999, 30, true)
	if _, err := f.subs.Subscribe(context.Background(), SubscribeInput{UserID: "u1", PlanID: plan.ID, PaymentAmount: decimal.NewFromInt(999)}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	f.store.notifyErr = errors.New("broker down")

	if _, err := f.subs.CancelSubscription(context.Background(), "u1"); err != nil {
		t.Fatalf("expected refund to succeed despite notification failure, got %v", err)
	}
	if !f.store.balance("u1").Equal(decimal.NewFromInt(999)) {
		t.Fatal("expected refund committed")
	}
}

func TestAtMostOneActivePeriod(t *testing.T) {
	f := newFixture()
	seedMarketplace(f)
	f.store.addUser("u2", entity.UserRoleUser)
	f.store.addWallet("u2", 0)
	basic := f.store.addPlan(entity.PlanTypeBasic, 10, 30, true)
	vip := f.store.addPlan(entity.PlanTypeVIP, 999, 30, true)

	steps := []struct {
		user   string
		cancel bool
		plan   uint64
	}{
		{"u1", false, basic.ID},
		{"u1", false, vip.ID},
		{"u2", false, vip.ID},
		{"u1", true, 0},
		{"u1", true, 0},
		{"u2", false, basic.ID},
		{"u1", false, vip.ID},
		{"u2", true, 0},
		{"u1", false, basic.ID},
	}
	for i, step := range steps {
		if step.cancel {
			_, _ = f.subs.CancelSubscription(context.Background(), step.user)
		} else {
			_, _ = f.subs.Subscribe(context.Background(), SubscribeInput{UserID: step.user, PlanID: step.plan, PaymentAmount: decimal.NewFromInt(10)})
		}
		f.clock = f.clock.Add(time.Hour)
		for _, user := range []string{"u1", "u2"} {
			if n := f.store.activeRows(user); n > 1 {
				t.Fatalf("step %d: user %s has %d active rows", i, user, n)
			}
		}
	}
}

func TestGetUserActivePlan(t *testing.T) {
	f := newFixture()
	seedMarketplace(f)
	plan := f.store.addPlan(entity.PlanTypeMedium, 499, 30, true)

	result, err := f.subs.GetUserActivePlan(context.Background(), "u1")
	if err != nil {
		t.Fatalf("expected no error without a plan, got %v", err)
	}
	if result.Plan != nil || result.Message != "No active plan" {
		t.Fatalf("expected null variant, got %+v", result)
	}

	if _, err := f.subs.AssignPlan(context.Background(), "u1", plan.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}
	result, err = f.subs.GetUserActivePlan(context.Background(), "u1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.Plan == nil || result.Plan.ID != plan.ID {
		t.Fatalf("expected plan %d, got %+v", plan.ID, result.Plan)
	}

	f.clock = f.clock.AddDate(0, 0, 31)
	result, err = f.subs.GetUserActivePlan(context.Background(), "u1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.Plan != nil {
		t.Fatal("expected no entitlement after validity window")
	}
}

func TestListHistory(t *testing.T) {
	f := newFixture()
	seedMarketplace(f)
	plan := f.store.addPlan(entity.PlanTypeBasic, 0, 30, true)
	_, _ = f.subs.AssignPlan(context.Background(), "u1", plan.ID)
	_, _ = f.subs.CancelSubscription(context.Background(), "u1")
	_, _ = f.subs.AssignPlan(context.Background(), "u1", plan.ID)

	items, err := f.subs.ListHistory(context.Background(), "u1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(items))
	}
}

func TestRunExpirationBatch(t *testing.T) {
	f := newFixture()
	seedMarketplace(f)
	f.store.addUser("u2", entity.UserRoleUser)
	short := f.store.addPlan(entity.PlanTypeBasic, 0, 1, true)
	long := f.store.addPlan(entity.PlanTypeVIP, 0, 90, true)

	if _, err := f.subs.AssignPlan(context.Background(), "u1", short.ID); err != nil {
		t.Fatalf("assign u1: %v", err)
	}
	if _, err := f.subs.AssignPlan(context.Background(), "u2", long.ID); err != nil {
		t.Fatalf("assign u2: %v", err)
	}

	f.clock = f.clock.AddDate(0, 0, 2)
	expired, err := f.subs.RunExpirationBatch(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if expired != 1 {
		t.Fatalf("expected 1 expired period, got %d", expired)
	}
	if f.store.activeRows("u1") != 0 || f.store.committed.users["u1"].SubscriptionID != nil {
		t.Fatal("expected u1 period closed and pointer cleared")
	}
	if f.store.activeRows("u2") != 1 {
		t.Fatal("expected u2 period untouched")
	}
	for _, row := range f.store.committed.history {
		if row.IsActive && row.ValidUntil.Before(f.clock) {
			t.Fatalf("found stale active row %+v", row)
		}
	}
}
