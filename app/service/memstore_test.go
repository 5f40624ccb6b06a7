package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-hotel-billing/app/entity"
	"github.com/vibast-solutions/ms-go-hotel-billing/app/repository"
)

// memState is a snapshot of every table the services touch.
type memState struct {
	users        map[string]*entity.User
	plans        map[uint64]*entity.SubscriptionPlan
	history      []*entity.SubscriptionHistory
	wallets      map[string]*entity.Wallet
	transactions []*entity.Transaction
	bookings     []*entity.Booking
	nextID       uint64
}

func newMemState() *memState {
	return &memState{
		users:   map[string]*entity.User{},
		plans:   map[uint64]*entity.SubscriptionPlan{},
		wallets: map[string]*entity.Wallet{},
	}
}

func (s *memState) id() uint64 {
	s.nextID++
	return s.nextID
}

func (s *memState) clone() *memState {
	out := newMemState()
	out.nextID = s.nextID
	for k, v := range s.users {
		c := *v
		out.users[k] = &c
	}
	for k, v := range s.plans {
		c := *v
		c.Features = append([]string(nil), v.Features...)
		out.plans[k] = &c
	}
	for _, v := range s.history {
		c := *v
		out.history = append(out.history, &c)
	}
	for k, v := range s.wallets {
		c := *v
		out.wallets[k] = &c
	}
	for _, v := range s.transactions {
		c := *v
		out.transactions = append(out.transactions, &c)
	}
	for _, v := range s.bookings {
		c := *v
		out.bookings = append(out.bookings, &c)
	}
	return out
}

// memTx carries a working copy that replaces the committed state on commit.
type memTx struct {
	state *memState
}

func (*memTx) ExecContext(context.Context, string, ...interface{}) (sql.Result, error) {
	return nil, errors.New("memTx does not execute sql")
}

func (*memTx) QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error) {
	return nil, errors.New("memTx does not execute sql")
}

func (*memTx) QueryRowContext(context.Context, string, ...interface{}) *sql.Row {
	return nil
}

type sentNotification struct {
	userID  string
	title   string
	message string
}

type memStore struct {
	committed *memState
	commits   int
	rollbacks int

	adjustErr func(ownerID string) error
	notifyErr error
	sent      []sentNotification
	// locked records every user row locked inside a transaction.
	locked []string
}

func newMemStore() *memStore {
	return &memStore{committed: newMemState()}
}

func (m *memStore) WithinTransaction(_ context.Context, fn func(tx repository.DBTX) error) error {
	tx := &memTx{state: m.committed.clone()}
	if err := fn(tx); err != nil {
		m.rollbacks++
		return err
	}
	m.committed = tx.state
	m.commits++
	return nil
}

func (m *memStore) state(tx repository.DBTX) *memState {
	if t, ok := tx.(*memTx); ok && t != nil {
		return t.state
	}
	return m.committed
}

func (m *memStore) Send(_ context.Context, userID, title, message string) error {
	if m.notifyErr != nil {
		return m.notifyErr
	}
	m.sent = append(m.sent, sentNotification{userID: userID, title: title, message: message})
	return nil
}

func (m *memStore) addUser(id, role string) *entity.User {
	user := &entity.User{ID: id, Name: "Name " + id, Email: id + "@example.com", Role: role}
	m.committed.users[id] = user
	return user
}

func (m *memStore) addWallet(ownerID string, balance int64) *entity.Wallet {
	wallet := &entity.Wallet{ID: m.committed.id(), OwnerID: ownerID, Balance: decimal.NewFromInt(balance)}
	m.committed.wallets[ownerID] = wallet
	return wallet
}

func (m *memStore) addPlan(planType string, price int64, duration int32, active bool) *entity.SubscriptionPlan {
	plan := &entity.SubscriptionPlan{
		ID:       m.committed.id(),
		Name:     planType,
		Type:     planType,
		Price:    decimal.NewFromInt(price),
		Duration: duration,
		Features: []string{},
		IsActive: active,
	}
	m.committed.plans[plan.ID] = plan
	return plan
}

func (m *memStore) addBooking(id, vendorID string, total int64) *entity.Booking {
	booking := &entity.Booking{
		ID:         id,
		UserID:     "guest",
		HotelID:    "hotel-" + vendorID,
		VendorID:   vendorID,
		TotalPrice: decimal.NewFromInt(total),
		Status:     entity.BookingStatusCompleted,
	}
	m.committed.bookings = append(m.committed.bookings, booking)
	return booking
}

func (m *memStore) balance(ownerID string) decimal.Decimal {
	return m.committed.wallets[ownerID].Balance
}

func (m *memStore) activeRows(userID string) int {
	n := 0
	for _, h := range m.committed.history {
		if h.UserID == userID && h.IsActive {
			n++
		}
	}
	return n
}

type memPlans struct{ *memStore }

func (p memPlans) Create(_ context.Context, plan *entity.SubscriptionPlan) error {
	st := p.committed
	for _, existing := range st.plans {
		if existing.Type == plan.Type || existing.Name == plan.Name {
			return repository.ErrPlanAlreadyExists
		}
	}
	plan.ID = st.id()
	c := *plan
	st.plans[plan.ID] = &c
	return nil
}

func (p memPlans) Update(_ context.Context, plan *entity.SubscriptionPlan) error {
	st := p.committed
	if _, ok := st.plans[plan.ID]; !ok {
		return repository.ErrPlanNotFound
	}
	for _, existing := range st.plans {
		if existing.ID != plan.ID && (existing.Type == plan.Type || existing.Name == plan.Name) {
			return repository.ErrPlanAlreadyExists
		}
	}
	c := *plan
	st.plans[plan.ID] = &c
	return nil
}

func (p memPlans) SetActive(_ context.Context, id uint64, active bool, updatedAt time.Time) (bool, error) {
	plan, ok := p.committed.plans[id]
	if !ok || plan.IsActive == active {
		return false, nil
	}
	plan.IsActive = active
	plan.UpdatedAt = updatedAt
	return true, nil
}

func (p memPlans) FindByID(_ context.Context, tx repository.DBTX, id uint64) (*entity.SubscriptionPlan, error) {
	plan, ok := p.state(tx).plans[id]
	if !ok {
		return nil, nil
	}
	c := *plan
	return &c, nil
}

func (p memPlans) FindByType(_ context.Context, planType string) (*entity.SubscriptionPlan, error) {
	for _, plan := range p.committed.plans {
		if plan.Type == planType {
			c := *plan
			return &c, nil
		}
	}
	return nil, nil
}

func (p memPlans) ListActive(ctx context.Context) ([]*entity.SubscriptionPlan, error) {
	all, _ := p.List(ctx)
	items := make([]*entity.SubscriptionPlan, 0)
	for _, plan := range all {
		if plan.IsActive {
			items = append(items, plan)
		}
	}
	return items, nil
}

func (p memPlans) List(context.Context) ([]*entity.SubscriptionPlan, error) {
	items := make([]*entity.SubscriptionPlan, 0)
	for id := uint64(1); id <= p.committed.nextID; id++ {
		if plan, ok := p.committed.plans[id]; ok {
			c := *plan
			items = append(items, &c)
		}
	}
	return items, nil
}

type memHistory struct{ *memStore }

func (h memHistory) Create(_ context.Context, tx repository.DBTX, history *entity.SubscriptionHistory) error {
	st := h.state(tx)
	history.ID = st.id()
	c := *history
	st.history = append(st.history, &c)
	return nil
}

func (h memHistory) FindActiveByUserForUpdate(_ context.Context, tx repository.DBTX, userID string) (*entity.SubscriptionHistory, error) {
	var found *entity.SubscriptionHistory
	for _, row := range h.state(tx).history {
		if row.UserID == userID && row.IsActive {
			if found == nil || row.ValidUntil.After(found.ValidUntil) {
				found = row
			}
		}
	}
	if found == nil {
		return nil, nil
	}
	c := *found
	return &c, nil
}

func (h memHistory) DeactivateAllActiveForUser(_ context.Context, tx repository.DBTX, userID string, now time.Time) (int64, error) {
	var n int64
	for _, row := range h.state(tx).history {
		if row.UserID == userID && row.IsActive {
			row.IsActive = false
			row.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

func (h memHistory) FindCurrentWithPlan(_ context.Context, userID string, now time.Time) (*entity.ActiveSubscription, error) {
	st := h.committed
	for _, row := range st.history {
		if row.UserID == userID && row.IsCurrent(now) {
			history := *row
			plan := *st.plans[row.SubscriptionID]
			return &entity.ActiveSubscription{History: &history, Plan: &plan}, nil
		}
	}
	return nil, nil
}

func (h memHistory) ListByUser(_ context.Context, userID string) ([]*entity.SubscriptionHistory, error) {
	items := make([]*entity.SubscriptionHistory, 0)
	for _, row := range h.committed.history {
		if row.UserID == userID {
			c := *row
			items = append(items, &c)
		}
	}
	return items, nil
}

func (h memHistory) ListExpiredActive(_ context.Context, now time.Time) ([]*entity.SubscriptionHistory, error) {
	items := make([]*entity.SubscriptionHistory, 0)
	for _, row := range h.committed.history {
		if row.IsActive && row.ValidUntil.Before(now) {
			c := *row
			items = append(items, &c)
		}
	}
	return items, nil
}

type memUsers struct{ *memStore }

func (u memUsers) FindByIDForUpdate(_ context.Context, tx repository.DBTX, id string) (*entity.User, error) {
	u.locked = append(u.locked, id)
	user, ok := u.state(tx).users[id]
	if !ok {
		return nil, nil
	}
	c := *user
	return &c, nil
}

func (u memUsers) FindAdmin(_ context.Context, tx repository.DBTX) (*entity.User, error) {
	for _, user := range u.state(tx).users {
		if user.Role == entity.UserRoleAdmin {
			c := *user
			return &c, nil
		}
	}
	return nil, nil
}

func (u memUsers) UpdateSubscriptionPointer(_ context.Context, tx repository.DBTX, userID string, pointer entity.SubscriptionPointer, now time.Time) error {
	user, ok := u.state(tx).users[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.SubscriptionID = pointer.SubscriptionID
	user.SubscriptionValidFrom = pointer.ValidFrom
	user.SubscriptionValidTo = pointer.ValidUntil
	user.UpdatedAt = now
	return nil
}

type memWallets struct{ *memStore }

func (w memWallets) FindByOwner(_ context.Context, tx repository.DBTX, ownerID string) (*entity.Wallet, error) {
	wallet, ok := w.state(tx).wallets[ownerID]
	if !ok {
		return nil, nil
	}
	c := *wallet
	return &c, nil
}

func (w memWallets) FindByOwnerForUpdate(ctx context.Context, tx repository.DBTX, ownerID string) (*entity.Wallet, error) {
	return w.FindByOwner(ctx, tx, ownerID)
}

func (w memWallets) AdjustBalance(_ context.Context, tx repository.DBTX, ownerID string, delta decimal.Decimal, now time.Time) error {
	if w.adjustErr != nil {
		if err := w.adjustErr(ownerID); err != nil {
			return err
		}
	}
	wallet, ok := w.state(tx).wallets[ownerID]
	if !ok {
		return repository.ErrWalletNotFound
	}
	wallet.Balance = wallet.Balance.Add(delta)
	wallet.UpdatedAt = now
	return nil
}

type memLedger struct{ *memStore }

func (l memLedger) Append(_ context.Context, tx repository.DBTX, item *entity.Transaction) error {
	if !item.Amount.IsPositive() {
		return repository.ErrInvalidTransactionAmount
	}
	st := l.state(tx)
	item.ID = st.id()
	item.TransactionID = fmt.Sprintf("TXN-%010d", item.ID)
	c := *item
	st.transactions = append(st.transactions, &c)
	return nil
}

type memBookings struct{ *memStore }

func (b memBookings) ListUnsettled(_ context.Context, tx repository.DBTX) ([]*entity.Booking, error) {
	items := make([]*entity.Booking, 0)
	for _, booking := range b.state(tx).bookings {
		if booking.Status == entity.BookingStatusCompleted && !booking.IsPlatformFeeSettled {
			c := *booking
			items = append(items, &c)
		}
	}
	return items, nil
}

func (b memBookings) MarkSettled(_ context.Context, tx repository.DBTX, bookingID string, settledAt time.Time) error {
	for _, booking := range b.state(tx).bookings {
		if booking.ID == bookingID && !booking.IsPlatformFeeSettled {
			booking.IsPlatformFeeSettled = true
			booking.PlatformFeeSettledAt = &settledAt
			return nil
		}
	}
	return repository.ErrBookingAlreadySettled
}

type fixture struct {
	store      *memStore
	ledger     *LedgerService
	plans      *PlanService
	subs       *SubscriptionService
	settlement *SettlementService
	clock      time.Time
}

func newFixture() *fixture {
	store := newMemStore()
	f := &fixture{store: store, clock: time.Date(2024, 1, 20, 9, 30, 0, 0, time.UTC)}
	clock := func() time.Time { return f.clock }

	f.ledger = NewLedgerService(memWallets{store}, memLedger{store})
	f.ledger.now = clock
	f.plans = NewPlanService(memPlans{store})
	f.plans.now = clock
	f.subs = NewSubscriptionService(store, memPlans{store}, memHistory{store}, memUsers{store}, memWallets{store}, f.ledger, store, time.UTC)
	f.subs.now = clock
	f.settlement = NewSettlementService(store, memBookings{store}, memUsers{store}, memWallets{store}, f.ledger, store, DefaultPlatformFeeRate)
	f.settlement.now = clock
	return f
}

// ledgerSums returns total credits and debits for rows tagged with entityType.
func (f *fixture) ledgerSums(entityType string) (credits, debits decimal.Decimal, rows int) {
	for _, row := range f.store.committed.transactions {
		if row.RelatedEntityType != entityType {
			continue
		}
		rows++
		if row.Type == entity.TransactionTypeCredit {
			credits = credits.Add(row.Amount)
		} else {
			debits = debits.Add(row.Amount)
		}
	}
	return credits, debits, rows
}
