package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/vibast-solutions/ms-go-hotel-billing/app/entity"
)

const historyColumns = `id, user_id, subscription_id, subscribed_at, valid_from, valid_until, is_active, payment_amount, created_at, updated_at`

type SubscriptionHistoryRepository struct {
	db DBTX
}

func NewSubscriptionHistoryRepository(db DBTX) *SubscriptionHistoryRepository {
	return &SubscriptionHistoryRepository{db: db}
}

// Create inserts a history row. Callers enforcing the single-active-row rule
// must deactivate prior rows in the same transaction first.
func (r *SubscriptionHistoryRepository) Create(ctx context.Context, tx DBTX, history *entity.SubscriptionHistory) error {
	query := `
		INSERT INTO subscription_history (
			user_id, subscription_id, subscribed_at, valid_from, valid_until,
			is_active, payment_amount, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := pick(tx, r.db).ExecContext(ctx, query,
		history.UserID,
		history.SubscriptionID,
		history.SubscribedAt,
		history.ValidFrom,
		history.ValidUntil,
		history.IsActive,
		history.PaymentAmount,
		history.CreatedAt,
		history.UpdatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	history.ID = uint64(id)
	return nil
}

func (r *SubscriptionHistoryRepository) FindActiveByUser(ctx context.Context, tx DBTX, userID string) (*entity.SubscriptionHistory, error) {
	query := `
		SELECT ` + historyColumns + `
		FROM subscription_history
		WHERE user_id = ? AND is_active = 1
		ORDER BY valid_until DESC, id DESC
		LIMIT 1
	`
	return r.findOne(ctx, pick(tx, r.db), query, userID)
}

// FindActiveByUserForUpdate locks the active row so that concurrent cancels
// for the same user serialise on it.
func (r *SubscriptionHistoryRepository) FindActiveByUserForUpdate(ctx context.Context, tx DBTX, userID string) (*entity.SubscriptionHistory, error) {
	query := `
		SELECT ` + historyColumns + `
		FROM subscription_history
		WHERE user_id = ? AND is_active = 1
		ORDER BY valid_until DESC, id DESC
		LIMIT 1
		FOR UPDATE
	`
	return r.findOne(ctx, pick(tx, r.db), query, userID)
}

func (r *SubscriptionHistoryRepository) DeactivateAllActiveForUser(ctx context.Context, tx DBTX, userID string, now time.Time) (int64, error) {
	query := `
		UPDATE subscription_history
		SET is_active = 0, updated_at = ?
		WHERE user_id = ? AND is_active = 1
	`

	result, err := pick(tx, r.db).ExecContext(ctx, query, now, userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// FindCurrentWithPlan returns the active row whose validity window contains
// now, joined with its plan.
func (r *SubscriptionHistoryRepository) FindCurrentWithPlan(ctx context.Context, userID string, now time.Time) (*entity.ActiveSubscription, error) {
	query := `
		SELECT h.id, h.user_id, h.subscription_id, h.subscribed_at, h.valid_from, h.valid_until,
		       h.is_active, h.payment_amount, h.created_at, h.updated_at,
		       p.id, p.name, p.description, p.type, p.price, p.duration, p.features,
		       p.is_active, p.created_at, p.updated_at
		FROM subscription_history h
		INNER JOIN subscription_plans p ON p.id = h.subscription_id
		WHERE h.user_id = ?
		  AND h.is_active = 1
		  AND h.valid_from <= ?
		  AND h.valid_until >= ?
		ORDER BY h.valid_until DESC, h.id DESC
		LIMIT 1
	`

	history := &entity.SubscriptionHistory{}
	plan := &entity.SubscriptionPlan{}
	var description sql.NullString
	var features sql.NullString
	err := r.db.QueryRowContext(ctx, query, userID, now, now).Scan(
		&history.ID,
		&history.UserID,
		&history.SubscriptionID,
		&history.SubscribedAt,
		&history.ValidFrom,
		&history.ValidUntil,
		&history.IsActive,
		&history.PaymentAmount,
		&history.CreatedAt,
		&history.UpdatedAt,
		&plan.ID,
		&plan.Name,
		&description,
		&plan.Type,
		&plan.Price,
		&plan.Duration,
		&features,
		&plan.IsActive,
		&plan.CreatedAt,
		&plan.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if description.Valid {
		plan.Description = description.String
	}
	if plan.Features, err = decodeFeatures(features); err != nil {
		return nil, err
	}

	return &entity.ActiveSubscription{History: history, Plan: plan}, nil
}

func (r *SubscriptionHistoryRepository) ListByUser(ctx context.Context, userID string) ([]*entity.SubscriptionHistory, error) {
	query := `
		SELECT ` + historyColumns + `
		FROM subscription_history
		WHERE user_id = ?
		ORDER BY subscribed_at DESC, id DESC
	`
	return r.listByQuery(ctx, query, userID)
}

func (r *SubscriptionHistoryRepository) ListExpiredActive(ctx context.Context, now time.Time) ([]*entity.SubscriptionHistory, error) {
	query := `
		SELECT ` + historyColumns + `
		FROM subscription_history
		WHERE is_active = 1
		  AND valid_until < ?
		ORDER BY id ASC
	`
	return r.listByQuery(ctx, query, now)
}

func (r *SubscriptionHistoryRepository) findOne(ctx context.Context, db DBTX, query string, args ...interface{}) (*entity.SubscriptionHistory, error) {
	item := &entity.SubscriptionHistory{}
	if err := scanHistory(db.QueryRowContext(ctx, query, args...), item); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return item, nil
}

func (r *SubscriptionHistoryRepository) listByQuery(ctx context.Context, query string, args ...interface{}) ([]*entity.SubscriptionHistory, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*entity.SubscriptionHistory, 0)
	for rows.Next() {
		item := &entity.SubscriptionHistory{}
		if err := scanHistory(rows, item); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

func scanHistory(scanner rowScanner, item *entity.SubscriptionHistory) error {
	return scanner.Scan(
		&item.ID,
		&item.UserID,
		&item.SubscriptionID,
		&item.SubscribedAt,
		&item.ValidFrom,
		&item.ValidUntil,
		&item.IsActive,
		&item.PaymentAmount,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
}
