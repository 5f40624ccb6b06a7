package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/vibast-solutions/ms-go-hotel-billing/app/entity"
)

var ErrUserNotFound = errors.New("user not found")

const userColumns = `id, name, email, role, subscription_id, subscription_valid_from, subscription_valid_until, created_at, updated_at`

const userLockQuery = `SELECT ` + userColumns + ` FROM users WHERE id = ? FOR UPDATE`

type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// FindByIDForUpdate locks the user row for the rest of the transaction.
// Every workflow that touches a user's subscription state takes this lock
// first, so they serialise per user even when no history row exists yet.
func (r *UserRepository) FindByIDForUpdate(ctx context.Context, tx DBTX, id string) (*entity.User, error) {
	return r.findOne(ctx, pick(tx, r.db), userLockQuery, id)
}

// FindAdmin resolves the platform actor: the oldest user with the admin role.
func (r *UserRepository) FindAdmin(ctx context.Context, tx DBTX) (*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE role = ? ORDER BY created_at ASC, id ASC LIMIT 1`
	return r.findOne(ctx, pick(tx, r.db), query, entity.UserRoleAdmin)
}

func (r *UserRepository) UpdateSubscriptionPointer(ctx context.Context, tx DBTX, userID string, pointer entity.SubscriptionPointer, now time.Time) error {
	query := `
		UPDATE users
		SET subscription_id = ?, subscription_valid_from = ?, subscription_valid_until = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := pick(tx, r.db).ExecContext(ctx, query,
		nullableUint64Value(pointer.SubscriptionID),
		nullableTimeValue(pointer.ValidFrom),
		nullableTimeValue(pointer.ValidUntil),
		now,
		userID,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) findOne(ctx context.Context, db DBTX, query string, args ...interface{}) (*entity.User, error) {
	item := &entity.User{}
	if err := scanUser(db.QueryRowContext(ctx, query, args...), item); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return item, nil
}

func scanUser(scanner rowScanner, item *entity.User) error {
	var subscriptionID sql.NullInt64
	var validFrom sql.NullTime
	var validTo sql.NullTime

	err := scanner.Scan(
		&item.ID,
		&item.Name,
		&item.Email,
		&item.Role,
		&subscriptionID,
		&validFrom,
		&validTo,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return err
	}

	item.SubscriptionID = nil
	if subscriptionID.Valid {
		v := uint64(subscriptionID.Int64)
		item.SubscriptionID = &v
	}
	item.SubscriptionValidFrom = nil
	if validFrom.Valid {
		item.SubscriptionValidFrom = &validFrom.Time
	}
	item.SubscriptionValidTo = nil
	if validTo.Valid {
		item.SubscriptionValidTo = &validTo.Time
	}

	return nil
}
