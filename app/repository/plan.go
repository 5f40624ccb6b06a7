package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vibast-solutions/ms-go-hotel-billing/app/entity"
)

var (
	ErrPlanNotFound      = errors.New("subscription plan not found")
	ErrPlanAlreadyExists = errors.New("subscription plan already exists")
)

const planColumns = `id, name, description, type, price, duration, features, is_active, created_at, updated_at`

type PlanRepository struct {
	db DBTX
}

func NewPlanRepository(db DBTX) *PlanRepository {
	return &PlanRepository{db: db}
}

func (r *PlanRepository) Create(ctx context.Context, plan *entity.SubscriptionPlan) error {
	features, err := encodeFeatures(plan.Features)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO subscription_plans (
			name, description, type, price, duration, features, is_active, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		plan.Name,
		plan.Description,
		plan.Type,
		plan.Price,
		plan.Duration,
		features,
		plan.IsActive,
		plan.CreatedAt,
		plan.UpdatedAt,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrPlanAlreadyExists
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	plan.ID = uint64(id)
	return nil
}

func (r *PlanRepository) Update(ctx context.Context, plan *entity.SubscriptionPlan) error {
	features, err := encodeFeatures(plan.Features)
	if err != nil {
		return err
	}

	query := `
		UPDATE subscription_plans
		SET name = ?, description = ?, type = ?, price = ?, duration = ?, features = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		plan.Name,
		plan.Description,
		plan.Type,
		plan.Price,
		plan.Duration,
		features,
		plan.UpdatedAt,
		plan.ID,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrPlanAlreadyExists
		}
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrPlanNotFound
	}
	return nil
}

// SetActive flips is_active only when the plan is currently in the opposite
// state. It reports false when no row changed.
func (r *PlanRepository) SetActive(ctx context.Context, id uint64, active bool, updatedAt time.Time) (bool, error) {
	query := `
		UPDATE subscription_plans
		SET is_active = ?, updated_at = ?
		WHERE id = ? AND is_active = ?
	`

	result, err := r.db.ExecContext(ctx, query, active, updatedAt, id, !active)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *PlanRepository) FindByID(ctx context.Context, tx DBTX, id uint64) (*entity.SubscriptionPlan, error) {
	query := `SELECT ` + planColumns + ` FROM subscription_plans WHERE id = ?`

	item := &entity.SubscriptionPlan{}
	if err := scanPlan(pick(tx, r.db).QueryRowContext(ctx, query, id), item); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return item, nil
}

func (r *PlanRepository) FindByType(ctx context.Context, planType string) (*entity.SubscriptionPlan, error) {
	query := `SELECT ` + planColumns + ` FROM subscription_plans WHERE type = ? LIMIT 1`

	item := &entity.SubscriptionPlan{}
	if err := scanPlan(r.db.QueryRowContext(ctx, query, planType), item); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return item, nil
}

func (r *PlanRepository) ListActive(ctx context.Context) ([]*entity.SubscriptionPlan, error) {
	query := `SELECT ` + planColumns + ` FROM subscription_plans WHERE is_active = 1 ORDER BY price ASC, id ASC`
	return r.listByQuery(ctx, query)
}

func (r *PlanRepository) List(ctx context.Context) ([]*entity.SubscriptionPlan, error) {
	query := `SELECT ` + planColumns + ` FROM subscription_plans ORDER BY id ASC`
	return r.listByQuery(ctx, query)
}

func (r *PlanRepository) listByQuery(ctx context.Context, query string, args ...interface{}) ([]*entity.SubscriptionPlan, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*entity.SubscriptionPlan, 0)
	for rows.Next() {
		item := &entity.SubscriptionPlan{}
		if err := scanPlan(rows, item); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

func scanPlan(scanner rowScanner, item *entity.SubscriptionPlan) error {
	var description sql.NullString
	var features sql.NullString

	err := scanner.Scan(
		&item.ID,
		&item.Name,
		&description,
		&item.Type,
		&item.Price,
		&item.Duration,
		&features,
		&item.IsActive,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return err
	}

	if description.Valid {
		item.Description = description.String
	}
	item.Features, err = decodeFeatures(features)
	return err
}

func encodeFeatures(features []string) (string, error) {
	if features == nil {
		features = []string{}
	}
	raw, err := json.Marshal(features)
	if err != nil {
		return "", fmt.Errorf("encode plan features: %w", err)
	}
	return string(raw), nil
}

func decodeFeatures(raw sql.NullString) ([]string, error) {
	features := make([]string, 0)
	if !raw.Valid || raw.String == "" {
		return features, nil
	}
	if err := json.Unmarshal([]byte(raw.String), &features); err != nil {
		return nil, fmt.Errorf("decode plan features: %w", err)
	}
	return features, nil
}
