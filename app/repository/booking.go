package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/vibast-solutions/ms-go-hotel-billing/app/entity"
)

var ErrBookingAlreadySettled = errors.New("booking already settled")

type BookingRepository struct {
	db DBTX
}

func NewBookingRepository(db DBTX) *BookingRepository {
	return &BookingRepository{db: db}
}

// ListUnsettled returns completed bookings whose platform fee has not been
// taken yet, locking them for the rest of the transaction.
func (r *BookingRepository) ListUnsettled(ctx context.Context, tx DBTX) ([]*entity.Booking, error) {
	query := `
		SELECT b.id, b.user_id, b.hotel_id, h.vendor_id, b.total_price, b.status,
		       b.is_platform_fee_settled, b.platform_fee_settled_at, b.created_at, b.updated_at
		FROM bookings b
		INNER JOIN hotels h ON h.id = b.hotel_id
		WHERE b.status = ?
		  AND b.is_platform_fee_settled = 0
		ORDER BY b.created_at ASC, b.id ASC
		FOR UPDATE OF b
	`

	rows, err := pick(tx, r.db).QueryContext(ctx, query, entity.BookingStatusCompleted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*entity.Booking, 0)
	for rows.Next() {
		item := &entity.Booking{}
		if err := scanBooking(rows, item); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

func (r *BookingRepository) MarkSettled(ctx context.Context, tx DBTX, bookingID string, settledAt time.Time) error {
	query := `
		UPDATE bookings
		SET is_platform_fee_settled = 1, platform_fee_settled_at = ?, updated_at = ?
		WHERE id = ? AND is_platform_fee_settled = 0
	`

	result, err := pick(tx, r.db).ExecContext(ctx, query, settledAt, settledAt, bookingID)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrBookingAlreadySettled
	}
	return nil
}

func scanBooking(scanner rowScanner, item *entity.Booking) error {
	var settledAt sql.NullTime

	err := scanner.Scan(
		&item.ID,
		&item.UserID,
		&item.HotelID,
		&item.VendorID,
		&item.TotalPrice,
		&item.Status,
		&item.IsPlatformFeeSettled,
		&settledAt,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return err
	}

	item.PlatformFeeSettledAt = nil
	if settledAt.Valid {
		item.PlatformFeeSettledAt = &settledAt.Time
	}
	return nil
}
