package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

const BookingStatusCompleted = "completed"

type Booking struct {
	ID                   string
	UserID               string
	HotelID              string
	VendorID             string
	TotalPrice           decimal.Decimal
	Status               string
	IsPlatformFeeSettled bool
	PlatformFeeSettledAt *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}
