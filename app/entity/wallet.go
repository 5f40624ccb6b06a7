package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TransactionTypeCredit = "credit"
	TransactionTypeDebit  = "debit"
)

const (
	RelatedEntitySubscription = "Subscription"
	RelatedEntityBooking      = "Booking"
)

type Wallet struct {
	ID        uint64
	OwnerID   string
	Balance   decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Transaction is an append-only ledger row. It is never updated after insert.
type Transaction struct {
	ID                uint64
	WalletID          uint64
	Type              string
	Amount            decimal.Decimal
	Description       string
	RelatedEntityID   string
	RelatedEntityType string
	TransactionID     string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
