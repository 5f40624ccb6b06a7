package entity

import "time"

const (
	UserRoleUser   = "user"
	UserRoleVendor = "vendor"
	UserRoleAdmin  = "admin"
)

type User struct {
	ID                    string
	Name                  string
	Email                 string
	Role                  string
	SubscriptionID        *uint64
	SubscriptionValidFrom *time.Time
	SubscriptionValidTo   *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

type SubscriptionPointer struct {
	SubscriptionID *uint64
	ValidFrom      *time.Time
	ValidUntil     *time.Time
}
