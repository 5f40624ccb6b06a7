package entity

import "time"

type Notification struct {
	ID        string
	UserID    string
	Title     string
	Message   string
	IsRead    bool
	CreatedAt time.Time
}
