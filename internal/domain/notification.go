package domain

import "time"

type Notification struct {
	ID        int64
	UserID    string
	Title     string
	Message   string
	Type      string
	RideID    int64
	IsRead    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
