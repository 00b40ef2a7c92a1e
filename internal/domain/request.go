package domain

import "time"

type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "PENDING"
	RequestStatusAccepted  RequestStatus = "ACCEPTED"
	RequestStatusRejected  RequestStatus = "REJECTED"
	RequestStatusCancelled RequestStatus = "CANCELLED"
)

// JoinRequest is one rider's attempt to take a seat on one ride. Only
// PENDING is non-terminal; once a request leaves PENDING it never changes
// again, a re-request creates a fresh row.
type JoinRequest struct {
	ID        int64
	RideID    int64
	RiderID   string
	Status    RequestStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (s RequestStatus) Terminal() bool {
	return s != RequestStatusPending
}
