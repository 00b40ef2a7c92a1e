package domain

import "time"

type Role string

const (
	RoleLeader Role = "LEADER"
	RoleRider  Role = "RIDER"
)

// InvolvementRecord pins a user to one ride on one calendar day, either as
// the leader (created when the ride is posted) or as a rider (created at
// acceptance, never at request time). A user holds at most one record per
// date until it is cleared.
type InvolvementRecord struct {
	UserID    string
	Date      string
	RideID    int64
	Role      Role
	CreatedAt time.Time
}
