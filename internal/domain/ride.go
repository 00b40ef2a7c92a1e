package domain

import "time"

type RideStatus string

const (
	RideStatusActive    RideStatus = "ACTIVE"
	RideStatusCancelled RideStatus = "CANCELLED"
)

// Ride is a posted trip. The leader occupies one seat implicitly, so only
// TotalSeats-1 passenger seats are ever handed out. SeatsFilled counts
// accepted riders only; pending requests do not consume capacity.
type Ride struct {
	ID          int64
	LeaderID    string
	Origin      string
	Destination string
	Date        string // calendar day, "2006-01-02"
	Departure   string // "15:04"
	TotalSeats  int
	SeatsFilled int
	Price       float64 // total cost for the whole ride
	Status      RideStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (r *Ride) PassengerSeats() int {
	return r.TotalSeats - 1
}

func (r *Ride) SeatsLeft() int {
	return r.PassengerSeats() - r.SeatsFilled
}

func (r *Ride) IsFull() bool {
	return r.SeatsFilled >= r.PassengerSeats()
}
