// Package pricing derives the advertised per-person price for a ride.
// The value is recomputed from the current seat count on every read and is
// never persisted, so it can't go stale after a concurrent acceptance.
package pricing

import "math"

// ApproxPrice splits totalPrice across the people sharing the cost and
// rounds to the nearest multiple of 10. With no riders accepted yet the
// split assumes every passenger seat gets taken; once riders are on board
// the leader shares the cost with them, hence filledSeats+1.
//
// totalSeats includes the leader's seat; callers must have validated
// totalSeats >= 2 at ride creation, otherwise the divisor degenerates.
func ApproxPrice(totalPrice float64, totalSeats, filledSeats int) int {
	passengerSeats := totalSeats - 1
	divisor := passengerSeats
	if filledSeats > 0 {
		divisor = filledSeats + 1
	}
	if divisor <= 0 {
		return 0
	}
	exact := totalPrice / float64(divisor)
	return int(math.Round(exact/10) * 10)
}
