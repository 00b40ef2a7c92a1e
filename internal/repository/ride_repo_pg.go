package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Ansingh0305/BroCab/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CancelOutcome reports who was attached to a ride when its leader pulled
// it, so the caller can notify them after the transaction commits.
type CancelOutcome struct {
	Ride            domain.Ride
	AcceptedRiders  []string
	PendingRequests []string
}

// CompletedRide is one ride removed by the expiry sweep.
type CompletedRide struct {
	Ride           domain.Ride
	AcceptedRiders []string
}

type RideRepository interface {
	Create(ctx context.Context, ride *domain.Ride) error
	GetByID(ctx context.Context, id int64) (*domain.Ride, error)
	Filter(ctx context.Context, origin, destination, date string) ([]domain.Ride, error)
	ListByLeader(ctx context.Context, leaderID string) ([]domain.Ride, error)
	ListByIDs(ctx context.Context, ids []int64) ([]domain.Ride, error)
	Cancel(ctx context.Context, rideID int64) (*CancelOutcome, error)
	CompleteExpired(ctx context.Context, before string) ([]CompletedRide, error)
}

type PGRideRepository struct {
	db *pgxpool.Pool
}

func NewRideRepository(db *pgxpool.Pool) RideRepository {
	return &PGRideRepository{db: db}
}

const rideColumns = `id, leader_id, origin, destination, date, departure, total_seats, seats_filled, price, status, created_at, updated_at`

func scanRide(row pgx.Row) (*domain.Ride, error) {
	var r domain.Ride
	if err := row.Scan(&r.ID, &r.LeaderID, &r.Origin, &r.Destination, &r.Date, &r.Departure, &r.TotalSeats, &r.SeatsFilled, &r.Price, &r.Status, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

// Create inserts the ride together with the leader's involvement row for
// that date. The unique index on involvements(user_id, date) rejects a
// second posting on a day the leader is already committed to.
func (r *PGRideRepository) Create(ctx context.Context, ride *domain.Ride) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	ride.Status = domain.RideStatusActive
	ride.SeatsFilled = 0
	err = tx.QueryRow(ctx, `INSERT INTO rides (leader_id, origin, destination, date, departure, total_seats, seats_filled, price, status)
		VALUES ($1, $2, $3, $4, $5, $6, 0, $7, $8)
		RETURNING id, created_at, updated_at`,
		ride.LeaderID, ride.Origin, ride.Destination, ride.Date, ride.Departure, ride.TotalSeats, ride.Price, ride.Status).
		Scan(&ride.ID, &ride.CreatedAt, &ride.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert ride: %w", err)
	}

	_, err = tx.Exec(ctx, `INSERT INTO involvements (user_id, date, ride_id, role) VALUES ($1, $2, $3, $4)`,
		ride.LeaderID, ride.Date, ride.ID, domain.RoleLeader)
	if isUniqueViolation(err) {
		return domain.ErrInvolvementConflict
	}
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *PGRideRepository) GetByID(ctx context.Context, id int64) (*domain.Ride, error) {
	ride, err := scanRide(r.db.QueryRow(ctx, `SELECT `+rideColumns+` FROM rides WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return ride, err
}

func (r *PGRideRepository) Filter(ctx context.Context, origin, destination, date string) ([]domain.Ride, error) {
	rows, err := r.db.Query(ctx, `SELECT `+rideColumns+` FROM rides
		WHERE origin=$1 AND destination=$2 AND date=$3 AND status=$4 ORDER BY departure`,
		origin, destination, date, domain.RideStatusActive)
	if err != nil {
		return nil, err
	}
	return collectRides(rows)
}

func (r *PGRideRepository) ListByLeader(ctx context.Context, leaderID string) ([]domain.Ride, error) {
	rows, err := r.db.Query(ctx, `SELECT `+rideColumns+` FROM rides WHERE leader_id=$1 ORDER BY date, departure`, leaderID)
	if err != nil {
		return nil, err
	}
	return collectRides(rows)
}

func (r *PGRideRepository) ListByIDs(ctx context.Context, ids []int64) ([]domain.Ride, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.db.Query(ctx, `SELECT `+rideColumns+` FROM rides WHERE id = ANY($1) ORDER BY date, departure`, ids)
	if err != nil {
		return nil, err
	}
	return collectRides(rows)
}

func collectRides(rows pgx.Rows) ([]domain.Ride, error) {
	defer rows.Close()
	rides := make([]domain.Ride, 0)
	for rows.Next() {
		ride, err := scanRide(rows)
		if err != nil {
			return nil, err
		}
		rides = append(rides, *ride)
	}
	return rides, rows.Err()
}

// Cancel marks the ride cancelled and sweeps its requests and involvement
// rows in one transaction. Riders learn about it from the outcome, not from
// the transaction itself.
func (r *PGRideRepository) Cancel(ctx context.Context, rideID int64) (*CancelOutcome, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ride, err := scanRide(tx.QueryRow(ctx, `UPDATE rides SET status=$1, updated_at=now() WHERE id=$2 AND status=$3 RETURNING `+rideColumns,
		domain.RideStatusCancelled, rideID, domain.RideStatusActive))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	outcome := &CancelOutcome{Ride: *ride}
	outcome.AcceptedRiders, outcome.PendingRequests, err = cancelRideRequests(ctx, tx, rideID)
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM involvements WHERE ride_id=$1`, rideID); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return outcome, nil
}

func cancelRideRequests(ctx context.Context, tx pgx.Tx, rideID int64) (accepted, pending []string, err error) {
	rows, err := tx.Query(ctx, `SELECT rider_id, status FROM requests
		WHERE ride_id=$1 AND status IN ($2, $3) FOR UPDATE`,
		rideID, domain.RequestStatusPending, domain.RequestStatusAccepted)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var riderID string
		var status domain.RequestStatus
		if err := rows.Scan(&riderID, &status); err != nil {
			return nil, nil, err
		}
		if status == domain.RequestStatusAccepted {
			accepted = append(accepted, riderID)
		} else {
			pending = append(pending, riderID)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	rows.Close()

	_, err = tx.Exec(ctx, `UPDATE requests SET status=$1, updated_at=now()
		WHERE ride_id=$2 AND status IN ($3, $4)`,
		domain.RequestStatusCancelled, rideID, domain.RequestStatusPending, domain.RequestStatusAccepted)
	if err != nil {
		return nil, nil, err
	}
	return accepted, pending, nil
}

// CompleteExpired removes every ride dated strictly before the given day,
// with its requests and involvement rows, in one transaction. Notifications
// stay behind as ride history.
func (r *PGRideRepository) CompleteExpired(ctx context.Context, before string) ([]CompletedRide, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `SELECT `+rideColumns+` FROM rides WHERE date < $1 FOR UPDATE`, before)
	if err != nil {
		return nil, err
	}
	expired, err := collectRides(rows)
	if err != nil {
		return nil, err
	}
	if len(expired) == 0 {
		return nil, tx.Commit(ctx)
	}

	completed := make([]CompletedRide, 0, len(expired))
	for _, ride := range expired {
		riders, err := acceptedRiders(ctx, tx, ride.ID)
		if err != nil {
			return nil, err
		}
		completed = append(completed, CompletedRide{Ride: ride, AcceptedRiders: riders})
	}

	ids := make([]int64, 0, len(expired))
	for _, ride := range expired {
		ids = append(ids, ride.ID)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM requests WHERE ride_id = ANY($1)`, ids); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM involvements WHERE ride_id = ANY($1)`, ids); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM rides WHERE id = ANY($1)`, ids); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return completed, nil
}

func acceptedRiders(ctx context.Context, tx pgx.Tx, rideID int64) ([]string, error) {
	rows, err := tx.Query(ctx, `SELECT rider_id FROM requests WHERE ride_id=$1 AND status=$2`, rideID, domain.RequestStatusAccepted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var riders []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		riders = append(riders, id)
	}
	return riders, rows.Err()
}

var _ RideRepository = (*PGRideRepository)(nil)
