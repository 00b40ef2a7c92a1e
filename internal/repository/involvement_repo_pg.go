package repository

import (
	"context"
	"fmt"

	"github.com/Ansingh0305/BroCab/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ClearedRide is a ride the user led that got cancelled by clearing, with
// the accepted riders who need a cancellation notice.
type ClearedRide struct {
	Ride           domain.Ride
	AcceptedRiders []string
}

// WithdrawnRide is a ride the user sat on as an accepted rider; the leader
// gets a participant-removed notice.
type WithdrawnRide struct {
	Ride domain.Ride
}

type ClearResult struct {
	CancelledRides   []ClearedRide
	WithdrawnRides   []WithdrawnRide
	CancelledPending int
}

func (r *ClearResult) Empty() bool {
	return len(r.CancelledRides) == 0 && len(r.WithdrawnRides) == 0 && r.CancelledPending == 0
}

type InvolvementRepository interface {
	HasForDate(ctx context.Context, userID, date string) (bool, error)
	ListForDate(ctx context.Context, userID, date string) ([]domain.InvolvementRecord, error)
	RideIDsForUser(ctx context.Context, userID string, role domain.Role) ([]int64, error)
	// ClearForDate runs the whole cascade in one transaction: rides the
	// user leads on that date are cancelled with their requests, rides the
	// user sits on release the seat, and every involvement row for the
	// date goes away. Partial completion is never observable.
	ClearForDate(ctx context.Context, userID, date string) (*ClearResult, error)
}

type PGInvolvementRepository struct {
	db *pgxpool.Pool
}

func NewInvolvementRepository(db *pgxpool.Pool) InvolvementRepository {
	return &PGInvolvementRepository{db: db}
}

func (r *PGInvolvementRepository) HasForDate(ctx context.Context, userID, date string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM involvements WHERE user_id=$1 AND date=$2)`, userID, date).Scan(&exists)
	return exists, err
}

func (r *PGInvolvementRepository) ListForDate(ctx context.Context, userID, date string) ([]domain.InvolvementRecord, error) {
	rows, err := r.db.Query(ctx, `SELECT user_id, date, ride_id, role, created_at FROM involvements WHERE user_id=$1 AND date=$2 ORDER BY ride_id`, userID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	records := make([]domain.InvolvementRecord, 0)
	for rows.Next() {
		var rec domain.InvolvementRecord
		if err := rows.Scan(&rec.UserID, &rec.Date, &rec.RideID, &rec.Role, &rec.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *PGInvolvementRepository) RideIDsForUser(ctx context.Context, userID string, role domain.Role) ([]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT ride_id FROM involvements WHERE user_id=$1 AND role=$2 ORDER BY ride_id`, userID, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *PGInvolvementRepository) ClearForDate(ctx context.Context, userID, date string) (*ClearResult, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	records, err := lockInvolvements(ctx, tx, userID, date)
	if err != nil {
		return nil, err
	}

	result := &ClearResult{}
	for _, rec := range records {
		switch rec.Role {
		case domain.RoleLeader:
			cleared, err := cancelLedRide(ctx, tx, rec.RideID)
			if err != nil {
				return nil, err
			}
			result.CancelledRides = append(result.CancelledRides, *cleared)
		case domain.RoleRider:
			withdrawn, err := withdrawRider(ctx, tx, rec.RideID, userID)
			if err != nil {
				return nil, err
			}
			result.WithdrawnRides = append(result.WithdrawnRides, *withdrawn)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM involvements WHERE user_id=$1 AND ride_id=$2`, userID, rec.RideID); err != nil {
			return nil, err
		}
	}

	// Pending requests never created involvement; sweep them for the date
	// as well so clearing really leaves the day blank.
	cmd, err := tx.Exec(ctx, `UPDATE requests SET status=$1, updated_at=now()
		WHERE rider_id=$2 AND status=$3
		AND ride_id IN (SELECT id FROM rides WHERE date=$4)`,
		domain.RequestStatusCancelled, userID, domain.RequestStatusPending, date)
	if err != nil {
		return nil, err
	}
	result.CancelledPending = int(cmd.RowsAffected())

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return result, nil
}

// lockInvolvements takes row locks on the user's involvements and their
// rides in ascending ride id order, matching the keyed-mutex order used by
// single-ride operations.
func lockInvolvements(ctx context.Context, tx pgx.Tx, userID, date string) ([]domain.InvolvementRecord, error) {
	rows, err := tx.Query(ctx, `SELECT i.user_id, i.date, i.ride_id, i.role, i.created_at
		FROM involvements i
		JOIN rides r ON r.id = i.ride_id
		WHERE i.user_id=$1 AND i.date=$2
		ORDER BY i.ride_id
		FOR UPDATE OF i, r`, userID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	records := make([]domain.InvolvementRecord, 0)
	for rows.Next() {
		var rec domain.InvolvementRecord
		if err := rows.Scan(&rec.UserID, &rec.Date, &rec.RideID, &rec.Role, &rec.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func cancelLedRide(ctx context.Context, tx pgx.Tx, rideID int64) (*ClearedRide, error) {
	ride, err := scanRide(tx.QueryRow(ctx, `UPDATE rides SET status=$1, updated_at=now() WHERE id=$2 RETURNING `+rideColumns,
		domain.RideStatusCancelled, rideID))
	if err != nil {
		return nil, fmt.Errorf("cancel ride %d: %w", rideID, err)
	}
	accepted, _, err := cancelRideRequests(ctx, tx, rideID)
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM involvements WHERE ride_id=$1`, rideID); err != nil {
		return nil, err
	}
	return &ClearedRide{Ride: *ride, AcceptedRiders: accepted}, nil
}

func withdrawRider(ctx context.Context, tx pgx.Tx, rideID int64, riderID string) (*WithdrawnRide, error) {
	ride, err := scanRide(tx.QueryRow(ctx, `UPDATE rides SET seats_filled = seats_filled - 1, updated_at=now()
		WHERE id=$1 AND seats_filled > 0 RETURNING `+rideColumns, rideID))
	if err != nil {
		return nil, fmt.Errorf("release seat on ride %d: %w", rideID, err)
	}
	_, err = tx.Exec(ctx, `UPDATE requests SET status=$1, updated_at=now() WHERE ride_id=$2 AND rider_id=$3 AND status=$4`,
		domain.RequestStatusCancelled, rideID, riderID, domain.RequestStatusAccepted)
	if err != nil {
		return nil, err
	}
	return &WithdrawnRide{Ride: *ride}, nil
}

var _ InvolvementRepository = (*PGInvolvementRepository)(nil)
