package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Ansingh0305/BroCab/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RequestRepository interface {
	CreatePending(ctx context.Context, req *domain.JoinRequest) error
	GetByID(ctx context.Context, id int64) (*domain.JoinRequest, error)
	ListByRideAndRider(ctx context.Context, rideID int64, riderID string) ([]domain.JoinRequest, error)
	ListPendingForRide(ctx context.Context, rideID int64) ([]domain.JoinRequest, error)
	ListByRider(ctx context.Context, riderID string) ([]domain.JoinRequest, error)
	// UpdateStatus flips a request from one state to another and fails with
	// ErrInvalidState when the request already left the expected state.
	UpdateStatus(ctx context.Context, id int64, from, to domain.RequestStatus) (*domain.JoinRequest, error)
	// Accept is the one step that consumes capacity: status flip, seat
	// increment and the rider's involvement row commit together or not at
	// all.
	Accept(ctx context.Context, id int64) (*domain.JoinRequest, error)
}

type PGRequestRepository struct {
	db *pgxpool.Pool
}

func NewRequestRepository(db *pgxpool.Pool) RequestRepository {
	return &PGRequestRepository{db: db}
}

const requestColumns = `id, ride_id, rider_id, status, created_at, updated_at`

func scanRequest(row pgx.Row) (*domain.JoinRequest, error) {
	var req domain.JoinRequest
	if err := row.Scan(&req.ID, &req.RideID, &req.RiderID, &req.Status, &req.CreatedAt, &req.UpdatedAt); err != nil {
		return nil, err
	}
	return &req, nil
}

// CreatePending inserts a fresh PENDING row. A partial unique index on
// (ride_id, rider_id) WHERE status='PENDING' backs the one-pending-request
// invariant across processes; a violation surfaces as ErrConflict so the
// caller can re-read and return the winner's row.
func (r *PGRequestRepository) CreatePending(ctx context.Context, req *domain.JoinRequest) error {
	req.Status = domain.RequestStatusPending
	err := r.db.QueryRow(ctx, `INSERT INTO requests (ride_id, rider_id, status)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`,
		req.RideID, req.RiderID, req.Status).
		Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt)
	if isUniqueViolation(err) {
		return domain.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert request: %w", err)
	}
	return nil
}

func (r *PGRequestRepository) GetByID(ctx context.Context, id int64) (*domain.JoinRequest, error) {
	req, err := scanRequest(r.db.QueryRow(ctx, `SELECT `+requestColumns+` FROM requests WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return req, err
}

func (r *PGRequestRepository) ListByRideAndRider(ctx context.Context, rideID int64, riderID string) ([]domain.JoinRequest, error) {
	rows, err := r.db.Query(ctx, `SELECT `+requestColumns+` FROM requests WHERE ride_id=$1 AND rider_id=$2 ORDER BY created_at`, rideID, riderID)
	if err != nil {
		return nil, err
	}
	return collectRequests(rows)
}

func (r *PGRequestRepository) ListPendingForRide(ctx context.Context, rideID int64) ([]domain.JoinRequest, error) {
	rows, err := r.db.Query(ctx, `SELECT `+requestColumns+` FROM requests WHERE ride_id=$1 AND status=$2 ORDER BY created_at`, rideID, domain.RequestStatusPending)
	if err != nil {
		return nil, err
	}
	return collectRequests(rows)
}

func (r *PGRequestRepository) ListByRider(ctx context.Context, riderID string) ([]domain.JoinRequest, error) {
	rows, err := r.db.Query(ctx, `SELECT `+requestColumns+` FROM requests WHERE rider_id=$1 ORDER BY created_at DESC`, riderID)
	if err != nil {
		return nil, err
	}
	return collectRequests(rows)
}

func collectRequests(rows pgx.Rows) ([]domain.JoinRequest, error) {
	defer rows.Close()
	requests := make([]domain.JoinRequest, 0)
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, *req)
	}
	return requests, rows.Err()
}

func (r *PGRequestRepository) UpdateStatus(ctx context.Context, id int64, from, to domain.RequestStatus) (*domain.JoinRequest, error) {
	req, err := scanRequest(r.db.QueryRow(ctx, `UPDATE requests SET status=$1, updated_at=now()
		WHERE id=$2 AND status=$3 RETURNING `+requestColumns, to, id, from))
	if errors.Is(err, pgx.ErrNoRows) {
		// Either gone or already terminal; the distinction is the
		// coordinator's to make from its earlier read.
		return nil, domain.ErrInvalidState
	}
	return req, err
}

func (r *PGRequestRepository) Accept(ctx context.Context, id int64) (*domain.JoinRequest, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	req, err := scanRequest(tx.QueryRow(ctx, `UPDATE requests SET status=$1, updated_at=now()
		WHERE id=$2 AND status=$3 RETURNING `+requestColumns,
		domain.RequestStatusAccepted, id, domain.RequestStatusPending))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrInvalidState
	}
	if err != nil {
		return nil, err
	}

	// Capacity check and increment are one statement; RequestJoin never
	// reserved anything, so this is where RideFull can still happen.
	var date string
	err = tx.QueryRow(ctx, `UPDATE rides SET seats_filled = seats_filled + 1, updated_at=now()
		WHERE id=$1 AND status=$2 AND seats_filled < total_seats - 1
		RETURNING date`, req.RideID, domain.RideStatusActive).Scan(&date)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrRideFull
	}
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `INSERT INTO involvements (user_id, date, ride_id, role) VALUES ($1, $2, $3, $4)`,
		req.RiderID, date, req.RideID, domain.RoleRider)
	if isUniqueViolation(err) {
		return nil, domain.ErrInvolvementConflict
	}
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return req, nil
}

var _ RequestRepository = (*PGRequestRepository)(nil)
