// Package involvement exposes the one-commitment-per-day rule: checking
// whether a user is booked on a date and wiping a whole day in one go.
package involvement

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Ansingh0305/BroCab/internal/domain"
	"github.com/Ansingh0305/BroCab/internal/locker"
	"github.com/Ansingh0305/BroCab/internal/notify"
	"github.com/Ansingh0305/BroCab/internal/observability"
	"github.com/Ansingh0305/BroCab/internal/repository"
)

type InvolvementUseCase interface {
	CheckInvolvement(ctx context.Context, userID, date string) (*DayStatus, error)
	ClearInvolvement(ctx context.Context, userID, date string) (*ClearSummary, error)
}

// DayStatus answers "can this user commit to anything on this date".
type DayStatus struct {
	Date     string
	Involved bool
	Records  []domain.InvolvementRecord
}

type ClearSummary struct {
	RidesCancelled   int
	RidesWithdrawn   int
	PendingCancelled int
}

type InvolvementService struct {
	involvements repository.InvolvementRepository
	locker       *locker.KeyedLocker
	dispatch     notify.Dispatcher
	log          *slog.Logger
}

func NewInvolvementService(
	involvements repository.InvolvementRepository,
	keyed *locker.KeyedLocker,
	dispatch notify.Dispatcher,
	log *slog.Logger,
) *InvolvementService {
	return &InvolvementService{involvements: involvements, locker: keyed, dispatch: dispatch, log: log}
}

func (s *InvolvementService) CheckInvolvement(ctx context.Context, userID, date string) (*DayStatus, error) {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", domain.ErrValidation)
	}
	records, err := s.involvements.ListForDate(ctx, userID, date)
	if err != nil {
		return nil, err
	}
	return &DayStatus{Date: date, Involved: len(records) > 0, Records: records}, nil
}

// ClearInvolvement tears down everything tying the user to a date: rides
// they lead are cancelled, seats they hold are released, pending requests
// withdrawn. The store does it in one transaction; the keyed locks keep
// in-process single-ride operations out while it runs.
func (s *InvolvementService) ClearInvolvement(ctx context.Context, userID, date string) (*ClearSummary, error) {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", domain.ErrValidation)
	}

	records, err := s.involvements.ListForDate(ctx, userID, date)
	if err != nil {
		return nil, err
	}
	rideIDs := make([]int64, 0, len(records))
	for _, rec := range records {
		rideIDs = append(rideIDs, rec.RideID)
	}
	unlock := s.locker.LockAll(rideIDs)
	defer unlock()

	result, err := s.involvements.ClearForDate(ctx, userID, date)
	if err != nil {
		return nil, err
	}
	if result.Empty() {
		return nil, domain.ErrNotFound
	}

	for _, cleared := range result.CancelledRides {
		observability.RidesCancelledTotal.Inc()
		for _, riderID := range cleared.AcceptedRiders {
			s.dispatch.Emit(ctx, notify.Event{
				Type:        notify.EventRideCancelled,
				RideID:      cleared.Ride.ID,
				UserID:      riderID,
				ActorID:     userID,
				Origin:      cleared.Ride.Origin,
				Destination: cleared.Ride.Destination,
				Date:        cleared.Ride.Date,
				Departure:   cleared.Ride.Departure,
			})
		}
	}
	for _, withdrawn := range result.WithdrawnRides {
		s.dispatch.Emit(ctx, notify.Event{
			Type:        notify.EventParticipantRemoved,
			RideID:      withdrawn.Ride.ID,
			UserID:      withdrawn.Ride.LeaderID,
			ActorID:     userID,
			Origin:      withdrawn.Ride.Origin,
			Destination: withdrawn.Ride.Destination,
			Date:        withdrawn.Ride.Date,
			Departure:   withdrawn.Ride.Departure,
		})
	}

	s.log.Info("involvement cleared", "user_id", userID, "date", date,
		"rides_cancelled", len(result.CancelledRides),
		"rides_withdrawn", len(result.WithdrawnRides),
		"pending_cancelled", result.CancelledPending)
	return &ClearSummary{
		RidesCancelled:   len(result.CancelledRides),
		RidesWithdrawn:   len(result.WithdrawnRides),
		PendingCancelled: result.CancelledPending,
	}, nil
}

var _ InvolvementUseCase = (*InvolvementService)(nil)
