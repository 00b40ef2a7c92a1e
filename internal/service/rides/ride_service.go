// Package rides covers the ride lifecycle around the join-request flow:
// posting, searching, the owner's and participant's ride lists,
// cancellation, and the expiry sweep.
package rides

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Ansingh0305/BroCab/internal/domain"
	"github.com/Ansingh0305/BroCab/internal/locker"
	"github.com/Ansingh0305/BroCab/internal/notify"
	"github.com/Ansingh0305/BroCab/internal/observability"
	"github.com/Ansingh0305/BroCab/internal/pricing"
	"github.com/Ansingh0305/BroCab/internal/repository"
)

type RideUseCase interface {
	CreateRide(ctx context.Context, input CreateRideInput) (*domain.Ride, error)
	Filter(ctx context.Context, origin, destination, date string) ([]RideView, error)
	GetRide(ctx context.Context, rideID int64) (*RideView, error)
	PostedByUser(ctx context.Context, leaderID string) ([]RideView, error)
	JoinedByUser(ctx context.Context, riderID string) ([]RideView, error)
	CancelRide(ctx context.Context, rideID int64, leaderID string) error
	CompleteExpired(ctx context.Context, today string) (int, error)
}

// FilterCache holds search results per corridor and day. Misses and cache
// errors both fall through to the store.
type FilterCache interface {
	GetFilter(ctx context.Context, origin, destination, date string) ([]domain.Ride, error)
	SetFilter(ctx context.Context, origin, destination, date string, rides []domain.Ride) error
	InvalidateFilter(ctx context.Context, origin, destination, date string) error
}

type CreateRideInput struct {
	LeaderID    string
	Origin      string
	Destination string
	Date        string
	Departure   string
	TotalSeats  int
	Price       float64
}

// RideView is a ride decorated with the derived per-person numbers the
// listings show. ApproxPrice is always computed from the current seat
// count, never stored.
type RideView struct {
	domain.Ride
	SeatsLeft   int
	ApproxPrice int
}

type RideService struct {
	rides        repository.RideRepository
	involvements repository.InvolvementRepository
	locker       *locker.KeyedLocker
	cache        FilterCache
	dispatch     notify.Dispatcher
	log          *slog.Logger
}

type RideServiceOption func(*RideService)

func WithFilterCache(cache FilterCache) RideServiceOption {
	return func(s *RideService) { s.cache = cache }
}

func NewRideService(
	rides repository.RideRepository,
	involvements repository.InvolvementRepository,
	keyed *locker.KeyedLocker,
	dispatch notify.Dispatcher,
	log *slog.Logger,
	opts ...RideServiceOption,
) *RideService {
	service := &RideService{
		rides:        rides,
		involvements: involvements,
		locker:       keyed,
		dispatch:     dispatch,
		log:          log,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

func (s *RideService) CreateRide(ctx context.Context, input CreateRideInput) (*domain.Ride, error) {
	if err := validateCreate(input); err != nil {
		return nil, err
	}
	ride := &domain.Ride{
		LeaderID:    input.LeaderID,
		Origin:      input.Origin,
		Destination: input.Destination,
		Date:        input.Date,
		Departure:   input.Departure,
		TotalSeats:  input.TotalSeats,
		Price:       input.Price,
	}
	if err := s.rides.Create(ctx, ride); err != nil {
		return nil, err
	}
	s.invalidate(ctx, ride)
	s.log.Info("ride posted", "ride_id", ride.ID, "leader_id", ride.LeaderID, "date", ride.Date)
	return ride, nil
}

func validateCreate(input CreateRideInput) error {
	if input.Origin == "" || input.Destination == "" {
		return fmt.Errorf("%w: origin and destination are required", domain.ErrValidation)
	}
	if _, err := time.Parse("2006-01-02", input.Date); err != nil {
		return fmt.Errorf("%w: date must be YYYY-MM-DD", domain.ErrValidation)
	}
	if _, err := time.Parse("15:04", input.Departure); err != nil {
		return fmt.Errorf("%w: departure must be HH:MM", domain.ErrValidation)
	}
	if input.TotalSeats < 2 {
		return fmt.Errorf("%w: a ride needs at least one passenger seat", domain.ErrValidation)
	}
	if input.Price <= 0 {
		return fmt.Errorf("%w: price must be positive", domain.ErrValidation)
	}
	return nil
}

func (s *RideService) Filter(ctx context.Context, origin, destination, date string) ([]RideView, error) {
	if origin == "" || destination == "" || date == "" {
		return nil, fmt.Errorf("%w: origin, destination and date are required", domain.ErrValidation)
	}
	if s.cache != nil {
		if cached, err := s.cache.GetFilter(ctx, origin, destination, date); err == nil && cached != nil {
			return views(cached), nil
		} else if err != nil {
			s.log.Warn("filter cache read failed", "err", err)
		}
	}

	rides, err := s.rides.Filter(ctx, origin, destination, date)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetFilter(ctx, origin, destination, date, rides); err != nil {
			s.log.Warn("filter cache write failed", "err", err)
		}
	}
	return views(rides), nil
}

func (s *RideService) GetRide(ctx context.Context, rideID int64) (*RideView, error) {
	ride, err := s.rides.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	view := View(*ride)
	return &view, nil
}

func (s *RideService) PostedByUser(ctx context.Context, leaderID string) ([]RideView, error) {
	rides, err := s.rides.ListByLeader(ctx, leaderID)
	if err != nil {
		return nil, err
	}
	return views(rides), nil
}

func (s *RideService) JoinedByUser(ctx context.Context, riderID string) ([]RideView, error) {
	ids, err := s.involvements.RideIDsForUser(ctx, riderID, domain.RoleRider)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []RideView{}, nil
	}
	rides, err := s.rides.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	return views(rides), nil
}

// CancelRide pulls an active ride. Everything attached to it dies in one
// transaction; afterwards accepted riders and pending requesters get told.
func (s *RideService) CancelRide(ctx context.Context, rideID int64, leaderID string) error {
	unlock := s.locker.Lock(rideID)
	defer unlock()

	ride, err := s.rides.GetByID(ctx, rideID)
	if err != nil {
		return err
	}
	if ride.LeaderID != leaderID {
		return domain.ErrUnauthorized
	}

	outcome, err := s.rides.Cancel(ctx, rideID)
	if err != nil {
		return err
	}
	observability.RidesCancelledTotal.Inc()
	s.invalidate(ctx, &outcome.Ride)

	for _, riderID := range outcome.AcceptedRiders {
		s.dispatch.Emit(ctx, rideEvent(notify.EventRideCancelled, &outcome.Ride, riderID, leaderID))
	}
	for _, riderID := range outcome.PendingRequests {
		s.dispatch.Emit(ctx, rideEvent(notify.EventRideCancelled, &outcome.Ride, riderID, leaderID))
	}
	s.log.Info("ride cancelled", "ride_id", rideID,
		"accepted_notified", len(outcome.AcceptedRiders), "pending_notified", len(outcome.PendingRequests))
	return nil
}

// CompleteExpired sweeps rides dated before today and tells accepted
// riders the trip is done. The worker calls this on a ticker.
func (s *RideService) CompleteExpired(ctx context.Context, today string) (int, error) {
	completed, err := s.rides.CompleteExpired(ctx, today)
	if err != nil {
		return 0, err
	}
	for _, done := range completed {
		s.invalidate(ctx, &done.Ride)
		for _, riderID := range done.AcceptedRiders {
			s.dispatch.Emit(ctx, rideEvent(notify.EventRideCompleted, &done.Ride, riderID, done.Ride.LeaderID))
		}
	}
	if len(completed) > 0 {
		s.log.Info("expired rides swept", "count", len(completed), "before", today)
	}
	return len(completed), nil
}

func (s *RideService) invalidate(ctx context.Context, ride *domain.Ride) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateFilter(ctx, ride.Origin, ride.Destination, ride.Date); err != nil {
		s.log.Warn("filter cache invalidation failed", "ride_id", ride.ID, "err", err)
	}
}

// View decorates a ride with its derived per-person numbers.
func View(ride domain.Ride) RideView {
	return RideView{
		Ride:        ride,
		SeatsLeft:   ride.SeatsLeft(),
		ApproxPrice: pricing.ApproxPrice(ride.Price, ride.TotalSeats, ride.SeatsFilled),
	}
}

func views(rides []domain.Ride) []RideView {
	out := make([]RideView, 0, len(rides))
	for _, r := range rides {
		out = append(out, View(r))
	}
	return out
}

func rideEvent(t notify.EventType, ride *domain.Ride, recipient, actor string) notify.Event {
	return notify.Event{
		Type:        t,
		RideID:      ride.ID,
		UserID:      recipient,
		ActorID:     actor,
		Origin:      ride.Origin,
		Destination: ride.Destination,
		Date:        ride.Date,
		Departure:   ride.Departure,
	}
}

var _ RideUseCase = (*RideService)(nil)
