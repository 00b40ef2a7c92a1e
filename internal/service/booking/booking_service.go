// Package booking holds the coordinator for the join-request lifecycle.
// Every path that reads and then writes a ride's seat counter or a
// request's status runs inside that ride's critical section, so the seat
// invariant 0 <= seats_filled <= total_seats-1 holds for all observers.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Ansingh0305/BroCab/internal/domain"
	"github.com/Ansingh0305/BroCab/internal/locker"
	"github.com/Ansingh0305/BroCab/internal/notify"
	"github.com/Ansingh0305/BroCab/internal/observability"
	"github.com/Ansingh0305/BroCab/internal/repository"
)

type BookingUseCase interface {
	RequestJoin(ctx context.Context, rideID int64, riderID string) (*domain.JoinRequest, error)
	AcceptRequest(ctx context.Context, requestID int64, leaderID string) (*domain.Ride, error)
	RejectRequest(ctx context.Context, requestID int64, leaderID string) error
	CancelRequest(ctx context.Context, requestID int64, riderID string) error
	PendingRequests(ctx context.Context, rideID int64, leaderID string) ([]domain.JoinRequest, error)
	SentRequests(ctx context.Context, riderID string) ([]SentRequest, error)
}

// RideLocks is the optional cross-instance lock, backed by redis SetNX.
// The store's compare-and-swap updates remain the source of truth; the
// lock only keeps instances from tripping over each other.
type RideLocks interface {
	AcquireRideLock(ctx context.Context, rideID int64, ttl time.Duration) (bool, error)
	ReleaseRideLock(ctx context.Context, rideID int64) error
}

// SentRequest pairs a rider's request with its ride for the request-list
// views; Ride is nil when the ride has since been swept.
type SentRequest struct {
	Request domain.JoinRequest
	Ride    *domain.Ride
}

const (
	lockAttempts   = 3
	lockRetryDelay = 25 * time.Millisecond
)

type BookingService struct {
	rides        repository.RideRepository
	requests     repository.RequestRepository
	involvements repository.InvolvementRepository
	locker       *locker.KeyedLocker
	locks        RideLocks
	dispatch     notify.Dispatcher
	lockTTL      time.Duration
	log          *slog.Logger
}

type BookingServiceOption func(*BookingService)

func WithRideLocks(locks RideLocks, ttl time.Duration) BookingServiceOption {
	return func(s *BookingService) {
		s.locks = locks
		s.lockTTL = ttl
	}
}

func NewBookingService(
	rides repository.RideRepository,
	requests repository.RequestRepository,
	involvements repository.InvolvementRepository,
	keyed *locker.KeyedLocker,
	dispatch notify.Dispatcher,
	log *slog.Logger,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		rides:        rides,
		requests:     requests,
		involvements: involvements,
		locker:       keyed,
		dispatch:     dispatch,
		lockTTL:      5 * time.Second,
		log:          log,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// RequestJoin runs the precondition chain and, when everything holds,
// files a PENDING request. No seat is consumed here; capacity is only
// claimed at acceptance. Re-submitting while a request is still pending
// returns the existing row untouched.
func (s *BookingService) RequestJoin(ctx context.Context, rideID int64, riderID string) (*domain.JoinRequest, error) {
	unlock := s.locker.Lock(rideID)
	defer unlock()
	release, err := s.lockShared(ctx, rideID)
	if err != nil {
		return nil, err
	}
	defer release()

	ride, err := s.rides.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if ride.Status != domain.RideStatusActive {
		return nil, domain.ErrNotFound
	}
	if ride.LeaderID == riderID {
		observability.JoinRequestsTotal.WithLabelValues("self_join").Inc()
		return nil, fmt.Errorf("%w: leader cannot join own ride", domain.ErrValidation)
	}

	existing, err := s.requests.ListByRideAndRider(ctx, rideID, riderID)
	if err != nil {
		return nil, err
	}
	for i := range existing {
		if existing[i].Status == domain.RequestStatusAccepted {
			return nil, domain.ErrAlreadyBooked
		}
	}
	for i := range existing {
		if existing[i].Status == domain.RequestStatusPending {
			observability.JoinRequestsTotal.WithLabelValues("duplicate").Inc()
			return &existing[i], nil
		}
	}

	if ride.IsFull() {
		observability.JoinRequestsTotal.WithLabelValues("ride_full").Inc()
		return nil, domain.ErrRideFull
	}
	involved, err := s.involvements.HasForDate(ctx, riderID, ride.Date)
	if err != nil {
		return nil, err
	}
	if involved {
		observability.JoinRequestsTotal.WithLabelValues("involvement_conflict").Inc()
		return nil, domain.ErrInvolvementConflict
	}

	req := &domain.JoinRequest{RideID: rideID, RiderID: riderID}
	if err := s.requests.CreatePending(ctx, req); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			// Another instance slipped in first; hand back its row.
			return s.pendingFor(ctx, rideID, riderID)
		}
		return nil, err
	}

	observability.JoinRequestsTotal.WithLabelValues("ok").Inc()
	s.dispatch.Emit(ctx, s.event(notify.EventJoinRequested, ride, ride.LeaderID, riderID))
	return req, nil
}

func (s *BookingService) pendingFor(ctx context.Context, rideID int64, riderID string) (*domain.JoinRequest, error) {
	existing, err := s.requests.ListByRideAndRider(ctx, rideID, riderID)
	if err != nil {
		return nil, err
	}
	for i := range existing {
		if existing[i].Status == domain.RequestStatusPending {
			return &existing[i], nil
		}
	}
	return nil, domain.ErrConflict
}

// AcceptRequest consumes a seat. The status flip, the seat increment and
// the rider's involvement row are one atomic step in the store, so
// concurrent acceptances can never push the counter past capacity: the
// loser sees RideFull even though its request looked fine moments ago.
func (s *BookingService) AcceptRequest(ctx context.Context, requestID int64, leaderID string) (*domain.Ride, error) {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	unlock := s.locker.Lock(req.RideID)
	defer unlock()
	release, err := s.lockShared(ctx, req.RideID)
	if err != nil {
		return nil, err
	}
	defer release()

	ride, err := s.rides.GetByID(ctx, req.RideID)
	if err != nil {
		return nil, err
	}
	if ride.LeaderID != leaderID {
		return nil, domain.ErrUnauthorized
	}

	accepted, err := s.requests.Accept(ctx, requestID)
	if err != nil {
		if errors.Is(err, domain.ErrRideFull) {
			observability.AcceptsTotal.WithLabelValues("ride_full").Inc()
		}
		return nil, err
	}

	updated, err := s.rides.GetByID(ctx, req.RideID)
	if err != nil {
		return nil, err
	}
	observability.AcceptsTotal.WithLabelValues("ok").Inc()
	s.dispatch.Emit(ctx, s.event(notify.EventRequestAccepted, updated, accepted.RiderID, leaderID))
	return updated, nil
}

func (s *BookingService) RejectRequest(ctx context.Context, requestID int64, leaderID string) error {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return err
	}

	unlock := s.locker.Lock(req.RideID)
	defer unlock()
	release, err := s.lockShared(ctx, req.RideID)
	if err != nil {
		return err
	}
	defer release()

	ride, err := s.rides.GetByID(ctx, req.RideID)
	if err != nil {
		return err
	}
	if ride.LeaderID != leaderID {
		return domain.ErrUnauthorized
	}

	if _, err := s.requests.UpdateStatus(ctx, requestID, domain.RequestStatusPending, domain.RequestStatusRejected); err != nil {
		return err
	}
	s.dispatch.Emit(ctx, s.event(notify.EventRequestRejected, ride, req.RiderID, leaderID))
	return nil
}

// CancelRequest is the rider withdrawing a still-pending request. Nothing
// was reserved, so nothing is released.
func (s *BookingService) CancelRequest(ctx context.Context, requestID int64, riderID string) error {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return err
	}
	if req.RiderID != riderID {
		return domain.ErrUnauthorized
	}

	unlock := s.locker.Lock(req.RideID)
	defer unlock()

	_, err = s.requests.UpdateStatus(ctx, requestID, domain.RequestStatusPending, domain.RequestStatusCancelled)
	return err
}

func (s *BookingService) PendingRequests(ctx context.Context, rideID int64, leaderID string) ([]domain.JoinRequest, error) {
	ride, err := s.rides.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if ride.LeaderID != leaderID {
		return nil, domain.ErrUnauthorized
	}
	return s.requests.ListPendingForRide(ctx, rideID)
}

func (s *BookingService) SentRequests(ctx context.Context, riderID string) ([]SentRequest, error) {
	requests, err := s.requests.ListByRider(ctx, riderID)
	if err != nil {
		return nil, err
	}
	sent := make([]SentRequest, 0, len(requests))
	for _, req := range requests {
		entry := SentRequest{Request: req}
		if ride, err := s.rides.GetByID(ctx, req.RideID); err == nil {
			entry.Ride = ride
		}
		sent = append(sent, entry)
	}
	return sent, nil
}

// lockShared takes the cross-instance ride lock when one is configured.
// A handful of short retries, then the caller gets ErrConflict; a redis
// outage degrades to the in-process lock plus the store's CAS instead of
// taking bookings down.
func (s *BookingService) lockShared(ctx context.Context, rideID int64) (func(), error) {
	if s.locks == nil {
		return func() {}, nil
	}
	for attempt := 0; attempt < lockAttempts; attempt++ {
		ok, err := s.locks.AcquireRideLock(ctx, rideID, s.lockTTL)
		if err != nil {
			s.log.Warn("ride lock unavailable, relying on store CAS", "ride_id", rideID, "err", err)
			return func() {}, nil
		}
		if ok {
			return func() { _ = s.locks.ReleaseRideLock(ctx, rideID) }, nil
		}
		time.Sleep(lockRetryDelay)
	}
	return nil, domain.ErrConflict
}

func (s *BookingService) event(t notify.EventType, ride *domain.Ride, recipient, actor string) notify.Event {
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

var _ BookingUseCase = (*BookingService)(nil)
