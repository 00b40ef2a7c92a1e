package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Ansingh0305/BroCab/internal/domain"
)

// MemoryStore keeps the whole booking state in process memory behind one
// mutex, with the exact same contract as the postgres repositories. It
// backs the unit and race tests and the no-database dev mode; the CAS and
// cascade semantics here must stay in step with the SQL.
type MemoryStore struct {
	mu            sync.Mutex
	rides         map[int64]*domain.Ride
	requests      map[int64]*domain.JoinRequest
	involvements  []domain.InvolvementRecord
	notifications map[int64]*domain.Notification

	nextRideID         int64
	nextRequestID      int64
	nextNotificationID int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rides:         make(map[int64]*domain.Ride),
		requests:      make(map[int64]*domain.JoinRequest),
		notifications: make(map[int64]*domain.Notification),
	}
}

func (s *MemoryStore) Rides() RideRepository                 { return memRides{s} }
func (s *MemoryStore) Requests() RequestRepository           { return memRequests{s} }
func (s *MemoryStore) Involvements() InvolvementRepository   { return memInvolvements{s} }
func (s *MemoryStore) Notifications() NotificationRepository { return memNotifications{s} }

func (s *MemoryStore) hasInvolvement(userID, date string) bool {
	for _, rec := range s.involvements {
		if rec.UserID == userID && rec.Date == date {
			return true
		}
	}
	return false
}

func (s *MemoryStore) addInvolvement(userID, date string, rideID int64, role domain.Role) {
	s.involvements = append(s.involvements, domain.InvolvementRecord{
		UserID: userID, Date: date, RideID: rideID, Role: role, CreatedAt: time.Now(),
	})
}

func (s *MemoryStore) dropInvolvements(keep func(domain.InvolvementRecord) bool) {
	kept := s.involvements[:0]
	for _, rec := range s.involvements {
		if keep(rec) {
			kept = append(kept, rec)
		}
	}
	s.involvements = kept
}

// --- rides ---

type memRides struct{ s *MemoryStore }

func (m memRides) Create(_ context.Context, ride *domain.Ride) error {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hasInvolvement(ride.LeaderID, ride.Date) {
		return domain.ErrInvolvementConflict
	}
	s.nextRideID++
	ride.ID = s.nextRideID
	ride.Status = domain.RideStatusActive
	ride.SeatsFilled = 0
	ride.CreatedAt = time.Now()
	ride.UpdatedAt = ride.CreatedAt
	stored := *ride
	s.rides[ride.ID] = &stored
	s.addInvolvement(ride.LeaderID, ride.Date, ride.ID, domain.RoleLeader)
	return nil
}

func (m memRides) GetByID(_ context.Context, id int64) (*domain.Ride, error) {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()
	ride, ok := s.rides[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := *ride
	return &out, nil
}

func (m memRides) Filter(_ context.Context, origin, destination, date string) ([]domain.Ride, error) {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()
	rides := make([]domain.Ride, 0)
	for _, r := range s.rides {
		if r.Status == domain.RideStatusActive && r.Origin == origin && r.Destination == destination && r.Date == date {
			rides = append(rides, *r)
		}
	}
	sortRides(rides)
	return rides, nil
}

func (m memRides) ListByLeader(_ context.Context, leaderID string) ([]domain.Ride, error) {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()
	rides := make([]domain.Ride, 0)
	for _, r := range s.rides {
		if r.LeaderID == leaderID {
			rides = append(rides, *r)
		}
	}
	sortRides(rides)
	return rides, nil
}

func (m memRides) ListByIDs(_ context.Context, ids []int64) ([]domain.Ride, error) {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()
	rides := make([]domain.Ride, 0, len(ids))
	for _, id := range ids {
		if r, ok := s.rides[id]; ok {
			rides = append(rides, *r)
		}
	}
	sortRides(rides)
	return rides, nil
}

func sortRides(rides []domain.Ride) {
	sort.Slice(rides, func(i, j int) bool {
		if rides[i].Date != rides[j].Date {
			return rides[i].Date < rides[j].Date
		}
		return rides[i].Departure < rides[j].Departure
	})
}

func (m memRides) Cancel(_ context.Context, rideID int64) (*CancelOutcome, error) {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()

	ride, ok := s.rides[rideID]
	if !ok || ride.Status != domain.RideStatusActive {
		return nil, domain.ErrNotFound
	}
	ride.Status = domain.RideStatusCancelled
	ride.UpdatedAt = time.Now()

	outcome := &CancelOutcome{Ride: *ride}
	outcome.AcceptedRiders, outcome.PendingRequests = s.cancelRequestsForRide(rideID)
	s.dropInvolvements(func(rec domain.InvolvementRecord) bool { return rec.RideID != rideID })
	return outcome, nil
}

func (s *MemoryStore) cancelRequestsForRide(rideID int64) (accepted, pending []string) {
	for _, req := range s.requests {
		if req.RideID != rideID {
			continue
		}
		switch req.Status {
		case domain.RequestStatusAccepted:
			accepted = append(accepted, req.RiderID)
		case domain.RequestStatusPending:
			pending = append(pending, req.RiderID)
		default:
			continue
		}
		req.Status = domain.RequestStatusCancelled
		req.UpdatedAt = time.Now()
	}
	return accepted, pending
}

func (m memRides) CompleteExpired(_ context.Context, before string) ([]CompletedRide, error) {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()

	var completed []CompletedRide
	for id, ride := range s.rides {
		if ride.Date >= before {
			continue
		}
		var riders []string
		for reqID, req := range s.requests {
			if req.RideID != id {
				continue
			}
			if req.Status == domain.RequestStatusAccepted {
				riders = append(riders, req.RiderID)
			}
			delete(s.requests, reqID)
		}
		s.dropInvolvements(func(rec domain.InvolvementRecord) bool { return rec.RideID != id })
		completed = append(completed, CompletedRide{Ride: *ride, AcceptedRiders: riders})
		delete(s.rides, id)
	}
	sort.Slice(completed, func(i, j int) bool { return completed[i].Ride.ID < completed[j].Ride.ID })
	return completed, nil
}

var _ RideRepository = memRides{}

// --- requests ---

type memRequests struct{ s *MemoryStore }

func (m memRequests) CreatePending(_ context.Context, req *domain.JoinRequest) error {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.requests {
		if existing.RideID == req.RideID && existing.RiderID == req.RiderID && existing.Status == domain.RequestStatusPending {
			return domain.ErrConflict
		}
	}
	s.nextRequestID++
	req.ID = s.nextRequestID
	req.Status = domain.RequestStatusPending
	req.CreatedAt = time.Now()
	req.UpdatedAt = req.CreatedAt
	stored := *req
	s.requests[req.ID] = &stored
	return nil
}

func (m memRequests) GetByID(_ context.Context, id int64) (*domain.JoinRequest, error) {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := *req
	return &out, nil
}

func (m memRequests) ListByRideAndRider(_ context.Context, rideID int64, riderID string) ([]domain.JoinRequest, error) {
	return m.list(func(r *domain.JoinRequest) bool { return r.RideID == rideID && r.RiderID == riderID }, false)
}

func (m memRequests) ListPendingForRide(_ context.Context, rideID int64) ([]domain.JoinRequest, error) {
	return m.list(func(r *domain.JoinRequest) bool { return r.RideID == rideID && r.Status == domain.RequestStatusPending }, false)
}

func (m memRequests) ListByRider(_ context.Context, riderID string) ([]domain.JoinRequest, error) {
	return m.list(func(r *domain.JoinRequest) bool { return r.RiderID == riderID }, true)
}

func (m memRequests) list(match func(*domain.JoinRequest) bool, newestFirst bool) ([]domain.JoinRequest, error) {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()
	requests := make([]domain.JoinRequest, 0)
	for _, req := range s.requests {
		if match(req) {
			requests = append(requests, *req)
		}
	}
	sort.Slice(requests, func(i, j int) bool {
		if newestFirst {
			return requests[i].ID > requests[j].ID
		}
		return requests[i].ID < requests[j].ID
	})
	return requests, nil
}

func (m memRequests) UpdateStatus(_ context.Context, id int64, from, to domain.RequestStatus) (*domain.JoinRequest, error) {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok || req.Status != from {
		return nil, domain.ErrInvalidState
	}
	req.Status = to
	req.UpdatedAt = time.Now()
	out := *req
	return &out, nil
}

func (m memRequests) Accept(_ context.Context, id int64) (*domain.JoinRequest, error) {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[id]
	if !ok || req.Status != domain.RequestStatusPending {
		return nil, domain.ErrInvalidState
	}
	ride, ok := s.rides[req.RideID]
	if !ok || ride.Status != domain.RideStatusActive || ride.IsFull() {
		return nil, domain.ErrRideFull
	}
	if s.hasInvolvement(req.RiderID, ride.Date) {
		return nil, domain.ErrInvolvementConflict
	}

	req.Status = domain.RequestStatusAccepted
	req.UpdatedAt = time.Now()
	ride.SeatsFilled++
	ride.UpdatedAt = time.Now()
	s.addInvolvement(req.RiderID, ride.Date, ride.ID, domain.RoleRider)
	out := *req
	return &out, nil
}

var _ RequestRepository = memRequests{}

// --- involvements ---

type memInvolvements struct{ s *MemoryStore }

func (m memInvolvements) HasForDate(_ context.Context, userID, date string) (bool, error) {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasInvolvement(userID, date), nil
}

func (m memInvolvements) ListForDate(_ context.Context, userID, date string) ([]domain.InvolvementRecord, error) {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()
	records := make([]domain.InvolvementRecord, 0)
	for _, rec := range s.involvements {
		if rec.UserID == userID && rec.Date == date {
			records = append(records, rec)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].RideID < records[j].RideID })
	return records, nil
}

func (m memInvolvements) RideIDsForUser(_ context.Context, userID string, role domain.Role) ([]int64, error) {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []int64
	for _, rec := range s.involvements {
		if rec.UserID == userID && rec.Role == role {
			ids = append(ids, rec.RideID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (m memInvolvements) ClearForDate(_ context.Context, userID, date string) (*ClearResult, error) {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()

	var mine []domain.InvolvementRecord
	for _, rec := range s.involvements {
		if rec.UserID == userID && rec.Date == date {
			mine = append(mine, rec)
		}
	}
	sort.Slice(mine, func(i, j int) bool { return mine[i].RideID < mine[j].RideID })

	result := &ClearResult{}
	for _, rec := range mine {
		ride, ok := s.rides[rec.RideID]
		if !ok {
			continue
		}
		switch rec.Role {
		case domain.RoleLeader:
			ride.Status = domain.RideStatusCancelled
			ride.UpdatedAt = time.Now()
			accepted, _ := s.cancelRequestsForRide(rec.RideID)
			s.dropInvolvements(func(r domain.InvolvementRecord) bool { return r.RideID != rec.RideID })
			result.CancelledRides = append(result.CancelledRides, ClearedRide{Ride: *ride, AcceptedRiders: accepted})
		case domain.RoleRider:
			if ride.SeatsFilled > 0 {
				ride.SeatsFilled--
			}
			ride.UpdatedAt = time.Now()
			for _, req := range s.requests {
				if req.RideID == rec.RideID && req.RiderID == userID && req.Status == domain.RequestStatusAccepted {
					req.Status = domain.RequestStatusCancelled
					req.UpdatedAt = time.Now()
				}
			}
			s.dropInvolvements(func(r domain.InvolvementRecord) bool {
				return !(r.UserID == userID && r.RideID == rec.RideID)
			})
			result.WithdrawnRides = append(result.WithdrawnRides, WithdrawnRide{Ride: *ride})
		}
	}

	// Sweep the user's still-pending requests for the date.
	for _, req := range s.requests {
		if req.RiderID != userID || req.Status != domain.RequestStatusPending {
			continue
		}
		if ride, ok := s.rides[req.RideID]; ok && ride.Date == date {
			req.Status = domain.RequestStatusCancelled
			req.UpdatedAt = time.Now()
			result.CancelledPending++
		}
	}
	return result, nil
}

var _ InvolvementRepository = memInvolvements{}

// --- notifications ---

type memNotifications struct{ s *MemoryStore }

func (m memNotifications) Create(_ context.Context, n *domain.Notification) error {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextNotificationID++
	n.ID = s.nextNotificationID
	n.IsRead = false
	n.CreatedAt = time.Now()
	n.UpdatedAt = n.CreatedAt
	stored := *n
	s.notifications[n.ID] = &stored
	return nil
}

func (m memNotifications) ListByUser(_ context.Context, userID string) ([]domain.Notification, error) {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()
	notifications := make([]domain.Notification, 0)
	for _, n := range s.notifications {
		if n.UserID == userID {
			notifications = append(notifications, *n)
		}
	}
	sort.Slice(notifications, func(i, j int) bool { return notifications[i].ID > notifications[j].ID })
	return notifications, nil
}

func (m memNotifications) UnreadCount(_ context.Context, userID string) (int64, error) {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, n := range s.notifications {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (m memNotifications) MarkRead(_ context.Context, id int64, userID string) (bool, error) {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok || n.UserID != userID {
		return false, nil
	}
	n.IsRead = true
	n.UpdatedAt = time.Now()
	return true, nil
}

func (m memNotifications) MarkAllRead(_ context.Context, userID string) (int64, error) {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()
	var updated int64
	for _, n := range s.notifications {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			n.UpdatedAt = time.Now()
			updated++
		}
	}
	return updated, nil
}

var _ NotificationRepository = memNotifications{}
