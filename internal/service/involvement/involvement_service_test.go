package involvement

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ansingh0305/BroCab/internal/domain"
	"github.com/Ansingh0305/BroCab/internal/locker"
	"github.com/Ansingh0305/BroCab/internal/notify"
	"github.com/Ansingh0305/BroCab/internal/repository"
)

type recordingDispatcher struct {
	mu     sync.Mutex
	events []notify.Event
}

func (d *recordingDispatcher) Emit(_ context.Context, event notify.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
}

func newTestService(t *testing.T) (*InvolvementService, *repository.MemoryStore, *recordingDispatcher) {
	t.Helper()
	store := repository.NewMemoryStore()
	dispatch := &recordingDispatcher{}
	svc := NewInvolvementService(store.Involvements(), locker.New(), dispatch, slog.Default())
	return svc, store, dispatch
}

func seedRide(t *testing.T, store *repository.MemoryStore, leaderID, date string) *domain.Ride {
	t.Helper()
	ride := &domain.Ride{
		LeaderID:    leaderID,
		Origin:      "Delhi",
		Destination: "Agra",
		Date:        date,
		Departure:   "09:00",
		TotalSeats:  4,
		Price:       1500,
	}
	require.NoError(t, store.Rides().Create(context.Background(), ride))
	return ride
}

func acceptRider(t *testing.T, store *repository.MemoryStore, rideID int64, riderID string) {
	t.Helper()
	req := &domain.JoinRequest{RideID: rideID, RiderID: riderID}
	require.NoError(t, store.Requests().CreatePending(context.Background(), req))
	_, err := store.Requests().Accept(context.Background(), req.ID)
	require.NoError(t, err)
}

func TestCheckInvolvement(t *testing.T) {
	svc, store, _ := newTestService(t)
	ride := seedRide(t, store, "leader", "2026-09-15")
	acceptRider(t, store, ride.ID, "rider-1")

	status, err := svc.CheckInvolvement(context.Background(), "rider-1", "2026-09-15")
	require.NoError(t, err)
	assert.True(t, status.Involved)
	require.Len(t, status.Records, 1)
	assert.Equal(t, domain.RoleRider, status.Records[0].Role)

	status, err = svc.CheckInvolvement(context.Background(), "rider-1", "2026-09-16")
	require.NoError(t, err)
	assert.False(t, status.Involved)

	_, err = svc.CheckInvolvement(context.Background(), "rider-1", "15/09/2026")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestClearInvolvement_AsLeader(t *testing.T) {
	svc, store, dispatch := newTestService(t)
	ride := seedRide(t, store, "leader", "2026-09-15")
	acceptRider(t, store, ride.ID, "rider-1")

	summary, err := svc.ClearInvolvement(context.Background(), "leader", "2026-09-15")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.RidesCancelled)
	assert.Equal(t, 0, summary.RidesWithdrawn)

	got, err := store.Rides().GetByID(context.Background(), ride.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RideStatusCancelled, got.Status)

	// The accepted rider hears about the cancellation and is freed up.
	require.Len(t, dispatch.events, 1)
	assert.Equal(t, notify.EventRideCancelled, dispatch.events[0].Type)
	assert.Equal(t, "rider-1", dispatch.events[0].UserID)

	involved, err := store.Involvements().HasForDate(context.Background(), "rider-1", "2026-09-15")
	require.NoError(t, err)
	assert.False(t, involved)
}

func TestClearInvolvement_AsRider(t *testing.T) {
	svc, store, dispatch := newTestService(t)
	ride := seedRide(t, store, "leader", "2026-09-15")
	acceptRider(t, store, ride.ID, "rider-1")

	summary, err := svc.ClearInvolvement(context.Background(), "rider-1", "2026-09-15")
	require.NoError(t, err)
	assert.Equal(t, 0, summary.RidesCancelled)
	assert.Equal(t, 1, summary.RidesWithdrawn)

	// Seat released, ride still on.
	got, err := store.Rides().GetByID(context.Background(), ride.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RideStatusActive, got.Status)
	assert.Equal(t, 0, got.SeatsFilled)

	require.Len(t, dispatch.events, 1)
	assert.Equal(t, notify.EventParticipantRemoved, dispatch.events[0].Type)
	assert.Equal(t, "leader", dispatch.events[0].UserID)
}

func TestClearInvolvement_SweepsPending(t *testing.T) {
	svc, store, _ := newTestService(t)
	ride := seedRide(t, store, "leader", "2026-09-15")
	req := &domain.JoinRequest{RideID: ride.ID, RiderID: "rider-1"}
	require.NoError(t, store.Requests().CreatePending(context.Background(), req))

	summary, err := svc.ClearInvolvement(context.Background(), "rider-1", "2026-09-15")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.PendingCancelled)

	stored, err := store.Requests().GetByID(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusCancelled, stored.Status)
}

func TestClearInvolvement_NothingToClear(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.ClearInvolvement(context.Background(), "nobody", "2026-09-15")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestClearInvolvement_LeavesOtherDatesAlone(t *testing.T) {
	svc, store, _ := newTestService(t)
	seedRide(t, store, "leader", "2026-09-15")
	other := seedRide(t, store, "leader-b", "2026-09-16")
	acceptRider(t, store, other.ID, "leader")

	_, err := svc.ClearInvolvement(context.Background(), "leader", "2026-09-15")
	require.NoError(t, err)

	involved, err := store.Involvements().HasForDate(context.Background(), "leader", "2026-09-16")
	require.NoError(t, err)
	assert.True(t, involved)
}
