package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/Ansingh0305/BroCab/internal/domain"
	"github.com/Ansingh0305/BroCab/internal/geo"
	"github.com/Ansingh0305/BroCab/internal/service/rides"
)

// MockRideUseCase is a mock implementation of rides.RideUseCase
type MockRideUseCase struct {
	mock.Mock
}

func (m *MockRideUseCase) CreateRide(ctx context.Context, input rides.CreateRideInput) (*domain.Ride, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ride), args.Error(1)
}

func (m *MockRideUseCase) Filter(ctx context.Context, origin, destination, date string) ([]rides.RideView, error) {
	args := m.Called(ctx, origin, destination, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]rides.RideView), args.Error(1)
}

func (m *MockRideUseCase) GetRide(ctx context.Context, rideID int64) (*rides.RideView, error) {
	args := m.Called(ctx, rideID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*rides.RideView), args.Error(1)
}

func (m *MockRideUseCase) PostedByUser(ctx context.Context, leaderID string) ([]rides.RideView, error) {
	args := m.Called(ctx, leaderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]rides.RideView), args.Error(1)
}

func (m *MockRideUseCase) JoinedByUser(ctx context.Context, riderID string) ([]rides.RideView, error) {
	args := m.Called(ctx, riderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]rides.RideView), args.Error(1)
}

func (m *MockRideUseCase) CancelRide(ctx context.Context, rideID int64, leaderID string) error {
	args := m.Called(ctx, rideID, leaderID)
	return args.Error(0)
}

func (m *MockRideUseCase) CompleteExpired(ctx context.Context, today string) (int, error) {
	args := m.Called(ctx, today)
	return args.Int(0), args.Error(1)
}

type stubEstimator struct {
	estimate geo.RouteEstimate
	calls    int
}

func (s *stubEstimator) EstimateRoute(_ context.Context, _, _ string) geo.RouteEstimate {
	s.calls++
	return s.estimate
}

func sampleView() rides.RideView {
	return rides.View(domain.Ride{
		ID:          5,
		LeaderID:    "leader",
		Origin:      "Delhi",
		Destination: "Agra",
		Date:        "2026-09-15",
		Departure:   "09:00",
		TotalSeats:  4,
		SeatsFilled: 1,
		Price:       1200,
		Status:      domain.RideStatusActive,
	})
}

func TestRideHandler_create(t *testing.T) {
	mockService := &MockRideUseCase{}
	handler := NewRideHandler(mockService)

	c, w := testContext(t, "leader")
	body, _ := json.Marshal(createRideRequest{
		Origin:      "Delhi",
		Destination: "Agra",
		Date:        "2026-09-15",
		Departure:   "09:00",
		TotalSeats:  4,
		Price:       1200,
	})
	c.Request = httptest.NewRequest("POST", "/ride", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	created := &domain.Ride{ID: 5, LeaderID: "leader", TotalSeats: 4, Price: 1200}
	view := sampleView()
	mockService.On("CreateRide", mock.Anything, mock.MatchedBy(func(in rides.CreateRideInput) bool {
		return in.LeaderID == "leader" && in.TotalSeats == 4
	})).Return(created, nil)
	mockService.On("GetRide", mock.Anything, int64(5)).Return(&view, nil)

	handler.create(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	var response rideResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, int64(5), response.ID)
	assert.Equal(t, 2, response.SeatsLeft)
	mockService.AssertExpectations(t)
}

func TestRideHandler_create_validation(t *testing.T) {
	mockService := &MockRideUseCase{}
	handler := NewRideHandler(mockService)

	c, w := testContext(t, "leader")
	body, _ := json.Marshal(createRideRequest{Origin: "Delhi"})
	c.Request = httptest.NewRequest("POST", "/ride", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	mockService.On("CreateRide", mock.Anything, mock.Anything).
		Return(nil, domain.ErrValidation)

	handler.create(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRideHandler_filter(t *testing.T) {
	mockService := &MockRideUseCase{}
	estimator := &stubEstimator{estimate: geo.RouteEstimate{Distance: "233.0 km", Duration: "4h", DurationMinutes: 240}}
	handler := NewRideHandler(mockService).WithRouteEstimator(estimator)

	c, w := testContext(t, "rider-1")
	c.Request = httptest.NewRequest("GET", "/rides/filter?origin=Delhi&destination=Agra&date=2026-09-15", nil)

	mockService.On("Filter", mock.Anything, "Delhi", "Agra", "2026-09-15").
		Return([]rides.RideView{sampleView()}, nil)

	handler.filter(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var response filterResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Len(t, response.Rides, 1)
	assert.Equal(t, 600, response.Rides[0].ApproxPrice)
	assert.Equal(t, "233.0 km", response.Distance)
	assert.Equal(t, 1, estimator.calls)
	mockService.AssertExpectations(t)
}

func TestRideHandler_filter_noEstimatorForEmptyResult(t *testing.T) {
	mockService := &MockRideUseCase{}
	estimator := &stubEstimator{}
	handler := NewRideHandler(mockService).WithRouteEstimator(estimator)

	c, w := testContext(t, "rider-1")
	c.Request = httptest.NewRequest("GET", "/rides/filter?origin=Delhi&destination=Agra&date=2026-09-15", nil)

	mockService.On("Filter", mock.Anything, "Delhi", "Agra", "2026-09-15").
		Return([]rides.RideView{}, nil)

	handler.filter(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, estimator.calls)
}

func TestRideHandler_cancel(t *testing.T) {
	mockService := &MockRideUseCase{}
	handler := NewRideHandler(mockService)

	c, w := testContext(t, "leader")
	c.Params = gin.Params{{Key: "rideID", Value: "5"}}
	c.Request = httptest.NewRequest("DELETE", "/ride/5", nil)

	mockService.On("CancelRide", mock.Anything, int64(5), "leader").Return(nil)

	handler.cancel(c)

	assert.Equal(t, http.StatusOK, w.Code)
	mockService.AssertExpectations(t)
}

func TestRideHandler_cancel_notFound(t *testing.T) {
	mockService := &MockRideUseCase{}
	handler := NewRideHandler(mockService)

	c, w := testContext(t, "leader")
	c.Params = gin.Params{{Key: "rideID", Value: "99"}}
	c.Request = httptest.NewRequest("DELETE", "/ride/99", nil)

	mockService.On("CancelRide", mock.Anything, int64(99), "leader").
		Return(domain.ErrNotFound)

	handler.cancel(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRideHandler_posted(t *testing.T) {
	mockService := &MockRideUseCase{}
	handler := NewRideHandler(mockService)

	c, w := testContext(t, "leader")
	c.Request = httptest.NewRequest("GET", "/user/rides/posted", nil)

	mockService.On("PostedByUser", mock.Anything, "leader").
		Return([]rides.RideView{sampleView()}, nil)

	handler.posted(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var response struct {
		Rides []rideResponse `json:"rides"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Len(t, response.Rides, 1)
	mockService.AssertExpectations(t)
}

func TestRequireUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/ping", RequireUser(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": currentUser(c)})
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/ping", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/ping", nil)
	req.Header.Set("X-User-ID", "user-1")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "user-1")
}
