package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/Ansingh0305/BroCab/internal/domain"
	"github.com/Ansingh0305/BroCab/internal/service/booking"
)

// MockBookingUseCase is a mock implementation of booking.BookingUseCase
type MockBookingUseCase struct {
	mock.Mock
}

func (m *MockBookingUseCase) RequestJoin(ctx context.Context, rideID int64, riderID string) (*domain.JoinRequest, error) {
	args := m.Called(ctx, rideID, riderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.JoinRequest), args.Error(1)
}

func (m *MockBookingUseCase) AcceptRequest(ctx context.Context, requestID int64, leaderID string) (*domain.Ride, error) {
	args := m.Called(ctx, requestID, leaderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ride), args.Error(1)
}

func (m *MockBookingUseCase) RejectRequest(ctx context.Context, requestID int64, leaderID string) error {
	args := m.Called(ctx, requestID, leaderID)
	return args.Error(0)
}

func (m *MockBookingUseCase) CancelRequest(ctx context.Context, requestID int64, riderID string) error {
	args := m.Called(ctx, requestID, riderID)
	return args.Error(0)
}

func (m *MockBookingUseCase) PendingRequests(ctx context.Context, rideID int64, leaderID string) ([]domain.JoinRequest, error) {
	args := m.Called(ctx, rideID, leaderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.JoinRequest), args.Error(1)
}

func (m *MockBookingUseCase) SentRequests(ctx context.Context, riderID string) ([]booking.SentRequest, error) {
	args := m.Called(ctx, riderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]booking.SentRequest), args.Error(1)
}

func testContext(t *testing.T, userID string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set(userIDKey, userID)
	return c, w
}

func TestRequestHandler_join(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewRequestHandler(mockService)

	c, w := testContext(t, "rider-1")
	c.Params = gin.Params{{Key: "rideID", Value: "5"}}
	c.Request = httptest.NewRequest("POST", "/ride/5/join", nil)

	mockService.On("RequestJoin", mock.Anything, int64(5), "rider-1").
		Return(&domain.JoinRequest{ID: 11, RideID: 5, RiderID: "rider-1", Status: domain.RequestStatusPending}, nil)

	handler.join(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	var response requestResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, int64(11), response.ID)
	assert.Equal(t, string(domain.RequestStatusPending), response.Status)
	mockService.AssertExpectations(t)
}

func TestRequestHandler_join_rideFull(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewRequestHandler(mockService)

	c, w := testContext(t, "rider-1")
	c.Params = gin.Params{{Key: "rideID", Value: "5"}}
	c.Request = httptest.NewRequest("POST", "/ride/5/join", nil)

	mockService.On("RequestJoin", mock.Anything, int64(5), "rider-1").
		Return(nil, domain.ErrRideFull)

	handler.join(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	mockService.AssertExpectations(t)
}

func TestRequestHandler_join_badRideID(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewRequestHandler(mockService)

	c, w := testContext(t, "rider-1")
	c.Params = gin.Params{{Key: "rideID", Value: "abc"}}
	c.Request = httptest.NewRequest("POST", "/ride/abc/join", nil)

	handler.join(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockService.AssertNotCalled(t, "RequestJoin")
}

func TestRequestHandler_accept(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewRequestHandler(mockService)

	c, w := testContext(t, "leader")
	c.Params = gin.Params{{Key: "requestID", Value: "11"}}
	c.Request = httptest.NewRequest("POST", "/request/11/accept", nil)

	mockService.On("AcceptRequest", mock.Anything, int64(11), "leader").
		Return(&domain.Ride{ID: 5, TotalSeats: 4, SeatsFilled: 2}, nil)

	handler.accept(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var response map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.EqualValues(t, 2, response["seats_filled"])
	assert.EqualValues(t, 1, response["seats_left"])
	mockService.AssertExpectations(t)
}

func TestRequestHandler_accept_notLeader(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewRequestHandler(mockService)

	c, w := testContext(t, "impostor")
	c.Params = gin.Params{{Key: "requestID", Value: "11"}}
	c.Request = httptest.NewRequest("POST", "/request/11/accept", nil)

	mockService.On("AcceptRequest", mock.Anything, int64(11), "impostor").
		Return(nil, domain.ErrUnauthorized)

	handler.accept(c)

	assert.Equal(t, http.StatusForbidden, w.Code)
	mockService.AssertExpectations(t)
}

func TestRequestHandler_reject(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewRequestHandler(mockService)

	c, w := testContext(t, "leader")
	c.Params = gin.Params{{Key: "requestID", Value: "11"}}
	c.Request = httptest.NewRequest("POST", "/request/11/reject", nil)

	mockService.On("RejectRequest", mock.Anything, int64(11), "leader").Return(nil)

	handler.reject(c)

	assert.Equal(t, http.StatusOK, w.Code)
	mockService.AssertExpectations(t)
}

func TestRequestHandler_cancel_terminal(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewRequestHandler(mockService)

	c, w := testContext(t, "rider-1")
	c.Params = gin.Params{{Key: "requestID", Value: "11"}}
	c.Request = httptest.NewRequest("DELETE", "/request/11", nil)

	mockService.On("CancelRequest", mock.Anything, int64(11), "rider-1").
		Return(domain.ErrInvalidState)

	handler.cancel(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	mockService.AssertExpectations(t)
}

func TestRequestHandler_pending(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewRequestHandler(mockService)

	c, w := testContext(t, "leader")
	c.Params = gin.Params{{Key: "rideID", Value: "5"}}
	c.Request = httptest.NewRequest("GET", "/ride/5/requests", nil)

	mockService.On("PendingRequests", mock.Anything, int64(5), "leader").
		Return([]domain.JoinRequest{
			{ID: 1, RideID: 5, RiderID: "rider-a", Status: domain.RequestStatusPending},
			{ID: 2, RideID: 5, RiderID: "rider-b", Status: domain.RequestStatusPending},
		}, nil)

	handler.pending(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var response struct {
		Requests []requestResponse `json:"requests"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Len(t, response.Requests, 2)
	mockService.AssertExpectations(t)
}

func TestRequestHandler_sent(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewRequestHandler(mockService)

	c, w := testContext(t, "rider-1")
	c.Request = httptest.NewRequest("GET", "/user/requests", nil)

	mockService.On("SentRequests", mock.Anything, "rider-1").
		Return([]booking.SentRequest{
			{
				Request: domain.JoinRequest{ID: 1, RideID: 5, RiderID: "rider-1", Status: domain.RequestStatusPending},
				Ride:    &domain.Ride{ID: 5, Origin: "Delhi", Destination: "Agra", TotalSeats: 4, Price: 1200},
			},
		}, nil)

	handler.sent(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var response struct {
		Requests []sentRequestResponse `json:"requests"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Len(t, response.Requests, 1)
	assert.NotNil(t, response.Requests[0].Ride)
	assert.Equal(t, "Delhi", response.Requests[0].Ride.Origin)
	mockService.AssertExpectations(t)
}
