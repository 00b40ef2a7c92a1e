package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Ansingh0305/BroCab/internal/domain"
	"github.com/Ansingh0305/BroCab/internal/service/booking"
	"github.com/Ansingh0305/BroCab/internal/service/rides"
)

type RequestHandler struct {
	service booking.BookingUseCase
}

type requestResponse struct {
	ID        int64  `json:"id"`
	RideID    int64  `json:"ride_id"`
	RiderID   string `json:"rider_id"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

type sentRequestResponse struct {
	requestResponse
	Ride *rideResponse `json:"ride,omitempty"`
}

func NewRequestHandler(service booking.BookingUseCase) *RequestHandler {
	return &RequestHandler{service: service}
}

func (h *RequestHandler) Register(router *gin.RouterGroup) {
	router.POST("/ride/:rideID/join", h.join)
	router.GET("/ride/:rideID/requests", h.pending)
	router.POST("/request/:requestID/accept", h.accept)
	router.POST("/request/:requestID/reject", h.reject)
	router.DELETE("/request/:requestID", h.cancel)
	router.GET("/user/requests", h.sent)
}

func (h *RequestHandler) join(c *gin.Context) {
	rideID, ok := pathID(c, "rideID")
	if !ok {
		return
	}

	req, err := h.service.RequestJoin(c.Request.Context(), rideID, currentUser(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toRequestResponse(*req))
}

func (h *RequestHandler) pending(c *gin.Context) {
	rideID, ok := pathID(c, "rideID")
	if !ok {
		return
	}

	requests, err := h.service.PendingRequests(c.Request.Context(), rideID, currentUser(c))
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]requestResponse, 0, len(requests))
	for _, req := range requests {
		out = append(out, toRequestResponse(req))
	}
	c.JSON(http.StatusOK, gin.H{"requests": out})
}

func (h *RequestHandler) accept(c *gin.Context) {
	requestID, ok := pathID(c, "requestID")
	if !ok {
		return
	}

	ride, err := h.service.AcceptRequest(c.Request.Context(), requestID, currentUser(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":      "request accepted",
		"ride_id":      ride.ID,
		"seats_filled": ride.SeatsFilled,
		"seats_left":   ride.SeatsLeft(),
	})
}

func (h *RequestHandler) reject(c *gin.Context) {
	requestID, ok := pathID(c, "requestID")
	if !ok {
		return
	}

	if err := h.service.RejectRequest(c.Request.Context(), requestID, currentUser(c)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "request rejected"})
}

func (h *RequestHandler) cancel(c *gin.Context) {
	requestID, ok := pathID(c, "requestID")
	if !ok {
		return
	}

	if err := h.service.CancelRequest(c.Request.Context(), requestID, currentUser(c)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "request cancelled"})
}

func (h *RequestHandler) sent(c *gin.Context) {
	sent, err := h.service.SentRequests(c.Request.Context(), currentUser(c))
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]sentRequestResponse, 0, len(sent))
	for _, entry := range sent {
		item := sentRequestResponse{requestResponse: toRequestResponse(entry.Request)}
		if entry.Ride != nil {
			ride := toRideResponse(rides.View(*entry.Ride))
			item.Ride = &ride
		}
		out = append(out, item)
	}
	c.JSON(http.StatusOK, gin.H{"requests": out})
}

func toRequestResponse(req domain.JoinRequest) requestResponse {
	return requestResponse{
		ID:        req.ID,
		RideID:    req.RideID,
		RiderID:   req.RiderID,
		Status:    string(req.Status),
		CreatedAt: req.CreatedAt.Format(time.RFC3339),
	}
}
