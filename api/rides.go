package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Ansingh0305/BroCab/internal/geo"
	"github.com/Ansingh0305/BroCab/internal/service/rides"
)

type RideHandler struct {
	service rides.RideUseCase
	routes  RouteEstimator
}

// RouteEstimator enriches search results with distance and duration; nil
// means the search responds without them.
type RouteEstimator interface {
	EstimateRoute(ctx context.Context, origin, destination string) geo.RouteEstimate
}

type createRideRequest struct {
	Origin      string  `json:"origin"`
	Destination string  `json:"destination"`
	Date        string  `json:"date"`
	Departure   string  `json:"departure"`
	TotalSeats  int     `json:"total_seats"`
	Price       float64 `json:"price"`
}

type rideResponse struct {
	ID          int64   `json:"id"`
	LeaderID    string  `json:"leader_id"`
	Origin      string  `json:"origin"`
	Destination string  `json:"destination"`
	Date        string  `json:"date"`
	Departure   string  `json:"departure"`
	TotalSeats  int     `json:"total_seats"`
	SeatsFilled int     `json:"seats_filled"`
	SeatsLeft   int     `json:"seats_left"`
	Price       float64 `json:"price"`
	ApproxPrice int     `json:"approx_price"`
	Status      string  `json:"status"`
}

type filterResponse struct {
	Rides    []rideResponse `json:"rides"`
	Distance string         `json:"distance,omitempty"`
	Duration string         `json:"duration,omitempty"`
}

func NewRideHandler(service rides.RideUseCase) *RideHandler {
	return &RideHandler{service: service}
}

// WithRouteEstimator attaches distance/duration enrichment to searches.
func (h *RideHandler) WithRouteEstimator(routes RouteEstimator) *RideHandler {
	h.routes = routes
	return h
}

func (h *RideHandler) Register(router *gin.RouterGroup) {
	router.POST("/ride", h.create)
	router.GET("/rides/filter", h.filter)
	router.DELETE("/ride/:rideID", h.cancel)
	router.GET("/user/rides/posted", h.posted)
	router.GET("/user/rides/joined", h.joined)
}

func (h *RideHandler) create(c *gin.Context) {
	var req createRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ride, err := h.service.CreateRide(c.Request.Context(), rides.CreateRideInput{
		LeaderID:    currentUser(c),
		Origin:      req.Origin,
		Destination: req.Destination,
		Date:        req.Date,
		Departure:   req.Departure,
		TotalSeats:  req.TotalSeats,
		Price:       req.Price,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	view, err := h.service.GetRide(c.Request.Context(), ride.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toRideResponse(*view))
}

func (h *RideHandler) filter(c *gin.Context) {
	origin := c.Query("origin")
	destination := c.Query("destination")
	date := c.Query("date")

	views, err := h.service.Filter(c.Request.Context(), origin, destination, date)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := filterResponse{Rides: toRideResponses(views)}
	if h.routes != nil && len(views) > 0 {
		est := h.routes.EstimateRoute(c.Request.Context(), origin, destination)
		resp.Distance = est.Distance
		resp.Duration = est.Duration
	}
	c.JSON(http.StatusOK, resp)
}

func (h *RideHandler) cancel(c *gin.Context) {
	rideID, ok := pathID(c, "rideID")
	if !ok {
		return
	}
	if err := h.service.CancelRide(c.Request.Context(), rideID, currentUser(c)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "ride cancelled"})
}

func (h *RideHandler) posted(c *gin.Context) {
	views, err := h.service.PostedByUser(c.Request.Context(), currentUser(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rides": toRideResponses(views)})
}

func (h *RideHandler) joined(c *gin.Context) {
	views, err := h.service.JoinedByUser(c.Request.Context(), currentUser(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rides": toRideResponses(views)})
}

func toRideResponse(v rides.RideView) rideResponse {
	return rideResponse{
		ID:          v.ID,
		LeaderID:    v.LeaderID,
		Origin:      v.Origin,
		Destination: v.Destination,
		Date:        v.Date,
		Departure:   v.Departure,
		TotalSeats:  v.TotalSeats,
		SeatsFilled: v.SeatsFilled,
		SeatsLeft:   v.SeatsLeft,
		Price:       v.Price,
		ApproxPrice: v.ApproxPrice,
		Status:      string(v.Status),
	}
}

func toRideResponses(views []rides.RideView) []rideResponse {
	out := make([]rideResponse, 0, len(views))
	for _, v := range views {
		out = append(out, toRideResponse(v))
	}
	return out
}
