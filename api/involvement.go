package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Ansingh0305/BroCab/internal/service/involvement"
)

type InvolvementHandler struct {
	service involvement.InvolvementUseCase
}

type involvementRecordResponse struct {
	RideID int64  `json:"ride_id"`
	Role   string `json:"role"`
}

func NewInvolvementHandler(service involvement.InvolvementUseCase) *InvolvementHandler {
	return &InvolvementHandler{service: service}
}

func (h *InvolvementHandler) Register(router *gin.RouterGroup) {
	router.GET("/user/involvement/:date", h.check)
	router.DELETE("/user/involvement/:date", h.clear)
}

func (h *InvolvementHandler) check(c *gin.Context) {
	status, err := h.service.CheckInvolvement(c.Request.Context(), currentUser(c), c.Param("date"))
	if err != nil {
		writeError(c, err)
		return
	}

	records := make([]involvementRecordResponse, 0, len(status.Records))
	for _, rec := range status.Records {
		records = append(records, involvementRecordResponse{RideID: rec.RideID, Role: string(rec.Role)})
	}
	c.JSON(http.StatusOK, gin.H{
		"date":     status.Date,
		"involved": status.Involved,
		"records":  records,
	})
}

func (h *InvolvementHandler) clear(c *gin.Context) {
	summary, err := h.service.ClearInvolvement(c.Request.Context(), currentUser(c), c.Param("date"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":           "involvement cleared",
		"rides_cancelled":   summary.RidesCancelled,
		"rides_withdrawn":   summary.RidesWithdrawn,
		"pending_cancelled": summary.PendingCancelled,
	})
}
