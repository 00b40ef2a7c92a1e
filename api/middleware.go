package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Ansingh0305/BroCab/internal/domain"
	"github.com/Ansingh0305/BroCab/internal/observability"
)

const userIDKey = "userID"

// RequireUser pulls the caller's identity from the X-User-ID header. The
// gateway in front of this service has already authenticated the token;
// here an absent header is simply an anonymous caller.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing X-User-ID header"})
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

func currentUser(c *gin.Context) string {
	return c.GetString(userIDKey)
}

// Metrics records request latency per route and status.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		observability.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(c.Writer.Status()),
		).Observe(time.Since(start).Seconds())
	}
}

// writeError maps domain sentinels onto HTTP statuses. Anything
// unrecognized is a 500 with a generic body so internals don't leak.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, domain.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, domain.ErrAlreadyBooked),
		errors.Is(err, domain.ErrRideFull),
		errors.Is(err, domain.ErrInvolvementConflict),
		errors.Is(err, domain.ErrInvalidState),
		errors.Is(err, domain.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}
