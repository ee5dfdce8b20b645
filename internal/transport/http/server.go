package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// NewRouter wires the booking API onto a gin engine. Every request gets a
// deadline so a stalled storage call cannot pin a worker.
func NewRouter(svc BookingService, log *slog.Logger, requestTimeout time.Duration) *gin.Engine {
	s := NewBookingServer(svc, log)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(defaultRequestTimeout(requestTimeout))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		api.GET("/availability", s.GetAvailability)
		api.GET("/services", s.ListServices)
		api.POST("/bookings", s.CreateBooking)
		api.GET("/bookings", s.ListBookings)
		api.DELETE("/bookings/:id", s.CancelBooking)
	}

	return r
}

func defaultRequestTimeout(timeout time.Duration) gin.HandlerFunc {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return func(c *gin.Context) {
		if _, ok := c.Request.Context().Deadline(); !ok {
			ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
			defer cancel()
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	}
}
