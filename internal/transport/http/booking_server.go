package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"peacefulpath/backend/internal/domain"
	"peacefulpath/backend/internal/service/booking"
	"peacefulpath/backend/internal/store"
)

const dateLayout = "2006-01-02"

type BookingService interface {
	Availability(ctx context.Context, day time.Time) ([]domain.Slot, error)
	Create(ctx context.Context, in booking.CreateInput) (domain.Reservation, error)
	Cancel(ctx context.Context, id uuid.UUID) (domain.Reservation, error)
	ListForUser(ctx context.Context, userID string) ([]domain.Reservation, error)
	Services(ctx context.Context) ([]domain.Service, error)
}

type BookingServer struct {
	svc BookingService
	log *slog.Logger
}

func NewBookingServer(svc BookingService, log *slog.Logger) *BookingServer {
	if log == nil {
		log = slog.Default()
	}
	return &BookingServer{
		svc: svc,
		log: log.With(slog.String("component", "http.booking")),
	}
}

func (s *BookingServer) GetAvailability(c *gin.Context) {
	log := s.log.With(slog.String("handler", "GetAvailability"))

	raw := c.Query("date")
	if raw == "" {
		log.Warn("invalid request", slog.String("reason", "missing_date"))
		c.JSON(http.StatusBadRequest, gin.H{"error": "date parameter is required"})
		return
	}
	day, err := time.ParseInLocation(dateLayout, raw, time.UTC)
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "unparseable_date"), slog.String("date", raw))
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be formatted YYYY-MM-DD"})
		return
	}

	slots, err := s.svc.Availability(c.Request.Context(), day)
	if err != nil {
		log.Error("availability failed", slog.Any("err", err), slog.String("date", raw))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch availability"})
		return
	}
	if slots == nil {
		slots = []domain.Slot{}
	}

	log.Debug("availability served", slog.String("date", raw), slog.Int("count", len(slots)))
	c.JSON(http.StatusOK, slots)
}

type createBookingRequest struct {
	ServiceID  string `json:"serviceId"`
	DurationID string `json:"durationId"`
	StartsAt   string `json:"startsAt"`
	UserID     string `json:"userId"`
}

func (s *BookingServer) CreateBooking(c *gin.Context) {
	log := s.log.With(slog.String("handler", "CreateBooking"))

	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("invalid request", slog.String("reason", "bad_json"), slog.Any("err", err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	serviceID, err := uuid.Parse(req.ServiceID)
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "invalid_service_id"))
		c.JSON(http.StatusBadRequest, gin.H{"error": "serviceId must be a UUID"})
		return
	}
	durationID, err := uuid.Parse(req.DurationID)
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "invalid_duration_id"))
		c.JSON(http.StatusBadRequest, gin.H{"error": "durationId must be a UUID"})
		return
	}
	startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "invalid_starts_at"))
		c.JSON(http.StatusBadRequest, gin.H{"error": "startsAt must be an RFC 3339 timestamp"})
		return
	}

	res, err := s.svc.Create(c.Request.Context(), booking.CreateInput{
		ServiceID:  serviceID,
		DurationID: durationID,
		StartsAt:   startsAt,
		UserID:     req.UserID,
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			log.Info(
				"booking conflict",
				slog.String("service_id", serviceID.String()),
				slog.Time("starts_at", startsAt),
			)
			c.JSON(http.StatusConflict, gin.H{"error": "this time slot is no longer available"})
			return
		}
		var vErr *booking.ValidationError
		if errors.As(err, &vErr) {
			log.Warn("invalid request", slog.Any("err", err))
			c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Error()})
			return
		}
		log.Error("booking create failed", slog.Any("err", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create booking"})
		return
	}

	log.Info(
		"booking created",
		slog.String("reservation_id", res.ID.String()),
		slog.Time("starts_at", res.StartsAt),
		slog.Time("ends_at", res.EndsAt),
	)
	c.JSON(http.StatusCreated, toReservationResponse(res))
}

func (s *BookingServer) CancelBooking(c *gin.Context) {
	log := s.log.With(slog.String("handler", "CancelBooking"))

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "invalid_uuid"))
		c.JSON(http.StatusBadRequest, gin.H{"error": "booking id must be a UUID"})
		return
	}

	res, err := s.svc.Cancel(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Info("booking not found", slog.String("reservation_id", id.String()))
			c.JSON(http.StatusNotFound, gin.H{"error": "booking not found"})
			return
		}
		if errors.Is(err, booking.ErrCancellationWindow) {
			log.Info("cancellation window expired", slog.String("reservation_id", id.String()))
			c.JSON(http.StatusBadRequest, gin.H{"error": "bookings can only be cancelled at least 24 hours in advance"})
			return
		}
		var vErr *booking.ValidationError
		if errors.As(err, &vErr) {
			log.Warn("invalid request", slog.Any("err", err))
			c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Error()})
			return
		}
		log.Error("booking cancel failed", slog.Any("err", err), slog.String("reservation_id", id.String()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to cancel booking"})
		return
	}

	log.Info("booking cancelled", slog.String("reservation_id", res.ID.String()), slog.Time("starts_at", res.StartsAt))
	c.JSON(http.StatusOK, toReservationResponse(res))
}

func (s *BookingServer) ListBookings(c *gin.Context) {
	log := s.log.With(slog.String("handler", "ListBookings"))

	userID := c.Query("user_id")
	rows, err := s.svc.ListForUser(c.Request.Context(), userID)
	if err != nil {
		var vErr *booking.ValidationError
		if errors.As(err, &vErr) {
			log.Warn("invalid request", slog.Any("err", err))
			c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Error()})
			return
		}
		log.Error("bookings list failed", slog.Any("err", err), slog.String("user_id", userID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch bookings"})
		return
	}

	out := make([]reservationResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, toReservationResponse(r))
	}

	log.Debug("bookings listed", slog.String("user_id", userID), slog.Int("count", len(out)))
	c.JSON(http.StatusOK, out)
}

func (s *BookingServer) ListServices(c *gin.Context) {
	log := s.log.With(slog.String("handler", "ListServices"))

	services, err := s.svc.Services(c.Request.Context())
	if err != nil {
		log.Error("services list failed", slog.Any("err", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch services"})
		return
	}

	out := make([]serviceResponse, 0, len(services))
	for _, svc := range services {
		out = append(out, toServiceResponse(svc))
	}
	c.JSON(http.StatusOK, out)
}

type reservationResponse struct {
	ID          string    `json:"id"`
	ServiceID   string    `json:"serviceId"`
	DurationID  string    `json:"durationId"`
	UserID      string    `json:"userId,omitempty"`
	StartsAt    time.Time `json:"startsAt"`
	EndsAt      time.Time `json:"endsAt"`
	Status      string    `json:"status"`
	ServiceName string    `json:"serviceName,omitempty"`
	Minutes     int       `json:"minutes,omitempty"`
	Price       float64   `json:"price,omitempty"`
}

func toReservationResponse(r domain.Reservation) reservationResponse {
	out := reservationResponse{
		ID:         r.ID.String(),
		ServiceID:  r.ServiceID.String(),
		DurationID: r.DurationID.String(),
		UserID:     r.UserID,
		StartsAt:   r.StartsAt,
		EndsAt:     r.EndsAt,
		Status:     string(r.Status),
	}
	if r.Service != nil {
		out.ServiceName = r.Service.Name
	}
	if r.Duration != nil {
		out.Minutes = r.Duration.Minutes
		out.Price = float64(r.Duration.PriceCents) / 100
	}
	return out
}

type serviceResponse struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Durations   []durationResponse `json:"durations"`
}

type durationResponse struct {
	ID      string  `json:"id"`
	Minutes int     `json:"minutes"`
	Price   float64 `json:"price"`
}

func toServiceResponse(s domain.Service) serviceResponse {
	durations := make([]durationResponse, 0, len(s.Durations))
	for _, d := range s.Durations {
		durations = append(durations, durationResponse{
			ID:      d.ID.String(),
			Minutes: d.Minutes,
			Price:   float64(d.PriceCents) / 100,
		})
	}
	return serviceResponse{
		ID:          s.ID.String(),
		Name:        s.Name,
		Description: s.Description,
		Durations:   durations,
	}
}
