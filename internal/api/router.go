package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/medflow/clinic-scheduling/internal/availability"
	"github.com/medflow/clinic-scheduling/internal/booking"
	"github.com/medflow/clinic-scheduling/internal/interval"
	"github.com/medflow/clinic-scheduling/internal/observability/metrics"
	"github.com/medflow/clinic-scheduling/pkg/logging"
)

// BookingService is the slice of the booking service the HTTP layer uses.
type BookingService interface {
	ProposeBooking(ctx context.Context, p booking.Proposal) (*booking.Appointment, error)
	RescheduleBooking(ctx context.Context, id uuid.UUID, newSpan interval.Interval) (*booking.Appointment, error)
	GetAppointment(ctx context.Context, id uuid.UUID) (*booking.Appointment, error)
	QueryAppointments(ctx context.Context, win interval.Interval, f booking.Filters) ([]booking.Appointment, error)
	Cancel(ctx context.Context, id uuid.UUID) (*booking.Appointment, error)
	RedeemConfirmationToken(ctx context.Context, token string) (*booking.ConfirmationResult, error)
}

// AvailabilityService is the slice of the availability service the HTTP
// layer uses.
type AvailabilityService interface {
	CreateBlock(ctx context.Context, b availability.Block) (*availability.Block, error)
	DeleteBlock(ctx context.Context, id uuid.UUID) error
	QueryWindows(ctx context.Context, clinicID uuid.UUID, win interval.Interval, therapistID *uuid.UUID) ([]interval.Interval, error)
}

type RouterConfig struct {
	Bookings     BookingService
	Availability AvailabilityService
	PgPool       *pgxpool.Pool
	Redis        *redis.Client
	Log          *logging.Logger
	Metrics      *metrics.SchedulingMetrics
	Env          string
	Version      string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Log, cfg.Metrics))

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/bookings", func(r chi.Router) {
		r.Post("/", proposeBookingHandler(cfg.Bookings))
		r.Get("/", listBookingsHandler(cfg.Bookings))
		r.Get("/{id}", getAppointmentHandler(cfg.Bookings))
		r.Post("/{id}/reschedule", rescheduleBookingHandler(cfg.Bookings))
		r.Post("/{id}/cancel", cancelBookingHandler(cfg.Bookings))
	})

	r.Post("/confirmations/{token}", redeemConfirmationHandler(cfg.Bookings))

	r.Get("/availability", queryAvailabilityHandler(cfg.Availability))
	r.Post("/availability/blocks", createBlockHandler(cfg.Availability))
	r.Delete("/availability/blocks/{id}", deleteBlockHandler(cfg.Availability))

	return r
}
