package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/medexam/booking-portal/internal/booking"
	"github.com/medexam/booking-portal/internal/document"
)

type RouterConfig struct {
	Service   *booking.Service
	Documents document.Repository
	PgPool    *pgxpool.Pool
	Redis     *redis.Client
	Env       string
	Version   string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Get("/bookings", listBookingsHandler(cfg.Service))
	r.Get("/bookings/{id}", getBookingHandler(cfg.Service))
	r.Post("/bookings/{id}/progress", updateProgressHandler(cfg.Service))
	r.Post("/bookings/{id}/archive", archiveBookingHandler(cfg.Service))
	r.Get("/bookings/{id}/progress", getProgressHandler(cfg.Service))
	r.Get("/bookings/{id}/documents", listDocumentsHandler(cfg.Documents))

	return r
}
