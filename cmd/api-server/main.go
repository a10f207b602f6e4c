package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/medexam/booking-portal/internal/api"
	"github.com/medexam/booking-portal/internal/booking"
	"github.com/medexam/booking-portal/internal/config"
	"github.com/medexam/booking-portal/internal/db"
	"github.com/medexam/booking-portal/internal/document"
	"github.com/medexam/booking-portal/internal/logging"
	redisclient "github.com/medexam/booking-portal/internal/redis"
	"github.com/medexam/booking-portal/internal/securefield"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Init("api-server", "dev")
		log.Fatal().Err(err).Msg("config load error")
	}
	logging.Init("api-server", cfg.Env)

	log.Info().Str("env", cfg.Env).Str("http_port", cfg.HTTPPort).Msg("api-server starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	log.Info().Msg("connected to Postgres")

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection error")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Error().Err(err).Msg("error closing redis")
		}
	}()
	log.Info().Msg("connected to Redis")

	codec, err := securefield.NewCodec(cfg.FieldKey)
	if err != nil {
		log.Fatal().Err(err).Msg("field codec init error")
	}

	repo := booking.NewPgRepository(pgPool, codec)
	guard := redisclient.NewRedisBookingGuard(rdb, cfg.GuardTTL)
	svc := booking.NewService(repo, guard)
	docs := document.NewPgRepository(pgPool, codec)

	router := api.NewRouter(api.RouterConfig{
		Service:   svc,
		Documents: docs,
		PgPool:    pgPool,
		Redis:     rdb,
		Env:       cfg.Env,
		Version:   version,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: router,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server error")
		}
	}()

	<-rootCtx.Done()

	log.Info().Msg("shutting down api-server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
