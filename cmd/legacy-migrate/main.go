package main

import (
	"context"
	"flag"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/medexam/booking-portal/internal/booking"
	"github.com/medexam/booking-portal/internal/config"
	"github.com/medexam/booking-portal/internal/db"
	"github.com/medexam/booking-portal/internal/legacy"
	"github.com/medexam/booking-portal/internal/logging"
	"github.com/medexam/booking-portal/internal/reconcile"
	"github.com/medexam/booking-portal/internal/securefield"
)

func main() {
	orgFlag := flag.String("org", "", "organization id assigned to every imported record (required)")
	actorFlag := flag.String("actor", "", "user id recorded as the author of imported progress entries (required)")
	testMode := flag.Bool("test", false, "import only the first legacy booking and its dependency chain")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.Init("legacy-migrate", "dev")
		log.Fatal().Err(err).Msg("config load error")
	}
	logging.Init("legacy-migrate", cfg.Env)

	if err := cfg.RequireLegacy(); err != nil {
		log.Fatal().Err(err).Msg("missing legacy database configuration")
	}

	orgID, err := uuid.Parse(*orgFlag)
	if err != nil {
		log.Fatal().Str("org", *orgFlag).Msg("-org must be a valid uuid")
	}
	actorID, err := uuid.Parse(*actorFlag)
	if err != nil {
		log.Fatal().Str("actor", *actorFlag).Msg("-actor must be a valid uuid")
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	connCtx, cancelConn := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(connCtx, cfg.PostgresDSN)
	if err != nil {
		cancelConn()
		log.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()

	legacyPool, err := db.ConnectLegacy(connCtx, cfg.LegacyPostgresDSN)
	cancelConn()
	if err != nil {
		log.Fatal().Err(err).Msg("legacy postgres connection error")
	}
	defer legacyPool.Close()

	codec, err := securefield.NewCodec(cfg.FieldKey)
	if err != nil {
		log.Fatal().Err(err).Msg("field codec init error")
	}

	repo := booking.NewPgRepository(pgPool, codec)
	store := legacy.NewStore(legacyPool)

	migrator := reconcile.NewMigrator(store, repo, orgID, actorID.String())
	migrator.TestMode = *testMode

	log.Info().
		Str("org_id", orgID.String()).
		Str("actor", actorID.String()).
		Bool("test_mode", *testMode).
		Msg("legacy migration starting")

	stats, err := migrator.Run(rootCtx)
	if stats != nil {
		fmt.Print(stats.Report())
	}
	if err != nil {
		log.Fatal().Err(err).Msg("legacy migration aborted")
	}
}
