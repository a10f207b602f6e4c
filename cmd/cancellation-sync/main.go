package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/medexam/booking-portal/internal/booking"
	"github.com/medexam/booking-portal/internal/config"
	"github.com/medexam/booking-portal/internal/db"
	"github.com/medexam/booking-portal/internal/logging"
	"github.com/medexam/booking-portal/internal/provider"
	"github.com/medexam/booking-portal/internal/reconcile"
	"github.com/medexam/booking-portal/internal/securefield"
)

const dateLayout = "2006-01-02"

func main() {
	fromFlag := flag.String("from", "", "start date (YYYY-MM-DD); prompted if omitted")
	toFlag := flag.String("to", "", "end date (YYYY-MM-DD); prompted if omitted")
	dryRun := flag.Bool("dry-run", false, "perform every read and decision but suppress writes")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.Init("cancellation-sync", "dev")
		log.Fatal().Err(err).Msg("config load error")
	}
	logging.Init("cancellation-sync", cfg.Env)

	if err := cfg.RequireProvider(); err != nil {
		log.Fatal().Err(err).Msg("missing provider credentials")
	}

	from, to, err := resolveRange(*fromFlag, *toFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid date range")
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()

	codec, err := securefield.NewCodec(cfg.FieldKey)
	if err != nil {
		log.Fatal().Err(err).Msg("field codec init error")
	}

	repo := booking.NewPgRepository(pgPool, codec)
	client := provider.NewClient(provider.Config{
		BaseURL:     cfg.ProviderBaseURL,
		UserID:      cfg.ProviderUserID,
		APIKey:      cfg.ProviderAPIKey,
		MinInterval: cfg.ProviderMinInterval,
	})

	syncer := reconcile.NewCancellationSyncer(client, repo, cfg.ProviderPageSize, *dryRun)

	log.Info().
		Str("from", from.Format(dateLayout)).
		Str("to", to.Format(dateLayout)).
		Bool("dry_run", *dryRun).
		Msg("cancellation sync starting")

	stats, err := syncer.Run(rootCtx, from, to)
	if stats != nil {
		fmt.Print(stats.Report())
	}
	if err != nil {
		log.Fatal().Err(err).Msg("cancellation sync aborted")
	}
}

// resolveRange takes the date range from flags, prompting interactively for
// anything missing, and validates format and ordering.
func resolveRange(fromRaw, toRaw string) (time.Time, time.Time, error) {
	reader := bufio.NewReader(os.Stdin)

	if fromRaw == "" {
		fromRaw = prompt(reader, "start date (YYYY-MM-DD): ")
	}
	if toRaw == "" {
		toRaw = prompt(reader, "end date (YYYY-MM-DD): ")
	}

	from, err := time.Parse(dateLayout, fromRaw)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("start date %q: expected YYYY-MM-DD", fromRaw)
	}
	to, err := time.Parse(dateLayout, toRaw)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("end date %q: expected YYYY-MM-DD", toRaw)
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("end date %s is before start date %s", toRaw, fromRaw)
	}

	return from, to, nil
}

func prompt(reader *bufio.Reader, label string) string {
	fmt.Print(label)
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}
