package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/medexam/booking-portal/internal/booking"
	"github.com/medexam/booking-portal/internal/config"
	"github.com/medexam/booking-portal/internal/db"
	"github.com/medexam/booking-portal/internal/logging"
	"github.com/medexam/booking-portal/internal/securefield"
)

func main() {
	specialistCount := flag.Int("specialists", 10, "number of specialists to create")
	referrerCount := flag.Int("referrers", 20, "number of referrers to create")
	bookingCount := flag.Int("bookings", 500, "number of bookings (one examinee each) to create")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.Init("seed", "dev")
		log.Fatal().Err(err).Msg("config load error")
	}
	logging.Init("seed", cfg.Env)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pool.Close()

	codec, err := securefield.NewCodec(cfg.FieldKey)
	if err != nil {
		log.Fatal().Err(err).Msg("field codec init error")
	}

	repo := booking.NewPgRepository(pool, codec)
	gofakeit.Seed(time.Now().UnixNano())

	seedCtx := context.Background()
	orgID := uuid.New()

	specialists, err := seedSpecialists(seedCtx, repo, *specialistCount)
	if err != nil {
		log.Fatal().Err(err).Msg("seeding specialists failed")
	}
	referrers, err := seedReferrers(seedCtx, repo, orgID, *referrerCount)
	if err != nil {
		log.Fatal().Err(err).Msg("seeding referrers failed")
	}
	if err := seedBookings(seedCtx, repo, orgID, specialists, referrers, *bookingCount); err != nil {
		log.Fatal().Err(err).Msg("seeding bookings failed")
	}

	log.Info().
		Int("specialists", *specialistCount).
		Int("referrers", *referrerCount).
		Int("bookings", *bookingCount).
		Msg("seed complete")
}

func seedSpecialists(ctx context.Context, repo booking.Repository, count int) ([]booking.Specialist, error) {
	out := make([]booking.Specialist, 0, count)
	for i := 0; i < count; i++ {
		s := booking.Specialist{
			ID:                 uuid.New(),
			UserID:             uuid.New(),
			ExternalCalendarID: fmt.Sprintf("%d", gofakeit.Number(1000000, 9999999)),
			Position:           i + 1,
			IsActive:           true,
		}
		if err := repo.CreateSpecialist(ctx, &s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func seedReferrers(ctx context.Context, repo booking.Repository, orgID uuid.UUID, count int) ([]booking.Referrer, error) {
	out := make([]booking.Referrer, 0, count)
	for i := 0; i < count; i++ {
		r := booking.Referrer{
			ID:             uuid.New(),
			OrganizationID: orgID,
			Name:           gofakeit.Company(),
			Email:          gofakeit.Email(),
		}
		if err := repo.CreateReferrer(ctx, &r); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func seedBookings(ctx context.Context, repo booking.Repository, orgID uuid.UUID, specialists []booking.Specialist, referrers []booking.Referrer, count int) error {
	types := []booking.BookingType{booking.TypeInPerson, booking.TypeTelehealth}

	for i := 0; i < count; i++ {
		ref := referrers[gofakeit.Number(0, len(referrers)-1)]

		examinee := booking.Examinee{
			ID:         uuid.New(),
			ReferrerID: ref.ID,
			Name:       gofakeit.Name(),
			Email:      gofakeit.Email(),
			Phone:      gofakeit.Phone(),
		}
		if err := repo.CreateExaminee(ctx, &examinee); err != nil {
			return err
		}

		spec := specialists[gofakeit.Number(0, len(specialists)-1)]
		when := time.Now().AddDate(0, 0, gofakeit.Number(1, 60)).Truncate(time.Hour)

		b := booking.Booking{
			ID:                    uuid.New(),
			OrganizationID:        orgID,
			ReferrerID:            ref.ID,
			SpecialistID:          &spec.ID,
			ExamineeID:            examinee.ID,
			DateTime:              &when,
			Duration:              gofakeit.Number(2, 6) * 15,
			Location:              gofakeit.City(),
			Type:                  types[gofakeit.Number(0, 1)],
			ExternalAppointmentID: fmt.Sprintf("%d", gofakeit.Number(100000000, 999999999)),
			ExternalCalendarID:    spec.ExternalCalendarID,
			Status:                booking.StatusActive,
			ExamineeName:          examinee.Name,
			ExamineeEmail:         examinee.Email,
			ExamineePhone:         examinee.Phone,
			Notes:                 gofakeit.Sentence(8),
		}
		if err := repo.CreateBookingWithEntry(ctx, &b, &booking.ProgressEntry{
			ToStage:   booking.StageScheduled,
			ChangedBy: booking.SystemActor,
			Reason:    "seeded",
		}); err != nil {
			return err
		}

		if (i+1)%100 == 0 {
			log.Info().Int("done", i+1).Int("total", count).Msg("bookings seeded")
		}
	}
	return nil
}
