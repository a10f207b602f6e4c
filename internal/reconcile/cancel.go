package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/medexam/booking-portal/internal/booking"
	"github.com/medexam/booking-portal/internal/provider"
)

// ProviderSource is the slice of the provider client the syncer needs.
type ProviderSource interface {
	CanceledAppointments(ctx context.Context, minDate, maxDate time.Time, max int) ([]provider.Appointment, error)
}

// CancellationSyncer imports provider-side cancellations. It is one-way and
// idempotent: a booking already closed is counted and left alone, a booking the
// portal never had is counted and not an error, and re-running the same range
// changes nothing.
type CancellationSyncer struct {
	provider ProviderSource
	repo     booking.Repository
	pageSize int
	dryRun   bool
}

func NewCancellationSyncer(src ProviderSource, repo booking.Repository, pageSize int, dryRun bool) *CancellationSyncer {
	if pageSize <= 0 {
		pageSize = 100
	}
	return &CancellationSyncer{
		provider: src,
		repo:     repo,
		pageSize: pageSize,
		dryRun:   dryRun,
	}
}

// Run fetches canceled appointments in [from, to] one day window at a time
// (the provider paginates by date range) and applies each cancellation in its
// own transaction, so an aborted run leaves no partial state and resuming is
// safe.
func (s *CancellationSyncer) Run(ctx context.Context, from, to time.Time) (*RunStats, error) {
	stats := NewRunStats(s.dryRun)

	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		appointments, err := s.provider.CanceledAppointments(ctx, day, day, s.pageSize)
		stats.APICalls++
		if err != nil {
			stats.APIErrors++
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			log.Error().Err(err).Time("window", day).Msg("provider fetch failed")
			stats.Fail(day.Format("2006-01-02"), fmt.Sprintf("provider fetch: %v", err))
			continue
		}

		for _, appt := range appointments {
			if !appt.Canceled {
				continue
			}
			stats.Fetched++
			s.applyOne(ctx, appt, stats)
		}
	}

	return stats, nil
}

func (s *CancellationSyncer) applyOne(ctx context.Context, appt provider.Appointment, stats *RunStats) {
	b, err := s.repo.GetBookingByExternalID(ctx, appt.ID)
	if err != nil {
		if errors.Is(err, booking.ErrBookingNotFound) {
			// The booking may never have existed locally. Not an error.
			stats.NotFound++
			return
		}
		stats.Fail(appt.ID, fmt.Sprintf("load booking: %v", err))
		return
	}

	stats.Matched++

	if b.Status == booking.StatusClosed || b.Status == booking.StatusArchived {
		stats.AlreadyInTargetState++
		return
	}

	summary := BookingSummary{
		ID:           b.ID.String(),
		ExternalID:   appt.ID,
		Date:         appt.Datetime,
		ExamineeName: b.ExamineeName,
	}

	if s.dryRun {
		// Every read and decision above still ran; only the write is skipped.
		stats.Updated++
		stats.Affect(summary)
		return
	}

	_, err = s.repo.Transition(ctx, booking.TransitionRequest{
		BookingID:   b.ID,
		ToStatus:    booking.StatusClosed,
		ToStage:     booking.StageCancelled,
		ChangedBy:   booking.SystemActor,
		Reason:      "cancelled by scheduling provider",
		EffectiveAt: appt.Datetime,
		Metadata: map[string]string{
			"external_appointment_id": appt.ID,
			"external_calendar_id":    appt.CalendarID,
		},
	})
	if err != nil {
		stats.Fail(appt.ID, fmt.Sprintf("close booking: %v", err))
		log.Error().Err(err).
			Str("booking_id", b.ID.String()).
			Str("external_id", appt.ID).
			Msg("cancellation transition failed")
		return
	}

	stats.Updated++
	stats.Affect(summary)
	log.Info().
		Str("booking_id", b.ID.String()).
		Str("external_id", appt.ID).
		Time("cancelled_at", appt.Datetime).
		Msg("booking closed from provider cancellation")
}
