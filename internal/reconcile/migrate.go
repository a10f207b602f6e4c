package reconcile

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/medexam/booking-portal/internal/booking"
	"github.com/medexam/booking-portal/internal/legacy"
)

// LegacySource is the slice of the legacy store the migrator reads.
type LegacySource interface {
	Specialists(ctx context.Context) ([]legacy.Specialist, error)
	Referrers(ctx context.Context) ([]legacy.Referrer, error)
	Examinees(ctx context.Context) ([]legacy.Examinee, error)
	Bookings(ctx context.Context) ([]legacy.Booking, error)
	ProgressEntries(ctx context.Context) ([]legacy.Progress, error)
}

// Migrator imports referrers, examinees, bookings, and progress entries from
// the legacy database, in that order, translating foreign keys through one
// IdentityMap built at run start. Legacy primary keys are carried forward
// unchanged for everything except specialists, which are matched on calendar
// id. One bad record never aborts the batch.
type Migrator struct {
	source       LegacySource
	repo         booking.Repository
	defaultOrgID uuid.UUID
	actor        string

	// TestMode restricts the run to the first legacy booking's full dependency
	// chain so operators can verify a migration end to end on one record.
	TestMode bool
}

func NewMigrator(source LegacySource, repo booking.Repository, defaultOrgID uuid.UUID, actor string) *Migrator {
	return &Migrator{
		source:       source,
		repo:         repo,
		defaultOrgID: defaultOrgID,
		actor:        actor,
	}
}

// Run executes the migration. Only precondition failures (no specialists to
// map against, unreachable stores) propagate; per-record failures are caught,
// logged with the record's identifier, counted, and skipped.
func (m *Migrator) Run(ctx context.Context) (*RunStats, error) {
	stats := NewRunStats(false)

	current, err := m.repo.ListActiveSpecialists(ctx)
	if err != nil {
		return stats, fmt.Errorf("list active specialists: %w", err)
	}
	if len(current) == 0 {
		return stats, fmt.Errorf("no active specialists exist to map against; aborting before any writes")
	}

	legacySpecs, err := m.source.Specialists(ctx)
	if err != nil {
		return stats, fmt.Errorf("load legacy specialists: %w", err)
	}

	referrers, err := m.source.Referrers(ctx)
	if err != nil {
		return stats, fmt.Errorf("load legacy referrers: %w", err)
	}
	examinees, err := m.source.Examinees(ctx)
	if err != nil {
		return stats, fmt.Errorf("load legacy examinees: %w", err)
	}
	bookings, err := m.source.Bookings(ctx)
	if err != nil {
		return stats, fmt.Errorf("load legacy bookings: %w", err)
	}
	progress, err := m.source.ProgressEntries(ctx)
	if err != nil {
		return stats, fmt.Errorf("load legacy progress: %w", err)
	}

	if m.TestMode {
		referrers, examinees, bookings, progress = limitToFirstChain(referrers, examinees, bookings, progress)
		log.Info().Int("bookings", len(bookings)).Msg("test mode: limited to first booking's dependency chain")
	}

	idmap := NewIdentityMap()
	idmap.MatchSpecialists(legacySpecs, current)
	if idmap.UnmatchedSpecialists > 0 {
		log.Warn().Int("count", idmap.UnmatchedSpecialists).Msg("legacy specialists without a calendar match; dependent bookings will be skipped")
	}

	m.migrateReferrers(ctx, idmap, referrers, stats)
	m.migrateExaminees(ctx, idmap, examinees, stats)
	m.migrateBookings(ctx, idmap, bookings, stats)
	m.migrateProgress(ctx, idmap, progress, stats)

	return stats, nil
}

func (m *Migrator) migrateReferrers(ctx context.Context, idmap *IdentityMap, referrers []legacy.Referrer, stats *RunStats) {
	for _, lr := range referrers {
		ref := &booking.Referrer{
			ID:             lr.ID,
			OrganizationID: m.defaultOrgID,
			Name:           lr.Name,
			Email:          lr.Email,
			CreatedAt:      lr.CreatedAt,
		}
		if err := m.repo.CreateReferrer(ctx, ref); err != nil {
			stats.Skip(SkipOtherError)
			stats.Fail(lr.ID.String(), fmt.Sprintf("insert referrer: %v", err))
			log.Error().Err(err).Str("legacy_referrer_id", lr.ID.String()).Msg("referrer import failed")
			continue
		}
		idmap.Referrers[lr.ID] = ref.ID
		stats.Imported["referrers"]++
	}
}

func (m *Migrator) migrateExaminees(ctx context.Context, idmap *IdentityMap, examinees []legacy.Examinee, stats *RunStats) {
	for _, le := range examinees {
		referrerID, ok := idmap.Referrers[le.ReferrerID]
		if !ok {
			stats.Skip(SkipMissingReferrer)
			continue
		}

		ex := &booking.Examinee{
			ID:         le.ID,
			ReferrerID: referrerID,
			Name:       le.Name,
			Email:      le.Email,
			Phone:      le.Phone,
			CreatedAt:  le.CreatedAt,
		}
		if err := m.repo.CreateExaminee(ctx, ex); err != nil {
			stats.Skip(SkipOtherError)
			stats.Fail(le.ID.String(), fmt.Sprintf("insert examinee: %v", err))
			log.Error().Err(err).Str("legacy_examinee_id", le.ID.String()).Msg("examinee import failed")
			continue
		}
		idmap.Examinees[le.ID] = ex.ID
		stats.Imported["examinees"]++
	}
}

func (m *Migrator) migrateBookings(ctx context.Context, idmap *IdentityMap, bookings []legacy.Booking, stats *RunStats) {
	for _, lb := range bookings {
		// Downstream reconciliation keys on this id being present and unique;
		// inserting with a null correlation id would poison future syncs.
		if lb.ExternalAppointmentID == "" {
			stats.Skip(SkipOtherError)
			stats.Fail(lb.ID.String(), "missing external appointment id")
			continue
		}

		referrerID, ok := idmap.Referrers[lb.ReferrerID]
		if !ok {
			stats.Skip(SkipMissingReferrer)
			continue
		}
		examineeID, ok := idmap.Examinees[lb.ExamineeID]
		if !ok {
			stats.Skip(SkipMissingExaminee)
			continue
		}

		var specialistID *uuid.UUID
		if lb.SpecialistID != nil {
			mapped, ok := idmap.Specialists[*lb.SpecialistID]
			if !ok {
				stats.Skip(SkipMissingSpecialist)
				continue
			}
			specialistID = &mapped
		}

		status, statusKnown := booking.NormalizeStatus(lb.Status)
		stage, stageKnown := booking.NormalizeStage(lb.Status)

		b := &booking.Booking{
			ID:                    lb.ID,
			OrganizationID:        m.defaultOrgID,
			ReferrerID:            referrerID,
			SpecialistID:          specialistID,
			ExamineeID:            examineeID,
			DateTime:              lb.DateTime,
			Duration:              lb.Duration,
			Location:              lb.Location,
			Type:                  normalizeBookingType(lb.Type),
			ExternalAppointmentID: lb.ExternalAppointmentID,
			ExternalCalendarID:    lb.ExternalCalendarID,
			Status:                status,
			Notes:                 lb.Notes,
			CreatedAt:             lb.CreatedAt,
		}
		// The initial audit entry records where this booking entered the
		// workflow. A defaulted normalization is auditable via metadata.
		// Booking and entry go in as one transaction: an imported booking
		// must never exist with an empty history.
		metadata := map[string]string{"legacy_status": lb.Status}
		if !stageKnown || !statusKnown {
			metadata["normalized_from"] = lb.Status
		}
		entry := &booking.ProgressEntry{
			ToStage:   stage,
			ChangedBy: m.actor,
			Reason:    "imported from legacy system",
			Metadata:  metadata,
			CreatedAt: lb.CreatedAt,
		}
		if err := m.repo.CreateBookingWithEntry(ctx, b, entry); err != nil {
			stats.Skip(SkipOtherError)
			stats.Fail(lb.ID.String(), fmt.Sprintf("insert booking: %v", err))
			log.Error().Err(err).Str("legacy_booking_id", lb.ID.String()).Msg("booking import failed")
			continue
		}

		idmap.Bookings[lb.ID] = b.ID
		stats.Imported["bookings"]++
	}
}

func (m *Migrator) migrateProgress(ctx context.Context, idmap *IdentityMap, progress []legacy.Progress, stats *RunStats) {
	for _, lp := range progress {
		bookingID, ok := idmap.Bookings[lp.BookingID]
		if !ok {
			stats.Skip(SkipOtherError)
			continue
		}

		toStage, known := booking.NormalizeStage(lp.ToStatus)
		metadata := map[string]string{"legacy_status": lp.ToStatus}
		if !known {
			metadata["normalized_from"] = lp.ToStatus
		}

		var fromStage *booking.Stage
		if lp.FromStatus != nil {
			if s, ok := booking.NormalizeStage(*lp.FromStatus); ok {
				fromStage = &s
			} else {
				metadata["legacy_from_status"] = *lp.FromStatus
			}
		}

		entry := &booking.ProgressEntry{
			ID:        lp.ID,
			BookingID: bookingID,
			FromStage: fromStage,
			ToStage:   toStage,
			ChangedBy: lp.ChangedBy,
			Reason:    lp.Reason,
			Metadata:  metadata,
			CreatedAt: lp.CreatedAt,
		}
		if err := m.repo.AppendProgress(ctx, entry); err != nil {
			stats.Skip(SkipOtherError)
			stats.Fail(lp.ID.String(), fmt.Sprintf("insert progress: %v", err))
			log.Error().Err(err).Str("legacy_progress_id", lp.ID.String()).Msg("progress import failed")
			continue
		}
		stats.Imported["progress"]++
	}
}

func normalizeBookingType(raw string) booking.BookingType {
	if raw == string(booking.TypeTelehealth) {
		return booking.TypeTelehealth
	}
	return booking.TypeInPerson
}

// limitToFirstChain narrows the input to the first legacy booking plus the
// referrer, examinee, and progress entries it depends on.
func limitToFirstChain(
	referrers []legacy.Referrer,
	examinees []legacy.Examinee,
	bookings []legacy.Booking,
	progress []legacy.Progress,
) ([]legacy.Referrer, []legacy.Examinee, []legacy.Booking, []legacy.Progress) {
	if len(bookings) == 0 {
		return nil, nil, nil, nil
	}

	first := bookings[0]

	var refs []legacy.Referrer
	for _, r := range referrers {
		if r.ID == first.ReferrerID {
			refs = append(refs, r)
			break
		}
	}

	var exs []legacy.Examinee
	for _, e := range examinees {
		if e.ID == first.ExamineeID {
			exs = append(exs, e)
			break
		}
	}

	var prog []legacy.Progress
	for _, p := range progress {
		if p.BookingID == first.ID {
			prog = append(prog, p)
		}
	}

	return refs, exs, []legacy.Booking{first}, prog
}
