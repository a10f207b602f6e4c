package reconcile

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/medexam/booking-portal/internal/booking"
	"github.com/medexam/booking-portal/internal/legacy"
)

// IdentityMap translates legacy identifiers into current ones for a single
// migration run. It is built tier by tier in dependency order (specialists,
// then referrers, examinees, bookings) and passed by pointer through each
// phase; it is never reconstructed mid-run and never falls back to fuzzy
// matching.
type IdentityMap struct {
	// Specialists is keyed by the legacy specialist id but matched on
	// external calendar id equality: specialist primary keys are not preserved
	// across systems, calendar ids are.
	Specialists map[uuid.UUID]uuid.UUID
	Referrers   map[uuid.UUID]uuid.UUID
	Examinees   map[uuid.UUID]uuid.UUID
	Bookings    map[uuid.UUID]uuid.UUID

	// UnmatchedSpecialists counts legacy specialists with no calendar-id match
	// in the target system. Bookings depending on them are skipped, with
	// accounting, never silently dropped.
	UnmatchedSpecialists int
}

func NewIdentityMap() *IdentityMap {
	return &IdentityMap{
		Specialists: make(map[uuid.UUID]uuid.UUID),
		Referrers:   make(map[uuid.UUID]uuid.UUID),
		Examinees:   make(map[uuid.UUID]uuid.UUID),
		Bookings:    make(map[uuid.UUID]uuid.UUID),
	}
}

// MatchSpecialists fills the specialist tier by pairing legacy and current
// specialists on external calendar id. Misses are warned about and counted.
func (m *IdentityMap) MatchSpecialists(legacySpecs []legacy.Specialist, current []booking.Specialist) {
	byCalendar := make(map[string]uuid.UUID, len(current))
	for _, s := range current {
		if s.ExternalCalendarID != "" {
			byCalendar[s.ExternalCalendarID] = s.ID
		}
	}

	for _, ls := range legacySpecs {
		id, ok := byCalendar[ls.ExternalCalendarID]
		if !ok {
			m.UnmatchedSpecialists++
			log.Warn().
				Str("legacy_specialist_id", ls.ID.String()).
				Str("external_calendar_id", ls.ExternalCalendarID).
				Msg("no matching specialist calendar in target system")
			continue
		}
		m.Specialists[ls.ID] = id
	}
}
