package booking

import (
	"time"

	"github.com/google/uuid"
)

type BookingType string

const (
	TypeInPerson   BookingType = "in-person"
	TypeTelehealth BookingType = "telehealth"
)

// SystemActor is the reserved actor identity recorded on transitions made by
// automated reconciliation rather than an interactive user.
const SystemActor = "system"

type Booking struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	ReferrerID     uuid.UUID
	SpecialistID   *uuid.UUID
	ExamineeID     uuid.UUID

	DateTime *time.Time
	Duration int
	Location string
	Type     BookingType

	ExternalAppointmentID string
	ExternalCalendarID    string

	Status Status

	ScheduledAt *time.Time
	CompletedAt *time.Time
	CancelledAt *time.Time

	// Sensitive attributes, stored encrypted at rest.
	ExamineeName  string
	ExamineeEmail string
	ExamineePhone string
	Notes         string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ProgressEntry is one row of the append-only audit trail. Entries are never
// updated or deleted; a booking's history is the ordered sequence of entries.
type ProgressEntry struct {
	ID        uuid.UUID
	BookingID uuid.UUID
	FromStage *Stage
	ToStage   Stage
	ChangedBy string
	Reason    string
	Metadata  map[string]string
	CreatedAt time.Time
	Seq       int64
}

type Specialist struct {
	ID                 uuid.UUID
	UserID             uuid.UUID
	ExternalCalendarID string
	Position           int
	IsActive           bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type Referrer struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	Name           string
	Email          string
	CreatedAt      time.Time
}

type Examinee struct {
	ID         uuid.UUID
	ReferrerID uuid.UUID

	// Encrypted at rest.
	Name  string
	Email string
	Phone string

	CreatedAt time.Time
}

type BookingFilter struct {
	Status         *Status
	SpecialistID   *uuid.UUID
	OrganizationID *uuid.UUID
}
