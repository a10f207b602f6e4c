package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrBookingNotFound        = errors.New("booking not found")
	ErrSpecialistNotFound     = errors.New("specialist not found")
	ErrDuplicateExternalID    = errors.New("external appointment id already in use")
	ErrInvalidStageTransition = errors.New("invalid stage transition")
	ErrInvalidStatusChange    = errors.New("invalid status change")
	ErrNoProgressHistory      = errors.New("booking has no progress history")
)

// TransitionRequest describes one status/stage movement. The repository applies
// the booking row update and the audit append in a single transaction; a coarse
// change without its entry (or the reverse) must never be observable.
type TransitionRequest struct {
	BookingID uuid.UUID
	ToStatus  Status
	ToStage   Stage
	ChangedBy string
	Reason    string
	Metadata  map[string]string

	// EffectiveAt stamps the lifecycle marker (cancelled_at for cancellations)
	// with the upstream event time rather than the local clock. Zero means now.
	EffectiveAt time.Time

	// Correction marks an administrative closed->active reversal. It bypasses
	// the stage walk check and is recorded in the entry metadata.
	Correction bool

	// Archive marks a pure coarse archival: the stage stays where it is, the
	// status moves to archived, and the audit entry records the archival.
	// ToStage is ignored and resolved from the booking's latest entry.
	Archive bool
}

// Repository contains all DB interactions needed by the service and the
// reconciliation engine.
type Repository interface {
	GetBookingByID(ctx context.Context, id uuid.UUID) (*Booking, error)
	GetBookingByExternalID(ctx context.Context, externalID string) (*Booking, error)
	ListBookings(ctx context.Context, f BookingFilter) ([]Booking, error)
	CreateBooking(ctx context.Context, b *Booking) error

	// CreateBookingWithEntry inserts the booking and its initial audit entry
	// in one transaction; an imported booking must never exist without its
	// first progress entry.
	CreateBookingWithEntry(ctx context.Context, b *Booking, e *ProgressEntry) error

	// Transition is the only writer of Booking.Status. It updates the booking
	// row and appends the matching ProgressEntry atomically.
	Transition(ctx context.Context, req TransitionRequest) (*Booking, error)

	// AppendProgress appends an entry without touching the booking row. Used by
	// the migration importer for historical entries; no update or delete
	// operation exists anywhere.
	AppendProgress(ctx context.Context, e *ProgressEntry) error
	HistoryFor(ctx context.Context, bookingID uuid.UUID) ([]ProgressEntry, error)
	LatestFor(ctx context.Context, bookingID uuid.UUID) (*ProgressEntry, error)

	CreateSpecialist(ctx context.Context, s *Specialist) error
	ListActiveSpecialists(ctx context.Context) ([]Specialist, error)

	CreateReferrer(ctx context.Context, r *Referrer) error
	CreateExaminee(ctx context.Context, e *Examinee) error
}
