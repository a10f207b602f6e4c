package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medexam/booking-portal/internal/booking"
)

// fakeRepo is an in-memory booking.Repository with the same transition
// semantics as the Postgres implementation. Transition prepares all changes on
// a copy and commits only if every step succeeds, so injected failures leave
// existing state untouched.
type fakeRepo struct {
	bookings   map[uuid.UUID]*booking.Booking
	byExternal map[string]uuid.UUID
	entries    map[uuid.UUID][]booking.ProgressEntry
	specs      []booking.Specialist
	referrers  map[uuid.UUID]booking.Referrer
	examinees  map[uuid.UUID]booking.Examinee
	seq        int64

	failEntryFor        map[uuid.UUID]bool
	failCreateBooking   map[uuid.UUID]bool
	failCreateExaminee  map[uuid.UUID]bool
	failCreateReferrer  map[uuid.UUID]bool
	failListSpecialists bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		bookings:           make(map[uuid.UUID]*booking.Booking),
		byExternal:         make(map[string]uuid.UUID),
		entries:            make(map[uuid.UUID][]booking.ProgressEntry),
		referrers:          make(map[uuid.UUID]booking.Referrer),
		examinees:          make(map[uuid.UUID]booking.Examinee),
		failEntryFor:       make(map[uuid.UUID]bool),
		failCreateBooking:  make(map[uuid.UUID]bool),
		failCreateExaminee: make(map[uuid.UUID]bool),
		failCreateReferrer: make(map[uuid.UUID]bool),
	}
}

func (r *fakeRepo) GetBookingByID(_ context.Context, id uuid.UUID) (*booking.Booking, error) {
	b, ok := r.bookings[id]
	if !ok {
		return nil, booking.ErrBookingNotFound
	}
	cp := *b
	return &cp, nil
}

func (r *fakeRepo) GetBookingByExternalID(_ context.Context, externalID string) (*booking.Booking, error) {
	id, ok := r.byExternal[externalID]
	if !ok {
		return nil, booking.ErrBookingNotFound
	}
	cp := *r.bookings[id]
	return &cp, nil
}

func (r *fakeRepo) ListBookings(_ context.Context, f booking.BookingFilter) ([]booking.Booking, error) {
	var out []booking.Booking
	for _, b := range r.bookings {
		if f.Status != nil && b.Status != *f.Status {
			continue
		}
		out = append(out, *b)
	}
	return out, nil
}

func (r *fakeRepo) CreateBooking(_ context.Context, b *booking.Booking) error {
	if r.failCreateBooking[b.ID] {
		return errors.New("injected booking insert failure")
	}
	if _, exists := r.byExternal[b.ExternalAppointmentID]; exists && b.ExternalAppointmentID != "" {
		return booking.ErrDuplicateExternalID
	}
	if _, ok := r.referrers[b.ReferrerID]; !ok {
		return fmt.Errorf("referrer %s does not exist", b.ReferrerID)
	}
	if _, ok := r.examinees[b.ExamineeID]; !ok {
		return fmt.Errorf("examinee %s does not exist", b.ExamineeID)
	}
	cp := *b
	r.bookings[b.ID] = &cp
	if b.ExternalAppointmentID != "" {
		r.byExternal[b.ExternalAppointmentID] = b.ID
	}
	return nil
}

func (r *fakeRepo) Transition(_ context.Context, req booking.TransitionRequest) (*booking.Booking, error) {
	current, ok := r.bookings[req.BookingID]
	if !ok {
		return nil, booking.ErrBookingNotFound
	}

	var fromStage *booking.Stage
	if hist := r.entries[req.BookingID]; len(hist) > 0 {
		fromStage = &hist[len(hist)-1].ToStage
	}

	if req.Archive {
		req.ToStatus = booking.StatusArchived
		if fromStage != nil {
			req.ToStage = *fromStage
		} else {
			req.ToStage = booking.StageScheduled
		}
	}

	if !req.Correction && !req.Archive && fromStage != nil && !fromStage.CanTransitionTo(req.ToStage) {
		return nil, fmt.Errorf("%w: %s -> %s", booking.ErrInvalidStageTransition, *fromStage, req.ToStage)
	}
	if !current.Status.CanTransitionTo(req.ToStatus, req.Correction) {
		return nil, fmt.Errorf("%w: %s -> %s", booking.ErrInvalidStatusChange, current.Status, req.ToStatus)
	}
	if req.ToStage == booking.StageCancelled && req.ToStatus != booking.StatusClosed {
		return nil, fmt.Errorf("%w: cancellation must close the booking", booking.ErrInvalidStatusChange)
	}

	effective := req.EffectiveAt
	if effective.IsZero() {
		effective = time.Now()
	}

	updated := *current
	updated.Status = req.ToStatus
	if req.Correction && req.ToStatus == booking.StatusActive {
		updated.CancelledAt = nil
		updated.CompletedAt = nil
	}
	switch req.ToStage {
	case booking.StageScheduled, booking.StageRescheduled:
		if updated.ScheduledAt == nil || req.Correction {
			t := effective
			updated.ScheduledAt = &t
		}
	case booking.StageCancelled:
		if updated.CancelledAt == nil {
			t := effective
			updated.CancelledAt = &t
		}
	case booking.StagePaymentReceived:
		if updated.CompletedAt == nil {
			t := effective
			updated.CompletedAt = &t
		}
	}

	if r.failEntryFor[req.BookingID] {
		// The audit insert failed, so nothing commits.
		return nil, errors.New("injected audit insert failure")
	}

	r.seq++
	entry := booking.ProgressEntry{
		ID:        uuid.New(),
		BookingID: req.BookingID,
		FromStage: fromStage,
		ToStage:   req.ToStage,
		ChangedBy: req.ChangedBy,
		Reason:    req.Reason,
		Metadata:  req.Metadata,
		CreatedAt: time.Now(),
		Seq:       r.seq,
	}
	r.bookings[req.BookingID] = &updated
	r.entries[req.BookingID] = append(r.entries[req.BookingID], entry)

	cp := updated
	return &cp, nil
}

func (r *fakeRepo) CreateBookingWithEntry(ctx context.Context, b *booking.Booking, e *booking.ProgressEntry) error {
	// One transaction: a failing audit insert must not leave the booking.
	if r.failEntryFor[b.ID] {
		return errors.New("injected audit insert failure")
	}
	if err := r.CreateBooking(ctx, b); err != nil {
		return err
	}
	e.BookingID = b.ID
	return r.AppendProgress(ctx, e)
}

func (r *fakeRepo) AppendProgress(_ context.Context, e *booking.ProgressEntry) error {
	if r.failEntryFor[e.BookingID] {
		return errors.New("injected audit insert failure")
	}
	r.seq++
	cp := *e
	if cp.ID == uuid.Nil {
		cp.ID = uuid.New()
	}
	cp.Seq = r.seq
	r.entries[e.BookingID] = append(r.entries[e.BookingID], cp)
	return nil
}

func (r *fakeRepo) HistoryFor(_ context.Context, bookingID uuid.UUID) ([]booking.ProgressEntry, error) {
	out := make([]booking.ProgressEntry, len(r.entries[bookingID]))
	copy(out, r.entries[bookingID])
	return out, nil
}

func (r *fakeRepo) LatestFor(_ context.Context, bookingID uuid.UUID) (*booking.ProgressEntry, error) {
	hist := r.entries[bookingID]
	if len(hist) == 0 {
		return nil, booking.ErrNoProgressHistory
	}
	cp := hist[len(hist)-1]
	return &cp, nil
}

func (r *fakeRepo) CreateSpecialist(_ context.Context, s *booking.Specialist) error {
	r.specs = append(r.specs, *s)
	return nil
}

func (r *fakeRepo) ListActiveSpecialists(_ context.Context) ([]booking.Specialist, error) {
	if r.failListSpecialists {
		return nil, errors.New("injected specialist list failure")
	}
	var out []booking.Specialist
	for _, s := range r.specs {
		if s.IsActive {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeRepo) CreateReferrer(_ context.Context, ref *booking.Referrer) error {
	if r.failCreateReferrer[ref.ID] {
		return errors.New("injected referrer insert failure")
	}
	r.referrers[ref.ID] = *ref
	return nil
}

func (r *fakeRepo) CreateExaminee(_ context.Context, e *booking.Examinee) error {
	if r.failCreateExaminee[e.ID] {
		return errors.New("injected examinee insert failure")
	}
	r.examinees[e.ID] = *e
	return nil
}

var _ booking.Repository = (*fakeRepo)(nil)
