package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	redisclient "github.com/medexam/booking-portal/internal/redis"
)

var (
	ErrBookingBeingUpdated = errors.New("booking is currently being updated, please retry")
	ErrMissingActor        = errors.New("actor is required")
)

// Service is the collaborator surface offered to the web layer. UpdateProgress
// is the only sanctioned interactive entry into the state machine; everything
// it does goes through the repository's atomic status+audit path.
type Service struct {
	repo  Repository
	guard redisclient.Guard
}

func NewService(repo Repository, guard redisclient.Guard) *Service {
	return &Service{
		repo:  repo,
		guard: guard,
	}
}

func (s *Service) GetBooking(ctx context.Context, id uuid.UUID) (*Booking, error) {
	b, err := s.repo.GetBookingByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrBookingNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load booking: %w", err)
	}
	return b, nil
}

func (s *Service) ListBookings(ctx context.Context, f BookingFilter) ([]Booking, error) {
	bookings, err := s.repo.ListBookings(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return bookings, nil
}

func (s *Service) History(ctx context.Context, bookingID uuid.UUID) ([]ProgressEntry, error) {
	if _, err := s.repo.GetBookingByID(ctx, bookingID); err != nil {
		return nil, err
	}
	entries, err := s.repo.HistoryFor(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("load progress history: %w", err)
	}
	return entries, nil
}

// UpdateProgress records a stage change made by an interactive user. The
// implied coarse status follows from the stage; the closed->active correction
// path requires the correction flag and is recorded as such in the entry.
// A per-booking guard serializes double-submits; correctness under concurrent
// writers still comes from the repository transaction.
func (s *Service) UpdateProgress(ctx context.Context, bookingID uuid.UUID, toStage Stage, reason, actor string, correction bool) (*Booking, error) {
	if actor == "" {
		return nil, ErrMissingActor
	}
	if !toStage.Valid() {
		return nil, fmt.Errorf("%w: unknown stage %q", ErrInvalidStageTransition, toStage)
	}

	var updated *Booking

	err := s.guard.WithBookingLock(ctx, bookingID, func(lockCtx context.Context) error {
		b, err := s.repo.Transition(lockCtx, TransitionRequest{
			BookingID:  bookingID,
			ToStatus:   toStage.ImpliedStatus(),
			ToStage:    toStage,
			ChangedBy:  actor,
			Reason:     reason,
			Correction: correction,
		})
		if err != nil {
			return err
		}
		updated = b
		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrBookingBeingUpdated
		}
		return nil, err
	}

	log.Info().
		Str("booking_id", bookingID.String()).
		Str("to_stage", string(toStage)).
		Str("actor", actor).
		Bool("correction", correction).
		Msg("booking progress updated")

	return updated, nil
}

// ArchiveBooking hides a booking from default views. The stage stays where it
// is; only the coarse status moves, and the audit trail records the archival.
// Archival is forward-only like every other coarse movement.
func (s *Service) ArchiveBooking(ctx context.Context, bookingID uuid.UUID, reason, actor string) (*Booking, error) {
	if actor == "" {
		return nil, ErrMissingActor
	}

	var updated *Booking

	err := s.guard.WithBookingLock(ctx, bookingID, func(lockCtx context.Context) error {
		b, err := s.repo.Transition(lockCtx, TransitionRequest{
			BookingID: bookingID,
			ToStatus:  StatusArchived,
			ChangedBy: actor,
			Reason:    reason,
			Archive:   true,
		})
		if err != nil {
			return err
		}
		updated = b
		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrBookingBeingUpdated
		}
		return nil, err
	}

	log.Info().
		Str("booking_id", bookingID.String()).
		Str("actor", actor).
		Msg("booking archived")

	return updated, nil
}
