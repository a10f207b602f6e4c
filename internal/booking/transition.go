package booking

import (
	"fmt"
	"time"
)

// normalizeTransition validates req against the booking's current state and
// returns the request with archival defaults resolved. An archival keeps the
// current stage and moves only the coarse status, so it bypasses the stage
// walk; everything else must take a valid step unless it is a correction.
func normalizeTransition(b *Booking, fromStage *Stage, req TransitionRequest) (TransitionRequest, error) {
	if req.Archive {
		if req.ToStatus == "" {
			req.ToStatus = StatusArchived
		}
		if req.ToStatus != StatusArchived {
			return req, fmt.Errorf("%w: archival must target archived, got %s", ErrInvalidStatusChange, req.ToStatus)
		}
		if fromStage != nil {
			req.ToStage = *fromStage
		} else {
			req.ToStage = StageScheduled
		}
	}

	if !req.Correction && !req.Archive && fromStage != nil && !fromStage.CanTransitionTo(req.ToStage) {
		return req, fmt.Errorf("%w: %s -> %s", ErrInvalidStageTransition, *fromStage, req.ToStage)
	}
	if !b.Status.CanTransitionTo(req.ToStatus, req.Correction) {
		return req, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusChange, b.Status, req.ToStatus)
	}
	// cancelled_at != nil implies status = closed.
	if req.ToStage == StageCancelled && req.ToStatus != StatusClosed {
		return req, fmt.Errorf("%w: cancellation must close the booking", ErrInvalidStatusChange)
	}

	return req, nil
}

// applyTransition mutates the booking per an already validated request.
func applyTransition(b *Booking, req TransitionRequest, effective time.Time) {
	// A correction that reopens the booking clears the resolution markers,
	// whatever stage it lands on; cancelled_at must never survive on an
	// active booking.
	if req.Correction && req.ToStatus == StatusActive {
		b.CancelledAt = nil
		b.CompletedAt = nil
	}

	applyStageMarkers(b, req.ToStage, effective, req.Correction)
	b.Status = req.ToStatus
}

// applyStageMarkers sets the derived lifecycle timestamps. Markers are
// monotonic: once set they are only overwritten by an explicit correction.
func applyStageMarkers(b *Booking, stage Stage, effective time.Time, correction bool) {
	set := func(dst **time.Time) {
		if *dst == nil || correction {
			t := effective
			*dst = &t
		}
	}

	switch stage {
	case StageScheduled, StageRescheduled:
		set(&b.ScheduledAt)
	case StageCancelled:
		set(&b.CancelledAt)
	case StagePaymentReceived:
		set(&b.CompletedAt)
	}
}
