package booking

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cancelledBooking() (*Booking, *Stage) {
	cancelledAt := time.Date(2025, 10, 5, 10, 0, 0, 0, time.UTC)
	scheduledAt := time.Date(2025, 9, 1, 9, 0, 0, 0, time.UTC)
	stage := StageCancelled
	return &Booking{
		ID:          uuid.New(),
		Status:      StatusClosed,
		ScheduledAt: &scheduledAt,
		CancelledAt: &cancelledAt,
	}, &stage
}

func TestCorrectionReopenClearsResolutionMarkers(t *testing.T) {
	// Reopening into any stage, not just scheduled, must clear cancelled_at:
	// an active booking with a cancellation marker is contradictory state.
	for _, target := range []Stage{StageGeneratingReport, StageRescheduled, StageScheduled} {
		b, from := cancelledBooking()

		req := TransitionRequest{
			BookingID:  b.ID,
			ToStatus:   StatusActive,
			ToStage:    target,
			ChangedBy:  "admin-1",
			Correction: true,
		}
		req, err := normalizeTransition(b, from, req)
		require.NoError(t, err, "correction to %s", target)

		applyTransition(b, req, time.Now())

		assert.Equal(t, StatusActive, b.Status, "target %s", target)
		assert.Nil(t, b.CancelledAt, "cancelled_at must not survive reopening to %s", target)
		assert.Nil(t, b.CompletedAt, "target %s", target)
	}
}

func TestCorrectionReopenOfCompletedBooking(t *testing.T) {
	completedAt := time.Date(2025, 10, 20, 0, 0, 0, 0, time.UTC)
	stage := StagePaymentReceived
	b := &Booking{ID: uuid.New(), Status: StatusClosed, CompletedAt: &completedAt}

	req := TransitionRequest{
		BookingID:  b.ID,
		ToStatus:   StatusActive,
		ToStage:    StageGeneratingReport,
		ChangedBy:  "admin-1",
		Correction: true,
	}
	req, err := normalizeTransition(b, &stage, req)
	require.NoError(t, err)

	applyTransition(b, req, time.Now())

	assert.Equal(t, StatusActive, b.Status)
	assert.Nil(t, b.CompletedAt)
}

func TestReopenWithoutCorrectionRejected(t *testing.T) {
	b, from := cancelledBooking()

	_, err := normalizeTransition(b, from, TransitionRequest{
		BookingID: b.ID,
		ToStatus:  StatusActive,
		ToStage:   StageScheduled,
		ChangedBy: "user-1",
	})
	assert.ErrorIs(t, err, ErrInvalidStageTransition)
}

func TestCancellationMustClose(t *testing.T) {
	stage := StageScheduled
	b := &Booking{ID: uuid.New(), Status: StatusActive}

	_, err := normalizeTransition(b, &stage, TransitionRequest{
		BookingID: b.ID,
		ToStatus:  StatusActive,
		ToStage:   StageCancelled,
		ChangedBy: "user-1",
	})
	assert.ErrorIs(t, err, ErrInvalidStatusChange)
}

func TestCancellationStampsEventTime(t *testing.T) {
	stage := StageScheduled
	b := &Booking{ID: uuid.New(), Status: StatusActive}
	eventTime := time.Date(2025, 10, 5, 10, 0, 0, 0, time.UTC)

	req := TransitionRequest{
		BookingID: b.ID,
		ToStatus:  StatusClosed,
		ToStage:   StageCancelled,
		ChangedBy: SystemActor,
	}
	req, err := normalizeTransition(b, &stage, req)
	require.NoError(t, err)

	applyTransition(b, req, eventTime)

	require.NotNil(t, b.CancelledAt)
	assert.True(t, b.CancelledAt.Equal(eventTime))
	assert.Equal(t, StatusClosed, b.Status)
}

func TestArchiveCancelledBooking(t *testing.T) {
	b, from := cancelledBooking()
	keptCancelledAt := *b.CancelledAt

	req := TransitionRequest{
		BookingID: b.ID,
		ToStatus:  StatusArchived,
		ChangedBy: "admin-1",
		Archive:   true,
	}
	req, err := normalizeTransition(b, from, req)
	require.NoError(t, err)

	// The stage is held in place, not walked.
	assert.Equal(t, StageCancelled, req.ToStage)

	applyTransition(b, req, time.Now())

	assert.Equal(t, StatusArchived, b.Status)
	require.NotNil(t, b.CancelledAt)
	assert.True(t, b.CancelledAt.Equal(keptCancelledAt), "archival leaves markers alone")
}

func TestArchiveCompletedBooking(t *testing.T) {
	completedAt := time.Date(2025, 10, 20, 0, 0, 0, 0, time.UTC)
	stage := StagePaymentReceived
	b := &Booking{ID: uuid.New(), Status: StatusClosed, CompletedAt: &completedAt}

	req := TransitionRequest{BookingID: b.ID, ChangedBy: "admin-1", Archive: true}
	req, err := normalizeTransition(b, &stage, req)
	require.NoError(t, err)
	assert.Equal(t, StatusArchived, req.ToStatus)
	assert.Equal(t, StagePaymentReceived, req.ToStage)

	applyTransition(b, req, time.Now())
	assert.Equal(t, StatusArchived, b.Status)
}

func TestArchiveActiveBooking(t *testing.T) {
	stage := StageScheduled
	b := &Booking{ID: uuid.New(), Status: StatusActive}

	req := TransitionRequest{BookingID: b.ID, ChangedBy: "admin-1", Archive: true}
	req, err := normalizeTransition(b, &stage, req)
	require.NoError(t, err)

	applyTransition(b, req, time.Now())
	assert.Equal(t, StatusArchived, b.Status)
}

func TestArchiveRejectsOtherTargetStatus(t *testing.T) {
	b, from := cancelledBooking()

	_, err := normalizeTransition(b, from, TransitionRequest{
		BookingID: b.ID,
		ToStatus:  StatusClosed,
		ChangedBy: "admin-1",
		Archive:   true,
	})
	assert.ErrorIs(t, err, ErrInvalidStatusChange)
}

func TestArchivedBookingCannotMove(t *testing.T) {
	stage := StageCancelled
	b := &Booking{ID: uuid.New(), Status: StatusArchived}

	_, err := normalizeTransition(b, &stage, TransitionRequest{
		BookingID:  b.ID,
		ToStatus:   StatusActive,
		ToStage:    StageScheduled,
		ChangedBy:  "admin-1",
		Correction: true,
	})
	assert.ErrorIs(t, err, ErrInvalidStatusChange)
}
