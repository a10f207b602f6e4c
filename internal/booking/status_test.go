package booking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStageWalk(t *testing.T) {
	cases := []struct {
		from    Stage
		to      Stage
		allowed bool
	}{
		{StageScheduled, StageRescheduled, true},
		{StageScheduled, StageCancelled, true},
		{StageScheduled, StageNoShow, true},
		{StageScheduled, StageGeneratingReport, true},
		{StageScheduled, StageReportGenerated, false},
		{StageScheduled, StagePaymentReceived, false},

		{StageRescheduled, StageRescheduled, true},
		{StageRescheduled, StageCancelled, true},
		{StageRescheduled, StageNoShow, true},
		{StageRescheduled, StageGeneratingReport, true},
		{StageRescheduled, StageScheduled, false},

		{StageGeneratingReport, StageReportGenerated, true},
		{StageGeneratingReport, StageCancelled, false},
		{StageReportGenerated, StagePaymentReceived, true},
		{StageReportGenerated, StageGeneratingReport, false},

		{StagePaymentReceived, StageScheduled, false},
		{StageCancelled, StageScheduled, false},
		{StageCancelled, StageRescheduled, false},
		{StageNoShow, StageGeneratingReport, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.allowed, tc.from.CanTransitionTo(tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}

func TestStageTerminal(t *testing.T) {
	assert.True(t, StageCancelled.Terminal())
	assert.True(t, StageNoShow.Terminal())
	assert.True(t, StagePaymentReceived.Terminal())

	assert.False(t, StageScheduled.Terminal())
	assert.False(t, StageRescheduled.Terminal())
	assert.False(t, StageGeneratingReport.Terminal())
	assert.False(t, StageReportGenerated.Terminal())
}

func TestStageImpliedStatus(t *testing.T) {
	assert.Equal(t, StatusClosed, StageCancelled.ImpliedStatus())
	assert.Equal(t, StatusClosed, StageNoShow.ImpliedStatus())
	assert.Equal(t, StatusClosed, StagePaymentReceived.ImpliedStatus())

	assert.Equal(t, StatusActive, StageScheduled.ImpliedStatus())
	assert.Equal(t, StatusActive, StageRescheduled.ImpliedStatus())
	assert.Equal(t, StatusActive, StageGeneratingReport.ImpliedStatus())
	assert.Equal(t, StatusActive, StageReportGenerated.ImpliedStatus())
}

func TestStatusForwardOnly(t *testing.T) {
	assert.True(t, StatusActive.CanTransitionTo(StatusClosed, false))
	assert.True(t, StatusActive.CanTransitionTo(StatusArchived, false))
	assert.True(t, StatusClosed.CanTransitionTo(StatusArchived, false))

	assert.False(t, StatusClosed.CanTransitionTo(StatusActive, false))
	assert.False(t, StatusArchived.CanTransitionTo(StatusClosed, false))
	assert.False(t, StatusArchived.CanTransitionTo(StatusActive, false))
	assert.False(t, StatusArchived.CanTransitionTo(StatusActive, true))

	// Same-status transitions carry a stage change without coarse movement.
	assert.True(t, StatusActive.CanTransitionTo(StatusActive, false))
	assert.True(t, StatusClosed.CanTransitionTo(StatusClosed, false))
}

func TestStatusCorrectionReopens(t *testing.T) {
	assert.True(t, StatusClosed.CanTransitionTo(StatusActive, true))
	assert.False(t, StatusClosed.CanTransitionTo(StatusActive, false))
}

func TestNormalizeStageSynonyms(t *testing.T) {
	cases := map[string]Stage{
		"scheduled":         StageScheduled,
		"booked":            StageScheduled,
		"rescheduled":       StageRescheduled,
		"re-scheduled":      StageRescheduled,
		"rebooked":          StageRescheduled,
		"cancelled":         StageCancelled,
		"canceled":          StageCancelled,
		"cancellation":      StageCancelled,
		"no-show":           StageNoShow,
		"no show":           StageNoShow,
		"noshow":            StageNoShow,
		"did not attend":    StageNoShow,
		"generating-report": StageGeneratingReport,
		"generating report": StageGeneratingReport,
		"report pending":    StageGeneratingReport,
		"report-generated":  StageReportGenerated,
		"report generated":  StageReportGenerated,
		"payment-received":  StagePaymentReceived,
		"payment received":  StagePaymentReceived,
		"paid":              StagePaymentReceived,
	}

	for raw, want := range cases {
		got, ok := NormalizeStage(raw)
		assert.True(t, ok, "expected %q to normalize", raw)
		assert.Equal(t, want, got, "input %q", raw)
	}
}

func TestNormalizeStageCaseAndWhitespace(t *testing.T) {
	got, ok := NormalizeStage("  Canceled ")
	assert.True(t, ok)
	assert.Equal(t, StageCancelled, got)

	got, ok = NormalizeStage("NO SHOW")
	assert.True(t, ok)
	assert.Equal(t, StageNoShow, got)
}

func TestNormalizeStageUnknownDefaults(t *testing.T) {
	got, ok := NormalizeStage("awaiting dictation")
	assert.False(t, ok)
	assert.Equal(t, StageScheduled, got)
}

func TestNormalizeStatus(t *testing.T) {
	cases := map[string]Status{
		"active":   StatusActive,
		"open":     StatusActive,
		"closed":   StatusClosed,
		"complete": StatusClosed,
		"resolved": StatusClosed,
		"archived": StatusArchived,
	}
	for raw, want := range cases {
		got, ok := NormalizeStatus(raw)
		assert.True(t, ok, "input %q", raw)
		assert.Equal(t, want, got, "input %q", raw)
	}

	got, ok := NormalizeStatus("whatever")
	assert.False(t, ok)
	assert.Equal(t, StatusActive, got)
}
