package booking

import "strings"

// Status is the coarse booking lifecycle: whether the booking is live,
// resolved, or hidden from default views. It gates visibility and editability.
type Status string

const (
	StatusActive   Status = "active"
	StatusClosed   Status = "closed"
	StatusArchived Status = "archived"
)

// Stage is the fine-grained workflow position recorded in the audit trail.
// It is history-only: it never gates coarse transitions, but every stage change
// must produce exactly one ProgressEntry.
type Stage string

const (
	StageScheduled        Stage = "scheduled"
	StageRescheduled      Stage = "rescheduled"
	StageCancelled        Stage = "cancelled"
	StageNoShow           Stage = "no-show"
	StageGeneratingReport Stage = "generating-report"
	StageReportGenerated  Stage = "report-generated"
	StagePaymentReceived  Stage = "payment-received"
)

// stageNext encodes the valid walk:
// scheduled -> rescheduled (self-loop) -> {cancelled | no-show |
// generating-report -> report-generated -> payment-received}.
var stageNext = map[Stage][]Stage{
	StageScheduled:        {StageRescheduled, StageCancelled, StageNoShow, StageGeneratingReport},
	StageRescheduled:      {StageRescheduled, StageCancelled, StageNoShow, StageGeneratingReport},
	StageGeneratingReport: {StageReportGenerated},
	StageReportGenerated:  {StagePaymentReceived},
	StagePaymentReceived:  {},
	StageCancelled:        {},
	StageNoShow:           {},
}

func (s Stage) Valid() bool {
	_, ok := stageNext[s]
	return ok
}

// CanTransitionTo reports whether moving from s to next is a valid step of the
// stage walk. Cancelled and no-show are terminal.
func (s Stage) CanTransitionTo(next Stage) bool {
	for _, n := range stageNext[s] {
		if n == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further stage transitions are allowed from s.
func (s Stage) Terminal() bool {
	return len(stageNext[s]) == 0
}

// ImpliedStatus returns the coarse status a stage change implies for the
// interactive path: resolved stages close the booking, the rest keep it live.
func (s Stage) ImpliedStatus() Status {
	switch s {
	case StageCancelled, StageNoShow, StagePaymentReceived:
		return StatusClosed
	default:
		return StatusActive
	}
}

// CanTransitionTo enforces forward-only coarse movement
// (active -> closed -> archived). The closed -> active correction path is
// allowed only when the caller marks the transition as an administrative
// correction; the reconciliation engine never does.
func (s Status) CanTransitionTo(next Status, correction bool) bool {
	if s == next {
		return true
	}
	switch s {
	case StatusActive:
		return next == StatusClosed || next == StatusArchived
	case StatusClosed:
		if next == StatusArchived {
			return true
		}
		return next == StatusActive && correction
	case StatusArchived:
		return false
	}
	return false
}

// stageSynonyms maps legacy status spellings to canonical stages. Lookup is
// case-insensitive on the trimmed input.
var stageSynonyms = map[string]Stage{
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

var statusSynonyms = map[string]Status{
	"active":   StatusActive,
	"open":     StatusActive,
	"closed":   StatusClosed,
	"complete": StatusClosed,
	"resolved": StatusClosed,
	"archived": StatusArchived,
}

// NormalizeStage maps a legacy status string onto the nearest canonical stage.
// Unrecognized values default to StageScheduled with ok=false so the caller can
// record the original value in the entry metadata.
func NormalizeStage(raw string) (Stage, bool) {
	s, ok := stageSynonyms[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		return StageScheduled, false
	}
	return s, true
}

// NormalizeStatus maps a legacy coarse status string onto the canonical status,
// defaulting to StatusActive for unrecognized values.
func NormalizeStatus(raw string) (Status, bool) {
	s, ok := statusSynonyms[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		return StatusActive, false
	}
	return s, true
}
