package reconcile

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// SkipReason names why a record was left out of a run. Skips are accounting,
// not errors: the run continues and reports a count per reason.
type SkipReason string

const (
	SkipMissingReferrer   SkipReason = "missingReferrer"
	SkipMissingSpecialist SkipReason = "missingSpecialist"
	SkipMissingExaminee   SkipReason = "missingExaminee"
	SkipOtherError        SkipReason = "otherError"
)

type Failure struct {
	ExternalID string
	Reason     string
}

// BookingSummary is one affected booking in the run report.
type BookingSummary struct {
	ID           string
	ExternalID   string
	Date         time.Time
	ExamineeName string
}

// RunStats accumulates the outcome of one reconciliation invocation. It is
// created at run start, finalized at run end, and never persisted.
type RunStats struct {
	DryRun bool

	Fetched              int
	Matched              int
	NotFound             int
	AlreadyInTargetState int
	Updated              int

	Imported map[string]int
	Skipped  map[SkipReason]int

	APICalls  int
	APIErrors int

	Failures []Failure
	Affected []BookingSummary

	startedAt time.Time
}

func NewRunStats(dryRun bool) *RunStats {
	return &RunStats{
		DryRun:    dryRun,
		Imported:  make(map[string]int),
		Skipped:   make(map[SkipReason]int),
		startedAt: time.Now(),
	}
}

func (s *RunStats) Skip(reason SkipReason) {
	s.Skipped[reason]++
}

func (s *RunStats) Fail(externalID, reason string) {
	s.Failures = append(s.Failures, Failure{ExternalID: externalID, Reason: reason})
}

func (s *RunStats) Affect(summary BookingSummary) {
	s.Affected = append(s.Affected, summary)
}

// Report renders a deterministic run summary. Affected bookings are sorted by
// date; counter and skip-reason lines are emitted in a fixed order.
func (s *RunStats) Report() string {
	var b strings.Builder

	mode := "live"
	if s.DryRun {
		mode = "dry-run (no writes performed)"
	}
	fmt.Fprintf(&b, "reconciliation run (%s), took %s\n", mode, time.Since(s.startedAt).Round(time.Millisecond))

	fmt.Fprintf(&b, "  fetched:            %d\n", s.Fetched)
	fmt.Fprintf(&b, "  matched:            %d\n", s.Matched)
	fmt.Fprintf(&b, "  not found:          %d\n", s.NotFound)
	fmt.Fprintf(&b, "  already in state:   %d\n", s.AlreadyInTargetState)
	if s.DryRun {
		fmt.Fprintf(&b, "  would update:       %d\n", s.Updated)
	} else {
		fmt.Fprintf(&b, "  updated:            %d\n", s.Updated)
	}
	fmt.Fprintf(&b, "  api calls:          %d (errors: %d)\n", s.APICalls, s.APIErrors)

	if len(s.Imported) > 0 {
		phases := make([]string, 0, len(s.Imported))
		for phase := range s.Imported {
			phases = append(phases, phase)
		}
		sort.Strings(phases)
		b.WriteString("  imported:\n")
		for _, phase := range phases {
			fmt.Fprintf(&b, "    %-18s %d\n", phase+":", s.Imported[phase])
		}
	}

	if len(s.Skipped) > 0 {
		reasons := make([]string, 0, len(s.Skipped))
		for r := range s.Skipped {
			reasons = append(reasons, string(r))
		}
		sort.Strings(reasons)
		b.WriteString("  skipped:\n")
		for _, r := range reasons {
			fmt.Fprintf(&b, "    %-18s %d\n", r+":", s.Skipped[SkipReason(r)])
		}
	}

	if len(s.Affected) > 0 {
		sorted := make([]BookingSummary, len(s.Affected))
		copy(sorted, s.Affected)
		sort.Slice(sorted, func(i, j int) bool {
			if !sorted[i].Date.Equal(sorted[j].Date) {
				return sorted[i].Date.Before(sorted[j].Date)
			}
			return sorted[i].ID < sorted[j].ID
		})

		b.WriteString("  affected bookings:\n")
		for _, a := range sorted {
			fmt.Fprintf(&b, "    %s  %s  %s  %s\n",
				a.Date.Format("2006-01-02"), a.ID, a.ExternalID, a.ExamineeName)
		}
	}

	if len(s.Failures) > 0 {
		b.WriteString("  failures:\n")
		for _, f := range s.Failures {
			fmt.Fprintf(&b, "    %s: %s\n", f.ExternalID, f.Reason)
		}
	}

	return b.String()
}
