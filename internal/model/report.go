package model

import "time"

// Status represents the result of attempting to test one unit.
type Status int

const (
	// Passed indicates the test command exited zero.
	Passed Status = iota
	// Failed indicates a nonzero exit or a command that could not start.
	Failed
	// Skipped indicates the unit was never attempted (fail-fast or dry run).
	Skipped
)

// String returns the lowercase label used in reports.
func (s Status) String() string {
	switch s {
	case Passed:
		return "passed"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	}

	return "unknown"
}

// Outcome is the result of attempting to test one unit.
type Outcome struct {
	Unit   UnitID `json:"unit"`
	Name   string `json:"name"`
	Status Status `json:"status"`
	// Output is the combined stdout/stderr of the test command, empty for
	// skipped units.
	Output string `json:"output,omitempty"`
	// ExitCode is nil when the command never ran (skipped, or failed to start).
	ExitCode *int `json:"exit_code,omitempty"`
	// Note carries context for outcomes without an exit code, e.g. "dry run"
	// or the invocation error message.
	Note     string        `json:"note,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// RunReport aggregates the outcomes of one run. It is built incrementally by
// the orchestrator, one outcome per planned unit, and never mutated after it
// is handed to the reporter.
type RunReport struct {
	Outcomes []Outcome     `json:"outcomes"`
	DryRun   bool          `json:"dry_run"`
	Duration time.Duration `json:"duration_ns"`
}

// Append records the outcome for the next unit.
func (r *RunReport) Append(outcome Outcome) {
	r.Outcomes = append(r.Outcomes, outcome)
}

// Failed returns the outcomes with Failed status, in report order.
func (r *RunReport) Failed() []Outcome {
	var failed []Outcome

	for _, outcome := range r.Outcomes {
		if outcome.Status == Failed {
			failed = append(failed, outcome)
		}
	}

	return failed
}

// Passed returns the number of passed outcomes.
func (r *RunReport) Passed() int {
	count := 0

	for _, outcome := range r.Outcomes {
		if outcome.Status == Passed {
			count++
		}
	}

	return count
}

// Success reports whether the run as a whole succeeded. Skipped outcomes do
// not fail a run; only a Failed outcome does.
func (r *RunReport) Success() bool {
	return len(r.Failed()) == 0
}

// AffectedSet is the final ordered set of units selected for one run.
type AffectedSet struct {
	// Units is sorted by display name so repeated runs over identical input
	// attempt units in the same order.
	Units []UnitID
	// Direct marks the units selected by change detection rather than
	// dependent expansion.
	Direct map[UnitID]bool
	// Override is true when the set was supplied explicitly instead of being
	// derived from changed files.
	Override bool
}

// Empty reports whether there is nothing to test.
func (s AffectedSet) Empty() bool {
	return len(s.Units) == 0
}

// DirectCount returns the number of directly-changed units in the set.
func (s AffectedSet) DirectCount() int {
	count := 0

	for _, id := range s.Units {
		if s.Direct[id] {
			count++
		}
	}

	return count
}

// DependentCount returns the number of units selected only via dependent
// expansion.
func (s AffectedSet) DependentCount() int {
	return len(s.Units) - s.DirectCount()
}
