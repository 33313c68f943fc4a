package controller

import (
	"encoding/json"
	"io"
	"log/slog"
	"time"

	m "github.com/felixpackard/testchanged/internal/model"
)

// jsonEvent is one line of the machine-readable event stream.
type jsonEvent struct {
	EventType string `json:"event_type"`
	Payload   any    `json:"payload"`
	Timestamp int64  `json:"timestamp"`
}

// jsonRenderer emits one JSON object per line so the stream can be consumed
// incrementally. It carries the same information as the console renderer,
// including full captured output for failed units.
type jsonRenderer struct {
	w io.Writer
}

func newJSONRenderer(w io.Writer) *jsonRenderer {
	return &jsonRenderer{w: w}
}

func (j *jsonRenderer) emit(eventType string, payload any) {
	event := jsonEvent{
		EventType: eventType,
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
	}

	encoded, err := json.Marshal(event)
	if err != nil {
		slog.Error("failed to encode event", "event_type", eventType, "error", err)
		return
	}

	encoded = append(encoded, '\n')

	if _, err := j.w.Write(encoded); err != nil {
		slog.Error("failed to write event", "event_type", eventType, "error", err)
	}
}

func (j *jsonRenderer) Note(message string) {
	j.emit("note", map[string]any{"message": message})
}

func (j *jsonRenderer) Tip(message string) {
	j.emit("tip", map[string]any{"message": message})
}

func (j *jsonRenderer) Error(message string) {
	j.emit("error", map[string]any{"message": message})
}

func (j *jsonRenderer) NoUnits() {
	j.emit("no_tests", map[string]any{})
}

func (j *jsonRenderer) DryRun() {
	j.emit("dry_run", map[string]any{})
}

func (j *jsonRenderer) PlanSummary(set m.AffectedSet, skipDependents bool) {
	j.emit("plan_summary", map[string]any{
		"direct_count":    set.DirectCount(),
		"dependent_count": set.DependentCount(),
		"skip_dependents": skipDependents,
		"override":        set.Override,
	})
}

func (j *jsonRenderer) AffectedUnits(units []m.Unit, set m.AffectedSet) {
	entries := make([]map[string]any, 0, len(units))

	for _, unit := range units {
		entries = append(entries, map[string]any{
			"unit":   unit.ID,
			"name":   unit.Name,
			"dir":    unit.Dir,
			"direct": set.Direct[unit.ID],
		})
	}

	j.emit("affected_units", map[string]any{"units": entries})
}

func (j *jsonRenderer) TestStart(unit m.Unit, index, total int) {
	j.emit("test_start", map[string]any{
		"unit":  unit.ID,
		"index": index,
		"total": total,
	})
}

func (j *jsonRenderer) TestResult(outcome m.Outcome) {
	payload := map[string]any{
		"unit":        outcome.Unit,
		"status":      outcome.Status.String(),
		"duration_ms": outcome.Duration.Milliseconds(),
	}

	if outcome.ExitCode != nil {
		payload["exit_code"] = *outcome.ExitCode
	}

	if outcome.Note != "" {
		payload["note"] = outcome.Note
	}

	j.emit("test_result", payload)
}

func (j *jsonRenderer) FailureDetails(failures []m.Outcome) {
	for _, failure := range failures {
		j.emit("test_failure", map[string]any{
			"unit":   failure.Unit,
			"note":   failure.Note,
			"output": failure.Output,
		})
	}
}

func (j *jsonRenderer) Summary(report m.RunReport) {
	j.emit("test_summary", map[string]any{
		"passed":        report.Passed(),
		"failed":        len(report.Failed()),
		"skipped":       len(report.Outcomes) - report.Passed() - len(report.Failed()),
		"duration_secs": report.Duration.Seconds(),
		"success":       report.Success(),
		"dry_run":       report.DryRun,
	})
}
