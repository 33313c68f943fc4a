package domain

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/felixpackard/testchanged/internal/adapter"
	"github.com/felixpackard/testchanged/internal/controller"
	m "github.com/felixpackard/testchanged/internal/model"
)

// Plan describes one test run over the final ordered unit set.
type Plan struct {
	// Root is the absolute workspace root; unit dirs are joined onto it.
	Root  string
	Units []m.Unit
	// FailFast stops attempts at the first failed unit, recording the rest
	// as skipped.
	FailFast bool
	// DryRun produces a skipped outcome per unit without invoking anything.
	DryRun bool
	// Verbose streams test output live while still capturing it.
	Verbose bool
	// RunnerArgs are passed through to the test runner verbatim.
	RunnerArgs []string
}

// Orchestrator sequences test-command invocations over the plan: one
// invocation in flight at a time, units in plan order, one outcome per unit.
type Orchestrator interface {
	Execute(ctx context.Context, plan Plan) (m.RunReport, error)
}

// runState is the lifecycle of a whole run, not of a single unit.
type runState int

const (
	stateIdle runState = iota
	stateRunning
	// stateStopped means fail-fast tripped; remaining units are recorded as
	// skipped without being attempted.
	stateStopped
	stateCompleted
)

func (s runState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateRunning:
		return "running"
	case stateStopped:
		return "stopped"
	case stateCompleted:
		return "completed"
	}

	return "unknown"
}

type orchestrator struct {
	runner adapter.TestRunner
	ui     controller.UI
}

// NewOrchestrator constructs an Orchestrator backed by the given test runner.
func NewOrchestrator(runner adapter.TestRunner, ui controller.UI) Orchestrator {
	return &orchestrator{runner: runner, ui: ui}
}

// Execute runs the plan. Per-unit failures, including commands that could
// not start, become Failed outcomes in the report; the only error returned
// here is a runner that is not installed at all, which aborts before any
// unit is attempted.
func (o *orchestrator) Execute(ctx context.Context, plan Plan) (m.RunReport, error) {
	report := m.RunReport{DryRun: plan.DryRun}

	if !plan.DryRun && !o.runner.IsInstalled(ctx) {
		return report, &RunnerNotInstalledError{
			Runner: o.runner.Name(),
			Tip:    o.runner.InstallHint(),
		}
	}

	state := stateIdle
	start := time.Now()
	state = stateRunning

	for index, unit := range plan.Units {
		var outcome m.Outcome

		switch {
		case state == stateStopped:
			outcome = skippedOutcome(unit, "skipped after earlier failure")
		case plan.DryRun:
			outcome = skippedOutcome(unit, "dry run")
		default:
			o.ui.TestStart(ctx, unit, index+1, len(plan.Units))
			outcome = o.runUnit(ctx, plan, unit)
		}

		o.ui.TestResult(ctx, outcome)
		report.Append(outcome)

		if state == stateRunning && outcome.Status == m.Failed && plan.FailFast {
			slog.Info("fail-fast triggered", "unit", unit.ID)
			state = stateStopped
		}
	}

	if state != stateStopped {
		state = stateCompleted
	}

	report.Duration = time.Since(start)

	slog.Debug("run finished", "state", state, "units", len(report.Outcomes))

	return report, nil
}

func (o *orchestrator) runUnit(ctx context.Context, plan Plan, unit m.Unit) m.Outcome {
	dir := filepath.Join(plan.Root, filepath.FromSlash(string(unit.Dir)))

	var stream io.Writer
	if plan.Verbose {
		stream = o.ui.StreamWriter()
	}

	started := time.Now()

	result, err := o.runner.Run(ctx, dir, plan.RunnerArgs, stream)
	if err != nil {
		// The command never started. Distinct message, same Failed status.
		slog.Error("failed to invoke test runner", "unit", unit.ID, "error", err)

		return m.Outcome{
			Unit:     unit.ID,
			Name:     unit.Name,
			Status:   m.Failed,
			Note:     "failed to invoke test runner: " + err.Error(),
			Duration: time.Since(started),
		}
	}

	status := m.Passed
	if result.ExitCode != 0 {
		// Any nonzero exit is uniformly a failure; specific codes and
		// signals are never interpreted.
		status = m.Failed
	}

	exitCode := result.ExitCode

	return m.Outcome{
		Unit:     unit.ID,
		Name:     unit.Name,
		Status:   status,
		Output:   result.Output,
		ExitCode: &exitCode,
		Duration: time.Since(started),
	}
}

func skippedOutcome(unit m.Unit, note string) m.Outcome {
	return m.Outcome{
		Unit:   unit.ID,
		Name:   unit.Name,
		Status: m.Skipped,
		Note:   note,
	}
}
