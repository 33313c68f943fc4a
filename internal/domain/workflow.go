// Package domain contains the affected-unit resolution and test
// orchestration engine: the unit graph, change resolver, affected-set
// expander, orchestrator and the workflow gluing them to the adapters.
package domain

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/felixpackard/testchanged/internal/adapter"
	"github.com/felixpackard/testchanged/internal/controller"
	m "github.com/felixpackard/testchanged/internal/model"
)

// RunArgs carries everything the run workflow needs from the CLI.
type RunArgs struct {
	// Dir is the directory the tool was invoked from; the workspace root is
	// discovered from it.
	Dir string
	// FromRef selects reference-range mode when non-empty; otherwise
	// uncommitted working-tree changes are used.
	FromRef string
	// ToRef is the end of the range; empty means the current state.
	ToRef string
	// Units is an explicit override list that bypasses change detection.
	Units []string

	SkipDependents bool
	DryRun         bool
	Verbose        bool
	FailFast       bool
	JSON           bool
	Progress       bool

	Runner     string
	RunnerArgs []string
	ReportsDir string
}

// ListArgs carries the arguments of the list workflow.
type ListArgs struct {
	Dir            string
	FromRef        string
	ToRef          string
	SkipDependents bool
	JSON           bool
}

// RerunArgs carries the arguments of the rerun workflow.
type RerunArgs struct {
	Dir        string
	DryRun     bool
	Verbose    bool
	FailFast   bool
	JSON       bool
	Progress   bool
	Runner     string
	RunnerArgs []string
	ReportsDir string
}

// Workflow is the top-level entry point behind each CLI command.
type Workflow interface {
	// Run resolves the affected set and tests it.
	Run(ctx context.Context, args RunArgs) error
	// List renders the affected set without running anything.
	List(ctx context.Context, args ListArgs) error
	// Rerun re-tests the failed units of the previously saved report.
	Rerun(ctx context.Context, args RerunArgs) error
}

type workflow struct {
	vcs       adapter.VCS
	workspace adapter.Workspace
	store     adapter.ReportStore
	ui        controller.UI

	// newRunner is swapped by tests to inject a fake runner.
	newRunner func(name string) (adapter.TestRunner, error)
}

// NewWorkflow creates a Workflow with the provided collaborators.
func NewWorkflow(vcs adapter.VCS, workspace adapter.Workspace, store adapter.ReportStore, ui controller.UI) Workflow {
	return &workflow{
		vcs:       vcs,
		workspace: workspace,
		store:     store,
		ui:        ui,
		newRunner: adapter.NewTestRunner,
	}
}

// Run implements Workflow.
func (w *workflow) Run(ctx context.Context, args RunArgs) error {
	options := startOptions(args.JSON, args.Verbose, args.Progress)

	if err := w.ui.Start(ctx, options...); err != nil {
		return err
	}
	defer w.ui.Close(ctx)

	root, graph, err := w.loadGraph(ctx, args.Dir)
	if err != nil {
		return err
	}

	set, err := w.selectUnits(ctx, root, graph, args.Units, args.FromRef, args.ToRef, !args.SkipDependents)
	if err != nil {
		return err
	}

	if set.Empty() {
		w.ui.NoUnits(ctx)
		return nil
	}

	w.ui.PlanSummary(ctx, set, args.SkipDependents)

	if args.DryRun {
		w.ui.DryRun(ctx)
	}

	runner, err := w.newRunner(args.Runner)
	if err != nil {
		return err
	}

	plan := Plan{
		Root:       root,
		Units:      unitsOf(set, graph),
		FailFast:   args.FailFast,
		DryRun:     args.DryRun,
		Verbose:    args.Verbose,
		RunnerArgs: args.RunnerArgs,
	}

	report, err := NewOrchestrator(runner, w.ui).Execute(ctx, plan)
	if err != nil {
		return err
	}

	if !report.DryRun {
		if err := w.store.Save(ctx, args.ReportsDir, report); err != nil {
			// Persistence only powers rerun; never fail the run over it.
			slog.Warn("failed to save run report", "dir", args.ReportsDir, "error", err)
		}
	}

	failures := report.Failed()
	// Verbose mode already streamed the output, but the JSON stream still
	// needs the failure events; streamed output goes to stderr there.
	if len(failures) > 0 && (!args.Verbose || args.JSON) {
		w.ui.FailureDetails(ctx, failures)
	}

	w.ui.Summary(ctx, report)

	if len(failures) > 0 {
		failed := make([]m.UnitID, 0, len(failures))
		for _, failure := range failures {
			failed = append(failed, failure.Unit)
		}

		return &TestsFailedError{Units: failed}
	}

	return nil
}

// List implements Workflow.
func (w *workflow) List(ctx context.Context, args ListArgs) error {
	options := startOptions(args.JSON, false, false)

	if err := w.ui.Start(ctx, options...); err != nil {
		return err
	}
	defer w.ui.Close(ctx)

	root, graph, err := w.loadGraph(ctx, args.Dir)
	if err != nil {
		return err
	}

	set, err := w.selectUnits(ctx, root, graph, nil, args.FromRef, args.ToRef, !args.SkipDependents)
	if err != nil {
		return err
	}

	if set.Empty() {
		w.ui.NoUnits(ctx)
		return nil
	}

	w.ui.PlanSummary(ctx, set, args.SkipDependents)
	w.ui.AffectedUnits(ctx, unitsOf(set, graph), set)

	return nil
}

// Rerun implements Workflow.
func (w *workflow) Rerun(ctx context.Context, args RerunArgs) error {
	report, err := w.store.Load(ctx, args.ReportsDir)
	if err != nil {
		return fmt.Errorf("no previous run report to rerun from: %w", err)
	}

	failures := report.Failed()
	if len(failures) == 0 {
		if err := w.ui.Start(ctx, startOptions(args.JSON, false, false)...); err != nil {
			return err
		}
		defer w.ui.Close(ctx)

		w.ui.Note(ctx, "previous run had no failed units")

		return nil
	}

	units := make([]string, 0, len(failures))
	for _, failure := range failures {
		units = append(units, string(failure.Unit))
	}

	slog.Info("re-running failed units from last report", "count", len(units))

	return w.Run(ctx, RunArgs{
		Dir:        args.Dir,
		Units:      units,
		DryRun:     args.DryRun,
		Verbose:    args.Verbose,
		FailFast:   args.FailFast,
		JSON:       args.JSON,
		Progress:   args.Progress,
		Runner:     args.Runner,
		RunnerArgs: args.RunnerArgs,
		ReportsDir: args.ReportsDir,
	})
}

// loadGraph discovers the workspace root and builds the unit graph.
func (w *workflow) loadGraph(ctx context.Context, dir string) (string, *Graph, error) {
	root, err := w.vcs.WorkspaceRoot(ctx, dir)
	if err != nil {
		return "", nil, &VCSDiscoveryError{Reason: err.Error()}
	}

	units, err := w.workspace.Load(ctx, root)
	if err != nil {
		return "", nil, &MetadataError{Reason: err.Error()}
	}

	graph, err := NewGraph(units)
	if err != nil {
		return "", nil, err
	}

	slog.Debug("built unit graph", "root", root, "units", graph.Len())

	return root, graph, nil
}

// selectUnits produces the final affected set, either from the override list
// or from change detection plus optional dependent expansion.
func (w *workflow) selectUnits(ctx context.Context, root string, graph *Graph, override []string, fromRef, toRef string, includeDependents bool) (m.AffectedSet, error) {
	if len(override) > 0 {
		ids := make([]m.UnitID, 0, len(override))
		for _, id := range override {
			ids = append(ids, m.UnitID(id))
		}

		return Override(ids, graph)
	}

	var (
		changes []m.ChangedFile
		err     error
	)

	if fromRef == "" {
		changes, err = w.vcs.UncommittedChanges(ctx, root)
		if err != nil {
			return m.AffectedSet{}, &VCSOperationError{Operation: "status", Reason: err.Error()}
		}
	} else {
		changes, err = w.vcs.ChangesBetween(ctx, root, fromRef, toRef)
		if err != nil {
			operation := fmt.Sprintf("diff %s..%s", fromRef, toRef)
			return m.AffectedSet{}, &VCSOperationError{Operation: operation, Reason: err.Error()}
		}
	}

	direct := ResolveChanged(changes, graph)

	return Expand(direct, graph, includeDependents), nil
}

func unitsOf(set m.AffectedSet, graph *Graph) []m.Unit {
	units := make([]m.Unit, 0, len(set.Units))

	for _, id := range set.Units {
		if unit, ok := graph.Unit(id); ok {
			units = append(units, unit)
		}
	}

	return units
}

func startOptions(jsonOutput, verbose, progress bool) []controller.StartOption {
	var options []controller.StartOption

	if jsonOutput {
		options = append(options, controller.WithJSONOutput())
	}

	if verbose {
		options = append(options, controller.WithVerbose())
	}

	if progress {
		options = append(options, controller.WithProgress())
	}

	return options
}
