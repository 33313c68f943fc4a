package domain

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixpackard/testchanged/internal/adapter"
	m "github.com/felixpackard/testchanged/internal/model"
)

type fakeVCS struct {
	root    string
	rootErr error

	uncommitted    []m.ChangedFile
	uncommittedErr error

	between    []m.ChangedFile
	betweenErr error

	gotFrom string
	gotTo   string
}

func (v *fakeVCS) WorkspaceRoot(_ context.Context, _ string) (string, error) {
	return v.root, v.rootErr
}

func (v *fakeVCS) UncommittedChanges(_ context.Context, _ string) ([]m.ChangedFile, error) {
	return v.uncommitted, v.uncommittedErr
}

func (v *fakeVCS) ChangesBetween(_ context.Context, _ string, from, to string) ([]m.ChangedFile, error) {
	v.gotFrom, v.gotTo = from, to
	return v.between, v.betweenErr
}

type fakeWorkspace struct {
	units []m.Unit
	err   error
}

func (w *fakeWorkspace) Load(_ context.Context, _ string) ([]m.Unit, error) {
	return w.units, w.err
}

type fakeStore struct {
	saved   []m.RunReport
	saveErr error

	loaded  m.RunReport
	loadErr error
}

func (s *fakeStore) Save(_ context.Context, _ string, report m.RunReport) error {
	s.saved = append(s.saved, report)
	return s.saveErr
}

func (s *fakeStore) Load(_ context.Context, _ string) (m.RunReport, error) {
	return s.loaded, s.loadErr
}

// testWorkflow wires a workflow over fakes. The runner factory is swapped so
// no process is ever spawned.
func testWorkflow(vcs *fakeVCS, ws *fakeWorkspace, store *fakeStore, ui *fakeUI, runner *fakeRunner) *workflow {
	w := NewWorkflow(vcs, ws, store, ui).(*workflow)
	w.newRunner = func(_ string) (adapter.TestRunner, error) {
		return runner, nil
	}

	return w
}

func changedWorkspace() (*fakeVCS, *fakeWorkspace) {
	vcs := &fakeVCS{
		root: "/work",
		uncommitted: []m.ChangedFile{
			{Path: "core/engine.go", Type: m.ChangeModified},
		},
	}
	ws := &fakeWorkspace{units: fixtureUnits()}

	return vcs, ws
}

func TestWorkflowRun_AllAffectedPass(t *testing.T) {
	vcs, ws := changedWorkspace()
	store := &fakeStore{}
	ui := newFakeUI()
	runner := &fakeRunner{installed: true, exitCodes: map[string]int{}}

	w := testWorkflow(vcs, ws, store, ui, runner)

	err := w.Run(context.Background(), RunArgs{Dir: "/work/core", FailFast: true, Runner: "gotest"})
	require.NoError(t, err)

	// core changed; api, worker and gateway depend on it transitively.
	assert.Len(t, runner.calls, 4)
	assert.True(t, ui.started)
	assert.True(t, ui.closed)
	require.Len(t, ui.planSets, 1)
	assert.Equal(t, 1, ui.planSets[0].DirectCount())
	assert.Equal(t, 3, ui.planSets[0].DependentCount())
	require.Len(t, ui.reports, 1)
	assert.True(t, ui.reports[0].Success())

	// The finished report was persisted for rerun.
	require.Len(t, store.saved, 1)
	assert.Len(t, store.saved[0].Outcomes, 4)
}

func TestWorkflowRun_SkipDependents(t *testing.T) {
	vcs, ws := changedWorkspace()
	store := &fakeStore{}
	ui := newFakeUI()
	runner := &fakeRunner{installed: true, exitCodes: map[string]int{}}

	w := testWorkflow(vcs, ws, store, ui, runner)

	err := w.Run(context.Background(), RunArgs{Dir: "/work", SkipDependents: true, Runner: "gotest"})
	require.NoError(t, err)

	assert.Len(t, runner.calls, 1)
	assert.Equal(t, "/work/core", runner.calls[0])
}

func TestWorkflowRun_NoChanges(t *testing.T) {
	vcs := &fakeVCS{root: "/work"}
	ws := &fakeWorkspace{units: fixtureUnits()}
	store := &fakeStore{}
	ui := newFakeUI()
	runner := &fakeRunner{installed: true}

	w := testWorkflow(vcs, ws, store, ui, runner)

	err := w.Run(context.Background(), RunArgs{Dir: "/work", Runner: "gotest"})
	require.NoError(t, err)

	assert.True(t, ui.noUnits)
	assert.Empty(t, runner.calls)
	assert.Empty(t, store.saved)
}

func TestWorkflowRun_FailurePropagatesTypedError(t *testing.T) {
	vcs, ws := changedWorkspace()
	store := &fakeStore{}
	ui := newFakeUI()
	runner := &fakeRunner{
		installed: true,
		exitCodes: map[string]int{"/work/core": 1},
	}

	w := testWorkflow(vcs, ws, store, ui, runner)

	err := w.Run(context.Background(), RunArgs{Dir: "/work", FailFast: true, Runner: "gotest"})
	require.Error(t, err)

	var failed *TestsFailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, []m.UnitID{"example.com/app/core"}, failed.Units)
	assert.Equal(t, 20, ExitCode(err))

	// Failure details render when output was not already streamed.
	assert.NotEmpty(t, ui.failures)

	// The report is still saved so rerun can pick up the failure.
	require.Len(t, store.saved, 1)
}

func TestWorkflowRun_VerboseJSONStillEmitsFailureDetails(t *testing.T) {
	vcs, ws := changedWorkspace()
	store := &fakeStore{}
	ui := newFakeUI()
	runner := &fakeRunner{
		installed: true,
		exitCodes: map[string]int{"/work/core": 1},
	}

	w := testWorkflow(vcs, ws, store, ui, runner)

	err := w.Run(context.Background(), RunArgs{
		Dir:     "/work",
		Verbose: true,
		JSON:    true,
		Runner:  "gotest",
	})
	require.Error(t, err)

	// Verbose console runs skip the failure dump, but event-stream consumers
	// only see failures through these events.
	assert.NotEmpty(t, ui.failures)
}

func TestWorkflowRun_VerboseConsoleSkipsFailureDetails(t *testing.T) {
	vcs, ws := changedWorkspace()
	store := &fakeStore{}
	ui := newFakeUI()
	runner := &fakeRunner{
		installed: true,
		exitCodes: map[string]int{"/work/core": 1},
	}

	w := testWorkflow(vcs, ws, store, ui, runner)

	err := w.Run(context.Background(), RunArgs{
		Dir:     "/work",
		Verbose: true,
		Runner:  "gotest",
	})
	require.Error(t, err)

	assert.Empty(t, ui.failures)
}

func TestWorkflowRun_DryRunSkipsPersistence(t *testing.T) {
	vcs, ws := changedWorkspace()
	store := &fakeStore{}
	ui := newFakeUI()
	runner := &fakeRunner{installed: false}

	w := testWorkflow(vcs, ws, store, ui, runner)

	err := w.Run(context.Background(), RunArgs{Dir: "/work", DryRun: true, Runner: "gotest"})
	require.NoError(t, err)

	assert.True(t, ui.dryRun)
	assert.Empty(t, runner.calls)
	assert.Empty(t, store.saved)
}

func TestWorkflowRun_OverrideBypassesChangeDetection(t *testing.T) {
	vcs := &fakeVCS{root: "/work", uncommittedErr: fmt.Errorf("should not be called")}
	ws := &fakeWorkspace{units: fixtureUnits()}
	store := &fakeStore{}
	ui := newFakeUI()
	runner := &fakeRunner{installed: true, exitCodes: map[string]int{}}

	w := testWorkflow(vcs, ws, store, ui, runner)

	err := w.Run(context.Background(), RunArgs{
		Dir:    "/work",
		Units:  []string{"example.com/app/gateway"},
		Runner: "gotest",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"/work/gateway"}, runner.calls)
	require.Len(t, ui.planSets, 1)
	assert.True(t, ui.planSets[0].Override)
}

func TestWorkflowRun_OverrideUnknownUnit(t *testing.T) {
	vcs, ws := changedWorkspace()
	store := &fakeStore{}
	ui := newFakeUI()
	runner := &fakeRunner{installed: true}

	w := testWorkflow(vcs, ws, store, ui, runner)

	err := w.Run(context.Background(), RunArgs{
		Dir:    "/work",
		Units:  []string{"example.com/app/nope"},
		Runner: "gotest",
	})
	require.Error(t, err)

	var unknownErr *UnknownUnitError
	require.ErrorAs(t, err, &unknownErr)
	assert.Equal(t, 40, ExitCode(err))
}

func TestWorkflowRun_RefRange(t *testing.T) {
	vcs := &fakeVCS{
		root: "/work",
		between: []m.ChangedFile{
			{Path: "gateway/main.go", Type: m.ChangeModified},
		},
	}
	ws := &fakeWorkspace{units: fixtureUnits()}
	store := &fakeStore{}
	ui := newFakeUI()
	runner := &fakeRunner{installed: true, exitCodes: map[string]int{}}

	w := testWorkflow(vcs, ws, store, ui, runner)

	err := w.Run(context.Background(), RunArgs{
		Dir:     "/work",
		FromRef: "origin/main",
		ToRef:   "HEAD",
		Runner:  "gotest",
	})
	require.NoError(t, err)

	assert.Equal(t, "origin/main", vcs.gotFrom)
	assert.Equal(t, "HEAD", vcs.gotTo)
	assert.Equal(t, []string{"/work/gateway"}, runner.calls)
}

func TestWorkflowRun_VCSDiscoveryFailure(t *testing.T) {
	vcs := &fakeVCS{rootErr: fmt.Errorf("not a git repository")}
	ws := &fakeWorkspace{}
	store := &fakeStore{}
	ui := newFakeUI()
	runner := &fakeRunner{installed: true}

	w := testWorkflow(vcs, ws, store, ui, runner)

	err := w.Run(context.Background(), RunArgs{Dir: "/tmp", Runner: "gotest"})
	require.Error(t, err)

	var discoveryErr *VCSDiscoveryError
	require.ErrorAs(t, err, &discoveryErr)
	assert.Equal(t, 30, ExitCode(err))
}

func TestWorkflowRun_VCSOperationFailure(t *testing.T) {
	vcs := &fakeVCS{root: "/work", uncommittedErr: fmt.Errorf("index locked")}
	ws := &fakeWorkspace{units: fixtureUnits()}
	store := &fakeStore{}
	ui := newFakeUI()
	runner := &fakeRunner{installed: true}

	w := testWorkflow(vcs, ws, store, ui, runner)

	err := w.Run(context.Background(), RunArgs{Dir: "/work", Runner: "gotest"})
	require.Error(t, err)

	var opErr *VCSOperationError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, 50, ExitCode(err))
}

func TestWorkflowRun_MetadataFailure(t *testing.T) {
	vcs := &fakeVCS{root: "/work"}
	ws := &fakeWorkspace{err: fmt.Errorf("no go.work or go.mod in /work")}
	store := &fakeStore{}
	ui := newFakeUI()
	runner := &fakeRunner{installed: true}

	w := testWorkflow(vcs, ws, store, ui, runner)

	err := w.Run(context.Background(), RunArgs{Dir: "/work", Runner: "gotest"})
	require.Error(t, err)

	var metadataErr *MetadataError
	require.ErrorAs(t, err, &metadataErr)
	assert.Equal(t, 40, ExitCode(err))
}

func TestWorkflowList(t *testing.T) {
	vcs, ws := changedWorkspace()
	store := &fakeStore{}
	ui := newFakeUI()
	runner := &fakeRunner{installed: true}

	w := testWorkflow(vcs, ws, store, ui, runner)

	err := w.List(context.Background(), ListArgs{Dir: "/work"})
	require.NoError(t, err)

	// Listing renders the affected set but never runs anything.
	assert.Len(t, ui.listed, 4)
	assert.Empty(t, runner.calls)
	assert.Empty(t, store.saved)
}

func TestWorkflowRerun_NoPreviousReport(t *testing.T) {
	vcs, ws := changedWorkspace()
	store := &fakeStore{loadErr: fmt.Errorf("read report: no such file")}
	ui := newFakeUI()
	runner := &fakeRunner{installed: true}

	w := testWorkflow(vcs, ws, store, ui, runner)

	err := w.Rerun(context.Background(), RerunArgs{Dir: "/work", Runner: "gotest"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no previous run report")
}

func TestWorkflowRerun_NoFailures(t *testing.T) {
	vcs, ws := changedWorkspace()
	store := &fakeStore{
		loaded: m.RunReport{Outcomes: []m.Outcome{
			{Unit: "example.com/app/core", Name: "core", Status: m.Passed},
		}},
	}
	ui := newFakeUI()
	runner := &fakeRunner{installed: true}

	w := testWorkflow(vcs, ws, store, ui, runner)

	err := w.Rerun(context.Background(), RerunArgs{Dir: "/work", Runner: "gotest"})
	require.NoError(t, err)

	assert.Contains(t, ui.notes, "previous run had no failed units")
	assert.Empty(t, runner.calls)
}

func TestWorkflowRerun_RunsFailedUnits(t *testing.T) {
	vcs, ws := changedWorkspace()
	store := &fakeStore{
		loaded: m.RunReport{Outcomes: []m.Outcome{
			{Unit: "example.com/app/core", Name: "core", Status: m.Passed},
			{Unit: "example.com/app/api", Name: "api", Status: m.Failed},
		}},
	}
	ui := newFakeUI()
	runner := &fakeRunner{installed: true, exitCodes: map[string]int{}}

	w := testWorkflow(vcs, ws, store, ui, runner)

	err := w.Rerun(context.Background(), RerunArgs{Dir: "/work", Runner: "gotest"})
	require.NoError(t, err)

	assert.Equal(t, []string{"/work/services/api"}, runner.calls)
	require.Len(t, ui.planSets, 1)
	assert.True(t, ui.planSets[0].Override)
}
