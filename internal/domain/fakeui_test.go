package domain

import (
	"bytes"
	"context"
	"io"

	"github.com/felixpackard/testchanged/internal/controller"
	m "github.com/felixpackard/testchanged/internal/model"
)

// fakeUI records every display call so tests can assert on what the engine
// chose to render, without touching a real terminal.
type fakeUI struct {
	started bool
	closed  bool

	notes    []string
	tips     []string
	errors   []string
	noUnits  bool
	dryRun   bool
	planSets []m.AffectedSet
	listed   []m.Unit
	starts   []m.Unit
	results  []m.Outcome
	failures []m.Outcome
	reports  []m.RunReport

	streamed bytes.Buffer
}

func newFakeUI() *fakeUI {
	return &fakeUI{}
}

func (u *fakeUI) Start(_ context.Context, _ ...controller.StartOption) error {
	u.started = true
	return nil
}

func (u *fakeUI) Close(_ context.Context) {
	u.closed = true
}

func (u *fakeUI) Note(_ context.Context, message string) {
	u.notes = append(u.notes, message)
}

func (u *fakeUI) Tip(_ context.Context, message string) {
	u.tips = append(u.tips, message)
}

func (u *fakeUI) Error(_ context.Context, message string) {
	u.errors = append(u.errors, message)
}

func (u *fakeUI) NoUnits(_ context.Context) {
	u.noUnits = true
}

func (u *fakeUI) DryRun(_ context.Context) {
	u.dryRun = true
}

func (u *fakeUI) PlanSummary(_ context.Context, set m.AffectedSet, _ bool) {
	u.planSets = append(u.planSets, set)
}

func (u *fakeUI) AffectedUnits(_ context.Context, units []m.Unit, _ m.AffectedSet) {
	u.listed = append(u.listed, units...)
}

func (u *fakeUI) TestStart(_ context.Context, unit m.Unit, _, _ int) {
	u.starts = append(u.starts, unit)
}

func (u *fakeUI) TestResult(_ context.Context, outcome m.Outcome) {
	u.results = append(u.results, outcome)
}

func (u *fakeUI) FailureDetails(_ context.Context, failures []m.Outcome) {
	u.failures = append(u.failures, failures...)
}

func (u *fakeUI) Summary(_ context.Context, report m.RunReport) {
	u.reports = append(u.reports, report)
}

func (u *fakeUI) StreamWriter() io.Writer {
	return &u.streamed
}
