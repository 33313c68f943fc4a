// Package controller provides output renderers for affected-unit test runs.
package controller

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	m "github.com/felixpackard/testchanged/internal/model"
)

// StartOption is a functional option for the Start method.
type StartOption func(*StartConfig)

// StartConfig holds configuration for starting the UI.
type StartConfig struct {
	json     bool
	verbose  bool
	progress bool
}

// WithJSONOutput selects the machine-readable event-stream renderer.
func WithJSONOutput() StartOption {
	return func(c *StartConfig) {
		c.json = true
	}
}

// WithVerbose marks the run as verbose; renderers include captured output
// and the interactive renderer is suppressed so streamed test output stays
// readable.
func WithVerbose() StartOption {
	return func(c *StartConfig) {
		c.verbose = true
	}
}

// WithProgress requests the interactive progress renderer where available.
func WithProgress() StartOption {
	return func(c *StartConfig) {
		c.progress = true
	}
}

// UI renders the lifecycle of one run. Implementations route the calls to a
// console, a JSON event stream, or an interactive view; the domain never
// formats output itself.
type UI interface {
	Start(ctx context.Context, options ...StartOption) error
	Close(ctx context.Context)

	Note(ctx context.Context, message string)
	Tip(ctx context.Context, message string)
	Error(ctx context.Context, message string)

	NoUnits(ctx context.Context)
	DryRun(ctx context.Context)
	PlanSummary(ctx context.Context, set m.AffectedSet, skipDependents bool)
	AffectedUnits(ctx context.Context, units []m.Unit, set m.AffectedSet)
	TestStart(ctx context.Context, unit m.Unit, index, total int)
	TestResult(ctx context.Context, outcome m.Outcome)
	FailureDetails(ctx context.Context, failures []m.Outcome)
	Summary(ctx context.Context, report m.RunReport)

	// StreamWriter returns the sink for live test output in verbose mode.
	StreamWriter() io.Writer
}

// renderer is the rendering backend behind the UI facade.
type renderer interface {
	Note(message string)
	Tip(message string)
	Error(message string)
	NoUnits()
	DryRun()
	PlanSummary(set m.AffectedSet, skipDependents bool)
	AffectedUnits(units []m.Unit, set m.AffectedSet)
	TestStart(unit m.Unit, index, total int)
	TestResult(outcome m.Outcome)
	FailureDetails(failures []m.Outcome)
	Summary(report m.RunReport)
}

// stdUI is the default UI. It picks a renderer at Start time: JSON when
// requested, the bubbletea progress view on a TTY, plain console otherwise.
type stdUI struct {
	cmd        *cobra.Command
	tty        bool
	jsonOutput bool
	active     renderer
	closable   interface{ stop() }
}

// NewUI creates the default UI writing through the command's output streams.
func NewUI(cmd *cobra.Command, tty bool) UI {
	return &stdUI{cmd: cmd, tty: tty}
}

// IsTTY reports whether the writer is an interactive terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return term.IsTerminal(int(f.Fd()))
}

// Start selects and initializes the rendering backend.
func (u *stdUI) Start(ctx context.Context, options ...StartOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var cfg StartConfig
	for _, option := range options {
		option(&cfg)
	}

	u.jsonOutput = cfg.json

	switch {
	case cfg.json:
		u.active = newJSONRenderer(u.cmd.OutOrStdout())
	case cfg.progress && u.tty && !cfg.verbose:
		tui := newTUIRenderer(u.cmd.OutOrStdout())
		u.active = tui
		u.closable = tui
	default:
		u.active = newConsoleRenderer(u.cmd.OutOrStdout(), cfg.verbose)
	}

	return nil
}

// Close finalizes the active renderer.
func (u *stdUI) Close(_ context.Context) {
	if u.closable != nil {
		u.closable.stop()
		u.closable = nil
	}
}

func (u *stdUI) backend() renderer {
	if u.active == nil {
		// Display calls before Start fall back to the plain console.
		u.active = newConsoleRenderer(u.cmd.OutOrStdout(), false)
	}

	return u.active
}

func (u *stdUI) Note(ctx context.Context, message string) {
	if ctx.Err() != nil {
		return
	}

	u.backend().Note(message)
}

func (u *stdUI) Tip(ctx context.Context, message string) {
	if ctx.Err() != nil {
		return
	}

	u.backend().Tip(message)
}

func (u *stdUI) Error(ctx context.Context, message string) {
	if ctx.Err() != nil {
		return
	}

	u.backend().Error(message)
}

func (u *stdUI) NoUnits(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	u.backend().NoUnits()
}

func (u *stdUI) DryRun(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	u.backend().DryRun()
}

func (u *stdUI) PlanSummary(ctx context.Context, set m.AffectedSet, skipDependents bool) {
	if ctx.Err() != nil {
		return
	}

	u.backend().PlanSummary(set, skipDependents)
}

func (u *stdUI) AffectedUnits(ctx context.Context, units []m.Unit, set m.AffectedSet) {
	if ctx.Err() != nil {
		return
	}

	u.backend().AffectedUnits(units, set)
}

func (u *stdUI) TestStart(ctx context.Context, unit m.Unit, index, total int) {
	if ctx.Err() != nil {
		return
	}

	u.backend().TestStart(unit, index, total)
}

func (u *stdUI) TestResult(ctx context.Context, outcome m.Outcome) {
	if ctx.Err() != nil {
		return
	}

	u.backend().TestResult(outcome)
}

func (u *stdUI) FailureDetails(ctx context.Context, failures []m.Outcome) {
	if ctx.Err() != nil {
		return
	}

	u.backend().FailureDetails(failures)
}

func (u *stdUI) Summary(ctx context.Context, report m.RunReport) {
	if ctx.Err() != nil {
		return
	}

	u.backend().Summary(report)
}

func (u *stdUI) StreamWriter() io.Writer {
	// Raw test output interleaved into the event stream would corrupt it,
	// so verbose streaming goes to stderr when stdout carries JSON events.
	if u.jsonOutput {
		return u.cmd.ErrOrStderr()
	}

	return u.cmd.OutOrStdout()
}
