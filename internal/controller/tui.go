package controller

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	m "github.com/felixpackard/testchanged/internal/model"
)

// tuiRenderer drives a bubbletea progress view on interactive terminals.
// Display calls are forwarded to the running program as messages; stop()
// quits the program and leaves the final frame on screen.
type tuiRenderer struct {
	program *tea.Program
	done    chan struct{}
}

func newTUIRenderer(output io.Writer) *tuiRenderer {
	model := newRunModel()
	program := tea.NewProgram(model, tea.WithOutput(output), tea.WithInput(nil))

	r := &tuiRenderer{
		program: program,
		done:    make(chan struct{}),
	}

	go func() {
		defer close(r.done)

		if _, err := program.Run(); err != nil {
			slog.Error("progress view exited", "error", err)
		}
	}()

	return r
}

func (r *tuiRenderer) stop() {
	r.program.Quit()
	<-r.done
}

type noteMsg struct{ text string }

type planMsg struct {
	set            m.AffectedSet
	skipDependents bool
}

type startMsg struct {
	unit  m.Unit
	index int
	total int
}

type resultMsg struct{ outcome m.Outcome }

type failuresMsg struct{ failures []m.Outcome }

type summaryMsg struct{ report m.RunReport }

func (r *tuiRenderer) Note(message string) { r.program.Send(noteMsg{text: "note: " + message}) }
func (r *tuiRenderer) Tip(message string)  { r.program.Send(noteMsg{text: "tip: " + message}) }
func (r *tuiRenderer) Error(message string) {
	r.program.Send(noteMsg{text: "error: " + message})
}
func (r *tuiRenderer) NoUnits() { r.program.Send(noteMsg{text: "no units to test"}) }
func (r *tuiRenderer) DryRun() {
	r.program.Send(noteMsg{text: "dry run mode enabled, skipping actual tests"})
}

func (r *tuiRenderer) PlanSummary(set m.AffectedSet, skipDependents bool) {
	r.program.Send(planMsg{set: set, skipDependents: skipDependents})
}

func (r *tuiRenderer) AffectedUnits(units []m.Unit, set m.AffectedSet) {
	for _, unit := range units {
		label := "dependent"
		if set.Direct[unit.ID] {
			label = "change"
		}

		r.program.Send(noteMsg{text: fmt.Sprintf("%s (%s)", unit.Name, label)})
	}
}

func (r *tuiRenderer) TestStart(unit m.Unit, index, total int) {
	r.program.Send(startMsg{unit: unit, index: index, total: total})
}

func (r *tuiRenderer) TestResult(outcome m.Outcome) {
	r.program.Send(resultMsg{outcome: outcome})
}

func (r *tuiRenderer) FailureDetails(failures []m.Outcome) {
	r.program.Send(failuresMsg{failures: failures})
}

func (r *tuiRenderer) Summary(report m.RunReport) {
	r.program.Send(summaryMsg{report: report})
}

// runModel is the bubbletea model for a test run in flight.
type runModel struct {
	spinner  spinner.Model
	progress progress.Model

	notes    []string
	plan     string
	current  string
	total    int
	finished []m.Outcome
	failures []m.Outcome
	summary  string
	running  bool
}

func newRunModel() runModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return runModel{
		spinner:  sp,
		progress: progress.New(progress.WithDefaultGradient()),
	}
}

func (rm runModel) Init() tea.Cmd {
	return rm.spinner.Tick
}

func (rm runModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case noteMsg:
		rm.notes = append(rm.notes, msg.text)
		return rm, nil

	case planMsg:
		if msg.set.Override {
			rm.plan = fmt.Sprintf("testing %d explicitly selected units", len(msg.set.Units))
		} else {
			rm.plan = fmt.Sprintf("discovered %d changed, %d dependent units",
				msg.set.DirectCount(), msg.set.DependentCount())
		}

		return rm, nil

	case startMsg:
		rm.current = msg.unit.Name
		rm.total = msg.total
		rm.running = true

		return rm, nil

	case resultMsg:
		rm.finished = append(rm.finished, msg.outcome)
		rm.current = ""
		rm.running = false

		if rm.total > 0 {
			return rm, rm.progress.SetPercent(float64(len(rm.finished)) / float64(rm.total))
		}

		return rm, nil

	case failuresMsg:
		rm.failures = msg.failures
		return rm, nil

	case summaryMsg:
		report := msg.report
		failed := len(report.Failed())
		skipped := len(report.Outcomes) - report.Passed() - failed
		rm.summary = fmt.Sprintf("test result: %d passed; %d failed; %d skipped; finished in %.2fs",
			report.Passed(), failed, skipped, report.Duration.Seconds())

		return rm, nil

	case progress.FrameMsg:
		model, cmd := rm.progress.Update(msg)
		rm.progress = model.(progress.Model)

		return rm, cmd

	case spinner.TickMsg:
		var cmd tea.Cmd
		rm.spinner, cmd = rm.spinner.Update(msg)

		return rm, cmd

	case tea.QuitMsg:
		return rm, tea.Quit
	}

	return rm, nil
}

func (rm runModel) View() string {
	var b strings.Builder

	for _, note := range rm.notes {
		b.WriteString(note + "\n")
	}

	if rm.plan != "" {
		b.WriteString(rm.plan + "\n\n")
	}

	for _, outcome := range rm.finished {
		var status string

		switch outcome.Status {
		case m.Passed:
			status = okStyle.Render("ok")
		case m.Failed:
			status = failStyle.Render("FAILED")
		case m.Skipped:
			status = skipStyle.Render("skipped")
		}

		fmt.Fprintf(&b, "  %s %s\n", status, outcome.Name)
	}

	if rm.running {
		fmt.Fprintf(&b, "  %s testing %s\n", rm.spinner.View(), rm.current)
	}

	if rm.total > 0 {
		b.WriteString("\n" + rm.progress.View() + "\n")
	}

	if len(rm.failures) > 0 && rm.summary != "" {
		b.WriteString("\nfailed units:\n")

		for _, failure := range rm.failures {
			fmt.Fprintf(&b, "    %s\n", nameEmStyle.Render(failure.Name))
		}
	}

	if rm.summary != "" {
		b.WriteString("\n" + rm.summary + "\n")
	}

	return b.String()
}
