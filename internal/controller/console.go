package controller

import (
	"bytes"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/tablewriter"

	m "github.com/felixpackard/testchanged/internal/model"
)

var (
	okStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2"))
	failStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1"))
	skipStyle   = lipgloss.NewStyle().Faint(true)
	labelStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	errLabel    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1"))
	nameEmStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("3"))
)

// consoleRenderer writes human-oriented output. Captured test output is
// omitted unless verbose mode was requested, except for failed units whose
// output is always shown so a failure is diagnosable from the report alone.
type consoleRenderer struct {
	w       io.Writer
	verbose bool
	// pending is true between a TestStart and its TestResult. Skipped units
	// are never started, so their result line must carry the name itself.
	pending bool
}

func newConsoleRenderer(w io.Writer, verbose bool) *consoleRenderer {
	return &consoleRenderer{w: w, verbose: verbose}
}

func (c *consoleRenderer) Note(message string) {
	fmt.Fprintf(c.w, "%s: %s\n", labelStyle.Render("note"), message)
}

func (c *consoleRenderer) Tip(message string) {
	fmt.Fprintf(c.w, "  %s: %s\n", labelStyle.Render("tip"), message)
}

func (c *consoleRenderer) Error(message string) {
	fmt.Fprintf(c.w, "%s: %s\n", errLabel.Render("error"), message)
}

func (c *consoleRenderer) NoUnits() {
	fmt.Fprintln(c.w, "no units to test")
}

func (c *consoleRenderer) DryRun() {
	c.Note("dry run mode enabled, skipping actual tests")
}

func (c *consoleRenderer) PlanSummary(set m.AffectedSet, skipDependents bool) {
	if set.Override {
		fmt.Fprintf(c.w, "testing %d explicitly selected %s\n\n",
			len(set.Units), pluralize(len(set.Units), "unit", "units"))
		return
	}

	direct := set.DirectCount()
	dependent := set.DependentCount()

	skipping := ""
	if skipDependents {
		skipping = "skipping "
	}

	fmt.Fprintf(c.w, "discovered %d changed %s; %s%d dependent %s\n\n",
		direct, pluralize(direct, "unit", "units"),
		skipping,
		dependent, pluralize(dependent, "unit", "units"))
}

func (c *consoleRenderer) AffectedUnits(units []m.Unit, set m.AffectedSet) {
	var buf bytes.Buffer

	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"Unit", "Directory", "Selected By"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_CENTER})

	for _, unit := range units {
		selectedBy := "dependent"
		if set.Direct[unit.ID] {
			selectedBy = "change"
		}

		if set.Override {
			selectedBy = "override"
		}

		table.Append([]string{unit.Name, string(unit.Dir), selectedBy})
	}

	table.SetFooter([]string{
		fmt.Sprintf("Total %d", len(units)), "", "",
	})

	table.Render()
	fmt.Fprintf(c.w, "\n%s", buf.String())
}

func (c *consoleRenderer) TestStart(unit m.Unit, index, total int) {
	c.pending = true

	fmt.Fprintf(c.w, "test unit %s [%d/%d]", unit.Name, index, total)

	if c.verbose {
		fmt.Fprintln(c.w)
	} else {
		fmt.Fprint(c.w, " ... ")
	}
}

func (c *consoleRenderer) TestResult(outcome m.Outcome) {
	started := c.pending
	c.pending = false

	if !started {
		fmt.Fprintf(c.w, "test unit %s ... ", outcome.Name)
	} else if c.verbose {
		fmt.Fprintln(c.w)
		return
	}

	switch outcome.Status {
	case m.Passed:
		fmt.Fprintln(c.w, okStyle.Render("ok"))
	case m.Failed:
		fmt.Fprintln(c.w, failStyle.Render("FAILED"))
	case m.Skipped:
		fmt.Fprintln(c.w, skipStyle.Render("skipped"))
	}
}

func (c *consoleRenderer) FailureDetails(failures []m.Outcome) {
	fmt.Fprintf(c.w, "\nfailed unit output:\n\n")

	for _, failure := range failures {
		fmt.Fprintf(c.w, "---- %s output ----\n", failure.Name)

		if failure.Note != "" {
			fmt.Fprintf(c.w, "%s\n", failure.Note)
		}

		if failure.Output != "" {
			fmt.Fprintf(c.w, "%s\n", failure.Output)
		}

		fmt.Fprintln(c.w)
	}

	fmt.Fprintln(c.w, "failed units:")

	for _, failure := range failures {
		fmt.Fprintf(c.w, "    %s\n", nameEmStyle.Render(failure.Name))
	}
}

func (c *consoleRenderer) Summary(report m.RunReport) {
	failed := len(report.Failed())
	passed := report.Passed()
	skipped := len(report.Outcomes) - failed - passed

	verdict := okStyle.Render("ok")
	if failed > 0 {
		verdict = failStyle.Render("FAILED")
	}

	fmt.Fprintf(c.w, "\ntest result: %s. %d passed; %d failed; %d skipped; finished in %.2fs\n",
		verdict, passed, failed, skipped, report.Duration.Seconds())
}

// pluralize returns the singular or plural form based on count.
func pluralize(count int, singular, plural string) string {
	if count == 1 {
		return singular
	}

	return plural
}
