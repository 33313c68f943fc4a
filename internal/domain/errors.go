package domain

import (
	"errors"
	"fmt"
	"strings"

	m "github.com/felixpackard/testchanged/internal/model"
)

// Exit codes per error class. Fatal errors abort before any test command
// runs; TestsFailedError is produced after the report is rendered.
const (
	exitRunnerNotInstalled = 10
	exitTestsFailed        = 20
	exitVCSDiscovery       = 30
	exitMetadata           = 40
	exitVCSOperation       = 50
	exitCommand            = 60
)

// RunnerNotInstalledError indicates the selected test runner binary is not
// available on this machine.
type RunnerNotInstalledError struct {
	Runner string
	// Tip tells the operator how to install the runner.
	Tip string
}

func (e *RunnerNotInstalledError) Error() string {
	return fmt.Sprintf("test runner %q is not installed", e.Runner)
}

// ExitCode implements exitCoder.
func (e *RunnerNotInstalledError) ExitCode() int { return exitRunnerNotInstalled }

// TestsFailedError indicates at least one unit had a failed outcome.
type TestsFailedError struct {
	Units []m.UnitID
}

func (e *TestsFailedError) Error() string {
	names := make([]string, 0, len(e.Units))
	for _, id := range e.Units {
		names = append(names, string(id))
	}

	return fmt.Sprintf("tests failed for: %s", strings.Join(names, ", "))
}

// ExitCode implements exitCoder.
func (e *TestsFailedError) ExitCode() int { return exitTestsFailed }

// VCSDiscoveryError indicates the workspace root could not be located.
type VCSDiscoveryError struct {
	Reason string
}

func (e *VCSDiscoveryError) Error() string {
	return fmt.Sprintf("failed to discover repository: %s", e.Reason)
}

// ExitCode implements exitCoder.
func (e *VCSDiscoveryError) ExitCode() int { return exitVCSDiscovery }

// VCSOperationError indicates a VCS query (status, diff, ref resolution)
// failed. Fatal: without a changed-file list there is nothing to resolve.
type VCSOperationError struct {
	Operation string
	Reason    string
}

func (e *VCSOperationError) Error() string {
	return fmt.Sprintf("vcs operation %q failed: %s", e.Operation, e.Reason)
}

// ExitCode implements exitCoder.
func (e *VCSOperationError) ExitCode() int { return exitVCSOperation }

// MetadataError indicates the workspace descriptor could not be turned into a
// consistent unit list.
type MetadataError struct {
	Reason string
}

func (e *MetadataError) Error() string {
	return fmt.Sprintf("failed to load workspace metadata: %s", e.Reason)
}

// ExitCode implements exitCoder.
func (e *MetadataError) ExitCode() int { return exitMetadata }

// UnknownDependencyError indicates a unit declares a dependency on an
// identifier not present in the workspace. Malformed metadata is surfaced,
// not silently dropped.
type UnknownDependencyError struct {
	Unit       m.UnitID
	Dependency m.UnitID
}

func (e *UnknownDependencyError) Error() string {
	return fmt.Sprintf("unit %q depends on unknown unit %q", e.Unit, e.Dependency)
}

// ExitCode implements exitCoder.
func (e *UnknownDependencyError) ExitCode() int { return exitMetadata }

// UnknownUnitError indicates an explicit override list referenced a unit that
// does not exist in the workspace.
type UnknownUnitError struct {
	Unit m.UnitID
}

func (e *UnknownUnitError) Error() string {
	return fmt.Sprintf("unknown unit %q", e.Unit)
}

// ExitCode implements exitCoder.
func (e *UnknownUnitError) ExitCode() int { return exitMetadata }

// CommandError indicates an auxiliary command (not a per-unit test
// invocation) could not be executed.
type CommandError struct {
	Command string
	Reason  string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %q failed: %s", e.Command, e.Reason)
}

// ExitCode implements exitCoder.
func (e *CommandError) ExitCode() int { return exitCommand }

type exitCoder interface {
	ExitCode() int
}

// ExitCode maps an error to the process exit status. Untyped errors map to 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	var coder exitCoder
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}

	return 1
}
