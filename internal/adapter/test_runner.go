// Package adapter provides the external collaborators of the run engine:
// git, workspace metadata, test runner processes and report persistence.
package adapter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"

	"golang.org/x/sync/errgroup"
)

// RunResult is the outcome of one started test command.
type RunResult struct {
	// Output is the combined stdout/stderr, interleaved as produced.
	Output   string
	ExitCode int
}

// TestRunner abstracts the external test command invoked once per unit. The
// orchestrator only needs "run, capture, return code"; implementations
// differ solely in the command line they build.
type TestRunner interface {
	Name() string
	// IsInstalled reports whether the runner binary is available.
	IsInstalled(ctx context.Context) bool
	// InstallHint tells the operator how to obtain the runner.
	InstallHint() string
	// Run executes the test command in dir with the given passthrough
	// arguments. A non-nil error means the process could not be started;
	// test failures are reported through RunResult.ExitCode only.
	// When stream is non-nil, output is forwarded to it live while still
	// being captured.
	Run(ctx context.Context, dir string, extraArgs []string, stream io.Writer) (RunResult, error)
}

// Runner names accepted by configuration.
const (
	RunnerGoTest    = "gotest"
	RunnerGotestsum = "gotestsum"
)

// NewTestRunner returns the runner for the configured name.
func NewTestRunner(name string) (TestRunner, error) {
	switch name {
	case RunnerGoTest:
		return &GoTestRunner{}, nil
	case RunnerGotestsum:
		return &GotestsumRunner{}, nil
	default:
		return nil, fmt.Errorf("unknown test runner %q", name)
	}
}

// GoTestRunner runs the standard `go test` tool.
type GoTestRunner struct{}

// Name implements TestRunner.
func (r *GoTestRunner) Name() string { return RunnerGoTest }

// IsInstalled implements TestRunner.
func (r *GoTestRunner) IsInstalled(_ context.Context) bool {
	_, err := exec.LookPath("go")
	return err == nil
}

// InstallHint implements TestRunner.
func (r *GoTestRunner) InstallHint() string {
	return "install Go from https://go.dev/dl"
}

// Run implements TestRunner.
func (r *GoTestRunner) Run(ctx context.Context, dir string, extraArgs []string, stream io.Writer) (RunResult, error) {
	args := append([]string{"test", "./..."}, extraArgs...)
	return runCommand(ctx, dir, stream, "go", args...)
}

// GotestsumRunner runs tests through gotestsum for nicer per-test output.
type GotestsumRunner struct{}

// Name implements TestRunner.
func (r *GotestsumRunner) Name() string { return RunnerGotestsum }

// IsInstalled implements TestRunner.
func (r *GotestsumRunner) IsInstalled(_ context.Context) bool {
	_, err := exec.LookPath("gotestsum")
	return err == nil
}

// InstallHint implements TestRunner.
func (r *GotestsumRunner) InstallHint() string {
	return "to install gotestsum, run 'go install gotest.tools/gotestsum@latest'"
}

// Run implements TestRunner.
func (r *GotestsumRunner) Run(ctx context.Context, dir string, extraArgs []string, stream io.Writer) (RunResult, error) {
	args := append([]string{"--", "./..."}, extraArgs...)
	return runCommand(ctx, dir, stream, "gotestsum", args...)
}

// runCommand starts the process and drains stdout and stderr concurrently
// into one capture buffer, optionally teeing to stream. It returns an error
// only when the process could not be started.
func runCommand(ctx context.Context, dir string, stream io.Writer, name string, args ...string) (RunResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	capture := &lockedBuffer{}

	var sink io.Writer = capture
	if stream != nil {
		sink = io.MultiWriter(capture, stream)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return RunResult{}, fmt.Errorf("stdout pipe: %w", err)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return RunResult{}, fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		slog.Error("failed to start test command", "command", name, "dir", dir, "error", err)
		return RunResult{}, fmt.Errorf("start %s: %w", name, err)
	}

	group := &errgroup.Group{}
	group.Go(func() error {
		_, copyErr := io.Copy(sink, stdout)
		return copyErr
	})
	group.Go(func() error {
		_, copyErr := io.Copy(sink, stderr)
		return copyErr
	})

	if err := group.Wait(); err != nil {
		slog.Warn("failed to drain test output", "command", name, "error", err)
	}

	exitCode := 0

	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			// Wait failures other than a nonzero exit are invocation problems.
			return RunResult{}, fmt.Errorf("wait %s: %w", name, err)
		}
	}

	slog.Debug("test command finished", "command", name, "dir", dir, "exit_code", exitCode)

	return RunResult{Output: capture.String(), ExitCode: exitCode}, nil
}

// lockedBuffer makes the shared capture safe for the two drain goroutines.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.String()
}
