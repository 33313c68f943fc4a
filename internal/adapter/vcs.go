package adapter

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	m "github.com/felixpackard/testchanged/internal/model"
)

// VCS abstracts the version-control collaborator. The domain consumes it as
// an opaque changed-file producer; only git is implemented.
type VCS interface {
	// WorkspaceRoot returns the repository root containing dir.
	WorkspaceRoot(ctx context.Context, dir string) (string, error)
	// UncommittedChanges lists files with staged, unstaged or untracked
	// changes, relative to the workspace root.
	UncommittedChanges(ctx context.Context, root string) ([]m.ChangedFile, error)
	// ChangesBetween lists files changed between two references. An empty
	// to ref compares against the current working tree.
	ChangesBetween(ctx context.Context, root, from, to string) ([]m.ChangedFile, error)
}

// GitVCS shells out to the git binary, following the same pattern as gh and
// lazygit rather than linking a git library.
type GitVCS struct {
	// GitBin is the git binary path. Defaults to "git".
	GitBin string
}

// NewGitVCS creates a GitVCS using the git binary from PATH.
func NewGitVCS() *GitVCS {
	return &GitVCS{GitBin: "git"}
}

// WorkspaceRoot implements VCS.
func (g *GitVCS) WorkspaceRoot(ctx context.Context, dir string) (string, error) {
	out, err := g.run(ctx, dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", fmt.Errorf("discover repository: %w", err)
	}

	return strings.TrimSpace(out), nil
}

// UncommittedChanges implements VCS.
func (g *GitVCS) UncommittedChanges(ctx context.Context, root string) ([]m.ChangedFile, error) {
	// --porcelain gives a stable format; untracked files are included so a
	// brand-new source file still selects its unit.
	out, err := g.run(ctx, root, "status", "--porcelain", "--untracked-files=all")
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}

	return parseStatusPorcelain(out), nil
}

// ChangesBetween implements VCS.
func (g *GitVCS) ChangesBetween(ctx context.Context, root, from, to string) ([]m.ChangedFile, error) {
	args := []string{"diff", "--name-status", "--find-renames"}
	if to == "" {
		args = append(args, from)
	} else {
		args = append(args, from+".."+to)
	}

	out, err := g.run(ctx, root, args...)
	if err != nil {
		return nil, fmt.Errorf("diff %s..%s: %w", from, to, err)
	}

	return parseDiffNameStatus(out), nil
}

func (g *GitVCS) run(ctx context.Context, dir string, args ...string) (string, error) {
	bin := g.GitBin
	if bin == "" {
		bin = "git"
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	slog.Debug("running git", "args", args, "dir", dir)

	if err := cmd.Run(); err != nil {
		message := strings.TrimSpace(stderr.String())
		if message == "" {
			message = err.Error()
		}

		return "", fmt.Errorf("git %s: %s", strings.Join(args, " "), message)
	}

	return stdout.String(), nil
}

// parseStatusPorcelain parses `git status --porcelain` output. Each line is
// "XY path" or "XY old -> new" for renames.
func parseStatusPorcelain(output string) []m.ChangedFile {
	var files []m.ChangedFile

	for _, line := range strings.SplitAfter(output, "\n") {
		if line == "" {
			continue
		}

		line = strings.TrimRight(line, "\n")
		if len(line) < 4 {
			continue
		}

		code := line[:2]
		rest := line[3:]

		var changed m.ChangedFile

		if old, current, found := strings.Cut(rest, " -> "); found {
			changed = m.ChangedFile{
				Path:    m.Path(unquoteGitPath(current)),
				OldPath: m.Path(unquoteGitPath(old)),
				Type:    m.ChangeModified,
			}
		} else {
			changed = m.ChangedFile{
				Path: m.Path(unquoteGitPath(rest)),
				Type: statusChangeType(code),
			}
		}

		files = append(files, changed)
	}

	return files
}

func statusChangeType(code string) m.ChangeType {
	switch {
	case strings.Contains(code, "D"):
		return m.ChangeRemoved
	case strings.Contains(code, "A"), code == "??":
		return m.ChangeAdded
	default:
		return m.ChangeModified
	}
}

// parseDiffNameStatus parses `git diff --name-status` output. Rename lines
// look like "R100\told\tnew"; the destination is the current path.
func parseDiffNameStatus(output string) []m.ChangedFile {
	var files []m.ChangedFile

	for _, line := range strings.SplitAfter(output, "\n") {
		if line == "" {
			continue
		}

		line = strings.TrimRight(line, "\n")
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) < 2 {
			continue
		}

		status := fields[0]

		switch {
		case strings.HasPrefix(status, "R"), strings.HasPrefix(status, "C"):
			if len(fields) < 3 {
				continue
			}

			files = append(files, m.ChangedFile{
				Path:    m.Path(fields[2]),
				OldPath: m.Path(fields[1]),
				Type:    m.ChangeModified,
			})
		case status == "A":
			files = append(files, m.ChangedFile{Path: m.Path(fields[1]), Type: m.ChangeAdded})
		case status == "D":
			files = append(files, m.ChangedFile{Path: m.Path(fields[1]), Type: m.ChangeRemoved})
		default:
			files = append(files, m.ChangedFile{Path: m.Path(fields[1]), Type: m.ChangeModified})
		}
	}

	return files
}

// unquoteGitPath strips the quoting git applies to paths with special
// characters. Escape sequences beyond \" and \\ are left as-is; such paths
// will simply not match any unit root.
func unquoteGitPath(path string) string {
	if len(path) < 2 || !strings.HasPrefix(path, `"`) || !strings.HasSuffix(path, `"`) {
		return path
	}

	inner := path[1 : len(path)-1]
	inner = strings.ReplaceAll(inner, `\"`, `"`)
	inner = strings.ReplaceAll(inner, `\\`, `\`)

	return inner
}
