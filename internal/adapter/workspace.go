package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/mod/modfile"

	m "github.com/felixpackard/testchanged/internal/model"
)

// Workspace abstracts the workspace-metadata collaborator: it turns a
// workspace root into the full unit list with dependency edges.
type Workspace interface {
	Load(ctx context.Context, root string) ([]m.Unit, error)
}

// GoWorkspace reads Go workspace metadata. Units are the modules listed in
// go.work; a root without go.work but with a go.mod is a single-unit
// workspace. Dependency edges are require directives that target sibling
// workspace modules.
type GoWorkspace struct{}

// NewGoWorkspace creates a GoWorkspace.
func NewGoWorkspace() *GoWorkspace {
	return &GoWorkspace{}
}

// Load implements Workspace.
func (w *GoWorkspace) Load(ctx context.Context, root string) ([]m.Unit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dirs, err := moduleDirs(root)
	if err != nil {
		return nil, err
	}

	type parsedModule struct {
		dir      m.Path
		file     *modfile.File
		requires []string
	}

	modules := make([]parsedModule, 0, len(dirs))
	known := make(map[string]bool, len(dirs))

	for _, dir := range dirs {
		modPath := filepath.Join(root, filepath.FromSlash(dir), "go.mod")

		data, err := os.ReadFile(modPath)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", modPath, err)
		}

		file, err := modfile.Parse(modPath, data, nil)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", modPath, err)
		}

		if file.Module == nil || file.Module.Mod.Path == "" {
			return nil, fmt.Errorf("parse %s: missing module directive", modPath)
		}

		requires := make([]string, 0, len(file.Require))
		for _, require := range file.Require {
			requires = append(requires, require.Mod.Path)
		}

		modules = append(modules, parsedModule{
			dir:      m.Path(dir),
			file:     file,
			requires: requires,
		})
		known[file.Module.Mod.Path] = true
	}

	units := make([]m.Unit, 0, len(modules))

	for _, module := range modules {
		modulePath := module.file.Module.Mod.Path

		var deps []m.UnitID
		for _, require := range module.requires {
			// Only edges inside the workspace matter for affected-set
			// expansion; external requirements are invisible here.
			if known[require] && require != modulePath {
				deps = append(deps, m.UnitID(require))
			}
		}

		units = append(units, m.Unit{
			ID:   m.UnitID(modulePath),
			Name: modulePath,
			Dir:  module.dir,
			Deps: deps,
		})
	}

	slog.Debug("loaded workspace", "root", root, "units", len(units))

	return units, nil
}

// moduleDirs returns the module directories of the workspace relative to
// root, cleaned and slash-separated.
func moduleDirs(root string) ([]string, error) {
	workPath := filepath.Join(root, "go.work")

	data, err := os.ReadFile(workPath)
	if os.IsNotExist(err) {
		// Single-module workspace.
		if _, statErr := os.Stat(filepath.Join(root, "go.mod")); statErr != nil {
			return nil, fmt.Errorf("no go.work or go.mod in %s", root)
		}

		return []string{"."}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("read %s: %w", workPath, err)
	}

	work, err := modfile.ParseWork(workPath, data, nil)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", workPath, err)
	}

	dirs := make([]string, 0, len(work.Use))

	for _, use := range work.Use {
		dir := filepath.ToSlash(filepath.Clean(use.Path))
		if filepath.IsAbs(use.Path) {
			// Absolute use directives point outside the workspace tree and
			// cannot participate in path containment.
			return nil, fmt.Errorf("parse %s: absolute use directive %q is not supported", workPath, use.Path)
		}

		dirs = append(dirs, dir)
	}

	if len(dirs) == 0 {
		return nil, fmt.Errorf("parse %s: no use directives", workPath)
	}

	return dirs, nil
}
