package domain

import (
	"log/slog"

	m "github.com/felixpackard/testchanged/internal/model"
)

// ResolveChanged maps a raw changed-file list to the set of directly-changed
// units, in order of first discovery. Paths claimed by no unit are workspace
// level files (lockfiles, CI config) and contribute nothing; an empty input
// yields an empty set, which downstream means "nothing to test".
func ResolveChanged(files []m.ChangedFile, graph *Graph) []m.UnitID {
	seen := make(map[m.UnitID]bool)

	var changed []m.UnitID

	record := func(path m.Path) {
		if path == "" {
			return
		}

		id, ok := graph.UnitContaining(path)
		if !ok {
			slog.Debug("changed file outside any unit", "path", path)
			return
		}

		if !seen[id] {
			seen[id] = true
			changed = append(changed, id)
		}
	}

	for _, file := range files {
		record(file.Path)
		// A rename out of one unit into another touches both.
		record(file.OldPath)
	}

	return changed
}
