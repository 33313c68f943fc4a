package domain

import (
	"fmt"
	"sort"
	"strings"

	m "github.com/felixpackard/testchanged/internal/model"
)

// Graph is the in-memory dependency graph of the workspace: the full unit
// set plus a reverse-dependency index derived once at construction. It is
// read-only after NewGraph returns; every component that needs it receives
// the instance explicitly.
type Graph struct {
	units map[m.UnitID]m.Unit
	// dependents is the exact transpose of the forward dependency edges.
	dependents map[m.UnitID][]m.UnitID
}

// NewGraph builds a graph from an already-resolved unit list. It fails with
// UnknownDependencyError if any unit declares a dependency on an identifier
// not present in the list, and with MetadataError on duplicate identifiers
// or units sharing a root directory.
func NewGraph(units []m.Unit) (*Graph, error) {
	g := &Graph{
		units:      make(map[m.UnitID]m.Unit, len(units)),
		dependents: make(map[m.UnitID][]m.UnitID),
	}

	dirs := make(map[m.Path]m.UnitID, len(units))

	for _, unit := range units {
		if _, exists := g.units[unit.ID]; exists {
			return nil, &MetadataError{Reason: "duplicate unit " + string(unit.ID)}
		}

		// Two units rooted at the same directory would make path
		// containment ambiguous.
		if other, exists := dirs[unit.Dir]; exists {
			return nil, &MetadataError{
				Reason: fmt.Sprintf("units %s and %s share directory %q", other, unit.ID, unit.Dir),
			}
		}

		g.units[unit.ID] = unit
		dirs[unit.Dir] = unit.ID
	}

	for _, unit := range units {
		for _, dep := range unit.Deps {
			if _, exists := g.units[dep]; !exists {
				return nil, &UnknownDependencyError{Unit: unit.ID, Dependency: dep}
			}

			g.dependents[dep] = append(g.dependents[dep], unit.ID)
		}
	}

	return g, nil
}

// Unit returns the unit for the given identifier.
func (g *Graph) Unit(id m.UnitID) (m.Unit, bool) {
	unit, ok := g.units[id]
	return unit, ok
}

// Units returns every unit in the graph, sorted by display name.
func (g *Graph) Units() []m.Unit {
	units := make([]m.Unit, 0, len(g.units))
	for _, unit := range g.units {
		units = append(units, unit)
	}

	sort.Slice(units, func(i, j int) bool {
		return units[i].Name < units[j].Name
	})

	return units
}

// Len returns the number of units in the graph.
func (g *Graph) Len() int {
	return len(g.units)
}

// UnitContaining returns the unit whose root directory is the longest
// matching ancestor of path. Nested unit roots are legal, so the deepest
// match wins. Paths outside the workspace match nothing.
func (g *Graph) UnitContaining(path m.Path) (m.UnitID, bool) {
	cleaned, ok := normalizeRelPath(path)
	if !ok {
		return "", false
	}

	var (
		best      m.UnitID
		bestDepth = -1
		found     bool
	)

	for id, unit := range g.units {
		if !dirContains(string(unit.Dir), cleaned) {
			continue
		}

		depth := pathDepth(string(unit.Dir))
		if depth > bestDepth {
			best = id
			bestDepth = depth
			found = true
		}
	}

	return best, found
}

// DependentsOf returns the direct (one hop) dependents of a unit.
func (g *Graph) DependentsOf(id m.UnitID) []m.UnitID {
	deps := g.dependents[id]
	out := make([]m.UnitID, len(deps))
	copy(out, deps)

	return out
}

// TransitiveDependentsOf returns the closure of dependents reachable from
// the initial set, including the initial set itself. Traversal is
// breadth-first with a visited guard, so cyclic or otherwise malformed edge
// data cannot loop it.
func (g *Graph) TransitiveDependentsOf(initial []m.UnitID) map[m.UnitID]bool {
	visited := make(map[m.UnitID]bool, len(initial))
	queue := make([]m.UnitID, 0, len(initial))

	for _, id := range initial {
		if visited[id] {
			continue
		}

		visited[id] = true
		queue = append(queue, id)
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, dependent := range g.dependents[current] {
			if visited[dependent] {
				continue
			}

			visited[dependent] = true
			queue = append(queue, dependent)
		}
	}

	return visited
}

// normalizeRelPath cleans a workspace-relative path. Absolute paths and
// paths escaping the workspace root yield false.
func normalizeRelPath(path m.Path) (string, bool) {
	p := strings.ReplaceAll(string(path), "\\", "/")
	if strings.HasPrefix(p, "/") {
		return "", false
	}

	segments := strings.Split(p, "/")
	cleaned := make([]string, 0, len(segments))

	for _, segment := range segments {
		switch segment {
		case "", ".":
		case "..":
			if len(cleaned) == 0 {
				return "", false
			}

			cleaned = cleaned[:len(cleaned)-1]
		default:
			cleaned = append(cleaned, segment)
		}
	}

	if len(cleaned) == 0 {
		return ".", true
	}

	return strings.Join(cleaned, "/"), true
}

// dirContains reports whether path is inside dir. Comparison is on whole
// path segments so sibling directories sharing a prefix never match.
func dirContains(dir, path string) bool {
	if dir == "." {
		return true
	}

	return path == dir || strings.HasPrefix(path, dir+"/")
}

func pathDepth(dir string) int {
	if dir == "." {
		return 0
	}

	return strings.Count(dir, "/") + 1
}
