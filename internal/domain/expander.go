package domain

import (
	"sort"

	m "github.com/felixpackard/testchanged/internal/model"
)

// Expand produces the final affected set from the directly-changed units.
// With includeDependents the set grows to the transitive dependent closure;
// without it the direct set passes through unchanged. Either way the result
// is sorted by display name so the attempt order is reproducible.
func Expand(direct []m.UnitID, graph *Graph, includeDependents bool) m.AffectedSet {
	directSet := make(map[m.UnitID]bool, len(direct))
	for _, id := range direct {
		directSet[id] = true
	}

	var selected map[m.UnitID]bool
	if includeDependents {
		selected = graph.TransitiveDependentsOf(direct)
	} else {
		selected = directSet
	}

	ids := make([]m.UnitID, 0, len(selected))
	for id := range selected {
		ids = append(ids, id)
	}

	return m.AffectedSet{
		Units:  sortByName(ids, graph),
		Direct: directSet,
	}
}

// Override builds the affected set from an explicit unit list, bypassing
// change detection entirely. Unknown identifiers are an error; the list is
// still name-sorted for deterministic ordering.
func Override(ids []m.UnitID, graph *Graph) (m.AffectedSet, error) {
	seen := make(map[m.UnitID]bool, len(ids))
	unique := make([]m.UnitID, 0, len(ids))

	for _, id := range ids {
		if _, ok := graph.Unit(id); !ok {
			return m.AffectedSet{}, &UnknownUnitError{Unit: id}
		}

		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}

	return m.AffectedSet{
		Units:    sortByName(unique, graph),
		Direct:   seen,
		Override: true,
	}, nil
}

func sortByName(ids []m.UnitID, graph *Graph) []m.UnitID {
	sorted := make([]m.UnitID, len(ids))
	copy(sorted, ids)

	sort.Slice(sorted, func(i, j int) bool {
		a, _ := graph.Unit(sorted[i])
		b, _ := graph.Unit(sorted[j])

		if a.Name != b.Name {
			return a.Name < b.Name
		}

		return sorted[i] < sorted[j]
	})

	return sorted
}
