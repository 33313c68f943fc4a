package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "github.com/felixpackard/testchanged/internal/model"
)

func fixtureUnits() []m.Unit {
	return []m.Unit{
		{ID: "example.com/app/core", Name: "core", Dir: "core"},
		{ID: "example.com/app/api", Name: "api", Dir: "services/api", Deps: []m.UnitID{"example.com/app/core"}},
		{ID: "example.com/app/worker", Name: "worker", Dir: "services/worker", Deps: []m.UnitID{"example.com/app/core"}},
		{ID: "example.com/app/gateway", Name: "gateway", Dir: "gateway", Deps: []m.UnitID{"example.com/app/api"}},
	}
}

func fixtureGraph(t *testing.T) *Graph {
	t.Helper()

	graph, err := NewGraph(fixtureUnits())
	require.NoError(t, err)

	return graph
}

func TestNewGraph_DuplicateUnit(t *testing.T) {
	units := []m.Unit{
		{ID: "example.com/app/core", Name: "core", Dir: "core"},
		{ID: "example.com/app/core", Name: "core", Dir: "other"},
	}

	graph, err := NewGraph(units)
	require.Error(t, err)
	assert.Nil(t, graph)

	var metadataErr *MetadataError
	require.ErrorAs(t, err, &metadataErr)
	assert.Contains(t, metadataErr.Reason, "duplicate unit")
}

func TestNewGraph_DuplicateDirectory(t *testing.T) {
	units := []m.Unit{
		{ID: "example.com/app/core", Name: "core", Dir: "shared"},
		{ID: "example.com/app/other", Name: "other", Dir: "shared"},
	}

	graph, err := NewGraph(units)
	require.Error(t, err)
	assert.Nil(t, graph)

	var metadataErr *MetadataError
	require.ErrorAs(t, err, &metadataErr)
	assert.Contains(t, metadataErr.Reason, "share directory")
}

func TestNewGraph_UnknownDependency(t *testing.T) {
	units := []m.Unit{
		{ID: "example.com/app/api", Name: "api", Dir: "api", Deps: []m.UnitID{"example.com/app/missing"}},
	}

	graph, err := NewGraph(units)
	require.Error(t, err)
	assert.Nil(t, graph)

	var unknownErr *UnknownDependencyError
	require.ErrorAs(t, err, &unknownErr)
	assert.Equal(t, m.UnitID("example.com/app/api"), unknownErr.Unit)
	assert.Equal(t, m.UnitID("example.com/app/missing"), unknownErr.Dependency)
}

func TestGraph_Units_SortedByName(t *testing.T) {
	graph := fixtureGraph(t)

	units := graph.Units()
	require.Len(t, units, 4)

	names := make([]string, 0, len(units))
	for _, unit := range units {
		names = append(names, unit.Name)
	}

	assert.Equal(t, []string{"api", "core", "gateway", "worker"}, names)
	assert.Equal(t, 4, graph.Len())
}

func TestGraph_UnitContaining(t *testing.T) {
	graph := fixtureGraph(t)

	tests := []struct {
		name   string
		path   m.Path
		wantID m.UnitID
		wantOK bool
	}{
		{"file in unit root", "core/engine.go", "example.com/app/core", true},
		{"nested file", "services/api/internal/http/server.go", "example.com/app/api", true},
		{"unit directory itself", "services/api", "example.com/app/api", true},
		{"workspace-level file", "go.work", "", false},
		{"sibling prefix does not match", "services/apiextras/main.go", "", false},
		{"backslash separators", "services\\worker\\job.go", "example.com/app/worker", true},
		{"dot segments resolve", "./core/./engine.go", "example.com/app/core", true},
		{"absolute path rejected", "/etc/passwd", "", false},
		{"escaping path rejected", "../outside/main.go", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := graph.UnitContaining(tt.path)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestGraph_UnitContaining_DeepestMatchWins(t *testing.T) {
	units := []m.Unit{
		{ID: "example.com/app", Name: "app", Dir: "."},
		{ID: "example.com/app/plugin", Name: "plugin", Dir: "plugins/auth"},
	}

	graph, err := NewGraph(units)
	require.NoError(t, err)

	id, ok := graph.UnitContaining("plugins/auth/token.go")
	require.True(t, ok)
	assert.Equal(t, m.UnitID("example.com/app/plugin"), id)

	id, ok = graph.UnitContaining("main.go")
	require.True(t, ok)
	assert.Equal(t, m.UnitID("example.com/app"), id)
}

func TestGraph_DependentsOf(t *testing.T) {
	graph := fixtureGraph(t)

	dependents := graph.DependentsOf("example.com/app/core")
	assert.ElementsMatch(t, []m.UnitID{"example.com/app/api", "example.com/app/worker"}, dependents)

	assert.Empty(t, graph.DependentsOf("example.com/app/gateway"))
}

func TestGraph_TransitiveDependentsOf(t *testing.T) {
	graph := fixtureGraph(t)

	closure := graph.TransitiveDependentsOf([]m.UnitID{"example.com/app/core"})

	assert.Len(t, closure, 4)
	assert.True(t, closure["example.com/app/core"])
	assert.True(t, closure["example.com/app/api"])
	assert.True(t, closure["example.com/app/worker"])
	assert.True(t, closure["example.com/app/gateway"])
}

func TestGraph_TransitiveDependentsOf_Cycle(t *testing.T) {
	units := []m.Unit{
		{ID: "a", Name: "a", Dir: "a", Deps: []m.UnitID{"b"}},
		{ID: "b", Name: "b", Dir: "b", Deps: []m.UnitID{"a"}},
	}

	graph, err := NewGraph(units)
	require.NoError(t, err)

	closure := graph.TransitiveDependentsOf([]m.UnitID{"a"})
	assert.Len(t, closure, 2)
}

func TestNormalizeRelPath(t *testing.T) {
	tests := []struct {
		name   string
		path   m.Path
		want   string
		wantOK bool
	}{
		{"plain", "a/b.go", "a/b.go", true},
		{"dot", ".", ".", true},
		{"empty", "", ".", true},
		{"inner dotdot", "a/b/../c.go", "a/c.go", true},
		{"leading dotdot", "../a.go", "", false},
		{"absolute", "/a.go", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := normalizeRelPath(tt.path)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
