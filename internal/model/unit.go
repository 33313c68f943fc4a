// Package model defines the data structures for affected-unit test runs.
package model

// Path represents a file system path. Paths handled by the domain are
// workspace-relative and slash-separated; adapters normalize on the way in.
type Path string

// UnitID uniquely identifies a unit within a workspace. For Go workspaces
// this is the module path.
type UnitID string

// Unit represents one testable module of the workspace. Units are built once
// from workspace metadata and never mutated afterwards.
type Unit struct {
	ID   UnitID
	Name string
	// Dir is the unit root directory relative to the workspace root,
	// cleaned and slash-separated ("." for the root module).
	Dir Path
	// Deps lists the workspace units this unit depends on, in declaration order.
	Deps []UnitID
}
