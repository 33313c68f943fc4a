package model

// ChangeType represents the kind of change a file underwent.
type ChangeType string

const (
	// ChangeAdded represents a newly created file.
	ChangeAdded ChangeType = "added"
	// ChangeModified represents an edited or renamed file.
	ChangeModified ChangeType = "modified"
	// ChangeRemoved represents a deleted file.
	ChangeRemoved ChangeType = "removed"
)

// ChangedFile represents a single file reported by the VCS.
type ChangedFile struct {
	// Path is the current location, relative to the workspace root.
	Path Path
	// OldPath is the pre-rename location, empty unless the file moved.
	OldPath Path
	Type    ChangeType
}
