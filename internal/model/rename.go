package model

import (
	"errors"
	"fmt"
)

var (
	// ErrRenameSpecificity is returned when the two sides of a rename
	// do not address the same depth of the hierarchy.
	ErrRenameSpecificity = errors.New("rename paths must share a specificity")

	// ErrRenameEmpty is returned when a rename has empty paths.
	ErrRenameEmpty = errors.New("rename paths must not be empty")
)

// Rename records that the data at Old is now addressed by New.
type Rename struct {
	Old Path `json:"old"`
	New Path `json:"new"`
}

// NewRename validates and returns the rename old -> updated.
func NewRename(old, updated Path) (Rename, error) {
	if old.IsEmpty() || updated.IsEmpty() {
		return Rename{}, ErrRenameEmpty
	}
	if old.Specificity() != updated.Specificity() {
		return Rename{}, fmt.Errorf("%w: %s is %s, %s is %s",
			ErrRenameSpecificity, old, old.Specificity(), updated, updated.Specificity())
	}
	return Rename{Old: old, New: updated}, nil
}

// Inverse returns the rename that undoes r.
func (r Rename) Inverse() Rename {
	return Rename{Old: r.New, New: r.Old}
}

// IsNoop reports whether the rename leaves paths unchanged.
func (r Rename) IsNoop() bool {
	return r.Old.Equal(r.New)
}

// String renders the rename as "old -> new".
func (r Rename) String() string {
	return r.Old.String() + " -> " + r.New.String()
}

// ComposeRenames merges two renames observed one after the other into a
// single rename with the same overall effect.
//
// When both renames start from the same path, the later one is taken as
// a correction of the earlier target and the result maps the earlier
// target to the later one. When later starts at or above earlier's
// target, the result maps earlier's source to the combined target.
// Any other pair does not compose.
func ComposeRenames(earlier, later Rename) (Rename, bool) {
	if later.Old.Equal(earlier.Old) {
		if earlier.New.Equal(later.New) {
			return Rename{}, false
		}
		return Rename{Old: earlier.New, New: later.New}, true
	}

	if !later.Old.IsSubset(earlier.New) {
		return Rename{}, false
	}

	old := earlier.Old
	old.ApplyRename(later)
	updated := earlier.New
	if !updated.ApplyRename(later) {
		return Rename{}, false
	}
	return Rename{Old: old, New: updated}, true
}
