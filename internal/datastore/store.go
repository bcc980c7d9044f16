// Package datastore holds the in-memory data hierarchy that filters read
// from and write to: data containers hold attribute matrices, which hold
// data arrays. Every node is addressed by a model.Path.
//
// Data checks create placeholder arrays (no backing values) so that later
// filters can validate against them; execution allocates the values.
package datastore

import (
	"errors"

	"github.com/nao1215/filterpipe/internal/model"
)

var (
	// ErrNotFound is returned when a path does not address an existing node.
	ErrNotFound = errors.New("data path does not exist")

	// ErrAlreadyExists is returned when creating a node whose name is taken.
	ErrAlreadyExists = errors.New("data path already exists")

	// ErrInvalidPath is returned for paths of the wrong specificity or with gaps.
	ErrInvalidPath = errors.New("invalid data path")

	// ErrInvalidName is returned when a segment used as a creation target
	// is empty or contains the '/' delimiter.
	ErrInvalidName = errors.New("invalid data object name")

	// ErrRenameConflict is returned when a rename target is already taken.
	ErrRenameConflict = errors.New("rename target already exists")
)

// Store is the data hierarchy a pipeline threads through its filters.
// Implementations need not be safe for concurrent writers; a pipeline
// is the only writer of the store it is given.
type Store interface {
	// Container returns the data container named name.
	Container(name string) (*DataContainer, error)

	// Matrix returns the attribute matrix addressed by path.
	Matrix(path model.Path) (*AttributeMatrix, error)

	// Array returns the data array addressed by path.
	Array(path model.Path) (*DataArray, error)

	// CreateContainer creates the container named by path's container segment.
	CreateContainer(path model.Path) (*DataContainer, error)

	// CreateMatrix creates an attribute matrix with the given tuple count.
	CreateMatrix(path model.Path, tuples int) (*AttributeMatrix, error)

	// CreateArray creates a placeholder array sized by its matrix's tuples.
	CreateArray(path model.Path, components int) (*DataArray, error)

	// Exists reports whether path addresses an existing node at its
	// own specificity.
	Exists(path model.Path) bool

	// Rename moves the node at r.Old to r.New. Both must share a parent.
	Rename(r model.Rename) error

	// Remove deletes the node at path and everything below it.
	Remove(path model.Path) error

	// Paths lists every node in sorted order.
	Paths() []model.Path

	// Clone returns a deep copy.
	Clone() Store
}
