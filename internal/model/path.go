package model

import (
	"cmp"
	"encoding/json"
	"hash/fnv"
	"strings"
)

// Specificity reports how deep a Path addresses the data hierarchy.
// The values are ordered: a deeper specificity compares greater.
type Specificity int

const (
	// SpecificityNone is the specificity of a path with no segments set.
	SpecificityNone Specificity = iota
	// SpecificityContainer addresses a whole data container.
	SpecificityContainer
	// SpecificityMatrix addresses an attribute matrix inside a container.
	SpecificityMatrix
	// SpecificityArray addresses a single data array.
	SpecificityArray
)

// String returns a human-readable representation of the specificity.
func (s Specificity) String() string {
	switch s {
	case SpecificityNone:
		return "none"
	case SpecificityContainer:
		return "container"
	case SpecificityMatrix:
		return "matrix"
	case SpecificityArray:
		return "array"
	default:
		return "unknown"
	}
}

// PathSeparator joins the segments of a path in its textual form.
const PathSeparator = "|"

// Path is a three-segment address into the data hierarchy:
// data container, attribute matrix and data array.
//
// The zero value is the empty path. Paths are values; every mutator
// recomputes the specificity and the per-segment hashes so equality
// checks stay cheap.
type Path struct {
	container   string
	matrix      string
	array       string
	specificity Specificity
	hashes      [3]uint64
}

// NewPath returns a path built from the three segments.
func NewPath(container, matrix, array string) Path {
	var p Path
	p.Update(container, matrix, array)
	return p
}

// ParsePath parses the textual form produced by Path.String.
// Missing trailing segments are left empty.
func ParsePath(s string) Path {
	parts := strings.SplitN(s, PathSeparator, 3)
	for len(parts) < 3 {
		parts = append(parts, "")
	}
	return NewPath(parts[0], parts[1], parts[2])
}

// Update replaces all three segments.
func (p *Path) Update(container, matrix, array string) {
	p.container = container
	p.matrix = matrix
	p.array = array
	p.refresh()
}

// SetContainer replaces the data container segment.
func (p *Path) SetContainer(name string) {
	p.container = name
	p.refresh()
}

// SetMatrix replaces the attribute matrix segment.
func (p *Path) SetMatrix(name string) {
	p.matrix = name
	p.refresh()
}

// SetArray replaces the data array segment.
func (p *Path) SetArray(name string) {
	p.array = name
	p.refresh()
}

func (p *Path) refresh() {
	switch {
	case p.array != "":
		p.specificity = SpecificityArray
	case p.matrix != "":
		p.specificity = SpecificityMatrix
	case p.container != "":
		p.specificity = SpecificityContainer
	default:
		p.specificity = SpecificityNone
	}
	p.hashes = [3]uint64{hashSegment(p.container), hashSegment(p.matrix), hashSegment(p.array)}
}

func hashSegment(s string) uint64 {
	if s == "" {
		return 0
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}

// Container returns the data container segment.
func (p Path) Container() string { return p.container }

// Matrix returns the attribute matrix segment.
func (p Path) Matrix() string { return p.matrix }

// Array returns the data array segment.
func (p Path) Array() string { return p.array }

// Specificity returns the deepest non-empty segment level.
func (p Path) Specificity() Specificity { return p.specificity }

// Segments returns the three segments in hierarchy order.
func (p Path) Segments() [3]string {
	return [3]string{p.container, p.matrix, p.array}
}

// IsValid reports whether the path fully addresses a data array.
func (p Path) IsValid() bool {
	return p.specificity == SpecificityArray && p.container != "" && p.matrix != ""
}

// IsEmpty reports whether no segment is set.
func (p Path) IsEmpty() bool {
	return p.specificity == SpecificityNone
}

// IsWellFormed reports whether no segment is set below an empty one,
// e.g. a matrix name without a container name.
func (p Path) IsWellFormed() bool {
	segments := p.Segments()
	for i := int(p.specificity) - 1; i >= 0; i-- {
		if segments[i] == "" {
			return false
		}
	}
	return true
}

// Equal reports whether both paths hold the same three segments.
func (p Path) Equal(other Path) bool {
	if p.hashes != other.hashes {
		return false
	}
	return p.container == other.container && p.matrix == other.matrix && p.array == other.array
}

// Compare orders paths lexicographically over their segments.
func (p Path) Compare(other Path) int {
	if c := cmp.Compare(p.container, other.container); c != 0 {
		return c
	}
	if c := cmp.Compare(p.matrix, other.matrix); c != 0 {
		return c
	}
	return cmp.Compare(p.array, other.array)
}

// Less reports whether p sorts before other.
func (p Path) Less(other Path) bool {
	return p.Compare(other) < 0
}

// HasSameContainer reports whether both container segments match.
func (p Path) HasSameContainer(other Path) bool {
	return p.hashes[0] == other.hashes[0] && p.container == other.container
}

// HasSameMatrix reports whether both attribute matrix segments match.
func (p Path) HasSameMatrix(other Path) bool {
	return p.hashes[1] == other.hashes[1] && p.matrix == other.matrix
}

// HasSameArray reports whether both data array segments match.
func (p Path) HasSameArray(other Path) bool {
	return p.hashes[2] == other.hashes[2] && p.array == other.array
}

// IsSubset reports whether every segment held by p, down to its own
// specificity, is held unchanged by other. The empty path is a subset
// of every path.
func (p Path) IsSubset(other Path) bool {
	switch p.specificity {
	case SpecificityArray:
		return p.HasSameContainer(other) && p.HasSameMatrix(other) && p.HasSameArray(other)
	case SpecificityMatrix:
		return p.HasSameContainer(other) && p.HasSameMatrix(other)
	case SpecificityContainer:
		return p.HasSameContainer(other)
	default:
		return true
	}
}

// PossibleRename reports whether updated could be p renamed in place:
// both share a specificity and differ in exactly one segment.
func (p Path) PossibleRename(updated Path) bool {
	if p.specificity != updated.specificity {
		return false
	}
	differences := 0
	if !p.HasSameContainer(updated) {
		differences++
	}
	if !p.HasSameMatrix(updated) {
		differences++
	}
	if !p.HasSameArray(updated) {
		differences++
	}
	return differences == 1
}

// ApplyRename rewrites p when it lies at or below r.Old. The segments
// from the container down to r.Old's specificity are replaced with the
// matching segments of r.New; deeper segments are kept. It returns false
// and leaves p untouched when the rename does not apply.
func (p *Path) ApplyRename(r Rename) bool {
	depth := r.Old.specificity
	if depth == SpecificityNone || depth != r.New.specificity {
		return false
	}
	if !r.Old.IsSubset(*p) {
		return false
	}

	segments := p.Segments()
	replacement := r.New.Segments()
	for i := 0; i < int(depth); i++ {
		segments[i] = replacement[i]
	}
	p.Update(segments[0], segments[1], segments[2])
	return true
}

// String joins the set segments with PathSeparator.
func (p Path) String() string {
	segments := p.Segments()
	return strings.Join(segments[:p.specificity], PathSeparator)
}

type pathJSON struct {
	Container string `json:"Data Container Name"`
	Matrix    string `json:"Attribute Matrix Name"`
	Array     string `json:"Data Array Name"`
}

// MarshalJSON encodes the path as an object of its three segments.
func (p Path) MarshalJSON() ([]byte, error) {
	return json.Marshal(pathJSON{Container: p.container, Matrix: p.matrix, Array: p.array})
}

// UnmarshalJSON decodes the object form written by MarshalJSON.
func (p *Path) UnmarshalJSON(data []byte) error {
	var v pathJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	p.Update(v.Container, v.Matrix, v.Array)
	return nil
}
