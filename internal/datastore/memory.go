package datastore

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/nao1215/filterpipe/internal/model"
)

// DataContainer is the top level of the hierarchy.
type DataContainer struct {
	Name     string
	matrices map[string]*AttributeMatrix
}

// MatrixNames lists the attribute matrices in sorted order.
func (c *DataContainer) MatrixNames() []string {
	return slices.Sorted(maps.Keys(c.matrices))
}

// AttributeMatrix groups arrays that share a tuple count.
type AttributeMatrix struct {
	Name   string
	Tuples int
	arrays map[string]*DataArray
}

// ArrayNames lists the data arrays in sorted order.
func (m *AttributeMatrix) ArrayNames() []string {
	return slices.Sorted(maps.Keys(m.arrays))
}

// DataArray is a tuples x components block of values.
// Values is nil until the array is allocated.
type DataArray struct {
	Name       string
	Tuples     int
	Components int
	Values     []float64
}

// Size returns the number of values the array holds once allocated.
func (a *DataArray) Size() int {
	return a.Tuples * a.Components
}

// IsAllocated reports whether the array has backing values.
func (a *DataArray) IsAllocated() bool {
	return a.Values != nil
}

// Allocate backs a placeholder array with zeroed values. Allocated
// arrays are left as they are.
func (a *DataArray) Allocate() {
	if a.Values == nil {
		a.Values = make([]float64, a.Size())
	}
}

// Memory is an in-memory Store.
type Memory struct {
	mu         sync.RWMutex
	containers map[string]*DataContainer
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{containers: make(map[string]*DataContainer)}
}

// Container implements Store.
func (s *Memory) Container(name string) (*DataContainer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.container(name)
}

func (s *Memory) container(name string) (*DataContainer, error) {
	c, ok := s.containers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return c, nil
}

// Matrix implements Store.
func (s *Memory) Matrix(path model.Path) (*AttributeMatrix, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.matrix(path)
}

func (s *Memory) matrix(path model.Path) (*AttributeMatrix, error) {
	c, err := s.container(path.Container())
	if err != nil {
		return nil, err
	}
	m, ok := c.matrices[path.Matrix()]
	if !ok {
		return nil, fmt.Errorf("%w: %s|%s", ErrNotFound, path.Container(), path.Matrix())
	}
	return m, nil
}

// Array implements Store.
func (s *Memory) Array(path model.Path) (*DataArray, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.array(path)
}

func (s *Memory) array(path model.Path) (*DataArray, error) {
	m, err := s.matrix(path)
	if err != nil {
		return nil, err
	}
	a, ok := m.arrays[path.Array()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return a, nil
}

// CreateContainer implements Store.
func (s *Memory) CreateContainer(path model.Path) (*DataContainer, error) {
	if path.Specificity() != model.SpecificityContainer {
		return nil, fmt.Errorf("%w: %q does not address a data container", ErrInvalidPath, path)
	}
	if err := validateName(path.Container()); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.containers[path.Container()]; ok {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, path)
	}
	c := &DataContainer{Name: path.Container(), matrices: make(map[string]*AttributeMatrix)}
	s.containers[c.Name] = c
	return c, nil
}

// CreateMatrix implements Store.
func (s *Memory) CreateMatrix(path model.Path, tuples int) (*AttributeMatrix, error) {
	if path.Specificity() != model.SpecificityMatrix || !path.IsWellFormed() {
		return nil, fmt.Errorf("%w: %q does not address an attribute matrix", ErrInvalidPath, path)
	}
	if err := validateName(path.Matrix()); err != nil {
		return nil, err
	}
	if tuples < 0 {
		return nil, fmt.Errorf("%w: negative tuple count %d", ErrInvalidPath, tuples)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.container(path.Container())
	if err != nil {
		return nil, err
	}
	if _, ok := c.matrices[path.Matrix()]; ok {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, path)
	}
	m := &AttributeMatrix{Name: path.Matrix(), Tuples: tuples, arrays: make(map[string]*DataArray)}
	c.matrices[m.Name] = m
	return m, nil
}

// CreateArray implements Store.
func (s *Memory) CreateArray(path model.Path, components int) (*DataArray, error) {
	if !path.IsValid() {
		return nil, fmt.Errorf("%w: %q does not address a data array", ErrInvalidPath, path)
	}
	if err := validateName(path.Array()); err != nil {
		return nil, err
	}
	if components < 1 {
		return nil, fmt.Errorf("%w: component count must be positive, got %d", ErrInvalidPath, components)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.matrix(path)
	if err != nil {
		return nil, err
	}
	if _, ok := m.arrays[path.Array()]; ok {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, path)
	}
	a := &DataArray{Name: path.Array(), Tuples: m.Tuples, Components: components}
	m.arrays[a.Name] = a
	return a, nil
}

// Exists implements Store.
func (s *Memory) Exists(path model.Path) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var err error
	switch path.Specificity() {
	case model.SpecificityContainer:
		_, err = s.container(path.Container())
	case model.SpecificityMatrix:
		_, err = s.matrix(path)
	case model.SpecificityArray:
		_, err = s.array(path)
	default:
		return false
	}
	return err == nil
}

// Rename implements Store.
func (s *Memory) Rename(r model.Rename) error {
	if r.Old.Specificity() != r.New.Specificity() || r.Old.IsEmpty() {
		return fmt.Errorf("%w: %s", model.ErrRenameSpecificity, r)
	}
	if r.IsNoop() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch r.Old.Specificity() {
	case model.SpecificityContainer:
		if err := validateName(r.New.Container()); err != nil {
			return err
		}
		c, err := s.container(r.Old.Container())
		if err != nil {
			return err
		}
		if _, ok := s.containers[r.New.Container()]; ok {
			return fmt.Errorf("%w: %s", ErrRenameConflict, r.New)
		}
		delete(s.containers, c.Name)
		c.Name = r.New.Container()
		s.containers[c.Name] = c

	case model.SpecificityMatrix:
		if !r.Old.HasSameContainer(r.New) {
			return fmt.Errorf("%w: %s moves between containers", ErrInvalidPath, r)
		}
		if err := validateName(r.New.Matrix()); err != nil {
			return err
		}
		m, err := s.matrix(r.Old)
		if err != nil {
			return err
		}
		c := s.containers[r.Old.Container()]
		if _, ok := c.matrices[r.New.Matrix()]; ok {
			return fmt.Errorf("%w: %s", ErrRenameConflict, r.New)
		}
		delete(c.matrices, m.Name)
		m.Name = r.New.Matrix()
		c.matrices[m.Name] = m

	case model.SpecificityArray:
		if !r.Old.HasSameContainer(r.New) || !r.Old.HasSameMatrix(r.New) {
			return fmt.Errorf("%w: %s moves between matrices", ErrInvalidPath, r)
		}
		if err := validateName(r.New.Array()); err != nil {
			return err
		}
		a, err := s.array(r.Old)
		if err != nil {
			return err
		}
		m := s.containers[r.Old.Container()].matrices[r.Old.Matrix()]
		if _, ok := m.arrays[r.New.Array()]; ok {
			return fmt.Errorf("%w: %s", ErrRenameConflict, r.New)
		}
		delete(m.arrays, a.Name)
		a.Name = r.New.Array()
		m.arrays[a.Name] = a
	}
	return nil
}

// Remove implements Store.
func (s *Memory) Remove(path model.Path) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch path.Specificity() {
	case model.SpecificityContainer:
		if _, err := s.container(path.Container()); err != nil {
			return err
		}
		delete(s.containers, path.Container())
	case model.SpecificityMatrix:
		if _, err := s.matrix(path); err != nil {
			return err
		}
		delete(s.containers[path.Container()].matrices, path.Matrix())
	case model.SpecificityArray:
		if _, err := s.array(path); err != nil {
			return err
		}
		delete(s.containers[path.Container()].matrices[path.Matrix()].arrays, path.Array())
	default:
		return fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	return nil
}

// Paths implements Store.
func (s *Memory) Paths() []model.Path {
	s.mu.RLock()
	defer s.mu.RUnlock()

	paths := make([]model.Path, 0)
	for _, cName := range slices.Sorted(maps.Keys(s.containers)) {
		c := s.containers[cName]
		paths = append(paths, model.NewPath(cName, "", ""))
		for _, mName := range c.MatrixNames() {
			m := c.matrices[mName]
			paths = append(paths, model.NewPath(cName, mName, ""))
			for _, aName := range m.ArrayNames() {
				paths = append(paths, model.NewPath(cName, mName, aName))
			}
		}
	}
	return paths
}

// Clone implements Store.
func (s *Memory) Clone() Store {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := NewMemory()
	for name, c := range s.containers {
		cc := &DataContainer{Name: c.Name, matrices: make(map[string]*AttributeMatrix, len(c.matrices))}
		for mName, m := range c.matrices {
			mc := &AttributeMatrix{Name: m.Name, Tuples: m.Tuples, arrays: make(map[string]*DataArray, len(m.arrays))}
			for aName, a := range m.arrays {
				ac := *a
				if a.Values != nil {
					ac.Values = slices.Clone(a.Values)
				}
				mc.arrays[aName] = &ac
			}
			cc.matrices[mName] = mc
		}
		out.containers[name] = cc
	}
	return out
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name is empty", ErrInvalidName)
	}
	if strings.Contains(name, "/") {
		return fmt.Errorf("%w: %q contains '/'", ErrInvalidName, name)
	}
	return nil
}
