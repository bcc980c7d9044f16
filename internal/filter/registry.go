package filter

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrFilterNotFound is returned when no factory is registered for a name.
	ErrFilterNotFound = errors.New("filter not registered")

	// ErrDuplicateFilter is returned when registering a name twice.
	ErrDuplicateFilter = errors.New("filter already registered")

	// ErrInvalidFactory is returned for empty names or nil factories.
	ErrInvalidFactory = errors.New("invalid filter factory")
)

// Factory creates a fresh filter with default parameter values.
type Factory func() Filter

// Registry maps registered type names to factories. Names are matched
// exactly; lookup is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under name.
func (r *Registry) Register(name string, factory Factory) error {
	name = strings.TrimSpace(name)
	if name == "" || factory == nil {
		return fmt.Errorf("%w: name and factory are required", ErrInvalidFactory)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateFilter, name)
	}
	r.factories[name] = factory
	return nil
}

// MustRegister panics on registration failure.
func (r *Registry) MustRegister(name string, factory Factory) {
	if err := r.Register(name, factory); err != nil {
		panic(err)
	}
}

// Lookup returns the factory registered under name.
func (r *Registry) Lookup(name string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	return factory, ok
}

// New creates a filter by registered name.
func (r *Registry) New(name string) (Filter, error) {
	factory, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrFilterNotFound, name)
	}
	return factory(), nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.Lookup(name)
	return ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
