// Package parameter provides the typed, user-editable settings of a filter.
//
// A parameter never owns its value. It is bound to the owning filter
// through a setter and a getter closure, so reading a pipeline document
// writes straight into the filter's fields and writing one reads them
// back. Either closure may be left unbound: an unbound getter yields the
// default and is omitted on write, an unbound setter ignores reads.
package parameter

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nao1215/filterpipe/internal/jsonobj"
	"github.com/nao1215/filterpipe/internal/model"
)

// ErrTypeMismatch is returned when a document holds a value of the wrong
// JSON type for a parameter.
var ErrTypeMismatch = errors.New("json value has the wrong type")

// Category tells the pipeline how a parameter relates to the data store.
type Category int

const (
	// CategoryParameter is a plain setting.
	CategoryParameter Category = iota
	// CategoryRequiredInput names data the filter reads.
	CategoryRequiredInput
	// CategoryCreatedOutput names data the filter creates.
	CategoryCreatedOutput
	// CategoryUncategorized is anything else.
	CategoryUncategorized
)

// String returns the display name of the category.
func (c Category) String() string {
	switch c {
	case CategoryParameter:
		return "parameter"
	case CategoryRequiredInput:
		return "required input"
	case CategoryCreatedOutput:
		return "created output"
	default:
		return "uncategorized"
	}
}

// Ungrouped is the GroupIndex of a parameter outside any display group.
const Ungrouped = -1

// Info is the identity of a parameter.
type Info struct {
	// Label is the human-readable name.
	Label string
	// PropertyName is the key used in pipeline documents.
	PropertyName string
	// Category relates the parameter to the data store.
	Category Category
	// GroupIndex places the parameter in a display group, or Ungrouped.
	GroupIndex int
}

// Parameter is the common interface of every typed parameter.
type Parameter interface {
	Label() string
	PropertyName() string
	Category() Category
	GroupIndex() int

	// TypeName names the value type, e.g. "Int32" or "DataArrayPath".
	TypeName() string

	// ReadJSON sets the value from the field named PropertyName, when
	// present. Absent fields leave the value alone.
	ReadJSON(obj *jsonobj.Object) error

	// WriteJSON stores the current value under PropertyName, unless the
	// getter is unbound.
	WriteJSON(obj *jsonobj.Object) error
}

// RenameAware is implemented by parameters that hold paths.
type RenameAware interface {
	Parameter

	// OnPathRenamed applies r to the held paths. It reports whether the
	// stored value changed.
	OnPathRenamed(r model.Rename) bool
}

// PathHolder is implemented by parameters that expose their paths.
type PathHolder interface {
	Parameter
	Paths() []model.Path
}

// DecodeError reports a parameter whose document value could not be used.
type DecodeError struct {
	Property string
	Type     string
	Err      error
}

// Error implements error.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("parameter %q (%s): %v", e.Property, e.Type, e.Err)
}

// Unwrap returns the underlying error.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

type identity struct {
	info Info
}

func (i identity) Label() string        { return i.info.Label }
func (i identity) PropertyName() string { return i.info.PropertyName }
func (i identity) Category() Category   { return i.info.Category }
func (i identity) GroupIndex() int      { return i.info.GroupIndex }

func (i identity) decodeError(typeName string, err error) error {
	if !errors.Is(err, ErrTypeMismatch) {
		err = fmt.Errorf("%w: %w", ErrTypeMismatch, err)
	}
	return &DecodeError{Property: i.info.PropertyName, Type: typeName, Err: err}
}

// binding connects a parameter to the field of its owning filter.
type binding[T any] struct {
	def T
	set func(T)
	get func() T
}

// Get returns the bound value, or the default when the getter is unbound.
func (b *binding[T]) Get() T {
	if b.get == nil {
		return b.def
	}
	return b.get()
}

// Set stores v through the setter. It does nothing when the setter is unbound.
func (b *binding[T]) Set(v T) {
	if b.set != nil {
		b.set(v)
	}
}

// Default returns the default value.
func (b *binding[T]) Default() T {
	return b.def
}

// Readable reports whether the getter is bound.
func (b *binding[T]) Readable() bool {
	return b.get != nil
}

// Writable reports whether the setter is bound.
func (b *binding[T]) Writable() bool {
	return b.set != nil
}

func (b *binding[T]) write(obj *jsonobj.Object, key string) error {
	if b.get == nil {
		return nil
	}
	return obj.Set(key, b.get())
}

// decodeValue unmarshals the field key into a T. Found is false when the
// field is absent or null.
func decodeValue[T any](obj *jsonobj.Object, key string) (value T, found bool, err error) {
	raw, ok := obj.Get(key)
	if !ok || string(bytes.TrimSpace(raw)) == "null" {
		return value, false, nil
	}
	if err := json.Unmarshal(raw, &value); err != nil {
		return value, true, err
	}
	return value, true, nil
}
