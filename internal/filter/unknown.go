package filter

import (
	"context"

	"github.com/nao1215/filterpipe/internal/datastore"
	"github.com/nao1215/filterpipe/internal/jsonobj"
)

// Unknown stands in for a filter whose type is not registered. It keeps
// the original name, label and document object so the pipeline can be
// written back unchanged, and it always fails its data check.
type Unknown struct {
	Base
	raw *jsonobj.Object
}

var _ Filter = (*Unknown)(nil)

// NewUnknown returns a placeholder for the filter named name. raw may be nil.
func NewUnknown(name, label string, raw *jsonobj.Object) *Unknown {
	if label == "" {
		label = name
	}
	if raw != nil {
		raw = raw.Clone()
	}
	return &Unknown{Base: NewBase(name, label), raw: raw}
}

// Raw returns a copy of the preserved document object, or nil.
func (u *Unknown) Raw() *jsonobj.Object {
	if u.raw == nil {
		return nil
	}
	return u.raw.Clone()
}

// DataCheck implements Filter.
func (u *Unknown) DataCheck(_ datastore.Store) {
	name := u.Name()
	if name == "" {
		name = "<unnamed>"
	}
	u.SetErrorConditionf(ErrCodePlaceholder,
		"this filter is a placeholder for %q, which is not available; remove or replace it", name)
}

// Execute implements Filter. A placeholder never passes preflight, so
// this is never reached through Execute in this package.
func (u *Unknown) Execute(_ context.Context, _ datastore.Store) {}
