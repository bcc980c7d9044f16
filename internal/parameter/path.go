package parameter

import (
	"slices"

	"github.com/nao1215/filterpipe/internal/jsonobj"
	"github.com/nao1215/filterpipe/internal/model"
)

// Path is a parameter holding a single data path.
type Path struct {
	identity
	binding[model.Path]
}

var (
	_ RenameAware = (*Path)(nil)
	_ PathHolder  = (*Path)(nil)
)

// NewPath returns a Path parameter bound through set and get.
func NewPath(info Info, def model.Path, set func(model.Path), get func() model.Path) *Path {
	return &Path{identity: identity{info: info}, binding: binding[model.Path]{def: def, set: set, get: get}}
}

// TypeName implements Parameter.
func (p *Path) TypeName() string { return "DataArrayPath" }

// ReadJSON implements Parameter.
func (p *Path) ReadJSON(obj *jsonobj.Object) error {
	v, found, err := decodeValue[model.Path](obj, p.PropertyName())
	if err != nil {
		return p.decodeError(p.TypeName(), err)
	}
	if found {
		p.Set(v)
	}
	return nil
}

// WriteJSON implements Parameter.
func (p *Path) WriteJSON(obj *jsonobj.Object) error {
	return p.write(obj, p.PropertyName())
}

// Paths implements PathHolder.
func (p *Path) Paths() []model.Path {
	return []model.Path{p.Get()}
}

// OnPathRenamed implements RenameAware.
func (p *Path) OnPathRenamed(r model.Rename) bool {
	if !p.Writable() {
		return false
	}
	v := p.Get()
	if !v.ApplyRename(r) {
		return false
	}
	p.Set(v)
	return true
}

// PathList is a parameter holding an ordered collection of data paths.
type PathList struct {
	identity
	binding[[]model.Path]
}

var (
	_ RenameAware = (*PathList)(nil)
	_ PathHolder  = (*PathList)(nil)
)

// NewPathList returns a PathList parameter bound through set and get.
func NewPathList(info Info, def []model.Path, set func([]model.Path), get func() []model.Path) *PathList {
	return &PathList{identity: identity{info: info}, binding: binding[[]model.Path]{def: def, set: set, get: get}}
}

// TypeName implements Parameter.
func (p *PathList) TypeName() string { return "DataArrayPathList" }

// ReadJSON implements Parameter.
func (p *PathList) ReadJSON(obj *jsonobj.Object) error {
	v, found, err := decodeValue[[]model.Path](obj, p.PropertyName())
	if err != nil {
		return p.decodeError(p.TypeName(), err)
	}
	if found {
		if v == nil {
			v = []model.Path{}
		}
		p.Set(v)
	}
	return nil
}

// WriteJSON implements Parameter.
func (p *PathList) WriteJSON(obj *jsonobj.Object) error {
	if !p.Readable() {
		return nil
	}
	v := p.Get()
	if v == nil {
		v = []model.Path{}
	}
	return obj.Set(p.PropertyName(), v)
}

// Paths implements PathHolder.
func (p *PathList) Paths() []model.Path {
	return slices.Clone(p.Get())
}

// OnPathRenamed implements RenameAware. Every element the rename applies
// to is rewritten; the setter is called once.
func (p *PathList) OnPathRenamed(r model.Rename) bool {
	if !p.Writable() {
		return false
	}
	paths := slices.Clone(p.Get())
	changed := false
	for i := range paths {
		if paths[i].ApplyRename(r) {
			changed = true
		}
	}
	if changed {
		p.Set(paths)
	}
	return changed
}
