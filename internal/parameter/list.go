package parameter

import "github.com/nao1215/filterpipe/internal/model"

// List is the ordered parameter set of a filter.
type List []Parameter

// Lookup returns the parameter with the given property name.
func (l List) Lookup(propertyName string) (Parameter, bool) {
	for _, p := range l {
		if p.PropertyName() == propertyName {
			return p, true
		}
	}
	return nil, false
}

// PropertyNames returns the property names in order.
func (l List) PropertyNames() []string {
	names := make([]string, len(l))
	for i, p := range l {
		names[i] = p.PropertyName()
	}
	return names
}

// RenameAware returns the parameters that react to renames.
func (l List) RenameAware() []RenameAware {
	out := make([]RenameAware, 0)
	for _, p := range l {
		if ra, ok := p.(RenameAware); ok {
			out = append(out, ra)
		}
	}
	return out
}

// CreatedPaths returns the non-empty paths held by created-output parameters.
func CreatedPaths(l List) []model.Path {
	return pathsIn(l, CategoryCreatedOutput)
}

// RequiredPaths returns the non-empty paths held by required-input parameters.
func RequiredPaths(l List) []model.Path {
	return pathsIn(l, CategoryRequiredInput)
}

func pathsIn(l List, c Category) []model.Path {
	out := make([]model.Path, 0)
	for _, p := range l {
		if p.Category() != c {
			continue
		}
		holder, ok := p.(PathHolder)
		if !ok {
			continue
		}
		for _, path := range holder.Paths() {
			if !path.IsEmpty() {
				out = append(out, path)
			}
		}
	}
	return out
}
