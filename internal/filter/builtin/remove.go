package builtin

import (
	"context"

	"github.com/nao1215/filterpipe/internal/datastore"
	"github.com/nao1215/filterpipe/internal/filter"
	"github.com/nao1215/filterpipe/internal/model"
	"github.com/nao1215/filterpipe/internal/parameter"
)

// RemoveArraysName is the registered name of RemoveArrays.
const RemoveArraysName = "RemoveArrays"

// RemoveArrays deletes a selection of data arrays.
type RemoveArrays struct {
	filter.Base
	Selected []model.Path
}

// NewRemoveArrays returns the filter with default settings.
func NewRemoveArrays() *RemoveArrays {
	f := &RemoveArrays{Base: filter.NewBase(RemoveArraysName, "Remove Arrays")}
	f.SetParameters(
		parameter.NewPathList(
			parameter.Info{Label: "Arrays to Remove", PropertyName: "DataArraysToRemove", Category: parameter.CategoryRequiredInput},
			nil,
			func(v []model.Path) { f.Selected = v },
			func() []model.Path { return f.Selected },
		),
	)
	return f
}

// DataCheck implements filter.Filter.
func (f *RemoveArrays) DataCheck(store datastore.Store) {
	if len(f.Selected) == 0 {
		f.SetWarningCondition(warnCodeEmptySelection, "no arrays selected for removal")
		return
	}
	for _, p := range f.Selected {
		if requireArray(&f.Base, store, "Array to Remove", p) == nil {
			return
		}
	}
	for _, p := range f.Selected {
		if err := store.Remove(p); err != nil {
			f.SetErrorConditionf(errCodeRemoveFailed, "cannot remove %q: %v", p, err)
			return
		}
	}
}

// Execute implements filter.Filter. Removal happens in the data check.
func (f *RemoveArrays) Execute(_ context.Context, _ datastore.Store) {}
