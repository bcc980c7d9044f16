package builtin

import (
	"context"

	"github.com/nao1215/filterpipe/internal/datastore"
	"github.com/nao1215/filterpipe/internal/filter"
	"github.com/nao1215/filterpipe/internal/model"
	"github.com/nao1215/filterpipe/internal/parameter"
)

// Registered names of the rename filters.
const (
	RenameDataContainerName   = "RenameDataContainer"
	RenameAttributeMatrixName = "RenameAttributeMatrix"
	RenameAttributeArrayName  = "RenameAttributeArray"
)

// renamer is the shared implementation of the three rename filters.
// The selected node keeps its place in the hierarchy and takes NewName
// as its last segment. The new path is declared as created so that a
// later edit of NewName is followed by the filters that reference it.
type renamer struct {
	filter.Base
	Selected model.Path
	NewName  string
	depth    model.Specificity
	label    string
}

func newRenamer(name, humanLabel, label string, depth model.Specificity, selectedKey, newNameKey string) *renamer {
	f := &renamer{Base: filter.NewBase(name, humanLabel), depth: depth, label: label}
	f.SetParameters(
		parameter.NewPath(
			parameter.Info{Label: label + " to Rename", PropertyName: selectedKey, Category: parameter.CategoryRequiredInput},
			model.Path{},
			func(v model.Path) { f.Selected = v },
			func() model.Path { return f.Selected },
		),
		parameter.NewString(
			parameter.Info{Label: "New " + label + " Name", PropertyName: newNameKey, Category: parameter.CategoryParameter},
			"",
			func(v string) { f.NewName = v },
			func() string { return f.NewName },
		),
	)
	return f
}

func (f *renamer) target() model.Path {
	p := f.Selected
	switch f.depth {
	case model.SpecificityContainer:
		p.SetContainer(f.NewName)
	case model.SpecificityMatrix:
		p.SetMatrix(f.NewName)
	case model.SpecificityArray:
		p.SetArray(f.NewName)
	}
	return p
}

// DataCheck implements filter.Filter.
func (f *renamer) DataCheck(store datastore.Store) {
	if !requirePath(&f.Base, f.label+" to Rename", f.Selected, f.depth) {
		return
	}
	if f.NewName == "" {
		f.SetErrorConditionf(errCodeInvalidValue, "new %s name must be set", f.label)
		return
	}
	if !store.Exists(f.Selected) {
		f.SetErrorConditionf(errCodeMissingInput, "%s %q does not exist", f.label, f.Selected)
		return
	}

	target := f.target()
	f.AddCreatedPath(target)
	if target.Equal(f.Selected) {
		f.SetWarningConditionf(warnCodeNothingToDo, "%s %q already has that name", f.label, f.Selected)
		return
	}
	if err := store.Rename(model.Rename{Old: f.Selected, New: target}); err != nil {
		f.SetErrorConditionf(errCodeRenameFailed, "cannot rename %q: %v", f.Selected, err)
	}
}

// Execute implements filter.Filter. The rename happens in the data check.
func (f *renamer) Execute(_ context.Context, _ datastore.Store) {}

// RenameDataContainer renames a data container.
type RenameDataContainer struct{ *renamer }

// NewRenameDataContainer returns the filter with default settings.
func NewRenameDataContainer() *RenameDataContainer {
	return &RenameDataContainer{newRenamer(RenameDataContainerName, "Rename Data Container", "Data Container",
		model.SpecificityContainer, "SelectedDataContainerName", "NewDataContainerName")}
}

// RenameAttributeMatrix renames an attribute matrix.
type RenameAttributeMatrix struct{ *renamer }

// NewRenameAttributeMatrix returns the filter with default settings.
func NewRenameAttributeMatrix() *RenameAttributeMatrix {
	return &RenameAttributeMatrix{newRenamer(RenameAttributeMatrixName, "Rename Attribute Matrix", "Attribute Matrix",
		model.SpecificityMatrix, "SelectedAttributeMatrixPath", "NewAttributeMatrix")}
}

// RenameAttributeArray renames a data array.
type RenameAttributeArray struct{ *renamer }

// NewRenameAttributeArray returns the filter with default settings.
func NewRenameAttributeArray() *RenameAttributeArray {
	return &RenameAttributeArray{newRenamer(RenameAttributeArrayName, "Rename Attribute Array", "Attribute Array",
		model.SpecificityArray, "SelectedArrayPath", "NewArrayName")}
}
