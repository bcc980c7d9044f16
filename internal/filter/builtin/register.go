// Package builtin contains the filters shipped with filterpipe.
//
// Every filter keeps its settings in its own fields and exposes them
// through parameters bound to those fields. Data checks create the
// filter's outputs as placeholders so that downstream filters can be
// validated; Execute fills in the values.
package builtin

import (
	"github.com/nao1215/filterpipe/internal/datastore"
	"github.com/nao1215/filterpipe/internal/filter"
	"github.com/nao1215/filterpipe/internal/model"
)

// Register adds every built-in filter to r.
func Register(r *filter.Registry) error {
	factories := []struct {
		name    string
		factory filter.Factory
	}{
		{CreateDataContainerName, func() filter.Filter { return NewCreateDataContainer() }},
		{CreateAttributeMatrixName, func() filter.Filter { return NewCreateAttributeMatrix() }},
		{CreateDataArrayName, func() filter.Filter { return NewCreateDataArray() }},
		{RenameDataContainerName, func() filter.Filter { return NewRenameDataContainer() }},
		{RenameAttributeMatrixName, func() filter.Filter { return NewRenameAttributeMatrix() }},
		{RenameAttributeArrayName, func() filter.Filter { return NewRenameAttributeArray() }},
		{ScaleArrayName, func() filter.Filter { return NewScaleArray() }},
		{FillArrayName, func() filter.Filter { return NewFillArray() }},
		{ThresholdArrayName, func() filter.Filter { return NewThresholdArray() }},
		{ArrayStatisticsName, func() filter.Filter { return NewArrayStatistics() }},
		{RemoveArraysName, func() filter.Filter { return NewRemoveArrays() }},
	}
	for _, f := range factories {
		if err := r.Register(f.name, f.factory); err != nil {
			return err
		}
	}
	return nil
}

// NewRegistry returns a registry holding every built-in filter.
func NewRegistry() *filter.Registry {
	r := filter.NewRegistry()
	if err := Register(r); err != nil {
		panic(err)
	}
	return r
}

// Error codes used by the built-in filters.
const (
	errCodeEmptyPath       = -11000
	errCodeWrongDepth      = -11001
	errCodeMissingInput    = -11002
	errCodeCreateFailed    = -11003
	errCodeRenameFailed    = -11004
	errCodeInvalidValue    = -11005
	errCodeNotAllocated    = -11006
	errCodeRemoveFailed    = -11007
	warnCodeNothingToDo    = 11100
	warnCodeEmptySelection = 11101
)

// requirePath checks that p is set at the expected depth.
func requirePath(b *filter.Base, label string, p model.Path, want model.Specificity) bool {
	if p.IsEmpty() {
		b.SetErrorConditionf(errCodeEmptyPath, "%s must be set", label)
		return false
	}
	if p.Specificity() != want || !p.IsWellFormed() {
		b.SetErrorConditionf(errCodeWrongDepth, "%s %q must address a %s", label, p, want)
		return false
	}
	return true
}

// requireArray looks up the array at p, reporting a missing input.
func requireArray(b *filter.Base, store datastore.Store, label string, p model.Path) *datastore.DataArray {
	if !requirePath(b, label, p, model.SpecificityArray) {
		return nil
	}
	a, err := store.Array(p)
	if err != nil {
		b.SetErrorConditionf(errCodeMissingInput, "%s: %v", label, err)
		return nil
	}
	return a
}

// allocatedArray fetches the array at p for execution.
func allocatedArray(b *filter.Base, store datastore.Store, p model.Path) *datastore.DataArray {
	a, err := store.Array(p)
	if err != nil {
		b.SetErrorConditionf(errCodeMissingInput, "%v", err)
		return nil
	}
	if !a.IsAllocated() {
		b.SetErrorConditionf(errCodeNotAllocated, "data array %q holds no values", p)
		return nil
	}
	return a
}

// progressEvery is the number of values processed between progress
// messages and cancellation checks.
const progressEvery = 4096
