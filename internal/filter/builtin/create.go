package builtin

import (
	"context"

	"github.com/nao1215/filterpipe/internal/datastore"
	"github.com/nao1215/filterpipe/internal/filter"
	"github.com/nao1215/filterpipe/internal/model"
	"github.com/nao1215/filterpipe/internal/parameter"
)

// Registered names of the creation filters.
const (
	CreateDataContainerName   = "CreateDataContainer"
	CreateAttributeMatrixName = "CreateAttributeMatrix"
	CreateDataArrayName       = "CreateDataArray"
)

// CreateDataContainer creates an empty data container.
type CreateDataContainer struct {
	filter.Base
	Container model.Path
}

// NewCreateDataContainer returns the filter with default settings.
func NewCreateDataContainer() *CreateDataContainer {
	f := &CreateDataContainer{
		Base:      filter.NewBase(CreateDataContainerName, "Create Data Container"),
		Container: model.NewPath("DataContainer", "", ""),
	}
	f.SetParameters(
		parameter.NewPath(
			parameter.Info{Label: "Data Container", PropertyName: "CreatedDataContainer", Category: parameter.CategoryCreatedOutput},
			model.NewPath("DataContainer", "", ""),
			func(v model.Path) { f.Container = v },
			func() model.Path { return f.Container },
		),
	)
	return f
}

// DataCheck implements filter.Filter.
func (f *CreateDataContainer) DataCheck(store datastore.Store) {
	if !requirePath(&f.Base, "Data Container", f.Container, model.SpecificityContainer) {
		return
	}
	if _, err := store.CreateContainer(f.Container); err != nil {
		f.SetErrorConditionf(errCodeCreateFailed, "cannot create data container: %v", err)
	}
}

// Execute implements filter.Filter. The container is created by the data check.
func (f *CreateDataContainer) Execute(_ context.Context, _ datastore.Store) {}

// CreateAttributeMatrix creates an attribute matrix with a fixed tuple count.
type CreateAttributeMatrix struct {
	filter.Base
	Matrix model.Path
	Tuples int32
}

// NewCreateAttributeMatrix returns the filter with default settings.
func NewCreateAttributeMatrix() *CreateAttributeMatrix {
	f := &CreateAttributeMatrix{
		Base:   filter.NewBase(CreateAttributeMatrixName, "Create Attribute Matrix"),
		Matrix: model.NewPath("DataContainer", "AttributeMatrix", ""),
		Tuples: 1,
	}
	f.SetParameters(
		parameter.NewPath(
			parameter.Info{Label: "Attribute Matrix", PropertyName: "CreatedAttributeMatrix", Category: parameter.CategoryCreatedOutput},
			model.NewPath("DataContainer", "AttributeMatrix", ""),
			func(v model.Path) { f.Matrix = v },
			func() model.Path { return f.Matrix },
		),
		parameter.NewInt32(
			parameter.Info{Label: "Tuple Count", PropertyName: "TupleCount", Category: parameter.CategoryParameter},
			1,
			func(v int32) { f.Tuples = v },
			func() int32 { return f.Tuples },
		),
	)
	return f
}

// DataCheck implements filter.Filter.
func (f *CreateAttributeMatrix) DataCheck(store datastore.Store) {
	if f.Tuples < 1 {
		f.SetErrorConditionf(errCodeInvalidValue, "tuple count must be positive, got %d", f.Tuples)
		return
	}
	if !requirePath(&f.Base, "Attribute Matrix", f.Matrix, model.SpecificityMatrix) {
		return
	}
	if _, err := store.CreateMatrix(f.Matrix, int(f.Tuples)); err != nil {
		f.SetErrorConditionf(errCodeCreateFailed, "cannot create attribute matrix: %v", err)
	}
}

// Execute implements filter.Filter. The matrix is created by the data check.
func (f *CreateAttributeMatrix) Execute(_ context.Context, _ datastore.Store) {}

// CreateDataArray creates a data array and fills it with a constant.
type CreateDataArray struct {
	filter.Base
	Array      model.Path
	Components int32
	Initial    float64
}

// NewCreateDataArray returns the filter with default settings.
func NewCreateDataArray() *CreateDataArray {
	f := &CreateDataArray{
		Base:       filter.NewBase(CreateDataArrayName, "Create Data Array"),
		Array:      model.NewPath("DataContainer", "AttributeMatrix", "Array"),
		Components: 1,
	}
	f.SetParameters(
		parameter.NewPath(
			parameter.Info{Label: "Created Array", PropertyName: "NewArray", Category: parameter.CategoryCreatedOutput},
			model.NewPath("DataContainer", "AttributeMatrix", "Array"),
			func(v model.Path) { f.Array = v },
			func() model.Path { return f.Array },
		),
		parameter.NewInt32(
			parameter.Info{Label: "Number of Components", PropertyName: "NumberOfComponents", Category: parameter.CategoryParameter},
			1,
			func(v int32) { f.Components = v },
			func() int32 { return f.Components },
		),
		parameter.NewDouble(
			parameter.Info{Label: "Initialization Value", PropertyName: "InitializationValue", Category: parameter.CategoryParameter},
			0,
			func(v float64) { f.Initial = v },
			func() float64 { return f.Initial },
		),
	)
	return f
}

// DataCheck implements filter.Filter.
func (f *CreateDataArray) DataCheck(store datastore.Store) {
	if f.Components < 1 {
		f.SetErrorConditionf(errCodeInvalidValue, "number of components must be positive, got %d", f.Components)
		return
	}
	if !requirePath(&f.Base, "Created Array", f.Array, model.SpecificityArray) {
		return
	}
	if _, err := store.CreateArray(f.Array, int(f.Components)); err != nil {
		f.SetErrorConditionf(errCodeCreateFailed, "cannot create data array: %v", err)
	}
}

// Execute implements filter.Filter.
func (f *CreateDataArray) Execute(ctx context.Context, store datastore.Store) {
	a, err := store.Array(f.Array)
	if err != nil {
		f.SetErrorConditionf(errCodeMissingInput, "%v", err)
		return
	}
	a.Allocate()
	for i := range a.Values {
		if i%progressEvery == 0 && f.Cancelled(ctx) {
			return
		}
		a.Values[i] = f.Initial
	}
}
