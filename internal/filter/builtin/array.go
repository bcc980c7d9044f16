package builtin

import (
	"context"
	"fmt"
	"math"

	"github.com/nao1215/filterpipe/internal/datastore"
	"github.com/nao1215/filterpipe/internal/filter"
	"github.com/nao1215/filterpipe/internal/model"
	"github.com/nao1215/filterpipe/internal/parameter"
)

// Registered names of the array filters.
const (
	ScaleArrayName      = "ScaleArray"
	FillArrayName       = "FillArray"
	ThresholdArrayName  = "ThresholdArray"
	ArrayStatisticsName = "ArrayStatistics"
)

func selectedArrayParam(label string, category parameter.Category, set func(model.Path), get func() model.Path) *parameter.Path {
	return parameter.NewPath(
		parameter.Info{Label: label, PropertyName: "SelectedArrayPath", Category: category},
		model.Path{}, set, get,
	)
}

// transform applies fn to every value of a, checking for cancellation and
// reporting progress every progressEvery values.
func transform(ctx context.Context, b *filter.Base, verb string, a *datastore.DataArray, fn func(i int, v float64) float64) {
	total := len(a.Values)
	for i, v := range a.Values {
		if i%progressEvery == 0 {
			if b.Cancelled(ctx) {
				return
			}
			if i > 0 {
				b.NotifyProgress(i*100/total, fmt.Sprintf("%s %d of %d values", verb, i, total))
			}
		}
		a.Values[i] = fn(i, v)
	}
}

// ScaleArray multiplies every value of a data array in place.
type ScaleArray struct {
	filter.Base
	Selected model.Path
	Factor   float64
}

// NewScaleArray returns the filter with default settings.
func NewScaleArray() *ScaleArray {
	f := &ScaleArray{Base: filter.NewBase(ScaleArrayName, "Scale Array"), Factor: 1}
	f.SetParameters(
		selectedArrayParam("Array to Scale", parameter.CategoryRequiredInput,
			func(v model.Path) { f.Selected = v }, func() model.Path { return f.Selected }),
		parameter.NewDouble(
			parameter.Info{Label: "Scale Factor", PropertyName: "ScaleFactor", Category: parameter.CategoryParameter},
			1,
			func(v float64) { f.Factor = v },
			func() float64 { return f.Factor },
		),
	)
	return f
}

// DataCheck implements filter.Filter.
func (f *ScaleArray) DataCheck(store datastore.Store) {
	if requireArray(&f.Base, store, "Array to Scale", f.Selected) == nil {
		return
	}
	if math.IsNaN(f.Factor) || math.IsInf(f.Factor, 0) {
		f.SetErrorConditionf(errCodeInvalidValue, "scale factor must be finite, got %v", f.Factor)
		return
	}
	if f.Factor == 1 {
		f.SetWarningCondition(warnCodeNothingToDo, "a scale factor of 1 leaves the array unchanged")
	}
}

// Execute implements filter.Filter.
func (f *ScaleArray) Execute(ctx context.Context, store datastore.Store) {
	a := allocatedArray(&f.Base, store, f.Selected)
	if a == nil {
		return
	}
	transform(ctx, &f.Base, "scaled", a, func(_ int, v float64) float64 { return v * f.Factor })
}

// FillArray overwrites every value of a data array with a constant,
// allocating the array if it is a placeholder.
type FillArray struct {
	filter.Base
	Selected model.Path
	Value    float64
}

// NewFillArray returns the filter with default settings.
func NewFillArray() *FillArray {
	f := &FillArray{Base: filter.NewBase(FillArrayName, "Fill Array")}
	f.SetParameters(
		selectedArrayParam("Array to Fill", parameter.CategoryRequiredInput,
			func(v model.Path) { f.Selected = v }, func() model.Path { return f.Selected }),
		parameter.NewDouble(
			parameter.Info{Label: "Fill Value", PropertyName: "FillValue", Category: parameter.CategoryParameter},
			0,
			func(v float64) { f.Value = v },
			func() float64 { return f.Value },
		),
	)
	return f
}

// DataCheck implements filter.Filter.
func (f *FillArray) DataCheck(store datastore.Store) {
	requireArray(&f.Base, store, "Array to Fill", f.Selected)
}

// Execute implements filter.Filter.
func (f *FillArray) Execute(ctx context.Context, store datastore.Store) {
	a, err := store.Array(f.Selected)
	if err != nil {
		f.SetErrorConditionf(errCodeMissingInput, "%v", err)
		return
	}
	a.Allocate()
	transform(ctx, &f.Base, "filled", a, func(int, float64) float64 { return f.Value })
}

// Comparison operators offered by ThresholdArray, in Choice order.
var thresholdOperators = []string{"<", "<=", ">", ">=", "==", "!="}

func compare(op int, v, cutoff float64) bool {
	switch op {
	case 0:
		return v < cutoff
	case 1:
		return v <= cutoff
	case 2:
		return v > cutoff
	case 3:
		return v >= cutoff
	case 4:
		return v == cutoff
	default:
		return v != cutoff
	}
}

// ThresholdArray writes a single-component mask array next to its input:
// 1 where the first component satisfies the comparison, 0 elsewhere.
type ThresholdArray struct {
	filter.Base
	Selected model.Path
	Mask     model.Path
	Operator int
	Cutoff   float64
}

// NewThresholdArray returns the filter with default settings.
func NewThresholdArray() *ThresholdArray {
	f := &ThresholdArray{Base: filter.NewBase(ThresholdArrayName, "Threshold Array")}
	f.SetParameters(
		selectedArrayParam("Array to Threshold", parameter.CategoryRequiredInput,
			func(v model.Path) { f.Selected = v }, func() model.Path { return f.Selected }),
		parameter.NewChoice(
			parameter.Info{Label: "Comparison Operator", PropertyName: "ComparisonOperator", Category: parameter.CategoryParameter},
			thresholdOperators,
			0,
			func(v int) { f.Operator = v },
			func() int { return f.Operator },
		),
		parameter.NewDouble(
			parameter.Info{Label: "Comparison Value", PropertyName: "ComparisonValue", Category: parameter.CategoryParameter},
			0,
			func(v float64) { f.Cutoff = v },
			func() float64 { return f.Cutoff },
		),
		parameter.NewPath(
			parameter.Info{Label: "Mask Array", PropertyName: "MaskArrayPath", Category: parameter.CategoryCreatedOutput},
			model.Path{},
			func(v model.Path) { f.Mask = v },
			func() model.Path { return f.Mask },
		),
	)
	return f
}

// DataCheck implements filter.Filter.
func (f *ThresholdArray) DataCheck(store datastore.Store) {
	in := requireArray(&f.Base, store, "Array to Threshold", f.Selected)
	if in == nil {
		return
	}
	if !requirePath(&f.Base, "Mask Array", f.Mask, model.SpecificityArray) {
		return
	}
	if !f.Mask.HasSameContainer(f.Selected) || !f.Mask.HasSameMatrix(f.Selected) {
		f.SetErrorConditionf(errCodeInvalidValue, "mask %q must be in the same attribute matrix as %q", f.Mask, f.Selected)
		return
	}
	if _, err := store.CreateArray(f.Mask, 1); err != nil {
		f.SetErrorConditionf(errCodeCreateFailed, "cannot create mask array: %v", err)
	}
}

// Execute implements filter.Filter.
func (f *ThresholdArray) Execute(ctx context.Context, store datastore.Store) {
	in := allocatedArray(&f.Base, store, f.Selected)
	if in == nil {
		return
	}
	mask, err := store.Array(f.Mask)
	if err != nil {
		f.SetErrorConditionf(errCodeMissingInput, "%v", err)
		return
	}
	mask.Allocate()

	hits := 0
	transform(ctx, &f.Base, "compared", mask, func(i int, _ float64) float64 {
		if compare(f.Operator, in.Values[i*in.Components], f.Cutoff) {
			hits++
			return 1
		}
		return 0
	})
	if !f.Cancelled(ctx) {
		f.NotifyStatus(fmt.Sprintf("%d of %d tuples satisfy %s %s %g",
			hits, mask.Tuples, f.Selected.Array(), thresholdOperators[f.Operator], f.Cutoff))
	}
}

// ArrayStatistics reports the minimum, maximum and mean of a data array
// as standard output.
type ArrayStatistics struct {
	filter.Base
	Selected model.Path
}

// NewArrayStatistics returns the filter with default settings.
func NewArrayStatistics() *ArrayStatistics {
	f := &ArrayStatistics{Base: filter.NewBase(ArrayStatisticsName, "Array Statistics")}
	f.SetParameters(
		selectedArrayParam("Array", parameter.CategoryRequiredInput,
			func(v model.Path) { f.Selected = v }, func() model.Path { return f.Selected }),
	)
	return f
}

// DataCheck implements filter.Filter.
func (f *ArrayStatistics) DataCheck(store datastore.Store) {
	requireArray(&f.Base, store, "Array", f.Selected)
}

// Execute implements filter.Filter.
func (f *ArrayStatistics) Execute(_ context.Context, store datastore.Store) {
	a := allocatedArray(&f.Base, store, f.Selected)
	if a == nil {
		return
	}
	if len(a.Values) == 0 {
		f.SetWarningConditionf(warnCodeEmptySelection, "data array %q is empty", f.Selected)
		return
	}

	lo, hi, sum := math.Inf(1), math.Inf(-1), 0.0
	for _, v := range a.Values {
		lo = min(lo, v)
		hi = max(hi, v)
		sum += v
	}
	f.NotifyStandardOutput(fmt.Sprintf("%s: min=%g max=%g mean=%g count=%d",
		f.Selected, lo, hi, sum/float64(len(a.Values)), len(a.Values)))
}
