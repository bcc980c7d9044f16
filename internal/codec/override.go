package codec

import (
	"fmt"
	"slices"

	"github.com/nao1215/filterpipe/internal/jsonobj"
	"github.com/nao1215/filterpipe/internal/model"
	"github.com/nao1215/filterpipe/internal/pipeline"
)

// Overrides are edits applied to a decoded pipeline before it runs.
type Overrides struct {
	// Disabled lists filter indices to disable.
	Disabled []int

	// Parameters maps a filter index to parameter values keyed by
	// property name. Values use the same JSON shapes as the document.
	Parameters map[int]map[string]any
}

// IsZero reports whether o changes nothing.
func (o Overrides) IsZero() bool {
	return len(o.Disabled) == 0 && len(o.Parameters) == 0
}

// Apply applies o to p. Values that cannot be used are reported as
// warnings; an index outside p is an error.
func (o Overrides) Apply(p *pipeline.Pipeline) ([]model.PipelineMessage, error) {
	for _, i := range o.Disabled {
		f, err := p.FilterAt(i)
		if err != nil {
			return nil, fmt.Errorf("cannot disable filter: %w", err)
		}
		f.Core().SetEnabled(false)
	}

	indices := make([]int, 0, len(o.Parameters))
	for i := range o.Parameters {
		indices = append(indices, i)
	}
	slices.Sort(indices)

	messages := make([]model.PipelineMessage, 0)
	for _, i := range indices {
		f, err := p.FilterAt(i)
		if err != nil {
			return nil, fmt.Errorf("cannot override parameters: %w", err)
		}
		b := f.Core()

		values := o.Parameters[i]
		keys := make([]string, 0, len(values))
		for k := range values {
			keys = append(keys, k)
		}
		slices.Sort(keys)

		for _, key := range keys {
			param, ok := b.Parameters().Lookup(key)
			if !ok {
				messages = append(messages, model.NewWarningMessage(b.Source(), WarnCodeParameter,
					fmt.Sprintf("%s has no parameter %q", b.Name(), key)))
				continue
			}
			obj := jsonobj.New()
			if err := obj.Set(key, values[key]); err != nil {
				return nil, fmt.Errorf("cannot encode override %d.%s: %w", i, key, err)
			}
			if err := param.ReadJSON(obj); err != nil {
				messages = append(messages, model.NewWarningMessage(b.Source(), WarnCodeParameter, err.Error()))
			}
		}
	}
	return messages, nil
}
