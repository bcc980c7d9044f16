package pipeline

import (
	"fmt"
	"slices"

	"github.com/nao1215/filterpipe/internal/filter"
	"github.com/nao1215/filterpipe/internal/model"
	"github.com/nao1215/filterpipe/internal/parameter"
)

// renameTracker remembers the created paths each filter declared on its
// last step, so that a created path edited between two steps is seen as
// a rename of that output.
type renameTracker struct {
	created map[*filter.Base][]model.Path
}

func newRenameTracker() *renameTracker {
	return &renameTracker{created: make(map[*filter.Base][]model.Path)}
}

func (t *renameTracker) forget(f filter.Filter) {
	delete(t.created, f.Core())
}

// collect returns the renames caused by f's last step: those it reported
// itself followed by those detected from its created paths, with
// sequential renames collapsed into one.
func (t *renameTracker) collect(f filter.Filter) []model.Rename {
	b := f.Core()
	current := b.CreatedPaths()

	renames := b.Renames()
	if previous, ok := t.created[b]; ok {
		renames = append(renames, detectRenames(previous, current)...)
	}
	t.created[b] = current

	return collapseRenames(renames)
}

// detectRenames pairs every path that disappeared from previous with the
// single new path in current that it could have been renamed to.
// Ambiguous or unmatched paths are not treated as renames.
func detectRenames(previous, current []model.Path) []model.Rename {
	var removed, added []model.Path
	for _, p := range previous {
		if !slices.ContainsFunc(current, p.Equal) {
			removed = append(removed, p)
		}
	}
	for _, p := range current {
		if !slices.ContainsFunc(previous, p.Equal) {
			added = append(added, p)
		}
	}

	var renames []model.Rename
	used := make([]bool, len(added))
	for _, old := range removed {
		match := -1
		for i, p := range added {
			if used[i] || !old.PossibleRename(p) {
				continue
			}
			if match >= 0 {
				match = -2
				break
			}
			match = i
		}
		if match < 0 {
			continue
		}
		used[match] = true
		renames = append(renames, model.Rename{Old: old, New: added[match]})
	}
	return renames
}

func collapseRenames(renames []model.Rename) []model.Rename {
	var out []model.Rename
	for _, r := range renames {
		if r.IsNoop() {
			continue
		}
		if n := len(out); n > 0 {
			if composed, ok := model.ComposeRenames(out[n-1], r); ok {
				out[n-1] = composed
				continue
			}
		}
		out = append(out, r)
	}
	return out
}

// propagateRenames forwards the renames caused by the filter at index i to
// the rename-aware parameters of every other filter, and reports each
// filter whose parameters changed.
func (p *Pipeline) propagateRenames(i int, f filter.Filter) {
	for _, r := range p.tracker.collect(f) {
		p.logger.Info("propagating rename",
			"pipeline", p.name,
			"index", i,
			"rename", r.String(),
		)
		for j, other := range p.filters {
			if j == i {
				continue
			}
			if changed := applyRename(other.Core().Parameters(), r); len(changed) > 0 {
				p.dispatch(model.NewStatusMessage(other.Core().Source(),
					fmt.Sprintf("updated %v after rename %s", changed, r)))
			}
		}
	}
}

// applyRename offers r to every rename-aware parameter in params and
// returns the property names of those that changed.
func applyRename(params parameter.List, r model.Rename) []string {
	var changed []string
	for _, ra := range params.RenameAware() {
		if ra.OnPathRenamed(r) {
			changed = append(changed, ra.PropertyName())
		}
	}
	return changed
}
