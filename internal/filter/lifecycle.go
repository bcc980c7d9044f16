package filter

import (
	"context"

	"github.com/nao1215/filterpipe/internal/datastore"
)

// Preflight validates f against store without executing it. Disabled
// filters are skipped. Renames reported and paths declared by an earlier
// pass are discarded first.
func Preflight(f Filter, store datastore.Store) State {
	b := f.Core()
	if !b.enabled {
		b.state = StateDisabled
		return b.state
	}

	b.beginPass(StatePreflighting)
	f.DataCheck(store)
	if b.errorCode < 0 {
		b.state = StatePreflightedError
	} else {
		b.state = StatePreflightedOK
	}
	return b.state
}

// Execute runs f against store. The filter must have passed its most
// recent preflight. The data check is repeated against store before the
// transformation runs. A cancellation observed at any point wins over
// an error condition.
func Execute(ctx context.Context, f Filter, store datastore.Store) State {
	b := f.Core()
	if !b.enabled {
		b.state = StateDisabled
		return b.state
	}
	if b.state != StatePreflightedOK {
		b.SetErrorConditionf(ErrCodeNotPreflighted,
			"%s cannot execute: its last preflight did not succeed (state %s)", b.label, b.state)
		b.state = StateExecutedError
		return b.state
	}

	b.beginPass(StateExecuting)
	f.DataCheck(store)
	if ctx.Err() != nil {
		b.state = StateCancelled
		return b.state
	}
	if b.errorCode < 0 {
		b.state = StateExecutedError
		return b.state
	}

	f.Execute(ctx, store)
	switch {
	case ctx.Err() != nil:
		b.state = StateCancelled
	case b.errorCode < 0:
		b.state = StateExecutedError
	default:
		b.state = StateExecutedOK
	}
	return b.state
}
