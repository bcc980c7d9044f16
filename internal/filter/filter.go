// Package filter defines the unit of work of a pipeline and its lifecycle.
//
// A concrete filter embeds Base, binds its parameters to its own fields,
// and implements DataCheck (validate inputs, declare outputs) and Execute
// (transform the data). The pipeline never calls those two directly; it
// drives them through Preflight and Execute in this package, which own
// the state machine:
//
//	Idle -> Preflighting -> PreflightedOK | PreflightedError
//	PreflightedOK -> Executing -> ExecutedOK | ExecutedError | Cancelled
//	any -> Disabled (when the enabled flag is off)
package filter

import (
	"context"

	"github.com/nao1215/filterpipe/internal/datastore"
)

// Filter is implemented by every pipeline filter.
type Filter interface {
	// DataCheck validates the filter's inputs against the store and
	// declares its outputs. Problems are reported through the error and
	// warning conditions on Base, never returned.
	DataCheck(store datastore.Store)

	// Execute performs the transformation. It runs only after a
	// successful DataCheck on the same store, and must return promptly
	// once ctx is cancelled.
	Execute(ctx context.Context, store datastore.Store)

	// Core returns the embedded Base.
	Core() *Base
}

// State is a step of the filter lifecycle.
type State int

const (
	// StateIdle is the state of a filter that has not been preflighted.
	StateIdle State = iota
	// StatePreflighting is set while DataCheck runs during preflight.
	StatePreflighting
	// StatePreflightedOK means the last preflight left no error.
	StatePreflightedOK
	// StatePreflightedError means the last preflight set an error condition.
	StatePreflightedError
	// StateExecuting is set while the filter executes.
	StateExecuting
	// StateExecutedOK means execution finished without error.
	StateExecutedOK
	// StateExecutedError means execution set an error condition.
	StateExecutedError
	// StateCancelled means execution observed a cancellation request.
	StateCancelled
	// StateDisabled means the filter is switched off and was skipped.
	StateDisabled
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePreflighting:
		return "preflighting"
	case StatePreflightedOK:
		return "preflighted ok"
	case StatePreflightedError:
		return "preflighted error"
	case StateExecuting:
		return "executing"
	case StateExecutedOK:
		return "executed ok"
	case StateExecutedError:
		return "executed error"
	case StateCancelled:
		return "cancelled"
	case StateDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// IsError reports whether the state ends a pass with an error.
func (s State) IsError() bool {
	return s == StatePreflightedError || s == StateExecutedError
}
