package filter

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/nao1215/filterpipe/internal/model"
	"github.com/nao1215/filterpipe/internal/parameter"
)

// Error codes shared by all filters. Filter-specific codes live with
// each filter and are also negative.
const (
	// ErrCodeGeneric replaces non-negative codes passed to SetErrorCondition.
	ErrCodeGeneric = -1
	// ErrCodeNotPreflighted is set when Execute is called without a
	// successful preflight.
	ErrCodeNotPreflighted = -10
	// ErrCodePlaceholder is set by the Unknown placeholder's data check.
	ErrCodePlaceholder = -9999
)

// MessageSink receives the messages a filter emits.
type MessageSink func(model.PipelineMessage)

// Base carries the state every filter shares. Embed it by value and
// construct it with NewBase.
type Base struct {
	name   string
	label  string
	id     uuid.UUID
	params parameter.List

	index   int
	enabled bool

	errorCode   int
	warningCode int
	fatal       bool
	state       State

	created []model.Path
	renames []model.Rename

	sink MessageSink
}

// NewBase returns a Base for a filter registered as name and displayed as label.
func NewBase(name, label string) Base {
	return Base{
		name:    name,
		label:   label,
		id:      uuid.New(),
		index:   -1,
		enabled: true,
	}
}

// Core implements Filter.
func (b *Base) Core() *Base { return b }

// Name returns the registered type name.
func (b *Base) Name() string { return b.name }

// HumanLabel returns the display label.
func (b *Base) HumanLabel() string { return b.label }

// UUID returns the identifier stored in pipeline documents.
func (b *Base) UUID() uuid.UUID { return b.id }

// SetUUID replaces the identifier, e.g. with the one read from a document.
func (b *Base) SetUUID(id uuid.UUID) { b.id = id }

// Parameters returns the filter's parameters in declaration order.
func (b *Base) Parameters() parameter.List { return b.params }

// SetParameters declares the filter's parameters.
func (b *Base) SetParameters(params ...parameter.Parameter) {
	b.params = append(parameter.List(nil), params...)
}

// Index returns the position assigned by the pipeline, or -1.
func (b *Base) Index() int { return b.index }

// SetIndex records the filter's position in its pipeline.
func (b *Base) SetIndex(i int) { b.index = i }

// Enabled reports whether the filter takes part in preflight and execution.
func (b *Base) Enabled() bool { return b.enabled }

// SetEnabled switches the filter on or off.
func (b *Base) SetEnabled(enabled bool) {
	b.enabled = enabled
	if !enabled {
		b.state = StateDisabled
	} else if b.state == StateDisabled {
		b.state = StateIdle
	}
}

// State returns the current lifecycle state.
func (b *Base) State() State { return b.state }

// ErrorCode returns the error condition; negative means failure.
func (b *Base) ErrorCode() int { return b.errorCode }

// WarningCode returns the warning condition; zero means none.
func (b *Base) WarningCode() int { return b.warningCode }

// IsFatal reports whether the last error asked the pipeline to stop preflight.
func (b *Base) IsFatal() bool { return b.fatal }

// Source identifies the filter in the messages it emits.
func (b *Base) Source() model.Source {
	return model.Source{Name: b.name, Label: b.label, Index: b.index}
}

// SetMessageSink installs the receiver of emitted messages. Passing nil
// detaches it; messages emitted without a sink are dropped.
func (b *Base) SetMessageSink(sink MessageSink) { b.sink = sink }

func (b *Base) emit(m model.PipelineMessage) {
	if b.sink != nil {
		b.sink(m)
	}
}

// SetErrorCondition records a failure and emits an Error message.
// Codes must be negative; others are replaced with ErrCodeGeneric.
func (b *Base) SetErrorCondition(code int, text string) {
	if code >= 0 {
		code = ErrCodeGeneric
	}
	b.errorCode = code
	b.emit(model.NewErrorMessage(b.Source(), code, text))
}

// SetErrorConditionf is SetErrorCondition with a format string.
func (b *Base) SetErrorConditionf(code int, format string, args ...any) {
	b.SetErrorCondition(code, fmt.Sprintf(format, args...))
}

// SetFatalErrorCondition records a failure that stops the remaining preflight.
func (b *Base) SetFatalErrorCondition(code int, text string) {
	b.fatal = true
	b.SetErrorCondition(code, text)
}

// SetWarningCondition records a warning and emits a Warning message.
func (b *Base) SetWarningCondition(code int, text string) {
	b.warningCode = code
	b.emit(model.NewWarningMessage(b.Source(), code, text))
}

// SetWarningConditionf is SetWarningCondition with a format string.
func (b *Base) SetWarningConditionf(code int, format string, args ...any) {
	b.SetWarningCondition(code, fmt.Sprintf(format, args...))
}

// ClearConditions resets the error, warning and fatal flags.
func (b *Base) ClearConditions() {
	b.errorCode = 0
	b.warningCode = 0
	b.fatal = false
}

// NotifyStatus emits a Status message.
func (b *Base) NotifyStatus(text string) {
	b.emit(model.NewStatusMessage(b.Source(), text))
}

// NotifyStandardOutput emits a StandardOutput message.
func (b *Base) NotifyStandardOutput(text string) {
	b.emit(model.NewStandardOutputMessage(b.Source(), text))
}

// NotifyProgress emits a StatusAndProgress message.
func (b *Base) NotifyProgress(percent int, text string) {
	b.emit(model.NewStatusAndProgressMessage(b.Source(), percent, text))
}

// Cancelled reports whether the caller asked the filter to stop.
// Long-running filters check it between units of work.
func (b *Base) Cancelled(ctx context.Context) bool {
	return ctx.Err() != nil
}

// AddCreatedPath declares a path created by the last data check that is
// not held by a created-output parameter.
func (b *Base) AddCreatedPath(p model.Path) {
	if !p.IsEmpty() {
		b.created = append(b.created, p)
	}
}

// CreatedPaths returns the paths the filter creates: those held by its
// created-output parameters followed by those declared with AddCreatedPath.
func (b *Base) CreatedPaths() []model.Path {
	out := parameter.CreatedPaths(b.params)
	for _, p := range b.created {
		dup := false
		for _, q := range out {
			if q.Equal(p) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, p)
		}
	}
	return out
}

// AddRename reports that the filter renamed one of its outputs. The
// pipeline forwards it to the parameters of every other filter.
func (b *Base) AddRename(r model.Rename) {
	b.renames = append(b.renames, r)
}

// Renames returns the renames reported since the last pass began.
func (b *Base) Renames() []model.Rename {
	return append([]model.Rename(nil), b.renames...)
}

func (b *Base) beginPass(state State) {
	b.ClearConditions()
	b.created = nil
	b.renames = nil
	b.state = state
}
