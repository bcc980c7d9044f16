package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nao1215/filterpipe/internal/datastore"
	"github.com/nao1215/filterpipe/internal/filter"
	"github.com/nao1215/filterpipe/internal/model"
)

var (
	// ErrIndexOutOfRange is returned for positions outside the pipeline.
	ErrIndexOutOfRange = errors.New("filter index out of range")

	// ErrNilFilter is returned when adding a nil filter.
	ErrNilFilter = errors.New("filter is nil")
)

// ErrCodePreflightFailed is the code of the pipeline-level error emitted
// when Run stops because preflight found errors.
const ErrCodePreflightFailed = -20

// Result is the outcome of Run.
type Result int

const (
	// Success means every enabled filter executed without error.
	Success Result = iota
	// Failure means preflight or a filter's execution ended in error.
	Failure
	// Cancelled means a cancellation request was observed.
	Cancelled
)

// String returns the name of the result.
func (r Result) String() string {
	switch r {
	case Success:
		return "Success"
	case Failure:
		return "Failure"
	case Cancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// Pipeline is an ordered sequence of filters.
// It is not safe for concurrent use, except for Cancel.
type Pipeline struct {
	name      string
	filters   []filter.Filter
	logger    *slog.Logger
	observers []Observer

	// haltOnPreflightError stops preflight at the first filter in error.
	haltOnPreflightError bool

	tracker *renameTracker

	mu     sync.Mutex
	cancel context.CancelFunc
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithName sets the pipeline name.
func WithName(name string) Option {
	return func(p *Pipeline) {
		p.name = name
	}
}

// WithLogger sets a custom logger for the pipeline.
// If not set, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithObserver registers an observer at construction time.
func WithObserver(o Observer) Option {
	return func(p *Pipeline) {
		p.observers = append(p.observers, o)
	}
}

// WithHaltOnPreflightError makes preflight stop at the first filter that
// ends in error instead of checking the rest.
func WithHaltOnPreflightError(halt bool) Option {
	return func(p *Pipeline) {
		p.haltOnPreflightError = halt
	}
}

// New creates an empty Pipeline with the given options.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		filters: make([]filter.Filter, 0),
		tracker: newRenameTracker(),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// Name returns the pipeline name.
func (p *Pipeline) Name() string { return p.name }

// SetName replaces the pipeline name.
func (p *Pipeline) SetName(name string) { p.name = name }

// PushBack appends filters in order.
func (p *Pipeline) PushBack(filters ...filter.Filter) error {
	for _, f := range filters {
		if f == nil {
			return ErrNilFilter
		}
	}
	p.filters = append(p.filters, filters...)
	p.renumber()
	return nil
}

// Insert places f at index i, shifting later filters back.
func (p *Pipeline) Insert(i int, f filter.Filter) error {
	if f == nil {
		return ErrNilFilter
	}
	if i < 0 || i > len(p.filters) {
		return fmt.Errorf("%w: %d (pipeline has %d filters)", ErrIndexOutOfRange, i, len(p.filters))
	}
	p.filters = append(p.filters[:i], append([]filter.Filter{f}, p.filters[i:]...)...)
	p.renumber()
	return nil
}

// Remove deletes and returns the filter at index i.
func (p *Pipeline) Remove(i int) (filter.Filter, error) {
	if i < 0 || i >= len(p.filters) {
		return nil, fmt.Errorf("%w: %d (pipeline has %d filters)", ErrIndexOutOfRange, i, len(p.filters))
	}
	f := p.filters[i]
	p.filters = append(p.filters[:i], p.filters[i+1:]...)
	p.tracker.forget(f)
	f.Core().SetIndex(-1)
	p.renumber()
	return f, nil
}

// Clear removes every filter.
func (p *Pipeline) Clear() {
	for _, f := range p.filters {
		p.tracker.forget(f)
		f.Core().SetIndex(-1)
	}
	p.filters = p.filters[:0]
}

// Len returns the number of filters.
func (p *Pipeline) Len() int { return len(p.filters) }

// FilterAt returns the filter at index i.
func (p *Pipeline) FilterAt(i int) (filter.Filter, error) {
	if i < 0 || i >= len(p.filters) {
		return nil, fmt.Errorf("%w: %d (pipeline has %d filters)", ErrIndexOutOfRange, i, len(p.filters))
	}
	return p.filters[i], nil
}

// Filters returns the filters in execution order.
func (p *Pipeline) Filters() []filter.Filter {
	out := make([]filter.Filter, len(p.filters))
	copy(out, p.filters)
	return out
}

// FilterNames returns the registered names of all filters in execution order.
func (p *Pipeline) FilterNames() []string {
	names := make([]string, len(p.filters))
	for i, f := range p.filters {
		names[i] = f.Core().Name()
	}
	return names
}

func (p *Pipeline) renumber() {
	for i, f := range p.filters {
		f.Core().SetIndex(i)
	}
}

// AddObserver registers o to receive messages from later calls.
func (p *Pipeline) AddObserver(o Observer) {
	p.observers = append(p.observers, o)
}

// RemoveObservers unregisters every observer.
func (p *Pipeline) RemoveObservers() {
	p.observers = nil
}

// Cancel asks the in-flight Preflight or Run to stop. It is safe to call
// from another goroutine and does nothing when no call is in flight.
func (p *Pipeline) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
	}
}

// begin installs the message sinks and the cancel function for one call.
func (p *Pipeline) begin(ctx context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)

	p.mu.Lock()
	p.cancel = cancel
	p.mu.Unlock()

	for _, f := range p.filters {
		f.Core().SetMessageSink(p.dispatch)
	}

	return ctx, func() {
		for _, f := range p.filters {
			f.Core().SetMessageSink(nil)
		}
		p.mu.Lock()
		p.cancel = nil
		p.mu.Unlock()
		cancel()
	}
}

// dispatch forwards m to every observer in registration order.
func (p *Pipeline) dispatch(m model.PipelineMessage) {
	p.logger.Debug("pipeline message",
		"pipeline", p.name,
		"index", m.PipelineIndex,
		"type", m.Type.String(),
		"text", m.Text,
	)
	for _, o := range p.observers {
		o.Observe(m)
	}
}

func (p *Pipeline) notify(progress int, text string) {
	p.dispatch(model.NewStatusAndProgressMessage(model.PipelineSource, progress, text))
}

// Preflight validates every enabled filter in order against store and
// returns the number of filters left in error. Filters still run after
// an earlier one fails, unless that failure was fatal or the pipeline
// was built WithHaltOnPreflightError.
func (p *Pipeline) Preflight(ctx context.Context, store datastore.Store) int {
	ctx, done := p.begin(ctx)
	defer done()
	return p.preflight(ctx, store)
}

func (p *Pipeline) preflight(ctx context.Context, store datastore.Store) int {
	p.logger.Info("preflighting pipeline",
		"pipeline", p.name,
		"filters", len(p.filters),
	)

	errorCount := 0
	for i, f := range p.filters {
		if ctx.Err() != nil {
			p.logger.Warn("preflight cancelled",
				"pipeline", p.name,
				"index", i,
				"reason", ctx.Err(),
			)
			break
		}

		b := f.Core()
		state := filter.Preflight(f, store)
		if state == filter.StateDisabled {
			continue
		}
		p.propagateRenames(i, f)

		if state != filter.StatePreflightedError {
			p.logger.Debug("filter preflighted",
				"pipeline", p.name,
				"index", i,
				"filter", b.Name(),
			)
			continue
		}

		errorCount++
		p.logger.Warn("filter preflight failed",
			"pipeline", p.name,
			"index", i,
			"filter", b.Name(),
			"code", b.ErrorCode(),
		)
		if b.IsFatal() || p.haltOnPreflightError {
			break
		}
	}
	return errorCount
}

// Run preflights the pipeline on a copy of store, then executes every
// enabled filter in order against store. It stops at the first filter
// that ends in error. Changes made before a failure stay in store.
func (p *Pipeline) Run(ctx context.Context, store datastore.Store) Result {
	ctx, done := p.begin(ctx)
	defer done()

	p.notify(0, "Preflighting pipeline")
	if errorCount := p.preflight(ctx, store.Clone()); errorCount > 0 {
		if ctx.Err() != nil {
			return p.cancelled(-1)
		}
		p.dispatch(model.NewErrorMessage(model.PipelineSource, ErrCodePreflightFailed,
			fmt.Sprintf("preflight found errors in %d filter(s); nothing was executed", errorCount)))
		p.logger.Error("pipeline preflight failed",
			"pipeline", p.name,
			"errors", errorCount,
		)
		return Failure
	}
	if ctx.Err() != nil {
		return p.cancelled(-1)
	}

	enabled := 0
	for _, f := range p.filters {
		if f.Core().Enabled() {
			enabled++
		}
	}

	executed := 0
	for i, f := range p.filters {
		if ctx.Err() != nil {
			return p.cancelled(i)
		}

		b := f.Core()
		if !b.Enabled() {
			filter.Execute(ctx, f, store)
			continue
		}

		p.notify(executed*100/max(enabled, 1),
			fmt.Sprintf("Executing filter %d/%d: %s", executed+1, enabled, b.HumanLabel()))
		p.logger.Info("executing filter",
			"pipeline", p.name,
			"index", i,
			"filter", b.Name(),
		)

		state := filter.Execute(ctx, f, store)
		p.propagateRenames(i, f)
		executed++

		switch state {
		case filter.StateCancelled:
			return p.cancelled(i)
		case filter.StateExecutedError:
			p.logger.Error("filter execution failed",
				"pipeline", p.name,
				"index", i,
				"filter", b.Name(),
				"code", b.ErrorCode(),
			)
			return Failure
		default:
			p.logger.Debug("filter executed",
				"pipeline", p.name,
				"index", i,
				"filter", b.Name(),
			)
		}
	}

	p.notify(100, "Pipeline complete")
	return Success
}

func (p *Pipeline) cancelled(index int) Result {
	p.logger.Warn("pipeline cancelled",
		"pipeline", p.name,
		"index", index,
	)
	p.dispatch(model.NewStatusMessage(model.PipelineSource, "Pipeline cancelled"))
	return Cancelled
}

// Summaries returns the current state of every filter slot.
func (p *Pipeline) Summaries() []model.FilterSummary {
	out := make([]model.FilterSummary, len(p.filters))
	for i, f := range p.filters {
		b := f.Core()
		out[i] = model.FilterSummary{
			Index:       i,
			Name:        b.Name(),
			HumanLabel:  b.HumanLabel(),
			Enabled:     b.Enabled(),
			State:       b.State().String(),
			ErrorCode:   b.ErrorCode(),
			WarningCode: b.WarningCode(),
		}
	}
	return out
}
