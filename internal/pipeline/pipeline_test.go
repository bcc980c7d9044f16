package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/nao1215/filterpipe/internal/datastore"
	"github.com/nao1215/filterpipe/internal/filter"
	"github.com/nao1215/filterpipe/internal/filter/builtin"
	"github.com/nao1215/filterpipe/internal/model"
	"github.com/nao1215/filterpipe/internal/parameter"
)

// mockFilter is a test helper that implements the filter.Filter interface.
type mockFilter struct {
	filter.Base
	Ref           model.Path
	dataCheckFunc func(b *filter.Base, store datastore.Store)
	executeFunc   func(ctx context.Context, b *filter.Base, store datastore.Store)
	checks        int
	executions    int
}

func newMock(name string) *mockFilter {
	m := &mockFilter{Base: filter.NewBase(name, name+" Label")}
	m.SetParameters(parameter.NewPath(
		parameter.Info{Label: "Reference", PropertyName: "Reference", Category: parameter.CategoryRequiredInput},
		model.Path{},
		func(v model.Path) { m.Ref = v },
		func() model.Path { return m.Ref },
	))
	return m
}

// DataCheck implements filter.Filter.
func (m *mockFilter) DataCheck(store datastore.Store) {
	m.checks++
	if m.dataCheckFunc != nil {
		m.dataCheckFunc(&m.Base, store)
	}
}

// Execute implements filter.Filter.
func (m *mockFilter) Execute(ctx context.Context, store datastore.Store) {
	m.executions++
	if m.executeFunc != nil {
		m.executeFunc(ctx, &m.Base, store)
	}
}

func sampleStore(t *testing.T) *datastore.Memory {
	t.Helper()

	s := datastore.NewMemory()
	if _, err := s.CreateContainer(model.NewPath("Foo", "", "")); err != nil {
		t.Fatalf("CreateContainer: %v", err)
	}
	if _, err := s.CreateMatrix(model.NewPath("Foo", "AM", ""), 3); err != nil {
		t.Fatalf("CreateMatrix: %v", err)
	}
	a, err := s.CreateArray(model.NewPath("Foo", "AM", "Arr"), 1)
	if err != nil {
		t.Fatalf("CreateArray: %v", err)
	}
	a.Allocate()
	copy(a.Values, []float64{1, 2, 3})
	return s
}

func mustPush(t *testing.T, p *Pipeline, filters ...filter.Filter) {
	t.Helper()
	if err := p.PushBack(filters...); err != nil {
		t.Fatalf("PushBack: %v", err)
	}
}

// TestPipelineNew tests the Pipeline constructor.
func TestPipelineNew(t *testing.T) {
	t.Parallel()

	t.Run("creates pipeline with default settings", func(t *testing.T) {
		t.Parallel()

		p := New()

		if p == nil {
			t.Fatal("expected non-nil pipeline")
		}
		if p.Len() != 0 {
			t.Errorf("expected 0 filters, got %d", p.Len())
		}
		if p.logger == nil {
			t.Error("expected default logger")
		}
	})

	t.Run("applies options", func(t *testing.T) {
		t.Parallel()

		rec := NewRecorder()
		p := New(WithName("demo"), WithHaltOnPreflightError(true), WithObserver(rec))

		if p.Name() != "demo" {
			t.Errorf("expected name demo, got %q", p.Name())
		}
		if !p.haltOnPreflightError {
			t.Error("expected haltOnPreflightError to be true")
		}
		if len(p.observers) != 1 {
			t.Errorf("expected 1 observer, got %d", len(p.observers))
		}
	})
}

// TestPipelineMutation tests building the filter sequence.
func TestPipelineMutation(t *testing.T) {
	t.Parallel()

	t.Run("push back assigns indices in order", func(t *testing.T) {
		t.Parallel()

		p := New()
		mustPush(t, p, newMock("alpha"), newMock("beta"), newMock("gamma"))

		names := p.FilterNames()
		expected := []string{"alpha", "beta", "gamma"}
		for i, name := range names {
			if name != expected[i] {
				t.Errorf("filter %d: got %q, expected %q", i, name, expected[i])
			}
			f, err := p.FilterAt(i)
			if err != nil {
				t.Fatalf("FilterAt(%d): %v", i, err)
			}
			if f.Core().Index() != i {
				t.Errorf("filter %d has index %d", i, f.Core().Index())
			}
		}
	})

	t.Run("insert and remove renumber", func(t *testing.T) {
		t.Parallel()

		p := New()
		a, b, c := newMock("a"), newMock("b"), newMock("c")
		mustPush(t, p, a, c)

		if err := p.Insert(1, b); err != nil {
			t.Fatalf("Insert: %v", err)
		}
		if b.Index() != 1 || c.Index() != 2 {
			t.Errorf("unexpected indices b=%d c=%d", b.Index(), c.Index())
		}

		removed, err := p.Remove(0)
		if err != nil {
			t.Fatalf("Remove: %v", err)
		}
		if removed != filter.Filter(a) {
			t.Error("expected the first filter to be removed")
		}
		if a.Index() != -1 {
			t.Errorf("removed filter keeps index %d", a.Index())
		}
		if b.Index() != 0 || c.Index() != 1 {
			t.Errorf("unexpected indices b=%d c=%d", b.Index(), c.Index())
		}
	})

	t.Run("out of range positions are rejected", func(t *testing.T) {
		t.Parallel()

		p := New()
		if err := p.Insert(1, newMock("a")); !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("Insert: expected ErrIndexOutOfRange, got %v", err)
		}
		if _, err := p.Remove(0); !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("Remove: expected ErrIndexOutOfRange, got %v", err)
		}
		if _, err := p.FilterAt(-1); !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("FilterAt: expected ErrIndexOutOfRange, got %v", err)
		}
	})

	t.Run("nil filters are rejected", func(t *testing.T) {
		t.Parallel()

		p := New()
		if err := p.PushBack(nil); !errors.Is(err, ErrNilFilter) {
			t.Errorf("expected ErrNilFilter, got %v", err)
		}
		if p.Len() != 0 {
			t.Errorf("expected empty pipeline, got %d filters", p.Len())
		}
	})

	t.Run("clear empties the pipeline", func(t *testing.T) {
		t.Parallel()

		p := New()
		mustPush(t, p, newMock("a"), newMock("b"))
		p.Clear()
		if p.Len() != 0 {
			t.Errorf("expected 0 filters, got %d", p.Len())
		}
	})
}

// TestPipelinePreflight tests the validation pass.
func TestPipelinePreflight(t *testing.T) {
	t.Parallel()

	t.Run("checks in index order and shares created outputs", func(t *testing.T) {
		t.Parallel()

		order := make([]string, 0)
		creator := newMock("creator")
		creator.dataCheckFunc = func(b *filter.Base, store datastore.Store) {
			order = append(order, b.Name())
			if _, err := store.CreateContainer(model.NewPath("Made", "", "")); err != nil {
				b.SetErrorConditionf(-1, "%v", err)
			}
		}
		consumer := newMock("consumer")
		consumer.dataCheckFunc = func(b *filter.Base, store datastore.Store) {
			order = append(order, b.Name())
			if !store.Exists(model.NewPath("Made", "", "")) {
				b.SetErrorCondition(-2, "container missing")
			}
		}

		p := New()
		mustPush(t, p, creator, consumer)

		if got := p.Preflight(context.Background(), datastore.NewMemory()); got != 0 {
			t.Errorf("expected 0 errors, got %d", got)
		}
		if len(order) != 2 || order[0] != "creator" || order[1] != "consumer" {
			t.Errorf("unexpected order %v", order)
		}
	})

	t.Run("accumulates errors across filters", func(t *testing.T) {
		t.Parallel()

		p := New()
		a, b, c := newMock("a"), newMock("b"), newMock("c")
		fail := func(b *filter.Base, _ datastore.Store) { b.SetErrorCondition(-5, "broken") }
		a.dataCheckFunc = fail
		c.dataCheckFunc = fail
		mustPush(t, p, a, b, c)

		if got := p.Preflight(context.Background(), datastore.NewMemory()); got != 2 {
			t.Errorf("expected 2 errors, got %d", got)
		}
		if b.checks != 1 || c.checks != 1 {
			t.Errorf("expected every filter to be checked, got b=%d c=%d", b.checks, c.checks)
		}
		if a.State() != filter.StatePreflightedError || b.State() != filter.StatePreflightedOK {
			t.Errorf("unexpected states a=%v b=%v", a.State(), b.State())
		}
	})

	t.Run("fatal error stops preflight", func(t *testing.T) {
		t.Parallel()

		p := New()
		a, b := newMock("a"), newMock("b")
		a.dataCheckFunc = func(b *filter.Base, _ datastore.Store) { b.SetFatalErrorCondition(-5, "fatal") }
		mustPush(t, p, a, b)

		if got := p.Preflight(context.Background(), datastore.NewMemory()); got != 1 {
			t.Errorf("expected 1 error, got %d", got)
		}
		if b.checks != 0 {
			t.Errorf("expected the second filter to be skipped, got %d checks", b.checks)
		}
	})

	t.Run("halt option stops at the first error", func(t *testing.T) {
		t.Parallel()

		p := New(WithHaltOnPreflightError(true))
		a, b := newMock("a"), newMock("b")
		a.dataCheckFunc = func(b *filter.Base, _ datastore.Store) { b.SetErrorCondition(-5, "broken") }
		mustPush(t, p, a, b)

		if got := p.Preflight(context.Background(), datastore.NewMemory()); got != 1 {
			t.Errorf("expected 1 error, got %d", got)
		}
		if b.checks != 0 {
			t.Errorf("expected the second filter to be skipped, got %d checks", b.checks)
		}
	})

	t.Run("disabled filters are skipped", func(t *testing.T) {
		t.Parallel()

		p := New()
		a := newMock("a")
		a.dataCheckFunc = func(b *filter.Base, _ datastore.Store) { b.SetErrorCondition(-5, "broken") }
		a.SetEnabled(false)
		mustPush(t, p, a)

		if got := p.Preflight(context.Background(), datastore.NewMemory()); got != 0 {
			t.Errorf("expected 0 errors, got %d", got)
		}
		if a.checks != 0 || a.State() != filter.StateDisabled {
			t.Errorf("expected disabled filter untouched, checks=%d state=%v", a.checks, a.State())
		}
	})

	t.Run("observers receive filter messages in emission order", func(t *testing.T) {
		t.Parallel()

		rec := NewRecorder()
		p := New(WithObserver(rec))
		a, b := newMock("a"), newMock("b")
		a.dataCheckFunc = func(b *filter.Base, _ datastore.Store) { b.SetWarningCondition(7, "first") }
		b.dataCheckFunc = func(b *filter.Base, _ datastore.Store) { b.SetErrorCondition(-7, "second") }
		mustPush(t, p, a, b)

		p.Preflight(context.Background(), datastore.NewMemory())

		messages := rec.Messages()
		if len(messages) != 2 {
			t.Fatalf("expected 2 messages, got %d: %v", len(messages), messages)
		}
		if messages[0].Type != model.MessageWarning || messages[0].PipelineIndex != 0 {
			t.Errorf("unexpected first message %v", messages[0])
		}
		if messages[1].Type != model.MessageError || messages[1].PipelineIndex != 1 || messages[1].Code != -7 {
			t.Errorf("unexpected second message %v", messages[1])
		}
	})

	t.Run("sinks are removed after the call", func(t *testing.T) {
		t.Parallel()

		rec := NewRecorder()
		p := New(WithObserver(rec))
		a := newMock("a")
		mustPush(t, p, a)

		p.Preflight(context.Background(), datastore.NewMemory())
		a.NotifyStatus("outside any call")

		if rec.Len() != 0 {
			t.Errorf("expected no messages outside a call, got %v", rec.Messages())
		}
	})
}

// TestPipelineRun tests preflight followed by execution.
func TestPipelineRun(t *testing.T) {
	t.Parallel()

	t.Run("executes all filters in order", func(t *testing.T) {
		t.Parallel()

		order := make([]string, 0)
		p := New()
		for _, name := range []string{"first", "second", "third"} {
			m := newMock(name)
			m.executeFunc = func(_ context.Context, b *filter.Base, _ datastore.Store) {
				order = append(order, b.Name())
			}
			mustPush(t, p, m)
		}

		if got := p.Run(context.Background(), datastore.NewMemory()); got != Success {
			t.Fatalf("expected Success, got %v", got)
		}
		expected := []string{"first", "second", "third"}
		if len(order) != len(expected) {
			t.Fatalf("expected %d executions, got %v", len(expected), order)
		}
		for i := range expected {
			if order[i] != expected[i] {
				t.Errorf("execution %d: got %q, expected %q", i, order[i], expected[i])
			}
		}
	})

	t.Run("execute failure aborts the remaining filters", func(t *testing.T) {
		t.Parallel()

		p := New()
		a, b := newMock("a"), newMock("b")
		a.executeFunc = func(_ context.Context, b *filter.Base, _ datastore.Store) {
			b.SetErrorCondition(-3, "execution failed")
		}
		mustPush(t, p, a, b)

		if got := p.Run(context.Background(), datastore.NewMemory()); got != Failure {
			t.Fatalf("expected Failure, got %v", got)
		}
		if b.executions != 0 {
			t.Errorf("expected the second filter never to execute, got %d executions", b.executions)
		}
		if a.State() != filter.StateExecutedError {
			t.Errorf("expected %v, got %v", filter.StateExecutedError, a.State())
		}
	})

	t.Run("preflight errors prevent execution", func(t *testing.T) {
		t.Parallel()

		rec := NewRecorder()
		p := New(WithObserver(rec))
		a, b := newMock("a"), newMock("b")
		b.dataCheckFunc = func(b *filter.Base, _ datastore.Store) { b.SetErrorCondition(-4, "missing") }
		mustPush(t, p, a, b)

		if got := p.Run(context.Background(), datastore.NewMemory()); got != Failure {
			t.Fatalf("expected Failure, got %v", got)
		}
		if a.executions != 0 || b.executions != 0 {
			t.Errorf("expected nothing executed, got a=%d b=%d", a.executions, b.executions)
		}
		messages := rec.Messages()
		last := messages[len(messages)-1]
		if last.Code != ErrCodePreflightFailed || last.PipelineIndex != model.PipelineIndexNone {
			t.Errorf("expected a pipeline-level preflight error, got %v", last)
		}
	})

	t.Run("preflight works on a copy of the store", func(t *testing.T) {
		t.Parallel()

		store := datastore.NewMemory()
		created := 0
		a := newMock("a")
		a.dataCheckFunc = func(b *filter.Base, s datastore.Store) {
			if _, err := s.CreateContainer(model.NewPath("Out", "", "")); err != nil {
				b.SetErrorConditionf(-1, "%v", err)
				return
			}
			created++
		}
		p := New()
		mustPush(t, p, a)

		if got := p.Run(context.Background(), store); got != Success {
			t.Fatalf("expected Success, got %v", got)
		}
		if created != 2 {
			t.Errorf("expected the container to be created in both passes, got %d", created)
		}
		if !store.Exists(model.NewPath("Out", "", "")) {
			t.Error("expected the executed pass to create the container in the store")
		}
	})

	t.Run("cancel stops the run", func(t *testing.T) {
		t.Parallel()

		p := New()
		a, b := newMock("a"), newMock("b")
		a.executeFunc = func(context.Context, *filter.Base, datastore.Store) { p.Cancel() }
		mustPush(t, p, a, b)

		if got := p.Run(context.Background(), datastore.NewMemory()); got != Cancelled {
			t.Fatalf("expected Cancelled, got %v", got)
		}
		if b.executions != 0 {
			t.Errorf("expected the second filter never to execute, got %d executions", b.executions)
		}
		if a.State() != filter.StateCancelled {
			t.Errorf("expected %v, got %v", filter.StateCancelled, a.State())
		}
	})

	t.Run("cancelled context returns cancelled", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		p := New()
		a := newMock("a")
		mustPush(t, p, a)

		if got := p.Run(ctx, datastore.NewMemory()); got != Cancelled {
			t.Fatalf("expected Cancelled, got %v", got)
		}
		if a.executions != 0 {
			t.Errorf("expected no executions, got %d", a.executions)
		}
	})

	t.Run("cancel outside a call is harmless", func(t *testing.T) {
		t.Parallel()

		p := New()
		p.Cancel()
		mustPush(t, p, newMock("a"))
		if got := p.Run(context.Background(), datastore.NewMemory()); got != Success {
			t.Errorf("expected Success, got %v", got)
		}
	})

	t.Run("disabled filters are skipped", func(t *testing.T) {
		t.Parallel()

		p := New()
		a, b := newMock("a"), newMock("b")
		b.SetEnabled(false)
		mustPush(t, p, a, b)

		if got := p.Run(context.Background(), datastore.NewMemory()); got != Success {
			t.Fatalf("expected Success, got %v", got)
		}
		if b.executions != 0 || b.State() != filter.StateDisabled {
			t.Errorf("expected disabled filter untouched, executions=%d state=%v", b.executions, b.State())
		}
	})

	t.Run("pipeline progress brackets the run", func(t *testing.T) {
		t.Parallel()

		rec := NewRecorder()
		p := New(WithObserver(rec))
		mustPush(t, p, newMock("a"))

		p.Run(context.Background(), datastore.NewMemory())

		messages := rec.Messages()
		if len(messages) < 2 {
			t.Fatalf("expected progress messages, got %v", messages)
		}
		first, last := messages[0], messages[len(messages)-1]
		if first.Type != model.MessageStatusAndProgress || first.Progress != 0 {
			t.Errorf("unexpected first message %v", first)
		}
		if last.Type != model.MessageStatusAndProgress || last.Progress != 100 {
			t.Errorf("unexpected last message %v", last)
		}
	})
}

// TestRenamePropagation tests forwarding renames between filters.
func TestRenamePropagation(t *testing.T) {
	t.Parallel()

	t.Run("reported container rename updates later references", func(t *testing.T) {
		t.Parallel()

		a := newMock("A")
		foo, bar := model.NewPath("Foo", "", ""), model.NewPath("Bar", "", "")
		a.executeFunc = func(_ context.Context, b *filter.Base, _ datastore.Store) {
			b.AddRename(model.Rename{Old: foo, New: bar})
		}
		b := newMock("B")
		b.Ref = model.NewPath("Foo", "AM", "Arr")

		p := New()
		mustPush(t, p, a, b)

		if got := p.Run(context.Background(), datastore.NewMemory()); got != Success {
			t.Fatalf("expected Success, got %v", got)
		}
		if want := model.NewPath("Bar", "AM", "Arr"); !b.Ref.Equal(want) {
			t.Errorf("expected %v, got %v", want, b.Ref)
		}
	})

	t.Run("renames reach earlier filters but not the renaming one", func(t *testing.T) {
		t.Parallel()

		rec := NewRecorder()
		early := newMock("early")
		early.Ref = model.NewPath("Foo", "AM", "Arr")
		renamer := newMock("renamer")
		renamer.Ref = model.NewPath("Foo", "AM", "Arr")
		renamer.dataCheckFunc = func(b *filter.Base, _ datastore.Store) {
			b.AddRename(model.Rename{Old: model.NewPath("Foo", "", ""), New: model.NewPath("Bar", "", "")})
		}

		p := New(WithObserver(rec))
		mustPush(t, p, early, renamer)
		p.Preflight(context.Background(), datastore.NewMemory())

		if want := model.NewPath("Bar", "AM", "Arr"); !early.Ref.Equal(want) {
			t.Errorf("expected earlier filter to hold %v, got %v", want, early.Ref)
		}
		if want := model.NewPath("Foo", "AM", "Arr"); !renamer.Ref.Equal(want) {
			t.Errorf("expected renaming filter to keep %v, got %v", want, renamer.Ref)
		}

		changed := 0
		for _, m := range rec.Messages() {
			if m.Type == model.MessageStatus && m.PipelineIndex == 0 {
				changed++
			}
		}
		if changed != 1 {
			t.Errorf("expected one status message for the changed filter, got %d", changed)
		}
	})

	t.Run("sequential renames are applied in order", func(t *testing.T) {
		t.Parallel()

		a := newMock("A")
		a.dataCheckFunc = func(b *filter.Base, _ datastore.Store) {
			b.AddRename(model.Rename{Old: model.NewPath("Foo", "", ""), New: model.NewPath("Bar", "", "")})
			b.AddRename(model.Rename{Old: model.NewPath("Bar", "AM", ""), New: model.NewPath("Bar", "Grid", "")})
		}
		b := newMock("B")
		b.Ref = model.NewPath("Foo", "AM", "Arr")

		p := New()
		mustPush(t, p, a, b)
		p.Preflight(context.Background(), datastore.NewMemory())

		if want := model.NewPath("Bar", "Grid", "Arr"); !b.Ref.Equal(want) {
			t.Errorf("expected %v, got %v", want, b.Ref)
		}
	})

	t.Run("editing a rename target is followed by later filters", func(t *testing.T) {
		t.Parallel()

		rename := builtin.NewRenameDataContainer()
		rename.Selected = model.NewPath("Foo", "", "")
		rename.NewName = "Bar"
		scale := builtin.NewScaleArray()
		scale.Selected = model.NewPath("Bar", "AM", "Arr")
		scale.Factor = 2

		rec := NewRecorder()
		p := New(WithObserver(rec))
		mustPush(t, p, rename, scale)

		if got := p.Preflight(context.Background(), sampleStore(t)); got != 0 {
			t.Fatalf("expected 0 errors, got %d: %v", got, rec.Messages())
		}

		rename.NewName = "Baz"
		rec.Reset()
		if got := p.Preflight(context.Background(), sampleStore(t)); got != 0 {
			t.Fatalf("expected 0 errors after the edit, got %d: %v", got, rec.Messages())
		}
		if want := model.NewPath("Baz", "AM", "Arr"); !scale.Selected.Equal(want) {
			t.Errorf("expected %v, got %v", want, scale.Selected)
		}
	})

	t.Run("edited created output is followed", func(t *testing.T) {
		t.Parallel()

		create := builtin.NewCreateDataArray()
		create.Array = model.NewPath("Foo", "AM", "New")
		create.Components = 1
		fill := builtin.NewFillArray()
		fill.Selected = model.NewPath("Foo", "AM", "New")

		p := New()
		mustPush(t, p, create, fill)
		if got := p.Preflight(context.Background(), sampleStore(t)); got != 0 {
			t.Fatalf("expected 0 errors, got %d", got)
		}

		create.Array = model.NewPath("Foo", "AM", "Renamed")
		if got := p.Preflight(context.Background(), sampleStore(t)); got != 0 {
			t.Fatalf("expected 0 errors after the edit, got %d", got)
		}
		if want := model.NewPath("Foo", "AM", "Renamed"); !fill.Selected.Equal(want) {
			t.Errorf("expected %v, got %v", want, fill.Selected)
		}
	})
}

func TestDetectRenames(t *testing.T) {
	t.Parallel()

	p := func(c, m, a string) model.Path { return model.NewPath(c, m, a) }

	t.Run("single changed segment is a rename", func(t *testing.T) {
		t.Parallel()

		got := detectRenames([]model.Path{p("A", "M", "x")}, []model.Path{p("A", "M", "y")})
		if len(got) != 1 || !got[0].Old.Equal(p("A", "M", "x")) || !got[0].New.Equal(p("A", "M", "y")) {
			t.Errorf("unexpected renames %v", got)
		}
	})

	t.Run("ambiguous candidates are ignored", func(t *testing.T) {
		t.Parallel()

		got := detectRenames([]model.Path{p("A", "M", "x")}, []model.Path{p("A", "M", "y"), p("A", "M", "z")})
		if len(got) != 0 {
			t.Errorf("expected no renames, got %v", got)
		}
	})

	t.Run("two changed segments are not a rename", func(t *testing.T) {
		t.Parallel()

		got := detectRenames([]model.Path{p("A", "M", "x")}, []model.Path{p("B", "N", "x")})
		if len(got) != 0 {
			t.Errorf("expected no renames, got %v", got)
		}
	})

	t.Run("unchanged paths produce nothing", func(t *testing.T) {
		t.Parallel()

		paths := []model.Path{p("A", "M", "x"), p("A", "", "")}
		if got := detectRenames(paths, paths); len(got) != 0 {
			t.Errorf("expected no renames, got %v", got)
		}
	})
}

func TestRecord(t *testing.T) {
	t.Parallel()

	t.Run("run report carries status filters and messages", func(t *testing.T) {
		t.Parallel()

		p := New(WithName("demo"))
		a := newMock("a")
		a.executeFunc = func(_ context.Context, b *filter.Base, _ datastore.Store) { b.NotifyStatus("working") }
		mustPush(t, p, a)

		r := Record(context.Background(), p, datastore.NewMemory(), model.RunModeRun)

		if r.Status != "Success" || r.PipelineName != "demo" || r.Mode != model.RunModeRun {
			t.Errorf("unexpected report header %+v", r)
		}
		if r.RunID == "" {
			t.Error("expected a run id")
		}
		if len(r.Filters) != 1 || r.Filters[0].State != filter.StateExecutedOK.String() {
			t.Errorf("unexpected filters %v", r.Filters)
		}
		if len(r.Messages) == 0 {
			t.Error("expected recorded messages")
		}
		if len(p.observers) != 0 {
			t.Errorf("expected the recorder to be removed, got %d observers", len(p.observers))
		}
	})

	t.Run("preflight report counts errors", func(t *testing.T) {
		t.Parallel()

		p := New()
		a := newMock("a")
		a.dataCheckFunc = func(b *filter.Base, _ datastore.Store) { b.SetErrorCondition(-1, "bad") }
		mustPush(t, p, a)

		r := Record(context.Background(), p, datastore.NewMemory(), model.RunModePreflight)

		if r.Status != "Failure" || r.PreflightErrors != 1 {
			t.Errorf("unexpected report %+v", r)
		}
		if len(r.Errors()) != 1 {
			t.Errorf("expected one error message, got %v", r.Errors())
		}
	})
}

func TestResultString(t *testing.T) {
	t.Parallel()

	tests := map[Result]string{
		Success:    "Success",
		Failure:    "Failure",
		Cancelled:  "Cancelled",
		Result(42): "Unknown",
	}
	for r, want := range tests {
		if got := r.String(); got != want {
			t.Errorf("Result(%d).String() = %q, want %q", int(r), got, want)
		}
	}
}
