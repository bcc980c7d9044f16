package codec

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/nao1215/filterpipe/internal/datastore"
	"github.com/nao1215/filterpipe/internal/filter"
	"github.com/nao1215/filterpipe/internal/filter/builtin"
	"github.com/nao1215/filterpipe/internal/jsonobj"
	"github.com/nao1215/filterpipe/internal/model"
	"github.com/nao1215/filterpipe/internal/parameter"
	"github.com/nao1215/filterpipe/internal/pipeline"
)

// unboundFilter has a parameter whose getter is not bound.
type unboundFilter struct {
	filter.Base
	Value int32
}

func newUnbound() *unboundFilter {
	f := &unboundFilter{Base: filter.NewBase("Unbound", "Unbound Filter"), Value: 7}
	f.SetParameters(parameter.NewInt32(
		parameter.Info{Label: "Value", PropertyName: "Value", Category: parameter.CategoryParameter},
		7,
		func(v int32) { f.Value = v },
		nil,
	))
	return f
}

func (f *unboundFilter) DataCheck(datastore.Store)                 {}
func (f *unboundFilter) Execute(context.Context, datastore.Store) {}

func samplePipeline(t *testing.T) *pipeline.Pipeline {
	t.Helper()

	container := builtin.NewCreateDataContainer()
	container.Container = model.NewPath("Foo", "", "")
	matrix := builtin.NewCreateAttributeMatrix()
	matrix.Matrix = model.NewPath("Foo", "AM", "")
	matrix.Tuples = 3
	array := builtin.NewCreateDataArray()
	array.Array = model.NewPath("Foo", "AM", "Arr")
	array.Initial = 2
	scale := builtin.NewScaleArray()
	scale.Selected = model.NewPath("Foo", "AM", "Arr")
	scale.Factor = 2.5
	scale.SetEnabled(false)

	p := pipeline.New(pipeline.WithName("sample"))
	if err := p.PushBack(container, matrix, array, scale); err != nil {
		t.Fatalf("PushBack: %v", err)
	}
	return p
}

func document(n int, entries map[int]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `{"PipelineBuilder": {"Name": "doc", "Version": "1", "Number_Filters": %d}`, n)
	for i := range n {
		if entry, ok := entries[i]; ok {
			fmt.Fprintf(&b, `, %q: %s`, fmt.Sprint(i), entry)
		}
	}
	b.WriteString("}")
	return b.String()
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	c := New(builtin.NewRegistry())
	original := samplePipeline(t)

	first, err := c.Write(original)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	decoded, messages, err := c.Read(first)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(messages) != 0 {
		t.Errorf("expected no messages, got %v", messages)
	}
	second, err := c.Write(decoded)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	if diff := cmp.Diff(string(first), string(second)); diff != "" {
		t.Errorf("document changed after a round trip (-first +second):\n%s", diff)
	}
	if decoded.Name() != "sample" {
		t.Errorf("expected name sample, got %q", decoded.Name())
	}
	if diff := cmp.Diff(original.FilterNames(), decoded.FilterNames()); diff != "" {
		t.Errorf("filter names differ (-want +got):\n%s", diff)
	}

	f, err := decoded.FilterAt(3)
	if err != nil {
		t.Fatalf("FilterAt: %v", err)
	}
	scale, ok := f.(*builtin.ScaleArray)
	if !ok {
		t.Fatalf("expected *builtin.ScaleArray, got %T", f)
	}
	if scale.Factor != 2.5 || scale.Enabled() {
		t.Errorf("unexpected scale filter factor=%v enabled=%v", scale.Factor, scale.Enabled())
	}
	want, _ := original.FilterAt(3)
	if scale.UUID() != want.Core().UUID() {
		t.Errorf("expected uuid %v, got %v", want.Core().UUID(), scale.UUID())
	}
}

func TestWriteLayout(t *testing.T) {
	t.Parallel()

	c := New(builtin.NewRegistry())

	t.Run("header comes first with the filter count", func(t *testing.T) {
		t.Parallel()

		data, err := c.Write(samplePipeline(t))
		if err != nil {
			t.Fatalf("Write: %v", err)
		}
		root, err := jsonobj.Parse(data)
		if err != nil {
			t.Fatalf("Parse: %v", err)
		}
		if diff := cmp.Diff([]string{"PipelineBuilder", "0", "1", "2", "3"}, root.Keys()); diff != "" {
			t.Errorf("unexpected keys (-want +got):\n%s", diff)
		}
		header, _, _ := root.Object(KeyPipelineBuilder)
		var n int
		if _, err := header.Decode(KeyNumberFilters, &n); err != nil || n != 4 {
			t.Errorf("expected 4 filters, got %d (%v)", n, err)
		}
		first, _, _ := root.Object("0")
		if diff := cmp.Diff(
			[]string{KeyFilterName, KeyFilterHumanLabel, KeyFilterEnabled, KeyFilterUUID, "CreatedDataContainer"},
			first.Keys(),
		); diff != "" {
			t.Errorf("unexpected filter keys (-want +got):\n%s", diff)
		}
	})

	t.Run("keys are padded beyond ten filters", func(t *testing.T) {
		t.Parallel()

		p := pipeline.New()
		for range 12 {
			if err := p.PushBack(builtin.NewCreateDataContainer()); err != nil {
				t.Fatalf("PushBack: %v", err)
			}
		}
		data, err := c.Write(p)
		if err != nil {
			t.Fatalf("Write: %v", err)
		}
		root, err := jsonobj.Parse(data)
		if err != nil {
			t.Fatalf("Parse: %v", err)
		}
		keys := root.Keys()
		if keys[1] != "00" || keys[12] != "11" {
			t.Errorf("expected padded keys, got %v", keys)
		}

		decoded, _, err := c.Read(data)
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		if decoded.Len() != 12 {
			t.Errorf("expected 12 filters, got %d", decoded.Len())
		}
	})

	t.Run("ten filters are not padded", func(t *testing.T) {
		t.Parallel()

		if got := indexKey(3, 10); got != "3" {
			t.Errorf("indexKey(3, 10) = %q", got)
		}
		if got := indexKey(3, 101); got != "003" {
			t.Errorf("indexKey(3, 101) = %q", got)
		}
	})
}

func TestReadUnknownFilter(t *testing.T) {
	t.Parallel()

	c := New(builtin.NewRegistry())

	t.Run("unknown name becomes a placeholder", func(t *testing.T) {
		t.Parallel()

		doc := document(3, map[int]string{
			0: `{"Filter_Name": "CreateDataContainer", "CreatedDataContainer": {"Data Container Name": "Foo"}}`,
			1: `{"Filter_Name": "FillArray"}`,
			2: `{"Filter_Name": "DoesNotExist", "Filter_Human_Label": "Mystery", "Extra": [1, 2]}`,
		})

		p, messages, err := c.Read([]byte(doc))
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		if p.Len() != 3 {
			t.Fatalf("expected 3 filters, got %d", p.Len())
		}
		f, _ := p.FilterAt(2)
		u, ok := f.(*filter.Unknown)
		if !ok {
			t.Fatalf("expected placeholder at slot 2, got %T", f)
		}
		if u.Name() != "DoesNotExist" || u.HumanLabel() != "Mystery" {
			t.Errorf("placeholder lost its identity: %q %q", u.Name(), u.HumanLabel())
		}

		errorCount := 0
		for _, m := range messages {
			if m.Type == model.MessageError {
				errorCount++
				if m.PipelineIndex != 2 || m.Code != ErrCodeUnknownFilter {
					t.Errorf("unexpected error message %v", m)
				}
			}
		}
		if errorCount != 1 {
			t.Errorf("expected exactly one error message, got %d: %v", errorCount, messages)
		}
	})

	t.Run("placeholder writes its original object back", func(t *testing.T) {
		t.Parallel()

		entry := `{"Filter_Name":"DoesNotExist","Extra":[1,2]}`
		p, _, err := c.Read([]byte(document(1, map[int]string{0: entry})))
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		data, err := c.Write(p)
		if err != nil {
			t.Fatalf("Write: %v", err)
		}
		root, _ := jsonobj.Parse(data)
		obj, _, _ := root.Object("0")
		var extra []int
		if _, err := obj.Decode("Extra", &extra); err != nil || len(extra) != 2 {
			t.Errorf("expected the extra field to survive, got %v (%v)", extra, err)
		}
	})

	t.Run("missing entry keeps the slot", func(t *testing.T) {
		t.Parallel()

		doc := document(2, map[int]string{0: `{"Filter_Name": "FillArray"}`})
		p, messages, err := c.Read([]byte(doc))
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		if p.Len() != 2 {
			t.Fatalf("expected 2 filters, got %d", p.Len())
		}
		if f, _ := p.FilterAt(1); f.Core().Index() != 1 {
			t.Errorf("expected placeholder at index 1, got %d", f.Core().Index())
		}
		if len(messages) != 1 || messages[0].PipelineIndex != 1 {
			t.Errorf("unexpected messages %v", messages)
		}
	})

	t.Run("missing filter name is reported", func(t *testing.T) {
		t.Parallel()

		p, messages, err := c.Read([]byte(document(1, map[int]string{0: `{"Filter_Human_Label": "Nameless"}`})))
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		if _, ok := p.Filters()[0].(*filter.Unknown); !ok {
			t.Errorf("expected a placeholder, got %T", p.Filters()[0])
		}
		if len(messages) != 1 || messages[0].Type != model.MessageError {
			t.Errorf("unexpected messages %v", messages)
		}
	})

	t.Run("placeholder fails preflight", func(t *testing.T) {
		t.Parallel()

		p, _, err := c.Read([]byte(document(1, map[int]string{0: `{"Filter_Name": "DoesNotExist"}`})))
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		if got := p.Preflight(context.Background(), datastore.NewMemory()); got != 1 {
			t.Errorf("expected 1 preflight error, got %d", got)
		}
	})
}

func TestReadMissingEntries(t *testing.T) {
	t.Parallel()

	c := New(builtin.NewRegistry())

	t.Run("accepts up to MaxMissingFilters omitted entries", func(t *testing.T) {
		t.Parallel()

		doc := document(MaxMissingFilters+1, map[int]string{0: `{"Filter_Name": "FillArray"}`})
		p, messages, err := c.Read([]byte(doc))
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		if p.Len() != MaxMissingFilters+1 {
			t.Fatalf("expected %d filters, got %d", MaxMissingFilters+1, p.Len())
		}
		if len(messages) != MaxMissingFilters {
			t.Errorf("expected %d messages, got %d", MaxMissingFilters, len(messages))
		}
		for i, f := range p.Filters() {
			if f.Core().Index() != i {
				t.Errorf("filter %d has index %d", i, f.Core().Index())
			}
		}
	})

	t.Run("rejects one more omitted entry", func(t *testing.T) {
		t.Parallel()

		doc := document(MaxMissingFilters+2, map[int]string{0: `{"Filter_Name": "FillArray"}`})
		if _, _, err := c.Read([]byte(doc)); !errors.Is(err, ErrInvalidFilterCount) {
			t.Errorf("expected ErrInvalidFilterCount, got %v", err)
		}
	})

	t.Run("reads a large document in one pass", func(t *testing.T) {
		t.Parallel()

		const n = 20000
		entries := make(map[int]string, n)
		for i := range n {
			entries[i] = `{"Filter_Name": "FillArray"}`
		}
		start := time.Now()
		p, _, err := c.Read([]byte(document(n, entries)))
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		if p.Len() != n {
			t.Fatalf("expected %d filters, got %d", n, p.Len())
		}
		if elapsed := time.Since(start); elapsed > 10*time.Second {
			t.Errorf("reading %d filters took %v", n, elapsed)
		}
	})
}

func TestReadPaddedKeys(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	b.WriteString(`{"PipelineBuilder": {"Name": "padded", "Number_Filters": 11}`)
	for i := range 11 {
		fmt.Fprintf(&b, `, "%02d": {"Filter_Name": "FillArray", "FillValue": %d}`, i, i)
	}
	b.WriteString("}")

	p, messages, err := New(builtin.NewRegistry()).Read([]byte(b.String()))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(messages) != 0 {
		t.Errorf("expected no messages, got %v", messages)
	}
	for i, f := range p.Filters() {
		fill, ok := f.(*builtin.FillArray)
		if !ok {
			t.Fatalf("filter %d: expected *builtin.FillArray, got %T", i, f)
		}
		if fill.Value != float64(i) {
			t.Errorf("filter %d: expected value %d, got %v", i, i, fill.Value)
		}
	}
}

func TestReadMalformed(t *testing.T) {
	t.Parallel()

	c := New(builtin.NewRegistry())
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{name: "truncated json", doc: `{"PipelineBuilder": {`, want: ErrMalformedDocument},
		{name: "not an object", doc: `[1, 2]`, want: ErrMalformedDocument},
		{name: "missing header", doc: `{"0": {}}`, want: ErrMissingHeader},
		{name: "header not an object", doc: `{"PipelineBuilder": 3}`, want: ErrInvalidHeader},
		{name: "missing count", doc: `{"PipelineBuilder": {"Name": "x"}}`, want: ErrInvalidFilterCount},
		{name: "count not a number", doc: `{"PipelineBuilder": {"Number_Filters": "two"}}`, want: ErrInvalidFilterCount},
		{name: "negative count", doc: `{"PipelineBuilder": {"Number_Filters": -1}}`, want: ErrInvalidFilterCount},
		{name: "count far beyond the entries", doc: `{"PipelineBuilder": {"Name": "x", "Version": "1", "Number_Filters": 2000000}}`, want: ErrInvalidFilterCount},
		{name: "filter entry not an object", doc: `{"PipelineBuilder": {"Number_Filters": 1}, "0": "x"}`, want: ErrMalformedDocument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p, messages, err := c.Read([]byte(tt.doc))
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
			if p != nil || messages != nil {
				t.Error("expected no pipeline and no messages")
			}
		})
	}
}

func TestReadParameters(t *testing.T) {
	t.Parallel()

	c := New(builtin.NewRegistry())

	t.Run("type mismatch warns and keeps the default", func(t *testing.T) {
		t.Parallel()

		doc := document(1, map[int]string{0: `{"Filter_Name": "ScaleArray", "ScaleFactor": "big"}`})
		p, messages, err := c.Read([]byte(doc))
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		if scale := p.Filters()[0].(*builtin.ScaleArray); scale.Factor != 1 {
			t.Errorf("expected default factor 1, got %v", scale.Factor)
		}
		if len(messages) != 1 || messages[0].Type != model.MessageWarning || messages[0].Code != WarnCodeParameter {
			t.Errorf("unexpected messages %v", messages)
		}
	})

	t.Run("out of range integer is ignored", func(t *testing.T) {
		t.Parallel()

		doc := document(1, map[int]string{0: `{"Filter_Name": "CreateDataArray", "NumberOfComponents": 99999999999}`})
		p, messages, err := c.Read([]byte(doc))
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		if array := p.Filters()[0].(*builtin.CreateDataArray); array.Components != 1 {
			t.Errorf("expected default components 1, got %d", array.Components)
		}
		if len(messages) != 0 {
			t.Errorf("expected no messages, got %v", messages)
		}
	})

	t.Run("invalid uuid warns", func(t *testing.T) {
		t.Parallel()

		doc := document(1, map[int]string{0: `{"Filter_Name": "FillArray", "Filter_Uuid": "nope"}`})
		_, messages, err := c.Read([]byte(doc))
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		if len(messages) != 1 || messages[0].Type != model.MessageWarning {
			t.Errorf("unexpected messages %v", messages)
		}
	})
}

func TestUnboundGetter(t *testing.T) {
	t.Parallel()

	registry := filter.NewRegistry()
	registry.MustRegister("Unbound", func() filter.Filter { return newUnbound() })
	c := New(registry)

	f := newUnbound()
	f.Value = 42
	p := pipeline.New()
	if err := p.PushBack(f); err != nil {
		t.Fatalf("PushBack: %v", err)
	}

	data, err := c.Write(p)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if strings.Contains(string(data), `"Value"`) {
		t.Errorf("expected the unbound field to be omitted:\n%s", data)
	}
	if strings.Contains(string(data), "null") {
		t.Errorf("expected no null values:\n%s", data)
	}

	decoded, _, err := c.Read(data)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got := decoded.Filters()[0].(*unboundFilter).Value; got != 7 {
		t.Errorf("expected the default 7 to be kept, got %d", got)
	}
}

func TestFiles(t *testing.T) {
	t.Parallel()

	c := New(builtin.NewRegistry())
	path := filepath.Join(t.TempDir(), "pipeline.json")

	if err := c.WriteFile(path, samplePipeline(t)); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	p, _, err := c.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if p.Len() != 4 {
		t.Errorf("expected 4 filters, got %d", p.Len())
	}

	if _, _, err := c.ReadFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestFingerprint(t *testing.T) {
	t.Parallel()

	a := Fingerprint([]byte(`{"a": 1}`))
	if len(a) != 64 {
		t.Errorf("expected 64 hex characters, got %d", len(a))
	}
	if a != Fingerprint([]byte(`{"a": 1}`)) {
		t.Error("expected a stable fingerprint")
	}
	if a == Fingerprint([]byte(`{"a": 2}`)) {
		t.Error("expected different documents to differ")
	}
}

func TestOverrides(t *testing.T) {
	t.Parallel()

	t.Run("disables and sets parameters", func(t *testing.T) {
		t.Parallel()

		p := samplePipeline(t)
		o := Overrides{
			Disabled: []int{0},
			Parameters: map[int]map[string]any{
				3: {"ScaleFactor": 4, "Missing": true},
				2: {"NewArray": map[string]any{
					"Data Container Name":   "Foo",
					"Attribute Matrix Name": "AM",
					"Data Array Name":       "Other",
				}},
			},
		}

		messages, err := o.Apply(p)
		if err != nil {
			t.Fatalf("Apply: %v", err)
		}
		filters := p.Filters()
		if filters[0].Core().Enabled() {
			t.Error("expected filter 0 to be disabled")
		}
		if got := filters[3].(*builtin.ScaleArray).Factor; got != 4 {
			t.Errorf("expected factor 4, got %v", got)
		}
		if got := filters[2].(*builtin.CreateDataArray).Array; !got.Equal(model.NewPath("Foo", "AM", "Other")) {
			t.Errorf("unexpected array path %v", got)
		}
		if len(messages) != 1 || messages[0].PipelineIndex != 3 {
			t.Errorf("expected one warning for the unknown key, got %v", messages)
		}
	})

	t.Run("index outside the pipeline fails", func(t *testing.T) {
		t.Parallel()

		_, err := Overrides{Disabled: []int{9}}.Apply(samplePipeline(t))
		if !errors.Is(err, pipeline.ErrIndexOutOfRange) {
			t.Errorf("expected ErrIndexOutOfRange, got %v", err)
		}
	})

	t.Run("zero value changes nothing", func(t *testing.T) {
		t.Parallel()

		if !(Overrides{}).IsZero() {
			t.Error("expected zero overrides")
		}
	})
}
