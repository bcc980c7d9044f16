package jsonobj

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestObjectOrder(t *testing.T) {
	t.Parallel()

	t.Run("marshals keys in insertion order", func(t *testing.T) {
		t.Parallel()

		o := New()
		for _, k := range []string{"z", "a", "m"} {
			if err := o.Set(k, k); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}

		data, err := json.Marshal(o)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(data) != `{"z":"z","a":"a","m":"m"}` {
			t.Errorf("got %s", data)
		}
	})

	t.Run("overwriting keeps position", func(t *testing.T) {
		t.Parallel()

		o := New()
		_ = o.Set("a", 1)
		_ = o.Set("b", 2)
		_ = o.Set("a", 3)

		data, _ := o.MarshalJSON()
		if string(data) != `{"a":3,"b":2}` {
			t.Errorf("got %s", data)
		}
	})

	t.Run("unmarshal keeps document order", func(t *testing.T) {
		t.Parallel()

		o, err := Parse([]byte(`{"b": 1, "a": {"x": true}, "c": [1,2]}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff([]string{"b", "a", "c"}, o.Keys()); diff != "" {
			t.Errorf("keys mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestObjectAccess(t *testing.T) {
	t.Parallel()

	o, err := Parse([]byte(`{"n": 5, "child": {"k": "v"}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Run("decode present key", func(t *testing.T) {
		t.Parallel()

		var n int
		found, err := o.Decode("n", &n)
		if err != nil || !found || n != 5 {
			t.Errorf("got found=%v n=%d err=%v", found, n, err)
		}
	})

	t.Run("decode absent key leaves destination", func(t *testing.T) {
		t.Parallel()

		n := 7
		found, err := o.Decode("missing", &n)
		if err != nil || found || n != 7 {
			t.Errorf("got found=%v n=%d err=%v", found, n, err)
		}
	})

	t.Run("decode type mismatch", func(t *testing.T) {
		t.Parallel()

		var s string
		found, err := o.Decode("n", &s)
		if !found || err == nil {
			t.Errorf("expected decode error, got found=%v err=%v", found, err)
		}
	})

	t.Run("nested object", func(t *testing.T) {
		t.Parallel()

		child, found, err := o.Object("child")
		if err != nil || !found {
			t.Fatalf("got found=%v err=%v", found, err)
		}
		if !child.Has("k") {
			t.Error("expected child to have k")
		}
		if _, _, err := o.Object("n"); !errors.Is(err, ErrNotObject) {
			t.Errorf("expected ErrNotObject, got %v", err)
		}
	})
}

func TestObjectDeleteAndClone(t *testing.T) {
	t.Parallel()

	o := New()
	_ = o.Set("a", 1)
	_ = o.Set("b", 2)
	_ = o.Set("c", 3)

	c := o.Clone()
	o.Delete("b")
	o.Delete("missing")

	if diff := cmp.Diff([]string{"a", "c"}, o.Keys()); diff != "" {
		t.Errorf("keys mismatch (-want +got):\n%s", diff)
	}
	if c.Len() != 3 || !c.Has("b") {
		t.Error("expected clone to be unaffected by delete")
	}
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"array input":      `[1, 2]`,
		"truncated object": `{"a": 1`,
		"trailing data":    `{"a": 1} {"b": 2}`,
		"bad value":        `{"a": }`,
		"empty input":      ``,
	}

	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			if _, err := Parse([]byte(input)); err == nil {
				t.Errorf("expected error for %q", input)
			}
		})
	}
}
