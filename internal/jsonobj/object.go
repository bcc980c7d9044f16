// Package jsonobj provides a JSON object that keeps its keys in order.
//
// Pipeline documents are read and written by humans and diffed in
// version control, so the writer emits keys in insertion order and the
// reader remembers the order they appeared in.
package jsonobj

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotObject is returned when decoding a JSON value that is not an object.
var ErrNotObject = errors.New("json value is not an object")

// Object is an ordered JSON object. The zero value is ready to use.
type Object struct {
	keys   []string
	values map[string]json.RawMessage
}

// New returns an empty object.
func New() *Object {
	return &Object{values: make(map[string]json.RawMessage)}
}

// Parse decodes data into a new object.
func Parse(data []byte) (*Object, error) {
	o := New()
	if err := o.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return o, nil
}

// Set encodes v and stores it under key. A new key is appended; an
// existing key keeps its position.
func (o *Object) Set(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %q: %w", key, err)
	}
	o.SetRaw(key, raw)
	return nil
}

// SetRaw stores already-encoded JSON under key.
func (o *Object) SetRaw(key string, raw json.RawMessage) {
	if o.values == nil {
		o.values = make(map[string]json.RawMessage)
	}
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = raw
}

// Get returns the raw value stored under key.
func (o *Object) Get(key string) (json.RawMessage, bool) {
	raw, ok := o.values[key]
	return raw, ok
}

// Has reports whether key is present.
func (o *Object) Has(key string) bool {
	_, ok := o.values[key]
	return ok
}

// Decode unmarshals the value under key into dst. It reports false
// without touching dst when the key is absent.
func (o *Object) Decode(key string, dst any) (bool, error) {
	raw, ok := o.values[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return true, fmt.Errorf("failed to decode %q: %w", key, err)
	}
	return true, nil
}

// Object returns the nested object stored under key.
func (o *Object) Object(key string) (*Object, bool, error) {
	raw, ok := o.values[key]
	if !ok {
		return nil, false, nil
	}
	child, err := Parse(raw)
	if err != nil {
		return nil, true, fmt.Errorf("failed to decode %q: %w", key, err)
	}
	return child, true, nil
}

// Delete removes key.
func (o *Object) Delete(key string) {
	if _, ok := o.values[key]; !ok {
		return
	}
	delete(o.values, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in order.
func (o *Object) Keys() []string {
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

// Len returns the number of keys.
func (o *Object) Len() int {
	return len(o.keys)
}

// Clone returns a copy that shares no state with o.
func (o *Object) Clone() *Object {
	c := New()
	for _, k := range o.keys {
		raw := make(json.RawMessage, len(o.values[k]))
		copy(raw, o.values[k])
		c.SetRaw(k, raw)
	}
	return c
}

// MarshalJSON writes the keys in order.
func (o *Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		raw := o.values[k]
		if len(raw) == 0 {
			raw = json.RawMessage("null")
		}
		buf.Write(raw)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object, remembering key order. Duplicate keys
// keep their first position and their last value.
func (o *Object) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return ErrNotObject
	}

	o.keys = nil
	o.values = make(map[string]json.RawMessage)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected token %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("failed to read %q: %w", key, err)
		}
		o.SetRaw(key, raw)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after object")
	}
	return nil
}
