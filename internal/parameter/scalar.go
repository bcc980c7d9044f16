package parameter

import (
	"github.com/nao1215/filterpipe/internal/jsonobj"
)

// Bool is a boolean parameter.
type Bool struct {
	identity
	binding[bool]
}

var _ Parameter = (*Bool)(nil)

// NewBool returns a Bool parameter bound through set and get.
func NewBool(info Info, def bool, set func(bool), get func() bool) *Bool {
	return &Bool{identity: identity{info: info}, binding: binding[bool]{def: def, set: set, get: get}}
}

// TypeName implements Parameter.
func (p *Bool) TypeName() string { return "Bool" }

// ReadJSON implements Parameter.
func (p *Bool) ReadJSON(obj *jsonobj.Object) error {
	v, found, err := decodeValue[bool](obj, p.PropertyName())
	if err != nil {
		return p.decodeError(p.TypeName(), err)
	}
	if found {
		p.Set(v)
	}
	return nil
}

// WriteJSON implements Parameter.
func (p *Bool) WriteJSON(obj *jsonobj.Object) error {
	return p.write(obj, p.PropertyName())
}

// String is a free-text parameter.
type String struct {
	identity
	binding[string]
}

var _ Parameter = (*String)(nil)

// NewString returns a String parameter bound through set and get.
func NewString(info Info, def string, set func(string), get func() string) *String {
	return &String{identity: identity{info: info}, binding: binding[string]{def: def, set: set, get: get}}
}

// TypeName implements Parameter.
func (p *String) TypeName() string { return "String" }

// ReadJSON implements Parameter.
func (p *String) ReadJSON(obj *jsonobj.Object) error {
	v, found, err := decodeValue[string](obj, p.PropertyName())
	if err != nil {
		return p.decodeError(p.TypeName(), err)
	}
	if found {
		p.Set(v)
	}
	return nil
}

// WriteJSON implements Parameter.
func (p *String) WriteJSON(obj *jsonobj.Object) error {
	return p.write(obj, p.PropertyName())
}

// Choice selects one of a fixed list of options by index. Indices
// outside the list are ignored on read.
type Choice struct {
	identity
	binding[int]
	choices []string
}

var _ Parameter = (*Choice)(nil)

// NewChoice returns a Choice parameter over choices, bound through set and get.
func NewChoice(info Info, choices []string, def int, set func(int), get func() int) *Choice {
	return &Choice{
		identity: identity{info: info},
		binding:  binding[int]{def: def, set: set, get: get},
		choices:  append([]string(nil), choices...),
	}
}

// TypeName implements Parameter.
func (p *Choice) TypeName() string { return "Choice" }

// Choices returns the option labels.
func (p *Choice) Choices() []string {
	return append([]string(nil), p.choices...)
}

// Selected returns the label of the current choice, or "" when the index
// is out of range.
func (p *Choice) Selected() string {
	i := p.Get()
	if i < 0 || i >= len(p.choices) {
		return ""
	}
	return p.choices[i]
}

// ReadJSON implements Parameter.
func (p *Choice) ReadJSON(obj *jsonobj.Object) error {
	raw, ok := obj.Get(p.PropertyName())
	if !ok {
		return nil
	}
	n, err := decodeNumber(raw)
	if err != nil {
		return p.decodeError(p.TypeName(), err)
	}
	v, inRange, err := parseInteger(n)
	if err != nil {
		return p.decodeError(p.TypeName(), err)
	}
	if !inRange || v < 0 || v >= int64(len(p.choices)) {
		return nil
	}
	p.Set(int(v))
	return nil
}

// WriteJSON implements Parameter.
func (p *Choice) WriteJSON(obj *jsonobj.Object) error {
	return p.write(obj, p.PropertyName())
}
