package parameter

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"

	"github.com/nao1215/filterpipe/internal/jsonobj"
)

// Int32 is a 32-bit integer parameter. Document values outside the
// int32 range are ignored.
type Int32 struct {
	identity
	binding[int32]
}

var _ Parameter = (*Int32)(nil)

// NewInt32 returns an Int32 parameter bound through set and get.
func NewInt32(info Info, def int32, set func(int32), get func() int32) *Int32 {
	return &Int32{identity: identity{info: info}, binding: binding[int32]{def: def, set: set, get: get}}
}

// TypeName implements Parameter.
func (p *Int32) TypeName() string { return "Int32" }

// ReadJSON implements Parameter.
func (p *Int32) ReadJSON(obj *jsonobj.Object) error {
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
	if !inRange || v < math.MinInt32 || v > math.MaxInt32 {
		return nil
	}
	p.Set(int32(v))
	return nil
}

// WriteJSON implements Parameter.
func (p *Int32) WriteJSON(obj *jsonobj.Object) error {
	return p.write(obj, p.PropertyName())
}

// Double is a float64 parameter. Literals too large for a float64 are ignored.
type Double struct {
	identity
	binding[float64]
}

var _ Parameter = (*Double)(nil)

// NewDouble returns a Double parameter bound through set and get.
func NewDouble(info Info, def float64, set func(float64), get func() float64) *Double {
	return &Double{identity: identity{info: info}, binding: binding[float64]{def: def, set: set, get: get}}
}

// TypeName implements Parameter.
func (p *Double) TypeName() string { return "Double" }

// ReadJSON implements Parameter.
func (p *Double) ReadJSON(obj *jsonobj.Object) error {
	raw, ok := obj.Get(p.PropertyName())
	if !ok {
		return nil
	}
	n, err := decodeNumber(raw)
	if err != nil {
		return p.decodeError(p.TypeName(), err)
	}

	v, err := strconv.ParseFloat(n.String(), 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return nil
		}
		return p.decodeError(p.TypeName(), err)
	}
	p.Set(v)
	return nil
}

// WriteJSON implements Parameter.
func (p *Double) WriteJSON(obj *jsonobj.Object) error {
	return p.write(obj, p.PropertyName())
}

func decodeNumber(raw json.RawMessage) (json.Number, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return "", err
	}
	n, ok := v.(json.Number)
	if !ok {
		return "", ErrTypeMismatch
	}
	return n, nil
}

// parseInteger converts n to an int64. inRange is false for integral
// values beyond int64; fractional values are an error.
func parseInteger(n json.Number) (v int64, inRange bool, err error) {
	v, err = strconv.ParseInt(n.String(), 10, 64)
	if err == nil {
		return v, true, nil
	}
	if errors.Is(err, strconv.ErrRange) {
		return 0, false, nil
	}

	f, ferr := strconv.ParseFloat(n.String(), 64)
	if ferr != nil {
		if errors.Is(ferr, strconv.ErrRange) {
			return 0, false, nil
		}
		return 0, false, ferr
	}
	if f != math.Trunc(f) {
		return 0, false, ErrTypeMismatch
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false, nil
	}
	return int64(f), true, nil
}
