// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package dataset

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/batchatco/go-native-netcdf/netcdf/api"
)

var errUnsupportedType = errors.New("unsupported element type")

// fromGroup copies the root group of a decoded file into a Dataset.
// Dimension lengths are recovered from the shapes of the variables that
// span them, in the order the variables first mention them.
func fromGroup(g api.Group, version int) (*Dataset, error) {
	ds := &Dataset{Version: version, Attrs: attributes(g.Attributes())}
	index := map[string]int{}
	// Lengths of string dimensions are guessed from the longest value and
	// give way to any numeric variable spanning the same dimension.
	guessed := map[string]bool{}

	for _, name := range g.ListVariables() {
		av, err := g.GetVariable(name)
		if err != nil {
			return nil, fmt.Errorf("%w: variable %q: %v", ErrMalformed, name, err)
		}
		v, err := newVariable(name, av)
		if errors.Is(err, errUnsupportedType) {
			ds.Unsupported = append(ds.Unsupported, name)
			continue
		}
		if err != nil {
			return nil, err
		}

		for i, d := range v.Dims {
			n := v.Shape[i]
			width := !v.IsNumeric() && i == len(v.Dims)-1
			j, seen := index[d]
			switch {
			case !seen:
				index[d] = len(ds.Dims)
				ds.Dims = append(ds.Dims, Dimension{Name: d, Len: n})
				guessed[d] = width
			case guessed[d] && !width:
				ds.Dims[j].Len = n
				guessed[d] = false
			case !guessed[d] && !width && ds.Dims[j].Len != n:
				return nil, fmt.Errorf("%w: dimension %q has length %d in %q but %d elsewhere",
					ErrMalformed, d, n, name, ds.Dims[j].Len)
			}
		}
		ds.Vars = append(ds.Vars, v)
	}
	return ds, nil
}

// newVariable converts decoded values, which arrive as a scalar or as
// slices nested once per dimension, into row-major form. Char variables
// arrive as strings whose length is the last dimension.
func newVariable(name string, av *api.Variable) (*Variable, error) {
	v := &Variable{Name: name, Dims: av.Dimensions, Attrs: attributes(av.Attributes)}

	rv := reflect.ValueOf(av.Values)
	if !rv.IsValid() {
		return nil, fmt.Errorf("variable %q: %w", name, errUnsupportedType)
	}
	typ, ok := typeOf(rv.Type())
	if !ok {
		return nil, fmt.Errorf("variable %q: %w %s", name, errUnsupportedType, rv.Type())
	}
	v.Type = typ

	width := 0
	if err := v.collect(rv, 0, &width); err != nil {
		return nil, err
	}
	if typ == Char && len(v.Dims) > len(v.Shape) {
		v.Shape = append(v.Shape, width)
	}

	switch {
	case len(v.Dims) == 0 && v.Len() == 1:
		// A scalar may arrive wrapped in a one-element slice.
		v.Shape = nil
	case len(v.Shape) < len(v.Dims) && len(v.values) == 0 && len(v.text) == 0:
		for len(v.Shape) < len(v.Dims) {
			v.Shape = append(v.Shape, 0)
		}
	case len(v.Shape) != len(v.Dims):
		return nil, fmt.Errorf("%w: variable %q has %d dimensions but rank %d data",
			ErrMalformed, name, len(v.Dims), len(v.Shape))
	}

	if v.IsNumeric() {
		unpack(v)
	}
	return v, nil
}

// collect appends the leaves of rv in row-major order, recording the
// length of each nesting level in Shape.
func (v *Variable) collect(rv reflect.Value, depth int, width *int) error {
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		n := rv.Len()
		if depth == len(v.Shape) {
			v.Shape = append(v.Shape, n)
		} else if depth > len(v.Shape) || v.Shape[depth] != n {
			return fmt.Errorf("%w: variable %q is ragged", ErrMalformed, v.Name)
		}
		for i := range n {
			if err := v.collect(rv.Index(i), depth+1, width); err != nil {
				return err
			}
		}
	case reflect.String:
		s := rv.String()
		*width = max(*width, len(s))
		v.text = append(v.text, trimText(s))
	default:
		x, ok := number(rv)
		if !ok {
			return fmt.Errorf("variable %q: %w %s", v.Name, errUnsupportedType, rv.Type())
		}
		v.values = append(v.values, x)
	}
	return nil
}

// typeOf maps the innermost element type of t to a Type.
func typeOf(t reflect.Type) (Type, bool) {
	for t.Kind() == reflect.Slice || t.Kind() == reflect.Array {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Int8:
		return Byte, true
	case reflect.String:
		return Char, true
	case reflect.Int16:
		return Short, true
	case reflect.Int32:
		return Int, true
	case reflect.Float32:
		return Float, true
	case reflect.Float64:
		return Double, true
	case reflect.Uint8:
		return UByte, true
	case reflect.Uint16:
		return UShort, true
	case reflect.Uint32:
		return UInt, true
	case reflect.Int64:
		return Int64, true
	case reflect.Uint64:
		return UInt64, true
	}
	return 0, false
}

func number(rv reflect.Value) (float64, bool) {
	switch rv.Kind() {
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64, reflect.Int:
		return float64(rv.Int()), true
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uint:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

// attributes converts an attribute map, keeping its key order. Values the
// model cannot represent are dropped.
func attributes(m api.AttributeMap) Attributes {
	if m == nil {
		return nil
	}
	keys := m.Keys()
	out := make(Attributes, 0, len(keys))
	for _, key := range keys {
		val, ok := m.Get(key)
		if !ok {
			continue
		}
		if a, ok := attribute(key, val); ok {
			out = append(out, a)
		}
	}
	return out
}

func attribute(name string, val any) (Attribute, bool) {
	rv := reflect.ValueOf(val)
	if !rv.IsValid() {
		return Attribute{}, false
	}
	typ, ok := typeOf(rv.Type())
	if !ok {
		return Attribute{}, false
	}
	a := Attribute{Name: name, Type: typ}

	if typ == Char {
		switch x := val.(type) {
		case string:
			a.Text = trimText(x)
		case []string:
			a.Text = trimText(strings.Join(x, ""))
		default:
			return Attribute{}, false
		}
		return a, true
	}

	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		x, _ := number(rv)
		a.Values = []float64{x}
		return a, true
	}
	a.Values = make([]float64, 0, rv.Len())
	for i := range rv.Len() {
		x, ok := number(rv.Index(i))
		if !ok {
			return Attribute{}, false
		}
		a.Values = append(a.Values, x)
	}
	return a, true
}

// unpack masks _FillValue and missing_value entries as NaN and applies
// scale_factor and add_offset.
func unpack(v *Variable) {
	var masks []float64
	for _, key := range []string{"_FillValue", "missing_value"} {
		if a, ok := v.Attrs.Get(key); ok && a.Type != Char {
			masks = append(masks, a.Values...)
		}
	}
	scale, hasScale := v.Attrs.Number("scale_factor")
	offset, hasOffset := v.Attrs.Number("add_offset")

	for i, x := range v.values {
		for _, m := range masks {
			if x == m {
				x = math.NaN()
				break
			}
		}
		if hasScale {
			x *= scale
		}
		if hasOffset {
			x += offset
		}
		v.values[i] = x
	}
}
