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


// Package cdftest writes NetCDF classic files for tests.
package cdftest

import (
	"fmt"
	"reflect"

	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/batchatco/go-native-netcdf/netcdf/cdf"
	"github.com/batchatco/go-native-netcdf/netcdf/util"
	"github.com/poiesic/floatchat/dataset"
)

// Attr is a named attribute value. Supported values are string, float64,
// float32, int, int16 and []float64.
type Attr struct {
	Name  string
	Value any
}

// A is shorthand for Attr{name, value}.
func A(name string, value any) Attr { return Attr{Name: name, Value: value} }

type variable struct {
	name   string
	dims   []string
	values any
	attrs  []Attr
}

// File accumulates the contents of a classic file.
type File struct {
	dims  map[string]int
	attrs []Attr
	vars  []variable
	err   error
}

// New returns an empty file.
func New() *File { return &File{dims: map[string]int{}} }

// Dim declares a dimension. Variables spanning it must match its length.
func (f *File) Dim(name string, length int) *File {
	f.dims[name] = length
	return f
}

// Attr adds a global attribute.
func (f *File) Attr(name string, value any) *File {
	f.attrs = append(f.attrs, Attr{Name: name, Value: value})
	return f
}

// Var adds a numeric variable. values are given in row-major order and
// stored as typ; a variable without dims is a scalar.
func (f *File) Var(name string, typ dataset.Type, dims []string, values []float64, attrs ...Attr) *File {
	shape, err := f.shape(name, dims)
	if err == nil {
		var nested any
		nested, err = nest(values, shape, typ)
		f.vars = append(f.vars, variable{name: name, dims: dims, values: nested, attrs: attrs})
	}
	if f.err == nil && err != nil {
		f.err = err
	}
	return f
}

// Text adds a char variable over one or two dimensions whose last
// dimension is the string length. text holds the rows back to back.
func (f *File) Text(name string, dims []string, text string, attrs ...Attr) *File {
	shape, err := f.shape(name, dims)
	if err == nil && (len(shape) == 0 || len(shape) > 2 || len(text) != count(shape)) {
		err = fmt.Errorf("variable %s: %d characters for shape %v", name, len(text), shape)
	}
	if err != nil {
		if f.err == nil {
			f.err = err
		}
		return f
	}

	var values any = text
	if len(shape) == 2 {
		rows := make([]string, shape[0])
		for i := range rows {
			rows[i] = text[i*shape[1] : (i+1)*shape[1]]
		}
		values = rows
	}
	f.vars = append(f.vars, variable{name: name, dims: dims, values: values, attrs: attrs})
	return f
}

func (f *File) shape(name string, dims []string) ([]int, error) {
	shape := make([]int, len(dims))
	for i, d := range dims {
		n, ok := f.dims[d]
		if !ok {
			return nil, fmt.Errorf("variable %s: unknown dimension %s", name, d)
		}
		shape[i] = n
	}
	return shape, nil
}

// WriteFile writes the file to path.
func (f *File) WriteFile(path string) error {
	if f.err != nil {
		return f.err
	}
	cw, err := cdf.OpenWriter(path)
	if err != nil {
		return err
	}

	if len(f.attrs) > 0 {
		globals, err := attributeMap(f.attrs)
		if err != nil {
			cw.Close()
			return err
		}
		if err := cw.AddGlobalAttrs(globals); err != nil {
			cw.Close()
			return err
		}
	}
	for _, v := range f.vars {
		attrs, err := attributeMap(v.attrs)
		if err != nil {
			cw.Close()
			return err
		}
		err = cw.AddVar(v.name, api.Variable{Values: v.values, Dimensions: v.dims, Attributes: attrs})
		if err != nil {
			cw.Close()
			return fmt.Errorf("variable %s: %w", v.name, err)
		}
	}
	return cw.Close()
}

func attributeMap(attrs []Attr) (*util.OrderedMap, error) {
	keys := make([]string, 0, len(attrs))
	values := make(map[string]any, len(attrs))
	for _, a := range attrs {
		keys = append(keys, a.Name)
		switch x := a.Value.(type) {
		case string, float64, float32, int16, []float64:
			values[a.Name] = x
		case int:
			values[a.Name] = int32(x)
		default:
			return nil, fmt.Errorf("attribute %s: unsupported value %T", a.Name, a.Value)
		}
	}
	return util.NewOrderedMap(keys, values)
}

var goTypes = map[dataset.Type]reflect.Type{
	dataset.Byte:   reflect.TypeFor[int8](),
	dataset.Short:  reflect.TypeFor[int16](),
	dataset.Int:    reflect.TypeFor[int32](),
	dataset.Float:  reflect.TypeFor[float32](),
	dataset.Double: reflect.TypeFor[float64](),
	dataset.UByte:  reflect.TypeFor[uint8](),
	dataset.UShort: reflect.TypeFor[uint16](),
	dataset.UInt:   reflect.TypeFor[uint32](),
	dataset.Int64:  reflect.TypeFor[int64](),
	dataset.UInt64: reflect.TypeFor[uint64](),
}

// nest converts row-major values into a scalar or into slices nested once
// per dimension, the form the writer takes.
func nest(values []float64, shape []int, typ dataset.Type) (any, error) {
	elem, ok := goTypes[typ]
	if !ok {
		return nil, fmt.Errorf("unsupported type %v", typ)
	}
	if len(values) != count(shape) {
		return nil, fmt.Errorf("%d values for shape %v", len(values), shape)
	}
	if len(shape) == 0 {
		return reflect.ValueOf(values[0]).Convert(elem).Interface(), nil
	}
	t := elem
	for range shape {
		t = reflect.SliceOf(t)
	}
	return build(values, shape, t).Interface(), nil
}

func build(values []float64, shape []int, t reflect.Type) reflect.Value {
	n := shape[0]
	out := reflect.MakeSlice(t, n, n)
	if len(shape) == 1 {
		for i := range n {
			out.Index(i).Set(reflect.ValueOf(values[i]).Convert(t.Elem()))
		}
		return out
	}
	stride := count(shape[1:])
	for i := range n {
		out.Index(i).Set(build(values[i*stride:(i+1)*stride], shape[1:], t.Elem()))
	}
	return out
}

func count(shape []int) int {
	n := 1
	for _, s := range shape {
		n *= s
	}
	return n
}
