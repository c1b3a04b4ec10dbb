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
	"strconv"
	"strings"
)

// Type is the element type of a variable or attribute. The values are the
// classic format type codes.
type Type int

const (
	Byte   Type = 1
	Char   Type = 2
	Short  Type = 3
	Int    Type = 4
	Float  Type = 5
	Double Type = 6
	UByte  Type = 7
	UShort Type = 8
	UInt   Type = 9
	Int64  Type = 10
	UInt64 Type = 11
)

// Size returns the encoded size of one element, or 0 for unknown types.
func (t Type) Size() int {
	switch t {
	case Byte, Char, UByte:
		return 1
	case Short, UShort:
		return 2
	case Int, Float, UInt:
		return 4
	case Double, Int64, UInt64:
		return 8
	}
	return 0
}

func (t Type) String() string {
	switch t {
	case Byte:
		return "byte"
	case Char:
		return "char"
	case Short:
		return "short"
	case Int:
		return "int"
	case Float:
		return "float"
	case Double:
		return "double"
	case UByte:
		return "ubyte"
	case UShort:
		return "ushort"
	case UInt:
		return "uint"
	case Int64:
		return "int64"
	case UInt64:
		return "uint64"
	}
	return "type(" + strconv.Itoa(int(t)) + ")"
}

// Dimension is a named axis. Lengths are taken from the variables that
// span it.
type Dimension struct {
	Name string
	Len  int
}

// Attribute is a named piece of metadata. Char attributes carry Text;
// all others carry Values.
type Attribute struct {
	Name   string
	Type   Type
	Text   string
	Values []float64
}

// String renders the attribute as text. Numeric attributes are joined
// with commas.
func (a Attribute) String() string {
	if a.Type == Char {
		return a.Text
	}
	parts := make([]string, len(a.Values))
	for i, v := range a.Values {
		parts[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strings.Join(parts, ",")
}

// Attributes is an ordered attribute list.
type Attributes []Attribute

// Get returns the attribute called name.
func (as Attributes) Get(name string) (Attribute, bool) {
	for _, a := range as {
		if a.Name == name {
			return a, true
		}
	}
	return Attribute{}, false
}

// Text returns the trimmed text rendering of the attribute called name.
func (as Attributes) Text(name string) (string, bool) {
	a, ok := as.Get(name)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(a.String()), true
}

// Number returns the first value of the numeric attribute called name.
func (as Attributes) Number(name string) (float64, bool) {
	a, ok := as.Get(name)
	if !ok || a.Type == Char || len(a.Values) == 0 {
		return 0, false
	}
	return a.Values[0], true
}

// Variable is a named array over zero or more dimensions.
type Variable struct {
	Name  string
	Type  Type
	Dims  []string
	Shape []int
	Attrs Attributes

	values []float64
	text   []string
}

// IsNumeric reports whether the variable holds numbers rather than characters.
func (v *Variable) IsNumeric() bool { return v.Type != Char }

// Len returns the number of elements.
func (v *Variable) Len() int {
	n := 1
	for _, s := range v.Shape {
		n *= s
	}
	return n
}

// Values returns the unpacked numeric data in row-major order, with NaN for
// fill and missing values. It is nil for char variables.
func (v *Variable) Values() []float64 { return v.values }

// Strings returns the rows of a char variable with NUL padding and spaces
// trimmed. It is nil for numeric variables.
func (v *Variable) Strings() []string { return v.text }

func trimText(s string) string {
	if i := strings.IndexByte(s, 0); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// Dataset is a decoded file.
type Dataset struct {
	// Version is the classic format version (1, 2 or 5), or 4 for
	// NetCDF-4 files.
	Version int
	Dims    []Dimension
	Attrs   Attributes
	Vars    []*Variable
	// Unsupported names variables whose element type has no numeric or
	// text form, such as HDF5 compound types.
	Unsupported []string
}

// Var returns the variable called name, or nil.
func (d *Dataset) Var(name string) *Variable {
	for _, v := range d.Vars {
		if v.Name == name {
			return v
		}
	}
	return nil
}

// Dim returns the dimension called name.
func (d *Dataset) Dim(name string) (Dimension, bool) {
	for _, dim := range d.Dims {
		if dim.Name == name {
			return dim, true
		}
	}
	return Dimension{}, false
}

// floatIDKeys are the global attributes, in order of preference, that carry
// the platform identifier.
var floatIDKeys = []string{"platform_id", "wmo_id", "PLATFORM_NUMBER"}

// FloatID returns the platform identifier of the dataset, or "" when the
// file carries none. Global attributes are preferred; a PLATFORM_NUMBER char
// variable is used as a fallback.
func (d *Dataset) FloatID() string {
	for _, key := range floatIDKeys {
		if s, ok := d.Attrs.Text(key); ok && s != "" {
			return s
		}
	}
	if v := d.Var("PLATFORM_NUMBER"); v != nil {
		for _, s := range v.Strings() {
			if s != "" {
				return s
			}
		}
	}
	return ""
}
