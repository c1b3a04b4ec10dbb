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
	"iter"
	"math"
	"slices"
	"time"

	"github.com/poiesic/floatchat/core"
)

// Canonical coordinate names.
const (
	CoordTime      = "time"
	CoordLatitude  = "latitude"
	CoordLongitude = "longitude"
	CoordDepth     = "depth"
)

// coordinateAliases lists, per canonical coordinate, the variable names it
// may appear under, in order of preference.
var coordinateAliases = []struct {
	canonical string
	names     []string
}{
	{CoordTime, []string{"time", "TIME", "JULD"}},
	{CoordLatitude, []string{"latitude", "LATITUDE", "lat"}},
	{CoordLongitude, []string{"longitude", "LONGITUDE", "lon"}},
	{CoordDepth, []string{"depth", "DEPTH", "PRES"}},
}

// Row is one flattened observation. Missing coordinates are NaN, or the
// zero time for Time.
type Row struct {
	Time      time.Time
	Latitude  float64
	Longitude float64
	Depth     float64
	Values    core.Measurements
}

// HasCoordinates reports whether every coordinate of the row is present.
func (r Row) HasCoordinates() bool {
	return !r.Time.IsZero() &&
		!math.IsNaN(r.Latitude) && !math.IsNaN(r.Longitude) && !math.IsNaN(r.Depth)
}

// Table is the row-oriented form of a dataset. Rows are produced on
// demand; only the source arrays are held in memory.
type Table struct {
	FloatID string
	// Variables names the measurement variables in file order.
	Variables []string
	// Skipped names numeric variables whose dimensions fall outside the
	// coordinate dimensions and were left out of the rows, followed by
	// variables of unsupported types.
	Skipped []string
	// Len is the number of rows Rows yields.
	Len int

	rows iter.Seq[Row]
}

// Rows yields the table's rows. Dimensions spanned only by the depth
// coordinate vary fastest, so rows sharing a time and position are
// adjacent whenever the time and position coordinates do not span them.
func (t *Table) Rows() iter.Seq[Row] {
	if t.rows == nil {
		return func(func(Row) bool) {}
	}
	return t.rows
}

// Flatten expands ds into rows over the dimensions spanned by its
// coordinates. Every numeric variable whose dimensions are a subset of
// those is broadcast into each row. file names the source in errors.
//
// A dataset lacking any coordinate fails with *core.StructuralFileError.
func Flatten(file string, ds *Dataset) (*Table, error) {
	coords := make(map[string]*Variable, len(coordinateAliases))
	var missing []string
	for _, c := range coordinateAliases {
		var found *Variable
		for _, name := range c.names {
			if v := ds.Var(name); v != nil && v.IsNumeric() {
				found = v
				break
			}
		}
		if found == nil {
			missing = append(missing, c.canonical)
			continue
		}
		coords[c.canonical] = found
	}
	if len(missing) > 0 {
		return nil, &core.StructuralFileError{File: file, Missing: missing}
	}

	tv := coords[CoordTime]
	units, _ := tv.Attrs.Text("units")
	calendar, _ := tv.Attrs.Text("calendar")
	decoder, err := ParseTimeUnits(units, calendar)
	if err != nil {
		return nil, err
	}

	used := map[string]bool{}
	position := map[string]bool{}
	for name, v := range coords {
		for _, d := range v.Dims {
			used[d] = true
			if name != CoordDepth {
				position[d] = true
			}
		}
	}
	dims := tableDims(ds.Dims, used, position)

	t := &Table{FloatID: ds.FloatID()}
	isCoord := map[*Variable]bool{}
	for _, v := range coords {
		isCoord[v] = true
	}
	var measures []*Variable
	for _, v := range ds.Vars {
		if isCoord[v] || !v.IsNumeric() {
			continue
		}
		if !subset(v.Dims, used) {
			t.Skipped = append(t.Skipped, v.Name)
			continue
		}
		measures = append(measures, v)
		t.Variables = append(t.Variables, v.Name)
	}
	t.Skipped = append(t.Skipped, ds.Unsupported...)

	t.Len = 1
	for _, d := range dims {
		t.Len *= d.Len
	}
	if t.Len == 0 {
		return t, nil
	}

	tIdx := newBroadcast(tv, dims)
	latIdx := newBroadcast(coords[CoordLatitude], dims)
	lonIdx := newBroadcast(coords[CoordLongitude], dims)
	depIdx := newBroadcast(coords[CoordDepth], dims)
	mIdx := make([]broadcast, len(measures))
	for i, v := range measures {
		mIdx[i] = newBroadcast(v, dims)
	}

	t.rows = func(yield func(Row) bool) {
		pos := make([]int, len(dims))
		for range t.Len {
			row := Row{
				Time:      decoder.Decode(tIdx.at(pos)),
				Latitude:  latIdx.at(pos),
				Longitude: lonIdx.at(pos),
				Depth:     depIdx.at(pos),
				Values:    make(core.Measurements, len(measures)),
			}
			for i, v := range measures {
				row.Values[v.Name] = core.Number(mIdx[i].at(pos))
			}
			if !yield(row) {
				return
			}

			// Advance the row-major position, last dimension fastest.
			for d := len(pos) - 1; d >= 0; d-- {
				pos[d]++
				if pos[d] < dims[d].Len {
					break
				}
				pos[d] = 0
			}
		}
	}
	return t, nil
}

// tableDims orders the used dimensions: those spanned by the time or
// position coordinates first, then those only depth spans, each in file
// order.
func tableDims(all []Dimension, used, position map[string]bool) []Dimension {
	var outer, inner []Dimension
	for _, d := range all {
		switch {
		case position[d.Name]:
			outer = append(outer, d)
		case used[d.Name]:
			inner = append(inner, d)
		}
	}
	return append(outer, inner...)
}

func subset(names []string, of map[string]bool) bool {
	for _, n := range names {
		if !of[n] {
			return false
		}
	}
	return true
}

// broadcast maps a position over the table dimensions onto an element of a
// variable that spans a subset of them.
type broadcast struct {
	values []float64
	axes   []int // table axis of each variable dimension
	stride []int
}

func newBroadcast(v *Variable, dims []Dimension) broadcast {
	b := broadcast{values: v.Values()}
	b.axes = make([]int, len(v.Dims))
	b.stride = make([]int, len(v.Dims))
	s := 1
	for i := len(v.Dims) - 1; i >= 0; i-- {
		b.axes[i] = slices.IndexFunc(dims, func(d Dimension) bool { return d.Name == v.Dims[i] })
		b.stride[i] = s
		s *= v.Shape[i]
	}
	return b
}

func (b broadcast) at(pos []int) float64 {
	off := 0
	for i, axis := range b.axes {
		off += pos[axis] * b.stride[i]
	}
	if off >= len(b.values) {
		return math.NaN()
	}
	return b.values[off]
}
