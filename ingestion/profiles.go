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


package ingestion

import (
	"iter"
	"log/slog"
	"math"
	"slices"

	"github.com/poiesic/floatchat/core"
	"github.com/poiesic/floatchat/dataset"
)

// profilesProcessor groups rows sharing time and position into one profile
// with a measurement row per depth. Every row with all coordinates joins
// its group; a level is stored only when it has at least one value.
type profilesProcessor struct {
	logger *slog.Logger
}

var _ processor = (*profilesProcessor)(nil)

type groupKey struct {
	micros   int64
	lat, lon float64
}

func keyOf(row dataset.Row) groupKey {
	return groupKey{row.Time.UnixMicro(), row.Latitude, row.Longitude}
}

// group accumulates the rows of one profile.
type group struct {
	unit
	minDepth, maxDepth float64
}

func newGroup(floatID string, row dataset.Row) *group {
	return &group{
		unit: unit{profile: &core.Profile{
			FloatID:   floatID,
			Timestamp: row.Time,
			Latitude:  row.Latitude,
			Longitude: row.Longitude,
		}},
		minDepth: math.Inf(1),
		maxDepth: math.Inf(-1),
	}
}

func (g *group) add(row dataset.Row) {
	g.rows++
	g.minDepth = min(g.minDepth, row.Depth)
	g.maxDepth = max(g.maxDepth, row.Depth)

	data := row.Values.NonNull()
	if len(data) == 0 {
		return
	}
	g.levels = append(g.levels, &core.Measurement{Depth: row.Depth, Data: data})
	for name := range data {
		if !slices.Contains(g.variables, name) {
			g.variables = append(g.variables, name)
		}
	}
}

func (g *group) finish() unit {
	slices.Sort(g.variables)
	g.profile.Measurements = core.Measurements{
		core.KeyLevels:   core.Number(float64(len(g.levels))),
		core.KeyDepthMin: core.Number(g.minDepth),
		core.KeyDepthMax: core.Number(g.maxDepth),
	}
	return g.unit
}

// units flushes a group when the next row's key differs. Rows arrive with
// depth varying fastest, so a key only recurs for layouts whose time or
// position spans a depth dimension; such a group is stored as a second
// unit and the store's key conflict keeps the first.
func (pp *profilesProcessor) units(table *dataset.Table) iter.Seq[unit] {
	return func(yield func(unit) bool) {
		var current *group
		var key groupKey
		flushed := map[groupKey]bool{}

		for row := range table.Rows() {
			if !row.HasCoordinates() {
				continue
			}
			k := keyOf(row)
			if current != nil && k != key {
				flushed[key] = true
				if !yield(current.finish()) {
					return
				}
				current = nil
			}
			if current == nil {
				if flushed[k] {
					pp.logger.Warn("profile rows are not contiguous, later levels may be dropped",
						"time", row.Time, "latitude", row.Latitude, "longitude", row.Longitude)
				}
				current, key = newGroup(table.FloatID, row), k
			}
			current.add(row)
		}
		if current != nil {
			yield(current.finish())
		}
	}
}

func (pp *profilesProcessor) summarize(u unit) string {
	return profileSummary(u.profile, len(u.levels), u.variables)
}
