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
	"slices"

	"github.com/poiesic/floatchat/core"
	"github.com/poiesic/floatchat/dataset"
)

// DefaultRequiredVariables are the measurement variables that must be
// non-null for a row to be kept in points mode, when the file has them.
var DefaultRequiredVariables = []string{"PSAL", "TEMP"}

// pointsProcessor stores every cleaned row as its own profile.
type pointsProcessor struct {
	required []string
}

var _ processor = (*pointsProcessor)(nil)

func (pp *pointsProcessor) units(table *dataset.Table) iter.Seq[unit] {
	var required []string
	for _, name := range pp.required {
		if slices.Contains(table.Variables, name) {
			required = append(required, name)
		}
	}

	return func(yield func(unit) bool) {
		for row := range table.Rows() {
			if !row.HasCoordinates() || !hasAll(row.Values, required) {
				continue
			}
			m := row.Values.NonNull()
			m[core.KeyDepth] = core.Number(row.Depth)
			u := unit{
				profile: &core.Profile{
					FloatID:      table.FloatID,
					Timestamp:    row.Time,
					Latitude:     row.Latitude,
					Longitude:    row.Longitude,
					Measurements: m,
				},
				rows: 1,
			}
			if !yield(u) {
				return
			}
		}
	}
}

func (pp *pointsProcessor) summarize(u unit) string {
	return pointSummary(u.profile)
}

func hasAll(values core.Measurements, names []string) bool {
	for _, name := range names {
		if v, ok := values[name]; !ok || v.IsNull() {
			return false
		}
	}
	return true
}
