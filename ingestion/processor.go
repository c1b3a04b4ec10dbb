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
	"fmt"
	"iter"
	"log/slog"
	"strings"

	"github.com/poiesic/floatchat/core"
	"github.com/poiesic/floatchat/dataset"
)

// Mode selects how flattened rows become stored profiles.
type Mode int

const (
	// ModePoints stores one profile per observation row.
	ModePoints Mode = iota
	// ModeProfiles stores one profile per (time, latitude, longitude) with
	// a measurement row per depth level.
	ModeProfiles
)

func (m Mode) String() string {
	switch m {
	case ModePoints:
		return "points"
	case ModeProfiles:
		return "profiles"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// ParseMode parses "points" or "profiles".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "points":
		return ModePoints, nil
	case "profiles":
		return ModeProfiles, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// unit is the smallest persistable piece of a file: one profile and, in
// profile mode, its depth levels. Batches never split a unit.
type unit struct {
	profile   *core.Profile
	levels    []*core.Measurement
	rows      int
	variables []string
}

// processor turns a flattened table into units and describes them for
// embedding. Implementations differ per Mode.
type processor interface {
	// units cleans the table's rows and yields units in file order as
	// they complete, holding at most one unit's rows.
	units(table *dataset.Table) iter.Seq[unit]

	// summarize renders the text that is embedded for u.
	summarize(u unit) string
}

func newProcessor(mode Mode, required []string, logger *slog.Logger) processor {
	if mode == ModeProfiles {
		return &profilesProcessor{logger: logger}
	}
	return &pointsProcessor{required: required}
}
