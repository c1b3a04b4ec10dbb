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


package core

import (
	"math"
	"sort"
	"time"
)

// ID is the relational identifier of a profile or measurement row.
// IDs are assigned by the relational store and are never reused.
type ID int64

// Reserved measurement keys. They describe where a value was observed
// rather than what was observed, so they are excluded from variable listings.
const (
	KeyDepth    = "depth"
	KeyLevels   = "levels"
	KeyDepthMin = "depth_min"
	KeyDepthMax = "depth_max"
)

// IsReservedKey reports whether name is a positional key rather than a
// measured variable.
func IsReservedKey(name string) bool {
	switch name {
	case KeyDepth, KeyLevels, KeyDepthMin, KeyDepthMax:
		return true
	}
	return false
}

// Measurements is an open-schema map from variable name to value.
// Variables differ from one source file to the next.
type Measurements map[string]Value

// Keys returns the measurement names in sorted order.
func (m Measurements) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Variables returns the sorted names of non-null measured variables,
// excluding reserved positional keys.
func (m Measurements) Variables() []string {
	vars := make([]string, 0, len(m))
	for k, v := range m {
		if IsReservedKey(k) || v.IsNull() {
			continue
		}
		vars = append(vars, k)
	}
	sort.Strings(vars)
	return vars
}

// NonNull returns a copy of m with null values removed.
func (m Measurements) NonNull() Measurements {
	out := make(Measurements, len(m))
	for k, v := range m {
		if !v.IsNull() {
			out[k] = v
		}
	}
	return out
}

// Profile is one observation event at a point in space-time.
// Profiles are created by the ingestion pipeline and never mutated afterwards.
type Profile struct {
	ID           ID
	FloatID      string // empty when the source file carries no platform identifier
	Timestamp    time.Time
	Latitude     float64
	Longitude    float64
	Measurements Measurements
}

// ProfileKey is the uniqueness key of a profile.
type ProfileKey struct {
	FloatID   string
	Timestamp int64 // microseconds since the Unix epoch
	Latitude  float64
	Longitude float64
}

// Key returns the uniqueness key of the profile.
func (p *Profile) Key() ProfileKey {
	return ProfileKey{
		FloatID:   p.FloatID,
		Timestamp: p.Timestamp.UnixMicro(),
		Latitude:  p.Latitude,
		Longitude: p.Longitude,
	}
}

// Measurement is a single depth level belonging to a profile.
type Measurement struct {
	ID        ID
	ProfileID ID
	Depth     float64
	Data      Measurements
}

// Hit is a nearest-neighbor match returned by a vector index.
type Hit struct {
	ID       ID
	Distance float32
}

// FileStatus is the processing state of a source file.
type FileStatus string

const (
	FileStatusInProgress FileStatus = "in_progress"
	FileStatusSuccess    FileStatus = "success"
	FileStatusFailed     FileStatus = "failed"
)

// FileRecord tracks the processing state of a single source file.
type FileRecord struct {
	Filename    string
	Hash        string
	Status      FileStatus
	ProcessedAt time.Time
}

// FloatStats aggregates every profile recorded for one float.
type FloatStats struct {
	FloatID   string
	Profiles  int
	First     time.Time
	Last      time.Time
	MinLat    float64
	MaxLat    float64
	MinLon    float64
	MaxLon    float64
	Variables []string
}

// NormalizeTimestamp converts t to UTC at the microsecond precision kept by
// the relational store.
func NormalizeTimestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// Distance returns the Euclidean distance between two vectors.
// Vectors of different length are compared over their common prefix.
func Distance(a, b []float32) float32 {
	n := min(len(a), len(b))
	var sum float64
	for i := 0; i < n; i++ {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return float32(math.Sqrt(sum))
}
