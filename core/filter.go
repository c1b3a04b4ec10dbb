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
	"log/slog"
	"time"
)

// Filter constrains a profile search. A nil field imposes no constraint.
// Range bounds are inclusive on both ends.
type Filter struct {
	FloatID *string
	Start   *time.Time
	End     *time.Time
	MinLat  *float64
	MaxLat  *float64
	MinLon  *float64
	MaxLon  *float64
}

// Ref returns a pointer to v. It is a convenience for building filters.
func Ref[T any](v T) *T {
	return &v
}

// IsEmpty reports whether the filter leaves every field unconstrained.
func (f Filter) IsEmpty() bool {
	return f.FloatID == nil &&
		f.Start == nil && f.End == nil &&
		f.MinLat == nil && f.MaxLat == nil &&
		f.MinLon == nil && f.MaxLon == nil
}

// Matches reports whether p satisfies every populated field of the filter.
func (f Filter) Matches(p *Profile) bool {
	if p == nil {
		return false
	}
	if f.FloatID != nil && p.FloatID != *f.FloatID {
		return false
	}
	if f.Start != nil && p.Timestamp.Before(*f.Start) {
		return false
	}
	if f.End != nil && p.Timestamp.After(*f.End) {
		return false
	}
	if f.MinLat != nil && p.Latitude < *f.MinLat {
		return false
	}
	if f.MaxLat != nil && p.Latitude > *f.MaxLat {
		return false
	}
	if f.MinLon != nil && p.Longitude < *f.MinLon {
		return false
	}
	if f.MaxLon != nil && p.Longitude > *f.MaxLon {
		return false
	}
	return true
}

// LogValue implements slog.LogValuer so filters log as flat groups.
func (f Filter) LogValue() slog.Value {
	if f.IsEmpty() {
		return slog.StringValue("{}")
	}
	attrs := make([]slog.Attr, 0, 7)
	if f.FloatID != nil {
		attrs = append(attrs, slog.String("float_wmo_id", *f.FloatID))
	}
	if f.Start != nil {
		attrs = append(attrs, slog.Time("start", *f.Start))
	}
	if f.End != nil {
		attrs = append(attrs, slog.Time("end", *f.End))
	}
	if f.MinLat != nil {
		attrs = append(attrs, slog.Float64("min_lat", *f.MinLat))
	}
	if f.MaxLat != nil {
		attrs = append(attrs, slog.Float64("max_lat", *f.MaxLat))
	}
	if f.MinLon != nil {
		attrs = append(attrs, slog.Float64("min_lon", *f.MinLon))
	}
	if f.MaxLon != nil {
		attrs = append(attrs, slog.Float64("max_lon", *f.MaxLon))
	}
	return slog.GroupValue(attrs...)
}

// FilterJSON is the wire form of a Filter. Dates use the YYYY-MM-DD layout.
type FilterJSON struct {
	MinLat    *float64 `json:"min_lat,omitempty"`
	MaxLat    *float64 `json:"max_lat,omitempty"`
	MinLon    *float64 `json:"min_lon,omitempty"`
	MaxLon    *float64 `json:"max_lon,omitempty"`
	StartDate string   `json:"start_date,omitempty"`
	EndDate   string   `json:"end_date,omitempty"`
	FloatID   string   `json:"float_wmo_id,omitempty"`
}

// DateLayout is the calendar date layout used by filter dates.
const DateLayout = "2006-01-02"

// JSON returns the wire form of the filter.
func (f Filter) JSON() FilterJSON {
	out := FilterJSON{
		MinLat: f.MinLat,
		MaxLat: f.MaxLat,
		MinLon: f.MinLon,
		MaxLon: f.MaxLon,
	}
	if f.Start != nil {
		out.StartDate = f.Start.UTC().Format(DateLayout)
	}
	if f.End != nil {
		out.EndDate = f.End.UTC().Format(DateLayout)
	}
	if f.FloatID != nil {
		out.FloatID = *f.FloatID
	}
	return out
}

// EndOfDay returns the last representable instant of the UTC calendar day
// containing t. End dates cover the whole day.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Add(24*time.Hour - time.Microsecond)
}
