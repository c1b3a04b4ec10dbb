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
	"fmt"
	"math"
	"strings"
	"time"
)

// TimeDecoder converts numeric CF time values into instants.
type TimeDecoder struct {
	unit float64 // nanoseconds per unit
	ref  time.Time
}

var unitNanos = map[string]float64{
	"days": float64(24 * time.Hour), "day": float64(24 * time.Hour), "d": float64(24 * time.Hour),
	"hours": float64(time.Hour), "hour": float64(time.Hour), "hr": float64(time.Hour), "h": float64(time.Hour),
	"minutes": float64(time.Minute), "minute": float64(time.Minute), "min": float64(time.Minute),
	"seconds": float64(time.Second), "second": float64(time.Second), "sec": float64(time.Second), "s": float64(time.Second),
	"milliseconds": float64(time.Millisecond), "millisecond": float64(time.Millisecond), "ms": float64(time.Millisecond),
	"microseconds": float64(time.Microsecond), "microsecond": float64(time.Microsecond), "us": float64(time.Microsecond),
}

var refLayouts = []string{
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999 -07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
	"2006-1-2 15:04:05",
	"2006-1-2",
}

// ParseTimeUnits parses a CF units string such as
// "days since 1950-01-01 00:00:00 UTC". Only the standard Gregorian
// calendars are supported.
func ParseTimeUnits(units, calendar string) (*TimeDecoder, error) {
	switch strings.ToLower(strings.TrimSpace(calendar)) {
	case "", "standard", "gregorian", "proleptic_gregorian":
	default:
		return nil, fmt.Errorf("%w: calendar %q", ErrTimeUnits, calendar)
	}

	unitPart, refPart, ok := strings.Cut(strings.TrimSpace(units), " since ")
	if !ok {
		return nil, fmt.Errorf("%w: %q has no reference time", ErrTimeUnits, units)
	}
	nanos, ok := unitNanos[strings.ToLower(strings.TrimSpace(unitPart))]
	if !ok {
		return nil, fmt.Errorf("%w: unknown unit %q", ErrTimeUnits, unitPart)
	}

	refPart = strings.TrimSpace(refPart)
	refPart = strings.TrimSuffix(refPart, " UTC")
	refPart = strings.TrimSuffix(refPart, " utc")
	refPart = strings.TrimSpace(refPart)
	for _, layout := range refLayouts {
		if ref, err := time.Parse(layout, refPart); err == nil {
			return &TimeDecoder{unit: nanos, ref: ref.UTC()}, nil
		}
	}
	return nil, fmt.Errorf("%w: reference time %q", ErrTimeUnits, refPart)
}

// Decode converts v into an instant. NaN decodes to the zero time.
func (d *TimeDecoder) Decode(v float64) time.Time {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return time.Time{}
	}
	// Whole units and the fractional remainder are added separately so large
	// offsets keep sub-second precision.
	whole, frac := math.Modf(v)
	t := d.ref.Add(time.Duration(whole * d.unit))
	return t.Add(time.Duration(math.Round(frac * d.unit))).UTC()
}
