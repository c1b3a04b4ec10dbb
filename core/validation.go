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
	"fmt"
	"math"
)

// ValidateProfile validates a Profile according to domain rules.
//
// Validation rules:
//   - Timestamp must be set
//   - Latitude must be within [-90, 90]
//   - Longitude must be within [-180, 180]
//
// NOT validated:
//   - ID (assigned by the relational store)
//   - FloatID (empty is the stored form of an unknown platform)
//   - Measurements (open schema)
func ValidateProfile(p *Profile) error {
	if p == nil {
		return fmt.Errorf("%w: profile is nil", ErrInvalidProfile)
	}
	if p.Timestamp.IsZero() {
		return fmt.Errorf("%w: %w", ErrInvalidProfile, ErrMissingTimestamp)
	}
	if !IsValidLatitude(p.Latitude) {
		return fmt.Errorf("%w: %w: %v", ErrInvalidProfile, ErrInvalidLatitude, p.Latitude)
	}
	if !IsValidLongitude(p.Longitude) {
		return fmt.Errorf("%w: %w: %v", ErrInvalidProfile, ErrInvalidLongitude, p.Longitude)
	}
	return nil
}

// ValidateFilter checks coordinate bounds and range ordering.
func ValidateFilter(f Filter) error {
	for _, lat := range []*float64{f.MinLat, f.MaxLat} {
		if lat != nil && !IsValidLatitude(*lat) {
			return fmt.Errorf("%w: %w: %v", ErrInvalidFilter, ErrInvalidLatitude, *lat)
		}
	}
	for _, lon := range []*float64{f.MinLon, f.MaxLon} {
		if lon != nil && !IsValidLongitude(*lon) {
			return fmt.Errorf("%w: %w: %v", ErrInvalidFilter, ErrInvalidLongitude, *lon)
		}
	}
	if f.MinLat != nil && f.MaxLat != nil && *f.MinLat > *f.MaxLat {
		return fmt.Errorf("%w: latitude %w", ErrInvalidFilter, ErrInvertedRange)
	}
	if f.MinLon != nil && f.MaxLon != nil && *f.MinLon > *f.MaxLon {
		return fmt.Errorf("%w: longitude %w", ErrInvalidFilter, ErrInvertedRange)
	}
	if f.Start != nil && f.End != nil && f.Start.After(*f.End) {
		return fmt.Errorf("%w: date %w", ErrInvalidFilter, ErrInvertedRange)
	}
	return nil
}

// IsValidLatitude reports whether lat is a finite value within [-90, 90].
func IsValidLatitude(lat float64) bool {
	return !math.IsNaN(lat) && lat >= -90 && lat <= 90
}

// IsValidLongitude reports whether lon is a finite value within [-180, 180].
func IsValidLongitude(lon float64) bool {
	return !math.IsNaN(lon) && lon >= -180 && lon <= 180
}
