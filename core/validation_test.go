package core

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestValidateProfile(t *testing.T) {
	ts := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		profile *Profile
		wantErr error
	}{
		{
			name:    "valid profile",
			profile: &Profile{FloatID: "5906468", Timestamp: ts, Latitude: 45, Longitude: -120},
			wantErr: nil,
		},
		{
			name:    "valid profile without float id",
			profile: &Profile{Timestamp: ts, Latitude: -90, Longitude: 180},
			wantErr: nil,
		},
		{
			name:    "nil profile",
			profile: nil,
			wantErr: ErrInvalidProfile,
		},
		{
			name:    "missing timestamp",
			profile: &Profile{Latitude: 1, Longitude: 1},
			wantErr: ErrMissingTimestamp,
		},
		{
			name:    "latitude too high",
			profile: &Profile{Timestamp: ts, Latitude: 90.5, Longitude: 1},
			wantErr: ErrInvalidLatitude,
		},
		{
			name:    "latitude NaN",
			profile: &Profile{Timestamp: ts, Latitude: math.NaN(), Longitude: 1},
			wantErr: ErrInvalidLatitude,
		},
		{
			name:    "longitude too low",
			profile: &Profile{Timestamp: ts, Latitude: 0, Longitude: -180.1},
			wantErr: ErrInvalidLongitude,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateProfile(tt.profile)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateProfile() unexpected error = %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("ValidateProfile() expected error %v, got nil", tt.wantErr)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateProfile() error = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, ErrInvalidProfile) {
				t.Errorf("ValidateProfile() error should wrap ErrInvalidProfile, got %v", err)
			}
		})
	}
}

func TestValidateFilter(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		filter  Filter
		wantErr error
	}{
		{name: "empty filter", filter: Filter{}},
		{name: "equator band", filter: Filter{MinLat: Ref(-5.0), MaxLat: Ref(5.0)}},
		{name: "latitude out of range", filter: Filter{MinLat: Ref(-95.0)}, wantErr: ErrInvalidLatitude},
		{name: "longitude out of range", filter: Filter{MaxLon: Ref(181.0)}, wantErr: ErrInvalidLongitude},
		{name: "inverted latitude", filter: Filter{MinLat: Ref(10.0), MaxLat: Ref(5.0)}, wantErr: ErrInvertedRange},
		{name: "inverted dates", filter: Filter{Start: &start, End: &end}, wantErr: ErrInvertedRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFilter(tt.filter)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateFilter() unexpected error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateFilter() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestErrorTypes(t *testing.T) {
	var err error = &StructuralFileError{File: "a.nc", Missing: []string{"depth"}}
	var structural *StructuralFileError
	if !errors.As(err, &structural) {
		t.Fatal("errors.As failed for StructuralFileError")
	}
	if structural.Missing[0] != "depth" {
		t.Errorf("Missing = %v, want [depth]", structural.Missing)
	}

	inner := &RemoteServiceError{Status: 429, Body: "rate limited"}
	err = &ExtractionError{Err: inner}
	var remote *RemoteServiceError
	if !errors.As(err, &remote) {
		t.Fatal("ExtractionError should unwrap to RemoteServiceError")
	}
	if remote.Status != 429 {
		t.Errorf("Status = %d, want 429", remote.Status)
	}
}
