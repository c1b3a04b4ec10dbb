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


package cdftest

import "github.com/poiesic/floatchat/dataset"

// FillValue is the _FillValue used by the fixtures for measurements.
const FillValue = 99999

// Grid returns a gridded file over time(1) x depth(2) x latitude(2) x
// longitude(2) with PSAL and TEMP measurements and platform_id
// "TEST_FLOAT_123". The first PSAL element is a fill value, so seven of the
// eight grid points carry both measurements.
//
// Time is 2025-01-01, stored as days since 1950-01-01.
func Grid() *File {
	psal := []float64{FillValue, 35.1, 35.2, 35.3, 35.4, 35.5, 35.6, 35.7}
	temp := []float64{10.5, 11.5, 12.5, 13.5, 14.5, 15.5, 16.5, 17.5}
	return New().
		Dim("time", 1).
		Dim("depth", 2).
		Dim("latitude", 2).
		Dim("longitude", 2).
		Attr("platform_id", "TEST_FLOAT_123").
		Var("time", dataset.Double, []string{"time"}, []float64{27394},
			A("units", "days since 1950-01-01 00:00:00 UTC")).
		Var("depth", dataset.Double, []string{"depth"}, []float64{10, 20}).
		Var("latitude", dataset.Double, []string{"latitude"}, []float64{45, 46}).
		Var("longitude", dataset.Double, []string{"longitude"}, []float64{-120, -121}).
		Var("PSAL", dataset.Float, []string{"time", "depth", "latitude", "longitude"}, psal,
			A("_FillValue", float32(FillValue))).
		Var("TEMP", dataset.Float, []string{"time", "depth", "latitude", "longitude"}, temp,
			A("_FillValue", float32(FillValue)))
}

// Argo returns a profile-style file in the layout of ARGO core files:
// N_PROF profiles of N_LEVELS pressure levels, JULD/LATITUDE/LONGITUDE per
// profile and a PLATFORM_NUMBER char variable.
func Argo(platform string) *File {
	return New().
		Dim("N_PROF", 2).
		Dim("N_LEVELS", 3).
		Dim("STRING8", 8).
		Dim("N_HISTORY", 1).
		Text("PLATFORM_NUMBER", []string{"N_PROF", "STRING8"}, pad(platform, 8)+pad(platform, 8)).
		Var("JULD", dataset.Double, []string{"N_PROF"}, []float64{27394.5, 27404.5},
			A("units", "days since 1950-01-01 00:00:00 UTC"),
			A("_FillValue", 999999.0)).
		Var("LATITUDE", dataset.Double, []string{"N_PROF"}, []float64{-10.25, -10.5},
			A("_FillValue", 99999.0)).
		Var("LONGITUDE", dataset.Double, []string{"N_PROF"}, []float64{75.125, 75.5},
			A("_FillValue", 99999.0)).
		Var("PRES", dataset.Float, []string{"N_PROF", "N_LEVELS"}, []float64{5, 50, 100, 5, 50, FillValue},
			A("_FillValue", float32(FillValue))).
		Var("TEMP", dataset.Float, []string{"N_PROF", "N_LEVELS"}, []float64{28.1, 26.4, 18.2, 28.3, 26.0, FillValue},
			A("_FillValue", float32(FillValue))).
		Var("PSAL", dataset.Float, []string{"N_PROF", "N_LEVELS"}, []float64{34.9, 35.0, 35.1, 34.8, FillValue, FillValue},
			A("_FillValue", float32(FillValue))).
		Var("HISTORY_START_PRES", dataset.Float, []string{"N_HISTORY", "N_PROF"}, []float64{0, 0})
}

func pad(s string, n int) string {
	for len(s) < n {
		s += " "
	}
	return s[:n]
}
