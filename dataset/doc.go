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


// Package dataset reads labeled multi-dimensional array files and flattens
// them into observation rows.
//
// Files are decoded with go-native-netcdf, which reads the classic formats
// (CDF-1, CDF-2 and CDF-5) and NetCDF-4. Classic headers are checked
// against the file size first, so a corrupt count fails with ErrMalformed
// instead of a huge allocation. Fill values are masked and packed values
// are unpacked with scale_factor and add_offset, so numeric variables
// expose plain float64 data with NaN for missing entries.
//
// Flatten locates the time, latitude, longitude and depth coordinates
// under their common names. Its Table yields one Row per combination of
// the coordinate dimensions lazily, with depth varying fastest.
package dataset
