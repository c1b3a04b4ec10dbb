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

import "errors"

var (
	// ErrUnsupportedFormat indicates a file that is neither classic NetCDF nor NetCDF-4.
	ErrUnsupportedFormat = errors.New("unsupported dataset format")

	// ErrMalformed indicates a file whose header or data is inconsistent.
	ErrMalformed = errors.New("malformed dataset")

	// ErrTimeUnits indicates a time coordinate whose units cannot be decoded.
	ErrTimeUnits = errors.New("undecodable time units")
)
