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
	"errors"
	"fmt"
	"strings"
)

// Domain validation errors
var (
	// ErrInvalidProfile indicates a Profile failed validation.
	ErrInvalidProfile = errors.New("invalid profile")

	// ErrInvalidFilter indicates a Filter failed validation.
	ErrInvalidFilter = errors.New("invalid filter")

	// ErrInvalidLatitude indicates a latitude outside [-90, 90].
	ErrInvalidLatitude = errors.New("latitude must be between -90 and 90")

	// ErrInvalidLongitude indicates a longitude outside [-180, 180].
	ErrInvalidLongitude = errors.New("longitude must be between -180 and 180")

	// ErrMissingTimestamp indicates a zero timestamp.
	ErrMissingTimestamp = errors.New("timestamp is required")

	// ErrInvertedRange indicates a range whose lower bound exceeds its upper bound.
	ErrInvertedRange = errors.New("range lower bound exceeds upper bound")

	// ErrVacuousFile indicates a source file that has no valid rows after cleaning.
	// It is a soft condition: the file is recorded as processed with no data.
	ErrVacuousFile = errors.New("no valid rows after cleaning")
)

// StructuralFileError reports a source file that lacks required coordinate
// variables. It is fatal to that file only.
type StructuralFileError struct {
	File    string
	Missing []string
}

func (e *StructuralFileError) Error() string {
	return fmt.Sprintf("%s: missing required coordinates: %s", e.File, strings.Join(e.Missing, ", "))
}

// RemoteServiceError reports a non-success response from a remote model
// service. Status is zero when no response was received.
type RemoteServiceError struct {
	Status int
	Body   string
}

func (e *RemoteServiceError) Error() string {
	if e.Status == 0 {
		return "remote service error: " + e.Body
	}
	return fmt.Sprintf("remote service error: status %d: %s", e.Status, e.Body)
}

// ExtractionError reports a filter extraction that could not produce a
// usable filter. Response holds the raw model output when one was received.
type ExtractionError struct {
	Response string
	Err      error
}

func (e *ExtractionError) Error() string {
	return "filter extraction failed: " + e.Err.Error()
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}
