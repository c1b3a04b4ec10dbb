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


package storage

import (
	"context"

	"github.com/poiesic/floatchat/core"
)

// TransactionManager provides transaction support for storage operations.
// Implementations must be thread-safe and support concurrent access.
type TransactionManager interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	// Repository calls made with the context passed to fn join the transaction.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ProfileRepository is the relational store of profiles and measurement rows.
type ProfileRepository interface {
	TransactionManager

	// UpsertProfiles inserts profiles, doing nothing for any profile whose
	// (FloatID, Timestamp, Latitude, Longitude) key already exists.
	// Returns the newly inserted profiles, which are the caller's own
	// values with IDs populated, in input order.
	UpsertProfiles(ctx context.Context, profiles ...*core.Profile) ([]*core.Profile, error)

	// InsertMeasurements adds measurement rows belonging to existing profiles.
	// Sets the ID of each measurement.
	InsertMeasurements(ctx context.Context, measurements ...*core.Measurement) error

	// GetProfile retrieves a single profile by ID.
	// Returns ErrNotFound if the profile doesn't exist.
	GetProfile(ctx context.Context, id core.ID) (*core.Profile, error)

	// GetProfiles retrieves multiple profiles by their IDs, in the order given.
	// Returns only the profiles that exist (no error for missing profiles).
	GetProfiles(ctx context.Context, ids ...core.ID) ([]*core.Profile, error)

	// GetMeasurements returns the measurement rows of a profile ordered by depth.
	GetMeasurements(ctx context.Context, profileID core.ID) ([]*core.Measurement, error)

	// SearchProfiles returns profiles matching filter ordered by timestamp
	// then ID, skipping offset rows and returning at most limit rows.
	SearchProfiles(ctx context.Context, filter core.Filter, offset, limit int) ([]*core.Profile, error)

	// CandidateIDs returns the IDs of at most limit profiles matching filter.
	CandidateIDs(ctx context.Context, filter core.Filter, limit int) ([]core.ID, error)

	// FloatStats returns per-float aggregates for floats whose identifier
	// sorts after afterFloatID, ordered by float ID, at most limit entries.
	// Profiles without a float identifier are not reported.
	FloatStats(ctx context.Context, afterFloatID string, limit int) ([]*core.FloatStats, error)

	// CountProfiles returns the total number of stored profiles.
	CountProfiles(ctx context.Context) (int64, error)

	// Close releases resources held by the repository.
	Close() error
}

// TrackingRepository records the processing state of source files.
type TrackingRepository interface {
	// MarkFile creates or replaces the tracking record for rec.Filename.
	// ProcessedAt is set to the current time if zero.
	MarkFile(ctx context.Context, rec *core.FileRecord) error

	// GetFile returns the tracking record for filename.
	// Returns ErrNotFound if the file was never tracked.
	GetFile(ctx context.Context, filename string) (*core.FileRecord, error)

	// FindSuccessfulByHash returns a successfully processed file with the
	// given content hash. Returns ErrNotFound if there is none.
	FindSuccessfulByHash(ctx context.Context, hash string) (*core.FileRecord, error)

	// ListFiles returns tracking records ordered by filename.
	// An empty status lists every record.
	ListFiles(ctx context.Context, status core.FileStatus) ([]*core.FileRecord, error)

	// Close releases resources held by the repository.
	Close() error
}

// VectorIndex is a named collection of (profile id, vector) entries
// supporting nearest-neighbour search by Euclidean distance.
type VectorIndex interface {
	// Add stores vectors keyed by ids, replacing any existing entry.
	// ids and vectors must have the same length.
	Add(ctx context.Context, ids []core.ID, vectors [][]float32) error

	// Query returns up to k entries nearest to vector, closest first.
	// A nil restrict searches the whole collection; a non-nil restrict
	// limits the search to those ids, and an empty one yields no hits.
	Query(ctx context.Context, vector []float32, k int, restrict []core.ID) ([]core.Hit, error)

	// Count returns the number of entries in the collection.
	Count(ctx context.Context) (int64, error)
}

// VectorStore hands out named vector collections.
type VectorStore interface {
	// Collection returns the named collection, creating it if needed.
	Collection(ctx context.Context, name string) (VectorIndex, error)

	// Close releases resources held by the store.
	Close() error
}
