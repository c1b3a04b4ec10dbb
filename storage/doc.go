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


// Package storage provides the storage abstraction layer for floatchat.
//
// This package defines repository interfaces that decouple storage implementation
// from ingestion and retrieval logic. Two kinds of store are involved and they are
// indexed independently:
//
//   - ProfileRepository: the relational store of profiles and measurement rows
//   - TrackingRepository: per-file processing state used for idempotent ingestion
//   - VectorIndex / VectorStore: named collections of profile embeddings
//
// # Implementations
//
//   - storage/sqlstore: ProfileRepository and TrackingRepository on PostgreSQL or SQLite
//   - storage/badger: embedded VectorStore on BadgerDB
//   - storage/pgvector: VectorStore on PostgreSQL with the pgvector extension
//   - storage/flat: the per-float summary index written by the rebuild job
//
// # Usage
//
//	backend, err := sqlstore.Open(ctx, sqlstore.DialectSQLite, "file:floatchat.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	profiles := sqlstore.NewProfileRepository(backend)
//	defer profiles.Close()
//
//	vectors, err := badger.NewVectorStore("/var/lib/floatchat/vectors")
//	index, err := vectors.Collection(ctx, "ocean_profiles")
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
//
// # Context Support
//
// All repository methods accept context.Context for cancellation.
// A context handed to the callback of WithTransaction carries the open
// transaction; repository calls made with it join that transaction.
package storage
