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


// Package sqlstore implements the relational profile store and the file
// tracking table on database/sql.
//
// Two dialects are supported. PostgreSQL (github.com/lib/pq) stores
// measurements as JSONB and timestamps as TIMESTAMPTZ. SQLite
// (modernc.org/sqlite) stores measurements as JSON text and timestamps as
// integer microseconds since the Unix epoch; it is intended for local use
// and tests.
//
// A transaction opened with Backend.WithTransaction travels in the context;
// repository calls made with that context run inside it.
package sqlstore
