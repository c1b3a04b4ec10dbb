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


package sqlstore

import (
	"context"

	"github.com/pkg/errors"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS float_profiles (
		id BIGSERIAL PRIMARY KEY,
		float_wmo_id TEXT NOT NULL DEFAULT '',
		timestamp TIMESTAMPTZ NOT NULL,
		latitude DOUBLE PRECISION NOT NULL,
		longitude DOUBLE PRECISION NOT NULL,
		measurements JSONB NOT NULL DEFAULT '{}'::jsonb,
		CONSTRAINT float_profiles_observation_key UNIQUE (float_wmo_id, timestamp, latitude, longitude)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_float_profiles_timestamp ON float_profiles (timestamp)`,
	`CREATE INDEX IF NOT EXISTS idx_float_profiles_position ON float_profiles (latitude, longitude)`,
	`CREATE TABLE IF NOT EXISTS measurements (
		id BIGSERIAL PRIMARY KEY,
		profile_id BIGINT NOT NULL REFERENCES float_profiles (id) ON DELETE CASCADE,
		depth DOUBLE PRECISION NOT NULL,
		data JSONB NOT NULL DEFAULT '{}'::jsonb
	)`,
	`CREATE INDEX IF NOT EXISTS idx_measurements_profile ON measurements (profile_id)`,
	`CREATE TABLE IF NOT EXISTS pipeline_tracker (
		filename TEXT PRIMARY KEY,
		file_hash TEXT NOT NULL,
		status TEXT NOT NULL,
		processed_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_pipeline_tracker_hash ON pipeline_tracker (file_hash)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS float_profiles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		float_wmo_id TEXT NOT NULL DEFAULT '',
		timestamp INTEGER NOT NULL,
		latitude REAL NOT NULL,
		longitude REAL NOT NULL,
		measurements TEXT NOT NULL DEFAULT '{}',
		UNIQUE (float_wmo_id, timestamp, latitude, longitude)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_float_profiles_timestamp ON float_profiles (timestamp)`,
	`CREATE INDEX IF NOT EXISTS idx_float_profiles_position ON float_profiles (latitude, longitude)`,
	`CREATE TABLE IF NOT EXISTS measurements (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		profile_id INTEGER NOT NULL REFERENCES float_profiles (id) ON DELETE CASCADE,
		depth REAL NOT NULL,
		data TEXT NOT NULL DEFAULT '{}'
	)`,
	`CREATE INDEX IF NOT EXISTS idx_measurements_profile ON measurements (profile_id)`,
	`CREATE TABLE IF NOT EXISTS pipeline_tracker (
		filename TEXT PRIMARY KEY,
		file_hash TEXT NOT NULL,
		status TEXT NOT NULL,
		processed_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_pipeline_tracker_hash ON pipeline_tracker (file_hash)`,
}

// Migrate creates the tables and indexes if they do not exist.
func (b *Backend) Migrate(ctx context.Context) error {
	stmts := sqliteSchema
	if b.dialect == DialectPostgres {
		stmts = postgresSchema
	}
	for _, stmt := range stmts {
		if _, err := b.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "failed to apply schema")
		}
	}
	b.logger.Debug("schema applied", "dialect", b.dialect)
	return nil
}
