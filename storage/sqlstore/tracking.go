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
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/poiesic/floatchat/core"
	"github.com/poiesic/floatchat/storage"
)

// TrackingRepository implements storage.TrackingRepository on the pipeline_tracker table.
type TrackingRepository struct {
	backend *Backend
}

var _ storage.TrackingRepository = (*TrackingRepository)(nil)

// NewTrackingRepository creates a TrackingRepository on backend.
func NewTrackingRepository(backend *Backend) *TrackingRepository {
	return &TrackingRepository{backend: backend}
}

// Close is a no-op; the backend owns the connection.
func (r *TrackingRepository) Close() error {
	return nil
}

// MarkFile creates or replaces the tracking record for rec.Filename.
func (r *TrackingRepository) MarkFile(ctx context.Context, rec *core.FileRecord) error {
	if rec.Filename == "" {
		return errors.New("tracking record requires a filename")
	}
	if rec.ProcessedAt.IsZero() {
		rec.ProcessedAt = time.Now().UTC()
	}
	b := r.backend
	stmt := `
		INSERT INTO pipeline_tracker (filename, file_hash, status, processed_at)
		VALUES (` + b.placeholders(1, 4) + `)
		ON CONFLICT (filename) DO UPDATE SET
			file_hash = EXCLUDED.file_hash,
			status = EXCLUDED.status,
			processed_at = EXCLUDED.processed_at`
	if _, err := b.conn(ctx).ExecContext(ctx, stmt, rec.Filename, rec.Hash, string(rec.Status), b.timeArg(rec.ProcessedAt)); err != nil {
		return errors.Wrapf(err, "failed to mark %s as %s", rec.Filename, rec.Status)
	}
	return nil
}

// GetFile returns the tracking record for filename.
func (r *TrackingRepository) GetFile(ctx context.Context, filename string) (*core.FileRecord, error) {
	b := r.backend
	query := `SELECT filename, file_hash, status, processed_at FROM pipeline_tracker WHERE filename = ` + b.placeholder(1)
	return r.getOne(ctx, query, filename)
}

// FindSuccessfulByHash returns a successfully processed file with the given hash.
func (r *TrackingRepository) FindSuccessfulByHash(ctx context.Context, hash string) (*core.FileRecord, error) {
	b := r.backend
	query := `SELECT filename, file_hash, status, processed_at FROM pipeline_tracker
		WHERE file_hash = ` + b.placeholder(1) + ` AND status = ` + b.placeholder(2) + `
		ORDER BY processed_at, filename LIMIT 1`
	return r.getOne(ctx, query, hash, string(core.FileStatusSuccess))
}

// ListFiles returns tracking records ordered by filename.
func (r *TrackingRepository) ListFiles(ctx context.Context, status core.FileStatus) ([]*core.FileRecord, error) {
	b := r.backend
	query := `SELECT filename, file_hash, status, processed_at FROM pipeline_tracker`
	var args []any
	if status != "" {
		query += ` WHERE status = ` + b.placeholder(1)
		args = append(args, string(status))
	}
	query += ` ORDER BY filename`

	rows, err := b.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list tracked files")
	}
	defer rows.Close()

	list := []*core.FileRecord{}
	for rows.Next() {
		rec, err := scanFileRecord(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan tracked file")
		}
		list = append(list, rec)
	}
	return list, rows.Err()
}

func (r *TrackingRepository) getOne(ctx context.Context, query string, args ...any) (*core.FileRecord, error) {
	rec, err := scanFileRecord(r.backend.conn(ctx).QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get tracked file")
	}
	return rec, nil
}

func scanFileRecord(row rowScanner) (*core.FileRecord, error) {
	var (
		rec    core.FileRecord
		status string
		at     timeColumn
	)
	if err := row.Scan(&rec.Filename, &rec.Hash, &status, &at); err != nil {
		return nil, err
	}
	rec.Status = core.FileStatus(status)
	rec.ProcessedAt = at.Time
	return &rec, nil
}
