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


package pgvector

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"
	"github.com/poiesic/floatchat/core"
	"github.com/poiesic/floatchat/storage"
	"github.com/poiesic/floatchat/storage/sqlstore"
)

// addChunkSize bounds rows per INSERT statement.
const addChunkSize = 200

var schema = []string{
	`CREATE EXTENSION IF NOT EXISTS vector`,
	`CREATE TABLE IF NOT EXISTS profile_embeddings (
		collection TEXT NOT NULL,
		profile_id BIGINT NOT NULL,
		embedding vector NOT NULL,
		PRIMARY KEY (collection, profile_id)
	)`,
}

// Store implements storage.VectorStore.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ storage.VectorStore = (*Store)(nil)

// Option configures a Store.
type Option func(*Store) error

// WithLogger sets the logger for the store.
// If not provided, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger.With("component", "pgvector")
		return nil
	}
}

// NewStore creates the embeddings table if needed and returns a store on db.
// The caller keeps ownership of db.
func NewStore(ctx context.Context, db *sql.DB, opts ...Option) (*Store, error) {
	s := &Store{
		db:     db,
		logger: slog.Default().With("component", "pgvector"),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, errors.Wrap(err, "failed to apply pgvector schema")
		}
	}
	return s, nil
}

// Collection returns a handle on the named collection.
func (s *Store) Collection(ctx context.Context, name string) (storage.VectorIndex, error) {
	if name == "" {
		return nil, errors.New("collection name is required")
	}
	return &Collection{name: name, db: s.db, logger: s.logger.With("collection", name)}, nil
}

// Close is a no-op; the caller owns the database handle.
func (s *Store) Close() error {
	return nil
}

// Collection implements storage.VectorIndex for one collection name.
type Collection struct {
	name   string
	db     *sql.DB
	logger *slog.Logger
}

var _ storage.VectorIndex = (*Collection)(nil)

// Add upserts vectors keyed by ids. When ctx carries a sqlstore
// transaction on the same database, the rows are written inside it.
func (c *Collection) Add(ctx context.Context, ids []core.ID, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return storage.ErrLengthMismatch
	}
	for start := 0; start < len(ids); start += addChunkSize {
		end := min(start+addChunkSize, len(ids))
		stmt, args := buildInsert(c.name, ids[start:end], vectors[start:end])
		if _, err := sqlstore.Conn(ctx, c.db).ExecContext(ctx, stmt, args...); err != nil {
			return errors.Wrap(err, "failed to upsert embeddings")
		}
	}
	c.logger.Debug("added vectors", "count", len(ids))
	return nil
}

// Query returns up to k entries nearest to vector.
func (c *Collection) Query(ctx context.Context, vector []float32, k int, restrict []core.ID) ([]core.Hit, error) {
	if k <= 0 {
		return nil, storage.ErrInvalidQuery
	}
	if restrict != nil && len(restrict) == 0 {
		return []core.Hit{}, nil
	}

	query, args := buildQuery(c.name, vector, k, restrict)
	rows, err := sqlstore.Conn(ctx, c.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query embeddings")
	}
	defer rows.Close()

	hits := []core.Hit{}
	for rows.Next() {
		var (
			id       int64
			distance float64
		)
		if err := rows.Scan(&id, &distance); err != nil {
			return nil, errors.Wrap(err, "failed to scan embedding hit")
		}
		hits = append(hits, core.Hit{ID: core.ID(id), Distance: float32(distance)})
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read embedding hits")
	}
	return hits, nil
}

// Count returns the number of vectors in the collection.
func (c *Collection) Count(ctx context.Context) (int64, error) {
	var n int64
	err := sqlstore.Conn(ctx, c.db).QueryRowContext(ctx, `SELECT COUNT(*) FROM profile_embeddings WHERE collection = $1`, c.name).Scan(&n)
	if err != nil {
		return 0, errors.Wrap(err, "failed to count embeddings")
	}
	return n, nil
}

// get returns the stored vector for id, or storage.ErrNotFound.
func (c *Collection) get(ctx context.Context, id core.ID) ([]float32, error) {
	var v pgvector.Vector
	err := sqlstore.Conn(ctx, c.db).QueryRowContext(ctx,
		`SELECT embedding FROM profile_embeddings WHERE collection = $1 AND profile_id = $2`,
		c.name, int64(id)).Scan(&v)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get embedding")
	}
	return v.Slice(), nil
}

func buildInsert(collection string, ids []core.ID, vectors [][]float32) (string, []any) {
	values := make([]string, len(ids))
	args := make([]any, 0, 1+2*len(ids))
	args = append(args, collection)
	for i := range ids {
		n := len(args)
		values[i] = fmt.Sprintf("($1, $%d, $%d)", n+1, n+2)
		args = append(args, int64(ids[i]), pgvector.NewVector(vectors[i]))
	}
	stmt := `INSERT INTO profile_embeddings (collection, profile_id, embedding) VALUES ` +
		strings.Join(values, ", ") +
		` ON CONFLICT (collection, profile_id) DO UPDATE SET embedding = EXCLUDED.embedding`
	return stmt, args
}

func buildQuery(collection string, vector []float32, k int, restrict []core.ID) (string, []any) {
	args := []any{pgvector.NewVector(vector), collection}
	where := "collection = $2"
	if restrict != nil {
		raw := make([]int64, len(restrict))
		for i, id := range restrict {
			raw[i] = int64(id)
		}
		args = append(args, pq.Array(raw))
		where += fmt.Sprintf(" AND profile_id = ANY($%d)", len(args))
	}
	args = append(args, k)
	query := `SELECT profile_id, embedding <-> $1 AS distance FROM profile_embeddings WHERE ` + where +
		fmt.Sprintf(" ORDER BY embedding <-> $1, profile_id LIMIT $%d", len(args))
	return query, args
}
