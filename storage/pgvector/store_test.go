package pgvector

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"

	_ "github.com/lib/pq"
	"github.com/poiesic/floatchat/core"
	"github.com/poiesic/floatchat/storage"
	"github.com/poiesic/floatchat/storage/sqlstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildQuery(t *testing.T) {
	t.Run("unrestricted", func(t *testing.T) {
		query, args := buildQuery("ocean_profiles", []float32{1, 2}, 5, nil)
		assert.Equal(t,
			"SELECT profile_id, embedding <-> $1 AS distance FROM profile_embeddings WHERE collection = $2 ORDER BY embedding <-> $1, profile_id LIMIT $3",
			query)
		require.Len(t, args, 3)
		assert.Equal(t, "ocean_profiles", args[1])
		assert.Equal(t, 5, args[2])
	})

	t.Run("restricted", func(t *testing.T) {
		query, args := buildQuery("ocean_profiles", []float32{1, 2}, 5, []core.ID{3, 4})
		assert.Contains(t, query, "AND profile_id = ANY($3)")
		assert.Contains(t, query, "LIMIT $4")
		require.Len(t, args, 4)
	})
}

func TestBuildInsert(t *testing.T) {
	stmt, args := buildInsert("c", []core.ID{1, 2}, [][]float32{{1}, {2}})
	assert.Contains(t, stmt, "VALUES ($1, $2, $3), ($1, $4, $5)")
	assert.Contains(t, stmt, "ON CONFLICT (collection, profile_id) DO UPDATE")
	assert.Len(t, args, 5)
	assert.Equal(t, int64(2), args[3])
}

// TestCollectionIntegration runs against a live database when
// FLOATCHAT_TEST_POSTGRES_DSN names one with the pgvector extension available.
func TestCollectionIntegration(t *testing.T) {
	dsn := os.Getenv("FLOATCHAT_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("FLOATCHAT_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()

	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	defer db.Close()

	store, err := NewStore(ctx, db)
	require.NoError(t, err)

	name := "test_" + t.Name()
	_, err = db.ExecContext(ctx, `DELETE FROM profile_embeddings WHERE collection = $1`, name)
	require.NoError(t, err)

	idx, err := store.Collection(ctx, name)
	require.NoError(t, err)
	require.NoError(t, idx.Add(ctx, []core.ID{1, 2, 3}, [][]float32{{0, 0}, {1, 0}, {0, 2}}))

	hits, err := idx.Query(ctx, []float32{0, 0}, 2, nil)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, core.ID(1), hits[0].ID)
	assert.Equal(t, core.ID(2), hits[1].ID)
	assert.InDelta(t, 1.0, hits[1].Distance, 1e-6)

	hits, err = idx.Query(ctx, []float32{0, 0}, 5, []core.ID{3, 99})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, core.ID(3), hits[0].ID)

	vec, err := idx.(*Collection).get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, vec)

	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestAddJoinsTransaction(t *testing.T) {
	dsn := os.Getenv("FLOATCHAT_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("FLOATCHAT_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()

	backend, err := sqlstore.Open(ctx, sqlstore.DialectPostgres, dsn)
	require.NoError(t, err)
	defer backend.Close()

	store, err := NewStore(ctx, backend.DB())
	require.NoError(t, err)
	name := "test_" + t.Name()
	_, err = backend.DB().ExecContext(ctx, `DELETE FROM profile_embeddings WHERE collection = $1`, name)
	require.NoError(t, err)
	idx, err := store.Collection(ctx, name)
	require.NoError(t, err)
	coll := idx.(*Collection)

	rollback := errors.New("roll back")
	err = backend.WithTransaction(ctx, func(ctx context.Context) error {
		require.NoError(t, idx.Add(ctx, []core.ID{7}, [][]float32{{1, 1}}))
		vec, err := coll.get(ctx, 7)
		require.NoError(t, err, "visible inside the transaction")
		assert.Equal(t, []float32{1, 1}, vec)
		return rollback
	})
	require.ErrorIs(t, err, rollback)

	_, err = coll.get(ctx, 7)
	assert.ErrorIs(t, err, storage.ErrNotFound, "rolled back with the transaction")

	err = backend.WithTransaction(ctx, func(ctx context.Context) error {
		return idx.Add(ctx, []core.ID{8}, [][]float32{{2, 2}})
	})
	require.NoError(t, err)
	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
