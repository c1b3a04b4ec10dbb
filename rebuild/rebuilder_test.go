package rebuild

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/poiesic/floatchat/ai/mock"
	"github.com/poiesic/floatchat/core"
	"github.com/poiesic/floatchat/storage"
	"github.com/poiesic/floatchat/storage/flat"
	"github.com/poiesic/floatchat/storage/sqlstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRepo(t *testing.T) *sqlstore.ProfileRepository {
	t.Helper()
	backend, err := sqlstore.Open(context.Background(), sqlstore.DialectSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })
	return sqlstore.NewProfileRepository(backend)
}

func profile(floatID string, day int, lat, lon float64, m core.Measurements) *core.Profile {
	return &core.Profile{
		FloatID:      floatID,
		Timestamp:    time.Date(2024, 1, day, 6, 0, 0, 0, time.UTC),
		Latitude:     lat,
		Longitude:    lon,
		Measurements: m,
	}
}

// seedFloats stores n floats named F00..F(n-1) with two profiles each and
// one profile without a float id.
func seedFloats(t *testing.T, repo storage.ProfileRepository, n int) {
	t.Helper()
	var profiles []*core.Profile
	for i := range n {
		id := fmt.Sprintf("F%02d", i)
		profiles = append(profiles,
			profile(id, 1, float64(i), 60, core.Measurements{"TEMP": core.Number(10), core.KeyDepth: core.Number(5)}),
			profile(id, 9, float64(i)+0.5, 61, core.Measurements{"PSAL": core.Number(35)}),
		)
	}
	profiles = append(profiles, profile("", 2, 0, 0, core.Measurements{"TEMP": core.Number(1)}))
	_, err := repo.UpsertProfiles(context.Background(), profiles...)
	require.NoError(t, err)
}

func testConfig() *Config {
	return &Config{
		BatchSize:      2,
		PageSize:       3,
		ReportInterval: 1,
		MaxRetries:     2,
		RetryDelay:     time.Millisecond,
	}
}

func TestFloatSummary(t *testing.T) {
	s := &core.FloatStats{
		FloatID:   "2902746",
		Profiles:  12,
		First:     time.Date(2023, 2, 1, 3, 0, 0, 0, time.UTC),
		Last:      time.Date(2024, 7, 30, 21, 0, 0, 0, time.UTC),
		MinLat:    -10.256,
		MaxLat:    -4.5,
		MinLon:    70,
		MaxLon:    75.126,
		Variables: []string{"PSAL", "TEMP"},
	}
	assert.Equal(t,
		"ARGO float WMO ID 2902746 has 12 profiles. It operated from 2023-02-01 to 2024-07-30. "+
			"Its location ranges from latitude -10.26 to -4.50 and longitude 70.00 to 75.13. "+
			"This dataset contains measurements for: PSAL, TEMP.",
		FloatSummary(s))

	s.Variables = nil
	assert.NotContains(t, FloatSummary(s), "measurements for")
}

func TestFloatIterator_Pages(t *testing.T) {
	repo := setupRepo(t)
	seedFloats(t, repo, 5)

	var sizes []int
	var ids []string
	for page, err := range NewFloatIterator(repo, 2).Pages(context.Background()) {
		require.NoError(t, err)
		sizes = append(sizes, len(page))
		for _, s := range page {
			ids = append(ids, s.FloatID)
		}
	}
	assert.Equal(t, []int{2, 2, 1}, sizes)
	assert.Equal(t, []string{"F00", "F01", "F02", "F03", "F04"}, ids)
}

func TestFloatIterator_ExactMultiple(t *testing.T) {
	repo := setupRepo(t)
	seedFloats(t, repo, 4)

	all, err := NewFloatIterator(repo, 2).All(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestFloatIterator_EmptyDatabase(t *testing.T) {
	all, err := NewFloatIterator(setupRepo(t), 0).All(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

type failingStats struct {
	storage.ProfileRepository
	err error
}

func (f *failingStats) FloatStats(context.Context, string, int) ([]*core.FloatStats, error) {
	return nil, f.err
}

func TestFloatIterator_ErrorHandling(t *testing.T) {
	boom := errors.New("database gone")
	_, err := NewFloatIterator(&failingStats{ProfileRepository: setupRepo(t), err: boom}, 2).All(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestFloatIterator_ContextCancellation(t *testing.T) {
	repo := setupRepo(t)
	seedFloats(t, repo, 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewFloatIterator(repo, 2).All(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewRebuilderRequiresDependencies(t *testing.T) {
	repo := setupRepo(t)
	embedder := mock.NewMockEmbedder()

	_, err := NewRebuilder(nil, embedder, t.TempDir(), nil, nil)
	assert.ErrorIs(t, err, ErrProfileRepositoryRequired)

	_, err = NewRebuilder(repo, nil, t.TempDir(), nil, nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)

	_, err = NewRebuilder(repo, embedder, "", nil, nil)
	assert.ErrorIs(t, err, ErrIndexDirRequired)

	_, err = NewRebuilder(repo, embedder, t.TempDir(), &Config{BatchSize: 1}, nil)
	assert.ErrorIs(t, err, ErrInvalidMaxAttempts)
}

func TestRebuilder_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := setupRepo(t)
	seedFloats(t, repo, 5)
	dir := t.TempDir()

	embedder := mock.NewMockEmbedder().WithDimension(16)
	var buf bytes.Buffer
	rebuilder, err := NewRebuilder(repo, embedder, dir, testConfig(), &buf)
	require.NoError(t, err)

	result, err := rebuilder.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, result.Floats)
	assert.Equal(t, 16, result.Dimension)
	assert.NotEmpty(t, result.Generation)
	assert.Equal(t, 5, embedder.TextCount())
	assert.Equal(t, 3, embedder.CallCount(), "five summaries in batches of two")
	assert.Contains(t, buf.String(), "5/5")

	index, err := flat.OpenCurrent(dir)
	require.NoError(t, err)
	assert.Equal(t, result.Generation, index.Generation)
	assert.Equal(t, 5, index.Len())

	// The summary of a stored float is its own nearest neighbour.
	stats, err := repo.FloatStats(ctx, "F02", 1)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	query := mock.GenerateDeterministicVector(FloatSummary(stats[0]), 16)

	hits, err := index.Search(query, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "F03", hits[0].FloatID)
	assert.InDelta(t, 0, hits[0].Distance, 1e-5)
}

func TestRebuilder_ReplacesGeneration(t *testing.T) {
	ctx := context.Background()
	repo := setupRepo(t)
	seedFloats(t, repo, 2)
	dir := t.TempDir()

	rebuilder, err := NewRebuilder(repo, mock.NewMockEmbedder().WithDimension(8), dir, testConfig(), nil)
	require.NoError(t, err)

	first, err := rebuilder.Run(ctx)
	require.NoError(t, err)

	seedFloats(t, repo, 3)
	second, err := rebuilder.Run(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, first.Generation, second.Generation)
	assert.Equal(t, 3, second.Floats)

	_, err = os.Stat(filepath.Join(dir, first.Generation))
	assert.True(t, os.IsNotExist(err), "previous generation is removed")

	index, err := flat.OpenCurrent(dir)
	require.NoError(t, err)
	assert.Equal(t, second.Generation, index.Generation)
}

func TestRebuilder_Normalize(t *testing.T) {
	ctx := context.Background()
	repo := setupRepo(t)
	seedFloats(t, repo, 1)
	dir := t.TempDir()

	embedder := mock.NewMockEmbedder().WithEmbedTextsFunc(func(_ context.Context, texts []string) ([][]float32, error) {
		out := make([][]float32, len(texts))
		for i := range texts {
			out[i] = []float32{3, 4}
		}
		return out, nil
	})
	cfg := testConfig()
	cfg.Normalize = true
	rebuilder, err := NewRebuilder(repo, embedder, dir, cfg, nil)
	require.NoError(t, err)
	_, err = rebuilder.Run(ctx)
	require.NoError(t, err)

	index, err := flat.OpenCurrent(dir)
	require.NoError(t, err)
	hits, err := index.Search([]float32{6, 8}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.InDelta(t, 0, hits[0].Distance, 1e-6, "query and entry are both unit length")
}

func TestRebuilder_EmptyDatabase(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	rebuilder, err := NewRebuilder(setupRepo(t), mock.NewMockEmbedder(), dir, testConfig(), &buf)
	require.NoError(t, err)

	result, err := rebuilder.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.Floats)
	assert.Empty(t, result.Generation)
	assert.Contains(t, buf.String(), "No floats found")

	_, err = flat.OpenCurrent(dir)
	assert.ErrorIs(t, err, flat.ErrNoIndex)
}

func TestRebuilder_EmbeddingError(t *testing.T) {
	repo := setupRepo(t)
	seedFloats(t, repo, 3)
	dir := t.TempDir()

	attempts := 0
	boom := errors.New("embedding service down")
	embedder := mock.NewMockEmbedder().WithEmbedTextsFunc(func(context.Context, []string) ([][]float32, error) {
		attempts++
		return nil, boom
	})
	rebuilder, err := NewRebuilder(repo, embedder, dir, testConfig(), nil)
	require.NoError(t, err)

	_, err = rebuilder.Run(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, attempts, "the failing batch is retried MaxRetries times")

	_, err = flat.OpenCurrent(dir)
	assert.ErrorIs(t, err, flat.ErrNoIndex, "a failed rebuild leaves no generation")
}

func TestRebuilder_EmbeddingMismatch(t *testing.T) {
	repo := setupRepo(t)
	seedFloats(t, repo, 2)

	embedder := mock.NewMockEmbedder().WithEmbedTextsFunc(func(context.Context, []string) ([][]float32, error) {
		return [][]float32{{1, 2}}, nil
	})
	rebuilder, err := NewRebuilder(repo, embedder, t.TempDir(), testConfig(), nil)
	require.NoError(t, err)

	_, err = rebuilder.Run(context.Background())
	assert.ErrorIs(t, err, ErrEmbeddingMismatch)
}

func TestRebuilder_ContextCancellation(t *testing.T) {
	repo := setupRepo(t)
	seedFloats(t, repo, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rebuilder, err := NewRebuilder(repo, mock.NewMockEmbedder(), t.TempDir(), testConfig(), nil)
	require.NoError(t, err)

	_, err = rebuilder.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Positive(t, cfg.BatchSize)
	assert.Equal(t, DefaultPageSize, cfg.PageSize)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.False(t, cfg.Normalize)
}
