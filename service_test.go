package floatchat

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/floatchat/ai/mock"
	"github.com/poiesic/floatchat/config"
	"github.com/poiesic/floatchat/core"
	"github.com/poiesic/floatchat/dataset/cdftest"
	"github.com/poiesic/floatchat/search"
	"github.com/poiesic/floatchat/storage/flat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Database.DSN = filepath.Join(dir, "db", "floatchat.db")
	cfg.Vector.Path = filepath.Join(dir, "vectors")
	cfg.Ingest.SourceDir = filepath.Join(dir, "incoming")
	cfg.Index.Dir = filepath.Join(dir, "float_index")
	return cfg
}

func newTestService(t *testing.T, cfg *config.Config) (*Service, *mock.MockProvider) {
	t.Helper()
	provider := mock.NewMockProviderWithServices(mock.NewMockEmbedder().WithDimension(8), nil, nil)
	svc, err := NewService(context.Background(), cfg, WithProvider(provider))
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })
	return svc, provider
}

func TestNewService(t *testing.T) {
	t.Run("creates stores", func(t *testing.T) {
		cfg := testConfig(t)
		svc, _ := newTestService(t, cfg)

		assert.NotNil(t, svc.Profiles())
		assert.NotNil(t, svc.Tracking())
		assert.NotNil(t, svc.Index())
		assert.NotNil(t, svc.Metrics())
		assert.Same(t, cfg, svc.Config())
		assert.FileExists(t, cfg.Database.DSN)
		assert.DirExists(t, cfg.Vector.Path)
	})

	t.Run("invalid configuration", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Vector.Backend = config.VectorBackendPGVector
		svc, err := NewService(context.Background(), cfg, WithProvider(mock.NewMockProvider()))
		assert.Error(t, err)
		assert.Nil(t, svc)
	})

	t.Run("vector path is a file", func(t *testing.T) {
		cfg := testConfig(t)
		require.NoError(t, os.MkdirAll(filepath.Dir(cfg.Vector.Path), 0o755))
		require.NoError(t, os.WriteFile(cfg.Vector.Path, []byte("test"), 0o644))

		svc, err := NewService(context.Background(), cfg, WithProvider(mock.NewMockProvider()))
		assert.Error(t, err)
		assert.Nil(t, svc)
	})
}

func TestService_Close(t *testing.T) {
	svc, err := NewService(context.Background(), testConfig(t), WithProvider(mock.NewMockProvider()))
	require.NoError(t, err)
	assert.NoError(t, svc.Close())
}

func TestService_EndToEnd(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	svc, provider := newTestService(t, cfg)

	require.NoError(t, os.MkdirAll(cfg.Ingest.SourceDir, 0o755))
	require.NoError(t, cdftest.Grid().WriteFile(filepath.Join(cfg.Ingest.SourceDir, "grid.nc")))

	// Ingest.
	pipeline, err := svc.NewIngestionPipeline()
	require.NoError(t, err)
	report, err := pipeline.Run(ctx, cfg.Ingest.SourceDir)
	pipeline.Release()
	require.NoError(t, err)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 4, report.Inserted)
	assert.FileExists(t, filepath.Join(cfg.ArchiveDir(), "grid.nc"))

	count, err := svc.Index().Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 4, count)

	// Retrieve.
	retriever, err := svc.NewRetriever()
	require.NoError(t, err)
	profiles, err := retriever.Retrieve(ctx, "salinity off Oregon", 10)
	require.NoError(t, err)
	require.Len(t, profiles, 4)
	for _, p := range profiles {
		assert.Equal(t, "TEST_FLOAT_123", p.FloatID)
	}

	// Answer.
	answers, err := svc.NewChat()
	require.NoError(t, err)
	answer, err := answers.Answer(ctx, "What is the salinity off Oregon?")
	require.NoError(t, err)
	assert.Equal(t, "mock answer", answer.Text)
	assert.Equal(t, cfg.AI.AnswerModel, answer.Model)
	assert.Len(t, answer.Matches, 4)
	calls := provider.GetMockGenerator().Calls()
	require.NotEmpty(t, calls)
	assert.Contains(t, calls[len(calls)-1].Prompt, "Retrieved Data:")

	// Rebuild the float index and query it.
	rebuilder, err := svc.NewRebuilder(nil)
	require.NoError(t, err)
	result, err := rebuilder.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Floats)

	floats, err := svc.OpenFloatIndex()
	require.NoError(t, err)
	hits, err := search.FindFloats(ctx, svc.Provider().Embedder(), floats, "which float measured salinity?", 3)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "TEST_FLOAT_123", hits[0].FloatID)

	// Tracking and metrics.
	rec, err := svc.Tracking().GetFile(ctx, "grid.nc")
	require.NoError(t, err)
	assert.Equal(t, core.FileStatusSuccess, rec.Status)

	path := filepath.Join(t.TempDir(), "floatchat.prom")
	require.NoError(t, svc.Metrics().WriteTextfile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `floatchat_ingest_files_total{outcome="ingested",status="success"} 1`)
}

func TestService_OpenFloatIndexBeforeRebuild(t *testing.T) {
	svc, _ := newTestService(t, testConfig(t))
	_, err := svc.OpenFloatIndex()
	assert.ErrorIs(t, err, flat.ErrNoIndex)
}

func TestService_ProfilesMode(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.Ingest.Mode = "profiles"
	svc, _ := newTestService(t, cfg)

	require.NoError(t, os.MkdirAll(cfg.Ingest.SourceDir, 0o755))
	require.NoError(t, cdftest.Argo("5906468").WriteFile(filepath.Join(cfg.Ingest.SourceDir, "argo.nc")))

	pipeline, err := svc.NewIngestionPipeline()
	require.NoError(t, err)
	defer pipeline.Release()
	report, err := pipeline.Run(ctx, cfg.Ingest.SourceDir)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Inserted)

	n, err := svc.Profiles().CountProfiles(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}
