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


package floatchat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/poiesic/floatchat/ai"
	"github.com/poiesic/floatchat/ai/openai"
	"github.com/poiesic/floatchat/chat"
	"github.com/poiesic/floatchat/config"
	"github.com/poiesic/floatchat/ingestion"
	"github.com/poiesic/floatchat/metrics"
	"github.com/poiesic/floatchat/rebuild"
	"github.com/poiesic/floatchat/search"
	"github.com/poiesic/floatchat/storage"
	"github.com/poiesic/floatchat/storage/badger"
	"github.com/poiesic/floatchat/storage/flat"
	"github.com/poiesic/floatchat/storage/pgvector"
	"github.com/poiesic/floatchat/storage/sqlstore"
)

// Service owns the stores and model clients shared by every floatchat
// operation. It is constructed once per process.
type Service struct {
	cfg      *config.Config
	backend  *sqlstore.Backend
	profiles *sqlstore.ProfileRepository
	tracking *sqlstore.TrackingRepository
	vectors  storage.VectorStore
	index    storage.VectorIndex
	provider ai.AIProvider
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	provider ai.AIProvider
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// WithProvider supplies the AI provider instead of building an
// OpenAI-compatible one from the configuration.
func WithProvider(provider ai.AIProvider) ServiceOption {
	return func(o *serviceOptions) {
		o.provider = provider
	}
}

// WithMetrics sets the metrics instruments fed by pipelines and retrievers.
func WithMetrics(m *metrics.Metrics) ServiceOption {
	return func(o *serviceOptions) {
		o.metrics = m
	}
}

// WithLogger sets the logger handed to every component.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(o *serviceOptions) {
		o.logger = logger
	}
}

// NewService opens the relational store, the profile vector index and the
// AI provider described by cfg.
func NewService(ctx context.Context, cfg *config.Config, opts ...ServiceOption) (*Service, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	options := &serviceOptions{}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}
	if options.metrics == nil {
		options.metrics = metrics.New(metrics.DefaultConfig())
	}

	dialect, err := sqlstore.ParseDialect(cfg.Database.Dialect)
	if err != nil {
		return nil, err
	}
	if dialect == sqlstore.DialectSQLite {
		if err := ensureParentDir(cfg.Database.DSN); err != nil {
			return nil, err
		}
	}
	backend, err := sqlstore.Open(ctx, dialect, cfg.Database.DSN, sqlstore.WithLogger(options.logger))
	if err != nil {
		return nil, err
	}

	vectors, err := openVectorStore(ctx, cfg, backend, options.logger)
	if err != nil {
		backend.Close()
		return nil, err
	}
	index, err := vectors.Collection(ctx, cfg.Vector.Collection)
	if err != nil {
		vectors.Close()
		backend.Close()
		return nil, err
	}

	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(cfg.AIConfig())
		if err != nil {
			vectors.Close()
			backend.Close()
			return nil, err
		}
	}

	return &Service{
		cfg:      cfg,
		backend:  backend,
		profiles: sqlstore.NewProfileRepository(backend),
		tracking: sqlstore.NewTrackingRepository(backend),
		vectors:  vectors,
		index:    index,
		provider: provider,
		metrics:  options.metrics,
		logger:   options.logger.With("component", "service"),
	}, nil
}

func openVectorStore(ctx context.Context, cfg *config.Config, backend *sqlstore.Backend, logger *slog.Logger) (storage.VectorStore, error) {
	switch cfg.Vector.Backend {
	case config.VectorBackendPGVector:
		return pgvector.NewStore(ctx, backend.DB(), pgvector.WithLogger(logger))
	default:
		if err := os.MkdirAll(cfg.Vector.Path, 0o755); err != nil {
			return nil, err
		}
		return badger.NewVectorStore(cfg.Vector.Path, badger.WithLogger(logger))
	}
}

// ensureParentDir creates the directory holding a SQLite database file.
func ensureParentDir(dsn string) error {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || strings.Contains(path, ":memory:") {
		return nil
	}
	return os.MkdirAll(filepath.Dir(path), 0o755)
}

// Close releases the provider and stores.
func (s *Service) Close() error {
	var errs []error
	if err := s.provider.Close(); err != nil {
		s.logger.Error("error closing AI provider", "err", err)
		errs = append(errs, err)
	}
	if err := s.vectors.Close(); err != nil {
		s.logger.Error("error closing vector store", "err", err)
		errs = append(errs, err)
	}
	if err := s.backend.Close(); err != nil {
		s.logger.Error("error closing relational store", "err", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (s *Service) Config() *config.Config { return s.cfg }

func (s *Service) Profiles() storage.ProfileRepository { return s.profiles }

func (s *Service) Tracking() storage.TrackingRepository { return s.tracking }

func (s *Service) Index() storage.VectorIndex { return s.index }

func (s *Service) Provider() ai.AIProvider { return s.provider }

func (s *Service) Metrics() *metrics.Metrics { return s.metrics }

// NewIngestionPipeline returns a pipeline configured from the ingest
// settings. opts are applied after the configured ones.
func (s *Service) NewIngestionPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	mode, err := ingestion.ParseMode(s.cfg.Ingest.Mode)
	if err != nil {
		return nil, err
	}
	base := []ingestion.Option{
		ingestion.WithLogger(s.logger),
		ingestion.WithMode(mode),
		ingestion.WithBatchSize(s.cfg.Ingest.BatchSize),
		ingestion.WithArchiveDir(s.cfg.ArchiveDir()),
		ingestion.WithMonitor(s.metrics.IngestionMonitor()),
	}
	if s.cfg.Ingest.EmbeddingChunkSize > 0 {
		base = append(base, ingestion.WithEmbeddingChunkSize(s.cfg.Ingest.EmbeddingChunkSize))
	}
	if s.cfg.Ingest.PoolSize > 0 {
		base = append(base, ingestion.WithPoolSize(s.cfg.Ingest.PoolSize))
	}
	if s.cfg.Ingest.RequiredVariables != nil {
		base = append(base, ingestion.WithRequiredVariables(s.cfg.Ingest.RequiredVariables...))
	}
	return ingestion.NewPipeline(s.profiles, s.tracking, s.index, s.provider, append(base, opts...)...)
}

// NewRetriever returns a hybrid retriever over the service's stores.
func (s *Service) NewRetriever(opts ...search.Option) (*search.Retriever, error) {
	base := []search.Option{
		search.WithLogger(s.logger),
		search.WithCandidateCap(s.cfg.Search.CandidateCap),
		search.WithMonitor(s.metrics.SearchMonitor()),
	}
	return search.NewRetriever(s.profiles, s.index, s.provider, append(base, opts...)...)
}

// NewChat returns an answer service using the configured answer model.
func (s *Service) NewChat(opts ...chat.Option) (*chat.Service, error) {
	retriever, err := s.NewRetriever()
	if err != nil {
		return nil, err
	}
	base := []chat.Option{
		chat.WithLogger(s.logger),
		chat.WithModel(s.cfg.AI.AnswerModel),
		chat.WithTopK(s.cfg.Search.TopK),
	}
	return chat.NewService(retriever, s.provider.Generator(), append(base, opts...)...)
}

// NewRebuilder returns a float index rebuilder writing under the
// configured index directory.
func (s *Service) NewRebuilder(progress io.Writer) (*rebuild.Rebuilder, error) {
	cfg := rebuild.DefaultConfig()
	if s.cfg.Index.BatchSize > 0 {
		cfg.BatchSize = s.cfg.Index.BatchSize
	}
	cfg.Normalize = s.cfg.Index.Normalize
	return rebuild.NewRebuilder(s.profiles, s.provider.Embedder(), s.cfg.Index.Dir, cfg, progress)
}

// OpenFloatIndex loads the active float index generation.
func (s *Service) OpenFloatIndex() (*flat.FloatIndex, error) {
	return flat.OpenCurrent(s.cfg.Index.Dir)
}
