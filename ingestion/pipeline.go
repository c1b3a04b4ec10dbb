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


package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/floatchat/ai"
	"github.com/poiesic/floatchat/core"
	"github.com/poiesic/floatchat/dataset"
	"github.com/poiesic/floatchat/storage"
)

const (
	// DefaultBatchSize is the number of rows persisted per transaction.
	DefaultBatchSize = 2048

	// DefaultEmbeddingChunkSize is the number of texts per embedding request.
	DefaultEmbeddingChunkSize = 256

	// DefaultArchiveDirName is the archive directory used when none is set,
	// relative to the source directory.
	DefaultArchiveDirName = "archive"
)

// Pipeline orchestrates the ingestion of source files.
// Files are processed one at a time; only embedding requests run concurrently.
type Pipeline struct {
	profiles   storage.ProfileRepository
	tracking   storage.TrackingRepository
	index      storage.VectorIndex
	embedder   ai.Embedder
	opener     dataset.Opener
	pool       *ants.Pool
	fanout     *embeddingFanout
	proc       processor
	mode       Mode
	required   []string
	batchSize  int
	chunkSize  int
	archiveDir string
	monitor    Monitor
	logger     *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent embedding requests.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		// Release old pool
		if p.pool != nil {
			p.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithMode selects how rows are stored. Default is ModePoints.
func WithMode(mode Mode) Option {
	return func(p *Pipeline) error {
		if mode != ModePoints && mode != ModeProfiles {
			return fmt.Errorf("%w: %d", ErrUnknownMode, int(mode))
		}
		p.mode = mode
		return nil
	}
}

// WithBatchSize sets the number of rows persisted per transaction.
// Default is DefaultBatchSize.
func WithBatchSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			return ErrInvalidBatchSize
		}
		p.batchSize = size
		return nil
	}
}

// WithEmbeddingChunkSize sets the number of texts per embedding request.
// Default is DefaultEmbeddingChunkSize.
func WithEmbeddingChunkSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			return ErrInvalidBatchSize
		}
		p.chunkSize = size
		return nil
	}
}

// WithRequiredVariables sets the variables that must be non-null for a row
// to be kept in points mode. Default is DefaultRequiredVariables.
func WithRequiredVariables(names ...string) Option {
	return func(p *Pipeline) error {
		p.required = append([]string(nil), names...)
		return nil
	}
}

// WithArchiveDir sets where successfully processed files are moved.
// Default is an "archive" directory inside the source directory.
func WithArchiveDir(dir string) Option {
	return func(p *Pipeline) error {
		p.archiveDir = dir
		return nil
	}
}

// WithOpener replaces the dataset opener. Default is dataset.FileOpener.
func WithOpener(opener dataset.Opener) Option {
	return func(p *Pipeline) error {
		if opener != nil {
			p.opener = opener
		}
		return nil
	}
}

// WithMonitor sets a progress monitor.
func WithMonitor(monitor Monitor) Option {
	return func(p *Pipeline) error {
		if monitor != nil {
			p.monitor = monitor
		}
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(
	profiles storage.ProfileRepository,
	tracking storage.TrackingRepository,
	index storage.VectorIndex,
	provider ai.AIProvider,
	opts ...Option,
) (*Pipeline, error) {
	if profiles == nil {
		return nil, ErrProfileRepositoryRequired
	}
	if tracking == nil {
		return nil, ErrTrackingRepositoryRequired
	}
	if index == nil {
		return nil, ErrVectorIndexRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	// Default pool size
	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	// Create pipeline with defaults
	p := &Pipeline{
		profiles:  profiles,
		tracking:  tracking,
		index:     index,
		embedder:  provider.Embedder(),
		opener:    dataset.FileOpener,
		pool:      pool,
		mode:      ModePoints,
		required:  DefaultRequiredVariables,
		batchSize: DefaultBatchSize,
		chunkSize: DefaultEmbeddingChunkSize,
		monitor:   noopMonitor{},
		logger:    slog.Default(),
	}

	// Apply options (may override defaults)
	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}
	p.logger = p.logger.With("component", "ingestion")

	// Create collaborators after options are applied (so they get final config)
	fanout, err := newEmbeddingFanout(p.embedder, p.pool, p.chunkSize, p.logger)
	if err != nil {
		p.Release()
		return nil, err
	}
	p.fanout = fanout
	p.proc = newProcessor(p.mode, p.required, p.logger)

	return p, nil
}

// Release releases resources including the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}

// Run processes every new source file in sourceDir. Per-file failures are
// recorded in the report and do not stop the run; the returned error is
// non-nil only when the run itself could not proceed or ctx was cancelled.
func (p *Pipeline) Run(ctx context.Context, sourceDir string) (*Report, error) {
	report := &Report{RunID: uuid.NewString(), Started: time.Now().UTC()}
	logger := p.logger.With("run_id", report.RunID)
	defer func() { report.Finished = time.Now().UTC() }()

	files, err := p.discover(ctx, sourceDir)
	if errors.Is(err, os.ErrNotExist) {
		logger.Warn("source directory not found, nothing to process", "dir", sourceDir)
		return report, nil
	}
	if err != nil {
		return report, err
	}
	logger.Info("starting ingestion run", "dir", sourceDir, "files", len(files), "mode", p.mode)

	archiveDir := p.archiveDir
	if archiveDir == "" {
		archiveDir = filepath.Join(sourceDir, DefaultArchiveDirName)
	}

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			logger.Warn("ingestion run cancelled", "err", err)
			return report, err
		}
		report.add(p.processFile(ctx, logger, path, archiveDir))
	}

	logger.Info("ingestion run finished",
		"succeeded", report.Succeeded, "failed", report.Failed, "inserted", report.Inserted)
	return report, nil
}

// discover lists source files in dir that are not tracked as successful,
// sorted by name.
func (p *Pipeline) discover(ctx context.Context, dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !dataset.IsSourceFile(e.Name()) {
			continue
		}
		rec, err := p.tracking.GetFile(ctx, e.Name())
		if err == nil && rec.Status == core.FileStatusSuccess {
			continue
		}
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("look up tracking record for %s: %w", e.Name(), err)
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// archive moves path into dir, falling back to copy and delete when a
// rename crosses file systems.
func archive(path, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	dest := filepath.Join(dir, filepath.Base(path))
	if err := os.Rename(path, dest); err == nil {
		return nil
	}

	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()
	dst, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(dest)
		return err
	}
	if err := dst.Close(); err != nil {
		os.Remove(dest)
		return err
	}
	return os.Remove(path)
}
